package mrxs

import (
	"context"
	"log"
	"sync"

	"golang.org/x/sync/errgroup"

	fastslide "github.com/Grescilla/fastslide-sub000"
	"github.com/Grescilla/fastslide-sub000/cache"
	"github.com/Grescilla/fastslide-sub000/writer"
)

// ExecutePlan reads, decodes, and blends every op's tile pixels into w, in
// parallel via errgroup, mirroring aperio/executor.go's fan-out shape.
// Per-tile failures are logged and skipped, never aborting the group — the
// original's "continue processing other tiles" semantics.
func (r *Reader) ExecutePlan(plan *fastslide.TilePlan, w *writer.TileWriter) error {
	if len(plan.Operations) == 0 {
		return w.FillWithColor(plan.Output.Background.R, plan.Output.Background.G, plan.Output.Background.B)
	}

	var mu sync.Mutex
	var failed int
	var failedMu sync.Mutex

	g, _ := errgroup.WithContext(context.Background())
	for _, op := range plan.Operations {
		op := op
		g.Go(func() error {
			if err := r.executeTileOperation(op, w, &mu); err != nil {
				failedMu.Lock()
				failed++
				failedMu.Unlock()
				log.Printf("mrxs: tile (%d,%d) failed: %v", op.TileCoord.Width, op.TileCoord.Height, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	if failed > 0 {
		log.Printf("mrxs: %d tile(s) failed during parallel execution", failed)
	}
	return nil
}

// executeTileOperation decodes the stored image backing op (or reuses a
// cached decode) and deposits it into w. No physical sub-region
// crop/extraction step is ported here: writer.Op.SrcX/SrcY already lets
// WriteTile read from an arbitrary offset within the decoded buffer, so the
// original's ExtractSubRegion/NeedsSubRegionExtraction memcpy is redundant
// in this port (see DESIGN.md).
func (r *Reader) executeTileOperation(op fastslide.TileReadOp, w *writer.TileWriter, mu *sync.Mutex) error {
	pix, tw, th, err := r.readAndDecodeTile(op)
	if err != nil {
		return err
	}
	return w.WriteTile(toWriterOp(op), pix, tw, th, 3, mu)
}

// readAndDecodeTile resolves op back to the stored image it was derived
// from and returns its fully decoded pixels. The cache key identifies the
// stored image (data file + byte offset), not the logical subdivided tile,
// so every subdivided tile sharing one camera image hits the same cache
// entry and is decoded only once.
func (r *Reader) readAndDecodeTile(op fastslide.TileReadOp) (pix []byte, w, h int, err error) {
	key := cache.Key{
		FileID: r.dirname,
		Level:  int(op.Level),
		TileX:  uint32(op.SourceID),
		TileY:  uint32(op.ByteOffset),
	}
	if t, ok := r.cache.Get(key); ok {
		return t.Data, t.Width, t.Height, nil
	}

	raw, err := r.readTileData(op)
	if err != nil {
		return nil, 0, 0, err
	}

	format := r.info.ZoomLevels[op.Level].ImageFormat
	img, err := decodeMrxsImage(raw, format)
	if err != nil {
		return nil, 0, 0, err
	}

	r.cache.Put(key, &cache.Tile{Data: img.Pix, Width: img.Width, Height: img.Height, Channels: 3})
	return img.Pix, img.Width, img.Height, nil
}

func toWriterOp(op fastslide.TileReadOp) writer.Op {
	var blend *writer.BlendMetadata
	if op.Blend != nil {
		blend = &writer.BlendMetadata{
			FractionalX: op.Blend.FractionalX, FractionalY: op.Blend.FractionalY,
			Weight: op.Blend.Weight, Gain: op.Blend.Gain,
			SubpixelResample: op.Blend.SubpixelResample,
		}
	}
	return writer.Op{
		SrcX: op.Source.X, SrcY: op.Source.Y,
		DestX: op.Dest.X, DestY: op.Dest.Y, DestW: op.Dest.Width, DestH: op.Dest.Height,
		Blend: blend,
	}
}
