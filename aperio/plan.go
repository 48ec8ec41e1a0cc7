package aperio

import (
	fastslide "github.com/Grescilla/fastslide-sub000"
	"github.com/Grescilla/fastslide-sub000/ferror"
)

// PrepareRequest implements §4.9's Aperio plan builder: clip the requested
// region to level bounds, enumerate the tiles it intersects, and describe
// each as a non-overlapping TileReadOp. Aperio tiles already align to the
// output grid, so ops never overlap and the writer runs in Overwrite mode.
func (r *Reader) PrepareRequest(req fastslide.TileRequest) (*fastslide.TilePlan, error) {
	if req.Level < 0 || int(req.Level) >= len(r.pyramid) {
		return nil, ferror.Newf(ferror.InvalidArgument, "aperio: level %d out of range", req.Level)
	}
	level, err := r.LevelInfo(req.Level)
	if err != nil {
		return nil, err
	}
	d, err := r.file.Directory(r.pyramid[req.Level])
	if err != nil {
		return nil, err
	}

	var x, y, w, h uint32
	if req.RegionBounds.Valid {
		x, y = uint32(req.RegionBounds.X), uint32(req.RegionBounds.Y)
		w, h = uint32(ceilf(req.RegionBounds.Width)), uint32(ceilf(req.RegionBounds.Height))
	} else {
		w, h = level.Dimensions.Width, level.Dimensions.Height
	}

	// Clip to level bounds.
	if x >= level.Dimensions.Width || y >= level.Dimensions.Height {
		return &fastslide.TilePlan{
			Request: req,
			Output:  outputSpec(w, h),
		}, nil
	}
	if x+w > level.Dimensions.Width {
		w = level.Dimensions.Width - x
	}
	if y+h > level.Dimensions.Height {
		h = level.Dimensions.Height - y
	}

	tileW, tileH := uint32(d.TileWidth), uint32(d.TileHeight)
	tilesAcross := uint32(d.TilesAcross())

	var ops []fastslide.TileReadOp
	var totalBytes int64

	firstTileX, firstTileY := x/tileW, y/tileH
	lastTileX, lastTileY := (x+w-1)/tileW, (y+h-1)/tileH

	for ty := firstTileY; ty <= lastTileY; ty++ {
		for tx := firstTileX; tx <= lastTileX; tx++ {
			tileLeft, tileTop := tx*tileW, ty*tileH
			tileRight, tileBottom := tileLeft+tileW, tileTop+tileH

			interLeft := maxu32(tileLeft, x)
			interTop := maxu32(tileTop, y)
			interRight := minu32(tileRight, x+w)
			interBottom := minu32(tileBottom, y+h)
			if interRight <= interLeft || interBottom <= interTop {
				continue
			}

			idx := int64(ty)*int64(tilesAcross) + int64(tx)
			var byteSize int64
			if int(idx) < len(d.TileByteCounts) {
				byteSize = d.TileByteCounts[idx]
			}
			totalBytes += byteSize

			ops = append(ops, fastslide.TileReadOp{
				Level:      req.Level,
				TileCoord:  fastslide.Dimensions{Width: tx, Height: ty},
				SourceID:   int64(r.pyramid[req.Level]),
				ByteOffset: idx,
				ByteSize:   byteSize,
				Source: fastslide.Rect{
					X: interLeft - tileLeft, Y: interTop - tileTop,
					Width: interRight - interLeft, Height: interBottom - interTop,
				},
				Dest: fastslide.Rect{
					X: interLeft - x, Y: interTop - y,
					Width: interRight - interLeft, Height: interBottom - interTop,
				},
			})
		}
	}

	return &fastslide.TilePlan{
		Request:      req,
		Operations:   ops,
		Output:       outputSpec(w, h),
		ActualRegion: fastslide.Rect{X: x, Y: y, Width: w, Height: h},
		Cost: fastslide.PlanCost{
			TotalTiles: len(ops), TotalBytesToRead: totalBytes,
			TilesToDecode: len(ops), EstimatedTimeMS: float64(totalBytes) / 1000.0,
		},
	}, nil
}

func outputSpec(w, h uint32) fastslide.OutputSpec {
	return fastslide.OutputSpec{
		Width: w, Height: h, Channels: 3, DType: fastslide.Uint8,
		Background: fastslide.RGBColor{R: 255, G: 255, B: 255},
	}
}

func ceilf(v float64) float64 {
	i := float64(int64(v))
	if v > i {
		return i + 1
	}
	return i
}

func maxu32(a, b uint32) uint32 {
	if a > b {
		return a
	}
	return b
}
func minu32(a, b uint32) uint32 {
	if a < b {
		return a
	}
	return b
}
