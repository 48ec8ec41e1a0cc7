package fastslide

import "github.com/Grescilla/fastslide-sub000/writer"

// AssociatedImage is a small auxiliary image embedded in a slide file
// (label, macro, thumbnail) that is not part of the pyramid.
type AssociatedImage struct {
	Name  string
	Image Image
}

// SlideReader is the contract every format plug-in (MRXS, Aperio) satisfies.
// It owns its metadata, its resource pool (TIFF handles, MRXS file
// descriptors), and any lazily-built per-level spatial indices.
type SlideReader interface {
	// LevelCount reports the number of pyramid levels.
	LevelCount() int32
	// LevelInfo returns metadata for a single level, or a NotFound error.
	LevelInfo(level int32) (LevelInfo, error)
	// Properties returns slide-wide metadata.
	Properties() SlideProperties
	// TileSize reports the native storage tile size at level 0.
	TileSize() Dimensions
	// QuickHash returns a stable, deterministic fingerprint for the slide.
	QuickHash() (string, error)

	// PrepareRequest is pure planning: no tile I/O.
	PrepareRequest(req TileRequest) (*TilePlan, error)
	// ExecutePlan performs the parallel tile work described by plan,
	// depositing pixels into w. Per-tile failures are logged and skipped.
	ExecutePlan(plan *TilePlan, w *writer.TileWriter) error

	// ReadRegion is the high-level convenience wrapping PrepareRequest,
	// ExecutePlan, and Finalize.
	ReadRegion(region RegionSpec) (Image, error)

	// AssociatedImages lists auxiliary images (label, macro, thumbnail), if
	// any. Formats without associated images return an empty slice.
	AssociatedImages() ([]string, error)
	// ReadAssociatedImage decodes one associated image by name.
	ReadAssociatedImage(name string) (Image, error)

	// Close releases any pooled resources (file handles, mmaps).
	Close() error
}

// ReadRegionVia is the shared RegionSpec -> TileRequest -> ReadRegion glue
// every SlideReader implementation's ReadRegion method delegates to: it
// calls r.PrepareRequest, builds a writer sized to the plan's output spec,
// calls r.ExecutePlan, and finalizes the result.
func ReadRegionVia(r SlideReader, region RegionSpec) (Image, error) {
	if err := region.Validate(); err != nil {
		return Image{}, err
	}
	req := TileRequest{
		Level: region.Level,
		RegionBounds: FractionalRegionBounds{
			X: float64(region.TopLeft.X), Y: float64(region.TopLeft.Y),
			Width: float64(region.Size.Width), Height: float64(region.Size.Height),
			Valid: true,
		},
	}
	plan, err := r.PrepareRequest(req)
	if err != nil {
		return Image{}, err
	}
	w := writer.New(plan.Output.Width, plan.Output.Height, plan.Output.Channels,
		writer.Background{R: plan.Output.Background.R, G: plan.Output.Background.G, B: plan.Output.Background.B},
		blendStrategyFor(plan))
	if err := r.ExecutePlan(plan, w); err != nil {
		return Image{}, err
	}
	pix := w.Finalize()
	return Image{Width: plan.Output.Width, Height: plan.Output.Height, Channels: plan.Output.Channels, DType: Uint8, Planar: Contig, Data: pix}, nil
}

// blendStrategyFor picks Overwrite for plans with no blend metadata (TIFF)
// and WeightedBlend otherwise (MRXS), matching §4.10.
func blendStrategyFor(plan *TilePlan) writer.Strategy {
	for _, op := range plan.Operations {
		if op.Blend != nil && op.Blend.Mode == Average {
			return writer.WeightedBlend
		}
	}
	return writer.Overwrite
}
