package fastslide

// Rect is an integer sub-rectangle, used for both the source crop within a
// decoded tile and the destination placement in the output buffer.
type Rect struct {
	X, Y, Width, Height uint32
}

// BlendMode selects how a tile's pixels are combined with whatever is
// already in the writer at the same destination pixels.
type BlendMode int

const (
	// Average accumulates a weighted running mean (MRXS).
	Average BlendMode = iota
	// Overwrite replaces destination pixels outright (TIFF).
	Overwrite
)

// BlendMetadata carries the subpixel placement and gain correction a
// weighted-blend writer needs; Overwrite-mode ops leave it nil.
type BlendMetadata struct {
	FractionalX, FractionalY float64
	Weight                   float64
	Gain                     float32
	Mode                     BlendMode
	SubpixelResample         bool
}

// TileReadOp is a self-contained descriptor of one tile contributing to a
// region read.
type TileReadOp struct {
	Level     int32
	TileCoord Dimensions

	// SourceID is the TIFF directory/page index, or the MRXS data-file
	// number.
	SourceID int64
	// ByteOffset/ByteSize locate the compressed payload: a tile index for
	// TIFF, an absolute file offset for MRXS.
	ByteOffset int64
	ByteSize   int64

	// Source is the sub-rectangle of the decoded tile to use.
	Source Rect
	// Dest is where Source lands in the output buffer.
	Dest Rect

	Blend *BlendMetadata
}

// RGBColor is a plain 8-bit-per-channel background/fill color.
type RGBColor struct {
	R, G, B uint8
}

// OutputSpec describes the shape and default fill of a region-read result.
type OutputSpec struct {
	Width, Height uint32
	Channels      uint32
	DType         DataType
	Background    RGBColor
}

// PlanCost is an advisory estimate of the work ExecutePlan will perform.
type PlanCost struct {
	TotalTiles        int
	TotalBytesToRead  int64
	TilesToDecode     int
	TilesFromCache    int
	EstimatedTimeMS   float64
}

// TilePlan is the immutable output of PrepareRequest: everything
// ExecutePlan needs to fetch, decode, and compose tiles into an output
// image.
type TilePlan struct {
	Request      TileRequest
	Operations   []TileReadOp
	Output       OutputSpec
	ActualRegion Rect
	Cost         PlanCost
}
