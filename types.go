// Package fastslide provides random-access reading of large,
// multi-resolution whole-slide images stored in vendor-specific tiled
// container formats (3DHISTECH MRXS, Aperio SVS/BigTIFF).
//
// Clients open a slide through Open (which dispatches via the format
// registry) and read rectangular regions with ReadRegion, or drive the
// two-stage pipeline directly with PrepareRequest/ExecutePlan for control
// over tile-level cost and scheduling.
package fastslide

import "fmt"

// DataType is the per-sample numeric type of a decoded Image.
type DataType int

const (
	Uint8 DataType = iota
	Uint16
	Int16
	Uint32
	Int32
	Float32
	Float64
)

// BytesPerSample reports the storage width of one sample of this type.
func (d DataType) BytesPerSample() int {
	switch d {
	case Uint8:
		return 1
	case Uint16, Int16:
		return 2
	case Uint32, Int32, Float32:
		return 4
	case Float64:
		return 8
	default:
		return 0
	}
}

// Planar selects how channel samples are interleaved in Image.Data.
type Planar int

const (
	// Contig interleaves channels per pixel: ((y*W+x)*C + c).
	Contig Planar = iota
	// Separate stores one full-plane per channel: (c*W*H + y*W + x).
	Separate
)

// Dimensions is a width/height pair in pixels.
type Dimensions struct {
	Width, Height uint32
}

// Point is an (x, y) pixel coordinate.
type Point struct {
	X, Y uint32
}

// Image is the dense output of a region read.
type Image struct {
	Width, Height uint32
	Channels      uint32
	DType         DataType
	Planar        Planar
	Data          []byte
}

// ContigIndex returns the byte offset of sample c of pixel (x, y) in a
// Contig-planar image with the given sample width.
func ContigIndex(w, c uint32, x, y, channels uint32, sampleBytes int) int {
	return int(((y*w + x) * channels + c)) * sampleBytes
}

// SlideProperties carries slide-level metadata that does not vary by
// pyramid level.
type SlideProperties struct {
	MPPX, MPPY              float64
	ObjectiveMagnification  float64
	ScannerModel            string
	ScanDate                string // empty if unknown
	Bounds                  Bounds
}

// Bounds is a tight box over non-background tissue at level 0.
type Bounds struct {
	X, Y, Width, Height uint32
	// Valid is false when no active tissue tile could be found.
	Valid bool
}

// LevelInfo describes one pyramid level.
type LevelInfo struct {
	Dimensions       Dimensions
	DownsampleFactor float64
}

// RegionSpec is the public region-read request.
type RegionSpec struct {
	TopLeft Point
	Size    Dimensions
	Level   int32
}

// Validate enforces the RegionSpec invariant: size > 0, level >= 0.
func (r RegionSpec) Validate() error {
	if r.Level < 0 {
		return fmt.Errorf("region: level must be >= 0, got %d", r.Level)
	}
	if r.Size.Width == 0 || r.Size.Height == 0 {
		return fmt.Errorf("region: size must be > 0, got %dx%d", r.Size.Width, r.Size.Height)
	}
	return nil
}

// FractionalRegionBounds is a subpixel-precise region used by formats (MRXS)
// that preserve fractional tile offsets end-to-end.
type FractionalRegionBounds struct {
	X, Y, Width, Height float64
	Valid               bool
}

// TileRequest is the internal planning request passed to PrepareRequest.
type TileRequest struct {
	Level         int32
	RegionBounds  FractionalRegionBounds
}
