// Package aperio implements the Aperio SVS (BigTIFF) slide-reader plug-in:
// directory classification into pyramid levels vs associated images, a
// plan builder producing non-overlapping TileReadOps, and a tile executor
// that decodes through the shared handle pool.
//
// Grounded on original_source/src/fastslide/readers/aperio/aperio.cpp.
package aperio

import (
	"fmt"
	"math"
	"sort"

	fastslide "github.com/Grescilla/fastslide-sub000"
	"github.com/Grescilla/fastslide-sub000/cache"
	"github.com/Grescilla/fastslide-sub000/compression"
	"github.com/Grescilla/fastslide-sub000/ferror"
	"github.com/Grescilla/fastslide-sub000/tifffile"
	"github.com/Grescilla/fastslide-sub000/tifftag"
)

// reducedSubfileTypeBit marks a directory as a reduced-resolution/pyramid
// image per the NewSubfileType tag (bit 0 of TIFF's standard flag set).
const reducedSubfileTypeBit = 1

// Reader implements fastslide.SlideReader for Aperio SVS files.
type Reader struct {
	path       string
	file       *tifffile.File
	cache      *cache.TileCache
	pyramid    []int // directory indices, sorted largest-first (level 0 = biggest)
	associated map[string]int
	props      fastslide.SlideProperties
}

// Open parses path as an Aperio SVS/BigTIFF file and classifies its
// directories into pyramid levels and associated images.
func Open(path string, tileCache *cache.TileCache) (*Reader, error) {
	f, err := tifffile.Open(path, 0)
	if err != nil {
		return nil, ferror.Wrap(err, "aperio.Open")
	}
	if tileCache == nil {
		tileCache = cache.Global()
	}
	r := &Reader{path: path, file: f, cache: tileCache, associated: map[string]int{}}
	if err := r.classifyDirectories(); err != nil {
		return nil, err
	}
	r.props = fastslide.SlideProperties{ScannerModel: "Aperio"}
	return r, nil
}

// classifyDirectories splits directories into tiled pyramid levels (sorted
// by descending area, level 0 = largest) and non-tiled associated images,
// named from ImageDescription or defaulted, per §4.9.
func (r *Reader) classifyDirectories() error {
	n := r.file.DirectoryCount()
	type candidate struct {
		idx  int
		area int64
	}
	var pyramid []candidate
	assocSeq := 0

	for i := 0; i < n; i++ {
		d, err := r.file.Directory(i)
		if err != nil {
			return err
		}
		if d.IsTiled() {
			pyramid = append(pyramid, candidate{idx: i, area: d.Width * d.Height})
			continue
		}
		name := d.Strings[tifftag.ImageDescription]
		if name == "" {
			name = defaultAssociatedName(assocSeq)
		}
		r.associated[name] = i
		assocSeq++
	}

	if len(pyramid) == 0 {
		return ferror.New(ferror.InvalidArgument, "aperio: no tiled (pyramid) directories found")
	}
	sort.Slice(pyramid, func(i, j int) bool { return pyramid[i].area > pyramid[j].area })
	r.pyramid = make([]int, len(pyramid))
	for i, c := range pyramid {
		r.pyramid[i] = c.idx
	}
	return nil
}

func defaultAssociatedName(seq int) string {
	if seq == 0 {
		return "thumbnail"
	}
	return fmt.Sprintf("unknown-%d", seq)
}

func (r *Reader) LevelCount() int32 { return int32(len(r.pyramid)) }

func (r *Reader) LevelInfo(level int32) (fastslide.LevelInfo, error) {
	if level < 0 || int(level) >= len(r.pyramid) {
		return fastslide.LevelInfo{}, ferror.Newf(ferror.NotFound, "aperio: level %d out of range", level)
	}
	d, err := r.file.Directory(r.pyramid[level])
	if err != nil {
		return fastslide.LevelInfo{}, err
	}
	base, err := r.file.Directory(r.pyramid[0])
	if err != nil {
		return fastslide.LevelInfo{}, err
	}
	wRatio := float64(base.Width) / float64(d.Width)
	hRatio := float64(base.Height) / float64(d.Height)
	downsample := geometricMean(wRatio, hRatio)
	return fastslide.LevelInfo{
		Dimensions:       fastslide.Dimensions{Width: uint32(d.Width), Height: uint32(d.Height)},
		DownsampleFactor: downsample,
	}, nil
}

func geometricMean(a, b float64) float64 {
	return math.Sqrt(a * b)
}

func (r *Reader) Properties() fastslide.SlideProperties { return r.props }

func (r *Reader) TileSize() fastslide.Dimensions {
	d, err := r.file.Directory(r.pyramid[0])
	if err != nil {
		return fastslide.Dimensions{}
	}
	return fastslide.Dimensions{Width: uint32(d.TileWidth), Height: uint32(d.TileHeight)}
}

func (r *Reader) QuickHash() (string, error) { return r.file.QuickHash(r.pyramid) }

func (r *Reader) AssociatedImages() ([]string, error) {
	names := make([]string, 0, len(r.associated))
	for name := range r.associated {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (r *Reader) ReadAssociatedImage(name string) (fastslide.Image, error) {
	idx, ok := r.associated[name]
	if !ok {
		return fastslide.Image{}, ferror.Newf(ferror.NotFound, "aperio: no associated image %q", name)
	}
	d, err := r.file.Directory(idx)
	if err != nil {
		return fastslide.Image{}, err
	}
	raw, err := r.file.ReadRaw(idx, 0)
	if err != nil {
		return fastslide.Image{}, err
	}
	if d.Compression != compression.None {
		return fastslide.Image{}, ferror.Newf(ferror.Unimplemented, "aperio: compressed associated image %q", name)
	}
	return fastslide.Image{
		Width: uint32(d.Width), Height: uint32(d.Height),
		Channels: uint32(d.SamplesPerPixel), DType: fastslide.Uint8, Planar: fastslide.Contig,
		Data: raw,
	}, nil
}

func (r *Reader) ReadRegion(region fastslide.RegionSpec) (fastslide.Image, error) {
	return fastslide.ReadRegionVia(r, region)
}

func (r *Reader) Close() error { return r.file.Close() }
