package tifffile

import (
	"bytes"
	"compress/zlib"
	"context"
	"io"
	"os"

	"github.com/Grescilla/fastslide-sub000/compression"
	"github.com/Grescilla/fastslide-sub000/ferror"
	"github.com/Grescilla/fastslide-sub000/photometric"
	"github.com/Grescilla/fastslide-sub000/pool"
)

// osHandle adapts *os.File to pool.Handle.
type osHandle struct{ f *os.File }

func (h *osHandle) Close() error { return h.f.Close() }

// File is the typed directory-traversal wrapper over a TIFF/BigTIFF file,
// reading tiles and strips through a bounded pool.HandlePool the way the
// original TIFFHandlePool coexists with libtiff's one-handle-per-thread
// constraint. Go's os.File is safe for concurrent ReadAt, but the pool is
// kept anyway: it bounds the number of concurrently open descriptors and
// gives every tile task its own handle lease, matching the shape callers
// of the original library expect.
type File struct {
	path        string
	pool        *pool.HandlePool
	directories []Directory
}

// Open parses every IFD in path up front (directory_count is cached after
// this first full walk, per §4.9) and creates a handle pool sized to
// poolSize (0 = hardware parallelism).
func Open(path string, poolSize int) (*File, error) {
	f := &File{path: path}
	f.pool = pool.New(poolSize, func() (pool.Handle, error) {
		osf, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		return &osHandle{f: osf}, nil
	})

	g, err := f.pool.Acquire(context.Background())
	if err != nil {
		return nil, ferror.Wrap(err, "tifffile.Open")
	}
	defer g.Release()
	r := g.Handle().(*osHandle).f

	bo, big, offset, err := readHeader(r)
	if err != nil {
		return nil, ferror.Wrap(err, "tifffile.Open.readHeader")
	}

	for offset != 0 {
		d, err := ReadDirectory(r, bo, big, offset)
		if err != nil {
			return nil, ferror.Wrap(err, "tifffile.Open.ReadDirectory")
		}
		f.directories = append(f.directories, d)
		offset = d.nextOffset
	}
	if len(f.directories) == 0 {
		return nil, ferror.New(ferror.InvalidArgument, "tifffile: no IFDs found")
	}
	return f, nil
}

// DirectoryCount reports how many IFDs this file contains.
func (f *File) DirectoryCount() int { return len(f.directories) }

// Directory returns the parsed IFD at index i.
func (f *File) Directory(i int) (Directory, error) {
	if i < 0 || i >= len(f.directories) {
		return Directory{}, ferror.Newf(ferror.NotFound, "tifffile: directory %d out of range", i)
	}
	return f.directories[i], nil
}

// ReadRaw returns the raw (still compressed) bytes of tile/strip index idx
// in directory dirIndex, used both by tile decode and by quickhash (which
// hashes raw bytes, never decoded pixels).
func (f *File) ReadRaw(dirIndex, idx int) ([]byte, error) {
	d, err := f.Directory(dirIndex)
	if err != nil {
		return nil, err
	}
	var offset, size int64
	if d.IsTiled() {
		if idx < 0 || idx >= len(d.TileOffsets) {
			return nil, ferror.Newf(ferror.NotFound, "tifffile: tile %d out of range", idx)
		}
		offset, size = d.TileOffsets[idx], d.TileByteCounts[idx]
	} else {
		if idx < 0 || idx >= len(d.StripOffsets) {
			return nil, ferror.Newf(ferror.NotFound, "tifffile: strip %d out of range", idx)
		}
		offset, size = d.StripOffsets[idx], d.StripByteCounts[idx]
	}
	if size == 0 {
		return nil, nil
	}

	g, err := f.pool.Acquire(context.Background())
	if err != nil {
		return nil, ferror.Wrap(err, "tifffile.ReadRaw.Acquire")
	}
	defer g.Release()
	r := g.Handle().(*osHandle).f

	buf := make([]byte, size)
	if _, err := r.ReadAt(buf, offset); err != nil {
		return nil, ferror.Wrap(err, "tifffile.ReadRaw.ReadAt")
	}
	return buf, nil
}

// ReadTile returns the sample bytes of tile (tileX, tileY) of directory
// dirIndex as they are stored, applying Deflate decompression when needed.
// It does no photometric conversion and does not interleave
// PlanarConfiguration=Separate data. Only Deflate and uncompressed data are
// handled here; JPEG-compressed Aperio tiles are routed through the codec
// package by the caller using the raw bytes from ReadRaw.
func (f *File) ReadTile(dirIndex int, tileX, tileY int64) ([]byte, int, int, error) {
	d, err := f.Directory(dirIndex)
	if err != nil {
		return nil, 0, 0, err
	}
	if !d.IsTiled() {
		return nil, 0, 0, ferror.New(ferror.FailedPrecondition, "tifffile: directory is not tiled")
	}
	idx := int(tileY*d.TilesAcross() + tileX)
	raw, err := f.ReadRaw(dirIndex, idx)
	if err != nil {
		return nil, 0, 0, err
	}

	switch d.Compression {
	case compression.None:
		return raw, int(d.TileWidth), int(d.TileHeight), nil
	case compression.Deflate, compressionOldDeflate:
		zr, err := zlib.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, 0, 0, ferror.Wrap(err, "tifffile.ReadTile.zlib")
		}
		defer zr.Close()
		data, err := io.ReadAll(zr)
		if err != nil {
			return nil, 0, 0, ferror.Wrap(err, "tifffile.ReadTile.zlib.read")
		}
		return data, int(d.TileWidth), int(d.TileHeight), nil
	default:
		return nil, 0, 0, ferror.Newf(ferror.Unimplemented, "tifffile: compression %s requires codec-level decode (raw bytes available via ReadRaw)", d.Compression)
	}
}

const compressionOldDeflate = compression.Type(32946)

// LowestResolutionDirectory returns the index of the pyramid-level
// directory with the smallest pixel area, used by quickhash.
func (f *File) LowestResolutionDirectory(pyramidDirs []int) int {
	best := pyramidDirs[0]
	bestArea := f.directories[best].Width * f.directories[best].Height
	for _, d := range pyramidDirs[1:] {
		area := f.directories[d].Width * f.directories[d].Height
		if area < bestArea {
			best, bestArea = d, area
		}
	}
	return best
}

// Close shuts down the handle pool.
func (f *File) Close() error { return f.pool.Close() }

// photometricChannels returns the expected channel count for a photometric
// interpretation, used when validating directory contents.
func photometricChannels(p photometric.Interpretation) int {
	switch p {
	case photometric.BlackIsZero, photometric.WhiteIsZero:
		return 1
	case photometric.RGB, photometric.YCbCr:
		return 3
	default:
		return 0
	}
}
