// Package tifffile implements the TIFF directory wrapper required by the
// Aperio SVS plug-in: classic and BigTIFF header/IFD parsing, tiled/strip
// tile access through a pool.HandlePool, and the OpenSlide-compatible
// quickhash. Classifying directories into pyramid levels and associated
// images is done by the aperio package, not here.
//
// Grounded on the teacher's impl/header.go (classic 32-bit TIFF parsing,
// little-endian/big-endian tag reads), extended here with the BigTIFF
// 8-byte-offset variant Aperio SVS requires.
package tifffile

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/Grescilla/fastslide-sub000/compression"
	"github.com/Grescilla/fastslide-sub000/ferror"
	"github.com/Grescilla/fastslide-sub000/photometric"
	"github.com/Grescilla/fastslide-sub000/planarconfig"
	"github.com/Grescilla/fastslide-sub000/tifftag"
)

// Directory is a single parsed IFD: geometry, codec parameters, and the
// handful of string tags quickhash needs.
type Directory struct {
	ByteOrder binary.ByteOrder
	BigTIFF   bool

	Width, Height int64

	SamplesPerPixel int
	BitsPerSample   []int
	Photometric     photometric.Interpretation
	Compression     compression.Type
	PlanarConfig    planarconfig.Type
	SubfileType     uint32

	RowsPerStrip    int64
	StripOffsets    []int64
	StripByteCounts []int64

	TileWidth, TileHeight int64
	TileOffsets           []int64
	TileByteCounts        []int64

	Strings map[tifftag.Tag]string

	nextOffset int64
}

// IsTiled reports whether this directory stores pixels as tiles rather
// than strips.
func (d Directory) IsTiled() bool { return len(d.TileOffsets) > 0 }

// TilesAcross/TilesDown report the tile grid shape for a tiled directory.
func (d Directory) TilesAcross() int64 { return ceilDiv(d.Width, d.TileWidth) }
func (d Directory) TilesDown() int64   { return ceilDiv(d.Height, d.TileHeight) }

func ceilDiv(a, b int64) int64 {
	if b == 0 {
		return 0
	}
	return (a + b - 1) / b
}

// classicMagic and bigMagic are the TIFF/BigTIFF version words following
// the 2-byte byte-order mark.
const (
	classicMagic = 42
	bigMagic     = 43
)

// readHeader reads the 8 (classic) or 16 (BigTIFF) byte TIFF file header
// and returns the byte order, whether it's BigTIFF, and the first IFD
// offset.
func readHeader(r io.ReaderAt) (bo binary.ByteOrder, big bool, firstIFD int64, err error) {
	hdr := make([]byte, 16)
	if _, err = r.ReadAt(hdr, 0); err != nil && err != io.EOF {
		return nil, false, 0, err
	}
	switch string(hdr[0:2]) {
	case "II":
		bo = binary.LittleEndian
	case "MM":
		bo = binary.BigEndian
	default:
		return nil, false, 0, ferror.New(ferror.InvalidArgument, "tifffile: bad byte-order mark")
	}
	magic := bo.Uint16(hdr[2:4])
	switch magic {
	case classicMagic:
		firstIFD = int64(bo.Uint32(hdr[4:8]))
		return bo, false, firstIFD, nil
	case bigMagic:
		// Bytes 4:6 = bytesize of offsets (always 8), 6:8 = constant 0.
		firstIFD = int64(bo.Uint64(hdr[8:16]))
		return bo, true, firstIFD, nil
	default:
		return nil, false, 0, ferror.Newf(ferror.InvalidArgument, "tifffile: unrecognized magic %d", magic)
	}
}

// ReadDirectory parses the IFD at offset, returning the directory and the
// offset of the next IFD (0 if this was the last one).
func ReadDirectory(r io.ReaderAt, bo binary.ByteOrder, big bool, offset int64) (Directory, error) {
	read := func(off int64, size int) ([]byte, error) {
		buf := make([]byte, size)
		_, err := r.ReadAt(buf, off)
		return buf, err
	}

	entrySize := 12
	countSize := 2
	offsetFieldSize := 4
	inlineOff := 8
	if big {
		entrySize = 20
		countSize = 8
		offsetFieldSize = 8
		inlineOff = 12
	}

	countRaw, err := read(offset, countSize)
	if err != nil {
		return Directory{}, ferror.Wrap(err, "tifffile.ReadDirectory.count")
	}
	var numEntries int64
	if big {
		numEntries = int64(bo.Uint64(countRaw))
	} else {
		numEntries = int64(bo.Uint16(countRaw))
	}

	entriesRaw, err := read(offset+int64(countSize), int(numEntries)*entrySize)
	if err != nil {
		return Directory{}, ferror.Wrap(err, "tifffile.ReadDirectory.entries")
	}

	d := Directory{
		ByteOrder:       bo,
		BigTIFF:         big,
		SamplesPerPixel: -1,
		Photometric:     photometric.Unknown,
		Compression:     compression.Unknown,
		PlanarConfig:    planarconfig.Unknown,
		Strings:         map[tifftag.Tag]string{},
	}

	valueOf := func(entry []byte, typeSize int) int64 {
		off := 8
		if big {
			off = 12
		}
		switch typeSize {
		case 2:
			return int64(bo.Uint16(entry[off:]))
		case 4:
			if big {
				return int64(bo.Uint32(entry[off:]))
			}
			return int64(bo.Uint32(entry[off:]))
		case 8:
			return int64(bo.Uint64(entry[off:]))
		}
		return 0
	}

	for i := int64(0); i < numEntries; i++ {
		entry := entriesRaw[i*int64(entrySize) : (i+1)*int64(entrySize)]
		tag := tifftag.Tag(bo.Uint16(entry[0:2]))
		typ := bo.Uint16(entry[2:4])
		var count int64
		if big {
			count = int64(bo.Uint64(entry[4:12]))
		} else {
			count = int64(bo.Uint32(entry[4:8]))
		}
		valOffset := valueOf(entry, offsetFieldSize)

		typeSize := tiffTypeSize(typ)
		inlineBytes := offsetFieldSize
		fitsInline := typeSize > 0 && typeSize*int(count) <= inlineBytes

		readShortArray := func() ([]int64, error) {
			if fitsInline {
				out := make([]int64, count)
				for j := int64(0); j < count; j++ {
					out[j] = int64(bo.Uint16(entry[inlineOff+int(j)*2:]))
				}
				return out, nil
			}
			buf, err := read(valOffset, int(count)*2)
			if err != nil {
				return nil, err
			}
			out := make([]int64, count)
			for j := int64(0); j < count; j++ {
				out[j] = int64(bo.Uint16(buf[j*2:]))
			}
			return out, nil
		}
		readLongArray := func() ([]int64, error) {
			longSize := 4
			if big && typ == 16 { // LONG8
				longSize = 8
			}
			if fitsInline {
				out := make([]int64, count)
				for j := int64(0); j < count; j++ {
					if longSize == 8 {
						out[j] = int64(bo.Uint64(entry[inlineOff+int(j)*8:]))
					} else {
						out[j] = int64(bo.Uint32(entry[inlineOff+int(j)*4:]))
					}
				}
				return out, nil
			}
			buf, err := read(valOffset, int(count)*longSize)
			if err != nil {
				return nil, err
			}
			out := make([]int64, count)
			for j := int64(0); j < count; j++ {
				if longSize == 8 {
					out[j] = int64(bo.Uint64(buf[j*8:]))
				} else {
					out[j] = int64(bo.Uint32(buf[j*4:]))
				}
			}
			return out, nil
		}
		readString := func() (string, error) {
			if fitsInline {
				return string(trimNul(entry[inlineOff : inlineOff+int(count)])), nil
			}
			buf, err := read(valOffset, int(count))
			if err != nil {
				return "", err
			}
			return string(trimNul(buf)), nil
		}

		switch tag {
		case tifftag.ImageWidth:
			d.Width = valOffset
		case tifftag.ImageLength:
			d.Height = valOffset
		case tifftag.NewSubfileType:
			d.SubfileType = uint32(valOffset)
		case tifftag.BitsPerSample:
			arr, err := readShortArray()
			if err != nil {
				return Directory{}, err
			}
			d.BitsPerSample = toIntSlice(arr)
		case tifftag.Compression:
			d.Compression = compression.Type(valOffset)
		case tifftag.PhotometricInterpretation:
			d.Photometric = photometric.Interpretation(valOffset)
		case tifftag.StripOffsets:
			d.StripOffsets, err = readLongArray()
			if err != nil {
				return Directory{}, err
			}
		case tifftag.SamplesPerPixel:
			d.SamplesPerPixel = int(valOffset)
		case tifftag.RowsPerStrip:
			d.RowsPerStrip = valOffset
		case tifftag.StripByteCounts:
			d.StripByteCounts, err = readLongArray()
			if err != nil {
				return Directory{}, err
			}
		case tifftag.PlanarConfiguration:
			d.PlanarConfig = planarconfig.Type(valOffset)
		case tifftag.TileWidth:
			d.TileWidth = valOffset
		case tifftag.TileLength:
			d.TileHeight = valOffset
		case tifftag.TileOffsets:
			d.TileOffsets, err = readLongArray()
			if err != nil {
				return Directory{}, err
			}
		case tifftag.TileByteCounts:
			d.TileByteCounts, err = readLongArray()
			if err != nil {
				return Directory{}, err
			}
		case tifftag.ImageDescription, tifftag.Make, tifftag.Model, tifftag.Software,
			tifftag.DateTime, tifftag.Artist, tifftag.HostComputer, tifftag.Copyright, tifftag.DocumentName:
			s, err := readString()
			if err != nil {
				return Directory{}, err
			}
			d.Strings[tag] = s
		}
	}

	nextOff := offset + int64(countSize) + int64(numEntries)*int64(entrySize)
	nextRaw, err := read(nextOff, offsetFieldSize)
	if err != nil {
		return Directory{}, ferror.Wrap(err, "tifffile.ReadDirectory.next")
	}
	if big {
		d.nextOffset = int64(bo.Uint64(nextRaw))
	} else {
		d.nextOffset = int64(bo.Uint32(nextRaw))
	}

	return d, nil
}

func trimNul(b []byte) []byte {
	for i, c := range b {
		if c == 0 {
			return b[:i]
		}
	}
	return b
}

func toIntSlice(in []int64) []int {
	out := make([]int, len(in))
	for i, v := range in {
		out[i] = int(v)
	}
	return out
}

// tiffTypeSize returns the byte width of one value of TIFF field type t
// (SHORT=3, LONG=4, LONG8=16, etc.) or 0 if unknown.
func tiffTypeSize(t uint16) int {
	switch t {
	case 1, 2, 6, 7: // BYTE, ASCII, SBYTE, UNDEFINED
		return 1
	case 3, 8: // SHORT, SSHORT
		return 2
	case 4, 9, 11: // LONG, SLONG, FLOAT
		return 4
	case 5, 10, 12, 16, 17: // RATIONAL, SRATIONAL, DOUBLE, LONG8, SLONG8
		return 8
	default:
		return 0
	}
}

func (d Directory) String() string {
	return fmt.Sprintf("Directory{%dx%d tiled=%v compression=%s photometric=%s}",
		d.Width, d.Height, d.IsTiled(), d.Compression, d.Photometric)
}
