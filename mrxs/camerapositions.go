package mrxs

import (
	"bytes"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/Grescilla/fastslide-sub000/binutil"
	"github.com/Grescilla/fastslide-sub000/ferror"
)

// zlibMagic2 is the 2-byte zlib "default compression" header MRXS uses for
// the gain-metadata buffer (and, separately, for associated-data payloads).
var zlibMagic2 = [2]byte{0x78, 0x9C}

// zlibMagic3 is the 3-byte magic (zlib header + first deflate byte) the
// original checks specifically before decompressing the StitchingIntensity
// position buffer.
var zlibMagic3 = [3]byte{0x78, 0x9C, 0xED}

// ReadCameraPositions loads the true per-tile camera stage coordinates from
// the non-hierarchical position-buffer layer, when one is present. It is a
// best-effort enrichment: info.UsingSyntheticPositions is already false on
// entry when parseNonTiledLayers found a position layer, and when this
// returns an error the caller (Open) sets it back to true so grid-derived
// positions are used. Ports
// mrxs.cpp's ReadCameraPositions, including its two quirks: the gain-buffer
// magic check is 2 bytes regardless of the compressed flag, while the
// position-buffer magic check is 3 bytes and only applies when
// PositionLayerCompressed (StitchingIntensityLayer).
func ReadCameraPositions(dirname string, indexPath string, info *SlideDataInfo) error {
	if info.UsingSyntheticPositions || !info.FoundPositionLayer {
		return nil
	}

	f, err := os.Open(indexPath)
	if err != nil {
		return ferror.Wrap(err, "mrxs.ReadCameraPositions: open index")
	}
	defer f.Close()

	// hier_root/nonhier_root here are FILE OFFSETS within the header
	// (version + slide_id), not pointer values read from the file — this
	// intentionally differs from IndexReader's header parsing, which reads
	// an actual stored pointer. Both are faithful to the original's two
	// independent computations of these names.
	hierRoot := int64(len(indexVersionString) + len(info.SlideID))
	nonhierRoot := hierRoot + 4

	if _, err := f.Seek(nonhierRoot, io.SeekStart); err != nil {
		return ferror.Wrap(err, "mrxs.ReadCameraPositions: seek nonhier root")
	}
	recordArrayPtr, err := binutil.ReadLEInt32(f)
	if err != nil {
		return ferror.Wrap(err, "mrxs.ReadCameraPositions: read record array pointer")
	}

	recordPtrPos := int64(recordArrayPtr) + 4*int64(info.PositionLayerRecordIndex)
	if _, err := f.Seek(recordPtrPos, io.SeekStart); err != nil {
		return ferror.Wrap(err, "mrxs.ReadCameraPositions: seek record pointer")
	}
	recordHeaderPtr, err := binutil.ReadLEInt32(f)
	if err != nil {
		return err
	}

	if _, err := f.Seek(int64(recordHeaderPtr), io.SeekStart); err != nil {
		return err
	}
	zero, err := binutil.ReadLEInt32(f)
	if err != nil {
		return err
	}
	if zero != 0 {
		return ferror.Newf(ferror.InvalidArgument, "mrxs: position record header sentinel not zero (%d)", zero)
	}

	dataPtr, err := binutil.ReadLEInt32(f)
	if err != nil {
		return err
	}
	if _, err := f.Seek(int64(dataPtr), io.SeekStart); err != nil {
		return err
	}

	pageLen, err := binutil.ReadLEInt32(f)
	if err != nil {
		return err
	}
	if pageLen < 1 {
		return ferror.Newf(ferror.InvalidArgument, "mrxs: position data page length %d < 1", pageLen)
	}

	// Skip next_page_pointer + 2 reserved fields.
	if _, err := io.CopyN(io.Discard, f, 12); err != nil {
		return err
	}

	offset, err := binutil.ReadLEInt32(f)
	if err != nil {
		return err
	}
	size, err := binutil.ReadLEInt32(f)
	if err != nil {
		return err
	}
	fileno, err := binutil.ReadLEInt32(f)
	if err != nil {
		return err
	}
	if int(fileno) < 0 || int(fileno) >= len(info.DataFilePaths) {
		return ferror.Newf(ferror.InvalidArgument, "mrxs: position data file number %d out of range", fileno)
	}

	var gainOffset, gainSize, gainFileno int32
	haveGains := false
	if pageLen >= 2 {
		if _, err := io.CopyN(io.Discard, f, 8); err != nil {
			return err
		}
		gainOffset, err = binutil.ReadLEInt32(f)
		if err != nil {
			return err
		}
		gainSize, err = binutil.ReadLEInt32(f)
		if err != nil {
			return err
		}
		gainFileno, err = binutil.ReadLEInt32(f)
		if err != nil {
			return err
		}
		if int(gainFileno) < 0 || int(gainFileno) >= len(info.DataFilePaths) {
			return ferror.Newf(ferror.InvalidArgument, "mrxs: gain data file number %d out of range", gainFileno)
		}
		haveGains = true
	}

	positionsX := info.ImagesX / info.ImageDivisions
	positionsY := info.ImagesY / info.ImageDivisions

	if haveGains {
		raw, err := readFileRange(filepath.Join(dirname, info.DataFilePaths[gainFileno]), int64(gainOffset), int64(gainSize))
		if err != nil {
			return err
		}
		if len(raw) >= 2 && raw[0] == zlibMagic2[0] && raw[1] == zlibMagic2[1] {
			raw, err = binutil.InflateAll(raw)
			if err != nil {
				return err
			}
		}
		expected := 4 * positionsX * positionsY
		if len(raw) != expected {
			return ferror.Newf(ferror.InvalidArgument, "mrxs: gain buffer size %d != expected %d", len(raw), expected)
		}
		gains := make([]float32, positionsX*positionsY)
		if err := readFloat32LE(raw, gains); err != nil {
			return err
		}
		info.CameraPositionGains = gains
	}

	raw, err := readFileRange(filepath.Join(dirname, info.DataFilePaths[fileno]), int64(offset), int64(size))
	if err != nil {
		return err
	}

	if info.PositionLayerCompressed {
		if len(raw) >= 3 && raw[0] == zlibMagic3[0] && raw[1] == zlibMagic3[1] && raw[2] == zlibMagic3[2] {
			expected := 9 * positionsX * positionsY
			inflated, err := binutil.InflateAll(raw)
			if err != nil {
				return err
			}
			if len(inflated) != expected {
				return ferror.Newf(ferror.InvalidArgument, "mrxs: position buffer size %d != expected %d", len(inflated), expected)
			}
			raw = inflated
		}
	}

	nPositions := positionsX * positionsY
	expectedSize := 9 * nPositions
	if len(raw) != expectedSize {
		return ferror.Newf(ferror.InvalidArgument, "mrxs: position buffer size %d != expected %d", len(raw), expectedSize)
	}

	level0Concat := 1 << info.ZoomLevels[0].DownsampleExponent
	positions := make([]int32, 0, nPositions*2)
	r := bytes.NewReader(raw)
	for i := 0; i < nPositions; i++ {
		var rec [9]byte
		if _, err := io.ReadFull(r, rec[:]); err != nil {
			return err
		}
		flag := rec[0]
		_ = flag // flag&0xFE nonzero is a non-fatal data quirk, not validated further
		x := int32(rec[1]) | int32(rec[2])<<8 | int32(rec[3])<<16 | int32(rec[4])<<24
		y := int32(rec[5]) | int32(rec[6])<<8 | int32(rec[7])<<16 | int32(rec[8])<<24
		positions = append(positions, x*int32(level0Concat), y*int32(level0Concat))
	}

	info.CameraPositions = positions
	info.UsingSyntheticPositions = false
	return nil
}

func readFileRange(path string, offset, size int64) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ferror.Wrap(err, "mrxs: open data file")
	}
	defer f.Close()
	buf := make([]byte, size)
	if _, err := f.ReadAt(buf, offset); err != nil {
		return nil, ferror.Wrap(err, "mrxs: read data file range")
	}
	return buf, nil
}

func readFloat32LE(data []byte, out []float32) error {
	if len(data) != 4*len(out) {
		return ferror.Newf(ferror.InvalidArgument, "mrxs: float32 buffer length mismatch")
	}
	for i := range out {
		bits := uint32(data[i*4]) | uint32(data[i*4+1])<<8 | uint32(data[i*4+2])<<16 | uint32(data[i*4+3])<<24
		out[i] = math.Float32frombits(bits)
	}
	return nil
}
