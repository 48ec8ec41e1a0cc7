package mrxs

import (
	"io"
	"os"

	"github.com/Grescilla/fastslide-sub000/binutil"
	"github.com/Grescilla/fastslide-sub000/ferror"
)

const (
	indexVersionString = "01.02"
	maxTileSize         = 100 * 1024 * 1024
)

// IndexReader holds an open Index.dat file plus the two root pointers
// (hierarchical and non-hierarchical) parsed from its header. Grounded on
// mrxs_index_reader.cpp.
type IndexReader struct {
	f                        *os.File
	hierarchicalRoot         int64
	nonhierarchicalRoot      int64
}

// OpenIndex opens Index.dat and reads its fixed header: a version string,
// the slide UUID (length taken from Slidedat.ini's SLIDE_ID, not from the
// file), and the hierarchical root pointer. nonhierarchicalRoot is that
// pointer value plus 4, per the on-disk layout documented in
// mrxs_index_reader.cpp.
func OpenIndex(path string, slideID string) (*IndexReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ferror.Wrap(err, "mrxs.OpenIndex")
	}

	var version [len(indexVersionString)]byte
	if _, err := io.ReadFull(f, version[:]); err != nil {
		f.Close()
		return nil, ferror.Wrap(err, "mrxs.OpenIndex: read version")
	}
	if string(version[:]) != indexVersionString {
		f.Close()
		return nil, ferror.Newf(ferror.InvalidArgument, "mrxs: unsupported Index.dat version %q", string(version[:]))
	}

	if _, err := io.CopyN(io.Discard, f, int64(len(slideID))); err != nil {
		f.Close()
		return nil, ferror.Wrap(err, "mrxs.OpenIndex: skip slide id")
	}

	hierRoot32, err := binutil.ReadLEInt32(f)
	if err != nil {
		f.Close()
		return nil, ferror.Wrap(err, "mrxs.OpenIndex: read hierarchical root")
	}
	hierRoot := int64(hierRoot32)

	return &IndexReader{
		f:                   f,
		hierarchicalRoot:    hierRoot,
		nonhierarchicalRoot: hierRoot + 4,
	}, nil
}

// Close releases the underlying file handle.
func (r *IndexReader) Close() error {
	return r.f.Close()
}

// ReadLevelTiles reads every MiraxTileRecord stored for one pyramid level,
// subdividing each stored camera image into its logical tiles. Grounded on
// mrxs_index_reader.cpp's ReadLevelTiles/SubdivideImage.
func (r *IndexReader) ReadLevelTiles(levelIndex int, info *SlideDataInfo) ([]MiraxTileRecord, error) {
	if _, err := r.f.Seek(r.hierarchicalRoot+4*int64(levelIndex), io.SeekStart); err != nil {
		return nil, err
	}
	levelBlockPtr, err := binutil.ReadLEInt32(r.f)
	if err != nil {
		return nil, err
	}
	if _, err := r.f.Seek(int64(levelBlockPtr), io.SeekStart); err != nil {
		return nil, err
	}

	sentinel, err := binutil.ReadLEInt32(r.f)
	if err != nil {
		return nil, err
	}
	if sentinel != 0 {
		return nil, ferror.Newf(ferror.InvalidArgument, "mrxs: level %d zoom-data sentinel not zero (%d)", levelIndex, sentinel)
	}

	dataPagesPtr, err := binutil.ReadLEInt32(r.f)
	if err != nil {
		return nil, err
	}

	params := info.LevelParams[levelIndex]
	zoomLevel := info.ZoomLevels[levelIndex]

	var tiles []MiraxTileRecord
	nextPage := int64(dataPagesPtr)
	for nextPage != 0 {
		if _, err := r.f.Seek(nextPage, io.SeekStart); err != nil {
			return nil, err
		}
		pageLength, err := binutil.ReadLEInt32(r.f)
		if err != nil {
			return nil, err
		}
		nextPagePtr, err := binutil.ReadLEInt32(r.f)
		if err != nil {
			return nil, err
		}

		for i := int32(0); i < pageLength; i++ {
			imageIndex, err := binutil.ReadLEInt32(r.f)
			if err != nil {
				return nil, err
			}
			dataOffset, err := binutil.ReadLEInt32(r.f)
			if err != nil {
				return nil, err
			}
			dataLength, err := binutil.ReadLEInt32(r.f)
			if err != nil {
				return nil, err
			}
			dataFileNumber, err := binutil.ReadLEInt32(r.f)
			if err != nil {
				return nil, err
			}

			if dataOffset < 0 {
				return nil, ferror.Newf(ferror.InvalidArgument, "mrxs: negative tile offset %d", dataOffset)
			}
			if dataLength <= 0 {
				return nil, ferror.Newf(ferror.InvalidArgument, "mrxs: non-positive tile length %d", dataLength)
			}
			if int64(dataLength) > maxTileSize {
				return nil, ferror.Newf(ferror.InvalidArgument, "mrxs: tile length %d exceeds max %d", dataLength, maxTileSize)
			}
			end := int64(dataOffset) + int64(dataLength)
			if end < 0 {
				return nil, ferror.Newf(ferror.InvalidArgument, "mrxs: tile offset+length overflow")
			}

			imageGridX := imageIndex % int32(info.ImagesX)
			imageGridY := imageIndex / int32(info.ImagesX)

			subdivided := subdivideImage(imageIndex, imageGridX, imageGridY, dataOffset, dataLength, dataFileNumber, params, zoomLevel, info)
			tiles = append(tiles, subdivided...)
		}

		nextPage = int64(nextPagePtr)
	}

	return tiles, nil
}

// subdivideImage splits one stored camera image into subtilesPerStoredImage
// x subtilesPerStoredImage logical tiles, attaching any per-camera-position
// gain. Grounded on mrxs_index_reader.cpp's SubdivideImage.
func subdivideImage(imageIndex, imageGridX, imageGridY, dataOffset, dataLength, dataFileNumber int32, params PyramidLevelParameters, zoomLevel SlideZoomLevel, info *SlideDataInfo) []MiraxTileRecord {
	subtiles := params.SubtilesPerStoredImage
	if subtiles < 1 {
		subtiles = 1
	}
	subW := zoomLevel.ImageWidth / subtiles
	subH := zoomLevel.ImageHeight / subtiles

	var out []MiraxTileRecord
	for sy := 0; sy < subtiles; sy++ {
		tileGridY := int(imageGridY) + sy*info.ImageDivisions
		if tileGridY >= info.ImagesY {
			break
		}
		for sx := 0; sx < subtiles; sx++ {
			tileGridX := int(imageGridX) + sx*info.ImageDivisions
			if tileGridX >= info.ImagesX {
				break
			}

			tile := MiraxTileRecord{
				ImageIndex:     imageIndex,
				Offset:         int64(dataOffset),
				Length:         int64(dataLength),
				DataFileNumber: dataFileNumber,
				X:              int32(tileGridX),
				Y:              int32(tileGridY),
				SubregionX:     subW * sx,
				SubregionY:     subH * sy,
				Gain:           1.0,
			}

			if len(info.CameraPositionGains) > 0 {
				cameraX := tileGridX / info.ImageDivisions
				cameraY := tileGridY / info.ImageDivisions
				positionsX := info.ImagesX / info.ImageDivisions
				idx := cameraY*positionsX + cameraX
				if idx >= 0 && idx < len(info.CameraPositionGains) {
					tile.Gain = info.CameraPositionGains[idx]
				}
			}

			out = append(out, tile)
		}
	}
	return out
}

// NonHierRecordData locates the raw bytes of one non-hierarchical record
// within a data file.
type NonHierRecordData struct {
	DataFilePath string
	Offset       int64
	Size         int64
}

// ReadNonHierRecord resolves record recordIndex (a flat index across all
// non-hierarchical layers) to its data-file location. Grounded on
// mrxs_index_reader.cpp's ReadNonHierRecord.
func (r *IndexReader) ReadNonHierRecord(recordIndex int, info *SlideDataInfo) (NonHierRecordData, error) {
	if _, err := r.f.Seek(r.nonhierarchicalRoot, io.SeekStart); err != nil {
		return NonHierRecordData{}, err
	}
	recordArrayPtr, err := binutil.ReadLEInt32(r.f)
	if err != nil {
		return NonHierRecordData{}, err
	}

	if _, err := r.f.Seek(int64(recordArrayPtr)+4*int64(recordIndex), io.SeekStart); err != nil {
		return NonHierRecordData{}, err
	}
	recordHeaderPtr, err := binutil.ReadLEInt32(r.f)
	if err != nil {
		return NonHierRecordData{}, err
	}

	if _, err := r.f.Seek(int64(recordHeaderPtr), io.SeekStart); err != nil {
		return NonHierRecordData{}, err
	}
	sentinel, err := binutil.ReadLEInt32(r.f)
	if err != nil {
		return NonHierRecordData{}, err
	}
	if sentinel != 0 {
		return NonHierRecordData{}, ferror.Newf(ferror.InvalidArgument, "mrxs: non-hier record sentinel not zero (%d)", sentinel)
	}

	dataPagePtr, err := binutil.ReadLEInt32(r.f)
	if err != nil {
		return NonHierRecordData{}, err
	}
	if _, err := r.f.Seek(int64(dataPagePtr), io.SeekStart); err != nil {
		return NonHierRecordData{}, err
	}

	pageLength, err := binutil.ReadLEInt32(r.f)
	if err != nil {
		return NonHierRecordData{}, err
	}
	if pageLength < 1 {
		return NonHierRecordData{}, ferror.Newf(ferror.InvalidArgument, "mrxs: non-hier page length %d < 1", pageLength)
	}

	// Skip next_page_pointer + 2 reserved fields.
	if _, err := io.CopyN(io.Discard, r.f, 12); err != nil {
		return NonHierRecordData{}, err
	}

	dataOffset, err := binutil.ReadLEInt32(r.f)
	if err != nil {
		return NonHierRecordData{}, err
	}
	dataSize, err := binutil.ReadLEInt32(r.f)
	if err != nil {
		return NonHierRecordData{}, err
	}
	datafileNumber, err := binutil.ReadLEInt32(r.f)
	if err != nil {
		return NonHierRecordData{}, err
	}
	if int(datafileNumber) < 0 || int(datafileNumber) >= len(info.DataFilePaths) {
		return NonHierRecordData{}, ferror.Newf(ferror.InvalidArgument, "mrxs: non-hier data file number %d out of range", datafileNumber)
	}

	return NonHierRecordData{
		DataFilePath: info.DataFilePaths[datafileNumber],
		Offset:       int64(dataOffset),
		Size:         int64(dataSize),
	}, nil
}
