package mrxs

import (
	"fmt"
	"math"

	"github.com/Grescilla/fastslide-sub000/ferror"
)

// Section/key names used by Slidedat.ini, grounded on the constant strings
// in mrxs.cpp's ParseTiledLayers/ParseNonTiledLayers/ReadSlidedatIni.
const (
	sectionGeneral      = "GENERAL"
	sectionHierarchical = "HIERARCHICAL"
	sectionDataFile     = "DATAFILE"

	keySlideID         = "SLIDE_ID"
	keyImageNumberX    = "IMAGENUMBER_X"
	keyImageNumberY    = "IMAGENUMBER_Y"
	keyObjectiveMag    = "OBJECTIVE_MAGNIFICATION"
	keyImageDivisions  = "CameraImageDivisionsPerSide"
	keyHierCount       = "HIER_COUNT"
	keyHierNameFmt     = "HIER_%d_NAME"
	keyHierCountFmt    = "HIER_%d_COUNT"
	keyHierValSecFmt   = "HIER_%d_VAL_%d_SECTION"
	keyIndexFile       = "INDEXFILE"
	keyNonHierCount    = "NONHIER_COUNT"
	keyNonHierNameFmt  = "NONHIER_%d_NAME"
	keyNonHierCountFmt = "NONHIER_%d_COUNT"
	keyNonHierValFmt   = "NONHIER_%d_VAL_%d"
	keyNonHierValSec   = "NONHIER_%d_VAL_%d_SECTION"

	keyOverlapX     = "OVERLAP_X"
	keyOverlapY     = "OVERLAP_Y"
	keyMppX         = "MICROMETER_PER_PIXEL_X"
	keyMppY         = "MICROMETER_PER_PIXEL_Y"
	keyImageFormat  = "IMAGE_FORMAT"
	keyFillColorBGR = "IMAGE_FILL_COLOR_BGR"
	keyDigitizerW   = "DIGITIZER_WIDTH"
	keyDigitizerH   = "DIGITIZER_HEIGHT"
	keyConcatFactor = "IMAGE_CONCAT_FACTOR"

	keyFileCount = "FILE_COUNT"
	keyFileFmt   = "FILE_%d"

	slideZoomLevelName = "Slide zoom level"

	positionBufferLayer  = "VIMSLIDE_POSITION_BUFFER"
	stitchingLayerCompat = "StitchingIntensityLayer"
)

// SlideZoomLevel is one row of the "Slide zoom level" hierarchy: a single
// pyramid level's raw geometry as recorded in Slidedat.ini, before the
// cumulative concatenation-factor math of CalculateLevelParams is applied.
type SlideZoomLevel struct {
	SectionName         string
	ImageWidth          int
	ImageHeight         int
	XOverlapPixels       float64
	YOverlapPixels       float64
	MicronsPerPixelX     float64
	MicronsPerPixelY     float64
	ImageFormat          string
	BackgroundColorBGR   int64
	DownsampleExponent   int
}

// PyramidLevelParameters is the derived, per-level layout used by the plan
// builder and spatial index: the logical tile step, subdivision count, and
// concatenation factor accumulated over this level and every finer
// (lower-index) level.
type PyramidLevelParameters struct {
	ConcatenationFactor     int
	CameraPositionsPerImage int
	GridDivisor             int
	SubtilesPerStoredImage  int
	LogicalTileWidth        int
	LogicalTileHeight       int
	ImagesPerCameraPosition int
	HorizontalTileStep      float64
	VerticalTileStep        float64
}

// MiraxTileRecord is one physical tile entry read from Index.dat (possibly
// subdivided from one stored camera image into several logical tiles).
type MiraxTileRecord struct {
	ImageIndex     int32
	Offset         int64
	Length         int64
	DataFileNumber int32
	X, Y           int32 // logical tile grid coordinates
	SubregionX     int
	SubregionY     int
	Gain           float32
}

// NonHierarchicalRecord is one record within a non-hierarchical layer
// (associated data: label/macro images, the camera-position buffer, ...).
type NonHierarchicalRecord struct {
	LayerName   string
	ValueName   string
	SectionName string
	RecordIndex int
	LayerIndex  int
}

// NonHierarchicalLayer groups the records that belong under one
// NONHIER_%d_NAME entry.
type NonHierarchicalLayer struct {
	Name    string
	Records []NonHierarchicalRecord
}

// SlideDataInfo is the fully parsed Slidedat.ini plus camera-position and
// non-hierarchical-layer metadata: everything the index reader, spatial
// index, and plan builder need about one MRXS slide.
type SlideDataInfo struct {
	SlideID               string
	ImagesX, ImagesY      int
	ObjectiveMagnification float64
	ImageDivisions        int

	ZoomLevels  []SlideZoomLevel
	LevelParams []PyramidLevelParameters

	IndexFileName  string
	DataFilePaths  []string

	NonHierLayers []NonHierarchicalLayer

	PositionLayerName           string
	PositionLayerRecordIndex    int
	PositionLayerCompressed     bool
	FoundPositionLayer          bool
	UsingSyntheticPositions     bool
	CameraPositions             []int32 // flat (x, y) pairs, level-0 scale
	CameraPositionGains         []float32
}

// ReadSlidedatIni parses Slidedat.ini into a SlideDataInfo, replicating
// ReadSlidedatIni/ParseTiledLayers/ParseNonTiledLayers from mrxs.cpp.
func ReadSlidedatIni(ini *IniFile) (*SlideDataInfo, error) {
	info := &SlideDataInfo{UsingSyntheticPositions: true}

	slideID, err := ini.GetString(sectionGeneral, keySlideID)
	if err != nil {
		return nil, err
	}
	info.SlideID = slideID

	imagesX, err := ini.GetInt(sectionGeneral, keyImageNumberX)
	if err != nil {
		return nil, err
	}
	imagesY, err := ini.GetInt(sectionGeneral, keyImageNumberY)
	if err != nil {
		return nil, err
	}
	info.ImagesX, info.ImagesY = imagesX, imagesY

	if mag, err := ini.GetFloat(sectionGeneral, keyObjectiveMag); err == nil {
		info.ObjectiveMagnification = mag
	}

	info.ImageDivisions = 1
	if div, err := ini.GetInt(sectionGeneral, keyImageDivisions); err == nil && div > 0 {
		info.ImageDivisions = div
	}

	if err := parseTiledLayers(ini, info); err != nil {
		return nil, err
	}
	if err := parseDataFiles(ini, info); err != nil {
		return nil, err
	}
	if err := parseNonTiledLayers(ini, info); err != nil {
		return nil, err
	}

	info.LevelParams = CalculateLevelParams(info.ZoomLevels, info.ImageDivisions)
	return info, nil
}

// parseTiledLayers locates the "Slide zoom level" hierarchy and reads each
// of its HIER_%d_VAL_%d_SECTION entries as one SlideZoomLevel, in the order
// they appear (level 0 is the highest-resolution level).
func parseTiledLayers(ini *IniFile, info *SlideDataInfo) error {
	hierCount, err := ini.GetInt(sectionHierarchical, keyHierCount)
	if err != nil {
		return err
	}

	zoomHierIndex := -1
	for h := 0; h < hierCount; h++ {
		name, err := ini.GetString(sectionHierarchical, fmt.Sprintf(keyHierNameFmt, h))
		if err != nil {
			continue
		}
		if name == slideZoomLevelName {
			zoomHierIndex = h
			break
		}
	}
	if zoomHierIndex < 0 {
		return ferror.Newf(ferror.NotFound, "mrxs: %q hierarchy not found in Slidedat.ini", slideZoomLevelName)
	}

	levelCount, err := ini.GetInt(sectionHierarchical, fmt.Sprintf(keyHierCountFmt, zoomHierIndex))
	if err != nil {
		return err
	}

	levels := make([]SlideZoomLevel, 0, levelCount)
	for lvl := 0; lvl < levelCount; lvl++ {
		section, err := ini.GetString(sectionHierarchical, fmt.Sprintf(keyHierValSecFmt, zoomHierIndex, lvl))
		if err != nil {
			return err
		}

		zl := SlideZoomLevel{SectionName: section}

		w, err := ini.GetInt(section, keyDigitizerW)
		if err != nil {
			return err
		}
		h, err := ini.GetInt(section, keyDigitizerH)
		if err != nil {
			return err
		}
		zl.ImageWidth, zl.ImageHeight = w, h

		if ox, err := ini.GetFloat(section, keyOverlapX); err == nil {
			zl.XOverlapPixels = ox
		}
		if oy, err := ini.GetFloat(section, keyOverlapY); err == nil {
			zl.YOverlapPixels = oy
		}
		if mx, err := ini.GetFloat(section, keyMppX); err == nil {
			zl.MicronsPerPixelX = mx
		}
		if my, err := ini.GetFloat(section, keyMppY); err == nil {
			zl.MicronsPerPixelY = my
		}

		format, err := ini.GetString(section, keyImageFormat)
		if err != nil {
			return err
		}
		zl.ImageFormat = format

		zl.BackgroundColorBGR = 0xFFFFFFFF
		if bg, err := ini.GetInt(section, keyFillColorBGR); err == nil {
			zl.BackgroundColorBGR = int64(bg)
		}

		concat := 0
		if cf, err := ini.GetInt(section, keyConcatFactor); err == nil {
			concat = cf
		}
		zl.DownsampleExponent = concat

		levels = append(levels, zl)
	}
	info.ZoomLevels = levels

	idxFile, err := ini.GetString(sectionHierarchical, keyIndexFile)
	if err != nil {
		return err
	}
	info.IndexFileName = idxFile
	return nil
}

func parseDataFiles(ini *IniFile, info *SlideDataInfo) error {
	count, err := ini.GetInt(sectionDataFile, keyFileCount)
	if err != nil {
		return err
	}
	paths := make([]string, 0, count)
	for i := 0; i < count; i++ {
		p, err := ini.GetString(sectionDataFile, fmt.Sprintf(keyFileFmt, i))
		if err != nil {
			return err
		}
		paths = append(paths, p)
	}
	info.DataFilePaths = paths
	return nil
}

// parseNonTiledLayers reads every NONHIER_* layer and its records, and
// locates whichever layer carries the camera-position buffer (if any).
// Absence of NONHIER_COUNT entirely is valid for older slides: it just
// means synthetic (grid-derived) tile positions must be used.
func parseNonTiledLayers(ini *IniFile, info *SlideDataInfo) error {
	count, err := ini.GetInt(sectionHierarchical, keyNonHierCount)
	if err != nil {
		info.UsingSyntheticPositions = true
		return nil
	}

	recordOffset := 0
	foundPosition := false
	layers := make([]NonHierarchicalLayer, 0, count)
	for l := 0; l < count; l++ {
		name, err := ini.GetString(sectionHierarchical, fmt.Sprintf(keyNonHierNameFmt, l))
		if err != nil {
			return err
		}
		layerCount, err := ini.GetInt(sectionHierarchical, fmt.Sprintf(keyNonHierCountFmt, l))
		if err != nil {
			return err
		}

		layer := NonHierarchicalLayer{Name: name}
		for j := 0; j < layerCount; j++ {
			rec := NonHierarchicalRecord{
				LayerName:   name,
				RecordIndex: recordOffset + j,
				LayerIndex:  j,
			}
			if v, err := ini.GetString(sectionHierarchical, fmt.Sprintf(keyNonHierValFmt, l, j)); err == nil {
				rec.ValueName = v
			}
			if s, err := ini.GetString(sectionHierarchical, fmt.Sprintf(keyNonHierValSec, l, j)); err == nil {
				rec.SectionName = s
			}
			layer.Records = append(layer.Records, rec)
		}
		layers = append(layers, layer)

		switch name {
		case positionBufferLayer:
			info.PositionLayerName = name
			info.PositionLayerRecordIndex = recordOffset
			info.PositionLayerCompressed = false
			foundPosition = true
		case stitchingLayerCompat:
			info.PositionLayerName = name
			info.PositionLayerRecordIndex = recordOffset
			info.PositionLayerCompressed = true
			foundPosition = true
		}

		recordOffset += layerCount
	}

	info.NonHierLayers = layers
	info.FoundPositionLayer = foundPosition
	info.UsingSyntheticPositions = !foundPosition
	return nil
}

// CalculateLevelParams derives per-level tiling geometry from the raw
// zoom-level rows, accumulating each level's downsample exponent into a
// running concatenation factor. Verbatim port of mrxs.cpp's
// CalculateLevelParams.
func CalculateLevelParams(levels []SlideZoomLevel, imageDivisions int) []PyramidLevelParameters {
	out := make([]PyramidLevelParameters, len(levels))
	accumulated := 0
	for i, zl := range levels {
		accumulated += zl.DownsampleExponent
		concat := 1 << accumulated

		camPerImage := concat / imageDivisions
		if camPerImage < 1 {
			camPerImage = 1
		}
		gridDivisor := concat
		if imageDivisions < gridDivisor {
			gridDivisor = imageDivisions
		}
		subtiles := camPerImage

		imgPerCamPos := imageDivisions / concat
		if imgPerCamPos < 1 {
			imgPerCamPos = 1
		}

		logicalW := zl.ImageWidth / subtiles
		logicalH := zl.ImageHeight / subtiles

		hStep := float64(logicalW) - zl.XOverlapPixels/float64(imgPerCamPos)
		vStep := float64(logicalH) - zl.YOverlapPixels/float64(imgPerCamPos)

		out[i] = PyramidLevelParameters{
			ConcatenationFactor:     concat,
			CameraPositionsPerImage: camPerImage,
			GridDivisor:             gridDivisor,
			SubtilesPerStoredImage:  subtiles,
			LogicalTileWidth:        logicalW,
			LogicalTileHeight:       logicalH,
			ImagesPerCameraPosition: imgPerCamPos,
			HorizontalTileStep:      hStep,
			VerticalTileStep:        vStep,
		}
	}
	return out
}

// GetLevelInfo computes a level's pixel dimensions by summing level-0 image
// widths/heights across the grid, subtracting overlap at non-division
// boundaries, then dividing by the level's concatenation factor relative to
// level 0. Verbatim port of mrxs.cpp's GetLevelInfo.
func GetLevelInfo(info *SlideDataInfo, level int) (width, height int) {
	level0 := info.ZoomLevels[0]
	params := info.LevelParams
	downsampleFactor := float64(params[level].ConcatenationFactor) / float64(params[0].ConcatenationFactor)

	var baseW float64
	for i := 0; i < info.ImagesX; i++ {
		if (i%info.ImageDivisions != info.ImageDivisions-1) || i == info.ImagesX-1 {
			baseW += float64(level0.ImageWidth)
		} else {
			baseW += float64(level0.ImageWidth) - math.Ceil(level0.XOverlapPixels)
		}
	}
	var baseH float64
	for i := 0; i < info.ImagesY; i++ {
		if (i%info.ImageDivisions != info.ImageDivisions-1) || i == info.ImagesY-1 {
			baseH += float64(level0.ImageHeight)
		} else {
			baseH += float64(level0.ImageHeight) - math.Ceil(level0.YOverlapPixels)
		}
	}

	width = int(baseW / downsampleFactor)
	height = int(baseH / downsampleFactor)
	return
}
