// Package mrxs implements the 3DHISTECH MRXS slide-reader plug-in: the INI
// metadata parser, the Index.dat binary index reader, the grid-hash
// spatial index, the plan builder, and the parallel tile executor.
//
// Grounded file-by-file on original_source/src/fastslide/readers/mrxs/*.cpp
// (see DESIGN.md).
package mrxs

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	fastslide "github.com/Grescilla/fastslide-sub000"
	"github.com/Grescilla/fastslide-sub000/binutil"
	"github.com/Grescilla/fastslide-sub000/cache"
	"github.com/Grescilla/fastslide-sub000/ferror"
)

// Reader implements fastslide.SlideReader for 3DHISTECH MRXS slides: a
// <slide>.mrxs descriptor file paired with a <slide>/ directory holding
// Slidedat.ini, Index.dat, and one or more Dat_*.dat tile-data files.
type Reader struct {
	path      string // the .mrxs descriptor path
	dirname   string // the paired <slide>/ directory
	indexPath string

	info  *SlideDataInfo
	index *IndexReader
	cache *cache.TileCache
	props fastslide.SlideProperties
	tile  fastslide.Dimensions

	levelMu     sync.Mutex
	levelTiles  map[int][]MiraxTileRecord
	spatialIdxs map[int]*MrxsSpatialIndex
}

// Open parses the .mrxs descriptor at path, loads its paired Slidedat.ini
// and Index.dat, and reads camera positions when available.
func Open(path string, tileCache *cache.TileCache) (*Reader, error) {
	dirname := strings.TrimSuffix(path, filepath.Ext(path))
	slidedatPath := filepath.Join(dirname, "Slidedat.ini")

	iniFile, err := LoadIniFile(slidedatPath)
	if err != nil {
		return nil, ferror.Wrap(err, "mrxs.Open")
	}
	info, err := ReadSlidedatIni(iniFile)
	if err != nil {
		return nil, ferror.Wrap(err, "mrxs.Open")
	}

	indexPath := filepath.Join(dirname, info.IndexFileName)
	idx, err := OpenIndex(indexPath, info.SlideID)
	if err != nil {
		return nil, ferror.Wrap(err, "mrxs.Open")
	}

	if err := ReadCameraPositions(dirname, indexPath, info); err != nil {
		// Best-effort: fall back to synthetic grid positions.
		info.UsingSyntheticPositions = true
	}

	if tileCache == nil {
		tileCache = cache.Global()
	}

	r := &Reader{
		path: path, dirname: dirname, indexPath: indexPath,
		info: info, index: idx, cache: tileCache,
		levelTiles:  map[int][]MiraxTileRecord{},
		spatialIdxs: map[int]*MrxsSpatialIndex{},
	}

	level0 := info.ZoomLevels[0]
	bounds := r.computeBounds()
	r.props = fastslide.SlideProperties{
		MPPX: level0.MicronsPerPixelX, MPPY: level0.MicronsPerPixelY,
		ObjectiveMagnification: info.ObjectiveMagnification,
		ScannerModel:           "3DHISTECH",
		Bounds:                 bounds,
	}
	r.tile = fastslide.Dimensions{Width: uint32(level0.ImageWidth), Height: uint32(level0.ImageHeight)}

	return r, nil
}

func (r *Reader) computeBounds() fastslide.Bounds {
	tiles, err := r.tilesForLevel(0)
	if err != nil {
		return fastslide.Bounds{}
	}
	w, h := GetLevelInfo(r.info, 0)
	b := CalculateBounds(tiles, r.info.LevelParams[0], r.info, int64(w), int64(h))
	if !b.Valid {
		return fastslide.Bounds{}
	}
	return fastslide.Bounds{X: uint32(b.X), Y: uint32(b.Y), Width: uint32(b.Width), Height: uint32(b.Height), Valid: true}
}

// tilesForLevel loads (and caches) the level's MiraxTileRecords.
func (r *Reader) tilesForLevel(level int) ([]MiraxTileRecord, error) {
	r.levelMu.Lock()
	defer r.levelMu.Unlock()
	if t, ok := r.levelTiles[level]; ok {
		return t, nil
	}
	tiles, err := r.index.ReadLevelTiles(level, r.info)
	if err != nil {
		return nil, err
	}
	r.levelTiles[level] = tiles
	return tiles, nil
}

// spatialIndexForLevel lazily builds (and caches) a level's spatial index.
func (r *Reader) spatialIndexForLevel(level int) (*MrxsSpatialIndex, error) {
	r.levelMu.Lock()
	if idx, ok := r.spatialIdxs[level]; ok {
		r.levelMu.Unlock()
		return idx, nil
	}
	r.levelMu.Unlock()

	tiles, err := r.tilesForLevel(level)
	if err != nil {
		return nil, err
	}
	idx, err := BuildSpatialIndex(tiles, r.info.LevelParams[level], level, r.info)
	if err != nil {
		return nil, err
	}

	r.levelMu.Lock()
	r.spatialIdxs[level] = idx
	r.levelMu.Unlock()
	return idx, nil
}

func (r *Reader) LevelCount() int32 { return int32(len(r.info.LevelParams)) }

func (r *Reader) LevelInfo(level int32) (fastslide.LevelInfo, error) {
	if level < 0 || int(level) >= len(r.info.LevelParams) {
		return fastslide.LevelInfo{}, ferror.Newf(ferror.NotFound, "mrxs: level %d out of range", level)
	}
	w, h := GetLevelInfo(r.info, int(level))
	downsample := float64(r.info.LevelParams[level].ConcatenationFactor) / float64(r.info.LevelParams[0].ConcatenationFactor)
	return fastslide.LevelInfo{
		Dimensions:       fastslide.Dimensions{Width: uint32(w), Height: uint32(h)},
		DownsampleFactor: downsample,
	}, nil
}

func (r *Reader) Properties() fastslide.SlideProperties { return r.props }

func (r *Reader) TileSize() fastslide.Dimensions { return r.tile }

// QuickHash hashes the whole Slidedat.ini plus the raw compressed bytes of
// every unique stored image at the lowest-resolution level, deduplicated
// by (data_file_number, offset) so a camera image shared by several
// subdivided tiles is only hashed once — matching OpenSlide's MIRAX
// quickhash. Distinct from Aperio's tag-framed quickhash: no property
// framing step here. Grounded on mrxs.cpp's GetQuickHash.
func (r *Reader) QuickHash() (string, error) {
	b := binutil.NewQuickHashBuilder()

	slidedatPath := filepath.Join(r.dirname, "Slidedat.ini")
	raw, err := os.ReadFile(slidedatPath)
	if err != nil {
		return "", ferror.Wrap(err, "mrxs.QuickHash")
	}
	b.Write(raw)

	lowestLevel := len(r.info.LevelParams) - 1
	tiles, err := r.tilesForLevel(lowestLevel)
	if err != nil {
		return "", err
	}

	type key struct {
		fileNumber int32
		offset     int64
	}
	seen := map[key]bool{}
	type unique struct {
		fileNumber int32
		offset     int64
		length     int64
	}
	var uniques []unique
	for _, t := range tiles {
		k := key{t.DataFileNumber, t.Offset}
		if seen[k] {
			continue
		}
		seen[k] = true
		uniques = append(uniques, unique{t.DataFileNumber, t.Offset, t.Length})
	}
	sort.Slice(uniques, func(i, j int) bool {
		if uniques[i].fileNumber != uniques[j].fileNumber {
			return uniques[i].fileNumber < uniques[j].fileNumber
		}
		return uniques[i].offset < uniques[j].offset
	})

	for _, u := range uniques {
		if int(u.fileNumber) < 0 || int(u.fileNumber) >= len(r.info.DataFilePaths) {
			return "", ferror.Newf(ferror.InvalidArgument, "mrxs: quickhash data file number %d out of range", u.fileNumber)
		}
		dataPath := filepath.Join(r.dirname, r.info.DataFilePaths[u.fileNumber])
		f, err := os.Open(dataPath)
		if err != nil {
			return "", ferror.Wrap(err, "mrxs.QuickHash")
		}
		err = b.WriteFilePart(f, u.offset, int(u.length))
		f.Close()
		if err != nil {
			return "", ferror.Wrap(err, "mrxs.QuickHash")
		}
	}

	return b.Finalize(), nil
}

// AssociatedImages always returns empty for MRXS: associated data (label,
// macro, the camera-position buffer) lives in non-hierarchical records
// rather than the tiled-directory model the standard interface assumes.
// Use AssociatedDataNames/LoadAssociatedData for MRXS's own mechanism.
// Verbatim behavior of mrxs.cpp's GetAssociatedImageNames.
func (r *Reader) AssociatedImages() ([]string, error) { return nil, nil }

// ReadAssociatedImage always returns NotFound for MRXS; see
// AssociatedImages.
func (r *Reader) ReadAssociatedImage(name string) (fastslide.Image, error) {
	return fastslide.Image{}, ferror.Newf(ferror.NotFound, "mrxs: use LoadAssociatedData for %q", name)
}

func (r *Reader) ReadRegion(region fastslide.RegionSpec) (fastslide.Image, error) {
	return fastslide.ReadRegionVia(r, region)
}

func (r *Reader) readTileData(op fastslide.TileReadOp) ([]byte, error) {
	fileNumber := int(op.SourceID)
	if fileNumber < 0 || fileNumber >= len(r.info.DataFilePaths) {
		return nil, ferror.Newf(ferror.InvalidArgument, "mrxs: data file number %d out of range", fileNumber)
	}
	path := filepath.Join(r.dirname, r.info.DataFilePaths[fileNumber])
	f, err := os.Open(path)
	if err != nil {
		return nil, ferror.Wrap(err, "mrxs.readTileData")
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, ferror.Wrap(err, "mrxs.readTileData")
	}
	end := op.ByteOffset + op.ByteSize
	if end > info.Size() {
		return nil, ferror.Newf(ferror.InvalidArgument, "mrxs: tile data extends beyond file size (offset=%d length=%d file_size=%d)", op.ByteOffset, op.ByteSize, info.Size())
	}

	buf := make([]byte, op.ByteSize)
	if _, err := f.ReadAt(buf, op.ByteOffset); err != nil {
		return nil, ferror.Wrap(err, "mrxs.readTileData")
	}
	return buf, nil
}

func (r *Reader) Close() error { return r.index.Close() }
