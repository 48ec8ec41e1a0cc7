package mrxs

import (
	"math"
	"sync/atomic"
)

// SpatialTile is one tile placed in level-pixel space, ready for AABB
// queries. Field shape grounded on spatial_index.h's SpatialTile struct.
type SpatialTile struct {
	TileInfo              MiraxTileRecord
	BBox                  TileBox
	TileWidth, TileHeight float64
	GridX, GridY          int32
	OffsetX, OffsetY      float64
}

// gridCell identifies one cell of the spatial hash grid.
type gridCell struct {
	cx, cy int32
}

// MrxsSpatialIndex is a grid-hash spatial index over one pyramid level's
// tiles: each tile is inserted into every cell its bounding box overlaps,
// and QueryRegion gathers candidates from the cells a query rectangle
// touches before an exact AABB test. Built once per level and read lock-free
// afterwards (queries only touch the epoch counter atomically).
//
// spatial_index.cpp carries no implementation (a stub with only its
// namespace declaration); this is an original design grounded on
// spatial_index.h's documented public contract and the grid-hash algorithm
// described alongside the plan builder.
type MrxsSpatialIndex struct {
	tiles []SpatialTile

	minX, minY, maxX, maxY []float32

	cellIndex map[gridCell][]int
	stepX     float64
	stepY     float64
	invStepX  float64
	invStepY  float64

	queryEpoch uint32
	seenEpoch  []uint32
}

// BuildSpatialIndex constructs a spatial index over tiles at the given
// level.
func BuildSpatialIndex(tiles []MiraxTileRecord, params PyramidLevelParameters, level int, info *SlideDataInfo) (*MrxsSpatialIndex, error) {
	idx := &MrxsSpatialIndex{
		tiles:     make([]SpatialTile, 0, len(tiles)),
		cellIndex: make(map[gridCell][]int),
		stepX:     params.HorizontalTileStep,
		stepY:     params.VerticalTileStep,
	}
	if idx.stepX <= 0 {
		idx.stepX = 1
	}
	if idx.stepY <= 0 {
		idx.stepY = 1
	}
	idx.invStepX = 1 / idx.stepX
	idx.invStepY = 1 / idx.stepY

	for _, t := range tiles {
		box := CalculateTileBoundingBox(t, params, level, info)
		synthMinX := float64(t.X) * params.HorizontalTileStep
		synthMinY := float64(t.Y) * params.VerticalTileStep

		st := SpatialTile{
			TileInfo:   t,
			BBox:       box,
			TileWidth:  box.MaxX - box.MinX,
			TileHeight: box.MaxY - box.MinY,
			GridX:      t.X / int32(params.GridDivisor),
			GridY:      t.Y / int32(params.GridDivisor),
			OffsetX:    box.MinX - synthMinX,
			OffsetY:    box.MinY - synthMinY,
		}

		tileIdx := len(idx.tiles)
		idx.tiles = append(idx.tiles, st)
		idx.minX = append(idx.minX, float32(box.MinX))
		idx.minY = append(idx.minY, float32(box.MinY))
		idx.maxX = append(idx.maxX, float32(box.MaxX))
		idx.maxY = append(idx.maxY, float32(box.MaxY))

		cx0 := int32(math.Floor(box.MinX * idx.invStepX))
		cx1 := int32(math.Floor(box.MaxX * idx.invStepX))
		cy0 := int32(math.Floor(box.MinY * idx.invStepY))
		cy1 := int32(math.Floor(box.MaxY * idx.invStepY))
		for cy := cy0; cy <= cy1; cy++ {
			for cx := cx0; cx <= cx1; cx++ {
				cell := gridCell{cx, cy}
				idx.cellIndex[cell] = append(idx.cellIndex[cell], tileIdx)
			}
		}
	}

	idx.seenEpoch = make([]uint32, len(idx.tiles))
	return idx, nil
}

// QueryRegion returns the indices (into GetSpatialTiles) of every tile
// whose bounding box overlaps the rectangle [x, x+width) x [y, y+height).
func (idx *MrxsSpatialIndex) QueryRegion(x, y, width, height float64) []int {
	epoch := atomic.AddUint32(&idx.queryEpoch, 1)

	x0, x1 := x, x+width
	y0, y1 := y, y+height

	cx0 := int32(math.Floor(x0 * idx.invStepX))
	cx1 := int32(math.Floor(x1 * idx.invStepX))
	cy0 := int32(math.Floor(y0 * idx.invStepY))
	cy1 := int32(math.Floor(y1 * idx.invStepY))

	var out []int
	for cy := cy0; cy <= cy1; cy++ {
		for cx := cx0; cx <= cx1; cx++ {
			cell := gridCell{cx, cy}
			for _, ti := range idx.cellIndex[cell] {
				if idx.seenEpoch[ti] == epoch {
					continue
				}
				idx.seenEpoch[ti] = epoch
				if float64(idx.maxX[ti]) <= x0 || float64(idx.minX[ti]) >= x1 {
					continue
				}
				if float64(idx.maxY[ti]) <= y0 || float64(idx.minY[ti]) >= y1 {
					continue
				}
				out = append(out, ti)
			}
		}
	}
	return out
}

// GetSpatialTiles returns every tile held by the index, in insertion order.
func (idx *MrxsSpatialIndex) GetSpatialTiles() []SpatialTile {
	return idx.tiles
}

// GetTileCount returns the number of tiles held by the index.
func (idx *MrxsSpatialIndex) GetTileCount() int {
	return len(idx.tiles)
}
