package mrxs

import "math"

// TileBox is an axis-aligned bounding box in level-pixel coordinates.
type TileBox struct {
	MinX, MinY float64
	MaxX, MaxY float64
}

// CalculateTileBoundingBox computes one tile's placement at the given
// level. With camera positions available, the tile is placed at its
// camera-corrected stage coordinate (scaled from level-0 to this level by
// the level's concatenation factor) plus its subregion offset; otherwise it
// falls back to the synthetic grid position implied by the level's tile
// step. Grounded on spatial_index.h's documented SpatialTile contract and
// the textual bounding-box description carried in the level's own
// PyramidLevelParameters (spatial_index.cpp itself has no body to port).
func CalculateTileBoundingBox(tile MiraxTileRecord, params PyramidLevelParameters, level int, info *SlideDataInfo) TileBox {
	tileW := float64(info.ZoomLevels[level].ImageWidth) / float64(params.SubtilesPerStoredImage)
	tileH := float64(info.ZoomLevels[level].ImageHeight) / float64(params.SubtilesPerStoredImage)

	var minX, minY float64
	if !info.UsingSyntheticPositions && len(info.CameraPositions) > 0 {
		cameraX := int(tile.X) / info.ImageDivisions
		cameraY := int(tile.Y) / info.ImageDivisions
		positionsX := info.ImagesX / info.ImageDivisions
		idx := cameraY*positionsX + cameraX
		if idx >= 0 && 2*idx+1 < len(info.CameraPositions) {
			concat := float64(params.ConcatenationFactor)
			px := float64(info.CameraPositions[2*idx]) / concat
			py := float64(info.CameraPositions[2*idx+1]) / concat
			minX = px + float64(tile.SubregionX)
			minY = py + float64(tile.SubregionY)
		} else {
			minX = float64(tile.X) * params.HorizontalTileStep
			minY = float64(tile.Y) * params.VerticalTileStep
		}
	} else {
		minX = float64(tile.X) * params.HorizontalTileStep
		minY = float64(tile.Y) * params.VerticalTileStep
	}

	return TileBox{MinX: minX, MinY: minY, MaxX: minX + tileW, MaxY: minY + tileH}
}

// SlideBounds is the tight bounding box of the active (in-bounds) tissue
// area at level 0, in slide pixel coordinates.
type SlideBounds struct {
	X, Y          int64
	Width, Height int64
	Valid         bool
}

// CalculateBounds computes the slide's tissue bounding box by scanning
// every level-0 tile once, tracking coordinate extremes, and skipping any
// tile whose bbox has a negative minimum (not placed / inactive). Grounded
// on mrxs.cpp's CalculateBounds.
func CalculateBounds(tiles []MiraxTileRecord, params PyramidLevelParameters, info *SlideDataInfo, slideWidth, slideHeight int64) SlideBounds {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	found := false

	for _, t := range tiles {
		box := CalculateTileBoundingBox(t, params, 0, info)
		if box.MinX < 0 || box.MinY < 0 {
			continue
		}
		found = true
		if box.MinX < minX {
			minX = box.MinX
		}
		if box.MinY < minY {
			minY = box.MinY
		}
		if box.MaxX > maxX {
			maxX = box.MaxX
		}
		if box.MaxY > maxY {
			maxY = box.MaxY
		}
	}

	if !found {
		return SlideBounds{}
	}

	x0 := clampI64(int64(math.Floor(minX)), 0, slideWidth)
	y0 := clampI64(int64(math.Floor(minY)), 0, slideHeight)
	x1 := clampI64(int64(math.Ceil(maxX)), 0, slideWidth)
	y1 := clampI64(int64(math.Ceil(maxY)), 0, slideHeight)

	return SlideBounds{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0, Valid: true}
}

func clampI64(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
