package mrxs

import (
	"math"

	fastslide "github.com/Grescilla/fastslide-sub000"
	"github.com/Grescilla/fastslide-sub000/ferror"
)

// PrepareRequest implements the MRXS plan builder: locate every tile whose
// bounding box intersects the requested region via the level's spatial
// index, then derive a sub-pixel-aware clip/blend TileReadOp per tile.
// Unlike Aperio's grid-aligned tiles, MRXS tiles overlap and carry
// fractional placement, so the writer runs in WeightedBlend mode. Grounded
// on mrxs_plan_builder.cpp's BuildPlan/CreateTileOperation.
func (r *Reader) PrepareRequest(req fastslide.TileRequest) (*fastslide.TilePlan, error) {
	if req.Level < 0 || int(req.Level) >= len(r.info.LevelParams) {
		return nil, ferror.Newf(ferror.InvalidArgument, "mrxs: level %d out of range", req.Level)
	}
	level := int(req.Level)

	levelW, levelH := GetLevelInfo(r.info, level)

	idx, err := r.spatialIndexForLevel(level)
	if err != nil {
		return nil, err
	}

	var x, y float64
	var width, height uint32
	if req.RegionBounds.Valid {
		x, y = req.RegionBounds.X, req.RegionBounds.Y
		width = uint32(math.Ceil(req.RegionBounds.Width))
		height = uint32(math.Ceil(req.RegionBounds.Height))
	} else {
		width, height = uint32(levelW), uint32(levelH)
	}

	out := mrxsOutputSpec(width, height, r.info.ZoomLevels[level].BackgroundColorBGR)

	candidates := idx.QueryRegion(x, y, float64(width), float64(height))
	if len(candidates) == 0 {
		return &fastslide.TilePlan{
			Request:      req,
			Output:       out,
			ActualRegion: fastslide.Rect{Width: width, Height: height},
		}, nil
	}

	tiles := idx.GetSpatialTiles()
	var ops []fastslide.TileReadOp
	var totalBytes int64
	for _, ci := range candidates {
		op, ok := createTileOperation(tiles[ci], req.Level, x, y, width, height)
		if !ok {
			continue
		}
		totalBytes += op.ByteSize
		ops = append(ops, op)
	}

	return &fastslide.TilePlan{
		Request:      req,
		Operations:   ops,
		Output:       out,
		ActualRegion: fastslide.Rect{Width: width, Height: height},
		Cost: fastslide.PlanCost{
			TotalTiles: len(ops), TotalBytesToRead: totalBytes,
			TilesToDecode: len(ops), EstimatedTimeMS: float64(totalBytes) / 1000.0,
		},
	}, nil
}

// createTileOperation derives one tile's clip/dest rectangle and blend
// metadata relative to the requested region origin (x, y). Returns ok=false
// when the tile's contribution clips to nothing. Verbatim port of
// mrxs_plan_builder.cpp's CreateTileOperation.
func createTileOperation(st SpatialTile, level int32, x, y float64, width, height uint32) (fastslide.TileReadOp, bool) {
	relX := st.BBox.MinX - x
	relY := st.BBox.MinY - y

	destX := int64(math.Floor(relX))
	destY := int64(math.Floor(relY))
	fracX := relX - float64(destX)
	fracY := relY - float64(destY)

	srcOffsetX := int64(math.Round(float64(st.TileInfo.SubregionX)))
	srcOffsetY := int64(math.Round(float64(st.TileInfo.SubregionY)))
	srcWidth := int64(math.Ceil(st.TileWidth))
	srcHeight := int64(math.Ceil(st.TileHeight))

	finalDestX, finalWidth := clipAxis(destX, srcWidth, &srcOffsetX)
	finalDestY, finalHeight := clipAxis(destY, srcHeight, &srcOffsetY)

	if finalDestX+finalWidth > int64(width) {
		if int64(width) > finalDestX {
			finalWidth = int64(width) - finalDestX
		} else {
			finalWidth = 0
		}
	}
	if finalDestY+finalHeight > int64(height) {
		if int64(height) > finalDestY {
			finalHeight = int64(height) - finalDestY
		} else {
			finalHeight = 0
		}
	}

	if finalWidth == 0 || finalHeight == 0 {
		return fastslide.TileReadOp{}, false
	}

	return fastslide.TileReadOp{
		Level:      level,
		TileCoord:  fastslide.Dimensions{Width: uint32(st.TileInfo.X), Height: uint32(st.TileInfo.Y)},
		SourceID:   int64(st.TileInfo.DataFileNumber),
		ByteOffset: st.TileInfo.Offset,
		ByteSize:   st.TileInfo.Length,
		Source: fastslide.Rect{
			X: uint32(srcOffsetX), Y: uint32(srcOffsetY),
			Width: uint32(finalWidth), Height: uint32(finalHeight),
		},
		Dest: fastslide.Rect{
			X: uint32(finalDestX), Y: uint32(finalDestY),
			Width: uint32(finalWidth), Height: uint32(finalHeight),
		},
		Blend: &fastslide.BlendMetadata{
			FractionalX: fracX, FractionalY: fracY,
			Weight: 1.0, Gain: st.TileInfo.Gain,
			Mode: fastslide.Average, SubpixelResample: true,
		},
	}, true
}

// clipAxis clips a single axis against the 0 origin, shifting srcOffset to
// compensate when destination starts negative.
func clipAxis(dest, srcLen int64, srcOffset *int64) (finalDest, finalLen int64) {
	if dest < 0 {
		clip := -dest
		*srcOffset += clip
		if clip < srcLen {
			finalLen = srcLen - clip
		} else {
			finalLen = 0
		}
		finalDest = 0
		return
	}
	return dest, srcLen
}

// mrxsOutputSpec builds the plan's OutputSpec, extracting R/G/B from the
// INI's IMAGE_FILL_COLOR_BGR value using the same (non-literal-BGR) shift
// convention as the original: R = bits 16-23, G = bits 8-15, B = bits 0-7.
func mrxsOutputSpec(w, h uint32, bg int64) fastslide.OutputSpec {
	r := uint8((bg >> 16) & 0xFF)
	g := uint8((bg >> 8) & 0xFF)
	b := uint8(bg & 0xFF)
	return fastslide.OutputSpec{
		Width: w, Height: h, Channels: 3, DType: fastslide.Uint8,
		Background: fastslide.RGBColor{R: r, G: g, B: b},
	}
}
