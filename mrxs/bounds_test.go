package mrxs

import "testing"

func newTestInfo() *SlideDataInfo {
	info := &SlideDataInfo{
		ImagesX: 3, ImagesY: 3, ImageDivisions: 1,
		UsingSyntheticPositions: true,
		ZoomLevels: []SlideZoomLevel{
			{ImageWidth: 100, ImageHeight: 100, DownsampleExponent: 0},
		},
	}
	info.LevelParams = CalculateLevelParams(info.ZoomLevels, info.ImageDivisions)
	return info
}

func TestCalculateTileBoundingBoxSynthetic(t *testing.T) {
	info := newTestInfo()
	tile := MiraxTileRecord{X: 2, Y: 1}
	box := CalculateTileBoundingBox(tile, info.LevelParams[0], 0, info)

	wantMinX := 2 * info.LevelParams[0].HorizontalTileStep
	wantMinY := 1 * info.LevelParams[0].VerticalTileStep
	if box.MinX != wantMinX || box.MinY != wantMinY {
		t.Errorf("bbox min = (%v, %v), want (%v, %v)", box.MinX, box.MinY, wantMinX, wantMinY)
	}
	if box.MaxX-box.MinX != 100 || box.MaxY-box.MinY != 100 {
		t.Errorf("bbox size = %vx%v, want 100x100", box.MaxX-box.MinX, box.MaxY-box.MinY)
	}
}

func TestCalculateBoundsSkipsInactiveTiles(t *testing.T) {
	info := newTestInfo()
	tiles := []MiraxTileRecord{
		{X: 0, Y: 0},
		{X: 1, Y: 0},
		{X: 2, Y: 0},
		// Inactive: negative bbox min; counting it would widen the bounds to 600.
		{X: 5, Y: -1},
	}
	b := CalculateBounds(tiles, info.LevelParams[0], info, 1000, 1000)
	if !b.Valid {
		t.Fatal("bounds should be valid when tiles are active")
	}
	if b.X != 0 || b.Y != 0 {
		t.Errorf("bounds origin = (%d, %d), want (0, 0)", b.X, b.Y)
	}
	wantWidth := int64(3 * info.LevelParams[0].HorizontalTileStep)
	if b.Width < wantWidth-1 || b.Width > wantWidth+1 {
		t.Errorf("bounds width = %d, want ~%d", b.Width, wantWidth)
	}
}

func TestCalculateBoundsNoActiveTiles(t *testing.T) {
	b := CalculateBounds(nil, PyramidLevelParameters{}, newTestInfo(), 100, 100)
	if b.Valid {
		t.Error("bounds should be invalid with no tiles")
	}
}
