package mrxs

import "testing"

func TestCalculateLevelParams(t *testing.T) {
	levels := []SlideZoomLevel{
		{ImageWidth: 1024, ImageHeight: 768, XOverlapPixels: 64, YOverlapPixels: 48, DownsampleExponent: 0},
		{ImageWidth: 1024, ImageHeight: 768, XOverlapPixels: 64, YOverlapPixels: 48, DownsampleExponent: 2},
		{ImageWidth: 1024, ImageHeight: 768, XOverlapPixels: 64, YOverlapPixels: 48, DownsampleExponent: 1},
	}

	params := CalculateLevelParams(levels, 1)
	if len(params) != 3 {
		t.Fatalf("len(params) = %d, want 3", len(params))
	}

	if params[0].ConcatenationFactor != 1 {
		t.Errorf("level 0 ConcatenationFactor = %d, want 1", params[0].ConcatenationFactor)
	}
	if params[1].ConcatenationFactor != 4 {
		t.Errorf("level 1 ConcatenationFactor = %d, want 4 (accumulated exponent 2)", params[1].ConcatenationFactor)
	}
	if params[2].ConcatenationFactor != 8 {
		t.Errorf("level 2 ConcatenationFactor = %d, want 8 (accumulated exponent 3)", params[2].ConcatenationFactor)
	}

	if params[0].LogicalTileWidth != 1024 || params[0].LogicalTileHeight != 768 {
		t.Errorf("level 0 logical tile = %dx%d, want 1024x768", params[0].LogicalTileWidth, params[0].LogicalTileHeight)
	}

	wantStepX := 1024.0 - 64.0
	if params[0].HorizontalTileStep != wantStepX {
		t.Errorf("level 0 HorizontalTileStep = %v, want %v", params[0].HorizontalTileStep, wantStepX)
	}
}

func TestCalculateLevelParamsWithImageDivisions(t *testing.T) {
	levels := []SlideZoomLevel{
		{ImageWidth: 2048, ImageHeight: 2048, DownsampleExponent: 2},
	}
	params := CalculateLevelParams(levels, 4)

	if params[0].ConcatenationFactor != 4 {
		t.Fatalf("ConcatenationFactor = %d, want 4", params[0].ConcatenationFactor)
	}
	// camera_positions_per_image = max(1, concat/divisions) = max(1, 4/4) = 1
	if params[0].CameraPositionsPerImage != 1 {
		t.Errorf("CameraPositionsPerImage = %d, want 1", params[0].CameraPositionsPerImage)
	}
	// grid_divisor = min(concat, divisions) = min(4, 4) = 4
	if params[0].GridDivisor != 4 {
		t.Errorf("GridDivisor = %d, want 4", params[0].GridDivisor)
	}
}

func TestGetLevelInfo(t *testing.T) {
	info := &SlideDataInfo{
		ImagesX: 2, ImagesY: 2, ImageDivisions: 1,
		ZoomLevels: []SlideZoomLevel{
			{ImageWidth: 100, ImageHeight: 100, XOverlapPixels: 10, YOverlapPixels: 10, DownsampleExponent: 0},
			{ImageWidth: 100, ImageHeight: 100, XOverlapPixels: 10, YOverlapPixels: 10, DownsampleExponent: 1},
		},
	}
	info.LevelParams = CalculateLevelParams(info.ZoomLevels, info.ImageDivisions)

	w0, h0 := GetLevelInfo(info, 0)
	// two 100-wide images per row, overlap subtracted from all but the last in the row
	wantW := 100 + (100 - 10)
	wantH := 100 + (100 - 10)
	if w0 != wantW || h0 != wantH {
		t.Errorf("GetLevelInfo(level0) = %dx%d, want %dx%d", w0, h0, wantW, wantH)
	}

	w1, h1 := GetLevelInfo(info, 1)
	if w1 != wantW/2 || h1 != wantH/2 {
		t.Errorf("GetLevelInfo(level1) = %dx%d, want %dx%d", w1, h1, wantW/2, wantH/2)
	}
}
