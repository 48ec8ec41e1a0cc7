package mrxs

import "testing"

func TestClipAxisNoClip(t *testing.T) {
	offset := int64(5)
	dest, length := clipAxis(10, 50, &offset)
	if dest != 10 || length != 50 {
		t.Errorf("clipAxis(10, 50) = (%d, %d), want (10, 50)", dest, length)
	}
	if offset != 5 {
		t.Errorf("offset mutated to %d, want unchanged 5", offset)
	}
}

func TestClipAxisNegativeDest(t *testing.T) {
	offset := int64(0)
	dest, length := clipAxis(-20, 50, &offset)
	if dest != 0 {
		t.Errorf("dest = %d, want 0", dest)
	}
	if length != 30 {
		t.Errorf("length = %d, want 30 (50 - 20 clip)", length)
	}
	if offset != 20 {
		t.Errorf("offset = %d, want 20 (clip amount added)", offset)
	}
}

func TestClipAxisClipExceedsLength(t *testing.T) {
	offset := int64(0)
	dest, length := clipAxis(-100, 50, &offset)
	if dest != 0 || length != 0 {
		t.Errorf("clipAxis(-100, 50) = (%d, %d), want (0, 0)", dest, length)
	}
}

func TestMrxsOutputSpecBackgroundShift(t *testing.T) {
	// IMAGE_FILL_COLOR_BGR = 0x00112233 must extract R=0x11, G=0x22, B=0x33,
	// following the original's shift convention (not literal BGR order).
	spec := mrxsOutputSpec(10, 10, 0x00112233)
	if spec.Background.R != 0x11 || spec.Background.G != 0x22 || spec.Background.B != 0x33 {
		t.Errorf("background = %+v, want R=0x11 G=0x22 B=0x33", spec.Background)
	}
}

func TestCreateTileOperationDropsZeroClip(t *testing.T) {
	info := newTestInfo()
	st := SpatialTile{
		TileInfo:   MiraxTileRecord{X: 0, Y: 0, Gain: 1},
		BBox:       TileBox{MinX: 500, MinY: 500, MaxX: 600, MaxY: 600},
		TileWidth:  100,
		TileHeight: 100,
	}
	_ = info
	_, ok := createTileOperation(st, 0, 0, 0, 50, 50)
	if ok {
		t.Error("expected createTileOperation to drop a tile entirely outside the requested region")
	}
}

func TestCreateTileOperationClipsToDestBounds(t *testing.T) {
	st := SpatialTile{
		TileInfo:   MiraxTileRecord{X: 0, Y: 0, Gain: 1.5},
		BBox:       TileBox{MinX: -10, MinY: 0, MaxX: 90, MaxY: 100},
		TileWidth:  100,
		TileHeight: 100,
	}
	op, ok := createTileOperation(st, 0, 0, 0, 200, 200)
	if !ok {
		t.Fatal("expected a valid op")
	}
	if op.Dest.X != 0 {
		t.Errorf("Dest.X = %d, want 0 (clipped from negative)", op.Dest.X)
	}
	if op.Source.X != 10 {
		t.Errorf("Source.X = %d, want 10 (shifted by clip amount)", op.Source.X)
	}
	if op.Dest.Width != 90 {
		t.Errorf("Dest.Width = %d, want 90", op.Dest.Width)
	}
	if op.Blend == nil || op.Blend.Gain != 1.5 {
		t.Errorf("Blend.Gain = %+v, want 1.5", op.Blend)
	}
}
