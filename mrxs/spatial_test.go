package mrxs

import "testing"

func TestSpatialIndexQueryRegion(t *testing.T) {
	info := newTestInfo()
	tiles := []MiraxTileRecord{
		{X: 0, Y: 0},
		{X: 1, Y: 0},
		{X: 0, Y: 1},
		{X: 2, Y: 2},
	}

	idx, err := BuildSpatialIndex(tiles, info.LevelParams[0], 0, info)
	if err != nil {
		t.Fatalf("BuildSpatialIndex: %v", err)
	}
	if idx.GetTileCount() != 4 {
		t.Fatalf("GetTileCount() = %d, want 4", idx.GetTileCount())
	}

	step := info.LevelParams[0].HorizontalTileStep
	hits := idx.QueryRegion(0, 0, step*1.5, step*1.5)
	if len(hits) != 3 {
		t.Errorf("QueryRegion covering tiles (0,0),(1,0),(0,1) returned %d hits, want 3", len(hits))
	}

	far := idx.QueryRegion(10*step, 10*step, step, step)
	if len(far) != 0 {
		t.Errorf("QueryRegion far outside tile placements returned %d hits, want 0", len(far))
	}
}

func TestSpatialIndexQueryDedupAcrossCells(t *testing.T) {
	info := newTestInfo()
	tiles := []MiraxTileRecord{{X: 0, Y: 0}}
	idx, err := BuildSpatialIndex(tiles, info.LevelParams[0], 0, info)
	if err != nil {
		t.Fatalf("BuildSpatialIndex: %v", err)
	}

	step := info.LevelParams[0].HorizontalTileStep
	// Query twice with overlapping ranges that touch the same cell more than
	// once; epoch dedup must still return exactly one hit per call.
	for i := 0; i < 2; i++ {
		hits := idx.QueryRegion(-step, -step, step*3, step*3)
		if len(hits) != 1 {
			t.Errorf("call %d: QueryRegion returned %d hits, want 1", i, len(hits))
		}
	}
}
