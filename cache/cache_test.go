package cache

import "testing"

func tile(fill byte) *Tile {
	data := make([]byte, 256*256*3)
	for i := range data {
		data[i] = fill
	}
	return &Tile{Data: data, Width: 256, Height: 256, Channels: 3}
}

func TestNewRejectsNonPositiveCapacity(t *testing.T) {
	if _, err := New(0); err == nil {
		t.Error("New(0) succeeded, want error")
	}
	if _, err := New(-1); err == nil {
		t.Error("New(-1) succeeded, want error")
	}
}

func TestBasicPutGetOverwriteClear(t *testing.T) {
	c, err := New(10)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	key := Key{FileID: "test1.tiff", Level: 0, TileX: 0, TileY: 0}

	if _, ok := c.Get(key); ok {
		t.Error("Get on empty cache returned a hit")
	}

	c.Put(key, tile(128))
	got, ok := c.Get(key)
	if !ok {
		t.Fatal("Get missed right after Put")
	}
	if got.Width != 256 || got.Height != 256 || got.Channels != 3 {
		t.Errorf("got tile shape %dx%d x%d, want 256x256x3", got.Width, got.Height, got.Channels)
	}

	c.Put(key, tile(255))
	got, ok = c.Get(key)
	if !ok || got.Data[0] != 255 {
		t.Errorf("Put did not overwrite existing key")
	}

	c.Clear()
	if _, ok := c.Get(key); ok {
		t.Error("Get hit after Clear")
	}
}

func TestPutNilTileIsIgnored(t *testing.T) {
	c, _ := New(5)
	key := Key{FileID: "test1.tiff", Level: 0, TileX: 0, TileY: 0}
	c.Put(key, nil)
	if _, ok := c.Get(key); ok {
		t.Error("Get hit after Put(nil)")
	}
	if c.Stats().Len != 0 {
		t.Errorf("Len = %d, want 0 after Put(nil)", c.Stats().Len)
	}
}

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	c, _ := New(2)
	key1 := Key{FileID: "test1.tiff", Level: 0, TileX: 0, TileY: 0}
	key2 := Key{FileID: "test1.tiff", Level: 0, TileX: 1, TileY: 0}
	key3 := Key{FileID: "test2.tiff", Level: 1, TileX: 0, TileY: 0}

	c.Put(key1, tile(1))
	c.Put(key2, tile(2))

	// Touch key1 so key2 becomes the least recently used.
	if _, ok := c.Get(key1); !ok {
		t.Fatal("Get(key1) missed")
	}

	c.Put(key3, tile(3))

	if _, ok := c.Get(key1); !ok {
		t.Error("key1 was evicted, want it retained (recently accessed)")
	}
	if _, ok := c.Get(key2); ok {
		t.Error("key2 was retained, want it evicted (least recently used)")
	}
	if _, ok := c.Get(key3); !ok {
		t.Error("key3 missing right after insert")
	}
}

func TestStatsHitsMissesAndRatio(t *testing.T) {
	c, _ := New(5)
	key1 := Key{FileID: "a", Level: 0, TileX: 0, TileY: 0}
	key2 := Key{FileID: "a", Level: 0, TileX: 1, TileY: 0}
	key3 := Key{FileID: "a", Level: 0, TileX: 2, TileY: 0}

	stats := c.Stats()
	if stats.Capacity != 5 || stats.Len != 0 || stats.Hits != 0 || stats.Misses != 0 {
		t.Fatalf("initial stats = %+v, want zeroed with Capacity=5", stats)
	}
	if stats.HitRatio() != 0 {
		t.Errorf("HitRatio on empty stats = %v, want 0", stats.HitRatio())
	}

	c.Put(key1, tile(1))
	c.Put(key2, tile(2))

	c.Get(key3)
	c.Get(key3)

	stats = c.Stats()
	if stats.Len != 2 || stats.Hits != 0 || stats.Misses != 2 {
		t.Errorf("after misses: stats = %+v, want Len=2 Hits=0 Misses=2", stats)
	}

	c.Get(key1)
	c.Get(key2)
	c.Get(key1)

	stats = c.Stats()
	if stats.Hits != 3 || stats.Misses != 2 {
		t.Errorf("stats = %+v, want Hits=3 Misses=2", stats)
	}
	want := 3.0 / 5.0
	if got := stats.HitRatio(); got != want {
		t.Errorf("HitRatio() = %v, want %v", got, want)
	}

	c.Clear()
	stats = c.Stats()
	if stats.Hits != 0 || stats.Misses != 0 || stats.Len != 0 {
		t.Errorf("stats after Clear = %+v, want all zero", stats)
	}
}

func TestSetCapacityClearsAndResizes(t *testing.T) {
	c, _ := New(5)
	key := Key{FileID: "a", Level: 0, TileX: 0, TileY: 0}
	c.Put(key, tile(1))
	c.Get(key)

	if err := c.SetCapacity(2); err != nil {
		t.Fatalf("SetCapacity: %v", err)
	}
	stats := c.Stats()
	if stats.Capacity != 2 || stats.Len != 0 || stats.Hits != 0 {
		t.Errorf("stats after SetCapacity = %+v, want Capacity=2 Len=0 Hits=0", stats)
	}

	if err := c.SetCapacity(0); err == nil {
		t.Error("SetCapacity(0) succeeded, want error")
	}
}

func TestGlobalReturnsSingleton(t *testing.T) {
	g1 := Global()
	g2 := Global()
	if g1 != g2 {
		t.Error("Global() returned two different instances")
	}
	if g1.Stats().Capacity != 1000 {
		t.Errorf("Global() capacity = %d, want 1000", g1.Stats().Capacity)
	}
}

func TestDifferentFileIDsDoNotCollide(t *testing.T) {
	c, _ := New(5)
	key1 := Key{FileID: "slide-a", Level: 0, TileX: 1, TileY: 1}
	key2 := Key{FileID: "slide-b", Level: 0, TileX: 1, TileY: 1}

	c.Put(key1, tile(1))
	c.Put(key2, tile(2))

	got1, ok1 := c.Get(key1)
	got2, ok2 := c.Get(key2)
	if !ok1 || !ok2 {
		t.Fatal("both keys should be present independently")
	}
	if got1.Data[0] == got2.Data[0] {
		t.Errorf("distinct FileIDs collided on the same tile data")
	}
}
