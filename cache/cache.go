// Package cache implements the shared tile cache used by both slide
// plug-ins: a bounded LRU keyed by (file, level, tile_x, tile_y), built on
// top of the same github.com/hashicorp/golang-lru package the teacher TIFF
// decoder uses for its own per-file tile cache.
package cache

import (
	"sync"

	lru "github.com/hashicorp/golang-lru"

	"github.com/Grescilla/fastslide-sub000/ferror"
)

// Key identifies a cached tile. FileID is typically a slide's directory or
// file path, so tiles from different slides never collide.
type Key struct {
	FileID string
	Level  int
	TileX  uint32
	TileY  uint32
}

// Tile is the cached payload: decoded pixel bytes plus enough shape
// information to reconstruct an image without re-decoding.
type Tile struct {
	Data     []byte
	Width    int
	Height   int
	Channels int
}

func (t *Tile) size() int { return len(t.Data) }

// Stats reports point-in-time cache counters.
type Stats struct {
	Hits            uint64
	Misses          uint64
	Capacity        int
	Len             int
	MemoryUsedBytes uint64
}

// HitRatio returns Hits/(Hits+Misses), or 0 if the cache has never been
// queried.
func (s Stats) HitRatio() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// TileCache is a single-mutex-protected bounded LRU of decoded tiles.
//
// Mirrors fastslide::utilities::TileCache: capacity must be positive,
// Get/Put/Clear/SetCapacity all serialize under one mutex, and Stats
// reports hit ratio and byte usage by summing cached tile sizes.
type TileCache struct {
	mu       sync.Mutex
	lru      *lru.Cache
	capacity int
	hits     uint64
	misses   uint64
}

// New creates a tile cache with the given capacity (number of tiles, not
// bytes). capacity must be > 0.
func New(capacity int) (*TileCache, error) {
	if capacity <= 0 {
		return nil, ferror.Newf(ferror.InvalidArgument, "cache: capacity must be positive, got %d", capacity)
	}
	c, err := lru.New(capacity)
	if err != nil {
		return nil, ferror.Wrap(err, "cache.New")
	}
	return &TileCache{lru: c, capacity: capacity}, nil
}

// Get returns the cached tile for key, if present, bumping it to
// most-recently-used and incrementing the hit/miss counters.
func (c *TileCache) Get(key Key) (*Tile, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.lru.Get(key)
	if !ok {
		c.misses++
		return nil, false
	}
	c.hits++
	return v.(*Tile), true
}

// Put inserts or updates the tile for key. A nil tile is ignored.
func (c *TileCache) Put(key Key, tile *Tile) {
	if tile == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Add(key, tile)
}

// Clear empties the cache and resets hit/miss counters.
func (c *TileCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Purge()
	c.hits, c.misses = 0, 0
}

// SetCapacity clears the cache and changes its capacity. capacity must be
// > 0.
func (c *TileCache) SetCapacity(capacity int) error {
	if capacity <= 0 {
		return ferror.Newf(ferror.InvalidArgument, "cache: capacity must be positive, got %d", capacity)
	}
	newLRU, err := lru.New(capacity)
	if err != nil {
		return ferror.Wrap(err, "cache.SetCapacity")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru = newLRU
	c.capacity = capacity
	c.hits, c.misses = 0, 0
	return nil
}

// Stats reports current hit/miss/capacity/memory counters.
func (c *TileCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	var mem uint64
	for _, k := range c.lru.Keys() {
		if v, ok := c.lru.Peek(k); ok {
			mem += uint64(v.(*Tile).size())
		}
	}
	return Stats{
		Hits:            c.hits,
		Misses:          c.misses,
		Capacity:        c.capacity,
		Len:             c.lru.Len(),
		MemoryUsedBytes: mem,
	}
}

var (
	globalOnce  sync.Once
	globalCache *TileCache
)

// Global returns the process-wide tile cache singleton, created on first
// use with a capacity of 1000 tiles, matching GlobalTileCache in the
// original implementation.
func Global() *TileCache {
	globalOnce.Do(func() {
		c, err := New(1000)
		if err != nil {
			panic(err) // unreachable: 1000 > 0
		}
		globalCache = c
	})
	return globalCache
}
