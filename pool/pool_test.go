package pool

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Grescilla/fastslide-sub000/ferror"
)

type fakeHandle struct {
	id     int
	closed atomic.Bool
}

func (h *fakeHandle) Close() error {
	h.closed.Store(true)
	return nil
}

func newOpener() (OpenFunc, *int32) {
	var n int32
	open := func() (Handle, error) {
		id := atomic.AddInt32(&n, 1)
		return &fakeHandle{id: int(id)}, nil
	}
	return open, &n
}

func TestAcquireReleaseReusesHandle(t *testing.T) {
	open, opened := newOpener()
	p := New(2, open)

	g1, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	first := g1.Handle()
	g1.Release()

	g2, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if g2.Handle() != first {
		t.Errorf("Acquire after Release opened a new handle instead of reusing one")
	}
	g2.Release()

	if atomic.LoadInt32(opened) != 1 {
		t.Errorf("opened %d handles, want 1 (reuse expected)", atomic.LoadInt32(opened))
	}
}

func TestAcquireBoundedByCapacity(t *testing.T) {
	open, _ := newOpener()
	p := New(1, open)

	g1, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	if _, ok := p.TryAcquire(); ok {
		t.Errorf("TryAcquire succeeded with capacity exhausted")
	}

	g1.Release()

	g2, ok := p.TryAcquire()
	if !ok {
		t.Fatalf("TryAcquire failed after release")
	}
	g2.Release()
}

func TestAcquireRespectsContextCancellation(t *testing.T) {
	open, _ := newOpener()
	p := New(1, open)

	g, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer g.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err = p.Acquire(ctx)
	elapsed := time.Since(start)
	if err == nil {
		t.Fatalf("Acquire did not fail once capacity was exhausted")
	}
	if _, ok := err.(*ferror.Error); !ok {
		t.Errorf("error is not a *ferror.Error: %v", err)
	}
	if elapsed > time.Second {
		t.Errorf("Acquire blocked for %v, want bounded by context timeout", elapsed)
	}
}

func TestReleaseTwiceIsSafe(t *testing.T) {
	open, _ := newOpener()
	p := New(1, open)

	g, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	g.Release()
	g.Release() // must not panic or double-free the semaphore slot

	if _, ok := p.TryAcquire(); !ok {
		t.Errorf("TryAcquire failed after double Release; semaphore slot likely leaked")
	}
}

func TestStatsTrackTotalOpenedAndAvailable(t *testing.T) {
	open, _ := newOpener()
	p := New(3, open)

	var guards []*Guard
	for i := 0; i < 3; i++ {
		g, err := p.Acquire(context.Background())
		if err != nil {
			t.Fatalf("Acquire %d: %v", i, err)
		}
		guards = append(guards, g)
	}

	stats := p.Stats()
	if stats.TotalOpened != 3 {
		t.Errorf("TotalOpened = %d, want 3", stats.TotalOpened)
	}

	for _, g := range guards {
		g.Release()
	}

	stats = p.Stats()
	if stats.AvailableHandles != 3 {
		t.Errorf("AvailableHandles = %d, want 3 after releasing all", stats.AvailableHandles)
	}
}

func TestConcurrentAcquireReleaseStaysWithinCapacity(t *testing.T) {
	open, _ := newOpener()
	const capacity = 4
	p := New(capacity, open)

	var wg sync.WaitGroup
	var maxConcurrent int32
	var concurrent int32

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				g, err := p.Acquire(context.Background())
				if err != nil {
					t.Errorf("Acquire: %v", err)
					return
				}
				cur := atomic.AddInt32(&concurrent, 1)
				for {
					m := atomic.LoadInt32(&maxConcurrent)
					if cur <= m || atomic.CompareAndSwapInt32(&maxConcurrent, m, cur) {
						break
					}
				}
				atomic.AddInt32(&concurrent, -1)
				g.Release()
			}
		}()
	}
	wg.Wait()

	if maxConcurrent > capacity {
		t.Errorf("observed %d concurrent handles, want <= capacity %d", maxConcurrent, capacity)
	}
}

func TestNewDefaultsSizeToGOMAXPROCS(t *testing.T) {
	open, _ := newOpener()
	p := New(0, open)
	if p.maxSize < 1 {
		t.Errorf("maxSize = %d, want >= 1 when size<=0", p.maxSize)
	}
}

func TestCloseDrainsFreeList(t *testing.T) {
	open, _ := newOpener()
	p := New(2, open)

	g1, _ := p.Acquire(context.Background())
	g2, _ := p.Acquire(context.Background())
	g1.Release()
	g2.Release()

	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
