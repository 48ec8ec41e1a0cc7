// Package pool implements a bounded pool of reusable TIFF file handles.
//
// The original C++ implementation (tiff_pool.h) keeps a thread_local single
// handle slot per pool instance plus a lock-free Treiber-stack free list for
// the shared overflow. Go exposes no stable goroutine-local storage, so the
// fast path here is sync.Pool (the idiomatic per-P cache Go already uses for
// exactly this kind of short-lived reuse) layered on top of the same
// semaphore + Treiber-stack shape for the bounded/shared path. See
// DESIGN.md, Open Question 1.
package pool

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/Grescilla/fastslide-sub000/ferror"
)

// Handle is anything the pool can open, reuse, and eventually close.
type Handle interface {
	Close() error
}

// OpenFunc creates a new Handle for the pool's underlying resource (a TIFF
// file path, typically).
type OpenFunc func() (Handle, error)

// node is a Treiber-stack entry in the lock-free free list.
type node struct {
	h    Handle
	next atomic.Pointer[node]
}

var nextPoolID atomic.Uint64

// Stats mirrors the original's TIFFHandlePool::Stats.
type Stats struct {
	MaxHandles       int
	TotalOpened      int64
	AvailableHandles int
	WaitingThreads   int64
}

// HandlePool bounds concurrent access to a scarce resource (an open TIFF
// file descriptor) behind a semaphore, reusing open, idle handles
// through a lock-free free list and a sync.Pool fast path.
type HandlePool struct {
	poolID  uint64
	open    OpenFunc
	sem     chan struct{}
	fast    sync.Pool // holds *node, per-P fast path
	free    atomic.Pointer[node]
	maxSize int

	totalOpened int64
	waiting     int64
}

// New creates a pool bounded to size concurrently-acquired handles. A size
// of 0 defaults to runtime.GOMAXPROCS(0), mirroring the original's
// hardware_concurrency() default.
func New(size int, open OpenFunc) *HandlePool {
	if size <= 0 {
		size = defaultPoolSize()
	}
	p := &HandlePool{
		poolID:  nextPoolID.Add(1),
		open:    open,
		sem:     make(chan struct{}, size),
		maxSize: size,
	}
	p.fast.New = func() any { return nil }
	return p
}

// Guard is a RAII-style handle lease: call Release when done. A Guard must
// not be copied once acquired.
type Guard struct {
	pool   *HandlePool
	handle Handle
	poolID uint64
}

// Handle returns the leased handle.
func (g *Guard) Handle() Handle { return g.handle }

// Release returns the handle to its pool for reuse. Only the first call
// has an effect; later calls on the same Guard are no-ops.
func (g *Guard) Release() {
	if g == nil || g.pool == nil {
		return
	}
	g.pool.release(g.handle)
	g.pool = nil
}

// Acquire blocks (respecting ctx) until a handle is available, reusing an
// idle one if the free list or fast-path slot has one, or opening a new
// one if under capacity.
func (p *HandlePool) Acquire(ctx context.Context) (*Guard, error) {
	atomic.AddInt64(&p.waiting, 1)
	defer atomic.AddInt64(&p.waiting, -1)

	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ferror.Wrap(ctx.Err(), "pool.Acquire")
	}

	if h := p.popFast(); h != nil {
		return &Guard{pool: p, handle: h, poolID: p.poolID}, nil
	}
	if h := p.popFree(); h != nil {
		return &Guard{pool: p, handle: h, poolID: p.poolID}, nil
	}

	h, err := p.open()
	if err != nil {
		<-p.sem // give back the slot we reserved
		return nil, ferror.Wrap(err, "pool.Acquire.open")
	}
	atomic.AddInt64(&p.totalOpened, 1)
	return &Guard{pool: p, handle: h, poolID: p.poolID}, nil
}

// TryAcquire attempts a non-blocking acquire.
func (p *HandlePool) TryAcquire() (*Guard, bool) {
	select {
	case p.sem <- struct{}{}:
	default:
		return nil, false
	}
	if h := p.popFast(); h != nil {
		return &Guard{pool: p, handle: h, poolID: p.poolID}, true
	}
	if h := p.popFree(); h != nil {
		return &Guard{pool: p, handle: h, poolID: p.poolID}, true
	}
	h, err := p.open()
	if err != nil {
		<-p.sem
		return nil, false
	}
	atomic.AddInt64(&p.totalOpened, 1)
	return &Guard{pool: p, handle: h, poolID: p.poolID}, true
}

func (p *HandlePool) release(h Handle) {
	if !p.pushFast(h) {
		p.pushFree(h)
	}
	<-p.sem
}

func (p *HandlePool) popFast() Handle {
	if v := p.fast.Get(); v != nil {
		return v.(Handle)
	}
	return nil
}

func (p *HandlePool) pushFast(h Handle) bool {
	p.fast.Put(h)
	return true
}

// pushFree and popFree implement the Treiber-stack shared overflow list.
func (p *HandlePool) pushFree(h Handle) {
	n := &node{h: h}
	for {
		old := p.free.Load()
		n.next.Store(old)
		if p.free.CompareAndSwap(old, n) {
			return
		}
	}
}

func (p *HandlePool) popFree() Handle {
	for {
		old := p.free.Load()
		if old == nil {
			return nil
		}
		next := old.next.Load()
		if p.free.CompareAndSwap(old, next) {
			return old.h
		}
	}
}

// Stats reports pool counters.
func (p *HandlePool) Stats() Stats {
	available := 0
	for n := p.free.Load(); n != nil; n = n.next.Load() {
		available++
	}
	return Stats{
		MaxHandles:       p.maxSize,
		TotalOpened:      atomic.LoadInt64(&p.totalOpened),
		AvailableHandles: available,
		WaitingThreads:   atomic.LoadInt64(&p.waiting),
	}
}

// Close drains the free list, closing every idle handle. There is no
// shutdown state: a handle released after Close goes back into the pool
// and is not closed, and Acquire keeps working.
func (p *HandlePool) Close() error {
	var firstErr error
	for {
		h := p.popFree()
		if h == nil {
			break
		}
		if err := h.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
