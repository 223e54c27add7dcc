package alloc

import (
	"fmt"
	"reflect"
	"sync"
	"unsafe"
)

// Stats counts the calls made through a Tracking allocator.
type Stats struct {
	Allocs    int
	Reallocs  int
	Frees     int
	Failures  int
	LiveBytes uintptr
	PeakBytes uintptr
}

// Tracking wraps another allocator and records every live block. Releasing
// or resizing a block it does not know about, or with a layout that differs
// from the recorded one, panics; this catches double frees and
// size-mismatched frees. It is safe for concurrent use.
type Tracking struct {
	inner Allocator

	mu    sync.Mutex
	live  map[unsafe.Pointer]Layout
	stats Stats
}

func NewTracking(inner Allocator) *Tracking {
	if inner == nil {
		inner = Default
	}
	return &Tracking{inner: inner, live: make(map[unsafe.Pointer]Layout)}
}

func (t *Tracking) Accepts(elem reflect.Type) error {
	return t.inner.Accepts(elem)
}

func (t *Tracking) Alloc(l Layout) unsafe.Pointer {
	p := t.inner.Alloc(l)

	t.mu.Lock()
	defer t.mu.Unlock()
	if p == nil {
		t.stats.Failures++
		return nil
	}
	t.stats.Allocs++
	t.add(p, l)
	return p
}

func (t *Tracking) Realloc(ptr unsafe.Pointer, old Layout, newSize uintptr) unsafe.Pointer {
	t.verify("realloc", ptr, old)

	p := t.inner.Realloc(ptr, old, newSize)

	t.mu.Lock()
	defer t.mu.Unlock()
	if p == nil {
		t.stats.Failures++
		return nil
	}
	t.stats.Reallocs++
	t.remove(ptr)
	t.add(p, Layout{Size: newSize, Align: old.Align, Elem: old.Elem})
	return p
}

func (t *Tracking) Dealloc(ptr unsafe.Pointer, l Layout) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.check("free", ptr, l)
	t.stats.Frees++
	t.remove(ptr)
	t.inner.Dealloc(ptr, l)
}

// Live returns the number of blocks allocated and not yet released.
func (t *Tracking) Live() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.live)
}

func (t *Tracking) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stats
}

func (t *Tracking) verify(op string, ptr unsafe.Pointer, l Layout) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.check(op, ptr, l)
}

func (t *Tracking) check(op string, ptr unsafe.Pointer, l Layout) {
	rec, ok := t.live[ptr]
	if !ok {
		panic(fmt.Sprintf("alloc: %s of untracked block %p (double free?)", op, ptr))
	}
	if rec.Size != l.Size || rec.Align != l.Align {
		panic(fmt.Sprintf("alloc: %s of block %p with layout %v, allocated as %v", op, ptr, l, rec))
	}
}

func (t *Tracking) add(p unsafe.Pointer, l Layout) {
	t.live[p] = l
	t.stats.LiveBytes += l.Size
	t.stats.PeakBytes = max(t.stats.PeakBytes, t.stats.LiveBytes)
}

func (t *Tracking) remove(p unsafe.Pointer) {
	t.stats.LiveBytes -= t.live[p].Size
	delete(t.live, p)
}
