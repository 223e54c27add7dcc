package testutils

import (
	"testing"
	"time"
	"unsafe"

	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"

	"github.com/eigerco/rawvec/pkg/alloc"
)

// NewRand returns a generator seeded from the clock. The seed is logged so a
// failing run can be replayed.
func NewRand(t *testing.T) *rand.Rand {
	seed := uint64(time.Now().UnixNano())
	t.Logf("using random seed: %d", seed)
	return rand.New(rand.NewSource(seed))
}

// Ledger records every element it hands out and every Drop call on them.
type Ledger struct {
	made    map[int]int
	dropped map[int]int
	next    int
}

func NewLedger() *Ledger {
	return &Ledger{made: map[int]int{}, dropped: map[int]int{}}
}

// Tracked is an element whose Drop is recorded in its ledger.
type Tracked struct {
	ID int
	l  *Ledger
}

func (tr Tracked) Drop() {
	tr.l.dropped[tr.ID]++
}

func (l *Ledger) Make() Tracked {
	id := l.next
	l.next++
	l.made[id]++
	return Tracked{ID: id, l: l}
}

// Dropped returns how many Drop calls have been recorded.
func (l *Ledger) Dropped() int {
	n := 0
	for _, c := range l.dropped {
		n += c
	}
	return n
}

// RequireBalanced checks that every element made was dropped exactly once.
func (l *Ledger) RequireBalanced(t *testing.T) {
	t.Helper()
	require.Equal(t, len(l.made), len(l.dropped), "made and dropped element counts differ")
	for id, n := range l.made {
		require.Equal(t, 1, n, "element %d made more than once", id)
		require.Equal(t, 1, l.dropped[id], "element %d dropped %d times", id, l.dropped[id])
	}
}

// FailingAllocator refuses every allocation.
type FailingAllocator struct{ alloc.Heap }

func (FailingAllocator) Alloc(alloc.Layout) unsafe.Pointer { return nil }

func (FailingAllocator) Realloc(unsafe.Pointer, alloc.Layout, uintptr) unsafe.Pointer { return nil }

var scratch uint64

// BottomlessAllocator pretends every request succeeds without handing out
// real memory. It is only safe as long as nothing reads or writes the slots.
type BottomlessAllocator struct{ alloc.Heap }

func (BottomlessAllocator) Alloc(alloc.Layout) unsafe.Pointer { return unsafe.Pointer(&scratch) }

func (BottomlessAllocator) Realloc(p unsafe.Pointer, _ alloc.Layout, _ uintptr) unsafe.Pointer {
	return p
}

func (BottomlessAllocator) Dealloc(unsafe.Pointer, alloc.Layout) {}
