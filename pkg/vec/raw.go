package vec

import (
	"fmt"
	"reflect"
	"unsafe"

	"github.com/eigerco/rawvec/internal/safemath"
	"github.com/eigerco/rawvec/pkg/alloc"
	"github.com/eigerco/rawvec/pkg/log"
)

// dangling stands in for the block address while nothing is allocated. It
// is never dereferenced.
var dangling = unsafe.Pointer(new(uintptr))

// RawBuf owns a block of memory with room for Cap() elements of T. It knows
// nothing about which slots hold live values: constructing and destroying
// elements is the job of its owner.
type RawBuf[T any] struct {
	ptr    unsafe.Pointer
	cap    int
	layout alloc.Layout
	elem   reflect.Type
	a      alloc.Allocator
}

// NewRawBuf returns an empty buffer drawing memory from a, or from
// alloc.Default when a is nil. It panics for zero-sized element types and
// for element types the allocator refuses.
func NewRawBuf[T any](a alloc.Allocator) RawBuf[T] {
	elem := reflect.TypeFor[T]()
	if elem.Size() == 0 {
		panic(fmt.Sprintf("vec: zero-sized element type %v is not supported", elem))
	}
	if a == nil {
		a = alloc.Default
	}
	if err := a.Accepts(elem); err != nil {
		panic(fmt.Sprintf("vec: %v", err))
	}
	return RawBuf[T]{ptr: dangling, elem: elem, a: a}
}

func (b *RawBuf[T]) Cap() int {
	return b.cap
}

// Ptr returns the start of the block, or a non-nil placeholder when the
// capacity is zero.
func (b *RawBuf[T]) Ptr() unsafe.Pointer {
	if b.ptr == nil {
		return dangling
	}
	return b.ptr
}

// Grow doubles the capacity, or allocates a single slot when the buffer is
// empty. Capacity overflow and allocation failure terminate the process.
func (b *RawBuf[T]) Grow() {
	if b.a == nil {
		*b = NewRawBuf[T](nil)
	}

	newCap := 1
	if b.cap != 0 {
		var ok bool
		if newCap, ok = safemath.Mul(b.cap, 2); !ok {
			alloc.CapacityOverflow(fmt.Errorf("%w: doubling %d", alloc.ErrCapacityOverflow, b.cap))
			return
		}
	}
	newLayout, err := alloc.ArrayLayout(b.elem, newCap)
	if err != nil {
		alloc.CapacityOverflow(err)
		return
	}

	var p unsafe.Pointer
	if b.cap == 0 {
		p = b.a.Alloc(newLayout)
	} else {
		p = b.a.Realloc(b.ptr, b.layout, newLayout.Size)
	}
	if p == nil {
		alloc.HandleAllocError(newLayout)
		return
	}

	log.Vec.Debug().Int("from", b.cap).Int("to", newCap).Stringer("layout", newLayout).Msg("grow")
	b.ptr, b.cap, b.layout = p, newCap, newLayout
}

// Drop releases the block. It is a no-op on an empty buffer, and leaves the
// buffer empty so a second call does nothing.
func (b *RawBuf[T]) Drop() {
	if b.cap == 0 {
		return
	}
	log.Vec.Debug().Stringer("layout", b.layout).Msg("free")
	b.a.Dealloc(b.ptr, b.layout)
	b.ptr, b.cap, b.layout = dangling, 0, alloc.Layout{}
}

// take moves the block out of b into the returned buffer and leaves b empty,
// so only the returned buffer will ever release it.
func (b *RawBuf[T]) take() RawBuf[T] {
	moved := *b
	b.ptr, b.cap, b.layout = dangling, 0, alloc.Layout{}
	return moved
}

// slots returns every slot of the block, initialized or not.
func (b *RawBuf[T]) slots() []T {
	if b.cap == 0 {
		return nil
	}
	return unsafe.Slice((*T)(b.ptr), b.cap)
}
