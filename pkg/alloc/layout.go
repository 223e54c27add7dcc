package alloc

import (
	"errors"
	"fmt"
	"math"
	"reflect"

	"github.com/eigerco/rawvec/internal/safemath"
)

var (
	ErrCapacityOverflow = errors.New("alloc: capacity overflow")
	ErrZeroSized        = errors.New("alloc: zero-sized element type")
	ErrPointerElem      = errors.New("alloc: element type contains pointers")
	ErrAlignment        = errors.New("alloc: unsupported alignment")
)

// Layout describes a block of memory: its size and alignment in bytes and
// the element type stored in it.
type Layout struct {
	Size  uintptr
	Align uintptr
	Elem  reflect.Type
}

// ArrayLayout returns the layout of n contiguous elements of type elem.
// It fails with ErrCapacityOverflow when the byte size does not fit in an
// int, the largest object size Go can address.
func ArrayLayout(elem reflect.Type, n int) (Layout, error) {
	if elem.Size() == 0 {
		return Layout{}, ErrZeroSized
	}
	if n < 0 {
		return Layout{}, fmt.Errorf("%w: negative element count %d", ErrCapacityOverflow, n)
	}
	size, ok := safemath.Mul(elem.Size(), uintptr(n))
	if !ok || size > math.MaxInt {
		return Layout{}, fmt.Errorf("%w: %d elements of %d bytes", ErrCapacityOverflow, n, elem.Size())
	}
	return Layout{Size: size, Align: uintptr(elem.Align()), Elem: elem}, nil
}

// Len returns the number of elements the layout holds.
func (l Layout) Len() int {
	if l.Elem == nil || l.Elem.Size() == 0 {
		return 0
	}
	return int(l.Size / l.Elem.Size())
}

func (l Layout) String() string {
	return fmt.Sprintf("[%d]%v (%d bytes, align %d)", l.Len(), l.Elem, l.Size, l.Align)
}

// HasPointers reports whether values of type t hold references the garbage
// collector has to trace.
func HasPointers(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return false
	case reflect.Array:
		return t.Len() > 0 && HasPointers(t.Elem())
	case reflect.Struct:
		for i := range t.NumField() {
			if HasPointers(t.Field(i).Type) {
				return true
			}
		}
		return false
	default:
		return true
	}
}
