// Package vec implements a growable contiguous array that manages its own
// storage.
//
// A Vec owns its elements and its memory. Go has no destructors, so the
// owner releases both explicitly with Drop; an IntoIter obtained from a Vec
// is released with Close. Elements implementing Dropper have Drop called
// exactly once when the container they live in is torn down. Elements moved
// out to the caller (Pop, Remove, iteration) are the caller's to drop.
package vec

import (
	"fmt"
	"iter"

	"github.com/eigerco/rawvec/pkg/alloc"
)

// Dropper is implemented by elements that need cleanup when the container
// owning them is released.
type Dropper interface {
	Drop()
}

type options struct {
	allocator alloc.Allocator
}

type Option func(*options)

// WithAllocator selects where the vector's memory comes from.
func WithAllocator(a alloc.Allocator) Option {
	return func(o *options) {
		o.allocator = a
	}
}

// Vec is a growable array. Slots [0, Len()) hold live elements, the rest of
// the capacity is zeroed memory. A Vec is not safe for concurrent use.
type Vec[T any] struct {
	buf RawBuf[T]
	len int
}

// New returns an empty vector. Nothing is allocated until the first element
// is added.
func New[T any](opts ...Option) *Vec[T] {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return &Vec[T]{buf: NewRawBuf[T](o.allocator)}
}

func (v *Vec[T]) Len() int {
	return v.len
}

func (v *Vec[T]) Cap() int {
	return v.buf.Cap()
}

func (v *Vec[T]) IsEmpty() bool {
	return v.len == 0
}

// Push appends x after the last element.
func (v *Vec[T]) Push(x T) {
	if v.len == v.buf.Cap() {
		v.buf.Grow()
	}
	v.buf.slots()[v.len] = x
	v.len++
}

// Extend pushes every element of xs in order.
func (v *Vec[T]) Extend(xs ...T) {
	for _, x := range xs {
		v.Push(x)
	}
}

// Pop moves the last element out of the vector. It reports false when the
// vector is empty.
func (v *Vec[T]) Pop() (T, bool) {
	var zero T
	if v.len == 0 {
		return zero, false
	}
	v.len--
	s := v.buf.slots()
	x := s[v.len]
	s[v.len] = zero
	return x, true
}

// Insert places x at index, shifting the elements after it one slot to the
// right. It panics if index > Len().
func (v *Vec[T]) Insert(index int, x T) {
	if index < 0 || index > v.len {
		panic(fmt.Sprintf("vec: insert index %d out of range [0:%d]", index, v.len))
	}
	if v.len == v.buf.Cap() {
		v.buf.Grow()
	}
	s := v.buf.slots()
	copy(s[index+1:v.len+1], s[index:v.len])
	s[index] = x
	v.len++
}

// Remove moves the element at index out of the vector, shifting the
// elements after it one slot to the left. It reports false when the vector
// is empty and panics if index is not a live element.
func (v *Vec[T]) Remove(index int) (T, bool) {
	var zero T
	if index < 0 || index > v.len {
		panic(fmt.Sprintf("vec: remove index %d out of range [0:%d]", index, v.len))
	}
	if v.len == 0 {
		return zero, false
	}
	if index == v.len {
		panic(fmt.Sprintf("vec: remove index %d out of range [0:%d)", index, v.len))
	}
	s := v.buf.slots()
	x := s[index]
	copy(s[index:v.len-1], s[index+1:v.len])
	v.len--
	s[v.len] = zero
	return x, true
}

// Slice returns the live elements. The slice aliases the vector's memory and
// is valid until the next call that changes the vector's length or capacity.
// Its capacity is clipped to Len() so appending to it never writes into the
// vector. An empty vector yields an empty, non-nil slice.
func (v *Vec[T]) Slice() []T {
	if v.buf.cap == 0 {
		return []T{}
	}
	return v.buf.slots()[:v.len:v.len]
}

// At returns the element at i. It panics if i is out of range.
func (v *Vec[T]) At(i int) T {
	return v.Slice()[i]
}

// Set overwrites the element at i. The previous value is not dropped. It
// panics if i is out of range.
func (v *Vec[T]) Set(i int, x T) {
	v.Slice()[i] = x
}

// All iterates over the live elements without consuming them.
func (v *Vec[T]) All() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		for i := 0; i < v.len; i++ {
			if !yield(i, v.buf.slots()[i]) {
				return
			}
		}
	}
}

// Clear drops every element and keeps the capacity.
func (v *Vec[T]) Clear() {
	for {
		x, ok := v.Pop()
		if !ok {
			return
		}
		drop(x)
	}
}

// Drop drops every element, last to first, and then releases the memory.
// The vector is empty afterwards and may be reused.
func (v *Vec[T]) Drop() {
	v.Clear()
	v.buf.Drop()
}

// IntoIter moves the elements and the memory into an iterator. The vector is
// left empty; dropping it afterwards does not touch the moved elements.
func (v *Vec[T]) IntoIter() *IntoIter[T] {
	it := &IntoIter[T]{buf: v.buf.take(), back: v.len}
	v.len = 0
	return it
}

func drop[T any](x T) {
	if d, ok := any(x).(Dropper); ok {
		d.Drop()
	}
}
