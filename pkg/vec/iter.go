package vec

import "iter"

// IntoIter yields the elements of a consumed Vec from either end. Slots
// [front, back) hold the elements not yet yielded.
type IntoIter[T any] struct {
	buf   RawBuf[T]
	front int
	back  int
}

// Next moves out the element at the front. It reports false once every
// element has been yielded.
func (it *IntoIter[T]) Next() (T, bool) {
	var zero T
	if it.front == it.back {
		return zero, false
	}
	s := it.buf.slots()
	x := s[it.front]
	s[it.front] = zero
	it.front++
	return x, true
}

// NextBack moves out the element at the back.
func (it *IntoIter[T]) NextBack() (T, bool) {
	var zero T
	if it.front == it.back {
		return zero, false
	}
	it.back--
	s := it.buf.slots()
	x := s[it.back]
	s[it.back] = zero
	return x, true
}

// Len returns the number of elements left.
func (it *IntoIter[T]) Len() int {
	return it.back - it.front
}

// Close drops the elements that were not yielded and releases the memory.
// Calling Close more than once is a no-op.
func (it *IntoIter[T]) Close() error {
	for {
		x, ok := it.Next()
		if !ok {
			break
		}
		drop(x)
	}
	it.buf.Drop()
	it.front, it.back = 0, 0
	return nil
}

// Seq drains the iterator from the front. The iterator is closed when the
// loop ends, including on break.
func (it *IntoIter[T]) Seq() iter.Seq[T] {
	return func(yield func(T) bool) {
		defer it.Close() //nolint:errcheck // Close never fails
		for {
			x, ok := it.Next()
			if !ok || !yield(x) {
				return
			}
		}
	}
}

// Backward drains the iterator from the back. The iterator is closed when
// the loop ends, including on break.
func (it *IntoIter[T]) Backward() iter.Seq[T] {
	return func(yield func(T) bool) {
		defer it.Close() //nolint:errcheck // Close never fails
		for {
			x, ok := it.NextBack()
			if !ok || !yield(x) {
				return
			}
		}
	}
}
