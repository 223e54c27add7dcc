package alloc

import (
	"reflect"
	"unsafe"
)

// Heap allocates from the Go runtime. Blocks are typed slices so the garbage
// collector keeps tracing pointers stored in elements; Dealloc clears the
// block and leaves reclaiming it to the collector.
type Heap struct{}

func (Heap) Accepts(elem reflect.Type) error {
	if elem.Size() == 0 {
		return ErrZeroSized
	}
	return nil
}

func (Heap) Alloc(l Layout) (p unsafe.Pointer) {
	n := l.Len()
	if n == 0 {
		return nil
	}
	// MakeSlice panics when the block exceeds the runtime's allocation limit.
	defer func() {
		if recover() != nil {
			p = nil
		}
	}()
	return reflect.MakeSlice(reflect.SliceOf(l.Elem), n, n).UnsafePointer()
}

func (h Heap) Realloc(ptr unsafe.Pointer, old Layout, newSize uintptr) unsafe.Pointer {
	grown := Layout{Size: newSize, Align: old.Align, Elem: old.Elem}
	p := h.Alloc(grown)
	if p == nil {
		return nil
	}
	reflect.Copy(
		reflect.SliceAt(old.Elem, p, grown.Len()),
		reflect.SliceAt(old.Elem, ptr, old.Len()),
	)
	h.Dealloc(ptr, old)
	return p
}

func (Heap) Dealloc(ptr unsafe.Pointer, l Layout) {
	reflect.SliceAt(l.Elem, ptr, l.Len()).Clear()
}
