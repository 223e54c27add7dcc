// Package alloc provides the raw memory allocators backing the vec package.
//
// An Allocator hands out untyped blocks described by a Layout. It never
// constructs or destroys the values stored in them: nil is returned on
// failure, and the caller decides whether that is fatal.
package alloc

import (
	"reflect"
	"unsafe"
)

type Allocator interface {
	// Accepts reports whether blocks of elem can be served by this allocator.
	Accepts(elem reflect.Type) error

	// Alloc returns a zeroed block for l, or nil.
	Alloc(l Layout) unsafe.Pointer

	// Realloc resizes the block at ptr, currently described by old, to
	// newSize bytes. The first min(old.Size, newSize) bytes are preserved and
	// any extra bytes are zeroed. On success ptr must no longer be used. On
	// failure nil is returned and ptr is left untouched.
	Realloc(ptr unsafe.Pointer, old Layout, newSize uintptr) unsafe.Pointer

	// Dealloc releases the block at ptr which must have been returned by this
	// allocator with layout l.
	Dealloc(ptr unsafe.Pointer, l Layout)
}

// Default is used when no allocator is configured.
var Default Allocator = Heap{}
