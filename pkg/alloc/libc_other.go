//go:build !linux && !darwin

package alloc

import (
	"errors"
	"reflect"
	"unsafe"
)

const MaxLibcAlign = 16

var errNoLibc = errors.New("alloc: libc allocator is not available on this platform")

// Libc is unavailable on this platform; NewLibc always fails.
type Libc struct{}

func NewLibc() (Libc, error) {
	return Libc{}, errNoLibc
}

func (Libc) Accepts(reflect.Type) error { return errNoLibc }

func (Libc) Alloc(Layout) unsafe.Pointer { return nil }

func (Libc) Realloc(unsafe.Pointer, Layout, uintptr) unsafe.Pointer { return nil }

func (Libc) Dealloc(unsafe.Pointer, Layout) {}
