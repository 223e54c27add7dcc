//go:build linux || darwin

package alloc

import (
	"fmt"
	"reflect"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"

	"github.com/eigerco/rawvec/pkg/log"
)

// MaxLibcAlign is the alignment malloc guarantees on the supported platforms.
const MaxLibcAlign = 16

var (
	libcOnce sync.Once
	libcErr  error

	cMalloc  func(size uintptr) unsafe.Pointer
	cRealloc func(ptr unsafe.Pointer, size uintptr) unsafe.Pointer
	cFree    func(ptr unsafe.Pointer)
)

func loadLibc() {
	lib, err := purego.Dlopen(libcName, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		libcErr = fmt.Errorf("alloc: unable to load %s: %w", libcName, err)
		return
	}

	// Register the C allocator functions with Go using purego.
	purego.RegisterLibFunc(&cMalloc, lib, "malloc")
	purego.RegisterLibFunc(&cRealloc, lib, "realloc")
	purego.RegisterLibFunc(&cFree, lib, "free")

	log.Alloc.Debug().Str("library", libcName).Msg("libc allocator loaded")
}

// Libc allocates outside the Go heap with the C library's malloc, realloc
// and free. The garbage collector never scans that memory, so only element
// types without pointers are accepted.
type Libc struct{}

// NewLibc loads the C library on first use.
func NewLibc() (Libc, error) {
	libcOnce.Do(loadLibc)
	return Libc{}, libcErr
}

func (Libc) Accepts(elem reflect.Type) error {
	if elem.Size() == 0 {
		return ErrZeroSized
	}
	if HasPointers(elem) {
		return fmt.Errorf("%w: %v", ErrPointerElem, elem)
	}
	if elem.Align() > MaxLibcAlign {
		return fmt.Errorf("%w: %v needs %d bytes", ErrAlignment, elem, elem.Align())
	}
	return nil
}

func (Libc) Alloc(l Layout) unsafe.Pointer {
	if l.Size == 0 {
		return nil
	}
	p := cMalloc(l.Size)
	if p == nil {
		return nil
	}
	clear(unsafe.Slice((*byte)(p), l.Size))
	return p
}

func (Libc) Realloc(ptr unsafe.Pointer, old Layout, newSize uintptr) unsafe.Pointer {
	if newSize == 0 {
		return nil
	}
	p := cRealloc(ptr, newSize)
	if p == nil {
		return nil
	}
	if newSize > old.Size {
		clear(unsafe.Slice((*byte)(unsafe.Add(p, old.Size)), newSize-old.Size))
	}
	return p
}

func (Libc) Dealloc(ptr unsafe.Pointer, _ Layout) {
	cFree(ptr)
}
