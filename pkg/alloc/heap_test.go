package alloc_test

import (
	"reflect"
	"runtime"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eigerco/rawvec/pkg/alloc"
)

func TestHeap_AllocReallocDealloc(t *testing.T) {
	var h alloc.Heap
	require.NoError(t, h.Accepts(reflect.TypeFor[named]()))

	l, err := alloc.ArrayLayout(reflect.TypeFor[named](), 2)
	require.NoError(t, err)

	p := h.Alloc(l)
	require.NotNil(t, p)

	s := unsafe.Slice((*named)(p), 2)
	assert.Equal(t, named{}, s[0], "blocks must start zeroed")
	s[0] = named{ID: 1, Name: "one"}
	s[1] = named{ID: 2, Name: "two"}

	// Pointers held by elements must survive a collection.
	runtime.GC()

	grown := h.Realloc(p, l, l.Size*2)
	require.NotNil(t, grown)
	g := unsafe.Slice((*named)(grown), 4)
	assert.Equal(t, named{ID: 1, Name: "one"}, g[0])
	assert.Equal(t, named{ID: 2, Name: "two"}, g[1])
	assert.Equal(t, named{}, g[2])
	assert.Equal(t, named{}, g[3])

	// The old block is cleared so it no longer pins the strings.
	assert.Equal(t, named{}, s[0])

	big, err := alloc.ArrayLayout(reflect.TypeFor[named](), 4)
	require.NoError(t, err)
	h.Dealloc(grown, big)
	assert.Equal(t, named{}, g[0])
}

func TestHeap_AllocTooLarge(t *testing.T) {
	if unsafe.Sizeof(uintptr(0)) < 8 {
		t.Skip("needs a 64-bit address space")
	}
	var h alloc.Heap
	l, err := alloc.ArrayLayout(reflect.TypeFor[[1 << 20]byte](), 1<<42)
	require.NoError(t, err)
	assert.Nil(t, h.Alloc(l))
}
