package alloc_test

import (
	"fmt"
	"reflect"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eigerco/rawvec/internal/testutils"
	"github.com/eigerco/rawvec/pkg/alloc"
)

func TestTracking_Balance(t *testing.T) {
	tr := alloc.NewTracking(alloc.Heap{})

	l1, err := alloc.ArrayLayout(reflect.TypeFor[int64](), 1)
	require.NoError(t, err)
	l2, err := alloc.ArrayLayout(reflect.TypeFor[int64](), 2)
	require.NoError(t, err)

	a := tr.Alloc(l1)
	b := tr.Alloc(l1)
	require.Equal(t, 2, tr.Live())

	a = tr.Realloc(a, l1, l2.Size)
	require.NotNil(t, a)
	require.Equal(t, 2, tr.Live())

	st := tr.Stats()
	assert.Equal(t, 2, st.Allocs)
	assert.Equal(t, 1, st.Reallocs)
	assert.Equal(t, uintptr(24), st.LiveBytes)
	assert.Equal(t, uintptr(24), st.PeakBytes)

	tr.Dealloc(a, l2)
	tr.Dealloc(b, l1)

	st = tr.Stats()
	assert.Zero(t, tr.Live())
	assert.Equal(t, 2, st.Frees)
	assert.Zero(t, st.LiveBytes)
	assert.Equal(t, uintptr(24), st.PeakBytes)
}

func TestTracking_DoubleFree(t *testing.T) {
	tr := alloc.NewTracking(nil)
	l, err := alloc.ArrayLayout(reflect.TypeFor[int32](), 4)
	require.NoError(t, err)

	p := tr.Alloc(l)
	tr.Dealloc(p, l)
	assert.PanicsWithValue(t,
		"alloc: free of untracked block "+ptrString(p)+" (double free?)",
		func() { tr.Dealloc(p, l) })
}

func TestTracking_LayoutMismatch(t *testing.T) {
	tr := alloc.NewTracking(nil)
	l, err := alloc.ArrayLayout(reflect.TypeFor[int32](), 4)
	require.NoError(t, err)
	wrong, err := alloc.ArrayLayout(reflect.TypeFor[int32](), 8)
	require.NoError(t, err)

	p := tr.Alloc(l)
	assert.Panics(t, func() { tr.Dealloc(p, wrong) })
	assert.Panics(t, func() { tr.Realloc(p, wrong, 64) })
	tr.Dealloc(p, l)
	assert.Zero(t, tr.Live())
}

func TestTracking_Failures(t *testing.T) {
	tr := alloc.NewTracking(testutils.FailingAllocator{})
	l, err := alloc.ArrayLayout(reflect.TypeFor[int32](), 4)
	require.NoError(t, err)

	assert.Nil(t, tr.Alloc(l))
	assert.Zero(t, tr.Live())
	assert.Equal(t, 1, tr.Stats().Failures)
}

func ptrString(p unsafe.Pointer) string {
	return fmt.Sprintf("%p", p)
}
