package alloc_test

import (
	"math"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eigerco/rawvec/pkg/alloc"
)

type point struct {
	X, Y int32
}

type named struct {
	ID   uint64
	Name string
}

func TestArrayLayout(t *testing.T) {
	tests := []struct {
		name     string
		elem     reflect.Type
		n        int
		wantSize uintptr
		wantErr  error
	}{
		{"single int64", reflect.TypeFor[int64](), 1, 8, nil},
		{"struct array", reflect.TypeFor[point](), 16, 128, nil},
		{"empty array", reflect.TypeFor[point](), 0, 0, nil},
		{"negative count", reflect.TypeFor[point](), -1, 0, alloc.ErrCapacityOverflow},
		{"beyond max int", reflect.TypeFor[point](), math.MaxInt/8 + 1, 0, alloc.ErrCapacityOverflow},
		{"wraps around", reflect.TypeFor[[1 << 20]byte](), math.MaxInt, 0, alloc.ErrCapacityOverflow},
		{"zero sized", reflect.TypeFor[struct{}](), 4, 0, alloc.ErrZeroSized},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			l, err := alloc.ArrayLayout(tc.elem, tc.n)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantSize, l.Size)
			assert.Equal(t, uintptr(tc.elem.Align()), l.Align)
			assert.Equal(t, tc.n, l.Len())
		})
	}
}

func TestHasPointers(t *testing.T) {
	tests := []struct {
		typ  reflect.Type
		want bool
	}{
		{reflect.TypeFor[int](), false},
		{reflect.TypeFor[point](), false},
		{reflect.TypeFor[[4]complex128](), false},
		{reflect.TypeFor[[0]*int](), false},
		{reflect.TypeFor[uintptr](), false},
		{reflect.TypeFor[*int](), true},
		{reflect.TypeFor[string](), true},
		{reflect.TypeFor[[]byte](), true},
		{reflect.TypeFor[named](), true},
		{reflect.TypeFor[[2]named](), true},
		{reflect.TypeFor[any](), true},
		{reflect.TypeFor[map[int]int](), true},
		{reflect.TypeFor[func()](), true},
	}

	for _, tc := range tests {
		t.Run(tc.typ.String(), func(t *testing.T) {
			assert.Equal(t, tc.want, alloc.HasPointers(tc.typ))
		})
	}
}
