package alloc_test

import (
	"bytes"
	"errors"
	"reflect"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eigerco/rawvec/pkg/alloc"
	"github.com/eigerco/rawvec/pkg/log"
)

type exitCode int

func captureFatal(t *testing.T, fn func()) (code int, output string) {
	t.Helper()

	var buf bytes.Buffer
	log.Init(log.Options{LogLevel: zerolog.InfoLevel, Type: log.JSONLogger, Out: &buf})
	t.Cleanup(func() { log.Init(log.Options{LogLevel: zerolog.Disabled, Out: &bytes.Buffer{}}) })

	restore := alloc.SetExit(func(c int) { panic(exitCode(c)) })
	defer restore()

	defer func() {
		r := recover()
		c, ok := r.(exitCode)
		require.True(t, ok, "expected the process to exit, got %v", r)
		code, output = int(c), buf.String()
	}()
	fn()
	return 0, buf.String()
}

func TestHandleAllocError(t *testing.T) {
	l, err := alloc.ArrayLayout(reflect.TypeFor[int64](), 8)
	require.NoError(t, err)

	code, out := captureFatal(t, func() { alloc.HandleAllocError(l) })
	assert.Equal(t, 1, code)
	assert.Contains(t, out, `"level":"fatal"`)
	assert.Contains(t, out, `"message":"memory allocation failed"`)
	assert.Contains(t, out, `"size":64`)
}

func TestCapacityOverflow(t *testing.T) {
	code, out := captureFatal(t, func() {
		alloc.CapacityOverflow(errors.New("too many elements"))
	})
	assert.Equal(t, 1, code)
	assert.Contains(t, out, `"message":"capacity overflow"`)
	assert.Contains(t, out, "too many elements")
}
