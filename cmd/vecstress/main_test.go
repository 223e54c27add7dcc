package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eigerco/rawvec/pkg/log"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestRun_ReportsBadInput(t *testing.T) {
	t.Cleanup(func() { log.Init(log.Options{Out: io.Discard}) })

	tests := []struct {
		name string
		args []string
		want string
	}{
		{
			name: "unknown_allocator_flag",
			args: []string{"-allocator", "bogus"},
			want: `unknown allocator \"bogus\"`,
		},
		{
			name: "unknown_allocator_in_config",
			args: []string{"-config", writeConfig(t, `{"allocator": "heep"}`)},
			want: `unknown allocator \"heep\"`,
		},
		{
			name: "malformed_config",
			args: []string{"-config", writeConfig(t, `{"ops": `)},
			want: "error unmarshaling JSON",
		},
		{
			name: "missing_config",
			args: []string{"-config", filepath.Join(t.TempDir(), "nope.json")},
			want: "error reading file",
		},
		{
			name: "bad_log_level",
			args: []string{"-log-level", "nope"},
			want: "invalid log level",
		},
		{
			name: "unknown_flag",
			args: []string{"-frobnicate"},
			want: "flag provided but not defined",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var out bytes.Buffer
			code := run(tc.args, &out)

			assert.Equal(t, 1, code)
			assert.Contains(t, out.String(), "vecstress failed")
			assert.Contains(t, out.String(), tc.want)
		})
	}
}

func TestRun_Workload(t *testing.T) {
	t.Cleanup(func() { log.Init(log.Options{Out: io.Discard}) })

	var out bytes.Buffer
	code := run([]string{"-ops", "500", "-seed", "7", "-log-json"}, &out)

	require.Equal(t, 0, code, out.String())
	assert.Contains(t, out.String(), `"message":"workload finished"`)
	assert.NotContains(t, out.String(), "vecstress failed")
}

func TestRun_Help(t *testing.T) {
	t.Cleanup(func() { log.Init(log.Options{Out: io.Discard}) })

	var out bytes.Buffer
	assert.Equal(t, 0, run([]string{"-h"}, &out))
	assert.Contains(t, out.String(), "-allocator")
}
