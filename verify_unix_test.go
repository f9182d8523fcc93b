//go:build darwin || linux || freebsd

package hookbuild

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func systemLibc(t *testing.T) string {
	t.Helper()
	for _, candidate := range []string{
		"/lib/x86_64-linux-gnu/libc.so.6",
		"/lib/aarch64-linux-gnu/libc.so.6",
		"/lib64/libc.so.6",
		"/usr/lib/libSystem.B.dylib",
		"/lib/libc.so.7",
	} {
		if pathExists(candidate) {
			return candidate
		}
	}
	t.Skip("no known libc path on this system")
	return ""
}

func TestVerifyLibraryResolvesSymbols(t *testing.T) {
	libc := systemLibc(t)

	require.NoError(t, VerifyLibrary(libc, []string{"malloc", "free"}))

	err := VerifyLibrary(libc, []string{"malloc", "hook_run"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing symbols: hook_run")
}

func TestVerifyLibraryMissingFile(t *testing.T) {
	err := VerifyLibrary(filepath.Join(t.TempDir(), "libuiohook.so"), []string{"hook_run"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load")
}

func TestPipelineVerifyFailsWithoutLibrary(t *testing.T) {
	config := newProject(t, "x86_64-unknown-linux-gnu")
	config.Features.Static = true
	config.Verify = true
	var out bytes.Buffer

	_, err := newTestPipeline(&recordingRunner{}, &out).Run(context.Background(), config)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load")
	assert.Empty(t, out.String())
}
