package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envFrom(vars map[string]string) func(string) string {
	return func(key string) string { return vars[key] }
}

func newManifest(t *testing.T) string {
	t.Helper()
	manifest := t.TempDir()
	header, err := os.ReadFile(filepath.Join("..", "..", "testdata", "uiohook.h"))
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Join(manifest, "vendor", ".git"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(manifest, "vendor", "include"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(manifest, "vendor", "include", "uiohook.h"), header, 0o644))
	return manifest
}

func TestRunSystemLibrary(t *testing.T) {
	manifest := newManifest(t)
	var stdout, stderr bytes.Buffer

	code := run(context.Background(), []string{"-static=false", "-bindgen=false"}, envFrom(map[string]string{
		"TARGET":       "x86_64-unknown-linux-gnu",
		"OUT_DIR":      t.TempDir(),
		"MANIFEST_DIR": manifest,
	}), &stdout, &stderr)

	require.Equal(t, exitOK, code, stderr.String())
	assert.Equal(t,
		"hookbuild:rerun-if-changed="+filepath.Join(manifest, "vendor", "include", "uiohook.h")+"\n"+
			"hookbuild:link-lib=uiohook\n",
		stdout.String())
	assert.Contains(t, stderr.String(), "linking system libuiohook")
}

func TestRunFlagsOverrideEnvironment(t *testing.T) {
	manifest := newManifest(t)
	var stdout, stderr bytes.Buffer

	code := run(context.Background(), []string{
		"-target", "aarch64-apple-darwin",
		"-out-dir", t.TempDir(),
		"-manifest-dir", manifest,
		"-static=false",
		"-bindgen",
	}, envFrom(nil), &stdout, &stderr)

	require.Equal(t, exitOK, code, stderr.String())
	assert.FileExists(t, filepath.Join(manifest, "bindings.go"))
	assert.Contains(t, stdout.String(), "hookbuild:link-lib=uiohook\n")
}

func TestRunMissingEnvironment(t *testing.T) {
	var stdout, stderr bytes.Buffer

	code := run(context.Background(), nil, envFrom(map[string]string{
		"OUT_DIR":      t.TempDir(),
		"MANIFEST_DIR": t.TempDir(),
	}), &stdout, &stderr)

	assert.Equal(t, exitFailure, code)
	assert.Contains(t, stderr.String(), "TARGET")
	assert.Empty(t, stdout.String())
}

func TestRunBadFlag(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-no-such-flag"}, envFrom(nil), &stdout, &stderr)
	assert.Equal(t, exitUsage, code)
}

func TestRunWritesCgoFile(t *testing.T) {
	manifest := newManifest(t)
	cgoOut := filepath.Join(t.TempDir(), "link_uiohook.go")
	var stdout, stderr bytes.Buffer

	code := run(context.Background(), []string{"-static=false", "-bindgen=false", "-cgo-out", cgoOut, "-cgo-package", "hook"}, envFrom(map[string]string{
		"TARGET":       "x86_64-unknown-linux-gnu",
		"OUT_DIR":      t.TempDir(),
		"MANIFEST_DIR": manifest,
	}), &stdout, &stderr)
	require.Equal(t, exitOK, code, stderr.String())

	data, err := os.ReadFile(cgoOut)
	require.NoError(t, err)
	assert.Contains(t, string(data), "package hook")
	assert.Contains(t, string(data), "#cgo LDFLAGS: -luiohook")
}

func TestRunClean(t *testing.T) {
	outDir := t.TempDir()
	buildDir := filepath.Join(outDir, "vendor", "build")
	require.NoError(t, os.MkdirAll(buildDir, 0o755))
	var stdout, stderr bytes.Buffer

	code := run(context.Background(), []string{"-clean"}, envFrom(map[string]string{
		"TARGET":       "x86_64-unknown-linux-gnu",
		"OUT_DIR":      outDir,
		"MANIFEST_DIR": t.TempDir(),
	}), &stdout, &stderr)

	require.Equal(t, exitOK, code, stderr.String())
	assert.NoDirExists(t, buildDir)
	assert.Empty(t, stdout.String())
}

func TestRunStaticSkipsFinishedBuild(t *testing.T) {
	manifest := newManifest(t)
	outDir := t.TempDir()
	buildDir := filepath.Join(outDir, "vendor", "build")
	require.NoError(t, os.MkdirAll(buildDir, 0o755))
	var stdout, stderr bytes.Buffer

	code := run(context.Background(), []string{"-static", "-bindgen=false"}, envFrom(map[string]string{
		"TARGET":       "x86_64-unknown-linux-gnu",
		"OUT_DIR":      outDir,
		"MANIFEST_DIR": manifest,
	}), &stdout, &stderr)

	require.Equal(t, exitOK, code, stderr.String())
	assert.Contains(t, stdout.String(), "hookbuild:link-search="+buildDir+"\n")
	assert.Contains(t, stderr.String(), "already built")
}
