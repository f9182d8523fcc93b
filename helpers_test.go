package hookbuild

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompilePatterns(t *testing.T) {
	tests := []struct {
		name     string
		symbol   string
		patterns []string
		want     bool
	}{
		{"exact", "hook_run", []string{"hook_run"}, true},
		{"prefix wildcard", "_event_type_EVENT_KEY_PRESSED", []string{`_event_type_EVENT.*`}, true},
		{"anchored start", "x_event_type_EVENT", []string{`_event_type_EVENT.*`}, false},
		{"anchored end", "hook_run_forever", []string{"hook_run"}, false},
		{"any of several", "hook_stop", []string{"hook_run", "hook_stop"}, true},
		{"alternation stays anchored", "my_hook_stop", []string{"hook_run|hook_stop"}, false},
		{"no patterns", "hook_run", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set, err := compilePatterns("function", tt.patterns)
			require.NoError(t, err)
			assert.Equal(t, tt.want, set.match(tt.symbol))
		})
	}
}

func TestCompilePatternsInvalid(t *testing.T) {
	_, err := compilePatterns("var", []string{"_event_type_EVENT.*", "hook_(run"})
	require.ErrorIs(t, err, ErrHeaderParse)
	assert.Contains(t, err.Error(), `invalid var pattern "hook_(run"`)
}

func TestBuildError(t *testing.T) {
	cause := errors.New("exit status 1")

	err := BuildError("CMake configure", []string{"line one", "line two"}, cause)
	assert.Equal(t, "CMake configure failed: exit status 1\n\nBuild output:\nline one\nline two", err.Error())
	assert.ErrorIs(t, err, cause)

	assert.Equal(t, "CMake build failed: exit status 1", BuildError("CMake build", nil, cause).Error())
	assert.Equal(t, "CMake build failed", BuildError("CMake build", nil, nil).Error())
	assert.Equal(t, "CMake build failed\n\nBuild output:\nout", BuildError("CMake build", []string{"out"}, nil).Error())
}

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "uiohook.h")
	require.NoError(t, os.WriteFile(src, []byte("int hook_run(void);\n"), 0o640))

	dest := filepath.Join(dir, "out", "include", "uiohook.h")
	require.NoError(t, copyFile(src, dest))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "int hook_run(void);\n", string(data))

	err = copyFile(filepath.Join(dir, "missing.h"), dest)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "bindings.go")

	require.NoError(t, writeFileAtomic(path, []byte("one"), 0o644))
	require.NoError(t, writeFileAtomic(path, []byte("two"), 0o644))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestWriteFileAtomicIntoFile(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	err := writeFileAtomic(filepath.Join(blocker, "bindings.go"), []byte("x"), 0o644)
	assert.Error(t, err)
}

func TestDirExists(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	assert.True(t, dirExists(dir))
	assert.False(t, dirExists(file))
	assert.False(t, dirExists(filepath.Join(dir, "missing")))
	assert.True(t, pathExists(file))
}
