package hookbuild

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// recordingRunner records every command instead of running it.
type recordingRunner struct {
	mu    sync.Mutex
	calls []Command
	onRun func(cmd Command) (*CommandResult, error)
}

func (r *recordingRunner) Run(ctx context.Context, cmd Command) (*CommandResult, error) {
	r.mu.Lock()
	r.calls = append(r.calls, cmd)
	r.mu.Unlock()

	if r.onRun != nil {
		return r.onRun(cmd)
	}
	return &CommandResult{}, nil
}

func (r *recordingRunner) count(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, c := range r.calls {
		if c.Name == name {
			n++
		}
	}
	return n
}

func failingRunner(status int) *recordingRunner {
	return &recordingRunner{onRun: func(cmd Command) (*CommandResult, error) {
		return &CommandResult{ExitCode: status, Output: []string{cmd.Name + ": boom"}}, errors.New("exit status 1")
	}}
}

func lookPathFound(file string) (string, error) {
	return "/usr/bin/" + file, nil
}

func mustTarget(t *testing.T, triple string) Target {
	t.Helper()
	target, err := ParseTarget(triple)
	require.NoError(t, err)
	return target
}

// newProject lays out a manifest dir with a checked-out vendor tree and
// returns a config pointing at it.
func newProject(t *testing.T, triple string) *BuildConfig {
	t.Helper()

	root := t.TempDir()
	manifest := filepath.Join(root, "project")
	header, err := os.ReadFile(filepath.Join("testdata", "uiohook.h"))
	require.NoError(t, err)

	require.NoError(t, os.MkdirAll(filepath.Join(manifest, "vendor", ".git"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(manifest, "vendor", "include"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(manifest, "vendor", "include", "uiohook.h"), header, 0o644))

	return &BuildConfig{
		ManifestDir: manifest,
		OutDir:      filepath.Join(root, "out"),
		Target:      mustTarget(t, triple),
	}
}
