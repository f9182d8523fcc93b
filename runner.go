package hookbuild

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
	"sync"

	"github.com/magefile/mage/sh"
)

// Command describes one external tool invocation.
type Command struct {
	Dir  string            // Working directory; empty uses the current one
	Name string            // Executable name, e.g. "cmake"
	Args []string          // Arguments, in order
	Env  map[string]string // Added on top of the inherited process environment
}

// String renders the command line for logs.
func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}

// CommandResult is the observable outcome of a command.
type CommandResult struct {
	ExitCode int      // Process exit status, -1 if the process never started
	Output   []string // Combined stdout/stderr lines
}

// Runner executes external commands.
//
// The pipeline never spawns a process directly; every invocation goes
// through a Runner so tests can substitute a recording stub.
type Runner interface {
	// Run executes cmd to completion. A non-nil error is returned when the
	// command could not start or exited with a non-zero status; the result
	// is still populated with whatever output was captured.
	Run(ctx context.Context, cmd Command) (*CommandResult, error)
}

// ExecRunner runs commands as real subprocesses.
//
// Output is streamed to Stdout/Stderr (the inherited streams) and captured
// at the same time so it can be attached to build errors.
type ExecRunner struct {
	Stdout io.Writer
	Stderr io.Writer
}

// NewExecRunner returns a Runner that inherits the given streams.
// nil streams fall back to os.Stdout and os.Stderr.
func NewExecRunner(stdout, stderr io.Writer) *ExecRunner {
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	return &ExecRunner{Stdout: stdout, Stderr: stderr}
}

// Run executes the command and waits for it to exit.
func (r *ExecRunner) Run(ctx context.Context, cmd Command) (*CommandResult, error) {
	captured := &lockedBuffer{}

	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	c.Stdin = os.Stdin
	c.Stdout = io.MultiWriter(r.stdout(), captured)
	c.Stderr = io.MultiWriter(r.stderr(), captured)
	c.Env = mergeEnv(os.Environ(), cmd.Env)

	err := c.Run()

	result := &CommandResult{
		ExitCode: sh.ExitStatus(err),
		Output:   splitLines(captured.String()),
	}
	if err == nil {
		return result, nil
	}

	if !sh.CmdRan(err) {
		result.ExitCode = -1
		return result, fmt.Errorf("failed to run %q: %w", cmd.String(), err)
	}
	return result, fmt.Errorf("%q exited with status %d: %w", cmd.String(), result.ExitCode, err)
}

func (r *ExecRunner) stdout() io.Writer {
	if r.Stdout == nil {
		return os.Stdout
	}
	return r.Stdout
}

func (r *ExecRunner) stderr() io.Writer {
	if r.Stderr == nil {
		return os.Stderr
	}
	return r.Stderr
}

// lockedBuffer collects stdout and stderr, which exec copies from separate
// goroutines.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// mergeEnv appends overrides to base in a stable order. Later entries win
// for exec.Cmd, so overrides shadow inherited values.
func mergeEnv(base []string, overrides map[string]string) []string {
	env := append([]string{}, base...)
	keys := make([]string, 0, len(overrides))
	for key := range overrides {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		env = append(env, key+"="+overrides[key])
	}
	return env
}

func splitLines(s string) []string {
	s = strings.TrimRight(s, "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}
