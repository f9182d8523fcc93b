//go:build darwin || linux || freebsd

package hookbuild

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/ebitengine/purego"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fakeCMakeLists = `cmake_minimum_required(VERSION 3.10)
project(uiohook C)
option(BUILD_DEMO "Build the demo programs" ON)
option(USE_CARBON_LEGACY "Use the legacy Carbon API" ON)
add_library(uiohook src/hook.c)
target_include_directories(uiohook PUBLIC include)
`

const fakeHookSource = `void hook_set_logger_proc(void *proc, void *data) { (void)proc; (void)data; }
void hook_post_event(void *event) { (void)event; }
void hook_set_dispatch_proc(void *proc, void *data) { (void)proc; (void)data; }
int hook_run(void) { return 0; }
int hook_stop(void) { return 0; }
void *hook_create_screen_info(unsigned char *count) { *count = 0; return 0; }
long hook_get_auto_repeat_rate(void) { return 30; }
long hook_get_auto_repeat_delay(void) { return 500; }
long hook_get_pointer_acceleration_multiplier(void) { return 2; }
long hook_get_pointer_acceleration_threshold(void) { return 4; }
long hook_get_pointer_sensitivity(void) { return 1; }
long hook_get_multi_click_time(void) { return 200; }
`

func hostTriple(t *testing.T) string {
	t.Helper()
	switch runtime.GOOS {
	case "darwin":
		return "aarch64-apple-darwin"
	case "linux":
		return "x86_64-unknown-linux-gnu"
	default:
		t.Skipf("no host triple for %s", runtime.GOOS)
		return ""
	}
}

// TestCMakeBuildAgainstFakeLibuiohook builds a stand-in libuiohook with the
// real toolchain, verifies the exported symbols and calls into the result.
func TestCMakeBuildAgainstFakeLibuiohook(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping native build in short mode")
	}
	for _, tool := range []string{"cmake", "cc"} {
		if _, err := exec.LookPath(tool); err != nil {
			t.Skipf("%s not found, skipping integration test", tool)
		}
	}

	config := newProject(t, hostTriple(t))
	config.Features.Static = true
	config.Verify = true
	require.NoError(t, os.WriteFile(filepath.Join(config.SourceDir(), "CMakeLists.txt"), []byte(fakeCMakeLists), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(config.SourceDir(), "src"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(config.SourceDir(), "src", "hook.c"), []byte(fakeHookSource), 0o644))

	var logs, directives bytes.Buffer
	pipeline := NewPipeline(NewExecRunner(&logs, &logs))
	pipeline.Emitter = NewEmitter(&directives)

	result, err := pipeline.Run(context.Background(), config)
	require.NoError(t, err, logs.String())
	require.NotEmpty(t, result.Libraries, "cmake produced no shared library")
	assert.Contains(t, directives.String(), "hookbuild:link-search="+config.BuildDir()+"\n")

	libPath := libraryPath(config, result.Libraries)
	handle, err := purego.Dlopen(libPath, purego.RTLD_NOW|purego.RTLD_LOCAL)
	require.NoError(t, err)
	defer purego.Dlclose(handle)

	var autoRepeatRate func() int
	purego.RegisterLibFunc(&autoRepeatRate, handle, "hook_get_auto_repeat_rate")
	assert.Equal(t, 30, autoRepeatRate())

	again, err := pipeline.Run(context.Background(), config)
	require.NoError(t, err)
	assert.True(t, again.Skipped, "second run reuses the build directory")
}
