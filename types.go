package hookbuild

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
)

// Fixed project layout relative to BuildConfig.ManifestDir.
const (
	defaultVendorDir   = "vendor"
	defaultHeaderRel   = "include/uiohook.h"
	defaultBindingsRel = "bindings.go"
	defaultParallel    = 2
)

// Features selects which code paths of the pipeline run.
//
// The defaults come from build tags (see DefaultFeatures); callers may
// override them per invocation.
type Features struct {
	Bindgen bool // Regenerate bindings.go from the vendored header
	Static  bool // Compile libuiohook from source instead of linking a system copy
}

// BuildResult contains the output and status of a pipeline run.
//
// After a run completes, this structure provides:
//   - Success status indicating if every enabled step completed
//   - Skipped when the native build was already present
//   - Output lines captured from external commands
//   - Libraries found in the build directory
//   - Directives emitted to the enclosing build
type BuildResult struct {
	Success    bool        // True if the run completed without errors
	Skipped    bool        // True if the native build directory already existed
	Output     []string    // Lines of output from external commands
	Libraries  []string    // Paths to built shared libraries, relative to BuildDir
	Directives []Directive // Build instructions emitted for this run
	Bindings   string      // Path of the regenerated bindings file, if any
	Error      error       // Error if the run failed, nil otherwise
}

// BuildConfig contains configuration for one build invocation.
//
// Source paths:
//   - ManifestDir: project root holding vendor/ and receiving bindings.go
//   - OutDir: per-build output directory for compiled artifacts
//   - VendorDir: vendored libuiohook tree (default vendor)
//
// Build configuration:
//   - Env: environment variables passed to every external command
//   - Parallel: --parallel hint for cmake --build (0 = 2)
//
// Behaviour:
//   - Features: which code paths run
//   - Verify: dlopen the built library and check the allowlisted symbols
type BuildConfig struct {
	// Source paths
	ManifestDir   string // Root directory of the consuming project
	OutDir        string // Per-build output directory
	VendorDir     string // Vendored source tree, relative to ManifestDir when not absolute
	SourceArchive string // Optional .tar.xz used when the submodule cannot be fetched

	// Target
	Target Target

	// Build arguments
	Env      map[string]string // Environment variables for external commands
	Parallel int               // Parallel jobs for cmake --build

	// Build options
	Features Features
	Bindings *BindingConfig // nil uses DefaultBindingConfig
	Verify   bool           // Verify exported symbols after building
	Verbose  bool           // Record the commands that were run

	Logger *slog.Logger // nil discards log output
}

// CommonBuildSteps defines the configure → build → find pattern of the
// native build driver.
type CommonBuildSteps struct {
	// ConfigureFunc prepares the build tree (cmake -S -B)
	ConfigureFunc func(ctx context.Context, config *BuildConfig, buildDir string, result *BuildResult) error

	// BuildFunc compiles the library (cmake --build)
	BuildFunc func(ctx context.Context, config *BuildConfig, buildDir string, result *BuildResult) error

	// FindFunc locates the compiled shared libraries after the build completes
	FindFunc func(buildDir string) ([]string, error)
}

// SourceDir returns the absolute vendored source directory.
func (c *BuildConfig) SourceDir() string {
	dir := c.VendorDir
	if dir == "" {
		dir = defaultVendorDir
	}
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(c.manifestDir(), dir)
}

// HeaderPath returns the public header inside the vendored tree.
func (c *BuildConfig) HeaderPath() string {
	return filepath.Join(c.SourceDir(), filepath.FromSlash(defaultHeaderRel))
}

// BuildDir returns the per-build CMake working directory. Its existence is
// the only signal that the native library has been built.
func (c *BuildConfig) BuildDir() string {
	return filepath.Join(c.outDir(), "vendor", "build")
}

// InstallDir returns the CMake install prefix.
func (c *BuildConfig) InstallDir() string {
	return filepath.Join(c.outDir(), "vendor", "dist")
}

// IncludeDir returns the directory receiving a copy of the public header.
func (c *BuildConfig) IncludeDir() string {
	return filepath.Join(c.outDir(), "include")
}

// manifestDir and outDir return the configured directories made absolute.
// cmake runs inside BuildDir, so a relative path handed to -S or --build
// would resolve against the wrong directory.
func (c *BuildConfig) manifestDir() string {
	return absPath(c.ManifestDir)
}

func (c *BuildConfig) outDir() string {
	return absPath(c.OutDir)
}

// absPath returns path made absolute, or path unchanged when the working
// directory cannot be determined.
func absPath(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}

// parallel returns the effective --parallel hint.
func (c *BuildConfig) parallel() int {
	if c.Parallel > 0 {
		return c.Parallel
	}
	return defaultParallel
}

// logger returns the configured logger or one that discards everything.
func (c *BuildConfig) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// bindingConfig returns the binding configuration, resolving the header and
// output paths against the project layout when left empty.
func (c *BuildConfig) bindingConfig() BindingConfig {
	var bc BindingConfig
	if c.Bindings != nil {
		bc = *c.Bindings
	} else {
		bc = DefaultBindingConfig()
	}
	if bc.HeaderPath == "" {
		bc.HeaderPath = c.HeaderPath()
	} else if !filepath.IsAbs(bc.HeaderPath) {
		bc.HeaderPath = filepath.Join(c.manifestDir(), bc.HeaderPath)
	}
	if bc.OutputPath == "" {
		bc.OutputPath = filepath.Join(c.manifestDir(), defaultBindingsRel)
	} else if !filepath.IsAbs(bc.OutputPath) {
		bc.OutputPath = filepath.Join(c.manifestDir(), bc.OutputPath)
	}
	return bc
}
