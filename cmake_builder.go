package hookbuild

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

const cmakeProgram = "cmake"

// CmakeBuilder compiles libuiohook with CMake.
type CmakeBuilder struct {
	Runner   Runner       // nil uses NewExecRunner(nil, nil)
	LookPath LookPathFunc // nil uses exec.LookPath
}

// NewCmakeBuilder returns a CmakeBuilder running commands through runner.
func NewCmakeBuilder(runner Runner) *CmakeBuilder {
	return &CmakeBuilder{Runner: runner}
}

// Name returns the builder name
func (b *CmakeBuilder) Name() string {
	return "CMake"
}

// RequiredTools returns the tools needed to build for target
func (b *CmakeBuilder) RequiredTools(target Target) []ToolRequirement {
	tools := []ToolRequirement{
		{Name: cmakeProgram, Purpose: "CMake build system"},
	}
	if _, compiler, ok := target.CompilerOverride(); ok {
		return append(tools, ToolRequirement{Name: compiler, Purpose: "C compiler for " + target.Triple})
	}
	if systemName, ok := target.CrossSystemName(); ok {
		// MSYS2 shells ship the MinGW compiler as plain gcc.
		return append(tools, ToolRequirement{
			Name:         systemName + "-gcc",
			Alternatives: []string{"gcc"},
			Purpose:      "MinGW C compiler",
		})
	}
	return append(tools, ToolRequirement{
		Name:         "cc",
		Alternatives: []string{"gcc", "clang", "cl"},
		Purpose:      "C compiler",
	})
}

// CheckTools verifies that cmake and a C compiler for target are on PATH
func (b *CmakeBuilder) CheckTools(target Target) error {
	return CheckRequiredTools(b.LookPath, b.RequiredTools(target))
}

// ConfigureArgs assembles the cmake configure arguments for config.
//
// The universal flags always come first; platform flags are appended after
// them, so they never reorder or replace a universal flag. The result depends
// only on config, which makes it safe to call repeatedly.
func (b *CmakeBuilder) ConfigureArgs(config *BuildConfig) []string {
	args := []string{
		"-S", config.SourceDir(),
		"-B", config.BuildDir(),
		"-DBUILD_DEMO=OFF",
		"-DUSE_CARBON_LEGACY=OFF",
		"-DBUILD_SHARED_LIBS=ON",
		"-DCMAKE_INSTALL_PREFIX=" + config.InstallDir(),
	}

	if systemName, ok := config.Target.CrossSystemName(); ok {
		args = append(args, "-DCMAKE_SYSTEM_NAME="+systemName)
	}

	return args
}

// ConfigureEnv returns the environment passed to every cmake invocation:
// config.Env plus the target's compiler override.
func (b *CmakeBuilder) ConfigureEnv(config *BuildConfig) map[string]string {
	env := make(map[string]string, len(config.Env)+1)
	for key, value := range config.Env {
		env[key] = value
	}
	if key, value, ok := config.Target.CompilerOverride(); ok {
		env[key] = value
	}
	return env
}

// Build configures and compiles the library unless config.BuildDir() exists.
func (b *CmakeBuilder) Build(ctx context.Context, config *BuildConfig) (*BuildResult, error) {
	buildDir := config.BuildDir()
	log := config.logger().With("builder", b.Name(), "target", config.Target.Triple)

	if dirExists(buildDir) {
		log.Info("native library already built, skipping cmake", "dir", buildDir)
		return &BuildResult{Success: true, Skipped: true}, nil
	}

	// The compiler override must be settled before configure runs; cmake
	// caches the compiler on first configure.
	env := b.ConfigureEnv(config)
	args := b.ConfigureArgs(config)

	if err := os.MkdirAll(buildDir, 0o755); err != nil {
		err = fmt.Errorf("failed to create %s: %w", buildDir, err)
		return &BuildResult{Error: err}, err
	}

	log.Info("building native library", "source", config.SourceDir(), "dir", buildDir)

	result, err := runCommonBuild(ctx, config, buildDir, CommonBuildSteps{
		ConfigureFunc: func(ctx context.Context, config *BuildConfig, buildDir string, result *BuildResult) error {
			return b.runCmake(ctx, config, buildDir, args, env, result)
		},
		BuildFunc: func(ctx context.Context, config *BuildConfig, buildDir string, result *BuildResult) error {
			return b.runBuild(ctx, config, buildDir, env, result)
		},
		FindFunc: b.findBuiltLibraries,
	})
	if err != nil {
		// A half-populated build dir would be taken as a finished build next time.
		if rmErr := os.RemoveAll(buildDir); rmErr != nil {
			log.Warn("failed to remove incomplete build directory", "dir", buildDir, "error", rmErr)
		}
		return result, err
	}

	log.Info("native library built", "libraries", result.Libraries)
	return result, nil
}

// Clean removes the build directory so the next Build recompiles
func (b *CmakeBuilder) Clean(ctx context.Context, config *BuildConfig) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.RemoveAll(config.BuildDir()); err != nil {
		return fmt.Errorf("failed to remove %s: %w", config.BuildDir(), err)
	}
	return nil
}

// runCmake executes cmake to configure the build
func (b *CmakeBuilder) runCmake(ctx context.Context, config *BuildConfig, buildDir string, args []string, env map[string]string, result *BuildResult) error {
	return b.run(ctx, config, "CMake configure", Command{
		Dir:  buildDir,
		Name: cmakeProgram,
		Args: args,
		Env:  env,
	}, result)
}

// runBuild executes cmake --build with the parallelism hint
func (b *CmakeBuilder) runBuild(ctx context.Context, config *BuildConfig, buildDir string, env map[string]string, result *BuildResult) error {
	return b.run(ctx, config, "CMake build", Command{
		Dir:  buildDir,
		Name: cmakeProgram,
		Args: []string{"--build", buildDir, "--parallel", strconv.Itoa(config.parallel())},
		Env:  env,
	}, result)
}

func (b *CmakeBuilder) run(ctx context.Context, config *BuildConfig, step string, cmd Command, result *BuildResult) error {
	if config.Verbose {
		result.Output = append(result.Output,
			fmt.Sprintf("Running: %s", cmd.String()),
			fmt.Sprintf("Working directory: %s", cmd.Dir))
	}

	res, err := b.runner().Run(ctx, cmd)
	if res != nil {
		result.Output = append(result.Output, res.Output...)
	}
	if err != nil {
		return BuildError(step, result.Output, err)
	}
	return nil
}

// findBuiltLibraries locates the compiled shared libraries
func (b *CmakeBuilder) findBuiltLibraries(buildDir string) ([]string, error) {
	var libraries []string

	// Single- and multi-config generators place outputs differently
	searchDirs := []string{
		".",
		"lib",
		"bin",
		"Release",
		"Debug",
	}

	patterns := []string{
		"*.so",
		"*.so.*",
		"*.dylib",
		"*.dll",
	}

	for _, searchDir := range searchDirs {
		fullSearchDir := filepath.Join(buildDir, searchDir)
		if !dirExists(fullSearchDir) {
			continue
		}

		for _, pattern := range patterns {
			matches, err := filepath.Glob(filepath.Join(fullSearchDir, pattern))
			if err != nil {
				return nil, fmt.Errorf("failed to glob pattern %s in %s: %w", pattern, fullSearchDir, err)
			}

			for _, match := range matches {
				if relPath, err := filepath.Rel(buildDir, match); err == nil {
					libraries = append(libraries, relPath)
				}
			}
		}
	}

	return libraries, nil
}

func (b *CmakeBuilder) runner() Runner {
	if b.Runner == nil {
		return NewExecRunner(nil, nil)
	}
	return b.Runner
}
