package hookbuild

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Pipeline runs the build-time steps in order, stopping at the first
// failure.
//
// # Usage
//
//	pipeline := hookbuild.NewPipeline(hookbuild.NewExecRunner(os.Stderr, os.Stderr))
//	result, err := pipeline.Run(ctx, config)
//
// Each component can be replaced before Run, which is how the tests swap in
// recording runners and stub builders.
//
// # Process Flow
//
//  1. Record the rebuild trigger for the public header
//  2. Regenerate bindings (Features.Bindgen)
//  3. Static path (Features.Static): fetch source, copy the header into
//     OutDir/include, check build tools, build, emit search path + libraries
//  4. Otherwise emit only the bare library dependency
//  5. Write all directives to the Emitter
//
// # Thread Safety
//
// A Pipeline holds no per-run state, but runs sharing an OutDir must not
// overlap; nothing guards the build directory against concurrent use.
type Pipeline struct {
	Source    *SourceFetcher
	Builder   NativeBuilder
	Generator *BindingGenerator
	Emitter   *Emitter
}

// NewPipeline creates a pipeline whose subprocesses go through runner and
// whose directives are written to stdout.
func NewPipeline(runner Runner) *Pipeline {
	return &Pipeline{
		Source:    NewSourceFetcher(runner),
		Builder:   NewCmakeBuilder(runner),
		Generator: NewBindingGenerator(),
		Emitter:   NewEmitter(os.Stdout),
	}
}

// Run executes one build invocation.
func (p *Pipeline) Run(ctx context.Context, config *BuildConfig) (*BuildResult, error) {
	result := &BuildResult{Output: []string{}}
	fail := func(err error) (*BuildResult, error) {
		result.Error = err
		return result, err
	}

	if err := validateConfig(config); err != nil {
		return fail(err)
	}

	log := config.logger().With("target", config.Target.Triple)
	bindings := config.bindingConfig()

	result.Directives = append(result.Directives, Directive{Kind: KindRerunIfChanged, Value: bindings.HeaderPath})

	if config.Features.Bindgen {
		log.Info("regenerating bindings", "header", bindings.HeaderPath, "output", bindings.OutputPath)
		if err := p.Generator.Write(ctx, bindings); err != nil {
			return fail(err)
		}
		result.Bindings = bindings.OutputPath
	}

	if config.Features.Static {
		if err := p.buildNative(ctx, config, result); err != nil {
			return fail(err)
		}
		result.Directives = append(result.Directives, LinkDirectives(config.Target, config.BuildDir(), true)...)
	} else {
		log.Debug("static feature disabled, linking system library")
		result.Directives = append(result.Directives, LinkDirectives(config.Target, "", false)...)
	}

	if err := p.Emitter.Emit(result.Directives); err != nil {
		return fail(err)
	}

	result.Success = true
	return result, nil
}

// Clean removes native build artifacts so the next Run recompiles.
func (p *Pipeline) Clean(ctx context.Context, config *BuildConfig) error {
	if config.OutDir == "" {
		return fmt.Errorf("%w: %s should be set", ErrMissingEnv, EnvOutDir)
	}
	return p.Builder.Clean(ctx, config)
}

func (p *Pipeline) buildNative(ctx context.Context, config *BuildConfig, result *BuildResult) error {
	log := config.logger().With("target", config.Target.Triple)

	p.Source.Ensure(ctx, config)

	header := config.HeaderPath()
	if err := copyFile(header, filepath.Join(config.IncludeDir(), filepath.Base(header))); err != nil {
		return fmt.Errorf("%s should exist: %w", header, err)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	if !dirExists(config.BuildDir()) {
		if checker, ok := p.Builder.(ToolChecker); ok {
			if err := checker.CheckTools(config.Target); err != nil {
				return fmt.Errorf("%s: %w", p.Builder.Name(), err)
			}
		}
	}

	built, err := p.Builder.Build(ctx, config)
	if built != nil {
		result.Output = append(result.Output, built.Output...)
		result.Libraries = built.Libraries
		result.Skipped = built.Skipped
	}
	if err != nil {
		return fmt.Errorf("%s: %w", p.Builder.Name(), err)
	}

	if config.Verify {
		symbols, err := p.Generator.Symbols(config.bindingConfig())
		if err != nil {
			return err
		}
		libPath := libraryPath(config, result.Libraries)
		log.Info("verifying native library", "path", libPath, "symbols", len(symbols))
		if err := VerifyLibrary(libPath, symbols); err != nil {
			return err
		}
	}

	return nil
}

func validateConfig(config *BuildConfig) error {
	if config == nil {
		return fmt.Errorf("%w: nil build config", ErrMissingEnv)
	}
	if config.Target.Triple == "" {
		return fmt.Errorf("%w: %s was not set", ErrMissingEnv, EnvTarget)
	}
	if config.ManifestDir == "" {
		return fmt.Errorf("%w: %s should be set", ErrMissingEnv, EnvManifestDir)
	}
	if config.Features.Static && config.OutDir == "" {
		return fmt.Errorf("%w: %s should be set", ErrMissingEnv, EnvOutDir)
	}
	return nil
}

// libraryPath picks the built library matching the target's file name,
// falling back to the expected location inside the build directory.
func libraryPath(config *BuildConfig, libraries []string) string {
	want := config.Target.LibraryFileName()
	for _, lib := range libraries {
		if strings.HasPrefix(filepath.Base(lib), want) {
			return filepath.Join(config.BuildDir(), lib)
		}
	}
	return filepath.Join(config.BuildDir(), want)
}
