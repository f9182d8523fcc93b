// Command hookbuild prepares libuiohook for linking and optionally
// regenerates its Go bindings.
//
// Build directives are written to stdout, one per line, prefixed with
// "hookbuild:". Logs and the output of cmake/git go to stderr.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/gookit/color"

	"github.com/contriboss/hookbuild"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Getenv, os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, getenv func(string) string, stdout, stderr io.Writer) int {
	defaults := hookbuild.DefaultFeatures()

	fs := flag.NewFlagSet("hookbuild", flag.ContinueOnError)
	fs.SetOutput(stderr)
	target := fs.String("target", getenv(hookbuild.EnvTarget), "target triple (default $TARGET)")
	outDir := fs.String("out-dir", getenv(hookbuild.EnvOutDir), "per-build output directory (default $OUT_DIR)")
	manifestDir := fs.String("manifest-dir", getenv(hookbuild.EnvManifestDir), "project root holding vendor/ (default $MANIFEST_DIR)")
	static := fs.Bool("static", defaults.Static, "compile libuiohook from vendor/ instead of linking a system copy")
	bindgen := fs.Bool("bindgen", defaults.Bindgen, "regenerate bindings.go from vendor/include/uiohook.h")
	parallel := fs.Int("parallel", 2, "parallel jobs for cmake --build")
	sourceArchive := fs.String("source-archive", "", "optional .tar.xz used when the vendor submodule cannot be fetched")
	cgoOut := fs.String("cgo-out", "", "also write the link flags as a cgo Go file to this path")
	cgoPackage := fs.String("cgo-package", hookbuild.LibraryName, "package clause of the -cgo-out file")
	verify := fs.Bool("verify", false, "dlopen the built library and check the allowlisted symbols")
	clean := fs.Bool("clean", false, "remove the native build directory and exit")
	verbose := fs.Bool("v", false, "enable debug logging")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	env, err := hookbuild.LoadEnvironment(func(key string) string {
		switch key {
		case hookbuild.EnvTarget:
			return *target
		case hookbuild.EnvOutDir:
			return *outDir
		case hookbuild.EnvManifestDir:
			return *manifestDir
		}
		return getenv(key)
	})
	if err != nil {
		return failure(stderr, err)
	}

	config := &hookbuild.BuildConfig{
		ManifestDir:   env.ManifestDir,
		OutDir:        env.OutDir,
		SourceArchive: *sourceArchive,
		Target:        env.Target,
		Parallel:      *parallel,
		Features:      hookbuild.Features{Static: *static, Bindgen: *bindgen},
		Verify:        *verify,
		Verbose:       *verbose,
		Logger:        logger,
	}

	pipeline := hookbuild.NewPipeline(hookbuild.NewExecRunner(stderr, stderr))
	pipeline.Emitter = hookbuild.NewEmitter(stdout)

	if *clean {
		if err := pipeline.Clean(ctx, config); err != nil {
			return failure(stderr, err)
		}
		fmt.Fprintln(stderr, color.Success.Sprintf("removed %s", config.BuildDir()))
		return exitOK
	}

	result, err := pipeline.Run(ctx, config)
	if err != nil {
		return failure(stderr, err)
	}

	if *cgoOut != "" {
		if err := hookbuild.WriteCgoFile(*cgoOut, *cgoPackage, result.Directives); err != nil {
			return failure(stderr, err)
		}
		logger.Info("wrote cgo link flags", "path", *cgoOut)
	}

	switch {
	case !config.Features.Static:
		logger.Info("linking system libuiohook")
	case result.Skipped:
		logger.Info("libuiohook already built", "dir", config.BuildDir())
	default:
		logger.Info("libuiohook built", "dir", config.BuildDir(), "libraries", result.Libraries)
	}
	return exitOK
}

func failure(w io.Writer, err error) int {
	fmt.Fprintln(w, color.Danger.Sprintf("hookbuild: %v", err))
	return exitFailure
}
