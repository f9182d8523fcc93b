// Package hookbuild prepares the vendored libuiohook native library for linkage
// into a Go program and optionally regenerates its foreign-call bindings.
//
// It runs once per build, before any application code, and its only job is to
// leave a linkable shared library (and, on request, a fresh bindings.go) behind.
//
// # Pipeline
//
// A single invocation runs these steps in order:
//
//	Pipeline
//	├── ResolveTarget     (TARGET → Target descriptor)
//	├── BindingGenerator  (uiohook.h → bindings.go, feature with_bindgen)
//	├── SourceFetcher     (git submodule update --init, best effort)
//	├── CmakeBuilder      (cmake configure + cmake --build, skipped if already built)
//	└── Emitter           (link-search / link-lib directives)
//
// # Basic Usage
//
//	env, err := hookbuild.LoadEnvironment(os.Getenv)
//	if err != nil {
//	    return err
//	}
//
//	config := &hookbuild.BuildConfig{
//	    ManifestDir: env.ManifestDir,
//	    OutDir:      env.OutDir,
//	    Target:      env.Target,
//	    Features:    hookbuild.DefaultFeatures(),
//	}
//
//	result, err := hookbuild.NewPipeline(hookbuild.NewExecRunner(os.Stdout, os.Stderr)).Run(ctx, config)
//
// # Features
//
// Two build tags select the default code paths:
//   - static - compile libuiohook from vendor/ instead of linking a system copy
//   - with_bindgen - regenerate bindings.go from vendor/include/uiohook.h
//
// Both can be overridden per invocation through BuildConfig.Features.
//
// # Idempotence
//
// The presence of <OUT_DIR>/vendor/build is the only completion signal. Once it
// exists CMake is never invoked again for that output directory; use
// CmakeBuilder.Clean to force a rebuild.
package hookbuild
