package hookbuild

import "context"

// NativeBuilder compiles the vendored source tree into a shared library.
//
// # Builder Lifecycle
//
//  1. Build() - called by the Pipeline when the static feature is enabled
//  2. Clean() - optional removal of build artifacts, forcing the next Build
//     to recompile
//
// # Example Implementation
//
//	type prebuiltBuilder struct{ dir string }
//
//	func (b *prebuiltBuilder) Name() string { return "Prebuilt" }
//
//	func (b *prebuiltBuilder) Build(ctx context.Context, config *BuildConfig) (*BuildResult, error) {
//	    return &BuildResult{Success: true, Skipped: true}, nil
//	}
//
//	func (b *prebuiltBuilder) Clean(ctx context.Context, config *BuildConfig) error {
//	    return nil
//	}
type NativeBuilder interface {
	// Name returns the human-readable name of this builder, used in errors
	// and logs.
	Name() string

	// Build compiles the library into config.BuildDir().
	//
	// Implementations must not recompile when config.BuildDir() already
	// exists; they report Skipped=true instead.
	Build(ctx context.Context, config *BuildConfig) (*BuildResult, error)

	// Clean removes build artifacts. Returns nil if there is nothing to clean.
	Clean(ctx context.Context, config *BuildConfig) error
}
