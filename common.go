package hookbuild

import "context"

// runCommonBuild executes the configure → build → find sequence.
//
// # Process Flow
//
//  1. Call ConfigureFunc to generate the build tree
//  2. Call BuildFunc to compile the library
//  3. Call FindFunc to locate the compiled files
//  4. Return BuildResult with Success=true
//
// If any step fails, processing stops and the error is returned with
// Success=false. Nothing is retried.
//
// The BuildResult.Output field is populated by the step functions as they
// execute.
func runCommonBuild(ctx context.Context, config *BuildConfig, buildDir string, steps CommonBuildSteps) (*BuildResult, error) {
	result := &BuildResult{
		Success: false,
		Output:  []string{},
	}

	// Step 1: Configure
	if err := steps.ConfigureFunc(ctx, config, buildDir, result); err != nil {
		result.Error = err
		return result, err
	}

	// Step 2: Compile
	if err := steps.BuildFunc(ctx, config, buildDir, result); err != nil {
		result.Error = err
		return result, err
	}

	// Step 3: Find the built libraries
	libraries, err := steps.FindFunc(buildDir)
	if err != nil {
		result.Error = err
		return result, err
	}

	result.Libraries = libraries
	result.Success = true
	return result, nil
}
