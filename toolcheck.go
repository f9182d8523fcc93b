package hookbuild

import (
	"fmt"
	"os/exec"
	"strings"
)

// LookPathFunc resolves an executable name to a path, like exec.LookPath.
type LookPathFunc func(file string) (string, error)

// ToolChecker is an optional interface for native builders that need
// external tools.
//
// Pipeline.Run calls CheckTools right before Build whenever the build
// directory does not exist yet, so a missing cmake fails with a clear
// message instead of an opaque exec error. A finished build is never
// checked.
//
// # Consumer Usage
//
//	if checker, ok := builder.(ToolChecker); ok {
//	    if err := checker.CheckTools(config.Target); err != nil {
//	        return fmt.Errorf("%s: %w", builder.Name(), err)
//	    }
//	}
type ToolChecker interface {
	// RequiredTools returns the tools needed to build for target.
	RequiredTools(target Target) []ToolRequirement

	// CheckTools verifies that all required tools for target are available.
	CheckTools(target Target) error
}

// ToolRequirement describes a build tool dependency.
//
// # Examples
//
// Required tool:
//
//	ToolRequirement{
//	    Name: "cmake",
//	    Purpose: "CMake build system",
//	}
//
// Tool with alternatives:
//
//	ToolRequirement{
//	    Name: "cc",
//	    Alternatives: []string{"gcc", "clang"},
//	    Purpose: "C compiler",
//	}
type ToolRequirement struct {
	// Name is the primary tool binary name (e.g., "cmake", "musl-gcc").
	Name string

	// Alternatives can satisfy the requirement instead of Name.
	Alternatives []string

	// Purpose is a human-readable description of why this tool is needed.
	Purpose string
}

// CheckToolAvailable checks if a tool is available through lookPath.
// A nil lookPath uses exec.LookPath.
func CheckToolAvailable(lookPath LookPathFunc, tool string) error {
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	if _, err := lookPath(tool); err != nil {
		return fmt.Errorf("%w: %s not found in PATH", ErrToolMissing, tool)
	}
	return nil
}

// CheckRequiredTools verifies all required tools are available.
//
// # Behavior
//
//   - Checks the primary tool name first
//   - If not found, tries each alternative tool in order
//   - Returns all missing required tools in a single error
//
// # Error Format
//
// Single missing tool:
//
//	required build tool missing: cmake (CMake build system) not found in PATH
//
// Multiple missing tools:
//
//	required build tool missing: cmake (CMake build system), musl-gcc (musl C compiler)
func CheckRequiredTools(lookPath LookPathFunc, requirements []ToolRequirement) error {
	var missingTools []string

	for _, req := range requirements {
		found := CheckToolAvailable(lookPath, req.Name) == nil

		if !found {
			for _, alt := range req.Alternatives {
				if CheckToolAvailable(lookPath, alt) == nil {
					found = true
					break
				}
			}
		}

		if !found {
			if req.Purpose != "" {
				missingTools = append(missingTools, fmt.Sprintf("%s (%s)", req.Name, req.Purpose))
			} else {
				missingTools = append(missingTools, req.Name)
			}
		}
	}

	switch len(missingTools) {
	case 0:
		return nil
	case 1:
		return fmt.Errorf("%w: %s not found in PATH", ErrToolMissing, missingTools[0])
	default:
		return fmt.Errorf("%w: %s", ErrToolMissing, strings.Join(missingTools, ", "))
	}
}
