package hookbuild

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// patternSet is a compiled symbol allowlist.
type patternSet []*regexp.Regexp

// compilePatterns compiles symbol name patterns for kind ("function",
// "var"). Patterns are anchored at both ends, so "_event_type_EVENT.*"
// matches "_event_type_EVENT_KEY_PRESSED" but not "x_event_type_EVENT". An
// invalid pattern is an ErrHeaderParse error naming it.
//
// # Example
//
//	set, err := compilePatterns("var", []string{`_log_level_LOG_LEVEL.*`})
//	if err != nil {
//	    return err
//	}
//	if set.match("_log_level_LOG_LEVEL_INFO") {
//	    // expose the constant
//	}
func compilePatterns(kind string, patterns []string) (patternSet, error) {
	set := make(patternSet, 0, len(patterns))
	for _, pattern := range patterns {
		re, err := regexp.Compile("^(?:" + pattern + ")$")
		if err != nil {
			return nil, fmt.Errorf("%w: invalid %s pattern %q: %v", ErrHeaderParse, kind, pattern, err)
		}
		set = append(set, re)
	}
	return set, nil
}

func (s patternSet) match(name string) bool {
	for _, re := range s {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}

// BuildError creates a standardized build error with output context.
//
// # Format
//
// With error and output:
//
//	CMake configure failed: "cmake -S vendor ..." exited with status 1
//
//	Build output:
//	CMake Error: The source directory "vendor" does not exist.
//
// With error but no output:
//
//	CMake configure failed: exit status 1
//
// The underlying error stays reachable through errors.Is / errors.As.
func BuildError(step string, output []string, err error) error {
	outputStr := strings.Join(output, "\n")

	if err == nil {
		if outputStr != "" {
			return fmt.Errorf("%s failed\n\nBuild output:\n%s", step, outputStr)
		}
		return fmt.Errorf("%s failed", step)
	}

	if outputStr != "" {
		return fmt.Errorf("%s failed: %w\n\nBuild output:\n%s", step, err, outputStr)
	}
	return fmt.Errorf("%s failed: %w", step, err)
}

// copyFile copies srcPath to destPath, creating parent directories and
// preserving the source file mode.
func copyFile(srcPath, destPath string) error {
	info, err := os.Stat(srcPath)
	if err != nil {
		return err
	}

	dir := filepath.Dir(destPath)
	if mkErr := os.MkdirAll(dir, 0o755); mkErr != nil {
		return mkErr
	}

	in, err := os.Open(srcPath)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode())
	if err != nil {
		return err
	}

	if _, err = io.Copy(out, in); err != nil {
		out.Close()
		return err
	}

	return out.Close()
}

// writeFileAtomic writes data to a temporary file next to path and renames
// it into place, so readers never observe a partially written file.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	cleanup := func() {
		tmp.Close()
		os.Remove(tmpName)
	}

	if _, err := tmp.Write(data); err != nil {
		cleanup()
		return err
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func pathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
