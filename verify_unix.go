//go:build darwin || linux || freebsd

package hookbuild

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ebitengine/purego"
)

// VerifyLibrary loads the shared library at path and checks that every
// symbol resolves. The library is closed again before returning.
func VerifyLibrary(path string, symbols []string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	handle, err := purego.Dlopen(absPath, purego.RTLD_NOW|purego.RTLD_LOCAL)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", absPath, err)
	}
	defer purego.Dlclose(handle)

	var missing []string
	for _, symbol := range symbols {
		if _, err := purego.Dlsym(handle, symbol); err != nil {
			missing = append(missing, symbol)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("%s is missing symbols: %s", absPath, strings.Join(missing, ", "))
	}
	return nil
}
