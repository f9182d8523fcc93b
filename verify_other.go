//go:build !(darwin || linux || freebsd)

package hookbuild

// VerifyLibrary is not available without dlopen.
func VerifyLibrary(path string, symbols []string) error {
	return ErrVerifyUnsupported
}
