package hookbuild

import "errors"

var (
	// ErrMissingEnv is returned when a required build-environment variable is unset.
	ErrMissingEnv = errors.New("missing build environment variable")

	// ErrInvalidTarget is returned for target triples that cannot be parsed.
	ErrInvalidTarget = errors.New("invalid target triple")

	// ErrHeaderParse is returned when the C header cannot be turned into bindings.
	ErrHeaderParse = errors.New("unable to generate bindings")

	// ErrToolMissing is returned when a required external tool is not on PATH.
	ErrToolMissing = errors.New("required build tool missing")

	// ErrVerifyUnsupported is returned by VerifyLibrary on platforms without dlopen.
	ErrVerifyUnsupported = errors.New("library verification not supported on this platform")
)
