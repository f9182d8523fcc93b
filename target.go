package hookbuild

import (
	"fmt"
	"strings"
)

// Environment variable names supplied by the enclosing build.
const (
	EnvTarget      = "TARGET"
	EnvOutDir      = "OUT_DIR"
	EnvManifestDir = "MANIFEST_DIR"
)

// LibraryName is the link name of the native library.
const LibraryName = "uiohook"

var knownOperatingSystems = map[string]struct{}{
	"linux":   {},
	"darwin":  {},
	"windows": {},
	"freebsd": {},
	"netbsd":  {},
	"openbsd": {},
	"android": {},
	"ios":     {},
	"none":    {},
}

// Target describes the compilation target of one build.
//
// Triple is kept verbatim. The platform predicates look at the parsed
// components, matching ABI flavours by prefix so "x86_64-pc-windows-gnullvm"
// still counts as windows-gnu and "armv7-unknown-linux-musleabihf" as musl.
type Target struct {
	Triple string // e.g. "x86_64-unknown-linux-musl"
	Arch   string // e.g. "x86_64"
	Vendor string // e.g. "unknown", "apple", "pc"; empty for vendorless triples
	OS     string // e.g. "linux", "darwin", "windows"
	ABI    string // e.g. "gnu", "musl", "msvc"; empty when absent
}

// ParseTarget splits a target triple into its components.
//
// Both arch-vendor-os[-abi] and vendorless arch-os[-abi] forms are accepted.
func ParseTarget(triple string) (Target, error) {
	triple = strings.TrimSpace(triple)
	parts := strings.Split(triple, "-")
	if triple == "" || len(parts) < 2 {
		return Target{}, fmt.Errorf("%w: %q", ErrInvalidTarget, triple)
	}
	for _, part := range parts {
		if part == "" {
			return Target{}, fmt.Errorf("%w: %q has an empty component", ErrInvalidTarget, triple)
		}
	}

	t := Target{Triple: triple, Arch: parts[0]}
	rest := parts[1:]

	if _, ok := knownOperatingSystems[rest[0]]; !ok && len(rest) > 1 {
		t.Vendor = rest[0]
		rest = rest[1:]
	}

	t.OS = rest[0]
	if len(rest) > 1 {
		t.ABI = strings.Join(rest[1:], "-")
	}

	return t, nil
}

// ResolveTarget reads the active target triple from the build environment.
func ResolveTarget(getenv func(string) string) (Target, error) {
	triple := getenv(EnvTarget)
	if triple == "" {
		return Target{}, fmt.Errorf("%w: %s was not set", ErrMissingEnv, EnvTarget)
	}
	return ParseTarget(triple)
}

// String returns the original triple.
func (t Target) String() string {
	return t.Triple
}

// IsMusl reports whether the target links against musl libc.
func (t Target) IsMusl() bool {
	return strings.HasPrefix(t.ABI, "musl")
}

// IsWindowsGNU reports whether the target is Windows with the MinGW toolchain.
func (t Target) IsWindowsGNU() bool {
	return t.IsWindows() && strings.HasPrefix(t.ABI, "gnu")
}

// IsDarwin reports whether the target belongs to the darwin family.
func (t Target) IsDarwin() bool {
	return t.OS == "darwin"
}

// IsWindows reports whether the target is any Windows flavour.
func (t Target) IsWindows() bool {
	return t.OS == "windows"
}

// Is64Bit reports whether the target is x86_64.
func (t Target) Is64Bit() bool {
	return t.Arch == "x86_64"
}

// CompilerOverride returns the C compiler to force for this target, if any.
func (t Target) CompilerOverride() (key, value string, ok bool) {
	if t.IsMusl() {
		return "CC", "musl-gcc", true
	}
	return "", "", false
}

// CrossSystemName returns the CMAKE_SYSTEM_NAME to inject when cross
// compiling with MinGW.
func (t Target) CrossSystemName() (string, bool) {
	if !t.IsWindowsGNU() {
		return "", false
	}
	if t.Is64Bit() {
		return "x86_64-w64-mingw32", true
	}
	return "i686-w64-mingw32", true
}

// LibraryFileName returns the file name of the shared library CMake produces.
func (t Target) LibraryFileName() string {
	switch {
	case t.IsDarwin():
		return "lib" + LibraryName + ".dylib"
	case t.IsWindows():
		return "lib" + LibraryName + ".dll"
	default:
		return "lib" + LibraryName + ".so"
	}
}

// Environment is the build-environment input of one invocation.
type Environment struct {
	Target      Target
	OutDir      string
	ManifestDir string
}

// LoadEnvironment reads TARGET, OUT_DIR and MANIFEST_DIR.
//
// Every missing variable is unrecoverable.
func LoadEnvironment(getenv func(string) string) (Environment, error) {
	target, err := ResolveTarget(getenv)
	if err != nil {
		return Environment{}, err
	}

	outDir := getenv(EnvOutDir)
	if outDir == "" {
		return Environment{}, fmt.Errorf("%w: %s should be set", ErrMissingEnv, EnvOutDir)
	}

	manifestDir := getenv(EnvManifestDir)
	if manifestDir == "" {
		return Environment{}, fmt.Errorf("%w: %s should be set", ErrMissingEnv, EnvManifestDir)
	}

	return Environment{
		Target:      target,
		OutDir:      outDir,
		ManifestDir: manifestDir,
	}, nil
}
