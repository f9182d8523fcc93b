package hookbuild

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTarget(t *testing.T) {
	testCases := []struct {
		triple string
		want   Target
	}{
		{"x86_64-unknown-linux-gnu", Target{Arch: "x86_64", Vendor: "unknown", OS: "linux", ABI: "gnu"}},
		{"x86_64-unknown-linux-musl", Target{Arch: "x86_64", Vendor: "unknown", OS: "linux", ABI: "musl"}},
		{"aarch64-apple-darwin", Target{Arch: "aarch64", Vendor: "apple", OS: "darwin"}},
		{"i686-pc-windows-gnu", Target{Arch: "i686", Vendor: "pc", OS: "windows", ABI: "gnu"}},
		{"x86_64-linux-gnu", Target{Arch: "x86_64", OS: "linux", ABI: "gnu"}},
		{"wasm32-wasi", Target{Arch: "wasm32", OS: "wasi"}},
	}

	for _, tc := range testCases {
		t.Run(tc.triple, func(t *testing.T) {
			got, err := ParseTarget(tc.triple)
			require.NoError(t, err)

			tc.want.Triple = tc.triple
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.triple, got.String())
		})
	}
}

func TestParseTargetRejectsMalformed(t *testing.T) {
	for _, triple := range []string{"", "x86_64", "x86_64--linux", "  "} {
		_, err := ParseTarget(triple)
		assert.ErrorIs(t, err, ErrInvalidTarget, "triple %q", triple)
	}
}

func TestTargetPredicates(t *testing.T) {
	testCases := []struct {
		triple     string
		musl       bool
		windowsGNU bool
		darwin     bool
		cross      string
		library    string
	}{
		{"x86_64-unknown-linux-gnu", false, false, false, "", "libuiohook.so"},
		{"x86_64-unknown-linux-musl", true, false, false, "", "libuiohook.so"},
		{"aarch64-apple-darwin", false, false, true, "", "libuiohook.dylib"},
		{"x86_64-pc-windows-gnu", false, true, false, "x86_64-w64-mingw32", "libuiohook.dll"},
		{"i686-pc-windows-gnu", false, true, false, "i686-w64-mingw32", "libuiohook.dll"},
		{"x86_64-pc-windows-msvc", false, false, false, "", "libuiohook.dll"},
		{"x86_64-pc-windows-gnullvm", false, true, false, "x86_64-w64-mingw32", "libuiohook.dll"},
		{"armv7-unknown-linux-musleabihf", true, false, false, "", "libuiohook.so"},
		{"x86_64-linux-musl", true, false, false, "", "libuiohook.so"},
		{"x86_64-apple-ios", false, false, false, "", "libuiohook.so"},
	}

	for _, tc := range testCases {
		t.Run(tc.triple, func(t *testing.T) {
			target := mustTarget(t, tc.triple)

			assert.Equal(t, tc.musl, target.IsMusl())
			assert.Equal(t, tc.windowsGNU, target.IsWindowsGNU())
			assert.Equal(t, tc.darwin, target.IsDarwin())
			assert.Equal(t, tc.library, target.LibraryFileName())

			cross, ok := target.CrossSystemName()
			assert.Equal(t, tc.cross != "", ok)
			assert.Equal(t, tc.cross, cross)

			key, value, ok := target.CompilerOverride()
			assert.Equal(t, tc.musl, ok)
			if tc.musl {
				assert.Equal(t, "CC", key)
				assert.Equal(t, "musl-gcc", value)
			}
		})
	}
}

func TestResolveTarget(t *testing.T) {
	target, err := ResolveTarget(func(key string) string {
		if key == EnvTarget {
			return "aarch64-apple-darwin"
		}
		return ""
	})
	require.NoError(t, err)
	assert.True(t, target.IsDarwin())

	_, err = ResolveTarget(func(string) string { return "" })
	require.ErrorIs(t, err, ErrMissingEnv)
	assert.Contains(t, err.Error(), EnvTarget)
}

func TestLoadEnvironment(t *testing.T) {
	full := map[string]string{
		EnvTarget:      "x86_64-unknown-linux-gnu",
		EnvOutDir:      "/tmp/out",
		EnvManifestDir: "/src/project",
	}

	env, err := LoadEnvironment(func(key string) string { return full[key] })
	require.NoError(t, err)
	assert.Equal(t, "/tmp/out", env.OutDir)
	assert.Equal(t, "/src/project", env.ManifestDir)
	assert.Equal(t, "linux", env.Target.OS)

	for _, missing := range []string{EnvTarget, EnvOutDir, EnvManifestDir} {
		t.Run("missing "+missing, func(t *testing.T) {
			_, err := LoadEnvironment(func(key string) string {
				if key == missing {
					return ""
				}
				return full[key]
			})
			require.ErrorIs(t, err, ErrMissingEnv)
			assert.Contains(t, err.Error(), missing)
		})
	}
}
