//go:build mage

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
	"github.com/magefile/mage/target"
)

const (
	headerPath   = "vendor/include/uiohook.h"
	bindingsPath = "bindings.go"
)

// Default builds the native library for the host.
var Default = Native

func hookbuild(extra ...string) error {
	args := append([]string{"run", "./cmd/hookbuild"}, extra...)
	if mg.Verbose() {
		args = append(args, "-v")
	}
	return sh.RunWithV(map[string]string{
		"MANIFEST_DIR": manifestDir(),
		"OUT_DIR":      outDir(),
	}, mg.GoCmd(), args...)
}

// Native compiles libuiohook from vendor/ and prints the link directives.
func Native() error {
	return hookbuild("-static", "-target", hostTriple())
}

// Bindings regenerates bindings.go when uiohook.h is newer than it.
func Bindings() error {
	stale, err := target.Path(bindingsPath, headerPath)
	if err != nil {
		return err
	}
	if !stale {
		fmt.Println("bindings.go is up to date")
		return nil
	}
	return hookbuild("-bindgen", "-target", hostTriple())
}

// Test runs the unit tests.
func Test() error {
	return sh.RunV(mg.GoCmd(), "test", "./...")
}

// Clean removes the native build directory.
func Clean() error {
	return hookbuild("-clean", "-target", hostTriple())
}

// Rebuild forces a fresh native build.
func Rebuild() {
	mg.SerialDeps(Clean, Native)
}

func manifestDir() string {
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}

func outDir() string {
	if dir := os.Getenv("OUT_DIR"); dir != "" {
		return dir
	}
	return filepath.Join(manifestDir(), "build", hostTriple())
}

func hostTriple() string {
	if triple := os.Getenv("TARGET"); triple != "" {
		return triple
	}
	out, err := sh.Output(mg.GoCmd(), "env", "GOARCH", "GOOS")
	if err != nil {
		return "x86_64-unknown-linux-gnu"
	}
	var goarch, goos string
	fmt.Sscan(out, &goarch, &goos)
	return goTriple(goarch, goos)
}

func goTriple(goarch, goos string) string {
	arch := map[string]string{"amd64": "x86_64", "arm64": "aarch64", "386": "i686"}[goarch]
	if arch == "" {
		arch = goarch
	}
	switch goos {
	case "darwin":
		return arch + "-apple-darwin"
	case "windows":
		return arch + "-pc-windows-gnu"
	default:
		return arch + "-unknown-" + goos + "-gnu"
	}
}
