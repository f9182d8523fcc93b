//go:build static

package hookbuild

const staticDefault = true
