//go:build with_bindgen

package hookbuild

const bindgenDefault = true
