package hookbuild

// DefaultFeatures returns the feature set selected by the static and
// with_bindgen build tags.
func DefaultFeatures() Features {
	return Features{Bindgen: bindgenDefault, Static: staticDefault}
}
