package hookbuild

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"golang.org/x/tools/imports"
)

// DirectivePrefix starts every line written to the build-instruction channel.
const DirectivePrefix = "hookbuild:"

// Frameworks needed on darwin for low-level input access.
var darwinFrameworks = []string{"IOKit", "Carbon"}

// DirectiveKind identifies what a directive asks the enclosing build to do.
type DirectiveKind string

const (
	KindRerunIfChanged DirectiveKind = "rerun-if-changed"
	KindLinkSearch     DirectiveKind = "link-search"
	KindLinkLib        DirectiveKind = "link-lib"
	KindLinkFramework  DirectiveKind = "link-framework"
)

// Directive is one build instruction.
type Directive struct {
	Kind  DirectiveKind
	Value string
}

// String renders the directive without the channel prefix. Frameworks use
// the link-lib=framework=<name> form.
func (d Directive) String() string {
	if d.Kind == KindLinkFramework {
		return fmt.Sprintf("%s=framework=%s", KindLinkLib, d.Value)
	}
	return fmt.Sprintf("%s=%s", d.Kind, d.Value)
}

// IsLink reports whether the directive affects the final link (as opposed to
// rebuild triggers).
func (d Directive) IsLink() bool {
	switch d.Kind {
	case KindLinkSearch, KindLinkLib, KindLinkFramework:
		return true
	}
	return false
}

// LinkDirectives returns the link instructions for target.
//
// With static set the freshly built libDir is added as a search path and,
// on darwin, the IOKit and Carbon frameworks are linked. Without it a
// system-installed library is assumed and only the bare link-lib is emitted.
func LinkDirectives(target Target, libDir string, static bool) []Directive {
	if !static {
		return []Directive{{Kind: KindLinkLib, Value: LibraryName}}
	}

	directives := []Directive{
		{Kind: KindLinkSearch, Value: libDir},
		{Kind: KindLinkLib, Value: LibraryName},
	}
	if target.IsDarwin() {
		for _, framework := range darwinFrameworks {
			directives = append(directives, Directive{Kind: KindLinkFramework, Value: framework})
		}
	}
	return directives
}

// Emitter writes directives to the enclosing build's instruction channel.
type Emitter struct {
	W io.Writer
}

// NewEmitter returns an Emitter writing to w.
func NewEmitter(w io.Writer) *Emitter {
	return &Emitter{W: w}
}

// Emit writes one prefixed line per directive.
func (e *Emitter) Emit(directives []Directive) error {
	for _, d := range directives {
		if _, err := fmt.Fprintf(e.W, "%s%s\n", DirectivePrefix, d); err != nil {
			return fmt.Errorf("failed to emit %s: %w", d, err)
		}
	}
	return nil
}

// CgoLDFLAGS renders the link directives as linker flags for a
// #cgo LDFLAGS line. Non-link directives are ignored.
func CgoLDFLAGS(directives []Directive) string {
	var flags []string
	for _, d := range directives {
		if !d.IsLink() {
			continue
		}
		switch d.Kind {
		case KindLinkSearch:
			flags = append(flags, cgoQuote("-L"+d.Value))
		case KindLinkFramework:
			flags = append(flags, "-framework", cgoQuote(d.Value))
		default:
			flags = append(flags, cgoQuote("-l"+d.Value))
		}
	}
	return strings.Join(flags, " ")
}

// WriteCgoFile writes a Go file declaring the link directives as cgo flags
// for package pkg. The file is replaced atomically.
func WriteCgoFile(path, pkg string, directives []Directive) error {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "// Code generated by hookbuild; DO NOT EDIT.\n\n")
	fmt.Fprintf(&buf, "package %s\n\n", pkg)
	fmt.Fprintf(&buf, "/*\n")
	if flags := CgoLDFLAGS(directives); flags != "" {
		fmt.Fprintf(&buf, "#cgo LDFLAGS: %s\n", flags)
	}
	fmt.Fprintf(&buf, "*/\nimport \"C\"\n")

	src, err := imports.Process(path, buf.Bytes(), &imports.Options{
		Comments:   true,
		TabIndent:  true,
		TabWidth:   8,
		FormatOnly: true,
	})
	if err != nil {
		return fmt.Errorf("failed to format %s: %w", path, err)
	}

	if err := writeFileAtomic(path, src, 0o644); err != nil {
		return fmt.Errorf("couldn't write %s: %w", path, err)
	}
	return nil
}

func cgoQuote(flag string) string {
	if !strings.ContainsAny(flag, " \t'\"") {
		return flag
	}
	if strings.Contains(flag, "'") {
		return `"` + flag + `"`
	}
	return "'" + flag + "'"
}
