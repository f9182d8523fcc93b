package hookbuild

import (
	"bytes"
	"context"
	"fmt"
	"go/token"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/tools/imports"
	"modernc.org/cc/v4"
)

// Rename is one literal text substitution applied to generated bindings.
type Rename struct {
	Old string
	New string
}

// DefaultRenames shorten the enum constant names. They are plain string
// replacements and must be revisited together with DefaultAllowVars when
// the header's naming convention changes.
var DefaultRenames = []Rename{
	{Old: "_event_type_EVENT", New: "EVENT"},
	{Old: "_log_level_LOG_LEVEL", New: "LOG_LEVEL"},
}

// DefaultAllowFunctions lists the functions exposed from uiohook.h.
var DefaultAllowFunctions = []string{
	"logger_proc",
	"hook_set_logger_proc",
	"hook_post_event",
	"hook_set_dispatch_proc",
	"hook_run",
	"hook_stop",
	"hook_create_screen_info",
	"hook_get_auto_repeat_rate",
	"hook_get_auto_repeat_delay",
	"hook_get_pointer_acceleration_multiplier",
	"hook_get_pointer_acceleration_threshold",
	"hook_get_pointer_sensitivity",
	"hook_get_multi_click_time",
}

// DefaultAllowVars lists the constant name patterns exposed from uiohook.h.
// Enum constants are named <enum tag>_<enumerator> before renaming.
var DefaultAllowVars = []string{
	"_event_type_EVENT.*",
	"_log_level_LOG_LEVEL.*",
}

// BindingConfig controls binding generation.
type BindingConfig struct {
	HeaderPath string // C header to parse
	OutputPath string // Generated Go file, overwritten on every run
	Package    string // Package clause of the generated file

	AllowFunctions []string // Function name patterns to expose
	AllowVars      []string // Constant name patterns to expose

	TrustMangling bool // Bind against __asm__ link names instead of declared names
	Format        bool // gofmt the generated source
	DeriveDebug   bool // Emit defined enum types with String methods

	Renames []Rename // Applied in order to the generated text
}

// DefaultBindingConfig returns the configuration used for uiohook.h.
// HeaderPath and OutputPath are left empty for BuildConfig to resolve.
func DefaultBindingConfig() BindingConfig {
	return BindingConfig{
		Package:        LibraryName,
		AllowFunctions: append([]string{}, DefaultAllowFunctions...),
		AllowVars:      append([]string{}, DefaultAllowVars...),
		TrustMangling:  false,
		Format:         true,
		DeriveDebug:    false,
		Renames:        append([]Rename{}, DefaultRenames...),
	}
}

// BindingGenerator turns a C header into Go foreign-call declarations.
//
// The generated file declares one purego function variable per allowlisted
// function, a Register function binding them to a dlopen handle, and the
// allowlisted enum constants.
type BindingGenerator struct{}

// NewBindingGenerator returns a BindingGenerator.
func NewBindingGenerator() *BindingGenerator {
	return &BindingGenerator{}
}

// Generate parses config.HeaderPath and returns the generated Go source.
func (g *BindingGenerator) Generate(config BindingConfig) ([]byte, error) {
	allow, err := compileAllowlists(config)
	if err != nil {
		return nil, err
	}

	header, err := loadHeader(config.HeaderPath)
	if err != nil {
		return nil, err
	}

	text, err := renderBindings(header, config, allow)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.HeaderPath, err)
	}

	text = ApplyRenames(text, config.Renames)

	if !config.Format {
		return []byte(text), nil
	}

	out, err := imports.Process(config.OutputPath, []byte(text), &imports.Options{
		Comments:   true,
		TabIndent:  true,
		TabWidth:   8,
		FormatOnly: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: formatting generated code: %v", ErrHeaderParse, err)
	}
	return out, nil
}

// Write generates the bindings and replaces config.OutputPath with them.
// There is no diffing; the file is rewritten on every call.
func (g *BindingGenerator) Write(ctx context.Context, config BindingConfig) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := g.Generate(config)
	if err != nil {
		return err
	}

	if err := writeFileAtomic(config.OutputPath, data, 0o644); err != nil {
		return fmt.Errorf("couldn't write %s: %w", config.OutputPath, err)
	}
	return nil
}

// Symbols returns the link symbols of the allowlisted functions declared in
// config.HeaderPath, in header order.
func (g *BindingGenerator) Symbols(config BindingConfig) ([]string, error) {
	allow, err := compileAllowlists(config)
	if err != nil {
		return nil, err
	}

	header, err := loadHeader(config.HeaderPath)
	if err != nil {
		return nil, err
	}

	var symbols []string
	for _, fn := range header.Funcs {
		if !allow.functions.match(fn.Name) {
			continue
		}
		symbols = append(symbols, linkSymbol(fn, config.TrustMangling))
	}
	return symbols, nil
}

func loadHeader(path string) (*cHeader, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHeaderParse, err)
	}

	header, err := parseHeader(path, src)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return header, nil
}

func linkSymbol(fn cFunc, trustMangling bool) string {
	if trustMangling && fn.LinkName != "" {
		return fn.LinkName
	}
	return fn.Name
}

type allowlists struct {
	functions patternSet
	vars      patternSet
}

func compileAllowlists(config BindingConfig) (allowlists, error) {
	functions, err := compilePatterns("function", config.AllowFunctions)
	if err != nil {
		return allowlists{}, err
	}
	vars, err := compilePatterns("var", config.AllowVars)
	if err != nil {
		return allowlists{}, err
	}
	return allowlists{functions: functions, vars: vars}, nil
}

// ApplyRenames applies each rename, in order, to every occurrence in text.
func ApplyRenames(text string, renames []Rename) string {
	for _, r := range renames {
		if r.Old == "" {
			continue
		}
		text = strings.ReplaceAll(text, r.Old, r.New)
	}
	return text
}

type boundEnum struct {
	typeName string
	values   []boundConst
}

type boundConst struct {
	name       string
	enumerator string
	value      int64
}

type boundFunc struct {
	goName string
	symbol string
	sig    string
}

func renderBindings(h *cHeader, config BindingConfig, allow allowlists) (string, error) {
	var (
		enums       []boundEnum
		funcs       []boundFunc
		needsUnsafe bool
	)

	// Generated names share the package scope with Register.
	declared := map[string]string{"Register": "Register"}
	declare := func(goName, cName string) error {
		if prev, ok := declared[goName]; ok {
			return fmt.Errorf("%w: %s and %s both map to %s", ErrHeaderParse, prev, cName, goName)
		}
		declared[goName] = cName
		return nil
	}

	for _, e := range h.Enums {
		prefix := e.Tag
		if prefix == "" {
			prefix = e.Alias
		}
		var be boundEnum
		for _, v := range e.Values {
			name := v.Name
			if prefix != "" {
				name = prefix + "_" + v.Name
			}
			if allow.vars.match(name) {
				be.values = append(be.values, boundConst{name: name, enumerator: v.Name, value: v.Value})
			}
		}
		if len(be.values) == 0 {
			continue
		}
		if prefix != "" {
			be.typeName = exportedName(prefix)
			if err := declare(be.typeName, prefix); err != nil {
				return "", err
			}
		}
		enums = append(enums, be)
	}

	for _, fn := range h.Funcs {
		if !allow.functions.match(fn.Name) {
			continue
		}
		sig, usesUnsafe, err := goSignature(fn)
		if err != nil {
			return "", err
		}
		needsUnsafe = needsUnsafe || usesUnsafe

		goName := exportedName(fn.Name)
		if err := declare(goName, fn.Name); err != nil {
			return "", err
		}
		funcs = append(funcs, boundFunc{goName: goName, symbol: linkSymbol(fn, config.TrustMangling), sig: sig})
	}

	var b bytes.Buffer
	fmt.Fprintf(&b, "// Code generated by hookbuild from %s; DO NOT EDIT.\n\n", filepath.Base(config.HeaderPath))
	fmt.Fprintf(&b, "package %s\n\n", config.Package)

	var importLines []string
	if needsUnsafe {
		importLines = append(importLines, `"unsafe"`)
	}
	if config.DeriveDebug && len(enums) > 0 {
		importLines = append(importLines, `"strconv"`)
	}
	if len(funcs) > 0 {
		if len(importLines) > 0 {
			importLines = append(importLines, "")
		}
		importLines = append(importLines, `"github.com/ebitengine/purego"`)
	}
	if len(importLines) > 0 {
		fmt.Fprintf(&b, "import (\n")
		for _, line := range importLines {
			if line == "" {
				b.WriteString("\n")
				continue
			}
			fmt.Fprintf(&b, "\t%s\n", line)
		}
		fmt.Fprintf(&b, ")\n\n")
	}

	for _, e := range enums {
		writeEnum(&b, e, config.DeriveDebug)
	}

	if len(funcs) > 0 {
		fmt.Fprintf(&b, "// Library functions, nil until Register binds them.\n")
		fmt.Fprintf(&b, "var (\n")
		for _, fn := range funcs {
			fmt.Fprintf(&b, "\t%s %s\n", fn.goName, fn.sig)
		}
		fmt.Fprintf(&b, ")\n\n")

		fmt.Fprintf(&b, "// Register binds every declared function to its symbol in the library\n")
		fmt.Fprintf(&b, "// referenced by handle, as returned by purego.Dlopen.\n")
		fmt.Fprintf(&b, "func Register(handle uintptr) {\n")
		for _, fn := range funcs {
			fmt.Fprintf(&b, "\tpurego.RegisterLibFunc(&%s, handle, %q)\n", fn.goName, fn.symbol)
		}
		fmt.Fprintf(&b, "}\n")
	}

	return b.String(), nil
}

func writeEnum(b *bytes.Buffer, e boundEnum, deriveDebug bool) {
	typed := e.typeName != ""
	if typed {
		if deriveDebug {
			fmt.Fprintf(b, "type %s uint32\n\n", e.typeName)
		} else {
			fmt.Fprintf(b, "type %s = uint32\n\n", e.typeName)
		}
	}

	fmt.Fprintf(b, "const (\n")
	for _, v := range e.values {
		if typed {
			fmt.Fprintf(b, "\t%s %s = %d\n", v.name, e.typeName, v.value)
		} else {
			fmt.Fprintf(b, "\t%s = %d\n", v.name, v.value)
		}
	}
	fmt.Fprintf(b, ")\n\n")

	if !typed || !deriveDebug {
		return
	}

	fmt.Fprintf(b, "func (v %s) String() string {\n\tswitch v {\n", e.typeName)
	seen := map[int64]bool{}
	for _, v := range e.values {
		if seen[v.value] {
			continue
		}
		seen[v.value] = true
		fmt.Fprintf(b, "\tcase %s:\n\t\treturn %q\n", v.name, v.enumerator)
	}
	fmt.Fprintf(b, "\t}\n\treturn %q + strconv.FormatUint(uint64(v), 10) + \")\"\n}\n\n", e.typeName+"(")
}

// goSignature renders the Go func type for fn.
func goSignature(fn cFunc) (string, bool, error) {
	if fn.Variadic {
		return "", false, fmt.Errorf("%w: %s is variadic", ErrHeaderParse, fn.Name)
	}

	usesUnsafe := false
	params := make([]string, 0, len(fn.Params))
	for i, p := range fn.Params {
		t, err := goType(p.Type)
		if err != nil {
			return "", false, fmt.Errorf("%w: %s parameter %d: %v", ErrHeaderParse, fn.Name, i, err)
		}
		if t == "" {
			return "", false, fmt.Errorf("%w: %s parameter %d has type void", ErrHeaderParse, fn.Name, i)
		}
		usesUnsafe = usesUnsafe || t == "unsafe.Pointer"
		params = append(params, goIdent(p.Name)+" "+t)
	}

	ret, err := goType(fn.Return)
	if err != nil {
		return "", false, fmt.Errorf("%w: %s result: %v", ErrHeaderParse, fn.Name, err)
	}
	usesUnsafe = usesUnsafe || ret == "unsafe.Pointer"

	sig := "func(" + strings.Join(params, ", ") + ")"
	if ret != "" {
		sig += " " + ret
	}
	return sig, usesUnsafe, nil
}

// Fixed-width and pointer-sized typedefs keep their Go counterpart
// whatever the host ABI makes of them.
var typedefToGo = map[string]string{
	"int8_t":    "int8",
	"uint8_t":   "uint8",
	"int16_t":   "int16",
	"uint16_t":  "uint16",
	"int32_t":   "int32",
	"uint32_t":  "uint32",
	"int64_t":   "int64",
	"uint64_t":  "uint64",
	"size_t":    "uintptr",
	"uintptr_t": "uintptr",
	"intptr_t":  "int",
}

var kindToGo = map[cc.Kind]string{
	cc.Void:      "",
	cc.Bool:      "bool",
	cc.Char:      "int8",
	cc.SChar:     "int8",
	cc.UChar:     "uint8",
	cc.Short:     "int16",
	cc.UShort:    "uint16",
	cc.Int:       "int32",
	cc.UInt:      "uint32",
	cc.Long:      "int",
	cc.ULong:     "uint",
	cc.LongLong:  "int64",
	cc.ULongLong: "uint64",
	cc.Float:     "float32",
	cc.Double:    "float64",
	cc.Enum:      "uint32",
}

// goType maps a C type to the Go type purego passes it as. Pointers become
// unsafe.Pointer and callbacks uintptr (see purego.NewCallback); records
// passed by value are rejected.
func goType(t cc.Type) (string, error) {
	if td := t.Typedef(); td != nil {
		if goT, ok := typedefToGo[td.Name()]; ok {
			return goT, nil
		}
	}

	switch t.Kind() {
	case cc.Ptr:
		if p, ok := t.(*cc.PointerType); ok && p.Elem().Kind() == cc.Function {
			return "uintptr", nil
		}
		return "unsafe.Pointer", nil
	case cc.Array:
		return "unsafe.Pointer", nil
	case cc.Function:
		return "uintptr", nil
	case cc.Struct, cc.Union:
		return "", fmt.Errorf("record %s passed by value", t)
	}

	if goT, ok := kindToGo[t.Kind()]; ok {
		return goT, nil
	}
	return "", fmt.Errorf("unsupported type %s", t)
}

// goIdent makes a C identifier usable as a Go identifier.
func goIdent(name string) string {
	if token.IsKeyword(name) {
		return name + "_"
	}
	return name
}

// exportedName turns a C identifier into an exported Go identifier:
// hook_run becomes HookRun and _event_type becomes EventType.
func exportedName(name string) string {
	var b strings.Builder
	for _, part := range strings.Split(name, "_") {
		if part == "" {
			continue
		}
		b.WriteString(strings.ToUpper(part[:1]))
		b.WriteString(part[1:])
	}
	out := b.String()
	if out == "" || !unicode.IsUpper(rune(out[0])) {
		out = "X" + out
	}
	return out
}
