package hookbuild

import (
	"embed"
	"fmt"
	"runtime"
	"strconv"

	"modernc.org/cc/v4"
)

// Freestanding headers (stdbool.h, stdint.h, ...) served to the C front end
// so parsing does not depend on a host libc.
//
//go:embed cheaders/*.h
var freestandingHeaders embed.FS

const freestandingDir = "cheaders"

// predefinedSource is preprocessed ahead of the header. The type checker
// requires __predefined_declarator to be declared.
const predefinedSource = `#define __STDC__ 1
#define __STDC_VERSION__ 201710L
#define __STDC_HOSTED__ 1
#define __extension__
int __predefined_declarator;
`

// cHeader is the subset of a C header the binding generator understands.
type cHeader struct {
	Enums []cEnum
	Funcs []cFunc
}

type cEnum struct {
	Tag    string // _event_type
	Alias  string // event_type
	Values []cEnumerator
}

type cEnumerator struct {
	Name  string
	Value int64
}

type cParam struct {
	Name string
	Type cc.Type
}

type cFunc struct {
	Name     string
	LinkName string // from __asm__("..."), empty when absent
	Return   cc.Type
	Params   []cParam
	Variadic bool
}

// parseHeader preprocesses, parses and type checks the header named name
// and collects its top-level enums and function prototypes in declaration
// order.
func parseHeader(name string, src []byte) (*cHeader, error) {
	cfg, err := headerConfig()
	if err != nil {
		return nil, err
	}

	ast, err := cc.Translate(cfg, []cc.Source{
		{Name: "<predefined>", Value: predefinedSource},
		{Name: name, Value: src},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHeaderParse, err)
	}

	h := &cHeader{}
	seen := map[string]bool{}
	for tu := ast.TranslationUnit; tu != nil; tu = tu.TranslationUnit {
		ed := tu.ExternalDeclaration
		if ed == nil || ed.Case != cc.ExternalDeclarationDecl || ed.Declaration == nil {
			continue
		}
		decl := ed.Declaration
		if decl.Case != cc.DeclarationDecl {
			continue
		}

		enums, err := declaredEnums(decl)
		if err != nil {
			return nil, err
		}
		h.Enums = append(h.Enums, enums...)

		for l := decl.InitDeclaratorList; l != nil; l = l.InitDeclaratorList {
			fn, ok, err := declaredFunc(l.InitDeclarator)
			if err != nil {
				return nil, err
			}
			if !ok || seen[fn.Name] {
				continue
			}
			seen[fn.Name] = true
			h.Funcs = append(h.Funcs, fn)
		}
	}
	return h, nil
}

func headerConfig() (*cc.Config, error) {
	abi, err := cc.NewABI(runtime.GOOS, runtime.GOARCH)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHeaderParse, err)
	}
	return &cc.Config{
		ABI:             abi,
		FS:              freestandingHeaders,
		IncludePaths:    []string{""},
		SysIncludePaths: []string{freestandingDir},
		Header:          true,
	}, nil
}

// declaredEnums returns the enums defined in the specifiers of decl. The
// first typedef name becomes the alias.
func declaredEnums(decl *cc.Declaration) ([]cEnum, error) {
	var alias string
	for l := decl.InitDeclaratorList; l != nil; l = l.InitDeclaratorList {
		if d := l.InitDeclarator.Declarator; d != nil && d.IsTypename() {
			alias = d.Name()
			break
		}
	}

	var enums []cEnum
	for ds := decl.DeclarationSpecifiers; ds != nil; ds = ds.DeclarationSpecifiers {
		ts := ds.TypeSpecifier
		if ts == nil || ts.EnumSpecifier == nil || ts.EnumSpecifier.EnumeratorList == nil {
			continue
		}
		spec := ts.EnumSpecifier
		enum := cEnum{Tag: spec.Token2.SrcStr(), Alias: alias}
		for l := spec.EnumeratorList; l != nil; l = l.EnumeratorList {
			en := l.Enumerator
			value, err := enumeratorValue(en)
			if err != nil {
				return nil, err
			}
			enum.Values = append(enum.Values, cEnumerator{Name: en.Token.SrcStr(), Value: value})
		}
		enums = append(enums, enum)
	}
	return enums, nil
}

func enumeratorValue(en *cc.Enumerator) (int64, error) {
	switch v := en.Value().(type) {
	case cc.Int64Value:
		return int64(v), nil
	case cc.UInt64Value:
		return int64(v), nil
	default:
		return 0, fmt.Errorf("%w: %v: enumerator %s has no constant value", ErrHeaderParse, en.Position(), en.Token.SrcStr())
	}
}

// declaredFunc reports the function prototype declared by id, if any.
func declaredFunc(id *cc.InitDeclarator) (cFunc, bool, error) {
	if id == nil || id.Declarator == nil || id.Declarator.IsTypename() {
		return cFunc{}, false, nil
	}
	d := id.Declarator
	ft, ok := d.Type().(*cc.FunctionType)
	if !ok {
		return cFunc{}, false, nil
	}

	fn := cFunc{
		Name:     d.Name(),
		Return:   ft.Result(),
		Variadic: ft.IsVariadic(),
	}
	if id.Asm != nil {
		link, err := strconv.Unquote(id.Asm.Token3.SrcStr())
		if err != nil {
			return cFunc{}, false, fmt.Errorf("%w: %v: asm label of %s: %v", ErrHeaderParse, id.Position(), fn.Name, err)
		}
		fn.LinkName = link
	}

	// f(void) declares a single void parameter.
	if ft.MaxArgs() == 0 {
		return fn, true, nil
	}
	for i, p := range ft.Parameters() {
		name := p.Name()
		if name == "" {
			name = fmt.Sprintf("arg%d", i)
		}
		fn.Params = append(fn.Params, cParam{Name: name, Type: p.Type()})
	}
	return fn, true, nil
}
