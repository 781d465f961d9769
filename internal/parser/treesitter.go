package parser

import (
	"context"
	"strings"
	"sync"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_cpp "github.com/tree-sitter/tree-sitter-cpp/bindings/go"
	tree_sitter_csharp "github.com/tree-sitter/tree-sitter-c-sharp/bindings/go"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"
	tree_sitter_java "github.com/tree-sitter/tree-sitter-java/bindings/go"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_php "github.com/tree-sitter/tree-sitter-php/bindings/go"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	tree_sitter_rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"

	"github.com/recallhq/recall/internal/types"
)

// languageSetup bundles a tree-sitter parser, its symbol-extraction
// query, and the mapping from capture name to SemanticUnit kind that
// spec §4.1's "Required semantic coverage" table specifies per
// language. Grounded on the teacher's internal/parser/parser_language_setup.go.
type languageSetup struct {
	parser      *tree_sitter.Parser
	query       *tree_sitter.Query
	captureKind map[string]types.UnitType
}

// TreeSitterExtractor lazily builds one languageSetup per code language
// on first use, mirroring the teacher's "Phase 5: Lazy loading
// infrastructure" (internal/parser/parser.go).
type TreeSitterExtractor struct {
	mu     sync.Mutex
	setups map[types.Language]*languageSetup
}

// NewTreeSitterExtractor returns an extractor with no languages
// initialized yet.
func NewTreeSitterExtractor() *TreeSitterExtractor {
	return &TreeSitterExtractor{setups: make(map[types.Language]*languageSetup)}
}

// Close is a no-op placeholder: the go-tree-sitter bindings free parser
// memory via finalizers, so there is nothing to release explicitly, but
// callers may still want a symmetrical Close to pair with NewRegistry.
func (e *TreeSitterExtractor) Close() {}

func (e *TreeSitterExtractor) setupFor(lang types.Language) *languageSetup {
	e.mu.Lock()
	defer e.mu.Unlock()
	if s, ok := e.setups[lang]; ok {
		return s
	}
	s := build(lang)
	e.setups[lang] = s
	return s
}

// Extract parses content with the language's tree-sitter grammar and
// walks the query matches into SemanticUnits.
func (e *TreeSitterExtractor) Extract(ctx context.Context, filePath string, content []byte, lang types.Language) ([]types.SemanticUnit, error) {
	setup := e.setupFor(lang)
	if setup == nil || setup.parser == nil || setup.query == nil {
		// Grammar unavailable for this language build: error-tolerant,
		// per §4.1 "partial/ambiguous trees in code languages return
		// whatever the parser could recover" — here, nothing.
		return nil, nil
	}

	tree := setup.parser.Parse(content, nil)
	if tree == nil {
		return nil, nil
	}
	defer tree.Close()

	qc := tree_sitter.NewQueryCursor()
	defer qc.Close()

	matches := qc.Matches(setup.query, tree.RootNode(), content)
	captureNames := setup.query.CaptureNames()

	var units []types.SemanticUnit
	methodNodes := make(map[[2]uint]bool) // (start,end) byte ranges already classified as method

	// First pass: methods, so the second pass can skip re-classifying
	// the same node as a bare function (§4.1 "Methods are emitted both
	// when encountered as class children ... and as freestanding
	// functions ... if not nested in a class").
	type pending struct {
		node        tree_sitter.Node
		kind        types.UnitType
		captureName string
		names       map[string]string
	}
	var pendingUnits []pending

	for {
		m := matches.Next()
		if m == nil {
			break
		}
		names := make(map[string]string, 4)
		for _, c := range m.Captures {
			cn := captureNames[c.Index]
			if strings.HasSuffix(cn, ".name") {
				names[cn] = string(content[c.Node.StartByte():c.Node.EndByte()])
			}
		}
		for _, c := range m.Captures {
			cn := captureNames[c.Index]
			if strings.Contains(cn, ".") {
				continue // sub-capture, not a unit root
			}
			kind, ok := setup.captureKind[cn]
			if !ok {
				continue // capture not part of spec's required coverage (imports, fields, ...)
			}
			key := [2]uint{uint(c.Node.StartByte()), uint(c.Node.EndByte())}
			if kind == types.UnitTypeMethod {
				methodNodes[key] = true
			}
			pendingUnits = append(pendingUnits, pending{node: c.Node, kind: kind, captureName: cn, names: names})
		}
	}

	for _, p := range pendingUnits {
		key := [2]uint{uint(p.node.StartByte()), uint(p.node.EndByte())}
		if p.kind == types.UnitTypeFunction && methodNodes[key] {
			continue // this node already surfaced as a method
		}
		unit := unitFromNode(&p.node, content, filePath, lang, p.kind, p.captureName, p.names)
		if unit.Name != "" {
			units = append(units, unit)
		}
	}

	return units, nil
}

func unitFromNode(node *tree_sitter.Node, content []byte, filePath string, lang types.Language, kind types.UnitType, captureName string, names map[string]string) types.SemanticUnit {
	name := resolveName(node, content, captureName, names)
	start := node.StartPosition()
	end := node.EndPosition()
	startByte := int(node.StartByte())
	endByte := int(node.EndByte())
	body := content[startByte:endByte]

	sig := string(body)
	if len(sig) > 200 {
		sig = sig[:200]
	}

	return types.SemanticUnit{
		UnitType:  kind,
		Name:      name,
		Language:  lang,
		FilePath:  filePath,
		StartLine: int(start.Row) + 1,
		EndLine:   int(end.Row) + 1,
		StartByte: startByte,
		EndByte:   endByte,
		Signature: sig,
		Content:   append([]byte(nil), body...),
	}
}

func resolveName(node *tree_sitter.Node, content []byte, captureName string, names map[string]string) string {
	if n, ok := names[captureName+".name"]; ok {
		return n
	}
	if n := node.ChildByFieldName("name"); n != nil {
		return string(content[n.StartByte():n.EndByte()])
	}
	return ""
}

// build constructs the languageSetup for lang, or nil if recall has no
// grammar for it.
func build(lang types.Language) *languageSetup {
	switch lang {
	case types.LanguagePython:
		return buildPython()
	case types.LanguageJavaScript:
		return buildJavaScript()
	case types.LanguageTypeScript:
		return buildTypeScript()
	case types.LanguageJava:
		return buildJava()
	case types.LanguageGo:
		return buildGo()
	case types.LanguageRust:
		return buildRust()
	case types.LanguageC, types.LanguageCPP:
		return buildCpp()
	case types.LanguageCSharp:
		return buildCSharp()
	case types.LanguagePHP:
		return buildPHP()
	}
	return nil
}

func newParser(lang *tree_sitter.Language) *tree_sitter.Parser {
	p := tree_sitter.NewParser()
	if err := p.SetLanguage(lang); err != nil {
		return nil
	}
	return p
}

// compileQuery builds a tree-sitter query, working around the
// known go-tree-sitter bug (noted throughout the teacher corpus) where a
// failed query can return a typed-nil error that still compares != nil;
// callers must check the returned *Query for nil, not the error.
func compileQuery(lang *tree_sitter.Language, src string) *tree_sitter.Query {
	q, _ := tree_sitter.NewQuery(lang, src)
	return q
}

func buildPython() *languageSetup {
	language := tree_sitter.NewLanguage(tree_sitter_python.Language())
	p := newParser(language)
	if p == nil {
		return nil
	}
	query := `
        (class_definition
            body: (block
                (function_definition name: (identifier) @method.name) @method))
        (class_definition
            body: (block
                (function_definition
                    "async"
                    name: (identifier) @method.name) @method))
        (function_definition name: (identifier) @function.name) @function
        (class_definition name: (identifier) @class.name) @class
    `
	return &languageSetup{
		parser: p,
		query:  compileQuery(language, query),
		captureKind: map[string]types.UnitType{
			"function": types.UnitTypeFunction,
			"method":   types.UnitTypeMethod,
			"class":    types.UnitTypeClass,
		},
	}
}

func buildJavaScript() *languageSetup {
	language := tree_sitter.NewLanguage(tree_sitter_javascript.Language())
	p := newParser(language)
	if p == nil {
		return nil
	}
	query := `
        (function_declaration name: (identifier) @function.name) @function
        (generator_function_declaration name: (identifier) @function.name) @function
        (variable_declarator
            name: (identifier) @function.name
            value: [(arrow_function) (function_expression) (generator_function)]) @function
        (method_definition name: (property_identifier) @method.name) @method
        (class_declaration name: (identifier) @class.name) @class
    `
	return &languageSetup{
		parser: p,
		query:  compileQuery(language, query),
		captureKind: map[string]types.UnitType{
			"function": types.UnitTypeFunction,
			"method":   types.UnitTypeMethod,
			"class":    types.UnitTypeClass,
		},
	}
}

func buildTypeScript() *languageSetup {
	language := tree_sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript())
	p := newParser(language)
	if p == nil {
		return nil
	}
	query := `
        (function_declaration name: (identifier) @function.name) @function
        (generator_function_declaration name: (identifier) @function.name) @function
        (function_expression name: (identifier) @function.name) @function
        (variable_declarator
            name: (identifier) @function.name
            value: [(arrow_function) (function_expression)]) @function
        (method_definition name: (property_identifier) @method.name) @method
        (class_declaration name: (type_identifier) @class.name) @class
        (interface_declaration name: (type_identifier) @interface.name) @interface
    `
	return &languageSetup{
		parser: p,
		query:  compileQuery(language, query),
		captureKind: map[string]types.UnitType{
			"function":  types.UnitTypeFunction,
			"method":    types.UnitTypeMethod,
			"class":     types.UnitTypeClass,
			"interface": types.UnitTypeClass,
		},
	}
}

func buildJava() *languageSetup {
	language := tree_sitter.NewLanguage(tree_sitter_java.Language())
	p := newParser(language)
	if p == nil {
		return nil
	}
	query := `
        (method_declaration name: (identifier) @method.name) @method
        (constructor_declaration name: (identifier) @method.name) @method
        (class_declaration name: (identifier) @class.name) @class
        (record_declaration name: (identifier) @class.name) @class
        (interface_declaration name: (identifier) @interface.name) @interface
        (enum_declaration name: (identifier) @class.name) @class
    `
	return &languageSetup{
		parser: p,
		query:  compileQuery(language, query),
		captureKind: map[string]types.UnitType{
			"method":    types.UnitTypeMethod,
			"class":     types.UnitTypeClass,
			"interface": types.UnitTypeClass,
		},
	}
}

func buildGo() *languageSetup {
	language := tree_sitter.NewLanguage(tree_sitter_go.Language())
	p := newParser(language)
	if p == nil {
		return nil
	}
	query := `
        (function_declaration name: (identifier) @function.name) @function
        (method_declaration
            name: (field_identifier) @method.name) @method
        (type_declaration
            (type_spec name: (type_identifier) @class.name)) @class
    `
	return &languageSetup{
		parser: p,
		query:  compileQuery(language, query),
		captureKind: map[string]types.UnitType{
			"function": types.UnitTypeFunction,
			"method":   types.UnitTypeMethod,
			"class":    types.UnitTypeClass,
		},
	}
}

func buildRust() *languageSetup {
	language := tree_sitter.NewLanguage(tree_sitter_rust.Language())
	p := newParser(language)
	if p == nil {
		return nil
	}
	query := `
        (impl_item
            body: (declaration_list
                (function_item name: (identifier) @method.name) @method))
        (trait_item
            body: (declaration_list
                (function_item name: (identifier) @method.name) @method))
        (function_item name: (identifier) @function.name) @function
        (struct_item name: (type_identifier) @class.name) @class
        (trait_item name: (type_identifier) @interface.name) @interface
    `
	return &languageSetup{
		parser: p,
		query:  compileQuery(language, query),
		captureKind: map[string]types.UnitType{
			"function":  types.UnitTypeFunction,
			"method":    types.UnitTypeMethod,
			"class":     types.UnitTypeClass,
			"interface": types.UnitTypeClass,
		},
	}
}

func buildCpp() *languageSetup {
	language := tree_sitter.NewLanguage(tree_sitter_cpp.Language())
	p := newParser(language)
	if p == nil {
		return nil
	}
	query := `
        (function_definition declarator: (function_declarator declarator: (identifier) @function.name)) @function
        (function_definition declarator: (function_declarator declarator: (field_identifier) @method.name)) @method
        (class_specifier name: (type_identifier) @class.name) @class
        (struct_specifier name: (type_identifier) @class.name) @class
    `
	return &languageSetup{
		parser: p,
		query:  compileQuery(language, query),
		captureKind: map[string]types.UnitType{
			"function": types.UnitTypeFunction,
			"method":   types.UnitTypeMethod,
			"class":    types.UnitTypeClass,
		},
	}
}

func buildCSharp() *languageSetup {
	language := tree_sitter.NewLanguage(tree_sitter_csharp.Language())
	p := newParser(language)
	if p == nil {
		return nil
	}
	query := `
        (method_declaration name: (identifier) @method.name) @method
        (constructor_declaration name: (identifier) @method.name) @method
        (class_declaration name: (identifier) @class.name) @class
        (interface_declaration name: (identifier) @interface.name) @interface
        (struct_declaration name: (identifier) @class.name) @class
        (record_declaration name: (identifier) @class.name) @class
        (enum_declaration name: (identifier) @class.name) @class
    `
	return &languageSetup{
		parser: p,
		query:  compileQuery(language, query),
		captureKind: map[string]types.UnitType{
			"method":    types.UnitTypeMethod,
			"class":     types.UnitTypeClass,
			"interface": types.UnitTypeClass,
		},
	}
}

func buildPHP() *languageSetup {
	language := tree_sitter.NewLanguage(tree_sitter_php.LanguagePHP())
	p := newParser(language)
	if p == nil {
		return nil
	}
	query := `
        (class_declaration name: (name) @class.name) @class
        (interface_declaration name: (name) @interface.name) @interface
        (trait_declaration name: (name) @trait.name) @trait
        (function_definition name: (name) @function.name) @function
        (method_declaration name: (name) @method.name) @method
    `
	return &languageSetup{
		parser: p,
		query:  compileQuery(language, query),
		captureKind: map[string]types.UnitType{
			"function":  types.UnitTypeFunction,
			"method":    types.UnitTypeMethod,
			"class":     types.UnitTypeClass,
			"interface": types.UnitTypeClass,
			"trait":     types.UnitTypeClass,
		},
	}
}
