// Package parser implements the parser registry (component A): it maps
// a file path to a language, dispatches to a per-language extractor and
// returns the SemanticUnits spec §4.1 requires. Code languages are
// parsed with tree-sitter (grounded on the teacher's internal/parser);
// JSON/YAML/TOML and SQL get their own lightweight extractors since the
// teacher corpus has no tree-sitter grammars for them.
package parser

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/recallhq/recall/internal/hashid"
	"github.com/recallhq/recall/internal/rerrors"
	"github.com/recallhq/recall/internal/types"
)

// ParseResult is the registry's public return value (spec §4.1).
type ParseResult struct {
	Language    types.Language
	Units       []types.SemanticUnit
	ParseTimeMs float64
}

// extensionTable maps file extensions to languages. Unknown extensions
// resolve to types.LanguageUnknown, which is not an error.
var extensionTable = map[string]types.Language{
	".py":    types.LanguagePython,
	".pyi":   types.LanguagePython,
	".js":    types.LanguageJavaScript,
	".jsx":   types.LanguageJavaScript,
	".mjs":   types.LanguageJavaScript,
	".cjs":   types.LanguageJavaScript,
	".ts":    types.LanguageTypeScript,
	".tsx":   types.LanguageTypeScript,
	".java":  types.LanguageJava,
	".go":    types.LanguageGo,
	".rs":    types.LanguageRust,
	".c":     types.LanguageC,
	".h":     types.LanguageC,
	".cpp":   types.LanguageCPP,
	".cc":    types.LanguageCPP,
	".cxx":   types.LanguageCPP,
	".hpp":   types.LanguageCPP,
	".hxx":   types.LanguageCPP,
	".hh":    types.LanguageCPP,
	".cs":    types.LanguageCSharp,
	".php":   types.LanguagePHP,
	".phtml": types.LanguagePHP,
	".rb":    types.LanguageRuby,
	".swift": types.LanguageSwift,
	".kt":    types.LanguageKotlin,
	".kts":   types.LanguageKotlin,
	".sql":   types.LanguageSQL,
	".json":  types.LanguageJSON,
	".yml":   types.LanguageYAML,
	".yaml":  types.LanguageYAML,
	".toml":  types.LanguageTOML,
}

// LanguageForPath resolves a file's language from its extension.
func LanguageForPath(path string) types.Language {
	ext := strings.ToLower(filepath.Ext(path))
	if lang, ok := extensionTable[ext]; ok {
		return lang
	}
	return types.LanguageUnknown
}

// Registry dispatches Parse calls to the per-language extractor. It owns
// the tree-sitter parser pool so callers should share one Registry
// across a run rather than constructing one per file.
type Registry struct {
	ts *TreeSitterExtractor
}

// NewRegistry builds a Registry with lazily-initialized tree-sitter
// parsers (teacher pattern: setup cost is deferred until a language is
// first seen).
func NewRegistry() *Registry {
	return &Registry{ts: NewTreeSitterExtractor()}
}

// Close releases tree-sitter resources.
func (r *Registry) Close() {
	r.ts.Close()
}

// Parse extracts SemanticUnits from content at filePath. It never
// returns an error for an unknown extension (an empty-unit ParseResult
// tagged LanguageUnknown is success); it returns a *rerrors.ParseError
// only for the strict formats (JSON, TOML) spec §4.1 requires to fail on
// malformed input, or for a genuine parser panic recovered at the file
// boundary (§9 "parser panics must be caught at the file boundary").
func (r *Registry) Parse(ctx context.Context, filePath string, content []byte) (result ParseResult, err error) {
	start := time.Now()
	lang := LanguageForPath(filePath)

	defer func() {
		if rec := recover(); rec != nil {
			err = &rerrors.ParseError{Path: filePath, Language: string(lang), Underlying: panicErr(rec)}
		}
		result.ParseTimeMs = float64(time.Since(start)) / float64(time.Millisecond)
	}()

	var units []types.SemanticUnit
	switch lang {
	case types.LanguageUnknown:
		units = nil
	case types.LanguageJSON:
		units, err = parseJSON(filePath, content)
	case types.LanguageTOML:
		units, err = parseTOML(filePath, content)
	case types.LanguageYAML:
		units = parseYAMLBestEffort(filePath, content)
	case types.LanguageSQL:
		units = parseSQLBestEffort(filePath, content)
	case types.LanguageRuby:
		units = parseBraceless(filePath, content, lang, rubyPatterns)
	case types.LanguageSwift:
		units = parseBraceless(filePath, content, lang, swiftPatterns)
	case types.LanguageKotlin:
		units = parseBraceless(filePath, content, lang, kotlinPatterns)
	default:
		units, err = r.ts.Extract(ctx, filePath, content, lang)
	}
	if err != nil {
		return ParseResult{Language: lang}, err
	}

	finalUnits := make([]types.SemanticUnit, 0, len(units))
	for i := range units {
		u := units[i]
		if u.Name == "" {
			continue // units with empty name are discarded (§4.1)
		}
		u.ContentHash = hashid.ContentHash(u.Content)
		finalUnits = append(finalUnits, u)
	}

	return ParseResult{Language: lang, Units: finalUnits}, nil
}

func panicErr(rec interface{}) error {
	if e, ok := rec.(error); ok {
		return e
	}
	return &recoveredPanic{rec}
}

type recoveredPanic struct{ v interface{} }

func (p *recoveredPanic) Error() string { return "parser panic: " + toString(p.v) }

func toString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	if err, ok := v.(error); ok {
		return err.Error()
	}
	return "unknown panic value"
}
