package bm25

import (
	"strings"
	"unicode"

	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
)

// identifierAnalyzer is a bleve analysis.Analyzer built from stock
// primitives (a custom tokenizer plus bleve's lowercase filter) used
// to expand snake_case and camelCase/PascalCase identifiers into
// sub-tokens for a secondary BM25 pass, grounded on Aman-CERP/amanmcp's
// internal/store/tokenizer.go + bm25.go code analyzer. The primary
// tokenizer (Tokenize, in tokenizer.go) stays spec-exact; this is strictly
// additive and only engaged when an Index is built with
// ExpandIdentifiers enabled.
var identifierAnalyzer = &analysis.Analyzer{
	Tokenizer:    &identifierTokenizer{},
	TokenFilters: []analysis.TokenFilter{lowercase.NewLowerCaseFilter()},
}

type identifierTokenizer struct{}

func (identifierTokenizer) Tokenize(input []byte) analysis.TokenStream {
	words := splitWordChars(string(input))
	var stream analysis.TokenStream
	pos := 1
	for _, w := range words {
		for _, sub := range splitCodeToken(w) {
			if len(sub) == 0 {
				continue
			}
			stream = append(stream, &analysis.Token{
				Term:     []byte(sub),
				Position: pos,
				Type:     analysis.AlphaNumeric,
			})
			pos++
		}
	}
	return stream
}

func splitWordChars(text string) []string {
	var words []string
	var cur strings.Builder
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			cur.WriteRune(r)
		} else if cur.Len() > 0 {
			words = append(words, cur.String())
			cur.Reset()
		}
	}
	if cur.Len() > 0 {
		words = append(words, cur.String())
	}
	return words
}

// splitCodeToken splits snake_case, then recursively splits camelCase
// within each part — the same two-stage approach as
// amanmcp's SplitCodeToken/SplitCamelCase.
func splitCodeToken(token string) []string {
	if strings.Contains(token, "_") {
		var out []string
		for _, part := range strings.Split(token, "_") {
			if part != "" {
				out = append(out, splitCamelCase(part)...)
			}
		}
		return out
	}
	return splitCamelCase(token)
}

func splitCamelCase(s string) []string {
	if s == "" {
		return nil
	}
	var result []string
	var cur strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prevLower := unicode.IsLower(runes[i-1])
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if prevLower || nextLower {
				if cur.Len() > 0 {
					result = append(result, cur.String())
					cur.Reset()
				}
			}
		}
		cur.WriteRune(r)
	}
	if cur.Len() > 0 {
		result = append(result, cur.String())
	}
	return result
}

// CodeTokenize runs the identifier-expansion analyzer over text and
// returns lowercase sub-tokens (e.g. "getUserById" -> "get","user",
// "by","id"). Tokens shorter than two characters are dropped, matching
// the primary tokenizer's discard rule.
func CodeTokenize(text string) []string {
	stream := identifierAnalyzer.Tokenizer.Tokenize([]byte(text))
	for _, filter := range identifierAnalyzer.TokenFilters {
		stream = filter.Filter(stream)
	}
	out := make([]string, 0, len(stream))
	for _, tok := range stream {
		term := string(tok.Term)
		if len(term) >= 2 {
			out = append(out, term)
		}
	}
	return out
}
