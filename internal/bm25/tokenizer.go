package bm25

import (
	"strings"
	"unicode"
)

// Tokenize implements the exact tokenizer spec.md §4.4 requires:
// lowercase, split on any rune that is not a letter/digit/underscore,
// discard tokens shorter than two characters. "user_id" stays one
// token; "getUserById" stays one token (no camelCase splitting) —
// that expansion is a separate, optional pass, see CodeTokenize.
func Tokenize(text string) []string {
	var tokens []string
	var cur strings.Builder

	flush := func() {
		if cur.Len() >= 2 {
			tokens = append(tokens, strings.ToLower(cur.String()))
		}
		cur.Reset()
	}

	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			cur.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()
	return tokens
}
