package bm25

import "github.com/surgebase/porter2"

// stem reduces a token to its Porter2 stem, skipping words shorter than
// stemMinLength (stemming "id" or "go" does more harm than good).
// Grounded on standardbeagle-lci/internal/semantic/stemmer.go's
// enabled/min-length/exclusions shape, trimmed to what the Config.Stem
// flag (bm25.go) actually needs.
const stemMinLength = 4

func stem(token string) string {
	if len(token) < stemMinLength {
		return token
	}
	return porter2.Stem(token)
}

// stemAll returns a new slice with stem applied to each token; the
// Index uses it when its Config.Stem flag is enabled.
func stemAll(tokens []string) []string {
	out := make([]string, len(tokens))
	for i, t := range tokens {
		out[i] = stem(t)
	}
	return out
}
