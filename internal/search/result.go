// Package search implements the hybrid retrieval engine (component G)
// and the result summarizer/refinement advisor (component E) of
// spec.md §4.6/§4.7.
package search

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/recallhq/recall/internal/types"
)

// Hit is one scored result returned to the caller.
type Hit struct {
	UnitID    types.UnitID   `json:"unit_id"`
	Name      string         `json:"name"`
	UnitType  types.UnitType `json:"unit_type"`
	Language  types.Language `json:"language"`
	FilePath  string         `json:"file_path"`
	StartLine int            `json:"start_line"`
	EndLine   int            `json:"end_line"`
	Signature string         `json:"signature,omitempty"`
	Score     float64        `json:"score"`
	Project   string         `json:"project,omitempty"`
}

// Facets holds the top-N breakdowns spec.md §4.7 names.
type Facets struct {
	Languages   map[string]int `json:"languages"`
	UnitTypes   map[string]int `json:"unit_types"`
	Files       map[string]int `json:"files"`
	Directories map[string]int `json:"directories"`
	Projects    map[string]int `json:"projects"`
}

// Response is the hybrid search engine's output shape.
type Response struct {
	Results []Hit    `json:"results"`
	Facets  Facets   `json:"facets"`
	Summary string   `json:"summary"`
	Hints   []string `json:"hints"`
}

const (
	topFilesLimit       = 5
	topDirectoriesLimit = 5
)

// BuildFacets computes top-N counts: files and directories are capped
// at 5 entries (by count descending, path ascending as a tiebreak);
// languages/unit_types/projects are uncapped.
func BuildFacets(hits []Hit) Facets {
	languages := map[string]int{}
	unitTypes := map[string]int{}
	files := map[string]int{}
	directories := map[string]int{}
	projects := map[string]int{}

	for _, h := range hits {
		languages[string(h.Language)]++
		unitTypes[string(h.UnitType)]++
		files[h.FilePath]++
		directories[filepath.Dir(h.FilePath)]++
		if h.Project != "" {
			projects[h.Project]++
		}
	}

	return Facets{
		Languages:   languages,
		UnitTypes:   unitTypes,
		Files:       topN(files, topFilesLimit),
		Directories: topN(directories, topDirectoriesLimit),
		Projects:    projects,
	}
}

func topN(counts map[string]int, n int) map[string]int {
	if len(counts) <= n {
		return counts
	}
	type kv struct {
		key   string
		count int
	}
	entries := make([]kv, 0, len(counts))
	for k, v := range counts {
		entries = append(entries, kv{k, v})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].key < entries[j].key
	})
	out := make(map[string]int, n)
	for _, e := range entries[:n] {
		out[e.key] = e.count
	}
	return out
}

// BuildSummary renders spec.md §4.7's one-sentence template.
func BuildSummary(hits []Hit, facets Facets) string {
	n := len(hits)
	unitPhrase := unitTypePhrase(facets.UnitTypes, n)

	fileSet := map[string]struct{}{}
	for _, h := range hits {
		fileSet[h.FilePath] = struct{}{}
	}
	m := len(fileSet)

	languages := sortedKeys(facets.Languages)
	langClause := languageClause(languages)

	projectCount := len(facets.Projects)
	projectClause := ""
	if projectCount > 0 {
		projectClause = fmt.Sprintf(" in %d project%s", projectCount, plural(projectCount))
	}

	summary := fmt.Sprintf("Found %d %s across %d file%s", n, unitPhrase, m, plural(m))
	if langClause != "" {
		summary += " " + langClause
	}
	summary += projectClause
	return summary
}

func unitTypePhrase(unitTypes map[string]int, total int) string {
	if len(unitTypes) == 1 {
		for t := range unitTypes {
			return t + pluralSuffixFor(t, total)
		}
	}
	return "results"
}

func pluralSuffixFor(unitType string, n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

func languageClause(languages []string) string {
	switch len(languages) {
	case 0:
		return ""
	case 1:
		return "in " + languages[0]
	case 2:
		return fmt.Sprintf("across %s and %s", languages[0], languages[1])
	default:
		return fmt.Sprintf("across %s, %s and %d other language(s)", languages[0], languages[1], len(languages)-2)
	}
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var identifierCaseRe = regexp.MustCompile(`[a-z][A-Z]|_[a-z]`)

// BuildHints applies spec.md §4.7's fixed rule set, returning at most
// three hints.
func BuildHints(query string, hits []Hit, facets Facets, mode string, topK int) []string {
	var hints []string
	add := func(h string) bool {
		hints = append(hints, h)
		return len(hints) >= 3
	}

	n := len(hits)
	if n > topK*3 {
		if add("Narrow your search with a file_pattern filter.") {
			return hints
		}
	}
	if n < 3 {
		if add("Broaden the query or switch to hybrid search mode.") {
			return hints
		}
	}

	if len(facets.Directories) > 0 && n > 0 {
		modalDir, modalCount := modalEntry(facets.Directories)
		if float64(modalCount)/float64(n) > 0.5 {
			if add(fmt.Sprintf("Most results are in %s — consider scoping there.", modalDir)) {
				return hints
			}
		}
	}
	if len(facets.Directories) > 10 {
		modalDir, _ := modalEntry(facets.Directories)
		if add(fmt.Sprintf("Results span many directories; %s is the most common.", modalDir)) {
			return hints
		}
	}

	if len(facets.UnitTypes) > 1 {
		if add("Mixed result types — consider filtering by unit_type.") {
			return hints
		}
	}

	if mode != "keyword" && identifierCaseRe.MatchString(query) {
		if add("Query looks like a code identifier — try search_mode=keyword.") {
			return hints
		}
	}

	if len(strings.Fields(query)) < 3 {
		add("Add more context to the query for better relevance.")
	}

	if len(hints) > 3 {
		hints = hints[:3]
	}
	return hints
}

func modalEntry(counts map[string]int) (string, int) {
	var bestKey string
	bestCount := -1
	for k, v := range counts {
		if v > bestCount || (v == bestCount && k < bestKey) {
			bestKey = k
			bestCount = v
		}
	}
	return bestKey, bestCount
}
