// Package query implements the query DSL of spec.md §4.5: splitting a
// free-text search string into a semantic remainder, recognized
// filters (with aliases), date-range clauses and exclusions.
package query

import (
	"fmt"
	"strings"
	"time"

	"github.com/recallhq/recall/internal/rerrors"
)

// DateClause is a parsed date filter: exactly one of Eq, or any
// combination of {Gt,Gte} and {Lt,Lte}, is populated.
type DateClause struct {
	Eq  string
	Gt  string
	Gte string
	Lt  string
	Lte string
}

// merge folds another clause's bounds into this one, per spec.md
// §4.5's "multiple date clauses on the same key merge" rule.
func (d *DateClause) merge(other DateClause) {
	if other.Eq != "" {
		d.Eq = other.Eq
	}
	if other.Gt != "" {
		d.Gt = other.Gt
	}
	if other.Gte != "" {
		d.Gte = other.Gte
	}
	if other.Lt != "" {
		d.Lt = other.Lt
	}
	if other.Lte != "" {
		d.Lte = other.Lte
	}
}

// ParsedQuery is parse()'s output.
type ParsedQuery struct {
	SemanticQuery string
	Filters       map[string]string
	DateFilters   map[string]DateClause
	Exclusions    []string
}

var filterAliases = map[string]string{
	"language": "language",
	"lang":     "language",
	"file":     "file",
	"path":     "file",
	"project":  "project",
	"proj":     "project",
	"category": "category",
	"cat":      "category",
	"scope":    "scope",
	"author":   "author",
	"created":  "created",
	"modified": "modified",
}

var dateFilterNames = map[string]bool{"created": true, "modified": true}

const dateLayout = "2006-01-02"

// Parse tokenizes query into its semantic remainder, recognized
// filters, date clauses and exclusions. Unrecognized "name:value"
// tokens fold back into the semantic remainder unchanged, so prose
// like "hashlib:sha256" survives parsing.
func Parse(query string) (ParsedQuery, error) {
	if strings.Count(query, `"`)%2 != 0 {
		return ParsedQuery{}, &rerrors.BadQuery{Query: query, Reason: "unterminated quote"}
	}

	result := ParsedQuery{
		Filters:     make(map[string]string),
		DateFilters: make(map[string]DateClause),
	}

	var semanticParts []string
	for _, token := range tokenize(query) {
		if strings.HasPrefix(token, "-") {
			if name, value, ok := splitFilterToken(token[1:]); ok && name == "file" {
				result.Exclusions = append(result.Exclusions, value)
				continue
			}
			// Other "-filter:" forms are ignored, not an error —
			// spec.md §4.5/§9 — and also not folded back into the
			// semantic query, since they were written as negations.
			if _, _, ok := splitFilterToken(token[1:]); ok {
				continue
			}
			semanticParts = append(semanticParts, token)
			continue
		}

		name, value, ok := splitFilterToken(token)
		if !ok {
			semanticParts = append(semanticParts, token)
			continue
		}

		canonical, known := filterAliases[strings.ToLower(name)]
		if !known {
			semanticParts = append(semanticParts, token)
			continue
		}

		if dateFilterNames[canonical] {
			clause, err := parseDateValue(value)
			if err != nil {
				return ParsedQuery{}, err
			}
			existing := result.DateFilters[canonical]
			existing.merge(clause)
			result.DateFilters[canonical] = existing
			continue
		}

		result.Filters[canonical] = value
	}

	result.SemanticQuery = strings.TrimSpace(strings.Join(semanticParts, " "))
	return result, nil
}

// tokenize splits on whitespace but keeps double-quoted segments
// (including an embedded "name:" prefix and any leading "-") intact.
func tokenize(query string) []string {
	var tokens []string
	var cur strings.Builder
	inQuotes := false

	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}

	for _, r := range query {
		switch {
		case r == '"':
			inQuotes = !inQuotes
			cur.WriteRune(r)
		case (r == ' ' || r == '\t' || r == '\n' || r == '\r') && !inQuotes:
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return tokens
}

// splitFilterToken splits "name:value" (value optionally quoted) into
// its parts. Returns ok=false for tokens with no colon, an empty name,
// or a name containing characters that can't be a filter identifier.
func splitFilterToken(token string) (name, value string, ok bool) {
	idx := strings.Index(token, ":")
	if idx <= 0 {
		return "", "", false
	}
	name = token[:idx]
	value = token[idx+1:]
	for _, r := range name {
		if !(r == '_' || r == '-' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')) {
			return "", "", false
		}
	}
	value = strings.Trim(value, `"`)
	if value == "" {
		return "", "", false
	}
	return name, value, true
}

// parseDateValue handles a bare date, an operator-prefixed date, or a
// "start..end" range.
func parseDateValue(value string) (DateClause, error) {
	if start, end, isRange := splitRange(value); isRange {
		if err := validateDate(start); err != nil {
			return DateClause{}, err
		}
		if err := validateDate(end); err != nil {
			return DateClause{}, err
		}
		return DateClause{Gte: start, Lte: end}, nil
	}

	for _, op := range []string{">=", "<=", ">", "<", "="} {
		if strings.HasPrefix(value, op) {
			date := strings.TrimPrefix(value, op)
			if err := validateDate(date); err != nil {
				return DateClause{}, err
			}
			switch op {
			case ">":
				return DateClause{Gt: date}, nil
			case ">=":
				return DateClause{Gte: date}, nil
			case "<":
				return DateClause{Lt: date}, nil
			case "<=":
				return DateClause{Lte: date}, nil
			case "=":
				return DateClause{Eq: date}, nil
			}
		}
	}

	if err := validateDate(value); err != nil {
		return DateClause{}, err
	}
	return DateClause{Eq: value}, nil
}

func splitRange(value string) (start, end string, ok bool) {
	idx := strings.Index(value, "..")
	if idx < 0 {
		return "", "", false
	}
	return value[:idx], value[idx+2:], true
}

func validateDate(date string) error {
	if _, err := time.Parse(dateLayout, date); err != nil {
		return &rerrors.BadQuery{Query: date, Reason: fmt.Sprintf("invalid date %q: expected YYYY-MM-DD", date)}
	}
	return nil
}
