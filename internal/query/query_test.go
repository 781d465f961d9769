package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recallhq/recall/internal/rerrors"
)

func TestParseBasicFiltersAndAliases(t *testing.T) {
	p, err := Parse(`error handling language:python file:"src/**/*.py" created:>2024-01-01 -file:test`)
	require.NoError(t, err)

	assert.Equal(t, "error handling", p.SemanticQuery)
	assert.Equal(t, "python", p.Filters["language"])
	assert.Equal(t, "src/**/*.py", p.Filters["file"])
	require.Contains(t, p.DateFilters, "created")
	assert.Equal(t, "2024-01-01", p.DateFilters["created"].Gt)
	assert.Equal(t, []string{"test"}, p.Exclusions)
}

func TestParseAliasesResolveToCanonicalName(t *testing.T) {
	p, err := Parse("lang:go proj:recall cat:code")
	require.NoError(t, err)
	assert.Equal(t, "go", p.Filters["language"])
	assert.Equal(t, "recall", p.Filters["project"])
	assert.Equal(t, "code", p.Filters["category"])
}

func TestParseUnknownFilterFoldsBackIntoSemanticQuery(t *testing.T) {
	p, err := Parse("hashlib:sha256 is great")
	require.NoError(t, err)
	assert.Contains(t, p.SemanticQuery, "hashlib:sha256")
	assert.Contains(t, p.SemanticQuery, "is great")
	assert.Empty(t, p.Filters)
}

func TestParseDateRange(t *testing.T) {
	p, err := Parse("created:2024-01-01..2024-12-31")
	require.NoError(t, err)
	clause := p.DateFilters["created"]
	assert.Equal(t, "2024-01-01", clause.Gte)
	assert.Equal(t, "2024-12-31", clause.Lte)
}

func TestParseMergesMultipleDateClausesOnSameKey(t *testing.T) {
	p, err := Parse("created:>2024-01-01 created:<2024-12-31")
	require.NoError(t, err)
	clause := p.DateFilters["created"]
	assert.Equal(t, "2024-01-01", clause.Gt)
	assert.Equal(t, "2024-12-31", clause.Lt)
}

func TestParseInvalidDateFailsWithBadQuery(t *testing.T) {
	_, err := Parse("created:>not-a-date")
	require.Error(t, err)
	assert.True(t, rerrors.IsBadQuery(err))
}

func TestParseOtherExclusionFormsIgnoredNotError(t *testing.T) {
	p, err := Parse("-language:python search term")
	require.NoError(t, err)
	assert.Empty(t, p.Exclusions)
	assert.Equal(t, "search term", p.SemanticQuery)
}

func TestParseEqOperator(t *testing.T) {
	p, err := Parse("modified:=2024-06-15")
	require.NoError(t, err)
	assert.Equal(t, "2024-06-15", p.DateFilters["modified"].Eq)
}

func TestParseBareDateDefaultsToEq(t *testing.T) {
	p, err := Parse("created:2024-06-15")
	require.NoError(t, err)
	assert.Equal(t, "2024-06-15", p.DateFilters["created"].Eq)
}
