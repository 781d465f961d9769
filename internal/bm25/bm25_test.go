package bm25

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStemCollapsesInflectedForms(t *testing.T) {
	assert.Equal(t, stem("authenticate"), stem("authentication"))
	assert.Equal(t, "go", stem("go"), "short tokens below stemMinLength pass through unchanged")
}

func TestSearchWithStemmingMatchesInflectedQuery(t *testing.T) {
	idx := NewIndex(Config{Stem: true})
	idx.AddDocument("doc1", "function to authenticate the user session")
	idx.AddDocument("doc2", "function to render the dashboard")

	results := idx.Search("authentication", 5)
	require.Len(t, results, 1)
	assert.Equal(t, "doc1", results[0].ID)
}

func TestTokenizeKeepsUnderscoreJoinedIdentifiers(t *testing.T) {
	tokens := Tokenize("user_id is not a userId, but a b")
	assert.Contains(t, tokens, "user_id")
	assert.Contains(t, tokens, "userid")
	assert.NotContains(t, tokens, "a")
	assert.NotContains(t, tokens, "b")
	assert.Contains(t, tokens, "is")
}

func TestCodeTokenizeSplitsCamelCaseAndSnakeCase(t *testing.T) {
	tokens := CodeTokenize("getUserById")
	assert.Equal(t, []string{"get", "user", "by", "id"}, tokens)

	tokens = CodeTokenize("parse_http_request")
	assert.Equal(t, []string{"parse", "http", "request"}, tokens)
}

func TestFitProducesDeterministicIDF(t *testing.T) {
	corpus := []Document{
		{ID: "a", Text: "the quick brown fox"},
		{ID: "b", Text: "the slow brown turtle"},
		{ID: "c", Text: "foxes are quick"},
	}
	idx1 := NewIndex(DefaultConfig())
	idx1.Fit(corpus)
	idx2 := NewIndex(DefaultConfig())
	idx2.Fit(corpus)

	idx1.mu.RLock()
	idx2.mu.RLock()
	defer idx1.mu.RUnlock()
	defer idx2.mu.RUnlock()
	assert.Equal(t, idx1.idf, idx2.idf)
}

func TestSearchRanksMoreRelevantDocumentHigher(t *testing.T) {
	idx := NewIndex(DefaultConfig())
	idx.Fit([]Document{
		{ID: "doc1", Text: "error handling in python code"},
		{ID: "doc2", Text: "error handling error handling error handling"},
		{ID: "doc3", Text: "completely unrelated content about cats"},
	})

	results := idx.Search("error handling", 10)
	require.NotEmpty(t, results)
	assert.Equal(t, "doc2", results[0].ID, "doc2 repeats the query terms and should score highest")

	var sawDoc3 bool
	for _, r := range results {
		if r.ID == "doc3" {
			sawDoc3 = true
		}
	}
	assert.False(t, sawDoc3, "doc3 shares no terms with the query and should not be scored")
}

func TestBM25MonotonicityAddingTermOccurrenceNeverDecreasesScore(t *testing.T) {
	idx := NewIndex(DefaultConfig())
	idx.Fit([]Document{
		{ID: "a", Text: "widget factory pattern"},
		{ID: "b", Text: "other content entirely"},
	})
	before := idx.Score("a", []string{"widget"})

	idx.AddDocument("a", "widget factory pattern widget")
	after := idx.Score("a", []string{"widget"})

	assert.GreaterOrEqual(t, after, before)
}

func TestAddDocumentIncrementalMatchesFit(t *testing.T) {
	docs := []Document{
		{ID: "x", Text: "hello world"},
		{ID: "y", Text: "hello there friend"},
	}
	fitIdx := NewIndex(DefaultConfig())
	fitIdx.Fit(docs)

	incIdx := NewIndex(DefaultConfig())
	for _, d := range docs {
		incIdx.AddDocument(d.ID, d.Text)
	}

	assert.Equal(t, fitIdx.NumDocs(), incIdx.NumDocs())
	assert.InDelta(t, fitIdx.AvgDocLen(), incIdx.AvgDocLen(), 0.001)
}

func TestRemoveDocument(t *testing.T) {
	idx := NewIndex(DefaultConfig())
	idx.Fit([]Document{
		{ID: "a", Text: "hello world"},
		{ID: "b", Text: "goodbye world"},
	})
	idx.RemoveDocument("a")
	assert.Equal(t, 1, idx.NumDocs())

	results := idx.Search("hello", 10)
	assert.Empty(t, results)
}

func TestBM25PlusAddsBaselineForPartialMatches(t *testing.T) {
	plain := NewIndex(DefaultConfig())
	plain.Fit([]Document{
		{ID: "a", Text: "alpha beta"},
		{ID: "b", Text: "alpha gamma delta"},
	})

	plusCfg := DefaultConfig()
	plusCfg.Plus = true
	plus := NewIndex(plusCfg)
	plus.Fit([]Document{
		{ID: "a", Text: "alpha beta"},
		{ID: "b", Text: "alpha gamma delta"},
	})

	plainScore := plain.Score("b", []string{"alpha", "beta"})
	plusScore := plus.Score("b", []string{"alpha", "beta"})
	assert.Greater(t, plusScore, plainScore, "BM25+ should add a positive baseline even though 'beta' is absent from doc b")
}

func TestLazyIDFRefitOnCorpusChurn(t *testing.T) {
	idx := NewIndex(DefaultConfig())
	idx.Fit([]Document{
		{ID: "a", Text: "alpha"},
		{ID: "b", Text: "beta"},
	})

	for i := 0; i < 5; i++ {
		idx.AddDocument(string(rune('c'+i)), "gamma")
	}

	idx.mu.RLock()
	dirty := idx.dirty
	idx.mu.RUnlock()
	assert.True(t, dirty, "corpus grew from 2 to 7 docs, well past the 10% refit threshold")

	idx.Search("gamma", 10)
	idx.mu.RLock()
	dirtyAfter := idx.dirty
	idx.mu.RUnlock()
	assert.False(t, dirtyAfter, "Search should have triggered a lazy IDF recompute")
}
