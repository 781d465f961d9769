// Package vectorstore defines the external vector-store boundary
// spec.md treats as out-of-core-scope (embeddings and ANN search are
// supplied by the caller's own infrastructure), plus a reference/test
// implementation backed by github.com/coder/hnsw so the rest of the
// pipeline (internal/search, internal/indexer) has something concrete
// to exercise in tests. Grounded in shape on
// theRebelliousNerd-codenerd's internal/store/local_vector.go (a
// locally-owned store standing in for a production vector backend).
package vectorstore

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/coder/hnsw"

	"github.com/recallhq/recall/internal/types"
)

// Record is one entry upserted into the store: an opaque unit id, its
// embedding vector, and the metadata the store must be able to filter
// on for pushdown (language, project, file path).
type Record struct {
	ID       types.UnitID
	Vector   []float32
	Language types.Language
	Project  string
	FilePath string
}

// Match is one query() result: an id plus its similarity score.
type Match struct {
	ID    types.UnitID
	Score float64
}

// Criteria narrows find_by_criteria / query pushdown to records
// matching every non-zero field.
type Criteria struct {
	Language types.Language
	Project  string
	FilePath string
}

// Store is the boundary the hybrid search engine and indexer code
// against; a production deployment swaps in a real ANN service behind
// the same interface.
type Store interface {
	Upsert(ctx context.Context, records []Record) error
	Delete(ctx context.Context, ids []types.UnitID) error
	Query(ctx context.Context, vector []float32, topK int, criteria Criteria) ([]Match, error)
	FindByCriteria(ctx context.Context, criteria Criteria) ([]types.UnitID, error)
	ListAll(ctx context.Context) ([]types.UnitID, error)
}

// Embedder turns text into the vector space Store operates in. Left
// abstract: spec.md explicitly treats the embedding model as an
// external dependency.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// HNSWStore is an in-process Store backed by a coder/hnsw graph,
// suitable for tests and single-process deployments.
type HNSWStore struct {
	mu      sync.RWMutex
	graph   *hnsw.Graph[string]
	records map[string]Record
}

// NewHNSWStore returns an empty HNSWStore.
func NewHNSWStore() *HNSWStore {
	return &HNSWStore{
		graph:   hnsw.NewGraph[string](),
		records: make(map[string]Record),
	}
}

func (s *HNSWStore) Upsert(ctx context.Context, records []Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range records {
		key := string(r.ID)
		if _, exists := s.records[key]; exists {
			s.graph.Delete(key)
		}
		s.graph.Add(hnsw.MakeNode(key, r.Vector))
		s.records[key] = r
	}
	return nil
}

func (s *HNSWStore) Delete(ctx context.Context, ids []types.UnitID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		key := string(id)
		s.graph.Delete(key)
		delete(s.records, key)
	}
	return nil
}

func (s *HNSWStore) Query(ctx context.Context, vector []float32, topK int, criteria Criteria) ([]Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if topK <= 0 {
		topK = 10
	}
	// Over-fetch from the graph since criteria filtering happens
	// after ANN search (the pushdown a real store would do natively
	// isn't modeled by coder/hnsw); widen the candidate pool so
	// filtered results still fill topK when possible.
	fetch := topK * 4
	if fetch < 50 {
		fetch = 50
	}

	neighbors := s.graph.Search(vector, fetch)
	matches := make([]Match, 0, len(neighbors))
	for _, n := range neighbors {
		rec, ok := s.records[n.Key]
		if !ok || !matchesCriteria(rec, criteria) {
			continue
		}
		matches = append(matches, Match{ID: rec.ID, Score: cosineSimilarity(vector, n.Value)})
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func (s *HNSWStore) FindByCriteria(ctx context.Context, criteria Criteria) ([]types.UnitID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []types.UnitID
	for _, rec := range s.records {
		if matchesCriteria(rec, criteria) {
			ids = append(ids, rec.ID)
		}
	}
	return ids, nil
}

func (s *HNSWStore) ListAll(ctx context.Context) ([]types.UnitID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]types.UnitID, 0, len(s.records))
	for _, rec := range s.records {
		ids = append(ids, rec.ID)
	}
	return ids, nil
}

func matchesCriteria(rec Record, c Criteria) bool {
	if c.Language != "" && rec.Language != c.Language {
		return false
	}
	if c.Project != "" && rec.Project != c.Project {
		return false
	}
	if c.FilePath != "" && rec.FilePath != c.FilePath {
		return false
	}
	return true
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

var _ Store = (*HNSWStore)(nil)
