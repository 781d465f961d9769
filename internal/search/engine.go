package search

import (
	"context"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"

	"github.com/recallhq/recall/internal/bm25"
	"github.com/recallhq/recall/internal/query"
	"github.com/recallhq/recall/internal/types"
	"github.com/recallhq/recall/internal/vectorstore"
)

// Mode is the closed set of retrieval modalities spec.md §4.6 names.
type Mode string

const (
	ModeSemantic Mode = "semantic"
	ModeKeyword  Mode = "keyword"
	ModeHybrid   Mode = "hybrid"
)

func alphaFor(mode Mode) float64 {
	switch mode {
	case ModeSemantic:
		return 1.0
	case ModeKeyword:
		return 0.0
	default:
		return 0.6
	}
}

// minCandidates is K_sem/K_key's floor regardless of top_k.
const minCandidates = 50

// project weighting defaults from spec.md §4.6.
const (
	activeProjectWeight = 2.0
	otherProjectWeight  = 0.3
)

// Request is one search() call's input.
type Request struct {
	QueryString      string
	TopK             int
	Mode             Mode
	Project          string // active project, for project_weighting
	ProjectWeighting bool
}

// UnitLookup resolves a unit id to the metadata the response and
// facets need (name, file path, line range, language, project). The
// engine doesn't own the unit corpus — the indexer does — so this is
// injected.
type UnitLookup func(id types.UnitID) (types.SemanticUnit, string, bool)

// Engine wires the query parser, BM25 index and vector store into the
// pipeline of spec.md §4.6.
type Engine struct {
	BM25     *bm25.Index
	Vectors  vectorstore.Store
	Embedder vectorstore.Embedder
	Lookup   UnitLookup
}

// Search runs the 9-step hybrid pipeline.
func (e *Engine) Search(ctx context.Context, req Request) (Response, error) {
	parsed, err := query.Parse(req.QueryString)
	if err != nil {
		return Response{}, err
	}

	topK := req.TopK
	if topK <= 0 {
		topK = 10
	}
	candidateK := topK
	if candidateK < minCandidates {
		candidateK = minCandidates
	}

	semScores := map[types.UnitID]float64{}
	keyScores := map[types.UnitID]float64{}

	g, gctx := errgroup.WithContext(ctx)
	if req.Mode != ModeKeyword && e.Vectors != nil && e.Embedder != nil {
		g.Go(func() error {
			vec, embErr := e.Embedder.Embed(gctx, parsed.SemanticQuery)
			if embErr != nil {
				return nil
			}
			criteria := vectorstore.Criteria{
				Language: types.Language(parsed.Filters["language"]),
				Project:  parsed.Filters["project"],
				FilePath: parsed.Filters["file"],
			}
			matches, qErr := e.Vectors.Query(gctx, vec, candidateK, criteria)
			if qErr != nil {
				return nil
			}
			for _, m := range matches {
				semScores[m.ID] = m.Score
			}
			return nil
		})
	}
	if req.Mode != ModeSemantic && e.BM25 != nil {
		g.Go(func() error {
			for _, r := range e.BM25.Search(parsed.SemanticQuery, candidateK) {
				keyScores[types.UnitID(r.ID)] = r.Score
			}
			return nil
		})
	}
	_ = g.Wait()

	normSem := minMaxNormalize(semScores)
	normKey := minMaxNormalize(keyScores)

	alpha := alphaFor(req.Mode)
	fused := map[types.UnitID]float64{}
	for id, s := range normSem {
		fused[id] = alpha*s + (1-alpha)*normKey[id]
	}
	for id, k := range normKey {
		if _, already := fused[id]; !already {
			fused[id] = alpha*normSem[id] + (1-alpha)*k
		}
	}

	hits := make([]Hit, 0, len(fused))
	for id, score := range fused {
		unit, project, ok := e.Lookup(id)
		if !ok {
			continue
		}
		if !passesPostFilters(unit, project, parsed) {
			continue
		}
		hits = append(hits, Hit{
			UnitID:    id,
			Name:      unit.Name,
			UnitType:  unit.UnitType,
			Language:  unit.Language,
			FilePath:  unit.FilePath,
			StartLine: unit.StartLine,
			EndLine:   unit.EndLine,
			Signature: unit.Signature,
			Score:     score,
			Project:   project,
		})
	}

	if req.ProjectWeighting {
		for i := range hits {
			if hits[i].Project == req.Project {
				hits[i].Score *= activeProjectWeight
			} else if hits[i].Project != "" {
				hits[i].Score *= otherProjectWeight
			}
		}
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].UnitID < hits[j].UnitID
	})
	if len(hits) > topK {
		hits = hits[:topK]
	}

	facets := BuildFacets(hits)
	return Response{
		Results: hits,
		Facets:  facets,
		Summary: BuildSummary(hits, facets),
		Hints:   BuildHints(req.QueryString, hits, facets, string(req.Mode), topK),
	}, nil
}

func passesPostFilters(unit types.SemanticUnit, project string, parsed query.ParsedQuery) bool {
	if lang, ok := parsed.Filters["language"]; ok && string(unit.Language) != lang {
		return false
	}
	if proj, ok := parsed.Filters["project"]; ok && project != proj {
		return false
	}
	if pattern, ok := parsed.Filters["file"]; ok {
		matched, err := doublestar.Match(pattern, unit.FilePath)
		if err != nil || !matched {
			if !strings.Contains(unit.FilePath, pattern) {
				return false
			}
		}
	}
	for _, excl := range parsed.Exclusions {
		if strings.Contains(unit.FilePath, excl) {
			return false
		}
	}
	return true
}

func minMaxNormalize(scores map[types.UnitID]float64) map[types.UnitID]float64 {
	if len(scores) == 0 {
		return scores
	}
	min, max := minMax(scores)
	out := make(map[types.UnitID]float64, len(scores))
	if max == min {
		for id := range scores {
			out[id] = 1.0
		}
		return out
	}
	for id, s := range scores {
		out[id] = (s - min) / (max - min)
	}
	return out
}

func minMax(scores map[types.UnitID]float64) (float64, float64) {
	first := true
	var min, max float64
	for _, s := range scores {
		if first {
			min, max = s, s
			first = false
			continue
		}
		if s < min {
			min = s
		}
		if s > max {
			max = s
		}
	}
	return min, max
}
