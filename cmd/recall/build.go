package main

import (
	"path/filepath"

	"github.com/recallhq/recall/internal/bm25"
	"github.com/recallhq/recall/internal/cache"
	"github.com/recallhq/recall/internal/config"
	"github.com/recallhq/recall/internal/indexer"
	"github.com/recallhq/recall/internal/memory"
	"github.com/recallhq/recall/internal/metrics"
	"github.com/recallhq/recall/internal/parser"
	"github.com/recallhq/recall/internal/search"
	"github.com/recallhq/recall/internal/vectorstore"
)

// pipeline bundles the components a running command needs. The parse
// cache, memory and metrics databases persist under .recall/ in the
// project root, so successive CLI invocations share them; the BM25
// index and vector store live in memory and start empty in each
// invocation.
type pipeline struct {
	cfg      *config.Config
	registry *parser.Registry
	cache    *cache.Cache
	cacheDB  *cache.SQLiteStore
	bm25     *bm25.Index
	vectors  vectorstore.Store
	embedder vectorstore.Embedder
	indexer  *indexer.Indexer
	engine   *search.Engine
	memStore *memory.SQLiteStore
	pruner   *memory.Pruner
	metrics  *metrics.SQLiteStore
	estimate *metrics.Estimator
	advisor  *metrics.Advisor

	closers []func() error
}

func stateDir(cfg *config.Config) string {
	return filepath.Join(cfg.Project.Root, ".recall")
}

// buildPipeline wires every component the same way for every
// subcommand, mirroring the teacher's loadConfigWithOverrides +
// indexing.NewMasterIndex construction in cmd/lci/main.go, generalized
// to recall's cache/bm25/vectorstore/memory/metrics stack.
func buildPipeline(cfg *config.Config) (*pipeline, error) {
	p := &pipeline{cfg: cfg}

	dir := stateDir(cfg)

	cacheDB, err := cache.NewSQLiteStore(filepath.Join(dir, "cache.db"))
	if err != nil {
		return nil, err
	}
	p.cacheDB = cacheDB
	p.closers = append(p.closers, cacheDB.Close)

	c, err := cache.New(cacheDB)
	if err != nil {
		return nil, err
	}
	p.cache = c

	p.registry = parser.NewRegistry()
	p.closers = append(p.closers, func() error { p.registry.Close(); return nil })

	p.bm25 = bm25.NewIndex(bm25.DefaultConfig())
	p.vectors = vectorstore.NewHNSWStore()
	p.embedder = vectorstore.NewHashEmbedder(32)

	p.indexer = indexer.New(cfg, p.registry, p.cache, p.bm25, p.vectors, p.embedder)
	p.engine = &search.Engine{
		BM25:     p.bm25,
		Vectors:  p.vectors,
		Embedder: p.embedder,
		Lookup:   p.indexer.Lookup,
	}

	memStore, err := memory.NewSQLiteStore(filepath.Join(dir, "memory.db"))
	if err != nil {
		return nil, err
	}
	p.memStore = memStore
	p.closers = append(p.closers, memStore.Close)
	p.pruner = memory.NewPruner(memStore, cfg.Memory)

	metricsStore, err := metrics.NewSQLiteStore(filepath.Join(dir, "metrics.db"))
	if err != nil {
		return nil, err
	}
	p.metrics = metricsStore
	p.closers = append(p.closers, metricsStore.Close)
	p.estimate = metrics.NewEstimator(metricsStore, 10)
	p.advisor = metrics.NewAdvisor()

	return p, nil
}

func (p *pipeline) Close() {
	for i := len(p.closers) - 1; i >= 0; i-- {
		_ = p.closers[i]()
	}
}
