// Package indexer implements the incremental indexer (component F):
// a bounded worker-pool pipeline that walks a project tree, detects
// what changed since the previous run, and keeps the content-addressed
// cache, BM25 index and vector store in sync with the current state of
// the files on disk.
//
// Grounded on standardbeagle-lci/internal/indexing's
// pipeline.go/pipeline_scanner.go (scanner.go here),
// pipeline_integrator.go (the single-writer integrator goroutine
// below) and pipeline_processor.go (the bounded worker pool), adapted
// from the teacher's trigram/symbol domain to SPEC_FULL.md's semantic
// units, cache entries, BM25 documents and vector-store records.
package indexer

import (
	"context"
	"os"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/recallhq/recall/internal/bm25"
	"github.com/recallhq/recall/internal/cache"
	"github.com/recallhq/recall/internal/changedetect"
	"github.com/recallhq/recall/internal/config"
	"github.com/recallhq/recall/internal/debug"
	"github.com/recallhq/recall/internal/hashid"
	"github.com/recallhq/recall/internal/parser"
	"github.com/recallhq/recall/internal/rerrors"
	"github.com/recallhq/recall/internal/types"
	"github.com/recallhq/recall/internal/vectorstore"
)

// Stats is the counter set an indexing run reports (spec.md §4.3 /
// component I's consumer of these numbers).
type Stats struct {
	FilesIndexed   int
	FilesDeleted   int
	CacheHits      int64
	CacheMisses    int64
	UnitsAdded     int
	UnitsUpdated   int
	UnitsDeleted   int
	TotalSizeBytes int64
	StartedAt      time.Time
	Duration       time.Duration
	FullReindex    bool
}

// vectorRetryAttempts and vectorRetryBase implement spec.md §4.3's
// exponential-backoff policy for vector-store writes: 3 attempts,
// base 100ms, doubling.
const (
	vectorRetryAttempts = 3
	vectorRetryBase     = 100 * time.Millisecond
)

// Indexer wires the parser registry, cache, BM25 index and vector store
// into one incremental pipeline. It owns the project's change-tracking
// state (previous snapshot, previous units, file records) across
// repeated Run calls.
type Indexer struct {
	cfg      *config.Config
	registry *parser.Registry
	cache    *cache.Cache
	bm25     *bm25.Index
	vectors  vectorstore.Store
	embedder vectorstore.Embedder
	detector *changedetect.Detector
	scanner  *scanner

	mu          sync.Mutex
	snapshot    map[string][]byte               // rel path -> content, as of last run
	units       map[string][]types.SemanticUnit // rel path -> units, as of last run
	fileRecords map[string]*types.FileRecord
}

// New builds an Indexer. vectors/embedder may be nil, in which case
// vector-store steps are skipped and search falls back to keyword-only
// (spec.md §7 StoreUnavailable's documented degradation path).
func New(cfg *config.Config, registry *parser.Registry, c *cache.Cache, idx *bm25.Index, vectors vectorstore.Store, embedder vectorstore.Embedder) *Indexer {
	return &Indexer{
		cfg:         cfg,
		registry:    registry,
		cache:       c,
		bm25:        idx,
		vectors:     vectors,
		embedder:    embedder,
		detector:    changedetect.NewDetector(),
		scanner:     newScanner(cfg),
		snapshot:    make(map[string][]byte),
		units:       make(map[string][]types.SemanticUnit),
		fileRecords: make(map[string]*types.FileRecord),
	}
}

// parsedFile is one worker's output for a scanned file, fed to the
// single integrator goroutine.
type parsedFile struct {
	rel      string
	content  []byte
	units    []types.SemanticUnit
	lang     types.Language
	err      error
	cacheHit bool
}

// Run performs one incremental indexing pass over root: scan, compute
// file_hash per file, and run every candidate file (not just ones a
// coarse content diff flags) through the cache so an unchanged tree
// short-circuits entirely via cache hits — spec.md §4.3 steps 1-2 apply
// per file, not per change. The content-snapshot diff against the
// previous run still decides additions/deletions/renames so the BM25
// index and vector store only see the units that actually moved.
func (ix *Indexer) Run(ctx context.Context, root string) (Stats, error) {
	stats := Stats{StartedAt: time.Now()}
	ix.cfg.Project.Root = root

	candidates, err := ix.scanner.scan(root)
	if err != nil {
		return stats, err
	}

	newSnapshot := make(map[string][]byte, len(candidates))
	bd := newBinaryDetector()

	var readMu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workerCount(ix.cfg))
	for _, c := range candidates {
		c := c
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			content, err := readFile(c.Path)
			if err != nil {
				debug.LogIndexing("skip unreadable file %s: %v", c.Path, err)
				return nil
			}
			if bd.isBinary(c.Path, content) {
				return nil
			}
			readMu.Lock()
			newSnapshot[c.Rel] = content
			readMu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return stats, err
	}

	ix.mu.Lock()
	oldSnapshot := ix.snapshot
	ix.mu.Unlock()

	changes := ix.detector.DetectFileChanges(oldSnapshot, newSnapshot)
	changedPaths := make(map[string]bool, len(changes))
	for _, change := range changes {
		if change.Type != changedetect.ChangeDeleted {
			changedPaths[change.FilePath] = true
		}
	}

	results := make(chan parsedFile, len(newSnapshot))
	pg, pgctx := errgroup.WithContext(ctx)
	pg.SetLimit(workerCount(ix.cfg))
	timeout := parseTimeout(ix.cfg)

	for rel, content := range newSnapshot {
		rel, content := rel, content
		pg.Go(func() error {
			select {
			case <-pgctx.Done():
				return pgctx.Err()
			default:
			}
			parseCtx, cancel := context.WithTimeout(pgctx, timeout)
			defer cancel()

			fileHash := hashid.FileHash(content)
			lang := parser.LanguageForPath(rel)

			if entry, hit := ix.cache.Lookup(fileHash, lang); hit {
				units := make([]types.SemanticUnit, len(entry.Units))
				copy(units, entry.Units)
				for i := range units {
					units[i].FilePath = rel
				}
				results <- parsedFile{rel: rel, content: content, units: units, lang: lang, cacheHit: true}
				return nil
			}

			result, perr := ix.registry.Parse(parseCtx, rel, content)
			if perr != nil {
				if rerrors.IsParseError(perr) {
					debug.LogIndexing("parse error in %s: %v", rel, perr)
					results <- parsedFile{rel: rel, err: perr}
					return nil
				}
				return perr
			}
			_ = ix.cache.Put(fileHash, cache.Entry{Language: result.Language, Units: result.Units})
			results <- parsedFile{rel: rel, content: content, units: result.Units, lang: result.Language}
			return nil
		})
	}

	go func() {
		_ = pg.Wait()
		close(results)
	}()

	parsedByPath := make(map[string]parsedFile)
	for r := range results {
		if r.cacheHit {
			stats.CacheHits++
		} else {
			stats.CacheMisses++
		}
		if r.err == nil {
			parsedByPath[r.rel] = r
		}
	}
	if err := pg.Wait(); err != nil {
		return stats, err
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	for _, change := range changes {
		if change.Type == changedetect.ChangeDeleted {
			oldUnits := ix.units[change.FilePath]
			ix.applyDeletion(change.FilePath, oldUnits, &stats)
			continue
		}

		parsed, ok := parsedByPath[change.FilePath]
		if !ok {
			continue
		}

		if change.Type == changedetect.ChangeRenamed {
			oldUnits := ix.units[change.OldPath]
			final := ix.applyRename(ctx, change.FilePath, oldUnits, parsed.units, &stats)
			delete(ix.units, change.OldPath)
			delete(ix.fileRecords, change.OldPath)
			ix.units[change.FilePath] = final
		} else {
			oldUnits := ix.units[change.FilePath]
			plan := changedetect.GetIncrementalIndexPlan(change, oldUnits, parsed.units)
			if plan.FullReindexNeeded {
				stats.FullReindex = true
			}
			ix.applyPlan(ctx, change.FilePath, oldUnits, plan, &stats)
			ix.units[change.FilePath] = parsed.units
		}

		fh := hashid.FileHash(parsed.content)
		ix.fileRecords[change.FilePath] = &types.FileRecord{
			FilePath:      change.FilePath,
			FileHash:      fh,
			Language:      parsed.lang,
			LastIndexedAt: time.Now(),
			UnitNames:     unitNameSet(parsed.units),
		}
		stats.FilesIndexed++
		stats.TotalSizeBytes += int64(len(parsed.content))
	}

	// Files absent from the diff are byte-identical to the previous run;
	// they still went through the cache above (a guaranteed hit, since
	// their hash was Put on the run that first parsed them), so they
	// count toward files_indexed without touching BM25 or the vector
	// store.
	for rel := range newSnapshot {
		if changedPaths[rel] {
			continue
		}
		stats.FilesIndexed++
	}

	ix.snapshot = newSnapshot
	stats.Duration = time.Since(stats.StartedAt)
	return stats, nil
}

// Lookup resolves a unit id to its metadata plus the owning project
// name, satisfying search.UnitLookup so a caller can wire an Indexer
// directly into a search.Engine without re-deriving the unit corpus.
func (ix *Indexer) Lookup(id types.UnitID) (types.SemanticUnit, string, bool) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	for _, units := range ix.units {
		for _, u := range units {
			if u.ID == id {
				return u, ix.cfg.Project.Name, true
			}
		}
	}
	return types.SemanticUnit{}, "", false
}

// AllUnits returns every currently-indexed unit across all files, for
// callers (suggest_queries, stats reporting) that need the full corpus
// rather than a single lookup.
func (ix *Indexer) AllUnits() []types.SemanticUnit {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	var out []types.SemanticUnit
	for _, units := range ix.units {
		out = append(out, units...)
	}
	return out
}

// CandidateFiles runs the same scan a Run call would, without parsing
// or indexing anything, so callers (the estimate command's pre-walk)
// can size a run before committing to it.
func (ix *Indexer) CandidateFiles(root string) ([]CandidateFile, error) {
	return ix.scanner.scan(root)
}

// applyDeletion removes a deleted file's units from the BM25 index and
// vector store and drops its bookkeeping.
func (ix *Indexer) applyDeletion(relPath string, oldUnits []types.SemanticUnit, stats *Stats) {
	ids := make([]types.UnitID, 0, len(oldUnits))
	for _, u := range oldUnits {
		ix.bm25.RemoveDocument(string(u.ID))
		ids = append(ids, u.ID)
	}
	if ix.vectors != nil && len(ids) > 0 {
		_ = withRetry(context.Background(), vectorRetryAttempts, vectorRetryBase, func(ctx context.Context) error {
			return ix.vectors.Delete(ctx, ids)
		})
	}
	delete(ix.units, relPath)
	delete(ix.fileRecords, relPath)
	delete(ix.snapshot, relPath)
	stats.FilesDeleted++
	stats.UnitsDeleted += len(oldUnits)
}

// applyPlan mints stable unit ids for newly added units (disambiguated
// by occurrence order within the file, per hashid's UnitID policy),
// reuses the prior id for units the plan marks as updated or deleted
// (the file's prior unit with the same name), and
// pushes the resulting add/remove set to the BM25 index and vector
// store.
func (ix *Indexer) applyPlan(ctx context.Context, relPath string, oldUnits []types.SemanticUnit, plan changedetect.Plan, stats *Stats) {
	oldByName := make(map[string]types.SemanticUnit, len(oldUnits))
	for _, u := range oldUnits {
		oldByName[u.Name] = u
	}

	disambig := make(map[string]int)
	mintID := func(u *types.SemanticUnit) {
		key := string(u.UnitType) + "\x00" + u.Name
		n := disambig[key]
		disambig[key] = n + 1
		u.ID = types.UnitID(hashid.UnitID(relPath, string(u.UnitType), u.Name, n))
	}

	var upsertRecords []vectorstore.Record
	for i := range plan.UnitsToAdd {
		mintID(&plan.UnitsToAdd[i])
		u := plan.UnitsToAdd[i]
		ix.bm25.AddDocument(string(u.ID), documentText(u))
		upsertRecords = append(upsertRecords, ix.embedRecord(ctx, u))
		stats.UnitsAdded++
	}
	for i := range plan.UnitsToUpdate {
		u := plan.UnitsToUpdate[i]
		if prior, ok := oldByName[u.Name]; ok {
			u.ID = prior.ID
		} else {
			mintID(&u)
		}
		plan.UnitsToUpdate[i] = u
		ix.bm25.RemoveDocument(string(u.ID))
		ix.bm25.AddDocument(string(u.ID), documentText(u))
		upsertRecords = append(upsertRecords, ix.embedRecord(ctx, u))
		stats.UnitsUpdated++
	}

	var deleteIDs []types.UnitID
	for _, name := range plan.UnitsToDelete {
		prior, ok := oldByName[name]
		if !ok {
			continue
		}
		ix.bm25.RemoveDocument(string(prior.ID))
		deleteIDs = append(deleteIDs, prior.ID)
		stats.UnitsDeleted++
	}
	if ix.vectors != nil && len(deleteIDs) > 0 {
		_ = withRetry(ctx, vectorRetryAttempts, vectorRetryBase, func(ctx context.Context) error {
			return ix.vectors.Delete(ctx, deleteIDs)
		})
	}

	if ix.vectors == nil {
		return
	}
	records := filterValidRecords(upsertRecords)
	if len(records) > 0 {
		_ = withRetry(ctx, vectorRetryAttempts, vectorRetryBase, func(ctx context.Context) error {
			return ix.vectors.Upsert(ctx, records)
		})
	}
}

// renameKey identifies a unit across a file rename by its type, name and
// content hash — everything except file_path, which is precisely what
// changed.
type renameKey struct {
	unitType types.UnitType
	name     string
	hash     string
}

// applyRename re-keys a file's units across a pure path rename,
// preserving the prior stable id for every unit whose content is
// unchanged so a rename produces no BM25 churn and only a metadata
// upsert in the vector store (spec.md §4.2 scenario 2: "no BM25
// churn"). Only units whose content actually changed as part of the
// rename mint a new id and touch BM25.
func (ix *Indexer) applyRename(ctx context.Context, newPath string, oldUnits, newUnits []types.SemanticUnit, stats *Stats) []types.SemanticUnit {
	oldByKey := make(map[renameKey]types.SemanticUnit, len(oldUnits))
	for _, u := range oldUnits {
		oldByKey[renameKey{u.UnitType, u.Name, u.ContentHash}] = u
	}
	matched := make(map[renameKey]bool, len(oldUnits))

	disambig := make(map[string]int)
	final := make([]types.SemanticUnit, len(newUnits))
	var upsertRecords []vectorstore.Record

	for i, u := range newUnits {
		k := renameKey{u.UnitType, u.Name, u.ContentHash}
		if prior, ok := oldByKey[k]; ok && !matched[k] {
			// Same type, name and content: reuse the id verbatim. BM25
			// already holds this document under this id with this text,
			// so no RemoveDocument/AddDocument is needed at all.
			u.ID = prior.ID
			matched[k] = true
			upsertRecords = append(upsertRecords, ix.embedRecord(ctx, u))
		} else {
			dk := string(u.UnitType) + "\x00" + u.Name
			n := disambig[dk]
			disambig[dk] = n + 1
			u.ID = types.UnitID(hashid.UnitID(newPath, string(u.UnitType), u.Name, n))
			ix.bm25.AddDocument(string(u.ID), documentText(u))
			upsertRecords = append(upsertRecords, ix.embedRecord(ctx, u))
			stats.UnitsAdded++
		}
		final[i] = u
	}

	var deleteIDs []types.UnitID
	for k, u := range oldByKey {
		if matched[k] {
			continue
		}
		ix.bm25.RemoveDocument(string(u.ID))
		deleteIDs = append(deleteIDs, u.ID)
		stats.UnitsDeleted++
	}
	if ix.vectors != nil && len(deleteIDs) > 0 {
		_ = withRetry(ctx, vectorRetryAttempts, vectorRetryBase, func(ctx context.Context) error {
			return ix.vectors.Delete(ctx, deleteIDs)
		})
	}

	if ix.vectors != nil {
		records := filterValidRecords(upsertRecords)
		if len(records) > 0 {
			_ = withRetry(ctx, vectorRetryAttempts, vectorRetryBase, func(ctx context.Context) error {
				return ix.vectors.Upsert(ctx, records)
			})
		}
	}

	return final
}

func (ix *Indexer) embedRecord(ctx context.Context, u types.SemanticUnit) vectorstore.Record {
	if ix.embedder == nil {
		return vectorstore.Record{}
	}
	vec, err := ix.embedder.Embed(ctx, documentText(u))
	if err != nil {
		return vectorstore.Record{}
	}
	return vectorstore.Record{ID: u.ID, Vector: vec, Language: u.Language, FilePath: u.FilePath}
}

func filterValidRecords(records []vectorstore.Record) []vectorstore.Record {
	out := make([]vectorstore.Record, 0, len(records))
	for _, r := range records {
		if r.ID != "" {
			out = append(out, r)
		}
	}
	return out
}

// documentText is what BM25 and the embedder see for a unit: name plus
// signature plus content, so identifier matches and free-text matches
// both contribute.
func documentText(u types.SemanticUnit) string {
	return u.Name + " " + u.Signature + " " + string(u.Content)
}

func unitNameSet(units []types.SemanticUnit) map[string]struct{} {
	out := make(map[string]struct{}, len(units))
	for _, u := range units {
		out[u.Name] = struct{}{}
	}
	return out
}

func workerCount(cfg *config.Config) int {
	if cfg.Performance.ParallelFileWorkers > 0 {
		return cfg.Performance.ParallelFileWorkers
	}
	n := runtime.NumCPU() - 1
	if n < 1 {
		n = 1
	}
	return n
}

func parseTimeout(cfg *config.Config) time.Duration {
	if cfg.Performance.ParseTimeoutMs > 0 {
		return time.Duration(cfg.Performance.ParseTimeoutMs) * time.Millisecond
	}
	return 5 * time.Second
}

// withRetry implements spec.md §4.3's exponential-backoff policy for
// vector-store writes, surfacing *rerrors.StoreUnavailable once attempts
// are exhausted.
func withRetry(ctx context.Context, attempts int, base time.Duration, op func(context.Context) error) error {
	var lastErr error
	delay := base
	for i := 0; i < attempts; i++ {
		err := op(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		if i < attempts-1 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
			delay *= 2
		}
	}
	return &rerrors.StoreUnavailable{Operation: "upsert_or_delete", Attempts: attempts, Underlying: lastErr}
}

func readFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}
