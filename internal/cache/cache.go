// Package cache implements the content-addressed cache of spec.md
// §4.3: map<file_hash, (language, units[])>, optionally backed by a
// persistent append-only store so a process restart doesn't force a
// full reindex. Grounded in structure on
// standardbeagle-lci/internal/cache/metrics_cache.go (atomic
// counters, read-mostly sync.Map-style cache) adapted to key on file
// hash instead of symbol name, and on
// ternarybob-quaero/internal/storage/sqlite/connection.go for the
// modernc.org/sqlite connection conventions used by the persisted
// backing store in sqlite_store.go.
package cache

import (
	"sync"
	"sync/atomic"

	"github.com/recallhq/recall/internal/rerrors"
	"github.com/recallhq/recall/internal/types"
)

// Entry is one cache row: the parsed units for a given file_hash, and
// the language the registry classified it as (a cache hit requires
// both the hash AND the classified language to match — spec.md §4.3
// step 2).
type Entry struct {
	Language types.Language
	Units    []types.SemanticUnit
}

// Counters mirrors spec.md §4.3's indexer-run counters that are
// cache-derived.
type Counters struct {
	CacheHits   int64
	CacheMisses int64
}

// Cache is the in-memory content-addressed store. It is safe for
// concurrent use; per spec.md §5 the cache is single-writer-per-key,
// enforced here with a sharded-free single RWMutex since the cache's
// read path (lookups during a parallel indexing run) dominates.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]Entry

	hits   int64
	misses int64

	backing PersistentStore
}

// PersistentStore is the optional append-and-compact backing layer;
// nil disables persistence and the Cache behaves as pure in-memory.
type PersistentStore interface {
	Load() (map[string]Entry, error)
	Put(fileHash string, entry Entry) error
	Delete(fileHash string) error
	Close() error
}

// New returns an empty in-memory Cache, optionally seeded from a
// PersistentStore's prior contents.
func New(backing PersistentStore) (*Cache, error) {
	c := &Cache{entries: make(map[string]Entry), backing: backing}
	if backing != nil {
		loaded, err := backing.Load()
		if err != nil {
			return nil, err
		}
		c.entries = loaded
	}
	return c, nil
}

// Lookup returns the cached entry for fileHash if present and its
// stored language matches expectedLanguage (spec.md §4.3's cache-hit
// condition); otherwise it records a miss.
func (c *Cache) Lookup(fileHash string, expectedLanguage types.Language) (Entry, bool) {
	c.mu.RLock()
	entry, exists := c.entries[fileHash]
	c.mu.RUnlock()

	if !exists || entry.Language != expectedLanguage {
		atomic.AddInt64(&c.misses, 1)
		return Entry{}, false
	}

	if corruptErr := validateEntry(fileHash, entry); corruptErr != nil {
		c.mu.Lock()
		delete(c.entries, fileHash)
		c.mu.Unlock()
		if c.backing != nil {
			_ = c.backing.Delete(fileHash)
		}
		atomic.AddInt64(&c.misses, 1)
		return Entry{}, false
	}

	atomic.AddInt64(&c.hits, 1)
	return entry, true
}

// validateEntry checks a cache row's internal consistency: every unit
// must carry the content hash of a unit (non-empty), a sane byte
// range, and agree with the entry's own language. A violation signals
// *rerrors.CorruptCache so the caller can log and fall through to a
// reparse.
func validateEntry(fileHash string, entry Entry) error {
	for _, u := range entry.Units {
		if u.ContentHash == "" {
			return &rerrors.CorruptCache{FileHash: fileHash, Reason: "unit missing content_hash"}
		}
		if u.EndByte < u.StartByte {
			return &rerrors.CorruptCache{FileHash: fileHash, Reason: "unit byte range inverted"}
		}
		if u.Language != entry.Language {
			return &rerrors.CorruptCache{FileHash: fileHash, Reason: "unit language disagrees with entry language"}
		}
	}
	return nil
}

// Put inserts or replaces the entry for fileHash. The indexer's parse
// workers call it concurrently; c.mu serializes the writes.
func (c *Cache) Put(fileHash string, entry Entry) error {
	c.mu.Lock()
	c.entries[fileHash] = entry
	c.mu.Unlock()

	if c.backing != nil {
		return c.backing.Put(fileHash, entry)
	}
	return nil
}

// Evict removes fileHash from the cache, used when CorruptCache is
// detected outside of Lookup (e.g. by an explicit integrity scan).
func (c *Cache) Evict(fileHash string) {
	c.mu.Lock()
	delete(c.entries, fileHash)
	c.mu.Unlock()
	if c.backing != nil {
		_ = c.backing.Delete(fileHash)
	}
}

// Counters returns a snapshot of cumulative hit/miss counts.
func (c *Cache) Counters() Counters {
	return Counters{
		CacheHits:   atomic.LoadInt64(&c.hits),
		CacheMisses: atomic.LoadInt64(&c.misses),
	}
}

// Size returns the number of distinct file hashes currently cached.
func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Close releases the backing store, if any.
func (c *Cache) Close() error {
	if c.backing != nil {
		return c.backing.Close()
	}
	return nil
}
