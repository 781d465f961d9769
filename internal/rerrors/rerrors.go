// Package rerrors defines the error kinds of spec §7. It is named
// rerrors rather than errors so call sites can still import the
// standard library errors package alongside it.
package rerrors

import (
	"errors"
	"fmt"
)

// ParseError signals malformed content in a strict format (JSON, TOML)
// or a parser crash. It is reported per-file; the indexing run
// continues with the remaining files.
type ParseError struct {
	Path       string
	Language   string
	Underlying error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error in %s (%s): %v", e.Path, e.Language, e.Underlying)
}

func (e *ParseError) Unwrap() error { return e.Underlying }

// BadQuery signals an invalid date filter or unterminated quote in the
// query DSL. It propagates directly to the search caller without
// touching the index.
type BadQuery struct {
	Query  string
	Reason string
}

func (e *BadQuery) Error() string {
	return fmt.Sprintf("bad query %q: %s", e.Query, e.Reason)
}

// StoreUnavailable signals a vector-store RPC failure that survived the
// retry-with-backoff policy of §4.3. Indexing aborts with partial
// progress preserved; search falls back to keyword-only if the BM25
// index is available.
type StoreUnavailable struct {
	Operation  string
	Attempts   int
	Underlying error
}

func (e *StoreUnavailable) Error() string {
	return fmt.Sprintf("vector store unavailable after %d attempts during %s: %v", e.Attempts, e.Operation, e.Underlying)
}

func (e *StoreUnavailable) Unwrap() error { return e.Underlying }

// CorruptCache signals a cache entry whose stored unit offsets are
// inconsistent with the current file length. The entry is evicted and
// the file is re-parsed; this is logged as an internal warning, not
// surfaced to the caller.
type CorruptCache struct {
	FileHash string
	Reason   string
}

func (e *CorruptCache) Error() string {
	return fmt.Sprintf("corrupt cache entry for hash %s: %s", e.FileHash, e.Reason)
}

// Cancelled signals cooperative shutdown of a long-running operation.
// It is not an error to the caller; it exists so internal plumbing can
// distinguish a deliberate stop from a real failure.
type Cancelled struct {
	Stage string
}

func (e *Cancelled) Error() string {
	return fmt.Sprintf("cancelled during %s", e.Stage)
}

// IsParseError reports whether err (or something it wraps) is a ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

// IsBadQuery reports whether err is a BadQuery.
func IsBadQuery(err error) bool {
	_, ok := err.(*BadQuery)
	return ok
}

// IsStoreUnavailable reports whether err (or something it wraps) is a StoreUnavailable.
func IsStoreUnavailable(err error) bool {
	var su *StoreUnavailable
	return errors.As(err, &su)
}

// IsCancelled reports whether err is a Cancelled.
func IsCancelled(err error) bool {
	_, ok := err.(*Cancelled)
	return ok
}
