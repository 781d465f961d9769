// Package types holds the data model shared across the ingestion and
// retrieval pipeline: semantic units, file records, stored memories and
// the small value types derived from them.
package types

import (
	"fmt"
	"time"
)

// Language is a closed enumeration of the source languages the parser
// registry understands. Unknown extensions resolve to LanguageUnknown,
// which is not an error.
type Language string

const (
	LanguagePython     Language = "python"
	LanguageJavaScript Language = "javascript"
	LanguageTypeScript Language = "typescript"
	LanguageJava       Language = "java"
	LanguageGo         Language = "go"
	LanguageRust       Language = "rust"
	LanguageC          Language = "c"
	LanguageCPP        Language = "cpp"
	LanguagePHP        Language = "php"
	LanguageRuby       Language = "ruby"
	LanguageSwift      Language = "swift"
	LanguageKotlin     Language = "kotlin"
	LanguageCSharp     Language = "csharp"
	LanguageSQL        Language = "sql"
	LanguageJSON       Language = "json"
	LanguageYAML       Language = "yaml"
	LanguageTOML       Language = "toml"
	LanguageUnknown    Language = "unknown"
)

// UnitType classifies a SemanticUnit. "section" is the variant used for
// configuration keys and SQL DDL; CREATE TABLE/VIEW are classified as
// UnitTypeClass, not UnitTypeSection.
type UnitType string

const (
	UnitTypeFunction UnitType = "function"
	UnitTypeClass    UnitType = "class"
	UnitTypeMethod   UnitType = "method"
	UnitTypeSection  UnitType = "section"
)

// UnitID is the stable, content-independent identifier minted for a
// SemanticUnit by the indexer's "stable unit id policy" (see
// internal/hashid). It is the key used for both vector-store and BM25
// records.
type UnitID string

// SemanticUnit is the atomic indexable entity produced by the parser
// registry (component A) and tracked by the incremental indexer
// (component F).
type SemanticUnit struct {
	ID          UnitID
	UnitType    UnitType
	Name        string
	Language    Language
	FilePath    string
	StartLine   int
	EndLine     int
	StartByte   int
	EndByte     int
	Signature   string
	Content     []byte
	ContentHash string
}

// Validate checks the invariants spec.md §3 places on a SemanticUnit:
// ranges inside the file, end >= start, non-empty name.
func (u *SemanticUnit) Validate(fileSize int) error {
	if u.Name == "" {
		return fmt.Errorf("semantic unit has empty name")
	}
	if u.EndLine < u.StartLine {
		return fmt.Errorf("unit %q: end_line %d < start_line %d", u.Name, u.EndLine, u.StartLine)
	}
	if u.EndByte <= u.StartByte {
		return fmt.Errorf("unit %q: end_byte %d <= start_byte %d", u.Name, u.EndByte, u.StartByte)
	}
	if u.StartByte < 0 || u.EndByte > fileSize {
		return fmt.Errorf("unit %q: byte range [%d,%d) outside file of size %d", u.Name, u.StartByte, u.EndByte, fileSize)
	}
	return nil
}

// IdentityKey returns the (file_path, name, unit_type, start_line) tuple
// spec.md §3 requires to be unique within a single parse.
func (u *SemanticUnit) IdentityKey() string {
	return fmt.Sprintf("%s\x00%s\x00%s\x00%d", u.FilePath, u.Name, u.UnitType, u.StartLine)
}

// FileRecord is the per-indexed-file bookkeeping entry owned by the
// incremental indexer. It owns zero or more SemanticUnits by name.
type FileRecord struct {
	FilePath      string
	FileHash      string
	Language      Language
	LastIndexedAt time.Time
	UnitNames     map[string]struct{}
}

// NewFileRecord builds an empty FileRecord for a freshly seen path.
func NewFileRecord(path, fileHash string, lang Language) *FileRecord {
	return &FileRecord{
		FilePath:  path,
		FileHash:  fileHash,
		Language:  lang,
		UnitNames: make(map[string]struct{}),
	}
}

// MemoryCategory is the closed set of categories a stored Memory can
// belong to.
type MemoryCategory string

const (
	CategoryPreference   MemoryCategory = "preference"
	CategoryFact         MemoryCategory = "fact"
	CategoryEvent        MemoryCategory = "event"
	CategoryWorkflow     MemoryCategory = "workflow"
	CategoryContext      MemoryCategory = "context"
	CategoryCode         MemoryCategory = "code"
	CategoryDocumentation MemoryCategory = "documentation"
)

// MemoryScope distinguishes memories visible across every project from
// ones scoped to a single project.
type MemoryScope string

const (
	ScopeGlobal  MemoryScope = "global"
	ScopeProject MemoryScope = "project"
)

// ContextLevel drives the lifecycle rules of component H (§4.8).
type ContextLevel string

const (
	ContextLevelUserPreference ContextLevel = "USER_PREFERENCE"
	ContextLevelProjectContext ContextLevel = "PROJECT_CONTEXT"
	ContextLevelSessionState   ContextLevel = "SESSION_STATE"
	ContextLevelOther          ContextLevel = "OTHER"
)

// Memory is a user-level stored item: produced by retrieval callers,
// consumed by the pruner (component H).
type Memory struct {
	ID           string
	Content      string
	Category     MemoryCategory
	Scope        MemoryScope
	ProjectName  string
	ContextLevel ContextLevel
	Importance   float64
	CreatedAt    time.Time
	LastUsed     *time.Time
	UseCount     int
	EmbeddingRef string
}

// LastActivity returns max(LastUsed, CreatedAt), the timestamp the TTL
// and staleness rules of §4.8 are evaluated against.
func (m *Memory) LastActivity() time.Time {
	if m.LastUsed != nil && m.LastUsed.After(m.CreatedAt) {
		return *m.LastUsed
	}
	return m.CreatedAt
}
