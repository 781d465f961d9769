// Package changedetect compares two file-content snapshots and two
// sets of semantic units, turning them into the deltas the incremental
// indexer (internal/indexer) applies to the cache, the vector store
// and the BM25 index. Rename detection is grounded on the teacher's
// internal/semantic.FuzzyMatcher (github.com/hbollon/go-edlib), reused
// here for longest-common-subsequence file-content similarity instead
// of symbol-name similarity.
package changedetect

import (
	"sort"

	"github.com/hbollon/go-edlib"

	"github.com/recallhq/recall/internal/types"
)

// ChangeType is the closed set of file-level delta variants.
type ChangeType string

const (
	ChangeAdded    ChangeType = "added"
	ChangeDeleted  ChangeType = "deleted"
	ChangeModified ChangeType = "modified"
	ChangeRenamed  ChangeType = "renamed"
)

// FileChange is one entry of detect_file_changes' output.
type FileChange struct {
	Type            ChangeType
	FilePath        string
	OldPath         string
	SimilarityRatio float64
}

// DefaultRenameThreshold is the similarity a deleted/added pair must
// clear to be reclassified as a rename.
const DefaultRenameThreshold = 0.8

// sizeRatioPrefilterMax rejects a rename candidate outright when the
// smaller file is no more than this fraction of the larger one's size;
// avoids paying for an LCS similarity pass on obviously unrelated files.
const sizeRatioPrefilterMax = 0.5

// Detector wraps the rename-detection threshold so callers can tune it
// per spec §4.2's "Open Question" about directories of many small
// near-duplicate files.
type Detector struct {
	RenameThreshold float64
}

// NewDetector returns a Detector using DefaultRenameThreshold.
func NewDetector() *Detector {
	return &Detector{RenameThreshold: DefaultRenameThreshold}
}

// DetectFileChanges compares two path→content snapshots and returns
// added/deleted/modified entries, then runs a rename post-pass over
// the (added, deleted) pairing.
func (d *Detector) DetectFileChanges(old, new map[string][]byte) []FileChange {
	threshold := d.RenameThreshold
	if threshold <= 0 {
		threshold = DefaultRenameThreshold
	}

	var added, deleted []string
	var changes []FileChange

	for path, newContent := range new {
		oldContent, existed := old[path]
		switch {
		case !existed:
			added = append(added, path)
		case string(oldContent) != string(newContent):
			changes = append(changes, FileChange{Type: ChangeModified, FilePath: path})
		}
	}
	for path := range old {
		if _, stillExists := new[path]; !stillExists {
			deleted = append(deleted, path)
		}
	}
	sort.Strings(added)
	sort.Strings(deleted)

	renamedAdded := map[string]bool{}
	renamedDeleted := map[string]bool{}

	for _, delPath := range deleted {
		oldContent := old[delPath]
		bestPath := ""
		bestScore := 0.0
		for _, addPath := range added {
			if renamedAdded[addPath] {
				continue
			}
			newContent := new[addPath]
			if !passesSizePrefilter(len(oldContent), len(newContent)) {
				continue
			}
			score := lcsSimilarity(string(oldContent), string(newContent))
			if score > bestScore {
				bestScore = score
				bestPath = addPath
			}
		}
		if bestPath != "" && bestScore >= threshold {
			changes = append(changes, FileChange{
				Type:            ChangeRenamed,
				FilePath:        bestPath,
				OldPath:         delPath,
				SimilarityRatio: bestScore,
			})
			renamedAdded[bestPath] = true
			renamedDeleted[delPath] = true
		}
	}

	for _, path := range added {
		if !renamedAdded[path] {
			changes = append(changes, FileChange{Type: ChangeAdded, FilePath: path})
		}
	}
	for _, path := range deleted {
		if !renamedDeleted[path] {
			changes = append(changes, FileChange{Type: ChangeDeleted, FilePath: path})
		}
	}

	sort.SliceStable(changes, func(i, j int) bool {
		return changes[i].FilePath < changes[j].FilePath
	})
	return changes
}

func passesSizePrefilter(oldSize, newSize int) bool {
	if oldSize == 0 || newSize == 0 {
		return oldSize == newSize
	}
	smaller, larger := oldSize, newSize
	if smaller > larger {
		smaller, larger = larger, smaller
	}
	ratio := float64(smaller) / float64(larger)
	return ratio > sizeRatioPrefilterMax
}

// lcsSimilarity returns go-edlib's longest-common-subsequence
// similarity (already normalized to 0..1 by the library).
func lcsSimilarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	if a == "" || b == "" {
		return 0.0
	}
	score, err := edlib.StringsSimilarity(a, b, edlib.Lcs)
	if err != nil {
		return 0.0
	}
	return float64(score)
}

// UnitDelta is the result of detect_unit_changes: names grouped by
// whether they were added, modified (same name, different
// content_hash) or deleted relative to the old unit set.
type UnitDelta struct {
	Added    []string
	Modified []string
	Deleted  []string
}

// DetectUnitChanges compares two unit slices by content_hash identity,
// keyed by unit name (spec §4.2: "using content_hash for identity").
func DetectUnitChanges(oldUnits, newUnits []types.SemanticUnit) UnitDelta {
	oldByName := make(map[string]string, len(oldUnits))
	for _, u := range oldUnits {
		oldByName[u.Name] = u.ContentHash
	}
	newByName := make(map[string]string, len(newUnits))
	for _, u := range newUnits {
		newByName[u.Name] = u.ContentHash
	}

	var delta UnitDelta
	for name, newHash := range newByName {
		oldHash, existed := oldByName[name]
		switch {
		case !existed:
			delta.Added = append(delta.Added, name)
		case oldHash != newHash:
			delta.Modified = append(delta.Modified, name)
		}
	}
	for name := range oldByName {
		if _, stillExists := newByName[name]; !stillExists {
			delta.Deleted = append(delta.Deleted, name)
		}
	}
	sort.Strings(delta.Added)
	sort.Strings(delta.Modified)
	sort.Strings(delta.Deleted)
	return delta
}

// Plan is get_incremental_index_plan's output: the concrete set of
// units the indexer should add/update/delete, plus whether the churn
// ratio is high enough that a wholesale reindex is cheaper than
// applying the delta piecemeal.
type Plan struct {
	UnitsToAdd        []types.SemanticUnit
	UnitsToUpdate     []types.SemanticUnit
	UnitsToDelete     []string
	FullReindexNeeded bool
}

// fullReindexThreshold is the churn ratio (changed/total) above which
// a full reindex is cheaper than a piecemeal delta.
const fullReindexThreshold = 0.7

// GetIncrementalIndexPlan turns a FileChange plus its old/new unit
// sets into a concrete Plan. For added/renamed files every new unit is
// an add; for deleted files every old unit is a delete; for modified
// files the unit-level delta from DetectUnitChanges decides.
func GetIncrementalIndexPlan(change FileChange, oldUnits, newUnits []types.SemanticUnit) Plan {
	switch change.Type {
	case ChangeAdded:
		return Plan{UnitsToAdd: append([]types.SemanticUnit(nil), newUnits...)}
	case ChangeDeleted:
		names := make([]string, 0, len(oldUnits))
		for _, u := range oldUnits {
			names = append(names, u.Name)
		}
		return Plan{UnitsToDelete: names}
	case ChangeRenamed:
		names := make([]string, 0, len(oldUnits))
		for _, u := range oldUnits {
			names = append(names, u.Name)
		}
		return Plan{
			UnitsToDelete: names,
			UnitsToAdd:    append([]types.SemanticUnit(nil), newUnits...),
		}
	}

	delta := DetectUnitChanges(oldUnits, newUnits)
	byName := make(map[string]types.SemanticUnit, len(newUnits))
	for _, u := range newUnits {
		byName[u.Name] = u
	}

	plan := Plan{UnitsToDelete: delta.Deleted}
	for _, name := range delta.Added {
		plan.UnitsToAdd = append(plan.UnitsToAdd, byName[name])
	}
	for _, name := range delta.Modified {
		plan.UnitsToUpdate = append(plan.UnitsToUpdate, byName[name])
	}

	total := len(newUnits)
	if total > 0 {
		churn := len(delta.Added) + len(delta.Modified) + len(delta.Deleted)
		plan.FullReindexNeeded = float64(churn)/float64(total) > fullReindexThreshold
	}
	return plan
}
