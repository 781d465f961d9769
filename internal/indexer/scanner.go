package indexer

import (
	"os"
	"path/filepath"

	"github.com/recallhq/recall/internal/config"
)

// scanner walks a project root, applying include/exclude globs and
// .gitignore matching to produce the set of candidate file paths a run
// will consider. Grounded on
// standardbeagle-lci/internal/indexing/pipeline.go's ScanDirectory
// (early directory pruning via filepath.Walk, symlink-cycle guard via
// filepath.EvalSymlinks) and pipeline_types.go's doublestar-based
// shouldExcludeFast/shouldIncludeFast, condensed into a single
// synchronous pass since SPEC_FULL.md's worker pool parallelizes
// parsing, not directory traversal.
type scanner struct {
	cfg       *config.Config
	gitignore *config.GitignoreParser
}

func newScanner(cfg *config.Config) *scanner {
	s := &scanner{cfg: cfg}
	if cfg.Index.RespectGitignore {
		s.gitignore = config.NewGitignoreParser()
		_ = s.gitignore.LoadGitignore(cfg.Project.Root)
	}
	return s
}

// CandidateFile is one file scan() selected for processing.
type CandidateFile struct {
	Path string // absolute
	Rel  string // relative to root, slash-separated
	Size int64
}

// scan walks root and returns every file passing inclusion/exclusion,
// gitignore and size/count limits. filepath.Walk does not descend into
// symlinked directories, so they are not followed whatever
// Index.FollowSymlinks says; when FollowSymlinks is false, a directory
// whose real path was already visited is also skipped.
func (s *scanner) scan(root string) ([]CandidateFile, error) {
	var out []CandidateFile
	visitedDirs := make(map[string]bool)

	err := filepath.Walk(root, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return nil // best-effort: skip unreadable entries
		}

		if info.IsDir() {
			if path == root {
				return nil
			}
			if !s.cfg.Index.FollowSymlinks {
				if real, err := filepath.EvalSymlinks(path); err == nil {
					if visitedDirs[real] {
						return filepath.SkipDir
					}
					visitedDirs[real] = true
				}
			}
			rel, _ := filepath.Rel(root, path)
			rel = filepath.ToSlash(rel)
			if s.shouldExclude(rel + "/") {
				return filepath.SkipDir
			}
			if s.gitignore != nil && s.gitignore.Match(rel, true) {
				return filepath.SkipDir
			}
			return nil
		}

		if len(out) >= s.cfg.Index.MaxFileCount {
			return filepath.SkipAll
		}

		rel, _ := filepath.Rel(root, path)
		rel = filepath.ToSlash(rel)

		if s.shouldExclude(rel) {
			return nil
		}
		if !s.shouldInclude(rel) {
			return nil
		}
		if s.gitignore != nil && s.gitignore.Match(rel, false) {
			return nil
		}
		if info.Size() > s.cfg.Index.MaxFileSize {
			return nil
		}

		out = append(out, CandidateFile{Path: path, Rel: rel, Size: info.Size()})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *scanner) shouldExclude(relPath string) bool {
	return config.MatchAny(s.cfg.Exclude, relPath)
}

func (s *scanner) shouldInclude(relPath string) bool {
	if len(s.cfg.Include) == 0 {
		return true
	}
	return config.MatchAny(s.cfg.Include, relPath)
}
