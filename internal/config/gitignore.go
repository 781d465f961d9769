package config

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// GitignorePattern is one parsed line of a .gitignore file. Grounded on
// the teacher's internal/config/gitignore.go, trimmed of its regex
// compilation cache since recall's trees are small enough that plain
// doublestar matching is not a hot path worth the extra machinery.
type GitignorePattern struct {
	Pattern   string
	Negate    bool
	Directory bool
	Anchored  bool
}

// GitignoreParser matches relative paths against a loaded .gitignore.
type GitignoreParser struct {
	patterns []GitignorePattern
}

// NewGitignoreParser returns an empty parser.
func NewGitignoreParser() *GitignoreParser {
	return &GitignoreParser{}
}

// LoadGitignore reads root/.gitignore, if present. A missing file is not
// an error.
func (g *GitignoreParser) LoadGitignore(root string) error {
	f, err := os.Open(filepath.Join(root, ".gitignore"))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		g.patterns = append(g.patterns, parseGitignoreLine(line))
	}
	return scanner.Err()
}

func parseGitignoreLine(line string) GitignorePattern {
	p := GitignorePattern{}
	if strings.HasPrefix(line, "!") {
		p.Negate = true
		line = line[1:]
	}
	if strings.HasPrefix(line, "/") {
		p.Anchored = true
		line = line[1:]
	}
	if strings.HasSuffix(line, "/") {
		p.Directory = true
		line = strings.TrimSuffix(line, "/")
	}
	p.Pattern = line
	return p
}

// Match reports whether relPath (slash-separated, relative to the
// gitignored root) is ignored. Later patterns override earlier ones, and
// a "!" pattern re-includes a path an earlier pattern excluded — the
// standard gitignore precedence rule.
func (g *GitignoreParser) Match(relPath string, isDir bool) bool {
	relPath = filepath.ToSlash(relPath)
	ignored := false
	for _, p := range g.patterns {
		if p.Directory && !isDir {
			continue
		}
		matched := matchGitignorePattern(p, relPath)
		if matched {
			ignored = !p.Negate
		}
	}
	return ignored
}

func matchGitignorePattern(p GitignorePattern, relPath string) bool {
	pattern := p.Pattern
	if p.Anchored {
		ok, _ := doublestar.Match(pattern, relPath)
		if ok {
			return true
		}
		ok, _ = doublestar.Match(pattern+"/**", relPath)
		return ok
	}
	// Unanchored: match the pattern itself anywhere in the path, and as
	// a prefix-glob across directory components.
	if ok, _ := doublestar.Match("**/"+pattern, relPath); ok {
		return true
	}
	if ok, _ := doublestar.Match("**/"+pattern+"/**", relPath); ok {
		return true
	}
	ok, _ := doublestar.Match(pattern, relPath)
	return ok
}

// MatchAny reports whether relPath matches any of the doublestar
// patterns in patterns (used for Config.Include/Exclude, not gitignore
// syntax).
func MatchAny(patterns []string, relPath string) bool {
	relPath = filepath.ToSlash(relPath)
	for _, pat := range patterns {
		if ok, _ := doublestar.Match(pat, relPath); ok {
			return true
		}
	}
	return false
}
