// Package config loads recall's KDL configuration file and exposes the
// include/exclude/gitignore matching used by the tree walker (component
// F). Grounded on the teacher's internal/config (kdl_config.go,
// gitignore.go, build_artifact_detector.go), trimmed to the options
// SPEC_FULL.md's components actually read.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	kdl "github.com/sblinch/kdl-go"
	"github.com/sblinch/kdl-go/document"
)

// Project identifies the tree being indexed.
type Project struct {
	Root string
	Name string
}

// Index controls the tree walker and the caller-opt-in default
// exclusions spec §4.3 describes.
type Index struct {
	MaxFileSize      int64
	MaxFileCount     int
	FollowSymlinks   bool
	RespectGitignore bool
	WatchMode        bool
	WatchDebounceMs  int
}

// Performance controls the bounded worker pool (component F, §5).
type Performance struct {
	ParallelFileWorkers int
	ParseTimeoutMs      int
}

// Search controls default hybrid-search parameters (component G).
type Search struct {
	DefaultTopK int
	DefaultMode string
	Alpha       float64
}

// Memory controls the pruner's lifecycle defaults (component H, §4.8).
type Memory struct {
	SessionTTLHours    int
	StaleDays          int
	SafetyWindowHours  int
}

// Config is the root configuration document, normally loaded from
// ".recall.kdl" at the project root.
type Config struct {
	Version     int
	Project     Project
	Index       Index
	Performance Performance
	Search      Search
	Memory      Memory
	Include     []string
	Exclude     []string
}

// defaultExclusions matches the teacher's "defaults exclude node_modules/,
// .git/, common test/vendor directories when the caller opts in" (§4.3).
// They are applied only when the caller opts in via
// WithDefaultExclusions, never silently.
var defaultExclusions = []string{
	"**/node_modules/**",
	"**/.git/**",
	"**/vendor/**",
	"**/dist/**",
	"**/build/**",
	"**/target/**",
	"**/.venv/**",
	"**/__pycache__/**",
	"**/bin/obj/**",
}

// Default returns a Config populated with the teacher's conservative
// defaults.
func Default() *Config {
	cwd, _ := os.Getwd()
	return &Config{
		Version: 1,
		Project: Project{Root: cwd},
		Index: Index{
			MaxFileSize:      10 * 1024 * 1024,
			MaxFileCount:     10000,
			FollowSymlinks:   false,
			RespectGitignore: true,
		},
		Performance: Performance{
			ParallelFileWorkers: 0, // 0 means "cores - 1" at call time
			ParseTimeoutMs:      5000,
		},
		Search: Search{
			DefaultTopK: 20,
			DefaultMode: "hybrid",
			Alpha:       0.6,
		},
		Memory: Memory{
			SessionTTLHours:   48,
			StaleDays:         30,
			SafetyWindowHours: 24,
		},
	}
}

// WithDefaultExclusions appends the common build-artifact/vcs directory
// patterns to Exclude. Callers opt in explicitly, per §4.3.
func (c *Config) WithDefaultExclusions() *Config {
	c.Exclude = append(c.Exclude, defaultExclusions...)
	return c
}

// Load reads a KDL config file at path. A missing file is not an error:
// Load returns Default().
func Load(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg, err := parseKDL(content)
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	root := filepath.Dir(path)
	if cfg.Project.Root == "" {
		abs, _ := filepath.Abs(root)
		cfg.Project.Root = abs
	} else if !filepath.IsAbs(cfg.Project.Root) {
		cfg.Project.Root = filepath.Clean(filepath.Join(root, cfg.Project.Root))
	}
	return cfg, nil
}

func parseKDL(content []byte) (*Config, error) {
	cfg := Default()

	doc, err := kdl.Parse(strings.NewReader(string(content)))
	if err != nil {
		return nil, err
	}

	for _, n := range doc.Nodes {
		switch nodeName(n) {
		case "project":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "root":
					if s, ok := firstStringArg(cn); ok {
						cfg.Project.Root = s
					}
				case "name":
					if s, ok := firstStringArg(cn); ok {
						cfg.Project.Name = s
					}
				}
			}
		case "index":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "max_file_size":
					if v, ok := firstIntArg(cn); ok {
						cfg.Index.MaxFileSize = int64(v)
					}
				case "max_file_count":
					if v, ok := firstIntArg(cn); ok {
						cfg.Index.MaxFileCount = v
					}
				case "follow_symlinks":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Index.FollowSymlinks = b
					}
				case "respect_gitignore":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Index.RespectGitignore = b
					}
				case "watch_mode":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Index.WatchMode = b
					}
				case "watch_debounce_ms":
					if v, ok := firstIntArg(cn); ok {
						cfg.Index.WatchDebounceMs = v
					}
				}
			}
		case "performance":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "parallel_file_workers":
					if v, ok := firstIntArg(cn); ok {
						cfg.Performance.ParallelFileWorkers = v
					}
				case "parse_timeout_ms":
					if v, ok := firstIntArg(cn); ok {
						cfg.Performance.ParseTimeoutMs = v
					}
				}
			}
		case "search":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "default_top_k":
					if v, ok := firstIntArg(cn); ok {
						cfg.Search.DefaultTopK = v
					}
				case "default_mode":
					if s, ok := firstStringArg(cn); ok {
						cfg.Search.DefaultMode = s
					}
				case "alpha":
					if v, ok := firstFloatArg(cn); ok {
						cfg.Search.Alpha = v
					}
				}
			}
		case "memory":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "session_ttl_hours":
					if v, ok := firstIntArg(cn); ok {
						cfg.Memory.SessionTTLHours = v
					}
				case "stale_days":
					if v, ok := firstIntArg(cn); ok {
						cfg.Memory.StaleDays = v
					}
				case "safety_window_hours":
					if v, ok := firstIntArg(cn); ok {
						cfg.Memory.SafetyWindowHours = v
					}
				}
			}
		case "include":
			cfg.Include = append(cfg.Include, collectStringArgs(n)...)
		case "exclude":
			cfg.Exclude = append(cfg.Exclude, collectStringArgs(n)...)
		}
	}

	return cfg, nil
}

func nodeName(n *document.Node) string {
	if n == nil || n.Name == nil {
		return ""
	}
	return n.Name.NodeNameString()
}

func firstIntArg(n *document.Node) (int, bool) {
	if len(n.Arguments) == 0 {
		return 0, false
	}
	switch v := n.Arguments[0].Value.(type) {
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	}
	return 0, false
}

func firstStringArg(n *document.Node) (string, bool) {
	if len(n.Arguments) == 0 {
		return "", false
	}
	s, ok := n.Arguments[0].Value.(string)
	return s, ok
}

func firstBoolArg(n *document.Node) (bool, bool) {
	if len(n.Arguments) == 0 {
		return false, false
	}
	b, ok := n.Arguments[0].Value.(bool)
	return b, ok
}

func firstFloatArg(n *document.Node) (float64, bool) {
	if len(n.Arguments) == 0 {
		return 0, false
	}
	switch v := n.Arguments[0].Value.(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	}
	return 0, false
}

func collectStringArgs(n *document.Node) []string {
	if n == nil {
		return nil
	}
	out := make([]string, 0, len(n.Arguments))
	for _, a := range n.Arguments {
		if s, ok := a.Value.(string); ok {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		for _, child := range n.Children {
			if s, ok := firstStringArg(child); ok {
				out = append(out, s)
			} else if child.Name != nil {
				if s, ok := child.Name.Value.(string); ok {
					out = append(out, s)
				}
			}
		}
	}
	return out
}
