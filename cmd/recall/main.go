// Command recall indexes a codebase into a hybrid keyword/semantic
// search corpus and serves it over the CLI or an MCP stdio server.
// Grounded on standardbeagle-lci/cmd/lci/main.go's urfave/cli/v2 App
// shape (global flags, Before hook building a shared indexer,
// per-subcommand Actions) and its mcpCommand's signal-driven graceful
// shutdown, generalized from lci's trigram/symbol domain to recall's
// semantic-unit/BM25/vector/memory stack.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/recallhq/recall/internal/config"
	"github.com/recallhq/recall/internal/debug"
	"github.com/recallhq/recall/internal/mcpserver"
	"github.com/recallhq/recall/internal/memory"
	"github.com/recallhq/recall/internal/search"
)

func loadConfigWithOverrides(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if root := c.String("root"); root != "" {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, fmt.Errorf("resolve root %q: %w", root, err)
		}
		cfg.Project.Root = abs
	}
	if name := c.String("project"); name != "" {
		cfg.Project.Name = name
	}
	if c.Bool("default-exclusions") {
		cfg.WithDefaultExclusions()
	}
	return cfg, nil
}

func main() {
	app := newApp()
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "recall: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "recall",
		Usage: "code-aware memory and retrieval engine",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Value: ".recall.kdl", Usage: "Config file path"},
			&cli.StringFlag{Name: "root", Aliases: []string{"r"}, Usage: "Project root to operate on (overrides config)"},
			&cli.StringFlag{Name: "project", Usage: "Project name (overrides config)"},
			&cli.BoolFlag{Name: "default-exclusions", Usage: "Apply the built-in node_modules/.git/vendor exclusions"},
		},
		Commands: []*cli.Command{
			{
				Name:   "index",
				Usage:  "Index (or incrementally re-index) the project root",
				Action: indexCommand,
			},
			{
				Name:  "search",
				Usage: "Run a hybrid keyword+semantic search query",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "top-k", Aliases: []string{"k"}, Value: 10},
					&cli.StringFlag{Name: "mode", Aliases: []string{"m"}, Value: "hybrid", Usage: "semantic, keyword, or hybrid"},
					&cli.BoolFlag{Name: "json", Aliases: []string{"j"}},
				},
				Action: searchCommand,
			},
			{
				Name:  "prune",
				Usage: "Run the memory lifecycle pruner",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "dry-run", Usage: "Report candidates without deleting"},
					&cli.IntFlag{Name: "ttl-hours", Usage: "Override the configured SESSION_STATE TTL"},
				},
				Action: pruneCommand,
			},
			{
				Name:  "estimate",
				Usage: "Estimate indexing time for the project root from recent run history",
				Action: estimateCommand,
			},
			{
				Name:   "watch",
				Usage:  "Watch the project root and incrementally re-index on change",
				Action: watchCommand,
			},
			{
				Name:   "mcp",
				Usage:  "Serve the index/search/suggest_queries/prune_expired tools over MCP stdio",
				Action: mcpCommand,
			},
		},
	}
}

func indexCommand(c *cli.Context) error {
	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return err
	}
	p, err := buildPipeline(cfg)
	if err != nil {
		return err
	}
	defer p.Close()

	stats, err := p.indexer.Run(c.Context, cfg.Project.Root)
	if err != nil {
		return err
	}
	if err := p.metrics.Append(c.Context, runFromStats(cfg.Project.Name, stats)); err != nil {
		debug.LogWarn("failed to record run metrics: %v\n", err)
	}

	fmt.Printf("indexed %d files (%d deleted), %d units added, %d updated, %d deleted — %v\n",
		stats.FilesIndexed, stats.FilesDeleted, stats.UnitsAdded, stats.UnitsUpdated, stats.UnitsDeleted, stats.Duration)
	fmt.Printf("cache hits/misses: %d/%d\n", stats.CacheHits, stats.CacheMisses)
	return nil
}

func searchCommand(c *cli.Context) error {
	if c.NArg() < 1 {
		return fmt.Errorf("usage: recall search <query>")
	}
	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return err
	}
	p, err := buildPipeline(cfg)
	if err != nil {
		return err
	}
	defer p.Close()

	if _, err := p.indexer.Run(c.Context, cfg.Project.Root); err != nil {
		return fmt.Errorf("index before search: %w", err)
	}

	resp, err := p.engine.Search(c.Context, search.Request{
		QueryString:      c.Args().First(),
		TopK:             c.Int("top-k"),
		Mode:             search.Mode(c.String("mode")),
		Project:          cfg.Project.Name,
		ProjectWeighting: cfg.Project.Name != "",
	})
	if err != nil {
		return err
	}

	if c.Bool("json") {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}
	for _, hit := range resp.Results {
		fmt.Printf("%.3f  %s:%d  %s %s\n", hit.Score, hit.FilePath, hit.StartLine, hit.UnitType, hit.Name)
	}
	fmt.Println(resp.Summary)
	return nil
}

func pruneCommand(c *cli.Context) error {
	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return err
	}
	p, err := buildPipeline(cfg)
	if err != nil {
		return err
	}
	defer p.Close()

	result, err := p.pruner.PruneExpired(c.Context, memory.Options{
		DryRun:   c.Bool("dry-run"),
		TTLHours: c.Int("ttl-hours"),
	})
	if err != nil {
		return err
	}
	orphans, err := p.pruner.PruneOrphans(c.Context)
	if err != nil {
		return err
	}

	fmt.Printf("candidates: %d, deleted: %d, orphan usage rows removed: %d\n",
		len(result.Candidates), len(result.Deleted), orphans)
	return nil
}

func estimateCommand(c *cli.Context) error {
	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return err
	}
	p, err := buildPipeline(cfg)
	if err != nil {
		return err
	}
	defer p.Close()

	fileCount, paths, err := countCandidateFiles(cfg)
	if err != nil {
		return err
	}

	min, max, err := p.estimate.Estimate(c.Context, fileCount, cfg.Project.Name)
	if err != nil {
		return err
	}
	fmt.Printf("%d files, estimated %.1fs-%.1fs\n", fileCount, min, max)

	for _, suggestion := range p.advisor.Suggest(paths, min) {
		fmt.Printf("suggest excluding: %s\n", suggestion)
	}
	return nil
}

func mcpCommand(c *cli.Context) error {
	debug.SetMCPMode(true)
	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return err
	}
	p, err := buildPipeline(cfg)
	if err != nil {
		return err
	}
	defer p.Close()

	if _, err := p.indexer.Run(c.Context, cfg.Project.Root); err != nil {
		debug.LogWarn("initial index failed: %v\n", err)
	}

	ctx, cancel := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	server := mcpserver.New(mcpserver.Deps{
		Indexer:     p.indexer,
		Engine:      p.engine,
		Pruner:      p.pruner,
		ProjectRoot: cfg.Project.Root,
		ProjectName: cfg.Project.Name,
	})
	return server.Run(ctx)
}

func watchCommand(c *cli.Context) error {
	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return err
	}
	cfg.Index.WatchMode = true
	p, err := buildPipeline(cfg)
	if err != nil {
		return err
	}
	defer p.Close()

	if _, err := p.indexer.Run(c.Context, cfg.Project.Root); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return runWatcher(ctx, cfg, p)
}
