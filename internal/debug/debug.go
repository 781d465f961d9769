// Package debug is a small category-tagged logging facility. It exists
// instead of a structured logging dependency because spec §1 scopes
// logging configuration out of the core and the teacher corpus shows
// that a process embedding this kind of engine wants one mutex-guarded
// sink it can redirect or silence entirely, not a framework.
package debug

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// MCPMode suppresses all debug output, whichever sink is installed,
// when the process is speaking a wire protocol (e.g. MCP over stdin/stdout) on the same
// stream a stray log line would corrupt.
var MCPMode = false

var (
	mu     sync.Mutex
	output io.Writer
	file   *os.File
)

// SetMCPMode toggles MCPMode.
func SetMCPMode(enabled bool) { MCPMode = enabled }

// SetOutput installs w as the debug sink. Passing nil disables output.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

// InitLogFile opens a timestamped log file under the OS temp directory
// and installs it as the debug sink. Returns the path, or an error if
// the file could not be created.
func InitLogFile(prefix string) (string, error) {
	mu.Lock()
	defer mu.Unlock()

	dir := filepath.Join(os.TempDir(), prefix+"-logs")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create debug log dir: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("%s-%s.log", prefix, time.Now().Format("2006-01-02T150405")))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return "", fmt.Errorf("open debug log file: %w", err)
	}
	file = f
	output = f
	return path, nil
}

// Close closes any open log file.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	if file != nil {
		_ = file.Close()
		file = nil
		output = nil
	}
}

func logf(category, format string, args ...interface{}) {
	if MCPMode {
		return
	}
	mu.Lock()
	w := output
	mu.Unlock()
	if w == nil {
		return
	}
	ts := time.Now().Format("15:04:05.000")
	fmt.Fprintf(w, "[%s] %s: %s\n", ts, category, fmt.Sprintf(format, args...))
}

// LogIndexing logs a message in the "indexing" category (component F).
func LogIndexing(format string, args ...interface{}) { logf("indexing", format, args...) }

// LogParser logs a message in the "parser" category (component A).
func LogParser(format string, args ...interface{}) { logf("parser", format, args...) }

// LogSearch logs a message in the "search" category (component G).
func LogSearch(format string, args ...interface{}) { logf("search", format, args...) }

// LogCache logs a message in the "cache" category (the indexer's cache).
func LogCache(format string, args ...interface{}) { logf("cache", format, args...) }

// LogPrune logs a message in the "prune" category (component H).
func LogPrune(format string, args ...interface{}) { logf("prune", format, args...) }

// LogWarn logs an internal warning (e.g. CorruptCache recovery) that
// should not reach the caller as an error.
func LogWarn(format string, args ...interface{}) { logf("warn", format, args...) }
