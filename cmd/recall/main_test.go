package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestIndexSearchPruneEstimateRoundTrip(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.go", "package a\n\nfunc Hello() string {\n\treturn \"hi\"\n}\n")

	app := newApp()
	require.NoError(t, app.Run([]string{"recall", "--root", dir, "--project", "roundtrip", "index"}))
	require.NoError(t, app.Run([]string{"recall", "--root", dir, "--project", "roundtrip", "search", "Hello"}))
	require.NoError(t, app.Run([]string{"recall", "--root", dir, "--project", "roundtrip", "estimate"}))
	require.NoError(t, app.Run([]string{"recall", "--root", dir, "--project", "roundtrip", "prune", "--dry-run"}))
}

func TestSearchWithoutQueryArgumentFails(t *testing.T) {
	dir := t.TempDir()
	app := newApp()
	err := app.Run([]string{"recall", "--root", dir, "search"})
	require.Error(t, err)
}
