// Package export writes repository rows to disk. The output format follows
// the file extension; every flush rewrites the file in full through a
// temporary file so a crash never leaves a half-written output behind.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/alexanderquispe/github-repo-fetcher/pkg/record"
)

// Writer renders a full set of rows to a path.
type Writer interface {
	// Write replaces the file at path with the given rows.
	Write(path string, rows []record.RepositoryRecord) error
}

// ForPath selects a writer by the path's extension. Unrecognized or missing
// extensions fall back to NDJSON.
func ForPath(path string) Writer {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return CSVWriter{}
	default:
		return NDJSONWriter{}
	}
}

// DefaultPath appends the .ndjson extension when the path carries none.
func DefaultPath(path string) string {
	if filepath.Ext(path) == "" {
		return path + ".ndjson"
	}
	return path
}

// atomicWrite renders into a temp file next to path, then renames over it.
func atomicWrite(path string, render func(f *os.File) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := render(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace output file: %w", err)
	}
	return nil
}
