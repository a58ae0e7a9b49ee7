// Package sink persists masked splits as JSON, JSON Lines or SQLite blobs.
package sink

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"newsmask/internal/config"
	"newsmask/internal/models"
)

// ErrUnknownFormat is returned for an output format without a writer.
var ErrUnknownFormat = errors.New("unknown output format")

// Writer persists one split and returns the path it was written to.
type Writer interface {
	Write(ctx context.Context, split string, records []models.Record) (string, error)
}

// New returns the writer for cfg.Output.Format.
func New(cfg *config.Config) (Writer, error) {
	switch cfg.Output.Format {
	case "", "json":
		return &JSONWriter{path: cfg.GetOutputPath, pretty: cfg.Output.PrettyPrint}, nil
	case "jsonl":
		return &JSONLWriter{path: cfg.GetOutputPath}, nil
	case "sqlite":
		return &SQLiteWriter{path: cfg.GetOutputPath}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, cfg.Output.Format)
	}
}

// writeAtomic streams fill into a temp file next to dest and renames it into place.
func writeAtomic(ctx context.Context, dest string, fill func(w io.Writer) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	tmpPath := tmp.Name()
	_ = os.Chmod(tmpPath, 0644)

	bw := bufio.NewWriterSize(tmp, 64*1024)

	if err := fill(bw); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)

		return err
	}

	if err := bw.Flush(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)

		return fmt.Errorf("failed to flush %s: %w", dest, err)
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)

		return fmt.Errorf("failed to close %s: %w", tmpPath, err)
	}

	if err := ctx.Err(); err != nil {
		_ = os.Remove(tmpPath)

		return err
	}

	if err := os.Rename(tmpPath, dest); err != nil {
		_ = os.Remove(tmpPath)

		return fmt.Errorf("failed to move %s into place: %w", dest, err)
	}

	return nil
}
