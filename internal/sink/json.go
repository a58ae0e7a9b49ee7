package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"newsmask/internal/models"
)

// JSONWriter writes a split as a single JSON array.
type JSONWriter struct {
	path   func(split string) string
	pretty bool
}

// Write implements Writer.
func (w *JSONWriter) Write(ctx context.Context, split string, records []models.Record) (string, error) {
	dest := w.path(split)

	if records == nil {
		records = []models.Record{}
	}

	err := writeAtomic(ctx, dest, func(out io.Writer) error {
		enc := json.NewEncoder(out)
		enc.SetEscapeHTML(false)

		if w.pretty {
			enc.SetIndent("", "  ")
		}

		return enc.Encode(records)
	})
	if err != nil {
		return "", fmt.Errorf("failed to write %s: %w", dest, err)
	}

	return dest, nil
}

// JSONLWriter writes one JSON object per line.
type JSONLWriter struct {
	path func(split string) string
}

// Write implements Writer.
func (w *JSONLWriter) Write(ctx context.Context, split string, records []models.Record) (string, error) {
	dest := w.path(split)

	err := writeAtomic(ctx, dest, func(out io.Writer) error {
		enc := json.NewEncoder(out)
		enc.SetEscapeHTML(false)

		for i := range records {
			if err := enc.Encode(records[i]); err != nil {
				return fmt.Errorf("record %d: %w", i, err)
			}
		}

		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to write %s: %w", dest, err)
	}

	return dest, nil
}
