package dataset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
)

// Loader turns dataset files into prompt records.
type Loader struct {
	maxPerDataset int
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithMaxPerDataset overrides the per-dataset record cap.
func WithMaxPerDataset(n int) LoaderOption {
	return func(l *Loader) {
		if n > 0 {
			l.maxPerDataset = n
		}
	}
}

// NewLoader creates a loader with the default cap of 20 records per dataset.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{maxPerDataset: DefaultMaxPerDataset}
	for _, fn := range opts {
		fn(l)
	}
	return l
}

// Load reads every dataset in order and returns their prompts. A dataset
// that cannot be read, or has no prompt-like column, is skipped with a
// warning. Load fails only when no dataset produced a single prompt.
func (l *Loader) Load(ctx context.Context, refs []Ref) ([]PromptRecord, error) {
	var records []PromptRecord
	rowsRead := 0

	for _, ref := range refs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		recs, n, err := l.loadOne(ref)
		rowsRead += n
		if err != nil {
			slog.Warn("dataset: skipping dataset",
				"dataset", ref.Name,
				"path", ref.Path,
				"error", err)
			continue
		}

		slog.Info("dataset: loaded prompts",
			"dataset", ref.Name,
			"prompts", len(recs),
			"rows_read", n)
		records = append(records, recs...)
	}

	if len(records) == 0 {
		return nil, &NoPromptsError{Datasets: len(refs), RowsRead: rowsRead}
	}
	return records, nil
}

// errNoPromptColumn is reported (and logged) for datasets without a
// recognisable prompt column.
var errNoPromptColumn = errors.New("no prompt-like column found")

func (l *Loader) loadOne(ref Ref) ([]PromptRecord, int, error) {
	t, err := openTable(ref.Path)
	if err != nil {
		return nil, 0, err
	}
	defer t.Close()

	header := t.Header()
	cols := resolveColumns(header, ref)
	if cols.prompt < 0 {
		return nil, 0, fmt.Errorf("%w in header %q", errNoPromptColumn, header)
	}

	id := ref.ID
	if id == "" {
		id = ref.Name
	}
	file := filepath.Base(ref.Path)

	var records []PromptRecord
	rows := 0
	for len(records) < l.maxPerDataset {
		row, err := t.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, rows, fmt.Errorf("row %d: %w", rows+1, err)
		}
		rows++

		prompt := cell(row, cols.prompt)
		if prompt == "" {
			continue
		}
		category := cell(row, cols.category)
		if category == "" {
			category = "general"
		}
		records = append(records, PromptRecord{
			ID:              fmt.Sprintf("%s_%d", id, rows),
			Prompt:          prompt,
			Category:        category,
			SourceDataset:   ref.Name,
			SourceFile:      file,
			ReferenceAnswer: cell(row, cols.reference),
		})
	}
	return records, rows, nil
}
