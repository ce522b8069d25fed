package dataset

import (
	"errors"
	"fmt"
	"io"
)

// Layout describes a dataset file as seen by the loader.
type Layout struct {
	Format          string   `json:"format"`
	Delimiter       string   `json:"delimiter,omitempty"`
	Headers         []string `json:"headers"`
	RowCount        int      `json:"row_count"`
	ColumnCount     int      `json:"column_count"`
	PromptColumn    string   `json:"prompt_column,omitempty"`
	ReferenceColumn string   `json:"reference_column,omitempty"`
	CategoryColumn  string   `json:"category_column,omitempty"`
	// Valid is true when a prompt column was found.
	Valid bool `json:"valid"`
}

// Inspect reads the whole file and reports its headers, size and the columns
// the loader would use.
func Inspect(path string) (*Layout, error) {
	t, err := openTable(path)
	if err != nil {
		return nil, err
	}
	defer t.Close()

	header := t.Header()
	layout := &Layout{
		Format:      Format(path),
		Headers:     header,
		ColumnCount: len(header),
	}
	if ct, ok := t.(*csvTable); ok {
		layout.Delimiter = string(ct.delim)
	}

	cols := resolveColumns(header, Ref{})
	if cols.prompt >= 0 {
		layout.Valid = true
		layout.PromptColumn = header[cols.prompt]
	}
	if cols.reference >= 0 {
		layout.ReferenceColumn = header[cols.reference]
	}
	if cols.category >= 0 {
		layout.CategoryColumn = header[cols.category]
	}

	for {
		_, err := t.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", layout.RowCount+1, err)
		}
		layout.RowCount++
	}
	return layout, nil
}
