package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/brunobiangulo/modelarena/dataset"
)

// DatasetIDPrefix prefixes a dataset's numeric id in its public id.
const DatasetIDPrefix = "dataset_"

// Dataset is an uploaded prompt file and its detected layout.
type Dataset struct {
	ID              int64    `json:"-"`
	UserID          int64    `json:"-"`
	Name            string   `json:"name"`
	Description     string   `json:"description,omitempty"`
	Filename        string   `json:"filename"`
	FilePath        string   `json:"-"`
	FileSize        int64    `json:"file_size"`
	RowCount        int      `json:"row_count"`
	ColumnCount     int      `json:"column_count"`
	Columns         []string `json:"columns"`
	FormatValidated bool     `json:"format_validated"`
	PromptColumn    string   `json:"prompt_column,omitempty"`
	ReferenceColumn string   `json:"reference_column,omitempty"`
	IsActive        bool     `json:"is_active"`
	CreatedAt       string   `json:"created_at"`
}

// PublicID returns the id the frontend uses for the dataset.
func (d Dataset) PublicID() string {
	return fmt.Sprintf("%s%d", DatasetIDPrefix, d.ID)
}

// MarshalJSON exposes the public id in place of the row id.
func (d Dataset) MarshalJSON() ([]byte, error) {
	type plain Dataset
	return json.Marshal(struct {
		ID string `json:"id"`
		plain
	}{d.PublicID(), plain(d)})
}

// Ref returns the loader reference for the dataset file.
func (d Dataset) Ref() dataset.Ref {
	return dataset.Ref{
		ID:              d.PublicID(),
		Name:            d.Name,
		Path:            d.FilePath,
		PromptColumn:    d.PromptColumn,
		ReferenceColumn: d.ReferenceColumn,
	}
}

// ApplyLayout copies an inspected layout onto the record.
func (d *Dataset) ApplyLayout(l dataset.Layout) {
	d.RowCount = l.RowCount
	d.ColumnCount = l.ColumnCount
	d.Columns = l.Headers
	d.FormatValidated = l.Valid
	if d.PromptColumn == "" {
		d.PromptColumn = l.PromptColumn
	}
	if d.ReferenceColumn == "" {
		d.ReferenceColumn = l.ReferenceColumn
	}
}

// CreateDataset inserts a dataset record and returns its ID.
func (s *Store) CreateDataset(ctx context.Context, d Dataset) (int64, error) {
	if strings.TrimSpace(d.Name) == "" || d.FilePath == "" {
		return 0, fmt.Errorf("store: dataset needs a name and a file")
	}
	cols, err := json.Marshal(d.Columns)
	if err != nil {
		return 0, fmt.Errorf("encoding columns: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO user_datasets (user_id, name, description, filename, file_path, file_size,
			row_count, column_count, columns_info, format_validated, prompt_column, reference_column, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, d.UserID, d.Name, d.Description, d.Filename, d.FilePath, d.FileSize,
		d.RowCount, d.ColumnCount, string(cols), d.FormatValidated,
		d.PromptColumn, d.ReferenceColumn, d.IsActive)
	if err != nil {
		return 0, fmt.Errorf("inserting dataset: %w", err)
	}
	return res.LastInsertId()
}

const datasetColumns = `id, user_id, name, description, filename, file_path, file_size, row_count,
	column_count, columns_info, format_validated, prompt_column, reference_column, is_active, created_at`

func scanDataset(row interface{ Scan(...any) error }) (Dataset, error) {
	var d Dataset
	var desc, cols, promptCol, refCol sql.NullString
	err := row.Scan(&d.ID, &d.UserID, &d.Name, &desc, &d.Filename, &d.FilePath, &d.FileSize,
		&d.RowCount, &d.ColumnCount, &cols, &d.FormatValidated, &promptCol, &refCol,
		&d.IsActive, &d.CreatedAt)
	if err != nil {
		return d, err
	}
	d.Description = desc.String
	d.PromptColumn = promptCol.String
	d.ReferenceColumn = refCol.String
	if cols.Valid && cols.String != "" {
		if err := json.Unmarshal([]byte(cols.String), &d.Columns); err != nil {
			return d, fmt.Errorf("decoding columns of dataset %d: %w", d.ID, err)
		}
	}
	return d, nil
}

// GetDataset returns one dataset owned by userID.
func (s *Store) GetDataset(ctx context.Context, userID, id int64) (*Dataset, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+datasetColumns+" FROM user_datasets WHERE id = ? AND user_id = ?", id, userID)
	d, err := scanDataset(row)
	if err != nil {
		return nil, notFound(err)
	}
	return &d, nil
}

// ListDatasets returns the user's datasets in upload order.
func (s *Store) ListDatasets(ctx context.Context, userID int64) ([]Dataset, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+datasetColumns+" FROM user_datasets WHERE user_id = ? ORDER BY id", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Dataset
	for rows.Next() {
		d, err := scanDataset(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// DeleteDataset removes the record and returns it so the caller can remove
// the stored file.
func (s *Store) DeleteDataset(ctx context.Context, userID, id int64) (*Dataset, error) {
	d, err := s.GetDataset(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if err := s.deleteOwned(ctx, "user_datasets", userID, id); err != nil {
		return nil, err
	}
	return d, nil
}
