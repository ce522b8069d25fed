package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Integration is an OpenAI-compatible API a user registered.
type Integration struct {
	ID          int64  `json:"id"`
	UserID      int64  `json:"-"`
	Name        string `json:"name"`
	APIURL      string `json:"api_url"`
	APIKey      string `json:"-"`
	Description string `json:"description,omitempty"`
	IsActive    bool   `json:"is_active"`
	CreatedAt   string `json:"created_at"`
	ModelsCount int    `json:"models_count"`
}

// HasKey reports whether an API key is stored, without exposing it.
func (i Integration) HasKey() bool {
	return i.APIKey != ""
}

// CreateIntegration inserts an integration and returns its ID.
func (s *Store) CreateIntegration(ctx context.Context, in Integration) (int64, error) {
	if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.APIURL) == "" {
		return 0, fmt.Errorf("store: integration needs a name and an api url")
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO api_integrations (user_id, name, api_url, api_key, description, is_active)
		VALUES (?, ?, ?, ?, ?, ?)
	`, in.UserID, in.Name, strings.TrimRight(in.APIURL, "/"), in.APIKey, in.Description, in.IsActive)
	if err != nil {
		return 0, fmt.Errorf("inserting integration: %w", err)
	}
	return res.LastInsertId()
}

const integrationColumns = `
	i.id, i.user_id, i.name, i.api_url, i.api_key, i.description, i.is_active, i.created_at,
	(SELECT COUNT(*) FROM user_models m WHERE m.integration_id = i.id)`

func scanIntegration(row interface{ Scan(...any) error }) (Integration, error) {
	var in Integration
	var desc sql.NullString
	err := row.Scan(&in.ID, &in.UserID, &in.Name, &in.APIURL, &in.APIKey,
		&desc, &in.IsActive, &in.CreatedAt, &in.ModelsCount)
	in.Description = desc.String
	return in, err
}

// GetIntegration returns one integration owned by userID.
func (s *Store) GetIntegration(ctx context.Context, userID, id int64) (*Integration, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+integrationColumns+" FROM api_integrations i WHERE i.id = ? AND i.user_id = ?",
		id, userID)
	in, err := scanIntegration(row)
	if err != nil {
		return nil, notFound(err)
	}
	return &in, nil
}

// ListIntegrations returns the user's integrations, newest first.
func (s *Store) ListIntegrations(ctx context.Context, userID int64) ([]Integration, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+integrationColumns+" FROM api_integrations i WHERE i.user_id = ? ORDER BY i.id DESC",
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Integration
	for rows.Next() {
		in, err := scanIntegration(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

// SetIntegrationActive enables or disables an integration.
func (s *Store) SetIntegrationActive(ctx context.Context, userID, id int64, active bool) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE api_integrations SET is_active = ? WHERE id = ? AND user_id = ?",
		active, id, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteIntegration removes an integration. Models that used it are kept
// with a NULL integration and can no longer be resolved.
func (s *Store) DeleteIntegration(ctx context.Context, userID, id int64) error {
	return s.deleteOwned(ctx, "api_integrations", userID, id)
}
