package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/brunobiangulo/modelarena/llm"
)

// ModelIDPrefix prefixes a model's numeric id in its public id.
const ModelIDPrefix = "custom_"

// Model is a named model served through an integration.
type Model struct {
	ID            int64  `json:"-"`
	UserID        int64  `json:"-"`
	IntegrationID *int64 `json:"integration_id,omitempty"`
	Name          string `json:"name"`
	// ModelName is sent as the request's model field; Name is used when empty.
	ModelName   string `json:"model_name,omitempty"`
	Provider    string `json:"provider"`
	Description string `json:"description,omitempty"`
	Color       string `json:"color"`
	IsActive    bool   `json:"is_active"`
	CreatedAt   string `json:"created_at"`
}

// PublicID returns the id the frontend uses for the model.
func (m Model) PublicID() string {
	return fmt.Sprintf("%s%d", ModelIDPrefix, m.ID)
}

// MarshalJSON exposes the public id in place of the row id.
func (m Model) MarshalJSON() ([]byte, error) {
	type plain Model
	return json.Marshal(struct {
		ID string `json:"id"`
		plain
	}{m.PublicID(), plain(m)})
}

// CreateModel inserts a model and returns its ID. The integration, when
// given, must belong to the same user.
func (s *Store) CreateModel(ctx context.Context, m Model) (int64, error) {
	if strings.TrimSpace(m.Name) == "" {
		return 0, fmt.Errorf("store: model needs a name")
	}
	if m.IntegrationID != nil {
		if _, err := s.GetIntegration(ctx, m.UserID, *m.IntegrationID); err != nil {
			return 0, fmt.Errorf("model integration %d: %w", *m.IntegrationID, err)
		}
	}
	if m.Color == "" {
		m.Color = "#808080"
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO user_models (user_id, integration_id, name, model_name, provider, description, color, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, m.UserID, nullInt(m.IntegrationID), m.Name, m.ModelName, m.Provider, m.Description, m.Color, m.IsActive)
	if err != nil {
		return 0, fmt.Errorf("inserting model: %w", err)
	}
	return res.LastInsertId()
}

const modelColumns = `id, user_id, integration_id, name, model_name, provider, description, color, is_active, created_at`

func scanModel(row interface{ Scan(...any) error }) (Model, error) {
	var m Model
	var integ sql.NullInt64
	var desc sql.NullString
	err := row.Scan(&m.ID, &m.UserID, &integ, &m.Name, &m.ModelName, &m.Provider,
		&desc, &m.Color, &m.IsActive, &m.CreatedAt)
	m.IntegrationID = intPtr(integ)
	m.Description = desc.String
	return m, err
}

// GetModel returns one model owned by userID.
func (s *Store) GetModel(ctx context.Context, userID, id int64) (*Model, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+modelColumns+" FROM user_models WHERE id = ? AND user_id = ?", id, userID)
	m, err := scanModel(row)
	if err != nil {
		return nil, notFound(err)
	}
	return &m, nil
}

// ListModels returns the user's models in creation order.
func (s *Store) ListModels(ctx context.Context, userID int64) ([]Model, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+modelColumns+" FROM user_models WHERE user_id = ? ORDER BY id", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Model
	for rows.Next() {
		m, err := scanModel(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// DeleteModel removes a model. A judge setting pointing at it is cleared.
func (s *Store) DeleteModel(ctx context.Context, userID, id int64) error {
	return s.deleteOwned(ctx, "user_models", userID, id)
}

// ResolveEndpoint builds the callable endpoint for a model. The model and
// its integration must both be active; a model without an integration
// resolves to an endpoint with no API.
func (s *Store) ResolveEndpoint(ctx context.Context, userID, modelID int64) (llm.Endpoint, error) {
	m, err := s.GetModel(ctx, userID, modelID)
	if err != nil {
		return llm.Endpoint{}, err
	}
	if !m.IsActive {
		return llm.Endpoint{}, fmt.Errorf("model %s: %w", m.PublicID(), ErrInactive)
	}

	ep := llm.Endpoint{
		ID:          m.PublicID(),
		DisplayName: m.Name,
		Model:       m.ModelName,
		Provider:    m.Provider,
	}
	if m.IntegrationID == nil {
		return ep, nil
	}

	in, err := s.GetIntegration(ctx, userID, *m.IntegrationID)
	if err != nil {
		return llm.Endpoint{}, fmt.Errorf("model %s integration: %w", m.PublicID(), err)
	}
	if !in.IsActive {
		return llm.Endpoint{}, fmt.Errorf("integration %q: %w", in.Name, ErrInactive)
	}
	ep.BaseURL = in.APIURL
	ep.APIKey = in.APIKey
	return ep, nil
}
