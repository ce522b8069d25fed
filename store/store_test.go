//go:build cgo

package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/brunobiangulo/modelarena/dataset"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// ---------------------------------------------------------------------------
// Schema / construction
// ---------------------------------------------------------------------------

func TestNew(t *testing.T) {
	s := newTestStore(t)
	if s.DB() == nil {
		t.Fatal("expected non-nil *sql.DB")
	}
	v, err := s.SchemaVersion(context.Background())
	if err != nil {
		t.Fatalf("SchemaVersion: %v", err)
	}
	if v != migrations[len(migrations)-1].version {
		t.Errorf("schema version = %d, want %d", v, migrations[len(migrations)-1].version)
	}
}

func TestNewCreatesParentDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "sub", "dir")
	s, err := New(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("creating store in nested dir: %v", err)
	}
	s.Close()
}

func TestMigrateIsIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	s.Close()

	s, err = New(dbPath)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	defer s.Close()

	var n int
	if err := s.DB().QueryRow("SELECT COUNT(*) FROM schema_version").Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != len(migrations) {
		t.Errorf("schema_version rows = %d, want %d", n, len(migrations))
	}
}

// ---------------------------------------------------------------------------
// Integrations and models
// ---------------------------------------------------------------------------

func seedModel(t *testing.T, s *Store, userID int64, active, integActive bool) (integID, modelID int64) {
	t.Helper()
	ctx := context.Background()
	integID, err := s.CreateIntegration(ctx, Integration{
		UserID:   userID,
		Name:     "local",
		APIURL:   "http://localhost:1234/v1/",
		APIKey:   "sk-test",
		IsActive: integActive,
	})
	if err != nil {
		t.Fatalf("CreateIntegration: %v", err)
	}
	modelID, err = s.CreateModel(ctx, Model{
		UserID:        userID,
		IntegrationID: &integID,
		Name:          "Qwen 7B",
		ModelName:     "qwen2.5-7b-instruct",
		Provider:      "lmstudio",
		IsActive:      active,
	})
	if err != nil {
		t.Fatalf("CreateModel: %v", err)
	}
	return integID, modelID
}

func TestIntegrationCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	integID, _ := seedModel(t, s, 1, true, true)

	got, err := s.GetIntegration(ctx, 1, integID)
	if err != nil {
		t.Fatalf("GetIntegration: %v", err)
	}
	if got.APIURL != "http://localhost:1234/v1" {
		t.Errorf("api url = %q, want trailing slash trimmed", got.APIURL)
	}
	if !got.HasKey() {
		t.Error("expected stored key")
	}
	if got.ModelsCount != 1 {
		t.Errorf("models count = %d, want 1", got.ModelsCount)
	}

	list, err := s.ListIntegrations(ctx, 1)
	if err != nil || len(list) != 1 {
		t.Fatalf("ListIntegrations = %d, %v", len(list), err)
	}

	if _, err := s.GetIntegration(ctx, 2, integID); !errors.Is(err, ErrNotFound) {
		t.Errorf("other user's integration: err = %v, want ErrNotFound", err)
	}
	if err := s.DeleteIntegration(ctx, 2, integID); !errors.Is(err, ErrNotFound) {
		t.Errorf("deleting other user's integration: err = %v", err)
	}
	if err := s.DeleteIntegration(ctx, 1, integID); err != nil {
		t.Fatalf("DeleteIntegration: %v", err)
	}
	if _, err := s.GetIntegration(ctx, 1, integID); !errors.Is(err, ErrNotFound) {
		t.Errorf("deleted integration: err = %v", err)
	}
}

func TestCreateIntegrationValidation(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.CreateIntegration(context.Background(), Integration{UserID: 1, Name: "x"}); err == nil {
		t.Fatal("expected error for missing api url")
	}
}

func TestCreateModelForeignIntegration(t *testing.T) {
	s := newTestStore(t)
	integID, _ := seedModel(t, s, 1, true, true)
	_, err := s.CreateModel(context.Background(), Model{UserID: 2, Name: "m", IntegrationID: &integID})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestModelCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, modelID := seedModel(t, s, 1, true, true)

	m, err := s.GetModel(ctx, 1, modelID)
	if err != nil {
		t.Fatalf("GetModel: %v", err)
	}
	if m.PublicID() != "custom_1" {
		t.Errorf("public id = %q", m.PublicID())
	}
	if m.Color != "#808080" {
		t.Errorf("default color = %q", m.Color)
	}

	list, err := s.ListModels(ctx, 1)
	if err != nil || len(list) != 1 {
		t.Fatalf("ListModels = %d, %v", len(list), err)
	}
	if other, _ := s.ListModels(ctx, 2); len(other) != 0 {
		t.Errorf("other user sees %d models", len(other))
	}

	if err := s.DeleteModel(ctx, 1, modelID); err != nil {
		t.Fatalf("DeleteModel: %v", err)
	}
	if _, err := s.GetModel(ctx, 1, modelID); !errors.Is(err, ErrNotFound) {
		t.Errorf("deleted model: err = %v", err)
	}
}

func TestResolveEndpoint(t *testing.T) {
	tests := []struct {
		name        string
		active      bool
		integActive bool
		wantErr     error
	}{
		{"active", true, true, nil},
		{"inactive model", false, true, ErrInactive},
		{"inactive integration", true, false, ErrInactive},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(t)
			_, modelID := seedModel(t, s, 1, tt.active, tt.integActive)

			ep, err := s.ResolveEndpoint(context.Background(), 1, modelID)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ResolveEndpoint: %v", err)
			}
			if ep.ID != "custom_1" || ep.DisplayName != "Qwen 7B" {
				t.Errorf("endpoint = %+v", ep)
			}
			if ep.ModelName() != "qwen2.5-7b-instruct" {
				t.Errorf("model name = %q", ep.ModelName())
			}
			if ep.BaseURL != "http://localhost:1234/v1" || ep.APIKey != "sk-test" {
				t.Errorf("endpoint api = %q / %q", ep.BaseURL, ep.APIKey)
			}
			if !ep.HasAPI() {
				t.Error("expected HasAPI")
			}
		})
	}
}

func TestResolveEndpointAfterIntegrationDeleted(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	integID, modelID := seedModel(t, s, 1, true, true)
	if err := s.DeleteIntegration(ctx, 1, integID); err != nil {
		t.Fatal(err)
	}

	// ON DELETE SET NULL keeps the model, but it has nowhere to send requests.
	ep, err := s.ResolveEndpoint(ctx, 1, modelID)
	if err != nil {
		t.Fatalf("ResolveEndpoint: %v", err)
	}
	if ep.HasAPI() {
		t.Errorf("expected endpoint without API, got %q", ep.BaseURL)
	}
}

func TestResolveEndpointOtherUser(t *testing.T) {
	s := newTestStore(t)
	_, modelID := seedModel(t, s, 1, true, true)
	if _, err := s.ResolveEndpoint(context.Background(), 2, modelID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

// ---------------------------------------------------------------------------
// Datasets
// ---------------------------------------------------------------------------

func TestDatasetCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	d := Dataset{
		UserID:   1,
		Name:     "qa",
		Filename: "qa.csv",
		FilePath: "/data/1/qa.csv",
		FileSize: 120,
		IsActive: true,
	}
	d.ApplyLayout(dataset.Layout{
		Headers:         []string{"question", "answer"},
		RowCount:        3,
		ColumnCount:     2,
		PromptColumn:    "question",
		ReferenceColumn: "answer",
		Valid:           true,
	})
	id, err := s.CreateDataset(ctx, d)
	if err != nil {
		t.Fatalf("CreateDataset: %v", err)
	}

	got, err := s.GetDataset(ctx, 1, id)
	if err != nil {
		t.Fatalf("GetDataset: %v", err)
	}
	if len(got.Columns) != 2 || got.Columns[1] != "answer" {
		t.Errorf("columns = %v", got.Columns)
	}
	if !got.FormatValidated || got.RowCount != 3 {
		t.Errorf("layout not stored: %+v", got)
	}

	ref := got.Ref()
	if ref.ID != "dataset_1" || ref.Path != "/data/1/qa.csv" || ref.ReferenceColumn != "answer" {
		t.Errorf("ref = %+v", ref)
	}

	if _, err := s.GetDataset(ctx, 2, id); !errors.Is(err, ErrNotFound) {
		t.Errorf("other user's dataset: err = %v", err)
	}

	removed, err := s.DeleteDataset(ctx, 1, id)
	if err != nil {
		t.Fatalf("DeleteDataset: %v", err)
	}
	if removed.FilePath != "/data/1/qa.csv" {
		t.Errorf("removed path = %q", removed.FilePath)
	}
	if list, _ := s.ListDatasets(ctx, 1); len(list) != 0 {
		t.Errorf("datasets after delete = %d", len(list))
	}
}

func TestApplyLayoutKeepsOverrides(t *testing.T) {
	d := Dataset{PromptColumn: "text"}
	d.ApplyLayout(dataset.Layout{PromptColumn: "question", ReferenceColumn: "answer"})
	if d.PromptColumn != "text" || d.ReferenceColumn != "answer" {
		t.Errorf("columns = %q / %q", d.PromptColumn, d.ReferenceColumn)
	}
}

// ---------------------------------------------------------------------------
// Settings
// ---------------------------------------------------------------------------

func TestJudgeModel(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if id, err := s.JudgeModel(ctx, 1); err != nil || id != 0 {
		t.Fatalf("unset judge = %d, %v", id, err)
	}

	_, modelID := seedModel(t, s, 1, true, true)
	if err := s.SetJudgeModel(ctx, 1, modelID); err != nil {
		t.Fatalf("SetJudgeModel: %v", err)
	}
	if id, _ := s.JudgeModel(ctx, 1); id != modelID {
		t.Errorf("judge = %d, want %d", id, modelID)
	}

	if err := s.SetJudgeModel(ctx, 2, modelID); !errors.Is(err, ErrNotFound) {
		t.Errorf("foreign judge: err = %v", err)
	}

	// Deleting the model clears the setting.
	if err := s.DeleteModel(ctx, 1, modelID); err != nil {
		t.Fatal(err)
	}
	if id, _ := s.JudgeModel(ctx, 1); id != 0 {
		t.Errorf("judge after delete = %d, want 0", id)
	}
}

// ---------------------------------------------------------------------------
// Blind sessions
// ---------------------------------------------------------------------------

func TestBlindSessions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SaveBlindSession(ctx, 1, "abc", []byte(`{"v":1}`)); err != nil {
		t.Fatalf("SaveBlindSession: %v", err)
	}
	if err := s.SaveBlindSession(ctx, 1, "abc", []byte(`{"v":2}`)); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	got, err := s.LoadBlindSession(ctx, 1, "abc")
	if err != nil {
		t.Fatalf("LoadBlindSession: %v", err)
	}
	if string(got) != `{"v":2}` {
		t.Errorf("payload = %s", got)
	}

	if _, err := s.LoadBlindSession(ctx, 2, "abc"); !errors.Is(err, ErrNotFound) {
		t.Errorf("other user load: err = %v", err)
	}
	if err := s.SaveBlindSession(ctx, 2, "abc", []byte(`{}`)); !errors.Is(err, ErrNotFound) {
		t.Errorf("other user save: err = %v", err)
	}
	if got, _ := s.LoadBlindSession(ctx, 1, "abc"); string(got) != `{"v":2}` {
		t.Errorf("payload changed by other user: %s", got)
	}

	if err := s.DeleteBlindSession(ctx, 1, "abc"); err != nil {
		t.Fatalf("DeleteBlindSession: %v", err)
	}
	if _, err := s.LoadBlindSession(ctx, 1, "abc"); !errors.Is(err, ErrNotFound) {
		t.Errorf("deleted session: err = %v", err)
	}
}

func TestUpdateBlindSession(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SaveBlindSession(ctx, 1, "abc", []byte(`{"v":1}`)); err != nil {
		t.Fatalf("SaveBlindSession: %v", err)
	}

	err := s.UpdateBlindSession(ctx, 1, "abc", func(old []byte) ([]byte, error) {
		if string(old) != `{"v":1}` {
			t.Errorf("fn got %s", old)
		}
		return []byte(`{"v":2}`), nil
	})
	if err != nil {
		t.Fatalf("UpdateBlindSession: %v", err)
	}
	if got, _ := s.LoadBlindSession(ctx, 1, "abc"); string(got) != `{"v":2}` {
		t.Errorf("payload = %s, want v2", got)
	}

	errRejected := errors.New("rejected")
	err = s.UpdateBlindSession(ctx, 1, "abc", func([]byte) ([]byte, error) {
		return nil, errRejected
	})
	if !errors.Is(err, errRejected) {
		t.Errorf("fn error: err = %v", err)
	}
	if got, _ := s.LoadBlindSession(ctx, 1, "abc"); string(got) != `{"v":2}` {
		t.Errorf("payload changed after fn error: %s", got)
	}

	err = s.UpdateBlindSession(ctx, 2, "abc", func(b []byte) ([]byte, error) { return b, nil })
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("other user: err = %v", err)
	}
}

func TestUpdateBlindSessionKeepsInterleavedWrite(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SaveBlindSession(ctx, 1, "abc", []byte(`{"v":1}`)); err != nil {
		t.Fatalf("SaveBlindSession: %v", err)
	}

	err := s.UpdateBlindSession(ctx, 1, "abc", func([]byte) ([]byte, error) {
		// Another writer lands between the read and the write.
		if err := s.SaveBlindSession(ctx, 1, "abc", []byte(`{"v":"other"}`)); err != nil {
			t.Errorf("interleaved save: %v", err)
		}
		return []byte(`{"v":"stale"}`), nil
	})
	if err == nil {
		t.Error("expected the stale update to fail")
	}
	if got, _ := s.LoadBlindSession(ctx, 1, "abc"); string(got) != `{"v":"other"}` {
		t.Errorf("payload = %s, want the interleaved write", got)
	}
}
