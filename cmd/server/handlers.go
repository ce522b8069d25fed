package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/brunobiangulo/modelarena"
	"github.com/brunobiangulo/modelarena/benchmark"
	"github.com/brunobiangulo/modelarena/dataset"
	"github.com/brunobiangulo/modelarena/store"
)

const maxUploadBytes = 50 << 20

type handler struct {
	engine modelarena.Engine
}

func newHandler(e modelarena.Engine) *handler {
	return &handler{engine: e}
}

// POST /api/run-benchmark
func (h *handler) handleRunBenchmark(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 60*time.Minute)
	defer cancel()

	var req modelarena.RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	res, err := h.engine.Run(ctx, userFrom(ctx), req)
	if err != nil {
		writeEngineError(w, "run benchmark", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// POST /api/blind-test/vote
func (h *handler) handleVote(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TestID   string `json:"testId"`
		PromptID string `json:"promptId"`
		Position string `json:"position"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TestID == "" || req.PromptID == "" {
		writeError(w, http.StatusBadRequest, "invalid request: expected testId, promptId and position")
		return
	}

	bt, err := h.engine.RecordVote(r.Context(), userFrom(r.Context()), req.TestID, req.PromptID, req.Position)
	if err != nil {
		writeEngineError(w, "vote", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"testData": bt,
	})
}

// POST /api/blind-test/reveal
func (h *handler) handleReveal(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TestID string `json:"testId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TestID == "" {
		writeError(w, http.StatusBadRequest, "invalid request: expected testId")
		return
	}

	bt, err := h.engine.Reveal(r.Context(), userFrom(r.Context()), req.TestID)
	if err != nil {
		writeEngineError(w, "reveal", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"testData": bt,
	})
}

// GET /api/benchmarks
func (h *handler) handleBenchmarks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"benchmarks": h.engine.Benchmarks(),
	})
}

// GET /api/integrations
func (h *handler) handleListIntegrations(w http.ResponseWriter, r *http.Request) {
	list, err := h.engine.ListIntegrations(r.Context(), userFrom(r.Context()))
	if err != nil {
		writeEngineError(w, "list integrations", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"integrations": nonNil(list)})
}

// POST /api/integrations
func (h *handler) handleCreateIntegration(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string `json:"name"`
		APIURL      string `json:"api_url"`
		APIKey      string `json:"api_key"`
		Description string `json:"description"`
		IsActive    *bool  `json:"is_active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	in, err := h.engine.CreateIntegration(r.Context(), userFrom(r.Context()), store.Integration{
		Name:        req.Name,
		APIURL:      req.APIURL,
		APIKey:      req.APIKey,
		Description: req.Description,
		IsActive:    req.IsActive == nil || *req.IsActive,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, in)
}

// DELETE /api/integrations/{id}
func (h *handler) handleDeleteIntegration(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.DeleteIntegration(r.Context(), userFrom(r.Context()), r.PathValue("id")); err != nil {
		writeEngineError(w, "delete integration", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// GET /api/models
func (h *handler) handleListModels(w http.ResponseWriter, r *http.Request) {
	list, err := h.engine.ListModels(r.Context(), userFrom(r.Context()))
	if err != nil {
		writeEngineError(w, "list models", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"models": nonNil(list)})
}

// POST /api/models
func (h *handler) handleCreateModel(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name          string `json:"name"`
		ModelName     string `json:"model_name"`
		Provider      string `json:"provider"`
		Description   string `json:"description"`
		Color         string `json:"color"`
		IntegrationID *int64 `json:"integration_id"`
		IsActive      *bool  `json:"is_active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	m, err := h.engine.CreateModel(r.Context(), userFrom(r.Context()), store.Model{
		IntegrationID: req.IntegrationID,
		Name:          req.Name,
		ModelName:     req.ModelName,
		Provider:      req.Provider,
		Description:   req.Description,
		Color:         req.Color,
		IsActive:      req.IsActive == nil || *req.IsActive,
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusBadRequest, "unknown integration")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

// DELETE /api/models/{id}
func (h *handler) handleDeleteModel(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.DeleteModel(r.Context(), userFrom(r.Context()), r.PathValue("id")); err != nil {
		writeEngineError(w, "delete model", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// POST /api/models/{id}/test
func (h *handler) handleTestModel(w http.ResponseWriter, r *http.Request) {
	res, err := h.engine.TestModel(r.Context(), userFrom(r.Context()), r.PathValue("id"))
	if err != nil {
		writeEngineError(w, "test model", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// GET /api/datasets
func (h *handler) handleListDatasets(w http.ResponseWriter, r *http.Request) {
	list, err := h.engine.ListDatasets(r.Context(), userFrom(r.Context()))
	if err != nil {
		writeEngineError(w, "list datasets", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"datasets": nonNil(list)})
}

// POST /api/datasets
// Accepts a multipart upload with a "file" part and optional name,
// description, prompt_column and reference_column fields.
func (h *handler) handleUploadDataset(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request: expected multipart file upload")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file")
		return
	}
	defer file.Close()

	d, err := h.engine.UploadDataset(r.Context(), userFrom(r.Context()), modelarena.DatasetUpload{
		Name:            r.FormValue("name"),
		Description:     r.FormValue("description"),
		Filename:        filepath.Base(header.Filename),
		PromptColumn:    r.FormValue("prompt_column"),
		ReferenceColumn: r.FormValue("reference_column"),
	}, file)
	if err != nil {
		writeEngineError(w, "upload dataset", err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

// DELETE /api/datasets/{id}
func (h *handler) handleDeleteDataset(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.DeleteDataset(r.Context(), userFrom(r.Context()), r.PathValue("id")); err != nil {
		writeEngineError(w, "delete dataset", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// GET /api/judge-model
func (h *handler) handleGetJudgeModel(w http.ResponseWriter, r *http.Request) {
	m, err := h.engine.JudgeModel(r.Context(), userFrom(r.Context()))
	if err != nil {
		writeEngineError(w, "get judge model", err)
		return
	}
	if m == nil {
		writeJSON(w, http.StatusOK, map[string]any{"judgeModel": nil})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"judgeModel": map[string]string{"id": m.PublicID(), "name": m.Name},
	})
}

// PUT /api/judge-model
func (h *handler) handleSetJudgeModel(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ModelID string `json:"modelId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request: expected modelId")
		return
	}
	if err := h.engine.SetJudgeModel(r.Context(), userFrom(r.Context()), req.ModelID); err != nil {
		writeEngineError(w, "set judge model", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GET /health
func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// statusFor maps engine errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, modelarena.ErrModelNotFound),
		errors.Is(err, modelarena.ErrDatasetNotFound),
		errors.Is(err, modelarena.ErrBlindTestNotFound),
		errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, benchmark.ErrValidation),
		errors.Is(err, modelarena.ErrJudgeNotConfigured),
		errors.Is(err, modelarena.ErrInvalidID),
		errors.Is(err, modelarena.ErrUnsupportedFormat),
		errors.Is(err, dataset.ErrNoPromptsFound),
		errors.Is(err, dataset.ErrNoReferencePrompts),
		errors.Is(err, benchmark.ErrPromptNotFound),
		errors.Is(err, benchmark.ErrInvalidPosition):
		return http.StatusBadRequest
	case errors.Is(err, benchmark.ErrAlreadyVoted),
		errors.Is(err, store.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// writeEngineError reports client errors verbatim and hides internal ones.
func writeEngineError(w http.ResponseWriter, op string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error(op+" error", "error", err)
		writeError(w, status, op+" failed")
		return
	}
	slog.Warn(op+" rejected", "status", status, "error", err)
	writeError(w, status, err.Error())
}

// nonNil keeps empty lists encoded as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
