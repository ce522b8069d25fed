package modelarena

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/brunobiangulo/modelarena/benchmark"
	"github.com/brunobiangulo/modelarena/dataset"
	"github.com/brunobiangulo/modelarena/llm"
	"github.com/brunobiangulo/modelarena/metrics"
	"github.com/brunobiangulo/modelarena/store"
)

// Engine is the main entry point for running model comparisons on behalf
// of a user. Every call is scoped to userID.
type Engine interface {
	// Run resolves the selected models, datasets and judge and executes
	// the benchmark. Blind tests are persisted and returned masked.
	Run(ctx context.Context, userID int64, req RunRequest) (*benchmark.Result, error)

	// RecordVote records a vote in a stored blind test.
	RecordVote(ctx context.Context, userID int64, testID, promptID, position string) (*benchmark.BlindTestResult, error)

	// Reveal unmasks a stored blind test.
	Reveal(ctx context.Context, userID int64, testID string) (*benchmark.BlindTestResult, error)

	// Benchmarks lists the available procedures.
	Benchmarks() []benchmark.Info

	CreateIntegration(ctx context.Context, userID int64, in store.Integration) (*store.Integration, error)
	ListIntegrations(ctx context.Context, userID int64) ([]store.Integration, error)
	DeleteIntegration(ctx context.Context, userID int64, id string) error

	CreateModel(ctx context.Context, userID int64, m store.Model) (*store.Model, error)
	ListModels(ctx context.Context, userID int64) ([]store.Model, error)
	DeleteModel(ctx context.Context, userID int64, id string) error
	// TestModel sends a short test prompt to the model's endpoint.
	TestModel(ctx context.Context, userID int64, id string) (*llm.ConnectionResult, error)

	// UploadDataset stores a CSV or XLSX file and records its layout.
	UploadDataset(ctx context.Context, userID int64, up DatasetUpload, r io.Reader) (*store.Dataset, error)
	ListDatasets(ctx context.Context, userID int64) ([]store.Dataset, error)
	DeleteDataset(ctx context.Context, userID int64, id string) error

	SetJudgeModel(ctx context.Context, userID int64, id string) error
	// JudgeModel returns the configured judge, or nil when none is set.
	JudgeModel(ctx context.Context, userID int64) (*store.Model, error)

	// Store returns the underlying store for diagnostic access.
	Store() *store.Store

	// Close cleanly shuts down the engine.
	Close() error
}

// RunRequest is the JSON body of a benchmark run.
type RunRequest struct {
	SelectedModels     []string                `json:"selectedModels"`
	SelectedBenchmarks []string                `json:"selectedBenchmarks"`
	SelectedDatasets   []string                `json:"selectedDatasets"`
	Metrics            map[string]MetricWeight `json:"metrics,omitempty"`
	// JudgeModelID overrides the user's stored judge model.
	JudgeModelID string `json:"judgeModelId,omitempty"`
}

// MetricWeight is the weight of one similarity metric.
type MetricWeight struct {
	Weight float64 `json:"weight"`
}

// DatasetUpload describes an uploaded dataset file.
type DatasetUpload struct {
	Name            string `json:"name"`
	Description     string `json:"description,omitempty"`
	Filename        string `json:"filename"`
	PromptColumn    string `json:"prompt_column,omitempty"`
	ReferenceColumn string `json:"reference_column,omitempty"`
}

// Option customises an engine.
type Option func(*engine)

// WithRand sets the randomness source for model pairing and shuffling.
func WithRand(r benchmark.Rand) Option {
	return func(e *engine) { e.rand = r }
}

// WithPhaseHook observes the phases of every run.
func WithPhaseHook(h benchmark.PhaseHook) Option {
	return func(e *engine) { e.hook = h }
}

type engine struct {
	cfg     Config
	store   *store.Store
	client  *llm.Client
	orch    *benchmark.Orchestrator
	dataDir string
	rand    benchmark.Rand
	hook    benchmark.PhaseHook

	// blindMu serialises blind test updates.
	blindMu sync.Mutex
}

// New creates a new arena engine with the given configuration.
func New(cfg Config, opts ...Option) (Engine, error) {
	dbPath := cfg.resolveDBPath()

	s, err := store.New(dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	e := &engine{
		cfg:     cfg,
		store:   s,
		client:  llm.NewClient(cfg.Client.clientConfig()),
		dataDir: cfg.resolveDataDir(),
	}
	for _, o := range opts {
		o(e)
	}

	var orchOpts []benchmark.Option
	if e.rand != nil {
		orchOpts = append(orchOpts, benchmark.WithRand(e.rand))
	}
	if e.hook != nil {
		orchOpts = append(orchOpts, benchmark.WithPhaseHook(e.hook))
	}
	e.orch = newOrchestrator(e.client, cfg, orchOpts...)

	slog.Info("modelarena: engine ready", "db", dbPath, "data_dir", e.dataDir)
	return e, nil
}

// NewOrchestrator builds an orchestrator that reads dataset files directly
// and calls endpoints over HTTP, with no store behind it.
func NewOrchestrator(cfg Config, opts ...benchmark.Option) *benchmark.Orchestrator {
	return newOrchestrator(llm.NewClient(cfg.Client.clientConfig()), cfg, opts...)
}

func newOrchestrator(caller llm.Caller, cfg Config, opts ...benchmark.Option) *benchmark.Orchestrator {
	maxPer := cfg.Benchmark.MaxPromptsPerDataset
	if maxPer <= 0 {
		maxPer = dataset.DefaultMaxPerDataset
	}
	loader := dataset.NewLoader(dataset.WithMaxPerDataset(maxPer))
	return benchmark.New(caller, loader, cfg.Benchmark.orchestratorConfig(), opts...)
}

// Run resolves req and executes it.
func (e *engine) Run(ctx context.Context, userID int64, req RunRequest) (*benchmark.Result, error) {
	breq, err := e.buildRequest(ctx, userID, req)
	if err != nil {
		return nil, err
	}

	res, err := e.orch.Run(ctx, breq)
	if err != nil {
		return nil, err
	}

	if res.BlindTest != nil {
		if err := e.saveBlindTest(ctx, userID, res.BlindTest); err != nil {
			return nil, err
		}
		res.BlindTest = res.BlindTest.Masked()
	}
	return res, nil
}

// buildRequest turns frontend ids into a typed benchmark request.
func (e *engine) buildRequest(ctx context.Context, userID int64, req RunRequest) (benchmark.Request, error) {
	var breq benchmark.Request

	for _, id := range req.SelectedBenchmarks {
		k, err := benchmark.ParseKind(id)
		if err != nil {
			// Left for Validate to report.
			k = benchmark.Kind(id)
		}
		breq.Kinds = append(breq.Kinds, k)
	}

	for _, id := range req.SelectedModels {
		ep, err := e.resolveModel(ctx, userID, id)
		if err != nil {
			return breq, err
		}
		breq.Models = append(breq.Models, ep)
	}

	for _, id := range req.SelectedDatasets {
		n, err := parseID(id, store.DatasetIDPrefix)
		if err != nil {
			return breq, err
		}
		d, err := e.store.GetDataset(ctx, userID, n)
		if errors.Is(err, store.ErrNotFound) {
			return breq, fmt.Errorf("%w: %s", ErrDatasetNotFound, id)
		}
		if err != nil {
			return breq, fmt.Errorf("loading dataset %s: %w", id, err)
		}
		breq.Datasets = append(breq.Datasets, d.Ref())
	}

	if len(req.Metrics) > 0 {
		w := weightsFrom(req.Metrics)
		breq.Weights = &w
	}

	if !needsJudge(breq.Kinds) {
		return breq, nil
	}
	// A request that is already invalid reports that rather than a missing
	// judge.
	if err := breq.ValidateSelection(); err != nil {
		return breq, err
	}

	judgeID := req.JudgeModelID
	if judgeID == "" {
		n, err := e.store.JudgeModel(ctx, userID)
		if err != nil {
			return breq, fmt.Errorf("loading judge setting: %w", err)
		}
		if n == 0 {
			reason := &benchmark.ValidationError{Reason: "the selected benchmark requires a judge model; choose one in the settings"}
			return breq, fmt.Errorf("%w: %w", ErrJudgeNotConfigured, reason)
		}
		judgeID = strconv.FormatInt(n, 10)
	}
	ep, err := e.resolveModel(ctx, userID, judgeID)
	if err != nil {
		return breq, err
	}
	breq.Judge = &ep
	return breq, nil
}

// resolveModel returns the endpoint of a model id. A disabled model or
// integration yields an endpoint without API access, which request
// validation then reports.
func (e *engine) resolveModel(ctx context.Context, userID int64, id string) (llm.Endpoint, error) {
	n, err := parseID(id, store.ModelIDPrefix)
	if err != nil {
		return llm.Endpoint{}, err
	}
	ep, err := e.store.ResolveEndpoint(ctx, userID, n)
	switch {
	case err == nil:
		return ep, nil
	case errors.Is(err, store.ErrNotFound):
		return llm.Endpoint{}, fmt.Errorf("%w: %s", ErrModelNotFound, id)
	case errors.Is(err, store.ErrInactive):
		m, gerr := e.store.GetModel(ctx, userID, n)
		if gerr != nil {
			return llm.Endpoint{}, fmt.Errorf("%w: %s", ErrModelNotFound, id)
		}
		slog.Warn("modelarena: model has no active API", "model", m.PublicID(), "error", err)
		return llm.Endpoint{ID: m.PublicID(), DisplayName: m.Name, Provider: m.Provider}, nil
	default:
		return llm.Endpoint{}, fmt.Errorf("resolving model %s: %w", id, err)
	}
}

func needsJudge(kinds []benchmark.Kind) bool {
	for _, k := range kinds {
		if k.NeedsJudge() {
			return true
		}
	}
	return false
}

// weightsFrom maps frontend metric keys onto weights. Missing metrics keep
// their default weight.
func weightsFrom(m map[string]MetricWeight) metrics.Weights {
	w := metrics.DefaultWeights()
	for name, mw := range m {
		switch strings.ToLower(name) {
		case "rouge":
			w.Rouge = mw.Weight
		case "semantic":
			w.Semantic = mw.Weight
		case "bertscore", "bert_score":
			w.BertScore = mw.Weight
		}
	}
	return w
}

// parseID accepts "<prefix><n>" or a bare number.
func parseID(id, prefix string) (int64, error) {
	s := strings.TrimPrefix(strings.TrimSpace(id), prefix)
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return n, nil
}

// --- blind tests ---

func (e *engine) saveBlindTest(ctx context.Context, userID int64, bt *benchmark.BlindTestResult) error {
	payload, err := json.Marshal(bt)
	if err != nil {
		return fmt.Errorf("encoding blind test: %w", err)
	}
	if err := e.store.SaveBlindSession(ctx, userID, bt.ID, payload); err != nil {
		return fmt.Errorf("saving blind test %s: %w", bt.ID, err)
	}
	return nil
}

// updateBlindTest applies fn to a stored blind test and saves the result as
// one step. Updates through this engine are serialised; the store rejects a
// write that raced with another process.
func (e *engine) updateBlindTest(ctx context.Context, userID int64, testID string, fn func(*benchmark.BlindTestResult) error) (*benchmark.BlindTestResult, error) {
	e.blindMu.Lock()
	defer e.blindMu.Unlock()

	var bt benchmark.BlindTestResult
	err := e.store.UpdateBlindSession(ctx, userID, testID, func(payload []byte) ([]byte, error) {
		bt = benchmark.BlindTestResult{}
		if err := json.Unmarshal(payload, &bt); err != nil {
			return nil, fmt.Errorf("decoding blind test %s: %w", testID, err)
		}
		if err := fn(&bt); err != nil {
			return nil, err
		}
		return json.Marshal(&bt)
	})
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrBlindTestNotFound, testID)
	}
	if err != nil {
		return nil, err
	}
	return &bt, nil
}

// RecordVote records one vote and returns the masked test.
func (e *engine) RecordVote(ctx context.Context, userID int64, testID, promptID, position string) (*benchmark.BlindTestResult, error) {
	bt, err := e.updateBlindTest(ctx, userID, testID, func(bt *benchmark.BlindTestResult) error {
		return benchmark.RecordVote(bt, promptID, position)
	})
	if err != nil {
		return nil, err
	}
	slog.Info("modelarena: vote recorded",
		"test", testID,
		"prompt", promptID,
		"completed", bt.CompletedVotes,
		"total", bt.TotalPairs)
	return bt.Masked(), nil
}

// Reveal unmasks every pair of the test.
func (e *engine) Reveal(ctx context.Context, userID int64, testID string) (*benchmark.BlindTestResult, error) {
	return e.updateBlindTest(ctx, userID, testID, func(bt *benchmark.BlindTestResult) error {
		benchmark.Reveal(bt)
		return nil
	})
}

func (e *engine) Benchmarks() []benchmark.Info {
	return benchmark.Catalog()
}

// --- records ---

func (e *engine) CreateIntegration(ctx context.Context, userID int64, in store.Integration) (*store.Integration, error) {
	in.UserID = userID
	id, err := e.store.CreateIntegration(ctx, in)
	if err != nil {
		return nil, err
	}
	return e.store.GetIntegration(ctx, userID, id)
}

func (e *engine) ListIntegrations(ctx context.Context, userID int64) ([]store.Integration, error) {
	return e.store.ListIntegrations(ctx, userID)
}

func (e *engine) DeleteIntegration(ctx context.Context, userID int64, id string) error {
	n, err := parseID(id, "")
	if err != nil {
		return err
	}
	return e.store.DeleteIntegration(ctx, userID, n)
}

func (e *engine) CreateModel(ctx context.Context, userID int64, m store.Model) (*store.Model, error) {
	m.UserID = userID
	id, err := e.store.CreateModel(ctx, m)
	if err != nil {
		return nil, err
	}
	return e.store.GetModel(ctx, userID, id)
}

func (e *engine) ListModels(ctx context.Context, userID int64) ([]store.Model, error) {
	return e.store.ListModels(ctx, userID)
}

func (e *engine) DeleteModel(ctx context.Context, userID int64, id string) error {
	n, err := parseID(id, store.ModelIDPrefix)
	if err != nil {
		return err
	}
	if err := e.store.DeleteModel(ctx, userID, n); errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrModelNotFound, id)
	} else if err != nil {
		return err
	}
	return nil
}

func (e *engine) TestModel(ctx context.Context, userID int64, id string) (*llm.ConnectionResult, error) {
	ep, err := e.resolveModel(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if !ep.HasAPI() {
		return &llm.ConnectionResult{Message: "Model has no active API integration"}, nil
	}
	res := e.client.TestConnection(ctx, ep, 10*time.Second)
	return &res, nil
}

func (e *engine) UploadDataset(ctx context.Context, userID int64, up DatasetUpload, r io.Reader) (*store.Dataset, error) {
	ext := strings.ToLower(filepath.Ext(up.Filename))
	if ext != ".csv" && ext != ".xlsx" {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, up.Filename)
	}

	dir := filepath.Join(e.dataDir, strconv.FormatInt(userID, 10))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating dataset directory: %w", err)
	}
	path := filepath.Join(dir, uuid.NewString()+ext)

	size, err := writeFile(path, r)
	if err != nil {
		return nil, err
	}

	layout, err := dataset.Inspect(path)
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("inspecting %s: %w", up.Filename, err)
	}

	name := up.Name
	if strings.TrimSpace(name) == "" {
		name = strings.TrimSuffix(filepath.Base(up.Filename), ext)
	}
	d := store.Dataset{
		UserID:          userID,
		Name:            name,
		Description:     up.Description,
		Filename:        filepath.Base(up.Filename),
		FilePath:        path,
		FileSize:        size,
		PromptColumn:    up.PromptColumn,
		ReferenceColumn: up.ReferenceColumn,
		IsActive:        true,
	}
	d.ApplyLayout(*layout)

	id, err := e.store.CreateDataset(ctx, d)
	if err != nil {
		os.Remove(path)
		return nil, err
	}
	slog.Info("modelarena: dataset uploaded",
		"dataset", id,
		"file", d.Filename,
		"rows", d.RowCount,
		"prompt_column", d.PromptColumn,
		"valid", d.FormatValidated)
	return e.store.GetDataset(ctx, userID, id)
}

func writeFile(path string, r io.Reader) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("creating dataset file: %w", err)
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return 0, fmt.Errorf("writing dataset file: %w", err)
	}
	return n, nil
}

func (e *engine) ListDatasets(ctx context.Context, userID int64) ([]store.Dataset, error) {
	return e.store.ListDatasets(ctx, userID)
}

func (e *engine) DeleteDataset(ctx context.Context, userID int64, id string) error {
	n, err := parseID(id, store.DatasetIDPrefix)
	if err != nil {
		return err
	}
	d, err := e.store.DeleteDataset(ctx, userID, n)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrDatasetNotFound, id)
	}
	if err != nil {
		return err
	}
	if err := os.Remove(d.FilePath); err != nil && !os.IsNotExist(err) {
		slog.Warn("modelarena: removing dataset file", "path", d.FilePath, "error", err)
	}
	return nil
}

func (e *engine) SetJudgeModel(ctx context.Context, userID int64, id string) error {
	var n int64
	if id != "" {
		var err error
		if n, err = parseID(id, store.ModelIDPrefix); err != nil {
			return err
		}
	}
	if err := e.store.SetJudgeModel(ctx, userID, n); errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrModelNotFound, id)
	} else if err != nil {
		return err
	}
	return nil
}

func (e *engine) JudgeModel(ctx context.Context, userID int64) (*store.Model, error) {
	n, err := e.store.JudgeModel(ctx, userID)
	if err != nil || n == 0 {
		return nil, err
	}
	return e.store.GetModel(ctx, userID, n)
}

// Store returns the underlying store.
func (e *engine) Store() *store.Store {
	return e.store
}

// Close shuts down the engine.
func (e *engine) Close() error {
	return e.store.Close()
}
