package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brunobiangulo/modelarena/benchmark"
	"github.com/brunobiangulo/modelarena/dataset"
	"github.com/brunobiangulo/modelarena/metrics"
)

const answer = "Paris is the capital of France"

// answerServer replies to every chat completion with the same answer.
func answerServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": answer}},
			},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

// writePlan creates a dataset and a plan next to it and returns the plan path.
func writePlan(t *testing.T, plan string) string {
	t.Helper()
	dir := t.TempDir()
	csv := "question,answer\nWhat is the capital of France?," + answer + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "qa.csv"), []byte(csv), 0o644))
	p := filepath.Join(dir, "plan.yaml")
	require.NoError(t, os.WriteFile(p, []byte(plan), 0o644))
	return p
}

func runArena(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// ---------------------------------------------------------------------------
// Plan loading
// ---------------------------------------------------------------------------

func TestLoadPlan(t *testing.T) {
	p := writePlan(t, `
benchmarks: [gpt4o_eval]
models:
  - display_name: alpha
    base_url: http://alpha.test/v1
  - id: b
    display_name: beta
    provider: groq
judge:
  display_name: judge
  base_url: http://judge.test/v1
  api_key: sk-judge
datasets:
  - path: qa.csv
`)
	plan, err := loadPlan(p)
	require.NoError(t, err)

	require.Len(t, plan.Datasets, 1)
	assert.Equal(t, filepath.Join(filepath.Dir(p), "qa.csv"), plan.Datasets[0].Path)
	assert.Equal(t, "dataset_1", plan.Datasets[0].ID)
	assert.Equal(t, "qa.csv", plan.Datasets[0].Name)

	assert.Equal(t, "alpha", plan.Models[0].ID)
	assert.Equal(t, "https://api.groq.com/openai/v1", plan.Models[1].BaseURL)
	require.NotNil(t, plan.Judge)
	assert.Equal(t, "sk-judge", plan.Judge.APIKey)

	req := plan.request()
	assert.Equal(t, []benchmark.Kind{benchmark.JudgeEval}, req.Kinds)
}

func TestLoadPlanPartialWeights(t *testing.T) {
	p := writePlan(t, `
benchmarks: [metrics_comparison]
models:
  - display_name: parrot
    base_url: http://parrot.test/v1
weights:
  rouge: 1
datasets:
  - path: qa.csv
`)
	plan, err := loadPlan(p)
	require.NoError(t, err)

	defaults := metrics.DefaultWeights()
	require.NotNil(t, plan.Weights)
	assert.Equal(t, 1.0, plan.Weights.Rouge)
	assert.Equal(t, defaults.Semantic, plan.Weights.Semantic)
	assert.Equal(t, defaults.BertScore, plan.Weights.BertScore)
}

func TestLoadPlanDefaultWeights(t *testing.T) {
	p := writePlan(t, `
benchmarks: [metrics_comparison]
models:
  - display_name: parrot
    base_url: http://parrot.test/v1
datasets:
  - path: qa.csv
`)
	plan, err := loadPlan(p)
	require.NoError(t, err)
	require.NotNil(t, plan.Weights)
	assert.Equal(t, metrics.DefaultWeights(), *plan.Weights)
}

func TestLoadPlanErrors(t *testing.T) {
	_, err := loadPlan(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	p := writePlan(t, "models: [unterminated")
	_, err = loadPlan(p)
	assert.Error(t, err)
}

// ---------------------------------------------------------------------------
// Commands
// ---------------------------------------------------------------------------

func TestRunCommand_MetricsComparison(t *testing.T) {
	srv := answerServer(t)
	p := writePlan(t, `
benchmarks: [metrics_comparison]
models:
  - display_name: parrot
    base_url: `+srv.URL+`/v1
datasets:
  - path: qa.csv
`)

	out, err := runArena(t, "run", "--plan", p, "--seed", "1")
	require.NoError(t, err)

	var res benchmark.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, benchmark.MetricsComparison, res.TestType)
	require.NotNil(t, res.MetricsComparison)
	require.Len(t, res.MetricsComparison.Models, 1)
	assert.InDelta(t, 10, res.MetricsComparison.Models[0].AverageScore, 1e-6)
	assert.Equal(t, 1, res.TotalPrompts)
}

func TestRunCommand_OutputFile(t *testing.T) {
	srv := answerServer(t)
	p := writePlan(t, `
benchmarks: [metrics_comparison]
models:
  - display_name: parrot
    base_url: `+srv.URL+`/v1
datasets:
  - path: qa.csv
`)
	outPath := filepath.Join(t.TempDir(), "result.json")

	out, err := runArena(t, "run", "-p", p, "-o", outPath)
	require.NoError(t, err)
	assert.Empty(t, out)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"testType": "metrics_comparison"`)
}

func TestRunCommand_RequiresPlan(t *testing.T) {
	_, err := runArena(t, "run")
	assert.Error(t, err)
}

func TestRunCommand_ValidationError(t *testing.T) {
	p := writePlan(t, `
benchmarks: [blind_test]
models:
  - display_name: only-one
    base_url: http://only.test/v1
datasets:
  - path: qa.csv
`)
	_, err := runArena(t, "run", "--plan", p)
	require.Error(t, err)
	assert.ErrorIs(t, err, benchmark.ErrValidation)
}

func TestRunCommand_NoPrompts(t *testing.T) {
	srv := answerServer(t)
	p := writePlan(t, `
benchmarks: [metrics_comparison]
models:
  - display_name: parrot
    base_url: `+srv.URL+`/v1
datasets:
  - path: missing.csv
`)
	_, err := runArena(t, "run", "--plan", p)
	require.Error(t, err)
	assert.ErrorIs(t, err, dataset.ErrNoPromptsFound)
	assert.True(t, isDatasetError(err))
}

func TestInspectCommand(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.csv")
	require.NoError(t, os.WriteFile(path, []byte("id;prompt;expected\n1;hi;hello\n2;bye;goodbye\n"), 0o644))

	out, err := runArena(t, "inspect", path)
	require.NoError(t, err)

	var layout dataset.Layout
	require.NoError(t, json.Unmarshal([]byte(out), &layout))
	assert.Equal(t, ";", layout.Delimiter)
	assert.Equal(t, 2, layout.RowCount)
	assert.Equal(t, "prompt", layout.PromptColumn)
	assert.Equal(t, "expected", layout.ReferenceColumn)
	assert.True(t, layout.Valid)
}

func TestBenchmarksCommand(t *testing.T) {
	out, err := runArena(t, "benchmarks")
	require.NoError(t, err)

	var infos []benchmark.Info
	require.NoError(t, json.Unmarshal([]byte(out), &infos))
	assert.Len(t, infos, 4)
}
