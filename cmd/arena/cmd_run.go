package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/brunobiangulo/modelarena"
	"github.com/brunobiangulo/modelarena/benchmark"
	"github.com/brunobiangulo/modelarena/dataset"
	"github.com/brunobiangulo/modelarena/llm"
	"github.com/brunobiangulo/modelarena/metrics"
)

// Plan is a self-contained benchmark run.
type Plan struct {
	Benchmarks []string         `yaml:"benchmarks"`
	Models     []llm.Endpoint   `yaml:"models"`
	Judge      *llm.Endpoint    `yaml:"judge,omitempty"`
	Datasets   []dataset.Ref    `yaml:"datasets"`
	Weights    *metrics.Weights `yaml:"weights,omitempty"`
}

// loadPlan reads a YAML plan. Relative dataset paths are resolved against
// the plan's directory, empty endpoint ids default to the display name and
// unset metric weights keep their defaults.
func loadPlan(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading plan: %w", err)
	}
	defaults := metrics.DefaultWeights()
	p := Plan{Weights: &defaults}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing plan %s: %w", path, err)
	}

	base := filepath.Dir(path)
	for i := range p.Datasets {
		d := &p.Datasets[i]
		if d.Path != "" && !filepath.IsAbs(d.Path) {
			d.Path = filepath.Join(base, d.Path)
		}
		if d.ID == "" {
			d.ID = fmt.Sprintf("dataset_%d", i+1)
		}
		if d.Name == "" {
			d.Name = filepath.Base(d.Path)
		}
	}
	for i := range p.Models {
		fillEndpoint(&p.Models[i])
	}
	if p.Judge != nil {
		fillEndpoint(p.Judge)
	}
	return &p, nil
}

func fillEndpoint(ep *llm.Endpoint) {
	if ep.ID == "" {
		ep.ID = ep.DisplayName
	}
	if ep.BaseURL == "" {
		ep.BaseURL = llm.DefaultBaseURL(ep.Provider)
	}
}

// request converts the plan into an orchestrator request.
func (p *Plan) request() benchmark.Request {
	req := benchmark.Request{
		Models:   p.Models,
		Datasets: p.Datasets,
		Judge:    p.Judge,
		Weights:  p.Weights,
	}
	for _, id := range p.Benchmarks {
		k, err := benchmark.ParseKind(id)
		if err != nil {
			k = benchmark.Kind(id)
		}
		req.Kinds = append(req.Kinds, k)
	}
	return req
}

func newRunCommand() *cobra.Command {
	var (
		planPath   string
		configPath string
		outputPath string
		seed       uint64
		workers    int
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the benchmark described by a plan file",
		Long: `Run loads a YAML plan listing benchmarks, model endpoints, an optional
judge and dataset files, runs it and prints the JSON result.

Example plan:

  benchmarks: [reference_comparison]
  models:
    - display_name: qwen2.5-7b-instruct
      base_url: http://localhost:1234/v1
  judge:
    display_name: gpt-4o
    provider: openai
    api_key: sk-...
  datasets:
    - path: prompts.csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := modelarena.DefaultConfig()
			if configPath != "" {
				var err error
				if cfg, err = modelarena.LoadConfig(configPath); err != nil {
					return err
				}
			}
			if workers > 0 {
				cfg.Benchmark.Workers = workers
			}

			plan, err := loadPlan(planPath)
			if err != nil {
				return err
			}

			var opts []benchmark.Option
			if cmd.Flags().Changed("seed") {
				opts = append(opts, benchmark.WithRand(benchmark.NewRand(seed)))
			}
			orch := modelarena.NewOrchestrator(cfg, opts...)

			res, err := orch.Run(cmd.Context(), plan.request())
			if err != nil {
				return err
			}
			return writeJSONFile(cmd.OutOrStdout(), outputPath, res)
		},
	}

	cmd.Flags().StringVarP(&planPath, "plan", "p", "", "Path to the plan file (YAML)")
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to a config file (YAML or JSON)")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write the JSON result to a file instead of stdout")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "Seed for model pairing and answer shuffling")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "Concurrent model calls (overrides config)")
	_ = cmd.MarkFlagRequired("plan")

	return cmd
}

// isDatasetError reports whether err comes from loading prompts.
func isDatasetError(err error) bool {
	return errors.Is(err, dataset.ErrNoPromptsFound) || errors.Is(err, dataset.ErrNoReferencePrompts)
}
