package modelarena

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/brunobiangulo/modelarena/benchmark"
	"github.com/brunobiangulo/modelarena/dataset"
	"github.com/brunobiangulo/modelarena/llm"
)

// Config holds all configuration for the arena engine.
type Config struct {
	// DBPath is the full path to the SQLite database file.
	// If empty, defaults to ~/.modelarena/<DBName>.db
	DBPath string `json:"db_path" yaml:"db_path"`

	// DBName is the name for the database (used when DBPath is empty).
	DBName string `json:"db_name" yaml:"db_name"`

	// StorageDir controls where the database is created when DBPath
	// is not explicitly set. "home" (default) uses ~/.modelarena/,
	// "local" uses the current working directory.
	StorageDir string `json:"storage_dir" yaml:"storage_dir"`

	// DataDir receives uploaded dataset files. Defaults to a "datasets"
	// directory next to the database.
	DataDir string `json:"data_dir" yaml:"data_dir"`

	Client    ClientConfig    `json:"client" yaml:"client"`
	Benchmark BenchmarkConfig `json:"benchmark" yaml:"benchmark"`
}

// ClientConfig configures outbound model calls.
type ClientConfig struct {
	TimeoutSeconds    int     `json:"timeout_seconds" yaml:"timeout_seconds"`
	MaxRetries        int     `json:"max_retries" yaml:"max_retries"`
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second"` // 0 disables the limiter
	Burst             int     `json:"burst" yaml:"burst"`
}

// BenchmarkConfig tunes benchmark runs.
type BenchmarkConfig struct {
	MaxPromptsPerDataset int     `json:"max_prompts_per_dataset" yaml:"max_prompts_per_dataset"`
	MaxMetricsPrompts    int     `json:"max_metrics_prompts" yaml:"max_metrics_prompts"`
	MaxTokens            int     `json:"max_tokens" yaml:"max_tokens"`
	Temperature          float64 `json:"temperature" yaml:"temperature"`
	JudgeTemperature     float64 `json:"judge_temperature" yaml:"judge_temperature"`
	Workers              int     `json:"workers" yaml:"workers"` // 1 = strictly sequential
	SystemPrompt         string  `json:"system_prompt" yaml:"system_prompt"`
}

// DefaultConfig returns a Config with sequential benchmark defaults.
// Database is stored in ~/.modelarena/modelarena.db by default.
func DefaultConfig() Config {
	b := benchmark.DefaultConfig()
	return Config{
		DBName:     "modelarena",
		StorageDir: "home",
		Client: ClientConfig{
			TimeoutSeconds: 60,
		},
		Benchmark: BenchmarkConfig{
			MaxPromptsPerDataset: dataset.DefaultMaxPerDataset,
			MaxMetricsPrompts:    b.MaxMetricsPrompts,
			MaxTokens:            b.MaxTokens,
			Temperature:          b.Temperature,
			JudgeTemperature:     b.JudgeTemperature,
			Workers:              b.Workers,
			SystemPrompt:         b.SystemPrompt,
		},
	}
}

// LoadConfig reads a YAML or JSON file over DefaultConfig. The format is
// chosen by extension; anything other than .json is parsed as YAML.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, &cfg)
	} else {
		err = yaml.Unmarshal(data, &cfg)
	}
	if err != nil {
		return cfg, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
	}
	return cfg, nil
}

// resolveDBPath computes the final database path from config fields.
func (c *Config) resolveDBPath() string {
	if c.DBPath != "" {
		return c.DBPath
	}

	name := c.DBName
	if name == "" {
		name = "modelarena"
	}

	switch c.StorageDir {
	case "local", "cwd":
		return name + ".db"
	default: // "home" or empty
		home, err := os.UserHomeDir()
		if err != nil {
			return name + ".db" // fallback to cwd
		}
		return filepath.Join(home, ".modelarena", name+".db")
	}
}

// resolveDataDir returns where uploaded datasets are written.
func (c *Config) resolveDataDir() string {
	if c.DataDir != "" {
		return c.DataDir
	}
	return filepath.Join(filepath.Dir(c.resolveDBPath()), "datasets")
}

// clientConfig converts to the llm client settings.
func (c ClientConfig) clientConfig() llm.ClientConfig {
	return llm.ClientConfig{
		Timeout:           time.Duration(c.TimeoutSeconds) * time.Second,
		MaxRetries:        c.MaxRetries,
		RequestsPerSecond: c.RequestsPerSecond,
		Burst:             c.Burst,
	}
}

// orchestratorConfig converts to the orchestrator settings. Zero values
// fall back to the orchestrator defaults.
func (c BenchmarkConfig) orchestratorConfig() benchmark.Config {
	oc := benchmark.DefaultConfig()
	if c.MaxMetricsPrompts > 0 {
		oc.MaxMetricsPrompts = c.MaxMetricsPrompts
	}
	if c.MaxTokens > 0 {
		oc.MaxTokens = c.MaxTokens
	}
	if c.Temperature > 0 {
		oc.Temperature = c.Temperature
	}
	if c.JudgeTemperature > 0 {
		oc.JudgeTemperature = c.JudgeTemperature
	}
	if c.Workers > 0 {
		oc.Workers = c.Workers
	}
	if c.SystemPrompt != "" {
		oc.SystemPrompt = c.SystemPrompt
	}
	return oc
}
