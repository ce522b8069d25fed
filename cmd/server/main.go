package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	_ "go.uber.org/automaxprocs"

	"github.com/brunobiangulo/modelarena"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (YAML or JSON)")
	addr := flag.String("addr", ":8080", "Listen address")
	defaultUser := flag.Int64("default-user", 0, "User id for requests without X-User-ID (0 requires the header)")
	flag.Parse()

	// Structured JSON logging.
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	cfg := modelarena.DefaultConfig()
	if *configPath != "" {
		var err error
		cfg, err = modelarena.LoadConfig(*configPath)
		if err != nil {
			slog.Error("loading config", "error", err)
			os.Exit(1)
		}
	}
	applyEnv(&cfg)

	apiKey := os.Getenv("MODELARENA_API_KEY")
	corsOrigins := os.Getenv("MODELARENA_CORS_ORIGINS")

	engine, err := modelarena.New(cfg)
	if err != nil {
		slog.Error("creating engine", "error", err)
		os.Exit(1)
	}
	defer engine.Close()

	handler := newRouter(engine, apiKey, corsOrigins, *defaultUser)

	srv := &http.Server{
		Addr:         *addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // benchmark runs are synchronous and can be long
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown on SIGTERM/SIGINT.
	done := make(chan os.Signal, 1)
	signal.Notify(done, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "addr", *addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-done
	slog.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("server stopped")
}

// newRouter registers the API routes behind the middleware chain.
func newRouter(engine modelarena.Engine, apiKey, corsOrigins string, defaultUser int64) http.Handler {
	h := newHandler(engine)
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", h.handleHealth)
	mux.HandleFunc("GET /api/benchmarks", h.handleBenchmarks)
	mux.HandleFunc("POST /api/run-benchmark", h.handleRunBenchmark)
	mux.HandleFunc("POST /api/blind-test/vote", h.handleVote)
	mux.HandleFunc("POST /api/blind-test/reveal", h.handleReveal)

	mux.HandleFunc("GET /api/integrations", h.handleListIntegrations)
	mux.HandleFunc("POST /api/integrations", h.handleCreateIntegration)
	mux.HandleFunc("DELETE /api/integrations/{id}", h.handleDeleteIntegration)

	mux.HandleFunc("GET /api/models", h.handleListModels)
	mux.HandleFunc("POST /api/models", h.handleCreateModel)
	mux.HandleFunc("DELETE /api/models/{id}", h.handleDeleteModel)
	mux.HandleFunc("POST /api/models/{id}/test", h.handleTestModel)

	mux.HandleFunc("GET /api/datasets", h.handleListDatasets)
	mux.HandleFunc("POST /api/datasets", h.handleUploadDataset)
	mux.HandleFunc("DELETE /api/datasets/{id}", h.handleDeleteDataset)

	mux.HandleFunc("GET /api/judge-model", h.handleGetJudgeModel)
	mux.HandleFunc("PUT /api/judge-model", h.handleSetJudgeModel)

	// Middleware chain: recovery -> cors -> auth -> user -> logging -> mux
	var handler http.Handler = mux
	handler = logMiddleware(handler)
	handler = userMiddleware(defaultUser, handler)
	handler = authMiddleware(apiKey, handler)
	handler = corsMiddleware(corsOrigins, handler)
	handler = recoveryMiddleware(handler)
	return handler
}

// applyEnv overrides config fields from MODELARENA_* variables.
func applyEnv(cfg *modelarena.Config) {
	if v := os.Getenv("MODELARENA_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("MODELARENA_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("MODELARENA_SYSTEM_PROMPT"); v != "" {
		cfg.Benchmark.SystemPrompt = v
	}
	envInt("MODELARENA_WORKERS", &cfg.Benchmark.Workers)
	envInt("MODELARENA_MAX_PROMPTS_PER_DATASET", &cfg.Benchmark.MaxPromptsPerDataset)
	envInt("MODELARENA_TIMEOUT_SECONDS", &cfg.Client.TimeoutSeconds)
	envInt("MODELARENA_MAX_RETRIES", &cfg.Client.MaxRetries)
	if v := os.Getenv("MODELARENA_REQUESTS_PER_SECOND"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Client.RequestsPerSecond = f
		} else {
			slog.Warn("ignoring invalid env value", "name", "MODELARENA_REQUESTS_PER_SECOND", "value", v)
		}
	}
}

func envInt(name string, dst *int) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("ignoring invalid env value", "name", name, "value", v)
		return
	}
	*dst = n
}
