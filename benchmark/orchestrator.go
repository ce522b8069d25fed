package benchmark

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/brunobiangulo/modelarena/dataset"
	"github.com/brunobiangulo/modelarena/judge"
	"github.com/brunobiangulo/modelarena/llm"
)

// DefaultSystemPrompt is sent with every benchmarked prompt.
const DefaultSystemPrompt = "You are a helpful assistant. Answer the question concisely."

// Config tunes a run.
type Config struct {
	// MaxMetricsPrompts caps the prompts scored by metrics comparison.
	MaxMetricsPrompts int
	MaxTokens         int
	Temperature       float64
	JudgeTemperature  float64
	JudgeMaxTokens    int
	// Workers bounds concurrent model calls; 1 runs strictly in order.
	Workers      int
	SystemPrompt string
	// CallTimeout bounds each model call; 0 leaves it to the client.
	CallTimeout time.Duration
}

// DefaultConfig returns sequential defaults.
func DefaultConfig() Config {
	return Config{
		MaxMetricsPrompts: 10,
		MaxTokens:         llm.DefaultMaxTokens,
		Temperature:       llm.DefaultTemperature,
		JudgeTemperature:  judge.DefaultTemperature,
		JudgeMaxTokens:    judge.DefaultMaxTokens,
		Workers:           1,
		SystemPrompt:      DefaultSystemPrompt,
	}
}

// Loader supplies prompts for a run. *dataset.Loader implements it.
type Loader interface {
	Load(ctx context.Context, refs []dataset.Ref) ([]dataset.PromptRecord, error)
}

// Phase is a step of a run.
type Phase string

const (
	PhaseValidating     Phase = "validating"
	PhaseLoadingPrompts Phase = "loading_prompts"
	PhaseDispatching    Phase = "dispatching"
	PhaseScoring        Phase = "scoring"
	PhaseAggregating    Phase = "aggregating"
	PhaseDone           Phase = "done"
	PhaseFailed         Phase = "failed"
)

// PhaseHook observes phase transitions of a run.
type PhaseHook func(kind Kind, phase Phase)

// Orchestrator validates requests and runs the selected procedure.
type Orchestrator struct {
	caller llm.Caller
	loader Loader
	cfg    Config
	rand   Rand
	hook   PhaseHook
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithRand injects the randomness used for pair sampling and shuffling.
func WithRand(r Rand) Option {
	return func(o *Orchestrator) { o.rand = r }
}

// WithPhaseHook registers a phase observer.
func WithPhaseHook(h PhaseHook) Option {
	return func(o *Orchestrator) { o.hook = h }
}

// New creates an orchestrator. Non-positive limits in cfg take their
// defaults; temperatures are used as given.
func New(caller llm.Caller, loader Loader, cfg Config, opts ...Option) *Orchestrator {
	def := DefaultConfig()
	if cfg.MaxMetricsPrompts <= 0 {
		cfg.MaxMetricsPrompts = def.MaxMetricsPrompts
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = def.MaxTokens
	}
	if cfg.JudgeMaxTokens <= 0 {
		cfg.JudgeMaxTokens = def.JudgeMaxTokens
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}

	o := &Orchestrator{
		caller: caller,
		loader: loader,
		cfg:    cfg,
	}
	for _, fn := range opts {
		fn(o)
	}
	if o.rand == nil {
		o.rand = newClockRand()
	}
	return o
}

// procedure is one comparison strategy. A fresh value is built per run.
type procedure interface {
	// selectPrompts narrows the loaded prompts to the ones it will use.
	selectPrompts(all []dataset.PromptRecord) ([]dataset.PromptRecord, error)
	dispatch(ctx context.Context) error
	score(ctx context.Context) error
	aggregate(res *Result)
}

// Run validates req and executes its procedure. Model failures are part of
// the result; only validation, dataset and cancellation errors are returned.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*Result, error) {
	kind := req.primary()
	o.enter(kind, PhaseValidating)
	if err := req.Validate(); err != nil {
		o.enter(kind, PhaseFailed)
		return nil, err
	}

	start := time.Now()
	proc := o.newProcedure(kind, req)

	res, err := o.execute(ctx, kind, req, proc)
	if err != nil {
		o.enter(kind, PhaseFailed)
		slog.Warn("benchmark: run failed", "kind", kind, "error", err)
		return nil, err
	}
	o.enter(kind, PhaseDone)

	slog.Info("benchmark: run complete",
		"kind", kind,
		"prompts", res.TotalPrompts,
		"datasets", len(res.DatasetsUsed),
		"elapsed", time.Since(start).Round(time.Millisecond))
	return res, nil
}

func (o *Orchestrator) execute(ctx context.Context, kind Kind, req Request, proc procedure) (*Result, error) {
	o.enter(kind, PhaseLoadingPrompts)
	all, err := o.loader.Load(ctx, req.Datasets)
	if err != nil {
		return nil, err
	}
	prompts, err := proc.selectPrompts(all)
	if err != nil {
		return nil, err
	}

	o.enter(kind, PhaseDispatching)
	if err := proc.dispatch(ctx); err != nil {
		return nil, err
	}

	o.enter(kind, PhaseScoring)
	if err := proc.score(ctx); err != nil {
		return nil, err
	}

	o.enter(kind, PhaseAggregating)
	res := &Result{
		TestType:     kind,
		DatasetsUsed: datasetsUsed(prompts),
		TotalPrompts: len(prompts),
	}
	proc.aggregate(res)
	return res, nil
}

func (o *Orchestrator) newProcedure(kind Kind, req Request) procedure {
	models := apiModels(req.Models)
	switch kind {
	case BlindTest:
		return &blindProcedure{o: o, models: choosePair(o.rand, models)}
	case JudgeEval:
		return &judgeProcedure{o: o, models: choosePair(o.rand, models), judge: o.newJudge(*req.Judge)}
	case ReferenceComparison:
		return &referenceProcedure{o: o, models: models, judge: o.newJudge(*req.Judge)}
	default:
		return &metricsProcedure{o: o, models: models, weights: req.weights()}
	}
}

func (o *Orchestrator) newJudge(ep llm.Endpoint) *judge.Judge {
	return judge.New(o.caller, ep,
		judge.WithTemperature(o.cfg.JudgeTemperature),
		judge.WithMaxTokens(o.cfg.JudgeMaxTokens))
}

func (o *Orchestrator) enter(kind Kind, p Phase) {
	slog.Debug("benchmark: phase", "kind", kind, "phase", p)
	if o.hook != nil {
		o.hook(kind, p)
	}
}

// call sends one benchmarked prompt to a model.
func (o *Orchestrator) call(ctx context.Context, prompt string, ep llm.Endpoint) llm.Outcome {
	opts := []llm.CallOption{
		llm.WithMaxTokens(o.cfg.MaxTokens),
		llm.WithTemperature(o.cfg.Temperature),
	}
	if o.cfg.SystemPrompt != "" {
		opts = append(opts, llm.WithSystemPrompt(o.cfg.SystemPrompt))
	}
	if o.cfg.CallTimeout > 0 {
		opts = append(opts, llm.WithTimeout(o.cfg.CallTimeout))
	}
	return o.caller.Call(ctx, prompt, ep, opts...)
}

// forEach runs fn for every index in [0, n). With one worker the calls are
// strictly sequential; otherwise up to Workers run at once. fn writes its
// result into a slot owned by index i, so output order never depends on
// scheduling.
func (o *Orchestrator) forEach(ctx context.Context, n int, fn func(ctx context.Context, i int)) error {
	if o.cfg.Workers <= 1 {
		for i := range n {
			if err := ctx.Err(); err != nil {
				return err
			}
			fn(ctx, i)
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.Workers)
	for i := range n {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fn(gctx, i)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// datasetsUsed lists the dataset names that contributed prompts, in first
// appearance order.
func datasetsUsed(prompts []dataset.PromptRecord) []string {
	seen := make(map[string]bool)
	var out []string
	for _, p := range prompts {
		if !seen[p.SourceDataset] {
			seen[p.SourceDataset] = true
			out = append(out, p.SourceDataset)
		}
	}
	return out
}

func logCall(kind Kind, p dataset.PromptRecord, ep llm.Endpoint, out llm.Outcome) {
	if !out.OK() {
		// The client already logged the failure.
		return
	}
	slog.Info("benchmark: model answered",
		"kind", kind,
		"prompt", p.ID,
		"model", ep.DisplayName,
		"elapsed", out.Elapsed.Round(time.Millisecond))
}
