package benchmark

import (
	"errors"
	"fmt"
	"slices"

	"github.com/brunobiangulo/modelarena/dataset"
	"github.com/brunobiangulo/modelarena/llm"
	"github.com/brunobiangulo/modelarena/metrics"
)

// ErrValidation matches every *ValidationError.
var ErrValidation = errors.New("benchmark: invalid request")

// ValidationError reports a request that cannot run. It is detected before
// any dataset is read or model is called.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalid(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// Request is one benchmark run.
type Request struct {
	Kinds    []Kind
	Models   []llm.Endpoint
	Datasets []dataset.Ref
	// Judge is required for judge_eval and reference_comparison.
	Judge *llm.Endpoint
	// Weights for metrics_comparison; nil means metrics.DefaultWeights.
	Weights *metrics.Weights
}

// Validate checks the request against the rules of every selected kind.
func (r Request) Validate() error {
	if err := r.ValidateSelection(); err != nil {
		return err
	}
	for _, k := range uniqueKinds(r.Kinds) {
		if k.NeedsJudge() && (r.Judge == nil || !r.Judge.HasAPI()) {
			return invalid("%s requires a judge model with an active API integration", k)
		}
	}
	return nil
}

// ValidateSelection checks every rule except the judge: datasets, kinds,
// the metrics comparison exclusivity and model counts.
func (r Request) ValidateSelection() error {
	if len(r.Datasets) == 0 {
		return invalid("select at least one dataset")
	}
	if len(r.Kinds) == 0 {
		return invalid("select at least one benchmark")
	}
	for _, k := range r.Kinds {
		if !k.Valid() {
			return invalid("unknown benchmark %q", k)
		}
	}
	if slices.Contains(r.Kinds, MetricsComparison) && len(uniqueKinds(r.Kinds)) > 1 {
		return invalid("metrics comparison cannot be combined with other benchmarks")
	}

	apiCount := len(apiModels(r.Models))
	for _, k := range uniqueKinds(r.Kinds) {
		switch k {
		case BlindTest:
			if apiCount < 2 {
				return invalid("blind test requires at least 2 models with API access, got %d", apiCount)
			}
		case JudgeEval:
			if apiCount < 2 {
				return invalid("judge evaluation requires at least 2 models with API access, got %d", apiCount)
			}
		case ReferenceComparison:
			if apiCount < 1 {
				return invalid("reference comparison requires at least 1 model with API access")
			}
		case MetricsComparison:
			if apiCount < 1 {
				return invalid("metrics comparison requires at least 1 model with API access")
			}
		}
	}
	return nil
}

// primary returns the kind this request runs.
func (r Request) primary() Kind {
	for _, k := range precedence {
		if slices.Contains(r.Kinds, k) {
			return k
		}
	}
	return ""
}

func (r Request) weights() metrics.Weights {
	if r.Weights != nil {
		return *r.Weights
	}
	return metrics.DefaultWeights()
}

func uniqueKinds(kinds []Kind) []Kind {
	out := make([]Kind, 0, len(kinds))
	for _, k := range kinds {
		if !slices.Contains(out, k) {
			out = append(out, k)
		}
	}
	return out
}

// apiModels returns the models that can actually be called, in order.
func apiModels(models []llm.Endpoint) []llm.Endpoint {
	out := make([]llm.Endpoint, 0, len(models))
	for _, m := range models {
		if m.HasAPI() {
			out = append(out, m)
		}
	}
	return out
}
