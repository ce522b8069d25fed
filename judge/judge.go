package judge

import (
	"context"
	"log/slog"

	"github.com/brunobiangulo/modelarena/llm"
)

const (
	// DefaultTemperature keeps judge verdicts stable across runs.
	DefaultTemperature = 0.3
	// DefaultMaxTokens leaves room for reasoning and criterion scores.
	DefaultMaxTokens = 1000
)

// Judge grades answers with a judge model.
type Judge struct {
	caller      llm.Caller
	endpoint    llm.Endpoint
	temperature float64
	maxTokens   int
}

// Option configures a Judge.
type Option func(*Judge)

// WithTemperature overrides the judge sampling temperature.
func WithTemperature(t float64) Option {
	return func(j *Judge) { j.temperature = t }
}

// WithMaxTokens overrides the judge max_tokens.
func WithMaxTokens(n int) Option {
	return func(j *Judge) {
		if n > 0 {
			j.maxTokens = n
		}
	}
}

// New creates a judge that calls ep through caller.
func New(caller llm.Caller, ep llm.Endpoint, opts ...Option) *Judge {
	j := &Judge{
		caller:      caller,
		endpoint:    ep,
		temperature: DefaultTemperature,
		maxTokens:   DefaultMaxTokens,
	}
	for _, fn := range opts {
		fn(j)
	}
	return j
}

// Endpoint returns the judge model endpoint.
func (j *Judge) Endpoint() llm.Endpoint { return j.endpoint }

// PairInput is one pairwise comparison. ResponseA and ResponseB are shown to
// the judge as Model A and Model B.
type PairInput struct {
	Prompt    string
	ResponseA string
	ResponseB string
	NameA     string
	NameB     string
	// Criteria defaults to DefaultCriteria.
	Criteria []string
}

// Compare asks the judge which of two answers is better. It never fails: a
// failed judge call yields an undetermined verdict.
func (j *Judge) Compare(ctx context.Context, in PairInput) PairwiseVerdict {
	criteria := in.Criteria
	if len(criteria) == 0 {
		criteria = DefaultCriteria
	}

	out := j.caller.Call(ctx, pairwiseUserPrompt(in.Prompt, in.ResponseA, in.ResponseB), j.endpoint,
		llm.WithSystemPrompt(pairwiseSystemPrompt(criteria)),
		llm.WithTemperature(j.temperature),
		llm.WithMaxTokens(j.maxTokens),
		llm.WithJSONResponse(),
	)
	if !out.OK() {
		return PairwiseVerdict{
			Winner:         WinnerTie,
			Reasoning:      "Judge call failed: " + excerpt(out.Display()),
			CriteriaScores: zeroCriteria(criteria),
			ScoredBy:       ScoredByUndetermined,
		}
	}

	v := ParsePairwise(out.Text, criteria, in.NameA, in.NameB)
	if v.ScoredBy != ScoredByJSON {
		slog.Warn("judge: reply was not valid JSON",
			"judge", j.endpoint.DisplayName,
			"scored_by", v.ScoredBy,
			"reply", excerpt(out.Text))
	}
	return v
}

// ScoreReference asks the judge to score response from 1 to 10 against
// reference. A failed judge call yields an undetermined zero score.
func (j *Judge) ScoreReference(ctx context.Context, prompt, reference, response string) ReferenceScore {
	out := j.caller.Call(ctx, referenceUserPrompt(prompt, reference, response), j.endpoint,
		llm.WithSystemPrompt(referenceSystemPrompt),
		llm.WithTemperature(j.temperature),
		llm.WithMaxTokens(j.maxTokens),
		llm.WithJSONResponse(),
	)
	if !out.OK() {
		return ReferenceScore{
			Reasoning: "Judge call failed: " + excerpt(out.Display()),
			ScoredBy:  ScoredByUndetermined,
		}
	}

	s := ParseSingle(out.Text)
	if s.ScoredBy != ScoredByJSON {
		slog.Warn("judge: reply was not valid JSON",
			"judge", j.endpoint.DisplayName,
			"scored_by", s.ScoredBy,
			"reply", excerpt(out.Text))
	}
	return s
}
