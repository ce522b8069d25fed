package benchmark

import (
	"context"
	"log/slog"

	"github.com/brunobiangulo/modelarena/dataset"
	"github.com/brunobiangulo/modelarena/judge"
	"github.com/brunobiangulo/modelarena/llm"
)

// grid holds one outcome per (model, prompt), indexed model-major.
type grid struct {
	models  []llm.Endpoint
	prompts []dataset.PromptRecord
	outs    []llm.Outcome
}

func newGrid(models []llm.Endpoint, prompts []dataset.PromptRecord) grid {
	return grid{models: models, prompts: prompts, outs: make([]llm.Outcome, len(models)*len(prompts))}
}

func (g grid) size() int { return len(g.outs) }

// at splits a flat index into model and prompt indexes.
func (g grid) at(i int) (mi, pi int) {
	return i / len(g.prompts), i % len(g.prompts)
}

// dispatch calls every model on every prompt.
func (g grid) dispatch(ctx context.Context, o *Orchestrator, kind Kind) error {
	return o.forEach(ctx, g.size(), func(ctx context.Context, i int) {
		mi, pi := g.at(i)
		out := o.call(ctx, g.prompts[pi].Prompt, g.models[mi])
		logCall(kind, g.prompts[pi], g.models[mi], out)
		g.outs[i] = out
	})
}

// responses builds the scored responses of every model, filled by scoreFn.
func (g grid) responses(scoreFn func(i int, r *ScoredResponse)) []RankedModel {
	ranked := make([]RankedModel, len(g.models))
	for mi, m := range g.models {
		rm := RankedModel{ModelRef: refOf(m), Responses: make([]ScoredResponse, len(g.prompts))}
		for pi, prompt := range g.prompts {
			i := mi*len(g.prompts) + pi
			out := g.outs[i]
			r := ScoredResponse{
				PromptID:  prompt.ID,
				Prompt:    prompt.Prompt,
				Reference: prompt.ReferenceAnswer,
				Response:  out.Display(),
				Failed:    !out.OK(),
				LatencyMs: out.Elapsed.Milliseconds(),
			}
			scoreFn(i, &r)
			rm.Responses[pi] = r
		}
		ranked[mi] = rm
	}
	return ranked
}

type referenceProcedure struct {
	o      *Orchestrator
	models []llm.Endpoint
	judge  *judge.Judge

	grid   grid
	scores []judge.ReferenceScore
}

func (p *referenceProcedure) selectPrompts(all []dataset.PromptRecord) ([]dataset.PromptRecord, error) {
	prompts, err := dataset.RequireReferences(all)
	if err != nil {
		return nil, err
	}
	p.grid = newGrid(p.models, prompts)
	p.scores = make([]judge.ReferenceScore, p.grid.size())
	return prompts, nil
}

func (p *referenceProcedure) dispatch(ctx context.Context) error {
	return p.grid.dispatch(ctx, p.o, ReferenceComparison)
}

func (p *referenceProcedure) score(ctx context.Context) error {
	return p.o.forEach(ctx, p.grid.size(), func(ctx context.Context, i int) {
		mi, pi := p.grid.at(i)
		prompt := p.grid.prompts[pi]
		s := p.judge.ScoreReference(ctx, prompt.Prompt, prompt.ReferenceAnswer, p.grid.outs[i].Display())
		slog.Info("benchmark: judged answer",
			"prompt", prompt.ID,
			"model", p.grid.models[mi].DisplayName,
			"score", s.Score,
			"scored_by", s.ScoredBy)
		p.scores[i] = s
	})
}

func (p *referenceProcedure) aggregate(res *Result) {
	models := p.grid.responses(func(i int, r *ScoredResponse) {
		s := p.scores[i]
		r.Score = s.Score
		r.Reasoning = s.Reasoning
		r.ScoredBy = s.ScoredBy
	})
	rank(models)

	jr := refOf(p.judge.Endpoint())
	res.ReferenceComparison = &Ranking{Judge: &jr, Models: models}
}
