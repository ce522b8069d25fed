package benchmark

import (
	"context"

	"github.com/brunobiangulo/modelarena/dataset"
	"github.com/brunobiangulo/modelarena/llm"
	"github.com/brunobiangulo/modelarena/metrics"
)

type metricsProcedure struct {
	o       *Orchestrator
	models  []llm.Endpoint
	weights metrics.Weights

	grid   grid
	scores []metrics.Scores
}

func (p *metricsProcedure) selectPrompts(all []dataset.PromptRecord) ([]dataset.PromptRecord, error) {
	prompts, err := dataset.RequireReferences(all)
	if err != nil {
		return nil, err
	}
	if len(prompts) > p.o.cfg.MaxMetricsPrompts {
		prompts = prompts[:p.o.cfg.MaxMetricsPrompts]
	}
	p.grid = newGrid(p.models, prompts)
	p.scores = make([]metrics.Scores, p.grid.size())
	return prompts, nil
}

func (p *metricsProcedure) dispatch(ctx context.Context) error {
	return p.grid.dispatch(ctx, p.o, MetricsComparison)
}

func (p *metricsProcedure) score(context.Context) error {
	for i, out := range p.grid.outs {
		_, pi := p.grid.at(i)
		p.scores[i] = metrics.Score(p.grid.prompts[pi].ReferenceAnswer, out.Display())
	}
	return nil
}

func (p *metricsProcedure) aggregate(res *Result) {
	models := p.grid.responses(func(i int, r *ScoredResponse) {
		s := p.scores[i]
		r.Metrics = &s
		r.Score = metrics.Composite(s, p.weights)
	})

	for mi := range models {
		var avg metrics.Scores
		for _, r := range models[mi].Responses {
			avg.Rouge += r.Metrics.Rouge
			avg.Semantic += r.Metrics.Semantic
			avg.BertScore += r.Metrics.BertScore
		}
		if n := float64(len(models[mi].Responses)); n > 0 {
			avg.Rouge /= n
			avg.Semantic /= n
			avg.BertScore /= n
		}
		models[mi].Metrics = &avg
	}
	rank(models)

	w := p.weights
	res.MetricsComparison = &Ranking{Weights: &w, Models: models}
}
