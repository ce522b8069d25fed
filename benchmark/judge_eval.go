package benchmark

import (
	"context"
	"log/slog"

	"github.com/brunobiangulo/modelarena/dataset"
	"github.com/brunobiangulo/modelarena/judge"
	"github.com/brunobiangulo/modelarena/llm"
)

type judgeProcedure struct {
	o      *Orchestrator
	models [2]llm.Endpoint
	judge  *judge.Judge

	prompts  []dataset.PromptRecord
	outs     [][2]llm.Outcome
	verdicts []judge.PairwiseVerdict
}

func (p *judgeProcedure) selectPrompts(all []dataset.PromptRecord) ([]dataset.PromptRecord, error) {
	p.prompts = all
	p.outs = make([][2]llm.Outcome, len(all))
	p.verdicts = make([]judge.PairwiseVerdict, len(all))
	return all, nil
}

func (p *judgeProcedure) dispatch(ctx context.Context) error {
	return p.o.forEach(ctx, len(p.prompts)*2, func(ctx context.Context, i int) {
		pi, mi := i/2, i%2
		prompt := p.prompts[pi]
		out := p.o.call(ctx, prompt.Prompt, p.models[mi])
		logCall(JudgeEval, prompt, p.models[mi], out)
		p.outs[pi][mi] = out
	})
}

func (p *judgeProcedure) score(ctx context.Context) error {
	return p.o.forEach(ctx, len(p.prompts), func(ctx context.Context, i int) {
		prompt := p.prompts[i]
		v := p.judge.Compare(ctx, judge.PairInput{
			Prompt:    prompt.Prompt,
			ResponseA: p.outs[i][0].Display(),
			ResponseB: p.outs[i][1].Display(),
			NameA:     p.models[0].DisplayName,
			NameB:     p.models[1].DisplayName,
			Criteria:  judge.DefaultCriteria,
		})
		slog.Info("benchmark: judged pair",
			"prompt", prompt.ID,
			"winner", v.Winner,
			"scored_by", v.ScoredBy)
		p.verdicts[i] = v
	})
}

func (p *judgeProcedure) aggregate(res *Result) {
	je := &JudgeEvalResult{
		Judge:    refOf(p.judge.Endpoint()),
		Criteria: judge.DefaultCriteria,
		Models: []ModelSummary{
			{ModelRef: refOf(p.models[0])},
			{ModelRef: refOf(p.models[1])},
		},
		EvalPairs: make([]EvalPair, len(p.prompts)),
	}

	for i, prompt := range p.prompts {
		v := p.verdicts[i]
		scores := [2]float64{v.Model1Score, v.Model2Score}

		pair := EvalPair{
			PromptID: prompt.ID,
			Prompt:   prompt.Prompt,
			Category: prompt.Category,
			Evaluation: Evaluation{
				WinnerPosition: v.Winner,
				Reasoning:      v.Reasoning,
				CriteriaScores: v.CriteriaScores,
				ScoredBy:       v.ScoredBy,
			},
		}
		for mi := range 2 {
			out := p.outs[i][mi]
			pair.Responses[mi] = PairResponse{
				ModelRef: refOf(p.models[mi]),
				Response: out.Display(),
				Failed:   !out.OK(),
				Score:    scores[mi],
			}
			je.Models[mi].TotalScore += scores[mi]
		}

		switch v.Winner {
		case judge.WinnerA:
			pair.Evaluation.Winner = p.models[0].DisplayName
			je.Models[0].Wins++
		case judge.WinnerB:
			pair.Evaluation.Winner = p.models[1].DisplayName
			je.Models[1].Wins++
		default:
			pair.Evaluation.Winner = string(judge.WinnerTie)
			je.Ties++
		}
		je.EvalPairs[i] = pair
	}

	if n := len(p.prompts); n > 0 {
		for mi := range je.Models {
			je.Models[mi].AverageScore = je.Models[mi].TotalScore / float64(n)
		}
	}
	res.JudgeEval = je
}
