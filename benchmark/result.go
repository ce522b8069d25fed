package benchmark

import (
	"sort"

	"github.com/brunobiangulo/modelarena/judge"
	"github.com/brunobiangulo/modelarena/llm"
	"github.com/brunobiangulo/modelarena/metrics"
)

// Result is the payload of one run. Exactly one of the procedure sections is
// set, matching TestType.
type Result struct {
	TestType     Kind     `json:"testType"`
	DatasetsUsed []string `json:"datasetsUsed"`
	TotalPrompts int      `json:"totalPrompts"`

	BlindTest           *BlindTestResult `json:"blindTest,omitempty"`
	JudgeEval           *JudgeEvalResult `json:"judgeEval,omitempty"`
	ReferenceComparison *Ranking         `json:"referenceComparison,omitempty"`
	MetricsComparison   *Ranking         `json:"metricsComparison,omitempty"`
}

// ModelRef identifies a model in results.
type ModelRef struct {
	ID   string `json:"modelId"`
	Name string `json:"modelName"`
}

func refOf(ep llm.Endpoint) ModelRef {
	return ModelRef{ID: ep.ID, Name: ep.DisplayName}
}

// JudgeEvalResult is the result of a judge pairwise evaluation.
type JudgeEvalResult struct {
	Judge     ModelRef       `json:"judge"`
	Criteria  []string       `json:"criteria"`
	Models    []ModelSummary `json:"models"`
	EvalPairs []EvalPair     `json:"evalPairs"`
	Ties      int            `json:"ties"`
}

// ModelSummary aggregates one model's judge scores.
type ModelSummary struct {
	ModelRef
	TotalScore   float64 `json:"totalScore"`
	AverageScore float64 `json:"averageScore"`
	Wins         int     `json:"wins"`
}

// EvalPair is one prompt judged in a pairwise evaluation. Responses[0] is
// shown to the judge as Model A.
type EvalPair struct {
	PromptID   string          `json:"promptId"`
	Prompt     string          `json:"prompt"`
	Category   string          `json:"category"`
	Responses  [2]PairResponse `json:"responses"`
	Evaluation Evaluation      `json:"evaluation"`
}

// PairResponse is one model's answer in an EvalPair.
type PairResponse struct {
	ModelRef
	Response string  `json:"response"`
	Failed   bool    `json:"failed,omitempty"`
	Score    float64 `json:"score"`
}

// Evaluation is the judge's verdict on an EvalPair.
type Evaluation struct {
	// Winner is the winning model's name, or "tie".
	Winner         string                          `json:"winner"`
	WinnerPosition judge.Winner                    `json:"winnerPosition"`
	Reasoning      string                          `json:"reasoning"`
	CriteriaScores map[string]judge.CriterionScore `json:"criteria_scores"`
	ScoredBy       judge.ScoredBy                  `json:"scoredBy"`
}

// Ranking is the result of reference or metrics comparison: models ordered
// by average score, best first.
type Ranking struct {
	Judge   *ModelRef        `json:"judge,omitempty"`
	Weights *metrics.Weights `json:"weights,omitempty"`
	Models  []RankedModel    `json:"models"`
}

// RankedModel is one model's scored responses.
type RankedModel struct {
	ModelRef
	Rank         int              `json:"rank"`
	AverageScore float64          `json:"averageScore"`
	TotalScore   float64          `json:"totalScore"`
	Metrics      *metrics.Scores  `json:"metrics,omitempty"`
	Responses    []ScoredResponse `json:"responses"`
}

// ScoredResponse is one answer with its score.
type ScoredResponse struct {
	PromptID  string          `json:"promptId"`
	Prompt    string          `json:"prompt"`
	Reference string          `json:"reference,omitempty"`
	Response  string          `json:"response"`
	Failed    bool            `json:"failed,omitempty"`
	Score     float64         `json:"score"`
	Metrics   *metrics.Scores `json:"metrics,omitempty"`
	Reasoning string          `json:"reasoning,omitempty"`
	ScoredBy  judge.ScoredBy  `json:"scoredBy,omitempty"`
	LatencyMs int64           `json:"latencyMs"`
}

// rank fills AverageScore, TotalScore and Rank and sorts models by average,
// best first. Ties keep request order.
func rank(models []RankedModel) {
	for i := range models {
		m := &models[i]
		m.TotalScore = 0
		for _, r := range m.Responses {
			m.TotalScore += r.Score
		}
		if n := len(m.Responses); n > 0 {
			m.AverageScore = m.TotalScore / float64(n)
		}
	}
	sort.SliceStable(models, func(i, j int) bool {
		return models[i].AverageScore > models[j].AverageScore
	})
	for i := range models {
		models[i].Rank = i + 1
	}
}
