// Package benchmark runs comparison procedures over dataset prompts: blind
// pairwise voting, judge pairwise evaluation, judge scoring against
// reference answers and automatic similarity metrics.
package benchmark

import (
	"fmt"
	"strings"
)

// Kind identifies a comparison procedure.
type Kind string

const (
	BlindTest           Kind = "blind_test"
	JudgeEval           Kind = "judge_eval"
	ReferenceComparison Kind = "reference_comparison"
	MetricsComparison   Kind = "metrics_comparison"
)

// legacyJudgeEval is the id older clients send for JudgeEval.
const legacyJudgeEval = "gpt4o_eval"

// precedence orders the kinds a mixed request may run; the first selected
// one wins.
var precedence = []Kind{BlindTest, JudgeEval, ReferenceComparison, MetricsComparison}

// ParseKind maps a benchmark id onto a Kind.
func ParseKind(s string) (Kind, error) {
	id := strings.ToLower(strings.TrimSpace(s))
	if id == legacyJudgeEval {
		return JudgeEval, nil
	}
	k := Kind(id)
	if !k.Valid() {
		return "", fmt.Errorf("unknown benchmark %q", s)
	}
	return k, nil
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case BlindTest, JudgeEval, ReferenceComparison, MetricsComparison:
		return true
	}
	return false
}

// NeedsJudge reports whether the procedure calls a judge model.
func (k Kind) NeedsJudge() bool {
	return k == JudgeEval || k == ReferenceComparison
}

// Info describes a procedure for listings.
type Info struct {
	ID          Kind   `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	NeedsJudge  bool   `json:"needsJudge"`
	MinModels   int    `json:"minModels"`
}

// Catalog lists the available procedures.
func Catalog() []Info {
	return []Info{
		{
			ID:          BlindTest,
			Name:        "Blind test",
			Description: "Two models answer every prompt in shuffled positions; you vote for the better answer before their names are revealed.",
			MinModels:   2,
		},
		{
			ID:          JudgeEval,
			Name:        "Judge evaluation",
			Description: "A judge model compares the answers of two models on accuracy, helpfulness and clarity.",
			NeedsJudge:  true,
			MinModels:   2,
		},
		{
			ID:          ReferenceComparison,
			Name:        "Reference comparison",
			Description: "A judge model scores each answer from 1 to 10 against the dataset's reference answer.",
			NeedsJudge:  true,
			MinModels:   1,
		},
		{
			ID:          MetricsComparison,
			Name:        "Metrics comparison",
			Description: "Answers are scored against reference answers with ROUGE, semantic and BERTScore-style similarity.",
			MinModels:   1,
		},
	}
}
