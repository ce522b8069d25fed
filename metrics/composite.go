package metrics

// Weights controls how the three similarity scores are combined. They are
// not normalised: the caller decides whether they sum to 1.
type Weights struct {
	Rouge     float64 `json:"rouge" yaml:"rouge"`
	Semantic  float64 `json:"semantic" yaml:"semantic"`
	BertScore float64 `json:"bertScore" yaml:"bert_score"`
}

// DefaultWeights returns the 0.4 / 0.3 / 0.3 split.
func DefaultWeights() Weights {
	return Weights{Rouge: 0.4, Semantic: 0.3, BertScore: 0.3}
}

// Scores holds the three similarity values for one response.
type Scores struct {
	Rouge     float64 `json:"rouge"`
	Semantic  float64 `json:"semantic"`
	BertScore float64 `json:"bertScore"`
}

// Score computes all three metrics for candidate against reference.
func Score(reference, candidate string) Scores {
	return Scores{
		Rouge:     Rouge(reference, candidate),
		Semantic:  Semantic(reference, candidate),
		BertScore: BertScore(reference, candidate),
	}
}

// Composite returns 10 * the weighted sum of the clamped scores.
func Composite(s Scores, w Weights) float64 {
	return 10 * (w.Rouge*clamp(s.Rouge) +
		w.Semantic*clamp(s.Semantic) +
		w.BertScore*clamp(s.BertScore))
}
