// Package judge asks a judge model to grade benchmark answers and turns its
// free-text reply into scores. Judges are LLMs and do not always honour a
// JSON instruction, so parsing degrades from strict JSON to regex scraping
// to an undetermined verdict instead of failing.
package judge

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// ScoredBy records which parsing tier produced a verdict.
type ScoredBy string

const (
	ScoredByJSON         ScoredBy = "json"
	ScoredByRegex        ScoredBy = "regex"
	ScoredByUndetermined ScoredBy = "undetermined"
)

// Winner is the outcome of a pairwise comparison.
type Winner string

const (
	WinnerA   Winner = "A"
	WinnerB   Winner = "B"
	WinnerTie Winner = "tie"
)

// excerptLen bounds the raw judge text kept on undetermined verdicts.
const excerptLen = 200

// CriterionScore holds one criterion's score for both models.
type CriterionScore struct {
	Model1 float64 `json:"model1"`
	Model2 float64 `json:"model2"`
}

// PairwiseVerdict is the parsed result of a pairwise judgement.
type PairwiseVerdict struct {
	Model1Score    float64                   `json:"model1_score"`
	Model2Score    float64                   `json:"model2_score"`
	Winner         Winner                    `json:"winner"`
	WinnerText     string                    `json:"winner_text,omitempty"`
	Reasoning      string                    `json:"reasoning"`
	CriteriaScores map[string]CriterionScore `json:"criteria_scores"`
	ScoredBy       ScoredBy                  `json:"scored_by"`
}

// ReferenceScore is the parsed result of a reference-answer judgement.
type ReferenceScore struct {
	Score     float64  `json:"score"`
	Reasoning string   `json:"reasoning"`
	ScoredBy  ScoredBy `json:"scored_by"`
}

var (
	jsonObjectRe = regexp.MustCompile(`(?s)\{.*\}`)

	numberPattern = `(\d+(?:[.,]\d+)?)`
	// Matches "Model A: 8" as well as the JSON key shape "model1_score": 8.
	modelAScoreRe = regexp.MustCompile(`(?i)(?:model|модель)[\s_-]*(?:a|1|а)(?:[\s_-]*score)?["']?\s*[:=]\s*["']?` + numberPattern)
	modelBScoreRe = regexp.MustCompile(`(?i)(?:model|модель)[\s_-]*(?:b|2|б)(?:[\s_-]*score)?["']?\s*[:=]\s*["']?` + numberPattern)

	singleScoreRe = regexp.MustCompile(`(?i)(?:score|оценка)["']?\s*[:=]\s*` + numberPattern)
	outOfTenRe    = regexp.MustCompile(numberPattern + `\s*/\s*10\b`)

	winnerModelRe = regexp.MustCompile(`(?i)(?:^|[^\p{L}\p{N}])(?:model|модель)[\s_-]*([ab12аб])(?:$|[^\p{L}\p{N}])`)
)

var (
	pairwiseSchema = mustSchema("pairwise.json", `{
		"type": "object",
		"required": ["model1_score", "model2_score", "winner", "reasoning", "criteria_scores"],
		"properties": {
			"model1_score": {"type": ["number", "string"]},
			"model2_score": {"type": ["number", "string"]}
		}
	}`)

	singleSchema = mustSchema("single.json", `{
		"type": "object",
		"required": ["score", "reasoning"],
		"properties": {
			"score": {"type": ["number", "string"]}
		}
	}`)
)

func mustSchema(name, src string) *jsonschema.Schema {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(src))
	if err != nil {
		panic(fmt.Sprintf("judge: schema %s: %v", name, err))
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(name, doc); err != nil {
		panic(fmt.Sprintf("judge: schema %s: %v", name, err))
	}
	return c.MustCompile(name)
}

// decodeObject pulls a JSON object out of raw judge text. The greedy brace
// span is tried first, then the whole text. The object is returned only if
// it satisfies schema.
func decodeObject(raw string, schema *jsonschema.Schema) (map[string]any, bool) {
	candidates := make([]string, 0, 2)
	if m := jsonObjectRe.FindString(raw); m != "" {
		candidates = append(candidates, m)
	}
	candidates = append(candidates, strings.TrimSpace(raw))

	for _, c := range candidates {
		v, err := jsonschema.UnmarshalJSON(strings.NewReader(c))
		if err != nil {
			continue
		}
		obj, ok := v.(map[string]any)
		if !ok {
			continue
		}
		if err := schema.Validate(obj); err != nil {
			continue
		}
		return obj, true
	}
	return nil, false
}

// ParsePairwise parses a pairwise judgement. nameA and nameB are the display
// names shown to the judge; they help resolve a winner given by name.
// criteria is used to stub criterion scores when the reply is not JSON.
func ParsePairwise(raw string, criteria []string, nameA, nameB string) PairwiseVerdict {
	if obj, ok := decodeObject(raw, pairwiseSchema); ok {
		v := PairwiseVerdict{
			Model1Score:    toFloat(obj["model1_score"]),
			Model2Score:    toFloat(obj["model2_score"]),
			WinnerText:     toString(obj["winner"]),
			Reasoning:      toString(obj["reasoning"]),
			CriteriaScores: toCriteria(obj["criteria_scores"]),
			ScoredBy:       ScoredByJSON,
		}
		v.Winner = resolveWinner(v.WinnerText, nameA, nameB, v.Model1Score, v.Model2Score)
		return v
	}

	a, okA := firstNumber(modelAScoreRe, raw)
	b, okB := firstNumber(modelBScoreRe, raw)
	if okA && okB {
		return PairwiseVerdict{
			Model1Score:    a,
			Model2Score:    b,
			Winner:         byScore(a, b),
			Reasoning:      raw,
			CriteriaScores: zeroCriteria(criteria),
			ScoredBy:       ScoredByRegex,
		}
	}

	return PairwiseVerdict{
		Winner:         WinnerTie,
		Reasoning:      "Could not determine a verdict from the judge response: " + excerpt(raw),
		CriteriaScores: zeroCriteria(criteria),
		ScoredBy:       ScoredByUndetermined,
	}
}

// ParseSingle parses a reference-comparison judgement carrying one score.
func ParseSingle(raw string) ReferenceScore {
	if obj, ok := decodeObject(raw, singleSchema); ok {
		return ReferenceScore{
			Score:     toFloat(obj["score"]),
			Reasoning: toString(obj["reasoning"]),
			ScoredBy:  ScoredByJSON,
		}
	}

	if s, ok := firstNumber(singleScoreRe, raw); ok {
		return ReferenceScore{Score: s, Reasoning: raw, ScoredBy: ScoredByRegex}
	}
	if s, ok := firstNumber(outOfTenRe, raw); ok {
		return ReferenceScore{Score: s, Reasoning: raw, ScoredBy: ScoredByRegex}
	}

	return ReferenceScore{
		Reasoning: "Could not determine a score from the judge response: " + excerpt(raw),
		ScoredBy:  ScoredByUndetermined,
	}
}

// resolveWinner maps the judge's winner text onto a position. Unrecognised
// or ambiguous text falls back to the scores.
func resolveWinner(text, nameA, nameB string, scoreA, scoreB float64) Winner {
	w := strings.ToLower(strings.TrimSpace(text))
	a := strings.ToLower(strings.TrimSpace(nameA))
	b := strings.ToLower(strings.TrimSpace(nameB))

	switch {
	case w == "":
		return byScore(scoreA, scoreB)
	case a != b && a != "" && w == a:
		return WinnerA
	case a != b && b != "" && w == b:
		return WinnerB
	case w == "a" || w == "1" || w == "а":
		return WinnerA
	case w == "b" || w == "2" || w == "б":
		return WinnerB
	case w == "tie" || w == "draw" || w == "ничья":
		return WinnerTie
	}

	var saysA, saysB bool
	for _, m := range winnerModelRe.FindAllStringSubmatch(w, -1) {
		switch m[1] {
		case "a", "1", "а":
			saysA = true
		case "b", "2", "б":
			saysB = true
		}
	}
	if !saysA && !saysB && a != b {
		saysA = a != "" && strings.Contains(w, a) && !strings.Contains(b, a)
		saysB = b != "" && strings.Contains(w, b) && !strings.Contains(a, b)
	}

	switch {
	case saysA && !saysB:
		return WinnerA
	case saysB && !saysA:
		return WinnerB
	default:
		return byScore(scoreA, scoreB)
	}
}

func byScore(a, b float64) Winner {
	switch {
	case a > b:
		return WinnerA
	case b > a:
		return WinnerB
	default:
		return WinnerTie
	}
}

func firstNumber(re *regexp.Regexp, s string) (float64, bool) {
	m := re.FindStringSubmatch(s)
	if len(m) < 2 {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.Replace(m[1], ",", ".", 1), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// toFloat accepts the number shapes judges emit: JSON numbers or numeric
// strings such as "8" or "7.5/10".
func toFloat(v any) float64 {
	switch n := v.(type) {
	case json.Number:
		f, _ := n.Float64()
		return f
	case float64:
		return n
	case int:
		return float64(n)
	case string:
		s := strings.TrimSpace(n)
		if i := strings.Index(s, "/"); i >= 0 {
			s = strings.TrimSpace(s[:i])
		}
		f, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
		if err != nil {
			return 0
		}
		return f
	}
	return 0
}

func toString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case json.Number:
		return s.String()
	default:
		return fmt.Sprint(s)
	}
}

func toCriteria(v any) map[string]CriterionScore {
	out := make(map[string]CriterionScore)
	m, ok := v.(map[string]any)
	if !ok {
		return out
	}
	for name, raw := range m {
		scores, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		out[name] = CriterionScore{
			Model1: toFloat(scores["model1"]),
			Model2: toFloat(scores["model2"]),
		}
	}
	return out
}

func zeroCriteria(criteria []string) map[string]CriterionScore {
	out := make(map[string]CriterionScore, len(criteria))
	for _, c := range criteria {
		out[c] = CriterionScore{}
	}
	return out
}

func excerpt(s string) string {
	if utf8.RuneCountInString(s) <= excerptLen {
		return s
	}
	return string([]rune(s)[:excerptLen-3]) + "..."
}
