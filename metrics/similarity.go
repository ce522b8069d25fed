// Package metrics implements the cheap, deterministic text-similarity
// scores used by the metrics comparison benchmark. None of them need an
// embedding model: they are lexical stand-ins for ROUGE-L, embedding cosine
// similarity and BERTScore.
package metrics

import (
	"math"
	"regexp"
	"strings"
)

// wordRe matches Unicode word tokens so Cyrillic text tokenizes the same way
// as Latin text.
var wordRe = regexp.MustCompile(`[\p{L}\p{N}_]+`)

// Tokenize lower-cases text and splits it on word boundaries.
func Tokenize(text string) []string {
	return wordRe.FindAllString(strings.ToLower(text), -1)
}

// Rouge returns the LCS-based F1 between reference and candidate tokens
// (ROUGE-L style). Empty input or no common subsequence yields 0.
func Rouge(reference, candidate string) float64 {
	ref := Tokenize(reference)
	cand := Tokenize(candidate)
	if len(ref) == 0 || len(cand) == 0 {
		return 0
	}

	lcs := lcsLength(ref, cand)
	if lcs == 0 {
		return 0
	}

	precision := float64(lcs) / float64(len(cand))
	recall := float64(lcs) / float64(len(ref))
	return clamp(2 * precision * recall / (precision + recall))
}

// lcsLength is the classic O(n*m) dynamic program, kept to two rows.
func lcsLength(a, b []string) int {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
			} else if prev[j] >= curr[j-1] {
				curr[j] = prev[j]
			} else {
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

// Semantic returns the cosine similarity of the word-frequency vectors of
// the two texts. Zero-magnitude input yields 0.
func Semantic(reference, candidate string) float64 {
	a := termFrequencies(Tokenize(reference))
	b := termFrequencies(Tokenize(candidate))
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	// Counts are integers, so every sum below is exact and the result is
	// symmetric and exactly 1 for identical texts.
	var dot, normA, normB int
	for w, ca := range a {
		normA += ca * ca
		dot += ca * b[w]
	}
	for _, cb := range b {
		normB += cb * cb
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return clamp(float64(dot) / math.Sqrt(float64(normA)*float64(normB)))
}

func termFrequencies(tokens []string) map[string]int {
	tf := make(map[string]int, len(tokens))
	for _, t := range tokens {
		tf[t]++
	}
	return tf
}

// BertScore is a BERTScore proxy: Jaccard similarity of the token sets
// multiplied by the ratio of the shorter to the longer token sequence, so a
// short answer that shares every word with a long reference still loses
// points.
func BertScore(reference, candidate string) float64 {
	ref := Tokenize(reference)
	cand := Tokenize(candidate)
	if len(ref) == 0 || len(cand) == 0 {
		return 0
	}

	refSet := make(map[string]struct{}, len(ref))
	for _, t := range ref {
		refSet[t] = struct{}{}
	}
	candSet := make(map[string]struct{}, len(cand))
	for _, t := range cand {
		candSet[t] = struct{}{}
	}

	intersection := 0
	for t := range refSet {
		if _, ok := candSet[t]; ok {
			intersection++
		}
	}
	union := len(refSet) + len(candSet) - intersection
	if union == 0 {
		return 0
	}
	jaccard := float64(intersection) / float64(union)

	shorter, longer := len(ref), len(cand)
	if shorter > longer {
		shorter, longer = longer, shorter
	}
	return clamp(jaccard * float64(shorter) / float64(longer))
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
