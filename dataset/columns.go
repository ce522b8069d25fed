package dataset

import "strings"

var promptKeywords = []string{
	"prompt", "question", "query", "input", "instruction", "task",
	"промпт", "вопрос", "запрос", "ввод", "инструкция", "задание", "задача",
}

var referenceKeywords = []string{
	"reference", "answer", "response", "output", "solution", "result",
	"expected", "target", "ground_truth", "truth", "correct", "ideal",
	"эталон", "ответ", "решение", "результат", "ожидаемый", "правильный", "истина",
}

var categoryKeywords = []string{
	"category", "type", "topic", "subject", "domain",
	"категория", "тема", "тип",
}

// findColumn returns the index of the first header that equals one of the
// keywords (case-insensitive), falling back to the first header that
// contains one. Columns listed in skip are never returned. -1 means none.
func findColumn(header []string, keywords []string, skip ...int) int {
	if i := matchColumn(header, keywords, skip, false); i >= 0 {
		return i
	}
	return matchColumn(header, keywords, skip, true)
}

func matchColumn(header []string, keywords []string, skip []int, substring bool) int {
	for i, h := range header {
		if skipped(i, skip) {
			continue
		}
		name := normalizeHeader(h)
		if name == "" {
			continue
		}
		for _, kw := range keywords {
			if name == kw || (substring && strings.Contains(name, kw)) {
				return i
			}
		}
	}
	return -1
}

// exactColumn finds a header equal to name, case-insensitively.
func exactColumn(header []string, name string) int {
	want := normalizeHeader(name)
	if want == "" {
		return -1
	}
	for i, h := range header {
		if normalizeHeader(h) == want {
			return i
		}
	}
	return -1
}

func skipped(i int, skip []int) bool {
	for _, s := range skip {
		if s == i {
			return true
		}
	}
	return false
}

func normalizeHeader(h string) string {
	return strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
}

// columns holds the resolved column indexes for one dataset (-1 = absent).
type columns struct {
	prompt    int
	reference int
	category  int
}

func resolveColumns(header []string, ref Ref) columns {
	c := columns{prompt: -1, reference: -1, category: -1}

	if ref.PromptColumn != "" {
		c.prompt = exactColumn(header, ref.PromptColumn)
	}
	if c.prompt < 0 {
		c.prompt = findColumn(header, promptKeywords)
	}
	if c.prompt < 0 {
		return c
	}

	if ref.ReferenceColumn != "" {
		if i := exactColumn(header, ref.ReferenceColumn); i != c.prompt {
			c.reference = i
		}
	}
	if c.reference < 0 {
		c.reference = findColumn(header, referenceKeywords, c.prompt)
	}
	c.category = matchColumn(header, categoryKeywords, []int{c.prompt, c.reference}, false)
	return c
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
