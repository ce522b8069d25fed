package llm

import (
	"regexp"
	"strings"
)

var (
	thinkBlockRe = regexp.MustCompile(`(?is)<think>.*?</think>`)
	thinkOpenRe  = regexp.MustCompile(`(?is)<think>.*$`)
)

// CleanResponse removes <think>...</think> blocks that some models (e.g.
// Qwen3, DeepSeek-R1) wrap their reasoning in, then trims leading
// whitespace. An unclosed <think> tag strips everything after it.
func CleanResponse(s string) string {
	s = thinkBlockRe.ReplaceAllString(s, "")
	s = thinkOpenRe.ReplaceAllString(s, "")
	return strings.TrimLeft(s, " \t\r\n")
}
