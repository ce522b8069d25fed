package llm

import (
	"context"
	"strings"
)

// Caller sends a single prompt to a model endpoint. Implementations never
// return an error: failures are carried inside the Outcome so a benchmark
// can keep going when one model misbehaves.
type Caller interface {
	Call(ctx context.Context, prompt string, ep Endpoint, opts ...CallOption) Outcome
}

// Endpoint describes one callable model.
type Endpoint struct {
	ID          string `json:"id" yaml:"id"`
	DisplayName string `json:"display_name" yaml:"display_name"`
	// Model is sent as the "model" field of the request. Defaults to
	// DisplayName when empty.
	Model    string `json:"model,omitempty" yaml:"model,omitempty"`
	Provider string `json:"provider,omitempty" yaml:"provider,omitempty"`
	BaseURL  string `json:"base_url" yaml:"base_url"`
	APIKey   string `json:"-" yaml:"api_key,omitempty"`
}

// HasAPI reports whether the endpoint can be called at all.
func (e Endpoint) HasAPI() bool {
	return strings.TrimSpace(e.BaseURL) != ""
}

// ModelName returns the value sent as the request's model field.
func (e Endpoint) ModelName() string {
	if e.Model != "" {
		return e.Model
	}
	return e.DisplayName
}

// ChatRequest is a chat completion request.
type ChatRequest struct {
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	// ResponseFormat can be set to "json_object" for JSON mode.
	ResponseFormat string `json:"response_format,omitempty"`
}

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatResponse is the response from a chat completion.
type ChatResponse struct {
	Content          string `json:"content"`
	Model            string `json:"model"`
	FinishReason     string `json:"finish_reason"`
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
	TotalTokens      int    `json:"total_tokens"`
}

// defaultBaseURLs maps well-known providers to their OpenAI-compatible base
// URL, including the version prefix.
var defaultBaseURLs = map[string]string{
	"openai":     "https://api.openai.com/v1",
	"groq":       "https://api.groq.com/openai/v1",
	"openrouter": "https://openrouter.ai/api/v1",
	"xai":        "https://api.x.ai/v1",
	"gemini":     "https://generativelanguage.googleapis.com/v1beta/openai",
	"ollama":     "http://localhost:11434/v1",
	"lmstudio":   "http://localhost:1234/v1",
}

// DefaultBaseURL returns the base URL for a well-known provider, or "" when
// the provider is unknown or custom.
func DefaultBaseURL(provider string) string {
	return defaultBaseURLs[strings.ToLower(strings.TrimSpace(provider))]
}
