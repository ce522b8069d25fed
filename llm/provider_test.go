package llm

import "testing"

func TestDefaultBaseURL(t *testing.T) {
	tests := []struct {
		provider string
		want     string
	}{
		{"openai", "https://api.openai.com/v1"},
		{"OpenAI", "https://api.openai.com/v1"},
		{"groq", "https://api.groq.com/openai/v1"},
		{"openrouter", "https://openrouter.ai/api/v1"},
		{"xai", "https://api.x.ai/v1"},
		{"ollama", "http://localhost:11434/v1"},
		{"lmstudio", "http://localhost:1234/v1"},
		{"custom", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			if got := DefaultBaseURL(tt.provider); got != tt.want {
				t.Errorf("DefaultBaseURL(%q) = %q, want %q", tt.provider, got, tt.want)
			}
		})
	}
}

func TestEndpointModelName(t *testing.T) {
	ep := Endpoint{DisplayName: "Qwen 7B"}
	if got := ep.ModelName(); got != "Qwen 7B" {
		t.Errorf("ModelName() = %q, want display name", got)
	}
	ep.Model = "qwen2.5:7b"
	if got := ep.ModelName(); got != "qwen2.5:7b" {
		t.Errorf("ModelName() = %q, want %q", got, "qwen2.5:7b")
	}
}

func TestEndpointHasAPI(t *testing.T) {
	if (Endpoint{}).HasAPI() {
		t.Error("empty endpoint should not have an API")
	}
	if (Endpoint{BaseURL: "   "}).HasAPI() {
		t.Error("blank base URL should not count as an API")
	}
	if !(Endpoint{BaseURL: "http://localhost:8000/v1"}).HasAPI() {
		t.Error("endpoint with base URL should have an API")
	}
}

func TestCleanResponse(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Actual answer", "Actual answer"},
		{"think block", "<think>reasoning</think>Actual answer", "Actual answer"},
		{"multiline think", "<think>\nstep 1\nstep 2\n</think>\n\n  Actual answer", "Actual answer"},
		{"upper case tags", "<THINK>hidden</Think>Answer", "Answer"},
		{"two blocks", "<think>a</think>One <think>b</think>Two", "One Two"},
		{"unclosed", "Answer <think>never closed", "Answer "},
		{"leading whitespace", "\n\t  hello", "hello"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanResponse(tt.in); got != tt.want {
				t.Errorf("CleanResponse(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
