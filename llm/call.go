package llm

import (
	"context"
	"log/slog"
	"time"
)

const (
	// DefaultMaxTokens caps the length of a benchmarked answer.
	DefaultMaxTokens = 500
	// DefaultTemperature is used for benchmarked answers.
	DefaultTemperature = 0.7
)

// Outcome is the result of one model call: either the cleaned response text
// or the error that prevented it.
type Outcome struct {
	Text    string
	Err     error
	Elapsed time.Duration
	Tokens  int
}

// OK reports whether the call produced a response.
func (o Outcome) OK() bool { return o.Err == nil }

// Display is the text shown (and scored) for this call. A failed call is
// rendered as an error message so it still flows through scoring.
func (o Outcome) Display() string {
	if o.Err == nil {
		return o.Text
	}
	return "Error calling API: " + o.Err.Error()
}

// CallOption configures a single Call.
type CallOption func(*callOptions)

type callOptions struct {
	systemPrompt   string
	maxTokens      int
	temperature    float64
	timeout        time.Duration
	responseFormat string
}

// WithSystemPrompt prepends a system message.
func WithSystemPrompt(s string) CallOption {
	return func(o *callOptions) { o.systemPrompt = s }
}

// WithMaxTokens overrides the max_tokens field.
func WithMaxTokens(n int) CallOption {
	return func(o *callOptions) {
		if n > 0 {
			o.maxTokens = n
		}
	}
}

// WithTemperature overrides the sampling temperature.
func WithTemperature(t float64) CallOption {
	return func(o *callOptions) { o.temperature = t }
}

// WithTimeout bounds the whole call, retries included.
func WithTimeout(d time.Duration) CallOption {
	return func(o *callOptions) { o.timeout = d }
}

// WithJSONResponse asks the endpoint for a JSON object response.
func WithJSONResponse() CallOption {
	return func(o *callOptions) { o.responseFormat = "json_object" }
}

// Call sends prompt to ep and returns the cleaned response. It never fails:
// HTTP errors, timeouts and malformed bodies end up in Outcome.Err.
func (c *Client) Call(ctx context.Context, prompt string, ep Endpoint, opts ...CallOption) Outcome {
	o := callOptions{
		maxTokens:   DefaultMaxTokens,
		temperature: DefaultTemperature,
	}
	for _, fn := range opts {
		fn(&o)
	}

	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	msgs := make([]Message, 0, 2)
	if o.systemPrompt != "" {
		msgs = append(msgs, Message{Role: "system", Content: o.systemPrompt})
	}
	msgs = append(msgs, Message{Role: "user", Content: prompt})

	start := time.Now()
	resp, err := c.Chat(ctx, ep, ChatRequest{
		Messages:       msgs,
		MaxTokens:      o.maxTokens,
		Temperature:    o.temperature,
		ResponseFormat: o.responseFormat,
	})
	elapsed := time.Since(start)
	if err != nil {
		slog.Warn("llm: model call failed",
			"model", ep.DisplayName,
			"url", ep.BaseURL,
			"elapsed", elapsed.Round(time.Millisecond),
			"error", err)
		return Outcome{Err: err, Elapsed: elapsed}
	}

	return Outcome{
		Text:    CleanResponse(resp.Content),
		Elapsed: elapsed,
		Tokens:  resp.TotalTokens,
	}
}
