package llm

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ConnectionResult reports whether an endpoint answered a short test prompt.
type ConnectionResult struct {
	Success   bool          `json:"success"`
	Message   string        `json:"message"`
	Response  string        `json:"response,omitempty"`
	Latency   time.Duration `json:"-"`
	LatencyMs int64         `json:"latency_ms"`
}

const connectionPrompt = "Hello, this is a test. Please respond with 'Connection successful'."

// TestConnection sends a tiny prompt to ep and reports the outcome.
func (c *Client) TestConnection(ctx context.Context, ep Endpoint, timeout time.Duration) ConnectionResult {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	out := c.Call(ctx, connectionPrompt, ep, WithMaxTokens(10), WithTimeout(timeout))

	res := ConnectionResult{Latency: out.Elapsed, LatencyMs: out.Elapsed.Milliseconds()}
	if out.OK() {
		res.Success = true
		res.Response = out.Text
		res.Message = fmt.Sprintf("Connection successful! Response time: %.2fs", out.Elapsed.Seconds())
		return res
	}

	var se *StatusError
	switch {
	case errors.As(out.Err, &se):
		res.Message = fmt.Sprintf("API returned status code %d: %s", se.Code, truncate(se.Body, 200))
	case errors.Is(out.Err, context.DeadlineExceeded):
		res.Message = fmt.Sprintf("Connection timed out after %s", timeout)
	default:
		res.Message = "Connection error: " + out.Err.Error()
	}
	return res
}
