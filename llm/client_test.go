package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// chatServer returns a test server that answers every request with the
// given status and body, recording the last decoded request.
func chatServer(t *testing.T, status int, body string, seen *chatCompletionRequest, auth *string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if auth != nil {
			*auth = r.Header.Get("Authorization")
		}
		if seen != nil {
			data, _ := io.ReadAll(r.Body)
			if err := json.Unmarshal(data, seen); err != nil {
				t.Errorf("decoding request: %v", err)
			}
		}
		w.WriteHeader(status)
		io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCallSuccess(t *testing.T) {
	var seen chatCompletionRequest
	var auth string
	srv := chatServer(t, http.StatusOK,
		`{"model":"m","choices":[{"message":{"content":"<think>reasoning</think>Actual answer"}}],"usage":{"total_tokens":12}}`,
		&seen, &auth)

	c := NewClient(ClientConfig{})
	ep := Endpoint{ID: "custom_1", DisplayName: "local", BaseURL: srv.URL + "/v1/", APIKey: "sk-test"}
	out := c.Call(context.Background(), "What is Go?", ep, WithSystemPrompt("Be brief."))

	if !out.OK() {
		t.Fatalf("unexpected error: %v", out.Err)
	}
	if out.Text != "Actual answer" {
		t.Errorf("Text = %q, want %q", out.Text, "Actual answer")
	}
	if out.Tokens != 12 {
		t.Errorf("Tokens = %d, want 12", out.Tokens)
	}
	if auth != "Bearer sk-test" {
		t.Errorf("Authorization = %q, want bearer token", auth)
	}
	if seen.Model != "local" {
		t.Errorf("model = %q, want display name", seen.Model)
	}
	if seen.MaxTokens != DefaultMaxTokens {
		t.Errorf("max_tokens = %d, want %d", seen.MaxTokens, DefaultMaxTokens)
	}
	if seen.Temperature != DefaultTemperature {
		t.Errorf("temperature = %v, want %v", seen.Temperature, DefaultTemperature)
	}
	if len(seen.Messages) != 2 || seen.Messages[0].Role != "system" || seen.Messages[1].Role != "user" {
		t.Fatalf("messages = %+v, want system then user", seen.Messages)
	}
	if seen.Messages[1].Content != "What is Go?" {
		t.Errorf("user content = %q", seen.Messages[1].Content)
	}
}

func TestCallNoAPIKeyOmitsAuthorization(t *testing.T) {
	auth := "unset"
	srv := chatServer(t, http.StatusOK, `{"choices":[{"message":{"content":"hi"}}]}`, nil, &auth)

	c := NewClient(ClientConfig{})
	out := c.Call(context.Background(), "hello", Endpoint{DisplayName: "m", BaseURL: srv.URL + "/v1"})
	if !out.OK() {
		t.Fatalf("unexpected error: %v", out.Err)
	}
	if auth != "" {
		t.Errorf("Authorization = %q, want empty", auth)
	}
}

func TestCallTextFallback(t *testing.T) {
	srv := chatServer(t, http.StatusOK, `{"choices":[{"text":"  completion text"}]}`, nil, nil)

	c := NewClient(ClientConfig{})
	out := c.Call(context.Background(), "hello", Endpoint{DisplayName: "m", BaseURL: srv.URL + "/v1"})
	if !out.OK() {
		t.Fatalf("unexpected error: %v", out.Err)
	}
	if out.Text != "completion text" {
		t.Errorf("Text = %q, want %q", out.Text, "completion text")
	}
}

func TestCallServerErrorIsEmbedded(t *testing.T) {
	srv := chatServer(t, http.StatusInternalServerError, `{"error":"boom"}`, nil, nil)

	c := NewClient(ClientConfig{})
	out := c.Call(context.Background(), "hello", Endpoint{DisplayName: "m", BaseURL: srv.URL + "/v1"})
	if out.OK() {
		t.Fatal("expected failed outcome for HTTP 500")
	}
	var se *StatusError
	if !errors.As(out.Err, &se) || se.Code != http.StatusInternalServerError {
		t.Errorf("Err = %v, want StatusError 500", out.Err)
	}
	if !strings.Contains(out.Display(), "500") {
		t.Errorf("Display() = %q, want it to mention 500", out.Display())
	}
}

func TestCallEmptyChoices(t *testing.T) {
	srv := chatServer(t, http.StatusOK, `{"choices":[]}`, nil, nil)

	c := NewClient(ClientConfig{})
	out := c.Call(context.Background(), "hello", Endpoint{DisplayName: "m", BaseURL: srv.URL + "/v1"})
	if out.OK() {
		t.Fatal("expected failure for empty choices")
	}
	if !strings.Contains(out.Display(), "no choices") {
		t.Errorf("Display() = %q", out.Display())
	}
}

func TestCallConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClient(ClientConfig{Timeout: 2 * time.Second})
	out := c.Call(context.Background(), "hello", Endpoint{DisplayName: "m", BaseURL: url})
	if out.OK() {
		t.Fatal("expected failure for closed server")
	}
	if !strings.HasPrefix(out.Display(), "Error calling API: ") {
		t.Errorf("Display() = %q", out.Display())
	}
}

func TestCallWithoutEndpoint(t *testing.T) {
	c := NewClient(ClientConfig{})
	out := c.Call(context.Background(), "hello", Endpoint{DisplayName: "offline"})
	if out.OK() {
		t.Fatal("expected failure for endpoint without base URL")
	}
}

func TestCallTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{})
	out := c.Call(context.Background(), "hello", Endpoint{DisplayName: "m", BaseURL: srv.URL},
		WithTimeout(50*time.Millisecond))
	if !errors.Is(out.Err, context.DeadlineExceeded) {
		t.Errorf("Err = %v, want deadline exceeded", out.Err)
	}
}

func TestCallNoRetryByDefault(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{})
	out := c.Call(context.Background(), "hello", Endpoint{DisplayName: "m", BaseURL: srv.URL})
	if out.OK() {
		t.Fatal("expected failure")
	}
	if got := hits.Load(); got != 1 {
		t.Errorf("server hit %d times, want exactly 1", got)
	}
}

func TestCallRetriesWhenConfigured(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		io.WriteString(w, `{"choices":[{"message":{"content":"third time"}}]}`)
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{MaxRetries: 3, BaseRetryDelay: time.Millisecond})
	out := c.Call(context.Background(), "hello", Endpoint{DisplayName: "m", BaseURL: srv.URL})
	if !out.OK() {
		t.Fatalf("unexpected error: %v", out.Err)
	}
	if out.Text != "third time" {
		t.Errorf("Text = %q", out.Text)
	}
	if got := hits.Load(); got != 3 {
		t.Errorf("server hit %d times, want 3", got)
	}
}

func TestCallDoesNotRetryClientErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{MaxRetries: 3, BaseRetryDelay: time.Millisecond})
	out := c.Call(context.Background(), "hello", Endpoint{DisplayName: "m", BaseURL: srv.URL})
	if out.OK() {
		t.Fatal("expected failure")
	}
	if got := hits.Load(); got != 1 {
		t.Errorf("server hit %d times, want 1", got)
	}
}

func TestCallJSONResponseFormat(t *testing.T) {
	var seen chatCompletionRequest
	srv := chatServer(t, http.StatusOK, `{"choices":[{"message":{"content":"{}"}}]}`, &seen, nil)

	c := NewClient(ClientConfig{})
	c.Call(context.Background(), "judge", Endpoint{DisplayName: "judge", BaseURL: srv.URL + "/v1"},
		WithJSONResponse(), WithTemperature(0.3), WithMaxTokens(1000))

	if seen.ResponseFormat == nil || seen.ResponseFormat.Type != "json_object" {
		t.Errorf("response_format = %+v, want json_object", seen.ResponseFormat)
	}
	if seen.Temperature != 0.3 {
		t.Errorf("temperature = %v, want 0.3", seen.Temperature)
	}
	if seen.MaxTokens != 1000 {
		t.Errorf("max_tokens = %d, want 1000", seen.MaxTokens)
	}
}

func TestTestConnection(t *testing.T) {
	ok := chatServer(t, http.StatusOK, `{"choices":[{"message":{"content":"Connection successful"}}]}`, nil, nil)
	bad := chatServer(t, http.StatusForbidden, `denied`, nil, nil)

	c := NewClient(ClientConfig{})

	res := c.TestConnection(context.Background(), Endpoint{DisplayName: "m", BaseURL: ok.URL + "/v1"}, time.Second)
	if !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}
	if res.Response != "Connection successful" {
		t.Errorf("Response = %q", res.Response)
	}

	res = c.TestConnection(context.Background(), Endpoint{DisplayName: "m", BaseURL: bad.URL + "/v1"}, time.Second)
	if res.Success {
		t.Fatal("expected failure for 403")
	}
	if !strings.Contains(res.Message, "403") {
		t.Errorf("Message = %q, want status code", res.Message)
	}
}
