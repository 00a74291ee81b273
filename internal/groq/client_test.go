package groq

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/slidenote/server-go/internal/config"
	"github.com/slidenote/server-go/internal/llm"
	"github.com/slidenote/server-go/internal/metrics"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	cfg := &config.Config{}
	cfg.Groq.APIKey = "test-key"
	cfg.Groq.BaseURL = baseURL
	cfg.Groq.Model = "llama-3.3-70b-versatile"
	cfg.Groq.TimeoutSeconds = 5

	client, err := NewClient(cfg, metrics.NewStore(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return client
}

func TestChatSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected authorization header: %s", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"model": "llama-3.3-70b-versatile",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "The slide covers entropy."}}],
			"usage": {"prompt_tokens": 12, "completion_tokens": 34, "total_tokens": 46}
		}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	result, err := client.Chat(context.Background(), Request{
		Prompt:       "Explain slide 1",
		SystemPrompt: "You explain slides.",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Text != "The slide covers entropy." {
		t.Fatalf("unexpected text: %q", result.Text)
	}
	if result.Usage.InputTokens != 12 || result.Usage.OutputTokens != 34 {
		t.Fatalf("unexpected usage: %+v", result.Usage)
	}
}

func TestChatUpstreamBusy(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error": {"message": "model overloaded", "type": "server_error"}}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.Chat(context.Background(), Request{Prompt: "hi"})
	if !errors.Is(err, llm.ErrUpstreamBusy) {
		t.Fatalf("expected upstream busy, got %v", err)
	}
}

func TestChatUpstreamRateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"message": "rate limit", "type": "tokens"}}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.Chat(context.Background(), Request{Prompt: "hi"})
	if !errors.Is(err, llm.ErrUpstreamBusy) {
		t.Fatalf("expected upstream busy for upstream 429, got %v", err)
	}
}

func TestChatBadRequestIsTerminal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": {"message": "invalid model", "type": "invalid_request_error"}}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.Chat(context.Background(), Request{Prompt: "hi"})
	if err == nil || errors.Is(err, llm.ErrUpstreamBusy) {
		t.Fatalf("expected terminal error, got %v", err)
	}
}

func TestChatEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": "chatcmpl-2", "model": "m", "choices": []}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.Chat(context.Background(), Request{Prompt: "hi"})
	if !errors.Is(err, llm.ErrEmptyResponse) {
		t.Fatalf("expected empty response error, got %v", err)
	}
}

func TestChatMissingAPIKey(t *testing.T) {
	cfg := &config.Config{}
	cfg.Groq.BaseURL = "http://127.0.0.1:0"

	client, err := NewClient(cfg, metrics.NewStore(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := client.Chat(context.Background(), Request{Prompt: "hi"}); !errors.Is(err, llm.ErrMissingAPIKey) {
		t.Fatalf("expected missing api key error, got %v", err)
	}
}
