package gemini

import (
	"context"
	"errors"
	"testing"

	"google.golang.org/genai"

	"github.com/slidenote/server-go/internal/config"
	"github.com/slidenote/server-go/internal/llm"
	"github.com/slidenote/server-go/internal/metrics"
)

func TestExtractUsage(t *testing.T) {
	response := &genai.GenerateContentResponse{
		UsageMetadata: &genai.GenerateContentResponseUsageMetadata{
			PromptTokenCount:     10,
			CandidatesTokenCount: 20,
			ThoughtsTokenCount:   3,
			TotalTokenCount:      33,
		},
	}
	used := extractUsage(response)
	if used.InputTokens != 10 {
		t.Fatalf("unexpected input tokens: %d", used.InputTokens)
	}
	if used.OutputTokens != 23 {
		t.Fatalf("unexpected output tokens: %d", used.OutputTokens)
	}
	if used.TotalTokens != 33 {
		t.Fatalf("unexpected total tokens: %d", used.TotalTokens)
	}
	if used.ReasoningTokens != 3 {
		t.Fatalf("unexpected reasoning tokens: %d", used.ReasoningTokens)
	}

	if got := extractUsage(nil); got != (llm.Usage{}) {
		t.Fatalf("expected zero usage for nil response")
	}
}

func TestClassifyError(t *testing.T) {
	if classifyError(nil) != nil {
		t.Fatalf("expected nil")
	}

	busy := classifyError(genai.APIError{Code: 503, Message: "overloaded"})
	if !errors.Is(busy, llm.ErrUpstreamBusy) {
		t.Fatalf("expected 503 to classify as upstream busy, got %v", busy)
	}

	quota := classifyError(genai.APIError{Code: 429, Message: "quota"})
	if !errors.Is(quota, llm.ErrUpstreamBusy) {
		t.Fatalf("expected upstream 429 to classify as upstream busy, got %v", quota)
	}

	badRequest := classifyError(genai.APIError{Code: 400, Message: "bad schema"})
	if errors.Is(badRequest, llm.ErrUpstreamBusy) {
		t.Fatalf("did not expect 400 to classify as upstream busy")
	}

	timeout := classifyError(context.DeadlineExceeded)
	if !errors.Is(timeout, llm.ErrUpstreamBusy) {
		t.Fatalf("expected timeout to classify as upstream busy, got %v", timeout)
	}

	if !errors.Is(classifyError(llm.ErrMissingAPIKey), llm.ErrMissingAPIKey) {
		t.Fatalf("expected missing key to pass through")
	}
}

func TestChatWithoutAPIKey(t *testing.T) {
	cfg := &config.Config{}
	cfg.Gemini.QuizModel = "gemini-2.5-flash"

	client, err := NewClient(cfg, metrics.NewStore(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = client.Chat(context.Background(), Request{Prompt: "hello", Task: "quiz"})
	if !errors.Is(err, llm.ErrMissingAPIKey) {
		t.Fatalf("expected missing api key error, got %v", err)
	}
}

func TestGenerateWithoutModel(t *testing.T) {
	cfg := &config.Config{}
	cfg.Gemini.APIKeys = []string{"test-key"}
	cfg.Gemini.TimeoutSeconds = 1

	client, err := NewClient(cfg, metrics.NewStore(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = client.Chat(context.Background(), Request{Prompt: "hello", Task: "quiz"})
	if !errors.Is(err, ErrInvalidModel) {
		t.Fatalf("expected invalid model error, got %v", err)
	}
}
