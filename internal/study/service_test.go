package study

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/slidenote/server-go/internal/config"
	"github.com/slidenote/server-go/internal/gemini"
	"github.com/slidenote/server-go/internal/groq"
	"github.com/slidenote/server-go/internal/httperror"
	"github.com/slidenote/server-go/internal/llm"
	"github.com/slidenote/server-go/internal/randx"
	"github.com/slidenote/server-go/internal/resultcache"
)

type fakeGroq struct {
	calls int64
	err   error
}

func (f *fakeGroq) Chat(_ context.Context, req groq.Request) (llm.ChatResult, error) {
	atomic.AddInt64(&f.calls, 1)
	if f.err != nil {
		return llm.ChatResult{}, f.err
	}
	return llm.ChatResult{
		Text:  "Explained: " + req.Prompt,
		Model: "llama-3.3-70b-versatile",
		Usage: llm.Usage{InputTokens: 1, OutputTokens: 2, TotalTokens: 3},
	}, nil
}

type fakeGemini struct {
	chatText   string
	structured map[string]any
	err        error
}

func (f *fakeGemini) Chat(_ context.Context, _ gemini.Request) (llm.ChatResult, error) {
	if f.err != nil {
		return llm.ChatResult{}, f.err
	}
	return llm.ChatResult{Text: f.chatText, Model: "gemini-2.5-flash"}, nil
}

func (f *fakeGemini) Structured(_ context.Context, _ gemini.Request, _ map[string]any) (map[string]any, llm.ChatResult, error) {
	if f.err != nil {
		return nil, llm.ChatResult{}, f.err
	}
	return f.structured, llm.ChatResult{Model: "gemini-2.5-flash"}, nil
}

func newTestCache(t *testing.T) *resultcache.Store {
	t.Helper()
	cfg := &config.Config{}
	cfg.ResultCache.Enabled = true
	cfg.ResultCache.TTLMinutes = 60
	cfg.ResultCache.MaxMemoryEntries = 100

	store, err := resultcache.NewStore(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return store
}

func newTestService(t *testing.T, groqClient groq.LLM, geminiClient gemini.LLM, cache *resultcache.Store) *Service {
	t.Helper()
	prompts, err := NewPrompts()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return New(&config.Config{}, groqClient, geminiClient, nil, cache, prompts, nil)
}

func slidesFixture(count int) []Slide {
	slides := make([]Slide, 0, count)
	for i := 1; i <= count; i++ {
		slides = append(slides, Slide{Number: i, Text: fmt.Sprintf("Slide %d content about thermodynamics.", i)})
	}
	return slides
}

func TestAnalyzePerSlideOrder(t *testing.T) {
	groqClient := &fakeGroq{}
	service := newTestService(t, groqClient, &fakeGemini{}, newTestCache(t))

	result, err := service.Analyze(context.Background(), "req-1", slidesFixture(3), ModeSimple)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Explanations) != 3 {
		t.Fatalf("expected 3 explanations, got %d", len(result.Explanations))
	}
	for i, explanation := range result.Explanations {
		if explanation.Slide != i+1 {
			t.Fatalf("expected explanation %d for slide %d, got %d", i, i+1, explanation.Slide)
		}
		if !strings.Contains(explanation.Explanation, fmt.Sprintf("Slide %d", i+1)) {
			t.Fatalf("explanation %d does not reference its slide: %q", i, explanation.Explanation)
		}
	}
	if result.Model != "llama-3.3-70b-versatile" {
		t.Fatalf("unexpected model: %s", result.Model)
	}
	if got := atomic.LoadInt64(&groqClient.calls); got != 3 {
		t.Fatalf("expected 3 upstream calls, got %d", got)
	}
}

func TestAnalyzeServesRepeatsFromCache(t *testing.T) {
	groqClient := &fakeGroq{}
	service := newTestService(t, groqClient, &fakeGemini{}, newTestCache(t))
	slides := slidesFixture(2)

	if _, err := service.Analyze(context.Background(), "req-1", slides, ModeDeep); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := service.Analyze(context.Background(), "req-2", slides, ModeDeep); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := atomic.LoadInt64(&groqClient.calls); got != 2 {
		t.Fatalf("expected cached repeat to avoid upstream calls, got %d", got)
	}

	// 다른 모드는 캐시를 공유하지 않는다.
	if _, err := service.Analyze(context.Background(), "req-3", slides, ModeExam); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := atomic.LoadInt64(&groqClient.calls); got != 4 {
		t.Fatalf("expected new mode to call upstream, got %d", got)
	}
}

func TestAnalyzeInvalidInput(t *testing.T) {
	service := newTestService(t, &fakeGroq{}, &fakeGemini{}, newTestCache(t))

	if _, err := service.Analyze(context.Background(), "req-1", nil, ModeSimple); err == nil {
		t.Fatalf("expected error for empty slides")
	}

	_, err := service.Analyze(context.Background(), "req-1", slidesFixture(1), "verbose")
	var httpErr *httperror.Error
	if !errors.As(err, &httpErr) || httpErr.Code != httperror.ErrorCodeInvalidInput {
		t.Fatalf("expected invalid input error, got %v", err)
	}

	_, err = service.Analyze(context.Background(), "req-1", []Slide{{Number: 1, Text: "   "}}, ModeSimple)
	if !errors.As(err, &httpErr) || httpErr.Code != httperror.ErrorCodeInvalidInput {
		t.Fatalf("expected invalid input for blank slide, got %v", err)
	}
}

func TestAnalyzeUpstreamFailure(t *testing.T) {
	groqClient := &fakeGroq{err: llm.ErrUpstreamBusy}
	service := newTestService(t, groqClient, &fakeGemini{}, newTestCache(t))

	_, err := service.Analyze(context.Background(), "req-1", slidesFixture(1), ModeSimple)
	if !errors.Is(err, llm.ErrUpstreamBusy) {
		t.Fatalf("expected upstream busy, got %v", err)
	}
}

func TestQuizParsesQuestions(t *testing.T) {
	geminiClient := &fakeGemini{
		structured: map[string]any{
			"questions": []any{
				map[string]any{
					"question":     "What does entropy measure?",
					"options":      []any{"Disorder", "Pressure", "Mass", "Charge"},
					"answer_index": float64(0),
					"explanation":  "Entropy measures disorder.",
				},
			},
		},
	}
	service := newTestService(t, &fakeGroq{}, geminiClient, newTestCache(t))

	result, err := service.Quiz(context.Background(), "req-1", slidesFixture(2), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Questions) != 1 {
		t.Fatalf("expected 1 question, got %d", len(result.Questions))
	}
	question := result.Questions[0]
	if len(question.Options) != 4 {
		t.Fatalf("unexpected question: %+v", question)
	}
	if question.Options[question.AnswerIndex] != "Disorder" {
		t.Fatalf("answer index must follow the correct option after shuffling: %+v", question)
	}
	if result.Model != "gemini-2.5-flash" {
		t.Fatalf("unexpected model: %s", result.Model)
	}
}

func TestQuizRejectsMalformedPayload(t *testing.T) {
	geminiClient := &fakeGemini{
		structured: map[string]any{
			"questions": []any{
				map[string]any{
					"question":     "Broken",
					"options":      []any{"a", "b"},
					"answer_index": float64(5),
					"explanation":  "",
				},
			},
		},
	}
	service := newTestService(t, &fakeGroq{}, geminiClient, newTestCache(t))

	_, err := service.Quiz(context.Background(), "req-1", slidesFixture(1), 3)
	var httpErr *httperror.Error
	if !errors.As(err, &httpErr) || httpErr.Code != httperror.ErrorCodeLLMParsing {
		t.Fatalf("expected parsing error, got %v", err)
	}
}

func TestVoiceScript(t *testing.T) {
	geminiClient := &fakeGemini{chatText: "Welcome back. Today we cover entropy.\n"}
	service := newTestService(t, &fakeGroq{}, geminiClient, newTestCache(t))

	result, err := service.VoiceScript(context.Background(), "req-1", slidesFixture(2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Script != "Welcome back. Today we cover entropy." {
		t.Fatalf("unexpected script: %q", result.Script)
	}
	if result.Model != "gemini-2.5-flash" {
		t.Fatalf("unexpected model: %s", result.Model)
	}
}

func TestValidMode(t *testing.T) {
	for _, mode := range []string{ModeSimple, ModeDeep, ModeExam} {
		if !ValidMode(mode) {
			t.Fatalf("expected %s to be valid", mode)
		}
	}
	if ValidMode("verbose") || ValidMode("") {
		t.Fatalf("unexpected valid mode")
	}
}

func TestShuffleOptionsKeepsAnswerAligned(t *testing.T) {
	rng := randx.New(rand.New(rand.NewPCG(7, 11)))
	questions := []QuizQuestion{
		{
			Question:    "q1",
			Options:     []string{"right", "w1", "w2", "w3"},
			AnswerIndex: 0,
		},
		{
			Question:    "q2",
			Options:     []string{"w1", "w2", "right", "w3"},
			AnswerIndex: 2,
		},
	}

	shuffleOptions(questions, rng)

	for i, q := range questions {
		if len(q.Options) != 4 {
			t.Fatalf("question %d lost options: %+v", i, q)
		}
		if q.Options[q.AnswerIndex] != "right" {
			t.Fatalf("question %d answer index drifted: %+v", i, q)
		}
	}
}
