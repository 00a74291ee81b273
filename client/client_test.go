package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

func TestAnalyzeSuccess(t *testing.T) {
	var gotAuth, gotToken string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotToken = r.Header.Get("X-Idempotency-Key")
		if r.URL.Path != "/api/analyze" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"explanations":[{"slide":1,"explanation":"intro"}],"model":"m"}`))
	}))
	defer server.Close()

	c := New(Config{BaseURL: server.URL, Token: "tok"})
	outcome := c.Analyze(context.Background(), AnalyzeRequest{SlideNumbers: []int{1}, TextContents: []string{"hello"}})

	if !outcome.OK {
		t.Fatalf("expected success, got %+v", outcome.callResult)
	}
	if outcome.Attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", outcome.Attempts)
	}
	if gotAuth != "Bearer tok" {
		t.Fatalf("unexpected auth header: %q", gotAuth)
	}
	if gotToken == "" {
		t.Fatalf("expected idempotency token header")
	}
	if !strings.Contains(outcome.Render(), "intro") {
		t.Fatalf("render missing explanation: %q", outcome.Render())
	}
}

func TestRetriesStopAtAttemptBudget(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error_code":"UPSTREAM_BUSY","message":"AI server is busy"}`))
	}))
	defer server.Close()

	c := New(Config{BaseURL: server.URL})
	outcome := c.Analyze(context.Background(), AnalyzeRequest{SlideNumbers: []int{1}})

	if outcome.OK {
		t.Fatalf("expected failure")
	}
	if calls.Load() != 2 || outcome.Attempts != 2 {
		t.Fatalf("expected exactly 2 attempts, got calls=%d attempts=%d", calls.Load(), outcome.Attempts)
	}
	if outcome.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("unexpected status: %d", outcome.StatusCode)
	}
	if outcome.ErrorCode != "UPSTREAM_BUSY" {
		t.Fatalf("unexpected error code: %q", outcome.ErrorCode)
	}
	if outcome.Message != "AI server is busy" {
		t.Fatalf("unexpected message: %q", outcome.Message)
	}
}

func TestDailyLimitIsNeverRetried(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error_code":"RATE_LIMIT_EXCEEDED","message":"Daily limit reached"}`))
	}))
	defer server.Close()

	c := New(Config{BaseURL: server.URL, Attempts: 3})
	outcome := c.Analyze(context.Background(), AnalyzeRequest{SlideNumbers: []int{1}})

	if calls.Load() != 1 || outcome.Attempts != 1 {
		t.Fatalf("expected single attempt, got calls=%d attempts=%d", calls.Load(), outcome.Attempts)
	}
	if !outcome.LimitReached() {
		t.Fatalf("expected limit-reached outcome: %+v", outcome.callResult)
	}
	if outcome.Message != "Daily limit reached" {
		t.Fatalf("unexpected message: %q", outcome.Message)
	}
}

func TestServerMessageFidelity(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"message_field", `{"message":"boom"}`, "boom"},
		{"error_field", `{"error":"boom"}`, "boom"},
		{"unparsable_body", `<html>oops</html>`, "server error (status 500)"},
		{"empty_body", ``, "server error (status 500)"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer server.Close()

			c := New(Config{BaseURL: server.URL})
			outcome := c.Analyze(context.Background(), AnalyzeRequest{SlideNumbers: []int{1}})
			if outcome.OK {
				t.Fatalf("expected failure")
			}
			if outcome.Attempts != 1 {
				t.Fatalf("500 must not be retried, got %d attempts", outcome.Attempts)
			}
			if outcome.Message != tc.want {
				t.Fatalf("message = %q, want %q", outcome.Message, tc.want)
			}
			if outcome.Render() != tc.want {
				t.Fatalf("render must carry the failure message, got %q", outcome.Render())
			}
		})
	}
}

func TestTransportErrorIsRetriedThenRenderable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	c := New(Config{BaseURL: server.URL})
	outcome := c.Analyze(context.Background(), AnalyzeRequest{SlideNumbers: []int{1}})

	if outcome.OK {
		t.Fatalf("expected failure")
	}
	if outcome.Attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", outcome.Attempts)
	}
	if !strings.Contains(outcome.Message, "connection failed") {
		t.Fatalf("unexpected message: %q", outcome.Message)
	}
}

func TestIdempotencyTokenReusedAcrossRetries(t *testing.T) {
	var calls atomic.Int64
	tokens := make(chan string, 2)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokens <- r.Header.Get("X-Idempotency-Key")
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"explanations":[{"slide":1,"explanation":"ok"}],"model":"m"}`))
	}))
	defer server.Close()

	c := New(Config{BaseURL: server.URL})
	outcome := c.Analyze(context.Background(), AnalyzeRequest{SlideNumbers: []int{1}})

	if !outcome.OK || outcome.Attempts != 2 {
		t.Fatalf("expected recovery on second attempt, got %+v", outcome.callResult)
	}
	first, second := <-tokens, <-tokens
	if first == "" || first != second {
		t.Fatalf("idempotency token must be reused: %q vs %q", first, second)
	}

	next := c.Analyze(context.Background(), AnalyzeRequest{SlideNumbers: []int{1}})
	if !next.OK {
		t.Fatalf("expected success: %+v", next.callResult)
	}
	third := <-tokens
	if third == first {
		t.Fatalf("each logical call needs a fresh token")
	}
}

func TestQuizAndVoiceOutcomes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/quiz":
			_, _ = w.Write([]byte(`{"questions":[{"question":"q","options":["a","b","c","d"],"answer_index":2,"explanation":"e"}],"model":"m"}`))
		case "/api/voice-script":
			_, _ = w.Write([]byte(`{"script":"hello listeners","model":"m"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	c := New(Config{BaseURL: server.URL})

	quiz := c.Quiz(context.Background(), QuizRequest{SlideNumbers: []int{1}, QuestionCount: 1})
	if !quiz.OK || len(quiz.Questions) != 1 || quiz.Questions[0].AnswerIndex != 2 {
		t.Fatalf("unexpected quiz outcome: %+v", quiz)
	}

	voice := c.VoiceScript(context.Background(), VoiceScriptRequest{SlideNumbers: []int{1}})
	if !voice.OK || voice.Script != "hello listeners" {
		t.Fatalf("unexpected voice outcome: %+v", voice)
	}
}
