// Package client 는 분석 API 호출용 Go 클라이언트다.
// 네트워크 오류와 일시적 서버 혼잡(503)만 재시도하고,
// 어떤 경우에도 화면에 그대로 보여줄 수 있는 Outcome 을 돌려준다.
package client

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	json "github.com/goccy/go-json"
)

const (
	defaultAttempts = 2
	defaultTimeout  = 120 * time.Second

	idempotencyHeader = "X-Idempotency-Key"
)

// Config 는 클라이언트 동작 설정이다.
type Config struct {
	// BaseURL 은 서버 주소다. 예: "https://api.slidenote.app"
	BaseURL string
	// Token 은 Authorization Bearer 토큰이다. 비우면 헤더를 생략한다.
	Token string
	// Attempts 는 논리 호출당 총 시도 횟수다. 0 이하이면 2.
	Attempts int
	// HTTPClient 를 지정하지 않으면 기본 타임아웃의 클라이언트를 쓴다.
	HTTPClient *http.Client
}

// Client 는 분석 엔드포인트 호출을 감싼다.
type Client struct {
	cfg  Config
	http *http.Client
}

// New: Client 인스턴스를 생성합니다.
func New(cfg Config) *Client {
	if cfg.Attempts <= 0 {
		cfg.Attempts = defaultAttempts
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{cfg: cfg, http: httpClient}
}

// AnalyzeRequest 는 분석 요청 본문이다.
type AnalyzeRequest struct {
	SlideNumbers []int    `json:"slide_numbers"`
	TextContents []string `json:"text_contents,omitempty"`
	Mode         string   `json:"mode,omitempty"`
}

// QuizRequest 는 퀴즈 생성 요청 본문이다.
type QuizRequest struct {
	SlideNumbers  []int    `json:"slide_numbers"`
	TextContents  []string `json:"text_contents,omitempty"`
	QuestionCount int      `json:"question_count,omitempty"`
}

// VoiceScriptRequest 는 음성 스크립트 요청 본문이다.
type VoiceScriptRequest struct {
	SlideNumbers []int    `json:"slide_numbers"`
	TextContents []string `json:"text_contents,omitempty"`
}

// Analyze 는 슬라이드 분석을 호출한다. 결과는 항상 nil 이 아니다.
func (c *Client) Analyze(ctx context.Context, req AnalyzeRequest) *AnalyzeOutcome {
	outcome := &AnalyzeOutcome{}
	c.call(ctx, "/api/analyze", req, outcome)
	return outcome
}

// Quiz 는 퀴즈 생성을 호출한다. 결과는 항상 nil 이 아니다.
func (c *Client) Quiz(ctx context.Context, req QuizRequest) *QuizOutcome {
	outcome := &QuizOutcome{}
	c.call(ctx, "/api/quiz", req, outcome)
	return outcome
}

// VoiceScript 는 음성 스크립트 생성을 호출한다. 결과는 항상 nil 이 아니다.
func (c *Client) VoiceScript(ctx context.Context, req VoiceScriptRequest) *VoiceOutcome {
	outcome := &VoiceOutcome{}
	c.call(ctx, "/api/voice-script", req, outcome)
	return outcome
}

// call 은 재시도 루프를 돌며 outcome 을 채운다.
// 멱등 토큰은 논리 호출당 하나를 만들어 모든 재시도에 같은 값을 보낸다.
func (c *Client) call(ctx context.Context, path string, body any, outcome outcomeSink) {
	payload, err := json.Marshal(body)
	if err != nil {
		outcome.fail(0, "", fmt.Sprintf("invalid request: %v", err))
		return
	}

	token := newIdempotencyToken()
	retryBackoff := newRetryBackOff()

	attempts := c.cfg.Attempts
	for attempt := 1; ; attempt++ {
		outcome.recordAttempt(attempt)

		status, respBody, transportErr := c.doOnce(ctx, path, payload, token)
		if transportErr == nil && status >= 200 && status < 300 {
			outcome.succeed(status, respBody)
			return
		}

		retryable := transportErr != nil || status == http.StatusServiceUnavailable
		if !retryable || attempt >= attempts {
			if transportErr != nil {
				outcome.fail(0, "", "connection failed: "+transportErr.Error())
				return
			}
			code, message := parseErrorBody(status, respBody)
			outcome.fail(status, code, message)
			return
		}

		if !sleepWithContext(ctx, retryBackoff.NextBackOff()) {
			outcome.fail(0, "", "connection failed: "+ctx.Err().Error())
			return
		}
	}
}

func (c *Client) doOnce(ctx context.Context, path string, payload []byte, token string) (int, []byte, error) {
	url := strings.TrimRight(c.cfg.BaseURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(idempotencyHeader, token)
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, body, nil
}

// parseErrorBody 는 서버 오류 본문에서 보여줄 메시지를 고른다.
// message → error → "server error (status N)" 순서다.
func parseErrorBody(status int, body []byte) (code string, message string) {
	var parsed struct {
		ErrorCode string `json:"error_code"`
		Message   string `json:"message"`
		Error     string `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		code = parsed.ErrorCode
		if strings.TrimSpace(parsed.Message) != "" {
			return code, parsed.Message
		}
		if strings.TrimSpace(parsed.Error) != "" {
			return code, parsed.Error
		}
	}
	return code, fmt.Sprintf("server error (status %d)", status)
}

func newRetryBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.Multiplier = 2.0
	b.RandomizationFactor = 0.2
	b.MaxElapsedTime = 0
	return b
}

func sleepWithContext(ctx context.Context, wait time.Duration) bool {
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func newIdempotencyToken() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("t-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(buf)
}
