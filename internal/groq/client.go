package groq

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/slidenote/server-go/internal/config"
	"github.com/slidenote/server-go/internal/llm"
	"github.com/slidenote/server-go/internal/metrics"
	"github.com/slidenote/server-go/internal/usage"
)

// Request 는 Groq 채팅 요청 데이터다.
type Request struct {
	Prompt       string
	SystemPrompt string
	Model        string
}

// Client 는 Groq(OpenAI 호환) 채팅 완성 호출을 담당한다.
type Client struct {
	cfg           *config.Config
	api           *openai.Client
	metrics       *metrics.Store
	usageRecorder *usage.Recorder
}

// NewClient 는 Groq 클라이언트를 생성한다.
func NewClient(cfg *config.Config, metricsStore *metrics.Store, usageRecorder *usage.Recorder) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if metricsStore == nil {
		return nil, errors.New("metrics store is nil")
	}

	clientConfig := openai.DefaultConfig(cfg.Groq.APIKey)
	clientConfig.BaseURL = cfg.Groq.BaseURL
	if cfg.Groq.TimeoutSeconds > 0 {
		clientConfig.HTTPClient = &http.Client{Timeout: time.Duration(cfg.Groq.TimeoutSeconds) * time.Second}
	}

	return &Client{
		cfg:           cfg,
		api:           openai.NewClientWithConfig(clientConfig),
		metrics:       metricsStore,
		usageRecorder: usageRecorder,
	}, nil
}

// Chat 은 채팅 완성 요청을 수행한다.
func (c *Client) Chat(ctx context.Context, req Request) (llm.ChatResult, error) {
	start := time.Now()

	if c.cfg.Groq.APIKey == "" {
		return llm.ChatResult{}, llm.ErrMissingAPIKey
	}

	model := req.Model
	if model == "" {
		model = c.cfg.Groq.Model
	}

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemPrompt,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	response, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: float32(c.cfg.Groq.Temperature),
		MaxTokens:   c.cfg.Groq.MaxTokens,
	})
	if err != nil {
		c.metrics.RecordError(llm.ProviderGroq, time.Since(start))
		return llm.ChatResult{Model: model}, classifyError(err)
	}

	if len(response.Choices) == 0 || strings.TrimSpace(response.Choices[0].Message.Content) == "" {
		c.metrics.RecordError(llm.ProviderGroq, time.Since(start))
		return llm.ChatResult{Model: model}, llm.ErrEmptyResponse
	}

	used := llm.Usage{
		InputTokens:  response.Usage.PromptTokens,
		OutputTokens: response.Usage.CompletionTokens,
		TotalTokens:  response.Usage.TotalTokens,
	}
	c.metrics.RecordSuccess(llm.ProviderGroq, time.Since(start), used)
	if c.usageRecorder != nil {
		c.usageRecorder.Record(ctx, llm.ProviderGroq, used)
	}

	return llm.ChatResult{
		Text:  response.Choices[0].Message.Content,
		Model: response.Model,
		Usage: used,
	}, nil
}

// classifyError 는 상류 오류를 재시도 가능 여부 기준으로 분류한다.
// 429와 5xx, 타임아웃, 연결 실패는 일시 장애로 본다.
func classifyError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", llm.ErrUpstreamBusy, err)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode >= 500 {
			return fmt.Errorf("%w: %w", llm.ErrUpstreamBusy, err)
		}
		return err
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %w", llm.ErrUpstreamBusy, err)
	}
	return err
}
