package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"google.golang.org/genai"

	"github.com/slidenote/server-go/internal/config"
	"github.com/slidenote/server-go/internal/llm"
	"github.com/slidenote/server-go/internal/metrics"
	"github.com/slidenote/server-go/internal/usage"
)

// ErrInvalidModel 는 모델이 설정되지 않았을 때 반환된다.
var ErrInvalidModel = errors.New("invalid model")

// Request 는 Gemini 요청 데이터다.
type Request struct {
	Prompt       string
	SystemPrompt string
	Model        string
	Task         string
}

// Client 는 Gemini 호출을 담당한다.
// 복수 API 키를 라운드로빈으로 순환한다.
type Client struct {
	cfg           *config.Config
	metrics       *metrics.Store
	usageRecorder *usage.Recorder
	mu            sync.Mutex
	clients       map[string]*genai.Client
	apiKeys       []string
	apiKeyIdx     int
}

// NewClient 는 Gemini 클라이언트를 생성한다.
func NewClient(cfg *config.Config, metricsStore *metrics.Store, usageRecorder *usage.Recorder) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if metricsStore == nil {
		return nil, errors.New("metrics store is nil")
	}
	return &Client{
		cfg:           cfg,
		metrics:       metricsStore,
		usageRecorder: usageRecorder,
		clients:       make(map[string]*genai.Client),
		apiKeys:       cfg.Gemini.APIKeys,
	}, nil
}

// Chat 은 텍스트 생성 요청을 수행한다.
func (c *Client) Chat(ctx context.Context, req Request) (llm.ChatResult, error) {
	start := time.Now()
	response, model, err := c.generate(ctx, req, "", nil)
	if err != nil {
		c.metrics.RecordError(llm.ProviderGemini, time.Since(start))
		return llm.ChatResult{Model: model}, classifyError(err)
	}

	text := response.Text()
	if strings.TrimSpace(text) == "" {
		c.metrics.RecordError(llm.ProviderGemini, time.Since(start))
		return llm.ChatResult{Model: model}, llm.ErrEmptyResponse
	}

	used := extractUsage(response)
	c.metrics.RecordSuccess(llm.ProviderGemini, time.Since(start), used)
	c.recordUsage(ctx, used)
	return llm.ChatResult{Text: text, Model: model, Usage: used}, nil
}

// Structured 는 JSON 스키마 기반 응답을 반환한다.
func (c *Client) Structured(ctx context.Context, req Request, schema map[string]any) (map[string]any, llm.ChatResult, error) {
	start := time.Now()
	response, model, err := c.generate(ctx, req, "application/json", schema)
	if err != nil {
		c.metrics.RecordError(llm.ProviderGemini, time.Since(start))
		return nil, llm.ChatResult{Model: model}, classifyError(err)
	}

	used := extractUsage(response)
	c.metrics.RecordSuccess(llm.ProviderGemini, time.Since(start), used)
	c.recordUsage(ctx, used)

	payload := response.Text()
	if strings.TrimSpace(payload) == "" {
		return nil, llm.ChatResult{Model: model, Usage: used}, llm.ErrEmptyResponse
	}

	var parsed map[string]any
	if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
		return nil, llm.ChatResult{Model: model, Usage: used}, fmt.Errorf("decode structured response: %w", err)
	}

	return parsed, llm.ChatResult{Text: payload, Model: model, Usage: used}, nil
}

func (c *Client) recordUsage(ctx context.Context, used llm.Usage) {
	if c.usageRecorder == nil {
		return
	}
	c.usageRecorder.Record(ctx, llm.ProviderGemini, used)
}

func (c *Client) generate(
	ctx context.Context,
	req Request,
	responseMimeType string,
	responseSchema map[string]any,
) (*genai.GenerateContentResponse, string, error) {
	client, err := c.selectClient(ctx)
	if err != nil {
		return nil, "", err
	}

	model := req.Model
	if model == "" {
		model = c.cfg.Gemini.ModelForTask(req.Task)
	}
	if model == "" {
		return nil, "", ErrInvalidModel
	}

	generateConfig := c.buildGenerateConfig(req.SystemPrompt, responseMimeType, responseSchema)
	contents := []*genai.Content{genai.NewContentFromText(req.Prompt, genai.RoleUser)}
	response, err := client.Models.GenerateContent(ctx, model, contents, generateConfig)
	if err != nil {
		return nil, model, fmt.Errorf("generate content: %w", err)
	}
	return response, model, nil
}

func (c *Client) selectClient(ctx context.Context) (*genai.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.apiKeys) == 0 {
		return nil, llm.ErrMissingAPIKey
	}

	key := c.apiKeys[c.apiKeyIdx%len(c.apiKeys)]
	c.apiKeyIdx++
	if client, ok := c.clients[key]; ok {
		return client, nil
	}

	timeout := time.Duration(c.cfg.Gemini.TimeoutSeconds) * time.Second
	client, err := genai.NewClient(context.WithoutCancel(ctx), &genai.ClientConfig{
		APIKey:  key,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			Timeout: genai.Ptr(timeout),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	c.clients[key] = client
	return client, nil
}

func (c *Client) buildGenerateConfig(
	systemPrompt string,
	responseMimeType string,
	responseSchema map[string]any,
) *genai.GenerateContentConfig {
	generateConfig := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(c.cfg.Gemini.Temperature)),
		MaxOutputTokens: int32(c.cfg.Gemini.MaxOutputTokens),
	}

	if systemPrompt != "" {
		generateConfig.SystemInstruction = genai.NewContentFromText(systemPrompt, genai.RoleUser)
	}
	if responseMimeType != "" {
		generateConfig.ResponseMIMEType = responseMimeType
	}
	if responseSchema != nil {
		generateConfig.ResponseJsonSchema = responseSchema
	}

	return generateConfig
}

// classifyError 는 상류 오류를 재시도 가능 여부 기준으로 분류한다.
// 429와 5xx, 타임아웃은 일시 장애로 본다.
func classifyError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, llm.ErrMissingAPIKey) || errors.Is(err, ErrInvalidModel) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", llm.ErrUpstreamBusy, err)
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code == 429 || apiErr.Code >= 500 {
			return fmt.Errorf("%w: %w", llm.ErrUpstreamBusy, err)
		}
	}
	return err
}

func extractUsage(response *genai.GenerateContentResponse) llm.Usage {
	if response == nil || response.UsageMetadata == nil {
		return llm.Usage{}
	}
	meta := response.UsageMetadata
	return llm.Usage{
		InputTokens:     int(meta.PromptTokenCount),
		OutputTokens:    int(meta.CandidatesTokenCount) + int(meta.ThoughtsTokenCount),
		TotalTokens:     int(meta.TotalTokenCount),
		ReasoningTokens: int(meta.ThoughtsTokenCount),
	}
}
