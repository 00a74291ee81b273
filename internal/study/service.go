package study

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/slidenote/server-go/internal/config"
	"github.com/slidenote/server-go/internal/gemini"
	"github.com/slidenote/server-go/internal/groq"
	"github.com/slidenote/server-go/internal/guard"
	"github.com/slidenote/server-go/internal/handler/shared"
	"github.com/slidenote/server-go/internal/httperror"
	"github.com/slidenote/server-go/internal/randx"
	"github.com/slidenote/server-go/internal/resultcache"
)

// 슬라이드 여러 장을 동시에 분석할 때의 상한.
const maxConcurrentSlides = 4

// Service: 슬라이드 분석/퀴즈/음성 스크립트 비즈니스 로직 구현체입니다.
type Service struct {
	cfg     *config.Config
	groq    groq.LLM
	gemini  gemini.LLM
	guard   *guard.InjectionGuard
	cache   *resultcache.Store
	prompts *Prompts
	logger  *slog.Logger
	rng     *randx.LockedRand
}

// New: Service 인스턴스를 생성합니다.
func New(
	cfg *config.Config,
	groqClient groq.LLM,
	geminiClient gemini.LLM,
	injectionGuard *guard.InjectionGuard,
	cache *resultcache.Store,
	prompts *Prompts,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		cfg:     cfg,
		groq:    groqClient,
		gemini:  geminiClient,
		guard:   injectionGuard,
		cache:   cache,
		prompts: prompts,
		logger:  logger,
		rng:     randx.NewSeeded(),
	}
}

// Analyze 는 슬라이드별 설명을 생성한다. 여러 장은 동시에 처리한다.
func (s *Service) Analyze(ctx context.Context, requestID string, slides []Slide, mode string) (AnalyzeResult, error) {
	if s == nil || s.groq == nil || s.prompts == nil {
		return AnalyzeResult{}, httperror.NewInternalError("service not configured")
	}
	if len(slides) == 0 {
		return AnalyzeResult{}, httperror.NewInvalidInput("slide_numbers required")
	}
	if !ValidMode(mode) {
		return AnalyzeResult{}, httperror.NewInvalidInput(fmt.Sprintf("invalid mode: %s", mode))
	}
	if err := s.ensureSafeSlides(requestID, slides); err != nil {
		return AnalyzeResult{}, err
	}

	system, err := s.prompts.AnalyzeSystem(mode)
	if err != nil {
		s.logError("analyze_system_prompt_failed", err)
		return AnalyzeResult{}, httperror.NewInternalError("load analyze system prompt failed")
	}

	explanations := make([]SlideExplanation, len(slides))
	models := make([]string, len(slides))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(maxConcurrentSlides)
	for i, slide := range slides {
		group.Go(func() error {
			entry, err := s.analyzeSlide(groupCtx, system, mode, slide)
			if err != nil {
				return err
			}
			explanations[i] = SlideExplanation{Slide: slide.Number, Explanation: entry.Explanation}
			models[i] = entry.Model
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return AnalyzeResult{}, err
	}

	s.logInfo(
		"analyze_completed",
		"request_id", requestID,
		"mode", mode,
		"slide_count", len(slides),
	)
	return AnalyzeResult{Explanations: explanations, Model: firstNonEmpty(models)}, nil
}

func (s *Service) analyzeSlide(ctx context.Context, system string, mode string, slide Slide) (resultcache.Entry, error) {
	if entry, found := s.cache.Get(ctx, mode, slide.Text); found {
		return entry, nil
	}

	userContent, err := s.prompts.AnalyzeUser(slide.Number, slide.Text)
	if err != nil {
		s.logError("analyze_user_prompt_failed", err)
		return resultcache.Entry{}, httperror.NewInternalError("format analyze user prompt failed")
	}

	result, err := s.groq.Chat(ctx, groq.Request{
		Prompt:       userContent,
		SystemPrompt: system,
	})
	if err != nil {
		return resultcache.Entry{}, fmt.Errorf("analyze slide %d: %w", slide.Number, err)
	}

	entry := resultcache.Entry{Explanation: strings.TrimSpace(result.Text), Model: result.Model}
	s.cache.Set(ctx, mode, slide.Text, entry)
	return entry, nil
}

// Quiz 는 슬라이드 묶음에서 4지선다 퀴즈를 생성한다.
func (s *Service) Quiz(ctx context.Context, requestID string, slides []Slide, questionCount int) (QuizResult, error) {
	if s == nil || s.gemini == nil || s.prompts == nil {
		return QuizResult{}, httperror.NewInternalError("service not configured")
	}
	if len(slides) == 0 {
		return QuizResult{}, httperror.NewInvalidInput("slide_numbers required")
	}
	if questionCount <= 0 {
		questionCount = 5
	}
	if questionCount > 10 {
		questionCount = 10
	}
	if err := s.ensureSafeSlides(requestID, slides); err != nil {
		return QuizResult{}, err
	}

	system, err := s.prompts.QuizSystem()
	if err != nil {
		s.logError("quiz_system_prompt_failed", err)
		return QuizResult{}, httperror.NewInternalError("load quiz system prompt failed")
	}
	userContent, err := s.prompts.QuizUser(slides, questionCount)
	if err != nil {
		s.logError("quiz_user_prompt_failed", err)
		return QuizResult{}, httperror.NewInternalError("format quiz user prompt failed")
	}

	payload, chat, err := s.gemini.Structured(ctx, gemini.Request{
		Prompt:       userContent,
		SystemPrompt: system,
		Task:         "quiz",
	}, QuizSchema())
	if err != nil {
		return QuizResult{}, fmt.Errorf("quiz structured: %w", err)
	}

	questions, err := parseQuestions(payload)
	if err != nil {
		s.logError("quiz_parse_failed", err)
		return QuizResult{}, httperror.NewLLMParsingError("invalid quiz response")
	}
	shuffleOptions(questions, s.rng)

	s.logInfo(
		"quiz_completed",
		"request_id", requestID,
		"slide_count", len(slides),
		"question_count", len(questions),
	)
	return QuizResult{Questions: questions, Model: chat.Model}, nil
}

// VoiceScript 는 슬라이드 묶음의 내레이션 스크립트를 생성한다.
func (s *Service) VoiceScript(ctx context.Context, requestID string, slides []Slide) (VoiceScriptResult, error) {
	if s == nil || s.gemini == nil || s.prompts == nil {
		return VoiceScriptResult{}, httperror.NewInternalError("service not configured")
	}
	if len(slides) == 0 {
		return VoiceScriptResult{}, httperror.NewInvalidInput("slide_numbers required")
	}
	if err := s.ensureSafeSlides(requestID, slides); err != nil {
		return VoiceScriptResult{}, err
	}

	system, err := s.prompts.VoiceSystem()
	if err != nil {
		s.logError("voice_system_prompt_failed", err)
		return VoiceScriptResult{}, httperror.NewInternalError("load voice system prompt failed")
	}
	userContent, err := s.prompts.VoiceUser(slides)
	if err != nil {
		s.logError("voice_user_prompt_failed", err)
		return VoiceScriptResult{}, httperror.NewInternalError("format voice user prompt failed")
	}

	result, err := s.gemini.Chat(ctx, gemini.Request{
		Prompt:       userContent,
		SystemPrompt: system,
		Task:         "voice",
	})
	if err != nil {
		return VoiceScriptResult{}, fmt.Errorf("voice script: %w", err)
	}

	s.logInfo(
		"voice_script_completed",
		"request_id", requestID,
		"slide_count", len(slides),
	)
	return VoiceScriptResult{Script: strings.TrimSpace(result.Text), Model: result.Model}, nil
}

func (s *Service) ensureSafeSlides(requestID string, slides []Slide) error {
	for _, slide := range slides {
		if strings.TrimSpace(slide.Text) == "" {
			return httperror.NewInvalidInput(fmt.Sprintf("slide %d has no text", slide.Number))
		}
		if s.guard == nil {
			continue
		}
		if err := s.guard.EnsureSafe(slide.Text); err != nil {
			s.logWarn(
				"slide_guard_blocked",
				"request_id", requestID,
				"slide", slide.Number,
			)
			return fmt.Errorf("guard slide %d: %w", slide.Number, err)
		}
	}
	return nil
}

func parseQuestions(payload map[string]any) ([]QuizQuestion, error) {
	raw, ok := payload["questions"]
	if !ok {
		return nil, fmt.Errorf("missing field questions")
	}

	var questions []QuizQuestion
	if err := shared.Decode(raw, &questions); err != nil {
		return nil, fmt.Errorf("decode questions: %w", err)
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("empty questions")
	}
	for i, question := range questions {
		if question.AnswerIndex < 0 || question.AnswerIndex >= len(question.Options) {
			return nil, fmt.Errorf("question %d: answer index out of range", i)
		}
	}
	return questions, nil
}

// shuffleOptions 는 보기 순서를 섞는다. 모델이 정답을 특정 위치에
// 몰아 놓는 편향을 없애고 answer_index 를 함께 옮긴다.
func shuffleOptions(questions []QuizQuestion, rng *randx.LockedRand) {
	if rng == nil {
		return
	}
	for qi := range questions {
		q := &questions[qi]
		answer := q.AnswerIndex
		perm := rng.Perm(len(q.Options))
		shuffled := make([]string, len(q.Options))
		for newPos, oldPos := range perm {
			shuffled[newPos] = q.Options[oldPos]
			if oldPos == answer {
				q.AnswerIndex = newPos
			}
		}
		q.Options = shuffled
	}
}

func firstNonEmpty(values []string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}

func (s *Service) logError(event string, err error) {
	if s.logger == nil {
		return
	}
	s.logger.Error(event, "err", err)
}

func (s *Service) logWarn(event string, fields ...any) {
	if s.logger == nil {
		return
	}
	s.logger.Warn(event, fields...)
}

func (s *Service) logInfo(event string, fields ...any) {
	if s.logger == nil {
		return
	}
	s.logger.Info(event, fields...)
}
