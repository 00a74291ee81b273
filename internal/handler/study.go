package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/slidenote/server-go/internal/config"
	"github.com/slidenote/server-go/internal/httperror"
	"github.com/slidenote/server-go/internal/ledger"
	"github.com/slidenote/server-go/internal/middleware"
	"github.com/slidenote/server-go/internal/study"
)

// idempotencyHeader 로 전달된 토큰은 재시도 시 이중 과금을 막는다.
const idempotencyHeader = "X-Idempotency-Key"

// StudyService 는 핸들러가 사용하는 비즈니스 로직 인터페이스다.
// 테스트에서 mock 구현을 주입할 수 있도록 한다.
type StudyService interface {
	Analyze(ctx context.Context, requestID string, slides []study.Slide, mode string) (study.AnalyzeResult, error)
	Quiz(ctx context.Context, requestID string, slides []study.Slide, questionCount int) (study.QuizResult, error)
	VoiceScript(ctx context.Context, requestID string, slides []study.Slide) (study.VoiceScriptResult, error)
}

// UsageLedger 는 핸들러가 사용하는 원장 인터페이스다.
type UsageLedger interface {
	Check(ctx context.Context, userID string, scope ledger.Scope, limit int, idempotencyToken string) (ledger.Decision, error)
	Peek(ctx context.Context, userID string, scope ledger.Scope, limit int) (ledger.Decision, error)
}

// StudyHandler 는 분석/퀴즈/음성 스크립트 엔드포인트를 담당한다.
type StudyHandler struct {
	cfg     *config.Config
	service StudyService
	ledger  UsageLedger
	logger  *slog.Logger
}

// NewStudyHandler 는 StudyHandler를 생성한다.
func NewStudyHandler(cfg *config.Config, service StudyService, usageLedger UsageLedger, logger *slog.Logger) *StudyHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &StudyHandler{
		cfg:     cfg,
		service: service,
		ledger:  usageLedger,
		logger:  logger,
	}
}

// RegisterRoutes 는 분석 라우트를 등록한다.
func (h *StudyHandler) RegisterRoutes(router *gin.Engine) {
	router.POST("/api/analyze", h.handleAnalyze)
	router.POST("/api/quiz", h.handleQuiz)
	router.POST("/api/voice-script", h.handleVoiceScript)
}

func (h *StudyHandler) handleAnalyze(c *gin.Context) {
	var req AnalyzeRequest
	if !bindJSON(c, &req) {
		return
	}

	mode := strings.TrimSpace(req.Mode)
	if mode == "" {
		mode = study.ModeSimple
	}

	slides, err := buildSlides(req.SlideNumbers, req.TextContents)
	if err != nil {
		writeError(c, err)
		return
	}
	if !h.charge(c, ledger.ScopeAnalysis, h.cfg.Quota.AnalysisDailyLimit) {
		return
	}

	result, err := h.service.Analyze(c.Request.Context(), middleware.GetRequestID(c), slides, mode)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *StudyHandler) handleQuiz(c *gin.Context) {
	var req QuizRequest
	if !bindJSON(c, &req) {
		return
	}

	slides, err := buildSlides(req.SlideNumbers, req.TextContents)
	if err != nil {
		writeError(c, err)
		return
	}
	// 퀴즈는 분석과 같은 일일 한도를 공유한다.
	if !h.charge(c, ledger.ScopeAnalysis, h.cfg.Quota.AnalysisDailyLimit) {
		return
	}

	result, err := h.service.Quiz(c.Request.Context(), middleware.GetRequestID(c), slides, req.QuestionCount)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *StudyHandler) handleVoiceScript(c *gin.Context) {
	var req VoiceScriptRequest
	if !bindJSON(c, &req) {
		return
	}

	slides, err := buildSlides(req.SlideNumbers, req.TextContents)
	if err != nil {
		writeError(c, err)
		return
	}
	if !h.charge(c, ledger.ScopeVoice, h.cfg.Quota.VoiceDailyLimit) {
		return
	}

	result, err := h.service.VoiceScript(c.Request.Context(), middleware.GetRequestID(c), slides)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// charge 는 요청 한 건을 원장에 과금한다. 거부나 저장소 장애 시 응답을 쓰고
// false를 반환한다. 저장소 장애는 허용으로 넘어가지 않는다.
func (h *StudyHandler) charge(c *gin.Context, scope ledger.Scope, limit int) bool {
	userID := middleware.GetUserID(c)
	token := strings.TrimSpace(c.GetHeader(idempotencyHeader))

	decision, err := h.ledger.Check(c.Request.Context(), userID, scope, limit, token)
	if err != nil {
		h.logger.Error("ledger_check_failed", "scope", scope, "err", err)
		writeError(c, httperror.NewLedgerError("usage ledger unavailable"))
		return false
	}
	if !decision.Admitted {
		h.logger.Info(
			"daily_limit_denied",
			"request_id", middleware.GetRequestID(c),
			"scope", scope,
			"count", decision.Count,
			"limit", decision.Limit,
		)
		writeError(c, httperror.NewDailyLimitReached(map[string]any{
			"scope": string(scope),
			"limit": decision.Limit,
		}))
		return false
	}
	return true
}

func buildSlides(slideNumbers []int, textContents []string) ([]study.Slide, error) {
	if len(textContents) != len(slideNumbers) {
		return nil, httperror.NewInvalidInput("text_contents must match slide_numbers")
	}

	slides := make([]study.Slide, 0, len(slideNumbers))
	for i, number := range slideNumbers {
		slides = append(slides, study.Slide{Number: number, Text: textContents[i]})
	}
	return slides, nil
}
