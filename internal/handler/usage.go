package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/slidenote/server-go/internal/config"
	"github.com/slidenote/server-go/internal/httperror"
	"github.com/slidenote/server-go/internal/ledger"
	"github.com/slidenote/server-go/internal/middleware"
)

// UsageHandler 는 호출자의 잔여 한도 조회를 담당한다.
type UsageHandler struct {
	cfg    *config.Config
	ledger UsageLedger
}

// NewUsageHandler 는 UsageHandler를 생성한다.
func NewUsageHandler(cfg *config.Config, usageLedger UsageLedger) *UsageHandler {
	return &UsageHandler{cfg: cfg, ledger: usageLedger}
}

// RegisterRoutes 는 사용량 라우트를 등록한다.
func (h *UsageHandler) RegisterRoutes(router *gin.Engine) {
	router.GET("/api/usage/me", h.handleUsageMe)
}

// handleUsageMe 는 과금 없이 두 구간의 현재 사용량을 반환한다.
func (h *UsageHandler) handleUsageMe(c *gin.Context) {
	userID := middleware.GetUserID(c)
	ctx := c.Request.Context()

	analysis, err := h.ledger.Peek(ctx, userID, ledger.ScopeAnalysis, h.cfg.Quota.AnalysisDailyLimit)
	if err != nil {
		writeError(c, httperror.NewLedgerError("usage ledger unavailable"))
		return
	}
	voice, err := h.ledger.Peek(ctx, userID, ledger.ScopeVoice, h.cfg.Quota.VoiceDailyLimit)
	if err != nil {
		writeError(c, httperror.NewLedgerError("usage ledger unavailable"))
		return
	}

	c.JSON(http.StatusOK, UsageResponse{
		UserID:   userID,
		Date:     time.Now().UTC().Format("2006-01-02"),
		Analysis: ScopeUsage{Used: analysis.Count, Limit: analysis.Limit, Remaining: analysis.Remaining},
		Voice:    ScopeUsage{Used: voice.Count, Limit: voice.Limit, Remaining: voice.Remaining},
	})
}
