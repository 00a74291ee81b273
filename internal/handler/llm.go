package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/slidenote/server-go/internal/metrics"
)

// LLMHandler 는 LLM 호출 통계 엔드포인트를 담당한다.
type LLMHandler struct {
	metrics *metrics.Store
}

// NewLLMHandler 는 LLMHandler를 생성한다.
func NewLLMHandler(metricsStore *metrics.Store) *LLMHandler {
	return &LLMHandler{metrics: metricsStore}
}

// RegisterRoutes 는 통계 라우트를 등록한다.
func (h *LLMHandler) RegisterRoutes(router *gin.Engine) {
	router.GET("/api/llm/metrics", h.handleMetrics)
}

func (h *LLMHandler) handleMetrics(c *gin.Context) {
	totals := h.metrics.UsageTotals()
	c.JSON(http.StatusOK, gin.H{
		"providers": h.metrics.Snapshot(),
		"usage":     totals,
	})
}
