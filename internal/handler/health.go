package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/slidenote/server-go/internal/config"
	"github.com/slidenote/server-go/internal/health"
	"github.com/slidenote/server-go/internal/ledger"
)

// RegisterHealthRoutes: 상태 확인 라우트를 등록합니다.
func RegisterHealthRoutes(router *gin.Engine, cfg *config.Config, store *ledger.Store) {
	router.GET("/health", func(c *gin.Context) {
		// Liveness: 외부 의존성 상태로 다운 판정되지 않도록 shallow로 유지합니다.
		payload := health.Collect(c.Request.Context(), cfg, store, false)
		c.JSON(http.StatusOK, payload)
	})

	router.GET("/health/ready", func(c *gin.Context) {
		payload := health.Collect(c.Request.Context(), cfg, store, true)
		status := http.StatusOK
		if payload.Status != "ok" {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, payload)
	})

	// Prometheus 메트릭 (장기 히스토리 분석용)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
