package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	"github.com/slidenote/server-go/internal/auth"
	"github.com/slidenote/server-go/internal/config"
	"github.com/slidenote/server-go/internal/ledger"
	"github.com/slidenote/server-go/internal/middleware"
)

// NewRouter 는 HTTP 라우터를 구성한다.
// 등록된 경로에 다른 메서드로 접근하면 405를 반환한다.
func NewRouter(
	cfg *config.Config,
	logger *slog.Logger,
	verifier auth.TokenVerifier,
	ledgerStore *ledger.Store,
	studyHandler *StudyHandler,
	usageHandler *UsageHandler,
	llmHandler *LLMHandler,
) *gin.Engine {
	setGinMode(cfg.Logging.Level)

	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "method not allowed"})
	})
	router.Use(
		middleware.RequestID(),
		middleware.RequestLogger(logger),
		gin.Recovery(),
		middleware.CORS(),
		gzip.Gzip(gzip.DefaultCompression),
		middleware.BearerAuth(verifier),
		middleware.RateLimit(cfg),
	)
	RegisterHealthRoutes(router, cfg, ledgerStore)
	studyHandler.RegisterRoutes(router)
	usageHandler.RegisterRoutes(router)
	llmHandler.RegisterRoutes(router)

	return router
}

func setGinMode(level string) {
	if strings.EqualFold(strings.TrimSpace(level), "debug") {
		gin.SetMode(gin.DebugMode)
		return
	}
	gin.SetMode(gin.ReleaseMode)
}
