package di

import (
	"fmt"

	"github.com/slidenote/server-go/internal/auth"
	"github.com/slidenote/server-go/internal/config"
	"github.com/slidenote/server-go/internal/gemini"
	"github.com/slidenote/server-go/internal/groq"
	"github.com/slidenote/server-go/internal/guard"
	"github.com/slidenote/server-go/internal/handler"
	"github.com/slidenote/server-go/internal/ledger"
	"github.com/slidenote/server-go/internal/metrics"
	"github.com/slidenote/server-go/internal/resultcache"
	"github.com/slidenote/server-go/internal/server"
	"github.com/slidenote/server-go/internal/study"
	"github.com/slidenote/server-go/internal/usage"
)

// InitializeApp 은 애플리케이션 의존성을 초기화하고 App 인스턴스를 반환한다.
func InitializeApp() (*App, error) {
	cfg, err := config.ProvideConfig()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	metricsStore := metrics.NewStore()

	logger, err := ProvideLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}

	usageRepository := usage.NewRepository(cfg, logger)
	usageRecorder := usage.NewRecorder(usageRepository, logger, cfg.Database.UsageEnabled)

	groqClient, err := groq.NewClient(cfg, metricsStore, usageRecorder)
	if err != nil {
		return nil, fmt.Errorf("groq client: %w", err)
	}

	geminiClient, err := gemini.NewClient(cfg, metricsStore, usageRecorder)
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}

	injectionGuard, err := guard.NewGuard(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("guard: %w", err)
	}

	ledgerStore, err := ledger.NewStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("ledger store: %w", err)
	}

	resultCache, err := resultcache.NewStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("result cache: %w", err)
	}

	studyPrompts, err := study.NewPrompts()
	if err != nil {
		return nil, fmt.Errorf("study prompts: %w", err)
	}

	studyService := study.New(cfg, groqClient, geminiClient, injectionGuard, resultCache, studyPrompts, logger)

	var verifier auth.TokenVerifier
	if cfg.Auth.Enabled() {
		firebaseVerifier, err := auth.NewFirebaseVerifier(cfg.Auth, logger)
		if err != nil {
			return nil, fmt.Errorf("token verifier: %w", err)
		}
		verifier = firebaseVerifier
	}

	studyHandler := handler.NewStudyHandler(cfg, studyService, ledgerStore, logger)
	usageHandler := handler.NewUsageHandler(cfg, ledgerStore)
	llmHandler := handler.NewLLMHandler(metricsStore)

	router := handler.NewRouter(cfg, logger, verifier, ledgerStore, studyHandler, usageHandler, llmHandler)
	httpServer := server.NewHTTPServer(cfg, router)

	return NewApp(httpServer, logger, cfg, ledgerStore, resultCache, usageRepository, usageRecorder), nil
}
