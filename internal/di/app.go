package di

import (
	"log/slog"
	"net/http"

	"github.com/slidenote/server-go/internal/config"
	"github.com/slidenote/server-go/internal/ledger"
	"github.com/slidenote/server-go/internal/resultcache"
	"github.com/slidenote/server-go/internal/usage"
)

// App: 애플리케이션 구성 요소를 묶는다.
type App struct {
	Server          *http.Server
	Logger          *slog.Logger
	Config          *config.Config
	LedgerStore     *ledger.Store
	ResultCache     *resultcache.Store
	UsageRepository *usage.Repository
	UsageRecorder   *usage.Recorder
}

// NewApp: App 인스턴스를 생성합니다.
func NewApp(
	server *http.Server,
	logger *slog.Logger,
	cfg *config.Config,
	ledgerStore *ledger.Store,
	resultCache *resultcache.Store,
	usageRepository *usage.Repository,
	usageRecorder *usage.Recorder,
) *App {
	return &App{
		Server:          server,
		Logger:          logger,
		Config:          cfg,
		LedgerStore:     ledgerStore,
		ResultCache:     resultCache,
		UsageRepository: usageRepository,
		UsageRecorder:   usageRecorder,
	}
}

// Close: 앱 리소스를 정리합니다.
func (a *App) Close() {
	if a.LedgerStore != nil {
		a.LedgerStore.Close()
	}
	if a.ResultCache != nil {
		a.ResultCache.Close()
	}
	if a.UsageRecorder != nil {
		a.UsageRecorder.Close()
	}
}
