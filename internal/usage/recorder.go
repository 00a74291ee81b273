package usage

import (
	"context"
	"log/slog"
	"time"

	"github.com/slidenote/server-go/internal/llm"
)

// Recorder 는 LLM 호출 성공 시 토큰 사용량을 DB에 적재한다.
// 저장 실패는 요청 처리에 영향을 주지 않고 로그만 남긴다.
type Recorder struct {
	repo    *Repository
	logger  *slog.Logger
	enabled bool
}

// NewRecorder 는 Recorder를 생성한다. enabled가 false면 모든 기록이 무시된다.
func NewRecorder(repo *Repository, logger *slog.Logger, enabled bool) *Recorder {
	return &Recorder{
		repo:    repo,
		logger:  logger,
		enabled: enabled,
	}
}

// Record 는 1회 요청의 토큰 사용량을 기록한다.
func (r *Recorder) Record(ctx context.Context, provider llm.Provider, usage llm.Usage) {
	if r == nil || r.repo == nil || !r.enabled {
		return
	}
	if usage.InputTokens <= 0 && usage.OutputTokens <= 0 {
		return
	}

	err := r.repo.RecordUsage(
		ctx,
		string(provider),
		int64(usage.InputTokens),
		int64(usage.OutputTokens),
		int64(usage.ReasoningTokens),
		1,
		time.Time{},
	)
	if err != nil && r.logger != nil {
		r.logger.Warn("usage_db_save_failed", "provider", provider, "err", err)
	}
}

// Close 는 DB 연결을 정리한다.
func (r *Recorder) Close() {
	if r == nil || r.repo == nil {
		return
	}
	r.repo.Close()
}
