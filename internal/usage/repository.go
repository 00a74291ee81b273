package usage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/slidenote/server-go/internal/config"
)

// Repository 는 usage DB 접근을 담당한다.
// 연결은 첫 기록 시점에 지연 생성된다.
type Repository struct {
	cfg    *config.Config
	logger *slog.Logger
	mu     sync.Mutex
	db     *gorm.DB
	sqlDB  *sql.DB
}

// NewRepository 는 usage 저장소를 생성한다.
func NewRepository(cfg *config.Config, logger *slog.Logger) *Repository {
	return &Repository{
		cfg:    cfg,
		logger: logger,
	}
}

// RecordUsage 는 지정한 날짜(또는 오늘)의 공급자별 토큰 사용량을 누적 저장한다.
func (r *Repository) RecordUsage(
	ctx context.Context,
	provider string,
	inputTokens int64,
	outputTokens int64,
	reasoningTokens int64,
	requestCount int64,
	usageDate time.Time,
) error {
	if requestCount <= 0 && inputTokens <= 0 && outputTokens <= 0 {
		return nil
	}

	db, err := r.getDB(ctx)
	if err != nil {
		return err
	}

	targetDate := usageDate
	if targetDate.IsZero() {
		targetDate = todayDate()
	}

	row := TokenUsage{
		UsageDate:       targetDate,
		Provider:        provider,
		InputTokens:     inputTokens,
		OutputTokens:    outputTokens,
		ReasoningTokens: reasoningTokens,
		RequestCount:    requestCount,
		Version:         0,
	}

	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "usage_date"}, {Name: "provider"}},
		DoUpdates: clause.Assignments(map[string]any{
			"input_tokens":     gorm.Expr("token_usage.input_tokens + EXCLUDED.input_tokens"),
			"output_tokens":    gorm.Expr("token_usage.output_tokens + EXCLUDED.output_tokens"),
			"reasoning_tokens": gorm.Expr("token_usage.reasoning_tokens + EXCLUDED.reasoning_tokens"),
			"request_count":    gorm.Expr("token_usage.request_count + EXCLUDED.request_count"),
			"version":          gorm.Expr("token_usage.version + 1"),
		}),
	}).Create(&row).Error
}

// GetDailyUsage 는 특정 날짜(또는 오늘)의 사용량을 공급자 합산으로 조회한다.
func (r *Repository) GetDailyUsage(ctx context.Context, usageDate time.Time) (*DailyUsage, error) {
	db, err := r.getDB(ctx)
	if err != nil {
		return nil, err
	}

	targetDate := usageDate
	if targetDate.IsZero() {
		targetDate = todayDate()
	}

	var rows []TokenUsage
	if err := db.WithContext(ctx).Where("usage_date = ?", targetDate).Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	total := DailyUsage{UsageDate: targetDate}
	for _, row := range rows {
		total.InputTokens += row.InputTokens
		total.OutputTokens += row.OutputTokens
		total.ReasoningTokens += row.ReasoningTokens
		total.RequestCount += row.RequestCount
	}
	return &total, nil
}

// GetRecentUsage 는 최근 N일 사용량을 공급자별 행으로 조회한다.
func (r *Repository) GetRecentUsage(ctx context.Context, days int) ([]DailyUsage, error) {
	db, err := r.getDB(ctx)
	if err != nil {
		return nil, err
	}
	if days <= 0 {
		days = 7
	}

	var rows []TokenUsage
	if err := db.WithContext(ctx).
		Where("usage_date >= CURRENT_DATE - (?::int)", days).
		Order("usage_date desc, provider asc").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	usages := make([]DailyUsage, 0, len(rows))
	for _, row := range rows {
		usages = append(usages, DailyUsage{
			UsageDate:       row.UsageDate,
			Provider:        row.Provider,
			InputTokens:     row.InputTokens,
			OutputTokens:    row.OutputTokens,
			ReasoningTokens: row.ReasoningTokens,
			RequestCount:    row.RequestCount,
		})
	}
	return usages, nil
}

// Close 는 DB 연결을 닫는다.
func (r *Repository) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sqlDB == nil {
		return
	}
	_ = r.sqlDB.Close()
	r.sqlDB = nil
	r.db = nil
}

func (r *Repository) getDB(ctx context.Context) (*gorm.DB, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.db != nil {
		return r.db, nil
	}
	if r.cfg == nil {
		return nil, errors.New("database config is nil")
	}

	dsn := r.cfg.Database.DSN()
	gormCfg := &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)}
	db, err := gorm.Open(postgres.Open(dsn), gormCfg)
	if err != nil {
		return nil, fmt.Errorf("open usage db: %w", err)
	}

	if schemaErr := ensureUsageSchema(db); schemaErr != nil {
		return nil, fmt.Errorf("prepare usage db: %w", schemaErr)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get usage db handle: %w", err)
	}

	sqlDB.SetMaxIdleConns(r.cfg.Database.MinPool)
	sqlDB.SetMaxOpenConns(r.cfg.Database.MaxPool)
	if r.cfg.Database.ConnMaxLifetimeMinutes > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(r.cfg.Database.ConnMaxLifetimeMinutes) * time.Minute)
	}
	if r.cfg.Database.ConnMaxIdleTimeMinutes > 0 {
		sqlDB.SetConnMaxIdleTime(time.Duration(r.cfg.Database.ConnMaxIdleTimeMinutes) * time.Minute)
	}

	if r.logger != nil {
		r.logger.Info("usage_db_connected", "host", r.cfg.Database.Host, "name", r.cfg.Database.Name)
	}

	r.db = db
	r.sqlDB = sqlDB
	return db, nil
}

func ensureUsageSchema(db *gorm.DB) error {
	if db == nil {
		return errors.New("db is nil")
	}

	if err := db.Exec(`
			CREATE TABLE IF NOT EXISTS token_usage (
				id BIGSERIAL PRIMARY KEY,
				usage_date DATE NOT NULL,
				provider TEXT NOT NULL DEFAULT '',
				input_tokens BIGINT NOT NULL DEFAULT 0,
				output_tokens BIGINT NOT NULL DEFAULT 0,
				reasoning_tokens BIGINT NOT NULL DEFAULT 0,
				request_count BIGINT NOT NULL DEFAULT 0,
				version BIGINT NOT NULL DEFAULT 0
			)
		`).Error; err != nil {
		return fmt.Errorf("create token_usage table: %w", err)
	}

	if err := db.Exec(`
			CREATE UNIQUE INDEX IF NOT EXISTS idx_token_usage_date_provider
			ON token_usage (usage_date, provider)
		`).Error; err != nil {
		return fmt.Errorf("create token_usage unique index: %w", err)
	}

	return nil
}

func todayDate() time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}
