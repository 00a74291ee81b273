package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"

	"github.com/joho/godotenv"
)

var (
	configOnce  sync.Once
	configValue *Config
)

// Load 는 환경 변수 기반 설정을 로드한다.
func Load() *Config {
	configOnce.Do(func() {
		_ = godotenv.Load()
		configValue = buildConfig()
	})
	return configValue
}

// ProvideConfig 는 설정을 로드하고 검증한다.
func ProvideConfig() (*Config, error) {
	cfg := Load()
	if cfg == nil {
		return nil, errors.New("config not initialized")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 는 설정 유효성을 검사한다.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.Quota.AnalysisDailyLimit <= 0 {
		return fmt.Errorf("analysis daily limit must be positive: %d", c.Quota.AnalysisDailyLimit)
	}
	if c.Quota.VoiceDailyLimit <= 0 {
		return fmt.Errorf("voice daily limit must be positive: %d", c.Quota.VoiceDailyLimit)
	}
	if c.Groq.BaseURL != "" {
		if _, err := url.Parse(c.Groq.BaseURL); err != nil {
			return fmt.Errorf("invalid groq base url: %w", err)
		}
	}
	if c.Auth.Required && !c.Auth.Enabled() {
		return errors.New("auth required but project id is empty")
	}
	return nil
}

// LogEnvStatus 는 환경 설정 상태를 로그로 남긴다.
func LogEnvStatus(cfg *Config, logger *slog.Logger) {
	if logger == nil || cfg == nil {
		return
	}

	envFilePresent := fileExists(".env")
	groqKey := maskSecret(cfg.Groq.APIKey)
	geminiKey := maskSecret(cfg.Gemini.PrimaryKey())
	logger.Debug(
		"env_status",
		"env_file", envFilePresent,
		"auth_project", cfg.Auth.ProjectID,
		"auth_required", cfg.Auth.Required,
		"groq_key", groqKey,
		"groq_model", cfg.Groq.Model,
		"gemini_keys", len(cfg.Gemini.APIKeys),
		"gemini_key", geminiKey,
		"analysis_limit", cfg.Quota.AnalysisDailyLimit,
		"voice_limit", cfg.Quota.VoiceDailyLimit,
		"ledger_store_url", cfg.LedgerStore.URL,
		"db_host", cfg.Database.Host,
		"db_name", cfg.Database.Name,
	)

	if cfg.Groq.APIKey == "" {
		logger.Error("env_missing_groq_api_key")
	}
	if len(cfg.Gemini.APIKeys) == 0 {
		logger.Error("env_missing_google_api_key")
	}
}

func buildConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Host:         getEnvString("HTTP_HOST", "127.0.0.1"),
			Port:         getEnvInt("HTTP_PORT", 40811),
			HTTP2Enabled: getEnvBool("HTTP2_ENABLED", true),
		},
		Auth: AuthConfig{
			ProjectID: getEnvString("FIREBASE_PROJECT_ID", ""),
			CertsURL:  getEnvString("AUTH_CERTS_URL", defaultCertsURL),
			Required:  getEnvBool("AUTH_REQUIRED", false),
		},
		Quota: QuotaConfig{
			AnalysisDailyLimit:    max(1, getEnvInt("ANALYSIS_DAILY_LIMIT", 50)),
			VoiceDailyLimit:       max(1, getEnvInt("VOICE_DAILY_LIMIT", 200)),
			IdempotencyTTLMinutes: max(1, getEnvInt("IDEMPOTENCY_TTL_MINUTES", 30)),
		},
		LedgerStore: LedgerStoreConfig{
			URL:      getEnvString("LEDGER_STORE_URL", "redis://localhost:6379"),
			Enabled:  getEnvBool("LEDGER_STORE_ENABLED", true),
			Required: getEnvBool("LEDGER_STORE_REQUIRED", false),
		},
		Groq: GroqConfig{
			APIKey:         getEnvString("GROQ_API_KEY", ""),
			BaseURL:        getEnvString("GROQ_BASE_URL", "https://api.groq.com/openai/v1"),
			Model:          getEnvString("GROQ_MODEL", "llama-3.3-70b-versatile"),
			Temperature:    getEnvFloat("GROQ_TEMPERATURE", 0.5),
			MaxTokens:      getEnvInt("GROQ_MAX_TOKENS", 4096),
			TimeoutSeconds: getEnvInt("GROQ_TIMEOUT", 60),
		},
		Gemini: GeminiConfig{
			APIKeys:         parseAPIKeys(),
			QuizModel:       getEnvString("GEMINI_QUIZ_MODEL", "gemini-2.5-flash"),
			VoiceModel:      getEnvString("GEMINI_VOICE_MODEL", "gemini-2.5-flash"),
			Temperature:     getEnvFloat("GEMINI_TEMPERATURE", 0.7),
			MaxOutputTokens: getEnvInt("GEMINI_MAX_TOKENS", 8192),
			TimeoutSeconds:  getEnvInt("GEMINI_TIMEOUT", 90),
		},
		Guard: GuardConfig{
			Enabled:         getEnvBool("GUARD_ENABLED", true),
			Threshold:       getEnvFloat("GUARD_THRESHOLD", 0.85),
			RulepacksDir:    getEnvString("RULEPACKS_DIR", "rulepacks"),
			CacheMaxSize:    getEnvInt("GUARD_CACHE_SIZE", 10000),
			CacheTTLSeconds: getEnvInt("GUARD_CACHE_TTL", 3600),
		},
		ResultCache: ResultCacheConfig{
			Enabled:          getEnvBool("RESULT_CACHE_ENABLED", true),
			TTLMinutes:       max(1, getEnvInt("RESULT_CACHE_TTL_MINUTES", 1440)),
			MaxMemoryEntries: max(1, getEnvInt("RESULT_CACHE_MAX_MEMORY_ENTRIES", 1000)),
		},
		Logging: LoggingConfig{
			Level:      getEnvString("LOG_LEVEL", "info"),
			LogDir:     getEnvString("LOG_DIR", ""),
			MaxSizeMB:  getEnvInt("LOG_FILE_MAX_SIZE_MB", 1),
			MaxBackups: getEnvInt("LOG_FILE_MAX_BACKUPS", 30),
			MaxAgeDays: getEnvInt("LOG_FILE_MAX_AGE_DAYS", 7),
			Compress:   getEnvBool("LOG_FILE_COMPRESS", true),
		},
		HTTPRateLimit: HTTPRateLimitConfig{
			RequestsPerMinute: getEnvNonNegativeInt("HTTP_RATE_LIMIT_RPM", 0),
			CacheSize:         max(1, getEnvNonNegativeInt("HTTP_RATE_LIMIT_CACHE_SIZE", 10000)),
			CacheTTLSeconds:   max(1, getEnvNonNegativeInt("HTTP_RATE_LIMIT_CACHE_TTL_SECONDS", 120)),
		},
		Database: DatabaseConfig{
			Host:                   getEnvString("DB_HOST", "localhost"),
			Port:                   getEnvInt("DB_PORT", 5432),
			Name:                   getEnvString("DB_NAME", "slidenote"),
			User:                   getEnvString("DB_USER", "slidenote"),
			Password:               getEnvString("DB_PASSWORD", ""),
			MinPool:                getEnvInt("DB_MIN_POOL", 1),
			MaxPool:                getEnvInt("DB_MAX_POOL", 5),
			ConnMaxLifetimeMinutes: getEnvNonNegativeInt("DB_CONN_MAX_LIFETIME_MINUTES", 60),
			ConnMaxIdleTimeMinutes: getEnvNonNegativeInt("DB_CONN_MAX_IDLE_TIME_MINUTES", 10),
			UsageEnabled:           getEnvBool("DB_USAGE_ENABLED", false),
		},
	}
}
