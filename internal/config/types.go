package config

import (
	"net"
	"net/url"
	"strconv"
)

// HTTPConfig 는 HTTP 서버 설정이다.
type HTTPConfig struct {
	Host         string
	Port         int
	HTTP2Enabled bool
}

// AuthConfig 는 ID 토큰 검증 설정이다.
type AuthConfig struct {
	ProjectID string
	CertsURL  string
	Required  bool
}

// Issuer 는 기대하는 토큰 발급자를 반환한다.
func (a AuthConfig) Issuer() string {
	return "https://securetoken.google.com/" + a.ProjectID
}

// Enabled 는 토큰 검증 활성화 여부를 반환한다.
func (a AuthConfig) Enabled() bool {
	return a.ProjectID != ""
}

// QuotaConfig 는 일일 요청 한도 설정이다.
type QuotaConfig struct {
	AnalysisDailyLimit    int
	VoiceDailyLimit       int
	IdempotencyTTLMinutes int
}

// LedgerStoreConfig 는 사용량 원장 저장소 연결 설정이다.
type LedgerStoreConfig struct {
	URL      string
	Enabled  bool
	Required bool
}

// GroqConfig 는 Groq(OpenAI 호환) 설정이다.
type GroqConfig struct {
	APIKey         string
	BaseURL        string
	Model          string
	Temperature    float64
	MaxTokens      int
	TimeoutSeconds int
}

// GeminiConfig 는 Gemini 모델 설정이다.
type GeminiConfig struct {
	APIKeys         []string
	QuizModel       string
	VoiceModel      string
	Temperature     float64
	MaxOutputTokens int
	TimeoutSeconds  int
}

// PrimaryKey 는 기본 API 키를 반환한다.
func (g GeminiConfig) PrimaryKey() string {
	if len(g.APIKeys) == 0 {
		return ""
	}
	return g.APIKeys[0]
}

// ModelForTask 는 작업 유형별 모델을 반환한다.
func (g GeminiConfig) ModelForTask(task string) string {
	switch task {
	case "voice":
		return g.VoiceModel
	default:
		return g.QuizModel
	}
}

// GuardConfig 는 입력 검증 설정이다.
type GuardConfig struct {
	Enabled         bool
	Threshold       float64
	RulepacksDir    string
	CacheMaxSize    int
	CacheTTLSeconds int
}

// ResultCacheConfig 는 분석 결과 캐시 설정이다.
type ResultCacheConfig struct {
	Enabled          bool
	TTLMinutes       int
	MaxMemoryEntries int
}

// LoggingConfig 는 로깅 설정이다.
type LoggingConfig struct {
	Level      string
	LogDir     string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// HTTPRateLimitConfig 는 분당 요청 제한 설정이다.
type HTTPRateLimitConfig struct {
	RequestsPerMinute int
	CacheSize         int
	CacheTTLSeconds   int
}

// DatabaseConfig 는 DB 연결 및 저장 설정이다.
type DatabaseConfig struct {
	Host                   string
	Port                   int
	Name                   string
	User                   string
	Password               string
	MinPool                int
	MaxPool                int
	ConnMaxLifetimeMinutes int
	ConnMaxIdleTimeMinutes int
	UsageEnabled           bool
}

// DSN 은 DB 접속 문자열을 반환한다.
func (d DatabaseConfig) DSN() string {
	host := net.JoinHostPort(d.Host, strconv.Itoa(d.Port))
	u := &url.URL{
		Scheme: "postgresql",
		Host:   host,
		Path:   "/" + d.Name,
	}
	if d.Password == "" {
		u.User = url.User(d.User)
	} else {
		u.User = url.UserPassword(d.User, d.Password)
	}
	return u.String()
}

// Config 는 애플리케이션 전체 설정이다.
type Config struct {
	HTTP          HTTPConfig
	Auth          AuthConfig
	Quota         QuotaConfig
	LedgerStore   LedgerStoreConfig
	Groq          GroqConfig
	Gemini        GeminiConfig
	Guard         GuardConfig
	ResultCache   ResultCacheConfig
	Logging       LoggingConfig
	HTTPRateLimit HTTPRateLimitConfig
	Database      DatabaseConfig
}
