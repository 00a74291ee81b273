package ledger

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/slidenote/server-go/internal/config"
)

var (
	// ErrStoreDisabled 는 저장소 비활성 오류다.
	ErrStoreDisabled = errors.New("ledger store disabled")
)

// Scope 는 한도가 따로 집계되는 사용량 구간이다.
type Scope string

const (
	// ScopeAnalysis 는 분석/퀴즈 요청이 공유하는 구간이다.
	ScopeAnalysis Scope = "analysis"
	// ScopeVoice 는 음성 스크립트 요청 구간이다.
	ScopeVoice Scope = "voice"
)

// Decision 은 한도 검사 결과다. 거부는 오류가 아니라 값으로 전달된다.
type Decision struct {
	Admitted  bool
	Count     int
	Limit     int
	Remaining int
}

type storeBackend int

const (
	storeBackendMemory storeBackend = iota
	storeBackendValkey
)

// Store 는 사용자별 일일 사용량 원장이다.
type Store struct {
	client  valkey.Client
	cfg     *config.Config
	enabled bool
	backend storeBackend

	mem *memoryLedger

	// 테스트에서 날짜 전환을 주입하기 위한 훅
	now func() time.Time
}

// NewStore 는 사용량 원장을 생성한다.
func NewStore(cfg *config.Config) (*Store, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	if !cfg.LedgerStore.Enabled {
		if cfg.LedgerStore.Required {
			return nil, errors.New("ledger store required but disabled")
		}
		return newMemoryStore(cfg), nil
	}

	conn, err := parseStoreURL(cfg.LedgerStore.URL)
	if err != nil {
		return nil, fmt.Errorf("parse ledger store url: %w", err)
	}

	var tlsConfig *tls.Config
	if conn.useTLS {
		host, _, splitErr := net.SplitHostPort(conn.addr)
		if splitErr != nil {
			return nil, fmt.Errorf("parse ledger store addr: %w", splitErr)
		}
		tlsConfig = &tls.Config{MinVersion: tls.VersionTLS12, ServerName: host}
	}

	client, err := valkey.NewClient(valkey.ClientOption{
		TLSConfig:         tlsConfig,
		Username:          conn.username,
		Password:          conn.password,
		InitAddress:       []string{conn.addr},
		SelectDB:          conn.selectDB,
		DisableCache:      true,
		ForceSingleClient: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to valkey: %w", err)
	}

	return &Store{
		client:  client,
		cfg:     cfg,
		enabled: true,
		backend: storeBackendValkey,
		now:     time.Now,
	}, nil
}

func newMemoryStore(cfg *config.Config) *Store {
	return &Store{
		cfg:     cfg,
		enabled: true,
		backend: storeBackendMemory,
		mem:     newMemoryLedger(),
		now:     time.Now,
	}
}

// IsEnabled 는 저장소 활성화 여부를 반환한다.
func (s *Store) IsEnabled() bool {
	return s.enabled
}

// Close 는 Valkey 연결을 종료한다.
func (s *Store) Close() {
	if s == nil {
		return
	}
	if s.backend == storeBackendValkey && s.client != nil {
		s.client.Close()
	}
}

// Ping Valkey 연결 확인
func (s *Store) Ping(ctx context.Context) error {
	if !s.enabled {
		return ErrStoreDisabled
	}
	if s.backend == storeBackendMemory {
		return nil
	}

	cmd := s.client.B().Ping().Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("ping valkey: %w", err)
	}
	return nil
}

// today 는 UTC 기준 날짜 문자열을 반환한다.
func (s *Store) today() string {
	return s.now().UTC().Format("2006-01-02")
}

func (s *Store) counterKey(userID string, scope Scope) string {
	return fmt.Sprintf("ledger:%s:%s", userID, scope)
}

func (s *Store) tokensKey(userID string, scope Scope, date string) string {
	return fmt.Sprintf("ledger:%s:%s:tokens:%s", userID, scope, date)
}

func (s *Store) tokenTTL() time.Duration {
	minutes := 30
	if s.cfg != nil && s.cfg.Quota.IdempotencyTTLMinutes > 0 {
		minutes = s.cfg.Quota.IdempotencyTTLMinutes
	}
	return time.Duration(minutes) * time.Minute
}

// Check 는 한도 검사와 증가를 원자적으로 수행한다.
// 날짜가 바뀌었으면 0부터 다시 세고, 한도에 도달했으면 쓰기 없이 거부하며,
// 이미 과금된 idempotency 토큰은 증가 없이 다시 허용한다.
// 저장소 장애는 오류로 반환된다. 허용으로 넘어가지 않는다.
func (s *Store) Check(ctx context.Context, userID string, scope Scope, limit int, idempotencyToken string) (Decision, error) {
	if !s.enabled {
		return Decision{}, ErrStoreDisabled
	}
	if userID == "" {
		return Decision{}, errors.New("user id is empty")
	}
	if limit <= 0 {
		return Decision{}, fmt.Errorf("invalid limit: %d", limit)
	}

	today := s.today()
	if s.backend == storeBackendMemory {
		return s.mem.check(userID, scope, today, limit, idempotencyToken), nil
	}

	cmd := s.client.B().Eval().
		Script(checkScript).
		Numkeys(2).
		Key(s.counterKey(userID, scope), s.tokensKey(userID, scope, today)).
		Arg(
			today,
			fmt.Sprintf("%d", limit),
			idempotencyToken,
			fmt.Sprintf("%d", int64(s.tokenTTL().Seconds())),
			fmt.Sprintf("%d", int64((48*time.Hour).Seconds())),
		).
		Build()

	result, err := s.client.Do(ctx, cmd).AsIntSlice()
	if err != nil {
		return Decision{}, fmt.Errorf("ledger check: %w", err)
	}
	if len(result) != 2 {
		return Decision{}, fmt.Errorf("ledger check: unexpected script reply length %d", len(result))
	}

	return newDecision(result[0] == 1, int(result[1]), limit), nil
}

// Peek 는 쓰기 없이 현재 사용량을 조회한다.
func (s *Store) Peek(ctx context.Context, userID string, scope Scope, limit int) (Decision, error) {
	if !s.enabled {
		return Decision{}, ErrStoreDisabled
	}
	if userID == "" {
		return Decision{}, errors.New("user id is empty")
	}

	today := s.today()
	if s.backend == storeBackendMemory {
		return s.mem.peek(userID, scope, today, limit), nil
	}

	cmd := s.client.B().Hmget().Key(s.counterKey(userID, scope)).Field("date", "count").Build()
	values, err := s.client.Do(ctx, cmd).ToArray()
	if err != nil {
		return Decision{}, fmt.Errorf("ledger peek: %w", err)
	}

	count := 0
	if len(values) == 2 {
		date, dateErr := values[0].ToString()
		countText, countErr := values[1].ToString()
		if dateErr == nil && countErr == nil && date == today {
			parsed, parseErr := parseCount(countText)
			if parseErr != nil {
				return Decision{}, fmt.Errorf("ledger peek: %w", parseErr)
			}
			count = parsed
		}
	}

	return newDecision(count < limit, count, limit), nil
}

func newDecision(admitted bool, count int, limit int) Decision {
	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Admitted:  admitted,
		Count:     count,
		Limit:     limit,
		Remaining: remaining,
	}
}

func parseCount(text string) (int, error) {
	var count int
	if _, err := fmt.Sscanf(text, "%d", &count); err != nil {
		return 0, fmt.Errorf("parse count %q: %w", text, err)
	}
	return count, nil
}
