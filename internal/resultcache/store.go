package resultcache

import (
	"context"
	"crypto/sha256"
	"crypto/tls"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/goccy/go-json"
	"github.com/valkey-io/valkey-go"

	"github.com/slidenote/server-go/internal/cache"
	"github.com/slidenote/server-go/internal/config"
)

type storeBackend int

const (
	storeBackendMemory storeBackend = iota
	storeBackendValkey
)

// Entry 는 캐시된 슬라이드 분석 결과다.
type Entry struct {
	Explanation string `json:"explanation"`
	Model       string `json:"model"`
}

// Store 는 슬라이드 텍스트 해시 + 모드를 키로 분석 결과를 저장한다.
// Valkey 백엔드는 zstd 압축 JSON을 저장하고, 비활성 배포에서는
// 메모리 TTL 캐시로 대체된다. 캐시 조회 실패는 miss로 취급한다.
type Store struct {
	client  valkey.Client
	cfg     *config.Config
	enabled bool
	backend storeBackend

	mem *cache.TTLCache[string, Entry]
}

// NewStore 는 결과 캐시를 생성한다. 원장과 같은 Valkey 인스턴스를 공유한다.
func NewStore(cfg *config.Config) (*Store, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if !cfg.ResultCache.Enabled {
		return &Store{cfg: cfg}, nil
	}

	if !cfg.LedgerStore.Enabled {
		return newMemoryStore(cfg), nil
	}

	conn, err := parseStoreURL(cfg.LedgerStore.URL)
	if err != nil {
		return nil, fmt.Errorf("parse result cache store url: %w", err)
	}

	var tlsConfig *tls.Config
	if conn.useTLS {
		host, _, splitErr := net.SplitHostPort(conn.addr)
		if splitErr != nil {
			return nil, fmt.Errorf("parse result cache store addr: %w", splitErr)
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
		DisableRetry:      true,
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
	}, nil
}

func newMemoryStore(cfg *config.Config) *Store {
	return &Store{
		cfg:     cfg,
		enabled: true,
		backend: storeBackendMemory,
		mem:     cache.NewTTLCache[string, Entry](cfg.ResultCache.MaxMemoryEntries, ttlFromConfig(cfg)),
	}
}

func ttlFromConfig(cfg *config.Config) time.Duration {
	minutes := cfg.ResultCache.TTLMinutes
	if minutes <= 0 {
		minutes = 1440
	}
	return time.Duration(minutes) * time.Minute
}

// IsEnabled 는 캐시 활성화 여부를 반환한다.
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

// Key 는 모드와 슬라이드 텍스트로 캐시 키를 만든다.
func Key(mode string, slideText string) string {
	sum := sha256.Sum256([]byte(slideText))
	return fmt.Sprintf("result:%s:%s", mode, hex.EncodeToString(sum[:]))
}

// Get 은 캐시된 분석 결과를 조회한다. miss와 백엔드 오류 모두 found=false다.
func (s *Store) Get(ctx context.Context, mode string, slideText string) (Entry, bool) {
	if s == nil || !s.enabled {
		return Entry{}, false
	}

	key := Key(mode, slideText)
	if s.backend == storeBackendMemory {
		return s.mem.Get(key)
	}

	cmd := s.client.B().Get().Key(key).Build()
	compressed, err := s.client.Do(ctx, cmd).AsBytes()
	if err != nil {
		return Entry{}, false
	}

	data, err := decompressZstd(compressed)
	if err != nil {
		return Entry{}, false
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return Entry{}, false
	}
	return entry, true
}

// Set 은 분석 결과를 캐시에 저장한다. 저장 실패는 무시된다.
func (s *Store) Set(ctx context.Context, mode string, slideText string, entry Entry) {
	if s == nil || !s.enabled {
		return
	}

	key := Key(mode, slideText)
	if s.backend == storeBackendMemory {
		s.mem.Set(key, entry)
		return
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	compressed, err := compressZstd(data)
	if err != nil {
		return
	}

	cmd := s.client.B().Set().Key(key).Value(valkey.BinaryString(compressed)).Ex(ttlFromConfig(s.cfg)).Build()
	_ = s.client.Do(ctx, cmd).Error()
}
