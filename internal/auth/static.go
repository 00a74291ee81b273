package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// StaticVerifier 는 고정 토큰 표를 쓰는 검증기다. 테스트와 인증이 꺼진
// 로컬 배포에서 사용한다.
type StaticVerifier struct {
	mu         sync.RWMutex
	identities map[string]Identity
}

// NewStaticVerifier 는 빈 검증기를 생성한다.
func NewStaticVerifier() *StaticVerifier {
	return &StaticVerifier{identities: make(map[string]Identity)}
}

// Register 는 토큰과 신원을 등록한다.
func (v *StaticVerifier) Register(token string, identity Identity) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.identities[token] = identity
}

// Verify 는 등록된 토큰만 통과시킨다.
func (v *StaticVerifier) Verify(_ context.Context, token string) (*Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errors.New("token is empty")
	}

	v.mu.RLock()
	identity, ok := v.identities[token]
	v.mu.RUnlock()
	if !ok {
		return nil, errors.New("unknown token")
	}
	return &identity, nil
}
