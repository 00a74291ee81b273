// Package randx 는 goroutine-safe 난수 유틸리티를 제공한다.
package randx

import (
	"math/rand/v2"
	"sync"
)

// LockedRand: math/rand/v2.Rand 를 goroutine-safe 하게 감싼 래퍼입니다.
type LockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

// New 는 주어진 Rand 를 감싼다. nil 이면 고정 시드를 쓴다.
func New(r *rand.Rand) *LockedRand {
	if r == nil {
		r = rand.New(rand.NewPCG(0, 0))
	}
	return &LockedRand{r: r}
}

// NewSeeded 는 매번 다른 시드로 초기화한 LockedRand 를 돌려준다.
func NewSeeded() *LockedRand {
	return New(rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())))
}

func (l *LockedRand) IntN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.IntN(n)
}

func (l *LockedRand) Perm(n int) []int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Perm(n)
}
