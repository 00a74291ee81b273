package metrics

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/slidenote/server-go/internal/llm"
)

// counters 는 단일 공급자의 호출 통계다.
type counters struct {
	totalCalls           int64
	totalErrors          int64
	totalInputTokens     int64
	totalOutputTokens    int64
	totalReasoningTokens int64
	totalDurationMs      int64
}

// Store 는 공급자별 LLM 호출 통계를 저장한다.
type Store struct {
	mu        sync.RWMutex
	providers map[llm.Provider]*counters
}

// NewStore 는 통계 저장소를 생성한다.
func NewStore() *Store {
	return &Store{providers: make(map[llm.Provider]*counters)}
}

func (s *Store) counters(provider llm.Provider) *counters {
	s.mu.RLock()
	c, ok := s.providers[provider]
	s.mu.RUnlock()
	if ok {
		return c
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.providers[provider]; ok {
		return c
	}
	c = &counters{}
	s.providers[provider] = c
	return c
}

// RecordSuccess 는 성공 호출 통계를 기록한다.
func (s *Store) RecordSuccess(provider llm.Provider, duration time.Duration, usage llm.Usage) {
	c := s.counters(provider)
	atomic.AddInt64(&c.totalCalls, 1)
	atomic.AddInt64(&c.totalInputTokens, int64(usage.InputTokens))
	atomic.AddInt64(&c.totalOutputTokens, int64(usage.OutputTokens))
	atomic.AddInt64(&c.totalReasoningTokens, int64(usage.ReasoningTokens))
	atomic.AddInt64(&c.totalDurationMs, duration.Milliseconds())
}

// RecordError 는 실패 호출 통계를 기록한다.
func (s *Store) RecordError(provider llm.Provider, duration time.Duration) {
	c := s.counters(provider)
	atomic.AddInt64(&c.totalCalls, 1)
	atomic.AddInt64(&c.totalErrors, 1)
	atomic.AddInt64(&c.totalDurationMs, duration.Milliseconds())
}

// UsageTotals 는 전체 공급자 누적 사용량을 반환한다.
func (s *Store) UsageTotals() llm.Usage {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var total llm.Usage
	for _, c := range s.providers {
		input := atomic.LoadInt64(&c.totalInputTokens)
		output := atomic.LoadInt64(&c.totalOutputTokens)
		total.InputTokens += int(input)
		total.OutputTokens += int(output)
		total.TotalTokens += int(input + output)
		total.ReasoningTokens += int(atomic.LoadInt64(&c.totalReasoningTokens))
	}
	return total
}

// Snapshot 는 공급자별 통계 스냅샷을 반환한다.
func (s *Store) Snapshot() map[string]map[string]float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := make(map[string]map[string]float64, len(s.providers))
	for provider, c := range s.providers {
		totalCalls := atomic.LoadInt64(&c.totalCalls)
		totalErrors := atomic.LoadInt64(&c.totalErrors)
		input := atomic.LoadInt64(&c.totalInputTokens)
		output := atomic.LoadInt64(&c.totalOutputTokens)
		reasoning := atomic.LoadInt64(&c.totalReasoningTokens)
		durationMs := atomic.LoadInt64(&c.totalDurationMs)

		avgDuration := 0.0
		if totalCalls > 0 {
			avgDuration = float64(durationMs) / float64(totalCalls)
		}

		snapshot[string(provider)] = map[string]float64{
			"total_calls":            float64(totalCalls),
			"total_errors":           float64(totalErrors),
			"total_input_tokens":     float64(input),
			"total_output_tokens":    float64(output),
			"total_reasoning_tokens": float64(reasoning),
			"total_tokens":           float64(input + output),
			"total_duration_ms":      float64(durationMs),
			"avg_duration_ms":        avgDuration,
		}
	}
	return snapshot
}
