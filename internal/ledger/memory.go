package ledger

import (
	"fmt"
	"sync"
)

type dayRecord struct {
	date   string
	count  int
	tokens map[string]struct{}
}

// memoryLedger 는 저장소 없는 배포와 테스트용 메모리 백엔드다.
type memoryLedger struct {
	mu      sync.Mutex
	records map[string]*dayRecord
}

func newMemoryLedger() *memoryLedger {
	return &memoryLedger{records: make(map[string]*dayRecord)}
}

func (m *memoryLedger) recordKey(userID string, scope Scope) string {
	return fmt.Sprintf("%s:%s", userID, scope)
}

func (m *memoryLedger) check(userID string, scope Scope, today string, limit int, token string) Decision {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := m.recordKey(userID, scope)
	record, ok := m.records[key]
	if !ok || record.date != today {
		record = &dayRecord{date: today, tokens: make(map[string]struct{})}
		m.records[key] = record
	}

	if token != "" {
		if _, charged := record.tokens[token]; charged {
			return newDecision(true, record.count, limit)
		}
	}

	if record.count >= limit {
		return newDecision(false, record.count, limit)
	}

	record.count++
	if token != "" {
		record.tokens[token] = struct{}{}
	}
	return newDecision(true, record.count, limit)
}

func (m *memoryLedger) peek(userID string, scope Scope, today string, limit int) Decision {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	if record, ok := m.records[m.recordKey(userID, scope)]; ok && record.date == today {
		count = record.count
	}
	return newDecision(count < limit, count, limit)
}
