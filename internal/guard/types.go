package guard

import "fmt"

// Match 는 매칭된 규칙 하나의 기록이다.
type Match struct {
	ID     string  `json:"id"`
	Weight float64 `json:"weight"`
}

// Evaluation 은 한 입력에 대한 검사 결과다.
type Evaluation struct {
	Score     float64 `json:"score"`
	Hits      []Match `json:"hits"`
	Threshold float64 `json:"threshold"`
}

// Malicious 는 점수가 임계값을 넘었는지 알려준다.
func (e Evaluation) Malicious() bool {
	return e.Score >= e.Threshold
}

// BlockedError 는 가드가 입력을 차단했음을 나타낸다.
type BlockedError struct {
	Score     float64
	Threshold float64
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("input blocked by injection guard (score=%.2f, threshold=%.2f)", e.Score, e.Threshold)
}
