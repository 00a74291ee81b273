package guard

// Guard 는 슬라이드 텍스트 검증 인터페이스다.
// 핸들러 테스트에서 가짜 구현을 주입할 수 있게 분리했다.
type Guard interface {
	// Evaluate 는 입력을 평가해 점수와 매칭 규칙을 돌려준다.
	Evaluate(input string) Evaluation

	// EnsureSafe 는 위험 입력이면 BlockedError 를 반환한다.
	EnsureSafe(input string) error

	// IsMalicious 는 입력이 차단 대상인지 알려준다.
	IsMalicious(input string) bool
}

var _ Guard = (*InjectionGuard)(nil)
