package handler

// AnalyzeRequest 는 슬라이드 분석 요청 본문이다.
type AnalyzeRequest struct {
	SlideNumbers []int    `json:"slide_numbers" binding:"required,min=1"`
	TextContents []string `json:"text_contents"`
	Mode         string   `json:"mode"`
}

// QuizRequest 는 퀴즈 생성 요청 본문이다.
type QuizRequest struct {
	SlideNumbers  []int    `json:"slide_numbers" binding:"required,min=1"`
	TextContents  []string `json:"text_contents"`
	QuestionCount int      `json:"question_count"`
}

// VoiceScriptRequest 는 음성 스크립트 요청 본문이다.
type VoiceScriptRequest struct {
	SlideNumbers []int    `json:"slide_numbers" binding:"required,min=1"`
	TextContents []string `json:"text_contents"`
}

// ScopeUsage 는 구간별 사용량 응답이다.
type ScopeUsage struct {
	Used      int `json:"used"`
	Limit     int `json:"limit"`
	Remaining int `json:"remaining"`
}

// UsageResponse 는 GET /api/usage/me 응답이다.
type UsageResponse struct {
	UserID   string     `json:"user_id"`
	Date     string     `json:"date"`
	Analysis ScopeUsage `json:"analysis"`
	Voice    ScopeUsage `json:"voice"`
}
