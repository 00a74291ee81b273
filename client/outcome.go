package client

import (
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
)

// SlideExplanation 은 슬라이드 한 장의 설명이다.
type SlideExplanation struct {
	Slide       int    `json:"slide"`
	Explanation string `json:"explanation"`
}

// QuizQuestion 은 4지선다 문항이다.
type QuizQuestion struct {
	Question    string   `json:"question"`
	Options     []string `json:"options"`
	AnswerIndex int      `json:"answer_index"`
	Explanation string   `json:"explanation"`
}

// callResult 는 모든 Outcome 이 공유하는 호출 결과다.
type callResult struct {
	// OK 는 2xx 응답을 정상 파싱했을 때만 true 다.
	OK bool `json:"ok"`
	// StatusCode 는 마지막 HTTP 상태다. 전송 오류면 0.
	StatusCode int `json:"status_code"`
	// ErrorCode 는 서버가 내려준 오류 코드다. 없으면 빈 문자열.
	ErrorCode string `json:"error_code,omitempty"`
	// Message 는 실패 시 사용자에게 보여줄 문구다.
	Message string `json:"message,omitempty"`
	// Attempts 는 실제 수행한 시도 횟수다.
	Attempts int `json:"attempts"`
}

func (r *callResult) recordAttempt(n int) { r.Attempts = n }

func (r *callResult) fail(status int, code, message string) {
	r.OK = false
	r.StatusCode = status
	r.ErrorCode = code
	r.Message = message
}

// LimitReached 는 일일 한도 초과(429)로 끝났는지 알려준다.
func (r *callResult) LimitReached() bool {
	return r.StatusCode == 429
}

// outcomeSink 는 재시도 루프가 결과를 채우는 통로다.
type outcomeSink interface {
	recordAttempt(n int)
	succeed(status int, body []byte)
	fail(status int, code, message string)
}

// AnalyzeOutcome 은 분석 호출 결과다. 실패해도 Render 는 항상 문구를 돌려준다.
type AnalyzeOutcome struct {
	callResult
	Explanations []SlideExplanation `json:"explanations,omitempty"`
	Model        string             `json:"model,omitempty"`
}

func (o *AnalyzeOutcome) succeed(status int, body []byte) {
	var payload struct {
		Explanations []SlideExplanation `json:"explanations"`
		Model        string             `json:"model"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		o.fail(status, "", "invalid server response")
		return
	}
	o.OK = true
	o.StatusCode = status
	o.Explanations = payload.Explanations
	o.Model = payload.Model
}

// Render 는 화면에 그대로 보여줄 문자열을 만든다.
func (o *AnalyzeOutcome) Render() string {
	if !o.OK {
		return o.Message
	}
	parts := make([]string, 0, len(o.Explanations))
	for _, e := range o.Explanations {
		parts = append(parts, fmt.Sprintf("Slide %d: %s", e.Slide, e.Explanation))
	}
	return strings.Join(parts, "\n\n")
}

// QuizOutcome 은 퀴즈 호출 결과다.
type QuizOutcome struct {
	callResult
	Questions []QuizQuestion `json:"questions,omitempty"`
	Model     string         `json:"model,omitempty"`
}

func (o *QuizOutcome) succeed(status int, body []byte) {
	var payload struct {
		Questions []QuizQuestion `json:"questions"`
		Model     string         `json:"model"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		o.fail(status, "", "invalid server response")
		return
	}
	o.OK = true
	o.StatusCode = status
	o.Questions = payload.Questions
	o.Model = payload.Model
}

// VoiceOutcome 은 음성 스크립트 호출 결과다.
type VoiceOutcome struct {
	callResult
	Script string `json:"script,omitempty"`
	Model  string `json:"model,omitempty"`
}

func (o *VoiceOutcome) succeed(status int, body []byte) {
	var payload struct {
		Script string `json:"script"`
		Model  string `json:"model"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		o.fail(status, "", "invalid server response")
		return
	}
	o.OK = true
	o.StatusCode = status
	o.Script = payload.Script
	o.Model = payload.Model
}
