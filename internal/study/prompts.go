package study

import (
	"embed"
	"fmt"
	"strconv"
	"strings"

	"github.com/slidenote/server-go/internal/prompt"
)

//go:embed prompts/*.yml
var promptsFS embed.FS

// 분석 모드. 클라이언트가 보내는 값과 같다.
const (
	ModeSimple = "simple"
	ModeDeep   = "deep"
	ModeExam   = "exam"
)

// ValidMode 는 지원하는 분석 모드인지 확인한다.
func ValidMode(mode string) bool {
	switch mode {
	case ModeSimple, ModeDeep, ModeExam:
		return true
	}
	return false
}

// Prompts 는 SlideNote 프롬프트 모음이다.
type Prompts struct {
	bundle *prompt.Bundle
}

// NewPrompts 는 내장 프롬프트를 로드한다.
func NewPrompts() (*Prompts, error) {
	bundle, err := prompt.LoadBundle(promptsFS, "prompts", "study")
	if err != nil {
		return nil, fmt.Errorf("load study prompts: %w", err)
	}
	return &Prompts{bundle: bundle}, nil
}

// AnalyzeSystem 은 모드별 지시가 붙은 분석 시스템 프롬프트를 반환한다.
func (p *Prompts) AnalyzeSystem(mode string) (string, error) {
	data, err := p.bundle.Prompt("analyze")
	if err != nil {
		return "", err
	}
	system, err := prompt.Field(data, "system", "analyze.system")
	if err != nil {
		return "", err
	}

	modeText, err := prompt.Field(data, "mode_"+mode, "analyze.mode_"+mode)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(system) + "\n\n" + strings.TrimSpace(modeText), nil
}

// AnalyzeUser 는 슬라이드 한 장에 대한 분석 유저 프롬프트를 반환한다.
func (p *Prompts) AnalyzeUser(slideNumber int, slideText string) (string, error) {
	data, err := p.bundle.Prompt("analyze")
	if err != nil {
		return "", err
	}
	template, err := prompt.Field(data, "user", "analyze.user")
	if err != nil {
		return "", err
	}
	formatted, err := prompt.FormatTemplate(template, map[string]string{
		"slide_number": strconv.Itoa(slideNumber),
		"slide_text":   prompt.WrapXML("slide_text", slideText),
	})
	if err != nil {
		return "", fmt.Errorf("format analyze.user: %w", err)
	}
	return formatted, nil
}

// QuizSystem 은 퀴즈 시스템 프롬프트를 반환한다.
func (p *Prompts) QuizSystem() (string, error) {
	data, err := p.bundle.Prompt("quiz")
	if err != nil {
		return "", err
	}
	return prompt.Field(data, "system", "quiz.system")
}

// QuizUser 는 퀴즈 유저 프롬프트를 반환한다.
func (p *Prompts) QuizUser(slides []Slide, questionCount int) (string, error) {
	data, err := p.bundle.Prompt("quiz")
	if err != nil {
		return "", err
	}
	template, err := prompt.Field(data, "user", "quiz.user")
	if err != nil {
		return "", err
	}
	formatted, err := prompt.FormatTemplate(template, map[string]string{
		"question_count": strconv.Itoa(questionCount),
		"slide_text":     renderSlides(slides),
	})
	if err != nil {
		return "", fmt.Errorf("format quiz.user: %w", err)
	}
	return formatted, nil
}

// VoiceSystem 은 음성 스크립트 시스템 프롬프트를 반환한다.
func (p *Prompts) VoiceSystem() (string, error) {
	data, err := p.bundle.Prompt("voice")
	if err != nil {
		return "", err
	}
	return prompt.Field(data, "system", "voice.system")
}

// VoiceUser 는 음성 스크립트 유저 프롬프트를 반환한다.
func (p *Prompts) VoiceUser(slides []Slide) (string, error) {
	data, err := p.bundle.Prompt("voice")
	if err != nil {
		return "", err
	}
	template, err := prompt.Field(data, "user", "voice.user")
	if err != nil {
		return "", err
	}
	formatted, err := prompt.FormatTemplate(template, map[string]string{
		"slide_text": renderSlides(slides),
	})
	if err != nil {
		return "", fmt.Errorf("format voice.user: %w", err)
	}
	return formatted, nil
}

func renderSlides(slides []Slide) string {
	parts := make([]string, 0, len(slides))
	for _, slide := range slides {
		parts = append(parts, fmt.Sprintf("Slide %d:\n%s", slide.Number, prompt.WrapXML("slide_text", slide.Text)))
	}
	return strings.Join(parts, "\n\n")
}
