package llm

// Provider 는 LLM 제공자 식별자다.
type Provider string

const (
	// ProviderGroq 는 Groq(OpenAI 호환) 제공자다.
	ProviderGroq Provider = "groq"
	// ProviderGemini 는 Google Gemini 제공자다.
	ProviderGemini Provider = "gemini"
)

// Usage: 토큰 사용량 정보를 담습니다.
type Usage struct {
	InputTokens     int `json:"input_tokens"`
	OutputTokens    int `json:"output_tokens"`
	TotalTokens     int `json:"total_tokens"`
	ReasoningTokens int `json:"reasoning_tokens,omitempty"`
}

// Add: 두 사용량을 합산합니다.
func (u Usage) Add(other Usage) Usage {
	return Usage{
		InputTokens:     u.InputTokens + other.InputTokens,
		OutputTokens:    u.OutputTokens + other.OutputTokens,
		TotalTokens:     u.TotalTokens + other.TotalTokens,
		ReasoningTokens: u.ReasoningTokens + other.ReasoningTokens,
	}
}

// ChatResult: LLM 응답과 사용량을 담습니다.
type ChatResult struct {
	Text  string
	Model string
	Usage Usage
}
