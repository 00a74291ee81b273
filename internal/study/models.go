package study

// Slide 는 클라이언트가 추출해 보낸 슬라이드 한 장의 텍스트다.
type Slide struct {
	Number int
	Text   string
}

// SlideExplanation 은 슬라이드 한 장의 분석 결과다.
type SlideExplanation struct {
	Slide       int    `json:"slide"`
	Explanation string `json:"explanation"`
}

// AnalyzeResult 는 분석 응답이다.
type AnalyzeResult struct {
	Explanations []SlideExplanation `json:"explanations"`
	Model        string             `json:"model"`
}

// QuizQuestion 은 4지선다 퀴즈 문항이다.
type QuizQuestion struct {
	Question    string   `json:"question"`
	Options     []string `json:"options"`
	AnswerIndex int      `json:"answer_index"`
	Explanation string   `json:"explanation"`
}

// QuizResult 는 퀴즈 응답이다.
type QuizResult struct {
	Questions []QuizQuestion `json:"questions"`
	Model     string         `json:"model"`
}

// VoiceScriptResult 는 음성 스크립트 응답이다.
type VoiceScriptResult struct {
	Script string `json:"script"`
	Model  string `json:"model"`
}

var quizSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"questions": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"question": map[string]any{
						"type": "string",
					},
					"options": map[string]any{
						"type":     "array",
						"items":    map[string]any{"type": "string"},
						"minItems": 4,
						"maxItems": 4,
					},
					"answer_index": map[string]any{
						"type":        "integer",
						"description": "Index of the correct option, 0 to 3",
					},
					"explanation": map[string]any{
						"type": "string",
					},
				},
				"required": []string{"question", "options", "answer_index", "explanation"},
			},
		},
	},
	"required": []string{"questions"},
}

// QuizSchema 는 퀴즈 구조화 응답 스키마를 반환한다.
func QuizSchema() map[string]any {
	return quizSchema
}
