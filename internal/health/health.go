package health

import (
	"context"
	"time"

	"github.com/slidenote/server-go/internal/config"
	"github.com/slidenote/server-go/internal/ledger"
)

var startTime = time.Now()

// Component 는 상태 구성 요소다.
type Component struct {
	Status string         `json:"status"`
	Detail map[string]any `json:"detail"`
}

// Response 는 상태 응답 본문이다.
type Response struct {
	Status     string               `json:"status"`
	Components map[string]Component `json:"components"`
}

// Collect 는 헬스 상태를 수집한다.
// deepChecks가 true면 원장 저장소에 실제로 ping을 보낸다.
func Collect(ctx context.Context, cfg *config.Config, store *ledger.Store, deepChecks bool) Response {
	components := make(map[string]Component)

	components["app"] = buildAppStatus()
	components["ledger_store"] = buildLedgerStoreStatus(ctx, cfg, store, deepChecks)
	components["providers"] = buildProviderStatus(cfg)

	overall := "ok"
	for _, component := range components {
		if component.Status != "ok" {
			overall = "degraded"
			break
		}
	}

	return Response{
		Status:     overall,
		Components: components,
	}
}

func buildAppStatus() Component {
	uptimeSeconds := int(time.Since(startTime).Seconds())
	return Component{
		Status: "ok",
		Detail: map[string]any{
			"uptime_seconds": uptimeSeconds,
		},
	}
}

func buildProviderStatus(cfg *config.Config) Component {
	groqKeyPresent := false
	geminiKeyPresent := false
	groqModel := ""
	quizModel := ""
	voiceModel := ""

	if cfg != nil {
		groqKeyPresent = cfg.Groq.APIKey != ""
		geminiKeyPresent = cfg.Gemini.PrimaryKey() != ""
		groqModel = cfg.Groq.Model
		quizModel = cfg.Gemini.QuizModel
		voiceModel = cfg.Gemini.VoiceModel
	}

	status := "ok"
	if !groqKeyPresent || !geminiKeyPresent {
		status = "degraded"
	}

	return Component{
		Status: status,
		Detail: map[string]any{
			"groq_api_key_present":   groqKeyPresent,
			"gemini_api_key_present": geminiKeyPresent,
			"groq_model":             groqModel,
			"gemini_quiz_model":      quizModel,
			"gemini_voice_model":     voiceModel,
		},
	}
}

func buildLedgerStoreStatus(ctx context.Context, cfg *config.Config, store *ledger.Store, deepChecks bool) Component {
	backend := "memory"
	storeEnabled := false
	reachable := false
	pingErr := ""

	if cfg != nil {
		storeEnabled = cfg.LedgerStore.Enabled
	}
	if storeEnabled {
		backend = "valkey"
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if deepChecks && store != nil {
		checkCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()

		if err := store.Ping(checkCtx); err != nil {
			pingErr = err.Error()
		} else {
			reachable = true
		}
	}

	status := "ok"
	if deepChecks && storeEnabled && !reachable {
		status = "degraded"
	}

	detail := map[string]any{
		"backend": backend,
		"enabled": storeEnabled,
	}
	if deepChecks {
		detail["reachable"] = reachable
		if pingErr != "" {
			detail["error"] = pingErr
		}
	}

	return Component{
		Status: status,
		Detail: detail,
	}
}
