package httperror

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/slidenote/server-go/internal/guard"
	"github.com/slidenote/server-go/internal/llm"
)

func TestFromErrorMapping(t *testing.T) {
	apiErr := FromError(&guard.BlockedError{Score: 0.9, Threshold: 0.8})
	if apiErr == nil || apiErr.Code != ErrorCodeGuardBlocked {
		t.Fatalf("expected guard blocked error")
	}

	apiErr = FromError(fmt.Errorf("groq: %w", llm.ErrUpstreamBusy))
	if apiErr == nil || apiErr.Code != ErrorCodeUpstreamBusy || apiErr.Status != http.StatusServiceUnavailable {
		t.Fatalf("expected upstream busy with 503")
	}

	apiErr = FromError(llm.ErrMissingAPIKey)
	if apiErr == nil || apiErr.Code != ErrorCodeLLM {
		t.Fatalf("expected llm error")
	}

	apiErr = FromError(context.DeadlineExceeded)
	if apiErr == nil || apiErr.Code != ErrorCodeLLMTimeout {
		t.Fatalf("expected timeout error")
	}
}

func TestResponseIncludesRequestID(t *testing.T) {
	status, payload := Response(NewMissingField("slide_numbers"), "req-1")
	if status != 400 {
		t.Fatalf("unexpected status: %d", status)
	}
	if payload.RequestID == nil || *payload.RequestID != "req-1" {
		t.Fatalf("expected request id")
	}
}

func TestNewDailyLimitReached(t *testing.T) {
	err := NewDailyLimitReached(map[string]any{"limit": 50})
	if err.Status != http.StatusTooManyRequests {
		t.Fatalf("expected 429 status, got: %d", err.Status)
	}
	if err.Code != ErrorCodeRateLimitExceeded {
		t.Fatalf("expected rate limit exceeded code")
	}
	if err.Message != "Daily limit reached" {
		t.Fatalf("unexpected message: %s", err.Message)
	}
}

func TestNewUnauthorized(t *testing.T) {
	err := NewUnauthorized(nil)
	if err.Status != http.StatusUnauthorized {
		t.Fatalf("expected 401 status, got: %d", err.Status)
	}
	if err.Code != ErrorCodeUnauthorized {
		t.Fatalf("expected unauthorized code")
	}
}

func TestNewUpstreamBusyDefaultMessage(t *testing.T) {
	err := NewUpstreamBusy("")
	if err.Status != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 status, got: %d", err.Status)
	}
	if err.Message == "" {
		t.Fatalf("expected default message")
	}
}

func TestNewLedgerError(t *testing.T) {
	err := NewLedgerError("ledger store unavailable")
	if err.Status != http.StatusInternalServerError {
		t.Fatalf("expected 500 status, got: %d", err.Status)
	}
	if err.Code != ErrorCodeLedger {
		t.Fatalf("expected ledger error code")
	}
}

func TestNewValidationError(t *testing.T) {
	originalErr := errors.New("field validation failed")
	err := NewValidationError(originalErr)
	// NewValidationError 는 422 Unprocessable Entity 반환
	if err.Status != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 status, got: %d", err.Status)
	}
}

func TestFromErrorNil(t *testing.T) {
	if FromError(nil) != nil {
		t.Fatalf("expected nil for nil input")
	}
}

func TestFromErrorGeneric(t *testing.T) {
	apiErr := FromError(errors.New("some generic error"))
	if apiErr == nil || apiErr.Status != http.StatusInternalServerError {
		t.Fatalf("expected 500 for generic error")
	}
}

func TestResponseWithEmptyRequestID(t *testing.T) {
	status, payload := Response(NewInternalError("test"), "")
	if status != 500 {
		t.Fatalf("unexpected status: %d", status)
	}
	if payload.RequestID != nil {
		t.Fatalf("expected nil request id for empty string")
	}
}
