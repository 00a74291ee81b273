package httperror

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/slidenote/server-go/internal/guard"
	"github.com/slidenote/server-go/internal/llm"
)

// ErrorCode 는 API 오류 코드다.
type ErrorCode string

const (
	// ErrorCodeInternal 는 내부 오류 코드다.
	ErrorCodeInternal ErrorCode = "INTERNAL_ERROR"
	// ErrorCodeValidation 는 검증 오류 코드다.
	ErrorCodeValidation ErrorCode = "VALIDATION_ERROR"
	// ErrorCodeUnauthorized 는 인증 오류 코드다.
	ErrorCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	// ErrorCodeRateLimitExceeded 는 일일 한도 초과 코드다.
	ErrorCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"
	// ErrorCodeHTTPRateLimit 는 분당 요청 제한 오류 코드다.
	ErrorCodeHTTPRateLimit ErrorCode = "HTTP_RATE_LIMIT"
	// ErrorCodeUpstreamBusy 는 일시적 상류 장애 코드다.
	ErrorCodeUpstreamBusy ErrorCode = "UPSTREAM_BUSY"
	// ErrorCodeLedger 는 사용량 원장 오류 코드다.
	ErrorCodeLedger ErrorCode = "LEDGER_ERROR"
	// ErrorCodeLLM 는 LLM 오류 코드다.
	ErrorCodeLLM ErrorCode = "LLM_ERROR"
	// ErrorCodeLLMTimeout 는 LLM 타임아웃 코드다.
	ErrorCodeLLMTimeout ErrorCode = "LLM_TIMEOUT"
	// ErrorCodeLLMParsing 는 LLM 파싱 오류 코드다.
	ErrorCodeLLMParsing ErrorCode = "LLM_PARSING_ERROR"
	// ErrorCodeGuardBlocked 는 가드 차단 코드다.
	ErrorCodeGuardBlocked ErrorCode = "GUARD_BLOCKED"
	// ErrorCodeInvalidInput 는 입력 오류 코드다.
	ErrorCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrorCodeMissingField 는 필드 누락 코드다.
	ErrorCodeMissingField ErrorCode = "MISSING_FIELD"
)

// ErrorResponse 는 API 오류 응답 본문이다.
type ErrorResponse struct {
	ErrorCode string         `json:"error_code"`
	ErrorType string         `json:"error_type"`
	Message   string         `json:"message"`
	RequestID *string        `json:"request_id"`
	Details   map[string]any `json:"details"`
}

// Error 는 내부 표준 오류 타입이다.
type Error struct {
	Code    ErrorCode
	Status  int
	Type    string
	Message string
	Details map[string]any
}

// Error 는 오류 메시지를 반환한다.
func (e *Error) Error() string {
	return e.Message
}

// Response 는 오류를 HTTP 응답으로 변환한다.
func Response(err error, requestID string) (int, ErrorResponse) {
	apiErr := FromError(err)
	if apiErr == nil {
		apiErr = NewInternalError("unknown error")
	}

	var requestIDPtr *string
	if requestID != "" {
		requestIDPtr = &requestID
	}

	return apiErr.Status, ErrorResponse{
		ErrorCode: string(apiErr.Code),
		ErrorType: apiErr.Type,
		Message:   apiErr.Message,
		RequestID: requestIDPtr,
		Details:   apiErr.Details,
	}
}

// FromError 는 오류를 내부 오류 타입으로 변환한다.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}

	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var blocked *guard.BlockedError
	if errors.As(err, &blocked) {
		return NewGuardBlocked(blocked.Score, blocked.Threshold)
	}

	if errors.Is(err, llm.ErrUpstreamBusy) {
		return NewUpstreamBusy(err.Error())
	}

	if errors.Is(err, llm.ErrMissingAPIKey) {
		return NewLLMError("Missing LLM API key", http.StatusServiceUnavailable)
	}

	if errors.Is(err, llm.ErrEmptyResponse) {
		return NewLLMParsingError("Empty LLM response")
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return NewLLMTimeoutError("LLM request timed out")
	}

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		return NewValidationError(err)
	}

	return NewInternalError(err.Error())
}

// NewInternalError 는 내부 오류를 생성한다.
func NewInternalError(message string) *Error {
	return &Error{
		Code:    ErrorCodeInternal,
		Status:  http.StatusInternalServerError,
		Type:    "InternalError",
		Message: message,
		Details: nil,
	}
}

// NewValidationError 는 검증 오류를 생성한다.
func NewValidationError(err error) *Error {
	return &Error{
		Code:    ErrorCodeValidation,
		Status:  http.StatusUnprocessableEntity,
		Type:    "ValidationError",
		Message: "Input validation failed",
		Details: validationDetails(err),
	}
}

// NewMissingField 는 누락 필드 오류를 생성한다.
func NewMissingField(field string) *Error {
	return &Error{
		Code:    ErrorCodeMissingField,
		Status:  http.StatusBadRequest,
		Type:    "MissingFieldError",
		Message: fmt.Sprintf("Field '%s' required", field),
		Details: map[string]any{"field": field},
	}
}

// NewInvalidInput 는 입력 오류를 생성한다.
func NewInvalidInput(message string) *Error {
	return &Error{
		Code:    ErrorCodeInvalidInput,
		Status:  http.StatusBadRequest,
		Type:    "InvalidInputError",
		Message: message,
		Details: nil,
	}
}

// NewUnauthorized 는 인증 오류를 생성한다.
func NewUnauthorized(details map[string]any) *Error {
	return &Error{
		Code:    ErrorCodeUnauthorized,
		Status:  http.StatusUnauthorized,
		Type:    "UnauthorizedError",
		Message: "Invalid or missing bearer token",
		Details: details,
	}
}

// NewDailyLimitReached 는 일일 한도 초과 오류를 생성한다.
func NewDailyLimitReached(details map[string]any) *Error {
	return &Error{
		Code:    ErrorCodeRateLimitExceeded,
		Status:  http.StatusTooManyRequests,
		Type:    "RateLimitExceededError",
		Message: "Daily limit reached",
		Details: details,
	}
}

// NewHTTPRateLimitExceeded 는 분당 요청 제한 오류를 생성한다.
func NewHTTPRateLimitExceeded(details map[string]any) *Error {
	return &Error{
		Code:    ErrorCodeHTTPRateLimit,
		Status:  http.StatusTooManyRequests,
		Type:    "HTTPRateLimitExceededError",
		Message: "Rate limit exceeded",
		Details: details,
	}
}

// NewUpstreamBusy 는 일시적 상류 장애 오류를 생성한다.
func NewUpstreamBusy(message string) *Error {
	if message == "" {
		message = "Upstream AI temporarily unavailable"
	}
	return &Error{
		Code:    ErrorCodeUpstreamBusy,
		Status:  http.StatusServiceUnavailable,
		Type:    "UpstreamBusyError",
		Message: message,
		Details: nil,
	}
}

// NewLedgerError 는 사용량 원장 오류를 생성한다. 저장소 장애는 허용이 아니라 오류다.
func NewLedgerError(message string) *Error {
	return &Error{
		Code:    ErrorCodeLedger,
		Status:  http.StatusInternalServerError,
		Type:    "LedgerError",
		Message: message,
		Details: nil,
	}
}

// NewGuardBlocked 는 가드 차단 오류를 생성한다.
func NewGuardBlocked(score float64, threshold float64) *Error {
	return &Error{
		Code:    ErrorCodeGuardBlocked,
		Status:  http.StatusBadRequest,
		Type:    "GuardBlockedError",
		Message: fmt.Sprintf("Input blocked by injection guard (score=%.2f, threshold=%.2f)", score, threshold),
		Details: map[string]any{"score": score, "threshold": threshold},
	}
}

// NewLLMTimeoutError 는 LLM 타임아웃 오류를 생성한다.
func NewLLMTimeoutError(message string) *Error {
	return &Error{
		Code:    ErrorCodeLLMTimeout,
		Status:  http.StatusGatewayTimeout,
		Type:    "LLMTimeoutError",
		Message: message,
		Details: nil,
	}
}

// NewLLMParsingError 는 LLM 파싱 오류를 생성한다.
func NewLLMParsingError(message string) *Error {
	return &Error{
		Code:    ErrorCodeLLMParsing,
		Status:  http.StatusInternalServerError,
		Type:    "LLMParsingError",
		Message: message,
		Details: nil,
	}
}

// NewLLMError 는 LLM 오류를 생성한다.
func NewLLMError(message string, status int) *Error {
	return &Error{
		Code:    ErrorCodeLLM,
		Status:  status,
		Type:    "LLMError",
		Message: message,
		Details: nil,
	}
}

// FieldError 는 필드 오류 상세 정보다.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Value   any    `json:"value"`
}

func validationDetails(err error) map[string]any {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		fields := make([]FieldError, 0, len(validationErrors))
		for _, validationErr := range validationErrors {
			fields = append(fields, FieldError{
				Field:   validationErr.Field(),
				Message: validationErr.Error(),
				Value:   validationErr.Value(),
			})
		}
		return map[string]any{"errors": fields}
	}

	return map[string]any{
		"errors": []FieldError{
			{
				Field:   "body",
				Message: err.Error(),
				Value:   nil,
			},
		},
	}
}
