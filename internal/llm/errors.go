package llm

import "errors"

var (
	// ErrMissingAPIKey 는 API 키 미설정 오류다.
	ErrMissingAPIKey = errors.New("api key not configured")
	// ErrUpstreamBusy 는 일시적인 상류 장애(429/5xx/타임아웃) 오류다.
	ErrUpstreamBusy = errors.New("upstream llm busy")
	// ErrEmptyResponse 는 빈 응답 오류다.
	ErrEmptyResponse = errors.New("empty llm response")
)
