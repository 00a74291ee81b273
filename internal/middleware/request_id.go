package middleware

import (
	"crypto/rand"
	"encoding/hex"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// RequestIDHeader 는 요청 ID 헤더 키다.
const RequestIDHeader = "X-Request-ID"

const requestIDKey = "request_id"

// RequestID 는 요청마다 ID를 부여한다. 클라이언트가 보낸 값이 있으면 그대로 쓴다.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = generateRequestID()
		}
		c.Set(requestIDKey, requestID)

		c.Next()

		c.Header(RequestIDHeader, requestID)
	}
}

// GetRequestID: 컨텍스트의 요청 ID를 반환합니다.
func GetRequestID(c *gin.Context) string {
	if c == nil {
		return ""
	}
	value, ok := c.Get(requestIDKey)
	if !ok {
		return ""
	}
	requestID, _ := value.(string)
	return requestID
}

func generateRequestID() string {
	buf := make([]byte, 12)
	if _, err := rand.Read(buf); err != nil {
		return "req-" + strconv.FormatInt(time.Now().UnixNano(), 36)
	}
	return hex.EncodeToString(buf)
}
