package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/slidenote/server-go/internal/auth"
	"github.com/slidenote/server-go/internal/httperror"
)

const (
	userIDKey    = "user_id"
	userEmailKey = "user_email"
)

// anonymousUserID 는 인증이 꺼진 로컬 배포에서 쓰는 호출자 ID다.
// 사용량 원장은 이 ID 하나로 집계된다.
const anonymousUserID = "local"

// BearerAuth 는 bearer ID 토큰 인증 미들웨어다. 검증은 주입된
// TokenVerifier 에 위임한다. verifier 가 nil 이면 인증이 꺼진 것으로
// 보고 익명 신원을 부여한다.
func BearerAuth(verifier auth.TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !shouldProtectPath(c.Request.URL.Path) {
			c.Next()
			return
		}

		if verifier == nil {
			c.Set(userIDKey, anonymousUserID)
			c.Next()
			return
		}

		token := extractBearerToken(c)
		if token == "" {
			details := map[string]any{"path": c.Request.URL.Path}
			status, payload := httperror.Response(httperror.NewUnauthorized(details), GetRequestID(c))
			c.AbortWithStatusJSON(status, payload)
			return
		}

		identity, err := verifier.Verify(c.Request.Context(), token)
		if err != nil || identity == nil || identity.UserID == "" {
			details := map[string]any{"path": c.Request.URL.Path}
			status, payload := httperror.Response(httperror.NewUnauthorized(details), GetRequestID(c))
			c.AbortWithStatusJSON(status, payload)
			return
		}

		c.Set(userIDKey, identity.UserID)
		c.Set(userEmailKey, identity.Email)
		c.Next()
	}
}

// GetUserID 는 컨텍스트의 검증된 사용자 ID를 반환한다.
func GetUserID(c *gin.Context) string {
	if c == nil {
		return ""
	}
	value, ok := c.Get(userIDKey)
	if !ok {
		return ""
	}
	userID, ok := value.(string)
	if !ok {
		return ""
	}
	return userID
}

func extractBearerToken(c *gin.Context) string {
	if c == nil {
		return ""
	}

	authValue := strings.TrimSpace(c.GetHeader("Authorization"))
	if authValue == "" {
		return ""
	}

	if strings.HasPrefix(strings.ToLower(authValue), "bearer ") {
		return strings.TrimSpace(authValue[7:])
	}

	return ""
}

func shouldProtectPath(path string) bool {
	return strings.HasPrefix(path, "/api/")
}
