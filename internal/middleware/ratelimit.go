package middleware

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/slidenote/server-go/internal/cache"
	"github.com/slidenote/server-go/internal/config"
	"github.com/slidenote/server-go/internal/httperror"
)

// RateLimit 는 분당 요청 제한 미들웨어다. 일일 한도와 별개로 순간
// 폭주를 막는 앞단 장치이며 기본값은 비활성이다.
func RateLimit(cfg *config.Config) gin.HandlerFunc {
	limit := 0
	cacheSize := 0
	cacheTTL := time.Duration(0)
	if cfg != nil {
		limit = cfg.HTTPRateLimit.RequestsPerMinute
		cacheSize = cfg.HTTPRateLimit.CacheSize
		cacheTTL = time.Duration(cfg.HTTPRateLimit.CacheTTLSeconds) * time.Second
	}

	counter := cache.NewTTLCache[string, int](cacheSize, cacheTTL)

	return func(c *gin.Context) {
		if limit <= 0 {
			c.Next()
			return
		}

		if c.Request.Method == http.MethodOptions || !shouldProtectPath(c.Request.URL.Path) {
			c.Next()
			return
		}

		identity := rateLimitIdentity(c)
		window := time.Now().Unix() / 60
		key := fmt.Sprintf("%s:%d", identity, window)

		count := counter.Modify(key, func(current int, _ bool) int { return current + 1 })
		if count > limit {
			details := map[string]any{
				"path":             c.Request.URL.Path,
				"identity":         identity,
				"limit_per_minute": limit,
			}
			status, payload := httperror.Response(httperror.NewHTTPRateLimitExceeded(details), GetRequestID(c))
			c.AbortWithStatusJSON(status, payload)
			return
		}

		c.Next()
	}
}

func rateLimitIdentity(c *gin.Context) string {
	if userID := GetUserID(c); userID != "" {
		return "user:" + hashKey(userID)
	}

	forwarded := strings.TrimSpace(c.GetHeader("X-Forwarded-For"))
	if forwarded != "" {
		ip := strings.TrimSpace(strings.Split(forwarded, ",")[0])
		if ip != "" {
			return "ip:" + ip
		}
	}

	if c.ClientIP() != "" {
		return "ip:" + c.ClientIP()
	}

	return "ip:unknown"
}

func hashKey(value string) string {
	sum := sha256.Sum256([]byte(value))
	encoded := hex.EncodeToString(sum[:])
	if len(encoded) <= 16 {
		return encoded
	}
	return encoded[:16]
}
