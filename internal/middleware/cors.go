package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORS 는 모든 오리진을 허용하는 CORS 미들웨어다. 브라우저에서 바로
// 호출되는 API라 오리진 제한 없이 preflight 만 표준대로 처리한다.
func CORS() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Authorization", "X-Idempotency-Key", RequestIDHeader},
		ExposeHeaders:   []string{"Content-Length", RequestIDHeader},
		MaxAge:          12 * time.Hour,
	})
}
