package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	"github.com/zacharykka/campaign-console/pkg/httpx"
	"go.uber.org/zap"
)

// KeyFunc 提取用于限流的 key。
type KeyFunc func(*gin.Context) string

// RateLimit 返回基于 limiter 的 Gin 中间件。
// 存储不可用时放行请求并记录告警。
func RateLimit(l *limiter.Limiter, keyFunc KeyFunc, logger *zap.Logger) gin.HandlerFunc {
	if keyFunc == nil {
		keyFunc = KeyByClientIP()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(ctx *gin.Context) {
		key := keyFunc(ctx)
		if key == "" {
			key = "ip:" + ctx.ClientIP()
		}

		limit, err := l.Get(ctx.Request.Context(), key)
		if err != nil {
			logger.Warn("rate limit store unavailable", zap.String("key", key), zap.Error(err))
			ctx.Next()
			return
		}

		header := ctx.Writer.Header()
		header.Set("X-RateLimit-Limit", strconv.FormatInt(limit.Limit, 10))
		header.Set("X-RateLimit-Remaining", strconv.FormatInt(limit.Remaining, 10))
		header.Set("X-RateLimit-Reset", strconv.FormatInt(limit.Reset, 10))

		if limit.Reached {
			header.Set("Retry-After", strconv.FormatInt(retryAfter(limit.Reset, time.Now()), 10))
			httpx.RespondError(ctx, http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED", "Too many requests, please retry later")
			return
		}

		ctx.Next()
	}
}

// retryAfter 将重置时间戳换算为剩余秒数，至少为 1。
func retryAfter(reset int64, now time.Time) int64 {
	if wait := reset - now.Unix(); wait > 0 {
		return wait
	}
	return 1
}

// KeyByClientIP 使用客户端 IP 作为限流 key。
func KeyByClientIP() KeyFunc {
	return func(ctx *gin.Context) string {
		return "ip:" + ctx.ClientIP()
	}
}

// KeyByPrincipalOrIP 优先使用已认证调用者 ID，否则回退到 IP。
func KeyByPrincipalOrIP() KeyFunc {
	return func(ctx *gin.Context) string {
		if principal := PrincipalFrom(ctx); principal != nil && principal.ID != "" {
			return "principal:" + principal.ID
		}
		return "ip:" + ctx.ClientIP()
	}
}
