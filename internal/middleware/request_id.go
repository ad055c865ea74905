package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// RequestIDContextKey 是在 Gin Context 中存储请求 ID 的键名。
	RequestIDContextKey = "request_id"
	requestIDHeader     = "X-Request-ID"
	maxRequestIDLength  = 128
)

// RequestID 沿用客户端提供的 X-Request-ID，缺失或过长时生成新的 ID，并回写到响应头。
func RequestID() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		requestID := strings.TrimSpace(ctx.GetHeader(requestIDHeader))
		if requestID == "" || len(requestID) > maxRequestIDLength {
			requestID = uuid.NewString()
		}
		ctx.Set(RequestIDContextKey, requestID)
		ctx.Writer.Header().Set(requestIDHeader, requestID)
		ctx.Next()
	}
}

// GetRequestID 从上下文读取请求 ID。
func GetRequestID(ctx *gin.Context) string {
	return ctx.GetString(RequestIDContextKey)
}
