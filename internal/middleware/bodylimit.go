package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zacharykka/campaign-console/pkg/httpx"
)

// LimitRequestBody 限制请求体大小；声明长度超限时直接返回 413，其余情况在读取时截断。
func LimitRequestBody(maxBytes int64) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if maxBytes > 0 {
			if ctx.Request.ContentLength > maxBytes {
				httpx.RespondError(ctx, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "request body too large")
				return
			}
			ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, maxBytes)
		}
		ctx.Next()
	}
}
