package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/zacharykka/campaign-console/internal/config"
)

type headerPair struct {
	name  string
	value string
}

// SecurityHeaders 设置通用安全响应头；跨域相关头由 CORS 中间件负责。
// 头部列表在构造时确定，空值直接跳过。
func SecurityHeaders(cfg config.SecurityHeadersConfig) gin.HandlerFunc {
	candidates := []headerPair{
		{"X-Frame-Options", cfg.FrameOptions},
		{"Referrer-Policy", cfg.ReferrerPolicy},
		{"Content-Security-Policy", cfg.ContentSecurityPolicy},
		{"Cross-Origin-Resource-Policy", cfg.CrossOriginResourcePolicy},
		{"Strict-Transport-Security", cfg.StrictTransportSecurity},
	}
	if cfg.ContentTypeNosniff {
		candidates = append(candidates, headerPair{"X-Content-Type-Options", "nosniff"})
	}

	headers := make([]headerPair, 0, len(candidates))
	for _, pair := range candidates {
		if value := strings.TrimSpace(pair.value); value != "" {
			headers = append(headers, headerPair{name: pair.name, value: value})
		}
	}

	return func(ctx *gin.Context) {
		out := ctx.Writer.Header()
		for _, pair := range headers {
			out.Set(pair.name, pair.value)
		}
		ctx.Next()
	}
}
