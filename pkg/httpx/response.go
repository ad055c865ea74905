package httpx

import "github.com/gin-gonic/gin"

// ErrorResponse 标准错误响应结构；Code 为附加字段，客户端可只读取 Error。
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// RespondSuccess 输出 {success: true, ...payload} 形式的成功响应。
func RespondSuccess(ctx *gin.Context, payload map[string]any) {
	body := make(gin.H, len(payload)+1)
	for key, value := range payload {
		body[key] = value
	}
	body["success"] = true
	ctx.JSON(200, body)
}

// RespondError 输出错误响应并终止处理流程。
func RespondError(ctx *gin.Context, status int, code string, message string) {
	ctx.AbortWithStatusJSON(status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
