package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zacharykka/campaign-console/internal/service/settings"
	"github.com/zacharykka/campaign-console/pkg/httpx"
)

// SettingsHandler 暴露语音服务商密钥的查询与更新。
type SettingsHandler struct {
	service *settings.Service
}

// NewSettingsHandler 构造设置处理器。
func NewSettingsHandler(service *settings.Service) *SettingsHandler {
	return &SettingsHandler{service: service}
}

// RegisterRoutes 注册设置路由，调用方需自行挂载授权中间件。
func (h *SettingsHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/provider", h.GetProvider)
	rg.PUT("/provider", h.PutProvider)
}

type providerKeyRequest struct {
	APIKey string `json:"api_key" binding:"required"`
}

// GetProvider 返回密钥是否已配置以及脱敏后的尾号，不返回明文。
func (h *SettingsHandler) GetProvider(ctx *gin.Context) {
	configured, err := h.service.Configured(ctx.Request.Context())
	if err != nil {
		httpx.RespondError(ctx, http.StatusBadGateway, "UPSTREAM_FAILURE", "Failed to read settings")
		return
	}
	if !configured {
		httpx.RespondSuccess(ctx, gin.H{"configured": false, "api_key_hint": ""})
		return
	}

	key, err := h.service.APIKey(ctx.Request.Context())
	if err != nil {
		httpx.RespondError(ctx, http.StatusBadGateway, "UPSTREAM_FAILURE", "Failed to read settings")
		return
	}
	httpx.RespondSuccess(ctx, gin.H{
		"configured":   true,
		"api_key_hint": settings.Hint(key),
	})
}

// PutProvider 保存新的服务商密钥。
func (h *SettingsHandler) PutProvider(ctx *gin.Context) {
	var req providerKeyRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondBindError(ctx, err)
		return
	}

	if err := h.service.Save(ctx.Request.Context(), req.APIKey); err != nil {
		if errors.Is(err, settings.ErrEmptyValue) {
			httpx.RespondError(ctx, http.StatusBadRequest, "VALIDATION_FAILURE", "api_key is required")
			return
		}
		httpx.RespondError(ctx, http.StatusBadGateway, "UPSTREAM_FAILURE", "Failed to save settings")
		return
	}

	httpx.RespondSuccess(ctx, gin.H{"message": "API key updated successfully"})
}
