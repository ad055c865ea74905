package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zacharykka/campaign-console/internal/domain"
	"github.com/zacharykka/campaign-console/internal/middleware"
	"github.com/zacharykka/campaign-console/internal/service/dispatch"
	"github.com/zacharykka/campaign-console/pkg/httpx"
)

// ActionDispatcher 由动作分发器实现。
type ActionDispatcher interface {
	Admit(principal *domain.Principal, surface dispatch.Surface) error
	Dispatch(ctx context.Context, principal *domain.Principal, surface dispatch.Surface, name string, data json.RawMessage) (dispatch.Result, error)
}

// FunctionHandler 承载管理后台与语音集成两个动作入口。
type FunctionHandler struct {
	dispatcher ActionDispatcher
}

// NewFunctionHandler 创建入口处理器。
func NewFunctionHandler(dispatcher ActionDispatcher) *FunctionHandler {
	return &FunctionHandler{dispatcher: dispatcher}
}

// RegisterRoutes 注册两个动作入口。
func (h *FunctionHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/"+string(dispatch.SurfaceAdmin), h.serve(dispatch.SurfaceAdmin))
	rg.POST("/"+string(dispatch.SurfaceVoice), h.serve(dispatch.SurfaceVoice))
}

type actionRequest struct {
	Action string          `json:"action" binding:"required"`
	Data   json.RawMessage `json:"data"`
}

func (h *FunctionHandler) serve(surface dispatch.Surface) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		principal := middleware.PrincipalFrom(ctx)

		var req actionRequest
		if err := ctx.ShouldBindJSON(&req); err != nil {
			// 入口基线先于请求体校验，避免向未授权调用者暴露任何细节。
			if admitErr := h.dispatcher.Admit(principal, surface); admitErr != nil {
				respondDispatchError(ctx, admitErr)
				return
			}
			respondBindError(ctx, err)
			return
		}

		result, err := h.dispatcher.Dispatch(ctx.Request.Context(), principal, surface, req.Action, req.Data)
		if err != nil {
			respondDispatchError(ctx, err)
			return
		}
		httpx.RespondSuccess(ctx, result)
	}
}

func respondDispatchError(ctx *gin.Context, err error) {
	kind := dispatch.KindOf(err)
	httpx.RespondError(ctx, kind.HTTPStatus(), string(kind), dispatch.PublicMessage(err))
}

func respondBindError(ctx *gin.Context, err error) {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		httpx.RespondError(ctx, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "request body too large")
		return
	}
	httpx.RespondError(ctx, http.StatusBadRequest, string(dispatch.KindValidation), "invalid request body")
}
