package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/zacharykka/campaign-console/internal/domain"
	"github.com/zacharykka/campaign-console/internal/middleware"
	"github.com/zacharykka/campaign-console/internal/service/identity"
	"github.com/zacharykka/campaign-console/pkg/httpx"
)

// AuthHandler 处理 auth-management 入口：注册、登录、刷新与个人档案。
type AuthHandler struct {
	service *identity.Service
}

// NewAuthHandler 构造认证处理器。
func NewAuthHandler(service *identity.Service) *AuthHandler {
	return &AuthHandler{service: service}
}

// RegisterRoutes 注册认证入口。
func (h *AuthHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/auth-management", h.Handle)
}

type authRequest struct {
	Action   string          `json:"action" binding:"required"`
	UserData json.RawMessage `json:"userData"`
}

type registerData struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	FullName string `json:"full_name"`
	Company  string `json:"company"`
	Phone    string `json:"phone"`
}

type loginData struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type refreshData struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type profileData struct {
	FullName *string `json:"full_name"`
	Company  *string `json:"company"`
	Phone    *string `json:"phone"`
}

// Handle 按 action 分发认证请求；register/login/refresh 无需令牌。
func (h *AuthHandler) Handle(ctx *gin.Context) {
	var req authRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondBindError(ctx, err)
		return
	}

	switch req.Action {
	case "register":
		h.register(ctx, req.UserData)
	case "login":
		h.login(ctx, req.UserData)
	case "refresh":
		h.refresh(ctx, req.UserData)
	case "get-profile":
		h.getProfile(ctx)
	case "update-profile":
		h.updateProfile(ctx, req.UserData)
	default:
		httpx.RespondError(ctx, http.StatusBadRequest, "UNKNOWN_ACTION", "Invalid action")
	}
}

func (h *AuthHandler) register(ctx *gin.Context, raw json.RawMessage) {
	var data registerData
	if !bindUserData(ctx, raw, &data) {
		return
	}

	user, err := h.service.Register(ctx.Request.Context(), identity.RegisterInput{
		Email:    data.Email,
		Password: data.Password,
		FullName: data.FullName,
		Company:  data.Company,
		Phone:    data.Phone,
	})
	if err != nil {
		h.handleError(ctx, err)
		return
	}

	httpx.RespondSuccess(ctx, gin.H{"user": user})
}

func (h *AuthHandler) login(ctx *gin.Context, raw json.RawMessage) {
	var data loginData
	if !bindUserData(ctx, raw, &data) {
		return
	}

	session, user, err := h.service.Login(ctx.Request.Context(), data.Email, data.Password)
	if err != nil {
		h.handleError(ctx, err)
		return
	}

	httpx.RespondSuccess(ctx, gin.H{
		"session": session,
		"user":    user,
	})
}

func (h *AuthHandler) refresh(ctx *gin.Context, raw json.RawMessage) {
	var data refreshData
	if !bindUserData(ctx, raw, &data) {
		return
	}

	session, user, err := h.service.Refresh(ctx.Request.Context(), data.RefreshToken)
	if err != nil {
		h.handleError(ctx, err)
		return
	}

	httpx.RespondSuccess(ctx, gin.H{
		"session": session,
		"user":    user,
	})
}

func (h *AuthHandler) getProfile(ctx *gin.Context) {
	principal := middleware.PrincipalFrom(ctx)
	if principal == nil {
		h.handleError(ctx, identity.ErrUnauthenticated)
		return
	}

	profile, err := h.service.GetProfile(ctx.Request.Context(), principal.ID)
	if err != nil {
		h.handleError(ctx, err)
		return
	}

	httpx.RespondSuccess(ctx, gin.H{"profile": profile})
}

func (h *AuthHandler) updateProfile(ctx *gin.Context, raw json.RawMessage) {
	principal := middleware.PrincipalFrom(ctx)
	if principal == nil {
		h.handleError(ctx, identity.ErrUnauthenticated)
		return
	}

	var data profileData
	if !bindUserData(ctx, raw, &data) {
		return
	}

	profile, err := h.service.UpdateProfile(ctx.Request.Context(), principal.ID, domain.UserProfileParams{
		FullName: data.FullName,
		Company:  data.Company,
		Phone:    data.Phone,
	})
	if err != nil {
		h.handleError(ctx, err)
		return
	}

	httpx.RespondSuccess(ctx, gin.H{"profile": profile})
}

// bindUserData 解析并校验 userData，失败时已写出 400。
func bindUserData(ctx *gin.Context, raw json.RawMessage, obj any) bool {
	if len(raw) == 0 || string(raw) == "null" {
		raw = json.RawMessage("{}")
	}
	if err := binding.JSON.BindBody(raw, obj); err != nil {
		httpx.RespondError(ctx, http.StatusBadRequest, "VALIDATION_FAILURE", "invalid userData")
		return false
	}
	return true
}

func (h *AuthHandler) handleError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, identity.ErrInvalidInput):
		httpx.RespondError(ctx, http.StatusBadRequest, "VALIDATION_FAILURE", err.Error())
	case errors.Is(err, identity.ErrUserExists):
		httpx.RespondError(ctx, http.StatusConflict, "USER_EXISTS", "A user with this email already exists")
	case errors.Is(err, identity.ErrInvalidCredentials):
		httpx.RespondError(ctx, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password")
	case errors.Is(err, identity.ErrUserDisabled):
		httpx.RespondError(ctx, http.StatusForbidden, "USER_DISABLED", "User account is disabled")
	case errors.Is(err, identity.ErrTokenInvalid):
		httpx.RespondError(ctx, http.StatusUnauthorized, "TOKEN_INVALID", "Invalid refresh token")
	case errors.Is(err, identity.ErrUnauthenticated):
		httpx.RespondError(ctx, http.StatusUnauthorized, "UNAUTHENTICATED", "Unauthorized")
	case errors.Is(err, domain.ErrNotFound):
		httpx.RespondError(ctx, http.StatusNotFound, "PROFILE_NOT_FOUND", "Profile not found")
	default:
		httpx.RespondError(ctx, http.StatusBadGateway, "UPSTREAM_FAILURE", "Identity store unavailable")
	}
}
