package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zacharykka/campaign-console/internal/domain"
	"github.com/zacharykka/campaign-console/internal/service/access"
	"github.com/zacharykka/campaign-console/pkg/httpx"
	"go.uber.org/zap"
)

// PrincipalContextKey 在上下文中存储已解析的调用者。
const PrincipalContextKey = "principal"

// PrincipalResolver 由 Bearer 凭证解析调用者。
type PrincipalResolver interface {
	Resolve(ctx context.Context, bearer string) (*domain.Principal, error)
}

// Authenticate 尝试解析调用者，失败时不拦截，由后续授权决定是否拒绝。
// unauthenticated 判断错误是否属于凭证问题；其余错误视为存储故障并返回 502。
func Authenticate(resolver PrincipalResolver, unauthenticated error, logger *zap.Logger) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		header := ctx.GetHeader("Authorization")
		if header == "" {
			ctx.Next()
			return
		}

		principal, err := resolver.Resolve(ctx.Request.Context(), header)
		if err != nil {
			if unauthenticated != nil && errors.Is(err, unauthenticated) {
				ctx.Next()
				return
			}
			logger.Error("resolve principal failed", zap.Error(err))
			httpx.RespondError(ctx, http.StatusBadGateway, "UPSTREAM_FAILURE", "failed to resolve identity")
			return
		}

		ctx.Set(PrincipalContextKey, principal)
		ctx.Next()
	}
}

// PrincipalFrom 从上下文读取调用者，未认证时返回 nil。
func PrincipalFrom(ctx *gin.Context) *domain.Principal {
	val, ok := ctx.Get(PrincipalContextKey)
	if !ok {
		return nil
	}
	if principal, ok := val.(*domain.Principal); ok {
		return principal
	}
	return nil
}

// RequireAccess 按门槛拦截请求。
func RequireAccess(requirement access.Requirement) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		decision := access.Authorize(PrincipalFrom(ctx), requirement)
		if decision.Allowed {
			ctx.Next()
			return
		}
		if decision.Reason == access.ReasonUnauthenticated {
			httpx.RespondError(ctx, http.StatusUnauthorized, string(access.ReasonUnauthenticated), "Unauthorized")
			return
		}
		httpx.RespondError(ctx, http.StatusForbidden, string(access.ReasonForbidden), "Access denied - insufficient privileges")
	}
}
