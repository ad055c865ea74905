package access

import (
	"strings"

	"github.com/zacharykka/campaign-console/internal/domain"
)

// Requirement 表示动作所需的最低权限门槛。
type Requirement int

const (
	// Authenticated 任意已认证用户即可。
	Authenticated Requirement = iota
	// ManagerOrAbove 需要 manager 或 admin。
	ManagerOrAbove
	// AdminOnly 仅 admin。
	AdminOnly
)

func (r Requirement) String() string {
	switch r {
	case Authenticated:
		return "authenticated"
	case ManagerOrAbove:
		return "manager-or-above"
	case AdminOnly:
		return "admin-only"
	default:
		return "unknown"
	}
}

// Reason 为拒绝原因。
type Reason string

const (
	ReasonNone            Reason = ""
	ReasonUnauthenticated Reason = "UNAUTHENTICATED"
	ReasonForbidden       Reason = "FORBIDDEN"
)

// Decision 为一次授权判断的结果。
type Decision struct {
	Allowed bool
	Reason  Reason
}

var (
	allow        = Decision{Allowed: true}
	denyAnon     = Decision{Reason: ReasonUnauthenticated}
	denyForbid   = Decision{Reason: ReasonForbidden}
	requiredRank = map[Requirement]int{
		Authenticated:  RoleRank(domain.RoleUser),
		ManagerOrAbove: RoleRank(domain.RoleManager),
		AdminOnly:      RoleRank(domain.RoleAdmin),
	}
)

// RoleRank 返回角色等级，未知角色低于 user。
func RoleRank(role string) int {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case domain.RoleAdmin:
		return 3
	case domain.RoleManager:
		return 2
	case domain.RoleUser:
		return 1
	default:
		return 0
	}
}

// Authorize 判断调用者是否满足门槛。principal 为 nil 表示匿名。
// 角色必须来自存储侧档案，调用方负责在每个请求重新解析。
func Authorize(principal *domain.Principal, requirement Requirement) Decision {
	if principal == nil || principal.ID == "" {
		return denyAnon
	}
	if principal.Status != domain.UserStatusActive {
		return denyForbid
	}
	need, ok := requiredRank[requirement]
	if !ok {
		return denyForbid
	}
	if RoleRank(principal.Role) < need {
		return denyForbid
	}
	return allow
}
