package domain

import "errors"

var (
	// ErrNotFound 表示仓储查询结果为空。
	ErrNotFound = errors.New("domain: not found")
)

// ValidRole 判断角色是否属于已知集合。
func ValidRole(role string) bool {
	switch role {
	case RoleUser, RoleManager, RoleAdmin:
		return true
	default:
		return false
	}
}

// ValidUserStatus 判断用户状态是否合法。
func ValidUserStatus(status string) bool {
	return status == UserStatusActive || status == UserStatusInactive
}
