package identity

import "errors"

var (
	// ErrInvalidInput 表示注册或资料更新时输入不完整。
	ErrInvalidInput = errors.New("invalid input")
	// ErrUserExists 表示邮箱已存在。
	ErrUserExists = errors.New("user already exists")
	// ErrInvalidCredentials 登录凭证错误。
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserDisabled 用户被禁用。
	ErrUserDisabled = errors.New("user disabled")
	// ErrTokenInvalid 刷新令牌无效。
	ErrTokenInvalid = errors.New("token invalid")
	// ErrUnauthenticated 访问令牌缺失、无效或对应身份已删除。
	ErrUnauthenticated = errors.New("unauthenticated")
)
