package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/zacharykka/campaign-console/internal/config"
	"github.com/zacharykka/campaign-console/internal/domain"
	authutil "github.com/zacharykka/campaign-console/pkg/auth"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Service 负责身份凭证、令牌签发与调用者解析。
type Service struct {
	repos *domain.Repositories
	cfg   config.AuthConfig
	nowFn func() time.Time
}

// Session 表示访问令牌与刷新令牌。
type Session struct {
	TokenType             string    `json:"token_type"`
	AccessToken           string    `json:"access_token"`
	AccessTokenExpiresAt  time.Time `json:"access_token_expires_at"`
	RefreshToken          string    `json:"refresh_token"`
	RefreshTokenExpiresAt time.Time `json:"refresh_token_expires_at"`
}

// RegisterInput 为注册所需字段，角色不可由调用方指定。
type RegisterInput struct {
	Email    string
	Password string
	FullName string
	Company  string
	Phone    string
}

// NewService 创建身份服务。
func NewService(repos *domain.Repositories, cfg config.AuthConfig) *Service {
	return &Service{
		repos: repos,
		cfg:   cfg,
		nowFn: time.Now,
	}
}

// WithClock 允许注入自定义时间函数，便于测试。
func (s *Service) WithClock(now func() time.Time) {
	if now != nil {
		s.nowFn = now
	}
}

// Register 创建凭证与用户档案，新用户角色固定为 user。
func (s *Service) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	return s.create(ctx, in, domain.RoleUser)
}

func (s *Service) create(ctx context.Context, in RegisterInput, role string) (*domain.User, error) {
	email := normalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return nil, ErrInvalidInput
	}

	if _, err := s.repos.Identities.GetByEmail(ctx, email); err == nil {
		return nil, ErrUserExists
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	hash, err := authutil.HashPassword(in.Password)
	if err != nil {
		if errors.Is(err, authutil.ErrPasswordTooShort) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		return nil, err
	}

	now := s.nowFn().UTC()
	identity := &domain.Identity{
		ID:             uuid.NewString(),
		Email:          email,
		HashedPassword: hash,
		CreatedAt:      now,
	}
	if err := s.repos.Identities.Create(ctx, identity); err != nil {
		return nil, err
	}

	user := &domain.User{
		ID:        identity.ID,
		Email:     email,
		FullName:  optional(in.FullName),
		Role:      role,
		Status:    domain.UserStatusActive,
		Company:   optional(in.Company),
		Phone:     optional(in.Phone),
		CreatedAt: now,
	}
	if err := s.repos.Users.Create(ctx, user); err != nil {
		// 档案写入失败时撤销凭证，避免邮箱被占用却无法登录
		if delErr := s.repos.Identities.Delete(ctx, identity.ID); delErr != nil {
			err = multierr.Append(err, fmt.Errorf("remove dangling identity: %w", delErr))
		}
		return nil, err
	}
	return user, nil
}

// Login 校验用户凭证并返回令牌。
func (s *Service) Login(ctx context.Context, email, password string) (*Session, *domain.User, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, nil, ErrInvalidCredentials
	}

	identity, err := s.repos.Identities.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, err
	}
	if !authutil.VerifyPassword(identity.HashedPassword, password) {
		return nil, nil, ErrInvalidCredentials
	}

	user, err := s.repos.Users.GetByID(ctx, identity.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, err
	}
	if user.Status != domain.UserStatusActive {
		return nil, nil, ErrUserDisabled
	}

	now := s.nowFn().UTC()
	if err := s.repos.Users.UpdateLastLogin(ctx, user.ID, now); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, nil, err
	}
	user.LastLoginAt = &now

	session, err := s.issueTokens(identity)
	if err != nil {
		return nil, nil, err
	}
	return session, user, nil
}

// Refresh 根据刷新令牌生成新令牌。
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*Session, *domain.User, error) {
	claims, err := authutil.ParseToken(refreshToken, s.cfg.RefreshTokenSecret, s.cfg.Issuer)
	if err != nil || claims.TokenType != authutil.TokenTypeRefresh {
		return nil, nil, ErrTokenInvalid
	}

	identity, err := s.repos.Identities.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil, ErrTokenInvalid
		}
		return nil, nil, err
	}
	user, err := s.repos.Users.GetByID(ctx, identity.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil, ErrTokenInvalid
		}
		return nil, nil, err
	}
	if user.Status != domain.UserStatusActive {
		return nil, nil, ErrUserDisabled
	}

	session, err := s.issueTokens(identity)
	if err != nil {
		return nil, nil, err
	}
	return session, user, nil
}

// Resolve 由访问令牌解析调用者。令牌只证明身份，角色与状态每次从用户档案读取。
// 凭证存在但档案缺失时返回空角色的 Principal，由授权环节拒绝。
func (s *Service) Resolve(ctx context.Context, bearer string) (*domain.Principal, error) {
	token := strings.TrimSpace(bearer)
	if len(token) > 7 && strings.EqualFold(token[:7], "bearer ") {
		token = strings.TrimSpace(token[7:])
	}
	if token == "" {
		return nil, ErrUnauthenticated
	}

	claims, err := authutil.ParseToken(token, s.cfg.AccessTokenSecret, s.cfg.Issuer)
	if err != nil || claims.TokenType != authutil.TokenTypeAccess {
		return nil, ErrUnauthenticated
	}

	identity, err := s.repos.Identities.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, err
	}

	principal := &domain.Principal{ID: identity.ID, Email: identity.Email}
	user, err := s.repos.Users.GetByID(ctx, identity.ID)
	switch {
	case err == nil:
		principal.Role = user.Role
		principal.Status = user.Status
	case errors.Is(err, domain.ErrNotFound):
	default:
		return nil, err
	}
	return principal, nil
}

// GetProfile 返回调用者自己的档案。
func (s *Service) GetProfile(ctx context.Context, userID string) (*domain.User, error) {
	return s.repos.Users.GetByID(ctx, userID)
}

// UpdateProfile 更新调用者自己的档案字段，未提供的字段保持不变。
func (s *Service) UpdateProfile(ctx context.Context, userID string, params domain.UserProfileParams) (*domain.User, error) {
	if userID == "" {
		return nil, ErrInvalidInput
	}
	if err := s.repos.Users.UpdateProfile(ctx, userID, params, s.nowFn().UTC()); err != nil {
		return nil, err
	}
	return s.repos.Users.GetByID(ctx, userID)
}

// DeleteIdentity 硬删除登录凭证，之后该身份的令牌全部失效。
func (s *Service) DeleteIdentity(ctx context.Context, identityID string) error {
	return s.repos.Identities.Delete(ctx, identityID)
}

// EnsureSeedAdmin 按配置创建初始管理员；已存在时跳过。
func (s *Service) EnsureSeedAdmin(ctx context.Context, seed config.SeedAdminConfig, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	email := normalizeEmail(seed.Email)
	if email == "" || seed.Password == "" {
		logger.Info("admin seeding skipped; seed admin email or password not set")
		return nil
	}

	if _, err := s.repos.Identities.GetByEmail(ctx, email); err == nil {
		logger.Info("seed admin exists", zap.String("email", email))
		return nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return err
	}

	role := strings.ToLower(strings.TrimSpace(seed.Role))
	if !domain.ValidRole(role) {
		role = domain.RoleAdmin
	}

	if _, err := s.create(ctx, RegisterInput{Email: email, Password: seed.Password, FullName: seed.FullName}, role); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	logger.Info("seed admin created", zap.String("email", email), zap.String("role", role))
	return nil
}

func (s *Service) issueTokens(identity *domain.Identity) (*Session, error) {
	now := s.nowFn()
	accessTTL := s.cfg.AccessTokenTTL
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	refreshTTL := s.cfg.RefreshTokenTTL
	if refreshTTL <= 0 {
		refreshTTL = 30 * 24 * time.Hour
	}

	registered := jwt.RegisteredClaims{
		Subject: identity.ID,
		Issuer:  s.cfg.Issuer,
		ID:      uuid.NewString(),
	}

	accessToken, err := authutil.GenerateToken(s.cfg.AccessTokenSecret, accessTTL, now, authutil.Claims{
		TokenType:        authutil.TokenTypeAccess,
		Email:            identity.Email,
		RegisteredClaims: registered,
	})
	if err != nil {
		return nil, err
	}

	registered.ID = uuid.NewString()
	refreshToken, err := authutil.GenerateToken(s.cfg.RefreshTokenSecret, refreshTTL, now, authutil.Claims{
		TokenType:        authutil.TokenTypeRefresh,
		Email:            identity.Email,
		RegisteredClaims: registered,
	})
	if err != nil {
		return nil, err
	}

	return &Session{
		TokenType:             "bearer",
		AccessToken:           accessToken,
		AccessTokenExpiresAt:  now.Add(accessTTL),
		RefreshToken:          refreshToken,
		RefreshTokenExpiresAt: now.Add(refreshTTL),
	}, nil
}

func optional(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}
