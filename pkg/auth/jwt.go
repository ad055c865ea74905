package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// 令牌类型。
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Claims 只承载身份标识，角色一律在服务端按请求重新读取。
type Claims struct {
	TokenType string `json:"token_type"`
	Email     string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// GenerateToken 生成 HS256 签名的 JWT 字符串。
func GenerateToken(secret string, ttl time.Duration, now time.Time, claims Claims) (string, error) {
	if secret == "" {
		return "", errors.New("jwt secret missing")
	}
	if claims.Subject == "" {
		return "", errors.New("jwt subject missing")
	}
	claims.RegisteredClaims.IssuedAt = jwt.NewNumericDate(now)
	claims.RegisteredClaims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseToken 验证签名、过期时间与签发方并解析 JWT；issuer 为空时不校验签发方。
func ParseToken(tokenStr, secret, issuer string) (*Claims, error) {
	if tokenStr == "" {
		return nil, errors.New("token empty")
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("token invalid")
	}
	return claims, nil
}
