// Package auth 认证与授权：密码哈希、JWT 令牌、身份解析、准入判定
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"sahayak/internal/shared/model"
)

// contextKey context 键类型
type contextKey string

const ctxKeyPrincipal contextKey = "principal"

// Config 认证配置
type Config struct {
	JWTSecret       string        `yaml:"jwt_secret"`
	AccessTokenTTL  time.Duration `yaml:"access_token_ttl"`
	RefreshTokenTTL time.Duration `yaml:"refresh_token_ttl"`
}

// DefaultConfig 返回默认认证配置
// 访问令牌 24 小时，刷新令牌 7 天（双层过期策略）
func DefaultConfig() Config {
	return Config{
		JWTSecret:       "",
		AccessTokenTTL:  24 * time.Hour,
		RefreshTokenTTL: 7 * 24 * time.Hour,
	}
}

// ============================================================================
// 错误定义
// ============================================================================

var (
	// ErrUnauthenticated 未认证（无身份或凭证无效）
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrForbiddenRole 角色不足
	ErrForbiddenRole = errors.New("forbidden: role not allowed")

	// ErrForbiddenOwnership 非作者且非管理员
	ErrForbiddenOwnership = errors.New("forbidden: not an author of this subject")

	// ErrTokenMalformed 令牌结构损坏
	ErrTokenMalformed = errors.New("token malformed")

	// ErrTokenSignature 令牌签名无效
	ErrTokenSignature = errors.New("token signature invalid")

	// ErrTokenExpired 令牌已过期
	ErrTokenExpired = errors.New("token expired")

	// ErrUnknownSubject 令牌有效但对应账号已不存在
	ErrUnknownSubject = errors.New("token subject no longer exists")
)

// ============================================================================
// 密码哈希
// ============================================================================

// HashPassword 使用 bcrypt 哈希密码
// bcrypt 每次调用生成随机盐，同一明文两次哈希结果不同
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), 12)
	return string(bytes), err
}

// CheckPassword 验证密码
// 摘要格式损坏时返回 false 而非报错
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// ============================================================================
// JWT Token
// ============================================================================

// Claims JWT 声明
// 角色在签发时快照；签发后改角色不会使已发令牌失效，
// 过期窗口（TTL）内的角色滞后是接受的取舍。
type Claims struct {
	jwt.RegisteredClaims
	Role string `json:"role,omitempty"`
	Type string `json:"type,omitempty"` // "access" | "refresh"
}

// GenerateAccessToken 生成访问令牌
func GenerateAccessToken(cfg Config, userID string, role model.UserRole) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(cfg.AccessTokenTTL)),
		},
		Role: string(role),
		Type: "access",
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.JWTSecret))
}

// GenerateRefreshToken 生成刷新令牌
// 与访问令牌同构但生存期更长，仅用于换发新的访问令牌
func GenerateRefreshToken(cfg Config, userID string, role model.UserRole) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(cfg.RefreshTokenTTL)),
		},
		Role: string(role),
		Type: "refresh",
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.JWTSecret))
}

// ParseToken 解析并验证 JWT
// 失败原因区分三类：结构损坏、签名无效、已过期
func ParseToken(cfg Config, tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(cfg.JWTSecret), nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrTokenSignature
		default:
			return nil, ErrTokenMalformed
		}
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrTokenMalformed
	}
	return claims, nil
}

// ============================================================================
// Context 辅助函数
// ============================================================================

// WithPrincipal 将认证主体注入 context
func WithPrincipal(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, ctxKeyPrincipal, user)
}

// GetPrincipal 从 context 获取认证主体，匿名请求返回 nil
func GetPrincipal(ctx context.Context) *model.User {
	user, _ := ctx.Value(ctxKeyPrincipal).(*model.User)
	return user
}
