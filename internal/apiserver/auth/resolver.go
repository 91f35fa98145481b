package auth

import (
	"context"
	"fmt"

	"sahayak/internal/shared/model"
	"sahayak/internal/shared/storage"
)

// Resolver 身份解析器
//
// 从请求携带的 bearer 令牌恢复认证主体：先验证令牌，
// 再按 subject 回查用户记录，以拾取签发后的角色/展示名变更，
// 并识别已删除的账号。
type Resolver struct {
	store storage.UserStore
	cfg   Config
}

// NewResolver 创建身份解析器
func NewResolver(store storage.UserStore, cfg Config) *Resolver {
	return &Resolver{store: store, cfg: cfg}
}

// Resolve 解析 bearer 令牌为认证主体
//
// 空令牌返回 (nil, nil)：表示"未声明身份"，区别于"身份声明无效"，
// 允许匿名访问的端点据此放行。
func (r *Resolver) Resolve(ctx context.Context, tokenString string) (*model.User, error) {
	if tokenString == "" {
		return nil, nil
	}

	claims, err := ParseToken(r.cfg, tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Type != "access" {
		return nil, ErrTokenMalformed
	}

	user, err := r.store.GetUserByID(ctx, claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("resolve principal: %w", err)
	}
	if user == nil {
		return nil, ErrUnknownSubject
	}
	return user, nil
}
