// Package auth 身份解析测试
//
// 测试用例：
//   - TestResolver_Anonymous: 空令牌解析为匿名（nil, nil）
//   - TestResolver_ValidToken: 有效访问令牌解析出当前用户
//   - TestResolver_RefreshTokenRejected: 刷新令牌不能当访问令牌用
//   - TestResolver_UnknownSubject: 账号已删除的令牌返回 ErrUnknownSubject
//   - TestResolver_RoleFromStore: 角色以存储中的当前值为准，不信令牌快照
package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"sahayak/internal/shared/model"
	"sahayak/internal/shared/storage/memstore"
)

func seedUser(t *testing.T, store *memstore.Store, id string, role model.UserRole) *model.User {
	t.Helper()
	now := time.Now()
	u := &model.User{
		ID:           id,
		Username:     id,
		Email:        id + "@example.com",
		DisplayName:  id,
		PasswordHash: "x",
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := store.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("seed user failed: %v", err)
	}
	return u
}

func TestResolver_Anonymous(t *testing.T) {
	resolver := NewResolver(memstore.NewStore(), testConfig())

	user, err := resolver.Resolve(context.Background(), "")
	if err != nil {
		t.Fatalf("empty token should resolve to anonymous, got %v", err)
	}
	if user != nil {
		t.Errorf("expected nil principal, got %+v", user)
	}
}

func TestResolver_ValidToken(t *testing.T) {
	cfg := testConfig()
	store := memstore.NewStore()
	seedUser(t, store, "usr-valid", model.UserRoleContributor)
	resolver := NewResolver(store, cfg)

	token, err := GenerateAccessToken(cfg, "usr-valid", model.UserRoleContributor)
	if err != nil {
		t.Fatalf("GenerateAccessToken failed: %v", err)
	}

	user, err := resolver.Resolve(context.Background(), token)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if user == nil || user.ID != "usr-valid" {
		t.Fatalf("expected usr-valid, got %+v", user)
	}
}

func TestResolver_RefreshTokenRejected(t *testing.T) {
	cfg := testConfig()
	store := memstore.NewStore()
	seedUser(t, store, "usr-r", model.UserRoleContributor)
	resolver := NewResolver(store, cfg)

	token, err := GenerateRefreshToken(cfg, "usr-r", model.UserRoleContributor)
	if err != nil {
		t.Fatalf("GenerateRefreshToken failed: %v", err)
	}

	_, err = resolver.Resolve(context.Background(), token)
	if !errors.Is(err, ErrTokenMalformed) {
		t.Errorf("expected ErrTokenMalformed for refresh token, got %v", err)
	}
}

func TestResolver_UnknownSubject(t *testing.T) {
	cfg := testConfig()
	resolver := NewResolver(memstore.NewStore(), cfg)

	// 令牌有效但存储中无此账号
	token, err := GenerateAccessToken(cfg, "usr-ghost", model.UserRoleAdmin)
	if err != nil {
		t.Fatalf("GenerateAccessToken failed: %v", err)
	}

	_, err = resolver.Resolve(context.Background(), token)
	if !errors.Is(err, ErrUnknownSubject) {
		t.Errorf("expected ErrUnknownSubject, got %v", err)
	}
}

func TestResolver_RoleFromStore(t *testing.T) {
	cfg := testConfig()
	store := memstore.NewStore()
	seedUser(t, store, "usr-demoted", model.UserRoleAdmin)
	resolver := NewResolver(store, cfg)

	token, err := GenerateAccessToken(cfg, "usr-demoted", model.UserRoleAdmin)
	if err != nil {
		t.Fatalf("GenerateAccessToken failed: %v", err)
	}

	// 令牌签发后被降级，后续请求立即按新角色判定
	if err := store.UpdateUserRole(context.Background(), "usr-demoted", model.UserRoleReader); err != nil {
		t.Fatalf("UpdateUserRole failed: %v", err)
	}

	user, err := resolver.Resolve(context.Background(), token)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if user.Role != model.UserRoleReader {
		t.Errorf("expected current role reader, got %s", user.Role)
	}
}
