// Package auth 认证 HTTP 接口测试
//
// 测试用例：
//   - TestRegister_Success: 注册成功返回 201 + 用户与令牌对
//   - TestRegister_Validation: 缺字段 / 非法邮箱 / 短密码 / 非法角色
//   - TestRegister_Duplicate: 重复邮箱 409、重复用户名 409
//   - TestLogin_Success: 正确凭证返回令牌对
//   - TestLogin_Invalid: 错密码 / 不存在账号统一 401，不泄露哪个错
//   - TestRefresh: 刷新令牌换新访问令牌，访问令牌不能当刷新令牌用
//   - TestMe: 带令牌返回当前用户，匿名 401
//   - TestEnsureAdminUser: 引导创建管理员，已存在账号升级角色
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"sahayak/internal/shared/model"
	"sahayak/internal/shared/storage/memstore"
)

// newTestServer 构建带认证中间件的测试服务
func newTestServer(t *testing.T) (*httptest.Server, *memstore.Store) {
	t.Helper()
	store := memstore.NewStore()
	cfg := testConfig()

	mux := http.NewServeMux()
	NewHandler(store, cfg).RegisterRoutes(mux)

	srv := httptest.NewServer(Middleware(NewResolver(store, cfg))(mux))
	t.Cleanup(srv.Close)
	return srv, store
}

func doJSON(t *testing.T, srv *httptest.Server, method, path, token string, body interface{}) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("marshal body failed: %v", err)
		}
	}
	req, err := http.NewRequest(method, srv.URL+path, &buf)
	if err != nil {
		t.Fatalf("create request failed: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	var result map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode response failed: %v", err)
	}
	return result
}

func registerBody(username, email string) map[string]interface{} {
	return map[string]interface{}{
		"username":     username,
		"email":        email,
		"display_name": "Test User",
		"password":     "password123",
	}
}

func TestRegister_Success(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, srv, "POST", "/api/v1/auth/register", "", registerBody("alice", "alice@example.com"))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	result := decodeBody(t, resp)

	user, ok := result["user"].(map[string]interface{})
	if !ok {
		t.Fatal("expected user object in response")
	}
	if user["username"] != "alice" {
		t.Errorf("expected username alice, got %v", user["username"])
	}
	if user["role"] != "contributor" {
		t.Errorf("expected default role contributor, got %v", user["role"])
	}
	if _, exists := user["password_hash"]; exists {
		t.Error("password_hash must never appear in JSON")
	}
	if result["access_token"] == "" || result["refresh_token"] == "" {
		t.Error("expected access and refresh tokens")
	}
}

func TestRegister_Validation(t *testing.T) {
	srv, _ := newTestServer(t)

	tests := []struct {
		name string
		body map[string]interface{}
	}{
		{"missing email", map[string]interface{}{"username": "u1", "password": "password123"}},
		{"missing password", map[string]interface{}{"username": "u1", "email": "u1@example.com"}},
		{"invalid email", map[string]interface{}{"username": "u1", "email": "not-an-email", "password": "password123"}},
		{"short password", map[string]interface{}{"username": "u1", "email": "u1@example.com", "password": "short"}},
		{"invalid role", map[string]interface{}{"username": "u1", "email": "u1@example.com", "password": "password123", "role": "superuser"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := doJSON(t, srv, "POST", "/api/v1/auth/register", "", tt.body)
			resp.Body.Close()
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", resp.StatusCode)
			}
		})
	}
}

func TestRegister_Duplicate(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, srv, "POST", "/api/v1/auth/register", "", registerBody("bob", "bob@example.com"))
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("first register failed: %d", resp.StatusCode)
	}

	// 同邮箱
	resp = doJSON(t, srv, "POST", "/api/v1/auth/register", "", registerBody("bob2", "bob@example.com"))
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("duplicate email: expected 409, got %d", resp.StatusCode)
	}

	// 同用户名
	resp = doJSON(t, srv, "POST", "/api/v1/auth/register", "", registerBody("bob", "bob2@example.com"))
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("duplicate username: expected 409, got %d", resp.StatusCode)
	}
}

func TestLogin_Success(t *testing.T) {
	srv, _ := newTestServer(t)

	doJSON(t, srv, "POST", "/api/v1/auth/register", "", registerBody("carol", "carol@example.com")).Body.Close()

	resp := doJSON(t, srv, "POST", "/api/v1/auth/login", "", map[string]interface{}{
		"email":    "carol@example.com",
		"password": "password123",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	result := decodeBody(t, resp)
	if result["access_token"] == "" {
		t.Error("expected access_token")
	}
}

func TestLogin_Invalid(t *testing.T) {
	srv, _ := newTestServer(t)
	doJSON(t, srv, "POST", "/api/v1/auth/register", "", registerBody("dave", "dave@example.com")).Body.Close()

	tests := []struct {
		name  string
		email string
		pass  string
	}{
		{"wrong password", "dave@example.com", "wrong-password"},
		{"unknown account", "nobody@example.com", "password123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := doJSON(t, srv, "POST", "/api/v1/auth/login", "", map[string]interface{}{
				"email":    tt.email,
				"password": tt.pass,
			})
			result := decodeBody(t, resp)
			if resp.StatusCode != http.StatusUnauthorized {
				t.Errorf("expected 401, got %d", resp.StatusCode)
			}
			// 统一报错文案，不区分账号不存在与密码错误
			if result["error"] != "invalid email or password" {
				t.Errorf("unexpected error message: %v", result["error"])
			}
		})
	}
}

func TestRefresh(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, srv, "POST", "/api/v1/auth/register", "", registerBody("erin", "erin@example.com"))
	reg := decodeBody(t, resp)
	refreshToken := reg["refresh_token"].(string)
	accessToken := reg["access_token"].(string)

	resp = doJSON(t, srv, "POST", "/api/v1/auth/refresh", "", map[string]interface{}{
		"refresh_token": refreshToken,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("refresh: expected 200, got %d", resp.StatusCode)
	}
	result := decodeBody(t, resp)
	if result["access_token"] == "" {
		t.Error("expected new access_token")
	}

	// 访问令牌不能用于刷新
	resp = doJSON(t, srv, "POST", "/api/v1/auth/refresh", "", map[string]interface{}{
		"refresh_token": accessToken,
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("access token as refresh: expected 401, got %d", resp.StatusCode)
	}
}

func TestMe(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, srv, "POST", "/api/v1/auth/register", "", registerBody("frank", "frank@example.com"))
	reg := decodeBody(t, resp)
	token := reg["access_token"].(string)

	resp = doJSON(t, srv, "GET", "/api/v1/auth/me", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	me := decodeBody(t, resp)
	if me["username"] != "frank" {
		t.Errorf("expected frank, got %v", me["username"])
	}

	// 匿名
	resp = doJSON(t, srv, "GET", "/api/v1/auth/me", "", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("anonymous me: expected 401, got %d", resp.StatusCode)
	}

	// 伪造令牌
	resp = doJSON(t, srv, "GET", "/api/v1/auth/me", "not-a-token", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("bad token me: expected 401, got %d", resp.StatusCode)
	}
}

func TestChangePassword(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, srv, "POST", "/api/v1/auth/register", "", registerBody("grace", "grace@example.com"))
	reg := decodeBody(t, resp)
	token := reg["access_token"].(string)

	// 旧密码错误
	resp = doJSON(t, srv, "PUT", "/api/v1/auth/password", token, map[string]string{
		"old_password": "wrong-password",
		"new_password": "new-password123",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("wrong old password: expected 401, got %d", resp.StatusCode)
	}

	// 新密码过短
	resp = doJSON(t, srv, "PUT", "/api/v1/auth/password", token, map[string]string{
		"old_password": "password123",
		"new_password": "short",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("short new password: expected 400, got %d", resp.StatusCode)
	}

	// 修改成功后旧密码失效、新密码可登录
	resp = doJSON(t, srv, "PUT", "/api/v1/auth/password", token, map[string]string{
		"old_password": "password123",
		"new_password": "new-password123",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("change password: expected 200, got %d", resp.StatusCode)
	}

	resp = doJSON(t, srv, "POST", "/api/v1/auth/login", "", map[string]string{
		"email": "grace@example.com", "password": "password123",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("old password login: expected 401, got %d", resp.StatusCode)
	}

	resp = doJSON(t, srv, "POST", "/api/v1/auth/login", "", map[string]string{
		"email": "grace@example.com", "password": "new-password123",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("new password login: expected 200, got %d", resp.StatusCode)
	}
}

func TestEnsureAdminUser(t *testing.T) {
	store := memstore.NewStore()

	if err := EnsureAdminUser(store, "admin@example.com", "admin-password"); err != nil {
		t.Fatalf("EnsureAdminUser failed: %v", err)
	}
	admin, err := store.GetUserByEmail(context.Background(), "admin@example.com")
	if err != nil || admin == nil {
		t.Fatalf("admin not created: %v", err)
	}
	if admin.Role != model.UserRoleAdmin {
		t.Errorf("expected role admin, got %s", admin.Role)
	}

	// 幂等
	if err := EnsureAdminUser(store, "admin@example.com", "admin-password"); err != nil {
		t.Fatalf("second EnsureAdminUser failed: %v", err)
	}

	// 已存在的普通账号被升级
	seedUser(t, store, "usr-upgrade", model.UserRoleContributor)
	existing, _ := store.GetUserByID(context.Background(), "usr-upgrade")
	if err := EnsureAdminUser(store, existing.Email, "whatever-password"); err != nil {
		t.Fatalf("EnsureAdminUser upgrade failed: %v", err)
	}
	upgraded, _ := store.GetUserByID(context.Background(), "usr-upgrade")
	if upgraded.Role != model.UserRoleAdmin {
		t.Errorf("expected upgraded role admin, got %s", upgraded.Role)
	}
}
