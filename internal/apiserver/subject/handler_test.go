// Package subject 科目 HTTP 接口测试
//
// 测试用例：
//   - TestListPublished: 公开列表仅含已发布，支持 department/semester 过滤
//   - TestGetBySlug: 已发布可读，草稿 / 被驳回 / 不存在一律 404
//   - TestCreate_Validation: 缺 name/slug 返回 400
//   - TestCreate_SlugConflict: slug 冲突返回 409
//   - TestUpdate_Forbidden: 非作者 403，不存在 404（404 优先于 403）
//   - TestListMine: 返回当前用户全部状态的投稿，匿名 401
package subject

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"sahayak/internal/apiserver/auth"
	"sahayak/internal/shared/model"
	"sahayak/internal/shared/storage/memstore"
)

// principalInjector 测试用：按固定用户注入认证主体，绕过真实令牌解析
func principalInjector(users map[string]*model.User, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token := r.Header.Get("X-Test-User"); token != "" {
			if u, ok := users[token]; ok {
				r = r.WithContext(auth.WithPrincipal(r.Context(), u))
			}
		}
		next.ServeHTTP(w, r)
	})
}

func newHandlerServer(t *testing.T) (*httptest.Server, *Handler, *memstore.Store) {
	t.Helper()
	store := memstore.NewStore()
	h := NewHandler(store, nil)

	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	users := map[string]*model.User{
		"admin":    testAdmin,
		"contrib":  testContrib,
		"contrib2": testContrib2,
		"reader":   testReader,
	}
	srv := httptest.NewServer(principalInjector(users, mux))
	t.Cleanup(srv.Close)
	return srv, h, store
}

func httpJSON(t *testing.T, srv *httptest.Server, method, path, asUser string, body interface{}) *http.Response {
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
	if asUser != "" {
		req.Header.Set("X-Test-User", asUser)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	return resp
}

func decodeMap(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	var result map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode response failed: %v", err)
	}
	return result
}

func TestListPublished(t *testing.T) {
	srv, h, _ := newHandlerServer(t)
	ctx := context.Background()

	// 两份发布（不同院系/学期），一份草稿
	s1, _ := h.Lifecycle().Submit(ctx, testContrib, sampleCreate("cse-ds"))
	req2 := sampleCreate("ece-signals")
	req2.Course.Department = "ECE"
	req2.Course.Semester = 4
	s2, _ := h.Lifecycle().Submit(ctx, testContrib, req2)
	h.Lifecycle().Submit(ctx, testContrib, sampleCreate("draft-only"))

	h.Lifecycle().Publish(ctx, testAdmin, s1.ID)
	h.Lifecycle().Publish(ctx, testAdmin, s2.ID)

	resp := httpJSON(t, srv, "GET", "/api/v1/subjects", "", nil)
	result := decodeMap(t, resp)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if count := result["count"].(float64); count != 2 {
		t.Errorf("expected 2 published subjects, got %v", count)
	}

	// 院系过滤
	resp = httpJSON(t, srv, "GET", "/api/v1/subjects?department=ECE", "", nil)
	result = decodeMap(t, resp)
	if count := result["count"].(float64); count != 1 {
		t.Errorf("department filter: expected 1, got %v", count)
	}

	// 学期过滤
	resp = httpJSON(t, srv, "GET", "/api/v1/subjects?semester=3", "", nil)
	result = decodeMap(t, resp)
	if count := result["count"].(float64); count != 1 {
		t.Errorf("semester filter: expected 1, got %v", count)
	}
}

func TestGetBySlug(t *testing.T) {
	srv, h, _ := newHandlerServer(t)
	ctx := context.Background()

	pub, _ := h.Lifecycle().Submit(ctx, testContrib, sampleCreate("published-subject"))
	h.Lifecycle().Publish(ctx, testAdmin, pub.ID)

	draft, _ := h.Lifecycle().Submit(ctx, testContrib, sampleCreate("draft-subject"))
	rej, _ := h.Lifecycle().Submit(ctx, testContrib, sampleCreate("rejected-subject"))
	h.Lifecycle().Reject(ctx, testAdmin, rej.ID, "incomplete units")
	_ = draft

	tests := []struct {
		name string
		slug string
		want int
	}{
		{"published readable", "published-subject", http.StatusOK},
		{"draft hidden", "draft-subject", http.StatusNotFound},
		{"rejected hidden", "rejected-subject", http.StatusNotFound},
		{"missing slug", "no-such-subject", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := httpJSON(t, srv, "GET", "/api/v1/subjects/"+tt.slug, "", nil)
			resp.Body.Close()
			if resp.StatusCode != tt.want {
				t.Errorf("expected %d, got %d", tt.want, resp.StatusCode)
			}
		})
	}
}

func TestCreate_Validation(t *testing.T) {
	srv, _, _ := newHandlerServer(t)

	resp := httpJSON(t, srv, "POST", "/api/v1/subjects", "contrib", map[string]interface{}{
		"name": "No Slug Subject",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("missing slug: expected 400, got %d", resp.StatusCode)
	}

	// 匿名投稿
	resp = httpJSON(t, srv, "POST", "/api/v1/subjects", "", map[string]interface{}{
		"name": "Anon Subject",
		"slug": "anon-subject",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("anonymous create: expected 401, got %d", resp.StatusCode)
	}
}

func TestCreate_SlugConflict(t *testing.T) {
	srv, _, _ := newHandlerServer(t)

	body := map[string]interface{}{"name": "Subject A", "slug": "shared-slug"}
	resp := httpJSON(t, srv, "POST", "/api/v1/subjects", "contrib", body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("first create: expected 201, got %d", resp.StatusCode)
	}

	resp = httpJSON(t, srv, "POST", "/api/v1/subjects", "contrib2", body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("duplicate slug: expected 409, got %d", resp.StatusCode)
	}
}

func TestUpdate_Forbidden(t *testing.T) {
	srv, h, _ := newHandlerServer(t)
	ctx := context.Background()

	sub, _ := h.Lifecycle().Submit(ctx, testContrib, sampleCreate("update-target"))

	// 非作者
	resp := httpJSON(t, srv, "PUT", "/api/v1/subjects/"+sub.ID, "contrib2", map[string]interface{}{
		"name": "Hijack",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("non-author update: expected 403, got %d", resp.StatusCode)
	}

	// 不存在的 ID 对非作者也返回 404 而非 403
	resp = httpJSON(t, srv, "PUT", "/api/v1/subjects/sub-no-such", "contrib2", map[string]interface{}{
		"name": "Ghost",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("missing subject update: expected 404, got %d", resp.StatusCode)
	}

	// 管理员可改任意科目
	resp = httpJSON(t, srv, "PUT", "/api/v1/subjects/"+sub.ID, "admin", map[string]interface{}{
		"name": "Admin Fix",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("admin update: expected 200, got %d", resp.StatusCode)
	}
}

func TestListMine(t *testing.T) {
	srv, h, _ := newHandlerServer(t)
	ctx := context.Background()

	mine, _ := h.Lifecycle().Submit(ctx, testContrib, sampleCreate("mine-1"))
	h.Lifecycle().Publish(ctx, testAdmin, mine.ID)
	h.Lifecycle().Submit(ctx, testContrib, sampleCreate("mine-2"))
	h.Lifecycle().Submit(ctx, testContrib2, sampleCreate("theirs-1"))

	resp := httpJSON(t, srv, "GET", "/api/v1/users/me/subjects", "contrib", nil)
	result := decodeMap(t, resp)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	// 已发布与草稿都算自己的投稿
	if count := result["count"].(float64); count != 2 {
		t.Errorf("expected 2 own subjects, got %v", count)
	}

	resp = httpJSON(t, srv, "GET", "/api/v1/users/me/subjects", "", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("anonymous list mine: expected 401, got %d", resp.StatusCode)
	}
}
