// Package admin 管理端 - 审核队列与用户管理
package admin

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"sahayak/internal/apiserver/auth"
	"sahayak/internal/apiserver/subject"
	"sahayak/internal/shared/model"
	"sahayak/internal/shared/storage"
)

// Handler 管理端 HTTP 处理器
type Handler struct {
	store     storage.Store
	lifecycle *subject.Lifecycle
}

// NewHandler 创建管理端处理器
func NewHandler(store storage.Store, lifecycle *subject.Lifecycle) *Handler {
	return &Handler{store: store, lifecycle: lifecycle}
}

// RegisterRoutes 注册管理端路由
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/admin/queue", h.ReviewQueue)
	mux.HandleFunc("PUT /api/v1/admin/subjects/{id}/publish", h.Publish)
	mux.HandleFunc("PUT /api/v1/admin/subjects/{id}/reject", h.Reject)
	mux.HandleFunc("GET /api/v1/admin/users", h.ListUsers)
	mux.HandleFunc("PUT /api/v1/admin/users/{id}/role", h.UpdateUserRole)
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

type updateRoleRequest struct {
	Role string `json:"role"`
}

// ReviewQueue 返回所有未发布（draft + rejected）的科目，先到先审
func (h *Handler) ReviewQueue(w http.ResponseWriter, r *http.Request) {
	if err := auth.Admit(auth.GetPrincipal(r.Context()), auth.OpModerate, nil); err != nil {
		writeAuthError(w, err)
		return
	}

	subjects, err := h.store.ListSubjects(r.Context(),
		storage.SubjectFilter{Unpublished: true}, storage.SortByCreatedAsc)
	if err != nil {
		log.Printf("[admin] ListSubjects error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list review queue")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"subjects": subjects, "count": len(subjects)})
}

// Publish 批准并发布科目（幂等）
func (h *Handler) Publish(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	err := h.lifecycle.Publish(r.Context(), auth.GetPrincipal(r.Context()), id)
	if err != nil {
		writeLifecycleError(w, err, "failed to publish subject")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "subject published"})
}

// Reject 驳回投稿并记录原因（允许为空）
func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req rejectRequest
	if r.Body != nil {
		// 空请求体等价于空原因
		json.NewDecoder(r.Body).Decode(&req)
	}

	err := h.lifecycle.Reject(r.Context(), auth.GetPrincipal(r.Context()), id, req.Reason)
	if err != nil {
		writeLifecycleError(w, err, "failed to reject subject")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "subject rejected", "reason": req.Reason})
}

// ListUsers 列出所有注册用户（password_hash 永不序列化）
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	if err := auth.Admit(auth.GetPrincipal(r.Context()), auth.OpManageUsers, nil); err != nil {
		writeAuthError(w, err)
		return
	}

	users, err := h.store.ListUsers(r.Context())
	if err != nil {
		log.Printf("[admin] ListUsers error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list users")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"users": users, "count": len(users)})
}

// UpdateUserRole 修改用户角色
func (h *Handler) UpdateUserRole(w http.ResponseWriter, r *http.Request) {
	if err := auth.Admit(auth.GetPrincipal(r.Context()), auth.OpManageUsers, nil); err != nil {
		writeAuthError(w, err)
		return
	}

	id := r.PathValue("id")
	var req updateRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !model.ValidRole(req.Role) {
		writeError(w, http.StatusBadRequest, "invalid role: must be admin, contributor, or reader")
		return
	}

	if err := h.store.UpdateUserRole(r.Context(), id, model.UserRole(req.Role)); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		log.Printf("[admin] UpdateUserRole error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to update role")
		return
	}
	log.Printf("[admin] Role updated: %s -> %s", id, req.Role)
	writeJSON(w, http.StatusOK, map[string]string{"message": "role updated to " + req.Role})
}

// ============================================================================
// 工具函数
// ============================================================================

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeAuthError(w http.ResponseWriter, err error) {
	if errors.Is(err, auth.ErrUnauthenticated) {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	writeError(w, http.StatusForbidden, "admin access required")
}

func writeLifecycleError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "subject not found")
	case errors.Is(err, auth.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, "authentication required")
	case errors.Is(err, auth.ErrForbiddenRole), errors.Is(err, auth.ErrForbiddenOwnership):
		writeError(w, http.StatusForbidden, "admin access required")
	default:
		writeError(w, http.StatusInternalServerError, fallback)
	}
}
