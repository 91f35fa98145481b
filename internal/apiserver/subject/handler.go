package subject

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"sahayak/internal/apiserver/auth"
	"sahayak/internal/shared/cache"
	"sahayak/internal/shared/model"
	"sahayak/internal/shared/storage"
)

// Handler 科目 HTTP 处理器
type Handler struct {
	store     storage.SubjectStore
	cache     cache.SubjectCache
	lifecycle *Lifecycle
}

// NewHandler 创建科目处理器
func NewHandler(store storage.SubjectStore, subjectCache cache.SubjectCache) *Handler {
	if subjectCache == nil {
		subjectCache = cache.NewNoOpCache()
	}
	return &Handler{
		store:     store,
		cache:     subjectCache,
		lifecycle: NewLifecycle(store, subjectCache),
	}
}

// Lifecycle 返回底层生命周期管理器（admin 审核路由复用）
func (h *Handler) Lifecycle() *Lifecycle {
	return h.lifecycle
}

// RegisterRoutes 注册科目相关路由
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/subjects", h.ListPublished)
	mux.HandleFunc("GET /api/v1/subjects/{slug}", h.GetBySlug)
	mux.HandleFunc("POST /api/v1/subjects", h.Create)
	mux.HandleFunc("PUT /api/v1/subjects/{id}", h.Update)
	mux.HandleFunc("DELETE /api/v1/subjects/{id}", h.Delete)
	mux.HandleFunc("GET /api/v1/users/me/subjects", h.ListMine)
}

// ============================================================================
// 公开读路径
// ============================================================================

// ListPublished 公开列表，仅返回已发布科目，支持院系/学期/名称过滤
func (h *Handler) ListPublished(w http.ResponseWriter, r *http.Request) {
	filter := storage.SubjectFilter{
		Status:     model.SubjectStatusPublished,
		Department: r.URL.Query().Get("department"),
		Search:     r.URL.Query().Get("search"),
	}
	if s := r.URL.Query().Get("semester"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			filter.Semester = n
		}
	}

	subjects, err := h.store.ListSubjects(r.Context(), filter, storage.SortBySemester)
	if err != nil {
		log.Printf("[subject] ListSubjects error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list subjects")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"subjects": subjects, "count": len(subjects)})
}

// GetBySlug 公开详情，按 slug 返回单个已发布科目
// 草稿与被驳回的科目对公开端点一律 404，不暴露存在性
func (h *Handler) GetBySlug(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")

	if cached, err := h.cache.GetPublished(r.Context(), slug); err == nil && cached != nil {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	subject, err := h.store.GetSubjectBySlug(r.Context(), slug)
	if err != nil {
		log.Printf("[subject] GetSubjectBySlug error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to get subject")
		return
	}
	if subject == nil || !subject.IsPublished() {
		writeError(w, http.StatusNotFound, "subject not found")
		return
	}

	if err := h.cache.SetPublished(r.Context(), subject); err != nil {
		log.Printf("[subject] cache set %s: %v", slug, err)
	}
	writeJSON(w, http.StatusOK, subject)
}

// ============================================================================
// 投稿与变更
// ============================================================================

// Create 投稿新科目（进入 draft 状态等待审核）
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || req.Slug == "" {
		writeError(w, http.StatusBadRequest, "name and slug are required")
		return
	}

	subject, err := h.lifecycle.Submit(r.Context(), auth.GetPrincipal(r.Context()), &req)
	if err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			writeError(w, http.StatusConflict, "slug already exists, choose a different one")
			return
		}
		writeDomainError(w, err, "failed to create subject")
		return
	}
	writeJSON(w, http.StatusCreated, subject)
}

// Update 编辑科目（作者或管理员，部分更新）
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.lifecycle.Edit(r.Context(), auth.GetPrincipal(r.Context()), id, &req); err != nil {
		writeDomainError(w, err, "failed to update subject")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "subject updated"})
}

// Delete 删除科目（作者或管理员）
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if err := h.lifecycle.Delete(r.Context(), auth.GetPrincipal(r.Context()), id); err != nil {
		writeDomainError(w, err, "failed to delete subject")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListMine 当前用户的全部投稿（任意状态，最新在前）
func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	principal := auth.GetPrincipal(r.Context())
	if err := auth.Admit(principal, auth.OpReadOwn, nil); err != nil {
		writeDomainError(w, err, "failed to list submissions")
		return
	}

	subjects, err := h.store.ListSubjects(r.Context(),
		storage.SubjectFilter{SubmittedBy: principal.ID}, storage.SortByCreatedDesc)
	if err != nil {
		log.Printf("[subject] ListSubjects error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list submissions")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"subjects": subjects, "count": len(subjects)})
}
