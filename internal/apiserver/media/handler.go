// Package media 媒体文件上传下载（大纲图片、往年试卷、学习资料）
package media

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"path"

	"github.com/google/uuid"

	"sahayak/internal/apiserver/auth"
	"sahayak/internal/shared/objstore"
)

// 单次上传大小上限
const maxUploadSize = 20 << 20 // 20 MiB

// Handler 媒体 HTTP 处理器
type Handler struct {
	objstore *objstore.Client
}

// NewHandler 创建媒体处理器
func NewHandler(client *objstore.Client) *Handler {
	return &Handler{objstore: client}
}

// RegisterRoutes 注册媒体相关路由
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/media", h.Upload)
	mux.HandleFunc("GET /media/{key}", h.Download)
	mux.HandleFunc("DELETE /api/v1/media/{key}", h.Delete)
}

// Upload 上传媒体文件（contributor/admin），返回可写入科目字段的 URL
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := auth.Admit(auth.GetPrincipal(r.Context()), auth.OpCreate, nil); err != nil {
		writeAuthError(w, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form or file too large")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	// 对象键使用 UUID，保留原始扩展名便于内容识别
	key := uuid.NewString() + path.Ext(header.Filename)
	contentType := header.Header.Get("Content-Type")

	if err := h.objstore.Upload(r.Context(), key, file, header.Size, contentType); err != nil {
		log.Printf("[media] Upload error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to upload file")
		return
	}

	log.Printf("[media] Uploaded: %s (%d bytes)", key, header.Size)
	writeJSON(w, http.StatusCreated, map[string]string{
		"key": key,
		"url": fmt.Sprintf("/media/%s", key),
	})
}

// Download 公开下载媒体文件
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")

	obj, contentType, err := h.objstore.Download(r.Context(), key)
	if err != nil {
		writeError(w, http.StatusNotFound, "media not found")
		return
	}
	defer obj.Close()

	if contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}
	if _, err := io.Copy(w, obj); err != nil {
		log.Printf("[media] Download stream error: %v", err)
	}
}

// Delete 删除媒体文件（仅管理员）
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := auth.Admit(auth.GetPrincipal(r.Context()), auth.OpModerate, nil); err != nil {
		writeAuthError(w, err)
		return
	}

	key := r.PathValue("key")
	if err := h.objstore.Delete(r.Context(), key); err != nil {
		log.Printf("[media] Delete error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to delete media")
		return
	}
	w.WriteHeader(http.StatusNoContent)
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
	writeError(w, http.StatusForbidden, "insufficient role")
}
