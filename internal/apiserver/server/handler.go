// Package server 路由配置与核心基础设施
//
// 本文件定义 HTTP API 路由，将请求分发到各领域独立包：
//   - auth: 注册/登录/令牌
//   - subject: 科目公开读、投稿与变更
//   - admin: 审核队列与用户管理
//   - media: 媒体文件（可选，依赖 MinIO）
package server

import (
	"context"
	"log"
	"net/http"

	"sahayak/internal/apiserver/admin"
	"sahayak/internal/apiserver/auth"
	"sahayak/internal/apiserver/media"
	"sahayak/internal/apiserver/subject"
	"sahayak/internal/shared/cache"
	"sahayak/internal/shared/model"
	"sahayak/internal/shared/objstore"
	"sahayak/internal/shared/storage"
)

// Handler API 处理器组合根
//
// 持有存储、缓存与对象存储句柄，生命周期由 main 管理，
// 各领域 Handler 在 Router 中按需构造并注入依赖。
type Handler struct {
	store        storage.Store
	subjectCache cache.SubjectCache
	objStore     *objstore.Client // 可为 nil：未配置 MinIO 时不注册媒体路由
	authConfig   auth.Config
	metrics      *Metrics
}

// NewHandler 创建 Handler 实例
func NewHandler(store storage.Store, subjectCache cache.SubjectCache, objStore *objstore.Client, authConfig auth.Config) *Handler {
	if subjectCache == nil {
		subjectCache = cache.NewNoOpCache()
	}
	return &Handler{
		store:        store,
		subjectCache: subjectCache,
		objStore:     objStore,
		authConfig:   authConfig,
		metrics:      NewMetrics("sahayak"),
	}
}

// GetMetrics 返回指标实例
func (h *Handler) GetMetrics() *Metrics {
	return h.metrics
}

// CollectDomainMetrics 刷新领域指标（科目分状态计数、注册用户数）
// main 按固定间隔调用，指标滞后一个采集周期
func (h *Handler) CollectDomainMetrics(ctx context.Context) {
	for _, status := range []model.SubjectStatus{
		model.SubjectStatusDraft,
		model.SubjectStatusPublished,
		model.SubjectStatusRejected,
	} {
		subjects, err := h.store.ListSubjects(ctx,
			storage.SubjectFilter{Status: status}, storage.SortBySemester)
		if err != nil {
			log.Printf("[metrics] ListSubjects %s: %v", status, err)
			continue
		}
		h.metrics.SubjectsTotal.WithLabelValues(string(status)).Set(float64(len(subjects)))
	}

	users, err := h.store.ListUsers(ctx)
	if err != nil {
		log.Printf("[metrics] ListUsers: %v", err)
		return
	}
	h.metrics.UsersTotal.Set(float64(len(users)))
}

// Router 返回配置好的 HTTP 路由
//
// 路由规则：
//
// 认证 (Auth):
//   - POST /api/v1/auth/register       - 注册（默认 contributor 角色）
//   - POST /api/v1/auth/login          - 登录
//   - POST /api/v1/auth/refresh        - 刷新访问令牌
//   - GET  /api/v1/auth/me             - 当前用户信息
//   - PUT  /api/v1/auth/password       - 修改密码
//
// 科目 (Subject):
//   - GET    /api/v1/subjects          - 公开列表（仅已发布）
//   - GET    /api/v1/subjects/{slug}   - 公开详情（仅已发布）
//   - POST   /api/v1/subjects          - 投稿（contributor/admin）
//   - PUT    /api/v1/subjects/{id}     - 编辑（作者或 admin）
//   - DELETE /api/v1/subjects/{id}     - 删除（作者或 admin）
//   - GET    /api/v1/users/me/subjects - 我的投稿
//
// 管理 (Admin，仅 admin):
//   - GET /api/v1/admin/queue                    - 审核队列
//   - PUT /api/v1/admin/subjects/{id}/publish    - 发布
//   - PUT /api/v1/admin/subjects/{id}/reject     - 驳回
//   - GET /api/v1/admin/users                    - 用户列表
//   - PUT /api/v1/admin/users/{id}/role          - 改角色
//
// 媒体 (Media，需 MinIO):
//   - POST   /api/v1/media       - 上传（contributor/admin）
//   - GET    /media/{key}        - 公开下载
//   - DELETE /api/v1/media/{key} - 删除（admin）
func (h *Handler) Router() http.Handler {
	mux := http.NewServeMux()

	// 健康检查
	mux.HandleFunc("GET /health", h.Health)

	// Prometheus 指标端点
	mux.Handle("GET /metrics", MetricsHandler())

	// Auth 路由
	authHandler := auth.NewHandler(h.store, h.authConfig)
	authHandler.RegisterRoutes(mux)

	// Subject 路由
	subjectHandler := subject.NewHandler(h.store, h.subjectCache)
	subjectHandler.RegisterRoutes(mux)

	// Admin 路由（复用 subject 的生命周期管理器）
	adminHandler := admin.NewHandler(h.store, subjectHandler.Lifecycle())
	adminHandler.RegisterRoutes(mux)

	// Media 路由（未配置 MinIO 时跳过）
	if h.objStore != nil {
		mediaHandler := media.NewHandler(h.objStore)
		mediaHandler.RegisterRoutes(mux)
	}

	// 应用指标中间件
	apiHandler := h.metrics.MetricsMiddleware(mux)

	// 应用身份解析中间件（匿名放行，授权由各路由判定）
	resolver := auth.NewResolver(h.store, h.authConfig)
	authedHandler := auth.Middleware(resolver)(apiHandler)

	// 应用 CORS 中间件
	return corsMiddleware(authedHandler)
}

// Health 服务健康检查
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// corsMiddleware 添加 CORS 头支持跨域请求
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
