// Package subject 科目领域 - 生命周期状态机与 HTTP 处理
package subject

import (
	"context"
	"fmt"
	"log"
	"time"

	"sahayak/internal/apiserver/auth"
	"sahayak/internal/shared/cache"
	"sahayak/internal/shared/model"
	"sahayak/internal/shared/storage"
)

// Lifecycle 科目生命周期管理器
//
// 状态机 draft → published / rejected。rejected 不是终态：
// 编辑不重置状态，驳回后的修订可被再次发布。
// 每个迁移先按 ID 取当前记录：记录不存在返回 storage.ErrNotFound，
// 准入判定只在确认存在之后进行，不存在的资源不泄露归属信息。
// 每个迁移落盘为单次原子文档操作，并发编辑按字段级 last-writer-wins。
type Lifecycle struct {
	store storage.SubjectStore
	cache cache.SubjectCache
}

// NewLifecycle 创建生命周期管理器
func NewLifecycle(store storage.SubjectStore, subjectCache cache.SubjectCache) *Lifecycle {
	if subjectCache == nil {
		subjectCache = cache.NewNoOpCache()
	}
	return &Lifecycle{store: store, cache: subjectCache}
}

// ============================================================================
// 请求类型
// ============================================================================

// CreateRequest 投稿请求载荷
type CreateRequest struct {
	Name             string           `json:"name"`
	Slug             string           `json:"slug"`
	Course           model.CourseInfo `json:"course"`
	Overview         model.Overview   `json:"overview"`
	Intro            model.Intro      `json:"intro"`
	Units            []model.Unit     `json:"units"`
	StudyModes       model.StudyModes `json:"study_modes"`
	MidsemStrategy   string           `json:"midsem_strategy"`
	EndsemStrategy   string           `json:"endsem_strategy"`
	SyllabusImageURL string           `json:"syllabus_image_url"`
	MidsemPyqURL     string           `json:"midsem_pyq_url"`
	EndsemPyqURL     string           `json:"endsem_pyq_url"`
	Materials        []model.Material `json:"materials"`
}

// UpdateRequest 部分更新载荷
// 指针字段：nil 表示"未提供，保持原值"，与显式零值区分
type UpdateRequest struct {
	Name             *string           `json:"name"`
	Course           *model.CourseInfo `json:"course"`
	Overview         *model.Overview   `json:"overview"`
	Intro            *model.Intro      `json:"intro"`
	Units            *[]model.Unit     `json:"units"`
	StudyModes       *model.StudyModes `json:"study_modes"`
	MidsemStrategy   *string           `json:"midsem_strategy"`
	EndsemStrategy   *string           `json:"endsem_strategy"`
	SyllabusImageURL *string           `json:"syllabus_image_url"`
	MidsemPyqURL     *string           `json:"midsem_pyq_url"`
	EndsemPyqURL     *string           `json:"endsem_pyq_url"`
	Materials        *[]model.Material `json:"materials"`
}

// fields 收集显式给出的字段，省略的字段不出现在结果里
func (r *UpdateRequest) fields() map[string]interface{} {
	f := map[string]interface{}{}
	if r.Name != nil {
		f["name"] = *r.Name
	}
	if r.Course != nil {
		f["course"] = *r.Course
	}
	if r.Overview != nil {
		f["overview"] = *r.Overview
	}
	if r.Intro != nil {
		f["intro"] = *r.Intro
	}
	if r.Units != nil {
		f["units"] = *r.Units
	}
	if r.StudyModes != nil {
		f["study_modes"] = *r.StudyModes
	}
	if r.MidsemStrategy != nil {
		f["midsem_strategy"] = *r.MidsemStrategy
	}
	if r.EndsemStrategy != nil {
		f["endsem_strategy"] = *r.EndsemStrategy
	}
	if r.SyllabusImageURL != nil {
		f["syllabus_image_url"] = *r.SyllabusImageURL
	}
	if r.MidsemPyqURL != nil {
		f["midsem_pyq_url"] = *r.MidsemPyqURL
	}
	if r.EndsemPyqURL != nil {
		f["endsem_pyq_url"] = *r.EndsemPyqURL
	}
	if r.Materials != nil {
		f["materials"] = *r.Materials
	}
	return f
}

// ============================================================================
// 状态迁移
// ============================================================================

// Submit 创建草稿（draft）
// authors 初始化为 [提交者]，submitted_by 固定为提交者
func (l *Lifecycle) Submit(ctx context.Context, principal *model.User, req *CreateRequest) (*model.Subject, error) {
	if err := auth.Admit(principal, auth.OpCreate, nil); err != nil {
		return nil, err
	}

	// slug 唯一性预检；并发竞争由存储层唯一索引兜底
	existing, err := l.store.GetSubjectBySlug(ctx, req.Slug)
	if err != nil {
		return nil, fmt.Errorf("check slug: %w", err)
	}
	if existing != nil {
		return nil, storage.ErrDuplicate
	}

	now := time.Now()
	subject := &model.Subject{
		ID:               generateID("sub"),
		Name:             req.Name,
		Slug:             req.Slug,
		Course:           req.Course,
		Overview:         req.Overview,
		Intro:            req.Intro,
		Units:            req.Units,
		StudyModes:       req.StudyModes,
		MidsemStrategy:   req.MidsemStrategy,
		EndsemStrategy:   req.EndsemStrategy,
		SyllabusImageURL: req.SyllabusImageURL,
		MidsemPyqURL:     req.MidsemPyqURL,
		EndsemPyqURL:     req.EndsemPyqURL,
		Materials:        req.Materials,
		Authors: []model.AuthorRef{
			{UserID: principal.ID, DisplayName: principal.DisplayName},
		},
		SubmittedBy: principal.ID,
		ReviewedBy:  nil,
		Status:      model.SubjectStatusDraft,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := l.store.CreateSubject(ctx, subject); err != nil {
		return nil, err
	}
	log.Printf("[subject] Submitted for review: %s (%s) by %s", subject.Slug, subject.ID, principal.ID)
	return subject, nil
}

// Edit 编辑字段内容
// 只合并显式给出的字段；不触碰 status / authors / submitted_by；
// 任何状态下作者或管理员均可编辑，编辑不重置发布状态
func (l *Lifecycle) Edit(ctx context.Context, principal *model.User, id string, req *UpdateRequest) error {
	subject, err := l.fetch(ctx, id)
	if err != nil {
		return err
	}
	if err := auth.Admit(principal, auth.OpUpdate, auth.SubjectResource(subject)); err != nil {
		return err
	}

	fields := req.fields()
	fields["updated_at"] = time.Now()

	if err := l.store.UpdateSubjectFields(ctx, id, fields); err != nil {
		return err
	}
	l.invalidate(ctx, subject.Slug)
	return nil
}

// Publish 发布科目
// 幂等：重复发布已发布的记录静默成功；清除此前的驳回原因
func (l *Lifecycle) Publish(ctx context.Context, principal *model.User, id string) error {
	subject, err := l.fetch(ctx, id)
	if err != nil {
		return err
	}
	if err := auth.Admit(principal, auth.OpModerate, auth.SubjectResource(subject)); err != nil {
		return err
	}

	if err := l.store.UpdateSubjectFields(ctx, id, map[string]interface{}{
		"status":           model.SubjectStatusPublished,
		"reviewed_by":      principal.ID,
		"rejection_reason": "",
		"updated_at":       time.Now(),
	}); err != nil {
		return err
	}
	l.invalidate(ctx, subject.Slug)
	log.Printf("[subject] Published: %s (%s) by %s", subject.Slug, id, principal.ID)
	return nil
}

// Reject 驳回科目（reason 允许为空字符串）
func (l *Lifecycle) Reject(ctx context.Context, principal *model.User, id, reason string) error {
	subject, err := l.fetch(ctx, id)
	if err != nil {
		return err
	}
	if err := auth.Admit(principal, auth.OpModerate, auth.SubjectResource(subject)); err != nil {
		return err
	}

	if err := l.store.UpdateSubjectFields(ctx, id, map[string]interface{}{
		"status":           model.SubjectStatusRejected,
		"reviewed_by":      principal.ID,
		"rejection_reason": reason,
		"updated_at":       time.Now(),
	}); err != nil {
		return err
	}
	l.invalidate(ctx, subject.Slug)
	log.Printf("[subject] Rejected: %s (%s) by %s", subject.Slug, id, principal.ID)
	return nil
}

// Delete 永久删除记录，任何状态下可执行，不可逆
func (l *Lifecycle) Delete(ctx context.Context, principal *model.User, id string) error {
	subject, err := l.fetch(ctx, id)
	if err != nil {
		return err
	}
	if err := auth.Admit(principal, auth.OpDelete, auth.SubjectResource(subject)); err != nil {
		return err
	}

	if err := l.store.DeleteSubject(ctx, id); err != nil {
		return err
	}
	l.invalidate(ctx, subject.Slug)
	log.Printf("[subject] Deleted: %s (%s) by %s", subject.Slug, id, principal.ID)
	return nil
}

// fetch 取当前记录，不存在返回 storage.ErrNotFound
func (l *Lifecycle) fetch(ctx context.Context, id string) (*model.Subject, error) {
	subject, err := l.store.GetSubject(ctx, id)
	if err != nil {
		return nil, err
	}
	if subject == nil {
		return nil, storage.ErrNotFound
	}
	return subject, nil
}

func (l *Lifecycle) invalidate(ctx context.Context, slug string) {
	if err := l.cache.Invalidate(ctx, slug); err != nil {
		log.Printf("[subject] cache invalidate %s: %v", slug, err)
	}
}
