// Package cache 缓存层抽象接口
//
// 为公开读路径提供已发布科目的旁路缓存，当前由 Redis 实现。
// 缓存只是加速层：未命中或缓存不可用时调用方直接回源存储。
package cache

import (
	"context"
	"time"

	"sahayak/internal/shared/model"
)

// Key 前缀与 TTL
const (
	KeyPublishedSubject = "subject:published:" // + slug

	TTLPublishedSubject = 10 * time.Minute
)

// SubjectCache 已发布科目缓存接口
//
// 任何生命周期变更（编辑/发布/驳回/删除）后必须 Invalidate 对应 slug，
// 保证公开读不会长期看到过期文档。
type SubjectCache interface {
	GetPublished(ctx context.Context, slug string) (*model.Subject, error)
	SetPublished(ctx context.Context, subject *model.Subject) error
	Invalidate(ctx context.Context, slug string) error
	Close() error
}
