package cache

import (
	"context"

	"sahayak/internal/shared/model"
)

// NoOpCache 空操作缓存实现（用于测试和无 Redis 部署）
type NoOpCache struct{}

// NewNoOpCache 创建 NoOpCache 实例
func NewNoOpCache() *NoOpCache {
	return &NoOpCache{}
}

func (c *NoOpCache) GetPublished(ctx context.Context, slug string) (*model.Subject, error) {
	return nil, nil
}

func (c *NoOpCache) SetPublished(ctx context.Context, subject *model.Subject) error {
	return nil
}

func (c *NoOpCache) Invalidate(ctx context.Context, slug string) error {
	return nil
}

func (c *NoOpCache) Close() error {
	return nil
}

var _ SubjectCache = (*NoOpCache)(nil)
