// Package redis 已发布科目缓存操作
package redis

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"sahayak/internal/shared/cache"
	"sahayak/internal/shared/model"
)

// GetPublished 按 slug 读取已发布科目缓存，未命中返回 (nil, nil)
func (s *Store) GetPublished(ctx context.Context, slug string) (*model.Subject, error) {
	key := cache.KeyPublishedSubject + slug

	data, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var subject model.Subject
	if err := json.Unmarshal([]byte(data), &subject); err != nil {
		return nil, err
	}

	return &subject, nil
}

// SetPublished 写入已发布科目缓存
func (s *Store) SetPublished(ctx context.Context, subject *model.Subject) error {
	key := cache.KeyPublishedSubject + subject.Slug

	data, err := json.Marshal(subject)
	if err != nil {
		return err
	}

	return s.client.Set(ctx, key, data, cache.TTLPublishedSubject).Err()
}

// Invalidate 删除 slug 对应的缓存条目
func (s *Store) Invalidate(ctx context.Context, slug string) error {
	return s.client.Del(ctx, cache.KeyPublishedSubject+slug).Err()
}

var _ cache.SubjectCache = (*Store)(nil)
