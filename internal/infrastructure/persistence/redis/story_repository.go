package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"sherry-reader/internal/domain/entity"
	"sherry-reader/internal/domain/repository"
	"sherry-reader/pkg/errors"
	"sherry-reader/pkg/metrics"
)

const storyListKey = "story:list"

// CachingStoryRepository 小说文档的 Read-Through 缓存装饰器。
// 缓存失效或 Redis 不可用时回落到内层存储，读取路径永不因缓存故障中断。
type CachingStoryRepository struct {
	inner repository.StoryRepository
	cache *Cache
	ttl   time.Duration
}

// NewCachingStoryRepository 包装内层存储
func NewCachingStoryRepository(inner repository.StoryRepository, cache *Cache, ttl time.Duration) *CachingStoryRepository {
	return &CachingStoryRepository{inner: inner, cache: cache, ttl: ttl}
}

// List 返回全部小说的列表项
func (r *CachingStoryRepository) List(ctx context.Context) ([]entity.StorySummary, error) {
	raw, err := r.cache.GetOrLoadSafe(ctx, storyListKey, r.ttl, func() (interface{}, error) {
		return r.inner.List(ctx)
	})
	if err != nil {
		if errors.IsAppError(err) {
			return nil, err
		}
		// 缓存层故障，直接读内层
		return r.inner.List(ctx)
	}

	var summaries []entity.StorySummary
	if err := json.Unmarshal(raw, &summaries); err != nil {
		return r.inner.List(ctx)
	}
	return summaries, nil
}

// Get 按 id 返回完整文档
func (r *CachingStoryRepository) Get(ctx context.Context, id string) (*entity.Story, error) {
	raw, err := r.GetRaw(ctx, id)
	if err != nil {
		return nil, err
	}

	var story entity.Story
	if err := json.Unmarshal(raw, &story); err != nil {
		return nil, errors.ErrStoryParseFailed.WithError(err)
	}
	return &story, nil
}

// GetRaw 按 id 返回原始 JSON，缓存命中时不触碰文件系统
func (r *CachingStoryRepository) GetRaw(ctx context.Context, id string) ([]byte, error) {
	key := fmt.Sprintf("story:%s", id)

	start := time.Now()
	raw, err := r.cache.GetOrLoadSafe(ctx, key, r.ttl, func() (interface{}, error) {
		b, err := r.inner.GetRaw(ctx, id)
		if err != nil {
			return nil, err
		}
		// loader 返回 json.RawMessage，序列化后保持原始字节
		return json.RawMessage(b), nil
	})
	if err != nil {
		if errors.IsAppError(err) {
			metrics.StoryLoadTotal.WithLabelValues("cache", "error").Inc()
			return nil, err
		}
		return r.inner.GetRaw(ctx, id)
	}

	metrics.StoryLoadTotal.WithLabelValues("cache", "success").Inc()
	metrics.StoryLoadDuration.WithLabelValues("cache").Observe(time.Since(start).Seconds())
	return raw, nil
}
