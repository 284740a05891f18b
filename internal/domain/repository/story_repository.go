// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"sherry-reader/internal/domain/entity"
)

// StoryRepository 小说文档访问接口
// 文档按不透明的 story id 读取，实现不关心传输方式（文件系统或缓存）
type StoryRepository interface {
	// List 返回全部小说的列表项
	List(ctx context.Context) ([]entity.StorySummary, error)
	// Get 按 id 返回完整文档
	Get(ctx context.Context, id string) (*entity.Story, error)
	// GetRaw 按 id 返回原始 JSON，供校验器使用
	GetRaw(ctx context.Context, id string) ([]byte, error)
}
