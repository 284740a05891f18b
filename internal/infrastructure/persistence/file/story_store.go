// Package file 提供文件系统小说存储。
// 小说为目录下的扁平 JSON 文件，story id 即文件名去掉 .json 后缀。
package file

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"sherry-reader/internal/domain/entity"
	"sherry-reader/pkg/errors"
	"sherry-reader/pkg/logger"
	"sherry-reader/pkg/metrics"
)

// StoryStore 文件系统小说存储
type StoryStore struct {
	dir string
}

// NewStoryStore 创建文件系统存储
func NewStoryStore(dir string) *StoryStore {
	return &StoryStore{dir: dir}
}

// List 扫描目录下全部 *.json 并返回列表项，按 id 排序。
// 单个文件解析失败只记日志跳过，不影响其余小说。
func (s *StoryStore) List(ctx context.Context) ([]entity.StorySummary, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeStorageError, "读取小说目录失败")
	}

	summaries := make([]entity.StorySummary, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		id := strings.TrimSuffix(e.Name(), ".json")
		story, err := s.load(id)
		if err != nil {
			logger.Warn(ctx, "跳过无法解析的小说文件", "file", e.Name(), "error", err.Error())
			continue
		}
		summaries = append(summaries, story.Summarize(id))
	}

	sort.Slice(summaries, func(i, j int) bool { return summaries[i].ID < summaries[j].ID })
	return summaries, nil
}

// Get 按 id 读取完整文档
func (s *StoryStore) Get(ctx context.Context, id string) (*entity.Story, error) {
	start := time.Now()
	story, err := s.load(id)
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.StoryLoadTotal.WithLabelValues("file", status).Inc()
	metrics.StoryLoadDuration.WithLabelValues("file").Observe(time.Since(start).Seconds())
	return story, err
}

// GetRaw 按 id 读取原始 JSON
func (s *StoryStore) GetRaw(ctx context.Context, id string) ([]byte, error) {
	path, err := s.resolve(id)
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ErrStoryNotFound.WithDetail(id)
		}
		return nil, errors.Wrap(err, errors.CodeStorageError, "读取小说文件失败")
	}
	return raw, nil
}

func (s *StoryStore) load(id string) (*entity.Story, error) {
	path, err := s.resolve(id)
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ErrStoryNotFound.WithDetail(id)
		}
		return nil, errors.Wrap(err, errors.CodeStorageError, "读取小说文件失败")
	}

	var story entity.Story
	if err := json.Unmarshal(raw, &story); err != nil {
		return nil, errors.ErrStoryParseFailed.WithError(err)
	}
	return &story, nil
}

// resolve 拼接文件路径，拒绝越出目录的 id
func (s *StoryStore) resolve(id string) (string, error) {
	if id == "" || strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return "", errors.ErrStoryNotFound.WithDetail(id)
	}
	return filepath.Join(s.dir, id+".json"), nil
}
