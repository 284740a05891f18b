package reader

import (
	"context"
	"sync"
	"time"

	"sherry-reader/internal/domain/repository"
	"sherry-reader/pkg/errors"
	"sherry-reader/pkg/logger"
	"sherry-reader/pkg/metrics"
)

// ManagerOptions 会话管理参数
type ManagerOptions struct {
	Session Options
	// SessionTTL 空闲会话的回收阈值
	SessionTTL time.Duration
	// MaxSessions 同时存活的会话上限，0 表示不限制
	MaxSessions int
	// NewScheduler 会话调度器工厂，缺省为真实计时器
	NewScheduler func() Scheduler
}

// Manager 管理全部阅读会话。
// 会话状态按会话 id 隔离，互不共享；空闲超时的会话被后台回收。
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	stories  repository.StoryRepository
	opts     ManagerOptions
}

// NewManager 创建会话管理器
func NewManager(stories repository.StoryRepository, opts ManagerOptions) *Manager {
	if opts.NewScheduler == nil {
		opts.NewScheduler = func() Scheduler { return NewTimerScheduler() }
	}
	return &Manager{
		sessions: make(map[string]*Session),
		stories:  stories,
		opts:     opts,
	}
}

// Create 加载小说文档并开始一次新的阅读会话
func (m *Manager) Create(ctx context.Context, storyID string) (*Session, error) {
	m.mu.RLock()
	count := len(m.sessions)
	m.mu.RUnlock()
	if m.opts.MaxSessions > 0 && count >= m.opts.MaxSessions {
		return nil, errors.ErrTooManyRequests.WithDetail("会话数已达上限")
	}

	story, err := m.stories.Get(ctx, storyID)
	if err != nil {
		return nil, err
	}

	s := NewSession(ctx, storyID, story, m.opts.Session, m.opts.NewScheduler())
	if err := s.Start(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	metrics.ActiveSessions.Inc()

	logger.Info(ctx, "阅读会话已创建", "session_id", s.ID, "story_id", storyID)
	return s, nil
}

// Get 按 id 取会话并刷新访问时间
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, errors.ErrSessionNotFound
	}
	s.Touch()
	return s, nil
}

// Close 关闭并移除会话，不存在时返回 ErrSessionNotFound
func (m *Manager) Close(ctx context.Context, id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()
	if !ok {
		return errors.ErrSessionNotFound
	}

	s.Close()
	metrics.ActiveSessions.Dec()
	logger.Info(ctx, "阅读会话已关闭", "session_id", id)
	return nil
}

// Count 当前存活会话数
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Shutdown 关闭全部会话
func (m *Manager) Shutdown() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Close()
		metrics.ActiveSessions.Dec()
	}
}

// RunEviction 周期回收空闲超时的会话，直到 ctx 取消
func (m *Manager) RunEviction(ctx context.Context, interval time.Duration) {
	if m.opts.SessionTTL <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.evictIdle(ctx)
		}
	}
}

func (m *Manager) evictIdle(ctx context.Context) {
	deadline := time.Now().Add(-m.opts.SessionTTL)

	m.mu.Lock()
	var expired []*Session
	for id, s := range m.sessions {
		if s.IdleSince().Before(deadline) {
			delete(m.sessions, id)
			expired = append(expired, s)
		}
	}
	m.mu.Unlock()

	for _, s := range expired {
		s.Close()
		metrics.ActiveSessions.Dec()
		logger.Info(ctx, "空闲会话已回收", "session_id", s.ID, "story_id", s.StoryID)
	}
}
