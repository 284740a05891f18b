package reader

import (
	"context"
	"testing"
	"time"

	"sherry-reader/internal/domain/entity"
	"sherry-reader/pkg/errors"
)

// stubStoryRepo 内存小说仓库，测试用
type stubStoryRepo struct {
	stories map[string]*entity.Story
}

func (r *stubStoryRepo) List(ctx context.Context) ([]entity.StorySummary, error) {
	out := make([]entity.StorySummary, 0, len(r.stories))
	for id, s := range r.stories {
		out = append(out, s.Summarize(id))
	}
	return out, nil
}

func (r *stubStoryRepo) Get(ctx context.Context, id string) (*entity.Story, error) {
	s, ok := r.stories[id]
	if !ok {
		return nil, errors.ErrStoryNotFound.WithDetail(id)
	}
	return s, nil
}

func (r *stubStoryRepo) GetRaw(ctx context.Context, id string) ([]byte, error) {
	return nil, errors.ErrStoryNotFound.WithDetail(id)
}

func newTestManager(maxSessions int, ttl time.Duration) *Manager {
	repo := &stubStoryRepo{stories: map[string]*entity.Story{
		"test-story": singleChapterStory(),
	}}
	return NewManager(repo, ManagerOptions{
		Session:      testOptions,
		SessionTTL:   ttl,
		MaxSessions:  maxSessions,
		NewScheduler: func() Scheduler { return NewManualScheduler() },
	})
}

func TestManagerCreateAndGet(t *testing.T) {
	m := newTestManager(0, time.Hour)
	ctx := context.Background()

	s, err := m.Create(ctx, "test-story")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if s.Phase() != PhaseChapterActive {
		t.Errorf("new session phase = %s, want %s", s.Phase(), PhaseChapterActive)
	}

	got, err := m.Get(s.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != s {
		t.Error("Get returned a different session")
	}
	if m.Count() != 1 {
		t.Errorf("Count = %d, want 1", m.Count())
	}

	if _, err := m.Get("missing"); err != errors.ErrSessionNotFound {
		t.Errorf("Get(missing) = %v, want ErrSessionNotFound", err)
	}
}

func TestManagerCreateUnknownStory(t *testing.T) {
	m := newTestManager(0, time.Hour)

	_, err := m.Create(context.Background(), "ghost")
	if appErr := errors.AsAppError(err); appErr.Code != errors.CodeStoryNotFound {
		t.Errorf("Create(ghost) code = %s, want %s", appErr.Code, errors.CodeStoryNotFound)
	}
}

func TestManagerMaxSessions(t *testing.T) {
	m := newTestManager(1, time.Hour)
	ctx := context.Background()

	if _, err := m.Create(ctx, "test-story"); err != nil {
		t.Fatalf("first Create: %v", err)
	}
	_, err := m.Create(ctx, "test-story")
	if appErr := errors.AsAppError(err); appErr.Code != errors.CodeTooManyRequests {
		t.Errorf("second Create code = %s, want %s", appErr.Code, errors.CodeTooManyRequests)
	}
}

func TestManagerClose(t *testing.T) {
	m := newTestManager(0, time.Hour)
	ctx := context.Background()

	s, err := m.Create(ctx, "test-story")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := m.Close(ctx, s.ID); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if m.Count() != 0 {
		t.Errorf("Count after close = %d, want 0", m.Count())
	}
	if err := m.Close(ctx, s.ID); err != errors.ErrSessionNotFound {
		t.Errorf("second Close = %v, want ErrSessionNotFound", err)
	}
	// 移除后的会话已被关闭
	if _, err := s.SubmitMessage("还在吗", false); err != errors.ErrSessionClosed {
		t.Errorf("SubmitMessage on closed session = %v, want ErrSessionClosed", err)
	}
}

func TestManagerEvictIdle(t *testing.T) {
	m := newTestManager(0, 10*time.Millisecond)
	ctx := context.Background()

	stale, err := m.Create(ctx, "test-story")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	fresh, err := m.Create(ctx, "test-story")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	time.Sleep(20 * time.Millisecond)
	fresh.Touch()
	m.evictIdle(ctx)

	if _, err := m.Get(stale.ID); err != errors.ErrSessionNotFound {
		t.Errorf("stale session should be evicted, got %v", err)
	}
	if _, err := m.Get(fresh.ID); err != nil {
		t.Errorf("fresh session evicted: %v", err)
	}
}

func TestManagerShutdown(t *testing.T) {
	m := newTestManager(0, time.Hour)
	ctx := context.Background()

	s, _ := m.Create(ctx, "test-story")
	m.Shutdown()

	if m.Count() != 0 {
		t.Errorf("Count after shutdown = %d, want 0", m.Count())
	}
	if _, err := s.SubmitMessage("还在吗", false); err != errors.ErrSessionClosed {
		t.Errorf("SubmitMessage after shutdown = %v, want ErrSessionClosed", err)
	}
}
