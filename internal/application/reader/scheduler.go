package reader

import (
	"sort"
	"sync"
	"time"
)

// Scheduler 延时效果执行器。
// 状态机的转移只声明"多久之后执行什么"，由 Scheduler 负责计时，
// 会话关闭时 Stop 取消全部未执行的效果，避免残留写入。
type Scheduler interface {
	// Schedule 在 d 之后执行 fn，返回取消函数
	Schedule(d time.Duration, fn func()) (cancel func())
	// Stop 取消所有未执行的效果，之后的 Schedule 调用被忽略
	Stop()
}

// TimerScheduler 基于真实计时器的 Scheduler
type TimerScheduler struct {
	mu      sync.Mutex
	seq     int
	pending map[int]*time.Timer
	stopped bool
}

// NewTimerScheduler 创建真实计时器调度器
func NewTimerScheduler() *TimerScheduler {
	return &TimerScheduler{pending: make(map[int]*time.Timer)}
}

// Schedule 在 d 之后执行 fn
func (s *TimerScheduler) Schedule(d time.Duration, fn func()) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return func() {}
	}

	s.seq++
	id := s.seq
	timer := time.AfterFunc(d, func() {
		s.mu.Lock()
		_, live := s.pending[id]
		delete(s.pending, id)
		stopped := s.stopped
		s.mu.Unlock()
		if live && !stopped {
			fn()
		}
	})
	s.pending[id] = timer

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if t, ok := s.pending[id]; ok {
			t.Stop()
			delete(s.pending, id)
		}
	}
}

// Stop 取消全部未执行的效果
func (s *TimerScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	for id, t := range s.pending {
		t.Stop()
		delete(s.pending, id)
	}
}

// ManualScheduler 虚拟时间调度器，测试用：Advance 推进时钟并同步执行到期效果
type ManualScheduler struct {
	mu      sync.Mutex
	now     time.Duration
	seq     int
	pending []*manualEntry
	stopped bool
}

type manualEntry struct {
	at       time.Duration
	seq      int
	fn       func()
	canceled bool
}

// NewManualScheduler 创建虚拟时间调度器
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

// Schedule 登记在虚拟时刻 now+d 执行的效果
func (s *ManualScheduler) Schedule(d time.Duration, fn func()) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return func() {}
	}

	s.seq++
	e := &manualEntry{at: s.now + d, seq: s.seq, fn: fn}
	s.pending = append(s.pending, e)

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		e.canceled = true
	}
}

// Stop 取消全部未执行的效果
func (s *ManualScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	s.pending = nil
}

// Advance 推进虚拟时钟并按 (到期时刻, 登记顺序) 执行全部到期效果。
// 执行期间时钟停在当前效果的到期时刻，效果回调中登记的后续效果
// 以该时刻为基准计算到期，落在本次推进范围内的同样在本次 Advance 内执行。
func (s *ManualScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	deadline := s.now + d
	s.mu.Unlock()

	for {
		e := s.popDue(deadline)
		if e == nil {
			break
		}
		s.mu.Lock()
		s.now = e.at
		s.mu.Unlock()
		if !e.canceled {
			e.fn()
		}
	}

	s.mu.Lock()
	if s.now < deadline {
		s.now = deadline
	}
	s.mu.Unlock()
}

func (s *ManualScheduler) popDue(deadline time.Duration) *manualEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	sort.SliceStable(s.pending, func(i, j int) bool {
		if s.pending[i].at != s.pending[j].at {
			return s.pending[i].at < s.pending[j].at
		}
		return s.pending[i].seq < s.pending[j].seq
	})

	for i, e := range s.pending {
		if e.at > deadline {
			break
		}
		s.pending = append(s.pending[:i], s.pending[i+1:]...)
		return e
	}
	return nil
}
