// Package reader 实现阅读会话状态机。
// 每个会话持有一份不可变的小说文档与自己的可变状态（阅读记录、对话计数、
// 已触发集合、已解锁章节、亲密度），操作串行执行，延时效果交给 Scheduler。
package reader

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"sherry-reader/internal/domain/entity"
	"sherry-reader/internal/domain/service"
	"sherry-reader/pkg/errors"
	"sherry-reader/pkg/logger"
	"sherry-reader/pkg/metrics"
)

// Phase 会话所处阶段
type Phase string

const (
	// PhaseIdle 已创建，尚未进入章节
	PhaseIdle Phase = "idle"
	// PhaseChapterActive 章节阅读中
	PhaseChapterActive Phase = "chapter_active"
	// PhaseAwaitingEnding 结局面板已展示，等待读者选择
	PhaseAwaitingEnding Phase = "awaiting_ending"
	// PhaseFinished 故事完结
	PhaseFinished Phase = "finished"
	// PhaseOngoing 本线内容读完，故事连载中
	PhaseOngoing Phase = "ongoing"
)

// Options 会话行为参数，延时默认值见 config
type Options struct {
	// TypingDelay 角色模拟回复前的打字延时
	TypingDelay time.Duration
	// ProgressionDelay 回复与扩展剧情揭示之间的停顿
	ProgressionDelay time.Duration
	// DividerDelay 剧情揭示与章节分隔线/结局面板之间的停顿
	DividerDelay time.Duration
	// AdvanceDelay 结局选择与下一章初始化之间的停顿
	AdvanceDelay time.Duration
	// PickReply 回复话术选取，缺省随机
	PickReply ReplyPicker
}

func (o Options) pickReply(pool []string) string {
	if o.PickReply != nil {
		return o.PickReply(pool)
	}
	return RandomReply(pool)
}

// choiceRecord 读者已做出的剧情选择，亲密度条件据此匹配
type choiceRecord struct {
	ChapterID   string
	Choice      string
	CharacterID string
}

// Session 一次阅读会话。
// 所有公开方法持锁执行，调度器回调同样经由锁进入，满足单写者模型；
// 关闭后的会话拒绝全部操作并取消未执行的延时效果。
type Session struct {
	ID      string
	StoryID string

	mu    sync.Mutex
	story *entity.Story
	opts  Options
	sched Scheduler
	ctx   context.Context

	phase         Phase
	chapterIndex  int
	active        *entity.Character
	dialogueCount int
	triggered     map[string]bool
	dividerAdded  bool
	unlocked      map[int]bool
	intimacy      map[string]string
	choices       []choiceRecord
	transcript    []entity.TranscriptEvent
	// effects 本章登记的延时效果的取消函数，换章时统一取消
	effects []func()

	lastAccess time.Time
	closed     bool
}

// NewSession 创建会话，初始解锁集为 {0}，亲密度取各角色的起始状态
func NewSession(ctx context.Context, storyID string, story *entity.Story, opts Options, sched Scheduler) *Session {
	s := &Session{
		ID:        uuid.NewString(),
		StoryID:   storyID,
		story:     story,
		opts:      opts,
		sched:     sched,
		phase:     PhaseIdle,
		triggered: make(map[string]bool),
		unlocked:  map[int]bool{0: true},
		intimacy:  make(map[string]string),
	}
	s.ctx = logger.WithContext(ctx, logger.SessionIDKey, s.ID)
	s.ctx = logger.WithContext(s.ctx, logger.StoryIDKey, storyID)
	s.lastAccess = time.Now()

	for i := range story.Characters {
		c := &story.Characters[i]
		if c.Intimacy != nil {
			s.intimacy[c.ID] = c.Intimacy.CurrentStatus
		}
	}
	return s
}

// Start 进入第 0 章
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.ErrSessionClosed
	}
	if s.phase != PhaseIdle {
		return nil
	}
	s.initializeChapterLocked(0)
	return nil
}

// SubmitMessage 追加读者消息。
// 作者模式消息只进记录，不改变任何状态；
// 读者消息令对话计数 +1 并检查触发器：
// 命中时在打字延时后追加承接话术，再经推进延时揭示扩展剧情，
// 未命中时在打字延时后追加普通话术。
func (s *Session) SubmitMessage(text string, isAuthorAction bool) (entity.TranscriptEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return entity.TranscriptEvent{}, errors.ErrSessionClosed
	}

	kind := entity.EventUser
	if isAuthorAction {
		kind = entity.EventAuthor
	}
	ev := s.appendLocked(entity.TranscriptEvent{Kind: kind, Text: text})
	metrics.ReaderMessagesTotal.WithLabelValues(string(kind)).Inc()

	if isAuthorAction || s.phase != PhaseChapterActive {
		return ev, nil
	}

	s.dialogueCount++
	trigger := s.takeTriggerLocked()

	s.scheduleLocked(s.opts.TypingDelay, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.closed {
			return
		}
		pool := normalReplies
		if trigger != nil {
			pool = contextReplies
		}
		s.appendLocked(entity.TranscriptEvent{
			Kind:    entity.EventCharacter,
			Text:    s.opts.pickReply(pool),
			Speaker: s.activeIDLocked(),
		})
		metrics.ReaderMessagesTotal.WithLabelValues(string(entity.EventCharacter)).Inc()

		if trigger != nil {
			s.scheduleLocked(s.opts.ProgressionDelay, func() {
				s.mu.Lock()
				defer s.mu.Unlock()
				if s.closed {
					return
				}
				s.fireTriggerLocked(trigger)
			})
		}
	})

	return ev, nil
}

// CheckDialogueTrigger 返回下一个将要触发的对话触发器，不消费。
// 对话计数未达 minDialoguesPerChapter 时返回 nil；
// 否则按作者声明顺序返回第一个未触发的，全部已触发返回 nil。
func (s *Session) CheckDialogueTrigger() *entity.DialogueTrigger {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextTriggerLocked()
}

func (s *Session) nextTriggerLocked() *entity.DialogueTrigger {
	if s.dialogueCount < s.story.Settings.MinDialogues() {
		return nil
	}
	chapter := s.chapterLocked()
	if chapter == nil {
		return nil
	}
	for i := range chapter.DialogueTriggers {
		t := &chapter.DialogueTriggers[i]
		if !s.triggered[t.ParagraphID] {
			return t
		}
	}
	return nil
}

// takeTriggerLocked 选取并占用下一个触发器。
// 占用发生在选取时而非揭示时：揭示存在延时，期间的后续消息不得重选同一触发器。
func (s *Session) takeTriggerLocked() *entity.DialogueTrigger {
	t := s.nextTriggerLocked()
	if t != nil {
		s.triggered[t.ParagraphID] = true
	}
	return t
}

// fireTriggerLocked 揭示触发器对应的扩展段落。
// 段落按 extendedParagraphs 的声明顺序追加；
// 本章最后一个触发器揭示完毕后，经停顿追加章节分隔线（末章则展示结局），
// 分隔线与结局每章至多出现一次。分隔线同时解锁下一章，供读者从目录进入。
func (s *Session) fireTriggerLocked(trigger *entity.DialogueTrigger) {
	chapter := s.chapterLocked()
	if chapter == nil {
		return
	}

	wanted := make(map[string]bool, len(trigger.NextParagraphs))
	for _, id := range trigger.NextParagraphs {
		wanted[id] = true
	}
	for i := range chapter.ExtendedParagraphs {
		p := &chapter.ExtendedParagraphs[i]
		if !wanted[p.ID] {
			continue
		}
		s.appendLocked(entity.TranscriptEvent{
			Kind:        entity.EventParagraph,
			Parts:       p.Parts,
			ParagraphID: p.ID,
			Extended:    true,
		})
	}
	metrics.TriggersFiredTotal.Inc()
	logger.Debug(s.ctx, "对话触发器已揭示", "paragraph_id", trigger.ParagraphID)

	if s.dividerAdded || !s.allTriggersFiredLocked(chapter) {
		return
	}
	s.dividerAdded = true

	s.scheduleLocked(s.opts.DividerDelay, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.closed {
			return
		}
		if chapter.IsLastChapter {
			s.revealEndingLocked(chapter)
			return
		}
		s.appendLocked(entity.TranscriptEvent{
			Kind: entity.EventChapterDivider,
			Text: entity.ChapterDividerText,
		})
		if next := s.chapterIndex + 1; next < len(s.story.Chapters) {
			s.unlocked[next] = true
		}
	})
}

func (s *Session) allTriggersFiredLocked(chapter *entity.Chapter) bool {
	for i := range chapter.DialogueTriggers {
		if !s.triggered[chapter.DialogueTriggers[i].ParagraphID] {
			return false
		}
	}
	return true
}

// revealEndingLocked 展示结局面板并按结局类型迁移阶段。
// 章节声明为末章却未配置结局时退化为分隔线，不中断会话。
func (s *Session) revealEndingLocked(chapter *entity.Chapter) {
	if chapter.Ending == nil {
		s.appendLocked(entity.TranscriptEvent{
			Kind: entity.EventChapterDivider,
			Text: entity.ChapterDividerText,
		})
		return
	}

	s.appendLocked(entity.TranscriptEvent{
		Kind:   entity.EventEnding,
		Ending: chapter.Ending,
	})
	switch chapter.Ending.Type {
	case entity.EndingChoice:
		s.phase = PhaseAwaitingEnding
	case entity.EndingFinished:
		s.phase = PhaseFinished
	default:
		s.phase = PhaseOngoing
	}
	logger.Info(s.ctx, "结局面板已展示", "ending_type", string(chapter.Ending.Type), "phase", string(s.phase))
}

// ChooseEnding 读者在结局面板做出选择。
// 选项的 dialoguePrompt 以用户消息入记录并计入剧情选择，随后评估亲密度；
// nextChapter 指向已知章节时解锁该章并在停顿后进入，
// 不可解析时会话停留在结局展示，不再迁移。
func (s *Session) ChooseEnding(optionID string) (entity.TranscriptEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return entity.TranscriptEvent{}, errors.ErrSessionClosed
	}
	if s.phase != PhaseAwaitingEnding {
		return entity.TranscriptEvent{}, errors.ErrEndingNotAvailable
	}

	chapter := s.chapterLocked()
	option := chapter.Ending.OptionByID(optionID)
	if option == nil {
		return entity.TranscriptEvent{}, errors.ErrEndingNotAvailable.WithDetail("未知的结局选项: " + optionID)
	}

	ev := s.appendLocked(entity.TranscriptEvent{Kind: entity.EventUser, Text: option.DialoguePrompt})
	metrics.ReaderMessagesTotal.WithLabelValues(string(entity.EventUser)).Inc()

	characterID := option.CharacterID
	if characterID == "" {
		characterID = chapter.CharacterID
	}
	s.choices = append(s.choices, choiceRecord{
		ChapterID:   chapter.ID,
		Choice:      option.DialoguePrompt,
		CharacterID: characterID,
	})
	s.evaluateIntimacyLocked(chapter.ID, option.DialoguePrompt, characterID)

	next := s.story.ChapterIndexByID(option.NextChapter)
	if next < 0 {
		s.phase = PhaseOngoing
		return ev, nil
	}

	s.unlocked[next] = true
	s.scheduleLocked(s.opts.AdvanceDelay, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.closed {
			return
		}
		s.initializeChapterLocked(next)
	})
	return ev, nil
}

// evaluateIntimacyLocked 亲密度评估。
// 按升级路径的声明顺序找第一个条件命中 (chapterId, choice) 的等级，
// 状态有变化时更新并追加通知事件；首个命中即停止，一次选择只作用一级。
func (s *Session) evaluateIntimacyLocked(chapterID, choiceText, characterID string) {
	if characterID == "" {
		return
	}
	character := s.story.CharacterByID(characterID)
	if character == nil || character.Intimacy == nil {
		return
	}
	current, ok := s.intimacy[characterID]
	if !ok {
		return
	}

	for i := range character.Intimacy.UpgradePath {
		level := &character.Intimacy.UpgradePath[i]
		if !intimacyConditionHit(level.TriggerConditions, chapterID, choiceText) {
			continue
		}
		if level.Status != current {
			s.intimacy[characterID] = level.Status
			s.appendLocked(entity.TranscriptEvent{
				Kind: entity.EventIntimacy,
				Intimacy: &entity.IntimacyChange{
					CharacterName: character.Name,
					OldStatus:     current,
					NewStatus:     level.Status,
					Description:   level.Description,
				},
			})
			metrics.IntimacyUpgradesTotal.WithLabelValues(s.StoryID).Inc()
			logger.Info(s.ctx, "亲密度变化", "character_id", characterID, "old", current, "new", level.Status)
		}
		return
	}
}

func intimacyConditionHit(conditions []entity.IntimacyCondition, chapterID, choice string) bool {
	for _, c := range conditions {
		if c.ChapterID == chapterID && c.Choice == choice {
			return true
		}
	}
	return false
}

// OpenChapter 从章节目录进入指定章节，未解锁时为空操作
func (s *Session) OpenChapter(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errors.ErrSessionClosed
	}
	if index < 0 || index >= len(s.story.Chapters) {
		return errors.ErrChapterNotFound
	}
	if !s.unlocked[index] {
		return errors.ErrChapterLocked
	}
	s.initializeChapterLocked(index)
	metrics.ChaptersOpenedTotal.WithLabelValues(s.StoryID).Inc()
	return nil
}

// QuoteParagraph 引用当前章节的段落，文本为各片段正文的顺序拼接。
// 段落不在当前章节时为空操作。
func (s *Session) QuoteParagraph(paragraphID string) (entity.TranscriptEvent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return entity.TranscriptEvent{}, false
	}
	chapter := s.chapterLocked()
	if chapter == nil {
		return entity.TranscriptEvent{}, false
	}
	for _, p := range chapter.AllParagraphs() {
		if p.ID != paragraphID {
			continue
		}
		var b strings.Builder
		for _, part := range p.Parts {
			b.WriteString(part.Text)
		}
		ev := s.appendLocked(entity.TranscriptEvent{
			Kind:        entity.EventQuote,
			Text:        b.String(),
			ParagraphID: p.ID,
		})
		return ev, true
	}
	return entity.TranscriptEvent{}, false
}

// scheduleLocked 登记延时效果并保留取消函数，换章时统一取消
func (s *Session) scheduleLocked(d time.Duration, fn func()) {
	s.effects = append(s.effects, s.sched.Schedule(d, fn))
}

// initializeChapterLocked 进入章节：取消上一章残留的延时效果，
// 重置本章计数与标记，重建阅读记录为
// 标题 + 各段落 + 角色开场白（章节的 initialMessage 优先于角色自身的）。
func (s *Session) initializeChapterLocked(index int) {
	for _, cancel := range s.effects {
		cancel()
	}
	s.effects = s.effects[:0]

	chapter := &s.story.Chapters[index]
	s.chapterIndex = index
	s.phase = PhaseChapterActive
	s.dialogueCount = 0
	s.dividerAdded = false
	s.triggered = make(map[string]bool)
	s.active = service.ActiveCharacter(s.story, chapter)

	s.transcript = s.transcript[:0]
	s.appendLocked(entity.TranscriptEvent{Kind: entity.EventTitle, Text: chapter.Title})
	for i := range chapter.Paragraphs {
		p := &chapter.Paragraphs[i]
		s.appendLocked(entity.TranscriptEvent{
			Kind:        entity.EventParagraph,
			Parts:       p.Parts,
			ParagraphID: p.ID,
		})
	}

	greeting := chapter.InitialMessage
	if greeting == "" && s.active != nil {
		greeting = s.active.InitialMessage
	}
	if greeting != "" {
		s.appendLocked(entity.TranscriptEvent{
			Kind:    entity.EventCharacter,
			Text:    greeting,
			Speaker: s.activeIDLocked(),
		})
	}
	logger.Info(s.ctx, "进入章节", "chapter_index", index, "chapter_id", chapter.ID)
}

func (s *Session) chapterLocked() *entity.Chapter {
	if s.chapterIndex < 0 || s.chapterIndex >= len(s.story.Chapters) {
		return nil
	}
	return &s.story.Chapters[s.chapterIndex]
}

func (s *Session) activeIDLocked() string {
	if s.active == nil {
		return ""
	}
	return s.active.ID
}

func (s *Session) appendLocked(ev entity.TranscriptEvent) entity.TranscriptEvent {
	ev.ID = uuid.NewString()
	ev.CreatedAt = time.Now()
	s.transcript = append(s.transcript, ev)
	return ev
}

// Phase 当前阶段
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// ChapterIndex 当前章节下标
func (s *Session) ChapterIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chapterIndex
}

// Transcript 阅读记录快照
func (s *Session) Transcript() []entity.TranscriptEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]entity.TranscriptEvent, len(s.transcript))
	copy(out, s.transcript)
	return out
}

// UnlockedChapters 已解锁章节下标，升序
func (s *Session) UnlockedChapters() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int, 0, len(s.unlocked))
	for i := range s.story.Chapters {
		if s.unlocked[i] {
			out = append(out, i)
		}
	}
	return out
}

// IntimacyStatus 各角色当前亲密度状态快照
func (s *Session) IntimacyStatus() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.intimacy))
	for k, v := range s.intimacy {
		out[k] = v
	}
	return out
}

// Touch 刷新最近访问时间
func (s *Session) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastAccess = time.Now()
}

// IdleSince 返回最近访问时间
func (s *Session) IdleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAccess
}

// Close 关闭会话并取消全部未执行的延时效果，幂等
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()
	s.sched.Stop()
}
