package reader

import (
	"context"
	"testing"
	"time"

	"sherry-reader/internal/domain/entity"
	"sherry-reader/pkg/errors"
)

var testOptions = Options{
	TypingDelay:      1500 * time.Millisecond,
	ProgressionDelay: time.Second,
	DividerDelay:     2 * time.Second,
	AdvanceDelay:     time.Second,
	PickReply:        func(pool []string) string { return pool[0] },
}

func newTestSession(t *testing.T, story *entity.Story) (*Session, *ManualScheduler) {
	t.Helper()
	sched := NewManualScheduler()
	s := NewSession(context.Background(), "test-story", story, testOptions, sched)
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return s, sched
}

func singleChapterStory() *entity.Story {
	return &entity.Story{
		ID:    "test-story",
		Title: "测试",
		Characters: []entity.Character{
			{ID: "c1", Name: "Aria", Avatar: "http://example.com/a.png", InitialMessage: "你来了。"},
		},
		Chapters: []entity.Chapter{
			{
				ID:    "ch1",
				Title: "第一章",
				Paragraphs: []entity.Paragraph{
					{ID: "p1", Parts: []entity.Part{{Type: entity.PartNarration, Text: "雨夜。"}}},
				},
				ExtendedParagraphs: []entity.Paragraph{
					{ID: "p1e", Parts: []entity.Part{{Type: entity.PartNarration, Text: "雨停了。"}}},
				},
				DialogueTriggers: []entity.DialogueTrigger{
					{ParagraphID: "p1", NextParagraphs: []string{"p1e"}},
				},
				IsLastChapter: true,
				Ending:        &entity.Ending{Type: entity.EndingFinished, Text: "The End"},
			},
		},
		Settings: entity.StorySettings{MinDialoguesPerChapter: 1},
	}
}

func countEvents(events []entity.TranscriptEvent, kind entity.EventKind) int {
	n := 0
	for _, ev := range events {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

func countParagraph(events []entity.TranscriptEvent, paragraphID string) int {
	n := 0
	for _, ev := range events {
		if ev.Kind == entity.EventParagraph && ev.ParagraphID == paragraphID {
			n++
		}
	}
	return n
}

func TestInitializeChapterTranscript(t *testing.T) {
	s, _ := newTestSession(t, singleChapterStory())

	events := s.Transcript()
	if len(events) != 3 {
		t.Fatalf("transcript length = %d, want 3", len(events))
	}
	if events[0].Kind != entity.EventTitle || events[0].Text != "第一章" {
		t.Errorf("events[0] = %+v, want title 第一章", events[0])
	}
	if events[1].Kind != entity.EventParagraph || events[1].ParagraphID != "p1" {
		t.Errorf("events[1] = %+v, want paragraph p1", events[1])
	}
	if events[2].Kind != entity.EventCharacter || events[2].Text != "你来了。" {
		t.Errorf("events[2] = %+v, want greeting", events[2])
	}
	if got := s.Phase(); got != PhaseChapterActive {
		t.Errorf("phase = %s, want %s", got, PhaseChapterActive)
	}
}

func TestChapterInitialMessagePreferred(t *testing.T) {
	story := singleChapterStory()
	story.Chapters[0].InitialMessage = "欢迎回来。"
	s, _ := newTestSession(t, story)

	events := s.Transcript()
	if events[2].Text != "欢迎回来。" {
		t.Errorf("greeting = %q, want 欢迎回来。", events[2].Text)
	}
}

func TestEndToEndFinishedEnding(t *testing.T) {
	s, sched := newTestSession(t, singleChapterStory())

	if _, err := s.SubmitMessage("你好", false); err != nil {
		t.Fatalf("SubmitMessage: %v", err)
	}

	// 打字延时后出角色回复，再经推进延时揭示扩展段落
	sched.Advance(1500 * time.Millisecond)
	sched.Advance(time.Second)

	events := s.Transcript()
	if got := countParagraph(events, "p1e"); got != 1 {
		t.Fatalf("p1e revealed %d times, want 1", got)
	}

	// 分隔线延时后展示结局
	sched.Advance(2 * time.Second)

	events = s.Transcript()
	// 标题 + p1 + 开场白 + 用户 + 回复 + p1e + 结局
	if len(events) != 7 {
		t.Fatalf("transcript length = %d, want 7", len(events))
	}
	last := events[len(events)-1]
	if last.Kind != entity.EventEnding {
		t.Fatalf("last event kind = %s, want ending", last.Kind)
	}
	if last.Ending == nil || last.Ending.Text != "The End" {
		t.Errorf("ending = %+v, want text The End", last.Ending)
	}
	if got := s.Phase(); got != PhaseFinished {
		t.Errorf("phase = %s, want %s", got, PhaseFinished)
	}
}

func TestTriggerFiresAtMostOnce(t *testing.T) {
	s, sched := newTestSession(t, singleChapterStory())

	for i := 0; i < 5; i++ {
		if _, err := s.SubmitMessage("继续", false); err != nil {
			t.Fatalf("SubmitMessage: %v", err)
		}
		sched.Advance(10 * time.Second)
	}

	events := s.Transcript()
	if got := countParagraph(events, "p1e"); got != 1 {
		t.Errorf("p1e revealed %d times, want 1", got)
	}
	if got := countEvents(events, entity.EventEnding); got != 1 {
		t.Errorf("ending revealed %d times, want 1", got)
	}
}

func TestTriggerOrdering(t *testing.T) {
	story := singleChapterStory()
	story.Chapters[0].IsLastChapter = false
	story.Chapters[0].Ending = nil
	story.Chapters[0].ExtendedParagraphs = []entity.Paragraph{
		{ID: "e1", Parts: []entity.Part{{Type: entity.PartNarration, Text: "一"}}},
		{ID: "e2", Parts: []entity.Part{{Type: entity.PartNarration, Text: "二"}}},
	}
	story.Chapters[0].DialogueTriggers = []entity.DialogueTrigger{
		{ParagraphID: "t1", NextParagraphs: []string{"e1"}},
		{ParagraphID: "t2", NextParagraphs: []string{"e2"}},
	}
	s, sched := newTestSession(t, story)

	// 第一条消息只消费第一个触发器
	s.SubmitMessage("一", false)
	sched.Advance(10 * time.Second)
	events := s.Transcript()
	if countParagraph(events, "e1") != 1 || countParagraph(events, "e2") != 0 {
		t.Fatalf("after first message: e1=%d e2=%d, want 1/0",
			countParagraph(events, "e1"), countParagraph(events, "e2"))
	}
	if countEvents(events, entity.EventChapterDivider) != 0 {
		t.Fatal("divider appeared before final trigger")
	}

	// 第二条消息消费第二个，随后出分隔线
	s.SubmitMessage("二", false)
	sched.Advance(10 * time.Second)
	events = s.Transcript()
	if countParagraph(events, "e2") != 1 {
		t.Fatalf("e2 revealed %d times, want 1", countParagraph(events, "e2"))
	}
	if got := countEvents(events, entity.EventChapterDivider); got != 1 {
		t.Errorf("divider count = %d, want 1", got)
	}
	for _, ev := range events {
		if ev.Kind == entity.EventChapterDivider && ev.Text != entity.ChapterDividerText {
			t.Errorf("divider text = %q, want %q", ev.Text, entity.ChapterDividerText)
		}
	}
}

func TestContextReplyOnTrigger(t *testing.T) {
	s, sched := newTestSession(t, singleChapterStory())

	s.SubmitMessage("你好", false)
	sched.Advance(1500 * time.Millisecond)

	events := s.Transcript()
	reply := events[len(events)-1]
	if reply.Kind != entity.EventCharacter {
		t.Fatalf("last event kind = %s, want character", reply.Kind)
	}
	if reply.Text != contextReplies[0] {
		t.Errorf("reply = %q, want context reply %q", reply.Text, contextReplies[0])
	}
}

func TestAuthorMessageInert(t *testing.T) {
	s, sched := newTestSession(t, singleChapterStory())
	before := len(s.Transcript())

	ev, err := s.SubmitMessage("旁白补充", true)
	if err != nil {
		t.Fatalf("SubmitMessage: %v", err)
	}
	if ev.Kind != entity.EventAuthor {
		t.Errorf("event kind = %s, want author", ev.Kind)
	}

	sched.Advance(time.Minute)
	events := s.Transcript()
	if len(events) != before+1 {
		t.Errorf("transcript length = %d, want %d (no reply, no trigger)", len(events), before+1)
	}
	if s.CheckDialogueTrigger() != nil {
		t.Error("author message advanced the dialogue counter")
	}
}

func TestMinDialoguesGate(t *testing.T) {
	story := singleChapterStory()
	story.Settings.MinDialoguesPerChapter = 2
	s, sched := newTestSession(t, story)

	s.SubmitMessage("一", false)
	sched.Advance(10 * time.Second)
	if got := countParagraph(s.Transcript(), "p1e"); got != 0 {
		t.Fatalf("trigger fired below threshold, p1e=%d", got)
	}

	s.SubmitMessage("二", false)
	sched.Advance(10 * time.Second)
	if got := countParagraph(s.Transcript(), "p1e"); got != 1 {
		t.Errorf("p1e revealed %d times after threshold, want 1", got)
	}
}

func dividerStory() *entity.Story {
	return &entity.Story{
		ID:    "test-story",
		Title: "测试",
		Characters: []entity.Character{
			{ID: "c1", Name: "Aria", Avatar: "http://example.com/a.png", InitialMessage: "你来了。"},
		},
		Chapters: []entity.Chapter{
			{
				ID:    "ch1",
				Title: "第一章",
				Paragraphs: []entity.Paragraph{
					{ID: "p1", Parts: []entity.Part{{Type: entity.PartNarration, Text: "雨夜。"}}},
				},
				ExtendedParagraphs: []entity.Paragraph{
					{ID: "p1e", Parts: []entity.Part{{Type: entity.PartNarration, Text: "雨停了。"}}},
				},
				DialogueTriggers: []entity.DialogueTrigger{
					{ParagraphID: "p1", NextParagraphs: []string{"p1e"}},
				},
			},
			{
				ID:    "ch2",
				Title: "第二章",
				Paragraphs: []entity.Paragraph{
					{ID: "p2", Parts: []entity.Part{{Type: entity.PartNarration, Text: "清晨。"}}},
				},
			},
		},
		Settings: entity.StorySettings{MinDialoguesPerChapter: 1},
	}
}

func TestDividerUnlocksNextChapter(t *testing.T) {
	s, sched := newTestSession(t, dividerStory())

	s.SubmitMessage("你好", false)
	sched.Advance(10 * time.Second)

	events := s.Transcript()
	if got := countEvents(events, entity.EventChapterDivider); got != 1 {
		t.Fatalf("divider count = %d, want 1", got)
	}
	unlocked := s.UnlockedChapters()
	if len(unlocked) != 2 || unlocked[0] != 0 || unlocked[1] != 1 {
		t.Fatalf("unlocked = %v, want [0 1]", unlocked)
	}

	// 读者可从目录进入被解锁的下一章
	if err := s.OpenChapter(1); err != nil {
		t.Fatalf("OpenChapter(1): %v", err)
	}
	if got := s.ChapterIndex(); got != 1 {
		t.Errorf("chapter index = %d, want 1", got)
	}
}

func TestChapterReinitCancelsPendingEffects(t *testing.T) {
	s, sched := newTestSession(t, dividerStory())

	// 揭示扩展段落后，分隔线尚在停顿中
	s.SubmitMessage("你好", false)
	sched.Advance(1500 * time.Millisecond)
	sched.Advance(time.Second)
	if got := countParagraph(s.Transcript(), "p1e"); got != 1 {
		t.Fatalf("p1e revealed %d times, want 1", got)
	}

	// 换章取消残留效果，旧章的分隔线不得写入新章记录
	if err := s.OpenChapter(0); err != nil {
		t.Fatalf("OpenChapter(0): %v", err)
	}
	before := len(s.Transcript())
	sched.Advance(time.Minute)

	events := s.Transcript()
	if len(events) != before {
		t.Errorf("transcript grew after reinit: %d -> %d", before, len(events))
	}
	if got := countEvents(events, entity.EventChapterDivider); got != 0 {
		t.Errorf("stale divider leaked into new chapter, count = %d", got)
	}
}

func TestPendingReplyCanceledByChapterSwitch(t *testing.T) {
	s, sched := newTestSession(t, dividerStory())

	// 打字延时未到即换章，旧章的回复不得出现
	s.SubmitMessage("你好", false)
	if err := s.OpenChapter(0); err != nil {
		t.Fatalf("OpenChapter(0): %v", err)
	}
	before := len(s.Transcript())
	sched.Advance(time.Minute)

	if got := len(s.Transcript()); got != before {
		t.Errorf("transcript grew after chapter switch: %d -> %d", before, got)
	}
}

func choiceEndingStory() *entity.Story {
	return &entity.Story{
		ID:    "test-story",
		Title: "测试",
		Characters: []entity.Character{
			{
				ID: "c1", Name: "Aria", Avatar: "http://example.com/a.png", InitialMessage: "你来了。",
				Intimacy: &entity.Intimacy{
					CurrentStatus: "初见",
					UpgradePath: []entity.IntimacyLevel{
						{Status: "熟悉", Description: "开始了解彼此", TriggerConditions: []entity.IntimacyCondition{{ChapterID: "ch1", Choice: "留下"}}},
						{Status: "亲密", TriggerConditions: []entity.IntimacyCondition{{ChapterID: "ch2", Choice: "拥抱"}}},
					},
				},
			},
		},
		Chapters: []entity.Chapter{
			{
				ID:          "ch1",
				Title:       "第一章",
				CharacterID: "c1",
				Paragraphs: []entity.Paragraph{
					{ID: "p1", Parts: []entity.Part{{Type: entity.PartNarration, Text: "雨夜。"}}},
				},
				ExtendedParagraphs: []entity.Paragraph{
					{ID: "p1e", Parts: []entity.Part{{Type: entity.PartNarration, Text: "雨停了。"}}},
				},
				DialogueTriggers: []entity.DialogueTrigger{{ParagraphID: "p1", NextParagraphs: []string{"p1e"}}},
				IsLastChapter:    true,
				Ending: &entity.Ending{
					Type: entity.EndingChoice,
					Options: []entity.EndingOption{
						{ID: "A", Text: "留下来", DialoguePrompt: "留下", NextChapter: "ch2"},
						{ID: "B", Text: "离开", DialoguePrompt: "离开", NextChapter: "ch2"},
					},
				},
			},
			{
				ID:    "ch2",
				Title: "第二章",
				Paragraphs: []entity.Paragraph{
					{ID: "p2", Parts: []entity.Part{{Type: entity.PartNarration, Text: "清晨。"}}},
				},
			},
		},
		Settings: entity.StorySettings{MinDialoguesPerChapter: 1},
	}
}

func reachEnding(t *testing.T, s *Session, sched *ManualScheduler) {
	t.Helper()
	if _, err := s.SubmitMessage("你好", false); err != nil {
		t.Fatalf("SubmitMessage: %v", err)
	}
	sched.Advance(10 * time.Second)
	if got := s.Phase(); got != PhaseAwaitingEnding {
		t.Fatalf("phase = %s, want %s", got, PhaseAwaitingEnding)
	}
}

func TestIntimacyUpgradeOnChoice(t *testing.T) {
	s, sched := newTestSession(t, choiceEndingStory())
	reachEnding(t, s, sched)

	if _, err := s.ChooseEnding("A"); err != nil {
		t.Fatalf("ChooseEnding: %v", err)
	}

	// 进入下一章前，通知事件应在记录中
	events := s.Transcript()
	found := false
	for _, ev := range events {
		if ev.Kind != entity.EventIntimacy {
			continue
		}
		found = true
		if ev.Intimacy.OldStatus != "初见" || ev.Intimacy.NewStatus != "熟悉" {
			t.Errorf("intimacy change = %+v, want 初见→熟悉", ev.Intimacy)
		}
		if ev.Intimacy.CharacterName != "Aria" {
			t.Errorf("character name = %q, want Aria", ev.Intimacy.CharacterName)
		}
	}
	if !found {
		t.Fatal("no intimacy event emitted")
	}
	if got := s.IntimacyStatus()["c1"]; got != "熟悉" {
		t.Errorf("intimacy status = %q, want 熟悉", got)
	}

	// 解锁并进入下一章
	sched.Advance(time.Second)
	if got := s.ChapterIndex(); got != 1 {
		t.Errorf("chapter index = %d, want 1", got)
	}
	unlocked := s.UnlockedChapters()
	if len(unlocked) != 2 || unlocked[0] != 0 || unlocked[1] != 1 {
		t.Errorf("unlocked = %v, want [0 1]", unlocked)
	}
}

func TestUnrelatedChoiceDoesNotRetrigger(t *testing.T) {
	s, sched := newTestSession(t, choiceEndingStory())
	reachEnding(t, s, sched)

	// 选项 B 的 dialoguePrompt 不命中任何条件
	if _, err := s.ChooseEnding("B"); err != nil {
		t.Fatalf("ChooseEnding: %v", err)
	}
	if got := countEvents(s.Transcript(), entity.EventIntimacy); got != 0 {
		t.Errorf("intimacy events = %d, want 0", got)
	}
	if got := s.IntimacyStatus()["c1"]; got != "初见" {
		t.Errorf("intimacy status = %q, want 初见", got)
	}
}

func TestChooseEndingOutsidePanel(t *testing.T) {
	s, _ := newTestSession(t, choiceEndingStory())

	if _, err := s.ChooseEnding("A"); err != errors.ErrEndingNotAvailable {
		t.Errorf("ChooseEnding before panel = %v, want ErrEndingNotAvailable", err)
	}
}

func TestOpenChapterGating(t *testing.T) {
	s, _ := newTestSession(t, choiceEndingStory())
	before := s.Transcript()

	if err := s.OpenChapter(1); err != errors.ErrChapterLocked {
		t.Fatalf("OpenChapter(1) = %v, want ErrChapterLocked", err)
	}
	after := s.Transcript()
	if len(after) != len(before) {
		t.Errorf("transcript changed on locked open: %d -> %d", len(before), len(after))
	}
	if got := s.ChapterIndex(); got != 0 {
		t.Errorf("chapter index = %d, want 0", got)
	}

	// 已解锁章节可重入
	if err := s.OpenChapter(0); err != nil {
		t.Errorf("OpenChapter(0) = %v, want nil", err)
	}
}

func TestQuoteParagraph(t *testing.T) {
	story := singleChapterStory()
	story.Chapters[0].Paragraphs[0].Parts = []entity.Part{
		{Type: entity.PartNarration, Text: "雨夜。"},
		{Type: entity.PartDialogue, Speaker: "Aria", Text: "你来了。"},
	}
	s, _ := newTestSession(t, story)

	ev, ok := s.QuoteParagraph("p1")
	if !ok {
		t.Fatal("QuoteParagraph(p1) not found")
	}
	if ev.Kind != entity.EventQuote || ev.Text != "雨夜。你来了。" {
		t.Errorf("quote event = %+v, want concatenated text", ev)
	}

	if _, ok := s.QuoteParagraph("missing"); ok {
		t.Error("QuoteParagraph(missing) should be a no-op")
	}
}

func TestClosedSessionRejectsOperations(t *testing.T) {
	s, sched := newTestSession(t, singleChapterStory())

	s.SubmitMessage("你好", false)
	s.Close()

	// 关闭后延时效果被取消，不产生残留写入
	before := len(s.Transcript())
	sched.Advance(time.Minute)
	if got := len(s.Transcript()); got != before {
		t.Errorf("transcript grew after close: %d -> %d", before, got)
	}

	if _, err := s.SubmitMessage("还在吗", false); err != errors.ErrSessionClosed {
		t.Errorf("SubmitMessage after close = %v, want ErrSessionClosed", err)
	}
	if err := s.OpenChapter(0); err != errors.ErrSessionClosed {
		t.Errorf("OpenChapter after close = %v, want ErrSessionClosed", err)
	}
}
