// Package entity 定义领域实体
package entity

// PartType 段落片段类型
type PartType string

const (
	PartNarration PartType = "narration"
	PartDialogue  PartType = "dialogue"
)

// SelfSpeaker 主角自述的 speaker 字面量，渲染时不带头像
const SelfSpeaker = "我"

// Story 小说文档，一次阅读会话的不可变输入
type Story struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Author      string        `json:"author"`
	Description string        `json:"description"`
	Summary     string        `json:"summary,omitempty"`
	Cover       string        `json:"cover,omitempty"`
	Rating      float64       `json:"rating,omitempty"`
	Status      string        `json:"status,omitempty"`
	Tags        []string      `json:"tags"`
	Characters  []Character   `json:"characters"`
	Chapters    []Chapter     `json:"chapters"`
	Settings    StorySettings `json:"settings"`
}

// StorySettings 全局阅读设置
type StorySettings struct {
	// MinDialoguesPerChapter 触发扩展剧情所需的最少对话轮数
	MinDialoguesPerChapter int `json:"minDialoguesPerChapter"`
}

// MinDialogues 返回生效的最少对话轮数，缺省或为 0 时按 1 处理
func (s StorySettings) MinDialogues() int {
	if s.MinDialoguesPerChapter <= 0 {
		return 1
	}
	return s.MinDialoguesPerChapter
}

// Character 角色定义
type Character struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Avatar         string    `json:"avatar,omitempty"`
	InitialMessage string    `json:"initialMessage,omitempty"`
	Intimacy       *Intimacy `json:"intimacy,omitempty"`
}

// Intimacy 角色亲密度定义
type Intimacy struct {
	CurrentStatus string          `json:"currentStatus"`
	UpgradePath   []IntimacyLevel `json:"upgradePath"`
}

// IntimacyLevel 亲密度升级路径上的一级
type IntimacyLevel struct {
	Status      string `json:"status"`
	Description string `json:"description,omitempty"`
	// TriggerConditions 任一条件命中即达到该级 (OR 语义)
	TriggerConditions []IntimacyCondition `json:"triggerConditions,omitempty"`
	// Condition 创作期的选项引用，仅供校验器做引用完整性检查
	Condition *ChoiceRef `json:"condition,omitempty"`
}

// IntimacyCondition 亲密度触发条件：在指定章节做出指定选择
type IntimacyCondition struct {
	ChapterID string `json:"chapterId"`
	Choice    string `json:"choice"`
}

// ChoiceRef 选项引用
type ChoiceRef struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// Chapter 章节
type Chapter struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	CharacterID    string `json:"characterId,omitempty"`
	InitialMessage string `json:"initialMessage,omitempty"`
	// Paragraphs 进入章节即展示的段落
	Paragraphs []Paragraph `json:"paragraphs"`
	// ExtendedParagraphs 由对话触发器揭示的扩展段落
	ExtendedParagraphs []Paragraph       `json:"extendedParagraphs,omitempty"`
	DialogueTriggers   []DialogueTrigger `json:"dialogueTriggers,omitempty"`
	Ending             *Ending           `json:"ending,omitempty"`
	IsLastChapter      bool              `json:"isLastChapter,omitempty"`
}

// Paragraph 可寻址的叙事单元
type Paragraph struct {
	ID      string   `json:"id"`
	Parts   []Part   `json:"parts"`
	Choices []Choice `json:"choices,omitempty"`
}

// Part 段落片段：旁白或对话
type Part struct {
	Type    PartType `json:"type"`
	Text    string   `json:"text"`
	Speaker string   `json:"speaker,omitempty"`
}

// Choice 段落内的分支选项
type Choice struct {
	ID             string   `json:"id"`
	Text           string   `json:"text,omitempty"`
	NextParagraphs []string `json:"nextParagraphs"`
}

// DialogueTrigger 对话触发器：累计对话数达标后揭示扩展段落
type DialogueTrigger struct {
	ParagraphID    string   `json:"paragraphId"`
	NextParagraphs []string `json:"nextParagraphs"`
}

// EndingType 章节结局类型
type EndingType string

const (
	// EndingFinished 故事完结
	EndingFinished EndingType = "finished"
	// EndingComplete 连载中（序列化为 complete）
	EndingComplete EndingType = "complete"
	// EndingChoice 剧情选择
	EndingChoice EndingType = "choice"
)

// Ending 章节结局
type Ending struct {
	Type    EndingType     `json:"type"`
	Text    string         `json:"text,omitempty"`
	Options []EndingOption `json:"options,omitempty"`
}

// EndingOption 结局分支选项
type EndingOption struct {
	ID             string `json:"id"`
	Text           string `json:"text"`
	DialoguePrompt string `json:"dialoguePrompt"`
	CharacterID    string `json:"characterId,omitempty"`
	NextChapter    string `json:"nextChapter,omitempty"`
}

// CharacterByID 按 id 查找角色
func (s *Story) CharacterByID(id string) *Character {
	for i := range s.Characters {
		if s.Characters[i].ID == id {
			return &s.Characters[i]
		}
	}
	return nil
}

// ChapterIndexByID 按 id 查找章节下标，未找到返回 -1
func (s *Story) ChapterIndexByID(id string) int {
	for i := range s.Chapters {
		if s.Chapters[i].ID == id {
			return i
		}
	}
	return -1
}

// AllParagraphs 返回 paragraphs ∪ extendedParagraphs
func (c *Chapter) AllParagraphs() []Paragraph {
	if len(c.ExtendedParagraphs) == 0 {
		return c.Paragraphs
	}
	all := make([]Paragraph, 0, len(c.Paragraphs)+len(c.ExtendedParagraphs))
	all = append(all, c.Paragraphs...)
	all = append(all, c.ExtendedParagraphs...)
	return all
}

// ExtendedByID 按 id 查找扩展段落
func (c *Chapter) ExtendedByID(id string) *Paragraph {
	for i := range c.ExtendedParagraphs {
		if c.ExtendedParagraphs[i].ID == id {
			return &c.ExtendedParagraphs[i]
		}
	}
	return nil
}

// OptionByID 按 id 查找结局选项
func (e *Ending) OptionByID(id string) *EndingOption {
	if e == nil {
		return nil
	}
	for i := range e.Options {
		if e.Options[i].ID == id {
			return &e.Options[i]
		}
	}
	return nil
}

// StorySummary 小说列表项，id 取自文件名
type StorySummary struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Author      string   `json:"author"`
	Cover       string   `json:"cover,omitempty"`
	Description string   `json:"description"`
	Tags        []string `json:"tags,omitempty"`
	Rating      float64  `json:"rating,omitempty"`
	Status      string   `json:"status,omitempty"`
}

// Summarize 生成列表项，描述优先取 summary 字段
func (s *Story) Summarize(id string) StorySummary {
	desc := s.Summary
	if desc == "" {
		desc = s.Description
	}
	return StorySummary{
		ID:          id,
		Title:       s.Title,
		Author:      s.Author,
		Cover:       s.Cover,
		Description: desc,
		Tags:        s.Tags,
		Rating:      s.Rating,
		Status:      s.Status,
	}
}
