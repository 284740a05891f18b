// Package entity 定义领域实体
package entity

import (
	"time"
)

// EventKind 阅读记录事件类型
type EventKind string

const (
	// EventTitle 章节标题
	EventTitle EventKind = "title"
	// EventParagraph 段落（旁白/对话片段的有序集合）
	EventParagraph EventKind = "paragraph"
	// EventCharacter 角色消息（开场白或模拟回复）
	EventCharacter EventKind = "character"
	// EventUser 读者消息
	EventUser EventKind = "user"
	// EventAuthor 作者模式旁白
	EventAuthor EventKind = "author"
	// EventQuote 段落引用
	EventQuote EventKind = "quote"
	// EventChapterDivider 章节分隔线
	EventChapterDivider EventKind = "chapter-divider"
	// EventEnding 结局面板
	EventEnding EventKind = "ending"
	// EventIntimacy 亲密度变化通知
	EventIntimacy EventKind = "intimacy"
)

// ChapterDividerText 章节分隔线文案
const ChapterDividerText = "本章结束"

// TranscriptEvent 阅读记录中的一条事件，由表现层按类型渲染
type TranscriptEvent struct {
	ID   string    `json:"id"`
	Kind EventKind `json:"kind"`
	Text string    `json:"text,omitempty"`
	// Parts 仅 paragraph 事件携带
	Parts []Part `json:"parts,omitempty"`
	// ParagraphID 仅 paragraph / quote 事件携带
	ParagraphID string `json:"paragraphId,omitempty"`
	// Extended 标记该段落来自扩展剧情
	Extended bool `json:"extended,omitempty"`
	// Speaker 角色消息的角色 id
	Speaker string `json:"speaker,omitempty"`
	// Ending 仅 ending 事件携带
	Ending *Ending `json:"ending,omitempty"`
	// Intimacy 仅 intimacy 事件携带
	Intimacy  *IntimacyChange `json:"intimacy,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// IntimacyChange 亲密度变化通知
type IntimacyChange struct {
	CharacterName string `json:"character_name"`
	OldStatus     string `json:"old_status"`
	NewStatus     string `json:"new_status"`
	Description   string `json:"description,omitempty"`
}
