package dto

import (
	"sherry-reader/internal/application/reader"
	"sherry-reader/internal/domain/entity"
)

// CreateSessionRequest 创建阅读会话
type CreateSessionRequest struct {
	StoryID string `json:"story_id" binding:"required"`
}

// MessageRequest 读者消息
type MessageRequest struct {
	Text string `json:"text" binding:"required"`
	// AuthorMode 作者模式：消息作为旁白入记录，不推进剧情
	AuthorMode bool `json:"author_mode"`
}

// ChooseEndingRequest 结局选项
type ChooseEndingRequest struct {
	OptionID string `json:"option_id" binding:"required"`
}

// OpenChapterRequest 进入章节
type OpenChapterRequest struct {
	Index int `json:"index"`
}

// QuoteRequest 引用段落
type QuoteRequest struct {
	ParagraphID string `json:"paragraph_id" binding:"required"`
}

// SessionResponse 会话状态
type SessionResponse struct {
	SessionID        string            `json:"session_id"`
	StoryID          string            `json:"story_id"`
	Phase            string            `json:"phase"`
	ChapterIndex     int               `json:"chapter_index"`
	UnlockedChapters []int             `json:"unlocked_chapters"`
	Intimacy         map[string]string `json:"intimacy"`
}

// FromSession 转换会话状态
func FromSession(s *reader.Session) SessionResponse {
	return SessionResponse{
		SessionID:        s.ID,
		StoryID:          s.StoryID,
		Phase:            string(s.Phase()),
		ChapterIndex:     s.ChapterIndex(),
		UnlockedChapters: s.UnlockedChapters(),
		Intimacy:         s.IntimacyStatus(),
	}
}

// EventResponse 新追加的阅读记录事件
type EventResponse struct {
	Event entity.TranscriptEvent `json:"event"`
}

// TranscriptResponse 阅读记录
type TranscriptResponse struct {
	SessionID string                   `json:"session_id"`
	Phase     string                   `json:"phase"`
	Events    []entity.TranscriptEvent `json:"events"`
}
