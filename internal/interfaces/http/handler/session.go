package handler

import (
	"github.com/gin-gonic/gin"

	"sherry-reader/internal/application/reader"
	"sherry-reader/internal/interfaces/http/dto"
	"sherry-reader/pkg/errors"
)

// SessionHandler 阅读会话处理器
type SessionHandler struct {
	sessions *reader.Manager
}

// NewSessionHandler 创建阅读会话处理器
func NewSessionHandler(sessions *reader.Manager) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// Create 创建阅读会话
// @Summary 创建阅读会话
// @Description 加载小说并进入第 0 章
// @Tags Session
// @Accept json
// @Produce json
// @Success 201 {object} dto.Response[dto.SessionResponse]
// @Router /v1/sessions [post]
func (h *SessionHandler) Create(c *gin.Context) {
	var req dto.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.ErrInvalidParam.WithDetail(err.Error()))
		return
	}

	session, err := h.sessions.Create(c.Request.Context(), req.StoryID)
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Created(c, dto.FromSession(session))
}

// Get 会话状态
// @Summary 会话状态
// @Tags Session
// @Produce json
// @Param id path string true "会话 ID"
// @Success 200 {object} dto.Response[dto.SessionResponse]
// @Router /v1/sessions/{id} [get]
func (h *SessionHandler) Get(c *gin.Context) {
	session, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Success(c, dto.FromSession(session))
}

// Message 读者消息
// @Summary 读者消息
// @Description 追加读者消息；非作者模式下推进对话计数并可能触发扩展剧情
// @Tags Session
// @Accept json
// @Produce json
// @Param id path string true "会话 ID"
// @Success 200 {object} dto.Response[dto.EventResponse]
// @Router /v1/sessions/{id}/messages [post]
func (h *SessionHandler) Message(c *gin.Context) {
	var req dto.MessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.ErrInvalidParam.WithDetail(err.Error()))
		return
	}

	session, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	ev, err := session.SubmitMessage(req.Text, req.AuthorMode)
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Success(c, dto.EventResponse{Event: ev})
}

// ChooseEnding 结局选择
// @Summary 结局选择
// @Tags Session
// @Accept json
// @Produce json
// @Param id path string true "会话 ID"
// @Success 200 {object} dto.Response[dto.EventResponse]
// @Router /v1/sessions/{id}/ending [post]
func (h *SessionHandler) ChooseEnding(c *gin.Context) {
	var req dto.ChooseEndingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.ErrInvalidParam.WithDetail(err.Error()))
		return
	}

	session, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	ev, err := session.ChooseEnding(req.OptionID)
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Success(c, dto.EventResponse{Event: ev})
}

// OpenChapter 进入章节
// @Summary 进入章节
// @Description 进入章节目录中已解锁的章节
// @Tags Session
// @Accept json
// @Produce json
// @Param id path string true "会话 ID"
// @Success 200 {object} dto.Response[dto.SessionResponse]
// @Router /v1/sessions/{id}/chapter [post]
func (h *SessionHandler) OpenChapter(c *gin.Context) {
	var req dto.OpenChapterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.ErrInvalidParam.WithDetail(err.Error()))
		return
	}

	session, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	if err := session.OpenChapter(req.Index); err != nil {
		respondError(c, err)
		return
	}
	dto.Success(c, dto.FromSession(session))
}

// Quote 引用段落
// @Summary 引用段落
// @Tags Session
// @Accept json
// @Produce json
// @Param id path string true "会话 ID"
// @Success 200 {object} dto.Response[dto.EventResponse]
// @Router /v1/sessions/{id}/quote [post]
func (h *SessionHandler) Quote(c *gin.Context) {
	var req dto.QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.ErrInvalidParam.WithDetail(err.Error()))
		return
	}

	session, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	ev, ok := session.QuoteParagraph(req.ParagraphID)
	if !ok {
		respondError(c, errors.ErrNotFound.WithDetail("段落不在当前章节: "+req.ParagraphID))
		return
	}
	dto.Success(c, dto.EventResponse{Event: ev})
}

// Transcript 阅读记录
// @Summary 阅读记录
// @Tags Session
// @Produce json
// @Param id path string true "会话 ID"
// @Success 200 {object} dto.Response[dto.TranscriptResponse]
// @Router /v1/sessions/{id}/transcript [get]
func (h *SessionHandler) Transcript(c *gin.Context) {
	session, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Success(c, dto.TranscriptResponse{
		SessionID: session.ID,
		Phase:     string(session.Phase()),
		Events:    session.Transcript(),
	})
}

// Close 关闭会话
// @Summary 关闭会话
// @Description 关闭会话并丢弃全部会话状态
// @Tags Session
// @Param id path string true "会话 ID"
// @Success 204
// @Router /v1/sessions/{id} [delete]
func (h *SessionHandler) Close(c *gin.Context) {
	if err := h.sessions.Close(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	dto.NoContent(c)
}
