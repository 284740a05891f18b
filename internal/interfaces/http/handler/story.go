package handler

import (
	"github.com/gin-gonic/gin"

	"sherry-reader/internal/application/validator"
	"sherry-reader/internal/domain/entity"
	"sherry-reader/internal/domain/repository"
	"sherry-reader/internal/interfaces/http/dto"
	"sherry-reader/pkg/metrics"
)

// StoryHandler 小说内容处理器
type StoryHandler struct {
	stories repository.StoryRepository
}

// NewStoryHandler 创建小说内容处理器
func NewStoryHandler(stories repository.StoryRepository) *StoryHandler {
	return &StoryHandler{stories: stories}
}

// List 小说列表
// @Summary 小说列表
// @Description 返回全部小说的列表项
// @Tags Novel
// @Produce json
// @Success 200 {object} dto.Response[dto.NovelListResponse]
// @Router /v1/novels [get]
func (h *StoryHandler) List(c *gin.Context) {
	summaries, err := h.stories.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	items := make([]dto.NovelListItem, 0, len(summaries))
	for _, s := range summaries {
		items = append(items, dto.FromStorySummary(s))
	}
	dto.Success(c, dto.NovelListResponse{Novels: items, Total: len(items)})
}

// Get 小说详情
// @Summary 小说详情
// @Description 按 id 返回完整小说文档
// @Tags Novel
// @Produce json
// @Param id path string true "小说 ID"
// @Success 200 {object} dto.Response[entity.Story]
// @Router /v1/novels/{id} [get]
func (h *StoryHandler) Get(c *gin.Context) {
	story, err := h.stories.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Success[*entity.Story](c, story)
}

// Validate 内容校验
// @Summary 内容校验
// @Description 对小说文档执行全量校验并返回错误与建议列表
// @Tags Novel
// @Produce json
// @Param id path string true "小说 ID"
// @Success 200 {object} dto.Response[dto.ValidationResponse]
// @Router /v1/novels/{id}/validate [post]
func (h *StoryHandler) Validate(c *gin.Context) {
	raw, err := h.stories.GetRaw(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	result := validator.Validate(raw)
	status := "pass"
	if !result.OK() {
		status = "fail"
	}
	metrics.ValidationTotal.WithLabelValues(status).Inc()
	metrics.ValidationIssues.WithLabelValues("error").Add(float64(len(result.Errors)))
	metrics.ValidationIssues.WithLabelValues("warning").Add(float64(len(result.Warnings)))

	dto.Success(c, dto.FromValidationResult(result))
}
