package dto

import (
	"sherry-reader/internal/application/validator"
	"sherry-reader/internal/domain/entity"
)

// NovelListItem 小说列表项
type NovelListItem struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Author      string   `json:"author"`
	Cover       string   `json:"cover,omitempty"`
	Description string   `json:"description"`
	Tags        []string `json:"tags,omitempty"`
	Rating      float64  `json:"rating,omitempty"`
	Status      string   `json:"status,omitempty"`
}

// FromStorySummary 转换列表项
func FromStorySummary(s entity.StorySummary) NovelListItem {
	return NovelListItem{
		ID:          s.ID,
		Title:       s.Title,
		Author:      s.Author,
		Cover:       s.Cover,
		Description: s.Description,
		Tags:        s.Tags,
		Rating:      s.Rating,
		Status:      s.Status,
	}
}

// NovelListResponse 小说列表响应
type NovelListResponse struct {
	Novels []NovelListItem `json:"novels"`
	Total  int             `json:"total"`
}

// ValidationResponse 校验结果响应
type ValidationResponse struct {
	Valid    bool              `json:"valid"`
	Errors   []validator.Issue `json:"errors"`
	Warnings []validator.Issue `json:"warnings"`
}

// FromValidationResult 转换校验结果
func FromValidationResult(r *validator.Result) ValidationResponse {
	resp := ValidationResponse{
		Valid:    r.OK(),
		Errors:   r.Errors,
		Warnings: r.Warnings,
	}
	if resp.Errors == nil {
		resp.Errors = []validator.Issue{}
	}
	if resp.Warnings == nil {
		resp.Warnings = []validator.Issue{}
	}
	return resp
}
