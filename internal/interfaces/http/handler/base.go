// Package handler 提供 HTTP 请求处理器
package handler

import (
	"github.com/gin-gonic/gin"

	"sherry-reader/internal/interfaces/http/dto"
	"sherry-reader/pkg/errors"
	"sherry-reader/pkg/logger"
)

// respondError 按 AppError 的错误码映射 HTTP 状态并输出统一错误结构
func respondError(c *gin.Context, err error) {
	appErr := errors.AsAppError(err)
	if appErr.HTTPStatus >= 500 {
		logger.Error(c.Request.Context(), "请求处理失败", err,
			"path", c.Request.URL.Path,
			"method", c.Request.Method,
		)
	}

	dto.ErrorWithDetail(c, appErr.HTTPStatus, appErr.Message, &dto.ErrorDetail{
		ErrorCode: string(appErr.Code),
		Details:   appErr.Detail,
	})
}
