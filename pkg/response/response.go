// Package response writes the JSON envelope every API endpoint answers with:
// {success, data, error{code,message}, meta{page,per_page,total,total_pages}}.
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appErrors "github.com/FernandoVinha/TheManager/pkg/errors"
	"github.com/FernandoVinha/TheManager/pkg/logger"
)

// Response is the envelope.
type Response struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorInfo `json:"error,omitempty"`
	Meta    *Meta      `json:"meta,omitempty"`
}

type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Meta describes one page of a list.
type Meta struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// NewMeta computes TotalPages from total and perPage.
func NewMeta(page, perPage int, total int64) *Meta {
	meta := &Meta{Page: page, PerPage: perPage, Total: int(total)}
	if perPage > 0 {
		meta.TotalPages = int((total + int64(perPage) - 1) / int64(perPage))
	}
	return meta
}

func Success(c *gin.Context, statusCode int, data any) {
	c.JSON(statusCode, Response{Success: true, Data: data})
}

// Paginated writes a 200 list response. A nil slice is still reported as data.
func Paginated(c *gin.Context, data any, page, perPage int, total int64) {
	c.JSON(http.StatusOK, Response{Success: true, Data: data, Meta: NewMeta(page, perPage, total)})
}

// Error maps err onto an AppError and writes it. Server errors are logged
// with their internal cause, which never reaches the client.
func Error(c *gin.Context, err error) {
	if err == nil {
		err = appErrors.ErrInternalServer
	}

	appErr := appErrors.FromError(err)
	status := appErr.StatusCode
	if status == 0 {
		status = http.StatusInternalServerError
	}
	if status >= http.StatusInternalServerError {
		logger.WithModule("http").Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.String("code", appErr.Code),
			zap.Error(err),
		)
	}

	c.AbortWithStatusJSON(status, Response{
		Error: &ErrorInfo{Code: appErr.Code, Message: appErr.Message},
	})
}
