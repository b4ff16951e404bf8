package httptransport

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response 失败响应结构，成功响应由各接口的专用结构体携带 success 字段
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// Success 成功响应（200）
func Success(c *gin.Context, payload interface{}) {
	c.JSON(http.StatusOK, payload)
}

// BadRequest 请求参数错误（400）
func BadRequest(c *gin.Context, msg string) {
	Error(c, http.StatusBadRequest, msg)
}

// NotFound 资源不存在错误（404）
func NotFound(c *gin.Context, msg string) {
	Error(c, http.StatusNotFound, msg)
}

// RequestTooLarge 请求体过大（413）
func RequestTooLarge(c *gin.Context, msg string) {
	Error(c, http.StatusRequestEntityTooLarge, msg)
}

// InternalError 服务器内部错误（500）
func InternalError(c *gin.Context, msg string) {
	Error(c, http.StatusInternalServerError, msg)
}

// Error 通用错误响应
func Error(c *gin.Context, httpCode int, msg string) {
	c.JSON(httpCode, Response{
		Success: false,
		Message: msg,
	})
}
