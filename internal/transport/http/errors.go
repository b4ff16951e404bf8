package httptransport

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"tempmail/disposable/internal/domain"
	"tempmail/disposable/internal/middleware"
)

// 通用错误消息
const (
	// 请求相关
	MsgInvalidRequest = "Invalid request body"
	MsgMissingFields  = "Missing required fields: to, from"
	MsgBodyTooLarge   = "Request body too large"

	// 地址相关
	MsgGenerateFailed  = "Failed to generate email"
	MsgInboxNotFound   = "Email not found or expired"
	MsgAddressNotFound = "Email address not found"

	// 邮件相关
	MsgMessageReceived = "Email received"
	MsgMessageDeleted  = "Email deleted"
	MsgMessageNotFound = "Email not found"

	// 服务器
	MsgServerRunning = "Server is running"
	MsgInternalError = "Internal server error"
)

// errorMapping 业务错误到 HTTP 状态码的映射，按顺序匹配
var errorMapping = []struct {
	target error
	status int
	msg    string
}{
	{domain.ErrValidationMissing, http.StatusBadRequest, MsgMissingFields},
	{domain.ErrAddressNotFound, http.StatusNotFound, MsgAddressNotFound},
	{domain.ErrMessageNotFound, http.StatusNotFound, MsgMessageNotFound},
}

// GetErrorStatus 返回错误对应的状态码与消息，未知错误视为 500
func GetErrorStatus(err error) (int, string) {
	for _, m := range errorMapping {
		if errors.Is(err, m.target) {
			return m.status, m.msg
		}
	}
	return http.StatusInternalServerError, MsgInternalError
}

// respondError 根据错误类型写出响应，notFoundMsg 非空时覆盖 404 的默认消息
func respondError(c *gin.Context, err error, notFoundMsg string) {
	status, msg := GetErrorStatus(err)
	if domain.IsNotFound(err) && notFoundMsg != "" {
		msg = notFoundMsg
	}
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
	}
	Error(c, status, msg)
}

// respondBindError 处理请求体解析错误
func respondBindError(c *gin.Context, err error) {
	if middleware.IsBodyTooLarge(err) {
		RequestTooLarge(c, MsgBodyTooLarge)
		return
	}
	BadRequest(c, MsgInvalidRequest)
}
