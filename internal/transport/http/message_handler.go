package httptransport

import (
	"time"

	"github.com/gin-gonic/gin"

	"tempmail/disposable/internal/domain"
)

type messageResponse struct {
	ID        string `json:"id"`
	From      string `json:"from"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
	Timestamp int64  `json:"timestamp"` // 毫秒时间戳
	Read      bool   `json:"read"`
}

type webhookRequest struct {
	To        string `json:"to"`
	From      string `json:"from"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
	Timestamp *int64 `json:"timestamp"` // 毫秒时间戳，缺省为到达时间
}

type webhookResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	ID      string `json:"id"`
}

type emailResponse struct {
	Success bool            `json:"success"`
	Email   messageResponse `json:"email"`
}

type messageActionResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func toMessageResponse(message *domain.Message) messageResponse {
	return messageResponse{
		ID:        message.ID,
		From:      message.From,
		Subject:   message.Subject,
		Body:      message.Body,
		Timestamp: message.Timestamp.UnixMilli(),
		Read:      message.Read,
	}
}

// receiveEmail godoc
// @Summary 接收邮件
// @Description 外部发件方投递邮件的唯一入口
// @Tags Messages
// @Accept json
// @Produce json
// @Param request body webhookRequest true "邮件内容"
// @Success 200 {object} webhookResponse
// @Failure 400 {object} Response
// @Failure 404 {object} Response
// @Failure 413 {object} Response
// @Router /webhook/email [post]
func (h *Handler) receiveEmail(c *gin.Context) {
	var req webhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	input := domain.InboundMessage{
		To:      req.To,
		From:    req.From,
		Subject: req.Subject,
		Body:    req.Body,
	}
	if req.Timestamp != nil && *req.Timestamp > 0 {
		input.Timestamp = time.UnixMilli(*req.Timestamp)
	}

	message, err := h.messages.Ingest(input)
	if err != nil {
		respondError(c, err, MsgAddressNotFound)
		return
	}

	Success(c, webhookResponse{
		Success: true,
		Message: MsgMessageReceived,
		ID:      message.ID,
	})
}

// getEmail godoc
// @Summary 获取邮件详情
// @Description 返回邮件内容并标记为已读
// @Tags Messages
// @Produce json
// @Param id path string true "邮件ID"
// @Success 200 {object} emailResponse
// @Failure 404 {object} Response
// @Router /email/{id} [get]
func (h *Handler) getEmail(c *gin.Context) {
	message, err := h.messages.Open(c.Param("id"))
	if err != nil {
		respondError(c, err, MsgMessageNotFound)
		return
	}

	Success(c, emailResponse{
		Success: true,
		Email:   toMessageResponse(message),
	})
}

// deleteEmail godoc
// @Summary 删除邮件
// @Tags Messages
// @Produce json
// @Param id path string true "邮件ID"
// @Success 200 {object} messageActionResponse
// @Failure 404 {object} Response
// @Router /email/{id} [delete]
func (h *Handler) deleteEmail(c *gin.Context) {
	if err := h.messages.Delete(c.Param("id")); err != nil {
		respondError(c, err, MsgMessageNotFound)
		return
	}

	Success(c, messageActionResponse{
		Success: true,
		Message: MsgMessageDeleted,
	})
}
