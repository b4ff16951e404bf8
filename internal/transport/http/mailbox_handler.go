package httptransport

import (
	"github.com/gin-gonic/gin"
)

type generateEmailResponse struct {
	Success   bool   `json:"success"`
	Email     string `json:"email"`
	ExpiresAt int64  `json:"expiresAt"` // 毫秒时间戳
}

type inboxResponse struct {
	Success bool              `json:"success"`
	Emails  []messageResponse `json:"emails"`
}

// generateEmail godoc
// @Summary 生成临时邮箱
// @Description 生成一个新的临时地址，固定时间后过期
// @Tags Mailboxes
// @Produce json
// @Success 200 {object} generateEmailResponse
// @Failure 500 {object} Response
// @Router /generate-email [post]
func (h *Handler) generateEmail(c *gin.Context) {
	address, err := h.mailboxes.Create()
	if err != nil {
		_ = c.Error(err)
		InternalError(c, MsgGenerateFailed)
		return
	}

	Success(c, generateEmailResponse{
		Success:   true,
		Email:     address.Email,
		ExpiresAt: address.ExpiresAt.UnixMilli(),
	})
}

// getInbox godoc
// @Summary 获取收件箱
// @Description 按到达顺序返回地址收到的全部邮件
// @Tags Mailboxes
// @Produce json
// @Param email path string true "邮箱地址"
// @Success 200 {object} inboxResponse
// @Failure 404 {object} Response
// @Router /inbox/{email} [get]
func (h *Handler) getInbox(c *gin.Context) {
	messages, err := h.mailboxes.Inbox(c.Param("email"))
	if err != nil {
		respondError(c, err, MsgInboxNotFound)
		return
	}

	emails := make([]messageResponse, 0, len(messages))
	for i := range messages {
		emails = append(emails, toMessageResponse(&messages[i]))
	}

	Success(c, inboxResponse{
		Success: true,
		Emails:  emails,
	})
}
