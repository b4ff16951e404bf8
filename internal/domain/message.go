package domain

import "time"

// Message 表示投递到某个临时地址收件箱中的一封邮件。
type Message struct {
	ID        string    `json:"id"`
	From      string    `json:"from"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	Timestamp time.Time `json:"timestamp"`
	Read      bool      `json:"read"`
}

// Preview 返回正文前 n 个字符，用于列表展示。
func (m *Message) Preview(n int) string {
	runes := []rune(m.Body)
	if len(runes) <= n {
		return m.Body
	}
	return string(runes[:n])
}
