package client

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/mdp/qrterminal/v3"

	"tempmail/disposable/internal/domain"
)

// 收件箱列表中正文预览的长度
const previewLength = 100

// Renderer 展示控制器状态
type Renderer interface {
	Address(address string, degraded bool)
	Countdown(remaining time.Duration)
	Inbox(messages []domain.Message)
	Message(message *domain.Message)
	// QRCode 以二维码展示地址，便于手机扫码
	QRCode(address string)
	Notice(text string)
	Error(err error)
}

// FormatCountdown 以 m:ss 格式显示剩余时间
func FormatCountdown(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Round(time.Second) / time.Second)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

// TerminalRenderer 输出到终端的渲染器
type TerminalRenderer struct {
	mu  sync.Mutex
	w   io.Writer
	loc *time.Location
	// 上一次输出的倒计时，整分钟才换行打印，避免刷屏
	lastMinute int
}

// NewTerminalRenderer 创建终端渲染器，时间按 loc 显示（nil 为本地时区）
func NewTerminalRenderer(w io.Writer, loc *time.Location) *TerminalRenderer {
	if loc == nil {
		loc = time.Local
	}
	return &TerminalRenderer{w: w, loc: loc, lastMinute: -1}
}

func (r *TerminalRenderer) Address(address string, degraded bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lastMinute = -1
	if degraded {
		fmt.Fprintf(r.w, "\nAddress: %s (offline, inbox unavailable)\n", address)
		return
	}
	fmt.Fprintf(r.w, "\nAddress: %s\n", address)
}

func (r *TerminalRenderer) Countdown(remaining time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	minute := int(remaining / time.Minute)
	if remaining > 0 && minute == r.lastMinute {
		return
	}
	r.lastMinute = minute
	fmt.Fprintf(r.w, "Expires in %s\n", FormatCountdown(remaining))
}

func (r *TerminalRenderer) Inbox(messages []domain.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(messages) == 0 {
		fmt.Fprintln(r.w, "Your inbox is empty")
		return
	}

	fmt.Fprintf(r.w, "Inbox (%d)\n", len(messages))
	for i := range messages {
		m := &messages[i]
		marker := " "
		if !m.Read {
			marker = "*"
		}
		fmt.Fprintf(r.w, "%s %s  %s  %s\n", marker, m.ID, m.From, r.formatTime(m.Timestamp))
		fmt.Fprintf(r.w, "    %s\n", m.Subject)
		if preview := oneLine(m.Preview(previewLength)); preview != "" {
			fmt.Fprintf(r.w, "    %s...\n", preview)
		}
	}
}

func (r *TerminalRenderer) Message(message *domain.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()

	fmt.Fprintf(r.w, "\nSubject: %s\nFrom: %s\nTime: %s\n\n%s\n\n",
		message.Subject, message.From, r.formatTime(message.Timestamp), message.Body)
}

func (r *TerminalRenderer) QRCode(address string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	qrterminal.GenerateHalfBlock(address, qrterminal.L, r.w)
	fmt.Fprintln(r.w, address)
}

func (r *TerminalRenderer) Notice(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	fmt.Fprintln(r.w, text)
}

func (r *TerminalRenderer) Error(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	fmt.Fprintf(r.w, "error: %v\n", err)
}

func (r *TerminalRenderer) formatTime(t time.Time) string {
	return t.In(r.loc).Format("2006-01-02 15:04:05")
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
