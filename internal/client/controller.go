package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/atotto/clipboard"
	"go.uber.org/zap"

	"tempmail/disposable/internal/domain"
)

const (
	// DefaultPollInterval 收件箱轮询周期
	DefaultPollInterval = 10 * time.Second
	// DefaultOfflineTTL 降级模式下的本地倒计时
	DefaultOfflineTTL = 600 * time.Second

	defaultTick           = time.Second
	defaultRequestTimeout = 10 * time.Second

	copiedNotice = "Email copied to clipboard!"
)

// ErrNoAddress 尚未生成地址
var ErrNoAddress = errors.New("no address yet")

// Backend 控制器依赖的服务端接口，由 APIClient 实现
type Backend interface {
	Generate(ctx context.Context) (*GeneratedAddress, error)
	Inbox(ctx context.Context, address string) ([]domain.Message, error)
	Open(ctx context.Context, id string) (*domain.Message, error)
	Delete(ctx context.Context, id string) error
}

// EventSource 实时事件订阅，由 Watcher 实现
type EventSource interface {
	Watch(ctx context.Context, address string, handle func(Event)) error
}

// Options 控制器配置
type Options struct {
	PollInterval time.Duration
	OfflineTTL   time.Duration
	Tick         time.Duration
	// Fallback 生成降级模式下的本地地址
	Fallback func() string
	// Events 可选，设置后在线模式下订阅新邮件推送
	Events EventSource
	// Clipboard 写入系统剪贴板，默认使用 atotto/clipboard
	Clipboard func(text string) error
	Now       func() time.Time
	Logger    *zap.Logger
}

// State 当前地址状态的快照
type State struct {
	Address   string
	ExpiresAt time.Time
	Degraded  bool
}

// Controller 管理当前地址、倒计时与收件箱轮询。
//
// 每次生成新地址都会取消并重启倒计时与轮询任务。
type Controller struct {
	api    Backend
	render Renderer
	opts   Options
	logger *zap.Logger

	regenMu sync.Mutex // 串行化地址切换

	mu          sync.Mutex
	parent      context.Context
	state       State
	cancelTasks context.CancelFunc
}

// NewController 创建控制器
func NewController(api Backend, render Renderer, opts Options) *Controller {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.OfflineTTL <= 0 {
		opts.OfflineTTL = DefaultOfflineTTL
	}
	if opts.Tick <= 0 {
		opts.Tick = defaultTick
	}
	if opts.Clipboard == nil {
		opts.Clipboard = clipboard.WriteAll
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	return &Controller{
		api:    api,
		render: render,
		opts:   opts,
		logger: opts.Logger.Named("controller"),
		parent: context.Background(),
	}
}

// Start 请求第一个地址并启动后台任务，任务随 ctx 结束
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	c.parent = ctx
	c.mu.Unlock()

	return c.Regenerate()
}

// Stop 取消当前的后台任务
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancelTasks != nil {
		c.cancelTasks()
		c.cancelTasks = nil
	}
}

// State 返回当前地址状态
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Regenerate 申请新地址，服务端不可用时进入降级模式，从不返回致命错误
func (c *Controller) Regenerate() error {
	c.regenMu.Lock()
	defer c.regenMu.Unlock()

	return c.regenerateLocked()
}

// regenerateFrom 仅当当前地址仍为 address 时切换，避免多个任务重复触发
func (c *Controller) regenerateFrom(address string) {
	c.regenMu.Lock()
	defer c.regenMu.Unlock()

	if c.State().Address != address {
		return
	}
	if err := c.regenerateLocked(); err != nil && !errors.Is(err, context.Canceled) {
		c.logger.Warn("regenerate failed", zap.Error(err))
	}
}

func (c *Controller) regenerateLocked() error {
	c.Stop()

	c.mu.Lock()
	parent := c.parent
	c.mu.Unlock()
	if err := parent.Err(); err != nil {
		return err
	}

	state := c.requestAddress(parent)

	taskCtx, cancel := context.WithCancel(parent)
	c.mu.Lock()
	c.state = state
	c.cancelTasks = cancel
	c.mu.Unlock()

	c.render.Address(state.Address, state.Degraded)

	go c.runCountdown(taskCtx, state)

	if state.Degraded {
		return nil
	}

	go c.runPoll(taskCtx, state.Address)
	if c.opts.Events != nil {
		go c.runEvents(taskCtx, state.Address)
	}

	// 立即加载一次收件箱
	if err := c.refresh(taskCtx, state.Address); err != nil && !errors.Is(err, context.Canceled) {
		c.logger.Warn("initial inbox load failed", zap.Error(err))
	}
	return nil
}

// Refresh 立即拉取一次收件箱，降级模式下不做任何事
func (c *Controller) Refresh(ctx context.Context) error {
	state := c.State()
	if state.Degraded || state.Address == "" {
		return nil
	}
	return c.refresh(ctx, state.Address)
}

// Open 打开邮件（服务端将其标记为已读）并刷新收件箱
func (c *Controller) Open(ctx context.Context, id string) (*domain.Message, error) {
	reqCtx, cancel := context.WithTimeout(ctx, defaultRequestTimeout)
	defer cancel()

	message, err := c.api.Open(reqCtx, id)
	if err != nil {
		c.render.Error(err)
		return nil, err
	}
	c.render.Message(message)

	if err := c.Refresh(ctx); err != nil {
		c.logger.Warn("inbox refresh after open failed", zap.Error(err))
	}
	return message, nil
}

// Delete 删除邮件并刷新收件箱
func (c *Controller) Delete(ctx context.Context, id string) error {
	reqCtx, cancel := context.WithTimeout(ctx, defaultRequestTimeout)
	defer cancel()

	if err := c.api.Delete(reqCtx, id); err != nil {
		c.render.Error(err)
		return err
	}
	return c.Refresh(ctx)
}

// CopyAddress 将当前地址写入剪贴板，降级模式下同样可用
func (c *Controller) CopyAddress() error {
	address := c.State().Address
	if address == "" {
		return ErrNoAddress
	}
	if err := c.opts.Clipboard(address); err != nil {
		err = fmt.Errorf("copy to clipboard: %w", err)
		c.render.Error(err)
		return err
	}
	c.render.Notice(copiedNotice)
	return nil
}

// ShowQRCode 以二维码展示当前地址
func (c *Controller) ShowQRCode() error {
	address := c.State().Address
	if address == "" {
		return ErrNoAddress
	}
	c.render.QRCode(address)
	return nil
}

// requestAddress 向服务端申请地址，失败时退回本地地址
func (c *Controller) requestAddress(ctx context.Context) State {
	reqCtx, cancel := context.WithTimeout(ctx, defaultRequestTimeout)
	defer cancel()

	generated, err := c.api.Generate(reqCtx)
	if err == nil {
		c.logger.Info("address generated", zap.String("address", generated.Email))
		return State{Address: generated.Email, ExpiresAt: generated.ExpiresAt}
	}

	address := ""
	if c.opts.Fallback != nil {
		address = c.opts.Fallback()
	}
	c.logger.Warn("server unavailable, using local address",
		zap.String("address", address),
		zap.Error(err))
	return State{
		Address:   address,
		ExpiresAt: c.opts.Now().Add(c.opts.OfflineTTL),
		Degraded:  true,
	}
}

// refresh 拉取收件箱；地址已失效时切换新地址
func (c *Controller) refresh(ctx context.Context, address string) error {
	reqCtx, cancel := context.WithTimeout(ctx, defaultRequestTimeout)
	defer cancel()

	messages, err := c.api.Inbox(reqCtx, address)
	if c.State().Address != address {
		// 请求期间地址已切换，丢弃结果
		return nil
	}
	if errors.Is(err, ErrNotFound) {
		c.logger.Info("address expired on server, regenerating", zap.String("address", address))
		go c.regenerateFrom(address)
		return nil
	}
	if err != nil {
		c.render.Error(err)
		return err
	}

	c.render.Inbox(messages)
	return nil
}

func (c *Controller) runCountdown(ctx context.Context, state State) {
	ticker := time.NewTicker(c.opts.Tick)
	defer ticker.Stop()

	address := domain.Address{Email: state.Address, ExpiresAt: state.ExpiresAt}
	for {
		remaining := address.Remaining(c.opts.Now())
		if remaining == 0 {
			c.render.Countdown(0)
			c.logger.Info("address expired locally, regenerating", zap.String("address", state.Address))
			go c.regenerateFrom(state.Address)
			return
		}
		c.render.Countdown(remaining)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (c *Controller) runPoll(ctx context.Context, address string) {
	ticker := time.NewTicker(c.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.refresh(ctx, address); err != nil && ctx.Err() == nil {
				c.logger.Warn("inbox poll failed", zap.Error(err))
			}
		}
	}
}

func (c *Controller) runEvents(ctx context.Context, address string) {
	err := c.opts.Events.Watch(ctx, address, func(event Event) {
		switch event.Type {
		case EventNewMail:
			if err := c.refresh(ctx, address); err != nil && ctx.Err() == nil {
				c.logger.Warn("inbox refresh on push failed", zap.Error(err))
			}
		case EventAddressExpired:
			go c.regenerateFrom(address)
		}
	})
	if err != nil && ctx.Err() == nil {
		// 推送不可用时仍依赖轮询
		c.logger.Warn("event stream closed", zap.String("address", address), zap.Error(err))
	}
}
