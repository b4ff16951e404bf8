package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"tempmail/disposable/internal/domain"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	hubPingPeriod  = 30 * time.Second
	sendBufferSize = 256
	previewLength  = 100
)

// AddressLookup 地址查询接口
type AddressLookup interface {
	GetAddress(address string) (*domain.Address, error)
}

// upgraderFactory 创建带有 Origin 验证的 WebSocket 升级器
func upgraderFactory(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			for _, origin := range allowedOrigins {
				if origin == "*" {
					return true
				}
			}

			requestOrigin := r.Header.Get("Origin")
			if requestOrigin == "" {
				return true
			}

			for _, origin := range allowedOrigins {
				if requestOrigin == origin {
					return true
				}
			}

			return false
		},
	}
}

// MessageType 定义WebSocket消息类型
type MessageType string

const (
	MessageTypeNewMail        MessageType = "new_mail"
	MessageTypeAddressExpired MessageType = "address_expired"
	MessageTypePing           MessageType = "ping"
	MessageTypePong           MessageType = "pong"
	MessageTypeSubscribed     MessageType = "subscribed"
	MessageTypeError          MessageType = "error"
)

// Message 定义WebSocket消息结构
type Message struct {
	Type      MessageType     `json:"type"`
	Address   string          `json:"address,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Error     string          `json:"error,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// NewMailData 新邮件通知数据
type NewMailData struct {
	ID        string `json:"id"`
	From      string `json:"from"`
	Subject   string `json:"subject"`
	Preview   string `json:"preview"`
	Timestamp int64  `json:"timestamp"`
}

// Client 代表一个WebSocket客户端连接，每个连接只订阅一个地址
type Client struct {
	ID      string
	Address string
	conn    *websocket.Conn
	send    chan []byte
	hub     *Hub
	log     *zap.Logger
}

// Hub 管理所有WebSocket连接
type Hub struct {
	clients        map[string]*Client            // clientID -> Client
	addresses      map[string]map[string]*Client // address -> clientID -> Client
	register       chan *Client
	unregister     chan *Client
	broadcast      chan *BroadcastMessage
	done           chan struct{}
	mu             sync.RWMutex
	log            *zap.Logger
	allowedOrigins []string
	lookup         AddressLookup
	onCount        func(int)
}

// BroadcastMessage 广播消息
type BroadcastMessage struct {
	Address string
	Message *Message
	// Close 为 true 时，发送后断开该地址的全部订阅
	Close bool
}

// NewHub 创建WebSocket Hub
//
// 参数:
//   - allowedOrigins: 允许的 Origin 列表，为空时允许所有来源
//   - lookup: 地址查询接口，连接前确认地址存在且未过期
//   - log: 日志
func NewHub(allowedOrigins []string, lookup AddressLookup, log *zap.Logger) *Hub {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}

	return &Hub{
		clients:        make(map[string]*Client),
		addresses:      make(map[string]map[string]*Client),
		register:       make(chan *Client),
		unregister:     make(chan *Client),
		broadcast:      make(chan *BroadcastMessage, sendBufferSize),
		done:           make(chan struct{}),
		log:            log.Named("websocket"),
		allowedOrigins: allowedOrigins,
		lookup:         lookup,
	}
}

// SetClientCounter 设置连接数变化回调，需在 Run 之前调用
func (h *Hub) SetClientCounter(fn func(int)) {
	h.onCount = fn
}

// Run 启动Hub
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(hubPingPeriod)
	defer ticker.Stop()
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.log.Info("websocket hub stopped")
			h.closeAllClients()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			if h.addresses[client.Address] == nil {
				h.addresses[client.Address] = make(map[string]*Client)
			}
			h.addresses[client.Address][client.ID] = client
			count := len(h.clients)
			h.mu.Unlock()

			h.log.Info("client registered",
				zap.String("id", client.ID),
				zap.String("address", client.Address))
			client.sendMessage(&Message{
				Type:      MessageTypeSubscribed,
				Address:   client.Address,
				Timestamp: time.Now().UnixMilli(),
			})
			h.reportCount(count)

		case client := <-h.unregister:
			h.mu.Lock()
			removed := h.removeLocked(client)
			count := len(h.clients)
			h.mu.Unlock()
			if removed {
				h.log.Info("client unregistered", zap.String("id", client.ID))
				h.reportCount(count)
			}

		case msg := <-h.broadcast:
			h.broadcastToAddress(msg)

		case <-ticker.C:
			h.pingAllClients()
		}
	}
}

// ClientCount 返回当前连接数
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// NotifyNewMail 通知新邮件
func (h *Hub) NotifyNewMail(address string, message *domain.Message) {
	data, err := json.Marshal(NewMailData{
		ID:        message.ID,
		From:      message.From,
		Subject:   message.Subject,
		Preview:   message.Preview(previewLength),
		Timestamp: message.Timestamp.UnixMilli(),
	})
	if err != nil {
		h.log.Error("failed to marshal new mail data", zap.Error(err))
		return
	}

	h.log.Debug("broadcasting new mail notification",
		zap.String("address", address),
		zap.String("from", message.From),
		zap.String("subject", message.Subject))

	h.enqueue(&BroadcastMessage{
		Address: address,
		Message: &Message{
			Type:      MessageTypeNewMail,
			Address:   address,
			Data:      data,
			Timestamp: time.Now().UnixMilli(),
		},
	})
}

// NotifyAddressExpired 通知地址过期，随后断开订阅者
func (h *Hub) NotifyAddressExpired(address string) {
	h.enqueue(&BroadcastMessage{
		Address: address,
		Message: &Message{
			Type:      MessageTypeAddressExpired,
			Address:   address,
			Timestamp: time.Now().UnixMilli(),
		},
		Close: true,
	})
}

// enqueue 非阻塞入队，Hub 停止或队列已满时丢弃
func (h *Hub) enqueue(msg *BroadcastMessage) {
	select {
	case <-h.done:
		return
	default:
	}

	select {
	case h.broadcast <- msg:
	default:
		h.log.Warn("broadcast queue full, dropping notification",
			zap.String("address", msg.Address),
			zap.String("type", string(msg.Message.Type)))
	}
}

// broadcastToAddress 向订阅特定地址的客户端广播消息
func (h *Hub) broadcastToAddress(msg *BroadcastMessage) {
	data, err := json.Marshal(msg.Message)
	if err != nil {
		h.log.Error("failed to marshal message", zap.Error(err))
		return
	}

	h.mu.Lock()
	clients := h.addresses[msg.Address]
	for _, client := range clients {
		select {
		case client.send <- data:
		default:
			h.log.Warn("client channel blocked, skipping", zap.String("clientID", client.ID))
		}
	}

	if !msg.Close || len(clients) == 0 {
		h.mu.Unlock()
		return
	}
	for _, client := range clients {
		h.removeLocked(client)
	}
	count := len(h.clients)
	h.mu.Unlock()

	h.reportCount(count)
}

// removeLocked 移除客户端并关闭其发送通道，调用方需持有写锁
func (h *Hub) removeLocked(client *Client) bool {
	if _, ok := h.clients[client.ID]; !ok {
		return false
	}
	if clients, exists := h.addresses[client.Address]; exists {
		delete(clients, client.ID)
		if len(clients) == 0 {
			delete(h.addresses, client.Address)
		}
	}
	delete(h.clients, client.ID)
	close(client.send)
	return true
}

// pingAllClients 向所有客户端发送ping
func (h *Hub) pingAllClients() {
	data, err := json.Marshal(&Message{
		Type:      MessageTypePing,
		Timestamp: time.Now().UnixMilli(),
	})
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.clients {
		select {
		case client.send <- data:
		default:
		}
	}
}

// closeAllClients 关闭所有客户端连接
func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, client := range h.clients {
		close(client.send)
	}
	h.clients = make(map[string]*Client)
	h.addresses = make(map[string]map[string]*Client)
	h.reportCount(0)
}

func (h *Hub) reportCount(count int) {
	if h.onCount != nil {
		h.onCount(count)
	}
}

// HandleWebSocket 处理WebSocket连接
// @Summary 订阅实时推送
// @Description 升级为 WebSocket 连接并订阅单个地址的 new_mail、address_expired 事件
// @Tags Realtime
// @Param address query string true "邮箱地址"
// @Success 101 {string} string "Switching Protocols"
// @Failure 400 {object} httptransport.Response
// @Failure 404 {object} httptransport.Response
// @Router /ws [get]
func HandleWebSocket(hub *Hub) gin.HandlerFunc {
	upgrader := upgraderFactory(hub.allowedOrigins)

	return func(c *gin.Context) {
		address := domain.NormalizeAddress(c.Query("address"))
		if address == "" {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "address is required"})
			return
		}

		if _, err := hub.lookup.GetAddress(address); err != nil {
			if !domain.IsNotFound(err) {
				hub.log.Error("websocket address lookup failed",
					zap.String("address", address),
					zap.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Internal server error"})
				return
			}
			hub.log.Debug("websocket subscription rejected",
				zap.String("address", address),
				zap.Error(err))
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Email address not found"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			hub.log.Error("failed to upgrade connection",
				zap.Error(err),
				zap.String("origin", c.Request.Header.Get("Origin")),
				zap.String("remote_addr", c.ClientIP()))
			return
		}

		client := &Client{
			ID:      uuid.NewString(),
			Address: address,
			conn:    conn,
			hub:     hub,
			send:    make(chan []byte, sendBufferSize),
			log:     hub.log,
		}

		select {
		case hub.register <- client:
		case <-hub.done:
			conn.Close()
			return
		}

		go client.writePump()
		go client.readPump()
	}
}

// readPump 处理客户端消息
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg Message
		err := c.conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Error("websocket error", zap.Error(err))
			}
			break
		}

		c.handleMessage(&msg)
	}
}

// writePump 发送消息给客户端
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage 处理接收到的消息
func (c *Client) handleMessage(msg *Message) {
	switch msg.Type {
	case MessageTypePing:
		c.sendMessage(&Message{Type: MessageTypePong, Timestamp: time.Now().UnixMilli()})
	case MessageTypePong:
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
	default:
		c.log.Warn("unknown message type", zap.String("type", string(msg.Type)))
		c.sendMessage(&Message{
			Type:      MessageTypeError,
			Error:     "unsupported message type",
			Timestamp: time.Now().UnixMilli(),
		})
	}
}

// sendMessage 发送消息给客户端
func (c *Client) sendMessage(msg *Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.log.Error("failed to marshal message", zap.Error(err))
		return
	}

	defer func() {
		// 发送通道可能已被 Hub 关闭
		_ = recover()
	}()

	select {
	case c.send <- data:
	default:
		c.log.Warn("client channel blocked", zap.String("clientID", c.ID))
	}
}
