package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
)

// 服务端推送的事件类型
const (
	EventNewMail        = "new_mail"
	EventAddressExpired = "address_expired"
	EventPing           = "ping"
	EventSubscribed     = "subscribed"
)

// Event 服务端推送的事件
type Event struct {
	Type      string          `json:"type"`
	Address   string          `json:"address,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Error     string          `json:"error,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// Watcher 订阅单个地址的实时事件
type Watcher struct {
	baseURL string
	dialer  *websocket.Dialer
}

// NewWatcher 创建事件订阅器，baseURL 为 HTTP API 地址
func NewWatcher(baseURL string) *Watcher {
	return &Watcher{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		dialer:  websocket.DefaultDialer,
	}
}

// Watch 阻塞读取事件直到 ctx 结束或连接断开，ctx 结束时返回 nil
func (w *Watcher) Watch(ctx context.Context, address string, handle func(Event)) error {
	endpoint, err := w.endpoint(address)
	if err != nil {
		return err
	}

	conn, resp, err := w.dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		if resp != nil && resp.StatusCode != http.StatusSwitchingProtocols {
			return &APIError{StatusCode: resp.StatusCode}
		}
		return fmt.Errorf("websocket dial failed: %w", err)
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
		case <-done:
		}
		conn.Close()
	}()

	for {
		var event Event
		if err := conn.ReadJSON(&event); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				return nil
			}
			return fmt.Errorf("websocket read failed: %w", err)
		}

		switch event.Type {
		case EventPing:
			_ = conn.WriteJSON(Event{Type: "pong"})
		default:
			handle(event)
		}
	}
}

func (w *Watcher) endpoint(address string) (string, error) {
	u, err := url.Parse(w.baseURL + "/ws")
	if err != nil {
		return "", fmt.Errorf("invalid base url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.RawQuery = url.Values{"address": {address}}.Encode()
	return u.String(), nil
}
