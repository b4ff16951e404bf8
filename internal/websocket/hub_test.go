package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tempmail/disposable/internal/domain"
	"tempmail/disposable/internal/storage/memory"
)

func newTestServer(t *testing.T, setup ...func(*Hub)) (*Hub, *memory.Store, *httptest.Server) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.NewStore(10 * time.Minute)
	hub := NewHub(nil, store, zap.NewNop())
	for _, fn := range setup {
		fn(hub)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	r := gin.New()
	r.GET("/api/ws", HandleWebSocket(hub))
	srv := httptest.NewServer(r)

	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return hub, store, srv
}

func dial(t *testing.T, srv *httptest.Server, address string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws?address=" + address
	return websocket.DefaultDialer.Dial(url, nil)
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestHandleWebSocket_Rejects(t *testing.T) {
	_, _, srv := newTestServer(t)

	t.Run("missing address", func(t *testing.T) {
		_, resp, err := dial(t, srv, "")
		require.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("unknown address", func(t *testing.T) {
		_, resp, err := dial(t, srv, "ghost@tempmail.dev")
		require.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

type failingLookup struct{}

func (failingLookup) GetAddress(string) (*domain.Address, error) {
	return nil, errors.New("store unavailable")
}

func TestHandleWebSocket_LookupFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := NewHub(nil, failingLookup{}, zap.NewNop())

	r := gin.New()
	r.GET("/api/ws", HandleWebSocket(hub))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/ws?address=box@tempmail.dev", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"success":false,"message":"Internal server error"}`, rec.Body.String())
}

func TestHub_NewMailAndExpiry(t *testing.T) {
	var clients atomic.Int64
	hub, store, srv := newTestServer(t, func(h *Hub) {
		h.SetClientCounter(func(n int) { clients.Store(int64(n)) })
	})

	_, err := store.CreateAddress("box@tempmail.dev")
	require.NoError(t, err)

	conn, _, err := dial(t, srv, "BOX@tempmail.dev")
	require.NoError(t, err)
	defer conn.Close()

	subscribed := readMessage(t, conn)
	assert.Equal(t, MessageTypeSubscribed, subscribed.Type)
	assert.Equal(t, "box@tempmail.dev", subscribed.Address)
	assert.Equal(t, 1, hub.ClientCount())
	assert.Eventually(t, func() bool { return clients.Load() == 1 }, time.Second, 10*time.Millisecond)

	received := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	hub.NotifyNewMail("box@tempmail.dev", &domain.Message{
		ID:        "msg-1",
		From:      "alice@example.com",
		Subject:   "Hi",
		Body:      strings.Repeat("a", 150),
		Timestamp: received,
	})

	msg := readMessage(t, conn)
	require.Equal(t, MessageTypeNewMail, msg.Type)
	var data NewMailData
	require.NoError(t, json.Unmarshal(msg.Data, &data))
	assert.Equal(t, "msg-1", data.ID)
	assert.Equal(t, "alice@example.com", data.From)
	assert.Len(t, data.Preview, 100)
	assert.Equal(t, received.UnixMilli(), data.Timestamp)

	// 其他地址的通知不应送达
	hub.NotifyNewMail("other@tempmail.dev", &domain.Message{ID: "msg-2"})
	hub.NotifyAddressExpired("box@tempmail.dev")

	expired := readMessage(t, conn)
	assert.Equal(t, MessageTypeAddressExpired, expired.Type)

	// 过期后连接被服务端关闭
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err)
	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 10*time.Millisecond)
}

func TestHub_PingPong(t *testing.T) {
	_, store, srv := newTestServer(t)

	_, err := store.CreateAddress("ping@tempmail.dev")
	require.NoError(t, err)

	conn, _, err := dial(t, srv, "ping@tempmail.dev")
	require.NoError(t, err)
	defer conn.Close()

	readMessage(t, conn)

	require.NoError(t, conn.WriteJSON(Message{Type: MessageTypePing}))
	assert.Equal(t, MessageTypePong, readMessage(t, conn).Type)
}

func TestHub_NotifyAfterStop(t *testing.T) {
	hub := NewHub(nil, memory.NewStore(time.Minute), zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()
	cancel()
	<-stopped

	// 不应阻塞
	hub.NotifyAddressExpired("gone@tempmail.dev")
	hub.NotifyNewMail("gone@tempmail.dev", &domain.Message{ID: "x"})
}
