package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"tempmail/disposable/internal/domain"
)

// ErrNotFound 服务端返回 404
var ErrNotFound = errors.New("not found")

// APIError 服务端返回的非 2xx 响应
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("API error %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("API error %d", e.StatusCode)
}

// Is 使 404 响应可以用 errors.Is(err, ErrNotFound) 判断
func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// GeneratedAddress 服务端生成的地址
type GeneratedAddress struct {
	Email     string
	ExpiresAt time.Time
}

// APIClient 临时邮箱服务端的 HTTP 客户端
type APIClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewAPIClient 创建客户端，httpClient 为 nil 时使用 10 秒超时的默认客户端
func NewAPIClient(baseURL string, httpClient *http.Client) *APIClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &APIClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
	}
}

type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type wireMessage struct {
	ID        string `json:"id"`
	From      string `json:"from"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
	Timestamp int64  `json:"timestamp"`
	Read      bool   `json:"read"`
}

func (m wireMessage) toDomain() domain.Message {
	return domain.Message{
		ID:        m.ID,
		From:      m.From,
		Subject:   m.Subject,
		Body:      m.Body,
		Timestamp: time.UnixMilli(m.Timestamp),
		Read:      m.Read,
	}
}

// Generate 请求一个新地址
func (c *APIClient) Generate(ctx context.Context) (*GeneratedAddress, error) {
	var resp struct {
		envelope
		Email     string `json:"email"`
		ExpiresAt int64  `json:"expiresAt"`
	}
	if err := c.do(ctx, http.MethodPost, "/generate-email", nil, &resp); err != nil {
		return nil, err
	}
	if resp.Email == "" {
		return nil, errors.New("server returned an empty address")
	}
	return &GeneratedAddress{
		Email:     resp.Email,
		ExpiresAt: time.UnixMilli(resp.ExpiresAt),
	}, nil
}

// Inbox 获取收件箱
func (c *APIClient) Inbox(ctx context.Context, address string) ([]domain.Message, error) {
	var resp struct {
		envelope
		Emails []wireMessage `json:"emails"`
	}
	if err := c.do(ctx, http.MethodGet, "/inbox/"+url.PathEscape(address), nil, &resp); err != nil {
		return nil, err
	}

	messages := make([]domain.Message, 0, len(resp.Emails))
	for _, m := range resp.Emails {
		messages = append(messages, m.toDomain())
	}
	return messages, nil
}

// Open 获取邮件详情，服务端同时将其标记为已读
func (c *APIClient) Open(ctx context.Context, id string) (*domain.Message, error) {
	var resp struct {
		envelope
		Email wireMessage `json:"email"`
	}
	if err := c.do(ctx, http.MethodGet, "/email/"+url.PathEscape(id), nil, &resp); err != nil {
		return nil, err
	}
	message := resp.Email.toDomain()
	return &message, nil
}

// Delete 删除邮件
func (c *APIClient) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/email/"+url.PathEscape(id), nil, nil)
}

// Health 检查服务端状态
func (c *APIClient) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

// SendWebhook 模拟外部发件方投递一封邮件，返回邮件 ID
func (c *APIClient) SendWebhook(ctx context.Context, message domain.InboundMessage) (string, error) {
	req := map[string]interface{}{
		"to":      message.To,
		"from":    message.From,
		"subject": message.Subject,
		"body":    message.Body,
	}
	if !message.Timestamp.IsZero() {
		req["timestamp"] = message.Timestamp.UnixMilli()
	}

	var resp struct {
		envelope
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/webhook/email", req, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

func (c *APIClient) do(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var env envelope
		_ = json.Unmarshal(data, &env)
		return &APIError{StatusCode: resp.StatusCode, Message: env.Message}
	}

	if result == nil {
		return nil
	}
	if err := json.Unmarshal(data, result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
