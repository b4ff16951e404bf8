package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"tempmail/disposable/internal/domain"
)

// ServerConfig 定义 HTTP 服务器的监听配置参数
type ServerConfig struct {
	Host string // 监听地址，默认 "0.0.0.0"
	Port int    // 监听端口，默认 3001
}

// MailboxConfig 定义临时地址的核心业务配置
type MailboxConfig struct {
	Domain        string        // 生成地址使用的固定域名
	TTL           time.Duration // 地址生存时间，默认 10 分钟
	SweepInterval time.Duration // 过期清理周期，默认 1 分钟，与 TTL 相互独立
}

// CORSConfig 定义跨域资源共享 (CORS) 配置
type CORSConfig struct {
	AllowedOrigins []string // 允许的来源列表，"*" 表示允许所有来源
}

// LogConfig 定义日志系统配置
type LogConfig struct {
	Level       string // 日志级别: debug, info, warn, error
	Development bool   // 开发模式: 控制台格式输出
	File        string // 日志文件路径，留空只输出到标准输出
}

// ClientConfig 定义终端客户端的配置
type ClientConfig struct {
	BaseURL      string        // 服务端 API 地址，默认 "http://localhost:3001/api"
	PollInterval time.Duration // 收件箱轮询周期，默认 10 秒
}

// Config 是系统核心配置的根结构体
type Config struct {
	Server  ServerConfig
	Mailbox MailboxConfig
	CORS    CORSConfig
	Log     LogConfig
	Client  ClientConfig
}

// Load 从环境变量和 .env 文件加载系统配置
//
// 配置加载优先级（从高到低）：
//  1. 系统环境变量
//  2. .env 文件（如果存在）
//  3. 默认值
//
// 环境变量前缀: TEMPMAIL_，例如 TEMPMAIL_MAILBOX_TTL
func Load() (*Config, error) {
	loadEnvFile()

	viper.SetEnvPrefix("tempmail")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 3001)
	viper.SetDefault("mailbox.domain", "tempmail.dev")
	viper.SetDefault("mailbox.ttl", "10m")
	viper.SetDefault("mailbox.sweep_interval", "1m")
	viper.SetDefault("cors.allowed_origins", "*")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.development", false)
	viper.SetDefault("log.file", "")
	viper.SetDefault("client.base_url", "http://localhost:3001/api")
	viper.SetDefault("client.poll_interval", "10s")

	ttl, err := parsePositiveDuration("mailbox.ttl")
	if err != nil {
		return nil, err
	}

	sweepInterval, err := parsePositiveDuration("mailbox.sweep_interval")
	if err != nil {
		return nil, err
	}

	pollInterval, err := parsePositiveDuration("client.poll_interval")
	if err != nil {
		return nil, err
	}

	mailDomain := strings.ToLower(strings.TrimSpace(viper.GetString("mailbox.domain")))
	if mailDomain == "" {
		return nil, fmt.Errorf("mailbox.domain must not be empty")
	}
	if err := domain.NewEmailValidator().ValidateDomain(mailDomain); err != nil {
		return nil, fmt.Errorf("invalid mailbox.domain %q: %w", mailDomain, err)
	}

	port := viper.GetInt("server.port")
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("invalid server.port: %d", port)
	}

	corsOrigins := parseList(viper.GetString("cors.allowed_origins"))
	if len(corsOrigins) == 0 {
		corsOrigins = []string{"*"}
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: viper.GetString("server.host"),
			Port: port,
		},
		Mailbox: MailboxConfig{
			Domain:        mailDomain,
			TTL:           ttl,
			SweepInterval: sweepInterval,
		},
		CORS: CORSConfig{
			AllowedOrigins: corsOrigins,
		},
		Log: LogConfig{
			Level:       viper.GetString("log.level"),
			Development: viper.GetBool("log.development"),
			File:        viper.GetString("log.file"),
		},
		Client: ClientConfig{
			BaseURL:      strings.TrimRight(viper.GetString("client.base_url"), "/"),
			PollInterval: pollInterval,
		},
	}

	return cfg, nil
}

// Addr 返回 HTTP 服务监听地址
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// parsePositiveDuration 读取并解析时长配置，要求大于 0
func parsePositiveDuration(key string) (time.Duration, error) {
	d, err := time.ParseDuration(viper.GetString(key))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return d, nil
}

// parseList 将逗号分隔的字符串解析为字符串切片
func parseList(value string) []string {
	parts := strings.Split(value, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}

// loadEnvFile 尝试加载 .env 文件
//
// 依次尝试当前目录与父目录，文件不存在时静默跳过；
// 已存在的环境变量不会被覆盖。
func loadEnvFile() {
	if err := godotenv.Load(".env"); err == nil {
		return
	}

	parentEnv := filepath.Join("..", ".env")
	if _, err := os.Stat(parentEnv); err == nil {
		_ = godotenv.Load(parentEnv)
	}
}
