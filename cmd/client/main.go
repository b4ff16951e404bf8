package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"tempmail/disposable/internal/client"
	"tempmail/disposable/internal/config"
	"tempmail/disposable/internal/domain"
	"tempmail/disposable/internal/logger"
	"tempmail/disposable/internal/service"
)

func usage() {
	fmt.Println("用法:")
	fmt.Println("  client run  [-api=http://localhost:3001/api] [-poll=10s] [-watch]")
	fmt.Println("  client send -to=<address> -from=<sender> [-subject=...] [-body=...]")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("错误: 加载配置失败: %v\n", err)
		os.Exit(1)
	}

	switch os.Args[1] {
	case "run":
		err = runInteractive(cfg, os.Args[2:])
	case "send":
		err = runSend(cfg, os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Printf("错误: %v\n", err)
		os.Exit(1)
	}
}

func runInteractive(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	apiURL := fs.String("api", cfg.Client.BaseURL, "服务端 API 地址")
	poll := fs.Duration("poll", cfg.Client.PollInterval, "收件箱轮询周期")
	watch := fs.Bool("watch", false, "通过 WebSocket 订阅新邮件推送")
	if err := fs.Parse(args); err != nil {
		return err
	}

	// 日志只写文件，标准输出留给界面
	log, err := logger.NewFileLogger(logger.FromConfig(cfg.Log))
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := client.Options{
		PollInterval: *poll,
		Fallback:     service.NewAddressGenerator(cfg.Mailbox.Domain).LocalFallback,
		Logger:       log,
	}
	if *watch {
		opts.Events = client.NewWatcher(*apiURL)
	}

	api := client.NewAPIClient(*apiURL, nil)
	controller := client.NewController(api, client.NewTerminalRenderer(os.Stdout, nil), opts)
	if err := controller.Start(ctx); err != nil {
		return err
	}
	defer controller.Stop()

	fmt.Println("命令: refresh | open <id> | delete <id> | copy | qr | new | quit")

	lines := make(chan string)
	go readLines(os.Stdin, lines)

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if quit := handleCommand(ctx, controller, line, log); quit {
				return nil
			}
		}
	}
}

func readLines(r io.Reader, out chan<- string) {
	defer close(out)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		out <- scanner.Text()
	}
}

// handleCommand 执行一条交互命令，返回 true 表示退出
func handleCommand(ctx context.Context, c *client.Controller, line string, log *zap.Logger) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}

	var err error
	switch fields[0] {
	case "refresh", "r":
		err = c.Refresh(ctx)
	case "open", "o":
		if len(fields) < 2 {
			fmt.Println("用法: open <id>")
			return false
		}
		_, err = c.Open(ctx, fields[1])
	case "delete", "d":
		if len(fields) < 2 {
			fmt.Println("用法: delete <id>")
			return false
		}
		err = c.Delete(ctx, fields[1])
	case "copy", "c":
		err = c.CopyAddress()
	case "qr":
		err = c.ShowQRCode()
	case "new", "n":
		err = c.Regenerate()
	case "quit", "q", "exit":
		return true
	default:
		fmt.Printf("未知命令: %s\n", fields[0])
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		log.Warn("command failed", zap.String("command", fields[0]), zap.Error(err))
	}
	return false
}

func runSend(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("send", flag.ExitOnError)
	apiURL := fs.String("api", cfg.Client.BaseURL, "服务端 API 地址")
	to := fs.String("to", "", "收件地址")
	from := fs.String("from", "", "发件人")
	subject := fs.String("subject", "", "主题")
	body := fs.String("body", "", "正文")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *to == "" || *from == "" {
		usage()
		return errors.New("-to and -from are required")
	}
	validator := domain.NewEmailValidator()
	for _, address := range []string{*to, *from} {
		if err := validator.ValidateEmail(address); err != nil {
			return fmt.Errorf("%s: %w", address, err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	id, err := client.NewAPIClient(*apiURL, nil).SendWebhook(ctx, domain.InboundMessage{
		To:      *to,
		From:    *from,
		Subject: *subject,
		Body:    *body,
	})
	if err != nil {
		return err
	}

	fmt.Printf("✓ 已投递到 %s，邮件 ID: %s\n", *to, id)
	return nil
}
