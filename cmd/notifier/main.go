package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"placement-portal/backend/config"
	"placement-portal/backend/internal/notify"
	applogger "placement-portal/backend/pkg/logger"
	"placement-portal/backend/pkg/mq"
)

// notifier 消费缺勤通知队列并发送邮件
func main() {
	cfg, err := config.Load(os.Getenv("PORTAL_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if cfg.Mail.SendGridKey == "" {
		logger.Warn("未配置 SendGrid Key，邮件仅写入日志")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	handle := notify.NewAbsenceHandler(notify.NewMailer(&cfg.Mail, logger), logger)

	logger.Info("通知消费者已启动", zap.String("queue", cfg.MQ.Queue))
	if err := mq.Consume(ctx, cfg.MQ.URL, cfg.MQ.Queue, 10, handle, applogger.Named(logger, "mq")); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("消费者异常退出", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("通知消费者已关闭")
}
