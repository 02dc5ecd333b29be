package job

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"placement-portal/backend/internal/dto"
)

// Retrier 重投待发送 / 失败的缺勤通知（service.AttendanceService 实现）
type Retrier interface {
	RetryPending(ctx context.Context) (*dto.RetryNotificationsResponse, error)
}

// NotificationRetryJob 定时重投缺勤通知
type NotificationRetryJob struct {
	cron    *cron.Cron
	retrier Retrier
	timeout time.Duration
	logger  *zap.Logger
}

// NewNotificationRetryJob 按 spec（cron 表达式或 @every 5m）注册任务，上一轮未结束时跳过本轮
func NewNotificationRetryJob(spec string, retrier Retrier, logger *zap.Logger) (*NotificationRetryJob, error) {
	cl := cronLogger{logger: logger.Named("cron")}
	j := &NotificationRetryJob{
		cron:    cron.New(cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)), cron.WithLogger(cl)),
		retrier: retrier,
		timeout: time.Minute,
		logger:  logger,
	}
	if _, err := j.cron.AddFunc(spec, j.Run); err != nil {
		return nil, err
	}
	return j, nil
}

// Start 启动调度（非阻塞）
func (j *NotificationRetryJob) Start() {
	j.cron.Start()
	j.logger.Info("缺勤通知重投任务已启动")
}

// Stop 停止调度并等待正在执行的任务结束
func (j *NotificationRetryJob) Stop(ctx context.Context) {
	select {
	case <-j.cron.Stop().Done():
	case <-ctx.Done():
		j.logger.Warn("等待重投任务结束超时")
	}
}

// Run 执行一轮重投
func (j *NotificationRetryJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	resp, err := j.retrier.RetryPending(ctx)
	if err != nil {
		j.logger.Error("缺勤通知重投失败", zap.Error(err))
		return
	}
	if resp.Attempted == 0 {
		return
	}
	j.logger.Info("缺勤通知重投完成",
		zap.Int("attempted", resp.Attempted),
		zap.Int("sent", resp.Sent),
		zap.Int("failed", resp.Failed),
	)
}

// cronLogger 将 cron 内部日志接入 zap
type cronLogger struct {
	logger *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
