package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

// AbsenceNotice 一条缺勤通知（对应发件箱中的一行）
type AbsenceNotice struct {
	NotificationID string `json:"notification_id"`
	StudentID      string `json:"student_id"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	Date           string `json:"date"`
	Session        string `json:"session"`
}

// Dispatcher 缺勤通知投递端
// 返回成功交付的 NotificationID；err 描述第一个失败原因，其余未交付项视为失败
type Dispatcher interface {
	Dispatch(ctx context.Context, notices []AbsenceNotice) (delivered []string, err error)
}

// Publisher 消息发布能力（由 pkg/mq.Publisher 实现）
type Publisher interface {
	Publish(ctx context.Context, body []byte) error
}

// ── RabbitMQ 投递 ──

type queueDispatcher struct {
	pub    Publisher
	logger *zap.Logger
}

// NewQueueDispatcher 将通知逐条发布到缺勤队列，由 notifier 进程消费发送
func NewQueueDispatcher(pub Publisher, logger *zap.Logger) Dispatcher {
	return &queueDispatcher{pub: pub, logger: logger}
}

func (d *queueDispatcher) Dispatch(ctx context.Context, notices []AbsenceNotice) ([]string, error) {
	delivered := make([]string, 0, len(notices))
	for _, n := range notices {
		body, err := json.Marshal(n)
		if err != nil {
			return delivered, fmt.Errorf("序列化缺勤通知失败: %w", err)
		}
		if err := d.pub.Publish(ctx, body); err != nil {
			d.logger.Warn("缺勤通知入队失败",
				zap.String("student_id", n.StudentID),
				zap.String("date", n.Date),
				zap.String("session", n.Session),
				zap.Error(err),
			)
			return delivered, err
		}
		delivered = append(delivered, n.NotificationID)
	}
	return delivered, nil
}

// ── 日志投递（未启用消息队列时） ──

type logDispatcher struct {
	logger *zap.Logger
}

// NewLogDispatcher 仅记录日志的投递端
func NewLogDispatcher(logger *zap.Logger) Dispatcher {
	return &logDispatcher{logger: logger}
}

func (d *logDispatcher) Dispatch(_ context.Context, notices []AbsenceNotice) ([]string, error) {
	delivered := make([]string, 0, len(notices))
	for _, n := range notices {
		d.logger.Info("缺勤通知",
			zap.String("student_id", n.StudentID),
			zap.String("name", n.Name),
			zap.String("email", n.Email),
			zap.String("date", n.Date),
			zap.String("session", n.Session),
		)
		delivered = append(delivered, n.NotificationID)
	}
	return delivered, nil
}
