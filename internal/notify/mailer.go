package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"

	"placement-portal/backend/config"
)

var (
	sendgridHost     = "https://api.sendgrid.com"
	sendgridEndpoint = "/v3/mail/send"
)

// Mailer 发送缺勤邮件
type Mailer interface {
	Send(ctx context.Context, n AbsenceNotice) error
}

// NewMailer 配置了 SendGrid Key 时走 SendGrid，否则仅记录日志
func NewMailer(cfg *config.MailConfig, logger *zap.Logger) Mailer {
	if cfg.SendGridKey == "" {
		logger.Warn("未配置 SendGrid Key，缺勤邮件仅记录日志")
		return &logMailer{logger: logger}
	}
	return &sendgridMailer{
		key:        cfg.SendGridKey,
		from:       sgmail.NewEmail(cfg.AppName, cfg.From),
		subjPrefix: "[" + cfg.AppName + "] ",
		logger:     logger,
	}
}

type sendgridMailer struct {
	key        string
	from       *sgmail.Email
	subjPrefix string
	logger     *zap.Logger
}

func (m *sendgridMailer) prepare(n AbsenceNotice) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = m.subjPrefix + fmt.Sprintf("Absence recorded on %s (%s)", n.Date, n.Session)
	p.AddTos(sgmail.NewEmail(n.Name, n.Email))

	text := fmt.Sprintf(
		"Dear %s,\n\nYou were marked absent for the %s session of placement training on %s.\n"+
			"If this is incorrect, please contact your venue coordinator.\n",
		n.Name, n.Session, n.Date,
	)

	msg := sgmail.NewV3Mail()
	msg.SetFrom(m.from)
	msg.AddPersonalizations(p)
	msg.AddContent(sgmail.NewContent("text/plain", text))
	return msg
}

func (m *sendgridMailer) Send(ctx context.Context, n AbsenceNotice) error {
	if n.Email == "" {
		m.logger.Warn("学生未登记邮箱，跳过缺勤邮件", zap.String("student_id", n.StudentID))
		return nil
	}

	req := sendgrid.GetRequest(m.key, sendgridEndpoint, sendgridHost)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(m.prepare(n))

	res, err := sendgrid.MakeRequestWithContext(ctx, req)
	if err != nil {
		return fmt.Errorf("SendGrid 请求失败: %w", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("SendGrid 返回错误状态 %d: %s", res.StatusCode, res.Body)
	}

	m.logger.Info("缺勤邮件已发送",
		zap.String("student_id", n.StudentID),
		zap.String("date", n.Date),
		zap.String("session", n.Session),
	)
	return nil
}

type logMailer struct {
	logger *zap.Logger
}

func (m *logMailer) Send(_ context.Context, n AbsenceNotice) error {
	m.logger.Info("缺勤邮件（仅日志）",
		zap.String("student_id", n.StudentID),
		zap.String("email", n.Email),
		zap.String("date", n.Date),
		zap.String("session", n.Session),
	)
	return nil
}

// NewAbsenceHandler 队列消息处理：解码缺勤通知并发送邮件
func NewAbsenceHandler(mailer Mailer, logger *zap.Logger) func(ctx context.Context, body []byte) error {
	return func(ctx context.Context, body []byte) error {
		var n AbsenceNotice
		if err := json.Unmarshal(body, &n); err != nil {
			return fmt.Errorf("解码缺勤通知失败: %w", err)
		}
		if n.StudentID == "" || n.Date == "" || n.Session == "" {
			return fmt.Errorf("缺勤通知字段不完整: %s", string(body))
		}
		if err := mailer.Send(ctx, n); err != nil {
			logger.Error("发送缺勤邮件失败", zap.String("student_id", n.StudentID), zap.Error(err))
			return err
		}
		return nil
	}
}
