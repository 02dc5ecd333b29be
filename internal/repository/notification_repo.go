package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"placement-portal/backend/internal/model"
)

// NotificationRepository 缺勤通知发件箱数据访问接口
type NotificationRepository interface {
	CreateBatch(ctx context.Context, items []model.AbsenceNotification) error
	ListRetryable(ctx context.Context, date, session string, maxAttempts int, staleBefore time.Time) ([]model.AbsenceNotification, error)
	ListAllRetryable(ctx context.Context, maxAttempts, limit int, staleBefore time.Time) ([]model.AbsenceNotification, error)
	Claim(ctx context.Context, ids []string, staleBefore time.Time) ([]model.AbsenceNotification, error)
	MarkSent(ctx context.Context, ids []string, at time.Time) error
	MarkFailed(ctx context.Context, ids []string, reason string) error
}

type notificationRepo struct {
	db *gorm.DB
}

// NewNotificationRepo 创建 NotificationRepository 实例
func NewNotificationRepo(db *gorm.DB) NotificationRepository {
	return &notificationRepo{db: db}
}

func (r *notificationRepo) CreateBatch(ctx context.Context, items []model.AbsenceNotification) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Omit("Student").Create(&items).Error
}

// claimable 待发送 / 失败的记录，以及认领已超过租期仍未回写的 sending 记录
func claimable(db *gorm.DB, staleBefore time.Time) *gorm.DB {
	return db.Where("(status IN ? OR (status = ? AND updated_at < ?))",
		[]string{model.NotificationPending, model.NotificationFailed},
		model.NotificationSending, staleBefore)
}

func (r *notificationRepo) retryable(ctx context.Context, maxAttempts int, staleBefore time.Time) *gorm.DB {
	return claimable(r.db.WithContext(ctx), staleBefore).
		Where("attempts < ?", maxAttempts)
}

func (r *notificationRepo) ListRetryable(ctx context.Context, date, session string, maxAttempts int, staleBefore time.Time) ([]model.AbsenceNotification, error) {
	var items []model.AbsenceNotification
	err := r.retryable(ctx, maxAttempts, staleBefore).
		Where("date = ? AND session = ?", date, session).
		Order("created_at ASC").
		Find(&items).Error
	return items, err
}

func (r *notificationRepo) ListAllRetryable(ctx context.Context, maxAttempts, limit int, staleBefore time.Time) ([]model.AbsenceNotification, error) {
	var items []model.AbsenceNotification
	err := r.retryable(ctx, maxAttempts, staleBefore).
		Order("created_at ASC").
		Limit(limit).
		Find(&items).Error
	return items, err
}

// Claim 以单条 UPDATE 把仍可认领的记录置为 sending，只返回本次认领成功的记录；
// 并发认领同一记录时只有一方能拿到
func (r *notificationRepo) Claim(ctx context.Context, ids []string, staleBefore time.Time) ([]model.AbsenceNotification, error) {
	var claimed []model.AbsenceNotification
	if len(ids) == 0 {
		return claimed, nil
	}
	err := claimable(r.db.WithContext(ctx).Model(&claimed), staleBefore).
		Clauses(clause.Returning{}).
		Where("notification_id IN ?", ids).
		Updates(map[string]interface{}{
			"status":     model.NotificationSending,
			"updated_at": time.Now(),
		}).Error
	return claimed, err
}

func (r *notificationRepo) MarkSent(ctx context.Context, ids []string, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&model.AbsenceNotification{}).
		Where("notification_id IN ?", ids).
		Updates(map[string]interface{}{
			"status":     model.NotificationSent,
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": "",
			"sent_at":    at,
			"updated_at": at,
		}).Error
}

func (r *notificationRepo) MarkFailed(ctx context.Context, ids []string, reason string) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&model.AbsenceNotification{}).
		Where("notification_id IN ?", ids).
		Updates(map[string]interface{}{
			"status":     model.NotificationFailed,
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": reason,
			"updated_at": gorm.Expr("NOW()"),
		}).Error
}
