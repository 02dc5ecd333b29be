package repository

import (
	"context"

	"gorm.io/gorm"

	"placement-portal/backend/internal/model"
)

// SystemConfigRepository 系统配置数据访问接口
type SystemConfigRepository interface {
	Get(ctx context.Context) (*model.SystemConfig, error)
	Update(ctx context.Context, cfg *model.SystemConfig) error
}

type systemConfigRepo struct {
	db *gorm.DB
}

// NewSystemConfigRepo 创建 SystemConfigRepository 实例
func NewSystemConfigRepo(db *gorm.DB) SystemConfigRepository {
	return &systemConfigRepo{db: db}
}

// Get 读取单行配置；迁移未写入种子行时按默认值补建
func (r *systemConfigRepo) Get(ctx context.Context) (*model.SystemConfig, error) {
	cfg := model.SystemConfig{
		Singleton:          true,
		DefaultSession:     model.SessionForenoon,
		EmailNotifications: true,
	}
	err := r.db.WithContext(ctx).
		Where("singleton = ?", true).
		FirstOrCreate(&cfg).Error
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (r *systemConfigRepo) Update(ctx context.Context, cfg *model.SystemConfig) error {
	return r.db.WithContext(ctx).
		Model(&model.SystemConfig{}).
		Where("singleton = ?", true).
		Updates(map[string]interface{}{
			"default_session":     cfg.DefaultSession,
			"email_notifications": cfg.EmailNotifications,
			"auto_mark_absent":    cfg.AutoMarkAbsent,
			"updated_by":          cfg.UpdatedBy,
			"updated_at":          gorm.Expr("NOW()"),
		}).Error
}
