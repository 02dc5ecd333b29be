package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"placement-portal/backend/internal/dto"
	"placement-portal/backend/internal/model"
	"placement-portal/backend/internal/repository"
)

// ── 系统配置模块业务错误 ──

var (
	ErrSystemConfigNotFound = errors.New("系统配置未初始化")
)

// SystemConfigService 系统配置业务接口
type SystemConfigService interface {
	Get(ctx context.Context) (*dto.SystemConfigResponse, error)
	Update(ctx context.Context, req *dto.UpdateSystemConfigRequest, callerID string) (*dto.SystemConfigResponse, error)
}

type systemConfigService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewSystemConfigService 创建 SystemConfigService 实例
func NewSystemConfigService(repo *repository.Repository, logger *zap.Logger) SystemConfigService {
	return &systemConfigService{repo: repo, logger: logger}
}

// ────────────────────── Get ──────────────────────

func (s *systemConfigService) Get(ctx context.Context) (*dto.SystemConfigResponse, error) {
	cfg, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return toSystemConfigResponse(cfg), nil
}

// ────────────────────── Update ──────────────────────

func (s *systemConfigService) Update(ctx context.Context, req *dto.UpdateSystemConfigRequest, callerID string) (*dto.SystemConfigResponse, error) {
	cfg, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	if req.DefaultSession != nil {
		cfg.DefaultSession = *req.DefaultSession
	}
	if req.EmailNotifications != nil {
		cfg.EmailNotifications = *req.EmailNotifications
	}
	if req.AutoMarkAbsent != nil {
		cfg.AutoMarkAbsent = *req.AutoMarkAbsent
	}

	cfg.UpdatedBy = &callerID

	if err := s.repo.SystemConfig.Update(ctx, cfg); err != nil {
		s.logger.Error("更新系统配置失败", zap.Error(err))
		return nil, err
	}

	s.logger.Info("系统配置已更新",
		zap.String("default_session", cfg.DefaultSession),
		zap.Bool("email_notifications", cfg.EmailNotifications),
		zap.Bool("auto_mark_absent", cfg.AutoMarkAbsent),
	)
	return toSystemConfigResponse(cfg), nil
}

func (s *systemConfigService) load(ctx context.Context) (*model.SystemConfig, error) {
	cfg, err := s.repo.SystemConfig.Get(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSystemConfigNotFound
		}
		s.logger.Error("查询系统配置失败", zap.Error(err))
		return nil, err
	}
	return cfg, nil
}

// reconcilePolicy 系统配置 → 考勤合并策略
func reconcilePolicy(cfg *model.SystemConfig) ReconcilePolicy {
	policy := DefaultReconcilePolicy()
	if cfg == nil {
		return policy
	}
	if cfg.AutoMarkAbsent {
		policy.DefaultStatus = model.AttendanceAbsent
	}
	policy.NotificationsEnabled = cfg.EmailNotifications
	return policy
}

func toSystemConfigResponse(cfg *model.SystemConfig) *dto.SystemConfigResponse {
	return &dto.SystemConfigResponse{
		DefaultSession:     cfg.DefaultSession,
		EmailNotifications: cfg.EmailNotifications,
		AutoMarkAbsent:     cfg.AutoMarkAbsent,
		UpdatedAt:          formatTime(cfg.UpdatedAt),
	}
}
