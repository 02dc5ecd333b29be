package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"placement-portal/backend/internal/dto"
	"placement-portal/backend/internal/model"
	"placement-portal/backend/internal/repository"
	"placement-portal/backend/pkg/jwt"
)

var (
	ErrInvalidCredentials        = errors.New("邮箱或密码错误")
	ErrInvalidStudentCredentials = errors.New("学号或密码错误")
	ErrUserNotFound              = errors.New("用户不存在")
	ErrWrongPassword             = errors.New("原密码错误")
)

// TokenBlacklist Token 黑名单（pkg/redis.Client 实现）
type TokenBlacklist interface {
	BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error
}

// AuthService 认证业务接口
type AuthService interface {
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error)
	StudentLogin(ctx context.Context, req *dto.StudentLoginRequest) (*dto.StudentTokenResponse, error)
	Logout(ctx context.Context, claims *jwt.Claims) error
	GetCurrentUser(ctx context.Context, userID string) (*dto.UserDetailResponse, error)
	ChangePassword(ctx context.Context, userID string, req *dto.ChangePasswordRequest) error
}

type authService struct {
	repo      *repository.Repository
	jwtMgr    *jwt.Manager
	blacklist TokenBlacklist
	logger    *zap.Logger
}

// NewAuthService 创建 AuthService 实例
func NewAuthService(
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	blacklist TokenBlacklist,
	logger *zap.Logger,
) AuthService {
	return &authService{
		repo:      repo,
		jwtMgr:    jwtMgr,
		blacklist: blacklist,
		logger:    logger,
	}
}

// ────────────────────── Login ──────────────────────

func (s *authService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error) {
	// 1. 查询用户
	user, err := s.repo.User.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		s.logger.Error("查询用户失败", zap.Error(err))
		return nil, err
	}

	// 2. 验证密码 (bcrypt)
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	// 3. 生成 Token，staff 携带负责的场地
	venueID := ""
	if user.Role == model.RoleStaff && user.VenueID != nil {
		venueID = *user.VenueID
	}
	accessToken, err := s.jwtMgr.GenerateAccessToken(user.UserID, user.Role, venueID)
	if err != nil {
		s.logger.Error("生成 AccessToken 失败", zap.Error(err))
		return nil, err
	}

	return &dto.TokenResponse{
		AccessToken: accessToken,
		ExpiresIn:   int(s.jwtMgr.AccessTokenTTL().Seconds()),
		User:        toUserResponse(user),
	}, nil
}

// ────────────────────── StudentLogin ──────────────────────

// StudentLogin 学号 + 密码登录；令牌的 user_id 为 student_id，角色为 student
func (s *authService) StudentLogin(ctx context.Context, req *dto.StudentLoginRequest) (*dto.StudentTokenResponse, error) {
	student, err := s.repo.Student.GetByRegNo(ctx, strings.ToUpper(strings.TrimSpace(req.RegNo)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidStudentCredentials
		}
		s.logger.Error("查询学生失败", zap.Error(err))
		return nil, err
	}

	// 未设置密码的历史数据无法登录
	if student.PasswordHash == "" {
		return nil, ErrInvalidStudentCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(student.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidStudentCredentials
	}

	accessToken, err := s.jwtMgr.GenerateAccessToken(student.StudentID, model.RoleStudent, "")
	if err != nil {
		s.logger.Error("生成 AccessToken 失败", zap.Error(err))
		return nil, err
	}

	return &dto.StudentTokenResponse{
		AccessToken: accessToken,
		ExpiresIn:   int(s.jwtMgr.AccessTokenTTL().Seconds()),
		Student:     *toStudentResponse(student),
	}, nil
}

// ────────────────────── Logout ──────────────────────

func (s *authService) Logout(ctx context.Context, claims *jwt.Claims) error {
	if s.blacklist == nil {
		s.logger.Warn("未启用 Token 黑名单，登出仅在客户端生效", zap.String("user_id", claims.UserID))
		return nil
	}
	if err := s.blacklist.BlacklistToken(ctx, claims.ID, jwt.RemainingTTL(claims)); err != nil {
		s.logger.Error("Token 加入黑名单失败", zap.String("user_id", claims.UserID), zap.Error(err))
		return err
	}
	return nil
}

// ────────────────────── GetCurrentUser ──────────────────────

func (s *authService) GetCurrentUser(ctx context.Context, userID string) (*dto.UserDetailResponse, error) {
	user, err := s.repo.User.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("查询用户失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	return &dto.UserDetailResponse{
		UserResponse: toUserResponse(user),
		CreatedAt:    formatTime(user.CreatedAt),
	}, nil
}

// ────────────────────── ChangePassword ──────────────────────

func (s *authService) ChangePassword(ctx context.Context, userID string, req *dto.ChangePasswordRequest) error {
	user, err := s.repo.User.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		s.logger.Error("查询用户失败", zap.String("user_id", userID), zap.Error(err))
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.OldPassword)); err != nil {
		return ErrWrongPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("密码哈希失败", zap.Error(err))
		return err
	}
	user.PasswordHash = string(hash)
	user.UpdatedBy = &userID

	if err := s.repo.User.Update(ctx, user); err != nil {
		s.logger.Error("更新密码失败", zap.String("user_id", userID), zap.Error(err))
		return err
	}
	return nil
}

// ── 内部辅助方法 ──

func toUserResponse(user *model.User) dto.UserResponse {
	resp := dto.UserResponse{
		ID:    user.UserID,
		Name:  user.Name,
		Email: user.Email,
		Role:  user.Role,
	}
	if user.Venue != nil {
		resp.Venue = &dto.VenueBrief{ID: user.Venue.VenueID, Name: user.Venue.Name}
	} else if user.VenueID != nil {
		resp.Venue = &dto.VenueBrief{ID: *user.VenueID}
	}
	return resp
}
