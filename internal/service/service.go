package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"placement-portal/backend/config"
	"placement-portal/backend/internal/model"
	"placement-portal/backend/internal/notify"
	"placement-portal/backend/internal/repository"
	"placement-portal/backend/pkg/jwt"
	"placement-portal/backend/pkg/redis"
)

// ErrForbidden 当前身份无权执行该操作
var ErrForbidden = errors.New("无权操作")

// AuthContext 请求身份，由 Handler 从 JWT 声明构造后显式传入
type AuthContext struct {
	UserID  string
	Role    string
	VenueID string // 仅 staff，签发令牌时的场地；鉴权以 withCurrentVenue 读出的为准
}

// IsAdmin 是否管理员
func (a AuthContext) IsAdmin() bool { return a.Role == model.RoleAdmin }

// withCurrentVenue 非管理员按数据库中的当前指派刷新 VenueID。
// 负责人被改派后，旧令牌不再能访问原场地。
func withCurrentVenue(ctx context.Context, users repository.UserRepository, auth AuthContext) (AuthContext, error) {
	if auth.IsAdmin() {
		return auth, nil
	}
	user, err := users.GetByID(ctx, auth.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return auth, ErrForbidden
		}
		return auth, err
	}
	auth.VenueID = ""
	if user.VenueID != nil {
		auth.VenueID = *user.VenueID
	}
	return auth, nil
}

// Service 所有 Service 的聚合入口
type Service struct {
	Auth         AuthService
	User         UserService
	Student      StudentService
	Portal       StudentPortalService
	Venue        VenueService
	Module       TrainingModuleService
	Attendance   AttendanceService
	SystemConfig SystemConfigService
	Export       ExportService
}

// Deps Service 层的外部依赖
type Deps struct {
	Config     *config.Config
	Repo       *repository.Repository
	JWT        *jwt.Manager
	Redis      *redis.Client // 可为 nil：Token 黑名单失效，考勤锁降级为进程内锁
	Dispatcher notify.Dispatcher
	Logger     *zap.Logger
}

// NewService 创建 Service 聚合
func NewService(d Deps) *Service {
	var blacklist TokenBlacklist
	if d.Redis != nil {
		blacklist = d.Redis
	}

	lockTTL := d.Config.Attendance.LockTTL
	if lockTTL <= 0 {
		lockTTL = 30 * time.Second
	}

	return &Service{
		Auth:         NewAuthService(d.Repo, d.JWT, blacklist, d.Logger),
		User:         NewUserService(d.Repo, d.Logger),
		Student:      NewStudentService(d.Repo, d.Logger),
		Portal:       NewStudentPortalService(d.Repo, d.Logger),
		Venue:        NewVenueService(d.Repo, d.Logger),
		Module:       NewTrainingModuleService(d.Repo, d.Logger),
		Attendance:   NewAttendanceService(d.Repo, redis.NewLocker(d.Redis), d.Dispatcher, lockTTL, d.Logger),
		SystemConfig: NewSystemConfigService(d.Repo, d.Logger),
		Export:       NewExportService(d.Repo, d.Logger),
	}
}

const timeLayout = "2006-01-02T15:04:05Z07:00"

func formatTime(t time.Time) string {
	return t.Format(timeLayout)
}
