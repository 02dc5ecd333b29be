package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"placement-portal/backend/config"
	"placement-portal/backend/internal/api/handler"
	"placement-portal/backend/internal/api/middleware"
	"placement-portal/backend/internal/model"
	"placement-portal/backend/pkg/jwt"
	"placement-portal/backend/pkg/metrics"
	"placement-portal/backend/pkg/redis"
)

// Setup 初始化并返回 Gin 路由引擎
// rdb 为 nil 时黑名单与登录限流均降级为放行
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, db *gorm.DB, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	var (
		blacklist middleware.BlacklistChecker
		limiter   middleware.RateLimiter
	)
	if rdb != nil {
		blacklist = rdb
		limiter = rdb
	}

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Metrics())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.BodyLimit(cfg.Server.BodyLimit))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		if db != nil {
			if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db_unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	admin := middleware.RoleAuth(model.RoleAdmin)
	accounts := middleware.RoleAuth(model.RoleAdmin, model.RoleStaff)

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 认证模块（无需认证）
		loginLimit := middleware.RateLimit(limiter, cfg.Server.LoginRateMax, time.Minute, logger)
		v1.POST("/auth/login", loginLimit, h.Auth.Login)
		v1.POST("/student/login", loginLimit, h.Auth.StudentLogin)

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr, blacklist, logger))
		{
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", accounts, h.Auth.Me)
			authorized.PUT("/auth/password", accounts, h.Auth.ChangePassword)

			// 学生端（学生只能看自己，Service 层鉴权）
			student := authorized.Group("/student")
			{
				student.GET("/modules", middleware.RoleAuth(model.RoleStudent), h.Portal.Modules)
				student.GET("/:id", h.Portal.Profile)
				student.GET("/:id/module/:moduleId", h.Portal.ModulePerformance)
			}

			// 用户模块（staff 账号管理）
			users := authorized.Group("/users", admin)
			{
				users.GET("", h.User.ListUsers)
				users.POST("", h.User.CreateUser)
				users.GET("/:id", h.User.GetUser)
			}

			// 学生模块
			students := authorized.Group("/students", accounts)
			{
				students.GET("", h.Student.ListStudents)
				students.GET("/:id", h.Student.GetStudent)
				students.POST("", admin, h.Student.CreateStudent)
				students.DELETE("/:id", admin, h.Student.DeleteStudent)
			}

			// 场地模块
			venues := authorized.Group("/venues", accounts)
			{
				venues.GET("", h.Venue.ListVenues)
				venues.GET("/:id", h.Venue.GetVenue)
				venues.GET("/:id/students", h.Venue.ListStudents) // admin 或该场地负责人（Service 层鉴权）
				venues.POST("", admin, h.Venue.CreateVenue)
				venues.PUT("/:id", admin, h.Venue.UpdateVenue)
				venues.DELETE("/:id", admin, h.Venue.DeleteVenue)
				venues.PUT("/:id/staff", admin, h.Venue.AssignStaff)
			}

			// 培训模块
			modules := authorized.Group("/modules", accounts)
			{
				modules.GET("", h.Module.ListModules)
				modules.GET("/:id", h.Module.GetModule)
				modules.POST("", admin, h.Module.CreateModule)
				modules.PUT("/:id", admin, h.Module.UpdateModule)
				modules.PUT("/:id/complete", admin, h.Module.CompleteModule)
			}
			authorized.POST("/scores", admin, h.Module.RecordScore)

			// 考勤模块
			attendance := authorized.Group("/attendance", accounts)
			{
				attendance.POST("", h.Attendance.Submit)
				attendance.GET("", h.Attendance.GetExisting)
				attendance.GET("/summary", h.Attendance.Summary)
				attendance.GET("/history", h.Attendance.History)
				attendance.POST("/notifications/retry", admin, h.Attendance.RetryNotifications)
			}

			// 系统配置模块
			systemConfig := authorized.Group("/system-config", accounts)
			{
				systemConfig.GET("", h.SystemConfig.GetConfig)
				systemConfig.PUT("", admin, h.SystemConfig.UpdateConfig)
			}

			// 导出模块
			export := authorized.Group("/export", admin)
			{
				export.GET("/attendance", h.Export.ExportAttendance)
			}
		}
	}

	return r
}
