package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"placement-portal/backend/config"
	"placement-portal/backend/internal/api/handler"
	"placement-portal/backend/internal/api/router"
	"placement-portal/backend/internal/job"
	"placement-portal/backend/internal/notify"
	"placement-portal/backend/internal/repository"
	"placement-portal/backend/internal/service"
	"placement-portal/backend/pkg/database"
	"placement-portal/backend/pkg/jwt"
	applogger "placement-portal/backend/pkg/logger"
	"placement-portal/backend/pkg/mq"
	"placement-portal/backend/pkg/redis"
	"placement-portal/backend/pkg/validate"
)

func main() {
	// 1. 加载配置
	cfg, err := config.Load(os.Getenv("PORTAL_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("log_level", cfg.Log.Level),
		zap.Bool("mq_enabled", cfg.MQ.Enabled),
	)

	if err := validate.Register(); err != nil {
		logger.Fatal("注册校验规则失败", zap.Error(err))
	}

	// 3. 连接数据库
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}
	logger.Info("数据库连接成功")

	// 3.1 执行数据库迁移
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("获取底层 sql.DB 失败", zap.Error(err))
	}
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		logger.Fatal("数据库迁移失败", zap.Error(err))
	}

	// 4. 连接 Redis（可选：连接失败时降级运行，不中断启动）
	rdb, err := redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Warn("Redis 连接失败，Token 黑名单与登录限流不可用，考勤锁降级为进程内锁", zap.Error(err))
		rdb = nil
	}

	// 5. 缺勤通知出口：启用 MQ 时投递到队列，否则仅写日志
	var (
		dispatcher notify.Dispatcher
		publisher  *mq.Publisher
	)
	if cfg.MQ.Enabled {
		publisher = mq.NewPublisher(cfg.MQ.URL, cfg.MQ.Queue, applogger.Named(logger, "mq"))
		dispatcher = notify.NewQueueDispatcher(publisher, logger)
	} else {
		dispatcher = notify.NewLogDispatcher(logger)
	}

	// 6. 依赖注入: Repository → Service → Handler
	jwtMgr := jwt.NewManager(&cfg.Auth)
	repo := repository.NewRepository(db)
	svc := service.NewService(service.Deps{
		Config:     cfg,
		Repo:       repo,
		JWT:        jwtMgr,
		Redis:      rdb,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	h := handler.NewHandler(svc)

	// 7. 缺勤通知补投任务
	retryJob, err := job.NewNotificationRetryJob(cfg.Attendance.NotifyRetryCron, svc.Attendance, applogger.Named(logger, "job"))
	if err != nil {
		logger.Fatal("创建通知补投任务失败", zap.Error(err))
	}
	retryJob.Start()

	// 8. 初始化路由
	engine := router.Setup(cfg, h, jwtMgr, rdb, db, logger)

	// 9. 启动 HTTP 服务器（优雅关闭）
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	// 10. 监听系统信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	retryJob.Stop(ctx)

	if publisher != nil {
		publisher.Close()
	}

	// 关闭数据库连接
	sqlDB.Close()

	// 关闭 Redis 连接
	if rdb != nil {
		rdb.Close()
	}

	logger.Info("服务器已关闭")
}
