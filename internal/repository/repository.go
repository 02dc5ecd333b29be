package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repository 所有 Repository 的聚合入口
type Repository struct {
	db *gorm.DB

	User         UserRepository
	Student      StudentRepository
	Venue        VenueRepository
	Module       TrainingModuleRepository
	Attendance   AttendanceRepository
	Notification NotificationRepository
	SystemConfig SystemConfigRepository
	ExamScore    ExamScoreRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db:           db,
		User:         NewUserRepo(db),
		Student:      NewStudentRepo(db),
		Venue:        NewVenueRepo(db),
		Module:       NewTrainingModuleRepo(db),
		Attendance:   NewAttendanceRepo(db),
		Notification: NewNotificationRepo(db),
		SystemConfig: NewSystemConfigRepo(db),
		ExamScore:    NewExamScoreRepo(db),
	}
}

// BeginTx 开启事务，调用方负责 Commit / Rollback
func (r *Repository) BeginTx(ctx context.Context) (*gorm.DB, error) {
	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	return tx, nil
}

// WithTx 返回绑定到指定事务的 Repository 聚合
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return NewRepository(tx)
}

// Transaction 在单个数据库事务中执行 fn，fn 返回错误时整体回滚
// 未绑定数据库时（单元测试中的 mock 聚合）直接在当前聚合上执行
func (r *Repository) Transaction(ctx context.Context, fn func(txRepo *Repository) error) error {
	if r.db == nil {
		return fn(r)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(r.WithTx(tx))
	})
}
