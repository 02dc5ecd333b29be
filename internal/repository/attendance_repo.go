package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"placement-portal/backend/internal/model"
)

// AttendanceRepository 考勤记录数据访问接口
// 按 (date, session) 键读写；不含业务逻辑
type AttendanceRepository interface {
	ListByKey(ctx context.Context, date, session string, studentIDs []string) ([]model.AttendanceRecord, error)
	// ListByKeyForUpdate 事务内读取并对已有行加行锁
	ListByKeyForUpdate(ctx context.Context, date, session string, studentIDs []string) ([]model.AttendanceRecord, error)
	Upsert(ctx context.Context, records []model.AttendanceRecord) error
	ListByDate(ctx context.Context, date string) ([]model.AttendanceRecord, error)
	ListByVenue(ctx context.Context, venueID string, from, to string) ([]model.AttendanceRecord, error)
	ListByStudent(ctx context.Context, studentID string, from, to string) ([]model.AttendanceRecord, error)
}

type attendanceRepo struct {
	db *gorm.DB
}

// NewAttendanceRepo 创建 AttendanceRepository 实例
func NewAttendanceRepo(db *gorm.DB) AttendanceRepository {
	return &attendanceRepo{db: db}
}

func (r *attendanceRepo) keyQuery(ctx context.Context, date, session string, studentIDs []string) *gorm.DB {
	db := r.db.WithContext(ctx).
		Where("date = ? AND session = ?", date, session)
	if studentIDs != nil {
		db = db.Where("student_id IN ?", studentIDs)
	}
	return db
}

func (r *attendanceRepo) ListByKey(ctx context.Context, date, session string, studentIDs []string) ([]model.AttendanceRecord, error) {
	if studentIDs != nil && len(studentIDs) == 0 {
		return nil, nil
	}
	var records []model.AttendanceRecord
	err := r.keyQuery(ctx, date, session, studentIDs).
		Order("student_id ASC").
		Find(&records).Error
	return records, err
}

func (r *attendanceRepo) ListByKeyForUpdate(ctx context.Context, date, session string, studentIDs []string) ([]model.AttendanceRecord, error) {
	if studentIDs != nil && len(studentIDs) == 0 {
		return nil, nil
	}
	var records []model.AttendanceRecord
	err := r.keyQuery(ctx, date, session, studentIDs).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Order("student_id ASC").
		Find(&records).Error
	return records, err
}

// Upsert 按 (date, session, student_id) 插入或覆盖合并后的记录
func (r *attendanceRepo) Upsert(ctx context.Context, records []model.AttendanceRecord) error {
	if len(records) == 0 {
		return nil
	}
	now := time.Now()
	for i := range records {
		records[i].UpdatedAt = now
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "date"}, {Name: "session"}, {Name: "student_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"status", "notified", "notified_at", "venue_id", "marked_by", "updated_at",
			}),
		}).
		CreateInBatches(&records, 500).Error
}

func (r *attendanceRepo) ListByDate(ctx context.Context, date string) ([]model.AttendanceRecord, error) {
	var records []model.AttendanceRecord
	err := r.db.WithContext(ctx).
		Preload("Student").
		Where("date = ?", date).
		Order("session ASC, student_id ASC").
		Find(&records).Error
	return records, err
}

// ListByVenue 场地考勤历史；from / to 为空时不限制
func (r *attendanceRepo) ListByVenue(ctx context.Context, venueID string, from, to string) ([]model.AttendanceRecord, error) {
	var records []model.AttendanceRecord
	db := r.db.WithContext(ctx).
		Preload("Student").
		Where("venue_id = ?", venueID)
	if from != "" {
		db = db.Where("date >= ?", from)
	}
	if to != "" {
		db = db.Where("date <= ?", to)
	}
	err := db.Order("date DESC, session ASC").Find(&records).Error
	return records, err
}

// ListByStudent 单个学生的考勤，按日期升序、同日上午在前；from / to 为空时不限制
func (r *attendanceRepo) ListByStudent(ctx context.Context, studentID string, from, to string) ([]model.AttendanceRecord, error) {
	var records []model.AttendanceRecord
	db := r.db.WithContext(ctx).Where("student_id = ?", studentID)
	if from != "" {
		db = db.Where("date >= ?", from)
	}
	if to != "" {
		db = db.Where("date <= ?", to)
	}
	err := db.Order("date ASC, session DESC").Find(&records).Error
	return records, err
}
