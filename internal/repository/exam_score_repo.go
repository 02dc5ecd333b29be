package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"placement-portal/backend/internal/model"
)

// ExamScoreRepository 考试成绩数据访问接口
type ExamScoreRepository interface {
	// Upsert 按 (module_id, student_id, exam_number) 写入，已存在则覆盖分数
	Upsert(ctx context.Context, score *model.ExamScore) error
	// ListByStudent moduleID 为空时返回该学生全部模块的成绩
	ListByStudent(ctx context.Context, studentID, moduleID string) ([]model.ExamScore, error)
	MaxExamNumber(ctx context.Context, moduleID string) (int, error)
}

type examScoreRepo struct {
	db *gorm.DB
}

// NewExamScoreRepo 创建 ExamScoreRepository 实例
func NewExamScoreRepo(db *gorm.DB) ExamScoreRepository {
	return &examScoreRepo{db: db}
}

func (r *examScoreRepo) Upsert(ctx context.Context, score *model.ExamScore) error {
	score.UpdatedAt = time.Now()
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "module_id"}, {Name: "student_id"}, {Name: "exam_number"}},
			DoUpdates: clause.AssignmentColumns([]string{"score", "recorded_by", "updated_at"}),
		}).
		Create(score).Error
}

func (r *examScoreRepo) ListByStudent(ctx context.Context, studentID, moduleID string) ([]model.ExamScore, error) {
	var scores []model.ExamScore
	db := r.db.WithContext(ctx).Where("student_id = ?", studentID)
	if moduleID != "" {
		db = db.Where("module_id = ?", moduleID)
	}
	err := db.Order("module_id ASC, exam_number ASC").Find(&scores).Error
	return scores, err
}

func (r *examScoreRepo) MaxExamNumber(ctx context.Context, moduleID string) (int, error) {
	var max int
	err := r.db.WithContext(ctx).
		Model(&model.ExamScore{}).
		Where("module_id = ?", moduleID).
		Select("COALESCE(MAX(exam_number), 0)").
		Scan(&max).Error
	return max, err
}
