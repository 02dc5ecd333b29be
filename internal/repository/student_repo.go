package repository

import (
	"context"

	"gorm.io/gorm"

	"placement-portal/backend/internal/model"
)

// StudentRepository 学生名册数据访问接口
type StudentRepository interface {
	Create(ctx context.Context, student *model.Student) error
	GetByID(ctx context.Context, id string) (*model.Student, error)
	GetByRegNo(ctx context.Context, regNo string) (*model.Student, error)
	GetByIDs(ctx context.Context, ids []string) ([]model.Student, error)
	ListIDs(ctx context.Context, batch string) ([]string, error)
	List(ctx context.Context, filter StudentFilter, offset, limit int) ([]model.Student, int64, error)
	Delete(ctx context.Context, id string, deletedBy string) error
}

// StudentFilter 学生列表筛选条件
type StudentFilter struct {
	Department string
	Batch      string
	Keyword    string
}

type studentRepo struct {
	db *gorm.DB
}

// NewStudentRepo 创建 StudentRepository 实例
func NewStudentRepo(db *gorm.DB) StudentRepository {
	return &studentRepo{db: db}
}

func (r *studentRepo) Create(ctx context.Context, student *model.Student) error {
	return r.db.WithContext(ctx).Create(student).Error
}

func (r *studentRepo) GetByID(ctx context.Context, id string) (*model.Student, error) {
	var s model.Student
	err := r.db.WithContext(ctx).
		Where("student_id = ?", id).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *studentRepo) GetByRegNo(ctx context.Context, regNo string) (*model.Student, error) {
	var s model.Student
	err := r.db.WithContext(ctx).
		Where("reg_no = ?", regNo).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *studentRepo) GetByIDs(ctx context.Context, ids []string) ([]model.Student, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var students []model.Student
	err := r.db.WithContext(ctx).
		Where("student_id IN ?", ids).
		Find(&students).Error
	return students, err
}

// ListIDs 学生 ID 按学号排序；batch 为空时返回全部
func (r *studentRepo) ListIDs(ctx context.Context, batch string) ([]string, error) {
	var ids []string
	db := r.db.WithContext(ctx).Model(&model.Student{})
	if batch != "" {
		db = db.Where("batch = ?", batch)
	}
	err := db.Order("reg_no ASC").Pluck("student_id", &ids).Error
	return ids, err
}

func (r *studentRepo) List(ctx context.Context, filter StudentFilter, offset, limit int) ([]model.Student, int64, error) {
	var students []model.Student
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Student{})
	if filter.Department != "" {
		db = db.Where("department = ?", filter.Department)
	}
	if filter.Batch != "" {
		db = db.Where("batch = ?", filter.Batch)
	}
	if filter.Keyword != "" {
		like := "%" + filter.Keyword + "%"
		db = db.Where("name ILIKE ? OR reg_no ILIKE ?", like, like)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Offset(offset).Limit(limit).
		Order("reg_no ASC").
		Find(&students).Error; err != nil {
		return nil, 0, err
	}

	return students, total, nil
}

func (r *studentRepo) Delete(ctx context.Context, id string, deletedBy string) error {
	return r.db.WithContext(ctx).
		Model(&model.Student{}).
		Where("student_id = ?", id).
		Updates(map[string]interface{}{
			"deleted_by": deletedBy,
			"deleted_at": gorm.Expr("NOW()"),
		}).Error
}
