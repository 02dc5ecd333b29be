package repository

import (
	"context"

	"gorm.io/gorm"

	"placement-portal/backend/internal/model"
	pkgerrors "placement-portal/backend/pkg/errors"
)

// TrainingModuleRepository 培训模块及其场地分配的数据访问接口
type TrainingModuleRepository interface {
	Create(ctx context.Context, module *model.TrainingModule, assignments []model.ModuleVenueAssignment) error
	GetByID(ctx context.Context, id string) (*model.TrainingModule, error)
	List(ctx context.Context, status string, offset, limit int) ([]model.TrainingModule, int64, error)
	Update(ctx context.Context, module *model.TrainingModule) error
	ListVenueStudentIDs(ctx context.Context, venueID string) ([]string, error)
	// ListByStudent 学生被分配到的模块，Assignments 只含该学生自己的分配
	ListByStudent(ctx context.Context, studentID string) ([]model.TrainingModule, error)
}

type trainingModuleRepo struct {
	db *gorm.DB
}

// NewTrainingModuleRepo 创建 TrainingModuleRepository 实例
func NewTrainingModuleRepo(db *gorm.DB) TrainingModuleRepository {
	return &trainingModuleRepo{db: db}
}

// Create 在同一事务中写入模块与全部场地分配
func (r *trainingModuleRepo) Create(ctx context.Context, module *model.TrainingModule, assignments []model.ModuleVenueAssignment) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Assignments").Create(module).Error; err != nil {
			return err
		}
		if len(assignments) == 0 {
			return nil
		}
		for i := range assignments {
			assignments[i].ModuleID = module.ModuleID
		}
		if err := tx.CreateInBatches(&assignments, 500).Error; err != nil {
			return err
		}
		module.Assignments = assignments
		return nil
	})
}

func (r *trainingModuleRepo) GetByID(ctx context.Context, id string) (*model.TrainingModule, error) {
	var module model.TrainingModule
	err := r.db.WithContext(ctx).
		Preload("Assignments", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Where("module_id = ?", id).
		First(&module).Error
	if err != nil {
		return nil, err
	}
	return &module, nil
}

func (r *trainingModuleRepo) List(ctx context.Context, status string, offset, limit int) ([]model.TrainingModule, int64, error) {
	var modules []model.TrainingModule
	var total int64

	db := r.db.WithContext(ctx).Model(&model.TrainingModule{})
	if status != "" {
		db = db.Where("status = ?", status)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Offset(offset).Limit(limit).
		Order("created_at DESC").
		Find(&modules).Error; err != nil {
		return nil, 0, err
	}

	return modules, total, nil
}

func (r *trainingModuleRepo) Update(ctx context.Context, module *model.TrainingModule) error {
	oldVersion := module.Version
	result := r.db.WithContext(ctx).
		Model(module).
		Where("module_id = ? AND version = ?", module.ModuleID, oldVersion).
		Updates(map[string]interface{}{
			"title":         module.Title,
			"description":   module.Description,
			"duration_days": module.DurationDays,
			"exams_count":   module.ExamsCount,
			"status":        module.Status,
			"completed_at":  module.CompletedAt,
			"updated_by":    module.UpdatedBy,
			"version":       oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	module.Version = oldVersion + 1
	return nil
}

// ListVenueStudentIDs 场地在进行中模块下分配到的学生，按分配先后去重
func (r *trainingModuleRepo) ListVenueStudentIDs(ctx context.Context, venueID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Table("module_venue_assignments AS a").
		Joins("JOIN training_modules m ON m.module_id = a.module_id").
		Where("a.venue_id = ? AND m.status = ? AND m.deleted_at IS NULL", venueID, model.ModuleStatusActive).
		Group("a.student_id").
		Order("MIN(a.created_at) ASC, MIN(a.position) ASC").
		Pluck("a.student_id", &ids).Error
	return ids, err
}

func (r *trainingModuleRepo) ListByStudent(ctx context.Context, studentID string) ([]model.TrainingModule, error) {
	var modules []model.TrainingModule
	err := r.db.WithContext(ctx).
		Preload("Assignments", "student_id = ?", studentID).
		Where("module_id IN (?)", r.db.Table("module_venue_assignments").
			Select("module_id").
			Where("student_id = ?", studentID)).
		Order("created_at DESC").
		Find(&modules).Error
	return modules, err
}
