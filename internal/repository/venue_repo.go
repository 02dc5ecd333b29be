package repository

import (
	"context"

	"gorm.io/gorm"

	"placement-portal/backend/internal/model"
	pkgerrors "placement-portal/backend/pkg/errors"
)

// VenueRepository 场地数据访问接口
type VenueRepository interface {
	Create(ctx context.Context, venue *model.Venue) error
	GetByID(ctx context.Context, id string) (*model.Venue, error)
	GetByIDs(ctx context.Context, ids []string) ([]model.Venue, error)
	List(ctx context.Context, status string) ([]model.Venue, error)
	Update(ctx context.Context, venue *model.Venue) error
	Delete(ctx context.Context, id string, deletedBy string) error
}

type venueRepo struct {
	db *gorm.DB
}

// NewVenueRepo 创建 VenueRepository 实例
func NewVenueRepo(db *gorm.DB) VenueRepository {
	return &venueRepo{db: db}
}

func (r *venueRepo) Create(ctx context.Context, venue *model.Venue) error {
	return r.db.WithContext(ctx).Create(venue).Error
}

func (r *venueRepo) GetByID(ctx context.Context, id string) (*model.Venue, error) {
	var venue model.Venue
	err := r.db.WithContext(ctx).
		Where("venue_id = ?", id).
		First(&venue).Error
	if err != nil {
		return nil, err
	}
	return &venue, nil
}

func (r *venueRepo) GetByIDs(ctx context.Context, ids []string) ([]model.Venue, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var venues []model.Venue
	err := r.db.WithContext(ctx).
		Where("venue_id IN ?", ids).
		Find(&venues).Error
	return venues, err
}

func (r *venueRepo) List(ctx context.Context, status string) ([]model.Venue, error) {
	var venues []model.Venue
	db := r.db.WithContext(ctx)

	if status != "" {
		db = db.Where("status = ?", status)
	}

	err := db.Order("name ASC").Find(&venues).Error
	return venues, err
}

func (r *venueRepo) Update(ctx context.Context, venue *model.Venue) error {
	oldVersion := venue.Version
	result := r.db.WithContext(ctx).
		Model(venue).
		Where("venue_id = ? AND version = ?", venue.VenueID, oldVersion).
		Updates(map[string]interface{}{
			"name":       venue.Name,
			"capacity":   venue.Capacity,
			"status":     venue.Status,
			"staff_id":   venue.StaffID,
			"updated_by": venue.UpdatedBy,
			"version":    oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	venue.Version = oldVersion + 1
	return nil
}

func (r *venueRepo) Delete(ctx context.Context, id string, deletedBy string) error {
	return r.db.WithContext(ctx).
		Model(&model.Venue{}).
		Where("venue_id = ?", id).
		Updates(map[string]interface{}{
			"deleted_by": deletedBy,
			"deleted_at": gorm.Expr("NOW()"),
		}).Error
}
