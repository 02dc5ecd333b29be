package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"placement-portal/backend/internal/dto"
	"placement-portal/backend/internal/model"
	"placement-portal/backend/internal/repository"
)

// ── 场地模块业务错误 ──

var (
	ErrVenueNotFound = errors.New("场地不存在")
	ErrStaffNotFound = errors.New("场地负责人不存在")
	ErrNotStaff      = errors.New("只能指派 staff 角色的账号")
)

// VenueService 场地业务接口
type VenueService interface {
	Create(ctx context.Context, req *dto.CreateVenueRequest, callerID string) (*dto.VenueResponse, error)
	GetByID(ctx context.Context, id string) (*dto.VenueResponse, error)
	List(ctx context.Context, req *dto.VenueListRequest) ([]dto.VenueResponse, error)
	Update(ctx context.Context, id string, req *dto.UpdateVenueRequest, callerID string) (*dto.VenueResponse, error)
	Delete(ctx context.Context, id string, callerID string) error
	AssignStaff(ctx context.Context, id string, req *dto.AssignStaffRequest, callerID string) (*dto.VenueResponse, error)
	ListStudents(ctx context.Context, auth AuthContext, id string) (*dto.VenueStudentsResponse, error)
}

type venueService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewVenueService 创建 VenueService 实例
func NewVenueService(repo *repository.Repository, logger *zap.Logger) VenueService {
	return &venueService{repo: repo, logger: logger}
}

// ────────────────────── Create ──────────────────────

func (s *venueService) Create(ctx context.Context, req *dto.CreateVenueRequest, callerID string) (*dto.VenueResponse, error) {
	venue := &model.Venue{
		Name:     req.Name,
		Capacity: req.Capacity,
		Status:   model.VenueStatusUnassigned,
	}
	venue.CreatedBy = &callerID
	venue.UpdatedBy = &callerID

	if err := s.repo.Venue.Create(ctx, venue); err != nil {
		s.logger.Error("创建场地失败", zap.Error(err))
		return nil, err
	}

	return toVenueResponse(venue), nil
}

// ────────────────────── GetByID ──────────────────────

func (s *venueService) GetByID(ctx context.Context, id string) (*dto.VenueResponse, error) {
	venue, err := s.getVenue(ctx, id)
	if err != nil {
		return nil, err
	}
	return toVenueResponse(venue), nil
}

// ────────────────────── List ──────────────────────

func (s *venueService) List(ctx context.Context, req *dto.VenueListRequest) ([]dto.VenueResponse, error) {
	venues, err := s.repo.Venue.List(ctx, req.Status)
	if err != nil {
		s.logger.Error("列出场地失败", zap.Error(err))
		return nil, err
	}

	result := make([]dto.VenueResponse, 0, len(venues))
	for i := range venues {
		result = append(result, *toVenueResponse(&venues[i]))
	}
	return result, nil
}

// ────────────────────── Update ──────────────────────

func (s *venueService) Update(ctx context.Context, id string, req *dto.UpdateVenueRequest, callerID string) (*dto.VenueResponse, error) {
	venue, err := s.getVenue(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		venue.Name = *req.Name
	}
	if req.Capacity != nil {
		venue.Capacity = *req.Capacity
	}
	venue.UpdatedBy = &callerID

	if err := s.repo.Venue.Update(ctx, venue); err != nil {
		s.logger.Error("更新场地失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	return toVenueResponse(venue), nil
}

// ────────────────────── Delete ──────────────────────

func (s *venueService) Delete(ctx context.Context, id string, callerID string) error {
	if _, err := s.getVenue(ctx, id); err != nil {
		return err
	}

	if err := s.repo.Venue.Delete(ctx, id, callerID); err != nil {
		s.logger.Error("删除场地失败", zap.String("id", id), zap.Error(err))
		return err
	}
	return nil
}

// ────────────────────── AssignStaff ──────────────────────

// AssignStaff 指派负责人后场地变为 assigned，可参与模块分配
// 负责人原先负责的场地与本场地原负责人同时解除
func (s *venueService) AssignStaff(ctx context.Context, id string, req *dto.AssignStaffRequest, callerID string) (*dto.VenueResponse, error) {
	var result *model.Venue

	err := s.repo.Transaction(ctx, func(txRepo *repository.Repository) error {
		venue, err := txRepo.Venue.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrVenueNotFound
			}
			return err
		}

		staff, err := txRepo.User.GetByID(ctx, req.StaffID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrStaffNotFound
			}
			return err
		}
		if staff.Role != model.RoleStaff {
			return ErrNotStaff
		}

		// 负责人原先的场地
		if staff.VenueID != nil && *staff.VenueID != venue.VenueID {
			prev, err := txRepo.Venue.GetByID(ctx, *staff.VenueID)
			if err == nil {
				prev.StaffID = nil
				prev.Status = model.VenueStatusUnassigned
				prev.UpdatedBy = &callerID
				if err := txRepo.Venue.Update(ctx, prev); err != nil {
					return err
				}
			} else if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
		}

		// 本场地原负责人
		if venue.StaffID != nil && *venue.StaffID != staff.UserID {
			prevStaff, err := txRepo.User.GetByID(ctx, *venue.StaffID)
			if err == nil {
				prevStaff.VenueID = nil
				prevStaff.UpdatedBy = &callerID
				if err := txRepo.User.Update(ctx, prevStaff); err != nil {
					return err
				}
			} else if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
		}

		venue.StaffID = &staff.UserID
		venue.Status = model.VenueStatusAssigned
		venue.UpdatedBy = &callerID
		if err := txRepo.Venue.Update(ctx, venue); err != nil {
			return err
		}

		staff.VenueID = &venue.VenueID
		staff.UpdatedBy = &callerID
		if err := txRepo.User.Update(ctx, staff); err != nil {
			return err
		}

		result = venue
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrVenueNotFound) && !errors.Is(err, ErrStaffNotFound) && !errors.Is(err, ErrNotStaff) {
			s.logger.Error("指派场地负责人失败", zap.String("venue_id", id), zap.Error(err))
		}
		return nil, err
	}

	s.logger.Info("场地负责人已指派", zap.String("venue_id", id), zap.String("staff_id", req.StaffID))
	return toVenueResponse(result), nil
}

// ────────────────────── ListStudents ──────────────────────

// ListStudents 场地在进行中模块下的学生名单（考勤表）
func (s *venueService) ListStudents(ctx context.Context, auth AuthContext, id string) (*dto.VenueStudentsResponse, error) {
	auth, err := withCurrentVenue(ctx, s.repo.User, auth)
	if err != nil {
		return nil, err
	}
	if !auth.IsAdmin() && auth.VenueID != id {
		return nil, ErrForbidden
	}
	if _, err := s.getVenue(ctx, id); err != nil {
		return nil, err
	}

	ids, err := s.repo.Module.ListVenueStudentIDs(ctx, id)
	if err != nil {
		s.logger.Error("查询场地学生失败", zap.String("venue_id", id), zap.Error(err))
		return nil, err
	}
	students, err := s.repo.Student.GetByIDs(ctx, ids)
	if err != nil {
		s.logger.Error("查询学生失败", zap.Error(err))
		return nil, err
	}

	byID := make(map[string]*model.Student, len(students))
	for i := range students {
		byID[students[i].StudentID] = &students[i]
	}

	resp := &dto.VenueStudentsResponse{VenueID: id, Students: make([]dto.StudentResponse, 0, len(ids))}
	for _, sid := range ids {
		if st, ok := byID[sid]; ok {
			resp.Students = append(resp.Students, *toStudentResponse(st))
		}
	}
	return resp, nil
}

// ── 内部辅助方法 ──

func (s *venueService) getVenue(ctx context.Context, id string) (*model.Venue, error) {
	venue, err := s.repo.Venue.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVenueNotFound
		}
		s.logger.Error("查询场地失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return venue, nil
}

func toVenueResponse(v *model.Venue) *dto.VenueResponse {
	resp := &dto.VenueResponse{
		ID:        v.VenueID,
		Name:      v.Name,
		Capacity:  v.Capacity,
		Status:    v.Status,
		Version:   v.Version,
		CreatedAt: formatTime(v.CreatedAt),
		UpdatedAt: formatTime(v.UpdatedAt),
	}
	if v.StaffID != nil {
		resp.StaffID = *v.StaffID
	}
	return resp
}
