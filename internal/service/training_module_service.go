package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"placement-portal/backend/internal/dto"
	"placement-portal/backend/internal/model"
	"placement-portal/backend/internal/repository"
	pkgerrors "placement-portal/backend/pkg/errors"
	"placement-portal/backend/pkg/metrics"
)

// ── 培训模块业务错误 ──

var (
	ErrModuleNotFound         = errors.New("培训模块不存在")
	ErrModuleAlreadyCompleted = errors.New("培训模块已结束")
)

// maxScore 单次考试满分
const maxScore = 100

// TrainingModuleService 培训模块业务接口
type TrainingModuleService interface {
	Create(ctx context.Context, req *dto.CreateModuleRequest, callerID string) (*dto.ModuleResponse, error)
	GetByID(ctx context.Context, id string) (*dto.ModuleResponse, error)
	List(ctx context.Context, req *dto.ModuleListRequest) ([]dto.ModuleResponse, int64, error)
	Update(ctx context.Context, id string, req *dto.UpdateModuleRequest, callerID string) (*dto.ModuleResponse, error)
	Complete(ctx context.Context, id string, callerID string) (*dto.ModuleResponse, error)
	RecordScore(ctx context.Context, req *dto.RecordScoreRequest, callerID string) (*dto.RecordScoreResponse, error)
}

type trainingModuleService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewTrainingModuleService 创建 TrainingModuleService 实例
func NewTrainingModuleService(repo *repository.Repository, logger *zap.Logger) TrainingModuleService {
	return &trainingModuleService{repo: repo, logger: logger}
}

// ────────────────────── Create ──────────────────────

// Create 创建模块并按场地容量分配学生
// venue_ids 为空时使用全部 assigned 场地；student_ids 为空时使用 batch 下全部学生
func (s *trainingModuleService) Create(ctx context.Context, req *dto.CreateModuleRequest, callerID string) (*dto.ModuleResponse, error) {
	venues, err := s.resolveVenues(ctx, req.VenueIDs)
	if err != nil {
		return nil, err
	}

	studentIDs, err := s.resolveStudents(ctx, req.StudentIDs, req.Batch)
	if err != nil {
		return nil, err
	}

	plannerVenues := make([]PlannerVenue, 0, len(venues))
	for _, v := range venues {
		plannerVenues = append(plannerVenues, PlannerVenue{VenueID: v.VenueID, Name: v.Name, Capacity: v.Capacity})
	}

	plan, err := PlanVenueAssignment(plannerVenues, studentIDs)
	if err != nil {
		return nil, err
	}

	module := &model.TrainingModule{
		Title:           req.Title,
		Description:     req.Description,
		DurationDays:    req.DurationDays,
		ExamsCount:      req.ExamsCount,
		Batch:           req.Batch,
		Status:          model.ModuleStatusActive,
		UnassignedCount: plan.UnassignedCount,
	}
	module.CreatedBy = &callerID
	module.UpdatedBy = &callerID

	assignments := make([]model.ModuleVenueAssignment, 0, plan.AssignedCount())
	for _, alloc := range plan.Allocations {
		for i, sid := range alloc.StudentIDs {
			assignments = append(assignments, model.ModuleVenueAssignment{
				VenueID:   alloc.VenueID,
				StudentID: sid,
				Position:  alloc.Offset + i,
			})
		}
	}

	if err := s.repo.Module.Create(ctx, module, assignments); err != nil {
		s.logger.Error("创建培训模块失败", zap.Error(err))
		return nil, err
	}

	if plan.UnassignedCount > 0 {
		metrics.UnassignedStudents.Add(float64(plan.UnassignedCount))
		s.logger.Warn("场地容量不足，部分学生未分配",
			zap.String("module_id", module.ModuleID),
			zap.Int("unassigned", plan.UnassignedCount),
		)
	}

	resp := toModuleResponse(module)
	resp.Venues = make([]dto.VenueAllocationResponse, 0, len(plan.Allocations))
	for _, alloc := range plan.Allocations {
		resp.Venues = append(resp.Venues, dto.VenueAllocationResponse{
			VenueID:       alloc.VenueID,
			VenueName:     alloc.Name,
			Capacity:      alloc.Capacity,
			AssignedCount: len(alloc.StudentIDs),
			StudentIDs:    alloc.StudentIDs,
		})
	}
	return resp, nil
}

// ────────────────────── GetByID ──────────────────────

func (s *trainingModuleService) GetByID(ctx context.Context, id string) (*dto.ModuleResponse, error) {
	module, err := s.getModule(ctx, id)
	if err != nil {
		return nil, err
	}

	resp := toModuleResponse(module)

	// 按场地分组，保持首次出现（即 position）顺序
	index := make(map[string]int)
	for _, a := range module.Assignments {
		i, ok := index[a.VenueID]
		if !ok {
			i = len(resp.Venues)
			index[a.VenueID] = i
			resp.Venues = append(resp.Venues, dto.VenueAllocationResponse{VenueID: a.VenueID})
		}
		resp.Venues[i].StudentIDs = append(resp.Venues[i].StudentIDs, a.StudentID)
		resp.Venues[i].AssignedCount++
	}

	if len(index) > 0 {
		ids := make([]string, 0, len(index))
		for id := range index {
			ids = append(ids, id)
		}
		venues, err := s.repo.Venue.GetByIDs(ctx, ids)
		if err != nil {
			s.logger.Error("查询场地失败", zap.Error(err))
			return nil, err
		}
		for _, v := range venues {
			if i, ok := index[v.VenueID]; ok {
				resp.Venues[i].VenueName = v.Name
				resp.Venues[i].Capacity = v.Capacity
			}
		}
	}

	return resp, nil
}

// ────────────────────── List ──────────────────────

func (s *trainingModuleService) List(ctx context.Context, req *dto.ModuleListRequest) ([]dto.ModuleResponse, int64, error) {
	modules, total, err := s.repo.Module.List(ctx, req.Status, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("列出培训模块失败", zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.ModuleResponse, 0, len(modules))
	for i := range modules {
		result = append(result, *toModuleResponse(&modules[i]))
	}
	return result, total, nil
}

// ────────────────────── Update ──────────────────────

// Update 修改标题、描述、天数与考试次数；已结束的模块不可修改。
// 考试次数不能低于已录入成绩的最大考试序号。
func (s *trainingModuleService) Update(ctx context.Context, id string, req *dto.UpdateModuleRequest, callerID string) (*dto.ModuleResponse, error) {
	module, err := s.getModule(ctx, id)
	if err != nil {
		return nil, err
	}
	if module.Status == model.ModuleStatusCompleted {
		return nil, ErrModuleAlreadyCompleted
	}

	if req.ExamsCount != nil && *req.ExamsCount < module.ExamsCount {
		recorded, err := s.repo.ExamScore.MaxExamNumber(ctx, id)
		if err != nil {
			s.logger.Error("查询已录入考试失败", zap.String("id", id), zap.Error(err))
			return nil, err
		}
		if *req.ExamsCount < recorded {
			return nil, pkgerrors.NewValidationError("exams_count", "第 %d 次考试已有成绩，考试次数不能少于 %d", recorded, recorded)
		}
	}

	if req.Title != nil {
		module.Title = *req.Title
	}
	if req.Description != nil {
		module.Description = *req.Description
	}
	if req.DurationDays != nil {
		module.DurationDays = *req.DurationDays
	}
	if req.ExamsCount != nil {
		module.ExamsCount = *req.ExamsCount
	}
	module.UpdatedBy = &callerID

	if err := s.repo.Module.Update(ctx, module); err != nil {
		if !errors.Is(err, pkgerrors.ErrOptimisticLock) {
			s.logger.Error("更新培训模块失败", zap.String("id", id), zap.Error(err))
		}
		return nil, err
	}

	s.logger.Info("培训模块已更新", zap.String("id", id), zap.String("updated_by", callerID))
	return toModuleResponse(module), nil
}

// ────────────────────── Complete ──────────────────────

func (s *trainingModuleService) Complete(ctx context.Context, id string, callerID string) (*dto.ModuleResponse, error) {
	module, err := s.getModule(ctx, id)
	if err != nil {
		return nil, err
	}
	if module.Status == model.ModuleStatusCompleted {
		return nil, ErrModuleAlreadyCompleted
	}

	now := time.Now()
	module.Status = model.ModuleStatusCompleted
	module.CompletedAt = &now
	module.UpdatedBy = &callerID

	if err := s.repo.Module.Update(ctx, module); err != nil {
		s.logger.Error("结束培训模块失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	return toModuleResponse(module), nil
}

// ────────────────────── RecordScore ──────────────────────

// RecordScore 录入（或覆盖）单次考试成绩；学生必须已分配到该模块
func (s *trainingModuleService) RecordScore(ctx context.Context, req *dto.RecordScoreRequest, callerID string) (*dto.RecordScoreResponse, error) {
	if req.Score == nil || *req.Score < 0 || *req.Score > maxScore {
		return nil, pkgerrors.NewValidationError("score", "成绩必须在 0 到 %d 之间", maxScore)
	}

	module, err := s.getModule(ctx, req.ModuleID)
	if err != nil {
		return nil, err
	}
	if req.ExamNumber < 1 || req.ExamNumber > module.ExamsCount {
		return nil, pkgerrors.NewValidationError("exam_number", "该模块共 %d 次考试，实际为 %d", module.ExamsCount, req.ExamNumber)
	}

	if _, err := s.repo.Student.GetByID(ctx, req.StudentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStudentNotFound
		}
		s.logger.Error("查询学生失败", zap.String("id", req.StudentID), zap.Error(err))
		return nil, err
	}
	assigned := false
	for _, a := range module.Assignments {
		if a.StudentID == req.StudentID {
			assigned = true
			break
		}
	}
	if !assigned {
		return nil, ErrStudentNotInModule
	}

	score := &model.ExamScore{
		ModuleID:   module.ModuleID,
		StudentID:  req.StudentID,
		ExamNumber: req.ExamNumber,
		Score:      *req.Score,
		RecordedBy: &callerID,
	}
	if err := s.repo.ExamScore.Upsert(ctx, score); err != nil {
		s.logger.Error("录入成绩失败", zap.String("module_id", module.ModuleID), zap.String("student_id", req.StudentID), zap.Error(err))
		return nil, err
	}

	return &dto.RecordScoreResponse{
		StudentID:  score.StudentID,
		ModuleID:   score.ModuleID,
		ExamNumber: score.ExamNumber,
		Score:      score.Score,
		UpdatedAt:  formatTime(score.UpdatedAt),
	}, nil
}

// ── 内部辅助方法 ──

func (s *trainingModuleService) getModule(ctx context.Context, id string) (*model.TrainingModule, error) {
	module, err := s.repo.Module.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrModuleNotFound
		}
		s.logger.Error("查询培训模块失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return module, nil
}

func (s *trainingModuleService) resolveVenues(ctx context.Context, ids []string) ([]model.Venue, error) {
	if len(ids) == 0 {
		venues, err := s.repo.Venue.List(ctx, model.VenueStatusAssigned)
		if err != nil {
			s.logger.Error("列出场地失败", zap.Error(err))
		}
		return venues, err
	}

	venues, err := s.repo.Venue.GetByIDs(ctx, ids)
	if err != nil {
		s.logger.Error("查询场地失败", zap.Error(err))
		return nil, err
	}

	byID := make(map[string]model.Venue, len(venues))
	for _, v := range venues {
		byID[v.VenueID] = v
	}

	seen := make(map[string]bool, len(ids))
	result := make([]model.Venue, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		v, ok := byID[id]
		if !ok {
			return nil, pkgerrors.NewValidationError("venue_ids", "场地 %s 不存在", id)
		}
		if v.Status != model.VenueStatusAssigned {
			return nil, pkgerrors.NewValidationError("venue_ids", "场地 %q 尚未指派负责人，不可用于分配", v.Name)
		}
		result = append(result, v)
	}
	return result, nil
}

func (s *trainingModuleService) resolveStudents(ctx context.Context, ids []string, batch string) ([]string, error) {
	if len(ids) == 0 {
		all, err := s.repo.Student.ListIDs(ctx, batch)
		if err != nil {
			s.logger.Error("列出学生失败", zap.Error(err))
		}
		return all, err
	}

	students, err := s.repo.Student.GetByIDs(ctx, ids)
	if err != nil {
		s.logger.Error("查询学生失败", zap.Error(err))
		return nil, err
	}
	known := make(map[string]bool, len(students))
	for _, st := range students {
		known[st.StudentID] = true
	}
	for _, id := range ids {
		if !known[id] {
			return nil, pkgerrors.NewValidationError("student_ids", "学生 %s 不存在", id)
		}
	}
	return ids, nil
}

func toModuleResponse(m *model.TrainingModule) *dto.ModuleResponse {
	resp := &dto.ModuleResponse{
		ID:              m.ModuleID,
		Title:           m.Title,
		Description:     m.Description,
		DurationDays:    m.DurationDays,
		ExamsCount:      m.ExamsCount,
		Batch:           m.Batch,
		Status:          m.Status,
		UnassignedCount: m.UnassignedCount,
		CreatedAt:       formatTime(m.CreatedAt),
	}
	if m.CompletedAt != nil {
		resp.CompletedAt = formatTime(*m.CompletedAt)
	}
	return resp
}
