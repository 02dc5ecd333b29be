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

// ErrStudentNotInModule 学生未被分配到该模块
var ErrStudentNotInModule = errors.New("学生未分配到该模块")

// StudentPortalService 学生端：模块列表、档案与单模块表现
// 学生只能查看自己；staff 只能查看当前场地名单内的学生；admin 不受限
type StudentPortalService interface {
	Modules(ctx context.Context, auth AuthContext) ([]dto.StudentModuleResponse, error)
	Profile(ctx context.Context, auth AuthContext, studentID string) (*dto.StudentProfileResponse, error)
	ModulePerformance(ctx context.Context, auth AuthContext, studentID, moduleID string) (*dto.ModulePerformanceResponse, error)
}

type studentPortalService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewStudentPortalService 创建 StudentPortalService 实例
func NewStudentPortalService(repo *repository.Repository, logger *zap.Logger) StudentPortalService {
	return &studentPortalService{repo: repo, logger: logger}
}

// studentView 一名学生的模块、考勤与成绩
type studentView struct {
	student *model.Student
	modules []model.TrainingModule
	venues  map[string]string // venue_id → 名称
	records []model.AttendanceRecord
	scores  []model.ExamScore
}

// ────────────────────── Modules ──────────────────────

func (s *studentPortalService) Modules(ctx context.Context, auth AuthContext) ([]dto.StudentModuleResponse, error) {
	if auth.Role != model.RoleStudent {
		return nil, ErrForbidden
	}
	modules, err := s.repo.Module.ListByStudent(ctx, auth.UserID)
	if err != nil {
		s.logger.Error("查询学生模块失败", zap.String("student_id", auth.UserID), zap.Error(err))
		return nil, err
	}
	venues, err := s.venueNames(ctx, modules)
	if err != nil {
		return nil, err
	}

	result := make([]dto.StudentModuleResponse, 0, len(modules))
	for i := range modules {
		result = append(result, toStudentModuleResponse(&modules[i], venues))
	}
	return result, nil
}

// ────────────────────── Profile ──────────────────────

func (s *studentPortalService) Profile(ctx context.Context, auth AuthContext, studentID string) (*dto.StudentProfileResponse, error) {
	view, err := s.load(ctx, auth, studentID)
	if err != nil {
		return nil, err
	}

	resp := &dto.StudentProfileResponse{
		Student:  *toStudentResponse(view.student),
		Progress: make([]dto.ModulePerformanceResponse, 0, len(view.modules)),
	}
	for i := range view.modules {
		perf := toModulePerformance(&view.modules[i], view)
		perf.Attendance.Details = nil
		resp.Progress = append(resp.Progress, perf)
	}
	return resp, nil
}

// ────────────────────── ModulePerformance ──────────────────────

func (s *studentPortalService) ModulePerformance(ctx context.Context, auth AuthContext, studentID, moduleID string) (*dto.ModulePerformanceResponse, error) {
	view, err := s.load(ctx, auth, studentID)
	if err != nil {
		return nil, err
	}

	for i := range view.modules {
		if view.modules[i].ModuleID == moduleID {
			perf := toModulePerformance(&view.modules[i], view)
			return &perf, nil
		}
	}

	if _, err := s.repo.Module.GetByID(ctx, moduleID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrModuleNotFound
		}
		s.logger.Error("查询培训模块失败", zap.String("id", moduleID), zap.Error(err))
		return nil, err
	}
	return nil, ErrStudentNotInModule
}

// ── 内部辅助方法 ──

func (s *studentPortalService) load(ctx context.Context, auth AuthContext, studentID string) (*studentView, error) {
	if err := s.authorize(ctx, auth, studentID); err != nil {
		return nil, err
	}

	student, err := s.repo.Student.GetByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStudentNotFound
		}
		s.logger.Error("查询学生失败", zap.String("id", studentID), zap.Error(err))
		return nil, err
	}

	view := &studentView{student: student}
	if view.modules, err = s.repo.Module.ListByStudent(ctx, studentID); err != nil {
		s.logger.Error("查询学生模块失败", zap.String("student_id", studentID), zap.Error(err))
		return nil, err
	}
	if view.venues, err = s.venueNames(ctx, view.modules); err != nil {
		return nil, err
	}
	if view.records, err = s.repo.Attendance.ListByStudent(ctx, studentID, "", ""); err != nil {
		s.logger.Error("查询学生考勤失败", zap.String("student_id", studentID), zap.Error(err))
		return nil, err
	}
	if view.scores, err = s.repo.ExamScore.ListByStudent(ctx, studentID, ""); err != nil {
		s.logger.Error("查询学生成绩失败", zap.String("student_id", studentID), zap.Error(err))
		return nil, err
	}
	return view, nil
}

func (s *studentPortalService) authorize(ctx context.Context, auth AuthContext, studentID string) error {
	switch auth.Role {
	case model.RoleAdmin:
		return nil
	case model.RoleStudent:
		if auth.UserID != studentID {
			return ErrForbidden
		}
		return nil
	}

	current, err := withCurrentVenue(ctx, s.repo.User, auth)
	if err != nil {
		return err
	}
	if current.VenueID == "" {
		return ErrForbidden
	}
	roster, err := s.repo.Module.ListVenueStudentIDs(ctx, current.VenueID)
	if err != nil {
		s.logger.Error("查询场地学生失败", zap.String("venue_id", current.VenueID), zap.Error(err))
		return err
	}
	for _, id := range roster {
		if id == studentID {
			return nil
		}
	}
	return ErrForbidden
}

func (s *studentPortalService) venueNames(ctx context.Context, modules []model.TrainingModule) (map[string]string, error) {
	var ids []string
	seen := make(map[string]bool)
	for _, m := range modules {
		for _, a := range m.Assignments {
			if !seen[a.VenueID] {
				seen[a.VenueID] = true
				ids = append(ids, a.VenueID)
			}
		}
	}
	names := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}
	venues, err := s.repo.Venue.GetByIDs(ctx, ids)
	if err != nil {
		s.logger.Error("查询场地失败", zap.Error(err))
		return nil, err
	}
	for _, v := range venues {
		names[v.VenueID] = v.Name
	}
	return names, nil
}

func assignedVenue(m *model.TrainingModule) string {
	if len(m.Assignments) == 0 {
		return ""
	}
	return m.Assignments[0].VenueID
}

func toStudentModuleResponse(m *model.TrainingModule, venues map[string]string) dto.StudentModuleResponse {
	venueID := assignedVenue(m)
	resp := dto.StudentModuleResponse{
		ID:           m.ModuleID,
		Title:        m.Title,
		Description:  m.Description,
		DurationDays: m.DurationDays,
		ExamsCount:   m.ExamsCount,
		Status:       m.Status,
		VenueID:      venueID,
		VenueName:    venues[venueID],
		CreatedAt:    formatTime(m.CreatedAt),
	}
	if m.CompletedAt != nil {
		resp.CompletedAt = formatTime(*m.CompletedAt)
	}
	return resp
}

func toModulePerformance(m *model.TrainingModule, view *studentView) dto.ModulePerformanceResponse {
	p := ComputeModuleProgress(m, assignedVenue(m), view.records, view.scores)

	resp := dto.ModulePerformanceResponse{
		Module:       toStudentModuleResponse(m, view.venues),
		AverageScore: p.AverageScore,
		ExamScores:   make([]dto.ExamScoreResponse, 0, len(p.Scores)),
		Attendance: dto.StudentAttendanceResponse{
			Percentage: p.Percentage,
			Present:    p.Present,
			Absent:     p.Absent,
			OnDuty:     p.OnDuty,
			Total:      p.Total,
			Details:    make([]dto.AttendanceDetailResponse, 0, len(p.Records)),
		},
	}
	for i, sc := range p.Scores {
		resp.ExamScores = append(resp.ExamScores, dto.ExamScoreResponse{ExamNumber: i + 1, Score: sc})
	}
	for _, r := range p.Records {
		resp.Attendance.Details = append(resp.Attendance.Details, dto.AttendanceDetailResponse{
			Date:    r.Date.String(),
			Session: r.Session,
			Status:  r.Status,
		})
	}
	return resp
}
