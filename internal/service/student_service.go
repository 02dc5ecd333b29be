package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"placement-portal/backend/internal/dto"
	"placement-portal/backend/internal/model"
	"placement-portal/backend/internal/repository"
)

// ── 学生模块业务错误 ──

var (
	ErrStudentNotFound = errors.New("学生不存在")
	ErrRegNoExists     = errors.New("学号已存在")
)

// StudentService 学生名册业务接口
type StudentService interface {
	Create(ctx context.Context, req *dto.CreateStudentRequest, callerID string) (*dto.StudentResponse, error)
	GetByID(ctx context.Context, id string) (*dto.StudentResponse, error)
	List(ctx context.Context, req *dto.StudentListRequest) ([]dto.StudentResponse, int64, error)
	Delete(ctx context.Context, id string, callerID string) error
}

type studentService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewStudentService 创建 StudentService 实例
func NewStudentService(repo *repository.Repository, logger *zap.Logger) StudentService {
	return &studentService{repo: repo, logger: logger}
}

// ────────────────────── Create ──────────────────────

func (s *studentService) Create(ctx context.Context, req *dto.CreateStudentRequest, callerID string) (*dto.StudentResponse, error) {
	regNo := strings.ToUpper(strings.TrimSpace(req.RegNo))

	if _, err := s.repo.Student.GetByRegNo(ctx, regNo); err == nil {
		return nil, ErrRegNoExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询学生失败", zap.Error(err))
		return nil, err
	}

	// 学生端初始密码，未指定时为学号
	password := req.Password
	if password == "" {
		password = regNo
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("密码哈希失败", zap.Error(err))
		return nil, err
	}

	student := &model.Student{
		Name:         strings.TrimSpace(req.Name),
		RegNo:        regNo,
		Department:   strings.TrimSpace(req.Department),
		Batch:        strings.TrimSpace(req.Batch),
		PassoutYear:  req.PassoutYear,
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: string(hash),
	}
	student.CreatedBy = &callerID
	student.UpdatedBy = &callerID

	if err := s.repo.Student.Create(ctx, student); err != nil {
		s.logger.Error("创建学生失败", zap.Error(err))
		return nil, err
	}

	return toStudentResponse(student), nil
}

// ────────────────────── GetByID ──────────────────────

func (s *studentService) GetByID(ctx context.Context, id string) (*dto.StudentResponse, error) {
	student, err := s.repo.Student.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStudentNotFound
		}
		s.logger.Error("查询学生失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return toStudentResponse(student), nil
}

// ────────────────────── List ──────────────────────

func (s *studentService) List(ctx context.Context, req *dto.StudentListRequest) ([]dto.StudentResponse, int64, error) {
	filter := repository.StudentFilter{
		Department: req.Department,
		Batch:      req.Batch,
		Keyword:    req.Keyword,
	}
	students, total, err := s.repo.Student.List(ctx, filter, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("列出学生失败", zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.StudentResponse, 0, len(students))
	for i := range students {
		result = append(result, *toStudentResponse(&students[i]))
	}
	return result, total, nil
}

// ────────────────────── Delete ──────────────────────

func (s *studentService) Delete(ctx context.Context, id string, callerID string) error {
	if _, err := s.repo.Student.GetByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrStudentNotFound
		}
		s.logger.Error("查询学生失败", zap.String("id", id), zap.Error(err))
		return err
	}

	if err := s.repo.Student.Delete(ctx, id, callerID); err != nil {
		s.logger.Error("删除学生失败", zap.String("id", id), zap.Error(err))
		return err
	}
	return nil
}

// ── 内部辅助方法 ──

func toStudentResponse(st *model.Student) *dto.StudentResponse {
	return &dto.StudentResponse{
		ID:          st.StudentID,
		Name:        st.Name,
		RegNo:       st.RegNo,
		Department:  st.Department,
		Batch:       st.Batch,
		PassoutYear: st.PassoutYear,
		Email:       st.Email,
		CreatedAt:   formatTime(st.CreatedAt),
	}
}
