package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"placement-portal/backend/internal/dto"
	"placement-portal/backend/internal/model"
)

func TestCreateUser(t *testing.T) {
	m, repo := newMockRepos()
	svc := NewUserService(repo, zap.NewNop())
	ctx := context.Background()

	resp, err := svc.CreateUser(ctx, &dto.CreateUserRequest{
		Name:     "Ravi",
		Email:    " Ravi@Portal.test ",
		Password: "password123",
		Role:     model.RoleStaff,
	}, "admin-1")
	if err != nil {
		t.Fatalf("CreateUser 应成功: %v", err)
	}
	if resp.Email != "ravi@portal.test" {
		t.Errorf("邮箱应规范化为小写，实际=%s", resp.Email)
	}
	stored := m.user.users[resp.ID]
	if stored == nil || stored.PasswordHash == "password123" || stored.PasswordHash == "" {
		t.Error("密码应以哈希形式保存")
	}

	_, err = svc.CreateUser(ctx, &dto.CreateUserRequest{
		Name:     "Ravi 2",
		Email:    "ravi@portal.test",
		Password: "password123",
		Role:     model.RoleStaff,
	}, "admin-1")
	if !errors.Is(err, ErrEmailExists) {
		t.Errorf("期望 ErrEmailExists，实际=%v", err)
	}
}

func TestListUsers_FilterByRole(t *testing.T) {
	m, repo := newMockRepos()
	svc := NewUserService(repo, zap.NewNop())
	ctx := context.Background()

	_ = m.user.Create(ctx, &model.User{Name: "A", Email: "a@portal.test", Role: model.RoleAdmin})
	_ = m.user.Create(ctx, &model.User{Name: "B", Email: "b@portal.test", Role: model.RoleStaff})
	_ = m.user.Create(ctx, &model.User{Name: "C", Email: "c@portal.test", Role: model.RoleStaff})

	list, total, err := svc.List(ctx, &dto.UserListRequest{Role: model.RoleStaff})
	if err != nil {
		t.Fatalf("List 应成功: %v", err)
	}
	if total != 2 || len(list) != 2 {
		t.Errorf("期望 2 名 staff，实际 total=%d len=%d", total, len(list))
	}

	if _, err := svc.GetByID(ctx, "missing"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("期望 ErrUserNotFound，实际=%v", err)
	}
}
