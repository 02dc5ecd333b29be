package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"placement-portal/backend/internal/dto"
	"placement-portal/backend/internal/model"
	pkgerrors "placement-portal/backend/pkg/errors"
)

func setupModuleService(t *testing.T) (*mockRepos, TrainingModuleService) {
	t.Helper()
	m, repo := newMockRepos()
	ctx := context.Background()

	_ = m.venue.Create(ctx, &model.Venue{VenueID: "v-b", Name: "Hall B", Capacity: 2, Status: model.VenueStatusAssigned})
	_ = m.venue.Create(ctx, &model.Venue{VenueID: "v-a", Name: "Hall A", Capacity: 3, Status: model.VenueStatusAssigned})
	_ = m.venue.Create(ctx, &model.Venue{VenueID: "v-c", Name: "Hall C", Capacity: 5, Status: model.VenueStatusUnassigned})
	for _, id := range []string{"s1", "s2", "s3", "s4", "s5", "s6", "s7"} {
		m.student.add(id, "Student "+id, "CSE")
	}
	return m, NewTrainingModuleService(repo, zap.NewNop())
}

func TestModuleCreate_CapacityShortfall(t *testing.T) {
	m, svc := setupModuleService(t)

	resp, err := svc.Create(context.Background(), &dto.CreateModuleRequest{
		Title:        "Aptitude",
		DurationDays: 5,
	}, "admin-1")
	if err != nil {
		t.Fatalf("Create 应成功: %v", err)
	}

	// 仅 assigned 场地参与分配，按名称排序：Hall A(3) → Hall B(2)
	if len(resp.Venues) != 2 {
		t.Fatalf("期望 2 个场地，实际=%d", len(resp.Venues))
	}
	if resp.Venues[0].VenueID != "v-a" || resp.Venues[0].AssignedCount != 3 {
		t.Errorf("Hall A 期望分配 3 人，实际=%+v", resp.Venues[0])
	}
	if resp.Venues[1].VenueID != "v-b" || resp.Venues[1].AssignedCount != 2 {
		t.Errorf("Hall B 期望分配 2 人，实际=%+v", resp.Venues[1])
	}
	if resp.UnassignedCount != 2 {
		t.Errorf("期望未分配 2 人，实际=%d", resp.UnassignedCount)
	}
	if resp.Status != model.ModuleStatusActive {
		t.Errorf("新模块应为 active，实际=%s", resp.Status)
	}

	stored := m.module.modules[resp.ID]
	if len(stored.Assignments) != 5 {
		t.Fatalf("期望持久化 5 条分配，实际=%d", len(stored.Assignments))
	}
	for i, a := range stored.Assignments {
		if a.Position != i {
			t.Errorf("第 %d 条分配 position 期望 %d，实际=%d", i, i, a.Position)
		}
	}
	if stored.Assignments[3].VenueID != "v-b" || stored.Assignments[3].StudentID != "s4" {
		t.Errorf("s4 应分配到 Hall B，实际=%+v", stored.Assignments[3])
	}
}

func TestModuleCreate_ExplicitVenuesAndStudents(t *testing.T) {
	_, svc := setupModuleService(t)

	resp, err := svc.Create(context.Background(), &dto.CreateModuleRequest{
		Title:        "Coding",
		DurationDays: 3,
		VenueIDs:     []string{"v-b"},
		StudentIDs:   []string{"s7", "s1"},
	}, "admin-1")
	if err != nil {
		t.Fatalf("Create 应成功: %v", err)
	}
	if resp.UnassignedCount != 0 || len(resp.Venues) != 1 {
		t.Fatalf("期望全部分配到 Hall B，实际=%+v", resp)
	}
	ids := resp.Venues[0].StudentIDs
	if len(ids) != 2 || ids[0] != "s7" || ids[1] != "s1" {
		t.Errorf("应保持提交顺序，实际=%v", ids)
	}
}

func TestModuleCreate_RejectsUnusableVenue(t *testing.T) {
	_, svc := setupModuleService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, &dto.CreateModuleRequest{Title: "X", DurationDays: 1, VenueIDs: []string{"v-c"}}, "admin-1")
	if _, ok := pkgerrors.AsValidation(err); !ok {
		t.Errorf("未指派负责人的场地应被拒绝，实际=%v", err)
	}

	_, err = svc.Create(ctx, &dto.CreateModuleRequest{Title: "X", DurationDays: 1, VenueIDs: []string{"v-missing"}}, "admin-1")
	if _, ok := pkgerrors.AsValidation(err); !ok {
		t.Errorf("不存在的场地应被拒绝，实际=%v", err)
	}

	_, err = svc.Create(ctx, &dto.CreateModuleRequest{Title: "X", DurationDays: 1, StudentIDs: []string{"nobody"}}, "admin-1")
	if _, ok := pkgerrors.AsValidation(err); !ok {
		t.Errorf("不存在的学生应被拒绝，实际=%v", err)
	}
}

func TestModuleCreate_NonPositiveCapacity(t *testing.T) {
	m, svc := setupModuleService(t)
	m.venue.venues["v-a"].Capacity = 0

	_, err := svc.Create(context.Background(), &dto.CreateModuleRequest{Title: "X", DurationDays: 1}, "admin-1")
	if _, ok := pkgerrors.AsValidation(err); !ok {
		t.Errorf("容量为 0 应返回 ValidationError，实际=%v", err)
	}
	if len(m.module.modules) != 0 {
		t.Error("校验失败时不应创建模块")
	}
}

func TestModuleGetByID_GroupsByVenue(t *testing.T) {
	_, svc := setupModuleService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, &dto.CreateModuleRequest{Title: "Aptitude", DurationDays: 5}, "admin-1")
	if err != nil {
		t.Fatalf("Create 应成功: %v", err)
	}

	got, err := svc.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetByID 应成功: %v", err)
	}
	if len(got.Venues) != 2 {
		t.Fatalf("期望 2 个场地，实际=%d", len(got.Venues))
	}
	if got.Venues[0].VenueName != "Hall A" || got.Venues[0].Capacity != 3 || got.Venues[0].AssignedCount != 3 {
		t.Errorf("Hall A 信息不符: %+v", got.Venues[0])
	}

	if _, err := svc.GetByID(ctx, "missing"); !errors.Is(err, ErrModuleNotFound) {
		t.Errorf("期望 ErrModuleNotFound，实际=%v", err)
	}
}

func TestModuleComplete(t *testing.T) {
	m, svc := setupModuleService(t)
	ctx := context.Background()

	created, _ := svc.Create(ctx, &dto.CreateModuleRequest{Title: "Aptitude", DurationDays: 5}, "admin-1")

	resp, err := svc.Complete(ctx, created.ID, "admin-1")
	if err != nil {
		t.Fatalf("Complete 应成功: %v", err)
	}
	if resp.Status != model.ModuleStatusCompleted || resp.CompletedAt == "" {
		t.Errorf("期望 completed 且有结束时间，实际=%+v", resp)
	}

	if _, err := svc.Complete(ctx, created.ID, "admin-1"); !errors.Is(err, ErrModuleAlreadyCompleted) {
		t.Errorf("重复结束期望 ErrModuleAlreadyCompleted，实际=%v", err)
	}

	// 结束后场地名单不再包含该模块学生
	ids, _ := m.module.ListVenueStudentIDs(ctx, "v-a")
	if len(ids) != 0 {
		t.Errorf("已结束模块不应出现在场地名单，实际=%v", ids)
	}
}

func TestModuleList(t *testing.T) {
	_, svc := setupModuleService(t)
	ctx := context.Background()

	a, _ := svc.Create(ctx, &dto.CreateModuleRequest{Title: "A", DurationDays: 1}, "admin-1")
	_, _ = svc.Create(ctx, &dto.CreateModuleRequest{Title: "B", DurationDays: 1}, "admin-1")
	_, _ = svc.Complete(ctx, a.ID, "admin-1")

	list, total, err := svc.List(ctx, &dto.ModuleListRequest{Status: model.ModuleStatusActive})
	if err != nil {
		t.Fatalf("List 应成功: %v", err)
	}
	if total != 1 || len(list) != 1 || list[0].Title != "B" {
		t.Errorf("期望仅 1 个 active 模块 B，实际 total=%d list=%+v", total, list)
	}
}

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

func TestModuleUpdate(t *testing.T) {
	_, svc := setupModuleService(t)
	ctx := context.Background()

	created, _ := svc.Create(ctx, &dto.CreateModuleRequest{Title: "Aptitude", DurationDays: 5, ExamsCount: 2}, "admin-1")

	title := "Aptitude II"
	resp, err := svc.Update(ctx, created.ID, &dto.UpdateModuleRequest{Title: &title, ExamsCount: intPtr(4)}, "admin-2")
	if err != nil {
		t.Fatalf("Update 应成功: %v", err)
	}
	if resp.Title != title || resp.ExamsCount != 4 || resp.DurationDays != 5 {
		t.Errorf("仅应修改提交的字段，实际=%+v", resp)
	}

	_, _ = svc.Complete(ctx, created.ID, "admin-1")
	if _, err := svc.Update(ctx, created.ID, &dto.UpdateModuleRequest{Title: &title}, "admin-1"); !errors.Is(err, ErrModuleAlreadyCompleted) {
		t.Errorf("已结束模块期望 ErrModuleAlreadyCompleted，实际=%v", err)
	}
	if _, err := svc.Update(ctx, "missing", &dto.UpdateModuleRequest{Title: &title}, "admin-1"); !errors.Is(err, ErrModuleNotFound) {
		t.Errorf("期望 ErrModuleNotFound，实际=%v", err)
	}
}

func TestModuleUpdate_ExamsCountBelowRecorded(t *testing.T) {
	_, svc := setupModuleService(t)
	ctx := context.Background()

	created, _ := svc.Create(ctx, &dto.CreateModuleRequest{Title: "Coding", DurationDays: 3, ExamsCount: 3, StudentIDs: []string{"s1"}}, "admin-1")
	if _, err := svc.RecordScore(ctx, &dto.RecordScoreRequest{StudentID: "s1", ModuleID: created.ID, ExamNumber: 2, Score: floatPtr(70)}, "admin-1"); err != nil {
		t.Fatalf("RecordScore 应成功: %v", err)
	}

	_, err := svc.Update(ctx, created.ID, &dto.UpdateModuleRequest{ExamsCount: intPtr(1)}, "admin-1")
	if ve, ok := pkgerrors.AsValidation(err); !ok || ve.Field != "exams_count" {
		t.Fatalf("期望 exams_count 校验错误，实际=%v", err)
	}

	// 不低于已录入的最大考试序号时允许减少
	if resp, err := svc.Update(ctx, created.ID, &dto.UpdateModuleRequest{ExamsCount: intPtr(2)}, "admin-1"); err != nil || resp.ExamsCount != 2 {
		t.Errorf("减少到 2 应成功，实际 resp=%+v err=%v", resp, err)
	}
}

func TestModuleRecordScore(t *testing.T) {
	m, svc := setupModuleService(t)
	ctx := context.Background()

	created, _ := svc.Create(ctx, &dto.CreateModuleRequest{Title: "Coding", DurationDays: 3, ExamsCount: 2, StudentIDs: []string{"s1", "s2"}}, "admin-1")

	resp, err := svc.RecordScore(ctx, &dto.RecordScoreRequest{StudentID: "s1", ModuleID: created.ID, ExamNumber: 1, Score: floatPtr(65.5)}, "admin-1")
	if err != nil {
		t.Fatalf("RecordScore 应成功: %v", err)
	}
	if resp.Score != 65.5 || resp.UpdatedAt == "" {
		t.Errorf("返回值不符，实际=%+v", resp)
	}

	// 重复录入覆盖旧值
	if _, err := svc.RecordScore(ctx, &dto.RecordScoreRequest{StudentID: "s1", ModuleID: created.ID, ExamNumber: 1, Score: floatPtr(80)}, "admin-2"); err != nil {
		t.Fatalf("覆盖录入应成功: %v", err)
	}
	scores, _ := m.examScore.ListByStudent(ctx, "s1", created.ID)
	if len(scores) != 1 || scores[0].Score != 80 || scores[0].RecordedBy == nil || *scores[0].RecordedBy != "admin-2" {
		t.Errorf("期望单条成绩 80 由 admin-2 录入，实际=%+v", scores)
	}
}

func TestModuleRecordScore_Rejected(t *testing.T) {
	_, svc := setupModuleService(t)
	ctx := context.Background()

	created, _ := svc.Create(ctx, &dto.CreateModuleRequest{Title: "Coding", DurationDays: 3, ExamsCount: 2, StudentIDs: []string{"s1"}}, "admin-1")

	cases := []struct {
		name      string
		req       dto.RecordScoreRequest
		wantErr   error
		wantField string
	}{
		{"成绩超过 100", dto.RecordScoreRequest{StudentID: "s1", ModuleID: created.ID, ExamNumber: 1, Score: floatPtr(100.5)}, nil, "score"},
		{"成绩为负", dto.RecordScoreRequest{StudentID: "s1", ModuleID: created.ID, ExamNumber: 1, Score: floatPtr(-1)}, nil, "score"},
		{"考试序号越界", dto.RecordScoreRequest{StudentID: "s1", ModuleID: created.ID, ExamNumber: 3, Score: floatPtr(50)}, nil, "exam_number"},
		{"考试序号为 0", dto.RecordScoreRequest{StudentID: "s1", ModuleID: created.ID, ExamNumber: 0, Score: floatPtr(50)}, nil, "exam_number"},
		{"模块不存在", dto.RecordScoreRequest{StudentID: "s1", ModuleID: "missing", ExamNumber: 1, Score: floatPtr(50)}, ErrModuleNotFound, ""},
		{"学生不存在", dto.RecordScoreRequest{StudentID: "ghost", ModuleID: created.ID, ExamNumber: 1, Score: floatPtr(50)}, ErrStudentNotFound, ""},
		{"学生未分配", dto.RecordScoreRequest{StudentID: "s2", ModuleID: created.ID, ExamNumber: 1, Score: floatPtr(50)}, ErrStudentNotInModule, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.RecordScore(ctx, &tc.req, "admin-1")
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Errorf("期望 %v，实际=%v", tc.wantErr, err)
				}
				return
			}
			if ve, ok := pkgerrors.AsValidation(err); !ok || ve.Field != tc.wantField {
				t.Errorf("期望 %s 校验错误，实际=%v", tc.wantField, err)
			}
		})
	}
}
