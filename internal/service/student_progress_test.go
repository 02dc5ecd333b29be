package service

import (
	"testing"
	"time"

	"placement-portal/backend/internal/model"
)

func progressRecord(date, session, status string, venueID *string) model.AttendanceRecord {
	return model.AttendanceRecord{Date: model.Date(date), Session: session, StudentID: "s1", Status: status, VenueID: venueID}
}

func TestComputeModuleProgress_DateWindowAndVenue(t *testing.T) {
	completed := time.Date(2026, 3, 5, 17, 0, 0, 0, time.UTC)
	module := &model.TrainingModule{
		ModuleID:       "mod-1",
		ExamsCount:     3,
		VersionedModel: model.VersionedModel{SoftDeleteModel: model.SoftDeleteModel{BaseModel: model.BaseModel{CreatedAt: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}}},
		CompletedAt:    &completed,
	}
	records := []model.AttendanceRecord{
		progressRecord("2026-03-01", model.SessionForenoon, model.AttendancePresent, stringPtr("v-a")), // 模块开始前
		progressRecord("2026-03-02", model.SessionForenoon, model.AttendancePresent, stringPtr("v-a")),
		progressRecord("2026-03-02", model.SessionAfternoon, model.AttendanceAbsent, stringPtr("v-a")),
		progressRecord("2026-03-03", model.SessionForenoon, model.AttendanceOnDuty, nil),               // 全校提交
		progressRecord("2026-03-04", model.SessionForenoon, model.AttendancePresent, stringPtr("v-b")), // 其他场地
		progressRecord("2026-03-05", model.SessionForenoon, model.AttendancePresent, stringPtr("v-a")),
		progressRecord("2026-03-06", model.SessionForenoon, model.AttendanceAbsent, stringPtr("v-a")), // 模块结束后
	}

	p := ComputeModuleProgress(module, "v-a", records, nil)

	if p.Total != 4 || p.Present != 2 || p.Absent != 1 || p.OnDuty != 1 {
		t.Errorf("期望 total=4 present=2 absent=1 on_duty=1，实际=%+v", p)
	}
	if p.Percentage != "66.67" {
		t.Errorf("期望出勤率 66.67，实际=%s", p.Percentage)
	}
	if len(p.Records) != 4 || p.Records[0].Date != "2026-03-02" || p.Records[3].Date != "2026-03-05" {
		t.Errorf("计入的考勤不符，实际=%+v", p.Records)
	}
}

func TestComputeModuleProgress_ActiveModuleHasNoUpperBound(t *testing.T) {
	module := &model.TrainingModule{ModuleID: "mod-1", VersionedModel: model.VersionedModel{SoftDeleteModel: model.SoftDeleteModel{BaseModel: model.BaseModel{CreatedAt: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}}}}
	records := []model.AttendanceRecord{
		progressRecord("2026-12-31", model.SessionForenoon, model.AttendancePresent, stringPtr("v-a")),
	}

	p := ComputeModuleProgress(module, "v-a", records, nil)
	if p.Total != 1 || p.Percentage != "100.00" {
		t.Errorf("未结束模块不应限制结束日期，实际=%+v", p)
	}
	if len(p.Scores) != 0 || p.AverageScore != 0 {
		t.Errorf("无考试时成绩应为空，实际=%+v", p)
	}
}

func TestComputeModuleProgress_Scores(t *testing.T) {
	module := &model.TrainingModule{ModuleID: "mod-1", ExamsCount: 3, VersionedModel: model.VersionedModel{SoftDeleteModel: model.SoftDeleteModel{BaseModel: model.BaseModel{CreatedAt: time.Now()}}}}
	scores := []model.ExamScore{
		{ModuleID: "mod-1", StudentID: "s1", ExamNumber: 1, Score: 70},
		{ModuleID: "mod-1", StudentID: "s1", ExamNumber: 3, Score: 85.25},
		{ModuleID: "mod-2", StudentID: "s1", ExamNumber: 2, Score: 10}, // 其他模块
		{ModuleID: "mod-1", StudentID: "s1", ExamNumber: 4, Score: 10}, // 超出考试次数
	}

	p := ComputeModuleProgress(module, "", nil, scores)

	if len(p.Scores) != 3 {
		t.Fatalf("期望 3 个成绩位，实际=%d", len(p.Scores))
	}
	if p.Scores[0] == nil || *p.Scores[0] != 70 || p.Scores[1] != nil || p.Scores[2] == nil || *p.Scores[2] != 85.25 {
		t.Errorf("成绩位不符，实际=%v", p.Scores)
	}
	// (70 + 85.25) / 2 = 77.625，未录入的第 2 次不计入
	if p.AverageScore != 77.63 {
		t.Errorf("期望平均分 77.63，实际=%v", p.AverageScore)
	}
	if p.Percentage != "0.00" {
		t.Errorf("无考勤时出勤率应为 0.00，实际=%s", p.Percentage)
	}
}
