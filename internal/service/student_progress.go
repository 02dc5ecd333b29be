package service

import (
	"math"

	"placement-portal/backend/internal/model"
)

// ModuleProgress 学生在单个模块内的出勤与成绩
type ModuleProgress struct {
	Present    int
	Absent     int
	OnDuty     int
	Total      int
	Percentage string
	Records    []model.AttendanceRecord // 计入本模块的考勤，顺序同输入
	// Scores 下标 i 对应第 i+1 次考试，未录入为 nil
	Scores       []*float64
	AverageScore float64
}

// ComputeModuleProgress 汇总学生在模块内的表现。
//
// 计入的考勤：日期落在 [模块创建日, 结束日]（未结束则不设上限），
// 且场地快照为学生所在场地，或为空（管理员不指定场地的全校提交）。
// 平均分只统计已录入的考试，保留两位小数；无成绩时为 0。
func ComputeModuleProgress(module *model.TrainingModule, venueID string, records []model.AttendanceRecord, scores []model.ExamScore) ModuleProgress {
	from := module.CreatedAt.Format(model.DateLayout)
	to := ""
	if module.CompletedAt != nil {
		to = module.CompletedAt.Format(model.DateLayout)
	}

	var p ModuleProgress
	for _, r := range records {
		d := r.Date.String()
		if d < from || (to != "" && d > to) {
			continue
		}
		if r.VenueID != nil && *r.VenueID != venueID {
			continue
		}
		p.Records = append(p.Records, r)
		p.Total++
		switch r.Status {
		case model.AttendancePresent:
			p.Present++
		case model.AttendanceAbsent:
			p.Absent++
		case model.AttendanceOnDuty:
			p.OnDuty++
		}
	}
	p.Percentage = AttendancePercentage(p.Present, p.Total, p.OnDuty)

	p.Scores = make([]*float64, module.ExamsCount)
	sum, n := 0.0, 0
	for _, sc := range scores {
		if sc.ModuleID != module.ModuleID || sc.ExamNumber < 1 || sc.ExamNumber > module.ExamsCount {
			continue
		}
		v := sc.Score
		p.Scores[sc.ExamNumber-1] = &v
		sum += v
		n++
	}
	if n > 0 {
		p.AverageScore = math.Round(sum/float64(n)*100) / 100
	}
	return p
}
