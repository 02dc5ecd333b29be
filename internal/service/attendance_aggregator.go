package service

import (
	"fmt"

	"placement-portal/backend/internal/model"
)

// UnknownDepartment 院系缺失时的归组名
const UnknownDepartment = "Unknown"

// StudentAttendanceStatus 聚合输入：单个学生在某场次的最终状态
type StudentAttendanceStatus struct {
	StudentID  string
	Status     string
	Department string
}

// DepartmentAttendance 单个院系（或合计）的统计
type DepartmentAttendance struct {
	Department string
	Total      int
	Present    int
	Absent     int
	OnDuty     int
	Percentage string
}

// AttendanceSummary 院系汇总；PerDepartment 按院系首次出现顺序排列
type AttendanceSummary struct {
	PerDepartment []DepartmentAttendance
	Totals        DepartmentAttendance
}

// AttendancePercentage present / (total - onDuty) 的百分比，两位小数；分母为 0 时为 "0.00"
func AttendancePercentage(present, total, onDuty int) string {
	denominator := total - onDuty
	if denominator <= 0 {
		return "0.00"
	}
	return fmt.Sprintf("%.2f", float64(present)/float64(denominator)*100)
}

// AggregateAttendance 按院系统计出勤。公出学生不计入出勤率分母。
func AggregateAttendance(rows []StudentAttendanceStatus) *AttendanceSummary {
	index := make(map[string]int)
	summary := &AttendanceSummary{
		PerDepartment: []DepartmentAttendance{},
		Totals:        DepartmentAttendance{Department: "Total"},
	}

	for _, row := range rows {
		dept := row.Department
		if dept == "" {
			dept = UnknownDepartment
		}
		i, ok := index[dept]
		if !ok {
			i = len(summary.PerDepartment)
			index[dept] = i
			summary.PerDepartment = append(summary.PerDepartment, DepartmentAttendance{Department: dept})
		}

		d := &summary.PerDepartment[i]
		d.Total++
		summary.Totals.Total++
		switch row.Status {
		case model.AttendancePresent:
			d.Present++
			summary.Totals.Present++
		case model.AttendanceAbsent:
			d.Absent++
			summary.Totals.Absent++
		case model.AttendanceOnDuty:
			d.OnDuty++
			summary.Totals.OnDuty++
		}
	}

	for i := range summary.PerDepartment {
		d := &summary.PerDepartment[i]
		d.Percentage = AttendancePercentage(d.Present, d.Total, d.OnDuty)
	}
	t := &summary.Totals
	t.Percentage = AttendancePercentage(t.Present, t.Total, t.OnDuty)

	return summary
}
