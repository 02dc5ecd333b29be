package service

import (
	"fmt"
	"testing"

	"placement-portal/backend/internal/model"
)

func rows(dept string, present, absent, onDuty int) []StudentAttendanceStatus {
	var out []StudentAttendanceStatus
	add := func(status string, n int) {
		for i := 0; i < n; i++ {
			out = append(out, StudentAttendanceStatus{
				StudentID:  fmt.Sprintf("%s-%s-%d", dept, status, i),
				Status:     status,
				Department: dept,
			})
		}
	}
	add(model.AttendancePresent, present)
	add(model.AttendanceAbsent, absent)
	add(model.AttendanceOnDuty, onDuty)
	return out
}

func TestAggregateAttendance_Percentage(t *testing.T) {
	summary := AggregateAttendance(rows("CSE", 6, 2, 2))

	if len(summary.PerDepartment) != 1 {
		t.Fatalf("期望 1 个院系，实际=%d", len(summary.PerDepartment))
	}
	d := summary.PerDepartment[0]
	if d.Total != 10 || d.Present != 6 || d.Absent != 2 || d.OnDuty != 2 {
		t.Errorf("统计不符: %+v", d)
	}
	if d.Percentage != "75.00" {
		t.Errorf("期望 75.00，实际=%s", d.Percentage)
	}
	if summary.Totals.Percentage != "75.00" {
		t.Errorf("期望合计 75.00，实际=%s", summary.Totals.Percentage)
	}
}

func TestAggregateAttendance_DepartmentOrderAndUnknown(t *testing.T) {
	input := append(rows("ECE", 1, 0, 0), rows("", 0, 1, 0)...)
	input = append(input, rows("CSE", 2, 1, 0)...)
	input = append(input, rows("ECE", 0, 1, 0)...)

	summary := AggregateAttendance(input)

	wantOrder := []string{"ECE", UnknownDepartment, "CSE"}
	if len(summary.PerDepartment) != len(wantOrder) {
		t.Fatalf("期望 %d 个院系，实际=%d", len(wantOrder), len(summary.PerDepartment))
	}
	for i, name := range wantOrder {
		if summary.PerDepartment[i].Department != name {
			t.Errorf("下标 %d 期望院系=%s，实际=%s", i, name, summary.PerDepartment[i].Department)
		}
	}
	if summary.PerDepartment[0].Percentage != "50.00" {
		t.Errorf("ECE 期望 50.00，实际=%s", summary.PerDepartment[0].Percentage)
	}
	if summary.PerDepartment[2].Percentage != "66.67" {
		t.Errorf("CSE 期望 66.67，实际=%s", summary.PerDepartment[2].Percentage)
	}
	if summary.Totals.Total != 6 || summary.Totals.Present != 3 {
		t.Errorf("合计不符: %+v", summary.Totals)
	}
	if summary.Totals.Percentage != "50.00" {
		t.Errorf("合计期望 50.00，实际=%s", summary.Totals.Percentage)
	}
}

func TestAggregateAttendance_ZeroDenominator(t *testing.T) {
	summary := AggregateAttendance(rows("MECH", 0, 0, 3))
	if summary.PerDepartment[0].Percentage != "0.00" {
		t.Errorf("全部公出时期望 0.00，实际=%s", summary.PerDepartment[0].Percentage)
	}

	empty := AggregateAttendance(nil)
	if len(empty.PerDepartment) != 0 {
		t.Errorf("空输入不应有院系，实际=%d", len(empty.PerDepartment))
	}
	if empty.Totals.Percentage != "0.00" {
		t.Errorf("空输入合计期望 0.00，实际=%s", empty.Totals.Percentage)
	}
}

func TestAggregateAttendance_DoesNotMutateInput(t *testing.T) {
	input := []StudentAttendanceStatus{{StudentID: "s1", Status: model.AttendancePresent}}
	AggregateAttendance(input)
	if input[0].Department != "" {
		t.Errorf("输入不应被修改，实际 Department=%q", input[0].Department)
	}
}
