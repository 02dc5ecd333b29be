package service

import (
	"reflect"
	"testing"

	"placement-portal/backend/internal/model"
	pkgerrors "placement-portal/backend/pkg/errors"
)

func TestStatusFromFlags(t *testing.T) {
	cases := []struct {
		present, onDuty bool
		want            string
	}{
		{true, false, model.AttendancePresent},
		{false, false, model.AttendanceAbsent},
		{false, true, model.AttendanceOnDuty},
		{true, true, model.AttendanceOnDuty},
	}
	for _, c := range cases {
		if got := StatusFromFlags(c.present, c.onDuty); got != c.want {
			t.Errorf("present=%v onDuty=%v 期望=%s，实际=%s", c.present, c.onDuty, c.want, got)
		}
	}
}

func TestReconcileAttendance_AbsentNotifiesOnce(t *testing.T) {
	all := []string{"s1"}
	existing := map[string]AttendanceState{"s1": {Status: model.AttendancePresent}}
	incoming := []AttendanceEntry{{StudentID: "s1", Status: StatusFromFlags(false, false)}}

	first, err := ReconcileAttendance(existing, incoming, all, DefaultReconcilePolicy())
	if err != nil {
		t.Fatalf("ReconcileAttendance 应成功: %v", err)
	}
	want := AttendanceState{Status: model.AttendanceAbsent, Notified: true}
	if first.Merged["s1"] != want {
		t.Errorf("期望 merged=%+v，实际=%+v", want, first.Merged["s1"])
	}
	if !reflect.DeepEqual(first.ToNotify, []string{"s1"}) {
		t.Errorf("期望 ToNotify=[s1]，实际=%v", first.ToNotify)
	}
	if !reflect.DeepEqual(first.Changed, []string{"s1"}) {
		t.Errorf("期望 Changed=[s1]，实际=%v", first.Changed)
	}

	second, err := ReconcileAttendance(first.Merged, incoming, all, DefaultReconcilePolicy())
	if err != nil {
		t.Fatalf("重复提交应成功: %v", err)
	}
	if len(second.ToNotify) != 0 {
		t.Errorf("重复提交不应再次通知，实际=%v", second.ToNotify)
	}
	if !reflect.DeepEqual(second.Merged, first.Merged) {
		t.Errorf("重复提交 merged 应一致:\n%+v\n%+v", first.Merged, second.Merged)
	}
	if len(second.Changed) != 0 {
		t.Errorf("重复提交不应有变更，实际=%v", second.Changed)
	}
}

func TestReconcileAttendance_DefaultPresent(t *testing.T) {
	all := []string{"s1", "s2", "s3"}
	existing := map[string]AttendanceState{
		"s2": {Status: model.AttendanceAbsent, Notified: true},
	}

	res, err := ReconcileAttendance(existing, nil, all, DefaultReconcilePolicy())
	if err != nil {
		t.Fatalf("ReconcileAttendance 应成功: %v", err)
	}
	for _, id := range all {
		if res.Merged[id].Status != model.AttendancePresent {
			t.Errorf("学生 %s 期望 Present，实际=%s", id, res.Merged[id].Status)
		}
	}
	if len(res.ToNotify) != 0 {
		t.Errorf("空提交不应产生通知，实际=%v", res.ToNotify)
	}
	if !reflect.DeepEqual(res.Changed, []string{"s2"}) {
		t.Errorf("期望 Changed=[s2]，实际=%v", res.Changed)
	}
}

func TestReconcileAttendance_AutoMarkAbsentPolicy(t *testing.T) {
	all := []string{"s1", "s2"}
	incoming := []AttendanceEntry{{StudentID: "s1", Status: model.AttendancePresent}}
	policy := ReconcilePolicy{DefaultStatus: model.AttendanceAbsent, NotificationsEnabled: true}

	res, err := ReconcileAttendance(nil, incoming, all, policy)
	if err != nil {
		t.Fatalf("ReconcileAttendance 应成功: %v", err)
	}
	if res.Merged["s2"].Status != model.AttendanceAbsent {
		t.Errorf("未提交学生期望 Absent，实际=%s", res.Merged["s2"].Status)
	}
	if !reflect.DeepEqual(res.ToNotify, []string{"s2"}) {
		t.Errorf("期望 ToNotify=[s2]，实际=%v", res.ToNotify)
	}
}

func TestReconcileAttendance_OnDutyIsNotAbsent(t *testing.T) {
	all := []string{"s1"}
	incoming := []AttendanceEntry{{StudentID: "s1", Status: model.AttendanceOnDuty}}

	res, err := ReconcileAttendance(nil, incoming, all, DefaultReconcilePolicy())
	if err != nil {
		t.Fatalf("ReconcileAttendance 应成功: %v", err)
	}
	if res.Merged["s1"].Status != model.AttendanceOnDuty || res.Merged["s1"].Notified {
		t.Errorf("期望 OnDuty 且未通知，实际=%+v", res.Merged["s1"])
	}
	if len(res.ToNotify) != 0 {
		t.Errorf("OnDuty 不应通知，实际=%v", res.ToNotify)
	}
}

func TestReconcileAttendance_RearmAfterLeavingAbsent(t *testing.T) {
	all := []string{"s1"}
	absent := []AttendanceEntry{{StudentID: "s1", Status: model.AttendanceAbsent}}
	present := []AttendanceEntry{{StudentID: "s1", Status: model.AttendancePresent}}
	policy := DefaultReconcilePolicy()

	r1, err := ReconcileAttendance(nil, absent, all, policy)
	if err != nil || len(r1.ToNotify) != 1 {
		t.Fatalf("首次缺勤应通知: res=%+v err=%v", r1, err)
	}

	r2, err := ReconcileAttendance(r1.Merged, present, all, policy)
	if err != nil {
		t.Fatalf("改为出勤应成功: %v", err)
	}
	if r2.Merged["s1"].Notified {
		t.Error("离开 Absent 后 Notified 应清零")
	}

	r3, err := ReconcileAttendance(r2.Merged, absent, all, policy)
	if err != nil {
		t.Fatalf("再次缺勤应成功: %v", err)
	}
	if !reflect.DeepEqual(r3.ToNotify, []string{"s1"}) {
		t.Errorf("再次转为缺勤应重新通知，实际=%v", r3.ToNotify)
	}
	if !r3.Merged["s1"].Notified {
		t.Error("通知后 Notified 应为 true")
	}
}

func TestReconcileAttendance_NotificationsDisabled(t *testing.T) {
	all := []string{"s1", "s2"}
	existing := map[string]AttendanceState{
		"s2": {Status: model.AttendanceAbsent, Notified: true},
	}
	incoming := []AttendanceEntry{
		{StudentID: "s1", Status: model.AttendanceAbsent},
		{StudentID: "s2", Status: model.AttendanceAbsent},
	}
	policy := ReconcilePolicy{DefaultStatus: model.AttendancePresent, NotificationsEnabled: false}

	res, err := ReconcileAttendance(existing, incoming, all, policy)
	if err != nil {
		t.Fatalf("ReconcileAttendance 应成功: %v", err)
	}
	if len(res.ToNotify) != 0 {
		t.Errorf("关闭通知时 ToNotify 应为空，实际=%v", res.ToNotify)
	}
	if !res.Merged["s1"].Notified {
		t.Error("关闭通知时新缺勤应视为已处理")
	}
	if !res.Merged["s2"].Notified {
		t.Error("关闭通知时已有 Notified 应保留")
	}
}

func TestReconcileAttendance_EnableAfterSuppressedAbsence(t *testing.T) {
	all := []string{"s1"}
	incoming := []AttendanceEntry{{StudentID: "s1", Status: model.AttendanceAbsent}}

	off := ReconcilePolicy{DefaultStatus: model.AttendancePresent, NotificationsEnabled: false}
	r1, err := ReconcileAttendance(map[string]AttendanceState{}, incoming, all, off)
	if err != nil {
		t.Fatalf("关闭通知时提交应成功: %v", err)
	}

	on := ReconcilePolicy{DefaultStatus: model.AttendancePresent, NotificationsEnabled: true}
	r2, err := ReconcileAttendance(r1.Merged, incoming, all, on)
	if err != nil {
		t.Fatalf("开启通知后重复提交应成功: %v", err)
	}
	if len(r2.ToNotify) != 0 {
		t.Errorf("开启通知前的缺勤不应补发，实际=%v", r2.ToNotify)
	}

	// 离开缺勤后再次缺勤属于新的一轮，需要通知
	r3, err := ReconcileAttendance(r2.Merged, []AttendanceEntry{{StudentID: "s1", Status: model.AttendancePresent}}, all, on)
	if err != nil {
		t.Fatalf("改为出勤应成功: %v", err)
	}
	r4, err := ReconcileAttendance(r3.Merged, incoming, all, on)
	if err != nil {
		t.Fatalf("再次缺勤应成功: %v", err)
	}
	if !reflect.DeepEqual(r4.ToNotify, []string{"s1"}) {
		t.Errorf("新一轮缺勤应通知，实际=%v", r4.ToNotify)
	}
}

func TestReconcileAttendance_ValidationErrors(t *testing.T) {
	all := []string{"s1", "s2"}
	cases := map[string][]AttendanceEntry{
		"unknown student": {{StudentID: "x9", Status: model.AttendanceAbsent}},
		"duplicate entry": {
			{StudentID: "s1", Status: model.AttendanceAbsent},
			{StudentID: "s1", Status: model.AttendancePresent},
		},
		"bad status": {{StudentID: "s2", Status: "Late"}},
	}

	for name, incoming := range cases {
		res, err := ReconcileAttendance(nil, incoming, all, DefaultReconcilePolicy())
		if _, ok := pkgerrors.AsValidation(err); !ok {
			t.Errorf("%s: 期望 ValidationError，实际: %v", name, err)
		}
		if res != nil {
			t.Errorf("%s: 校验失败时不应返回部分结果", name)
		}
	}
}

func TestReconcileAttendance_OutputFollowsStudentOrder(t *testing.T) {
	all := []string{"s3", "s1", "s2"}
	incoming := []AttendanceEntry{
		{StudentID: "s2", Status: model.AttendanceAbsent},
		{StudentID: "s3", Status: model.AttendanceAbsent},
		{StudentID: "s1", Status: model.AttendanceAbsent},
	}

	res, err := ReconcileAttendance(nil, incoming, all, DefaultReconcilePolicy())
	if err != nil {
		t.Fatalf("ReconcileAttendance 应成功: %v", err)
	}
	if !reflect.DeepEqual(res.ToNotify, all) {
		t.Errorf("期望 ToNotify 顺序=%v，实际=%v", all, res.ToNotify)
	}
}

func TestReconcileAttendance_DoesNotMutateExisting(t *testing.T) {
	existing := map[string]AttendanceState{"s1": {Status: model.AttendancePresent}}
	incoming := []AttendanceEntry{{StudentID: "s1", Status: model.AttendanceAbsent}}

	if _, err := ReconcileAttendance(existing, incoming, []string{"s1"}, DefaultReconcilePolicy()); err != nil {
		t.Fatalf("ReconcileAttendance 应成功: %v", err)
	}
	if existing["s1"].Status != model.AttendancePresent || existing["s1"].Notified {
		t.Errorf("existing 不应被修改，实际=%+v", existing["s1"])
	}
}
