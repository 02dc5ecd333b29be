package service

import (
	"placement-portal/backend/internal/model"
	pkgerrors "placement-portal/backend/pkg/errors"
)

// AttendanceState 某学生在一个 (date, session) 下的考勤状态
type AttendanceState struct {
	Status   string `json:"status"`
	Notified bool   `json:"notified"`
}

// AttendanceEntry 一次提交中的单条考勤
type AttendanceEntry struct {
	StudentID string
	Status    string
}

// ReconcilePolicy 合并策略（来自系统配置，只读）
type ReconcilePolicy struct {
	// DefaultStatus 未在提交中出现的学生取此状态，空值视为 Present
	DefaultStatus string
	// NotificationsEnabled 关闭时不产生通知；本轮缺勤仍标记 Notified，
	// 之后重新开启通知也不会为这次缺勤补发
	NotificationsEnabled bool
}

// DefaultReconcilePolicy 默认出勤、开启通知
func DefaultReconcilePolicy() ReconcilePolicy {
	return ReconcilePolicy{DefaultStatus: model.AttendancePresent, NotificationsEnabled: true}
}

// ReconcileResult 合并结果；ToNotify 与 Changed 按 allStudentIDs 顺序排列
type ReconcileResult struct {
	Merged   map[string]AttendanceState
	ToNotify []string
	Changed  []string
}

// StatusFromFlags 提交表单的 present / on_duty 转换为考勤状态
// on_duty 优先于 present
func StatusFromFlags(present, onDuty bool) string {
	switch {
	case onDuty:
		return model.AttendanceOnDuty
	case present:
		return model.AttendancePresent
	default:
		return model.AttendanceAbsent
	}
}

// IsAttendanceStatus 判断状态是否合法
func IsAttendanceStatus(s string) bool {
	switch s {
	case model.AttendancePresent, model.AttendanceAbsent, model.AttendanceOnDuty:
		return true
	}
	return false
}

// ReconcileAttendance 将一次提交与已存记录合并，并计算需要通知的学生。
//
// 每个学生的新状态整体覆盖旧状态；未出现在提交中的学生取 policy.DefaultStatus。
// 合并后为 Absent 且本轮缺勤尚未通知的学生进入 ToNotify，并标记 Notified。
// 状态离开 Absent 时 Notified 清零，之后再次转为 Absent 会重新通知。
// 任何校验失败都会中止整个合并。
func ReconcileAttendance(
	existing map[string]AttendanceState,
	incoming []AttendanceEntry,
	allStudentIDs []string,
	policy ReconcilePolicy,
) (*ReconcileResult, error) {
	defaultStatus := policy.DefaultStatus
	if defaultStatus == "" {
		defaultStatus = model.AttendancePresent
	}
	if !IsAttendanceStatus(defaultStatus) {
		return nil, pkgerrors.NewValidationError("default_status", "未知的考勤状态 %q", defaultStatus)
	}

	known := make(map[string]struct{}, len(allStudentIDs))
	for _, id := range allStudentIDs {
		known[id] = struct{}{}
	}

	submitted := make(map[string]string, len(incoming))
	for _, e := range incoming {
		if _, ok := known[e.StudentID]; !ok {
			return nil, pkgerrors.NewValidationError("student_id", "unknown student for this context: %s", e.StudentID)
		}
		if _, dup := submitted[e.StudentID]; dup {
			return nil, pkgerrors.NewValidationError("student_id", "学生 %s 在同一次提交中重复出现", e.StudentID)
		}
		if !IsAttendanceStatus(e.Status) {
			return nil, pkgerrors.NewValidationError("status", "学生 %s 的考勤状态 %q 不合法", e.StudentID, e.Status)
		}
		submitted[e.StudentID] = e.Status
	}

	result := &ReconcileResult{
		Merged:   make(map[string]AttendanceState, len(allStudentIDs)),
		ToNotify: []string{},
		Changed:  []string{},
	}

	for _, id := range allStudentIDs {
		if _, done := result.Merged[id]; done {
			continue
		}

		prior, hadPrior := existing[id]
		priorStatus := model.AttendancePresent
		if hadPrior {
			priorStatus = prior.Status
		}

		status, ok := submitted[id]
		if !ok {
			status = defaultStatus
		}

		merged := AttendanceState{Status: status}

		if status == model.AttendanceAbsent {
			alreadyNotified := hadPrior && priorStatus == model.AttendanceAbsent && prior.Notified
			switch {
			case !policy.NotificationsEnabled:
				merged.Notified = true
			case alreadyNotified:
				merged.Notified = true
			default:
				merged.Notified = true
				result.ToNotify = append(result.ToNotify, id)
			}
		}

		if status != priorStatus {
			result.Changed = append(result.Changed, id)
		}
		result.Merged[id] = merged
	}

	return result, nil
}
