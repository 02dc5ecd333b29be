package dto

// ── 考勤模块 DTO ──

// AttendanceEntryRequest 单个学生的考勤提交
// on_duty=true 时为公出；否则 present=false 为缺勤
type AttendanceEntryRequest struct {
	StudentID string `json:"student_id" binding:"required"`
	Present   bool   `json:"present"`
	OnDuty    bool   `json:"on_duty"`
}

// SubmitAttendanceRequest 提交某日某时段的考勤
// 未列出的学生按默认策略处理
type SubmitAttendanceRequest struct {
	Date    string                   `json:"date"     binding:"required,isodate"`
	Session string                   `json:"session"  binding:"required,session"`
	VenueID string                   `json:"venue_id" binding:"omitempty,uuid"`
	Entries []AttendanceEntryRequest `json:"entries"  binding:"omitempty,dive"`
}

// AttendanceKeyQuery 考勤键查询参数
type AttendanceKeyQuery struct {
	Date    string `form:"date"     binding:"required,isodate"`
	Session string `form:"session"  binding:"required,session"`
	VenueID string `form:"venue_id" binding:"omitempty,uuid"`
}

// AttendanceHistoryQuery 考勤历史查询参数
type AttendanceHistoryQuery struct {
	VenueID string `form:"venue_id" binding:"omitempty,uuid"`
	From    string `form:"from"     binding:"omitempty,isodate"`
	To      string `form:"to"       binding:"omitempty,isodate"`
}

// RetryNotificationsRequest 重新投递某考勤键下未成功的缺勤通知
type RetryNotificationsRequest struct {
	Date    string `json:"date"    binding:"required,isodate"`
	Session string `json:"session" binding:"required,session"`
}

// ExportAttendanceQuery 考勤导出参数
type ExportAttendanceQuery struct {
	Date string `form:"date" binding:"required,isodate"`
}

// AttendanceStatusResponse 单个学生的已存考勤
type AttendanceStatusResponse struct {
	Present  bool   `json:"present"`
	OnDuty   bool   `json:"on_duty"`
	Notified bool   `json:"notified"`
	Status   string `json:"status"`
}

// AttendanceExistingResponse 某考勤键下已存的考勤，未记录时 records 为空对象
type AttendanceExistingResponse struct {
	Date    string                              `json:"date"`
	Session string                              `json:"session"`
	Records map[string]AttendanceStatusResponse `json:"records"`
}

// SubmitAttendanceResponse 提交结果
type SubmitAttendanceResponse struct {
	Date           string   `json:"date"`
	Session        string   `json:"session"`
	Total          int      `json:"total"`
	Present        int      `json:"present"`
	Absent         int      `json:"absent"`
	OnDuty         int      `json:"on_duty"`
	Changed        []string `json:"changed"`
	Notified       []string `json:"notified"`
	DispatchStatus string   `json:"dispatch_status"` // none | sent | partial | failed | disabled
}

// DepartmentAttendanceResponse 院系出勤统计
type DepartmentAttendanceResponse struct {
	Department string `json:"department"`
	Total      int    `json:"total"`
	Present    int    `json:"present"`
	Absent     int    `json:"absent"`
	OnDuty     int    `json:"on_duty"`
	Percentage string `json:"percentage"`
}

// AttendanceSummaryResponse 院系汇总
type AttendanceSummaryResponse struct {
	Date          string                         `json:"date"`
	Session       string                         `json:"session"`
	PerDepartment []DepartmentAttendanceResponse `json:"per_department"`
	Totals        DepartmentAttendanceResponse   `json:"totals"`
}

// SessionBucket 某时段内按状态分组的学生
type SessionBucket struct {
	Present []StudentBrief `json:"present"`
	Absent  []StudentBrief `json:"absent"`
	OD      []StudentBrief `json:"od"`
}

// StudentBrief 学生简要信息
type StudentBrief struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	RegNo      string `json:"reg_no"`
	Department string `json:"department"`
}

// AttendanceDayResponse 某日两个时段的考勤
type AttendanceDayResponse struct {
	Date      string         `json:"date"`
	Forenoon  *SessionBucket `json:"forenoon,omitempty"`
	Afternoon *SessionBucket `json:"afternoon,omitempty"`
}

// AttendanceHistoryResponse 场地考勤历史，日期倒序
type AttendanceHistoryResponse struct {
	VenueID string                  `json:"venue_id"`
	Days    []AttendanceDayResponse `json:"days"`
}

// RetryNotificationsResponse 重新投递结果
type RetryNotificationsResponse struct {
	Attempted int `json:"attempted"`
	Sent      int `json:"sent"`
	Failed    int `json:"failed"`
}
