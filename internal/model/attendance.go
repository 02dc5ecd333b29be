package model

import "time"

// 考勤状态
const (
	AttendancePresent = "Present"
	AttendanceAbsent  = "Absent"
	AttendanceOnDuty  = "OnDuty"
)

// 考勤时段
const (
	SessionForenoon  = "forenoon"
	SessionAfternoon = "afternoon"
)

// AttendanceRecord 考勤记录表，对应 attendance_records
// (date, session, student_id) 唯一；只通过合并结果写入，从不删除
type AttendanceRecord struct {
	AttendanceID string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"attendance_id"`
	Date         Date       `gorm:"type:date;not null"                             json:"date"`
	Session      string     `gorm:"type:varchar(20);not null"                      json:"session"`
	StudentID    string     `gorm:"type:uuid;not null"                             json:"student_id"`
	Status       string     `gorm:"type:varchar(20);not null;default:'Present'"    json:"status"` // Present | Absent | OnDuty
	Notified     bool       `gorm:"not null;default:false"                         json:"notified"`
	NotifiedAt   *time.Time `json:"notified_at,omitempty"`
	VenueID      *string    `gorm:"type:uuid"                                      json:"venue_id,omitempty"` // 提交时的场地快照
	MarkedBy     *string    `gorm:"type:uuid"                                      json:"marked_by,omitempty"`
	CreatedAt    time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
	UpdatedAt    time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"updated_at"`

	// 关联
	Student *Student `gorm:"foreignKey:StudentID;references:StudentID" json:"student,omitempty"`
}

// TableName 指定表名
func (AttendanceRecord) TableName() string { return "attendance_records" }
