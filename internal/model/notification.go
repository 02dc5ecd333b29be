package model

import "time"

// 发件箱状态
const (
	NotificationPending = "pending"
	NotificationSending = "sending" // 已被某个投递方认领，updated_at 为认领时间
	NotificationSent    = "sent"
	NotificationFailed  = "failed"
)

// AbsenceNotification 缺勤通知发件箱，对应 absence_notifications
// 与考勤合并在同一事务中写入；投递前先认领为 sending，投递结果单独回写
type AbsenceNotification struct {
	NotificationID string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"notification_id"`
	StudentID      string     `gorm:"type:uuid;not null"                             json:"student_id"`
	Date           Date       `gorm:"type:date;not null"                             json:"date"`
	Session        string     `gorm:"type:varchar(20);not null"                      json:"session"`
	Status         string     `gorm:"type:varchar(20);not null;default:'pending'"    json:"status"` // pending | sending | sent | failed
	Attempts       int        `gorm:"not null;default:0"                             json:"attempts"`
	LastError      string     `gorm:"type:text;not null;default:''"                  json:"last_error,omitempty"`
	SentAt         *time.Time `json:"sent_at,omitempty"`
	CreatedAt      time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
	UpdatedAt      time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"updated_at"`

	// 关联
	Student *Student `gorm:"foreignKey:StudentID;references:StudentID" json:"student,omitempty"`
}

// TableName 指定表名
func (AbsenceNotification) TableName() string { return "absence_notifications" }
