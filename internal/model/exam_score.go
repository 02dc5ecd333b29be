package model

import "time"

// ExamScore 模块内单次考试成绩，对应 exam_scores
// (module_id, student_id, exam_number) 唯一，重复录入覆盖旧值
type ExamScore struct {
	ScoreID    string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"score_id"`
	ModuleID   string    `gorm:"type:uuid;not null"                             json:"module_id"`
	StudentID  string    `gorm:"type:uuid;not null"                             json:"student_id"`
	ExamNumber int       `gorm:"not null"                                       json:"exam_number"` // 从 1 开始
	Score      float64   `gorm:"type:numeric(5,2);not null"                     json:"score"`       // 0-100
	RecordedBy *string   `gorm:"type:uuid"                                      json:"recorded_by,omitempty"`
	CreatedAt  time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
	UpdatedAt  time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"updated_at"`
}

// TableName 指定表名
func (ExamScore) TableName() string { return "exam_scores" }
