package model

import "time"

// 模块状态
const (
	ModuleStatusActive    = "active"
	ModuleStatusCompleted = "completed"
)

// TrainingModule 培训模块，对应 training_modules
type TrainingModule struct {
	ModuleID        string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"module_id"`
	Title           string     `gorm:"type:varchar(200);not null"                     json:"title"`
	Description     string     `gorm:"type:text;not null;default:''"                  json:"description"`
	DurationDays    int        `gorm:"not null;default:1"                             json:"duration_days"`
	ExamsCount      int        `gorm:"not null;default:0"                             json:"exams_count"`
	Batch           string     `gorm:"type:varchar(20);not null;default:''"           json:"batch"`
	Status          string     `gorm:"type:varchar(20);not null;default:'active'"     json:"status"` // active | completed
	UnassignedCount int        `gorm:"not null;default:0"                             json:"unassigned_count"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	VersionedModel

	// 关联
	Assignments []ModuleVenueAssignment `gorm:"foreignKey:ModuleID" json:"assignments,omitempty"`
}

// TableName 指定表名
func (TrainingModule) TableName() string { return "training_modules" }

// ModuleVenueAssignment 模块场地分配，对应 module_venue_assignments（创建后不可变）
type ModuleVenueAssignment struct {
	AssignmentID string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"assignment_id"`
	ModuleID     string    `gorm:"type:uuid;not null"                             json:"module_id"`
	VenueID      string    `gorm:"type:uuid;not null"                             json:"venue_id"`
	StudentID    string    `gorm:"type:uuid;not null"                             json:"student_id"`
	Position     int       `gorm:"not null"                                       json:"position"` // 原始学生顺序下标
	CreatedAt    time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
}

// TableName 指定表名
func (ModuleVenueAssignment) TableName() string { return "module_venue_assignments" }
