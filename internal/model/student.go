package model

// Student 学生名册，对应 students（考勤核心只读）
// 学生以学号 + 密码登录学生端，只能查看自己的模块进度
type Student struct {
	StudentID    string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"student_id"`
	Name         string `gorm:"type:varchar(100);not null"                     json:"name"`
	RegNo        string `gorm:"type:varchar(30);not null"                      json:"reg_no"`
	Department   string `gorm:"type:varchar(100);not null;default:''"          json:"department"`
	Batch        string `gorm:"type:varchar(20);not null;default:''"           json:"batch"`
	PassoutYear  *int   `json:"passout_year,omitempty"`
	Email        string `gorm:"type:varchar(255);not null;default:''"          json:"email"`
	PasswordHash string `gorm:"type:varchar(255);not null;default:''"          json:"-"`
	SoftDeleteModel
}

// TableName 指定表名
func (Student) TableName() string { return "students" }
