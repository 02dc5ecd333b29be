package dto

// ── 学生模块 DTO ──

// CreateStudentRequest 登记学生
type CreateStudentRequest struct {
	Name        string `json:"name"         binding:"required,min=2,max=100"`
	RegNo       string `json:"reg_no"       binding:"required,max=30"`
	Department  string `json:"department"   binding:"omitempty,max=100"`
	Batch       string `json:"batch"        binding:"omitempty,max=20"`
	PassoutYear *int   `json:"passout_year" binding:"omitempty,min=2000,max=2100"`
	Email       string `json:"email"        binding:"omitempty,email"`
	Password    string `json:"password"     binding:"omitempty,min=8,max=32"` // 为空时初始密码为学号
}

// StudentListRequest 学生列表查询参数
type StudentListRequest struct {
	PaginationRequest
	Department string `form:"department" binding:"omitempty,max=100"`
	Batch      string `form:"batch"      binding:"omitempty,max=20"`
	Keyword    string `form:"keyword"    binding:"omitempty,max=50"`
}

// StudentResponse 学生信息响应
type StudentResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	RegNo       string `json:"reg_no"`
	Department  string `json:"department"`
	Batch       string `json:"batch"`
	PassoutYear *int   `json:"passout_year,omitempty"`
	Email       string `json:"email,omitempty"`
	CreatedAt   string `json:"created_at"`
}

// ── 学生端 ──

// ExamScoreResponse 单次考试成绩；未录入时 Score 为 null
type ExamScoreResponse struct {
	ExamNumber int      `json:"exam_number"`
	Score      *float64 `json:"score"`
}

// AttendanceDetailResponse 学生端考勤明细
type AttendanceDetailResponse struct {
	Date    string `json:"date"`
	Session string `json:"session"`
	Status  string `json:"status"`
}

// StudentAttendanceResponse 学生在某模块内的出勤
type StudentAttendanceResponse struct {
	Percentage string                     `json:"percentage"`
	Present    int                        `json:"present"`
	Absent     int                        `json:"absent"`
	OnDuty     int                        `json:"on_duty"`
	Total      int                        `json:"total"`
	Details    []AttendanceDetailResponse `json:"details,omitempty"`
}

// StudentModuleResponse 学生视角的模块（含分配到的场地）
type StudentModuleResponse struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	DurationDays int    `json:"duration_days"`
	ExamsCount   int    `json:"exams_count"`
	Status       string `json:"status"`
	VenueID      string `json:"venue_id"`
	VenueName    string `json:"venue_name,omitempty"`
	CreatedAt    string `json:"created_at"`
	CompletedAt  string `json:"completed_at,omitempty"`
}

// ModulePerformanceResponse 学生在某模块的成绩与出勤
type ModulePerformanceResponse struct {
	Module       StudentModuleResponse     `json:"module"`
	AverageScore float64                   `json:"average_score"`
	ExamScores   []ExamScoreResponse       `json:"exam_scores"`
	Attendance   StudentAttendanceResponse `json:"attendance"`
}

// StudentProfileResponse 学生档案：基本信息 + 各模块进度（不含考勤明细）
type StudentProfileResponse struct {
	Student  StudentResponse             `json:"student"`
	Progress []ModulePerformanceResponse `json:"progress"`
}
