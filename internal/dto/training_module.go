package dto

// ── 培训模块 DTO ──

// CreateModuleRequest 创建培训模块并分配场地
type CreateModuleRequest struct {
	Title        string   `json:"title"         binding:"required,min=2,max=200"`
	Description  string   `json:"description"   binding:"omitempty,max=2000"`
	DurationDays int      `json:"duration_days" binding:"required,min=1,max=365"`
	ExamsCount   int      `json:"exams_count"   binding:"omitempty,min=0,max=100"`
	Batch        string   `json:"batch"         binding:"omitempty,max=20"`
	VenueIDs     []string `json:"venue_ids"     binding:"omitempty,dive,uuid"`
	StudentIDs   []string `json:"student_ids"   binding:"omitempty,dive,uuid"`
}

// UpdateModuleRequest 修改模块信息；只更新传入的字段，场地分配不可修改
type UpdateModuleRequest struct {
	Title        *string `json:"title"         binding:"omitempty,min=2,max=200"`
	Description  *string `json:"description"   binding:"omitempty,max=2000"`
	DurationDays *int    `json:"duration_days" binding:"omitempty,min=1,max=365"`
	ExamsCount   *int    `json:"exams_count"   binding:"omitempty,min=0,max=100"`
}

// RecordScoreRequest 录入单个学生单次考试成绩
type RecordScoreRequest struct {
	StudentID  string   `json:"student_id"  binding:"required,uuid"`
	ModuleID   string   `json:"module_id"   binding:"required,uuid"`
	ExamNumber int      `json:"exam_number" binding:"required,min=1,max=100"`
	Score      *float64 `json:"score"       binding:"required,min=0,max=100"`
}

// RecordScoreResponse 成绩录入结果
type RecordScoreResponse struct {
	StudentID  string  `json:"student_id"`
	ModuleID   string  `json:"module_id"`
	ExamNumber int     `json:"exam_number"`
	Score      float64 `json:"score"`
	UpdatedAt  string  `json:"updated_at"`
}

// ModuleListRequest 模块列表查询参数
type ModuleListRequest struct {
	PaginationRequest
	Status string `form:"status" binding:"omitempty,oneof=active completed"`
}

// VenueAllocationResponse 单个场地的分配结果
type VenueAllocationResponse struct {
	VenueID       string   `json:"venue_id"`
	VenueName     string   `json:"venue_name"`
	Capacity      int      `json:"capacity"`
	AssignedCount int      `json:"assigned_count"`
	StudentIDs    []string `json:"student_ids,omitempty"`
}

// ModuleResponse 培训模块响应
type ModuleResponse struct {
	ID              string                    `json:"id"`
	Title           string                    `json:"title"`
	Description     string                    `json:"description"`
	DurationDays    int                       `json:"duration_days"`
	ExamsCount      int                       `json:"exams_count"`
	Batch           string                    `json:"batch,omitempty"`
	Status          string                    `json:"status"`
	UnassignedCount int                       `json:"unassigned_count"`
	Venues          []VenueAllocationResponse `json:"venues,omitempty"`
	CompletedAt     string                    `json:"completed_at,omitempty"`
	CreatedAt       string                    `json:"created_at"`
}
