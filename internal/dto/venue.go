package dto

// ── 场地模块 DTO ──

// CreateVenueRequest 创建场地请求
type CreateVenueRequest struct {
	Name     string `json:"name"     binding:"required,min=1,max=100"`
	Capacity int    `json:"capacity" binding:"required,min=1"`
}

// UpdateVenueRequest 更新场地请求
type UpdateVenueRequest struct {
	Name     *string `json:"name"     binding:"omitempty,min=1,max=100"`
	Capacity *int    `json:"capacity" binding:"omitempty,min=1"`
}

// AssignStaffRequest 指派场地负责人
type AssignStaffRequest struct {
	StaffID string `json:"staff_id" binding:"required,uuid"`
}

// VenueListRequest 场地列表查询参数
type VenueListRequest struct {
	Status string `form:"status" binding:"omitempty,oneof=unassigned assigned"`
}

// VenueResponse 场地信息响应
type VenueResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Capacity  int    `json:"capacity"`
	Status    string `json:"status"`
	StaffID   string `json:"staff_id,omitempty"`
	Version   int    `json:"version"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// VenueStudentsResponse 场地下的学生（考勤名单）
type VenueStudentsResponse struct {
	VenueID  string            `json:"venue_id"`
	Students []StudentResponse `json:"students"`
}
