package dto

// ── 用户模块 DTO ──

// CreateUserRequest 创建场地负责人 / 管理员账号
type CreateUserRequest struct {
	Name     string `json:"name"     binding:"required,min=2,max=100"`
	Email    string `json:"email"    binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=32"`
	Role     string `json:"role"     binding:"required,oneof=admin staff"`
}

// UserListRequest 用户列表查询参数
type UserListRequest struct {
	PaginationRequest
	Role string `form:"role" binding:"omitempty,oneof=admin staff"`
}
