package dto

// ── 认证模块 DTO ──

// LoginRequest 登录请求（管理员与场地负责人共用）
type LoginRequest struct {
	Email    string `json:"email"    binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// ChangePasswordRequest 修改密码请求
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8,max=32"`
}

// StudentLoginRequest 学生端登录：学号 + 密码
type StudentLoginRequest struct {
	RegNo    string `json:"reg_no"   binding:"required,max=30"`
	Password string `json:"password" binding:"required"`
}

// StudentTokenResponse 学生端登录响应
type StudentTokenResponse struct {
	AccessToken string          `json:"access_token"`
	ExpiresIn   int             `json:"expires_in"`
	Student     StudentResponse `json:"student"`
}
