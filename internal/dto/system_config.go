package dto

// ── 系统配置模块 DTO ──

// UpdateSystemConfigRequest 更新系统配置请求
type UpdateSystemConfigRequest struct {
	DefaultSession     *string `json:"default_session"     binding:"omitempty,session"`
	EmailNotifications *bool   `json:"email_notifications"`
	AutoMarkAbsent     *bool   `json:"auto_mark_absent"`
}

// SystemConfigResponse 系统配置响应
type SystemConfigResponse struct {
	DefaultSession     string `json:"default_session"`
	EmailNotifications bool   `json:"email_notifications"`
	AutoMarkAbsent     bool   `json:"auto_mark_absent"`
	UpdatedAt          string `json:"updated_at"`
}
