package model

// SystemConfig 系统配置表，对应 system_config（单行强类型）
type SystemConfig struct {
	Singleton          bool   `gorm:"primaryKey;default:true"                     json:"-"`
	DefaultSession     string `gorm:"type:varchar(20);not null;default:'forenoon'" json:"default_session"`
	EmailNotifications bool   `gorm:"not null;default:true"                       json:"email_notifications"`
	AutoMarkAbsent     bool   `gorm:"not null;default:false"                      json:"auto_mark_absent"`
	BaseModel
}

// TableName 指定表名
func (SystemConfig) TableName() string { return "system_config" }
