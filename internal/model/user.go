package model

// 角色
const (
	RoleAdmin   = "admin"
	RoleStaff   = "staff"
	RoleStudent = "student" // 仅出现在令牌中，学生账号在 students 表
)

// User 管理员 / 场地负责人账号，对应 users
type User struct {
	UserID       string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"user_id"`
	Name         string  `gorm:"type:varchar(100);not null"                     json:"name"`
	Email        string  `gorm:"type:varchar(255);not null"                     json:"email"`
	PasswordHash string  `gorm:"type:varchar(255);not null"                     json:"-"`
	Role         string  `gorm:"type:varchar(20);not null;default:'staff'"      json:"role"` // admin | staff
	VenueID      *string `gorm:"type:uuid"                                      json:"venue_id,omitempty"`
	VersionedModel

	// 关联
	Venue *Venue `gorm:"foreignKey:VenueID;references:VenueID" json:"venue,omitempty"`
}

// TableName 指定表名
func (User) TableName() string { return "users" }
