package model

// 场地状态
const (
	VenueStatusUnassigned = "unassigned"
	VenueStatusAssigned   = "assigned"
)

// Venue 培训场地表，对应 venues
type Venue struct {
	VenueID  string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"venue_id"`
	Name     string  `gorm:"type:varchar(100);not null"                     json:"name"`
	Capacity int     `gorm:"not null"                                       json:"capacity"`
	Status   string  `gorm:"type:varchar(20);not null;default:'unassigned'" json:"status"` // unassigned | assigned
	StaffID  *string `gorm:"type:uuid"                                      json:"staff_id,omitempty"`
	VersionedModel
}

// TableName 指定表名
func (Venue) TableName() string { return "venues" }
