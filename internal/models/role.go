package models

import "time"

// Role carries explicit admin/moderator flags per principal. The owner never
// needs a row; it is treated as admin and moderator implicitly.
type Role struct {
	Principal string    `gorm:"primaryKey;type:text"`
	Admin     bool      `gorm:"not null;default:false"`
	Moderator bool      `gorm:"not null;default:false"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Role) TableName() string {
	return "roles"
}
