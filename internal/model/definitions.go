package model

import (
	"time"
)

// Standard time object for Gorm-managed tables
type DBTime struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Tables lists every model managed by AutoMigrate
var Tables = []interface{}{
	&User{},
	&ReadingLog{},
	&Announcement{},
	&AnnouncementDelivery{},
}
