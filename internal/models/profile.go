package models

import (
	"time"

	"gorm.io/datatypes"
)

// Profile stores per-account dashboard customisations. Unlike user
// records, profiles live in a relational table with a unique index on
// the email, so upserts are atomic and cannot fork.
type Profile struct {
	ID        uint           `gorm:"primaryKey" json:"-"`
	UserEmail string         `gorm:"uniqueIndex;not null" json:"user_email"`
	Favorites datatypes.JSON `json:"favorites"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}
