// Package domain contains user records. A user is created on first contact
// and never deleted.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// User ties the platform account id to local state: the entitlement row and
// the monotonic counter of gated operations.
type User struct {
	ID             snowflake.ID `gorm:"primaryKey"`
	ExternalID     int64        `gorm:"not null;uniqueIndex"`
	Handle         string       `gorm:"type:text"`
	OperationCount int64        `gorm:"not null;default:0"`
	CreatedAt      time.Time    `gorm:"not null"`
	UpdatedAt      time.Time    `gorm:"not null"`
}

// TableName sets the database table name.
func (User) TableName() string { return "users" }
