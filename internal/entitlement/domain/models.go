// Package domain contains the entitlement model: a user's current access
// tier and its expiry.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Tier represents an access level a user can hold.
type Tier string

const (
	TierNone    Tier = "NONE"
	TierDay     Tier = "DAY"
	TierWeek    Tier = "WEEK"
	TierMonth   Tier = "MONTH"
	TierForever Tier = "FOREVER"
	TierAdmin   Tier = "ADMIN_GRANT"
)

// ParseTier normalizes a user-supplied tier name.
func ParseTier(s string) (Tier, bool) {
	switch Tier(s) {
	case TierDay, TierWeek, TierMonth, TierForever:
		return Tier(s), true
	default:
		return TierNone, false
	}
}

// Perpetual reports whether the tier grants access regardless of expiry.
func (t Tier) Perpetual() bool {
	return t == TierForever || t == TierAdmin
}

// Duration returns the entitlement length purchased with the tier. FOREVER
// uses a far-future sentinel; the gate treats it as perpetual either way.
func (t Tier) Duration() (time.Duration, bool) {
	switch t {
	case TierDay:
		return 24 * time.Hour, true
	case TierWeek:
		return 7 * 24 * time.Hour, true
	case TierMonth:
		return 30 * 24 * time.Hour, true
	case TierForever:
		return 3650 * 24 * time.Hour, true
	default:
		return 0, false
	}
}

// Entitlement captures a user's current tier and expiry. One row per user;
// expired rows are not swept, the gate checks expiry on read.
type Entitlement struct {
	UserID    snowflake.ID `gorm:"primaryKey"`
	Tier      Tier         `gorm:"type:text;not null;default:'NONE'"`
	ExpiresAt *time.Time   `gorm:""`
	UpdatedAt time.Time    `gorm:"not null"`
}

// TableName sets the database table name.
func (Entitlement) TableName() string { return "entitlements" }
