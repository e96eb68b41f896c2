package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	// Find returns nil without error when the user has no entitlement row.
	Find(ctx context.Context, db *gorm.DB, userID snowflake.ID) (*Entitlement, error)
	// Upsert replaces tier and expiry wholesale.
	Upsert(ctx context.Context, db *gorm.DB, ent *Entitlement) error
}
