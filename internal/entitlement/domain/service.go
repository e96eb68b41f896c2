package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrInvalidTier = errors.New("invalid_tier")
)

// Service is the access check surface and the single writer of
// entitlement rows.
type Service interface {
	// Get returns the stored entitlement, or a zero-value NONE entitlement
	// when the user has no row. It never fails for a missing user.
	Get(ctx context.Context, userID snowflake.ID) (Entitlement, error)
	// Set overwrites the user's tier and expiry, creating the row if needed.
	Set(ctx context.Context, userID snowflake.ID, tier Tier, expiresAt *time.Time) error
	// HasAccess reports whether the user's entitlement currently permits
	// use of the gated feature. Malformed rows deny access.
	HasAccess(ctx context.Context, userID snowflake.ID) (bool, error)
}
