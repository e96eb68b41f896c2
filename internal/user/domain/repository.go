package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	// FindByExternalID returns nil without error when the user is unknown.
	FindByExternalID(ctx context.Context, db *gorm.DB, externalID int64) (*User, error)
	Insert(ctx context.Context, db *gorm.DB, user *User) error
	UpdateHandle(ctx context.Context, db *gorm.DB, externalID int64, handle string) error
	IncrementOperations(ctx context.Context, db *gorm.DB, externalID int64) error
	Count(ctx context.Context, db *gorm.DB) (int64, error)
	SumOperations(ctx context.Context, db *gorm.DB) (int64, error)
}
