package domain

import (
	"context"
	"errors"
)

var ErrUserNotFound = errors.New("user_not_found")

type Service interface {
	// Ensure creates the user on first contact. Existing rows are returned
	// untouched; only an empty stored handle is refreshed.
	Ensure(ctx context.Context, externalID int64, handle string) (User, error)
	Get(ctx context.Context, externalID int64) (User, error)
	// RecordOperation increments the gated-operation counter.
	RecordOperation(ctx context.Context, externalID int64) error
	Count(ctx context.Context) (int64, error)
	TotalOperations(ctx context.Context) (int64, error)
}
