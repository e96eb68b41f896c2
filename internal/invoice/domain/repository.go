package domain

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

var (
	ErrDuplicateInvoice = errors.New("duplicate_invoice")
	ErrInvoiceNotFound  = errors.New("invoice_not_found")
)

type Repository interface {
	// Insert fails with ErrDuplicateInvoice when the processor id already
	// exists in the ledger.
	Insert(ctx context.Context, db *gorm.DB, inv *Invoice) error
	FindByProcessorID(ctx context.Context, db *gorm.DB, processorID string) (*Invoice, error)
	// CancelPending flips PENDING to CANCELED, reporting whether the update
	// applied. A false return with no error means the invoice was no longer
	// PENDING when the write landed.
	CancelPending(ctx context.Context, db *gorm.DB, processorID string) (bool, error)
	// ConfirmPending flips PENDING to CONFIRMED and records the grant,
	// reporting whether the update applied. A false return with no error
	// means the invoice was not PENDING, so a concurrent or earlier
	// confirmation already won.
	ConfirmPending(ctx context.Context, db *gorm.DB, processorID string, confirmedAt time.Time, grantedUntil time.Time) (bool, error)
	// ExpireStale marks PENDING invoices created before the cutoff as
	// EXPIRED and returns how many rows changed.
	ExpireStale(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error)
	CountByStatus(ctx context.Context, db *gorm.DB, status Status) (int64, error)
}
