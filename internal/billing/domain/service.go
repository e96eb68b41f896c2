// Package domain defines the reconciliation surface: purchasing a tier,
// confirming payment against the processor, and applying the resulting
// entitlement exactly once.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	entitlementdomain "github.com/subgate/subgate/internal/entitlement/domain"
	invoicedomain "github.com/subgate/subgate/internal/invoice/domain"
)

var (
	// ErrUnknownTier means the requested tier has no configured price.
	ErrUnknownTier = errors.New("unknown_tier")
	// ErrPaymentUnavailable means the processor was unreachable or returned
	// garbage; the caller may retry later.
	ErrPaymentUnavailable = errors.New("payment_system_unavailable")
	// ErrPaymentNotReceived means the processor has not seen the payment
	// yet; nothing was mutated.
	ErrPaymentNotReceived = errors.New("payment_not_received")
	// ErrIdempotencyConflict means the processor handed out an invoice id
	// the ledger already holds. Defensive; nothing is granted.
	ErrIdempotencyConflict = errors.New("idempotency_conflict")
	// ErrInvoiceClosed means the invoice reached CANCELED or EXPIRED and
	// allows no further transitions.
	ErrInvoiceClosed = errors.New("invoice_closed")
	// ErrInvalidGrant means an admin grant had a non-positive day count.
	ErrInvalidGrant = errors.New("invalid_grant")
)

// TierPrice is one row of the static price table.
type TierPrice struct {
	Tier   entitlementdomain.Tier `json:"tier"`
	Amount decimal.Decimal        `json:"amount"`
	Asset  string                 `json:"asset"`
}

// Outcome is the result of a confirmed reconciliation. Repeated confirms of
// the same invoice return the identical outcome.
type Outcome struct {
	Tier             entitlementdomain.Tier `json:"tier"`
	ExpiresAt        time.Time              `json:"expires_at"`
	AlreadyConfirmed bool                   `json:"already_confirmed"`
}

type Service interface {
	// Tiers returns the purchasable price table in presentation order.
	Tiers() []TierPrice
	// Purchase creates a processor invoice and records it PENDING. No
	// ledger row is written when the processor call fails.
	Purchase(ctx context.Context, externalID int64, tier entitlementdomain.Tier) (invoicedomain.Invoice, error)
	// Confirm reconciles a local invoice against the processor and applies
	// the entitlement at most once.
	Confirm(ctx context.Context, processorInvoiceID string) (Outcome, error)
	// Cancel marks a pending invoice CANCELED locally; nothing is sent to
	// the processor.
	Cancel(ctx context.Context, processorInvoiceID string) error
	// GrantAdmin writes an ADMIN_GRANT entitlement directly, bypassing
	// invoices.
	GrantAdmin(ctx context.Context, externalID int64, days int) (entitlementdomain.Entitlement, error)
	// ExpireStale sweeps PENDING invoices older than the configured TTL.
	ExpireStale(ctx context.Context) (int64, error)
}
