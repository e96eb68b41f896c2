// Package domain contains the invoice ledger model. Invoices are never
// physically deleted; the ledger is the audit trail of every payment ever
// requested.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	entitlementdomain "github.com/subgate/subgate/internal/entitlement/domain"
)

// Status represents lifecycle states for an invoice. CONFIRMED, CANCELED
// and EXPIRED are terminal.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusCanceled  Status = "CANCELED"
	StatusExpired   Status = "EXPIRED"
)

// Terminal reports whether no further transitions are allowed.
func (s Status) Terminal() bool {
	return s == StatusConfirmed || s == StatusCanceled || s == StatusExpired
}

// Invoice records a requested payment for a tier, keyed to the payment
// processor's identifier. ProcessorInvoiceID doubles as the idempotency
// key for reconciliation.
type Invoice struct {
	ID                 snowflake.ID           `gorm:"primaryKey"`
	UserID             snowflake.ID           `gorm:"not null;index"`
	ProcessorInvoiceID string                 `gorm:"type:text;not null;uniqueIndex"`
	Tier               entitlementdomain.Tier `gorm:"type:text;not null"`
	Amount             decimal.Decimal        `gorm:"type:decimal(18,8);not null"`
	Asset              string                 `gorm:"type:text;not null"`
	PayURL             string                 `gorm:"type:text"`
	Status             Status                 `gorm:"type:text;not null;index"`
	CreatedAt          time.Time              `gorm:"not null"`
	ConfirmedAt        *time.Time             `gorm:""`
	// GrantedUntil memoizes the expiry computed when the invoice confirmed,
	// so repeated confirmations return the original outcome.
	GrantedUntil *time.Time `gorm:""`
}

// TableName sets the database table name.
func (Invoice) TableName() string { return "invoices" }
