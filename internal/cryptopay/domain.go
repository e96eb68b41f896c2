// Package cryptopay is the outbound client for the crypto payment
// processor's invoice API. It is a pure remote lookup layer: it never
// mutates local state and never retries; callers own both.
package cryptopay

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// ErrProcessor wraps every transport failure, timeout, non-2xx status,
// malformed body and explicit ok:false payload, so callers can degrade
// gracefully without inspecting the cause.
var ErrProcessor = errors.New("payment_processor_unavailable")

// Status is the remote invoice status space.
type Status string

const (
	StatusActive  Status = "active"
	StatusPaid    Status = "paid"
	StatusExpired Status = "expired"
	StatusUnknown Status = "unknown"
)

type CreateInvoiceRequest struct {
	Asset       string
	Amount      decimal.Decimal
	Description string
	// ExpiresIn is the invoice lifetime in seconds as understood by the
	// processor.
	ExpiresIn int
}

type CreatedInvoice struct {
	InvoiceID string
	PayURL    string
}

type Client interface {
	CreateInvoice(ctx context.Context, req CreateInvoiceRequest) (*CreatedInvoice, error)
	// InvoiceStatus looks up a single invoice. Ids the processor no longer
	// knows come back as StatusUnknown, not as an error.
	InvoiceStatus(ctx context.Context, invoiceID string) (Status, error)
}
