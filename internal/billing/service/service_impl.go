package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	billingdomain "github.com/subgate/subgate/internal/billing/domain"
	"github.com/subgate/subgate/internal/clock"
	"github.com/subgate/subgate/internal/config"
	"github.com/subgate/subgate/internal/cryptopay"
	entitlementdomain "github.com/subgate/subgate/internal/entitlement/domain"
	invoicedomain "github.com/subgate/subgate/internal/invoice/domain"
	"github.com/subgate/subgate/internal/observability/metrics"
	userdomain "github.com/subgate/subgate/internal/user/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	Cfg             config.Config
	DB              *gorm.DB
	Log             *zap.Logger
	GenID           *snowflake.Node
	Clock           clock.Clock
	Processor       cryptopay.Client
	Invoices        invoicedomain.Repository
	Entitlements    entitlementdomain.Repository
	Users           userdomain.Service
	Metrics         *metrics.Metrics `optional:"true"`
}

type Service struct {
	cfg          config.BillingConfig
	asset        string
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	clock        clock.Clock
	processor    cryptopay.Client
	invoices     invoicedomain.Repository
	entitlements entitlementdomain.Repository
	users        userdomain.Service
	metrics      *metrics.Metrics
	locks        *keyedMutex
}

func NewService(p Params) billingdomain.Service {
	return &Service{
		cfg:          p.Cfg.Billing,
		asset:        p.Cfg.Processor.Asset,
		db:           p.DB,
		log:          p.Log.Named("billing.service"),
		genID:        p.GenID,
		clock:        p.Clock,
		processor:    p.Processor,
		invoices:     p.Invoices,
		entitlements: p.Entitlements,
		users:        p.Users,
		metrics:      p.Metrics,
		locks:        newKeyedMutex(),
	}
}

var tierOrder = []entitlementdomain.Tier{
	entitlementdomain.TierDay,
	entitlementdomain.TierWeek,
	entitlementdomain.TierMonth,
	entitlementdomain.TierForever,
}

func (s *Service) Tiers() []billingdomain.TierPrice {
	out := make([]billingdomain.TierPrice, 0, len(tierOrder))
	for _, tier := range tierOrder {
		amount, ok := s.cfg.Prices[string(tier)]
		if !ok {
			continue
		}
		out = append(out, billingdomain.TierPrice{Tier: tier, Amount: amount, Asset: s.asset})
	}
	return out
}

func (s *Service) Purchase(ctx context.Context, externalID int64, tier entitlementdomain.Tier) (invoicedomain.Invoice, error) {
	amount, ok := s.cfg.Prices[string(tier)]
	if !ok {
		return invoicedomain.Invoice{}, billingdomain.ErrUnknownTier
	}
	if _, ok := tier.Duration(); !ok {
		return invoicedomain.Invoice{}, billingdomain.ErrUnknownTier
	}

	user, err := s.users.Ensure(ctx, externalID, "")
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	created, err := s.processor.CreateInvoice(ctx, cryptopay.CreateInvoiceRequest{
		Asset:       s.asset,
		Amount:      amount,
		Description: fmt.Sprintf("%s access", tier),
		ExpiresIn:   int(s.cfg.InvoiceTTL.Seconds()),
	})
	if err != nil {
		s.log.Warn("processor createInvoice failed",
			zap.Int64("external_id", externalID),
			zap.String("tier", string(tier)),
			zap.Error(err))
		return invoicedomain.Invoice{}, fmt.Errorf("%w: %v", billingdomain.ErrPaymentUnavailable, err)
	}

	inv := invoicedomain.Invoice{
		ID:                 s.genID.Generate(),
		UserID:             user.ID,
		ProcessorInvoiceID: created.InvoiceID,
		Tier:               tier,
		Amount:             amount,
		Asset:              s.asset,
		PayURL:             created.PayURL,
		Status:             invoicedomain.StatusPending,
		CreatedAt:          s.clock.Now(),
	}
	if err := s.invoices.Insert(ctx, s.db, &inv); err != nil {
		if errors.Is(err, invoicedomain.ErrDuplicateInvoice) {
			s.log.Error("processor returned colliding invoice id",
				zap.String("invoice_id", created.InvoiceID))
			return invoicedomain.Invoice{}, billingdomain.ErrIdempotencyConflict
		}
		return invoicedomain.Invoice{}, err
	}

	if s.metrics != nil {
		s.metrics.IncInvoicesCreated()
	}
	s.log.Info("invoice created",
		zap.String("invoice_id", inv.ProcessorInvoiceID),
		zap.String("tier", string(tier)),
		zap.String("amount", amount.String()))
	return inv, nil
}

// errLostConfirmRace signals that the conditional status update applied zero
// rows: another confirmation got there first.
var errLostConfirmRace = errors.New("lost_confirm_race")

func (s *Service) Confirm(ctx context.Context, processorInvoiceID string) (billingdomain.Outcome, error) {
	unlock := s.locks.lock(processorInvoiceID)
	defer unlock()

	inv, err := s.invoices.FindByProcessorID(ctx, s.db, processorInvoiceID)
	if err != nil {
		return billingdomain.Outcome{}, err
	}

	switch inv.Status {
	case invoicedomain.StatusConfirmed:
		return s.recordedOutcome(ctx, inv)
	case invoicedomain.StatusCanceled, invoicedomain.StatusExpired:
		return billingdomain.Outcome{}, billingdomain.ErrInvoiceClosed
	}

	remote, err := s.processor.InvoiceStatus(ctx, processorInvoiceID)
	if err != nil {
		return billingdomain.Outcome{}, fmt.Errorf("%w: %v", billingdomain.ErrPaymentUnavailable, err)
	}
	if remote != cryptopay.StatusPaid {
		return billingdomain.Outcome{}, billingdomain.ErrPaymentNotReceived
	}

	duration, ok := inv.Tier.Duration()
	if !ok {
		return billingdomain.Outcome{}, billingdomain.ErrUnknownTier
	}
	now := s.clock.Now()
	expiry := now.Add(duration)

	// Ledger first, entitlement second, one transaction: a crash can leave
	// at most a confirmed ledger row without the grant, which the recovery
	// path in recordedOutcome repairs on the next confirm.
	err = s.db.Transaction(func(tx *gorm.DB) error {
		applied, err := s.invoices.ConfirmPending(ctx, tx, processorInvoiceID, now, expiry)
		if err != nil {
			return err
		}
		if !applied {
			return errLostConfirmRace
		}
		return s.entitlements.Upsert(ctx, tx, &entitlementdomain.Entitlement{
			UserID:    inv.UserID,
			Tier:      inv.Tier,
			ExpiresAt: &expiry,
			UpdatedAt: now,
		})
	})
	if errors.Is(err, errLostConfirmRace) {
		inv, err = s.invoices.FindByProcessorID(ctx, s.db, processorInvoiceID)
		if err != nil {
			return billingdomain.Outcome{}, err
		}
		if inv.Status != invoicedomain.StatusConfirmed {
			return billingdomain.Outcome{}, billingdomain.ErrInvoiceClosed
		}
		return s.recordedOutcome(ctx, inv)
	}
	if err != nil {
		return billingdomain.Outcome{}, err
	}

	if s.metrics != nil {
		s.metrics.IncInvoicesConfirmed()
	}
	s.log.Info("invoice confirmed",
		zap.String("invoice_id", processorInvoiceID),
		zap.String("tier", string(inv.Tier)),
		zap.Time("expires_at", expiry))
	return billingdomain.Outcome{Tier: inv.Tier, ExpiresAt: expiry}, nil
}

// recordedOutcome replays the outcome stored at confirmation time without
// touching the processor. When the entitlement row predates the
// confirmation the grant is re-applied: that is the crash between ledger
// and entitlement writes healing itself.
func (s *Service) recordedOutcome(ctx context.Context, inv *invoicedomain.Invoice) (billingdomain.Outcome, error) {
	expiry := s.grantedUntil(inv)

	ent, err := s.entitlements.Find(ctx, s.db, inv.UserID)
	if err != nil {
		return billingdomain.Outcome{}, err
	}
	stale := ent == nil
	if !stale && inv.ConfirmedAt != nil {
		stale = ent.UpdatedAt.Before(*inv.ConfirmedAt)
	}
	if stale {
		s.log.Warn("re-applying entitlement for confirmed invoice",
			zap.String("invoice_id", inv.ProcessorInvoiceID))
		err := s.entitlements.Upsert(ctx, s.db, &entitlementdomain.Entitlement{
			UserID:    inv.UserID,
			Tier:      inv.Tier,
			ExpiresAt: &expiry,
			UpdatedAt: s.clock.Now(),
		})
		if err != nil {
			return billingdomain.Outcome{}, err
		}
	}

	return billingdomain.Outcome{Tier: inv.Tier, ExpiresAt: expiry, AlreadyConfirmed: true}, nil
}

func (s *Service) grantedUntil(inv *invoicedomain.Invoice) time.Time {
	if inv.GrantedUntil != nil {
		return *inv.GrantedUntil
	}
	// Older rows confirmed before the memo column existed.
	base := s.clock.Now()
	if inv.ConfirmedAt != nil {
		base = *inv.ConfirmedAt
	}
	if duration, ok := inv.Tier.Duration(); ok {
		return base.Add(duration)
	}
	return base
}

func (s *Service) Cancel(ctx context.Context, processorInvoiceID string) error {
	inv, err := s.invoices.FindByProcessorID(ctx, s.db, processorInvoiceID)
	if err != nil {
		return err
	}
	switch inv.Status {
	case invoicedomain.StatusCanceled:
		return nil
	case invoicedomain.StatusConfirmed, invoicedomain.StatusExpired:
		return billingdomain.ErrInvoiceClosed
	}

	applied, err := s.invoices.CancelPending(ctx, s.db, processorInvoiceID)
	if err != nil {
		return err
	}
	if applied {
		return nil
	}
	// The conditional write lost to a concurrent transition; re-read to
	// tell an earlier cancel from a confirmation or expiry.
	inv, err = s.invoices.FindByProcessorID(ctx, s.db, processorInvoiceID)
	if err != nil {
		return err
	}
	if inv.Status == invoicedomain.StatusCanceled {
		return nil
	}
	return billingdomain.ErrInvoiceClosed
}

func (s *Service) GrantAdmin(ctx context.Context, externalID int64, days int) (entitlementdomain.Entitlement, error) {
	if days <= 0 {
		return entitlementdomain.Entitlement{}, billingdomain.ErrInvalidGrant
	}
	user, err := s.users.Ensure(ctx, externalID, "")
	if err != nil {
		return entitlementdomain.Entitlement{}, err
	}

	now := s.clock.Now()
	expiry := now.Add(time.Duration(days) * 24 * time.Hour)
	ent := entitlementdomain.Entitlement{
		UserID:    user.ID,
		Tier:      entitlementdomain.TierAdmin,
		ExpiresAt: &expiry,
		UpdatedAt: now,
	}
	if err := s.entitlements.Upsert(ctx, s.db, &ent); err != nil {
		return entitlementdomain.Entitlement{}, err
	}

	if s.metrics != nil {
		s.metrics.IncAdminGrants()
	}
	s.log.Info("admin grant applied",
		zap.Int64("external_id", externalID),
		zap.Int("days", days))
	return ent, nil
}

func (s *Service) ExpireStale(ctx context.Context) (int64, error) {
	cutoff := s.clock.Now().Add(-s.cfg.InvoiceTTL)
	expired, err := s.invoices.ExpireStale(ctx, s.db, cutoff)
	if err != nil {
		return 0, err
	}
	if expired > 0 {
		if s.metrics != nil {
			s.metrics.AddInvoicesExpired(int(expired))
		}
		s.log.Info("expired stale invoices", zap.Int64("count", expired))
	}
	return expired, nil
}
