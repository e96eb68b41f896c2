// Package scheduler runs the periodic sweep that expires stale PENDING
// invoices. It never touches entitlement state.
package scheduler

import (
	"context"
	"time"

	billingdomain "github.com/subgate/subgate/internal/billing/domain"
	"github.com/subgate/subgate/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Cfg        config.Config
	Log        *zap.Logger
	BillingSvc billingdomain.Service
}

type Scheduler struct {
	interval   time.Duration
	log        *zap.Logger
	billingSvc billingdomain.Service
	// newTicker is swapped out in tests to drive sweep timing by hand.
	newTicker func(time.Duration) (<-chan time.Time, func())
}

func New(p Params) *Scheduler {
	interval := p.Cfg.Billing.SweepInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Scheduler{
		interval:   interval,
		log:        p.Log.Named("scheduler"),
		billingSvc: p.BillingSvc,
		newTicker: func(d time.Duration) (<-chan time.Time, func()) {
			t := time.NewTicker(d)
			return t.C, t.Stop
		},
	}
}

// RunForever sweeps on the configured interval until the context is
// canceled.
func (s *Scheduler) RunForever(ctx context.Context) {
	ticks, stop := s.newTicker(s.interval)
	defer stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticks:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	sweepCtx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	if _, err := s.billingSvc.ExpireStale(sweepCtx); err != nil {
		s.log.Warn("invoice sweep failed", zap.Error(err))
	}
}
