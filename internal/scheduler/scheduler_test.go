package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	billingdomain "github.com/subgate/subgate/internal/billing/domain"
	"github.com/subgate/subgate/internal/config"
	"go.uber.org/zap"
)

// sweepCounter records ExpireStale calls; no other service method is
// exercised by the loop.
type sweepCounter struct {
	billingdomain.Service
	calls atomic.Int64
}

func (s *sweepCounter) ExpireStale(ctx context.Context) (int64, error) {
	s.calls.Add(1)
	return 1, nil
}

func TestRunForeverSweepsOnTick(t *testing.T) {
	svc := &sweepCounter{}
	sched := New(Params{
		Cfg:        config.Config{Billing: config.BillingConfig{SweepInterval: time.Minute}},
		Log:        zap.NewNop(),
		BillingSvc: svc,
	})

	ticks := make(chan time.Time)
	sched.newTicker = func(time.Duration) (<-chan time.Time, func()) {
		return ticks, func() {}
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sched.RunForever(ctx)
		close(done)
	}()

	ticks <- time.Now()
	ticks <- time.Now()
	cancel()
	<-done

	require.Equal(t, int64(2), svc.calls.Load())
}

func TestDefaultSweepInterval(t *testing.T) {
	sched := New(Params{
		Cfg:        config.Config{},
		Log:        zap.NewNop(),
		BillingSvc: &sweepCounter{},
	})
	require.Equal(t, 5*time.Minute, sched.interval)
}
