package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/subgate/subgate/internal/clock"
	entitlementdomain "github.com/subgate/subgate/internal/entitlement/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Repo  entitlementdomain.Repository
	Clock clock.Clock
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	repo  entitlementdomain.Repository
	clock clock.Clock
}

func NewService(p Params) entitlementdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("entitlement.service"),
		repo:  p.Repo,
		clock: p.Clock,
	}
}

func (s *Service) Get(ctx context.Context, userID snowflake.ID) (entitlementdomain.Entitlement, error) {
	ent, err := s.repo.Find(ctx, s.db, userID)
	if err != nil {
		return entitlementdomain.Entitlement{}, err
	}
	if ent == nil {
		return entitlementdomain.Entitlement{UserID: userID, Tier: entitlementdomain.TierNone}, nil
	}
	return *ent, nil
}

func (s *Service) Set(ctx context.Context, userID snowflake.ID, tier entitlementdomain.Tier, expiresAt *time.Time) error {
	return s.repo.Upsert(ctx, s.db, &entitlementdomain.Entitlement{
		UserID:    userID,
		Tier:      tier,
		ExpiresAt: expiresAt,
		UpdatedAt: s.clock.Now(),
	})
}

// HasAccess applies the gate: perpetual tiers pass, timed tiers pass while
// unexpired, everything else is denied. Missing expiry on a timed tier
// denies access rather than erroring.
func (s *Service) HasAccess(ctx context.Context, userID snowflake.ID) (bool, error) {
	ent, err := s.Get(ctx, userID)
	if err != nil {
		return false, err
	}
	return hasAccess(ent, s.clock.Now()), nil
}

func hasAccess(ent entitlementdomain.Entitlement, now time.Time) bool {
	if ent.Tier.Perpetual() {
		return true
	}
	if ent.Tier == entitlementdomain.TierNone || ent.ExpiresAt == nil {
		return false
	}
	return now.Before(*ent.ExpiresAt)
}
