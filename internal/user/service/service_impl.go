package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/subgate/subgate/internal/clock"
	userdomain "github.com/subgate/subgate/internal/user/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  userdomain.Repository
	Clock clock.Clock
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  userdomain.Repository
	clock clock.Clock
}

func NewService(p Params) userdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("user.service"),
		genID: p.GenID,
		repo:  p.Repo,
		clock: p.Clock,
	}
}

func (s *Service) Ensure(ctx context.Context, externalID int64, handle string) (userdomain.User, error) {
	existing, err := s.repo.FindByExternalID(ctx, s.db, externalID)
	if err != nil {
		return userdomain.User{}, err
	}
	if existing != nil {
		if existing.Handle == "" && handle != "" {
			if err := s.repo.UpdateHandle(ctx, s.db, externalID, handle); err != nil {
				return userdomain.User{}, err
			}
			existing.Handle = handle
		}
		return *existing, nil
	}

	now := s.clock.Now()
	user := userdomain.User{
		ID:         s.genID.Generate(),
		ExternalID: externalID,
		Handle:     handle,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.Insert(ctx, s.db, &user); err != nil {
		// Concurrent first contact; the other writer's row wins.
		if again, findErr := s.repo.FindByExternalID(ctx, s.db, externalID); findErr == nil && again != nil {
			return *again, nil
		}
		return userdomain.User{}, err
	}
	return user, nil
}

func (s *Service) Get(ctx context.Context, externalID int64) (userdomain.User, error) {
	user, err := s.repo.FindByExternalID(ctx, s.db, externalID)
	if err != nil {
		return userdomain.User{}, err
	}
	if user == nil {
		return userdomain.User{}, userdomain.ErrUserNotFound
	}
	return *user, nil
}

func (s *Service) RecordOperation(ctx context.Context, externalID int64) error {
	return s.repo.IncrementOperations(ctx, s.db, externalID)
}

func (s *Service) Count(ctx context.Context) (int64, error) {
	return s.repo.Count(ctx, s.db)
}

func (s *Service) TotalOperations(ctx context.Context) (int64, error) {
	return s.repo.SumOperations(ctx, s.db)
}
