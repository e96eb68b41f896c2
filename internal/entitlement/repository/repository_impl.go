package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	entitlementdomain "github.com/subgate/subgate/internal/entitlement/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() entitlementdomain.Repository {
	return &repo{}
}

func (r *repo) Find(ctx context.Context, db *gorm.DB, userID snowflake.ID) (*entitlementdomain.Entitlement, error) {
	var ent entitlementdomain.Entitlement
	err := db.WithContext(ctx).First(&ent, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ent, nil
}

func (r *repo) Upsert(ctx context.Context, db *gorm.DB, ent *entitlementdomain.Entitlement) error {
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"tier", "expires_at", "updated_at"}),
	}).Create(ent).Error
}
