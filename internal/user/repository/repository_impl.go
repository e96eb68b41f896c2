package repository

import (
	"context"
	"errors"

	userdomain "github.com/subgate/subgate/internal/user/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() userdomain.Repository {
	return &repo{}
}

func (r *repo) FindByExternalID(ctx context.Context, db *gorm.DB, externalID int64) (*userdomain.User, error) {
	var user userdomain.User
	err := db.WithContext(ctx).First(&user, "external_id = ?", externalID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, user *userdomain.User) error {
	return db.WithContext(ctx).Create(user).Error
}

func (r *repo) UpdateHandle(ctx context.Context, db *gorm.DB, externalID int64, handle string) error {
	return db.WithContext(ctx).Model(&userdomain.User{}).
		Where("external_id = ?", externalID).
		Update("handle", handle).Error
}

func (r *repo) IncrementOperations(ctx context.Context, db *gorm.DB, externalID int64) error {
	res := db.WithContext(ctx).Model(&userdomain.User{}).
		Where("external_id = ?", externalID).
		Update("operation_count", gorm.Expr("operation_count + 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return userdomain.ErrUserNotFound
	}
	return nil
}

func (r *repo) Count(ctx context.Context, db *gorm.DB) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Model(&userdomain.User{}).Count(&count).Error
	return count, err
}

func (r *repo) SumOperations(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Model(&userdomain.User{}).
		Select("COALESCE(SUM(operation_count), 0)").
		Scan(&total).Error
	return total, err
}
