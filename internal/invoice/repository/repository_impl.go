package repository

import (
	"context"
	"errors"
	"time"

	invoicedomain "github.com/subgate/subgate/internal/invoice/domain"
	"github.com/subgate/subgate/pkg/db"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() invoicedomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, dbConn *gorm.DB, inv *invoicedomain.Invoice) error {
	var count int64
	if err := dbConn.WithContext(ctx).Model(&invoicedomain.Invoice{}).
		Where("processor_invoice_id = ?", inv.ProcessorInvoiceID).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return invoicedomain.ErrDuplicateInvoice
	}

	err := dbConn.WithContext(ctx).Create(inv).Error
	if db.IsDuplicateKeyErr(err) {
		// Lost the race to the unique index.
		return invoicedomain.ErrDuplicateInvoice
	}
	return err
}

func (r *repo) FindByProcessorID(ctx context.Context, dbConn *gorm.DB, processorID string) (*invoicedomain.Invoice, error) {
	var inv invoicedomain.Invoice
	err := dbConn.WithContext(ctx).First(&inv, "processor_invoice_id = ?", processorID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, invoicedomain.ErrInvoiceNotFound
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *repo) CancelPending(ctx context.Context, dbConn *gorm.DB, processorID string) (bool, error) {
	res := dbConn.WithContext(ctx).Model(&invoicedomain.Invoice{}).
		Where("processor_invoice_id = ? AND status = ?", processorID, invoicedomain.StatusPending).
		Update("status", invoicedomain.StatusCanceled)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repo) ConfirmPending(ctx context.Context, dbConn *gorm.DB, processorID string, confirmedAt time.Time, grantedUntil time.Time) (bool, error) {
	res := dbConn.WithContext(ctx).Model(&invoicedomain.Invoice{}).
		Where("processor_invoice_id = ? AND status = ?", processorID, invoicedomain.StatusPending).
		Updates(map[string]any{
			"status":        invoicedomain.StatusConfirmed,
			"confirmed_at":  confirmedAt,
			"granted_until": grantedUntil,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repo) ExpireStale(ctx context.Context, dbConn *gorm.DB, cutoff time.Time) (int64, error) {
	res := dbConn.WithContext(ctx).Model(&invoicedomain.Invoice{}).
		Where("status = ? AND created_at < ?", invoicedomain.StatusPending, cutoff).
		Update("status", invoicedomain.StatusExpired)
	return res.RowsAffected, res.Error
}

func (r *repo) CountByStatus(ctx context.Context, dbConn *gorm.DB, status invoicedomain.Status) (int64, error) {
	var count int64
	err := dbConn.WithContext(ctx).Model(&invoicedomain.Invoice{}).
		Where("status = ?", status).
		Count(&count).Error
	return count, err
}
