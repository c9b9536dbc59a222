package repository

import (
	"context"
	"errors"
	"time"

	"wire-payment-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrVersionConflict is returned when a conditional update finds the payment
// row changed since it was read.
var ErrVersionConflict = errors.New("wire payment was modified concurrently")

type WirePaymentRepository struct {
	db *gorm.DB
}

func NewWirePaymentRepository(db *gorm.DB) *WirePaymentRepository {
	return &WirePaymentRepository{db: db}
}

// Expose DB if needed
func (r *WirePaymentRepository) DB() *gorm.DB {
	return r.db
}

// ListWithRelations returns every payment ordered by receipt date, with audit
// logs newest-first and allocations oldest-first.
func (r *WirePaymentRepository) ListWithRelations(ctx context.Context) ([]models.WirePayment, error) {
	var payments []models.WirePayment
	err := r.db.WithContext(ctx).
		Preload("AuditLogs", func(db *gorm.DB) *gorm.DB {
			return db.Order("timestamp DESC")
		}).
		Preload("ContractAllocations", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Order("actual_date_received DESC").
		Find(&payments).Error
	return payments, err
}

func (r *WirePaymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.WirePayment, error) {
	var payment models.WirePayment
	err := r.db.WithContext(ctx).First(&payment, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *WirePaymentRepository) GetWithAuditLogs(ctx context.Context, id uuid.UUID) (*models.WirePayment, error) {
	var payment models.WirePayment
	err := r.db.WithContext(ctx).
		Preload("AuditLogs", func(db *gorm.DB) *gorm.DB {
			return db.Order("timestamp DESC")
		}).
		First(&payment, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// UpdateVersioned applies updates only when the stored row still carries the
// version the caller read. A lost race surfaces as ErrVersionConflict.
func (r *WirePaymentRepository) UpdateVersioned(ctx context.Context, payment *models.WirePayment, updates map[string]interface{}) error {
	merged := make(map[string]interface{}, len(updates)+2)
	for k, v := range updates {
		merged[k] = v
	}
	merged["version"] = payment.Version + 1
	merged["updated_at"] = time.Now()

	res := r.db.WithContext(ctx).
		Model(&models.WirePayment{}).
		Where("id = ? AND version = ?", payment.ID, payment.Version).
		Updates(merged)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrVersionConflict
	}
	payment.Version++
	return nil
}

func (r *WirePaymentRepository) CreateAllocations(ctx context.Context, allocations []models.ContractAllocation) error {
	if len(allocations) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&allocations).Error
}
