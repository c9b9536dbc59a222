package repository

import (
	"context"
	"errors"
	"time"

	"wire-payment-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrAlreadyStamped is returned when a revert stamp targets an audit log whose
// reverted_at is no longer null.
var ErrAlreadyStamped = errors.New("audit log already marked reverted")

type AuditLogRepository struct {
	db *gorm.DB
}

func NewAuditLogRepository(db *gorm.DB) *AuditLogRepository {
	return &AuditLogRepository{db: db}
}

func (r *AuditLogRepository) Append(ctx context.Context, entry *models.AuditLog) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *AuditLogRepository) AppendAll(ctx context.Context, entries []models.AuditLog) error {
	for i := range entries {
		if err := r.Append(ctx, &entries[i]); err != nil {
			return err
		}
	}
	return nil
}

// MarkReverted stamps reverted_at/reverted_by at most once. The conditional
// update makes a second stamp of the same entry fail regardless of what the
// caller read.
func (r *AuditLogRepository) MarkReverted(ctx context.Context, id uuid.UUID, by string, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&models.AuditLog{}).
		Where("id = ? AND reverted_at IS NULL", id).
		Updates(map[string]interface{}{
			"reverted_at": at,
			"reverted_by": by,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrAlreadyStamped
	}
	return nil
}
