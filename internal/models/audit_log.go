package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Audit actions.
const (
	ActionAutoCleared            = "AUTO_CLEARED"
	ActionCleared                = "CLEARED"
	ActionStatusChanged          = "STATUS_CHANGED"
	ActionManualPost             = "MANUAL_POST"
	ActionBackendPostSuccess     = "BACKEND_POST_SUCCESS"
	ActionBackendPostFailed      = "BACKEND_POST_FAILED"
	ActionReverted               = "REVERTED"
	ActionBackendReversalSuccess = "BACKEND_REVERSAL_SUCCESS"
	ActionBackendReversalFailed  = "BACKEND_REVERSAL_FAILED"
	ActionDbaUpdated             = "DBA_UPDATED"
	ActionNotesUpdated           = "NOTES_UPDATED"
)

type AuditLog struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	WirePaymentID uuid.UUID `gorm:"index"`
	UserID        string
	Action        string `gorm:"index"`
	PreviousValue *string
	NewValue      *string
	Details       string
	Metadata      datatypes.JSON // per-contract backend results for BACKEND_POST_SUCCESS
	IsRevertible  bool
	RevertedAt    *time.Time
	RevertedBy    *string
	Timestamp     time.Time `gorm:"index"`
}
