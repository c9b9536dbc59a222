package models

import (
	"time"

	"github.com/google/uuid"
)

// Payment statuses.
const (
	StatusPending        = "PENDING"
	StatusCleared        = "CLEARED"
	StatusAutoCleared    = "AUTO_CLEARED"
	StatusUncleared      = "UNCLEARED"
	StatusReviewRequired = "REVIEW_REQUIRED"
	StatusManualPosted   = "MANUAL_POSTED"
	StatusReverted       = "REVERTED"
)

type WirePayment struct {
	ID                   uuid.UUID `gorm:"type:uuid;primaryKey"`
	Dba                  string    `gorm:"index"`
	Cid                  *string   // legacy single-contract id
	ExpectedAmount       float64
	ActualAmount         float64
	ExpectedDate         time.Time
	ActualDateReceived   time.Time `gorm:"index"`
	Ptp                  bool
	AutoCleared          bool
	IsReverted           bool
	HasMultipleContracts bool
	Status               string `gorm:"index"`
	ProcessedBy          string
	NotesForTreasury     string
	BackendTransactionID *string // legacy single-contract transaction id
	OriginalStatus       *string // status snapshot taken before a full reversal
	RevertedAt           *time.Time
	RevertedBy           *string
	Version              int64 `gorm:"not null;default:0"`
	CreatedAt            time.Time
	UpdatedAt            time.Time

	AuditLogs           []AuditLog           `gorm:"foreignKey:WirePaymentID"`
	ContractAllocations []ContractAllocation `gorm:"foreignKey:WirePaymentID"`
}
