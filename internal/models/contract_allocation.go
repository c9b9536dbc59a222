package models

import (
	"time"

	"github.com/google/uuid"
)

type ContractAllocation struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	WirePaymentID uuid.UUID `gorm:"index"`
	ContractID    string
	Amount        float64
	Percentage    float64 // share of the payment's actual amount, 0-100
	GlAccount     string
	TransactionID *string
	CreatedAt     time.Time
}
