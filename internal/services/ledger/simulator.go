package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"wire-payment-backend/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultGlAccount is the receivables account every manual posting targets.
const DefaultGlAccount = "1100-ACCOUNTS-RECEIVABLE"

// PostError marks a failed GL posting for a single contract.
type PostError struct {
	ContractID string
}

func (e *PostError) Error() string {
	return fmt.Sprintf("backend GL system temporarily unavailable for contract %s", e.ContractID)
}

// ReversalError marks a failed GL reversal.
type ReversalError struct {
	TransactionID string
}

func (e *ReversalError) Error() string {
	return "backend reversal system temporarily unavailable"
}

type ContractResult struct {
	ContractID    string    `json:"contractId"`
	Amount        float64   `json:"amount"`
	TransactionID string    `json:"transactionId"`
	GlAccount     string    `json:"glAccount"`
	Timestamp     time.Time `json:"timestamp"`
}

type ReversalResult struct {
	Success               bool      `json:"success"`
	ReversalTransactionID string    `json:"reversalTransactionId"`
	OriginalTransactionID string    `json:"originalTransactionId"`
	Timestamp             time.Time `json:"timestamp"`
}

// Simulator stands in for the backend general-ledger system. Calls carry
// simulated network latency and fail according to the injected FaultPolicy.
type Simulator struct {
	faults    FaultPolicy
	callDelay time.Duration
	log       *zap.Logger
}

func NewSimulator(faults FaultPolicy, callDelay time.Duration, log *zap.Logger) *Simulator {
	if faults == nil {
		faults = NewRandomFaults(0.05)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Simulator{faults: faults, callDelay: callDelay, log: log}
}

// Post records one contract allocation against the receivables account and
// returns the generated GL transaction.
func (s *Simulator) Post(ctx context.Context, payment *models.WirePayment, contractID string, amount float64, merchantDba string) (*ContractResult, error) {
	if err := s.sleep(ctx); err != nil {
		return nil, err
	}

	if s.faults.ShouldFail() {
		s.log.Warn("gl posting failed",
			zap.String("payment_id", payment.ID.String()),
			zap.String("contract_id", contractID))
		return nil, &PostError{ContractID: contractID}
	}

	res := &ContractResult{
		ContractID:    contractID,
		Amount:        amount,
		TransactionID: newTransactionID("GL"),
		GlAccount:     DefaultGlAccount,
		Timestamp:     time.Now().UTC(),
	}
	s.log.Info("gl posting succeeded",
		zap.String("payment_id", payment.ID.String()),
		zap.String("contract_id", contractID),
		zap.String("transaction_id", res.TransactionID),
		zap.Float64("amount", amount),
		zap.String("merchant_dba", merchantDba))
	return res, nil
}

// Reverse backs out a previously posted GL transaction.
func (s *Simulator) Reverse(ctx context.Context, payment *models.WirePayment, transactionID string) (*ReversalResult, error) {
	if err := s.sleep(ctx); err != nil {
		return nil, err
	}

	if s.faults.ShouldFail() {
		s.log.Warn("gl reversal failed",
			zap.String("payment_id", payment.ID.String()),
			zap.String("transaction_id", transactionID))
		return nil, &ReversalError{TransactionID: transactionID}
	}

	res := &ReversalResult{
		Success:               true,
		ReversalTransactionID: newTransactionID("REV"),
		OriginalTransactionID: transactionID,
		Timestamp:             time.Now().UTC(),
	}
	s.log.Info("gl reversal succeeded",
		zap.String("payment_id", payment.ID.String()),
		zap.String("reversal_transaction_id", res.ReversalTransactionID))
	return res, nil
}

func (s *Simulator) sleep(ctx context.Context) error {
	if s.callDelay <= 0 {
		return nil
	}
	timer := time.NewTimer(s.callDelay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func newTransactionID(prefix string) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:9]
	return fmt.Sprintf("%s-%d-%s", prefix, time.Now().UnixMilli(), suffix)
}
