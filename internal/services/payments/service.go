package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"wire-payment-backend/internal/metrics"
	"wire-payment-backend/internal/models"
	"wire-payment-backend/internal/repository"
	"wire-payment-backend/internal/services/ledger"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SystemActor is the identity recorded on evaluator-driven transitions.
const SystemActor = "system_auto"

// AllocationTolerance bounds the drift allowed between the allocation sum
// and the payment's actual amount. Anything from a full cent up is rejected.
const AllocationTolerance = 0.01

// GlClient is the slice of the ledger simulator the service depends on.
type GlClient interface {
	Post(ctx context.Context, payment *models.WirePayment, contractID string, amount float64, merchantDba string) (*ledger.ContractResult, error)
	Reverse(ctx context.Context, payment *models.WirePayment, transactionID string) (*ledger.ReversalResult, error)
}

type Service struct {
	payments *repository.WirePaymentRepository
	audits   *repository.AuditLogRepository
	gl       GlClient
	log      *zap.Logger
}

func NewService(
	payments *repository.WirePaymentRepository,
	audits *repository.AuditLogRepository,
	gl GlClient,
	log *zap.Logger,
) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		payments: payments,
		audits:   audits,
		gl:       gl,
		log:      log,
	}
}

// List runs the auto-clear evaluator over the collection, then re-reads it so
// the response reflects post-evaluation state.
func (s *Service) List(ctx context.Context) ([]models.WirePayment, error) {
	payments, err := s.payments.ListWithRelations(ctx)
	if err != nil {
		return nil, err
	}

	for i := range payments {
		p := &payments[i]
		if !autoClearEligible(p) {
			continue
		}
		if err := s.autoClear(ctx, p); err != nil {
			// Another lister may have cleared it first; the re-read below
			// picks up whichever transition won.
			s.log.Warn("auto-clear skipped",
				zap.String("payment_id", p.ID.String()),
				zap.Error(err))
		}
	}

	return s.payments.ListWithRelations(ctx)
}

func autoClearEligible(p *models.WirePayment) bool {
	return p.ActualAmount == p.ExpectedAmount &&
		p.Status == models.StatusPending &&
		!p.AutoCleared &&
		!p.IsReverted
}

func (s *Service) autoClear(ctx context.Context, p *models.WirePayment) error {
	err := s.payments.UpdateVersioned(ctx, p, map[string]interface{}{
		"status":       models.StatusAutoCleared,
		"auto_cleared": true,
		"processed_by": SystemActor,
	})
	if err != nil {
		return err
	}

	prev := models.StatusPending
	next := models.StatusAutoCleared
	entry := models.AuditLog{
		WirePaymentID: p.ID,
		UserID:        SystemActor,
		Action:        models.ActionAutoCleared,
		PreviousValue: &prev,
		NewValue:      &next,
		Details: fmt.Sprintf("Auto-cleared: Actual amount ($%.2f) matches expected amount ($%.2f)",
			p.ActualAmount, p.ExpectedAmount),
		IsRevertible: true,
	}
	if err := s.audits.Append(ctx, &entry); err != nil {
		return err
	}

	metrics.AutoCleared.Inc()
	s.log.Info("payment auto-cleared", zap.String("payment_id", p.ID.String()))
	return nil
}

// Clear transitions a payment to CLEARED without any amount check. This is a
// human-authorized override; the caller decides when it is appropriate.
func (s *Service) Clear(ctx context.Context, id uuid.UUID, actor string) (*models.WirePayment, error) {
	p, err := s.payments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}

	prev := p.Status
	err = s.payments.UpdateVersioned(ctx, p, map[string]interface{}{
		"status":       models.StatusCleared,
		"processed_by": actor,
	})
	if err != nil {
		return nil, err
	}

	next := models.StatusCleared
	entry := models.AuditLog{
		WirePaymentID: p.ID,
		UserID:        actor,
		Action:        models.ActionStatusChanged,
		PreviousValue: &prev,
		NewValue:      &next,
		Details:       "Payment marked as cleared - amounts matched and PTP flag verified",
	}
	if err := s.audits.Append(ctx, &entry); err != nil {
		return nil, err
	}

	p.Status = models.StatusCleared
	p.ProcessedBy = actor
	return p, nil
}

type AllocationInput struct {
	ContractID string
	Amount     float64
}

type ManualPostInput struct {
	Allocations []AllocationInput
	MerchantDba string
	Notes       string
}

// BackendResponse is the aggregate GL result returned to the caller.
type BackendResponse struct {
	Success         bool                    `json:"success"`
	TotalAmount     float64                 `json:"totalAmount"`
	ContractResults []ledger.ContractResult `json:"contractResults"`
	Timestamp       time.Time               `json:"timestamp"`
}

type ManualPostResult struct {
	Payment     *models.WirePayment
	Allocations []models.ContractAllocation
	Backend     *BackendResponse
}

// ManualPost validates the allocation set, posts each allocation to the GL
// sequentially, then persists allocations, payment updates, and audit trail.
// A mid-batch GL failure aborts without rolling back already-posted
// allocations; the failure is audited and surfaced as a BackendError.
func (s *Service) ManualPost(ctx context.Context, id uuid.UUID, in ManualPostInput, actor string) (*ManualPostResult, error) {
	if len(in.Allocations) == 0 || strings.TrimSpace(in.MerchantDba) == "" {
		return nil, validationf("Contract allocations and Merchant DBA are required")
	}

	p, err := s.payments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}

	if p.IsReverted {
		return nil, &ConflictError{Message: "Cannot post reverted payment"}
	}

	allocations := make([]AllocationInput, len(in.Allocations))
	copy(allocations, in.Allocations)

	// Legacy single-contract requests carry no amount; they mean the full
	// actual amount.
	if len(allocations) == 1 && allocations[0].Amount == 0 {
		allocations[0].Amount = p.ActualAmount
	}

	total := 0.0
	for _, a := range allocations {
		total += a.Amount
	}
	// The boundary must reject a full-cent mismatch even when float64
	// rounding lands the difference a hair under 0.01 (750 - 749.99).
	if math.Abs(total-p.ActualAmount) >= AllocationTolerance-1e-9 {
		return nil, validationf(
			"Total allocated amount ($%.2f) must equal actual payment amount ($%.2f)",
			total, p.ActualAmount)
	}

	for _, a := range allocations {
		if strings.TrimSpace(a.ContractID) == "" || a.Amount <= 0 {
			return nil, validationf("All contract IDs must be provided and amounts must be positive")
		}
	}

	results := make([]ledger.ContractResult, 0, len(allocations))
	for _, a := range allocations {
		res, postErr := s.gl.Post(ctx, p, a.ContractID, a.Amount, in.MerchantDba)
		if postErr != nil {
			failEntry := models.AuditLog{
				WirePaymentID: p.ID,
				UserID:        actor,
				Action:        models.ActionBackendPostFailed,
				Details:       fmt.Sprintf("Backend posting failed: %v", postErr),
			}
			if auditErr := s.audits.Append(ctx, &failEntry); auditErr != nil {
				s.log.Error("failed to audit backend posting failure",
					zap.String("payment_id", p.ID.String()), zap.Error(auditErr))
			}
			metrics.ManualPostings.WithLabelValues("backend_failed").Inc()
			return nil, &BackendError{
				Message: "Backend posting failed. Please try again later.",
				Err:     postErr,
			}
		}
		results = append(results, *res)
	}

	rows := make([]models.ContractAllocation, len(allocations))
	for i, a := range allocations {
		txID := results[i].TransactionID
		rows[i] = models.ContractAllocation{
			ID:            uuid.New(),
			WirePaymentID: p.ID,
			ContractID:    a.ContractID,
			Amount:        a.Amount,
			Percentage:    (a.Amount / p.ActualAmount) * 100,
			GlAccount:     results[i].GlAccount,
			TransactionID: &txID,
		}
	}
	if err := s.payments.CreateAllocations(ctx, rows); err != nil {
		return nil, err
	}

	notes := p.NotesForTreasury
	if in.Notes != "" {
		notes = in.Notes
	}

	cid, backendTxID := legacyContractFields(rows)
	updates := map[string]interface{}{
		"cid":                    cid,
		"dba":                    in.MerchantDba,
		"status":                 models.StatusManualPosted,
		"notes_for_treasury":     notes,
		"processed_by":           actor,
		"has_multiple_contracts": len(allocations) > 1,
		"backend_transaction_id": backendTxID,
	}
	if err := s.payments.UpdateVersioned(ctx, p, updates); err != nil {
		return nil, err
	}

	backend := &BackendResponse{
		Success:         true,
		TotalAmount:     total,
		ContractResults: results,
		Timestamp:       time.Now().UTC(),
	}

	if err := s.appendPostingAudits(ctx, p, allocations, results, in, notes, actor); err != nil {
		return nil, err
	}

	metrics.ManualPostings.WithLabelValues("success").Inc()
	s.log.Info("manual posting completed",
		zap.String("payment_id", p.ID.String()),
		zap.Int("allocations", len(allocations)),
		zap.Float64("total", total))

	p.Cid = cid
	p.Dba = in.MerchantDba
	p.Status = models.StatusManualPosted
	p.NotesForTreasury = notes
	p.ProcessedBy = actor
	p.HasMultipleContracts = len(allocations) > 1
	p.BackendTransactionID = backendTxID

	return &ManualPostResult{Payment: p, Allocations: rows, Backend: backend}, nil
}

func (s *Service) appendPostingAudits(
	ctx context.Context,
	p *models.WirePayment,
	allocations []AllocationInput,
	results []ledger.ContractResult,
	in ManualPostInput,
	notes string,
	actor string,
) error {
	parts := make([]string, len(allocations))
	for i, a := range allocations {
		parts[i] = fmt.Sprintf("%s: $%.2f", a.ContractID, a.Amount)
	}
	contractSummary := strings.Join(parts, ", ")

	resultsJSON, err := json.Marshal(results)
	if err != nil {
		return err
	}
	resultsStr := string(resultsJSON)
	prevStatus := p.Status
	newStatus := models.StatusManualPosted

	entries := []models.AuditLog{
		{
			WirePaymentID: p.ID,
			UserID:        actor,
			Action:        models.ActionManualPost,
			NewValue:      &contractSummary,
			Details: fmt.Sprintf("Manual posting completed - %d contract(s): %s",
				len(allocations), contractSummary),
			IsRevertible: true,
		},
		{
			WirePaymentID: p.ID,
			UserID:        actor,
			Action:        models.ActionStatusChanged,
			PreviousValue: &prevStatus,
			NewValue:      &newStatus,
			Details:       "Status updated after successful manual posting",
		},
		{
			WirePaymentID: p.ID,
			UserID:        actor,
			Action:        models.ActionBackendPostSuccess,
			NewValue:      &resultsStr,
			Metadata:      datatypes.JSON(resultsJSON),
			Details: fmt.Sprintf("Successfully posted %d contract(s) to backend GL system.",
				len(allocations)),
			IsRevertible: true,
		},
	}

	if p.Dba != in.MerchantDba {
		prevDba := p.Dba
		newDba := in.MerchantDba
		entries = append(entries, models.AuditLog{
			WirePaymentID: p.ID,
			UserID:        actor,
			Action:        models.ActionDbaUpdated,
			PreviousValue: &prevDba,
			NewValue:      &newDba,
			Details:       "Merchant DBA updated during manual posting",
		})
	}

	if in.Notes != "" && in.Notes != p.NotesForTreasury {
		prevNotes := p.NotesForTreasury
		newNotes := notes
		entries = append(entries, models.AuditLog{
			WirePaymentID: p.ID,
			UserID:        actor,
			Action:        models.ActionNotesUpdated,
			PreviousValue: &prevNotes,
			NewValue:      &newNotes,
			Details:       "Notes updated during manual posting",
		})
	}

	return s.audits.AppendAll(ctx, entries)
}

// legacyContractFields derives the single-contract view kept for older
// consumers. Both fields stay null once a payment splits across contracts.
func legacyContractFields(rows []models.ContractAllocation) (cid, backendTxID *string) {
	if len(rows) != 1 {
		return nil, nil
	}
	c := rows[0].ContractID
	return &c, rows[0].TransactionID
}

// revertibleActions is the policy whitelist; anything else is rejected even
// when the entry itself is flagged revertible.
var revertibleActions = map[string]bool{
	models.ActionManualPost:         true,
	models.ActionAutoCleared:        true,
	models.ActionCleared:            true,
	models.ActionBackendPostSuccess: true,
}

// targetStatus derives the post-reversal payment status from the action being
// reverted.
func targetStatus(action string) string {
	switch action {
	case models.ActionAutoCleared, models.ActionCleared:
		return models.StatusPending
	default:
		return models.StatusReverted
	}
}

type RevertResult struct {
	Payment         *models.WirePayment
	RevertedAction  string
	BackendReversal *ledger.ReversalResult
}

// Revert undoes the effect of a single prior audit entry: stamps the entry,
// recomputes the payment status, and appends the reversal trail. Backend
// reversals run first so a GL failure leaves the entry revertible for retry.
func (s *Service) Revert(ctx context.Context, id, auditLogID uuid.UUID, reason, actor string) (*RevertResult, error) {
	p, err := s.payments.GetWithAuditLogs(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}

	var entry *models.AuditLog
	for i := range p.AuditLogs {
		if p.AuditLogs[i].ID == auditLogID {
			entry = &p.AuditLogs[i]
			break
		}
	}
	if entry == nil {
		return nil, ErrAuditLogNotFound
	}

	if !entry.IsRevertible {
		return nil, &ConflictError{Message: "This action cannot be reverted"}
	}
	if entry.RevertedAt != nil {
		return nil, &ConflictError{Message: "This action has already been reverted"}
	}
	if p.IsReverted {
		return nil, &ConflictError{Message: "Payment has already been reverted"}
	}
	if !revertibleActions[entry.Action] {
		return nil, &ConflictError{Message: fmt.Sprintf("Action '%s' cannot be reverted", entry.Action)}
	}

	var reversal *ledger.ReversalResult
	if entry.Action == models.ActionBackendPostSuccess && p.BackendTransactionID != nil {
		reversal, err = s.gl.Reverse(ctx, p, *p.BackendTransactionID)
		if err != nil {
			failEntry := models.AuditLog{
				WirePaymentID: p.ID,
				UserID:        actor,
				Action:        models.ActionBackendReversalFailed,
				Details:       fmt.Sprintf("Backend reversal failed: %v", err),
			}
			if auditErr := s.audits.Append(ctx, &failEntry); auditErr != nil {
				s.log.Error("failed to audit backend reversal failure",
					zap.String("payment_id", p.ID.String()), zap.Error(auditErr))
			}
			metrics.Reversals.WithLabelValues("backend_failed").Inc()
			return nil, &BackendError{
				Message: "Backend reversal failed. Please contact system administrator.",
				Err:     err,
			}
		}
	}

	newStatus := targetStatus(entry.Action)
	now := time.Now()

	if err := s.audits.MarkReverted(ctx, entry.ID, actor, now); err != nil {
		if errors.Is(err, repository.ErrAlreadyStamped) {
			return nil, &ConflictError{Message: "This action has already been reverted"}
		}
		return nil, err
	}

	// entry points into p.AuditLogs; mirror the stamp so the returned
	// payment's trail matches what was just persisted.
	stampedBy := actor
	entry.RevertedAt = &now
	entry.RevertedBy = &stampedBy

	prevStatus := p.Status
	updates := map[string]interface{}{
		"status":       newStatus,
		"processed_by": actor,
	}
	if newStatus == models.StatusReverted {
		updates["is_reverted"] = true
		updates["original_status"] = prevStatus
		updates["reverted_at"] = now
		updates["reverted_by"] = actor
	}
	if entry.Action == models.ActionAutoCleared {
		updates["auto_cleared"] = false
	}
	if err := s.payments.UpdateVersioned(ctx, p, updates); err != nil {
		return nil, err
	}

	if reason == "" {
		reason = "No reason provided"
	}
	entries := []models.AuditLog{
		{
			WirePaymentID: p.ID,
			UserID:        actor,
			Action:        models.ActionReverted,
			PreviousValue: &prevStatus,
			NewValue:      &newStatus,
			Details:       fmt.Sprintf("Reverted action: %s. Reason: %s", entry.Action, reason),
		},
		{
			WirePaymentID: p.ID,
			UserID:        actor,
			Action:        models.ActionStatusChanged,
			PreviousValue: &prevStatus,
			NewValue:      &newStatus,
			Details:       fmt.Sprintf("Status changed due to reversal of %s", entry.Action),
		},
	}
	if reversal != nil {
		prevTx := ""
		if p.BackendTransactionID != nil {
			prevTx = *p.BackendTransactionID
		}
		revTx := reversal.ReversalTransactionID
		entries = append(entries, models.AuditLog{
			WirePaymentID: p.ID,
			UserID:        actor,
			Action:        models.ActionBackendReversalSuccess,
			PreviousValue: &prevTx,
			NewValue:      &revTx,
			Details: fmt.Sprintf("Backend transaction reversed. Original ID: %s, Reversal ID: %s",
				prevTx, revTx),
		})
	}
	if err := s.audits.AppendAll(ctx, entries); err != nil {
		return nil, err
	}

	metrics.Reversals.WithLabelValues("success").Inc()
	s.log.Info("payment reverted",
		zap.String("payment_id", p.ID.String()),
		zap.String("reverted_action", entry.Action),
		zap.String("new_status", newStatus))

	p.Status = newStatus
	p.ProcessedBy = actor
	if newStatus == models.StatusReverted {
		p.IsReverted = true
		p.OriginalStatus = &prevStatus
		p.RevertedAt = &now
		revBy := actor
		p.RevertedBy = &revBy
	}
	if entry.Action == models.ActionAutoCleared {
		p.AutoCleared = false
	}

	return &RevertResult{
		Payment:         p,
		RevertedAction:  entry.Action,
		BackendReversal: reversal,
	}, nil
}
