package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"wire-payment-backend/internal/repository"
	service "wire-payment-backend/internal/services/payments"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// fallbackActor is recorded when the caller supplies no identity header.
const fallbackActor = "treasury_user_1"

const requestTimeout = 30 * time.Second

type PaymentHandler struct {
	service *service.Service
}

func NewPaymentHandler(s *service.Service) *PaymentHandler {
	return &PaymentHandler{service: s}
}

func actorFrom(c *gin.Context) string {
	if actor := c.GetHeader("X-User-Id"); actor != "" {
		return actor
	}
	return fallbackActor
}

func respondError(c *gin.Context, err error) {
	var vErr *service.ValidationError
	var cErr *service.ConflictError
	var bErr *service.BackendError

	switch {
	case errors.As(err, &vErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": vErr.Message})
	case errors.Is(err, service.ErrPaymentNotFound),
		errors.Is(err, service.ErrAuditLogNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &cErr):
		c.JSON(http.StatusConflict, gin.H{"error": cErr.Message})
	case errors.Is(err, repository.ErrVersionConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.As(err, &bErr):
		resp := gin.H{"error": bErr.Message}
		if bErr.Err != nil {
			resp["detail"] = bErr.Err.Error()
		}
		c.JSON(http.StatusBadGateway, resp)
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func (h *PaymentHandler) ListPayments(c *gin.Context) {
	payments, err := h.service.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, payments)
}

func (h *PaymentHandler) ClearPayment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payment ID"})
		return
	}

	payment, err := h.service.Clear(c.Request.Context(), id, actorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, payment)
}

type manualPostPayload struct {
	ContractAllocations []struct {
		ContractID string  `json:"contractId"`
		Amount     float64 `json:"amount"`
	} `json:"contractAllocations"`
	ContractID  string `json:"contractId"` // legacy single-contract form
	MerchantDba string `json:"merchantDba"`
	Notes       string `json:"notes"`
}

func (h *PaymentHandler) ManualPost(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payment ID"})
		return
	}

	var payload manualPostPayload
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	in := service.ManualPostInput{
		MerchantDba: payload.MerchantDba,
		Notes:       payload.Notes,
	}
	for _, a := range payload.ContractAllocations {
		in.Allocations = append(in.Allocations, service.AllocationInput{
			ContractID: a.ContractID,
			Amount:     a.Amount,
		})
	}
	if len(in.Allocations) == 0 && payload.ContractID != "" {
		// Legacy form: the zero amount is resolved to the full actual amount.
		in.Allocations = []service.AllocationInput{{ContractID: payload.ContractID}}
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	result, err := h.service.ManualPost(ctx, id, in, actorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"payment":             result.Payment,
		"contractAllocations": result.Allocations,
		"backendResponse":     result.Backend,
	})
}

type revertPayload struct {
	AuditLogID string `json:"auditLogId"`
	Reason     string `json:"reason"`
}

func (h *PaymentHandler) RevertPayment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payment ID"})
		return
	}

	var payload revertPayload
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	if payload.AuditLogID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Audit log ID is required for reversal"})
		return
	}
	auditLogID, err := uuid.Parse(payload.AuditLogID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid audit log ID"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	result, err := h.service.Revert(ctx, id, auditLogID, payload.Reason, actorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"payment":                 result.Payment,
		"revertedAction":          result.RevertedAction,
		"backendReversalResponse": result.BackendReversal,
	})
}
