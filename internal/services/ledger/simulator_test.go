package ledger

import (
	"context"
	"strings"
	"testing"
	"time"

	"wire-payment-backend/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPayment() *models.WirePayment {
	return &models.WirePayment{
		ID:           uuid.New(),
		ActualAmount: 750,
		Status:       models.StatusPending,
	}
}

func TestScriptedFaultsReplaysSequence(t *testing.T) {
	f := &ScriptedFaults{Outcomes: []bool{true, false, true}}

	assert.True(t, f.ShouldFail())
	assert.False(t, f.ShouldFail())
	assert.True(t, f.ShouldFail())
	// Exhausted scripts always succeed.
	assert.False(t, f.ShouldFail())
	assert.False(t, f.ShouldFail())
}

func TestRandomFaultsExtremes(t *testing.T) {
	always := NewRandomFaults(1.0)
	never := NewRandomFaults(0)
	for i := 0; i < 50; i++ {
		assert.True(t, always.ShouldFail())
		assert.False(t, never.ShouldFail())
	}
}

func TestPostReturnsGlTransaction(t *testing.T) {
	sim := NewSimulator(NoFaults{}, 0, nil)

	res, err := sim.Post(context.Background(), testPayment(), "C-1001", 500, "Acme Corp")
	require.NoError(t, err)

	assert.Equal(t, "C-1001", res.ContractID)
	assert.Equal(t, 500.0, res.Amount)
	assert.Equal(t, DefaultGlAccount, res.GlAccount)
	assert.True(t, strings.HasPrefix(res.TransactionID, "GL-"))
	assert.False(t, res.Timestamp.IsZero())
}

func TestPostFailureNamesContract(t *testing.T) {
	sim := NewSimulator(&ScriptedFaults{Outcomes: []bool{true}}, 0, nil)

	_, err := sim.Post(context.Background(), testPayment(), "C-42", 100, "Acme Corp")
	require.Error(t, err)

	var postErr *PostError
	require.ErrorAs(t, err, &postErr)
	assert.Equal(t, "C-42", postErr.ContractID)
	assert.Contains(t, err.Error(), "C-42")
}

func TestReverseReturnsReversalTransaction(t *testing.T) {
	sim := NewSimulator(NoFaults{}, 0, nil)

	res, err := sim.Reverse(context.Background(), testPayment(), "GL-123-ABC")
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, "GL-123-ABC", res.OriginalTransactionID)
	assert.True(t, strings.HasPrefix(res.ReversalTransactionID, "REV-"))
}

func TestReverseFailure(t *testing.T) {
	sim := NewSimulator(&ScriptedFaults{Outcomes: []bool{true}}, 0, nil)

	_, err := sim.Reverse(context.Background(), testPayment(), "GL-123-ABC")
	var revErr *ReversalError
	require.ErrorAs(t, err, &revErr)
}

func TestPostHonorsCancelledContext(t *testing.T) {
	sim := NewSimulator(NoFaults{}, 250*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := sim.Post(ctx, testPayment(), "C-1", 10, "Acme Corp")
	require.ErrorIs(t, err, context.Canceled)
}
