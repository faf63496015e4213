package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Elelei/Blockchain-Land-Registry-System/pkg/domain"
	dErrors "github.com/Elelei/Blockchain-Land-Registry-System/pkg/domain-errors"
)

var (
	seller = domain.MustParseAddress("0x1a00000000000000000000000000000000000001")
	buyer  = domain.MustParseAddress("0x1a00000000000000000000000000000000000002")
)

func pending(t *testing.T) *Transaction {
	t.Helper()
	tx, err := NewTransaction(1, seller, buyer, Offer{PropertyID: 7, Price: 150, Escrow: 150}, time.Now())
	require.NoError(t, err)
	return tx
}

func TestNewTransaction(t *testing.T) {
	tx := pending(t)
	assert.Equal(t, StatusPending, tx.Status)
	assert.True(t, tx.CompletedAt.IsZero())
	assert.True(t, tx.IsOpen())

	_, err := NewTransaction(2, seller, buyer, Offer{PropertyID: 7, Price: 150, Escrow: 149}, time.Now())
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInsufficientFunds))
}

func TestProcess(t *testing.T) {
	tx := pending(t)
	assert.True(t, dErrors.HasCode(tx.CanProcess(buyer), dErrors.CodeUnauthorized))
	require.NoError(t, tx.CanProcess(seller))

	now := time.Now()
	tx.ApplyRejection(now)
	assert.Equal(t, now, tx.CompletedAt)
	assert.False(t, tx.IsOpen())
	assert.True(t, dErrors.HasCode(tx.CanProcess(seller), dErrors.CodeInvalidState))
}

func TestComplete(t *testing.T) {
	tx := pending(t)
	assert.True(t, dErrors.HasCode(tx.CanComplete(buyer), dErrors.CodeInvalidState), "needs approval first")

	tx.ApplyApproval()
	assert.True(t, tx.IsOpen())
	assert.True(t, dErrors.HasCode(tx.CanComplete(seller), dErrors.CodeUnauthorized))
	require.NoError(t, tx.CanComplete(buyer))

	tx.ApplyCompletion(time.Now())
	assert.Equal(t, StatusCompleted, tx.Status)
	assert.False(t, tx.IsOpen())
}
