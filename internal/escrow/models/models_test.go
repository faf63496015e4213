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
	depositor   = domain.MustParseAddress("0xe000000000000000000000000000000000000001")
	beneficiary = domain.MustParseAddress("0xe000000000000000000000000000000000000002")
)

func TestNewHolding(t *testing.T) {
	_, err := NewHolding(1, depositor, 0, time.Now())
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

	_, err = NewHolding(1, domain.Address{}, 10, time.Now())
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

	h, err := NewHolding(1, depositor, 10, time.Now())
	require.NoError(t, err)
	assert.Equal(t, StateHeld, h.State)
}

func TestSettleOnce(t *testing.T) {
	h, err := NewHolding(1, depositor, 10, time.Now())
	require.NoError(t, err)
	require.NoError(t, h.CanSettle())

	h.ApplyRelease(beneficiary, time.Now())
	assert.Equal(t, beneficiary, h.Beneficiary)
	assert.True(t, dErrors.HasCode(h.CanSettle(), dErrors.CodeInvalidState))
}

func TestTotals(t *testing.T) {
	now := time.Now()
	held, _ := NewHolding(1, depositor, 150, now)
	released, _ := NewHolding(2, depositor, 200, now)
	released.ApplyRelease(beneficiary, now)
	refunded, _ := NewHolding(3, depositor, 75, now)
	refunded.ApplyRefund(now)

	var totals Totals
	for _, h := range []*Holding{held, released, refunded} {
		totals.Add(h)
	}
	assert.Equal(t, Totals{Collected: 425, Released: 200, Refunded: 75, Held: 150}, totals)
	assert.True(t, totals.Balanced())
	assert.Equal(t, depositor, refunded.Beneficiary)
}
