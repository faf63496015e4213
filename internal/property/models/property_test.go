package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Elelei/Blockchain-Land-Registry-System/pkg/domain"
	dErrors "github.com/Elelei/Blockchain-Land-Registry-System/pkg/domain-errors"
)

var owner = domain.MustParseAddress("0xb000000000000000000000000000000000000001")

func validRegistration() Registration {
	return Registration{
		State:        " Telangana ",
		District:     "Ranga Reddy",
		Village:      "Kothur",
		SurveyNumber: "Sy 142/3",
		Owner:        owner,
		MarketValue:  100,
		DocumentRef:  "bafybeigdyrzt5sfp7udm7hu76uh7y26nf3efuylqabf3oclgtqy55fbzdi",
	}
}

func TestIdentifier(t *testing.T) {
	assert.Equal(t, "TELANGANA-RANGA_REDDY-KOTHUR-SY_142/3-7",
		Identifier(" Telangana", "Ranga  Reddy", "kothur", "Sy 142/3", 7))
}

func TestNewProperty(t *testing.T) {
	t.Run("builds a pending active property", func(t *testing.T) {
		reg := validRegistration()
		reg.Normalize()
		p, err := NewProperty(3, reg, time.Now())
		require.NoError(t, err)
		assert.Equal(t, StatusPending, p.Status)
		assert.True(t, p.Active)
		assert.Equal(t, "TELANGANA-RANGA_REDDY-KOTHUR-SY_142/3-3", p.Identifier)
	})

	t.Run("rejects zero market value", func(t *testing.T) {
		reg := validRegistration()
		reg.MarketValue = 0
		_, err := NewProperty(1, reg, time.Now())
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects blank text fields after normalization", func(t *testing.T) {
		reg := validRegistration()
		reg.Village = "   "
		reg.Normalize()
		assert.True(t, dErrors.HasCode(reg.Validate(), dErrors.CodeInvalidInput))
	})

	t.Run("rejects null owner", func(t *testing.T) {
		reg := validRegistration()
		reg.Owner = domain.Address{}
		assert.True(t, dErrors.HasCode(reg.Validate(), dErrors.CodeInvalidInput))
	})
}

func TestLifecycleEdges(t *testing.T) {
	allowed := map[Status][]Status{
		StatusPending:        {StatusApproved, StatusRejected},
		StatusApproved:       {StatusListedForSale},
		StatusListedForSale:  {StatusSaleInProgress, StatusApproved},
		StatusSaleInProgress: {StatusApproved, StatusListedForSale},
	}
	all := []Status{StatusPending, StatusApproved, StatusRejected, StatusListedForSale, StatusSaleInProgress, StatusSold}
	for _, from := range all {
		for _, to := range all {
			want := false
			for _, ok := range allowed[from] {
				if ok == to {
					want = true
				}
			}
			assert.Equal(t, want, from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
	assert.False(t, StatusRejected.CanTransitionTo(StatusApproved), "rejection is terminal")
	for _, from := range all {
		assert.False(t, from.CanTransitionTo(StatusSold), "sold is never entered")
	}
}

func TestTransitions(t *testing.T) {
	now := time.Now()
	newPending := func() *Property {
		reg := validRegistration()
		reg.Normalize()
		p, err := NewProperty(1, reg, now)
		require.NoError(t, err)
		return p
	}

	t.Run("rejection deactivates", func(t *testing.T) {
		p := newPending()
		require.NoError(t, p.CanReview())
		p.ApplyRejection(now)
		assert.False(t, p.Active)
		assert.True(t, dErrors.HasCode(p.CanUpdateDocuments(), dErrors.CodeInvalidState))
		assert.True(t, dErrors.HasCode(p.CanReview(), dErrors.CodeInvalidState))
	})

	t.Run("listing requires approval", func(t *testing.T) {
		p := newPending()
		assert.True(t, dErrors.HasCode(p.CanList(), dErrors.CodeInvalidState))
		p.ApplyApproval(now)
		require.NoError(t, p.CanList())
	})

	t.Run("delisting only while on sale", func(t *testing.T) {
		p := newPending()
		p.ApplyApproval(now)
		assert.True(t, dErrors.HasCode(p.CanDelist(), dErrors.CodeInvalidState))
		p.ApplyListing(now)
		require.NoError(t, p.CanDelist())
		p.ApplySaleStarted(now)
		require.NoError(t, p.CanDelist())
	})

	t.Run("sale cancellation only reverts a sale in progress", func(t *testing.T) {
		p := newPending()
		p.ApplyApproval(now)
		assert.False(t, p.ApplySaleCancelled(now))
		assert.Equal(t, StatusApproved, p.Status)

		p.ApplyListing(now)
		p.ApplySaleStarted(now)
		assert.True(t, p.ApplySaleCancelled(now))
		assert.Equal(t, StatusListedForSale, p.Status)
	})

	t.Run("transfer makes the property relistable", func(t *testing.T) {
		buyer := domain.MustParseAddress("0xb000000000000000000000000000000000000002")
		p := newPending()
		p.ApplyApproval(now)
		p.ApplyListing(now)
		p.ApplySaleStarted(now)
		p.ApplyTransfer(buyer, 150, now)
		assert.Equal(t, buyer, p.Owner)
		assert.Equal(t, uint64(150), p.MarketValue)
		assert.Equal(t, StatusApproved, p.Status)
		require.NoError(t, p.CanList())
	})

	t.Run("owner check", func(t *testing.T) {
		p := newPending()
		require.NoError(t, p.RequireOwner(owner))
		assert.True(t, dErrors.HasCode(p.RequireOwner(domain.Address{}), dErrors.CodeUnauthorized))
	})
}
