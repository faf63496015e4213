package bootstrap

import (
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	accessmodels "github.com/Elelei/Blockchain-Land-Registry-System/internal/access/models"
	accessservice "github.com/Elelei/Blockchain-Land-Registry-System/internal/access/service"
	accessstore "github.com/Elelei/Blockchain-Land-Registry-System/internal/access/store"
	"github.com/Elelei/Blockchain-Land-Registry-System/pkg/domain"
	dErrors "github.com/Elelei/Blockchain-Land-Registry-System/pkg/domain-errors"
)

const seedYAML = `
assignments:
  - identity: "0x4c00000000000000000000000000000000000002"
    role: government
    villages: [Hinjewadi, " Wakad ", Hinjewadi]
  - identity: "0x4c00000000000000000000000000000000000003"
    role: legal
`

func TestApply(t *testing.T) {
	ctx := context.Background()
	access := accessservice.New(accessstore.NewInMemory())
	seed, err := ParseSeed(strings.NewReader(seedYAML))
	require.NoError(t, err)

	admin := "0x4c00000000000000000000000000000000000001"
	logger := slog.New(slog.DiscardHandler)
	require.NoError(t, Apply(ctx, access, []string{admin}, seed, logger))

	ok, err := access.HasCapability(ctx, domain.MustParseAddress(admin), accessmodels.CapabilitySuperadmin)
	require.NoError(t, err)
	assert.True(t, ok)

	official, err := access.Lookup(ctx, domain.MustParseAddress("0x4c00000000000000000000000000000000000002"))
	require.NoError(t, err)
	assert.Equal(t, accessmodels.RoleGovernment, official.Role)
	assert.Equal(t, []string{"Hinjewadi", "Wakad"}, official.Villages)

	// A second run over the same seed is a no-op.
	require.NoError(t, Apply(ctx, access, []string{admin}, seed, logger))
}

func TestApplyRejectsBadEntries(t *testing.T) {
	ctx := context.Background()
	access := accessservice.New(accessstore.NewInMemory())
	logger := slog.New(slog.DiscardHandler)

	err := Apply(ctx, access, []string{"not-an-address"}, Seed{}, logger)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

	err = Apply(ctx, access, nil, Seed{Assignments: []Assignment{{
		Identity: "0x4c00000000000000000000000000000000000009",
		Role:     "king",
	}}}, logger)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidRole))
}

func TestParseSeedRejectsUnknownFields(t *testing.T) {
	_, err := ParseSeed(strings.NewReader("admins: []\n"))
	require.Error(t, err)

	seed, err := ParseSeed(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, seed.Assignments)
}

func TestLoadSeedEmptyPath(t *testing.T) {
	seed, err := LoadSeed("")
	require.NoError(t, err)
	assert.Empty(t, seed.Assignments)
}
