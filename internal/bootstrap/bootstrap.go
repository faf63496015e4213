// Package bootstrap installs the initial role assignments: configured
// superadmins plus an optional YAML seed file. Seeding is idempotent and
// emits no facts.
package bootstrap

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	accessmodels "github.com/Elelei/Blockchain-Land-Registry-System/internal/access/models"
	"github.com/Elelei/Blockchain-Land-Registry-System/pkg/domain"
)

// Access installs assignments without a caller capability check.
type Access interface {
	Bootstrap(ctx context.Context, identity domain.Address, role accessmodels.Role, villages []string) (bool, error)
}

// Seed is the on-disk seed file.
type Seed struct {
	Assignments []Assignment `yaml:"assignments"`
}

type Assignment struct {
	Identity string   `yaml:"identity"`
	Role     string   `yaml:"role"`
	Villages []string `yaml:"villages,omitempty"`
}

// LoadSeed reads a seed file. An empty path yields an empty seed.
func LoadSeed(path string) (Seed, error) {
	if path == "" {
		return Seed{}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return Seed{}, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()
	return ParseSeed(f)
}

func ParseSeed(r io.Reader) (Seed, error) {
	var seed Seed
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&seed); err != nil && err != io.EOF {
		return Seed{}, fmt.Errorf("parse seed file: %w", err)
	}
	return seed, nil
}

// Apply registers every superadmin and then every seed assignment. Entries
// that already exist are left untouched.
func Apply(ctx context.Context, access Access, superadmins []string, seed Seed, logger *slog.Logger) error {
	assignments := make([]Assignment, 0, len(superadmins)+len(seed.Assignments))
	for _, s := range superadmins {
		assignments = append(assignments, Assignment{Identity: s, Role: string(accessmodels.RoleSuperadmin)})
	}
	assignments = append(assignments, seed.Assignments...)

	for i, a := range assignments {
		identity, err := domain.ParseAddress(a.Identity)
		if err != nil {
			return fmt.Errorf("assignment %d: %w", i, err)
		}
		role, err := accessmodels.ParseRole(a.Role)
		if err != nil {
			return fmt.Errorf("assignment %d: %w", i, err)
		}
		created, err := access.Bootstrap(ctx, identity, role, a.Villages)
		if err != nil {
			return fmt.Errorf("bootstrap %s: %w", identity, err)
		}
		if created {
			logger.InfoContext(ctx, "bootstrap assignment installed",
				"identity", identity,
				"role", role,
				"villages", len(a.Villages),
			)
		}
	}
	return nil
}
