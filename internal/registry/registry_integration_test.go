//go:build integration

package registry

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/Elelei/Blockchain-Land-Registry-System/internal/platform/config"
	"github.com/Elelei/Blockchain-Land-Registry-System/internal/platform/database"
	"github.com/Elelei/Blockchain-Land-Registry-System/pkg/testutil/containers"
)

func TestRegistryPostgres(t *testing.T) {
	pg := containers.NewPostgresContainer(t)

	suite.Run(t, &RegistrySuite{newStores: func() Stores {
		if _, err := pg.DB.Exec(`DROP SCHEMA public CASCADE; CREATE SCHEMA public`); err != nil {
			t.Fatalf("reset schema: %v", err)
		}
		db, err := database.Open(config.DriverPostgres, pg.DSN)
		if err != nil {
			t.Fatalf("open postgres: %v", err)
		}
		t.Cleanup(func() { _ = database.Close(db) })
		stores, err := GormStores(db)
		if err != nil {
			t.Fatalf("gorm stores: %v", err)
		}
		return stores
	}})
}
