package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/Elelei/Blockchain-Land-Registry-System/internal/platform/config"
	"github.com/Elelei/Blockchain-Land-Registry-System/internal/platform/database"
	"github.com/Elelei/Blockchain-Land-Registry-System/internal/registry"
)

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the registry and audit schemas",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := commonRun(cmd)
			if err != nil {
				return err
			}
			if cfg.StoreDriver == config.DriverMemory && cfg.AuditDSN == "" {
				return errors.New("nothing to migrate: memory store and no audit DSN")
			}

			if cfg.StoreDriver != config.DriverMemory {
				db, err := database.Open(cfg.StoreDriver, cfg.DatabaseDSN)
				if err != nil {
					return err
				}
				defer database.Close(db)
				if _, err := registry.GormStores(db); err != nil {
					return err
				}
				logger.Info("registry schema migrated", "store", cfg.StoreDriver)
			}

			if cfg.AuditDSN != "" {
				db, err := openAudit(context.Background(), cfg.AuditDSN)
				if err != nil {
					return err
				}
				defer db.Close()
				logger.Info("audit schema migrated")
			}
			return nil
		},
	}
}
