package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/Elelei/Blockchain-Land-Registry-System/internal/platform/config"
	"github.com/Elelei/Blockchain-Land-Registry-System/internal/platform/logger"
)

const programName = "land-registry"

// commonRun loads configuration, builds the logger and sizes GOMAXPROCS.
func commonRun(cmd *cobra.Command) (config.Server, *slog.Logger, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return config.Server{}, nil, err
	}
	applyFlags(cmd, &cfg)
	if err := cfg.Validate(); err != nil {
		return config.Server{}, nil, err
	}

	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(log)
	if _, err := maxprocs.Set(maxprocs.Logger(func(format string, v ...any) {
		log.Info(fmt.Sprintf(format, v...), "component", programName)
	})); err != nil {
		return config.Server{}, nil, fmt.Errorf("set GOMAXPROCS: %w", err)
	}
	return cfg, log, nil
}

// applyFlags lets explicitly set flags override the environment.
func applyFlags(cmd *cobra.Command, cfg *config.Server) {
	flags := cmd.Flags()
	if flags.Changed("addr") {
		cfg.Addr, _ = flags.GetString("addr")
	}
	if flags.Changed("store") {
		cfg.StoreDriver, _ = flags.GetString("store")
	}
	if flags.Changed("dsn") {
		cfg.DatabaseDSN, _ = flags.GetString("dsn")
	}
	if flags.Changed("seed") {
		cfg.SeedFile, _ = flags.GetString("seed")
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           programName,
		Short:         "Land registry service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("store", config.DriverMemory, "store driver: memory, sqlite or postgres")
	root.PersistentFlags().String("dsn", "", "database DSN for the sqlite or postgres store")

	root.AddCommand(
		newServeCommand(),
		newMigrateCommand(),
		newKeygenCommand(),
		newTokenCommand(),
	)
	return root
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		slog.Error(err.Error(), "component", programName)
		os.Exit(1)
	}
}
