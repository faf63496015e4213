package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Elelei/Blockchain-Land-Registry-System/internal/platform/httpserver"
)

func newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the registry HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := commonRun(cmd)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := buildApp(ctx, cfg, logger)
			if err != nil {
				return err
			}

			srv := httpserver.New(cfg.Addr, a.router)
			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return httpserver.Run(gctx, srv, cfg.ShutdownTimeout, logger)
			})
			logger.Info("land registry started",
				"addr", cfg.Addr,
				"store", cfg.StoreDriver,
			)
			err = g.Wait()

			closeCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()
			if cerr := a.Close(closeCtx); cerr != nil {
				logger.Error("shutdown cleanup failed", "error", cerr)
			}
			return err
		},
	}
	cmd.Flags().String("addr", ":8080", "listen address")
	cmd.Flags().String("seed", "", "YAML seed file of role assignments")
	return cmd
}
