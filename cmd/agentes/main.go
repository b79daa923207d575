package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/tulugarseguro/agentes/internal/shared/config"
	"github.com/tulugarseguro/agentes/internal/shared/database"
	"github.com/tulugarseguro/agentes/internal/shared/logger"
	"go.uber.org/zap"
)

const serviceName = "agentes"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var memory bool

	serve := func(cmd *cobra.Command, args []string) error {
		cfg, log, err := bootstrap()
		if err != nil {
			return err
		}
		defer log.Sync()
		return runServer(cmd.Context(), cfg, log, memory)
	}

	root := &cobra.Command{
		Use:          serviceName,
		Short:        "Clinical notes pipeline: transcription, record filling, session briefings and delivery",
		SilenceUsage: true,
		RunE:         serve,
	}
	root.PersistentFlags().BoolVar(&memory, "memory", false, "keep records in process instead of PostgreSQL")

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE:  serve,
	})

	root.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := bootstrap()
			if err != nil {
				return err
			}
			defer log.Sync()

			db, err := database.New(cmd.Context(), cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()
			return database.Migrate(cmd.Context(), db.Pool, log)
		},
	})

	return root
}

func bootstrap() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, serviceName)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return cfg, log, nil
}
