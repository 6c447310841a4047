package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"chainscope/internal/config"
	"chainscope/internal/dashboard"
	"chainscope/internal/live"
	"chainscope/internal/server"
	"chainscope/internal/store/postgres"
)

func runServe(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadServe(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.PGDSN == "" {
		return fmt.Errorf("pg dsn is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := postgres.NewStore(ctx, cfg.PGDSN)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer st.Close()

	if err := st.Ping(ctx); err != nil {
		return fmt.Errorf("postgres unreachable: %w", err)
	}

	svc := dashboard.NewService(st, st, logger)
	hub := live.NewHub(svc, cfg.RefreshInterval, logger)
	go hub.Run(ctx)

	srv := server.NewServer(svc, hub, logger)

	logger.Info("serve start",
		zap.String("addr", cfg.Addr),
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
		zap.Duration("refresh_interval", cfg.RefreshInterval),
	)

	return srv.Start(ctx, cfg.Addr)
}
