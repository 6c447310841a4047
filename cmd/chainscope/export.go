package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"chainscope/internal/config"
	"chainscope/internal/dashboard"
	"chainscope/internal/export"
	"chainscope/internal/store/postgres"
)

func runExport(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadExport(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Network == "" {
		return fmt.Errorf("network is required")
	}
	if cfg.Metric == "" {
		return fmt.Errorf("metric is required")
	}
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

	svc := dashboard.NewService(st, st, logger)
	resp, err := svc.Series(ctx, dashboard.SeriesRequest{
		Network: cfg.Network,
		Metric:  cfg.Metric,
		Range:   cfg.Range,
		Mode:    cfg.Mode,
		Keys:    cfg.Keys,
	})
	if err != nil {
		return err
	}

	var out io.Writer = os.Stdout
	if cfg.Out != "" {
		file, err := os.Create(cfg.Out)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer file.Close()
		out = file
	}

	if err := export.WriteCSV(out, resp); err != nil {
		return err
	}

	logger.Info("export complete",
		zap.String("network", cfg.Network),
		zap.String("metric", cfg.Metric),
		zap.String("range", resp.Range),
		zap.Int("series", len(resp.Series)),
		zap.Bool("no_data", resp.NoData),
	)
	return nil
}
