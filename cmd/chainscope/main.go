package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "chainscope",
		Short:        "Blockchain analytics dashboard backend",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the dashboard API server",
		RunE:  runServe,
	}
	serveCmd.Flags().String("addr", ":8080", "listen address")
	serveCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	serveCmd.Flags().Duration("refresh-interval", 30*time.Second, "live subscription refresh interval")
	serveCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.AddCommand(serveCmd)

	collectCmd := &cobra.Command{
		Use:   "collect",
		Short: "Collect daily network metrics from an EVM node",
		RunE:  runCollect,
	}
	collectCmd.Flags().String("network", "", "network name (ethereum, avalanche, polygon)")
	collectCmd.Flags().String("rpc", "", "node RPC URL")
	collectCmd.Flags().Uint64("from", 0, "start block (inclusive)")
	collectCmd.Flags().Uint64("to", 0, "end block (inclusive), 0 means latest")
	collectCmd.Flags().Uint64("batch-size", 200, "blocks per batch")
	collectCmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	collectCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	collectCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	collectCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.AddCommand(collectCmd)

	ingestCmd := &cobra.Command{
		Use:   "ingest",
		Short: "Load metric rows from a JSONL file",
		RunE:  runIngest,
	}
	ingestCmd.Flags().String("in", "", "input JSONL path")
	ingestCmd.Flags().Int("batch-size", 1000, "batch size for DB writes")
	ingestCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	ingestCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.AddCommand(ingestCmd)

	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Export an aggregated series as CSV",
		RunE:  runExport,
	}
	exportCmd.Flags().String("network", "", "network name")
	exportCmd.Flags().String("metric", "", "metric name")
	exportCmd.Flags().String("range", "30D", "time range (7D, 30D, 90D, 180D, 1Y, ALL)")
	exportCmd.Flags().String("mode", "sum", "aggregation mode (sum, average, cumulative)")
	exportCmd.Flags().StringSlice("key", nil, "series keys (comma-separated)")
	exportCmd.Flags().String("out", "", "output CSV path, empty for stdout")
	exportCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	exportCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.AddCommand(exportCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	return "***"
}
