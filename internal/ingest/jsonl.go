// Package ingest bulk-loads historical metric rows from JSONL files, for
// metrics that do not come from chain RPC (DEX volumes, RWA and stablecoin
// supplies, subnet metrics).
package ingest

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"go.uber.org/zap"

	"chainscope/internal/model"
)

// Sink persists loaded rows.
type Sink interface {
	UpsertRows(ctx context.Context, rows []model.MetricRow) error
}

// Stats summarizes one load.
type Stats struct {
	Total  int
	Loaded int
	Failed int
}

// Loader streams a JSONL file of metric rows into the sink.
type Loader struct {
	sink      Sink
	logger    *zap.Logger
	batchSize int
}

func NewLoader(sink Sink, batchSize int, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	if batchSize <= 0 {
		batchSize = 1000
	}
	return &Loader{sink: sink, logger: logger, batchSize: batchSize}
}

// Run reads the file line by line, skipping and logging malformed rows, and
// upserts the rest in batches.
func (l *Loader) Run(ctx context.Context, path string) (Stats, error) {
	var stats Stats
	if l.sink == nil {
		return stats, fmt.Errorf("sink is nil")
	}

	file, err := os.Open(path)
	if err != nil {
		return stats, fmt.Errorf("open input: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	batch := make([]model.MetricRow, 0, l.batchSize)
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		default:
		}

		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		stats.Total++

		var row model.MetricRow
		if err := json.Unmarshal(line, &row); err != nil {
			stats.Failed++
			l.logger.Warn("decode row", zap.Error(err))
			continue
		}
		if err := validateRow(row); err != nil {
			stats.Failed++
			l.logger.Warn("invalid row", zap.Error(err))
			continue
		}

		batch = append(batch, row)
		if len(batch) >= l.batchSize {
			if err := l.sink.UpsertRows(ctx, batch); err != nil {
				return stats, fmt.Errorf("upsert batch: %w", err)
			}
			stats.Loaded += len(batch)
			batch = batch[:0]
		}
	}
	if err := scanner.Err(); err != nil {
		return stats, fmt.Errorf("scan input: %w", err)
	}

	if len(batch) > 0 {
		if err := l.sink.UpsertRows(ctx, batch); err != nil {
			return stats, fmt.Errorf("upsert batch: %w", err)
		}
		stats.Loaded += len(batch)
	}

	l.logger.Info("ingest complete",
		zap.Int("total", stats.Total),
		zap.Int("loaded", stats.Loaded),
		zap.Int("failed", stats.Failed),
	)
	return stats, nil
}

func validateRow(row model.MetricRow) error {
	if _, err := model.ParseNetwork(row.Network); err != nil {
		return err
	}
	if row.Metric == "" {
		return fmt.Errorf("metric is required")
	}
	if row.Timestamp.IsZero() {
		return fmt.Errorf("timestamp is required")
	}
	return nil
}
