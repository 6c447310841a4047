// Package collect walks block ranges on an EVM node and turns them into daily
// network metric rows.
package collect

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"go.uber.org/zap"

	"chainscope/internal/chain"
	"chainscope/internal/model"
)

// ChainReader is the node access the collector needs.
type ChainReader interface {
	LatestBlockNumber(ctx context.Context) (uint64, error)
	BlockStats(ctx context.Context, number uint64) (chain.BlockStats, error)
}

// Sink persists collected rows and collector progress.
type Sink interface {
	UpsertRows(ctx context.Context, rows []model.MetricRow) error
	LoadState(ctx context.Context, name string) (uint64, bool, error)
	SaveState(ctx context.Context, name string, block uint64) error
}

// RunConfig holds runtime settings for the collector.
type RunConfig struct {
	Network      model.Network
	FromBlock    uint64
	ToBlock      uint64 // 0 means latest
	BatchSize    uint64
	MaxRetries   int
	RetryBackoff time.Duration
}

// Collector derives daily metrics from blocks and writes them to the sink.
type Collector struct {
	cfg    RunConfig
	chain  ChainReader
	sink   Sink
	logger *zap.Logger
	days   map[time.Time]*dayAcc
}

func NewCollector(cfg RunConfig, chainReader ChainReader, sink Sink, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collector{
		cfg:    cfg,
		chain:  chainReader,
		sink:   sink,
		logger: logger,
		days:   make(map[time.Time]*dayAcc),
	}
}

func (c *Collector) stateName() string {
	return fmt.Sprintf("collector:%s", c.cfg.Network)
}

// Run walks the configured block range, resuming from the saved state.
func (c *Collector) Run(ctx context.Context) error {
	if c.chain == nil {
		return fmt.Errorf("chain reader is nil")
	}
	if c.sink == nil {
		return fmt.Errorf("sink is nil")
	}
	if c.cfg.BatchSize == 0 {
		return fmt.Errorf("batch size must be greater than zero")
	}

	from := c.cfg.FromBlock
	to := c.cfg.ToBlock
	if to == 0 {
		latest, err := c.chain.LatestBlockNumber(ctx)
		if err != nil {
			return fmt.Errorf("get latest block: %w", err)
		}
		to = latest
	}

	last, ok, err := c.sink.LoadState(ctx, c.stateName())
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}
	if ok && last >= from {
		from = last + 1
		c.logger.Info("resume from saved state",
			zap.Uint64("last_processed", last),
			zap.Uint64("from", from),
		)
	}

	if from > to {
		c.logger.Info("nothing to collect", zap.Uint64("from", from), zap.Uint64("to", to))
		return nil
	}

	ranges, err := SplitRange(from, to, c.cfg.BatchSize)
	if err != nil {
		return err
	}

	for _, blockRange := range ranges {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		c.logger.Info("collect blocks",
			zap.Uint64("from", blockRange.From),
			zap.Uint64("to", blockRange.To),
		)

		for number := blockRange.From; number <= blockRange.To; number++ {
			var stats chain.BlockStats
			err := withRetry(ctx, c.cfg.MaxRetries, c.cfg.RetryBackoff, func(ctx context.Context) error {
				var err error
				stats, err = c.chain.BlockStats(ctx, number)
				return err
			})
			if err != nil {
				return fmt.Errorf("fetch block %d: %w", number, err)
			}
			c.addBlock(stats)
		}

		if err := c.flushClosedDays(ctx); err != nil {
			return err
		}
		if err := c.sink.SaveState(ctx, c.stateName(), blockRange.To); err != nil {
			return fmt.Errorf("save state: %w", err)
		}
	}

	if err := c.flushAll(ctx); err != nil {
		return err
	}

	c.logger.Info("collect complete", zap.Uint64("from", from), zap.Uint64("to", to))
	return nil
}

// dayAcc accumulates block stats for one UTC day.
type dayAcc struct {
	txCount    float64
	gasUsed    float64
	blockCount float64
	baseFeeSum *big.Float
	baseFeeN   int
}

func (c *Collector) addBlock(stats chain.BlockStats) {
	day := time.Unix(int64(stats.Timestamp), 0).UTC().Truncate(24 * time.Hour)
	acc := c.days[day]
	if acc == nil {
		acc = &dayAcc{baseFeeSum: new(big.Float)}
		c.days[day] = acc
	}
	acc.txCount += float64(stats.TxCount)
	acc.gasUsed += float64(stats.GasUsed)
	acc.blockCount++
	if stats.BaseFee != nil {
		acc.baseFeeSum.Add(acc.baseFeeSum, new(big.Float).SetInt(stats.BaseFee))
		acc.baseFeeN++
	}
}

// flushClosedDays writes every accumulated day except the newest, which may
// still receive blocks from the next batch.
func (c *Collector) flushClosedDays(ctx context.Context) error {
	if len(c.days) <= 1 {
		return nil
	}
	var newest time.Time
	for day := range c.days {
		if day.After(newest) {
			newest = day
		}
	}

	var rows []model.MetricRow
	for day, acc := range c.days {
		if day.Equal(newest) {
			continue
		}
		rows = append(rows, acc.toRows(c.cfg.Network, day)...)
		delete(c.days, day)
	}
	if len(rows) == 0 {
		return nil
	}
	return c.sink.UpsertRows(ctx, rows)
}

func (c *Collector) flushAll(ctx context.Context) error {
	var rows []model.MetricRow
	for day, acc := range c.days {
		rows = append(rows, acc.toRows(c.cfg.Network, day)...)
		delete(c.days, day)
	}
	if len(rows) == 0 {
		return nil
	}
	return c.sink.UpsertRows(ctx, rows)
}

const gweiPerWei = 1e9

func (a *dayAcc) toRows(network model.Network, day time.Time) []model.MetricRow {
	rows := []model.MetricRow{
		{Network: network.String(), Metric: "tx_count", Timestamp: day, Value: a.txCount},
		{Network: network.String(), Metric: "gas_used", Timestamp: day, Value: a.gasUsed},
		{Network: network.String(), Metric: "block_count", Timestamp: day, Value: a.blockCount},
	}
	if a.baseFeeN > 0 {
		avg := new(big.Float).Quo(a.baseFeeSum, big.NewFloat(float64(a.baseFeeN)))
		gwei, _ := new(big.Float).Quo(avg, big.NewFloat(gweiPerWei)).Float64()
		rows = append(rows, model.MetricRow{
			Network:   network.String(),
			Metric:    "avg_gas_price",
			Timestamp: day,
			Value:     gwei,
		})
	}
	return rows
}
