// Package postgres provides the pgx-backed metric store.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"chainscope/internal/model"
	"chainscope/internal/store"
)

// Store provides Postgres persistence for metric rows.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ping verifies the backend is reachable. Called once at startup so a
// misconfigured DSN fails fast instead of surfacing on the first query.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// UpsertRows inserts or updates metric rows in one batch.
func (s *Store) UpsertRows(ctx context.Context, rows []model.MetricRow) error {
	if len(rows) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, row := range rows {
		batch.Queue(`
			INSERT INTO metric_rows (
				network, metric, series_key, ts, value, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, now(), now())
			ON CONFLICT (network, metric, series_key, ts)
			DO UPDATE SET
				value = EXCLUDED.value,
				updated_at = now()
		`,
			row.Network,
			row.Metric,
			row.SeriesKey,
			row.Timestamp.UTC(),
			row.Value,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range rows {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// Page returns one page of rows ordered by timestamp ascending. Implements
// store.Pager.
func (s *Store) Page(ctx context.Context, q store.Query, limit, offset int) ([]model.MetricRow, error) {
	sql := `
		SELECT network, metric, series_key, ts, value
		FROM metric_rows
		WHERE network = $1 AND metric = $2
	`
	args := []any{string(q.Network), q.Metric}

	if !q.Since.IsZero() {
		args = append(args, q.Since.UTC())
		sql += fmt.Sprintf(" AND ts >= $%d", len(args))
	}
	if len(q.Keys) > 0 {
		args = append(args, q.Keys)
		sql += fmt.Sprintf(" AND series_key = ANY($%d)", len(args))
	}

	args = append(args, limit)
	sql += fmt.Sprintf(" ORDER BY ts ASC LIMIT $%d", len(args))
	args = append(args, offset)
	sql += fmt.Sprintf(" OFFSET $%d", len(args))

	pgRows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer pgRows.Close()

	out := make([]model.MetricRow, 0, limit)
	for pgRows.Next() {
		var row model.MetricRow
		if err := pgRows.Scan(&row.Network, &row.Metric, &row.SeriesKey, &row.Timestamp, &row.Value); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, pgRows.Err()
}

// ListNetworks returns the distinct networks present in the store.
func (s *Store) ListNetworks(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT DISTINCT network FROM metric_rows ORDER BY network`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var network string
		if err := rows.Scan(&network); err != nil {
			return nil, err
		}
		out = append(out, network)
	}
	return out, rows.Err()
}

// ListMetrics returns the distinct metrics tracked for a network.
func (s *Store) ListMetrics(ctx context.Context, network model.Network) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT metric FROM metric_rows WHERE network = $1 ORDER BY metric
	`, string(network))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var metric string
		if err := rows.Scan(&metric); err != nil {
			return nil, err
		}
		out = append(out, metric)
	}
	return out, rows.Err()
}

// ListSeriesKeys returns the distinct series keys for a network metric.
func (s *Store) ListSeriesKeys(ctx context.Context, network model.Network, metric string) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT series_key FROM metric_rows
		WHERE network = $1 AND metric = $2 AND series_key <> ''
		ORDER BY series_key
	`, string(network), metric)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		out = append(out, key)
	}
	return out, rows.Err()
}

// LoadState returns the last processed block for a collector name.
func (s *Store) LoadState(ctx context.Context, name string) (uint64, bool, error) {
	if name == "" {
		return 0, false, fmt.Errorf("state name required")
	}
	var block uint64
	row := s.pool.QueryRow(ctx, `SELECT last_processed_block FROM collector_state WHERE name=$1`, name)
	if err := row.Scan(&block); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return block, true, nil
}

// SaveState upserts the last processed block for a collector name.
func (s *Store) SaveState(ctx context.Context, name string, block uint64) error {
	if name == "" {
		return fmt.Errorf("state name required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO collector_state (name, last_processed_block, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE
		SET last_processed_block = EXCLUDED.last_processed_block, updated_at = now()
	`, name, block)
	return err
}
