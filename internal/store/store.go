// Package store defines the read boundary over the metric store and the
// pagination protocol used to pull full result sets.
package store

import (
	"context"
	"fmt"
	"time"

	"chainscope/internal/model"
)

// DefaultPageSize is the fixed page size for row queries.
const DefaultPageSize = 1000

// MaxPages caps the pagination loop so a misbehaving backend cannot drive an
// unbounded request loop.
const MaxPages = 500

// Query filters metric rows.
type Query struct {
	Network model.Network
	Metric  string
	Keys    []string
	Since   time.Time // inclusive lower bound; zero means unbounded
}

// Pager serves one page of rows at a time, ordered by timestamp ascending.
type Pager interface {
	Page(ctx context.Context, q Query, limit, offset int) ([]model.MetricRow, error)
}

// FetchAll pulls every row matching the query: fixed-size pages starting at
// offset 0, offset advancing by the page size, stopping on a short or empty
// page.
func FetchAll(ctx context.Context, p Pager, q Query, pageSize int) ([]model.MetricRow, error) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	var rows []model.MetricRow
	for page := 0; ; page++ {
		if page >= MaxPages {
			return nil, fmt.Errorf("query exceeded %d pages", MaxPages)
		}

		batch, err := p.Page(ctx, q, pageSize, page*pageSize)
		if err != nil {
			return nil, err
		}
		rows = append(rows, batch...)
		if len(batch) < pageSize {
			return rows, nil
		}
	}
}
