package store

import (
	"context"
	"testing"
	"time"

	"chainscope/internal/model"
)

type fakePager struct {
	rows  []model.MetricRow
	calls int
}

func (f *fakePager) Page(_ context.Context, _ Query, limit, offset int) ([]model.MetricRow, error) {
	f.calls++
	if offset >= len(f.rows) {
		return nil, nil
	}
	end := offset + limit
	if end > len(f.rows) {
		end = len(f.rows)
	}
	return f.rows[offset:end], nil
}

func makeRows(n int) []model.MetricRow {
	rows := make([]model.MetricRow, n)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range rows {
		rows[i] = model.MetricRow{
			Network:   "ethereum",
			Metric:    "tx_count",
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Value:     float64(i),
		}
	}
	return rows
}

func TestFetchAllThreePages(t *testing.T) {
	pager := &fakePager{rows: makeRows(2400)}

	got, err := FetchAll(context.Background(), pager, Query{}, 1000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(got) != 2400 {
		t.Fatalf("expected 2400 rows, got %d", len(got))
	}
	if pager.calls != 3 {
		t.Fatalf("expected exactly 3 page requests, got %d", pager.calls)
	}
}

func TestFetchAllEmptyFirstPage(t *testing.T) {
	pager := &fakePager{}

	got, err := FetchAll(context.Background(), pager, Query{}, 1000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(got) != 0 {
		t.Fatalf("expected no rows, got %d", len(got))
	}
	if pager.calls != 1 {
		t.Fatalf("expected exactly 1 page request, got %d", pager.calls)
	}
}

func TestFetchAllExactMultipleStopsOnEmptyPage(t *testing.T) {
	pager := &fakePager{rows: makeRows(2000)}

	got, err := FetchAll(context.Background(), pager, Query{}, 1000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(got) != 2000 {
		t.Fatalf("expected 2000 rows, got %d", len(got))
	}
	// Two full pages cannot prove exhaustion; the third, empty page does.
	if pager.calls != 3 {
		t.Fatalf("expected 3 page requests, got %d", pager.calls)
	}
}

type endlessPager struct{ calls int }

func (e *endlessPager) Page(_ context.Context, _ Query, limit, _ int) ([]model.MetricRow, error) {
	e.calls++
	return makeRows(limit), nil
}

func TestFetchAllPageCap(t *testing.T) {
	pager := &endlessPager{}

	if _, err := FetchAll(context.Background(), pager, Query{}, 1000); err == nil {
		t.Fatalf("expected page cap error")
	}
	if pager.calls != MaxPages {
		t.Fatalf("expected %d page requests before giving up, got %d", MaxPages, pager.calls)
	}
}
