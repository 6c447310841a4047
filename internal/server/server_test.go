package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"chainscope/internal/dashboard"
	"chainscope/internal/model"
	"chainscope/internal/store"
)

type fakeStore struct {
	rows []model.MetricRow
	err  error
}

func (f *fakeStore) Page(_ context.Context, q store.Query, limit, offset int) ([]model.MetricRow, error) {
	if f.err != nil {
		return nil, f.err
	}
	var matched []model.MetricRow
	for _, row := range f.rows {
		if row.Network == string(q.Network) && row.Metric == q.Metric {
			matched = append(matched, row)
		}
	}
	if offset >= len(matched) {
		return nil, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], nil
}

func (f *fakeStore) ListMetrics(context.Context, model.Network) ([]string, error) {
	return []string{"tx_count", "dex_volume"}, nil
}

func (f *fakeStore) ListSeriesKeys(context.Context, model.Network, string) ([]string, error) {
	return []string{"uniswap"}, nil
}

func newTestServer(fs *fakeStore) *httptest.Server {
	svc := dashboard.NewService(fs, fs, nil)
	return httptest.NewServer(NewServer(svc, nil, nil).Handler())
}

func TestSeriesEndpoint(t *testing.T) {
	fs := &fakeStore{rows: []model.MetricRow{
		{
			Network:   "ethereum",
			Metric:    "dex_volume",
			SeriesKey: "uniswap",
			Timestamp: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			Value:     1500000,
		},
	}}
	ts := newTestServer(fs)
	defer ts.Close()

	res, err := http.Get(ts.URL + "/api/v1/series?network=ethereum&metric=dex_volume&range=ALL&mode=sum")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.StatusCode)
	}

	var resp dashboard.SeriesResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.NoData {
		t.Fatalf("expected data")
	}
	if resp.Bucket != "month" {
		t.Fatalf("ALL range should bucket by month, got %s", resp.Bucket)
	}
	if len(resp.Series) != 1 || resp.Series[0].Key != "uniswap" {
		t.Fatalf("unexpected series: %+v", resp.Series)
	}
	if resp.Series[0].FormattedTotal != "$1.50M" {
		t.Fatalf("unexpected formatted total: %s", resp.Series[0].FormattedTotal)
	}
}

func TestSeriesEmptyIsOKWithNoData(t *testing.T) {
	ts := newTestServer(&fakeStore{})
	defer ts.Close()

	res, err := http.Get(ts.URL + "/api/v1/series?network=bitcoin&metric=tx_count&range=ALL")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		t.Fatalf("empty result must be 200, got %d", res.StatusCode)
	}

	var resp dashboard.SeriesResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.NoData {
		t.Fatalf("expected no_data flag")
	}
}

func TestSeriesBackendFailureIs502(t *testing.T) {
	ts := newTestServer(&fakeStore{err: fmt.Errorf("connection refused")})
	defer ts.Close()

	res, err := http.Get(ts.URL + "/api/v1/series?network=bitcoin&metric=tx_count&range=7D")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", res.StatusCode)
	}

	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if body.Error == "" {
		t.Fatalf("expected an error message")
	}
}

func TestSeriesBadParamsAre400(t *testing.T) {
	ts := newTestServer(&fakeStore{})
	defer ts.Close()

	cases := []string{
		"/api/v1/series?network=dogecoin&metric=tx_count&range=7D",
		"/api/v1/series?network=ethereum&metric=tx_count&range=14D",
		"/api/v1/series?network=ethereum&metric=tx_count&range=7D&mode=median",
		"/api/v1/series?network=bitcoin&metric=subnet_count&range=7D",
	}
	for _, path := range cases {
		res, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		res.Body.Close()
		if res.StatusCode != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", path, res.StatusCode)
		}
	}
}

func TestSeriesCSVEndpoint(t *testing.T) {
	fs := &fakeStore{rows: []model.MetricRow{
		{
			Network:   "ethereum",
			Metric:    "dex_volume",
			SeriesKey: "uniswap",
			Timestamp: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			Value:     42,
		},
	}}
	ts := newTestServer(fs)
	defer ts.Close()

	res, err := http.Get(ts.URL + "/api/v1/series.csv?network=ethereum&metric=dex_volume&range=ALL")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.StatusCode)
	}
	if ct := res.Header.Get("Content-Type"); ct != "text/csv" {
		t.Fatalf("expected text/csv, got %s", ct)
	}

	payload, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	body := string(payload)
	if !strings.HasPrefix(body, "network,metric,series_key,date,value,formatted_value") {
		t.Fatalf("unexpected csv header: %s", body)
	}
	if !strings.Contains(body, "ethereum,dex_volume,uniswap,2024-03-01,42,42.00") {
		t.Fatalf("missing csv row: %s", body)
	}
}

func TestNetworksEndpoint(t *testing.T) {
	ts := newTestServer(&fakeStore{})
	defer ts.Close()

	res, err := http.Get(ts.URL + "/api/v1/networks")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer res.Body.Close()

	var body struct {
		Networks []struct {
			Name    string `json:"name"`
			Genesis string `json:"genesis"`
		} `json:"networks"`
		Count int `json:"count"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Count != 5 || len(body.Networks) != 5 {
		t.Fatalf("expected 5 networks, got %d", body.Count)
	}
	if body.Networks[0].Name != "bitcoin" || body.Networks[0].Genesis != "2009-01-03" {
		t.Fatalf("unexpected first network: %+v", body.Networks[0])
	}
}

func TestHealthEndpoint(t *testing.T) {
	ts := newTestServer(&fakeStore{})
	defer ts.Close()

	res, err := http.Get(ts.URL + "/api/v1/health")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.StatusCode)
	}
}
