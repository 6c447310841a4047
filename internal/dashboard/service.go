// Package dashboard builds chart-ready series from the metric store. Every
// chart endpoint is a thin configuration of this service: validate the filter,
// pull all pages, reduce into buckets, shape the payload.
package dashboard

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"chainscope/internal/aggregate"
	"chainscope/internal/format"
	"chainscope/internal/model"
	"chainscope/internal/store"
)

// Catalog lists the filter options available in the store.
type Catalog interface {
	ListMetrics(ctx context.Context, network model.Network) ([]string, error)
	ListSeriesKeys(ctx context.Context, network model.Network, metric string) ([]string, error)
}

// Service answers series queries against the metric store.
type Service struct {
	pager    store.Pager
	catalog  Catalog
	logger   *zap.Logger
	pageSize int
	now      func() time.Time
}

func NewService(pager store.Pager, catalog Catalog, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		pager:    pager,
		catalog:  catalog,
		logger:   logger,
		pageSize: store.DefaultPageSize,
		now:      time.Now,
	}
}

// metricNetworks restricts metrics that only exist on some networks. A metric
// absent from this table is available everywhere.
var metricNetworks = map[string][]model.Network{
	"subnet_count":       {model.NetworkAvalanche},
	"subnet_tx_count":    {model.NetworkAvalanche},
	"staking_rate":       {model.NetworkEthereum, model.NetworkAvalanche, model.NetworkPolygon, model.NetworkSolana},
	"ordinals_inscribed": {model.NetworkBitcoin},
}

// moneyMetrics are denominated in USD and render as dollar amounts.
// Rate metrics render as percentages, count-like metrics with thousands
// grouping, everything else with the compact suffix table.
var moneyMetrics = map[string]bool{
	"dex_volume":        true,
	"stablecoin_supply": true,
	"rwa_supply":        true,
	"fees_usd":          true,
}

var percentMetrics = map[string]bool{
	"staking_rate": true,
}

func formatTotal(metric string, total float64) string {
	switch {
	case moneyMetrics[metric]:
		return format.Money(total)
	case percentMetrics[metric]:
		return format.Percent(total)
	case strings.HasSuffix(metric, "_count") || metric == "ordinals_inscribed":
		return format.Count(total)
	default:
		return format.Compact(total)
	}
}

// SeriesRequest is a raw, not yet validated filter selection.
type SeriesRequest struct {
	Network string   `json:"network"`
	Metric  string   `json:"metric"`
	Range   string   `json:"range"`
	Mode    string   `json:"mode"`
	Keys    []string `json:"keys,omitempty"`
}

// SeriesPayload is one chart trace: dates and values are always the same
// length.
type SeriesPayload struct {
	Key            string    `json:"key"`
	Dates          []string  `json:"dates"`
	Values         []float64 `json:"values"`
	Total          float64   `json:"total"`
	FormattedTotal string    `json:"formatted_total"`
}

// SeriesResponse is the aggregated answer for one filter selection.
type SeriesResponse struct {
	Network string          `json:"network"`
	Metric  string          `json:"metric"`
	Range   string          `json:"range"`
	Mode    string          `json:"mode"`
	Bucket  string          `json:"bucket"`
	NoData  bool            `json:"no_data"`
	Series  []SeriesPayload `json:"series"`
}

// BadRequestError marks a validation failure the caller can fix. It is
// detected before any query is issued.
type BadRequestError struct {
	Reason string
}

func (e *BadRequestError) Error() string { return e.Reason }

func badRequest(fmtStr string, args ...any) error {
	return &BadRequestError{Reason: fmt.Sprintf(fmtStr, args...)}
}

// IsBadRequest reports whether err is a request validation failure.
func IsBadRequest(err error) bool {
	_, ok := err.(*BadRequestError)
	return ok
}

type resolvedRequest struct {
	network model.Network
	metric  string
	rng     model.TimeRange
	mode    model.AggMode
	keys    []string
}

func (s *Service) resolve(req SeriesRequest) (resolvedRequest, error) {
	var out resolvedRequest

	network, err := model.ParseNetwork(req.Network)
	if err != nil {
		return out, badRequest("%v", err)
	}
	if req.Metric == "" {
		return out, badRequest("metric is required")
	}
	if allowed, ok := metricNetworks[req.Metric]; ok {
		supported := false
		for _, n := range allowed {
			if n == network {
				supported = true
				break
			}
		}
		if !supported {
			return out, badRequest("metric %s is only available for %s", req.Metric, networkList(allowed))
		}
	}

	rng, err := model.ParseTimeRange(req.Range)
	if err != nil {
		return out, badRequest("%v", err)
	}
	mode, err := model.ParseAggMode(req.Mode)
	if err != nil {
		return out, badRequest("%v", err)
	}

	out = resolvedRequest{
		network: network,
		metric:  req.Metric,
		rng:     rng,
		mode:    mode,
		keys:    req.Keys,
	}
	return out, nil
}

// Series validates the request, fetches every matching page, and reduces the
// rows into one trace per series key. A successful query with no rows is a
// NoData response, never an error.
func (s *Service) Series(ctx context.Context, req SeriesRequest) (*SeriesResponse, error) {
	resolved, err := s.resolve(req)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	cutoff := aggregate.CutoffFor(resolved.rng, resolved.network, now)
	bucket := aggregate.BucketFor(resolved.rng)

	rows, err := store.FetchAll(ctx, s.pager, store.Query{
		Network: resolved.network,
		Metric:  resolved.metric,
		Keys:    resolved.keys,
		Since:   cutoff,
	}, s.pageSize)
	if err != nil {
		s.logger.Warn("series query failed",
			zap.String("network", resolved.network.String()),
			zap.String("metric", resolved.metric),
			zap.Error(err),
		)
		return nil, fmt.Errorf("query %s/%s: %w", resolved.network, resolved.metric, err)
	}

	collection := aggregate.Reduce(rows, aggregate.Options{
		Mode:   resolved.mode,
		Bucket: bucket,
		Cutoff: cutoff,
		Now:    now,
	})

	resp := &SeriesResponse{
		Network: resolved.network.String(),
		Metric:  resolved.metric,
		Range:   string(resolved.rng),
		Mode:    string(resolved.mode),
		Bucket:  string(bucket),
		NoData:  len(rows) == 0,
		Series:  buildPayloads(collection, resolved.metric, resolved.mode),
	}
	return resp, nil
}

// Filters returns the metric and series-key options for a network.
func (s *Service) Filters(ctx context.Context, networkName string, metric string) (map[string][]string, error) {
	network, err := model.ParseNetwork(networkName)
	if err != nil {
		return nil, badRequest("%v", err)
	}

	metrics, err := s.catalog.ListMetrics(ctx, network)
	if err != nil {
		return nil, fmt.Errorf("list metrics: %w", err)
	}

	out := map[string][]string{"metrics": metrics}
	if metric != "" {
		keys, err := s.catalog.ListSeriesKeys(ctx, network, metric)
		if err != nil {
			return nil, fmt.Errorf("list series keys: %w", err)
		}
		out["keys"] = keys
	}
	return out, nil
}

func buildPayloads(collection model.SeriesCollection, metric string, mode model.AggMode) []SeriesPayload {
	keys := make([]string, 0, len(collection))
	for key := range collection {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	payloads := make([]SeriesPayload, 0, len(keys))
	for _, key := range keys {
		series := collection[key]
		dates := make([]string, 0, len(series))
		values := make([]float64, 0, len(series))
		total := 0.0
		for _, point := range series {
			dates = append(dates, point.Date)
			values = append(values, point.Value)
			total += point.Value
		}
		// A cumulative trace already is a running total; its headline number
		// is the latest value, not the sum of the curve.
		if mode == model.AggCumulative && len(values) > 0 {
			total = values[len(values)-1]
		}
		payloads = append(payloads, SeriesPayload{
			Key:            key,
			Dates:          dates,
			Values:         values,
			Total:          total,
			FormattedTotal: formatTotal(metric, total),
		})
	}
	return payloads
}

func networkList(networks []model.Network) string {
	out := ""
	for i, n := range networks {
		if i > 0 {
			out += ", "
		}
		out += n.String()
	}
	return out
}
