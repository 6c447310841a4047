package model

import "time"

// MetricRow is the normalized representation of one raw observation as it is
// stored and queried. SeriesKey is empty for network-level metrics and carries
// the protocol, token, or subnet identifier for grouped metrics.
type MetricRow struct {
	Network   string    `json:"network"`
	Metric    string    `json:"metric"`
	SeriesKey string    `json:"series_key,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// MetricPoint is one aggregated bucket of a series.
type MetricPoint struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// Series is an ordered (ascending by date) sequence of points.
type Series []MetricPoint

// SeriesCollection maps a series key to its points. Network-level metrics use
// a single entry under the empty key. Series are independently sparse: a date
// with no data for a key is simply absent, except for cumulative aggregation
// where the running total is carried forward across gaps.
type SeriesCollection map[string]Series
