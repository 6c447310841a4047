// Package aggregate reduces raw metric rows into time-bucketed series. It is
// the single implementation of the grouping, truncation, and combination
// behavior every chart in the dashboard is built on.
package aggregate

import (
	"sort"
	"time"

	"chainscope/internal/model"
)

// DateFormat is the wire format for bucket dates.
const DateFormat = "2006-01-02"

// Options parameterizes a reduction.
type Options struct {
	Mode   model.AggMode
	Bucket model.Bucket

	// Cutoff is the inclusive lower bound. Rows dated exactly at the cutoff
	// are kept, rows before it are dropped. Zero means no filtering.
	Cutoff time.Time

	// Now bounds cumulative forward-fill. Zero means fill only to the last
	// observed bucket.
	Now time.Time

	// Key extracts the series key from a row. Nil uses row.SeriesKey.
	Key func(model.MetricRow) string

	// Value extracts the numeric value from a row. Nil uses row.Value.
	Value func(model.MetricRow) float64
}

type bucketAcc struct {
	sum   float64
	count int
}

// Reduce groups rows by (series key, truncated bucket date) and combines each
// group according to the mode: sum adds, average divides by group cardinality,
// cumulative adds each bucket's net delta to a running total in date order.
//
// Sum and average output stays sparse: buckets with no rows are absent, never
// zero-filled. Cumulative output is forward-filled: every bucket from the
// first observation to Now appears once per key, carrying the running total
// across gaps, so a chart always sees the current total on the latest bucket.
func Reduce(rows []model.MetricRow, opts Options) model.SeriesCollection {
	keyOf := opts.Key
	if keyOf == nil {
		keyOf = func(r model.MetricRow) string { return r.SeriesKey }
	}
	valueOf := opts.Value
	if valueOf == nil {
		valueOf = func(r model.MetricRow) float64 { return r.Value }
	}
	bucket := opts.Bucket
	if bucket == "" {
		bucket = model.BucketDay
	}

	var cutoff time.Time
	if !opts.Cutoff.IsZero() {
		cutoff = TruncateToBucket(opts.Cutoff, model.BucketDay)
	}

	grouped := make(map[string]map[time.Time]*bucketAcc)
	for _, row := range rows {
		ts := TruncateToBucket(row.Timestamp, model.BucketDay)
		if !cutoff.IsZero() && ts.Before(cutoff) {
			continue
		}

		key := keyOf(row)
		buckets := grouped[key]
		if buckets == nil {
			buckets = make(map[time.Time]*bucketAcc)
			grouped[key] = buckets
		}

		at := TruncateToBucket(row.Timestamp, bucket)
		acc := buckets[at]
		if acc == nil {
			acc = &bucketAcc{}
			buckets[at] = acc
		}
		acc.sum += valueOf(row)
		acc.count++
	}

	out := make(model.SeriesCollection, len(grouped))
	for key, buckets := range grouped {
		dates := make([]time.Time, 0, len(buckets))
		for at := range buckets {
			dates = append(dates, at)
		}
		sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

		switch opts.Mode {
		case model.AggCumulative:
			out[key] = cumulativeSeries(dates, buckets, bucket, opts.Now)
		case model.AggAverage:
			series := make(model.Series, 0, len(dates))
			for _, at := range dates {
				acc := buckets[at]
				series = append(series, model.MetricPoint{
					Date:  at.Format(DateFormat),
					Value: acc.sum / float64(acc.count),
				})
			}
			out[key] = series
		default:
			series := make(model.Series, 0, len(dates))
			for _, at := range dates {
				series = append(series, model.MetricPoint{
					Date:  at.Format(DateFormat),
					Value: buckets[at].sum,
				})
			}
			out[key] = series
		}
	}

	return out
}

// cumulativeSeries walks every bucket from the first observation forward,
// carrying the running total across buckets that have no rows.
func cumulativeSeries(dates []time.Time, buckets map[time.Time]*bucketAcc, bucket model.Bucket, now time.Time) model.Series {
	if len(dates) == 0 {
		return model.Series{}
	}

	end := dates[len(dates)-1]
	if !now.IsZero() {
		if last := TruncateToBucket(now, bucket); last.After(end) {
			end = last
		}
	}

	series := make(model.Series, 0, len(dates))
	running := 0.0
	for at := dates[0]; !at.After(end); at = NextBucket(at, bucket) {
		if acc, ok := buckets[at]; ok {
			running += acc.sum
		}
		series = append(series, model.MetricPoint{
			Date:  at.Format(DateFormat),
			Value: running,
		})
	}
	return series
}
