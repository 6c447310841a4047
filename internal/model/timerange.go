package model

import (
	"fmt"
	"strings"
)

// TimeRange is a relative window selectable in the dashboard.
type TimeRange string

const (
	Range7D   TimeRange = "7D"
	Range30D  TimeRange = "30D"
	Range90D  TimeRange = "90D"
	Range180D TimeRange = "180D"
	Range1Y   TimeRange = "1Y"
	RangeAll  TimeRange = "ALL"
)

// Days returns the window length in days, or 0 for ALL.
func (r TimeRange) Days() int {
	switch r {
	case Range7D:
		return 7
	case Range30D:
		return 30
	case Range90D:
		return 90
	case Range180D:
		return 180
	case Range1Y:
		return 365
	default:
		return 0
	}
}

// ParseTimeRange validates a range value.
func ParseTimeRange(input string) (TimeRange, error) {
	r := TimeRange(strings.ToUpper(strings.TrimSpace(input)))
	switch r {
	case Range7D, Range30D, Range90D, Range180D, Range1Y, RangeAll:
		return r, nil
	}
	return "", fmt.Errorf("unsupported time range: %s", input)
}

// AggMode selects how rows sharing a bucket are combined.
type AggMode string

const (
	AggSum        AggMode = "sum"
	AggAverage    AggMode = "average"
	AggCumulative AggMode = "cumulative"
)

// ParseAggMode validates an aggregation mode, defaulting to sum.
func ParseAggMode(input string) (AggMode, error) {
	if strings.TrimSpace(input) == "" {
		return AggSum, nil
	}
	m := AggMode(strings.ToLower(strings.TrimSpace(input)))
	switch m {
	case AggSum, AggAverage, AggCumulative:
		return m, nil
	}
	return "", fmt.Errorf("unsupported aggregation mode: %s", input)
}

// Bucket is the time granularity rows are truncated to before aggregation.
type Bucket string

const (
	BucketDay   Bucket = "day"
	BucketWeek  Bucket = "week"
	BucketMonth Bucket = "month"
)
