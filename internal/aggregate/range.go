package aggregate

import (
	"time"

	"chainscope/internal/model"
)

// CutoffFor translates a relative time range into a concrete inclusive start
// date. ALL uses the network's genesis date rather than querying for the true
// minimum.
func CutoffFor(rng model.TimeRange, network model.Network, now time.Time) time.Time {
	if rng == model.RangeAll {
		return network.Genesis()
	}
	return TruncateToBucket(now.UTC(), model.BucketDay).AddDate(0, 0, -rng.Days())
}

// BucketFor maps a time range to the bucket granularity used for it. The
// table is fixed: short ranges keep daily resolution, 180D and 1Y coarsen to
// weeks, ALL to months.
func BucketFor(rng model.TimeRange) model.Bucket {
	switch rng {
	case model.Range180D, model.Range1Y:
		return model.BucketWeek
	case model.RangeAll:
		return model.BucketMonth
	default:
		return model.BucketDay
	}
}

// TruncateToBucket truncates a timestamp to the start of its bucket in UTC.
// Weeks start on Monday, months on the first.
func TruncateToBucket(t time.Time, bucket model.Bucket) time.Time {
	t = t.UTC()
	switch bucket {
	case model.BucketWeek:
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		offset := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -offset)
	case model.BucketMonth:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	default:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	}
}

// NextBucket advances a bucket-aligned timestamp to the next bucket start.
func NextBucket(t time.Time, bucket model.Bucket) time.Time {
	switch bucket {
	case model.BucketWeek:
		return t.AddDate(0, 0, 7)
	case model.BucketMonth:
		return t.AddDate(0, 1, 0)
	default:
		return t.AddDate(0, 0, 1)
	}
}
