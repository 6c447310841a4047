// Package export serializes aggregated series for download.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"chainscope/internal/dashboard"
	"chainscope/internal/format"
)

// csvHeader is the fixed header row of every export.
var csvHeader = []string{"network", "metric", "series_key", "date", "value", "formatted_value"}

// WriteCSV writes one row per (series key, bucket date). Quoting follows
// RFC 4180 via encoding/csv, so keys containing commas or quotes stay intact.
func WriteCSV(w io.Writer, resp *dashboard.SeriesResponse) error {
	if resp == nil {
		return fmt.Errorf("nil response")
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, trace := range resp.Series {
		for i, date := range trace.Dates {
			record := []string{
				resp.Network,
				resp.Metric,
				trace.Key,
				date,
				strconv.FormatFloat(trace.Values[i], 'f', -1, 64),
				format.Compact(trace.Values[i]),
			}
			if err := cw.Write(record); err != nil {
				return fmt.Errorf("write record: %w", err)
			}
		}
	}

	cw.Flush()
	return cw.Error()
}
