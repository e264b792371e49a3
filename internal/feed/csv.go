package feed

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/trendgate/trendgate/internal/market"
)

// LoadCSV reads bars from a CSV file with columns
// timestamp,open,high,low,close,volume. Timestamps are RFC3339 or unix
// seconds. A header row is skipped when present. Bars are returned in
// file order; callers relying on chronological replay should store
// files sorted.
func LoadCSV(path string) ([]market.Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open bar file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = 6

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read bar file %s: %w", path, err)
	}

	bars := make([]market.Bar, 0, len(records))
	for i, record := range records {
		ts, err := parseTimestamp(record[0])
		if err != nil {
			if i == 0 && isHeaderRow(record) {
				continue
			}
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}

		bar := market.Bar{Timestamp: ts}
		fields := []*float64{&bar.Open, &bar.High, &bar.Low, &bar.Close, &bar.Volume}
		for j, dst := range fields {
			v, err := strconv.ParseFloat(record[j+1], 64)
			if err != nil {
				return nil, fmt.Errorf("row %d: invalid value %q: %w", i+1, record[j+1], err)
			}
			*dst = v
		}
		bars = append(bars, bar)
	}

	return bars, nil
}

// isHeaderRow reports whether a first row with an unparseable timestamp
// is a column header rather than corrupt data: none of its price/volume
// fields parse as numbers either.
func isHeaderRow(record []string) bool {
	for _, field := range record[1:] {
		if _, err := strconv.ParseFloat(field, 64); err == nil {
			return false
		}
	}
	return true
}

func parseTimestamp(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts.UTC(), nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", s)
}
