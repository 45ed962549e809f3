package features

import (
	"strings"
	"time"

	"github.com/YuminosukeSato/churnkit/pkg/errors"
)

// DateLayouts are tried in order when parsing a date cell.
var DateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006/01/02",
	"2006.01.02",
	"20060102",
}

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04:05"
)

var errEmptyDate = errors.New("empty date")

// ParseDate parses s with the first matching layout in DateLayouts.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errEmptyDate
	}
	var firstErr error
	for _, layout := range DateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, errors.Wrapf(firstErr, "no known date layout matches %q", s)
}

// wholeDays は a - b を日数に変換する（pandas の .dt.days と同じく切り捨て）。
func wholeDays(a, b time.Time) float64 {
	d := a.Sub(b)
	days := d / (24 * time.Hour)
	if d%(24*time.Hour) < 0 {
		days--
	}
	return float64(days)
}

// formatDates は列全体で時刻部分がなければ日付のみで書き出す。
func formatDates(ts []time.Time) []string {
	layout := dateLayout
	for _, t := range ts {
		if t.Hour() != 0 || t.Minute() != 0 || t.Second() != 0 {
			layout = dateTimeLayout
			break
		}
	}
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.Format(layout)
	}
	return out
}
