package codec

import (
	"math"
	"strings"
	"time"
)

const (
	secondsPerDay = 86400
	millisPerDay  = 86400000
)

var (
	minTime = time.Date(1, time.January, 1, 0, 0, 0, 0, time.UTC)
	maxTime = time.Date(9999, time.December, 31, 23, 59, 59, 999_000_000, time.UTC)

	minDay = float64(minTime.Unix() / secondsPerDay)
	maxDay = float64(maxTime.Unix() / secondsPerDay)
)

// dateTimeLayouts are tried in order.
var dateTimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseDateTime parses s in any accepted datetime layout. Values without a
// zone are taken as UTC.
func ParseDateTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, ErrInvalidDate
}

// DateToNumber encodes the calendar date of t as whole days since the epoch.
// The date is read in t's own location.
func DateToNumber(t time.Time) float64 {
	y, m, d := t.Date()
	return float64(time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / secondsPerDay)
}

// DateTimeToNumber encodes t as fractional days since the epoch with
// millisecond resolution.
func DateTimeToNumber(t time.Time) float64 {
	return float64(t.UnixMilli()) / millisPerDay
}

// NumberToDate is the inverse of DateToNumber. It returns false for NaN,
// infinities and days outside years 1 to 9999.
func NumberToDate(v float64) (time.Time, bool) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return time.Time{}, false
	}
	day := math.Floor(v)
	if day < minDay || day > maxDay {
		return time.Time{}, false
	}
	return time.Unix(int64(day)*secondsPerDay, 0).UTC(), true
}

// NumberToDateTime is the inverse of DateTimeToNumber.
func NumberToDateTime(v float64) (time.Time, bool) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return time.Time{}, false
	}
	ms := math.Round(v * millisPerDay)
	if ms < float64(minTime.UnixMilli()) || ms > float64(maxTime.UnixMilli()) {
		return time.Time{}, false
	}
	return time.UnixMilli(int64(ms)).UTC(), true
}
