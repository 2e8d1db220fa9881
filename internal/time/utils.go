package timeutils

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/imishinist/lbeval/internal/models"
)

const (
	// LogTimeLayout is the Go log package's default prefix.
	LogTimeLayout = "2006/01/02 15:04:05"
	// MetricTimeLayout matches the first 19 characters of a load-test timestamp.
	MetricTimeLayout = "2006-01-02T15:04:05"
)

// ParseLogTime parses a "YYYY/MM/DD HH:MM:SS" log prefix.
func ParseLogTime(s string) (time.Time, error) {
	t, err := time.Parse(LogTimeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid log timestamp %q: %w", s, err)
	}
	return t, nil
}

// ParseMetricTime parses the second-resolution prefix of an ISO8601 timestamp.
// Fractional seconds and zone offsets are discarded.
func ParseMetricTime(s string) (time.Time, error) {
	if len(s) < len(MetricTimeLayout) {
		return time.Time{}, fmt.Errorf("invalid metric timestamp %q: too short", s)
	}
	t, err := time.Parse(MetricTimeLayout, s[:len(MetricTimeLayout)])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid metric timestamp %q: %w", s, err)
	}
	return t, nil
}

// SecondsSince returns the whole seconds elapsed from start to t, rounded down.
func SecondsSince(start, t time.Time) int {
	return int(math.Floor(t.Sub(start).Seconds()))
}

// SeriesToMetrics converts a per-second series into tracking metrics, one per
// second, using the second as step and base+second as timestamp.
func SeriesToMetrics(key string, series map[int]float64, base time.Time) []models.Metric {
	seconds := make([]int, 0, len(series))
	for second := range series {
		seconds = append(seconds, second)
	}
	sort.Ints(seconds)

	result := make([]models.Metric, 0, len(seconds))
	for _, second := range seconds {
		result = append(result, models.Metric{
			Key:       key,
			Value:     series[second],
			Timestamp: base.Add(time.Duration(second) * time.Second),
			Step:      int64(second),
		})
	}
	return result
}
