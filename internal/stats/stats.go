// Package stats holds the pure numeric functions used by the comparisons.
// Every function rejects an empty input instead of returning zero.
package stats

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/imishinist/lbeval/internal/models"
)

var (
	// ErrEmptySequence is returned when a statistic gets no values.
	ErrEmptySequence = errors.New("empty sequence")

	// ErrNoUsableData is returned when a computation has no trials, no defined
	// seconds, or a zero denominator.
	ErrNoUsableData = errors.New("no usable data")
)

func Mean(values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, ErrEmptySequence
	}
	return stat.Mean(values, nil), nil
}

// StdDev returns the population standard deviation (denominator n).
func StdDev(values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, ErrEmptySequence
	}
	_, std := stat.PopMeanStdDev(values, nil)
	return std, nil
}

// Percentile interpolates linearly between the two closest ranks of values,
// which must be sorted ascending. p is in [0, 100].
func Percentile(sorted []float64, p float64) (float64, error) {
	if len(sorted) == 0 {
		return 0, ErrEmptySequence
	}
	if p < 0 || p > 100 || math.IsNaN(p) {
		return 0, fmt.Errorf("percentile %v out of range [0, 100]", p)
	}

	rank := p / 100 * float64(len(sorted)-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))
	if lower == upper {
		return sorted[lower], nil
	}
	frac := rank - float64(lower)
	return sorted[lower] + (sorted[upper]-sorted[lower])*frac, nil
}

func Percentiles(sorted []float64, ps []float64) (models.PercentileTable, error) {
	table := make(models.PercentileTable, len(ps))
	for _, p := range ps {
		v, err := Percentile(sorted, p)
		if err != nil {
			return nil, err
		}
		table[p] = v
	}
	return table, nil
}

// CoefficientOfVariation measures how unevenly one second's assignments are
// spread over numWorkers workers. Workers missing from counts count as idle.
// A second without assignments has a CV of 0. counts naming more than
// numWorkers workers is an error.
func CoefficientOfVariation(counts map[string]int, numWorkers int) (float64, error) {
	if numWorkers <= 0 {
		return 0, fmt.Errorf("number of workers must be positive, got %d", numWorkers)
	}
	if len(counts) > numWorkers {
		return 0, fmt.Errorf("%d workers received requests but only %d are configured", len(counts), numWorkers)
	}

	total := 0
	loads := make([]float64, 0, numWorkers)
	for _, c := range counts {
		total += c
		loads = append(loads, float64(c))
	}
	if total == 0 {
		return 0, nil
	}
	for len(loads) < numWorkers {
		loads = append(loads, 0)
	}

	mean := float64(total) / float64(numWorkers)
	std, err := StdDev(loads)
	if err != nil {
		return 0, err
	}
	return std / mean, nil
}

func Ratio(a, b float64) (float64, error) {
	if b == 0 {
		return 0, fmt.Errorf("ratio denominator is zero: %w", ErrNoUsableData)
	}
	return a / b, nil
}

// CDF returns the empirical distribution of sorted: the i-th value (0-based) is
// paired with (i+1)/n.
func CDF(sorted []float64) ([]models.CDFPoint, error) {
	if len(sorted) == 0 {
		return nil, ErrEmptySequence
	}
	n := float64(len(sorted))
	points := make([]models.CDFPoint, len(sorted))
	for i, v := range sorted {
		points[i] = models.CDFPoint{Value: v, Fraction: float64(i+1) / n}
	}
	return points, nil
}
