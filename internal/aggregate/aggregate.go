// Package aggregate combines per-trial series of one strategy.
package aggregate

import (
	"fmt"
	"slices"

	"github.com/samber/lo"

	"github.com/imishinist/lbeval/internal/models"
	"github.com/imishinist/lbeval/internal/stats"
)

// MeanPerSecond averages each second over the trials that define it.
func MeanPerSecond(series ...models.PerSecondSeries) (models.AggregateSeries, error) {
	if len(series) == 0 {
		return nil, fmt.Errorf("no trials: %w", stats.ErrNoUsableData)
	}

	sums := make(map[int]float64)
	counts := make(map[int]int)
	for _, s := range series {
		for second, v := range s {
			sums[second] += v
			counts[second]++
		}
	}
	if len(sums) == 0 {
		return nil, fmt.Errorf("no defined seconds in %d trials: %w", len(series), stats.ErrNoUsableData)
	}

	agg := make(models.AggregateSeries, len(sums))
	for second, sum := range sums {
		agg[second] = sum / float64(counts[second])
	}
	return agg, nil
}

// Windowed averages consecutive seconds of agg in blocks of n. Each block is
// keyed by its last second plus one. The last block may hold fewer than n
// seconds and is averaged over what it holds.
func Windowed(agg models.AggregateSeries, n int) (models.AggregateSeries, error) {
	if n <= 0 {
		return nil, fmt.Errorf("window size must be positive, got %d", n)
	}
	if len(agg) == 0 {
		return nil, fmt.Errorf("empty series: %w", stats.ErrNoUsableData)
	}

	seconds := lo.Keys(map[int]float64(agg))
	slices.Sort(seconds)

	windows := make(models.AggregateSeries, (len(seconds)+n-1)/n)
	for _, block := range lo.Chunk(seconds, n) {
		total := lo.SumBy(block, func(second int) float64 { return agg[second] })
		windows[block[len(block)-1]+1] = total / float64(len(block))
	}
	return windows, nil
}

// GlobalMean averages every defined value of every trial, so longer trials
// weigh more than shorter ones.
func GlobalMean(series ...models.PerSecondSeries) (float64, error) {
	total := 0.0
	observations := 0
	for _, s := range series {
		for _, v := range s {
			total += v
			observations++
		}
	}
	if observations == 0 {
		return 0, fmt.Errorf("no observations in %d trials: %w", len(series), stats.ErrNoUsableData)
	}
	return total / float64(observations), nil
}
