// Package report runs every comparison once and turns the results into a JSON
// document and tracking metrics.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/imishinist/lbeval/internal/compare"
	"github.com/imishinist/lbeval/internal/models"
	timeutils "github.com/imishinist/lbeval/internal/time"
)

type Options struct {
	NumWorkers  int
	Window      int
	CutOff      int
	Percentiles []float64
	Tiers       []compare.Tier
}

type Report struct {
	AnalysisID string            `json:"analysis_id"`
	CreatedAt  time.Time         `json:"created_at"`
	Strategies []models.Strategy `json:"strategies"`

	AverageLatency       map[models.Strategy]float64                   `json:"average_latency"`
	TailLatency          map[models.Strategy]map[string]float64        `json:"tail_latency"`
	ColdStarts           map[models.Strategy]compare.ColdStartStats    `json:"cold_starts"`
	SchedulingOverhead   map[models.Strategy]float64                   `json:"scheduling_overhead"`
	LoadImbalance        map[models.Strategy]models.AggregateSeries    `json:"load_imbalance"`
	AverageLoadImbalance map[models.Strategy]float64                   `json:"average_load_imbalance"`
	Throughput           map[models.Strategy]compare.ThroughputResult  `json:"throughput"`
	AverageThroughput    map[models.Strategy]float64                   `json:"average_throughput"`
	Concurrency          map[models.Strategy]map[int]float64           `json:"concurrency"`
}

// Build runs all strategy comparisons. Each log source is parsed once for the
// whole build. The first failing comparison aborts the build.
func Build(ctx context.Context, c *compare.Comparator, opts Options) (*Report, error) {
	c = c.Cached()
	r := &Report{
		AnalysisID: uuid.NewString(),
		CreatedAt:  time.Now().UTC(),
		Strategies: c.Strategies(),
	}

	var err error
	if r.AverageLatency, err = c.AverageLatency(ctx); err != nil {
		return nil, err
	}

	tail, err := c.TailLatency(ctx, opts.Percentiles)
	if err != nil {
		return nil, err
	}
	r.TailLatency = make(map[models.Strategy]map[string]float64, len(tail))
	for strategy, table := range tail {
		r.TailLatency[strategy] = percentileKeys(table)
	}

	if r.ColdStarts, err = c.ColdStarts(ctx); err != nil {
		return nil, err
	}
	if r.SchedulingOverhead, err = c.SchedulingOverhead(ctx); err != nil {
		return nil, err
	}
	if r.LoadImbalance, err = c.LoadImbalance(ctx, opts.NumWorkers, opts.Window); err != nil {
		return nil, err
	}
	if r.AverageLoadImbalance, err = c.AverageLoadImbalance(ctx, opts.NumWorkers); err != nil {
		return nil, err
	}
	if r.Throughput, err = c.Throughput(ctx, opts.CutOff); err != nil {
		return nil, err
	}
	if r.AverageThroughput, err = c.AverageThroughput(ctx); err != nil {
		return nil, err
	}
	if r.Concurrency, err = c.Concurrency(ctx, opts.Tiers, opts.CutOff); err != nil {
		return nil, err
	}

	return r, nil
}

// PercentileLabel formats a percentile as a key, e.g. 99.9 -> "p99.9".
func PercentileLabel(p float64) string {
	return "p" + strconv.FormatFloat(p, 'f', -1, 64)
}

func percentileKeys(table models.PercentileTable) map[string]float64 {
	out := make(map[string]float64, len(table))
	for p, v := range table {
		out[PercentileLabel(p)] = v
	}
	return out
}

func (r *Report) WriteJSON(w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(r); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return nil
}

// Metrics flattens the report into tracking metrics keyed
// "<metric>.<strategy>". Series use the second as step; scalars use step 0.
func (r *Report) Metrics() []models.Metric {
	var metrics []models.Metric
	scalar := func(name string, strategy models.Strategy, value float64) {
		metrics = append(metrics, models.Metric{
			Key:       MetricKey(name, strategy),
			Value:     value,
			Timestamp: r.CreatedAt,
		})
	}

	for _, strategy := range r.Strategies {
		scalar(compare.MetricAverageLatency, strategy, r.AverageLatency[strategy])
		for _, label := range sortedKeys(r.TailLatency[strategy]) {
			scalar(compare.MetricTailLatency+"_"+label, strategy, r.TailLatency[strategy][label])
		}
		scalar(compare.MetricColdStarts, strategy, r.ColdStarts[strategy].Percent)
		scalar(compare.MetricSchedulingOverhead, strategy, r.SchedulingOverhead[strategy])
		scalar(compare.MetricAverageLoadImbalance, strategy, r.AverageLoadImbalance[strategy])
		scalar(compare.MetricAverageThroughput, strategy, r.AverageThroughput[strategy])

		vus := make([]int, 0, len(r.Concurrency[strategy]))
		for vu := range r.Concurrency[strategy] {
			vus = append(vus, vu)
		}
		sort.Ints(vus)
		for _, vu := range vus {
			scalar(fmt.Sprintf("%s_vu%d", compare.MetricConcurrency, vu), strategy, r.Concurrency[strategy][vu])
		}

		metrics = append(metrics, timeutils.SeriesToMetrics(
			MetricKey(compare.MetricLoadImbalance, strategy), r.LoadImbalance[strategy], r.CreatedAt)...)
		metrics = append(metrics, timeutils.SeriesToMetrics(
			MetricKey(compare.MetricThroughput, strategy), r.Throughput[strategy].Mean, r.CreatedAt)...)
	}
	return metrics
}

func MetricKey(name string, strategy models.Strategy) string {
	return name + "." + string(strategy)
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
