// Package compare runs each comparison over every configured strategy.
//
// Every method loads the trials it needs, reduces them to per-trial series and
// aggregates per strategy. Methods share no state and may run in any order.
package compare

import (
	"context"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/imishinist/lbeval/internal/aggregate"
	"github.com/imishinist/lbeval/internal/loader"
	"github.com/imishinist/lbeval/internal/models"
	"github.com/imishinist/lbeval/internal/stats"
	timeutils "github.com/imishinist/lbeval/internal/time"
)

const (
	MetricAverageLatency       = "average_latency"
	MetricLatencyCDF           = "latency_cdf"
	MetricTailLatency          = "tail_latency"
	MetricColdStarts           = "cold_starts"
	MetricLoadImbalance        = "load_imbalance"
	MetricAverageLoadImbalance = "average_load_imbalance"
	MetricThroughput           = "throughput"
	MetricAverageThroughput    = "average_throughput"
	MetricConcurrency          = "concurrency"
	MetricSchedulingOverhead   = "scheduling_overhead"
)

var (
	successfulRequest = timeutils.Selector(models.Event.IsSuccessfulRequest)
	workerSelection   = timeutils.Selector(models.Event.IsWorkerSelection)
	sandboxCreated    = ofKind(models.KindSandboxCreated)
	functionInvoked   = ofKind(models.KindFunctionInvoked)
)

func ofKind(kind models.EventKind) timeutils.Selector {
	return func(e models.Event) bool { return e.Kind == kind }
}

type Comparator struct {
	loader     *loader.Loader
	strategies []models.Strategy
	logger     logrus.FieldLogger
	cache      *trialCache
}

type cacheKey struct {
	strategy models.Strategy
	source   loader.Source
}

type trialCache struct {
	mu     sync.Mutex
	trials map[cacheKey][]models.Trial
}

func New(l *loader.Loader, strategies []models.Strategy, logger logrus.FieldLogger) *Comparator {
	if len(strategies) == 0 {
		strategies = models.AllStrategies
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Comparator{loader: l, strategies: strategies, logger: logger}
}

func (c *Comparator) Strategies() []models.Strategy {
	return c.strategies
}

// Cached returns a comparator with the same settings that parses each
// strategy's logs at most once per source. Trials are never modified after
// loading, so the comparisons can share them.
func (c *Comparator) Cached() *Comparator {
	cached := *c
	cached.cache = &trialCache{trials: make(map[cacheKey][]models.Trial)}
	return &cached
}

// load returns the usable trials of strategy, failing when none are left.
func (c *Comparator) load(ctx context.Context, metric string, strategy models.Strategy, source loader.Source) ([]models.Trial, error) {
	if c.cache == nil {
		return c.loadUncached(ctx, metric, strategy, source)
	}

	key := cacheKey{strategy: strategy, source: source}
	c.cache.mu.Lock()
	defer c.cache.mu.Unlock()
	if trials, ok := c.cache.trials[key]; ok {
		return trials, nil
	}
	trials, err := c.loadUncached(ctx, metric, strategy, source)
	if err != nil {
		return nil, err
	}
	c.cache.trials[key] = trials
	return trials, nil
}

func (c *Comparator) loadUncached(ctx context.Context, metric string, strategy models.Strategy, source loader.Source) ([]models.Trial, error) {
	result, err := c.loader.LoadStrategy(ctx, strategy, source)
	if err != nil {
		return nil, &Error{Metric: metric, Strategy: strategy, Err: err}
	}
	if len(result.Trials) == 0 {
		return nil, &Error{Metric: metric, Strategy: strategy, Err: stats.ErrNoUsableData}
	}
	c.logger.WithFields(logrus.Fields{
		"metric":   metric,
		"strategy": strategy,
		"trials":   len(result.Trials),
		"excluded": result.ExcludedCount(),
	}).Debug("loaded strategy")
	return result.Trials, nil
}

func (c *Comparator) latencies(ctx context.Context, metric string, strategy models.Strategy) ([]float64, error) {
	trials, err := c.load(ctx, metric, strategy, loader.SourceLoadTest)
	if err != nil {
		return nil, err
	}
	var latencies []float64
	for _, trial := range trials {
		for _, e := range trial.Events {
			if e.IsSuccessfulRequest() {
				latencies = append(latencies, e.LatencyMs)
			}
		}
	}
	sort.Float64s(latencies)
	return latencies, nil
}

// AverageLatency returns the mean latency in milliseconds of every successful
// request across all trials.
func (c *Comparator) AverageLatency(ctx context.Context) (map[models.Strategy]float64, error) {
	out := make(map[models.Strategy]float64, len(c.strategies))
	for _, strategy := range c.strategies {
		latencies, err := c.latencies(ctx, MetricAverageLatency, strategy)
		if err != nil {
			return nil, err
		}
		mean, err := stats.Mean(latencies)
		if err != nil {
			return nil, &Error{Metric: MetricAverageLatency, Strategy: strategy, Err: err}
		}
		out[strategy] = mean
	}
	return out, nil
}

func (c *Comparator) LatencyCDF(ctx context.Context) (map[models.Strategy][]models.CDFPoint, error) {
	out := make(map[models.Strategy][]models.CDFPoint, len(c.strategies))
	for _, strategy := range c.strategies {
		latencies, err := c.latencies(ctx, MetricLatencyCDF, strategy)
		if err != nil {
			return nil, err
		}
		cdf, err := stats.CDF(latencies)
		if err != nil {
			return nil, &Error{Metric: MetricLatencyCDF, Strategy: strategy, Err: err}
		}
		out[strategy] = cdf
	}
	return out, nil
}

func (c *Comparator) TailLatency(ctx context.Context, percentiles []float64) (map[models.Strategy]models.PercentileTable, error) {
	out := make(map[models.Strategy]models.PercentileTable, len(c.strategies))
	for _, strategy := range c.strategies {
		latencies, err := c.latencies(ctx, MetricTailLatency, strategy)
		if err != nil {
			return nil, err
		}
		table, err := stats.Percentiles(latencies, percentiles)
		if err != nil {
			return nil, &Error{Metric: MetricTailLatency, Strategy: strategy, Err: err}
		}
		out[strategy] = table
	}
	return out, nil
}

type ColdStartStats struct {
	SandboxesCreated int     `json:"sandboxes_created"`
	Invocations      int     `json:"invocations"`
	Percent          float64 `json:"percent"`
}

// ColdStarts relates sandbox creations to invocations over every worker log of
// every trial. Invocations of all functions on a worker are counted together.
func (c *Comparator) ColdStarts(ctx context.Context) (map[models.Strategy]ColdStartStats, error) {
	out := make(map[models.Strategy]ColdStartStats, len(c.strategies))
	for _, strategy := range c.strategies {
		trials, err := c.load(ctx, MetricColdStarts, strategy, loader.SourceWorkers)
		if err != nil {
			return nil, err
		}

		var s ColdStartStats
		for _, trial := range trials {
			s.SandboxesCreated += trial.Count(sandboxCreated)
			s.Invocations += trial.Count(functionInvoked)
		}

		ratio, err := stats.Ratio(float64(s.SandboxesCreated), float64(s.Invocations))
		if err != nil {
			return nil, &Error{Metric: MetricColdStarts, Strategy: strategy, Err: err}
		}
		s.Percent = ratio * 100
		out[strategy] = s
	}
	return out, nil
}

// SchedulingOverhead returns the mean time in nanoseconds the balancer spent
// selecting a worker.
func (c *Comparator) SchedulingOverhead(ctx context.Context) (map[models.Strategy]float64, error) {
	out := make(map[models.Strategy]float64, len(c.strategies))
	for _, strategy := range c.strategies {
		trials, err := c.load(ctx, MetricSchedulingOverhead, strategy, loader.SourceBalancer)
		if err != nil {
			return nil, err
		}

		var overheads []float64
		for _, trial := range trials {
			for _, e := range trial.Events {
				if e.IsWorkerSelection() {
					overheads = append(overheads, float64(e.OverheadNs))
				}
			}
		}
		mean, err := stats.Mean(overheads)
		if err != nil {
			return nil, &Error{Metric: MetricSchedulingOverhead, Strategy: strategy, Err: err}
		}
		out[strategy] = mean
	}
	return out, nil
}

// imbalanceSeries loads balancer logs and returns one dense CV series per
// trial. Trials without any worker selection are skipped.
func (c *Comparator) imbalanceSeries(ctx context.Context, metric string, strategy models.Strategy, numWorkers int) ([]models.PerSecondSeries, error) {
	trials, err := c.load(ctx, metric, strategy, loader.SourceBalancer)
	if err != nil {
		return nil, err
	}

	series := make([]models.PerSecondSeries, 0, len(trials))
	for _, trial := range trials {
		cv, err := CoefficientOfVariationSeries(trial, numWorkers)
		if err != nil {
			return nil, &Error{Metric: metric, Strategy: strategy, Err: err}
		}
		if len(cv) == 0 {
			c.logger.WithFields(logrus.Fields{"strategy": strategy, "trial": trial.ID}).
				Warn("trial has no worker selections")
			continue
		}
		series = append(series, cv)
	}
	return series, nil
}

// CoefficientOfVariationSeries computes the per-second CV of worker
// assignments over [0, last second]. Seconds without assignments are 0.
func CoefficientOfVariationSeries(trial models.Trial, numWorkers int) (models.PerSecondSeries, error) {
	assignments := timeutils.AssignmentsPerSecond(trial.Events, workerSelection)
	if len(assignments) == 0 {
		return models.PerSecondSeries{}, nil
	}

	maxSecond := 0
	for second := range assignments {
		maxSecond = max(maxSecond, second)
	}

	series := make(models.PerSecondSeries, maxSecond+1)
	for second := 0; second <= maxSecond; second++ {
		cv, err := stats.CoefficientOfVariation(assignments[second], numWorkers)
		if err != nil {
			return nil, err
		}
		series[second] = cv
	}
	return series, nil
}

// LoadImbalance averages the per-second CV across trials and then over
// windows of n seconds.
func (c *Comparator) LoadImbalance(ctx context.Context, numWorkers, n int) (map[models.Strategy]models.AggregateSeries, error) {
	out := make(map[models.Strategy]models.AggregateSeries, len(c.strategies))
	for _, strategy := range c.strategies {
		series, err := c.imbalanceSeries(ctx, MetricLoadImbalance, strategy, numWorkers)
		if err != nil {
			return nil, err
		}
		mean, err := aggregate.MeanPerSecond(series...)
		if err != nil {
			return nil, &Error{Metric: MetricLoadImbalance, Strategy: strategy, Err: err}
		}
		windows, err := aggregate.Windowed(mean, n)
		if err != nil {
			return nil, &Error{Metric: MetricLoadImbalance, Strategy: strategy, Err: err}
		}
		out[strategy] = windows
	}
	return out, nil
}

func (c *Comparator) AverageLoadImbalance(ctx context.Context, numWorkers int) (map[models.Strategy]float64, error) {
	out := make(map[models.Strategy]float64, len(c.strategies))
	for _, strategy := range c.strategies {
		series, err := c.imbalanceSeries(ctx, MetricAverageLoadImbalance, strategy, numWorkers)
		if err != nil {
			return nil, err
		}
		mean, err := aggregate.GlobalMean(series...)
		if err != nil {
			return nil, &Error{Metric: MetricAverageLoadImbalance, Strategy: strategy, Err: err}
		}
		out[strategy] = mean
	}
	return out, nil
}
