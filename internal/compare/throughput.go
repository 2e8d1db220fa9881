package compare

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/imishinist/lbeval/internal/aggregate"
	"github.com/imishinist/lbeval/internal/loader"
	"github.com/imishinist/lbeval/internal/models"
	"github.com/imishinist/lbeval/internal/stats"
	timeutils "github.com/imishinist/lbeval/internal/time"
)

type ThroughputResult struct {
	// Mean is the cumulative request count per second, averaged over trials.
	Mean models.AggregateSeries `json:"mean"`
	// Trials holds each trial's gap-filled cumulative series by trial id.
	Trials map[string]models.PerSecondSeries `json:"trials"`
}

// withSuccessfulRequests loads the trials of strategy and drops those without
// any successful request. A trial that served nothing is not counted as zero
// throughput.
func (c *Comparator) withSuccessfulRequests(ctx context.Context, metric string, strategy models.Strategy, source loader.Source) ([]models.Trial, error) {
	trials, err := c.load(ctx, metric, strategy, source)
	if err != nil {
		return nil, err
	}

	kept := make([]models.Trial, 0, len(trials))
	for _, trial := range trials {
		if _, ok := trial.StartTime(successfulRequest); !ok {
			c.logger.WithFields(logrus.Fields{"strategy": strategy, "trial": trial.ID, "file": source.String()}).
				Warn("trial has no successful requests")
			continue
		}
		kept = append(kept, trial)
	}
	if len(kept) == 0 {
		return nil, &Error{Metric: metric, Strategy: strategy, Err: stats.ErrNoUsableData}
	}
	return kept, nil
}

// Throughput counts successful requests in the balancer log cumulatively per
// second up to cutOff. Quiet seconds repeat the previous total.
func (c *Comparator) Throughput(ctx context.Context, cutOff int) (map[models.Strategy]ThroughputResult, error) {
	if cutOff < 0 {
		return nil, fmt.Errorf("cut-off must not be negative, got %d", cutOff)
	}

	out := make(map[models.Strategy]ThroughputResult, len(c.strategies))
	for _, strategy := range c.strategies {
		trials, err := c.withSuccessfulRequests(ctx, MetricThroughput, strategy, loader.SourceBalancer)
		if err != nil {
			return nil, err
		}

		result := ThroughputResult{Trials: make(map[string]models.PerSecondSeries, len(trials))}
		dense := make([]models.PerSecondSeries, 0, len(trials))
		for _, trial := range trials {
			cumulative := timeutils.CumulativePerSecond(trial.Events, successfulRequest, cutOff)
			filled := timeutils.FillForward(cumulative, cutOff)
			result.Trials[trial.ID] = filled
			dense = append(dense, filled)
		}

		result.Mean, err = aggregate.MeanPerSecond(dense...)
		if err != nil {
			return nil, &Error{Metric: MetricThroughput, Strategy: strategy, Err: err}
		}
		out[strategy] = result
	}
	return out, nil
}

// AverageThroughput returns requests per second: every successful request of
// every trial divided by the number of (trial, second) pairs that saw one.
func (c *Comparator) AverageThroughput(ctx context.Context) (map[models.Strategy]float64, error) {
	out := make(map[models.Strategy]float64, len(c.strategies))
	for _, strategy := range c.strategies {
		trials, err := c.withSuccessfulRequests(ctx, MetricAverageThroughput, strategy, loader.SourceLoadTest)
		if err != nil {
			return nil, err
		}

		counts := make([]models.PerSecondSeries, 0, len(trials))
		for _, trial := range trials {
			counts = append(counts, timeutils.CountPerSecond(trial.Events, successfulRequest))
		}
		mean, err := aggregate.GlobalMean(counts...)
		if err != nil {
			return nil, &Error{Metric: MetricAverageThroughput, Strategy: strategy, Err: err}
		}
		out[strategy] = mean
	}
	return out, nil
}

// Tier is one load phase: VirtualUsers concurrent clients for Duration seconds.
type Tier struct {
	VirtualUsers int `json:"virtual_users"`
	Duration     int `json:"duration"`
}

// Tiers pairs virtual-user counts with phase durations.
func Tiers(virtualUsers, durations []int) ([]Tier, error) {
	if len(virtualUsers) != len(durations) {
		return nil, fmt.Errorf("got %d virtual-user levels but %d durations", len(virtualUsers), len(durations))
	}
	tiers := make([]Tier, len(virtualUsers))
	for i := range virtualUsers {
		tiers[i] = Tier{VirtualUsers: virtualUsers[i], Duration: durations[i]}
	}
	return tiers, nil
}

// tierIndex places an elapsed second into consecutive phases. The last phase
// is open-ended. It returns -1 for seconds before the first phase.
func tierIndex(tiers []Tier, second int) int {
	start := 0
	for i, tier := range tiers {
		if i == len(tiers)-1 {
			if second >= start {
				return i
			}
			return -1
		}
		if second >= start && second < start+tier.Duration {
			return i
		}
		start += tier.Duration
	}
	return -1
}

// Concurrency returns, per strategy, the mean requests per second observed in
// each load phase keyed by its virtual-user count. Requests past cutOff are
// ignored. Phases with a zero duration are left out.
func (c *Comparator) Concurrency(ctx context.Context, tiers []Tier, cutOff int) (map[models.Strategy]map[int]float64, error) {
	if len(tiers) == 0 {
		return nil, fmt.Errorf("no load phases: %w", stats.ErrNoUsableData)
	}

	out := make(map[models.Strategy]map[int]float64, len(c.strategies))
	for _, strategy := range c.strategies {
		trials, err := c.withSuccessfulRequests(ctx, MetricConcurrency, strategy, loader.SourceBalancer)
		if err != nil {
			return nil, err
		}

		rps := make(map[int][]float64)
		for _, trial := range trials {
			counts := make([]int, len(tiers))
			for _, second := range timeutils.ElapsedSeconds(trial.Events, successfulRequest) {
				if second > cutOff {
					break
				}
				if i := tierIndex(tiers, second); i >= 0 {
					counts[i]++
				}
			}
			for i, tier := range tiers {
				if tier.Duration > 0 {
					rps[tier.VirtualUsers] = append(rps[tier.VirtualUsers], float64(counts[i])/float64(tier.Duration))
				}
			}
		}

		levels := make(map[int]float64, len(rps))
		for vu, values := range rps {
			mean, err := stats.Mean(values)
			if err != nil {
				return nil, &Error{Metric: MetricConcurrency, Strategy: strategy, Err: err}
			}
			levels[vu] = mean
		}
		if len(levels) == 0 {
			return nil, &Error{Metric: MetricConcurrency, Strategy: strategy, Err: stats.ErrNoUsableData}
		}
		out[strategy] = levels
	}
	return out, nil
}
