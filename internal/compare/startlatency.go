package compare

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/imishinist/lbeval/internal/models"
	"github.com/imishinist/lbeval/internal/stats"
)

const (
	StartTypeCold = "cold_start"
	StartTypeWarm = "warm_start"
)

type StartLatencyReport struct {
	ColdStart map[string]float64 `json:"cold_start"`
	WarmStart map[string]float64 `json:"warm_start"`
	// Factor is how many times slower a cold start is than a warm start.
	Factor float64 `json:"factor"`
}

// StartLatencyFactor checks that every benchmark holds expected samples,
// averages each benchmark (rounded half to even) and relates the mean cold
// average to the mean warm average.
func StartLatencyFactor(file *models.StartLatencyFile, expected int) (*StartLatencyReport, error) {
	cold, err := benchmarkAverages(StartTypeCold, file.ColdStart, expected)
	if err != nil {
		return nil, err
	}
	warm, err := benchmarkAverages(StartTypeWarm, file.WarmStart, expected)
	if err != nil {
		return nil, err
	}

	coldMean, err := stats.Mean(values(cold))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", StartTypeCold, err)
	}
	warmMean, err := stats.Mean(values(warm))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", StartTypeWarm, err)
	}
	factor, err := stats.Ratio(coldMean, warmMean)
	if err != nil {
		return nil, fmt.Errorf("cold/warm factor: %w", err)
	}

	return &StartLatencyReport{ColdStart: cold, WarmStart: warm, Factor: factor}, nil
}

func benchmarkAverages(startType string, benchmarks map[string][]float64, expected int) (map[string]float64, error) {
	names := make([]string, 0, len(benchmarks))
	for name := range benchmarks {
		names = append(names, name)
	}
	sort.Strings(names)

	averages := make(map[string]float64, len(names))
	for _, name := range names {
		latencies := benchmarks[name]
		if len(latencies) != expected {
			return nil, &ValidationError{
				StartType: startType,
				Benchmark: name,
				Expected:  expected,
				Actual:    len(latencies),
			}
		}
		mean, err := stats.Mean(latencies)
		if err != nil {
			return nil, fmt.Errorf("%s -> %s: %w", startType, name, err)
		}
		averages[name] = decimal.NewFromFloat(mean).RoundBank(0).InexactFloat64()
	}
	return averages, nil
}

func values(m map[string]float64) []float64 {
	out := make([]float64, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	sort.Float64s(out)
	return out
}
