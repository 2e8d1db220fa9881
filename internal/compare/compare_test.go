package compare

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imishinist/lbeval/internal/loader"
	"github.com/imishinist/lbeval/internal/models"
	"github.com/imishinist/lbeval/internal/stats"
)

func metric(clock string, latency float64) string {
	return fmt.Sprintf(`{"metric":"http_req_duration","type":"Point","data":{"time":"2024-05-01T%s.000Z","value":%v,"tags":{"status":"200"}}}`, clock, latency)
}

func selected(clock, worker string, overhead int) string {
	return fmt.Sprintf("2024/05/01 %s Selected worker: http://10.0.0.1:%s in %d ns [/run/pyaes-0]", clock, worker, overhead)
}

func response(clock string) string {
	return fmt.Sprintf("2024/05/01 %s Response Status: 200 [/run/pyaes-0]", clock)
}

func writeFile(t *testing.T, path string, lines ...string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
}

// writeTrial lays out one trial: three requests at seconds 0, 0 and 1 in the
// load test; three selections and responses at seconds 0, 0 and 2 in the
// balancer log; one sandbox and two invocations in the worker log.
func writeTrial(t *testing.T, root string, strategy models.Strategy, id string, latencies [3]float64) {
	t.Helper()
	dir := filepath.Join(root, string(strategy), id)
	writeFile(t, filepath.Join(dir, "load_test.json"),
		metric("12:00:00", latencies[0]),
		`{"metric":"http_reqs","type":"Point","data":{"time":"2024-05-01T12:00:00.000Z","value":1,"tags":{"status":"200"}}}`,
		metric("12:00:00", latencies[1]),
		`{"broken":`,
		metric("12:00:01", latencies[2]),
	)
	writeFile(t, filepath.Join(dir, "balancer.log"),
		selected("12:00:00", "8081", 100),
		response("12:00:00"),
		selected("12:00:00", "8082", 300),
		response("12:00:00"),
		selected("12:00:02", "8081", 200),
		response("12:00:02"),
	)
	writeFile(t, filepath.Join(dir, "worker-8081.log"),
		"2024/05/01 12:00:00 Creating new sandbox for pyaes",
		"2024/05/01 12:00:00 LambdaFunc.Invoke pyaes",
	)
	writeFile(t, filepath.Join(dir, "worker-8082.log"),
		"2024/05/01 12:00:00 LambdaFunc.Invoke pyaes",
	)
}

func newComparator(t *testing.T, root string, strategies ...models.Strategy) *Comparator {
	t.Helper()
	logger, _ := test.NewNullLogger()
	return New(loader.New(root, 4, logger), strategies, logger)
}

func fixture(t *testing.T) *Comparator {
	t.Helper()
	root := t.TempDir()
	writeTrial(t, root, models.StrategyRandom, "1", [3]float64{10, 20, 30})
	writeTrial(t, root, models.StrategyRandom, "2", [3]float64{10, 20, 30})
	writeTrial(t, root, models.StrategyPullBased, "1", [3]float64{40, 40, 40})
	return newComparator(t, root, models.StrategyRandom, models.StrategyPullBased)
}

func TestNewDefaultsToAllStrategies(t *testing.T) {
	c := New(loader.New(t.TempDir(), 1, nil), nil, nil)
	assert.Equal(t, models.AllStrategies, c.Strategies())
}

func TestAverageLatency(t *testing.T) {
	c := fixture(t)

	got, err := c.AverageLatency(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[models.Strategy]float64{
		models.StrategyRandom:    20,
		models.StrategyPullBased: 40,
	}, got)
}

func TestLatencyCDF(t *testing.T) {
	c := fixture(t)

	got, err := c.LatencyCDF(context.Background())
	require.NoError(t, err)

	random := got[models.StrategyRandom]
	require.Len(t, random, 6)
	assert.Equal(t, models.CDFPoint{Value: 10, Fraction: 1.0 / 6}, random[0])
	assert.Equal(t, models.CDFPoint{Value: 30, Fraction: 1}, random[5])
	for i := 1; i < len(random); i++ {
		assert.GreaterOrEqual(t, random[i].Value, random[i-1].Value)
	}
}

func TestTailLatency(t *testing.T) {
	c := fixture(t)

	got, err := c.TailLatency(context.Background(), []float64{50, 90, 100})
	require.NoError(t, err)

	random := got[models.StrategyRandom]
	assert.InDelta(t, 20, random[50], 1e-9)
	assert.InDelta(t, 30, random[90], 1e-9)
	assert.InDelta(t, 30, random[100], 1e-9)
	assert.InDelta(t, 40, got[models.StrategyPullBased][90], 1e-9)
}

func TestColdStarts(t *testing.T) {
	c := fixture(t)

	got, err := c.ColdStarts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ColdStartStats{SandboxesCreated: 2, Invocations: 4, Percent: 50}, got[models.StrategyRandom])
	assert.Equal(t, ColdStartStats{SandboxesCreated: 1, Invocations: 2, Percent: 50}, got[models.StrategyPullBased])
}

func TestSchedulingOverhead(t *testing.T) {
	c := fixture(t)

	got, err := c.SchedulingOverhead(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 200.0, got[models.StrategyRandom])
}

func TestCoefficientOfVariationSeries(t *testing.T) {
	c := fixture(t)
	result, err := c.loader.LoadStrategy(context.Background(), models.StrategyRandom, loader.SourceBalancer)
	require.NoError(t, err)

	series, err := CoefficientOfVariationSeries(result.Trials[0], 2)
	require.NoError(t, err)
	assert.Equal(t, models.PerSecondSeries{0: 0, 1: 0, 2: 1}, series)

	empty, err := CoefficientOfVariationSeries(models.Trial{}, 2)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestLoadImbalance(t *testing.T) {
	c := fixture(t)

	got, err := c.LoadImbalance(context.Background(), 2, 2)
	require.NoError(t, err)
	assert.Equal(t, models.AggregateSeries{2: 0, 3: 1}, got[models.StrategyRandom])

	avg, err := c.AverageLoadImbalance(context.Background(), 2)
	require.NoError(t, err)
	assert.InDelta(t, 1.0/3, avg[models.StrategyRandom], 1e-9)
}

func TestThroughput(t *testing.T) {
	c := fixture(t)

	got, err := c.Throughput(context.Background(), 3)
	require.NoError(t, err)

	random := got[models.StrategyRandom]
	want := models.PerSecondSeries{0: 2, 1: 2, 2: 3, 3: 3}
	assert.Equal(t, want, random.Trials["1"])
	assert.Equal(t, want, random.Trials["2"])
	assert.Equal(t, models.AggregateSeries{0: 2, 1: 2, 2: 3, 3: 3}, random.Mean)

	short, err := c.Throughput(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, models.AggregateSeries{0: 2, 1: 2}, short[models.StrategyRandom].Mean)

	_, err = c.Throughput(context.Background(), -1)
	assert.Error(t, err)
}

func TestAverageThroughput(t *testing.T) {
	c := fixture(t)

	got, err := c.AverageThroughput(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1.5, got[models.StrategyRandom])
}

func TestConcurrency(t *testing.T) {
	c := fixture(t)
	tiers, err := Tiers([]int{10, 20}, []int{2, 2})
	require.NoError(t, err)

	got, err := c.Concurrency(context.Background(), tiers, 3)
	require.NoError(t, err)
	assert.Equal(t, map[int]float64{10: 1, 20: 0.5}, got[models.StrategyRandom])

	_, err = c.Concurrency(context.Background(), nil, 3)
	assert.ErrorIs(t, err, stats.ErrNoUsableData)
}

func TestTiers(t *testing.T) {
	_, err := Tiers([]int{10, 20}, []int{100})
	assert.Error(t, err)

	tiers := []Tier{{VirtualUsers: 10, Duration: 2}, {VirtualUsers: 20, Duration: 3}}
	assert.Equal(t, 0, tierIndex(tiers, 0))
	assert.Equal(t, 0, tierIndex(tiers, 1))
	assert.Equal(t, 1, tierIndex(tiers, 2))
	assert.Equal(t, 1, tierIndex(tiers, 50))
	assert.Equal(t, -1, tierIndex(tiers, -1))
}

func TestComparisonWithoutUsableTrials(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, string(models.StrategyRandom), "1", "notes.txt"), "no logs here")
	c := newComparator(t, root, models.StrategyRandom)

	_, err := c.AverageLatency(context.Background())
	require.ErrorIs(t, err, stats.ErrNoUsableData)

	var cmpErr *Error
	require.True(t, errors.As(err, &cmpErr))
	assert.Equal(t, MetricAverageLatency, cmpErr.Metric)
	assert.Equal(t, models.StrategyRandom, cmpErr.Strategy)
}

func TestComparisonWithMissingStrategy(t *testing.T) {
	c := newComparator(t, t.TempDir(), models.StrategyHashingBounded)

	_, err := c.SchedulingOverhead(context.Background())
	assert.ErrorIs(t, err, loader.ErrTrialDirectoryMissing)
}

func writeIdleTrial(t *testing.T, root string, strategy models.Strategy, id string) {
	t.Helper()
	dir := filepath.Join(root, string(strategy), id)
	writeFile(t, filepath.Join(dir, "load_test.json"),
		`{"metric":"http_req_duration","type":"Point","data":{"time":"2024-05-01T12:00:00.000Z","value":5,"tags":{"status":"503"}}}`)
	writeFile(t, filepath.Join(dir, "balancer.log"),
		selected("12:00:00", "8081", 100),
		"2024/05/01 12:00:00 Response Status: 503 [/run/pyaes-0]",
	)
}

func TestThroughputSkipsTrialsWithoutSuccessfulRequests(t *testing.T) {
	root := t.TempDir()
	writeTrial(t, root, models.StrategyRandom, "1", [3]float64{10, 20, 30})
	writeIdleTrial(t, root, models.StrategyRandom, "2")
	c := newComparator(t, root, models.StrategyRandom)

	got, err := c.Throughput(context.Background(), 3)
	require.NoError(t, err)
	random := got[models.StrategyRandom]
	assert.NotContains(t, random.Trials, "2")
	assert.Equal(t, models.AggregateSeries{0: 2, 1: 2, 2: 3, 3: 3}, random.Mean)

	tiers, err := Tiers([]int{10, 20}, []int{2, 2})
	require.NoError(t, err)
	levels, err := c.Concurrency(context.Background(), tiers, 3)
	require.NoError(t, err)
	assert.Equal(t, map[int]float64{10: 1, 20: 0.5}, levels[models.StrategyRandom])

	avg, err := c.AverageThroughput(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1.5, avg[models.StrategyRandom])
}

func TestThroughputWithoutAnySuccessfulRequest(t *testing.T) {
	root := t.TempDir()
	writeIdleTrial(t, root, models.StrategyRandom, "1")
	writeIdleTrial(t, root, models.StrategyRandom, "2")
	c := newComparator(t, root, models.StrategyRandom)

	_, err := c.Throughput(context.Background(), 3)
	assert.ErrorIs(t, err, stats.ErrNoUsableData)

	tiers, err := Tiers([]int{10}, []int{2})
	require.NoError(t, err)
	_, err = c.Concurrency(context.Background(), tiers, 3)
	assert.ErrorIs(t, err, stats.ErrNoUsableData)

	_, err = c.AverageThroughput(context.Background())
	assert.ErrorIs(t, err, stats.ErrNoUsableData)

	var cmpErr *Error
	require.True(t, errors.As(err, &cmpErr))
	assert.Equal(t, MetricAverageThroughput, cmpErr.Metric)
}

func TestCachedParsesEachSourceOnce(t *testing.T) {
	root := t.TempDir()
	writeTrial(t, root, models.StrategyRandom, "1", [3]float64{10, 20, 30})
	c := newComparator(t, root, models.StrategyRandom).Cached()

	first, err := c.Throughput(context.Background(), 3)
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(root, string(models.StrategyRandom), "1", "balancer.log")))

	second, err := c.Throughput(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	overhead, err := c.SchedulingOverhead(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 200.0, overhead[models.StrategyRandom])

	_, err = newComparator(t, root, models.StrategyRandom).Throughput(context.Background(), 3)
	assert.Error(t, err)
}
