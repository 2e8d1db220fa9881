package loader

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imishinist/lbeval/internal/models"
)

const metricLine = `{"metric":"http_req_duration","type":"Point","data":{"time":"2024-05-01T12:00:00Z","value":10,"tags":{"status":"200"}}}`

func writeFile(t *testing.T, path string, lines ...string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
}

func newTestLoader(t *testing.T, root string) (*Loader, *test.Hook) {
	t.Helper()
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	return New(root, 2, logger), hook
}

func TestListTrials(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "random", "2", "balancer.log"), "")
	writeFile(t, filepath.Join(root, "random", "1", "balancer.log"), "")
	writeFile(t, filepath.Join(root, "random", "notes.txt"), "ignored")

	l, _ := newTestLoader(t, root)
	ids, err := l.ListTrials(models.StrategyRandom)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, ids)

	_, err = l.ListTrials(models.StrategyPullBased)
	assert.ErrorIs(t, err, ErrTrialDirectoryMissing)
}

func TestLoadStrategySkipsMalformedLines(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "random", "1", "load_test.json"),
		metricLine,
		`{"metric":"http_req_duration",`,
		"",
		metricLine,
		"not json at all",
		metricLine,
	)

	l, hook := newTestLoader(t, root)
	result, err := l.LoadStrategy(context.Background(), models.StrategyRandom, SourceLoadTest)
	require.NoError(t, err)
	require.Len(t, result.Trials, 1)

	trial := result.Trials[0]
	assert.Equal(t, "1", trial.ID)
	assert.Len(t, trial.Events, 3)
	assert.Equal(t, 2, trial.Malformed)
	assert.Zero(t, result.ExcludedCount())

	var warned bool
	for _, entry := range hook.AllEntries() {
		if entry.Level == logrus.WarnLevel && entry.Message == "skipped malformed lines" {
			warned = true
		}
	}
	assert.True(t, warned)
}

func TestLoadStrategyExcludesTrialsWithoutLogs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "random", "1", "balancer.log"),
		"2024/05/01 12:00:00 Response Status: 200 [/run/a]")
	writeFile(t, filepath.Join(root, "random", "2", "load_test.json"), metricLine)
	writeFile(t, filepath.Join(root, "random", "3", "balancer.log"),
		"2024/05/01 12:00:00 Response Status: 200 [/run/a]")

	l, _ := newTestLoader(t, root)
	result, err := l.LoadStrategy(context.Background(), models.StrategyRandom, SourceBalancer)
	require.NoError(t, err)

	require.Len(t, result.Trials, 2)
	assert.Equal(t, "1", result.Trials[0].ID)
	assert.Equal(t, "3", result.Trials[1].ID)
	assert.Equal(t, 1, result.ExcludedCount())
	assert.ErrorIs(t, result.Excluded, ErrLogFileMissing)
}

func TestLoadStrategyMissingDirectory(t *testing.T) {
	l, _ := newTestLoader(t, t.TempDir())
	_, err := l.LoadStrategy(context.Background(), models.StrategyRandom, SourceBalancer)
	assert.ErrorIs(t, err, ErrTrialDirectoryMissing)
}

func TestLoadStrategyCancelled(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "random", "1", "balancer.log"), "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	l, _ := newTestLoader(t, root)
	_, err := l.LoadStrategy(ctx, models.StrategyRandom, SourceBalancer)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoadTrialMergesWorkerFiles(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "random", "1")
	writeFile(t, filepath.Join(dir, "worker-1.log"),
		"2024/05/01 12:00:00 Creating new sandbox for pyaes",
		"2024/05/01 12:00:00 LambdaFunc.Invoke pyaes")
	writeFile(t, filepath.Join(dir, "worker-2.log"),
		"2024/05/01 12:00:01 LambdaFunc.Invoke pyaes")
	writeFile(t, filepath.Join(dir, "balancer.log"),
		"2024/05/01 12:00:01 Creating new sandbox for pyaes")

	l, _ := newTestLoader(t, root)
	trial, err := l.LoadTrial(context.Background(), models.StrategyRandom, "1", SourceWorkers)
	require.NoError(t, err)

	assert.Equal(t, 1, trial.Count(func(e models.Event) bool { return e.Kind == models.KindSandboxCreated }))
	assert.Equal(t, 2, trial.Count(func(e models.Event) bool { return e.Kind == models.KindFunctionInvoked }))

	_, err = l.LoadTrial(context.Background(), models.StrategyRandom, "missing", SourceWorkers)
	assert.ErrorIs(t, err, ErrLogFileMissing)
}
