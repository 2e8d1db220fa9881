package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStrategyLabel(t *testing.T) {
	assert.Equal(t, "CH-BL", StrategyHashingBounded.Label())
	assert.Equal(t, "custom", Strategy("custom").Label())
	assert.True(t, StrategyRandom.IsKnown())
	assert.False(t, Strategy("custom").IsKnown())
}

func TestTrialStartTimeAndCount(t *testing.T) {
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	trial := Trial{Events: []Event{
		{Timestamp: start, Kind: KindWorkerSelected},
		{Timestamp: start.Add(time.Second), Kind: KindHTTPRequestCompleted, Status: 200},
		{Timestamp: start.Add(2 * time.Second), Kind: KindHTTPRequestCompleted, Status: 500},
	}}

	ts, ok := trial.StartTime(Event.IsSuccessfulRequest)
	assert.True(t, ok)
	assert.Equal(t, start.Add(time.Second), ts)
	assert.Equal(t, 1, trial.Count(Event.IsSuccessfulRequest))
	assert.Equal(t, 1, trial.Count(Event.IsWorkerSelection))

	_, ok = Trial{}.StartTime(Event.IsSuccessfulRequest)
	assert.False(t, ok)
}

func TestTrialStartTimeIgnoresParseOrder(t *testing.T) {
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	trial := Trial{Events: []Event{
		{Timestamp: start.Add(3 * time.Second), Kind: KindHTTPRequestCompleted, Status: 200},
		{Timestamp: start.Add(time.Second), Kind: KindHTTPRequestCompleted, Status: 200},
		{Timestamp: start, Kind: KindHTTPRequestCompleted, Status: 500},
		{Timestamp: start.Add(2 * time.Second), Kind: KindHTTPRequestCompleted, Status: 200},
	}}

	ts, ok := trial.StartTime(Event.IsSuccessfulRequest)
	assert.True(t, ok)
	assert.Equal(t, start.Add(time.Second), ts)
}

func TestMaxSecond(t *testing.T) {
	assert.Equal(t, -1, PerSecondSeries{}.MaxSecond())
	assert.Equal(t, 7, PerSecondSeries{3: 1, 7: 2, 0: 0}.MaxSecond())
}

func TestEventKindString(t *testing.T) {
	assert.Equal(t, "worker_selected", KindWorkerSelected.String())
	assert.Equal(t, "unknown", EventKind(0).String())
}
