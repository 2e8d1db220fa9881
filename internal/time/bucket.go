package timeutils

import (
	"sort"

	"github.com/imishinist/lbeval/internal/models"
)

// Selector picks the events that take part in a time series.
type Selector func(models.Event) bool

// Qualifying returns the selected events ordered by timestamp. The sort is
// stable, so already ordered input keeps its parse order.
func Qualifying(events []models.Event, sel Selector) []models.Event {
	out := make([]models.Event, 0, len(events))
	for _, e := range events {
		if sel(e) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}

// ElapsedSeconds returns the elapsed second of every qualifying event,
// relative to the first one.
func ElapsedSeconds(events []models.Event, sel Selector) []int {
	qualifying := Qualifying(events, sel)
	if len(qualifying) == 0 {
		return nil
	}

	start := qualifying[0].Timestamp
	seconds := make([]int, len(qualifying))
	for i, e := range qualifying {
		seconds[i] = SecondsSince(start, e.Timestamp)
	}
	return seconds
}

// CountPerSecond counts qualifying events per elapsed second. Seconds without
// events are absent.
func CountPerSecond(events []models.Event, sel Selector) models.PerSecondSeries {
	series := make(models.PerSecondSeries)
	for _, second := range ElapsedSeconds(events, sel) {
		series[second]++
	}
	return series
}

// CumulativePerSecond records the running total of qualifying events at every
// second in which one occurred. The scan stops at the first event past cutOff;
// a negative cutOff keeps everything.
func CumulativePerSecond(events []models.Event, sel Selector, cutOff int) models.PerSecondSeries {
	series := make(models.PerSecondSeries)
	total := 0
	for _, second := range ElapsedSeconds(events, sel) {
		if cutOff >= 0 && second > cutOff {
			break
		}
		total++
		series[second] = float64(total)
	}
	return series
}

// AssignmentsPerSecond counts, per elapsed second, how many qualifying events
// went to each worker.
func AssignmentsPerSecond(events []models.Event, sel Selector) map[int]map[string]int {
	qualifying := Qualifying(events, sel)
	assignments := make(map[int]map[string]int)
	if len(qualifying) == 0 {
		return assignments
	}

	start := qualifying[0].Timestamp
	for _, e := range qualifying {
		second := SecondsSince(start, e.Timestamp)
		perWorker, ok := assignments[second]
		if !ok {
			perWorker = make(map[string]int)
			assignments[second] = perWorker
		}
		perWorker[e.WorkerID]++
	}
	return assignments
}
