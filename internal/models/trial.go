package models

import "time"

type Strategy string

const (
	StrategyPullBased        Strategy = "pull-based"
	StrategyHashingBounded   Strategy = "hashing-bounded"
	StrategyLeastConnections Strategy = "least-connections"
	StrategyRandom           Strategy = "random"
)

// AllStrategies lists the compared strategies in report order.
var AllStrategies = []Strategy{
	StrategyPullBased,
	StrategyHashingBounded,
	StrategyLeastConnections,
	StrategyRandom,
}

var strategyLabels = map[Strategy]string{
	StrategyPullBased:        "Pull-Based",
	StrategyHashingBounded:   "CH-BL",
	StrategyLeastConnections: "Least Connections",
	StrategyRandom:           "Random",
}

// Label returns the display name used in reports.
func (s Strategy) Label() string {
	if label, ok := strategyLabels[s]; ok {
		return label
	}
	return string(s)
}

func (s Strategy) IsKnown() bool {
	_, ok := strategyLabels[s]
	return ok
}

// Trial holds the events of one experiment repetition, in parse order.
type Trial struct {
	Strategy  Strategy
	ID        string
	Events    []Event
	Malformed int
}

// StartTime returns the earliest timestamp among the events accepted by
// selector, regardless of parse order. ok is false when none is accepted.
func (t Trial) StartTime(selector func(Event) bool) (start time.Time, ok bool) {
	for _, e := range t.Events {
		if !selector(e) {
			continue
		}
		if !ok || e.Timestamp.Before(start) {
			start = e.Timestamp
			ok = true
		}
	}
	return start, ok
}

// Count returns the number of events accepted by selector.
func (t Trial) Count(selector func(Event) bool) int {
	n := 0
	for _, e := range t.Events {
		if selector(e) {
			n++
		}
	}
	return n
}
