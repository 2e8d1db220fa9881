package models

// StartLatencyFile holds per-benchmark latency samples for cold and warm starts.
type StartLatencyFile struct {
	ColdStart map[string][]float64 `json:"cold_start" yaml:"cold_start"`
	WarmStart map[string][]float64 `json:"warm_start" yaml:"warm_start"`
}

type FunctionProbability struct {
	Probability float64 `json:"probability"`
}
