package models

// PerSecondSeries maps a second relative to a trial's start to a value.
type PerSecondSeries map[int]float64

// AggregateSeries maps a second to the mean of that second across trials.
type AggregateSeries map[int]float64

// PercentileTable maps a percentile in [0, 100] to its value.
type PercentileTable map[float64]float64

type CDFPoint struct {
	Value    float64 `json:"value"`
	Fraction float64 `json:"fraction"`
}

// MaxSecond returns the largest key, or -1 for an empty series.
func (s PerSecondSeries) MaxSecond() int {
	max := -1
	for second := range s {
		if second > max {
			max = second
		}
	}
	return max
}
