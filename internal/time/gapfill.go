package timeutils

import "github.com/imishinist/lbeval/internal/models"

// FillForward returns a dense copy of m over [0, maxSecond]. A missing second
// takes the value of the second before it; a missing second 0 is 0. Keys above
// maxSecond are dropped. A negative maxSecond means the largest key of m.
func FillForward(m models.PerSecondSeries, maxSecond int) models.PerSecondSeries {
	if maxSecond < 0 {
		maxSecond = m.MaxSecond()
	}

	dense := make(models.PerSecondSeries, maxSecond+1)
	last := 0.0
	for second := 0; second <= maxSecond; second++ {
		if v, ok := m[second]; ok {
			last = v
		}
		dense[second] = last
	}
	return dense
}
