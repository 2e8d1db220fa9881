package compare

import (
	"fmt"

	"github.com/imishinist/lbeval/internal/models"
)

// Error reports which comparison failed for which strategy.
type Error struct {
	Metric   string
	Strategy models.Strategy
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s for %s: %v", e.Metric, e.Strategy, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ValidationError is returned when a start-latency benchmark does not hold the
// expected number of samples.
type ValidationError struct {
	StartType string
	Benchmark string
	Expected  int
	Actual    int
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("sanity check failed for %s -> %s: expected %d elements, found %d",
		e.StartType, e.Benchmark, e.Expected, e.Actual)
}
