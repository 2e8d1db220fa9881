// Package trace turns a function invocation trace into the per-function
// probability table the load generator samples from.
package trace

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/imishinist/lbeval/internal/models"
	"github.com/imishinist/lbeval/internal/stats"
)

// FunctionColumn is the column holding the function id.
const FunctionColumn = 1

// Counts returns the number of rows per function id and the total number of
// rows. The first row is a header and is skipped.
func Counts(reader io.Reader) (map[string]int, int, error) {
	r := csv.NewReader(reader)
	r.FieldsPerRecord = -1
	r.ReuseRecord = true

	if _, err := r.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, 0, fmt.Errorf("empty trace: %w", stats.ErrNoUsableData)
		}
		return nil, 0, fmt.Errorf("failed to read trace header: %w", err)
	}

	counts := make(map[string]int)
	total := 0
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("failed to parse trace: %w", err)
		}
		if len(record) <= FunctionColumn {
			line, _ := r.FieldPos(0)
			return nil, 0, fmt.Errorf("trace line %d has %d columns, want at least %d", line, len(record), FunctionColumn+1)
		}
		counts[record[FunctionColumn]]++
		total++
	}
	return counts, total, nil
}

// Probabilities returns each function's share of all invocations.
func Probabilities(reader io.Reader) (map[string]models.FunctionProbability, error) {
	counts, total, err := Counts(reader)
	if err != nil {
		return nil, err
	}
	if total == 0 {
		return nil, fmt.Errorf("trace has no invocations: %w", stats.ErrNoUsableData)
	}

	out := make(map[string]models.FunctionProbability, len(counts))
	for fn, n := range counts {
		out[fn] = models.FunctionProbability{Probability: float64(n) / float64(total)}
	}
	return out, nil
}
