package parser

import (
	"errors"
	"fmt"

	"github.com/imishinist/lbeval/internal/models"
)

// ErrMalformedRecord marks a line that looked like a known record but could not be decoded.
var ErrMalformedRecord = errors.New("malformed record")

type Format int

const (
	FormatStructuredMetric Format = iota + 1
	FormatFreeText
)

func (f Format) String() string {
	switch f {
	case FormatStructuredMetric:
		return "structured-metric"
	case FormatFreeText:
		return "free-text"
	default:
		return fmt.Sprintf("format(%d)", int(f))
	}
}

// ParseLine decodes one raw line. The boolean is false when the line is valid
// but carries no event of interest.
func ParseLine(format Format, line string) (models.Event, bool, error) {
	switch format {
	case FormatStructuredMetric:
		return ParseStructuredMetric([]byte(line))
	case FormatFreeText:
		return ParseFreeText(line)
	default:
		return models.Event{}, false, fmt.Errorf("unsupported log format: %s", format)
	}
}

func malformed(reason string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedRecord, fmt.Sprintf(reason, args...))
}
