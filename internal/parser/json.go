package parser

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/imishinist/lbeval/internal/models"
	timeutils "github.com/imishinist/lbeval/internal/time"
)

// metricRecord is one line of the load generator's JSON output.
type metricRecord struct {
	Metric string `json:"metric"`
	Type   string `json:"type"`
	Data   struct {
		Value float64 `json:"value"`
		Time  string  `json:"time"`
		Tags  struct {
			Status string `json:"status"`
		} `json:"tags"`
	} `json:"data"`
}

// ParseStructuredMetric accepts successful http_req_duration points and ignores
// every other well-formed record.
func ParseStructuredMetric(line []byte) (models.Event, bool, error) {
	var rec metricRecord
	if err := json.Unmarshal(line, &rec); err != nil {
		return models.Event{}, false, malformed("failed to parse JSON data: %v", err)
	}

	if rec.Metric != "http_req_duration" || rec.Type != "Point" || rec.Data.Tags.Status != "200" {
		return models.Event{}, false, nil
	}

	ts, err := timeutils.ParseMetricTime(rec.Data.Time)
	if err != nil {
		return models.Event{}, false, malformed("%v", err)
	}

	return models.Event{
		Timestamp: ts,
		Kind:      models.KindHTTPRequestCompleted,
		Status:    200,
		LatencyMs: rec.Data.Value,
	}, true, nil
}

func ParseJSONStartLatencies(reader io.Reader) (*models.StartLatencyFile, error) {
	var data models.StartLatencyFile
	decoder := json.NewDecoder(reader)

	if err := decoder.Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to parse JSON start latencies: %w", err)
	}

	return &data, nil
}
