package mlflow

import (
	"context"
	"fmt"

	"github.com/databricks/databricks-sdk-go/service/ml"

	"github.com/imishinist/lbeval/internal/models"
)

// batchSize is the MLflow limit on metrics per LogBatch call.
const batchSize = 1000

func (c *Client) LogBatchMetrics(ctx context.Context, runID string, metrics []models.Metric) error {
	for start := 0; start < len(metrics); start += batchSize {
		end := min(start+batchSize, len(metrics))

		batch := make([]ml.Metric, 0, end-start)
		for _, m := range metrics[start:end] {
			batch = append(batch, ml.Metric{
				Key:       m.Key,
				Value:     m.Value,
				Timestamp: m.Timestamp.UnixMilli(),
				Step:      m.Step,
			})
		}

		if err := c.client.Experiments.LogBatch(ctx, ml.LogBatch{RunId: runID, Metrics: batch}); err != nil {
			return fmt.Errorf("failed to log metrics %d-%d: %w", start, end, err)
		}
	}
	return nil
}
