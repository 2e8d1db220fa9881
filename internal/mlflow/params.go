package mlflow

import (
	"context"
	"fmt"

	"github.com/databricks/databricks-sdk-go/service/ml"

	"github.com/imishinist/lbeval/internal/models"
)

func (c *Client) LogParams(ctx context.Context, runID string, params []models.Parameter) error {
	for _, param := range params {
		err := c.client.Experiments.LogParam(ctx, ml.LogParam{
			RunId: runID,
			Key:   param.Key,
			Value: param.Value,
		})
		if err != nil {
			return fmt.Errorf("failed to log parameter %s: %w", param.Key, err)
		}
	}

	return nil
}
