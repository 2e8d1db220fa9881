package mlflow

import (
	"context"
	"fmt"
	"time"

	"github.com/databricks/databricks-sdk-go/service/ml"

	"github.com/imishinist/lbeval/internal/models"
)

func (c *Client) CreateRun(ctx context.Context, config *models.RunConfig) (*models.RunInfo, error) {
	if config.ExperimentID == nil || *config.ExperimentID == "" {
		return nil, fmt.Errorf("experiment ID must be provided")
	}
	experimentID := *config.ExperimentID

	runName := "lbeval-" + time.Now().Format("2006-01-02-15-04-05")
	if config.RunName != nil {
		runName = *config.RunName
	}

	tags := make([]ml.RunTag, 0, len(config.Tags)+2)
	for key, value := range config.Tags {
		tags = append(tags, ml.RunTag{Key: key, Value: value})
	}
	tags = append(tags, ml.RunTag{Key: "mlflow.runName", Value: runName})
	if config.Description != nil {
		tags = append(tags, ml.RunTag{Key: "mlflow.note.content", Value: *config.Description})
	}

	startTime := time.Now()
	resp, err := c.client.Experiments.CreateRun(ctx, ml.CreateRun{
		ExperimentId: experimentID,
		RunName:      runName,
		StartTime:    startTime.UnixMilli(),
		Tags:         tags,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	return &models.RunInfo{
		RunID:        resp.Run.Info.RunId,
		ExperimentID: experimentID,
		RunName:      runName,
		Status:       string(models.RunStatusRunning),
		StartTime:    startTime,
		Tags:         config.Tags,
	}, nil
}

func (c *Client) EndRun(ctx context.Context, runID string, status models.RunStatus) error {
	mlStatus := ml.UpdateRunStatusFinished
	if status == models.RunStatusFailed {
		mlStatus = ml.UpdateRunStatusFailed
	}

	_, err := c.client.Experiments.UpdateRun(ctx, ml.UpdateRun{
		RunId:   runID,
		Status:  mlStatus,
		EndTime: time.Now().UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}

	return nil
}

func (c *Client) GetRun(ctx context.Context, runID string) (*models.RunInfo, error) {
	resp, err := c.client.Experiments.GetRun(ctx, ml.GetRunRequest{
		RunId: runID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	run := resp.Run
	tags := make(map[string]string)
	for _, tag := range run.Data.Tags {
		tags[tag.Key] = tag.Value
	}

	return &models.RunInfo{
		RunID:        run.Info.RunId,
		ExperimentID: run.Info.ExperimentId,
		RunName:      tags["mlflow.runName"],
		Status:       string(run.Info.Status),
		StartTime:    time.UnixMilli(run.Info.StartTime),
		Tags:         tags,
	}, nil
}
