package mlflow

import (
	"fmt"

	"github.com/databricks/databricks-sdk-go"

	"github.com/imishinist/lbeval/internal/config"
)

type Client struct {
	client *databricks.WorkspaceClient
	config *config.Config
}

func NewClient(cfg *config.Config) (*Client, error) {
	if err := cfg.ValidateTracking(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	dc, err := workspaceConfig(cfg)
	if err != nil {
		return nil, err
	}

	client, err := databricks.NewWorkspaceClient(dc)
	if err != nil {
		return nil, fmt.Errorf("failed to create MLflow client: %w", err)
	}

	return &Client{
		client: client,
		config: cfg,
	}, nil
}

func workspaceConfig(cfg *config.Config) (*databricks.Config, error) {
	if !cfg.IsDatabricks() {
		// A plain MLflow server ignores the token but the SDK requires one.
		return &databricks.Config{
			Host:  cfg.TrackingURI,
			Token: "dummy-token-for-regular-mlflow",
		}, nil
	}

	dc := &databricks.Config{}
	switch {
	case cfg.TrackingURI == "databricks":
		dc.Host = cfg.DatabricksHost
	case cfg.DatabricksProfile() != "":
		dc.Profile = cfg.DatabricksProfile()
	default:
		dc.Host = cfg.TrackingURI
	}
	if cfg.DatabricksToken != "" {
		dc.Token = cfg.DatabricksToken
	}

	if dc.Host == "" && dc.Profile == "" {
		return nil, fmt.Errorf("Databricks host or profile is required when using Databricks MLflow. Set DATABRICKS_HOST, use a full Databricks URL as tracking URI, or specify a profile with databricks://{profile}")
	}
	return dc, nil
}
