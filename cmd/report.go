package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/imishinist/lbeval/internal/compare"
	"github.com/imishinist/lbeval/internal/config"
	"github.com/imishinist/lbeval/internal/mlflow"
	"github.com/imishinist/lbeval/internal/models"
	"github.com/imishinist/lbeval/internal/report"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Run every comparison",
	Long: `Run every comparison, print a summary and optionally write the full report
as JSON and publish it to an MLflow run.`,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().String("output", "", "Write the full report to this JSON file")
	reportCmd.Flags().Bool("publish", false, "Publish params and metrics to MLflow")
	reportCmd.Flags().String("run-id", "", "Existing run to publish to (default: create a run)")
	reportCmd.Flags().String("run-name", "", "Name of the created run (default: timestamp-based)")
	reportCmd.Flags().StringArray("tag", []string{}, "Tags of the created run in key=value format")
}

func runReport(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	c := newComparator(cfg, logger)

	output, _ := cmd.Flags().GetString("output")
	publish, _ := cmd.Flags().GetBool("publish")

	tiers, err := compare.Tiers(cfg.VirtualUsers, cfg.Durations)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	r, err := report.Build(ctx, c, report.Options{
		NumWorkers:  cfg.NumWorkers,
		Window:      cfg.Window,
		CutOff:      cfg.CutOff,
		Percentiles: cfg.Percentiles,
		Tiers:       tiers,
	})
	if err != nil {
		return fmt.Errorf("failed to build report: %w", err)
	}

	printSummary(r)

	if output != "" {
		file, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("failed to create file %s: %w", output, err)
		}
		defer file.Close()
		if err := r.WriteJSON(file); err != nil {
			return err
		}
		fmt.Printf("Report written to %s\n", output)
	}

	if publish {
		return publishReport(ctx, cmd, cfg, logger, r)
	}
	return nil
}

func printSummary(r *report.Report) {
	rows := make([][]string, 0, len(r.Strategies))
	for _, strategy := range r.Strategies {
		rows = append(rows, []string{
			strategy.Label(),
			formatFloat(r.AverageLatency[strategy]),
			formatFloat(r.AverageThroughput[strategy]),
			formatFloat(r.AverageLoadImbalance[strategy]),
			formatFloat(r.ColdStarts[strategy].Percent),
			formatFloat(r.SchedulingOverhead[strategy]),
		})
	}
	printTable([]string{
		"Strategy", "Latency (ms)", "Requests/s", "Average CV", "Cold starts (%)", "Overhead (ns)",
	}, rows)
	fmt.Printf("Analysis ID: %s\n", r.AnalysisID)
}

func publishReport(ctx context.Context, cmd *cobra.Command, cfg *config.Config, logger *logrus.Logger, r *report.Report) error {
	client, err := mlflow.NewClient(cfg)
	if err != nil {
		return fmt.Errorf("failed to create MLflow client: %w", err)
	}

	runID, _ := cmd.Flags().GetString("run-id")
	created := false
	if runID != "" {
		runInfo, err := client.GetRun(ctx, runID)
		if err != nil {
			return fmt.Errorf("failed to find run %s: %w", runID, err)
		}
		logger.WithFields(logrus.Fields{"run_id": runID, "status": runInfo.Status}).Debug("publishing to existing run")
	} else {
		runConfig, err := buildRunConfig(cmd, cfg, r.AnalysisID)
		if err != nil {
			return err
		}
		runInfo, err := client.CreateRun(ctx, runConfig)
		if err != nil {
			return fmt.Errorf("failed to create run: %w", err)
		}
		runID = runInfo.RunID
		created = true
	}

	log := logger.WithFields(logrus.Fields{"run_id": runID, "analysis_id": r.AnalysisID})

	publishErr := func() error {
		if err := client.LogParams(ctx, runID, configParams(cfg)); err != nil {
			return fmt.Errorf("failed to log parameters: %w", err)
		}
		metrics := r.Metrics()
		if err := client.LogBatchMetrics(ctx, runID, metrics); err != nil {
			return fmt.Errorf("failed to log metrics: %w", err)
		}
		log.WithField("metrics", len(metrics)).Info("published report")
		return nil
	}()

	if created {
		status := models.RunStatusFinished
		if publishErr != nil {
			status = models.RunStatusFailed
		}
		if err := client.EndRun(ctx, runID, status); err != nil {
			log.WithError(err).Warn("failed to end run")
		}
	}
	if publishErr != nil {
		return publishErr
	}

	fmt.Printf("Run ID: %s\n", runID)
	return nil
}

// buildRunConfig constructs RunConfig from command flags and configuration
func buildRunConfig(cmd *cobra.Command, cfg *config.Config, analysisID string) (*models.RunConfig, error) {
	runName, _ := cmd.Flags().GetString("run-name")
	tags, _ := cmd.Flags().GetStringArray("tag")

	experimentID := cfg.ExperimentID
	if experimentID == "" {
		return nil, fmt.Errorf("experiment ID must be specified via --experiment-id flag or LBEVAL_EXPERIMENT_ID environment variable")
	}

	tagMap, err := parseTags(tags)
	if err != nil {
		return nil, err
	}
	tagMap["analysis_id"] = analysisID

	runConfig := &models.RunConfig{
		ExperimentID: &experimentID,
		Tags:         tagMap,
	}
	if runName != "" {
		runConfig.RunName = &runName
	}
	return runConfig, nil
}

// parseTags parses tag strings in key=value format
func parseTags(tags []string) (map[string]string, error) {
	tagMap := make(map[string]string)
	for _, tag := range tags {
		parts := strings.SplitN(tag, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid tag format: %s (expected key=value)", tag)
		}
		tagMap[parts[0]] = parts[1]
	}
	return tagMap, nil
}

func configParams(cfg *config.Config) []models.Parameter {
	return []models.Parameter{
		{Key: "results_path", Value: cfg.ResultsPath},
		{Key: "strategies", Value: strings.Join(cfg.Strategies, ",")},
		{Key: "num_workers", Value: strconv.Itoa(cfg.NumWorkers)},
		{Key: "window", Value: strconv.Itoa(cfg.Window)},
		{Key: "cut_off", Value: strconv.Itoa(cfg.CutOff)},
		{Key: "percentiles", Value: joinFloats(cfg.Percentiles)},
		{Key: "virtual_users", Value: joinInts(cfg.VirtualUsers)},
		{Key: "durations", Value: joinInts(cfg.Durations)},
	}
}

func joinFloats(values []float64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return strings.Join(parts, ",")
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}
