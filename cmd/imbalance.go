package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var imbalanceCmd = &cobra.Command{
	Use:   "imbalance",
	Short: "Compare load imbalance across workers",
	Long: `Compare load imbalance from the balancer logs. Imbalance is the coefficient
of variation of requests assigned to each worker in a second.`,
}

var imbalanceSeriesCmd = &cobra.Command{
	Use:   "series",
	Short: "Windowed load imbalance over time",
	RunE:  imbalanceSeries,
}

var imbalanceAverageCmd = &cobra.Command{
	Use:   "average",
	Short: "Average load imbalance per strategy",
	RunE:  imbalanceAverage,
}

func init() {
	rootCmd.AddCommand(imbalanceCmd)
	imbalanceCmd.AddCommand(imbalanceSeriesCmd)
	imbalanceCmd.AddCommand(imbalanceAverageCmd)
}

func imbalanceSeries(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	c := newComparator(cfg, logger)

	series, err := c.LoadImbalance(cmd.Context(), cfg.NumWorkers, cfg.Window)
	if err != nil {
		return fmt.Errorf("failed to compute load imbalance: %w", err)
	}

	printSeries(c.Strategies(), "Second", series)
	return nil
}

func imbalanceAverage(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	c := newComparator(cfg, logger)

	averages, err := c.AverageLoadImbalance(cmd.Context(), cfg.NumWorkers)
	if err != nil {
		return fmt.Errorf("failed to compute load imbalance: %w", err)
	}

	printScalars(c.Strategies(), "Average CV", averages)
	return nil
}
