package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/imishinist/lbeval/internal/compare"
)

var throughputCmd = &cobra.Command{
	Use:   "throughput",
	Short: "Compare request throughput",
}

var throughputCumulativeCmd = &cobra.Command{
	Use:   "cumulative",
	Short: "Cumulative successful requests per second",
	Long: `Count successful requests in the balancer logs cumulatively per second up
to the cut-off and print each trial's total.`,
	RunE: throughputCumulative,
}

var throughputAverageCmd = &cobra.Command{
	Use:   "average",
	Short: "Average requests per second per strategy",
	RunE:  throughputAverage,
}

var throughputConcurrencyCmd = &cobra.Command{
	Use:   "concurrency",
	Short: "Requests per second at each virtual-user level",
	RunE:  throughputConcurrency,
}

func init() {
	rootCmd.AddCommand(throughputCmd)
	throughputCmd.AddCommand(throughputCumulativeCmd)
	throughputCmd.AddCommand(throughputAverageCmd)
	throughputCmd.AddCommand(throughputConcurrencyCmd)

	throughputCumulativeCmd.Flags().String("output", "", "Also write the per-second series to this JSON file")
}

func throughputCumulative(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	c := newComparator(cfg, logger)

	output, _ := cmd.Flags().GetString("output")

	results, err := c.Throughput(cmd.Context(), cfg.CutOff)
	if err != nil {
		return fmt.Errorf("failed to compute throughput: %w", err)
	}

	rows := [][]string{}
	for _, strategy := range c.Strategies() {
		result := results[strategy]
		ids := make([]string, 0, len(result.Trials))
		for id := range result.Trials {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		for _, id := range ids {
			rows = append(rows, []string{strategy.Label(), id, formatFloat(result.Trials[id][cfg.CutOff])})
		}
		rows = append(rows, []string{strategy.Label(), "mean", formatFloat(result.Mean[cfg.CutOff])})
	}
	printTable([]string{"Strategy", "Trial", fmt.Sprintf("Requests at %ds", cfg.CutOff)}, rows)

	if output != "" {
		if err := writeJSON(output, results); err != nil {
			return err
		}
		fmt.Printf("Throughput series written to %s\n", output)
	}
	return nil
}

func throughputAverage(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	c := newComparator(cfg, logger)

	averages, err := c.AverageThroughput(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to compute throughput: %w", err)
	}

	printScalars(c.Strategies(), "Requests/s", averages)
	return nil
}

func throughputConcurrency(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	c := newComparator(cfg, logger)

	tiers, err := compare.Tiers(cfg.VirtualUsers, cfg.Durations)
	if err != nil {
		return err
	}

	levels, err := c.Concurrency(cmd.Context(), tiers, cfg.CutOff)
	if err != nil {
		return fmt.Errorf("failed to compute concurrency: %w", err)
	}

	printSeries(c.Strategies(), "Virtual users", levels)
	return nil
}
