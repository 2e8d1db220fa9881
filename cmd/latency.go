package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/imishinist/lbeval/internal/report"
)

var latencyCmd = &cobra.Command{
	Use:   "latency",
	Short: "Compare request latency",
	Long:  "Compare latency of successful requests from the load-test logs",
}

var latencyAverageCmd = &cobra.Command{
	Use:   "average",
	Short: "Average latency per strategy",
	RunE:  latencyAverage,
}

var latencyCDFCmd = &cobra.Command{
	Use:   "cdf",
	Short: "Empirical latency CDF per strategy",
	Long:  "Write the empirical CDF of request latency per strategy as JSON",
	RunE:  latencyCDF,
}

var latencyTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Tail latency percentiles per strategy",
	RunE:  latencyTail,
}

func init() {
	rootCmd.AddCommand(latencyCmd)
	latencyCmd.AddCommand(latencyAverageCmd)
	latencyCmd.AddCommand(latencyCDFCmd)
	latencyCmd.AddCommand(latencyTailCmd)

	latencyCDFCmd.Flags().String("output", "", "Write the CDF to this file instead of stdout")
}

func latencyAverage(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	c := newComparator(cfg, logger)

	averages, err := c.AverageLatency(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to compare latency: %w", err)
	}

	printScalars(c.Strategies(), "Average latency (ms)", averages)
	return nil
}

func latencyCDF(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	c := newComparator(cfg, logger)

	output, _ := cmd.Flags().GetString("output")

	cdf, err := c.LatencyCDF(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to compute latency CDF: %w", err)
	}

	return writeJSON(output, cdf)
}

func latencyTail(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	c := newComparator(cfg, logger)

	tables, err := c.TailLatency(cmd.Context(), cfg.Percentiles)
	if err != nil {
		return fmt.Errorf("failed to compute tail latency: %w", err)
	}

	headers := []string{"Strategy"}
	for _, p := range cfg.Percentiles {
		headers = append(headers, report.PercentileLabel(p)+" (ms)")
	}
	rows := make([][]string, 0, len(c.Strategies()))
	for _, strategy := range c.Strategies() {
		row := []string{strategy.Label()}
		for _, p := range cfg.Percentiles {
			row = append(row, formatFloat(tables[strategy][p]))
		}
		rows = append(rows, row)
	}
	printTable(headers, rows)
	return nil
}
