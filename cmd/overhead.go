package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var overheadCmd = &cobra.Command{
	Use:   "overhead",
	Short: "Average scheduling overhead per strategy",
	Long:  "Average the time the balancer spent selecting a worker, in nanoseconds",
	RunE:  overhead,
}

func init() {
	rootCmd.AddCommand(overheadCmd)
}

func overhead(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	c := newComparator(cfg, logger)

	averages, err := c.SchedulingOverhead(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to compute scheduling overhead: %w", err)
	}

	printScalars(c.Strategies(), "Overhead (ns)", averages)
	return nil
}
