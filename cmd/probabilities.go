package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/imishinist/lbeval/internal/trace"
)

var probabilitiesCmd = &cobra.Command{
	Use:   "probabilities",
	Short: "Function probabilities from an invocation trace",
	Long: `Count how often each function appears in an invocation trace (CSV with a
header row, function id in the second column) and write the relative
frequencies as JSON.`,
	RunE: probabilities,
}

func init() {
	rootCmd.AddCommand(probabilitiesCmd)

	probabilitiesCmd.Flags().String("trace", "", "Invocation trace CSV (required)")
	probabilitiesCmd.Flags().String("output", "", "Write probabilities to this file instead of stdout")
	probabilitiesCmd.MarkFlagRequired("trace")
}

func probabilities(cmd *cobra.Command, args []string) error {
	if _, _, err := setup(); err != nil {
		return err
	}

	tracePath, _ := cmd.Flags().GetString("trace")
	output, _ := cmd.Flags().GetString("output")

	file, err := os.Open(tracePath)
	if err != nil {
		return fmt.Errorf("failed to open file %s: %w", tracePath, err)
	}
	defer file.Close()

	result, err := trace.Probabilities(file)
	if err != nil {
		return fmt.Errorf("failed to compute probabilities: %w", err)
	}

	return writeJSON(output, result)
}
