package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/imishinist/lbeval/internal/compare"
	"github.com/imishinist/lbeval/internal/models"
	"github.com/imishinist/lbeval/internal/parser"
)

var coldStartCmd = &cobra.Command{
	Use:   "coldstart",
	Short: "Compare cold starts",
}

var coldStartRatioCmd = &cobra.Command{
	Use:   "ratio",
	Short: "Share of invocations that created a sandbox",
	Long:  "Relate sandbox creations to function invocations from the worker logs",
	RunE:  coldStartRatio,
}

var coldStartFactorCmd = &cobra.Command{
	Use:   "factor",
	Short: "How much slower cold starts are than warm starts",
	Long: `Average each benchmark of a start-latency document and relate the mean
cold-start latency to the mean warm-start latency.`,
	RunE: coldStartFactor,
}

func init() {
	rootCmd.AddCommand(coldStartCmd)
	coldStartCmd.AddCommand(coldStartRatioCmd)
	coldStartCmd.AddCommand(coldStartFactorCmd)

	coldStartFactorCmd.Flags().String("from-file", "", "Start-latency document (JSON/YAML) (required)")
	coldStartFactorCmd.MarkFlagRequired("from-file")
}

func coldStartRatio(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	c := newComparator(cfg, logger)

	results, err := c.ColdStarts(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to compare cold starts: %w", err)
	}

	rows := make([][]string, 0, len(c.Strategies()))
	for _, strategy := range c.Strategies() {
		s := results[strategy]
		rows = append(rows, []string{
			strategy.Label(),
			fmt.Sprintf("%d", s.SandboxesCreated),
			fmt.Sprintf("%d", s.Invocations),
			formatFloat(s.Percent),
		})
	}
	printTable([]string{"Strategy", "Sandboxes", "Invocations", "Cold starts (%)"}, rows)
	return nil
}

func coldStartFactor(cmd *cobra.Command, args []string) error {
	cfg, _, err := setup()
	if err != nil {
		return err
	}

	fromFile, _ := cmd.Flags().GetString("from-file")
	doc, err := readStartLatencies(fromFile)
	if err != nil {
		return err
	}

	result, err := compare.StartLatencyFactor(doc, cfg.ExpectedTrials)
	if err != nil {
		return fmt.Errorf("failed to compute start latency factor: %w", err)
	}

	rows := [][]string{}
	for _, section := range []struct {
		name     string
		averages map[string]float64
	}{
		{compare.StartTypeCold, result.ColdStart},
		{compare.StartTypeWarm, result.WarmStart},
	} {
		names := make([]string, 0, len(section.averages))
		for name := range section.averages {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			rows = append(rows, []string{section.name, name, formatFloat(section.averages[name])})
		}
	}
	printTable([]string{"Start", "Benchmark", "Average (ms)"}, rows)
	fmt.Printf("Cold starts are %.2fx slower than warm starts\n", result.Factor)
	return nil
}

func readStartLatencies(path string) (*models.StartLatencyFile, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", path, err)
	}
	defer file.Close()

	var doc *models.StartLatencyFile
	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".json":
		doc, err = parser.ParseJSONStartLatencies(file)
	case ".yaml", ".yml":
		doc, err = parser.ParseYAMLStartLatencies(file)
	default:
		return nil, fmt.Errorf("unsupported file format: %s (supported: .json, .yaml, .yml)", ext)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to parse start latency file: %w", err)
	}
	return doc, nil
}
