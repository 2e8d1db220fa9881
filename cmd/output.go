package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/imishinist/lbeval/internal/models"
)

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

func printTable(headers []string, rows [][]string) {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(headers...).
		Rows(rows...)
	fmt.Println(t.Render())
}

// printScalars prints one row per strategy in configured order.
func printScalars(strategies []models.Strategy, header string, values map[models.Strategy]float64) {
	rows := make([][]string, 0, len(strategies))
	for _, strategy := range strategies {
		rows = append(rows, []string{strategy.Label(), formatFloat(values[strategy])})
	}
	printTable([]string{"Strategy", header}, rows)
}

// printSeries prints one row per key with a column per strategy. Keys missing
// for a strategy are left blank.
func printSeries[S ~map[int]float64](strategies []models.Strategy, keyHeader string, series map[models.Strategy]S) {
	keySet := make(map[int]struct{})
	for _, s := range series {
		for k := range s {
			keySet[k] = struct{}{}
		}
	}
	keys := make([]int, 0, len(keySet))
	for k := range keySet {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	headers := []string{keyHeader}
	for _, strategy := range strategies {
		headers = append(headers, strategy.Label())
	}

	rows := make([][]string, 0, len(keys))
	for _, k := range keys {
		row := []string{strconv.Itoa(k)}
		for _, strategy := range strategies {
			if v, ok := series[strategy][k]; ok {
				row = append(row, formatFloat(v))
			} else {
				row = append(row, "")
			}
		}
		rows = append(rows, row)
	}
	printTable(headers, rows)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

// writeJSON writes v as indented JSON to path, or to stdout when path is empty.
func writeJSON(path string, v any) error {
	out := os.Stdout
	if path != "" {
		file, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create file %s: %w", path, err)
		}
		defer file.Close()
		out = file
	}

	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("failed to write JSON: %w", err)
	}
	return nil
}
