package parser

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/imishinist/lbeval/internal/models"
)

func ParseYAMLStartLatencies(reader io.Reader) (*models.StartLatencyFile, error) {
	var data models.StartLatencyFile
	decoder := yaml.NewDecoder(reader)

	if err := decoder.Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to parse YAML start latencies: %w", err)
	}

	return &data, nil
}
