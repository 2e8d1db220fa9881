package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imishinist/lbeval/internal/models"
)

func setDefaults(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)

	viper.Set("results_path", "results")
	viper.Set("strategies", []string{"pull-based", "random"})
	viper.Set("num_workers", 5)
	viper.Set("window", 8)
	viper.Set("cut_off", 299)
	viper.Set("percentiles", []string{"90", "99.9"})
	viper.Set("virtual_users", []string{"20", "50"})
	viper.Set("durations", []string{"100", "100"})
	viper.Set("expected_trials", 20)
	viper.Set("parallelism", 4)
	viper.Set("log_level", "info")
}

func TestNew(t *testing.T) {
	setDefaults(t)

	cfg := New()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, []float64{90, 99.9}, cfg.Percentiles)
	assert.Equal(t, []int{20, 50}, cfg.VirtualUsers)
	assert.Equal(t, []models.Strategy{models.StrategyPullBased, models.StrategyRandom}, cfg.StrategyList())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value any
	}{
		{name: "unknown strategy", key: "strategies", value: []string{"round-robin"}},
		{name: "no strategies", key: "strategies", value: []string{}},
		{name: "zero workers", key: "num_workers", value: 0},
		{name: "zero window", key: "window", value: 0},
		{name: "negative cut-off", key: "cut_off", value: -1},
		{name: "percentile above 100", key: "percentiles", value: []string{"101"}},
		{name: "non-numeric percentile", key: "percentiles", value: []string{"p99"}},
		{name: "phases differ in length", key: "durations", value: []string{"100"}},
		{name: "non-numeric duration", key: "durations", value: []string{"a", "b"}},
		{name: "bad log level", key: "log_level", value: "verbose"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setDefaults(t)
			viper.Set(tt.key, tt.value)
			assert.Error(t, New().Validate())
		})
	}
}

func TestIsDatabricks(t *testing.T) {
	tests := []struct {
		uri     string
		want    bool
		profile string
	}{
		{uri: "databricks", want: true},
		{uri: "databricks://dev", want: true, profile: "dev"},
		{uri: "databricks://dev/extra", want: true, profile: "dev"},
		{uri: "https://adb-123.azuredatabricks.net", want: true},
		{uri: "https://dbc-1.cloud.databricks.com/path", want: true},
		{uri: "http://localhost:5000", want: false},
		{uri: "https://mlflow.example.com", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			cfg := &Config{TrackingURI: tt.uri}
			assert.Equal(t, tt.want, cfg.IsDatabricks())
			assert.Equal(t, tt.profile, cfg.DatabricksProfile())
		})
	}
}

func TestValidateTracking(t *testing.T) {
	assert.Error(t, (&Config{}).ValidateTracking())
	assert.NoError(t, (&Config{TrackingURI: "http://localhost:5000"}).ValidateTracking())
}
