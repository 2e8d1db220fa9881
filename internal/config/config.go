package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/imishinist/lbeval/internal/models"
)

// Databricks domain suffixes for URL detection
var databricksDomains = []string{
	".cloud.databricks.com",
	".azuredatabricks.net",
	".gcp.databricks.com",
}

var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "error": true,
}

type Config struct {
	ResultsPath    string    `validate:"required"`
	Strategies     []string  `validate:"required,min=1,dive,required"`
	NumWorkers     int       `validate:"gt=0"`
	Window         int       `validate:"gt=0"`
	CutOff         int       `validate:"gte=0"`
	Percentiles    []float64 `validate:"dive,gte=0,lte=100"`
	VirtualUsers   []int     `validate:"dive,gt=0"`
	Durations      []int     `validate:"dive,gte=0"`
	ExpectedTrials int       `validate:"gt=0"`
	Parallelism    int       `validate:"gt=0"`
	LogLevel       string

	TrackingURI     string
	ExperimentID    string
	DatabricksHost  string
	DatabricksToken string

	parseErrs []error
}

func New() *Config {
	c := &Config{
		ResultsPath:     viper.GetString("results_path"),
		Strategies:      viper.GetStringSlice("strategies"),
		NumWorkers:      viper.GetInt("num_workers"),
		Window:          viper.GetInt("window"),
		CutOff:          viper.GetInt("cut_off"),
		ExpectedTrials:  viper.GetInt("expected_trials"),
		Parallelism:     viper.GetInt("parallelism"),
		LogLevel:        viper.GetString("log_level"),
		TrackingURI:     viper.GetString("tracking_uri"),
		ExperimentID:    viper.GetString("experiment_id"),
		DatabricksHost:  viper.GetString("databricks_host"),
		DatabricksToken: viper.GetString("databricks_token"),
	}

	c.Percentiles = c.floats("percentiles")
	c.VirtualUsers = c.ints("virtual_users")
	c.Durations = c.ints("durations")
	return c
}

func (c *Config) Validate() error {
	if len(c.parseErrs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(c.parseErrs...))
	}

	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	for _, s := range c.Strategies {
		if !models.Strategy(s).IsKnown() {
			return fmt.Errorf("unknown strategy: %s (valid: pull-based, hashing-bounded, least-connections, random)", s)
		}
	}

	if len(c.VirtualUsers) != len(c.Durations) {
		return fmt.Errorf("virtual users and durations differ in length: %d != %d", len(c.VirtualUsers), len(c.Durations))
	}

	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (valid: debug, info, warn, error)", c.LogLevel)
	}

	return nil
}

// StrategyList returns the configured strategies in order.
func (c *Config) StrategyList() []models.Strategy {
	out := make([]models.Strategy, len(c.Strategies))
	for i, s := range c.Strategies {
		out[i] = models.Strategy(s)
	}
	return out
}

// ValidateTracking checks the settings needed to publish to MLflow.
func (c *Config) ValidateTracking() error {
	if c.TrackingURI == "" {
		return fmt.Errorf("tracking URI is required")
	}
	return nil
}

// IsDatabricks checks if the tracking URI points to Databricks
func (c *Config) IsDatabricks() bool {
	if c.TrackingURI == "databricks" {
		return true
	}

	if strings.HasPrefix(c.TrackingURI, "databricks://") {
		return true
	}

	if strings.HasPrefix(c.TrackingURI, "https://") {
		return isDatabricksHost(hostFromURL(c.TrackingURI))
	}

	return false
}

// DatabricksProfile extracts the profile name from databricks://{profile} URI
func (c *Config) DatabricksProfile() string {
	if !strings.HasPrefix(c.TrackingURI, "databricks://") {
		return ""
	}

	profile := strings.TrimPrefix(c.TrackingURI, "databricks://")
	if idx := strings.Index(profile, "/"); idx != -1 {
		profile = profile[:idx]
	}
	return profile
}

func hostFromURL(url string) string {
	host := strings.TrimPrefix(url, "https://")
	if idx := strings.Index(host, "/"); idx != -1 {
		host = host[:idx]
	}
	return host
}

func isDatabricksHost(host string) bool {
	for _, domain := range databricksDomains {
		if strings.HasSuffix(host, domain) {
			return true
		}
	}
	return false
}

// Numeric lists are read as strings so flags, environment variables
// ("90 95 99") and config files all decode the same way.
func (c *Config) floats(key string) []float64 {
	raw := viper.GetStringSlice(key)
	out := make([]float64, 0, len(raw))
	for _, r := range raw {
		v, err := strconv.ParseFloat(strings.TrimSpace(r), 64)
		if err != nil {
			c.parseErrs = append(c.parseErrs, fmt.Errorf("%s: invalid number %q", key, r))
			continue
		}
		out = append(out, v)
	}
	return out
}

func (c *Config) ints(key string) []int {
	raw := viper.GetStringSlice(key)
	out := make([]int, 0, len(raw))
	for _, r := range raw {
		v, err := strconv.Atoi(strings.TrimSpace(r))
		if err != nil {
			c.parseErrs = append(c.parseErrs, fmt.Errorf("%s: invalid integer %q", key, r))
			continue
		}
		out = append(out, v)
	}
	return out
}
