package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/imishinist/lbeval/internal/compare"
	"github.com/imishinist/lbeval/internal/config"
	"github.com/imishinist/lbeval/internal/loader"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "lbeval",
	Short: "Load balancer evaluation tool",
	Long: `A command line tool that compares load-balancing strategies from
benchmark trial logs. Reports latency, load imbalance, throughput,
cold starts and scheduling overhead per strategy.`,
	SilenceUsage: true,
}

func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "Config file (YAML)")
	flags.String("results-path", "", "Root of the results tree (overrides LBEVAL_RESULTS_PATH)")
	flags.StringSlice("strategies", nil, "Strategies to compare")
	flags.Int("num-workers", 0, "Number of workers behind the balancer")
	flags.Int("window", 0, "Window size in seconds for load imbalance")
	flags.Int("cut-off", 0, "Last second counted for throughput")
	flags.StringSlice("percentiles", nil, "Tail latency percentiles")
	flags.StringSlice("virtual-users", nil, "Virtual users per load phase")
	flags.StringSlice("durations", nil, "Duration in seconds per load phase")
	flags.Int("expected-trials", 0, "Samples expected per start-latency benchmark")
	flags.Int("parallelism", 0, "Trials parsed concurrently")
	flags.String("log-level", "", "Log level (debug/info/warn/error)")
	flags.String("tracking-uri", "", "MLflow tracking URI (overrides LBEVAL_TRACKING_URI)")
	flags.String("experiment-id", "", "Experiment ID (overrides LBEVAL_EXPERIMENT_ID)")

	for _, key := range []string{
		"results_path", "strategies", "num_workers", "window", "cut_off", "percentiles",
		"virtual_users", "durations", "expected_trials", "parallelism", "log_level",
		"tracking_uri", "experiment_id",
	} {
		viper.BindPFlag(key, flags.Lookup(flagName(key)))
	}
}

func initConfig() {
	// Environment variables
	viper.SetEnvPrefix("LBEVAL")
	viper.AutomaticEnv()

	// Also bind Databricks environment variables
	viper.BindEnv("databricks_host", "DATABRICKS_HOST")
	viper.BindEnv("databricks_token", "DATABRICKS_TOKEN")

	// Set defaults
	viper.SetDefault("results_path", "results")
	viper.SetDefault("strategies", []string{"pull-based", "hashing-bounded", "least-connections", "random"})
	viper.SetDefault("num_workers", 5)
	viper.SetDefault("window", 8)
	viper.SetDefault("cut_off", 299)
	viper.SetDefault("percentiles", []string{"90", "95", "99"})
	viper.SetDefault("virtual_users", []string{"20", "50", "100"})
	viper.SetDefault("durations", []string{"100", "100", "100"})
	viper.SetDefault("expected_trials", 20)
	viper.SetDefault("parallelism", 8)
	viper.SetDefault("log_level", "info")

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			checkError(fmt.Errorf("failed to read config %s: %w", cfgFile, err))
		}
	}
}

// setup snapshots and validates the configuration and builds the logger
// every command logs through.
func setup() (*config.Config, *logrus.Logger, error) {
	cfg := config.New()
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid log level: %w", err)
	}
	logger.SetLevel(level)

	return cfg, logger, nil
}

func newComparator(cfg *config.Config, logger *logrus.Logger) *compare.Comparator {
	l := loader.New(cfg.ResultsPath, cfg.Parallelism, logger)
	return compare.New(l, cfg.StrategyList(), logger)
}

func flagName(key string) string {
	return strings.ReplaceAll(key, "_", "-")
}

func checkError(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
