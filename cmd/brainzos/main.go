package main

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/brainzmonster/os/internal/api"
	"github.com/brainzmonster/os/internal/config"
	"github.com/brainzmonster/os/internal/llm"
	"github.com/brainzmonster/os/internal/monitor"
	"github.com/brainzmonster/os/internal/trainer"
)

var (
	configPath string // Path to the YAML configuration file
	logLevel   string // Log verbosity level
)

// rootCmd is the base command for the CLI.
var rootCmd = &cobra.Command{
	Use:   "brainzos",
	Short: "Console and tooling for a remote brainz OS service",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// A missing .env file is fine; environment overrides are optional.
		_ = godotenv.Load()

		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to configuration file (YAML)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "info", "log level (trace, debug, info, warn, error)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the configuration file and applies environment
// overrides. Missing files fall back to defaults, so every command
// works out of the box against a local service.
func loadConfig() config.Config {
	cfg, err := config.Load(configPath)
	if err != nil {
		logrus.Fatalf("load config: %v", err)
	}
	return cfg
}

func newClient(cfg config.Config) *api.Client {
	client, err := api.New(api.Config{BaseURL: cfg.API.BaseURL, APIKey: cfg.API.APIKey})
	if err != nil {
		logrus.Fatalf("api client: %v", err)
	}
	return client
}

func newMonitor(client *api.Client, cfg config.Config) *monitor.Monitor {
	return monitor.New(client, monitor.Options{
		BasePoll:      time.Duration(cfg.Monitor.BasePollMs) * time.Millisecond,
		MaxPoll:       time.Duration(cfg.Monitor.MaxPollMs) * time.Millisecond,
		DegradedAbove: time.Duration(cfg.Monitor.DegradedAboveMs) * time.Millisecond,
		OfflineAfter:  cfg.Monitor.OfflineAfter,
		ProbeTimeout:  time.Duration(cfg.Monitor.ProbeTimeoutSec) * time.Second,
		HistoryLimit:  cfg.Monitor.HistoryLimit,
	})
}

func newLLM(client *api.Client, cfg config.Config) *llm.Service {
	return llm.NewService(client, llm.Options{
		MaxTokens:    cfg.Query.MaxTokens,
		Temperature:  cfg.Query.Temperature,
		Retries:      cfg.Query.Retries,
		Timeout:      time.Duration(cfg.Query.TimeoutSeconds) * time.Second,
		HistoryLimit: cfg.Query.HistoryLimit,
	})
}

func newTrainer(client *api.Client, cfg config.Config) *trainer.Coordinator {
	return trainer.New(client, trainer.Options{
		MinWords:     cfg.Training.MinWords,
		Dedupe:       cfg.Training.Dedupe,
		Retries:      cfg.Training.Retries,
		Timeout:      time.Duration(cfg.Training.TimeoutSeconds) * time.Second,
		HistoryLimit: cfg.Training.HistoryLimit,
		Source:       cfg.Training.Source,
	})
}
