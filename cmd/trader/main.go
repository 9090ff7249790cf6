package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"RLTrader/internal/agent"
	"RLTrader/internal/config"
	"RLTrader/internal/modelstore"
	"RLTrader/internal/recorder"
)

var cfgPath string

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	defaultPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		defaultPath = v
	}

	rootCmd := &cobra.Command{
		Use:   "rltrader",
		Short: "Reinforcement-learning trader for two instruments",
		Long: `rltrader learns a two-instrument trading policy from historical prices
and paper-trades it on a schedule.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", defaultPath, "Path to the YAML config file")

	rootCmd.AddCommand(trainCmd())
	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(inspectCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// newEngine builds the decision engine, restoring the saved model if any.
func newEngine(ctx context.Context, cfg *config.Config) (*agent.Engine, error) {
	store, err := modelstore.Open(cfg.Model.Store, cfg.Model.Path)
	if err != nil {
		return nil, err
	}
	preds, err := cfg.Predictors()
	if err != nil {
		return nil, err
	}
	log.Printf("[INFO] model store: %s (%s)", cfg.Model.Store, cfg.Model.Path)
	return agent.NewEngine(ctx, cfg.AgentConfig(), preds, store)
}

// openRecorder falls back to a no-op recorder when SQLite cannot be opened.
func openRecorder(cfg *config.Config) recorder.Recorder {
	if cfg.Database.SQLitePath == "" {
		return recorder.NewNoopRecorder()
	}
	sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
	if err != nil {
		log.Printf("[WARN] init sqlite recorder failed, using noop: %v", err)
		return recorder.NewNoopRecorder()
	}
	return sr
}
