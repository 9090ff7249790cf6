package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"RLTrader/internal/agent"
	"RLTrader/internal/collector"
	"RLTrader/internal/evaluator"
)

func trainCmd() *cobra.Command {
	var episodes int
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Learn from historical prices over several episodes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if episodes > 0 {
				cfg.Training.Episodes = episodes
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			market, err := collector.LoadHistory(cfg.Data.Pattern)
			if err != nil {
				return fmt.Errorf("load history: %w", err)
			}
			for _, name := range []string{cfg.Instruments.A.Name, cfg.Instruments.B.Name} {
				if _, ok := market.Series[name]; !ok {
					return fmt.Errorf("no history for instrument %s in %s", name, cfg.Data.Pattern)
				}
			}
			log.Printf("[INFO] history loaded: %d bars", market.Len())

			engine, err := newEngine(ctx, cfg)
			if err != nil {
				return err
			}
			rec := openRecorder(cfg)
			defer rec.Close()

			results, runErr := evaluator.RunEpisodes(ctx, agent.NewTrader(engine), market,
				cfg.Training.InitialCash, cfg.Training.Episodes,
				evaluator.Options{WarmUp: cfg.Training.WarmUp, Recorder: rec})

			// Keep what was learned even when training stops early.
			if err := engine.Save(context.Background()); err != nil {
				return fmt.Errorf("save model: %w", err)
			}
			log.Printf("[INFO] model saved: epsilon: %.4f, train steps: %d, episodes: %d",
				engine.Epsilon(), engine.TrainSteps(), len(results))
			return runErr
		},
	}
	cmd.Flags().IntVarP(&episodes, "episodes", "e", 0, "Number of episodes (overrides training.episodes)")
	return cmd
}
