package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"RLTrader/internal/agent"
	"RLTrader/internal/collector"
	"RLTrader/internal/notifier"
	"RLTrader/internal/portfolio"
	"RLTrader/internal/scheduler"
)

func runCmd() *cobra.Command {
	var now bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Paper-trade on a cron schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.ValidateLive(); err != nil {
				return fmt.Errorf("config validation: %w", err)
			}
			log.Println("[INFO] RLTrader starting...")

			// Context for graceful shutdown
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			fetcher := collector.NewYahooFetcher(cfg.Data.BaseURL, cfg.Proxy)
			log.Printf("[INFO] data source: %s", fetcher.Name())
			col := collector.NewCollector(fetcher, cfg.Data.HistoryDays,
				collector.Instrument{Name: cfg.Instruments.A.Name, Symbol: cfg.Instruments.A.Symbol},
				collector.Instrument{Name: cfg.Instruments.B.Name, Symbol: cfg.Instruments.B.Symbol})

			ledger, err := portfolio.NewManager(cfg.Portfolio.StateFile, "paper", cfg.Portfolio.InitialCash)
			if err != nil {
				return fmt.Errorf("init portfolio: %w", err)
			}

			engine, err := newEngine(ctx, cfg)
			if err != nil {
				return err
			}
			rec := openRecorder(cfg)
			defer rec.Close()

			var tn *notifier.TelegramNotifier
			var sender scheduler.Sender
			if cfg.Telegram.Enabled {
				tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
				sender = tn
			}

			sched := scheduler.NewScheduler(ctx, col, ledger, agent.NewTrader(engine), sender, rec)
			if err := sched.RegisterAll(cfg.Schedule.TradeCron, cfg.Schedule.SaveCron); err != nil {
				return fmt.Errorf("register cron tasks: %w", err)
			}
			sched.Start()

			if tn != nil {
				go tn.StartPolling(ctx, sched.HandleCommand)
				log.Println("[INFO] telegram polling started")
			}

			if now || os.Getenv("RUN_ON_START") == "true" {
				log.Println("[INFO] executing trade tick now")
				go sched.HandleCommand("/trade")
			}

			log.Println("[INFO] RLTrader is running. Press Ctrl+C to stop.")

			// Wait for shutdown signal
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			<-sigCh

			log.Println("[INFO] shutdown signal received, stopping...")
			sched.Stop()
			cancel()
			if err := engine.Save(context.Background()); err != nil {
				log.Printf("[ERROR] save model on shutdown: %v", err)
			}
			log.Println("[INFO] RLTrader stopped")
			return nil
		},
	}
	cmd.Flags().BoolVar(&now, "now", false, "Run one trade tick immediately")
	return cmd
}
