package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"RLTrader/internal/modelstore"
	"RLTrader/internal/recorder"
)

func inspectCmd() *cobra.Command {
	var episodes int
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Show the saved model and recent training episodes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := modelstore.Open(cfg.Model.Store, cfg.Model.Path)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			res := store.Load(context.Background())
			fmt.Fprintf(out, "model:       %s (%s)\n", cfg.Model.Path, res.Status)
			switch res.Status {
			case modelstore.Loaded:
				a := res.Artifact
				fmt.Fprintf(out, "epsilon:     %.4f\n", a.Epsilon)
				fmt.Fprintf(out, "train steps: %d\n", a.TrainSteps)
				fmt.Fprintf(out, "saved at:    %s\n", a.SavedAt.Format("2006-01-02 15:04:05"))
			case modelstore.Corrupt:
				fmt.Fprintf(out, "error:       %v\n", res.Err)
			}

			if episodes <= 0 || cfg.Database.SQLitePath == "" {
				return nil
			}
			if _, err := os.Stat(cfg.Database.SQLitePath); err != nil {
				return nil
			}
			rec, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
			if err != nil {
				return err
			}
			defer rec.Close()
			recent, err := rec.RecentEpisodes(episodes)
			if err != nil {
				return err
			}
			if len(recent) > 0 {
				fmt.Fprintln(out, "\nrecent episodes:")
			}
			for _, e := range recent {
				fmt.Fprintf(out, "  %s #%d: %d steps, %.2f -> %.2f (%+.2f%%), %d trades, epsilon %.4f\n",
					shortID(e.RunID), e.Episode, e.Steps, e.InitialValue, e.FinalValue, e.Return()*100, e.Trades, e.Epsilon)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&episodes, "episodes", "n", 5, "Number of recent episodes to list")
	return cmd
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
