package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"storypress/internal/history"
)

var runsLimit int

// runsCmd lists recorded run summaries
var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Show recent upload and migration runs",
	RunE:  runRuns,
}

func init() {
	runsCmd.Flags().IntVarP(&runsLimit, "limit", "n", 10, "Number of runs to show")
}

func runRuns(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := history.Open(cfg.HistoryDB)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer store.Close()

	ctx, cancel := signalContext()
	defer cancel()

	runs, err := store.RecentRuns(ctx, runsLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No recorded runs.")
		return nil
	}

	for _, r := range runs {
		fmt.Printf("%s  %-8s %s  total=%d succeeded=%d failed=%d\n",
			r.StartedAt.Local().Format("2006-01-02 15:04"),
			r.Kind, r.ID[:8], r.Total, r.Succeeded, r.Failed)
		for _, res := range r.Results {
			if res.Outcome == "failed" {
				fmt.Printf("    failed: %s: %s\n", res.Slug, res.Reason)
			}
		}
	}
	return nil
}
