package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"storypress/internal/history"
	"storypress/internal/migrate"
)

// migrateCmd copies shared stories between backend environments
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Copy community stories from one backend environment to another",
	Long: `Fetches every shared community story from the source environment and
inserts each into the target, reassigning ownership to the configured
target user. Individual insert failures are reported and the run
continues.

Source and target URLs plus service keys come from migrate.* config or
STORYPRESS_MIGRATE_* environment variables.`,
	RunE: runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.ValidateMigrate(); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	m := migrate.New(
		migrate.Env{URL: cfg.Migrate.SourceURL, ServiceKey: cfg.Migrate.SourceKey},
		migrate.Env{URL: cfg.Migrate.TargetURL, ServiceKey: cfg.Migrate.TargetKey},
		cfg.Migrate.TargetUserID,
		logger,
	)

	started := time.Now()
	sum, err := m.Run(ctx)
	if err != nil {
		return err
	}
	finished := time.Now()

	fmt.Printf("Total:    %d\n", sum.Total)
	fmt.Printf("Imported: %d\n", sum.Imported)
	fmt.Printf("Failed:   %d\n", sum.Failed)
	for i, e := range sum.Errors {
		fmt.Printf("  %d. %s: %s\n", i+1, e.Title, e.Err)
	}
	if sum.TargetCount >= 0 {
		fmt.Printf("Target now holds %d stories\n", sum.TargetCount)
	}

	run := history.Run{
		Kind:       "migrate",
		StartedAt:  started,
		FinishedAt: finished,
		Total:      sum.Total,
		Succeeded:  sum.Imported,
		Failed:     sum.Failed,
	}
	for _, e := range sum.Errors {
		run.Results = append(run.Results, history.Result{Slug: e.Title, Outcome: "failed", Reason: e.Err})
	}
	if store, err := history.Open(cfg.HistoryDB); err == nil {
		defer store.Close()
		if _, err := store.RecordRun(ctx, run); err != nil {
			logger.Warn("failed to record run", zap.Error(err))
		}
	}

	if sum.Failed > 0 {
		return fmt.Errorf("%d of %d stories failed to import", sum.Failed, sum.Total)
	}
	return nil
}
