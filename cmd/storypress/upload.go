package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"storypress/internal/config"
	"storypress/internal/history"
	"storypress/internal/story"
	"storypress/internal/uploader"
)

// uploadCmd publishes the local story collection
var uploadCmd = &cobra.Command{
	Use:   "upload [limit]",
	Short: "Publish the local story collection through the browser",
	Long: `Loads every story under the stories directory, opens one browser
session, authenticates, and publishes the stories one at a time. An
optional limit publishes only the first N stories in directory order.

Individual story failures are reported and tallied; the run continues
with the next story. Only authentication failures abort the batch.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runUpload,
}

func runUpload(cmd *cobra.Command, args []string) error {
	limit := 0
	if len(args) == 1 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 {
			return fmt.Errorf("limit must be a positive integer, got %q", args[0])
		}
		limit = n
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.ValidateUpload(); err != nil {
		return err
	}

	stories, err := story.LoadAll(cfg.StoriesDir)
	if err != nil {
		return fmt.Errorf("load stories: %w", err)
	}
	if len(stories) == 0 {
		return fmt.Errorf("no stories found under %s", cfg.StoriesDir)
	}
	logger.Info("stories loaded", zap.Int("count", len(stories)), zap.String("dir", cfg.StoriesDir))

	ctx, cancel := signalContext()
	defer cancel()

	budgets := budgetsFromConfig(cfg.Poll)

	session := uploader.NewSession(uploader.SessionConfig{
		BaseURL:    cfg.BaseURL,
		Headless:   cfg.Headless,
		BrowserBin: cfg.BrowserBin,
	}, budgets, logger)
	if err := session.Start(ctx); err != nil {
		return fmt.Errorf("start browser session: %w", err)
	}
	defer session.Close()

	gate := uploader.NewGate(session.Surface(), cfg.Email, cfg.Password, budgets, logger)
	attacher := uploader.NewAttacher(session.Surface(), budgets, logger)
	composer := uploader.NewComposer(session.Surface(), attacher, cfg.ImplicitTag, budgets, logger)
	runner := uploader.NewRunner(session, gate, composer, budgets, logger)

	sum, err := runner.Run(ctx, stories, limit)
	if err != nil {
		return err
	}

	uploader.WriteSummary(os.Stdout, sum)
	recordRun(cfg, "upload", sum)

	// Every story was attempted; per-story failures are already in the
	// summary and do not make the run itself a failure.
	return nil
}

// recordRun persists the summary; history is best-effort and never
// fails the command.
func recordRun(cfg *config.Config, kind string, sum uploader.Summary) {
	store, err := history.Open(cfg.HistoryDB)
	if err != nil {
		logger.Warn("history store unavailable", zap.Error(err))
		return
	}
	defer store.Close()

	run := history.Run{
		Kind:       kind,
		StartedAt:  sum.StartedAt,
		FinishedAt: sum.FinishedAt,
		Total:      sum.Total,
		Succeeded:  sum.Succeeded,
		Failed:     sum.Failed,
	}
	for _, res := range sum.Results {
		run.Results = append(run.Results, history.Result{
			Slug:    res.Slug,
			Outcome: string(res.Outcome),
			Reason:  res.Reason,
		})
	}

	// Recording must survive the interrupt that may have ended the run.
	id, err := store.RecordRun(context.Background(), run)
	if err != nil {
		logger.Warn("failed to record run", zap.Error(err))
		return
	}
	logger.Info("run recorded", zap.String("run_id", id))
}

// budgetsFromConfig applies any configured overrides on top of the
// defaults. Intervals are milliseconds; zero keeps the default.
func budgetsFromConfig(p config.Poll) uploader.Budgets {
	b := uploader.DefaultBudgets()
	if p.SettleMs > 0 {
		b.Settle = time.Duration(p.SettleMs) * time.Millisecond
	}
	if p.ProbeIntervalMs > 0 {
		b.Probe.Interval = time.Duration(p.ProbeIntervalMs) * time.Millisecond
	}
	if p.ProbeAttempts > 0 {
		b.Probe.Attempts = uint(p.ProbeAttempts)
	}
	if p.StandardInterval > 0 {
		b.Standard.Interval = time.Duration(p.StandardInterval) * time.Millisecond
	}
	if p.StandardAttempts > 0 {
		b.Standard.Attempts = uint(p.StandardAttempts)
	}
	if p.EditorIntervalMs > 0 {
		b.Editor.Interval = time.Duration(p.EditorIntervalMs) * time.Millisecond
	}
	if p.EditorAttempts > 0 {
		b.Editor.Attempts = uint(p.EditorAttempts)
	}
	if p.LoginIntervalMs > 0 {
		b.Login.Interval = time.Duration(p.LoginIntervalMs) * time.Millisecond
	}
	if p.LoginAttempts > 0 {
		b.Login.Attempts = uint(p.LoginAttempts)
	}
	return b
}
