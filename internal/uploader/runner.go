package uploader

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"storypress/internal/poll"
	"storypress/internal/story"
)

// Outcome classifies one document attempt.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
)

// Result is the per-document outcome.
type Result struct {
	Slug    string
	Outcome Outcome
	Reason  string
}

// Summary aggregates a whole run. Succeeded+Failed always equals Total:
// batch completion means every input document was attempted, not that
// every document succeeded.
type Summary struct {
	StartedAt  time.Time
	FinishedAt time.Time
	Total      int
	Succeeded  int
	Failed     int
	Results    []Result
}

// Landing is the slice of the session the runner needs for recovery
// navigation.
type Landing interface {
	Home(ctx context.Context) error
	Surface() Surface
}

// Runner owns the session and the summary, iterating the batch with
// full serialization: document n+1 never starts before document n's
// attempt and recovery complete.
type Runner struct {
	session  Landing
	gate     *Gate
	composer *Composer
	log      *zap.Logger
	budgets  Budgets
}

// NewRunner wires the collaborators for one batch.
func NewRunner(session Landing, gate *Gate, composer *Composer, budgets Budgets, log *zap.Logger) *Runner {
	return &Runner{
		session:  session,
		gate:     gate,
		composer: composer,
		log:      log,
		budgets:  budgets,
	}
}

// Run attempts every story, at most limit of them when limit > 0 (a
// deterministic prefix of the input order). Only authentication and
// initial-readiness failures abort the batch; per-document failures are
// tallied and followed by recovery navigation.
func (r *Runner) Run(ctx context.Context, stories []*story.Story, limit int) (Summary, error) {
	if limit > 0 && limit < len(stories) {
		stories = stories[:limit]
	}

	sum := Summary{StartedAt: time.Now(), Total: len(stories)}

	if err := r.gate.EnsureAuthenticated(ctx); err != nil {
		return sum, err
	}

	r.log.Info("starting batch", zap.Int("stories", len(stories)))

	for i, st := range stories {
		r.log.Info("processing story",
			zap.Int("index", i+1),
			zap.Int("total", len(stories)),
			zap.String("story", st.Slug))

		if err := r.attempt(ctx, st); err != nil {
			sum.Failed++
			sum.Results = append(sum.Results, Result{Slug: st.Slug, Outcome: OutcomeFailed, Reason: err.Error()})
			r.log.Error("story failed", zap.String("story", st.Slug), zap.Error(err))
		} else {
			sum.Succeeded++
			sum.Results = append(sum.Results, Result{Slug: st.Slug, Outcome: OutcomeSucceeded})
		}

		// Recovery navigation restores the shared session to its
		// known-ready baseline. Failing to recover is logged but never
		// stops the batch.
		if err := r.recoverToLanding(ctx); err != nil {
			r.log.Warn("recovery navigation failed, continuing", zap.Error(err))
		}
	}

	sum.FinishedAt = time.Now()
	return sum, nil
}

// attempt is the isolation boundary around one document: any error or
// panic is converted to a per-document failure.
func (r *Runner) attempt(ctx context.Context, st *story.Story) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%s: panic during composition: %v", st.Slug, p)
		}
	}()
	return r.composer.Compose(ctx, st)
}

// recoverToLanding returns to the collection's landing view and
// confirms the create-new affordance before the next document starts.
func (r *Runner) recoverToLanding(ctx context.Context) error {
	if err := r.session.Home(ctx); err != nil {
		return err
	}
	if err := poll.WaitUntil(ctx, visible(r.session.Surface(), RoleCreateNew), r.budgets.Standard); err != nil {
		return fmt.Errorf("create-new affordance not confirmed: %w", err)
	}
	return nil
}
