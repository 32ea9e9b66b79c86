package uploader

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"storypress/internal/poll"
)

// Gate ensures an authenticated session exists before any document work
// starts. Authentication happens at most once per run; any failure here
// is fatal to the whole batch.
type Gate struct {
	surface Surface
	log     *zap.Logger
	budgets Budgets

	email    string
	password string
}

// NewGate builds the authentication gate for one session.
func NewGate(surface Surface, email, password string, budgets Budgets, log *zap.Logger) *Gate {
	return &Gate{
		surface:  surface,
		log:      log,
		budgets:  budgets,
		email:    email,
		password: password,
	}
}

// EnsureAuthenticated detects an existing session or runs the login
// sub-flow, then confirms the application is ready for document work.
func (g *Gate) EnsureAuthenticated(ctx context.Context) error {
	authed, err := g.alreadyAuthenticated()
	if err != nil {
		return &AuthError{Step: "session probe", Err: err}
	}
	if authed {
		g.log.Info("already authenticated")
	} else {
		g.log.Info("not authenticated, logging in", zap.String("email", g.email))
		if err := g.login(ctx); err != nil {
			return err
		}
		g.log.Info("authentication successful")
	}

	// The create-new affordance is the readiness signal for document
	// work; without it the batch cannot start.
	if err := poll.WaitUntil(ctx, visible(g.surface, RoleCreateNew), g.budgets.Standard); err != nil {
		return &AuthError{Step: "application readiness", Err: err}
	}
	return nil
}

func (g *Gate) alreadyAuthenticated() (bool, error) {
	ctl, err := g.surface.Find(RoleSignedIn)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return ctl.Visible()
}

// login drives the identity provider's multi-step flow: identifier,
// credential, then the authenticated marker. Each transition has a
// bounded wait; exhausting any of them fails the batch.
func (g *Gate) login(ctx context.Context) error {
	if err := g.clickWhenVisible(ctx, RoleSignIn, g.budgets.Standard); err != nil {
		return &AuthError{Step: "open login", Err: err}
	}

	if err := poll.WaitUntil(ctx, visible(g.surface, RoleIdentifier), g.budgets.Login); err != nil {
		return &AuthError{Step: "identifier prompt", Err: err}
	}
	if err := g.fill(RoleIdentifier, g.email); err != nil {
		return &AuthError{Step: "enter identifier", Err: err}
	}
	if err := g.clickWhenVisible(ctx, RoleContinue, g.budgets.Login); err != nil {
		return &AuthError{Step: "submit identifier", Err: err}
	}

	if err := poll.WaitUntil(ctx, visible(g.surface, RolePassword), g.budgets.Login); err != nil {
		return &AuthError{Step: "credential prompt", Err: err}
	}
	if err := g.fill(RolePassword, g.password); err != nil {
		return &AuthError{Step: "enter credential", Err: err}
	}
	if err := g.clickWhenVisible(ctx, RoleContinue, g.budgets.Login); err != nil {
		return &AuthError{Step: "submit credential", Err: err}
	}

	if err := poll.WaitUntil(ctx, visible(g.surface, RoleSignedIn), g.budgets.Login); err != nil {
		return &AuthError{Step: "authenticated marker", Err: err}
	}

	// The app surfaces credential problems inline rather than blocking
	// the flow, so check for an explicit error indicator too.
	if ctl, err := g.surface.Find(RoleAuthFault); err == nil {
		if vis, _ := ctl.Visible(); vis {
			text, _ := ctl.Text()
			return &AuthError{Step: "login", Err: errors.New("error reported by application: " + text)}
		}
	}
	return nil
}

func (g *Gate) clickWhenVisible(ctx context.Context, role Role, b poll.Budget) error {
	if err := poll.WaitUntil(ctx, visible(g.surface, role), b); err != nil {
		return err
	}
	ctl, err := g.surface.Find(role)
	if err != nil {
		return err
	}
	return ctl.Click()
}

func (g *Gate) fill(role Role, value string) error {
	ctl, err := g.surface.Find(role)
	if err != nil {
		return err
	}
	return ctl.Input(value)
}
