// Package uploader drives the story application's editor UI to publish
// stories in bulk: one authenticated browser session, one document at a
// time, every step gated on an observable readiness signal.
package uploader

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storypress/internal/poll"
)

// SectionCover addresses the cover section; pages use SectionPage(n).
const SectionCover = "cover"

// SectionPage returns the section id for the page at 1-based position n.
// Section ids scope every editor lookup so adjacent sections are never
// confused.
func SectionPage(n int) string { return fmt.Sprintf("page-%d", n) }

// Role names a control on the driven UI by what it does. The concrete
// selector behind each role is an implementation detail of the Surface.
type Role string

const (
	// Landing / navigation.
	RoleCreateNew     Role = "create-new"
	RoleBackToLibrary Role = "back-to-library"
	RoleCookieAccept  Role = "cookie-accept"

	// Identity provider sub-flow.
	RoleSignIn     Role = "sign-in"
	RoleIdentifier Role = "identifier"
	RolePassword   Role = "password"
	RoleContinue   Role = "continue"
	RoleSignedIn   Role = "signed-in"
	RoleAuthFault  Role = "auth-fault"

	// Document form.
	RoleAssistDismiss Role = "assist-dismiss"
	RoleTitle         Role = "title"
	RoleTagInput      Role = "tag-input"
	RoleAddPage       Role = "add-page"
	RoleContentField  Role = "content-field"
	RoleCoachingField Role = "coaching-field"

	// Image editor sub-flow. Entry, upload, save, and discard are
	// section-scoped; the rest belong to the editor's modal dialogs.
	RoleIllustrationEntry Role = "illustration-entry"
	RoleEditorUpload      Role = "editor-upload"
	RoleEditorSave        Role = "editor-save"
	RoleEditorDiscard     Role = "editor-discard"
	RoleFileInput         Role = "file-input"
	RoleRightsConfirm     Role = "rights-confirm"
	RolePlaceBackground   Role = "place-background"
	RolePlaceObject       Role = "place-object"
	RoleDialogClose       Role = "dialog-close"
)

// ErrNotFound reports that a control is currently absent. Absence is a
// normal observation, not a failure: readiness waits poll through it.
var ErrNotFound = errors.New("uploader: control not found")

// Control is one actionable element on the driven page.
type Control interface {
	Click() error
	// Input replaces the control's current value with text.
	Input(text string) error
	Visible() (bool, error)
	// Actionable reports visible and enabled.
	Actionable() (bool, error)
	// SetFiles supplies a local file to a file-selection input. This is
	// the only place a filesystem path crosses into the driven UI.
	SetFiles(path string) error
	Text() (string, error)
}

// Surface locates controls on the driven UI. Lookups observe the
// current state and return immediately; all retry cadence lives in the
// poll budgets, never in the Surface.
type Surface interface {
	Goto(ctx context.Context, url string) error
	URL() (string, error)
	// Find locates a page-global control.
	Find(role Role) (Control, error)
	// FindIn locates a control scoped to one section id.
	FindIn(section string, role Role) (Control, error)
	// FindAll returns every instance of a repeated control, in DOM
	// order. Content and coaching fields are addressed by index.
	FindAll(role Role) ([]Control, error)
	// Press sends a key to the focused element.
	Press(key string) error
}

// Budgets centralizes every wait budget so intervals and attempt counts
// are configuration rather than scattered constants.
type Budgets struct {
	// Settle is a fixed pause after inputs that trigger client-side
	// work with no observable completion signal (tag chips, canvas
	// rendering).
	Settle time.Duration
	// Probe bounds waits for optional affordances whose absence is
	// fine (rights prompt, consent dialogs, assist dialog).
	Probe poll.Budget
	// Standard bounds waits for required form controls.
	Standard poll.Budget
	// Editor bounds the nested image editor's open/close transitions,
	// which include a server round trip.
	Editor poll.Budget
	// Login bounds identity-provider screen transitions.
	Login poll.Budget
}

// DefaultBudgets returns the budgets observed to be sufficient against
// the real application.
func DefaultBudgets() Budgets {
	return Budgets{
		Settle:   200 * time.Millisecond,
		Probe:    poll.Budget{Interval: 250 * time.Millisecond, Attempts: 8},
		Standard: poll.Budget{Interval: 250 * time.Millisecond, Attempts: 20},
		Editor:   poll.Budget{Interval: 500 * time.Millisecond, Attempts: 20},
		Login:    poll.Budget{Interval: 500 * time.Millisecond, Attempts: 30},
	}
}

// visible observes whether a page-global control is currently visible.
func visible(s Surface, role Role) poll.Predicate {
	return func() (bool, error) {
		c, err := s.Find(role)
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		return c.Visible()
	}
}

// present observes that a page-global control exists at all, visible or
// not. File inputs are hidden by the app, so presence is their only
// readiness signal.
func present(s Surface, role Role) poll.Predicate {
	return func() (bool, error) {
		_, err := s.Find(role)
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		return true, nil
	}
}

// visibleIn is visible for a section-scoped control.
func visibleIn(s Surface, section string, role Role) poll.Predicate {
	return func() (bool, error) {
		c, err := s.FindIn(section, role)
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		return c.Visible()
	}
}

// actionableIn observes whether a section-scoped control is visible and
// enabled.
func actionableIn(s Surface, section string, role Role) poll.Predicate {
	return func() (bool, error) {
		c, err := s.FindIn(section, role)
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		return c.Actionable()
	}
}

// goneIn observes that a section-scoped control is absent or hidden,
// used as a proxy for "editor closed".
func goneIn(s Surface, section string, role Role) poll.Predicate {
	return func() (bool, error) {
		c, err := s.FindIn(section, role)
		if errors.Is(err, ErrNotFound) {
			return true, nil
		}
		if err != nil {
			return false, err
		}
		vis, err := c.Visible()
		if err != nil {
			// The element can detach between lookup and observation.
			return true, nil
		}
		return !vis, nil
	}
}

// countAtLeast observes that at least n instances of a repeated control
// exist, used after "add page" to await the new page's fields.
func countAtLeast(s Surface, role Role, n int) poll.Predicate {
	return func() (bool, error) {
		list, err := s.FindAll(role)
		if err != nil {
			return false, err
		}
		return len(list) >= n, nil
	}
}

// sleep pauses for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
