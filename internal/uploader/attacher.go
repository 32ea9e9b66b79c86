package uploader

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"storypress/internal/poll"
)

// AttachOutcome is the terminal state of one image attachment.
type AttachOutcome int

const (
	// AttachClosed means the image was uploaded and the editor closed.
	AttachClosed AttachOutcome = iota
	// AttachSkipped means the section's entry control never became
	// actionable; the section simply has no editable illustration.
	AttachSkipped
	// AttachFailed means a step timed out or errored mid-flow.
	AttachFailed
)

func (o AttachOutcome) String() string {
	switch o {
	case AttachClosed:
		return "closed"
	case AttachSkipped:
		return "skipped"
	default:
		return "failed"
	}
}

// AttachResult is the value returned to the composer. Attachment
// failures never propagate as errors: a document can succeed with
// sections skipped or failed.
type AttachResult struct {
	Outcome AttachOutcome
	Reason  string
}

// attachState enumerates the editor sub-flow's states.
type attachState int

const (
	stateIdle attachState = iota
	stateOpeningEditor
	stateAwaitingEditorReady
	stateUploadingFile
	stateResolvingRightsPrompt
	stateChoosingPlacement
	stateSavingSection
	stateClosed
	stateSkipped
	stateFailed
)

// Attacher runs the nested image-editor sub-flow for one section at a
// time: open the editor, upload the file, resolve the optional rights
// prompt, choose placement, save, and wait for the editor to close.
type Attacher struct {
	surface Surface
	log     *zap.Logger
	budgets Budgets
}

// NewAttacher builds an attacher bound to one surface.
func NewAttacher(surface Surface, budgets Budgets, log *zap.Logger) *Attacher {
	return &Attacher{surface: surface, budgets: budgets, log: log}
}

// Attach drives the sub-flow for the given section and image path. It
// never returns an error: every outcome is expressed as AttachResult.
func (a *Attacher) Attach(ctx context.Context, section, imagePath string) AttachResult {
	log := a.log.With(zap.String("section", section))
	log.Debug("attaching image", zap.String("image", imagePath))

	st := stateIdle
	reason := ""
	for {
		switch st {
		case stateClosed:
			log.Debug("image attached")
			return AttachResult{Outcome: AttachClosed}
		case stateSkipped:
			log.Warn("section skipped", zap.String("reason", reason))
			return AttachResult{Outcome: AttachSkipped, Reason: reason}
		case stateFailed:
			log.Warn("image attachment failed", zap.String("reason", reason))
			a.cleanup(ctx, section, log)
			return AttachResult{Outcome: AttachFailed, Reason: reason}
		default:
			st, reason = a.step(ctx, st, section, imagePath)
		}
	}
}

// step performs the work of one state and returns the next. Terminal
// states carry a reason; non-terminal transitions leave it empty.
func (a *Attacher) step(ctx context.Context, st attachState, section, imagePath string) (attachState, string) {
	switch st {
	case stateIdle:
		// The entry control is located by section id, never by a
		// page-global text search, so adjacent sections cannot alias.
		err := poll.WaitUntil(ctx, actionableIn(a.surface, section, RoleIllustrationEntry), a.budgets.Standard)
		if errors.Is(err, poll.ErrExhausted) {
			return stateSkipped, "illustration control never became actionable"
		}
		if err != nil {
			return stateFailed, fmt.Sprintf("probing illustration control: %v", err)
		}
		return stateOpeningEditor, ""

	case stateOpeningEditor:
		ctl, err := a.surface.FindIn(section, RoleIllustrationEntry)
		if err != nil {
			return stateFailed, fmt.Sprintf("illustration control vanished: %v", err)
		}
		if err := ctl.Click(); err != nil {
			return stateFailed, fmt.Sprintf("open editor: %v", err)
		}
		return stateAwaitingEditorReady, ""

	case stateAwaitingEditorReady:
		// The editor's own section-scoped upload control is its
		// readiness marker.
		if err := poll.WaitUntil(ctx, visibleIn(a.surface, section, RoleEditorUpload), a.budgets.Editor); err != nil {
			return stateFailed, "editor did not become ready"
		}
		return stateUploadingFile, ""

	case stateUploadingFile:
		ctl, err := a.surface.FindIn(section, RoleEditorUpload)
		if err != nil {
			return stateFailed, fmt.Sprintf("upload control vanished: %v", err)
		}
		if err := ctl.Click(); err != nil {
			return stateFailed, fmt.Sprintf("open upload dialog: %v", err)
		}
		// The file input stays hidden; presence is its readiness
		// signal and the one step that takes a filesystem path.
		if err := poll.WaitUntil(ctx, present(a.surface, RoleFileInput), a.budgets.Standard); err != nil {
			return stateFailed, "file input did not appear"
		}
		in, err := a.surface.Find(RoleFileInput)
		if err != nil {
			return stateFailed, fmt.Sprintf("file input vanished: %v", err)
		}
		if err := in.SetFiles(imagePath); err != nil {
			return stateFailed, fmt.Sprintf("supply file: %v", err)
		}
		return stateResolvingRightsPrompt, ""

	case stateResolvingRightsPrompt:
		// The usage-rights confirmation only appears the first time;
		// its absence is not an error.
		err := poll.WaitUntil(ctx, visible(a.surface, RoleRightsConfirm), a.budgets.Probe)
		if errors.Is(err, poll.ErrExhausted) {
			return stateChoosingPlacement, ""
		}
		if err != nil {
			return stateFailed, fmt.Sprintf("probing rights prompt: %v", err)
		}
		if ctl, err := a.surface.Find(RoleRightsConfirm); err == nil {
			if err := ctl.Click(); err != nil {
				return stateFailed, fmt.Sprintf("confirm rights: %v", err)
			}
			a.log.Debug("usage rights confirmed", zap.String("section", section))
		}
		return stateChoosingPlacement, ""

	case stateChoosingPlacement:
		// After server-side processing the editor offers a placement
		// choice. Background placement is always selected.
		either := func() (bool, error) {
			if ok, err := visible(a.surface, RolePlaceBackground)(); err != nil || ok {
				return ok, err
			}
			return visible(a.surface, RolePlaceObject)()
		}
		if err := poll.WaitUntil(ctx, either, a.budgets.Editor); err != nil {
			return stateFailed, "no placement option"
		}
		ctl, err := a.surface.Find(RolePlaceBackground)
		if err != nil {
			return stateFailed, "background placement not offered"
		}
		if err := ctl.Click(); err != nil {
			return stateFailed, fmt.Sprintf("choose placement: %v", err)
		}
		// The canvas has no signal for "image rendered"; give it a
		// settle pause before saving.
		sleep(ctx, a.budgets.Settle)
		return stateSavingSection, ""

	case stateSavingSection:
		if err := poll.WaitUntil(ctx, visibleIn(a.surface, section, RoleEditorSave), a.budgets.Editor); err != nil {
			return stateFailed, "save control did not appear"
		}
		ctl, err := a.surface.FindIn(section, RoleEditorSave)
		if err != nil {
			return stateFailed, fmt.Sprintf("save control vanished: %v", err)
		}
		if err := ctl.Click(); err != nil {
			return stateFailed, fmt.Sprintf("save section: %v", err)
		}
		return a.awaitClosed(ctx, section), ""

	default:
		return stateFailed, fmt.Sprintf("unexpected state %d", st)
	}
}

// awaitClosed waits for the section's save control to disappear, the
// proxy for "editor closed". A timeout here is non-fatal: the visible
// content may already be correct, so it is reported as closed with a
// warning.
func (a *Attacher) awaitClosed(ctx context.Context, section string) attachState {
	if err := poll.WaitUntil(ctx, goneIn(a.surface, section, RoleEditorSave), a.budgets.Editor); err != nil {
		a.log.Warn("editor close not confirmed, continuing", zap.String("section", section))
	}
	return stateClosed
}

// cleanup best-effort closes anything the failed flow left open: the
// upload dialog, then the editor via its scoped discard control. Errors
// here are swallowed; cleanup must never mask the original failure.
func (a *Attacher) cleanup(ctx context.Context, section string, log *zap.Logger) {
	if ctl, err := a.surface.Find(RoleDialogClose); err == nil {
		if vis, _ := ctl.Visible(); vis {
			if err := ctl.Click(); err == nil {
				log.Debug("closed stray dialog")
				sleep(ctx, a.budgets.Settle)
			}
		}
	}
	if ctl, err := a.surface.FindIn(section, RoleEditorDiscard); err == nil {
		if vis, _ := ctl.Visible(); vis {
			if err := ctl.Click(); err == nil {
				log.Debug("discarded stuck editor")
				sleep(ctx, a.budgets.Settle)
			}
		}
	}
}
