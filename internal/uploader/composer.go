package uploader

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"storypress/internal/poll"
	"storypress/internal/story"
)

// Composer fills the multi-page document form for one story: title,
// tags, coaching, page content, and per-section images. It operates on
// the shared session but keeps no state across documents.
type Composer struct {
	surface  Surface
	attacher *Attacher
	log      *zap.Logger
	budgets  Budgets

	// implicitTag is applied by the app itself and skipped on submit.
	implicitTag string
}

// NewComposer builds a composer bound to one surface.
func NewComposer(surface Surface, attacher *Attacher, implicitTag string, budgets Budgets, log *zap.Logger) *Composer {
	return &Composer{
		surface:     surface,
		attacher:    attacher,
		log:         log,
		budgets:     budgets,
		implicitTag: implicitTag,
	}
}

// Compose publishes one story. A missing optional field (coaching,
// image, tags) is silently skipped; a required control (title, page
// content) failing to appear within its budget fails this document
// only, as *ComposeError.
func (c *Composer) Compose(ctx context.Context, st *story.Story) error {
	log := c.log.With(zap.String("story", st.Slug))
	log.Info("composing story", zap.String("title", st.Title), zap.Int("pages", len(st.Pages)))

	if err := c.openNewDocument(ctx, st); err != nil {
		return err
	}

	if err := c.fillTitle(ctx, st); err != nil {
		return err
	}

	c.fillCoverCoaching(st, log)
	c.submitTags(ctx, st, log)

	if st.CoverImagePath != "" {
		res := c.attacher.Attach(ctx, SectionCover, st.CoverImagePath)
		log.Debug("cover image", zap.String("outcome", res.Outcome.String()))
	}

	for i := range st.Pages {
		if err := c.composePage(ctx, st, i, log); err != nil {
			return err
		}
	}

	return c.returnToLibrary(ctx, st, log)
}

// openNewDocument clicks the create-new affordance, waits for the
// editor view, and dismisses the optional assisted-generation dialog in
// favor of manual entry.
func (c *Composer) openNewDocument(ctx context.Context, st *story.Story) error {
	if err := c.clickWhenVisible(ctx, RoleCreateNew, c.budgets.Standard); err != nil {
		return &ComposeError{Slug: st.Slug, Reason: "create control not available", Err: err}
	}

	inEditor := func() (bool, error) {
		u, err := c.surface.URL()
		if err != nil {
			return false, err
		}
		return strings.Contains(u, "/editor"), nil
	}
	if err := poll.WaitUntil(ctx, inEditor, c.budgets.Editor); err != nil {
		return &ComposeError{Slug: st.Slug, Reason: "editor did not open", Err: err}
	}

	// Optional: absence just means the dialog was already dismissed.
	if err := c.clickWhenVisible(ctx, RoleAssistDismiss, c.budgets.Probe); err == nil {
		sleep(ctx, c.budgets.Settle)
	}
	return nil
}

func (c *Composer) fillTitle(ctx context.Context, st *story.Story) error {
	if err := poll.WaitUntil(ctx, visible(c.surface, RoleTitle), c.budgets.Standard); err != nil {
		return &ComposeError{Slug: st.Slug, Reason: "title field not found", Err: err}
	}
	ctl, err := c.surface.Find(RoleTitle)
	if err != nil {
		return &ComposeError{Slug: st.Slug, Reason: "title field not found", Err: err}
	}
	if err := ctl.Input(st.Title); err != nil {
		return &ComposeError{Slug: st.Slug, Reason: "fill title", Err: err}
	}
	return nil
}

// fillCoverCoaching writes the cover-level coaching text. Coaching
// fields are addressed by index: the cover always occupies index 0 and
// pages start at 1.
func (c *Composer) fillCoverCoaching(st *story.Story, log *zap.Logger) {
	if st.CoverCoaching == "" {
		return
	}
	fields, err := c.surface.FindAll(RoleCoachingField)
	if err != nil || len(fields) == 0 {
		log.Warn("cover coaching field not found, skipping")
		return
	}
	if err := fields[0].Input(st.CoverCoaching); err != nil {
		log.Warn("fill cover coaching failed", zap.Error(err))
		return
	}
	log.Debug("cover coaching filled")
}

// submitTags enters tags one at a time, each submission followed by a
// settle wait. A tag equal to the implicit default is a no-op.
func (c *Composer) submitTags(ctx context.Context, st *story.Story, log *zap.Logger) {
	submitted := 0
	for _, tag := range st.Tags {
		if strings.EqualFold(tag, c.implicitTag) {
			log.Debug("skipping implicit tag", zap.String("tag", tag))
			continue
		}
		ctl, err := c.surface.Find(RoleTagInput)
		if err != nil {
			log.Warn("tag input not found, skipping remaining tags")
			return
		}
		if err := ctl.Input(tag); err != nil {
			log.Warn("fill tag failed", zap.String("tag", tag), zap.Error(err))
			continue
		}
		if err := c.surface.Press("Enter"); err != nil {
			log.Warn("submit tag failed", zap.String("tag", tag), zap.Error(err))
			continue
		}
		submitted++
		sleep(ctx, c.budgets.Settle)
	}
	if submitted > 0 {
		log.Debug("tags submitted", zap.Int("count", submitted))
	}
}

// composePage creates the page (when needed), fills its content and
// coaching fields, and attaches its image. i is the 0-based position.
func (c *Composer) composePage(ctx context.Context, st *story.Story, i int, log *zap.Logger) error {
	pg := &st.Pages[i]
	pageNum := i + 1
	log = log.With(zap.Int("page", pageNum))

	if i > 0 {
		if err := c.clickWhenVisible(ctx, RoleAddPage, c.budgets.Standard); err != nil {
			return &ComposeError{Slug: st.Slug, Reason: fmt.Sprintf("add page %d", pageNum), Err: err}
		}
	}

	// Content fields appear one per page; the new page's field is the
	// observable signal that page creation finished.
	if err := poll.WaitUntil(ctx, countAtLeast(c.surface, RoleContentField, pageNum), c.budgets.Standard); err != nil {
		return &ComposeError{Slug: st.Slug, Reason: fmt.Sprintf("content field for page %d not found", pageNum), Err: err}
	}
	contents, err := c.surface.FindAll(RoleContentField)
	if err != nil || len(contents) < pageNum {
		return &ComposeError{Slug: st.Slug, Reason: fmt.Sprintf("content field for page %d not found", pageNum), Err: err}
	}
	if err := contents[i].Input(pg.Content); err != nil {
		return &ComposeError{Slug: st.Slug, Reason: fmt.Sprintf("fill page %d content", pageNum), Err: err}
	}
	log.Debug("content filled")

	if pg.Coaching != "" {
		// Index i+1, never i: coaching index 0 belongs to the cover.
		coachIdx := i + 1
		fields, err := c.surface.FindAll(RoleCoachingField)
		if err != nil || coachIdx >= len(fields) {
			log.Warn("coaching field not found", zap.Int("index", coachIdx))
		} else if err := fields[coachIdx].Input(pg.Coaching); err != nil {
			log.Warn("fill coaching failed", zap.Error(err))
		} else {
			log.Debug("coaching filled", zap.Int("index", coachIdx))
		}
	}

	if pg.ImagePath != "" {
		res := c.attacher.Attach(ctx, SectionPage(pageNum), pg.ImagePath)
		log.Debug("page image", zap.String("outcome", res.Outcome.String()))
	}
	return nil
}

// returnToLibrary leaves edit mode. The document auto-saves, so a
// navigation timeout after the click is only a warning.
func (c *Composer) returnToLibrary(ctx context.Context, st *story.Story, log *zap.Logger) error {
	if err := c.clickWhenVisible(ctx, RoleBackToLibrary, c.budgets.Standard); err != nil {
		return &ComposeError{Slug: st.Slug, Reason: "back-to-library control not found", Err: err}
	}

	leftEditor := func() (bool, error) {
		u, err := c.surface.URL()
		if err != nil {
			return false, err
		}
		return !strings.Contains(u, "/editor"), nil
	}
	if err := poll.WaitUntil(ctx, leftEditor, c.budgets.Editor); err != nil {
		if errors.Is(err, poll.ErrExhausted) {
			log.Warn("navigation to library not confirmed; story may still be saved")
			return nil
		}
		return &ComposeError{Slug: st.Slug, Reason: "leave editor", Err: err}
	}
	log.Info("story composed")
	return nil
}

func (c *Composer) clickWhenVisible(ctx context.Context, role Role, b poll.Budget) error {
	if err := poll.WaitUntil(ctx, visible(c.surface, role), b); err != nil {
		return err
	}
	ctl, err := c.surface.Find(role)
	if err != nil {
		return err
	}
	return ctl.Click()
}
