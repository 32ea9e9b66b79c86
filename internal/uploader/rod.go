package uploader

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"
)

// selector pairs a CSS selector with an optional text filter. When the
// driven UI exposes no stable test id for a control, it is matched by
// its visible text the way the app's own tests do.
type selector struct {
	css  string
	text string // case-insensitive JS regex over element text
}

// globalSelectors maps page-global roles to the driven UI's stable
// control contract. The data-testid values are a versioned external
// dependency of this tool.
var globalSelectors = map[Role]selector{
	RoleCreateNew:     {css: `button[data-testid="nav-create-new"]`},
	RoleBackToLibrary: {css: "button, a", text: `/back to library/i`},
	RoleCookieAccept:  {css: "button", text: `/^(accept|ok|got it)$/i`},

	RoleSignIn:     {css: "button", text: `/^sign in$/i`},
	RoleIdentifier: {css: `input[name="identifier"]`},
	RolePassword:   {css: `input[name="password"]`},
	RoleContinue:   {css: "button", text: `/^continue$/i`},
	RoleSignedIn:   {css: "button", text: `/^(logout|sign out)$/i`},
	RoleAuthFault:  {css: `p, span, [role="alert"]`, text: `/incorrect|invalid/i`},

	RoleAssistDismiss: {css: "button", text: `/^(create manually|cancel)$/i`},
	RoleTitle:         {css: `textarea[placeholder*="story title" i], input[placeholder*="story title" i]`},
	RoleTagInput:      {css: `input[placeholder*="tag" i]`},
	RoleAddPage:       {css: "button", text: `/add new page/i`},

	RoleFileInput:       {css: `input[data-testid="file-upload-input"]`},
	RoleRightsConfirm:   {css: "button", text: `/i confirm/i`},
	RolePlaceBackground: {css: "button", text: `/set as background/i`},
	RolePlaceObject:     {css: "button", text: `/add as object/i`},
	RoleDialogClose:     {css: `button[aria-label*="close" i]`},
}

// listSelectors covers repeated controls addressed by index.
var listSelectors = map[Role]string{
	RoleContentField:  `textarea[placeholder*="Write your story" i]`,
	RoleCoachingField: `textarea[placeholder*="coaching" i]`,
}

// sectionSelector scopes editor controls to one section id.
func sectionSelector(section string, role Role) (selector, bool) {
	switch role {
	case RoleIllustrationEntry:
		return selector{css: fmt.Sprintf(`button[data-testid^="illustration-"][data-section=%q]`, section)}, true
	case RoleEditorUpload:
		return selector{css: fmt.Sprintf(`button[data-testid="canvas-upload-image-%s"]`, section)}, true
	case RoleEditorSave:
		return selector{css: fmt.Sprintf(`button[data-testid="canvas-save-%s"]`, section)}, true
	case RoleEditorDiscard:
		return selector{css: fmt.Sprintf(`button[data-testid="canvas-discard-%s"]`, section)}, true
	}
	return selector{}, false
}

// rodSurface implements Surface against a live rod page. Every lookup
// uses a non-sleeping element query so the poll budgets own all timing.
type rodSurface struct {
	page       *rod.Page
	navTimeout time.Duration
}

func newRodSurface(page *rod.Page, navTimeout time.Duration) *rodSurface {
	return &rodSurface{page: page, navTimeout: navTimeout}
}

func (s *rodSurface) Goto(ctx context.Context, url string) error {
	p := s.page.Context(ctx).Timeout(s.navTimeout)
	if err := p.Navigate(url); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	if err := p.WaitLoad(); err != nil {
		return fmt.Errorf("wait load %s: %w", url, err)
	}
	return nil
}

func (s *rodSurface) URL() (string, error) {
	info, err := s.page.Info()
	if err != nil {
		return "", err
	}
	return info.URL, nil
}

func (s *rodSurface) Find(role Role) (Control, error) {
	sel, ok := globalSelectors[role]
	if !ok {
		return nil, fmt.Errorf("uploader: no selector for role %q", role)
	}
	return s.lookup(sel, role)
}

func (s *rodSurface) FindIn(section string, role Role) (Control, error) {
	sel, ok := sectionSelector(section, role)
	if !ok {
		return nil, fmt.Errorf("uploader: role %q is not section-scoped", role)
	}
	return s.lookup(sel, role)
}

func (s *rodSurface) FindAll(role Role) ([]Control, error) {
	css, ok := listSelectors[role]
	if !ok {
		return nil, fmt.Errorf("uploader: role %q is not a repeated control", role)
	}
	els, err := s.page.Elements(css)
	if err != nil {
		return nil, err
	}
	out := make([]Control, len(els))
	for i, el := range els {
		out[i] = &rodControl{el: el}
	}
	return out, nil
}

func (s *rodSurface) Press(key string) error {
	switch key {
	case "Enter":
		return s.page.Keyboard.Press(input.Enter)
	default:
		return fmt.Errorf("uploader: unsupported key %q", key)
	}
}

func (s *rodSurface) lookup(sel selector, role Role) (Control, error) {
	p := s.page.Sleeper(rod.NotFoundSleeper)
	var el *rod.Element
	var err error
	if sel.text != "" {
		el, err = p.ElementR(sel.css, sel.text)
	} else {
		el, err = p.Element(sel.css)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, role)
	}
	return &rodControl{el: el}, nil
}

type rodControl struct {
	el *rod.Element
}

func (c *rodControl) Click() error {
	return c.el.Click(proto.InputMouseButtonLeft, 1)
}

func (c *rodControl) Input(text string) error {
	// Replace, not append: clear any existing value first.
	if err := c.el.SelectAllText(); err != nil {
		return err
	}
	return c.el.Input(text)
}

func (c *rodControl) Visible() (bool, error) {
	return c.el.Visible()
}

func (c *rodControl) Actionable() (bool, error) {
	vis, err := c.el.Visible()
	if err != nil || !vis {
		return false, err
	}
	disabled, err := c.el.Property("disabled")
	if err != nil {
		return false, err
	}
	return !disabled.Bool(), nil
}

func (c *rodControl) SetFiles(path string) error {
	return c.el.SetFiles([]string{path})
}

func (c *rodControl) Text() (string, error) {
	return c.el.Text()
}
