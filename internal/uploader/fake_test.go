package uploader

import (
	"context"
	"fmt"
	"time"

	"storypress/internal/poll"
)

// fakeControl scripts one control's behavior for tests.
type fakeControl struct {
	hidden       bool // never becomes visible
	visibleAfter int  // observations before turning visible
	disabled     bool

	observations int
	clicks       int
	inputs       []string
	files        []string
	text         string

	clickErr      error
	inputErrOnce  error
	onClick       func()
	removedByClck bool
}

func (c *fakeControl) Click() error {
	if c.clickErr != nil {
		return c.clickErr
	}
	c.clicks++
	if c.onClick != nil {
		c.onClick()
	}
	if c.removedByClck {
		c.hidden = true
	}
	return nil
}

func (c *fakeControl) Input(text string) error {
	if c.inputErrOnce != nil {
		err := c.inputErrOnce
		c.inputErrOnce = nil
		return err
	}
	c.inputs = append(c.inputs, text)
	return nil
}

func (c *fakeControl) Visible() (bool, error) {
	c.observations++
	if c.hidden {
		return false, nil
	}
	return c.observations > c.visibleAfter, nil
}

func (c *fakeControl) Actionable() (bool, error) {
	vis, err := c.Visible()
	if err != nil || !vis {
		return false, err
	}
	return !c.disabled, nil
}

func (c *fakeControl) SetFiles(path string) error {
	c.files = append(c.files, path)
	return nil
}

func (c *fakeControl) Text() (string, error) { return c.text, nil }

// fakeSurface is an in-memory Surface whose controls appear and vanish
// under test control.
type fakeSurface struct {
	controls map[string]*fakeControl
	lists    map[Role][]*fakeControl
	url      string
	gotos    []string
	keys     []string
}

func newFakeSurface() *fakeSurface {
	return &fakeSurface{
		controls: make(map[string]*fakeControl),
		lists:    make(map[Role][]*fakeControl),
		url:      "https://app.test/",
	}
}

func scopedKey(section string, role Role) string {
	return fmt.Sprintf("%s|%s", section, role)
}

// add registers a page-global control.
func (s *fakeSurface) add(role Role, c *fakeControl) *fakeControl {
	s.controls[string(role)] = c
	return c
}

// addIn registers a section-scoped control.
func (s *fakeSurface) addIn(section string, role Role, c *fakeControl) *fakeControl {
	s.controls[scopedKey(section, role)] = c
	return c
}

// addListed appends a repeated control instance.
func (s *fakeSurface) addListed(role Role, c *fakeControl) *fakeControl {
	s.lists[role] = append(s.lists[role], c)
	return c
}

func (s *fakeSurface) remove(role Role) { delete(s.controls, string(role)) }

func (s *fakeSurface) Goto(ctx context.Context, url string) error {
	s.gotos = append(s.gotos, url)
	s.url = url
	return nil
}

func (s *fakeSurface) URL() (string, error) { return s.url, nil }

func (s *fakeSurface) Find(role Role) (Control, error) {
	c, ok := s.controls[string(role)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, role)
	}
	return c, nil
}

func (s *fakeSurface) FindIn(section string, role Role) (Control, error) {
	c, ok := s.controls[scopedKey(section, role)]
	if !ok {
		return nil, fmt.Errorf("%w: %s in %s", ErrNotFound, role, section)
	}
	return c, nil
}

func (s *fakeSurface) FindAll(role Role) ([]Control, error) {
	list := s.lists[role]
	out := make([]Control, len(list))
	for i, c := range list {
		out[i] = c
	}
	return out, nil
}

func (s *fakeSurface) Press(key string) error {
	s.keys = append(s.keys, key)
	return nil
}

// testBudgets keeps every wait in the low milliseconds.
func testBudgets() Budgets {
	b := poll.Budget{Interval: time.Millisecond, Attempts: 3}
	return Budgets{Settle: 0, Probe: b, Standard: b, Editor: b, Login: b}
}
