package uploader

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	"storypress/internal/poll"
)

// SessionConfig configures the single browser session used for a run.
type SessionConfig struct {
	BaseURL    string
	Headless   bool
	BrowserBin string

	ViewportWidth  int
	ViewportHeight int
	NavTimeout     time.Duration
}

func (c SessionConfig) viewport() (int, int) {
	w, h := c.ViewportWidth, c.ViewportHeight
	if w == 0 {
		w = 1920
	}
	if h == 0 {
		h = 1080
	}
	return w, h
}

func (c SessionConfig) navTimeout() time.Duration {
	if c.NavTimeout == 0 {
		return 30 * time.Second
	}
	return c.NavTimeout
}

// Session owns the browser and the one page that drives the app. It is
// created once per run, shared read-only by the collaborators, and torn
// down at process exit.
type Session struct {
	cfg     SessionConfig
	log     *zap.Logger
	budgets Budgets

	lc      *launcher.Launcher
	browser *rod.Browser
	page    *rod.Page
	surface Surface
}

// NewSession prepares a session; Start launches the browser.
func NewSession(cfg SessionConfig, budgets Budgets, log *zap.Logger) *Session {
	return &Session{cfg: cfg, budgets: budgets, log: log}
}

// Start launches the browser, opens the app's landing page, and
// dismisses the cookie-consent dialog if one appears.
func (s *Session) Start(ctx context.Context) error {
	l := launcher.New().Headless(s.cfg.Headless)
	if s.cfg.BrowserBin != "" {
		l = l.Bin(s.cfg.BrowserBin)
	}
	controlURL, err := l.Launch()
	if err != nil {
		return fmt.Errorf("launch browser: %w", err)
	}
	s.lc = l

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return fmt.Errorf("connect browser: %w", err)
	}
	s.browser = browser

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return fmt.Errorf("open page: %w", err)
	}
	s.page = page

	w, h := s.cfg.viewport()
	if err := (proto.EmulationSetDeviceMetricsOverride{
		Width:             w,
		Height:            h,
		DeviceScaleFactor: 1.0,
		Mobile:            false,
	}).Call(page); err != nil {
		s.log.Warn("failed to set viewport", zap.Error(err))
	}

	s.surface = newRodSurface(page, s.cfg.navTimeout())

	s.log.Info("navigating to application", zap.String("url", s.cfg.BaseURL))
	if err := s.surface.Goto(ctx, s.cfg.BaseURL); err != nil {
		return err
	}

	s.dismissCookieConsent(ctx)
	return nil
}

// Surface exposes the landing page's control surface.
func (s *Session) Surface() Surface { return s.surface }

// Home navigates back to the landing view, the known baseline every
// document attempt starts from.
func (s *Session) Home(ctx context.Context) error {
	return s.surface.Goto(ctx, s.cfg.BaseURL)
}

// Close shuts the page, browser, and launched process down.
func (s *Session) Close() error {
	var errs []error
	if s.page != nil {
		if err := s.page.Close(); err != nil {
			errs = append(errs, err)
		}
		s.page = nil
	}
	if s.browser != nil {
		if err := s.browser.Close(); err != nil {
			errs = append(errs, err)
		}
		s.browser = nil
	}
	if s.lc != nil {
		s.lc.Cleanup()
		s.lc = nil
	}
	return errors.Join(errs...)
}

// dismissCookieConsent accepts the consent dialog when it shows up.
// Its absence is not an error.
func (s *Session) dismissCookieConsent(ctx context.Context) {
	err := poll.WaitUntil(ctx, visible(s.surface, RoleCookieAccept), s.budgets.Probe)
	if err != nil {
		s.log.Debug("no cookie consent dialog")
		return
	}
	ctl, err := s.surface.Find(RoleCookieAccept)
	if err != nil {
		return
	}
	if err := ctl.Click(); err != nil {
		s.log.Debug("cookie consent click failed", zap.Error(err))
		return
	}
	s.log.Debug("cookie consent dismissed")
	sleep(ctx, s.budgets.Settle)
}
