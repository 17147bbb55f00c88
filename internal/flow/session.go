// Package flow drives a browser session through scripted navigation and
// interaction steps and verifies observable UI state after each one. It is
// the core of the harness: sessions wrap an isolated browser context,
// scenarios are ordered step lists, and chains tie dependent scenarios
// together with explicit blocking on upstream failure.
package flow

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/kuitang/flowcheck/internal/errs"
)

// DefaultReadySelector is the hydration-complete signal the built-in demo
// application exposes: client script removes the loading indicator and then
// stamps this attribute, so its presence means interactive elements respond.
const DefaultReadySelector = `body[data-app-ready="true"]`

// SessionOptions configures a new Session.
type SessionOptions struct {
	// BaseURL of the application under verification, without trailing slash.
	BaseURL string

	// StepTimeout bounds every wait issued through this session. Zero means
	// 5 seconds.
	StepTimeout time.Duration

	// ReadySelector is the selector whose presence marks hydration complete
	// after a navigation. Empty disables the explicit hydration wait and
	// relies on the navigation load state alone.
	ReadySelector string
}

// Session is an isolated browser context with its own cookie jar and a single
// page. A Session is exclusively owned by the scenario holding it; it is not
// safe for concurrent use.
type Session struct {
	ctx           playwright.BrowserContext
	page          playwright.Page
	baseURL       string
	stepTimeout   time.Duration
	readySelector string
}

// NewSession creates a fresh browser context and page. The caller owns the
// session and must Close it.
func NewSession(browser playwright.Browser, opts SessionOptions) (*Session, error) {
	if opts.StepTimeout <= 0 {
		opts.StepTimeout = 5 * time.Second
	}

	ctx, err := browser.NewContext()
	if err != nil {
		return nil, errs.Wrap(errs.Launch, "create browser context", err)
	}
	timeoutMS := float64(opts.StepTimeout.Milliseconds())
	ctx.SetDefaultTimeout(timeoutMS)
	ctx.SetDefaultNavigationTimeout(timeoutMS)

	page, err := ctx.NewPage()
	if err != nil {
		_ = ctx.Close()
		return nil, errs.Wrap(errs.Launch, "create page", err)
	}

	return &Session{
		ctx:           ctx,
		page:          page,
		baseURL:       strings.TrimRight(opts.BaseURL, "/"),
		stepTimeout:   opts.StepTimeout,
		readySelector: opts.ReadySelector,
	}, nil
}

// Page exposes the underlying page for predicates and custom steps.
func (s *Session) Page() playwright.Page {
	return s.page
}

// BaseURL returns the base URL this session was created against.
func (s *Session) BaseURL() string {
	return s.baseURL
}

// StepTimeout returns the default bound for waits issued through this session.
func (s *Session) StepTimeout() time.Duration {
	return s.stepTimeout
}

// Navigate loads a path relative to the base URL and waits for
// DOMContentLoaded. It does NOT wait for hydration; the runner does that
// explicitly so the Hydrating phase is visible in reports.
func (s *Session) Navigate(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return errs.Wrap(errs.Timeout, "navigate "+path, err)
	}
	_, err := s.page.Goto(s.baseURL+path, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(float64(s.stepTimeout.Milliseconds())),
	})
	if err != nil {
		return errs.Wrap(errs.Navigation, "navigate to "+path, err)
	}
	return nil
}

// AwaitReady waits out client-side hydration after a navigation. Interacting
// before this returns is the dominant flake source; never replace this wait
// with a sleep.
func (s *Session) AwaitReady(ctx context.Context) error {
	if s.readySelector == "" {
		return nil
	}
	err := s.Eventually(ctx, s.stepTimeout, Attached(s.readySelector))
	if err != nil {
		return errs.Expired(errs.Timeout, "hydration signal "+s.readySelector, s.stepTimeout, err)
	}
	return nil
}

// locateOne resolves a selector to exactly one element. Zero matches is
// element_not_found, more than one is ambiguous_element; scenarios must scope
// their selectors instead of relying on first-match.
func (s *Session) locateOne(selector string) (playwright.Locator, error) {
	locator := s.page.Locator(selector)
	count, err := locator.Count()
	if err != nil {
		return nil, errs.Wrap(errs.Internal, "count matches for selector", err)
	}
	switch {
	case count == 0:
		return nil, errs.WithSelector(errs.ElementNotFound, "no element matches", selector)
	case count > 1:
		return nil, errs.WithSelector(errs.AmbiguousElement, "selector matches more than one element", selector)
	}
	return locator, nil
}

// FillField fills the single element matching selector with value.
func (s *Session) FillField(ctx context.Context, selector, value string) error {
	if err := ctx.Err(); err != nil {
		return errs.Wrap(errs.Timeout, "fill "+selector, err)
	}
	locator, err := s.locateOne(selector)
	if err != nil {
		return err
	}
	if err := locator.Fill(value); err != nil {
		return errs.Wrap(errs.Internal, "fill "+selector, err)
	}
	return nil
}

// Click clicks the single element matching selector.
func (s *Session) Click(ctx context.Context, selector string) error {
	if err := ctx.Err(); err != nil {
		return errs.Wrap(errs.Timeout, "click "+selector, err)
	}
	locator, err := s.locateOne(selector)
	if err != nil {
		return err
	}
	if err := locator.Click(); err != nil {
		return errs.Wrap(errs.Internal, "click "+selector, err)
	}
	return nil
}

// ClearCookies empties the session's cookie jar, forcing a logged-out state.
func (s *Session) ClearCookies() error {
	if err := s.ctx.ClearCookies(); err != nil {
		return errs.Wrap(errs.Internal, "clear cookies", err)
	}
	return nil
}

// CurrentPath returns the path component of the page's current URL.
func (s *Session) CurrentPath() string {
	u, err := url.Parse(s.page.URL())
	if err != nil {
		return s.page.URL()
	}
	if u.Path == "" {
		return "/"
	}
	return u.Path
}

// Screenshot captures a full-page screenshot for failure diagnostics.
func (s *Session) Screenshot() ([]byte, error) {
	img, err := s.page.Screenshot(playwright.PageScreenshotOptions{
		FullPage: playwright.Bool(true),
	})
	if err != nil {
		return nil, errs.Wrap(errs.Internal, "capture screenshot", err)
	}
	return img, nil
}

// Close tears down the page and browser context.
func (s *Session) Close() error {
	if err := s.ctx.Close(); err != nil {
		return errs.Wrap(errs.Internal, "close browser context", err)
	}
	return nil
}
