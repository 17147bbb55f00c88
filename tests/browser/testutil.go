// Package browser contains Playwright E2E tests that run the verification
// suite against the built-in demo application.
//
// Prerequisites:
// - Install Playwright browsers: go run github.com/playwright-community/playwright-go/cmd/playwright install chromium
// - Run tests with: go test -v ./tests/browser/...
package browser

import (
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/kuitang/flowcheck/internal/demoapp"
	"github.com/kuitang/flowcheck/internal/flow"
	"github.com/kuitang/flowcheck/internal/ratelimit"
)

const (
	// Never introduce a larger timeout value anywhere in tests/browser.
	browserMaxTimeoutMS = 5000
	browserMaxTimeout   = 5 * time.Second

	scenarioMaxTimeout = 60 * time.Second
)

// TestEnv hosts the demo application on an httptest server plus a shared
// Playwright browser. The browser is launched lazily so tests skip cleanly on
// machines without Playwright installed.
type TestEnv struct {
	Server  *httptest.Server
	BaseURL string
	Store   *demoapp.Store

	pw        *playwright.Playwright
	browser   playwright.Browser
	browserMu sync.Mutex
}

// SetupTestEnv boots a fresh demo application backed by a throwaway database.
func SetupTestEnv(t *testing.T) *TestEnv {
	t.Helper()

	store, err := demoapp.OpenStore(filepath.Join(t.TempDir(), "demo.db"), "")
	if err != nil {
		t.Fatalf("could not open demo store: %v", err)
	}

	// High limits: throttling behavior has its own dedicated test.
	limiter := ratelimit.New(ratelimit.Config{
		RPS:             10000,
		Burst:           100000,
		CleanupInterval: time.Hour,
	})

	app := demoapp.New(demoapp.Options{
		Store:        store,
		Hasher:       demoapp.FakeInsecureHasher{},
		LoginLimiter: limiter,
	})
	server := httptest.NewServer(app.Handler())

	env := &TestEnv{
		Server:  server,
		BaseURL: server.URL,
		Store:   store,
	}

	t.Cleanup(func() {
		env.browserMu.Lock()
		if env.browser != nil {
			env.browser.Close()
		}
		if env.pw != nil {
			env.pw.Stop()
		}
		env.browserMu.Unlock()
		server.Close()
		limiter.Stop()
		store.Close()
	})

	return env
}

// InitBrowser launches Chromium. Skips the test if Playwright is unavailable.
func (env *TestEnv) InitBrowser(t *testing.T) {
	t.Helper()

	env.browserMu.Lock()
	defer env.browserMu.Unlock()

	if env.browser != nil {
		return
	}

	pw, err := playwright.Run()
	if err != nil {
		t.Skip("Playwright not available:", err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(true),
	})
	if err != nil {
		_ = pw.Stop()
		t.Skip("Could not launch browser:", err)
	}
	env.pw = pw
	env.browser = browser
}

// NewSessionFactory returns a factory producing isolated sessions against the
// demo app, with the standard hydration selector and capped timeouts.
func (env *TestEnv) NewSessionFactory() flow.SessionFactory {
	return func() (*flow.Session, error) {
		return flow.NewSession(env.browser, flow.SessionOptions{
			BaseURL:       env.BaseURL,
			StepTimeout:   browserMaxTimeout,
			ReadySelector: flow.DefaultReadySelector,
		})
	}
}

// NewSession creates one session directly, failing the test on error.
func (env *TestEnv) NewSession(t *testing.T) *flow.Session {
	t.Helper()
	session, err := env.NewSessionFactory()()
	if err != nil {
		t.Fatalf("could not create session: %v", err)
	}
	t.Cleanup(func() { session.Close() })
	return session
}

// NewRunner creates a runner with the standard scenario bound and no retries.
func NewRunner() *flow.Runner {
	return flow.NewRunner(flow.RunnerOptions{ScenarioTimeout: scenarioMaxTimeout})
}
