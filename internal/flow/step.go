package flow

import (
	"context"
	"fmt"
	"time"

	"github.com/kuitang/flowcheck/internal/errs"
)

// Phase is the runner's position in the per-scenario state machine.
type Phase string

const (
	PhaseNotStarted  Phase = "not_started"
	PhaseNavigating  Phase = "navigating"
	PhaseHydrating   Phase = "hydrating"
	PhaseInteracting Phase = "interacting"
	PhaseAsserting   Phase = "asserting"
	PhasePassed      Phase = "passed"
	PhaseFailed      Phase = "failed"
)

// Step is one ordered action against a Session. Steps carry no state beyond
// their parameters; all side effects live in the Session.
type Step interface {
	Do(ctx context.Context, s *Session) error
	Describe() string
	// phase is the state-machine phase the runner enters for this step.
	phase() Phase
}

// Role builds a role-engine selector addressing an element by ARIA role and
// exact accessible name, e.g. Role("link", "Login").
func Role(role, name string) string {
	return fmt.Sprintf(`role=%s[name=%q]`, role, name)
}

// Navigate loads a path relative to the session's base URL. The runner
// follows every Navigate with the hydration wait before the next step runs.
type Navigate struct {
	Path string
}

func (n Navigate) Do(ctx context.Context, s *Session) error { return s.Navigate(ctx, n.Path) }
func (n Navigate) Describe() string                         { return "navigate " + n.Path }
func (n Navigate) phase() Phase                             { return PhaseNavigating }

// Fill fills the single element matching Selector with Value.
type Fill struct {
	Selector string
	Value    string
}

func (f Fill) Do(ctx context.Context, s *Session) error { return s.FillField(ctx, f.Selector, f.Value) }
func (f Fill) Describe() string                         { return "fill " + f.Selector }
func (f Fill) phase() Phase                             { return PhaseInteracting }

// Click clicks the single element matching Selector.
type Click struct {
	Selector string
}

func (c Click) Do(ctx context.Context, s *Session) error { return s.Click(ctx, c.Selector) }
func (c Click) Describe() string                         { return "click " + c.Selector }
func (c Click) phase() Phase                             { return PhaseInteracting }

// ClearCookies empties the cookie jar, forcing a logged-out state.
type ClearCookies struct{}

func (ClearCookies) Do(_ context.Context, s *Session) error { return s.ClearCookies() }
func (ClearCookies) Describe() string                       { return "clear cookies" }
func (ClearCookies) phase() Phase                           { return PhaseInteracting }

// WaitFor blocks until Cond holds. Zero Timeout means the session default.
type WaitFor struct {
	Cond    Predicate
	Timeout time.Duration
}

func (w WaitFor) Do(ctx context.Context, s *Session) error {
	return s.Eventually(ctx, w.Timeout, w.Cond)
}
func (w WaitFor) Describe() string { return "wait for " + w.Cond.Desc }
func (w WaitFor) phase() Phase     { return PhaseAsserting }

// Expect asserts that Cond eventually holds. Identical mechanics to WaitFor;
// kept distinct so reports separate settling waits from verification.
type Expect struct {
	Cond    Predicate
	Timeout time.Duration
}

func (e Expect) Do(ctx context.Context, s *Session) error {
	return s.Eventually(ctx, e.Timeout, e.Cond)
}
func (e Expect) Describe() string { return "expect " + e.Cond.Desc }
func (e Expect) phase() Phase     { return PhaseAsserting }

// ExpectURL asserts the page eventually sits at Path.
type ExpectURL struct {
	Path    string
	Timeout time.Duration
}

func (e ExpectURL) Do(ctx context.Context, s *Session) error {
	return s.ExpectURL(ctx, e.Path, e.Timeout)
}
func (e ExpectURL) Describe() string { return "expect url " + e.Path }
func (e ExpectURL) phase() Phase     { return PhaseAsserting }

// ExpectValidation asserts that an expected failure-path message appears.
// Its absence is a validation_mismatch, not a plain timeout: the application
// accepted input the scenario expected it to reject.
type ExpectValidation struct {
	Text    string
	Timeout time.Duration
}

func (e ExpectValidation) Do(ctx context.Context, s *Session) error {
	err := s.Eventually(ctx, e.Timeout, TextVisible(e.Text))
	if err != nil {
		var elapsed time.Duration
		if coded, ok := err.(*errs.Error); ok {
			elapsed = coded.Elapsed
		}
		return errs.Expired(errs.ValidationMismatch,
			fmt.Sprintf("expected validation message %q did not appear", e.Text),
			elapsed, err)
	}
	return nil
}
func (e ExpectValidation) Describe() string { return fmt.Sprintf("expect validation %q", e.Text) }
func (e ExpectValidation) phase() Phase     { return PhaseAsserting }

// Run wraps an arbitrary function as a step, for custom actions and tests.
type Run struct {
	Desc string
	Fn   func(ctx context.Context, s *Session) error
}

func (r Run) Do(ctx context.Context, s *Session) error { return r.Fn(ctx, s) }
func (r Run) Describe() string                         { return r.Desc }
func (r Run) phase() Phase                             { return PhaseInteracting }

// Scenario is an ordered list of steps verified as one unit.
type Scenario struct {
	Name  string
	Steps []Step
}

// Chain is a group of scenarios required to execute in order because later
// ones depend on server-side state established by earlier ones. A failure
// anywhere marks every later scenario in the chain blocked.
type Chain struct {
	Name      string
	Scenarios []Scenario
}
