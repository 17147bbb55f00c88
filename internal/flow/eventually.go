package flow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/playwright-community/playwright-go"

	"github.com/kuitang/flowcheck/internal/errs"
)

// Poll pacing for Eventually. The first check is immediate; subsequent checks
// back off exponentially so a settled page is detected fast without busy
// looping while hydration or navigation is still in flight.
const (
	pollInitialInterval = 50 * time.Millisecond
	pollMaxInterval     = 500 * time.Millisecond
)

// Predicate is a named condition over live UI state. Eval errors are treated
// as "not yet": the DOM is routinely unstable mid-navigation, and a predicate
// that errors at one poll may hold at the next.
type Predicate struct {
	Desc string
	Eval func(ctx context.Context, s *Session) (bool, error)
}

var errConditionNotMet = errors.New("condition not met")

// Eventually polls the predicate until it holds or the timeout elapses.
// Returns nil on the first true evaluation. On expiry it returns a
// timeout-coded error carrying the predicate description, the elapsed wait,
// and the last evaluation error if there was one.
func (s *Session) Eventually(ctx context.Context, timeout time.Duration, p Predicate) error {
	if timeout <= 0 {
		timeout = s.stepTimeout
	}

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = pollInitialInterval
	bo.MaxInterval = pollMaxInterval
	bo.MaxElapsedTime = 0 // the context deadline is the bound

	start := time.Now()
	var lastErr error

	op := func() error {
		ok, err := p.Eval(waitCtx, s)
		if err != nil {
			lastErr = err
			return errConditionNotMet
		}
		if !ok {
			return errConditionNotMet
		}
		return nil
	}

	if err := backoff.Retry(op, backoff.WithContext(bo, waitCtx)); err != nil {
		return errs.Expired(errs.Timeout, p.Desc, time.Since(start), lastErr)
	}
	return nil
}

// ExpectURL waits for the session's current path to equal expected. A
// timeout here is reported as a navigation error naming where the page
// actually ended up.
func (s *Session) ExpectURL(ctx context.Context, expected string, timeout time.Duration) error {
	if err := s.Eventually(ctx, timeout, URLIs(expected)); err != nil {
		var coded *errs.Error
		elapsed := timeout
		if errors.As(err, &coded) && coded.Elapsed > 0 {
			elapsed = coded.Elapsed
		}
		return errs.Expired(errs.Navigation,
			fmt.Sprintf("expected path %s, still on %s", expected, s.CurrentPath()),
			elapsed, err)
	}
	return nil
}

// URLIs holds when the current path equals expected.
func URLIs(expected string) Predicate {
	return Predicate{
		Desc: "url is " + expected,
		Eval: func(_ context.Context, s *Session) (bool, error) {
			return s.CurrentPath() == expected, nil
		},
	}
}

// TextVisible holds when the exact text is visible somewhere on the page.
func TextVisible(text string) Predicate {
	return Predicate{
		Desc: fmt.Sprintf("text %q visible", text),
		Eval: func(_ context.Context, s *Session) (bool, error) {
			return s.page.GetByText(text).First().IsVisible()
		},
	}
}

// TextAbsent holds when the exact text is not visible anywhere on the page.
func TextAbsent(text string) Predicate {
	return Predicate{
		Desc: fmt.Sprintf("text %q absent", text),
		Eval: func(_ context.Context, s *Session) (bool, error) {
			count, err := s.page.GetByText(text).Count()
			if err != nil {
				return false, err
			}
			if count == 0 {
				return true, nil
			}
			visible, err := s.page.GetByText(text).First().IsVisible()
			if err != nil {
				return false, err
			}
			return !visible, nil
		},
	}
}

// Visible holds when exactly one element matches selector and it is visible.
func Visible(selector string) Predicate {
	return Predicate{
		Desc: selector + " visible",
		Eval: func(_ context.Context, s *Session) (bool, error) {
			locator, err := s.locateOne(selector)
			if err != nil {
				if errs.CodeOf(err) == errs.ElementNotFound {
					return false, nil
				}
				return false, err
			}
			return locator.IsVisible()
		},
	}
}

// Hidden holds when no element matching selector is visible.
func Hidden(selector string) Predicate {
	return Predicate{
		Desc: selector + " hidden",
		Eval: func(_ context.Context, s *Session) (bool, error) {
			count, err := s.page.Locator(selector).Count()
			if err != nil {
				return false, err
			}
			if count == 0 {
				return true, nil
			}
			visible, err := s.page.Locator(selector).First().IsVisible()
			if err != nil {
				return false, err
			}
			return !visible, nil
		},
	}
}

// Attached holds when at least one element matches selector, visible or not.
// Used for hydration signals carried as attributes rather than content.
func Attached(selector string) Predicate {
	return Predicate{
		Desc: selector + " attached",
		Eval: func(_ context.Context, s *Session) (bool, error) {
			count, err := s.page.Locator(selector).Count()
			if err != nil {
				return false, err
			}
			return count > 0, nil
		},
	}
}

// Focused holds when the element matching selector has document focus.
func Focused(selector string) Predicate {
	return Predicate{
		Desc: selector + " focused",
		Eval: func(_ context.Context, s *Session) (bool, error) {
			id := strings.TrimPrefix(selector, "#")
			if id == selector {
				// Non-id selectors compare the element handle itself.
				result, err := s.page.Locator(selector).First().Evaluate("el => el === document.activeElement", nil)
				if err != nil {
					return false, err
				}
				focused, ok := result.(bool)
				return ok && focused, nil
			}
			result, err := s.page.Evaluate("() => document.activeElement && document.activeElement.id")
			if err != nil {
				return false, err
			}
			activeID, ok := result.(string)
			return ok && activeID == id, nil
		},
	}
}

// RoleVisible holds when the element with the given ARIA role and accessible
// name is visible. This mirrors how scenarios address links, buttons, and
// headings by role.
func RoleVisible(role, name string) Predicate {
	return Predicate{
		Desc: fmt.Sprintf("%s %q visible", role, name),
		Eval: func(_ context.Context, s *Session) (bool, error) {
			return s.page.GetByRole(playwright.AriaRole(role), playwright.PageGetByRoleOptions{
				Name:  name,
				Exact: playwright.Bool(true),
			}).First().IsVisible()
		},
	}
}

// All holds when every given predicate holds in the same poll.
func All(preds ...Predicate) Predicate {
	descs := make([]string, len(preds))
	for i, p := range preds {
		descs[i] = p.Desc
	}
	return Predicate{
		Desc: strings.Join(descs, " and "),
		Eval: func(ctx context.Context, s *Session) (bool, error) {
			for _, p := range preds {
				ok, err := p.Eval(ctx, s)
				if err != nil || !ok {
					return false, err
				}
			}
			return true, nil
		},
	}
}
