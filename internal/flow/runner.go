package flow

import (
	"context"
	"time"

	"github.com/kuitang/flowcheck/internal/errs"
	"github.com/kuitang/flowcheck/internal/obs"
)

var log = obs.Pkg("flow")

// Outcome classifies how a scenario ended.
type Outcome string

const (
	OutcomePassed Outcome = "passed"
	OutcomeFailed Outcome = "failed"
	// OutcomeBlocked marks a scenario that was never run because an earlier
	// scenario in its chain failed. Running it would exercise undefined state.
	OutcomeBlocked Outcome = "blocked"
)

// Result is the record of one scenario execution.
type Result struct {
	Chain      string
	Scenario   string
	Outcome    Outcome
	Phase      Phase // phase reached when the scenario ended
	FailedStep string
	Err        error
	Elapsed    time.Duration
	Screenshot []byte // full-page capture at the moment of failure, if any

	// ScreenshotPath is filled in by whoever persists Screenshot, so reports
	// can point at the stored artifact instead of raw bytes.
	ScreenshotPath string
}

// Failed reports whether the result should make the run exit non-zero.
func (r Result) Failed() bool {
	return r.Outcome != OutcomePassed
}

// RunnerOptions configures a Runner.
type RunnerOptions struct {
	// ScenarioTimeout bounds one whole scenario. Zero means 60 seconds.
	ScenarioTimeout time.Duration
	// Retries is the number of whole-scenario retries after a failure.
	// Individual assertions inside a scenario are never retried.
	Retries int
}

// Runner executes scenarios and chains.
type Runner struct {
	scenarioTimeout time.Duration
	retries         int
}

// NewRunner creates a runner.
func NewRunner(opts RunnerOptions) *Runner {
	if opts.ScenarioTimeout <= 0 {
		opts.ScenarioTimeout = 60 * time.Second
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	return &Runner{
		scenarioTimeout: opts.ScenarioTimeout,
		retries:         opts.Retries,
	}
}

// RunScenario executes the scenario's steps strictly in order against the
// session. Every Navigate and Click is followed by an explicit hydration
// wait before the next step. The first step error is terminal for the
// scenario.
func (r *Runner) RunScenario(ctx context.Context, session *Session, sc Scenario) Result {
	result := Result{
		Scenario: sc.Name,
		Outcome:  OutcomePassed,
		Phase:    PhaseNotStarted,
	}
	start := time.Now()

	scCtx, cancel := context.WithTimeout(ctx, r.scenarioTimeout)
	defer cancel()
	scCtx = obs.WithCorrelation(scCtx, obs.Correlation{Scenario: sc.Name})

	for _, step := range sc.Steps {
		result.Phase = step.phase()
		stepCtx := obs.WithPhase(scCtx, string(result.Phase))
		obs.From(stepCtx).Debug("step", "action", step.Describe())

		if err := step.Do(stepCtx, session); err != nil {
			r.fail(&result, session, step.Describe(), err)
			result.Elapsed = time.Since(start)
			return result
		}

		// Interactions issued while the page is still hydrating are the
		// dominant flake source; wait out the readiness signal after every
		// navigation before anything else runs. Clicks get the same wait
		// because form submits navigate too; on a click that stays put the
		// signal is already present and the wait returns immediately.
		switch step.(type) {
		case Navigate, Click:
			result.Phase = PhaseHydrating
			hydCtx := obs.WithPhase(scCtx, string(PhaseHydrating))
			if err := session.AwaitReady(hydCtx); err != nil {
				r.fail(&result, session, "await hydration after "+step.Describe(), err)
				result.Elapsed = time.Since(start)
				return result
			}
		}
	}

	result.Phase = PhasePassed
	result.Elapsed = time.Since(start)
	obs.From(scCtx).Info("scenario passed", "elapsed", result.Elapsed)
	return result
}

func (r *Runner) fail(result *Result, session *Session, step string, err error) {
	result.Outcome = OutcomeFailed
	result.FailedStep = step
	result.Err = err
	// Phase stays at the step that failed so the report shows where in the
	// state machine the scenario died; the terminal marker goes in Outcome.
	if session != nil {
		if img, shotErr := session.Screenshot(); shotErr == nil {
			result.Screenshot = img
		}
	}
	log.Error("scenario failed",
		"scenario", result.Scenario,
		"step", step,
		"phase", result.Phase,
		"code", errs.CodeOf(err),
		"error", err,
	)
}

// SessionFactory creates a fresh isolated session for one scenario attempt.
type SessionFactory func() (*Session, error)

// RunChain executes the chain's scenarios strictly sequentially, each in a
// fresh session. A failed scenario (after any configured whole-scenario
// retries) marks all remaining scenarios blocked; they are reported, not run.
func (r *Runner) RunChain(ctx context.Context, newSession SessionFactory, ch Chain) []Result {
	results := make([]Result, 0, len(ch.Scenarios))
	chainCtx := obs.WithCorrelation(ctx, obs.Correlation{Chain: ch.Name})

	blocked := false
	var blockedBy string
	for _, sc := range ch.Scenarios {
		if blocked {
			results = append(results, Result{
				Chain:    ch.Name,
				Scenario: sc.Name,
				Outcome:  OutcomeBlocked,
				Phase:    PhaseNotStarted,
				Err:      errs.Newf(errs.Internal, "blocked by failed scenario %q", blockedBy),
			})
			continue
		}

		result := r.runWithRetries(chainCtx, newSession, sc)
		result.Chain = ch.Name
		results = append(results, result)

		if result.Failed() {
			blocked = true
			blockedBy = sc.Name
		}
	}
	return results
}

func (r *Runner) runWithRetries(ctx context.Context, newSession SessionFactory, sc Scenario) Result {
	var result Result
	for attempt := 0; ; attempt++ {
		session, err := newSession()
		if err != nil {
			return Result{
				Scenario: sc.Name,
				Outcome:  OutcomeFailed,
				Phase:    PhaseNotStarted,
				Err:      errs.Wrap(errs.Launch, "create session", err),
			}
		}
		result = r.RunScenario(ctx, session, sc)
		if session != nil {
			if closeErr := session.Close(); closeErr != nil && result.Outcome == OutcomePassed {
				log.Warn("session close failed after pass", "scenario", sc.Name, "error", closeErr)
			}
		}
		if !result.Failed() || attempt >= r.retries || ctx.Err() != nil {
			return result
		}
		log.Warn("retrying failed scenario", "scenario", sc.Name, "attempt", attempt+1)
	}
}
