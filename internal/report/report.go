// Package report aggregates flow results into run summaries and renders them
// as plain text for the terminal, Markdown for artifacts, and sanitized HTML.
package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/microcosm-cc/bluemonday"

	"github.com/kuitang/flowcheck/internal/errs"
	"github.com/kuitang/flowcheck/internal/flow"
)

// Summary is the aggregate view of one run.
type Summary struct {
	RunID   string
	Target  string
	Started time.Time
	Elapsed time.Duration
	Results []flow.Result
	Passed  int
	Failed  int
	Blocked int
}

// New builds a Summary from the results of a run.
func New(runID, target string, started time.Time, results []flow.Result) *Summary {
	s := &Summary{
		RunID:   runID,
		Target:  target,
		Started: started,
		Elapsed: time.Since(started),
		Results: results,
	}
	for _, r := range results {
		switch r.Outcome {
		case flow.OutcomePassed:
			s.Passed++
		case flow.OutcomeFailed:
			s.Failed++
		case flow.OutcomeBlocked:
			s.Blocked++
		}
	}
	return s
}

// Ok reports whether every scenario passed.
func (s *Summary) Ok() bool {
	return s.Failed == 0 && s.Blocked == 0
}

// ExitCode maps the summary to the process exit code: 0 when everything
// passed, otherwise the exit code of the most severe failure.
func (s *Summary) ExitCode() int {
	code := 0
	for _, r := range s.Results {
		if r.Outcome == flow.OutcomeFailed {
			if c := errs.ExitCode(errs.CodeOf(r.Err)); c > code {
				code = c
			}
		}
	}
	if code == 0 && s.Blocked > 0 {
		code = 1
	}
	return code
}

func outcomeMark(o flow.Outcome) string {
	switch o {
	case flow.OutcomePassed:
		return "PASS"
	case flow.OutcomeFailed:
		return "FAIL"
	case flow.OutcomeBlocked:
		return "SKIP"
	default:
		return "????"
	}
}

// Text renders the terminal summary.
func (s *Summary) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "run %s against %s\n\n", s.RunID, s.Target)
	for _, r := range s.Results {
		fmt.Fprintf(&b, "  %s  %s / %s (%s)\n", outcomeMark(r.Outcome), r.Chain, r.Scenario, r.Elapsed.Round(time.Millisecond))
		if r.Outcome == flow.OutcomeFailed {
			fmt.Fprintf(&b, "        phase: %s", r.Phase)
			if r.FailedStep != "" {
				fmt.Fprintf(&b, "  step: %s", r.FailedStep)
			}
			fmt.Fprintf(&b, "\n        %s [%s]\n", errs.MessageOf(r.Err), errs.CodeOf(r.Err))
			if r.ScreenshotPath != "" {
				fmt.Fprintf(&b, "        screenshot: %s\n", r.ScreenshotPath)
			}
		}
		if r.Outcome == flow.OutcomeBlocked && r.Err != nil {
			fmt.Fprintf(&b, "        %s\n", errs.MessageOf(r.Err))
		}
	}
	fmt.Fprintf(&b, "\n%d passed, %d failed, %d blocked in %s\n",
		s.Passed, s.Failed, s.Blocked, s.Elapsed.Round(time.Millisecond))
	return b.String()
}

// Markdown renders the run report as a Markdown document.
func (s *Summary) Markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Flow run %s\n\n", s.RunID)
	fmt.Fprintf(&b, "- **Target:** %s\n", s.Target)
	fmt.Fprintf(&b, "- **Started:** %s\n", s.Started.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "- **Elapsed:** %s\n", s.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(&b, "- **Outcome:** %d passed, %d failed, %d blocked\n\n", s.Passed, s.Failed, s.Blocked)

	b.WriteString("| Chain | Scenario | Outcome | Elapsed | Detail |\n")
	b.WriteString("|---|---|---|---|---|\n")
	for _, r := range s.Results {
		detail := ""
		if r.Err != nil {
			detail = fmt.Sprintf("[%s] %s", errs.CodeOf(r.Err), errs.MessageOf(r.Err))
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n",
			escapeCell(r.Chain), escapeCell(r.Scenario), outcomeMark(r.Outcome),
			r.Elapsed.Round(time.Millisecond), escapeCell(detail))
	}

	failed := s.failedResults()
	if len(failed) > 0 {
		b.WriteString("\n## Failures\n")
		for _, r := range failed {
			fmt.Fprintf(&b, "\n### %s / %s\n\n", r.Chain, r.Scenario)
			fmt.Fprintf(&b, "- Phase: `%s`\n", r.Phase)
			if r.FailedStep != "" {
				fmt.Fprintf(&b, "- Step: `%s`\n", escapeCell(r.FailedStep))
			}
			fmt.Fprintf(&b, "- Error: `[%s] %s`\n", errs.CodeOf(r.Err), escapeCell(errs.MessageOf(r.Err)))
			if r.ScreenshotPath != "" {
				fmt.Fprintf(&b, "- Screenshot: `%s`\n", r.ScreenshotPath)
			}
		}
	}
	return b.String()
}

// HTML renders the Markdown report to sanitized HTML.
func (s *Summary) HTML() []byte {
	extensions := parser.CommonExtensions | parser.AutoHeadingIDs | parser.Tables
	p := parser.NewWithExtensions(extensions)
	doc := p.Parse([]byte(s.Markdown()))

	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags})
	raw := markdown.Render(doc, renderer)

	return bluemonday.UGCPolicy().SanitizeBytes(raw)
}

func (s *Summary) failedResults() []flow.Result {
	var failed []flow.Result
	for _, r := range s.Results {
		if r.Outcome == flow.OutcomeFailed {
			failed = append(failed, r)
		}
	}
	sort.SliceStable(failed, func(i, j int) bool { return failed[i].Chain < failed[j].Chain })
	return failed
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	return strings.ReplaceAll(s, "\n", " ")
}
