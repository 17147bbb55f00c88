// Package cli wires the flowcheck commands: run executes the verification
// suite against a target, demo serves the built-in target application.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kuitang/flowcheck/internal/obs"
)

// ExitError carries the process exit code out of a command.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit code %d", e.Code)
}

// NewRootCommand creates the flowcheck root command.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "flowcheck",
		Short: "Browser-driven verification of interactive UI flows",
		Long: "flowcheck runs declarative UI-flow scenarios (registration, login, logout)\n" +
			"against a live web application in a real browser, waiting on the page's\n" +
			"hydration signal instead of fixed sleeps.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			obs.Init()
		},
	}

	cmd.AddCommand(NewRunCommand())
	cmd.AddCommand(NewDemoCommand())
	return cmd
}
