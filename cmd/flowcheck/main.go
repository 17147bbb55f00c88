// Command flowcheck verifies interactive UI flows against a live web
// application by driving a real browser.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/kuitang/flowcheck/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
}
