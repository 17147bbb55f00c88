package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kuitang/flowcheck/internal/config"
	"github.com/kuitang/flowcheck/internal/demoapp"
	"github.com/kuitang/flowcheck/internal/errs"
	"github.com/kuitang/flowcheck/internal/ratelimit"
)

// NewDemoCommand creates the demo command, which serves the built-in target
// application until interrupted. Useful for poking at the app by hand or for
// pointing an external flowcheck run at it.
func NewDemoCommand() *cobra.Command {
	flags := config.Flags{}

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Serve the built-in demo application",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(flags, "")
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), err)
				return &ExitError{Code: errs.ExitCode(errs.InvalidConfig)}
			}
			if err := serveDemo(cmd.Context(), cfg); err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), err)
				return &ExitError{Code: errs.ExitCode(errs.Launch)}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&flags.Addr, "addr", "", "listen address (default :8080 or FLOWCHECK_DEMO_ADDR)")
	return cmd
}

func serveDemo(ctx context.Context, cfg *config.Config) error {
	dataDir := cfg.DemoDataDir
	if dataDir == "" {
		dataDir = "."
	}
	store, err := demoapp.OpenStore(filepath.Join(dataDir, "demo.db"), os.Getenv("FLOWCHECK_DEMO_DB_KEY"))
	if err != nil {
		return fmt.Errorf("open demo store: %w", err)
	}
	defer store.Close()

	limiter := ratelimit.New(ratelimit.DefaultConfig)
	defer limiter.Stop()

	app := demoapp.New(demoapp.Options{Store: store, LoginLimiter: limiter})
	server := &http.Server{
		Addr:              cfg.DemoListenAddr,
		Handler:           app.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("demo application listening", "addr", cfg.DemoListenAddr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve demo app: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}
