package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/spf13/cobra"

	"github.com/kuitang/flowcheck/internal/artifact"
	"github.com/kuitang/flowcheck/internal/authsuite"
	"github.com/kuitang/flowcheck/internal/config"
	"github.com/kuitang/flowcheck/internal/demoapp"
	"github.com/kuitang/flowcheck/internal/errs"
	"github.com/kuitang/flowcheck/internal/fixture"
	"github.com/kuitang/flowcheck/internal/flow"
	"github.com/kuitang/flowcheck/internal/obs"
	"github.com/kuitang/flowcheck/internal/ratelimit"
	"github.com/kuitang/flowcheck/internal/report"
)

var log = obs.Pkg("cli")

// NewRunCommand creates the run command. The optional positional argument
// filters chains by name.
func NewRunCommand() *cobra.Command {
	flags := config.Flags{}

	cmd := &cobra.Command{
		Use:   "run [pattern]",
		Short: "Run the verification suite against a target application",
		Long: "Runs the registration, login, and logout verification chains. Without\n" +
			"--target, a built-in demo application is started for the run and torn\n" +
			"down afterwards. Exits 0 when every scenario passes, 1 on verification\n" +
			"failure, 2 when the run could not start.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pattern := ""
			if len(args) == 1 {
				pattern = args[0]
			}
			cfg, err := config.Load(flags, pattern)
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), err)
				return &ExitError{Code: errs.ExitCode(errs.InvalidConfig)}
			}

			summary, err := runSuite(cmd.Context(), cmd, cfg)
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), err)
				return &ExitError{Code: errs.ExitCode(errs.CodeOf(err))}
			}
			fmt.Fprint(cmd.OutOrStdout(), summary.Text())
			if code := summary.ExitCode(); code != 0 {
				return &ExitError{Code: code}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&flags.Target, "target", "", "base URL of the application under verification (default: self-hosted demo)")
	cmd.Flags().BoolVar(&flags.Headless, "headless", true, "run the browser headless")
	cmd.Flags().IntVar(&flags.Retries, "retries", 0, "whole-scenario retries after a failure")
	cmd.Flags().StringVar(&flags.ArtifactsDir, "artifacts-dir", "", "local directory for screenshots and reports")
	return cmd
}

func runSuite(ctx context.Context, cmd *cobra.Command, cfg *config.Config) (*report.Summary, error) {
	runID := fixture.NewRunID()
	started := time.Now()
	log.Info("starting run", "run_id", runID, "target", cfg.TargetURL, "pattern", cfg.Pattern)
	ctx = obs.WithCorrelation(ctx, obs.Correlation{RunID: runID})

	target := cfg.TargetURL
	if cfg.SelfHost() {
		demo, err := startDemo(cfg)
		if err != nil {
			return nil, err
		}
		defer demo.stop()
		target = demo.url
		log.Info("self-hosted demo application", "url", target)
	}

	chains := flow.FilterChains(authsuite.Chains(fixture.NewCredentials("flow")), cfg.Pattern)
	if len(chains) == 0 {
		return nil, errs.Newf(errs.InvalidConfig, "no chains match pattern %q", cfg.Pattern)
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, errs.Wrap(errs.Launch, "start playwright driver", err)
	}
	defer pw.Stop()

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(cfg.Headless),
	})
	if err != nil {
		return nil, errs.Wrap(errs.Launch, "launch browser", err)
	}
	defer browser.Close()

	readySelector := cfg.ReadySelector
	if readySelector == "" {
		readySelector = flow.DefaultReadySelector
	}
	factory := func() (*flow.Session, error) {
		return flow.NewSession(browser, flow.SessionOptions{
			BaseURL:       target,
			StepTimeout:   cfg.StepTimeout,
			ReadySelector: readySelector,
		})
	}

	runner := flow.NewRunner(flow.RunnerOptions{
		ScenarioTimeout: cfg.ScenarioTimeout,
		Retries:         cfg.Retries,
	})
	var results []flow.Result
	for _, chain := range chains {
		results = append(results, runner.RunChain(ctx, factory, chain)...)
	}

	store, err := artifactStore(ctx, cfg)
	if err != nil {
		log.Error("artifact store unavailable, skipping artifacts", "error", err)
		store = nil
	}
	if store != nil {
		artifact.SaveScreenshots(ctx, store, runID, results)
	}

	summary := report.New(runID, target, started, results)
	if store != nil {
		location, err := artifact.SaveReport(ctx, store, summary)
		if err != nil {
			log.Error("store report", "error", err)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "report: %s\n", location)
		}
	}
	return summary, nil
}

// artifactStore picks S3 when fully configured, a local directory when set,
// and nil when artifacts are disabled.
func artifactStore(ctx context.Context, cfg *config.Config) (artifact.Store, error) {
	if cfg.S3Enabled() {
		return artifact.NewS3(ctx, artifact.S3Config{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			Bucket:          cfg.S3Bucket,
			PublicURL:       cfg.S3PublicURL,
		})
	}
	if cfg.ArtifactsDir != "" {
		return artifact.NewDir(cfg.ArtifactsDir)
	}
	return nil, nil
}

type demoHandle struct {
	url  string
	stop func()
}

// startDemo boots the built-in target on an ephemeral port with a throwaway
// database, so every self-hosted run verifies a pristine application.
func startDemo(cfg *config.Config) (*demoHandle, error) {
	dataDir := cfg.DemoDataDir
	cleanupDir := func() {}
	if dataDir == "" {
		tmp, err := os.MkdirTemp("", "flowcheck-demo-")
		if err != nil {
			return nil, errs.Wrap(errs.Launch, "create demo data dir", err)
		}
		dataDir = tmp
		cleanupDir = func() { os.RemoveAll(tmp) }
	}

	store, err := demoapp.OpenStore(filepath.Join(dataDir, "demo.db"), "")
	if err != nil {
		cleanupDir()
		return nil, errs.Wrap(errs.Launch, "open demo store", err)
	}
	limiter := ratelimit.New(ratelimit.DefaultConfig)
	app := demoapp.New(demoapp.Options{Store: store, LoginLimiter: limiter})

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		limiter.Stop()
		store.Close()
		cleanupDir()
		return nil, errs.Wrap(errs.Launch, "listen for demo app", err)
	}

	server := &http.Server{Handler: app.Handler()}
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("demo server stopped", "error", err)
		}
	}()

	return &demoHandle{
		url: "http://" + listener.Addr().String(),
		stop: func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = server.Shutdown(shutdownCtx)
			limiter.Stop()
			store.Close()
			cleanupDir()
		},
	}, nil
}
