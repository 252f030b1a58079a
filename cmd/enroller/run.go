package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/entrhq/enroller/pkg/artifact"
	"github.com/entrhq/enroller/pkg/availability"
	"github.com/entrhq/enroller/pkg/browser"
	"github.com/entrhq/enroller/pkg/config"
	"github.com/entrhq/enroller/pkg/console"
	"github.com/entrhq/enroller/pkg/counters"
	"github.com/entrhq/enroller/pkg/logging"
	"github.com/entrhq/enroller/pkg/metrics"
	"github.com/entrhq/enroller/pkg/netcheck"
	"github.com/entrhq/enroller/pkg/notify"
	"github.com/entrhq/enroller/pkg/portal"
	"github.com/entrhq/enroller/pkg/registerer"
)

const (
	notifyTimeout   = 2 * time.Minute
	shutdownTimeout = 5 * time.Second
)

var (
	_ registerer.AvailabilityService = (*availability.Checker)(nil)
	_ registerer.PortalService       = (*portal.Portal)(nil)
	_ registerer.ArtifactStore       = (*artifact.Store)(nil)
	_ registerer.ConnectivityProbe   = (*netcheck.DNSProbe)(nil)
	_ registerer.Reporter            = (*console.Reporter)(nil)
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Poll for a seat and register when one opens",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("config")
			debug, _ := cmd.Flags().GetBool("debug")

			cfg, err := config.Load(path)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(sigChan)
			go func() {
				select {
				case <-sigChan:
					fmt.Fprintln(os.Stderr, "\n\nShutting down gracefully...")
					cancel()
				case <-ctx.Done():
				}
			}()

			if code := run(ctx, cfg, debug); code != exitOK {
				return exitCode(code)
			}
			return nil
		},
	}
}

// run wires every component from cfg, drives the orchestrator to a terminal
// state and returns the exit status.
func run(ctx context.Context, cfg *config.Config, debug bool) int {
	logger, closer, err := logging.Setup(logging.Options{
		Level: cfg.Logging.Level,
		Debug: debug,
		File:  cfg.Logging.File,
	})
	if err != nil {
		logger.Warn("log file unavailable", "path", cfg.Logging.File, "error", err)
	}
	defer closer.Close()

	verbosity := cfg.Logging.Verbosity
	if debug {
		verbosity = "debug"
	}
	reporter := console.NewReporter(console.ParseLogLevel(verbosity))
	reporter.Header("Enroller")
	reporter.Infof("Course %s (%s %s) as %s", cfg.Registration.CourseID, cfg.Registration.TermLabel, cfg.Registration.Term, cfg.Credentials)

	storeOpts := []artifact.Option{artifact.WithLogger(logger)}
	if cfg.Artifacts.StampPDF {
		storeOpts = append(storeOpts, artifact.WithStamp(logging.RunID()))
	}
	store, err := artifact.NewStore(cfg.Artifacts.Dir, cfg.Artifacts.Keep, storeOpts...)
	if err != nil {
		return setupFailed(reporter, logger, "artifact store", err)
	}
	if err := store.Initialize(); err != nil {
		return setupFailed(reporter, logger, "artifact store", err)
	}

	timeout := time.Duration(cfg.Timing.NavigationMs) * time.Millisecond
	manager := browser.NewManager(browser.Options{
		Headless: cfg.Browser.Headless,
		Install:  cfg.Browser.Install,
		Args:     cfg.Browser.Args,
		Timeout:  timeout,
	})
	if err := manager.Initialize(); err != nil {
		return setupFailed(reporter, logger, "browser", err)
	}
	defer func() {
		if err := manager.Shutdown(); err != nil {
			logger.Warn("browser shutdown failed", "error", err)
		}
	}()

	orch, err := registerer.New(
		registerer.Settings{
			Credentials: cfg.Credentials,
			Target:      cfg.Registration,
			Timing:      cfg.Timing,
		},
		registerer.Deps{
			Availability: availability.New(manager, availability.Options{
				URL:          cfg.Availability.URL,
				FullSentinel: cfg.Availability.FullSentinel,
				Timeout:      timeout,
			}, logger),
			Portal: portal.New(manager, portal.Options{
				URL:              cfg.Portal.URL,
				SubmitCandidates: cfg.Portal.SubmitCandidates,
				Timeout:          timeout,
			}, logger),
			Artifacts: store,
			Probe:     netcheck.NewDNSProbe(cfg.Connectivity.Host, time.Duration(cfg.Connectivity.TimeoutMs)*time.Millisecond),
			Reporter:  reporter,
		},
		registerer.WithLogger(logger),
	)
	if err != nil {
		return setupFailed(reporter, logger, "orchestrator", err)
	}

	if cfg.Status.Port > 0 {
		srv := metrics.NewServer(func() metrics.Snapshot {
			snap := orch.Snapshot()
			return metrics.Snapshot{State: snap.State.String(), Counters: snap.Counters}
		}, logging.RunID(), cfg.Status.Port)

		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("status server failed", "error", err)
			}
		}()
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Stop(stopCtx); err != nil {
				logger.Warn("status server shutdown failed", "error", err)
			}
		}()
		reporter.Verbosef("Status server listening on :%d", cfg.Status.Port)
	}

	runErr := orch.Run(ctx)

	return finish(ctx, outcome{
		Err:          runErr,
		CourseID:     cfg.Registration.CourseID,
		Counters:     orch.Counters(),
		ArtifactsDir: store.Dir(),
	}, notify.New(cfg.Notify, notify.WithLogger(logger)), reporter, logger)
}

// outcome is how a run ended.
type outcome struct {
	Err          error
	CourseID     string
	Counters     counters.Counters
	ArtifactsDir string
}

// finish reports the outcome, sends the matching notification and maps it to
// an exit status. An interrupted run sends nothing.
func finish(ctx context.Context, o outcome, notifier notify.Notifier, reporter *console.Reporter, logger *slog.Logger) int {
	if errors.Is(o.Err, context.Canceled) {
		reporter.Warningf("Run interrupted after %s", o.Counters)
		logger.Info("run interrupted", "counters", o.Counters.String())
		return exitInterrupted
	}

	// the run context may already be done; delivery gets its own deadline
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()

	reporter.Summary(o.CourseID, o.Counters, o.ArtifactsDir, o.Err)

	if o.Err == nil {
		delivery, err := notifier.SendSuccess(sendCtx, o.CourseID)
		logDelivery(logger, "success", delivery, err)
		return exitOK
	}

	logger.Error("run failed", "error", o.Err, "counters", o.Counters.String())
	delivery, err := notifier.SendFailure(sendCtx, o.Err)
	logDelivery(logger, "failure", delivery, err)
	return exitFailure
}

func logDelivery(logger *slog.Logger, kind string, delivery notify.Delivery, err error) {
	if err != nil {
		logger.Error("notification failed", "kind", kind, "error", err)
		return
	}
	logger.Info("notification handled", "kind", kind, "delivery", delivery.String())
}

func setupFailed(reporter *console.Reporter, logger *slog.Logger, component string, err error) int {
	reporter.Errorf("Failed to initialize %s: %v", component, err)
	logger.Error("setup failed", "component", component, "error", err)
	return exitFailure
}
