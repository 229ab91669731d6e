package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/custodian/pkg/audit/retention"
	"mercator-hq/custodian/pkg/cli"
	"mercator-hq/custodian/pkg/config"
	"mercator-hq/custodian/pkg/telemetry/health"
)

var runFlags struct {
	noMetrics bool
	noWatch   bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the retention scheduler",
	Long: `Run the retention scheduler in the foreground.

The scan job marks events that reached their retention date and raises a
retention warning. The delete job runs a deletion pass on its schedule, but
only while the stored policy has auto-delete enabled.

Metrics are served on telemetry.metrics.listen_address, together with the
/health, /ready and /version endpoints. When --config names
a file, it is watched and reloaded on change; schedules take effect on the
next start.

Examples:
  # Run with a configuration file
  custodian run --config config.yaml

  # Run without the metrics endpoint
  custodian run --no-metrics`,
	RunE: runScheduler,
}

func init() {
	runCmd.Flags().BoolVar(&runFlags.noMetrics, "no-metrics", false, "do not serve the metrics endpoint")
	runCmd.Flags().BoolVar(&runFlags.noWatch, "no-watch", false, "do not reload the config file on change")
	rootCmd.AddCommand(runCmd)
}

func runScheduler(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := cli.SetupSignalHandler(cmd.Context())
	defer cancel()

	opts := a.retentionOptions()
	sched := retention.NewScheduler(
		retention.NewDeleter(a.store, opts...),
		retention.NewScanner(a.store, opts...),
		retention.NewPolicyService(a.store, opts...),
		retention.ScheduleConfig{
			ScanSchedule:   a.cfg.Retention.ScanSchedule,
			DeleteSchedule: a.cfg.Retention.DeleteSchedule,
			Actor:          a.cfg.Retention.Actor,
			BatchSize:      a.cfg.Retention.BatchSize,
			RunTimeout:     a.cfg.Retention.RunTimeout,
		},
		opts...,
	)
	if err := sched.Start(ctx); err != nil {
		return cli.NewConfigError("retention", err.Error())
	}
	defer sched.Stop()

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "✓ Retention scheduler started")
	for _, job := range []string{retention.JobScan, retention.JobDelete} {
		if next := sched.NextRun(job); next != nil {
			fmt.Fprintf(out, "  %s: next run %s\n", job, next.Format(time.RFC3339))
		}
	}

	if !runFlags.noMetrics && a.cfg.Telemetry.Metrics.Enabled {
		var mounts []func(*http.ServeMux)
		if a.cfg.Telemetry.Health.Enabled {
			checker := health.New(a.cfg.Telemetry.Health.CheckTimeout)
			checker.Register("store", health.StoreCheck(a.store))
			checker.Register("scheduler", health.RunningCheck("retention scheduler", sched.IsRunning))
			mounts = append(mounts, func(mux *http.ServeMux) {
				checker.Mount(mux, Version, GitCommit, BuildDate)
			})
		}
		srv := a.metrics.NewServer(a.cfg.Telemetry.Metrics.ListenAddress, a.cfg.Telemetry.Metrics.Path, mounts...)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.Error("metrics server failed", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			_ = srv.Shutdown(shutdownCtx)
		}()
		fmt.Fprintf(out, "✓ Metrics on http://%s%s\n", a.cfg.Telemetry.Metrics.ListenAddress, a.cfg.Telemetry.Metrics.Path)
	}

	if cfgFile != "" && !runFlags.noWatch {
		watcher, err := config.NewWatcher(cfgFile, 0, a.logger)
		if err != nil {
			return fmt.Errorf("failed to watch config: %w", err)
		}
		config.OnReload(func(cfg *config.Config) {
			a.logger.Info("configuration reloaded",
				"scan_schedule", cfg.Retention.ScanSchedule,
				"delete_schedule", cfg.Retention.DeleteSchedule,
			)
		})
		go func() {
			if err := watcher.Watch(ctx); err != nil {
				a.logger.Warn("config watcher stopped", "error", err)
			}
		}()
		defer watcher.Stop()
	}

	<-ctx.Done()
	fmt.Fprintln(out, "Shutting down...")
	return nil
}
