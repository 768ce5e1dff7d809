package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/donaldgifford/stock-monitor/internal/api"
	"github.com/donaldgifford/stock-monitor/internal/engine"
	"github.com/donaldgifford/stock-monitor/internal/metrics"
	"github.com/donaldgifford/stock-monitor/internal/telemetry"
)

const shutdownTimeout = 10 * time.Second

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start monitoring until interrupted",
		Long: "Runs a monitoring cycle immediately and then every schedule.interval.\n" +
			"When server.enabled is set the ops API is served alongside.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMonitor(cmd.Context())
		},
	}
}

func runMonitor(parent context.Context) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, &cfg.Telemetry, Version)
	if err != nil {
		return fmt.Errorf("setting up telemetry: %w", err)
	}
	defer func() {
		tctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(tctx); err != nil {
			log.Warn("flushing traces", "error", err)
		}
	}()

	m, err := buildMonitor(ctx, cfg, log, false)
	if err != nil {
		return err
	}
	defer m.close()

	sched, err := engine.NewScheduler(m.engine, cfg.Schedule.Interval, cfg.Schedule.Heartbeat,
		engine.WithRecoveryInterval(cfg.Schedule.RecoveryInterval),
		engine.WithFailureReports(cfg.Notifications.ReportErrors),
		engine.WithSchedulerLogger(log),
	)
	if err != nil {
		return err
	}

	log.Info("stock monitor starting",
		"version", Version,
		"items", len(cfg.Items),
		"interval", cfg.Schedule.Interval,
		"strategies", cfg.Shopee.Strategies,
		"state_backend", cfg.State.Backend,
		"notify_backend", cfg.Notifications.Backend,
	)

	var srv *api.Server
	srvErr := make(chan error, 1)
	if cfg.Server.Enabled {
		srv = api.NewServer(api.Deps{
			Monitor: m.engine,
			Trigger: sched,
			Links:   m.client,
			Logger:  log,
			Version: Version,
		})
		go func() {
			srvErr <- srv.Start(cfg.Server.Addr(), cfg.Server.ReadTimeout, cfg.Server.WriteTimeout)
		}()
	}

	if cfg.Notifications.NotifyOnStart {
		m.engine.SendStartup(ctx, cfg.Schedule.Interval)
	}

	schedErr := make(chan error, 1)
	go func() { schedErr <- sched.Run(ctx) }()

	runErr := awaitScheduler(schedErr, srvErr, log)

	log.Info("shutting down")

	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if srv != nil {
		if err := srv.Shutdown(sctx); err != nil {
			log.Warn("ops server shutdown", "error", err)
		}
	}

	if cfg.Notifications.NotifyOnStop {
		m.engine.SendStopped(sctx, "stopped by signal")
	}

	log.Info("stock monitor stopped")
	return runErr
}

// awaitScheduler blocks until the scheduler loop returns. The ops server is
// optional: if it fails the error is logged and counted and monitoring
// carries on without it.
func awaitScheduler(schedErr, srvErr <-chan error, log *slog.Logger) error {
	for {
		select {
		case err := <-schedErr:
			return err
		case err := <-srvErr:
			srvErr = nil
			if err != nil {
				metrics.OpsServerFailuresTotal.Inc()
				log.Error("ops server failed, monitoring continues without it", "error", err)
			}
		}
	}
}
