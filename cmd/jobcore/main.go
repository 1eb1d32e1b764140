// Command jobcore runs the job orchestration service: it consumes commands
// from NATS JetStream, applies them against PostgreSQL, mirrors progress
// into Redis, fails stalled jobs on a schedule, and serves Prometheus
// metrics.
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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"golang.org/x/sync/errgroup"

	audithook "github.com/xraph/jobcore/audit_hook"
	"github.com/xraph/jobcore/backoff"
	"github.com/xraph/jobcore/engine"
	"github.com/xraph/jobcore/progress"
	"github.com/xraph/jobcore/store/postgres"
	"github.com/xraph/jobcore/supervisor"
	jnats "github.com/xraph/jobcore/transport/nats"
)

func main() {
	if err := run(); err != nil {
		slog.Error("jobcore exited", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.level()}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	exporter, err := otelprom.New(otelprom.WithRegisterer(reg))
	if err != nil {
		return fmt.Errorf("prometheus exporter: %w", err)
	}
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	defer func() { _ = mp.Shutdown(context.Background()) }()

	// Storage
	s, err := postgres.New(ctx, cfg.DatabaseURL, postgres.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	if cfg.AutoMigrate {
		if err := s.Migrate(ctx); err != nil {
			_ = s.Close()
			return fmt.Errorf("migrate: %w", err)
		}
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
	defer func() { _ = rdb.Close() }()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unavailable, progress pushes will fail until it recovers",
			slog.String("addr", cfg.RedisAddr),
			slog.String("error", err.Error()),
		)
	}

	nc, js, err := jnats.Connect(cfg.NATSURL)
	if err != nil {
		_ = s.Close()
		return err
	}
	defer nc.Close()
	if cfg.EnsureStream {
		if err := jnats.EnsureStream(js, cfg.Stream, cfg.SubjectPrefix); err != nil {
			_ = s.Close()
			return err
		}
	}

	// Engine
	engOpts := []engine.Option{
		engine.WithLogger(logger),
		engine.WithConfig(cfg.core()),
		engine.WithMeterProvider(mp),
		engine.WithExtension(progress.New(rdb,
			progress.WithTTL(cfg.ProgressTTL),
			progress.WithChannel(cfg.ProgressChannel),
			progress.WithLogger(logger),
		)),
	}
	if cfg.AuditEnabled {
		auditLogger := logger.With(slog.String("component", "audit"))
		engOpts = append(engOpts, engine.WithExtension(
			audithook.New(audithook.NewLogRecorder(auditLogger), audithook.WithLogger(logger)),
		))
	}
	eng, err := engine.New(s, engOpts...)
	if err != nil {
		_ = s.Close()
		return fmt.Errorf("engine: %w", err)
	}

	consumer := jnats.NewConsumer(js, eng,
		jnats.WithStream(cfg.Stream),
		jnats.WithSubjectPrefix(cfg.SubjectPrefix),
		jnats.WithQueue(cfg.Queue),
		jnats.WithMaxDeliver(cfg.MaxDeliver),
		jnats.WithAckWait(cfg.AckWait),
		jnats.WithBackoff(backoff.DefaultStrategy()),
		jnats.WithLogger(logger),
	)
	sup := supervisor.New(s, eng,
		supervisor.WithSchedule(cfg.SupervisorSchedule),
		supervisor.WithStaleAfter(cfg.StaleAfter),
		supervisor.WithLogger(logger),
	)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := s.Ping(r.Context()); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	srv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	logger.Info("jobcore starting",
		slog.String("metrics_addr", cfg.MetricsAddr),
		slog.String("stream", cfg.Stream),
		slog.String("queue", cfg.Queue),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return consumer.Run(gctx) })
	g.Go(func() error { return sup.Run(gctx) })
	g.Go(func() error {
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	runErr := g.Wait()

	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := eng.Stop(stopCtx); err != nil {
		logger.Warn("engine stop", slog.String("error", err.Error()))
	}
	logger.Info("jobcore stopped")
	return runErr
}
