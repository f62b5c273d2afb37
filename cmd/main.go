package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/app1/internal/adapters/http/api"
	"github.com/okian/app1/internal/adapters/http/swagger"
	"github.com/okian/app1/internal/adapters/http/throttle"
	app "github.com/okian/app1/internal/app"
	"github.com/okian/app1/internal/config"
	"github.com/okian/app1/internal/domain/clock"
	"github.com/okian/app1/pkg/logger"
	"github.com/okian/app1/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 10 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		logger.Get().Error(ctx, "app1 exited", logger.Error(err))
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// Defaults -> optional file -> env.
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	if err := logger.SetFormat(cfg.LogFormat); err != nil {
		return err
	}
	log := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	srv, cleanup, err := newServer(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	go startSystemMetricsUpdater(ctx)

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server",
			logger.String("addr", cfg.Addr),
			logger.String("base_path", cfg.BasePath),
			logger.Int("throttle_per_minute", cfg.ThrottlePerMinute))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	log.Info(ctx, "server stopped")
	return nil
}

// newServer assembles the service, routes and middleware for cfg. The
// returned cleanup stops the service.
func newServer(ctx context.Context, cfg *config.Config, log logger.Logger) (*http.Server, func(), error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, nil, err
	}
	svc := app.New(
		app.WithLogger(log.Named("service")),
		app.WithAppName(cfg.AppName),
		app.WithBasePath(cfg.BasePath),
		app.WithClock(clock.NewSystem(loc)),
	)
	if err := svc.Start(ctx); err != nil {
		return nil, nil, err
	}

	trusted, err := cfg.TrustedProxyPrefixes()
	if err != nil {
		return nil, nil, err
	}

	metrics.Configure(metrics.WithConstLabels(map[string]string{"app": cfg.AppName}))

	th := throttle.New(cfg.ThrottlePerMinute)
	go th.Run(ctx)

	mux := http.NewServeMux()
	swagger.Register(ctx, mux, swagger.WithTitle(cfg.AppName+" API"), swagger.WithBasePath(cfg.BasePath))

	apiServer := api.NewServer(svc, svc,
		api.WithThrottle(th),
		api.WithMaxBodyBytes(cfg.MaxBodyBytes),
		api.WithTrustedProxies(trusted),
		api.WithServerLogger(log.Named("http")),
	)
	apiServer.Register(ctx, mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           apiServer.Handler(mux),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	return srv, svc.Stop, nil
}

// startSystemMetricsUpdater refreshes runtime gauges until ctx is done.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}
