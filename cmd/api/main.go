package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/angelmondragon/sponsorlens-backend/api/controllers"
	"github.com/angelmondragon/sponsorlens-backend/api/routes"
	"github.com/angelmondragon/sponsorlens-backend/internal/bootstrap"
	"github.com/angelmondragon/sponsorlens-backend/pkg/config"
	"github.com/angelmondragon/sponsorlens-backend/pkg/logger"
	"github.com/angelmondragon/sponsorlens-backend/pkg/metrics"
	pkgredis "github.com/angelmondragon/sponsorlens-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	rt, err := bootstrap.Open(ctx, cfg, logg, reg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap dependencies", err)
		os.Exit(1)
	}
	defer func() {
		if err := rt.Close(); err != nil {
			logg.Error(context.Background(), "error closing dependencies", err)
		}
	}()

	deps := []controllers.Dependency{{Name: "db", Pinger: rt.DB}}
	var idemStore pkgredis.IdempotencyStore
	if rt.Redis != nil {
		deps = append(deps, controllers.Dependency{Name: "redis", Pinger: rt.Redis})
		idemStore = rt.Redis
	}
	if rt.BigQuery != nil {
		deps = append(deps, controllers.Dependency{Name: "bigquery", Pinger: rt.BigQuery})
	}
	if rt.PubSub != nil {
		deps = append(deps, controllers.Dependency{Name: "pubsub", Pinger: rt.PubSub, Optional: true})
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	serverCtx := logg.WithFields(ctx, map[string]any{
		"env":          cfg.App.Env,
		"addr":         addr,
		"event_source": cfg.Attribution.Source(),
	})

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Params{
			Config:           cfg,
			Logger:           logg,
			Attribution:      rt.Attribution,
			IdempotencyStore: idemStore,
			HTTPMetrics:      metrics.NewHTTPMetrics(reg),
			Gatherer:         reg,
			Dependencies:     deps,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logg.Info(serverCtx, "starting api server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logg.Error(serverCtx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logg.Info(serverCtx, "shutting down api server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logg.Error(serverCtx, "graceful shutdown failed", err)
	}
}
