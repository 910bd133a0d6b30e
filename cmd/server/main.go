package main

import (
	"context"
	"log"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	apiHandler "github.com/fastygo/acreage/api/handler"
	"github.com/fastygo/acreage/internal/config"
	"github.com/fastygo/acreage/internal/infrastructure/gotrue"
	"github.com/fastygo/acreage/internal/infrastructure/monitor"
	"github.com/fastygo/acreage/internal/metrics"
	"github.com/fastygo/acreage/internal/middleware"
	"github.com/fastygo/acreage/internal/router"
	"github.com/fastygo/acreage/internal/services"
	"github.com/fastygo/acreage/internal/services/lifecycle"
	"github.com/fastygo/acreage/pkg/httpcontext"
	"github.com/fastygo/acreage/pkg/logger"
	"github.com/fastygo/acreage/pkg/retry"
	"github.com/fastygo/acreage/usecase/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config error: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{
		Level:       cfg.Logger.Level,
		Encoding:    cfg.Logger.Encoding,
		App:         cfg.AppName,
		Environment: cfg.Environment,
	})
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer zapLogger.Sync()

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	manager := lifecycle.New(cfg.Context.ShutdownTimeout, zapLogger)
	manager.Listen(cancel)

	store, err := services.OpenStorage(appCtx, cfg.Storage, manager, zapLogger)
	if err != nil {
		zapLogger.Fatal("local storage unavailable", zap.Error(err))
	}

	provider, err := gotrue.New(gotrue.Config{
		URL:     cfg.Provider.URL,
		AnonKey: cfg.Provider.AnonKey,
		Timeout: cfg.Provider.HTTPTimeout,
	}, zapLogger)
	if err != nil {
		zapLogger.Fatal("identity provider client failed", zap.Error(err))
	}

	registry, recorder := metrics.NewRegistry()

	sessions := session.New(provider, store, session.Config{
		CacheKey:    cfg.Storage.CacheKey,
		RedirectURL: cfg.Provider.RedirectURL,
		AuthPolicy: retry.Policy{
			MaxAttempts: cfg.Retry.AuthAttempts,
			Delay:       cfg.Retry.AuthDelay,
			Timeout:     cfg.Retry.AuthTimeout,
		},
		SignOutPolicy: retry.Policy{
			MaxAttempts: cfg.Retry.SignOutAttempts,
			Delay:       cfg.Retry.SignOutDelay,
			Timeout:     cfg.Retry.SignOutTimeout,
		},
		SkipRejectedRetries: cfg.Retry.SkipRejected,
	}, zapLogger, session.WithRecorder(recorder))
	sessions.Start(appCtx)
	manager.RegisterStop("session_manager", sessions.Stop)
	zapLogger.Info("session restored", zap.Bool("authenticated", sessions.IsAuthenticated()))

	refresher := gotrue.NewRefresher(provider, gotrue.RefresherConfig{
		Interval: cfg.Provider.RefreshInterval,
		Margin:   cfg.Provider.RefreshMargin,
	}, zapLogger)
	refresher.Start()
	manager.Register("session_refresher", func(ctx context.Context) error {
		refresher.Stop(ctx)
		return nil
	})

	mon := monitor.New(provider, store, recorder, cfg.Context.MonitorInterval, zapLogger)
	mon.Start()
	manager.RegisterStop("monitor", mon.Stop)

	ctxAdapter := httpcontext.NewAdapter(cfg.Context.RequestTimeout)

	handlers := router.Handlers{
		Auth:    apiHandler.NewAuthHandler(sessions, ctxAdapter, zapLogger),
		Profile: apiHandler.NewProfileHandler(sessions, ctxAdapter, zapLogger),
		Health:  apiHandler.NewHealthHandler(mon, sessions.State, ctxAdapter, zapLogger),
	}
	if cfg.HTTP.EnableMetrics {
		handlers.Metrics = metrics.Handler(registry)
	}

	r := router.New(handlers, middleware.RequireSession(sessions.State, zapLogger))

	server := &fasthttp.Server{
		Handler:      r.Handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
		Name:         cfg.AppName,
	}

	go func() {
		zapLogger.Info("server started", zap.String("address", cfg.Address()))
		if err := server.ListenAndServe(cfg.Address()); err != nil {
			zapLogger.Fatal("server crashed", zap.Error(err))
		}
	}()

	manager.Register("http_server", func(ctx context.Context) error {
		return server.ShutdownWithContext(ctx)
	})

	<-appCtx.Done()

	if err := manager.Shutdown(context.Background()); err != nil {
		zapLogger.Error("graceful shutdown error", zap.Error(err))
	}
}
