package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/mobilepoint/apexorder/internal/config"
	"github.com/mobilepoint/apexorder/internal/metrics"
	"github.com/mobilepoint/apexorder/internal/repository/remote"
	"github.com/mobilepoint/apexorder/internal/repository/sheets"
	"github.com/mobilepoint/apexorder/internal/scheduler"
	"github.com/mobilepoint/apexorder/internal/server/handlers"
	"github.com/mobilepoint/apexorder/internal/server/router"
	"github.com/mobilepoint/apexorder/internal/service/pipeline"
	"github.com/mobilepoint/apexorder/internal/tabular"
	whatsappclient "github.com/mobilepoint/apexorder/pkg/clients/whatsapp"
	"github.com/mobilepoint/apexorder/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.LogLevel))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	opts, err := cfg.PipelineOptions()
	if err != nil {
		baseLogger.Fatal("failed to build pipeline options", zap.Error(err))
	}

	registry := metrics.NewRegistry()
	driver, err := pipeline.NewDriver(opts, registry, logger.Named(baseLogger, "svc.pipeline"))
	if err != nil {
		baseLogger.Fatal("failed to init pipeline", zap.Error(err))
	}
	baseLogger.Info("pipeline configured",
		zap.Stringer("tiers", driver.Calculator().Tiers()),
		zap.String("shortage_policy", string(driver.Calculator().Policy())),
		zap.Float64("price_multiplier", cfg.Pipeline.PriceMultiplier))

	input := tabular.Options{Encoding: cfg.Input.CSVEncoding, Sheet: cfg.Input.Sheet}
	orderHandler := handlers.NewOrderHandler(driver, input, cfg.Server.MaxUploadMB<<20, logger.Named(baseLogger, "handlers.orders"))
	engine := router.New(orderHandler, registry.Handler(), logger.Named(baseLogger, "router"))

	if cfg.Schedule.Enabled() {
		sched := newScheduler(cfg, driver, input, baseLogger)
		if err := sched.Start(); err != nil {
			baseLogger.Fatal("failed to start scheduler", zap.Error(err))
		}
		defer sched.Stop()
	} else {
		baseLogger.Info("order schedule not configured, scheduled runs disabled")
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func newScheduler(cfg *config.Config, driver *pipeline.Driver, input tabular.Options, baseLogger *zap.Logger) *scheduler.Scheduler {
	sheetsRepo, err := sheets.NewGoogleSheetRepository(context.Background(), cfg.Sheets, logger.Named(baseLogger, "repo.sheets"))
	if err != nil {
		baseLogger.Fatal("failed to init sheets repository", zap.Error(err))
	}

	var fetcher scheduler.CatalogFetcher
	if cfg.RemoteURL != "" {
		fetcher = remote.NewFetcher(input, logger.Named(baseLogger, "repo.remote"))
	}

	var notifier scheduler.Notifier
	if cfg.WhatsApp.Enabled() {
		notifier = whatsappclient.NewClient(cfg.WhatsApp)
		baseLogger.Info("whatsapp order notifications enabled")
	}

	sched, err := scheduler.NewScheduler(*cfg, driver, sheetsRepo, fetcher, notifier, logger.Named(baseLogger, "scheduler"))
	if err != nil {
		baseLogger.Fatal("failed to init scheduler", zap.Error(err))
	}
	return sched
}
