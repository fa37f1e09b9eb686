package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"go.uber.org/zap"

	"github.com/glosspoint/nailstock/internal/config"
	"github.com/glosspoint/nailstock/internal/repository/mongodb"
	"github.com/glosspoint/nailstock/internal/repository/sheets"
	"github.com/glosspoint/nailstock/internal/scheduler"
	"github.com/glosspoint/nailstock/internal/server/handlers"
	"github.com/glosspoint/nailstock/internal/server/router"
	catalogsvc "github.com/glosspoint/nailstock/internal/service/catalog"
	dashboardsvc "github.com/glosspoint/nailstock/internal/service/dashboard"
	inventorysvc "github.com/glosspoint/nailstock/internal/service/inventory"
	onboardingsvc "github.com/glosspoint/nailstock/internal/service/onboarding"
	statssvc "github.com/glosspoint/nailstock/internal/service/stats"
	usagesvc "github.com/glosspoint/nailstock/internal/service/usage"
	"github.com/glosspoint/nailstock/pkg/clients/alerts"
	"github.com/glosspoint/nailstock/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New())
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	mongoClient, err := mongodb.Connect(context.Background(), cfg.MongoDB.URI, cfg.MongoDB.DBName, baseLogger.Named("repo.mongodb"))
	if err != nil {
		baseLogger.Fatal("failed to init mongodb client", zap.Error(err))
	}
	defer func() {
		if err := mongoClient.Close(context.Background()); err != nil {
			baseLogger.Error("failed to close mongodb connection", zap.Error(err))
		}
	}()

	if err := mongoClient.EnsureIndexes(context.Background()); err != nil {
		baseLogger.Fatal("failed to ensure indexes", zap.Error(err))
	}

	storeRepo := mongodb.NewStoreRepository(mongoClient)
	userRepo := mongodb.NewUserRepository(mongoClient)
	productRepo := mongodb.NewProductRepository(mongoClient)
	serviceTypeRepo := mongodb.NewServiceTypeRepository(mongoClient)
	usageRepo := mongodb.NewUsageRepository(mongoClient)
	statRepo := mongodb.NewStatRepository(mongoClient)
	activityRepo := mongodb.NewActivityRepository(mongoClient)

	statsSvc := statssvc.NewService(statRepo, baseLogger.Named("svc.stats"))
	inventorySvc := inventorysvc.NewService(mongoClient, storeRepo, userRepo, productRepo, activityRepo, baseLogger.Named("svc.inventory"))
	usageSvc := usagesvc.NewService(mongoClient, userRepo, productRepo, serviceTypeRepo, usageRepo, activityRepo, statsSvc, baseLogger.Named("svc.usage"))
	catalogSvc := catalogsvc.NewService(serviceTypeRepo, storeRepo, activityRepo, baseLogger.Named("svc.catalog"))
	dashboardSvc := dashboardsvc.NewService(productRepo, usageRepo, activityRepo, statsSvc, baseLogger.Named("svc.dashboard"))
	onboardingSvc := onboardingsvc.NewService(mongoClient, storeRepo, userRepo, activityRepo, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, baseLogger.Named("svc.onboarding"))

	var notifier alerts.Notifier
	if cfg.Alerts.WebhookURL != "" {
		notifier = alerts.NewWebhookNotifier(cfg.Alerts.WebhookURL)
		baseLogger.Info("low stock alert webhook enabled")
	} else {
		baseLogger.Warn("STOCK_ALERT_WEBHOOK_URL missing, low stock alerts disabled")
	}

	var exporter sheets.Exporter
	if cfg.Sheets.CredentialsPath != "" {
		exporter, err = sheets.NewGoogleSheetExporter(context.Background(), cfg.Sheets, baseLogger.Named("repo.sheets"))
		if err != nil {
			baseLogger.Fatal("failed to init sheets exporter", zap.Error(err))
		}
		baseLogger.Info("monthly report export enabled")
	} else {
		baseLogger.Warn("sheets credentials missing, monthly report export disabled")
	}

	engine := router.New(router.Handlers{
		Auth:      handlers.NewAuthHandler(onboardingSvc, baseLogger.Named("handlers.auth")),
		Products:  handlers.NewProductHandler(inventorySvc, baseLogger.Named("handlers.products")),
		Usage:     handlers.NewUsageHandler(usageSvc, baseLogger.Named("handlers.usage")),
		Catalog:   handlers.NewCatalogHandler(catalogSvc, baseLogger.Named("handlers.catalog")),
		Dashboard: handlers.NewDashboardHandler(dashboardSvc, activityRepo, baseLogger.Named("handlers.dashboard")),
	}, cfg.Auth.JWTSecret, baseLogger.Named("router"))

	sched := scheduler.NewScheduler(*cfg, productRepo, statRepo, statsSvc, notifier, exporter, baseLogger.Named("scheduler"))
	sched.Start()
	defer sched.Stop()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
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
