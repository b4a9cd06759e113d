package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/medverify-api/internal/handler"
	"github.com/noah-isme/medverify-api/internal/notifier"
	"github.com/noah-isme/medverify-api/internal/repository"
	"github.com/noah-isme/medverify-api/internal/service"
	"github.com/noah-isme/medverify-api/pkg/cache"
	"github.com/noah-isme/medverify-api/pkg/config"
	"github.com/noah-isme/medverify-api/pkg/database"
	"github.com/noah-isme/medverify-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to database", "error", err)
	}
	defer db.Close()

	if cfg.Database.RunMigrations {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := database.RunMigrations(ctx, db, logr); err != nil {
			cancel()
			logr.Sugar().Fatalw("failed to run migrations", "error", err)
		}
		cancel()
	}

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close()

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	drugRepo := repository.NewDrugRepository(db)
	batchRepo := repository.NewBatchRepository(db)
	verificationRepo := repository.NewVerificationRepository(db)
	reportRepo := repository.NewReportRepository(db)
	sessionRepo := repository.NewSessionRepository(redisClient, logr)
	activityRepo := repository.NewActivityRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()

	verificationSvc := service.NewVerificationService(service.VerificationDependencies{
		DrugRepo:         drugRepo,
		BatchRepo:        batchRepo,
		VerificationRepo: verificationRepo,
		ActivityCache:    activityRepo,
		Metrics:          metricsSvc,
		Validator:        validate,
		Logger:           logr,
	})

	hub := notifier.NewHub(cfg.Notifier, verificationSvc.RecentActivityEvent, metricsSvc, logr)
	verificationSvc.SetBroadcaster(hub)

	reportSvc := service.NewReportService(service.ReportDependencies{
		ReportRepo:       reportRepo,
		DrugRepo:         drugRepo,
		VerificationRepo: verificationRepo,
		Broadcaster:      hub,
		Metrics:          metricsSvc,
		Validator:        validate,
		Logger:           logr,
	})
	registrySvc := service.NewRegistryService(drugRepo, batchRepo, validate, logr)
	authSvc := service.NewAuthService(userRepo, sessionRepo, cfg.Session.Secret, cfg.Session.TTL, validate, logr)
	guideSvc := service.NewGuideService()

	router := handler.NewRouter(handler.RouterDependencies{
		Config:         cfg,
		Logger:         logr,
		Auth:           handler.NewAuthHandler(authSvc, cfg.Session),
		Verify:         handler.NewVerifyHandler(verificationSvc),
		Report:         handler.NewReportHandler(reportSvc),
		Registry:       handler.NewRegistryHandler(registrySvc),
		Guide:          handler.NewGuideHandler(guideSvc),
		WS:             handler.NewWSHandler(hub, logr),
		Metrics:        handler.NewMetricsHandler(metricsSvc),
		AuthService:    authSvc,
		MetricsService: metricsSvc,
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: router,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logr.Info("shutting down")
	hub.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logr.Sugar().Errorw("forced shutdown", "error", err)
	}
}
