package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	_ "github.com/noah-isme/uni-attendance-api/api/swagger"
	"github.com/noah-isme/uni-attendance-api/internal/dto"
	"github.com/noah-isme/uni-attendance-api/internal/service"
	"github.com/noah-isme/uni-attendance-api/pkg/cache"
	"github.com/noah-isme/uni-attendance-api/pkg/config"
	"github.com/noah-isme/uni-attendance-api/pkg/database"
	"github.com/noah-isme/uni-attendance-api/pkg/jobs"
	"github.com/noah-isme/uni-attendance-api/pkg/logger"
	"github.com/noah-isme/uni-attendance-api/pkg/mailer"
)

// @title University Attendance API
// @version 1.0.0
// @description Timetable driven lecture generation and attendance tracking.
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, db, logr); err != nil {
			logr.Fatal("failed to apply schema", zap.Error(err))
		}
	}

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer redisClient.Close()

	metrics := service.NewMetricsService()
	validate := dto.NewValidator()
	loc := cfg.Attendance.Location()

	mailQueue := jobs.NewQueue("mail", jobs.QueueConfig{
		Workers:    cfg.Mail.Workers,
		MaxRetries: cfg.Mail.Retries,
		RetryDelay: 5 * time.Second,
		Timeout:    30 * time.Second,
		Logger:     logr,
	})

	repos := newRepositories(db, redisClient)
	cacheSvc := service.NewCacheService(repos.cache, metrics, cfg.Cache.DashboardTTL, logr, cfg.Cache.Enabled)
	notifications := service.NewNotificationService(mailQueue, mailer.New(cfg.Mail, logr), metrics, logr)
	services := newServices(cfg, repos, db, cacheSvc, notifications, metrics, validate, logr, loc)

	mailQueue.Start(ctx)
	defer mailQueue.Stop()

	sweeper := service.NewExpirySweeper(services.requests, cfg.Attendance.ExpirySweepInterval, logr)
	sweeper.Start(ctx)
	defer sweeper.Stop()

	router := newRouter(cfg, logr, repos, services, metrics, readinessChecks(db, redisClient))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env), zap.String("timezone", loc.String()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Error("server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("forced shutdown", zap.Error(err))
	}
}
