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

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	_ "github.com/noah-isme/appointments-api/api/swagger"
	"github.com/noah-isme/appointments-api/internal/handler"
	"github.com/noah-isme/appointments-api/internal/middleware"
	"github.com/noah-isme/appointments-api/internal/repository"
	"github.com/noah-isme/appointments-api/internal/service"
	"github.com/noah-isme/appointments-api/pkg/cache"
	"github.com/noah-isme/appointments-api/pkg/config"
	"github.com/noah-isme/appointments-api/pkg/database"
	"github.com/noah-isme/appointments-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/appointments-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/appointments-api/pkg/middleware/requestid"
	"github.com/noah-isme/appointments-api/pkg/tracing"
)

// @title Appointments API
// @version 1.0.0
// @description Customer appointments with weekly recurring series and overlap protection
// @BasePath /api/v1
// @schemes http

const cachePrefix = "appointments:"

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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(ctx, cfg.Tracing)
	if err != nil {
		logr.Sugar().Fatalw("tracing setup failed", "error", err)
	}

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("database connection failed", "error", err)
	}
	defer db.Close() //nolint:errcheck

	metrics := service.NewMetricsService()

	var cacheRepo *repository.CacheRepository
	if cfg.Cache.Enabled {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, series cache disabled", zap.Error(err))
		} else {
			defer client.Close() //nolint:errcheck
			cacheRepo = repository.NewCacheRepository(client, cachePrefix)
		}
	}
	var cacheSvc *service.CacheService
	if cacheRepo != nil {
		cacheSvc = service.NewCacheService(cacheRepo, metrics, cfg.Cache.TTL, logr, true)
	}

	customerRepo := repository.NewCustomerRepository(db)
	appointmentRepo := repository.NewAppointmentRepository(db)
	seriesRepo := repository.NewSeriesRepository(db)
	weekdayRepo := repository.NewSeriesWeekdayRepository(db)

	validate := service.NewValidator()
	writer := service.NewAppointmentWriter(appointmentRepo, service.WriterConfig{
		Strategy:   cfg.Scheduling.OverlapStrategy,
		MaxRetries: cfg.Scheduling.TxMaxRetries,
	}, metrics, logr)

	customerSvc := service.NewCustomerService(customerRepo, cacheSvc, validate, logr)
	appointmentSvc := service.NewAppointmentService(appointmentRepo, customerRepo, seriesRepo, weekdayRepo, writer, db, cacheSvc, metrics, validate, logr)
	seriesSvc := service.NewSeriesService(seriesRepo, weekdayRepo, appointmentRepo, customerRepo, writer, db, cacheSvc, metrics, validate, logr, service.SeriesConfig{
		DefaultTimezone:     cfg.Scheduling.DefaultTimezone,
		DefaultHorizonWeeks: cfg.Scheduling.DefaultHorizonWeeks,
		MaxHorizonWeeks:     cfg.Scheduling.MaxHorizonWeeks,
	})
	exportSvc := service.NewExportService(appointmentRepo, customerRepo, cfg.Scheduling.DefaultTimezone, validate, logr)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.WithResponseMeta())
	if cfg.Metrics.Enabled {
		r.Use(middleware.Metrics(metrics, "/metrics"))
	}

	handler.RegisterSystemRoutes(r, handler.NewSystemHandler(metrics, db), cfg.Metrics.Enabled)
	handler.RegisterRoutes(r.Group(cfg.APIPrefix), handler.Handlers{
		Customers:    handler.NewCustomerHandler(customerSvc),
		Appointments: handler.NewAppointmentHandler(appointmentSvc, exportSvc),
		Series:       handler.NewSeriesHandler(seriesSvc),
	})

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           otelhttp.NewHandler(r, cfg.Tracing.ServiceName),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "overlap_strategy", cfg.Scheduling.OverlapStrategy)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("http shutdown", zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logr.Warn("tracing shutdown", zap.Error(err))
	}
}
