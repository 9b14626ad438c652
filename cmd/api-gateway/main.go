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
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/harmony-timetable-api/api/swagger"
	"github.com/noah-isme/harmony-timetable-api/internal/handler"
	internalmiddleware "github.com/noah-isme/harmony-timetable-api/internal/middleware"
	"github.com/noah-isme/harmony-timetable-api/internal/repository"
	"github.com/noah-isme/harmony-timetable-api/internal/service"
	"github.com/noah-isme/harmony-timetable-api/pkg/cache"
	"github.com/noah-isme/harmony-timetable-api/pkg/config"
	"github.com/noah-isme/harmony-timetable-api/pkg/database"
	"github.com/noah-isme/harmony-timetable-api/pkg/events"
	"github.com/noah-isme/harmony-timetable-api/pkg/jobs"
	"github.com/noah-isme/harmony-timetable-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/harmony-timetable-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/harmony-timetable-api/pkg/middleware/requestid"
)

// @title Harmony Timetable API
// @version 1.0.0
// @description Generates clash-free weekly timetables with harmony search and manages saved versions.
// @BasePath /api/v1
// @schemes http
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

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect database", "error", err)
	}
	defer db.Close() //nolint:errcheck

	metrics := service.NewMetricsService()
	validate := validator.New()

	var cacheRepo service.CacheRepository
	if cfg.Redis.Enabled {
		redisClient, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, proposals stay in memory", "error", err)
		} else {
			repo := repository.NewCacheRepository(redisClient, cfg.Redis.Namespace, logr)
			defer repo.Close() //nolint:errcheck
			cacheRepo = repo
		}
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Redis.CacheTTL, logr)

	publisher := newPublisher(cfg.Events, logr)
	defer publisher.Close() //nolint:errcheck

	proposals := service.NewProposalStore(cfg.Scheduler.ProposalTTL, cacheSvc, logr)
	startProposalSweep(ctx, proposals, logr)

	generator := service.NewTimetableGeneratorService(
		repository.NewTimetableRepository(db),
		repository.NewTimetableSlotRepository(db),
		db,
		proposals,
		publisher,
		metrics,
		validate,
		logr,
		service.TimetableGeneratorConfig{
			DefaultHMS:         cfg.Scheduler.DefaultHMS,
			DefaultPAR:         cfg.Scheduler.DefaultPAR,
			DefaultGenerations: cfg.Scheduler.DefaultGenerations,
			SetMaxAttempts:     cfg.Scheduler.SetMaxAttempts,
			MaxTimetables:      cfg.Scheduler.MaxTimetables,
			MaxRooms:           cfg.Scheduler.MaxRooms,
			MaxSubjects:        cfg.Scheduler.MaxSubjects,
		},
	)

	jobStore := service.NewGenerationJobStore()
	worker := service.NewGenerationWorker(jobStore, generator, logr)
	queue := jobs.NewQueue("timetable-generation", worker.Handle, jobs.QueueConfig{
		Workers:    cfg.Jobs.Workers,
		BufferSize: cfg.Jobs.BufferSize,
		MaxRetries: cfg.Jobs.Retries,
		RetryDelay: cfg.Jobs.RetryDelay,
		Logger:     logr,
		OnGiveUp:   worker.GiveUp,
	})
	queue.Start(ctx)
	defer queue.Stop()

	jobSvc := service.NewGenerationJobService(jobStore, queue, validate, logr, service.GenerationJobConfig{
		APIPrefix:       cfg.APIPrefix,
		ResultTTL:       cfg.Jobs.ResultTTL,
		CleanupInterval: time.Minute,
		MaxTimetables:   cfg.Scheduler.MaxTimetables,
	})
	jobSvc.StartCleanup(ctx)

	exportSvc := service.NewExportService(generator, proposals, logr, nil)
	tokens := service.NewTokenService(service.TokenConfig{
		Secret:     cfg.JWT.Secret,
		Issuer:     cfg.JWT.Issuer,
		Expiration: cfg.JWT.Expiration,
	})

	checks := map[string]handler.ReadinessCheck{
		"postgres": db.PingContext,
	}
	if cacheSvc.Enabled() {
		checks["redis"] = cacheSvc.Ping
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metrics))

	metricsHandler := handler.NewMetricsHandler(metrics, checks)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(internalmiddleware.JWT(tokens))
	api.GET("/metrics/summary", internalmiddleware.RBAC(internalmiddleware.ManageRoles...), metricsHandler.Summary)

	registerTimetableRoutes(api, cfg.Scheduler.Enabled,
		handler.NewTimetableHandler(generator),
		handler.NewGenerationJobHandler(jobSvc),
		handler.NewExportHandler(exportSvc),
	)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "scheduler", cfg.Scheduler.Enabled)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Warnw("graceful shutdown failed", "error", err)
	}
	logr.Info("server stopped")
}

func registerTimetableRoutes(api *gin.RouterGroup, enabled bool, timetables *handler.TimetableHandler, jobsHandler *handler.GenerationJobHandler, exports *handler.ExportHandler) {
	read := internalmiddleware.RBAC(internalmiddleware.ReadRoles...)
	generate := internalmiddleware.RBAC(internalmiddleware.GenerateRoles...)
	manage := internalmiddleware.RBAC(internalmiddleware.ManageRoles...)

	group := api.Group("", internalmiddleware.FeatureGate(enabled, "scheduler"))

	group.POST("/timetables/generate", generate, timetables.Generate)
	group.POST("/timetables/generate-set", generate, timetables.GenerateSet)
	group.POST("/timetables/jobs", generate, jobsHandler.Submit)
	group.GET("/timetables/jobs/:id", generate, jobsHandler.Status)

	group.GET("/proposals/:id", generate, timetables.Proposal)
	group.GET("/proposals/:id/export", generate, exports.Proposal)

	group.POST("/timetables", generate, timetables.Save)
	group.GET("/timetables", read, timetables.List)
	group.GET("/timetables/:id", read, timetables.Get)
	group.GET("/timetables/:id/slots", read, timetables.Slots)
	group.GET("/timetables/:id/export", read, exports.Timetable)
	group.PATCH("/timetables/:id/status", manage, timetables.UpdateStatus)
	group.DELETE("/timetables/:id", manage, timetables.Delete)
}

func newPublisher(cfg config.EventsConfig, logr *zap.Logger) events.Publisher {
	if !cfg.Enabled {
		return events.NopPublisher{}
	}
	publisher, err := events.NewAMQPPublisher(cfg, logr)
	if err != nil {
		logr.Sugar().Warnw("event publisher unavailable, lifecycle events disabled", "error", err)
		return events.NopPublisher{}
	}
	return publisher
}

func startProposalSweep(ctx context.Context, proposals *service.ProposalStore, logr *zap.Logger) {
	interval := proposals.TTL() / 2
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if removed := proposals.Sweep(); removed > 0 {
					logr.Debug("expired proposals swept", zap.Int("count", removed))
				}
			}
		}
	}()
}
