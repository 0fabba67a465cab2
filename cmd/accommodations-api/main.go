package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/campusops/accommodations-api/api/swagger"
	"github.com/campusops/accommodations-api/internal/handler"
	"github.com/campusops/accommodations-api/internal/middleware"
	"github.com/campusops/accommodations-api/internal/models"
	"github.com/campusops/accommodations-api/internal/repository"
	"github.com/campusops/accommodations-api/internal/service"
	"github.com/campusops/accommodations-api/pkg/cache"
	"github.com/campusops/accommodations-api/pkg/config"
	"github.com/campusops/accommodations-api/pkg/database"
	"github.com/campusops/accommodations-api/pkg/jobs"
	"github.com/campusops/accommodations-api/pkg/logger"
	corsmiddleware "github.com/campusops/accommodations-api/pkg/middleware/cors"
	reqidmiddleware "github.com/campusops/accommodations-api/pkg/middleware/requestid"
)

// @title Accommodations API
// @version 1.0.0
// @description Time-extension entitlements propagated as quiz and assignment deadline overrides
// @BasePath /
// @schemes http

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
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, category tree caching disabled", "error", err)
		redisClient = nil
	}

	validate := validator.New()

	typeRepo := repository.NewTypeRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	overrideRepo := repository.NewOverrideRepository(db)
	statusRepo := repository.NewActivityStatusRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	quizOverrideRepo := repository.NewQuizOverrideRepository(db)
	assignOverrideRepo := repository.NewAssignmentOverrideRepository(db)
	userRepo := repository.NewUserRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	historyRepo := repository.NewHistoryRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()

	propagationSvc := service.NewPropagationService(service.PropagationDeps{
		Activities:  activityRepo,
		Statuses:    statusRepo,
		Profiles:    profileRepo,
		Overrides:   overrideRepo,
		Users:       userRepo,
		Courses:     courseRepo,
		Quizzes:     quizOverrideRepo,
		Assignments: assignOverrideRepo,
		History:     historyRepo,
		Cache:       cacheRepo,
		Metrics:     metricsSvc,
	}, cfg.Propagation.EnrollmentPageSize, cfg.Propagation.CategoryCacheTTL, logr)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            "accommodations-api",
	})
	typeSvc := service.NewTypeService(typeRepo, profileRepo, validate, logr)
	profileSvc := service.NewProfileService(profileRepo, userRepo, typeRepo, propagationSvc, validate, logr)
	overrideSvc := service.NewOverrideService(overrideRepo, profileRepo, activityRepo, validate, logr)
	activitySvc := service.NewActivityService(statusRepo, activityRepo, logr)
	historySvc := service.NewHistoryService(historyRepo, logr)
	importSvc := service.NewImportService(userRepo, typeRepo, profileRepo, metricsSvc, cfg.Import.MaxRows, logr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Seed.DefaultTypes {
		if err := typeSvc.SeedDefaults(ctx, "system"); err != nil {
			logr.Sugar().Warnw("failed to seed default accommodation types", "error", err)
		}
	}

	queue := jobs.NewQueue("propagation", func(ctx context.Context, job jobs.Job) error {
		switch job.Kind {
		case "course":
			_, err := propagationSvc.ApplyToCourse(ctx, job.TargetID, job.AllowOverwrite, "system")
			return err
		case "category":
			_, err := propagationSvc.ApplyToCategory(ctx, job.TargetID, job.AllowOverwrite, "system")
			return err
		case "all":
			_, err := propagationSvc.ApplyAll(ctx, job.AllowOverwrite, "system")
			return err
		default:
			return fmt.Errorf("unknown job kind %q", job.Kind)
		}
	}, jobs.QueueConfig{
		Workers: cfg.Propagation.WorkerConcurrency,
		Logger:  logr,
	})
	queue.Start(ctx)
	defer queue.Stop()

	if cfg.AutoApply.Enabled {
		go runAutoApply(ctx, queue, cfg.AutoApply.Interval, logr)
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	authHandler := handler.NewAuthHandler(authSvc)
	typeHandler := handler.NewTypeHandler(typeSvc)
	profileHandler := handler.NewProfileHandler(profileSvc)
	overrideHandler := handler.NewOverrideHandler(overrideSvc)
	activityHandler := handler.NewActivityHandler(activitySvc, propagationSvc)
	propagationHandler := handler.NewPropagationHandler(propagationSvc, queue)
	historyHandler := handler.NewHistoryHandler(historySvc)
	importHandler := handler.NewImportHandler(importSvc, propagationSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	api.POST("/auth/login", authHandler.Login)

	protected := api.Group("")
	protected.Use(middleware.JWT(authSvc))

	protected.GET("/auth/me", authHandler.Me)

	staff := protected.Group("")
	staff.Use(middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher))

	staff.GET("/types", typeHandler.List)
	staff.GET("/types/:id", typeHandler.Get)
	staff.GET("/profiles", profileHandler.List)
	staff.GET("/profiles/:id", profileHandler.Get)
	staff.GET("/profiles/:id/overrides", overrideHandler.ListByProfile)
	staff.GET("/activities/:id/status", activityHandler.GetStatus)
	staff.GET("/history", historyHandler.List)
	staff.GET("/history/export", historyHandler.Export)
	staff.GET("/import/template", importHandler.Template)

	admin := protected.Group("")
	admin.Use(middleware.RequireRoles(models.RoleAdmin))

	admin.POST("/types", typeHandler.Create)
	admin.PUT("/types/:id", typeHandler.Update)
	admin.DELETE("/types/:id", typeHandler.Delete)
	admin.POST("/profiles", profileHandler.Create)
	admin.PUT("/profiles/:id", profileHandler.Update)
	admin.DELETE("/profiles/:id", profileHandler.Delete)
	admin.POST("/profiles/bulk", profileHandler.Bulk)
	admin.PUT("/overrides", overrideHandler.Set)
	admin.DELETE("/overrides/:id", overrideHandler.Delete)
	admin.PUT("/activities/:id/status", activityHandler.SetStatus)
	admin.POST("/activities/:id/apply", activityHandler.Apply)
	admin.POST("/courses/:id/apply", propagationHandler.ApplyToCourse)
	admin.POST("/categories/:id/apply", propagationHandler.ApplyToCategory)
	admin.POST("/propagation/apply-all", propagationHandler.ApplyAll)
	admin.POST("/import", importHandler.Upload)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}

// runAutoApply enqueues a full propagation sweep on a fixed interval. The
// sweep never overwrites overrides that already exist.
func runAutoApply(ctx context.Context, queue *jobs.Queue, interval time.Duration, logr *zap.Logger) {
	if interval <= 0 {
		interval = 6 * time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			job := jobs.Job{ID: uuid.NewString(), Kind: "all", AllowOverwrite: false}
			if err := queue.Enqueue(job); err != nil {
				logr.Sugar().Warnw("failed to enqueue auto-apply sweep", "error", err)
			}
		}
	}
}
