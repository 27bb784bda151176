package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/medtrack/medtrack-api/api/swagger"
	"github.com/medtrack/medtrack-api/internal/handler"
	"github.com/medtrack/medtrack-api/internal/middleware"
	"github.com/medtrack/medtrack-api/internal/models"
	"github.com/medtrack/medtrack-api/internal/repository"
	"github.com/medtrack/medtrack-api/internal/service"
	"github.com/medtrack/medtrack-api/pkg/cache"
	"github.com/medtrack/medtrack-api/pkg/config"
	"github.com/medtrack/medtrack-api/pkg/database"
	"github.com/medtrack/medtrack-api/pkg/logger"
	corsmiddleware "github.com/medtrack/medtrack-api/pkg/middleware/cors"
	reqidmiddleware "github.com/medtrack/medtrack-api/pkg/middleware/requestid"
	"github.com/medtrack/medtrack-api/pkg/scheduler"
)

// @title MedTrack API
// @version 1.0.0
// @description School medication administration and supply tracking
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, password reset disabled", "error", err)
		redisClient = nil
	}
	defer func() {
		if redisClient != nil {
			_ = redisClient.Close()
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	requestRepo := repository.NewMedicationRequestRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	supplyRepo := repository.NewSupplyRepository(db)
	conversionRepo := repository.NewUnitConversionRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	metricsSvc := service.NewMetricsService()

	notifier := service.NewQueueNotifier(notificationRepo, cfg.Notifications, logr)
	notifier.Start(ctx)
	defer notifier.Stop()

	authSvc := service.NewAuthService(userRepo, cache.NewTTLStore(redisClient, "otp"), nil, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            "medtrack-api",
		OTPTTL:            cfg.OTP.TTL,
		OTPLength:         cfg.OTP.Length,
	})

	generator := service.NewScheduleGenerator()
	requestSvc := service.NewMedicationRequestService(requestRepo, studentRepo, generator, notifier, cfg.AutoExpire.MaxAge, nil, logr)
	scheduleSvc := service.NewScheduleStatusService(scheduleRepo, nil, logr)
	converter := service.NewUnitConverter(conversionRepo, logr)
	supplySvc := service.NewSupplyService(supplyRepo, converter, notifier, cfg.Notifications.StockAlertRecipient, nil, logr)
	notificationSvc := service.NewNotificationService(notificationRepo, logr)

	sched := scheduler.New(logr)
	sched.Start(ctx)
	defer sched.Stop()

	if cfg.Sweeper.Enabled {
		sweeper := service.NewOverdueSweeper(scheduleRepo, notifier,
			time.Duration(cfg.Sweeper.ThresholdMinutes)*time.Minute, logr)
		sched.Every("overdue-sweep",
			scheduler.WindowedInterval(cfg.Sweeper.BaseInterval, cfg.Sweeper.ActiveInterval,
				cfg.Sweeper.ActiveHoursStart, cfg.Sweeper.ActiveHoursEnd),
			func(ctx context.Context) {
				skipped, err := sweeper.Sweep(ctx, time.Now().UTC())
				if err != nil {
					logr.Sugar().Errorw("overdue sweep failed", "error", err)
				}
				metricsSvc.ObserveSweep(skipped)
			})
	}

	if cfg.AutoExpire.Enabled {
		sched.Every("request-expiry", scheduler.Fixed(cfg.AutoExpire.Interval),
			func(ctx context.Context) {
				expired, err := requestSvc.AutoExpire(ctx, time.Now().UTC())
				if err != nil {
					logr.Sugar().Errorw("request expiry failed", "error", err)
				}
				metricsSvc.ObserveExpiry(expired)
			})
	}

	authHandler := handler.NewAuthHandler(authSvc)
	requestHandler := handler.NewMedicationRequestHandler(requestSvc)
	scheduleHandler := handler.NewScheduleHandler(scheduleSvc)
	supplyHandler := handler.NewSupplyHandler(supplySvc, metricsSvc)
	conversionHandler := handler.NewUnitConversionHandler(converter)
	notificationHandler := handler.NewNotificationHandler(notificationSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/login", authHandler.Login)
	auth.POST("/password-reset", authHandler.RequestPasswordReset)
	auth.POST("/password-reset/confirm", authHandler.ConfirmPasswordReset)
	auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)

	protected := api.Group("")
	protected.Use(middleware.JWT(authSvc))

	caretakers := middleware.RequireRoles(models.RoleCaretaker, models.RoleAdmin)
	guardians := middleware.RequireRoles(models.RoleGuardian)

	requests := protected.Group("/medication-requests")
	requests.POST("", guardians, requestHandler.Submit)
	requests.GET("", requestHandler.List)
	requests.GET("/:id", requestHandler.Get)
	requests.PUT("/:id", guardians, requestHandler.Update)
	requests.DELETE("/:id", guardians, requestHandler.Delete)
	requests.POST("/:id/approve", caretakers, requestHandler.Approve)
	requests.POST("/:id/reject", caretakers, requestHandler.Reject)

	schedules := protected.Group("/schedules")
	schedules.GET("", scheduleHandler.List)
	schedules.GET("/:id", scheduleHandler.Get)
	schedules.PUT("/:id/status", caretakers, scheduleHandler.UpdateStatus)
	schedules.PUT("/:id/note", caretakers, scheduleHandler.UpdateNote)

	supplies := protected.Group("/supplies", caretakers)
	supplies.POST("", supplyHandler.Create)
	supplies.GET("", supplyHandler.List)
	supplies.GET("/total", supplyHandler.TotalAvailable)
	supplies.POST("/consume", supplyHandler.Consume)
	supplies.PUT("/:id/enabled", supplyHandler.SetEnabled)

	conversions := protected.Group("/unit-conversions", caretakers)
	conversions.GET("", conversionHandler.List)
	conversions.PUT("", conversionHandler.Upsert)
	conversions.DELETE("", conversionHandler.Delete)
	conversions.POST("/convert", conversionHandler.Convert)

	notifications := protected.Group("/notifications")
	notifications.GET("", notificationHandler.List)
	notifications.POST("/:id/read", notificationHandler.MarkRead)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("server shutdown failed", "error", err)
	}
}
