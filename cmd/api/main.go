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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/idir-saidi/campus-records-api/api/swagger"
	"github.com/idir-saidi/campus-records-api/internal/events"
	"github.com/idir-saidi/campus-records-api/internal/handler"
	"github.com/idir-saidi/campus-records-api/internal/middleware"
	"github.com/idir-saidi/campus-records-api/internal/repository"
	"github.com/idir-saidi/campus-records-api/internal/service"
	"github.com/idir-saidi/campus-records-api/pkg/cache"
	"github.com/idir-saidi/campus-records-api/pkg/config"
	"github.com/idir-saidi/campus-records-api/pkg/database"
	"github.com/idir-saidi/campus-records-api/pkg/logger"
	corsmiddleware "github.com/idir-saidi/campus-records-api/pkg/middleware/cors"
	reqidmiddleware "github.com/idir-saidi/campus-records-api/pkg/middleware/requestid"
	"github.com/idir-saidi/campus-records-api/pkg/storage"
)

// @title Campus Records API
// @version 1.0.0
// @description Role-gated academic records: registrations, assignments, grades, attendance and messaging
// @BasePath /api/v1
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
	sugar := logr.Sugar()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		sugar.Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	// Redis is a soft dependency: unread counters fall back to the
	// database when the cache is unavailable.
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		sugar.Warnw("redis unavailable, unread counters uncached", "error", err)
		redisClient = nil
	} else {
		defer redisClient.Close()
	}

	uploads, err := storage.NewLocalStorage(cfg.Uploads.StorageDir)
	if err != nil {
		sugar.Fatalw("failed to init upload storage", "error", err)
	}

	validate := validator.New()

	// Repositories.
	userRepo := repository.NewUserRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	groupRepo := repository.NewGroupRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	gradeRepo := repository.NewGradeRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	fileRepo := repository.NewCourseFileRepository(db)
	timetableRepo := repository.NewTimetableRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	// Domain events feed the notification dispatcher.
	dispatcher := events.NewDispatcher(notificationRepo, logr, events.Config{
		Workers:    cfg.Notifications.Workers,
		BufferSize: cfg.Notifications.BufferSize,
		MaxRetries: cfg.Notifications.MaxRetries,
		RetryDelay: cfg.Notifications.RetryDelay,
	})
	dispatcherCtx, stopDispatcher := context.WithCancel(context.Background())
	dispatcher.Start(dispatcherCtx)

	// Services.
	metricsSvc := service.NewMetricsService()
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})
	approvalSvc := service.NewApprovalService(userRepo, dispatcher, validate, logr)
	userSvc := service.NewUserService(userRepo, groupRepo, validate, logr)
	courseSvc := service.NewCourseService(courseRepo, validate, logr)
	groupSvc := service.NewGroupService(groupRepo, courseRepo, validate, logr)
	assignmentSvc := service.NewAssignmentService(assignmentRepo, userRepo, courseRepo, groupRepo, validate, logr)
	gradeSvc := service.NewGradeService(gradeRepo, userRepo, assignmentRepo, dispatcher, cfg.Academic.ActiveYear, validate, logr)
	attendanceSvc := service.NewAttendanceService(attendanceRepo, userRepo, assignmentRepo, cfg.Academic.ActiveYear, validate, logr)
	notificationSvc := service.NewNotificationService(notificationRepo, cacheRepo, cfg.Academic.UnreadCacheTTL, metricsSvc, logr)
	messageSvc := service.NewMessageService(messageRepo, userRepo, cacheRepo, cfg.Academic.UnreadCacheTTL, validate, logr)
	downloadSigner := storage.NewDownloadSigner(cfg.JWT.Secret, 24*time.Hour)
	fileSvc := service.NewCourseFileService(fileRepo, courseRepo, uploads, downloadSigner, cfg.Uploads.MaxFileSizeBytes, validate, logr)
	timetableSvc := service.NewTimetableService(timetableRepo, groupRepo, uploads, validate, logr)
	exportSvc := service.NewExportService(gradeSvc, attendanceSvc, logr)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	handler.RegisterRoutes(r, cfg.APIPrefix, authSvc, handler.Handlers{
		Auth:        handler.NewAuthHandler(authSvc),
		Users:       handler.NewUserHandler(userSvc),
		Approvals:   handler.NewApprovalHandler(approvalSvc),
		Courses:     handler.NewCourseHandler(courseSvc),
		Groups:      handler.NewGroupHandler(groupSvc),
		Assignments: handler.NewAssignmentHandler(assignmentSvc),
		Grades:      handler.NewGradeHandler(gradeSvc),
		Attendance:  handler.NewAttendanceHandler(attendanceSvc),
		Notify:      handler.NewNotificationHandler(notificationSvc),
		Messages:    handler.NewMessageHandler(messageSvc),
		Files:       handler.NewCourseFileHandler(fileSvc),
		Timetables:  handler.NewTimetableHandler(timetableSvc),
		Exports:     handler.NewExportHandler(exportSvc),
		Metrics:     handler.NewMetricsHandler(metricsSvc),
	})

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Replaced timetable images and orphaned uploads accumulate; sweep
	// anything untouched for 90 days.
	cleanupDone := make(chan struct{})
	go func() {
		defer close(cleanupDone)
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-dispatcherCtx.Done():
				return
			case <-ticker.C:
				removed, err := uploads.CleanupOlderThan(90 * 24 * time.Hour)
				if err != nil {
					sugar.Warnw("upload cleanup failed", "error", err)
					continue
				}
				if len(removed) > 0 {
					sugar.Infow("upload cleanup", "removed", len(removed))
				}
			}
		}
	}()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		sugar.Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			sugar.Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	sugar.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		sugar.Errorw("forced shutdown", "error", err)
	}

	stopDispatcher()
	dispatcher.Stop()
	<-cleanupDone
	sugar.Info("server stopped")
}
