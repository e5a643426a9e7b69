// Package main runs the events platform HTTP server with WebSocket and graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/evora-events/backend/config"
	"github.com/evora-events/backend/internal/audit"
	"github.com/evora-events/backend/internal/auth"
	"github.com/evora-events/backend/internal/channels"
	"github.com/evora-events/backend/internal/events"
	"github.com/evora-events/backend/internal/members"
	"github.com/evora-events/backend/internal/middleware"
	"github.com/evora-events/backend/internal/notify"
	"github.com/evora-events/backend/internal/realtime"
	"github.com/evora-events/backend/internal/security"
	"github.com/evora-events/backend/internal/sweeper"
	"github.com/evora-events/backend/internal/tasks"
	"github.com/evora-events/backend/internal/workspaces"
	"github.com/evora-events/backend/pkg/database"
	"github.com/evora-events/backend/pkg/queue"
	"github.com/evora-events/backend/pkg/redis"
	"github.com/evora-events/backend/pkg/response"
	"github.com/evora-events/backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	var s3Client *storage.S3
	if cfg.AWS.Region != "" {
		s3Cfg := storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			ArchiveBucket:        cfg.AWS.ArchiveBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}
		s3Client, err = storage.NewS3(ctx, s3Cfg, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
		}
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	redisPubSub := realtime.NewRedisPubSub(rdb.Client, logger)
	hub := realtime.NewHub(logger, redisPubSub, redisPubSub)

	// Auth
	authRepo := auth.NewRepository(pool)
	authHandler := auth.NewHandler(authRepo, jwtService, logger)

	// Audit trail
	auditRepo := audit.NewRepository(pool)
	auditRecorder := audit.NewRecorder(auditRepo, logger)

	// Team members and permission checks
	memberRepo := members.NewRepository(pool)
	checker := members.NewChecker(memberRepo)

	// Notifications (queued, delivered by the sweeper binary)
	jobQueue := queue.NewQueue(rdb.Client, logger)
	notifier := notify.NewNotifier(memberRepo, jobQueue, logger)

	// Security incidents
	incidentRepo := security.NewRepository(pool)
	incidentSvc := security.NewService(incidentRepo, logger)
	incidentHandler := security.NewHandler(incidentSvc, incidentRepo, checker, checker)

	// Events
	eventRepo := events.NewRepository(pool)

	// Workspace lifecycle
	wsRepo := workspaces.NewRepository(pool)
	lifecycle := workspaces.NewService(wsRepo, eventRepo, checker, auditRecorder, notifier, incidentSvc, logger)
	wsHandler := workspaces.NewHandler(lifecycle, checker, logger)

	eventHandler := events.NewHandler(eventRepo, wsRepo, lifecycle, logger)
	memberHandler := members.NewHandler(memberRepo, checker, auditRecorder)
	auditHandler := audit.NewHandler(auditRepo, checker, auditRecorder, s3Client, logger)

	// Channels and tasks
	channelRepo := channels.NewRepository(pool)
	channelHandler := channels.NewHandler(channelRepo, checker, checker, hub)
	taskRepo := tasks.NewRepository(pool)
	taskHandler := tasks.NewHandler(taskRepo, checker)

	jwtValidate := func(token string) (userID, role string, err error) {
		claims, err := jwtService.Validate(token)
		if err != nil {
			return "", "", err
		}
		return claims.UserID.String(), claims.Role, nil
	}
	checkMember := func(ctx context.Context, workspaceID, userID uuid.UUID) error {
		_, err := checker.ActiveMember(ctx, workspaceID, userID)
		return err
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Auth (public)
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/register", authHandler.Register)
	}

	// Protected API (JWT required)
	api := router.Group("")
	api.Use(middleware.JWT(jwtService))
	{
		// Users (admin only; for team assignment)
		api.GET("/users", middleware.RequireRole("admin"), authHandler.List)

		// Events
		api.GET("/events", eventHandler.List)
		api.POST("/events", middleware.RequireRole("admin", "organizer"), eventHandler.Create)
		api.GET("/events/:id", eventHandler.Get)
		api.POST("/events/:id/publish", eventHandler.Publish)
		api.POST("/events/:id/complete", eventHandler.Complete)
		api.POST("/events/:id/cancel", eventHandler.Cancel)
		api.POST("/events/:id/reactivate", eventHandler.Reactivate)
		api.POST("/events/:id/workspace", wsHandler.Provision)

		// Workspace lifecycle
		api.GET("/workspaces/:id", wsHandler.Get)
		api.GET("/workspaces/:id/status", wsHandler.Status)
		api.POST("/workspaces/:id/wind-down", wsHandler.WindDown)
		api.POST("/workspaces/:id/dissolve", wsHandler.Dissolve)
		api.PATCH("/workspaces/:id/settings", wsHandler.UpdateSettings)

		// Team members
		api.GET("/workspaces/:id/members", memberHandler.List)
		api.POST("/workspaces/:id/members", memberHandler.Add)
		api.PATCH("/members/:id", memberHandler.Update)
		api.DELETE("/members/:id", memberHandler.Deactivate)

		// Channels
		api.GET("/workspaces/:id/channels", channelHandler.List)
		api.POST("/channels/:id/messages", channelHandler.PostMessage)
		api.GET("/channels/:id/messages", channelHandler.ListMessages)

		// Tasks
		api.GET("/workspaces/:id/tasks", taskHandler.List)
		api.POST("/workspaces/:id/tasks", taskHandler.Create)
		api.PATCH("/tasks/:id", taskHandler.Update)

		// Audit trail
		api.GET("/workspaces/:id/audit", auditHandler.List)
		api.POST("/workspaces/:id/audit/export", auditHandler.Export)

		// Security incidents
		api.POST("/workspaces/:id/incidents", incidentHandler.Report)
		api.GET("/workspaces/:id/incidents", incidentHandler.List)
		api.POST("/incidents/:id/respond", incidentHandler.Respond)
		api.POST("/incidents/:id/resolve", incidentHandler.Resolve)

		// Manual sweep trigger
		api.POST("/admin/sweep", middleware.RequireRole("admin"), wsHandler.Sweep)
	}

	// WebSocket (token in query; no Authorization header required)
	router.GET("/ws", realtime.ServeWs(hub, logger, jwtValidate, checkMember))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Background dissolution sweeper (in-process; the sweeper binary runs the
	// same loop standalone)
	sweepCtx, sweepCancel := context.WithCancel(context.Background())
	defer sweepCancel()
	runner := sweeper.NewRunner(lifecycle, time.Duration(cfg.Sweeper.IntervalMinutes)*time.Minute, logger)
	go runner.Run(sweepCtx)

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	sweepCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
