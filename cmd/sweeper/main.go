// Package main runs the background binary: the dissolution sweeper and the
// notification delivery worker.
package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/evora-events/backend/config"
	"github.com/evora-events/backend/internal/audit"
	"github.com/evora-events/backend/internal/events"
	"github.com/evora-events/backend/internal/members"
	"github.com/evora-events/backend/internal/notify"
	"github.com/evora-events/backend/internal/security"
	"github.com/evora-events/backend/internal/sweeper"
	"github.com/evora-events/backend/internal/workspaces"
	"github.com/evora-events/backend/pkg/database"
	"github.com/evora-events/backend/pkg/queue"
	"github.com/evora-events/backend/pkg/redis"
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

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	jobQueue := queue.NewQueue(rdb.Client, logger)

	auditRecorder := audit.NewRecorder(audit.NewRepository(pool), logger)
	memberRepo := members.NewRepository(pool)
	checker := members.NewChecker(memberRepo)
	notifier := notify.NewNotifier(memberRepo, jobQueue, logger)
	incidentSvc := security.NewService(security.NewRepository(pool), logger)

	eventRepo := events.NewRepository(pool)
	wsRepo := workspaces.NewRepository(pool)
	lifecycle := workspaces.NewService(wsRepo, eventRepo, checker, auditRecorder, notifier, incidentSvc, logger)

	var sender notify.Sender
	if cfg.Email.SMTPHost != "" {
		sender = notify.NewSMTPSender(notify.SMTPConfig{
			Host:        cfg.Email.SMTPHost,
			Port:        cfg.Email.SMTPPort,
			User:        cfg.Email.SMTPUser,
			Pass:        cfg.Email.SMTPPass,
			FromAddress: cfg.Email.FromAddress,
			FromName:    cfg.Email.FromName,
		})
	} else {
		sender = &notify.LogSender{Logger: logger}
	}
	worker := notify.NewWorker(notify.NewRepository(pool), sender, jobQueue, logger)

	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runner := sweeper.NewRunner(lifecycle, time.Duration(cfg.Sweeper.IntervalMinutes)*time.Minute, logger)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		runner.Run(runCtx)
	}()
	go func() {
		defer wg.Done()
		worker.Run(runCtx)
	}()
	logger.Info("sweeper and notification worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cancel()
	wg.Wait()
	logger.Info("sweeper stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
