package main

import (
	"context"
	"log"

	"github.com/chronocap/chronocap-backend/config"
	"github.com/chronocap/chronocap-backend/internal/bootstrap"
	"github.com/chronocap/chronocap-backend/internal/logger"
	"github.com/chronocap/chronocap-backend/internal/mail"
	"github.com/chronocap/chronocap-backend/internal/storage"
)

const serviceName = "chronocap-api"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	bootstrap.SetGinMode(cfg.App.Environment)

	slogger := logger.New(serviceName, cfg.App.LogLevel)
	ctx := context.Background()

	db, err := bootstrap.OpenDB(ctx, bootstrap.DBOptions{DSN: cfg.Database.DSN()})
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	rdb, err := bootstrap.OpenRedis(ctx, cfg.Redis)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	if rdb != nil {
		defer rdb.Close()
	} else {
		slogger.Warn("REDIS_ADDR not configured; rate limiting disabled")
	}

	store, err := storage.FromConfig(ctx, cfg.Storage)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}

	scheduler := mail.NewScheduler(mail.NewRepo(db), slogger)
	cronJobs := scheduler.Start()
	defer cronJobs.Stop()

	r := bootstrap.BuildRouter(bootstrap.RouterDeps{
		ServiceName: serviceName,
		Cfg:         cfg,
		DB:          db,
		Redis:       rdb,
		Storage:     store,
		Logger:      slogger,
	})

	slogger.Info("server starting", "port", cfg.Server.Port, "env", cfg.App.Environment)
	if err := r.Run(":" + cfg.Server.Port); err != nil {
		log.Fatalf("server: %v", err)
	}
}
