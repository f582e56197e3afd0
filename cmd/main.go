package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/smakam/globtranslate-claude/internal/app/registry"
	"github.com/smakam/globtranslate-claude/internal/app/server"
	"github.com/smakam/globtranslate-claude/internal/app/worker"
	"github.com/smakam/globtranslate-claude/internal/config"
	"github.com/smakam/globtranslate-claude/internal/core/services"
	"github.com/smakam/globtranslate-claude/internal/platform/logger"
	"github.com/smakam/globtranslate-claude/internal/platform/telemetry"
	"github.com/smakam/globtranslate-claude/internal/plugins/postgres"
	redisPlugin "github.com/smakam/globtranslate-claude/internal/plugins/redis"
	"github.com/smakam/globtranslate-claude/internal/plugins/translate"
)

func main() {
	// Context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Config
	_ = godotenv.Load()
	cfg := config.Load()

	// Logger
	log := logger.NewLogger(*cfg)
	log.Info("starting application")

	otelShutdown, err := telemetry.InitTelemetry(ctx, *cfg)
	if err != nil {
		log.Error("failed to initialize telemetry", "err", err)
	}
	defer func() {
		log.Info("flushing telemetry...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			log.Error("telemetry shutdown failed", "err", err)
		}
	}()

	// Infra
	var pdb *sql.DB
	if pdb, err = postgres.New(ctx, *cfg.Postgres); err != nil {
		log.Error("postgres connection failed", "DSN", cfg.Postgres.DSN)
		return
	}
	log.Info("postgres connected")
	var rdb *redis.Client
	if rdb, err = redisPlugin.NewRedisClient(ctx, *cfg.Redis); err != nil {
		log.Error("redis connection failed", "url", cfg.Redis.URL)
		return
	}
	log.Info("redis connected")

	// Adapters
	profileRepo := postgres.NewProfileRepo(pdb)
	chatRepo := postgres.NewChatRepo(pdb)
	msgRepo := postgres.NewMessageRepo(pdb)
	presStore := redisPlugin.NewRedisPresenceStore(rdb)
	msgQueue := redisPlugin.NewRedisMessageQueue(log, rdb)
	recencyStore := redisPlugin.NewRedisRecencyStore(rdb)

	translator := translate.NewGoogleClient(*cfg.Translator)

	// Core Services
	hub := registry.NewRegistry()
	txManager := postgres.NewTxManager(pdb)
	tokenSvc := services.NewTokenService(cfg.SecretToken)
	directorySvc := services.NewDirectoryService(log, profileRepo, presStore)
	identitySvc := services.NewIdentityService(log, profileRepo, presStore, directorySvc, txManager)
	translationSvc := services.NewTranslationService(log, translator, *cfg.Translator)
	msgSvc := services.NewMessageService(log, msgQueue, hub, msgRepo, chatRepo, recencyStore, txManager)
	chatSvc := services.NewChatService(log, chatRepo, directorySvc, translationSvc, msgSvc, recencyStore, hub, txManager)

	wrkr := worker.NewChatWorker(log, msgQueue, msgSvc, cfg.Worker.MessageGroup)
	hub.RunWorker(wrkr.Run)

	// Server
	srv := server.NewServer(log, cfg, identitySvc, directorySvc, chatSvc, tokenSvc, recencyStore, hub)
	if err := srv.Start(); err != nil {
		log.Error("server stopped", "err", err)
	}
}
