// Package main provides the API server entry point for the Parting Gifts
// service.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/parting-gifts/internal/api"
	"github.com/parting-gifts/internal/auth"
	"github.com/parting-gifts/internal/config"
	"github.com/parting-gifts/internal/crypto"
	"github.com/parting-gifts/internal/logging"
	"github.com/parting-gifts/internal/mail"
	"github.com/parting-gifts/internal/scheduler"
	"github.com/parting-gifts/internal/service"
	"github.com/parting-gifts/internal/storage"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize structured logging
	logLevel := logging.ParseLevel(cfg.Logging.Level)
	logFormat := logging.ParseFormat(cfg.Logging.Format)
	logging.InitGlobalLogger(logLevel, logFormat)

	logger := logging.GetGlobalLogger()
	logger.WithFields(map[string]interface{}{
		"level":  cfg.Logging.Level,
		"format": cfg.Logging.Format,
	}).Info("Structured logging initialized")

	// Connect to Postgres
	logger.Info("Connecting to databases...")
	postgres, err := storage.NewPostgresDB(&cfg.Database.Postgres)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Postgres")
	}
	defer postgres.Close()

	// Apply pending migrations on startup
	if err := storage.RunMigrations(&cfg.Database.Postgres, "migrations"); err != nil {
		logger.WithError(err).Fatal("Failed to run migrations")
	}

	// Connect to Redis
	redis, err := storage.NewRedisCache(&cfg.Database.Redis)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Redis")
	}
	defer redis.Close()

	logger.Info("Database connections established")

	// Initialize repositories
	userRepo := storage.NewUserRepository(postgres)
	giftRepo := storage.NewGiftRepository(postgres)
	messageRepo := storage.NewMessageRepository(postgres)
	followRepo := storage.NewFollowRepository(postgres)
	inactivityRepo := storage.NewInactivityRepository(postgres)

	// Initialize services
	logger.Info("Initializing services...")

	cipher, err := crypto.NewCipher([]byte(cfg.Auth.MessageKey))
	if err != nil {
		logger.WithError(err).Fatal("Invalid message encryption key")
	}

	mailer := mail.NewMailer(&cfg.Mail)
	tokens := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	accountService := service.NewAccountService(userRepo, mailer, tokens)
	giftService := service.NewGiftService(
		giftRepo,
		userRepo,
		inactivityRepo,
		mailer,
		cfg.Scheduler.DefaultDelay,
		cfg.Scheduler.InactivityWait,
	)
	socialService := service.NewSocialService(followRepo, userRepo, redis)
	messageService := service.NewMessageService(messageRepo, userRepo, cipher, redis)

	logger.Info("Services initialized")

	// Start the gift release worker
	worker, err := scheduler.NewReleaseWorker(giftService, cfg.Scheduler.PollInterval)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create release worker")
	}
	if err := worker.Start(context.Background()); err != nil {
		logger.WithError(err).Fatal("Failed to start release worker")
	}

	// Create server configuration
	serverConfig := &api.ServerConfig{
		Host:              cfg.Server.Host,
		Port:              cfg.Server.Port,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ShutdownTimeout:   cfg.Server.ShutdownTimeout,
		RequestsPerSecond: float64(cfg.RateLimit.RequestsPerSecond),
		Burst:             cfg.RateLimit.Burst,
	}

	server := api.NewServer(serverConfig, accountService, giftService, socialService, messageService)

	// Start server in a goroutine
	go func() {
		if err := server.Start(); err != nil {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	logger.WithFields(map[string]interface{}{
		"host": cfg.Server.Host,
		"port": cfg.Server.Port,
	}).Info("Server started successfully")

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), serverConfig.ShutdownTimeout)
	defer cancel()

	if err := worker.Stop(ctx); err != nil {
		logger.WithError(err).Error("Release worker did not stop cleanly")
	}

	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Fatal("Server forced to shutdown")
	}

	logger.Info("Server exited")
}
