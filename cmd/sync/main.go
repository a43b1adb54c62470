package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/prefeitura-rio/app-sentinela/internal/config"
	"github.com/prefeitura-rio/app-sentinela/internal/logging"
	"github.com/prefeitura-rio/app-sentinela/internal/services"
)

func main() {
	// Initialize logging
	if err := logging.InitLogger(); err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}

	// Load configuration
	if err := config.LoadConfig(); err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logging.Logger.Info("Starting Sentinela Reconcile Service")

	// Initialize Redis
	config.InitRedis()
	if config.Redis == nil {
		log.Fatal("Failed to initialize Redis client")
	}

	// Initialize MongoDB
	config.InitMongoDB()
	if config.MongoDB == nil {
		log.Fatal("Failed to initialize MongoDB")
	}

	userIPStore := services.NewMongoUserIPStore(config.MongoDB, config.AppConfig.UserIPCollection)
	blockedIPStore := services.NewMongoBlockedIPStore(config.MongoDB, config.AppConfig.BlockedIPCollection)
	profileStore := services.NewMongoProfileStore(config.MongoDB, config.AppConfig.UserProfileCollection)

	buffer := services.NewRedisIngestBuffer(config.Redis, config.AppConfig.IPBufferTTL)
	cache := services.NewBlockedIPCache(config.Redis, userIPStore, blockedIPStore,
		config.AppConfig.BlockedIPCacheTTL, logging.Logger)
	reconciler := services.NewReconciler(buffer, userIPStore, profileStore, cache,
		config.AppConfig.ReconcileChunkSize, services.NewMetrics(), logging.Logger)

	scheduler := services.NewReconcileScheduler(reconciler, config.AppConfig.ReconcileInterval, logging.Logger)
	scheduler.Start()

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	<-sigChan
	logging.Logger.Info("Shutdown signal received")

	scheduler.Stop()

	logging.Logger.Info("Sentinela Reconcile Service stopped")
}
