package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prefeitura-rio/app-sentinela/internal/config"
	"github.com/prefeitura-rio/app-sentinela/internal/handlers"
	"github.com/prefeitura-rio/app-sentinela/internal/logging"
	"github.com/prefeitura-rio/app-sentinela/internal/middleware"
	"github.com/prefeitura-rio/app-sentinela/internal/observability"
	"github.com/prefeitura-rio/app-sentinela/internal/services"
	"github.com/prefeitura-rio/app-sentinela/internal/utils"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/prefeitura-rio/app-sentinela/docs"
)

// @title           Sentinela API
// @version         1.0
// @description     Phone verification via one-time codes and per-user IP access control. OTP issuance is throttled per phone; IP sightings are buffered in Redis and reconciled into MongoDB on a schedule.

// @contact.name   API Support
// @contact.url    http://www.swagger.io/support
// @contact.email  support@swagger.io

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:8080
// @BasePath  /v1

// @tag.name phone
// @tag.description Phone verification operations

// @tag.name access
// @tag.description Blocked-IP access checks

// @tag.name admin
// @tag.description Block-list administration

// @tag.name users
// @tag.description Per-user operations

// @tag.name health
// @tag.description Health check operations

func main() {
	// Initialize logger first
	if err := logging.InitLogger(); err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}

	// Load configuration
	if err := config.LoadConfig(); err != nil {
		logging.Logger.Fatal("failed to load config", zap.Error(err))
	}

	// Initialize observability
	observability.InitTracer()
	defer observability.ShutdownTracer()

	// Initialize database connections
	config.InitMongoDB()
	config.InitRedis()

	// Set Gin mode
	if config.AppConfig.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Wire stores and services
	otpStore := services.NewMongoOTPStore(config.MongoDB, config.AppConfig.OTPRequestCollection)
	userIPStore := services.NewMongoUserIPStore(config.MongoDB, config.AppConfig.UserIPCollection)
	blockedIPStore := services.NewMongoBlockedIPStore(config.MongoDB, config.AppConfig.BlockedIPCollection)
	profileStore := services.NewMongoProfileStore(config.MongoDB, config.AppConfig.UserProfileCollection)

	buffer := services.NewRedisIngestBuffer(config.Redis, config.AppConfig.IPBufferTTL)
	cache := services.NewBlockedIPCache(config.Redis, userIPStore, blockedIPStore,
		config.AppConfig.BlockedIPCacheTTL, logging.Logger)
	reconciler := services.NewReconciler(buffer, userIPStore, profileStore, cache,
		config.AppConfig.ReconcileChunkSize, services.NewMetrics(), logging.Logger)

	smsDispatcher := utils.NewSMSDispatcher(config.AppConfig, config.Redis)
	otpService := services.NewOTPService(services.OTPConfig{
		Expiry:               config.AppConfig.OTPExpiry,
		ThrottleWindow:       config.AppConfig.OTPThrottleWindow,
		MaxRequestsPerWindow: config.AppConfig.OTPMaxRequestsPerWindow,
		CodeLength:           config.AppConfig.OTPCodeLength,
		TokenTTL:             config.AppConfig.OTPTokenTTL,
		TestMode:             config.AppConfig.OTPTestMode,
	}, otpStore, smsDispatcher, logging.Logger)

	otpHandler := handlers.NewOTPHandler(otpService)
	accessHandler := handlers.NewAccessHandler(cache)
	adminHandler := handlers.NewAdminHandler(cache)
	reconcileHandler := handlers.NewReconcileHandler(reconciler)

	// Create router with middleware
	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.RequestLogger(),
		middleware.RequestTracker(),
		cors.Default(),
	)

	// Metrics endpoint
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 routes
	v1 := router.Group("/v1")
	v1.Use(middleware.IPTracker(buffer, cache))
	{
		// Health check endpoint
		v1.GET("/health", handlers.HealthCheck)

		v1.POST("/phone/otp", otpHandler.RequestOTP)
		v1.POST("/phone/otp/verify", otpHandler.VerifyOTP)
		v1.POST("/phone/otp/redeem", otpHandler.RedeemToken)

		v1.GET("/access/check", accessHandler.CheckAccess)
		v1.POST("/users/:id/ips/sync", reconcileHandler.SyncUserIPs)

		admin := v1.Group("/admin")
		{
			admin.GET("/blocked-ips", adminHandler.ListBlockedIPs)
			admin.POST("/blocked-ips", adminHandler.BlockIP)
			admin.DELETE("/blocked-ips/:ip", adminHandler.UnblockIP)
			admin.PUT("/users/:id/ips/:ip/block", adminHandler.BlockUserIP)
			admin.PUT("/users/:id/ips/:ip/unblock", adminHandler.UnblockUserIP)
		}
	}

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Create server with timeouts
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", config.AppConfig.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logging.Logger.Info("starting server",
			zap.Int("port", config.AppConfig.Port),
			zap.String("environment", config.AppConfig.Environment),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	// Graceful shutdown
	logging.Logger.Info("shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logging.Logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logging.Logger.Info("server exited gracefully")
}
