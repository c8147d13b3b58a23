package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	config "github.com/avatarctic/kvstore/configs"
	"github.com/avatarctic/kvstore/internal/application/services"
	"github.com/avatarctic/kvstore/internal/core/ports"
	"github.com/avatarctic/kvstore/internal/infrastructure/db"
	"github.com/avatarctic/kvstore/internal/infrastructure/health"
	"github.com/avatarctic/kvstore/internal/infrastructure/httpserver"
	"github.com/avatarctic/kvstore/internal/infrastructure/redis"
	"github.com/avatarctic/kvstore/internal/infrastructure/repositories"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	// Setup logger
	logger := logrus.New()
	if cfg.Logging.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		logger.SetLevel(logrus.InfoLevel)
	} else {
		logger.SetLevel(level)
	}

	logger.Info("Starting kvstore service...")

	// Initialize database (apply pool settings from config)
	database, err := db.NewDatabaseWithConfig(&cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database:", err)
	}
	defer database.Close()

	logger.Info("Connected to database successfully")

	// Run migrations when a path is configured; the store creates its own
	// schema on Initialize either way.
	if cfg.Database.MigrationsPath != "" {
		if err := database.Migrate(cfg.Database.MigrationsPath); err != nil {
			logger.Warn("Failed to run migrations:", err)
		}
	}

	// Initialize the key-value store and its schema
	kvService, err := services.NewKVService(database, &services.KVConfig{
		TableName:  cfg.Store.TableName,
		AllowStale: cfg.Store.AllowStale,
		Debug:      cfg.Store.Debug,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to create store:", err)
	}
	if err := kvService.Initialize(context.Background()); err != nil {
		logger.Fatal("Failed to initialize store:", err)
	}

	var store ports.Store = kvService

	hcSlice := []ports.HealthChecker{health.NewDBHealthChecker(database), health.NewStoreHealthChecker(kvService)}

	// Redis is optional; without it the service runs uncached and unthrottled.
	var rateLimiterService ports.RateLimiterService
	if cfg.Redis.Enabled {
		redisClient, err := redis.NewRedisClient(&cfg.Redis)
		if err != nil {
			logger.Warn("Failed to connect to Redis, continuing without cache and rate limiting:", err)
		} else {
			defer redisClient.Close()
			logger.Info("Connected to Redis successfully")

			if cfg.Cache.Enabled {
				redisCache := redis.NewRedisCache(redisClient, "kvcache")
				store = services.NewCachingStore(kvService, redisCache, cfg.Cache.TTL)
				logger.Infof("Read-through cache enabled (ttl=%s)", cfg.Cache.TTL)
			}

			rateLimitRepo := repositories.NewRateLimitRedisRepository(redisClient)
			rateLimiterService = services.NewRateLimiterService(rateLimitRepo, &services.RateLimiterConfig{
				DefaultRequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
				BurstMultiplier:          cfg.RateLimit.BurstMultiplier,
				Window:                   cfg.RateLimit.Window,
			}, logger)

			hcSlice = append(hcSlice, health.NewRedisHealthChecker(redisClient))
		}
	}

	// Wire audit and auth services
	auditRepo := repositories.NewAuditRepository(database, logger)
	auditService := services.NewAuditService(auditRepo, logger)

	authService := services.NewAuthService(&cfg.Auth, logger)
	if authService.Enabled() {
		logger.Info("API token authentication enabled")
	} else {
		logger.Warn("AUTH_API_TOKEN not set - API authentication is disabled")
	}

	// Create server configuration
	serverConfig := &httpserver.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		TLSCertFile:  cfg.Server.TLSCertFile,
		TLSKeyFile:   cfg.Server.TLSKeyFile,
	}

	// Initialize HTTP server using ServerDeps for clearer wiring
	deps := httpserver.ServerDeps{
		Store:              store,
		AuthService:        authService,
		AuditService:       auditService,
		RateLimiterService: rateLimiterService,
		HealthCheckers:     hcSlice,
	}

	server := httpserver.NewServer(serverConfig, logger, deps)

	// Start server in a goroutine
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server:", err)
		}
	}()

	logger.Infof("Server started on %s:%s", cfg.Server.Host, cfg.Server.Port)

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown:", err)
	}

	logger.Info("Server exited")
}
