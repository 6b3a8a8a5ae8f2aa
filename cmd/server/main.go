// cmd/server/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/bierstube/storefront/internal/cache"
	"github.com/bierstube/storefront/internal/config"
	"github.com/bierstube/storefront/internal/database"
	"github.com/bierstube/storefront/internal/i18n"
	"github.com/bierstube/storefront/internal/messaging"
	"github.com/bierstube/storefront/internal/messaging/kafka"
	"github.com/bierstube/storefront/internal/middleware"
	"github.com/bierstube/storefront/internal/repository"
	"github.com/bierstube/storefront/internal/repository/memory"
	"github.com/bierstube/storefront/internal/repository/postgres"
	"github.com/bierstube/storefront/internal/router"
	"github.com/bierstube/storefront/internal/services"
	"github.com/bierstube/storefront/internal/utils"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}

	configureLogging(cfg)

	// Initialize i18n
	if err := i18n.Initialize(cfg.I18n.DefaultLocale); err != nil {
		logrus.WithError(err).Fatal("Failed to initialize i18n")
	}

	store, closeStore := openStore(cfg)
	defer closeStore()

	publisher := messaging.Publisher(messaging.NopPublisher{})
	if cfg.Kafka.Enabled {
		publisher = kafka.NewPublisher(cfg.Kafka.Brokers, time.Duration(cfg.Kafka.WriteTimeoutSecond)*time.Second)
		logrus.WithField("brokers", cfg.Kafka.Brokers).Info("Kafka publisher enabled")
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close publisher")
		}
	}()

	var productCache cache.ProductCache
	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()

		if err := client.Ping(context.Background()).Err(); err != nil {
			logrus.WithError(err).Warn("Redis unreachable, product cache disabled")
		} else {
			productCache = cache.NewRedisProductCache(client, cfg.Storefront.ProductCacheTTL)
			logrus.WithField("addr", cfg.Redis.Addr()).Info("Redis product cache enabled")
		}
	}

	storage, err := services.NewStorageService(cfg.AWS)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize backup storage")
	}

	// Set Gin mode
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	stop := make(chan struct{})
	limiters := middleware.DefaultLimiters()
	limiters.Run(stop)

	// Initialize router
	r := router.Initialize(router.Dependencies{
		Config:       cfg,
		Store:        store,
		Tokens:       utils.NewTokenIssuer(cfg.JWT.SecretKey, cfg.JWT.Issuer, time.Duration(cfg.JWT.AccessTokenTTL)*time.Hour),
		Publisher:    publisher,
		ProductCache: productCache,
		Storage:      storage,
		Limiters:     limiters,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logrus.WithField("port", cfg.Server.Port).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down server...")
	close(stop)

	// Create a deadline for shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logrus.WithError(err).Error("Server forced to shutdown")
	}

	logrus.Info("Server exited")
}

func configureLogging(cfg *config.Config) {
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	if cfg.Environment == "production" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}

// openStore returns the configured store and a func that releases it.
func openStore(cfg *config.Config) (repository.Store, func()) {
	if cfg.StoreDriver == "memory" {
		logrus.Warn("Using in-memory store, data is lost on restart")
		return memory.New(), func() {}
	}

	// Initialize database
	db, err := database.Initialize(cfg.Database)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize database")
	}

	// Run database migrations
	if err := database.RunMigrations(db); err != nil {
		logrus.WithError(err).Fatal("Failed to run migrations")
	}

	return postgres.New(db), func() { database.Close(db) }
}
