// Package main runs the event locator HTTP server with graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/event-locator/backend/config"
	"github.com/event-locator/backend/internal/auth"
	"github.com/event-locator/backend/internal/categories"
	"github.com/event-locator/backend/internal/events"
	"github.com/event-locator/backend/internal/middleware"
	"github.com/event-locator/backend/internal/notifications"
	"github.com/event-locator/backend/internal/users"
	"github.com/event-locator/backend/pkg/database"
	"github.com/event-locator/backend/pkg/queue"
	"github.com/event-locator/backend/pkg/redis"
	"github.com/event-locator/backend/pkg/response"
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

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	deliveryQueue := queue.NewQueue(rdb.Client, logger)

	// Auth
	authRepo := auth.NewRepository(pool)
	authHandler := auth.NewHandler(authRepo, jwtService, logger)

	// Categories
	categoryRepo := categories.NewRepository(pool)
	categoryHandler := categories.NewHandler(categoryRepo)

	// Notifications
	notificationRepo := notifications.NewRepository(pool)
	scheduler := notifications.NewScheduler(notificationRepo, deliveryQueue, cfg.Notifications.Lead, logger)
	notificationHandler := notifications.NewHandler(notificationRepo)
	deliveryWorker := notifications.NewWorker(notificationRepo, deliveryQueue, cfg.Notifications.PollInterval, logger)

	// Events
	eventRepo := events.NewRepository(pool, scheduler, logger)
	eventHandler := events.NewHandler(eventRepo, scheduler, logger)

	// Users
	userRepo := users.NewRepository(pool)
	userHandler := users.NewHandler(userRepo)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Auth (public)
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
	}

	// Public reads
	router.GET("/events/nearby", eventHandler.Nearby)
	router.GET("/events", eventHandler.List)
	router.GET("/events/:id", eventHandler.GetByID)
	router.GET("/events/:id/ratings", eventHandler.ListRatings)
	router.GET("/categories", categoryHandler.List)
	router.GET("/categories/:id", categoryHandler.GetByID)

	// Protected API (JWT required)
	api := router.Group("")
	api.Use(middleware.JWT(jwtService))
	{
		// Events
		api.POST("/events", eventHandler.Create)
		api.PUT("/events/:id", eventHandler.Update)
		api.DELETE("/events/:id", eventHandler.Delete)
		api.POST("/events/:id/ratings", eventHandler.AddRating)
		api.POST("/events/:id/favorite", eventHandler.AddFavorite)
		api.DELETE("/events/:id/favorite", eventHandler.RemoveFavorite)

		// Categories
		api.POST("/categories", categoryHandler.Create)
		api.PUT("/categories/:id", categoryHandler.Update)
		api.DELETE("/categories/:id", categoryHandler.Delete)

		// Users
		api.PUT("/users/preferences", userHandler.UpdatePreferences)
		api.PUT("/users/location", userHandler.SetLocation)
		api.GET("/users/location", userHandler.GetLocation)
		api.GET("/users/locations", userHandler.ListLocations)
		api.GET("/users/favorites", userHandler.ListFavorites)

		// Notifications
		api.GET("/notifications", notificationHandler.List)
		api.PATCH("/notifications/:id/read", notificationHandler.MarkRead)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// In-process delivery worker; deployments can run cmd/worker instead.
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	go deliveryWorker.Run(workerCtx)
	logger.Info("delivery worker started")

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	workerCancel()
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
