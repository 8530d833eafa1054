// Package main is the entry point for the campaign dispatch server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/blastline/blastline/internal/cache"
	"github.com/blastline/blastline/internal/config"
	"github.com/blastline/blastline/internal/dispatch"
	"github.com/blastline/blastline/internal/events"
	"github.com/blastline/blastline/internal/handler"
	"github.com/blastline/blastline/internal/middleware"
	"github.com/blastline/blastline/internal/provider"
	"github.com/blastline/blastline/internal/registry"
	"github.com/blastline/blastline/internal/repository"
	"github.com/blastline/blastline/internal/scheduler"
	"github.com/blastline/blastline/internal/service"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			_ = syncErr
		}
	}()

	cfg, err := config.LoadConfig("config.yaml")
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	db, err := sqlx.Connect("postgres", cfg.Database.GetDSN())
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database connection", zap.Error(err))
		}
	}()

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	redisClient := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error("Failed to close Redis connection", zap.Error(err))
		}
	}()

	repo := repository.NewRepository(db)
	reg := registry.New()
	sink := events.NewRedisSink(redisClient, logger)
	gateway := provider.NewGateway(&cfg.Provider, logger)
	correlation := cache.NewMessageCorrelation(redisClient, logger)

	if err := service.SeedRegistry(ctx, repo, reg, logger); err != nil {
		logger.Fatal("Failed to seed instance registry", zap.Error(err))
	}

	instanceService := service.NewInstanceService(repo, reg, gateway, sink, correlation, logger)
	campaignService := service.NewCampaignService(repo, sink, logger)

	dispatcher := dispatch.NewDispatcher(&cfg.Dispatch, repo, reg, instanceService, sink, correlation, logger)
	healthService := service.NewHealthService(repo, redisClient, reg, dispatcher)

	svc := service.NewService(instanceService, campaignService, healthService)
	h := handler.NewHandler(svc, dispatcher, logger)

	router := setupRouter(h, cfg.Webhook.AuthToken)

	middlewareConfig := &middleware.Config{
		Logger: logger,
		CORS: &middleware.CORSConfig{
			AllowedOrigins:   cfg.Middleware.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: false,
			MaxAge:           86400,
		},
		RateLimit:      rate.Limit(cfg.Middleware.RateLimit),
		RateLimitBurst: cfg.Middleware.RateLimitBurst,
		RequestTimeout: 30 * time.Second,
	}

	finalHandler := middleware.Chain(middlewareConfig)(router)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      finalHandler,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	dispatchCtx, dispatchCancel := context.WithCancel(context.Background())
	defer dispatchCancel()

	if err := dispatcher.Start(dispatchCtx); err != nil {
		logger.Fatal("Failed to start dispatcher", zap.Error(err))
	}

	// The sweep revives runners for running campaigns and requeues rows a
	// crashed process left in sending.
	sweeper := scheduler.NewScheduler(logger, cfg.Dispatch.SweepInterval(), dispatcher.Sweep)
	if err := sweeper.Start(dispatchCtx); err != nil {
		logger.Fatal("Failed to start sweep scheduler", zap.Error(err))
	}

	go func() {
		logger.Info("Starting server", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	if sweeper.IsRunning() {
		if err := sweeper.Stop(); err != nil {
			logger.Error("Failed to stop sweep scheduler", zap.Error(err))
		}
	}

	if err := dispatcher.Stop(); err != nil {
		logger.Error("Failed to stop dispatcher", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
