package main

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"codeberg.org/docuchat/server/api/rest/ratelimit"
	"codeberg.org/docuchat/server/api/rest/requestid"
	"codeberg.org/docuchat/server/internal/auth"
	"codeberg.org/docuchat/server/internal/config"
	"codeberg.org/docuchat/server/internal/logger"
	"codeberg.org/docuchat/server/internal/storage"
)

// creates and configures a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	ctx := context.Background()

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	// ingestion workers and chat requests share the pool
	poolConfig.MaxConns = int32(max(cfg.Pipeline.Workers+5, 10)) //nolint:gosec // worker count is validated
	poolConfig.MinConns = 1
	poolConfig.MaxConnLifetime = 30 * time.Minute
	poolConfig.MaxConnIdleTime = 5 * time.Minute
	poolConfig.HealthCheckPeriod = 1 * time.Minute

	db, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create database pool: %w", err)
	}

	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := storage.Migrate(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	signer, err := auth.NewSigner(cfg.JWTSecret, auth.DefaultTTL)
	if err != nil {
		db.Close()
		return nil, err
	}

	// redis is optional: it backs chat session locks and rate limits across replicas
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = connectRedis(ctx, cfg.RedisURL)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
	}

	services, err := InitializeServices(cfg, db, redisClient)
	if err != nil {
		closeRedis(redisClient)
		db.Close()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	limits, err := newLimits(cfg, redisClient)
	if err != nil {
		closeRedis(redisClient)
		db.Close()
		return nil, fmt.Errorf("failed to initialize rate limiter: %w", err)
	}

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	router.Use(requestid.Middleware())

	server := &Server{
		db:       db,
		redis:    redisClient,
		config:   cfg,
		signer:   signer,
		services: services,
		router:   router,
		limits:   limits,
	}

	RegisterRoutes(router, server)

	logger.Info("server initialized",
		"environment", cfg.Environment,
		"redis", redisClient != nil,
		"speech", cfg.SpeechServiceURL != "",
	)

	return server, nil
}

func newLimits(cfg *config.Config, client *redis.Client) (limits, error) {
	chat, err := ratelimit.New("chat", cfg.RateLimitChat, client)
	if err != nil {
		return limits{}, err
	}

	upload, err := ratelimit.New("upload", cfg.RateLimitUpload, client)
	if err != nil {
		return limits{}, err
	}

	return limits{chat: chat, upload: upload}, nil
}

func connectRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close() //nolint:errcheck,gosec // best-effort cleanup on init failure
		return nil, err
	}

	return client, nil
}

func closeRedis(client *redis.Client) {
	if client == nil {
		return
	}

	if err := client.Close(); err != nil {
		logger.ErrorErr(err, "failed to close redis client")
	}
}
