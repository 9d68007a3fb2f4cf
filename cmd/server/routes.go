package main

import (
	"context"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"codeberg.org/docuchat/server/api/rest/chats"
	"codeberg.org/docuchat/server/api/rest/collections"
	"codeberg.org/docuchat/server/api/rest/documents"
	"codeberg.org/docuchat/server/api/rest/health"
	"codeberg.org/docuchat/server/api/rest/requestid"
	"codeberg.org/docuchat/server/api/rest/search"
	"codeberg.org/docuchat/server/internal/auth"
)

// sets up all API routes and middleware
func RegisterRoutes(router *gin.Engine, server *Server) {
	router.Use(cors.New(cors.Config{
		AllowOrigins:     server.config.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", requestid.Header},
		ExposeHeaders:    []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", requestid.Header},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", health.Handler(healthChecks(server)))

	svc := server.services

	v1 := router.Group("/api/v1")

	{
		v1.GET("/ping", health.PingHandler)
		v1.GET("/backends", health.BackendsHandler(svc.LLMs, svc.Embedders, server.config.VectorStore.Kind))

		protected := v1.Group("")
		protected.Use(auth.Middleware(server.signer))

		collections.RegisterRoutes(protected, svc.Library)
		documents.RegisterRoutes(protected, svc.Library, svc.Ingest, server.config.Pipeline.MaxUploadBytes, server.limits.upload)
		search.RegisterRoutes(protected, svc.Library, svc.Retriever)
		chats.RegisterRoutes(protected, svc.Chat, server.limits.chat)
	}
}

func healthChecks(server *Server) map[string]health.Check {
	checks := map[string]health.Check{
		"database": server.db.Ping,
	}

	if server.redis != nil {
		checks["redis"] = func(ctx context.Context) error {
			return server.redis.Ping(ctx).Err()
		}
	}

	return checks
}
