package main

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"codeberg.org/docuchat/server/docuchat/chats"
	"codeberg.org/docuchat/server/docuchat/collections"
	"codeberg.org/docuchat/server/docuchat/documents"
	"codeberg.org/docuchat/server/internal/agent"
	"codeberg.org/docuchat/server/internal/auth"
	"codeberg.org/docuchat/server/internal/chat"
	"codeberg.org/docuchat/server/internal/config"
	"codeberg.org/docuchat/server/internal/embedder"
	"codeberg.org/docuchat/server/internal/ingest"
	"codeberg.org/docuchat/server/internal/library"
	"codeberg.org/docuchat/server/internal/llm"
	"codeberg.org/docuchat/server/internal/queue"
	"codeberg.org/docuchat/server/internal/retriever"
	"codeberg.org/docuchat/server/internal/vectorstore"
)

// holds all dependencies and state for the API server
type Server struct {
	db       *pgxpool.Pool
	redis    *redis.Client
	config   *config.Config
	signer   *auth.Signer
	services *Services
	router   *gin.Engine
	limits   limits
}

// per-user rate limit middleware, one per limited route
type limits struct {
	chat   gin.HandlerFunc
	upload gin.HandlerFunc
}

// holds repositories, backends and the services built on them
type Services struct {
	Collections *collections.Repository
	Documents   *documents.Repository
	Chats       *chats.Repository

	VectorStore vectorstore.Store
	Embedders   *embedder.Registry
	LLMs        *llm.Registry

	Pipeline  *ingest.Pipeline
	Pool      *ingest.Pool
	NATS      *queue.NATSDispatcher
	Ingest    *ingest.Service
	Library   *library.Service
	Retriever *retriever.Engine
	Agent     *agent.Agent
	Chat      *chat.Service
}
