package main

import (
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"codeberg.org/docuchat/server/docuchat/chats"
	"codeberg.org/docuchat/server/docuchat/collections"
	"codeberg.org/docuchat/server/docuchat/documents"
	"codeberg.org/docuchat/server/internal/agent"
	"codeberg.org/docuchat/server/internal/chat"
	"codeberg.org/docuchat/server/internal/chunker"
	"codeberg.org/docuchat/server/internal/config"
	"codeberg.org/docuchat/server/internal/embedder"
	"codeberg.org/docuchat/server/internal/extractor"
	"codeberg.org/docuchat/server/internal/ingest"
	"codeberg.org/docuchat/server/internal/library"
	"codeberg.org/docuchat/server/internal/llm"
	"codeberg.org/docuchat/server/internal/logger"
	"codeberg.org/docuchat/server/internal/queue"
	"codeberg.org/docuchat/server/internal/retriever"
	"codeberg.org/docuchat/server/internal/retry"
	"codeberg.org/docuchat/server/internal/sessions"
	"codeberg.org/docuchat/server/internal/speech"
	"codeberg.org/docuchat/server/internal/storage"
)

const (
	// how long a crashed replica can hold a chat session lock
	sessionLockTTL = 2 * time.Minute

	speechTimeout = 60 * time.Second
)

// creates and configures all service clients
func InitializeServices(cfg *config.Config, db *pgxpool.Pool, redisClient *redis.Client) (*Services, error) {
	p := cfg.Pipeline
	policy := retry.Policy{Attempts: retry.Default.Attempts, Backoff: p.RetryBackoff}

	store, err := storage.OpenVectorStore(cfg.VectorStore, db, p.VectorTimeout)
	if err != nil {
		return nil, err
	}

	embedders := embedder.NewRegistryFromEnv(embedder.Options{
		BatchSize: p.EmbedBatchSize,
		Timeout:   p.EmbedTimeout,
		Retry:     policy,
	})
	if len(embedders.Models()) == 0 {
		return nil, fmt.Errorf("no embedding backend configured: set OPENAI_API_KEY or OLLAMA_LOCAL_URL")
	}

	llms := llm.NewRegistryFromConfig(llm.LoadConfig(p.LLMTimeout))
	if len(llms.Available()) == 0 {
		return nil, fmt.Errorf("no LLM backend configured")
	}

	collectionRepo := collections.NewRepository(db)
	documentRepo := documents.NewRepository(db)
	chatRepo := chats.NewRepository(db)

	ingestOpts := ingest.DefaultOptions()
	ingestOpts.Chunking = chunker.Options{Size: p.ChunkSize, Overlap: p.ChunkOverlap}
	ingestOpts.UpsertBatch = p.EmbedBatchSize
	ingestOpts.ExtractTimeout = p.ExtractTimeout
	ingestOpts.VectorTimeout = p.VectorTimeout
	ingestOpts.Retry = policy

	pipeline := ingest.NewPipeline(documentRepo, collectionRepo, extractor.New(), embedders, store, ingestOpts)

	pool := ingest.NewPool(pipeline.Process, p.Workers, p.QueueSize)

	// with NATS every replica consumes the shared subject into its own pool
	var dispatcher ingest.Dispatcher = pool
	var natsDispatcher *queue.NATSDispatcher

	if cfg.NATSURL != "" {
		nc, err := queue.Connect(cfg.NATSURL, "docuchat-server")
		if err != nil {
			return nil, err
		}

		natsDispatcher = queue.NewNATSDispatcher(nc, queue.DefaultSubject)
		if err := natsDispatcher.Consume(pool); err != nil {
			natsDispatcher.Close() //nolint:errcheck,gosec // best-effort cleanup on init failure
			return nil, err
		}

		dispatcher = natsDispatcher
	}

	files, err := ingest.NewFileStore(cfg.UploadDir)
	if err != nil {
		return nil, err
	}

	ingestService := ingest.NewService(pipeline, documentRepo, files, dispatcher, ingest.ServiceOptions{
		MaxUploadBytes:    p.MaxUploadBytes,
		AllowedExtensions: p.AllowedExtensions,
	})

	engine := retriever.NewEngine(collectionRepo, embedders, store, retriever.Options{
		VectorTimeout: p.VectorTimeout,
		Retry:         policy,
	})

	generator := agent.New(llms, agent.Options{
		Timeout:      p.LLMTimeout,
		Retry:        policy,
		HistoryLimit: p.HistoryLimit,
		Fallback:     p.LLMFallback,
	})

	var locker sessions.Locker = sessions.NewMemoryLocker()
	if redisClient != nil {
		locker = sessions.NewRedisLocker(redisClient, sessionLockTTL)
	}

	chatService := chat.NewService(
		chatRepo,
		collectionRepo,
		engine,
		generator,
		llms,
		speech.NewClient(cfg.SpeechServiceURL, speechTimeout),
		locker,
		chat.Options{HistoryLimit: p.HistoryLimit},
	)

	logger.Info("services initialized",
		"vector_store", cfg.VectorStore.Kind,
		"embedding_models", embedders.Models(),
		"llm_models", llms.Available(),
		"dispatcher", dispatcherName(natsDispatcher),
		"workers", p.Workers,
	)

	return &Services{
		Collections: collectionRepo,
		Documents:   documentRepo,
		Chats:       chatRepo,
		VectorStore: store,
		Embedders:   embedders,
		LLMs:        llms,
		Pipeline:    pipeline,
		Pool:        pool,
		NATS:        natsDispatcher,
		Ingest:      ingestService,
		Library:     library.NewService(collectionRepo, documentRepo, embedders, store, ingestService),
		Retriever:   engine,
		Agent:       generator,
		Chat:        chatService,
	}, nil
}

func dispatcherName(nats *queue.NATSDispatcher) string {
	if nats != nil {
		return "nats"
	}

	return "local"
}
