package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvector "github.com/pgvector/pgvector-go/pgx"
	"github.com/redis/go-redis/v9"

	"github.com/askgov/askgov/db"
	"github.com/askgov/askgov/internal/answer"
	"github.com/askgov/askgov/internal/chat"
	"github.com/askgov/askgov/internal/config"
	"github.com/askgov/askgov/internal/conversation"
	"github.com/askgov/askgov/internal/guardrail"
	"github.com/askgov/askgov/internal/knowledge"
	"github.com/askgov/askgov/internal/log"
	"github.com/askgov/askgov/internal/notify"
)

// Setup creates and initializes the application.
// Returns an App with embedded cleanup — call Close() to release.
func Setup(ctx context.Context, cfg *config.Config, logger log.Logger) (_ *App, retErr error) {
	if logger == nil {
		logger = log.NewNop()
	}
	a := &App{Config: cfg, Logger: logger}

	// On error, clean up everything already initialized
	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	pool, err := provideDBPool(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.DBPool = pool

	g, err := provideGenkit(ctx)
	if err != nil {
		return nil, err
	}
	a.Genkit = g

	a.Embedder = provideEmbedder(g, cfg)
	if a.Embedder == nil {
		return nil, fmt.Errorf("embedder %q not found", cfg.EmbedderModel)
	}

	a.Knowledge = knowledge.New(knowledge.NewPGQuerier(pool), a.Embedder, logger)

	rdb, err := provideRedis(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.Redis = rdb
	a.Conversations = conversation.NewRedisStore(rdb, cfg.ConversationTTL(), cfg.EscalationTTL())

	a.Guardrail, err = guardrail.NewPolicy(g, cfg.GuardrailModel, logger)
	if err != nil {
		return nil, fmt.Errorf("creating guardrail policy: %w", err)
	}

	a.Generator, err = answer.NewGemini(g, cfg.ModelName, logger)
	if err != nil {
		return nil, fmt.Errorf("creating answer generator: %w", err)
	}

	a.Registry = notify.NewRegistry(logger)

	a.Orchestrator, err = chat.New(chat.Config{
		Guardrail:     a.Guardrail,
		Retriever:     a.Knowledge,
		Generator:     a.Generator,
		Store:         a.Conversations,
		Notifier:      a.Registry,
		Logger:        logger,
		Streaming:     cfg.AnswerMode == config.AnswerModeStreaming,
		EscalationTTL: cfg.EscalationTTL(),
	})
	if err != nil {
		return nil, fmt.Errorf("creating orchestrator: %w", err)
	}

	return a, nil
}

// SetupKnowledge initializes only the knowledge store and its dependencies.
// Used by operational tooling that loads the corpus without needing the
// conversation store or the chat pipeline.
func SetupKnowledge(ctx context.Context, cfg *config.Config, logger log.Logger) (*knowledge.Store, func(), error) {
	if logger == nil {
		logger = log.NewNop()
	}

	pool, err := provideDBPool(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	g, err := provideGenkit(ctx)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}

	embedder := provideEmbedder(g, cfg)
	if embedder == nil {
		pool.Close()
		return nil, nil, fmt.Errorf("embedder %q not found", cfg.EmbedderModel)
	}

	store := knowledge.New(knowledge.NewPGQuerier(pool), embedder, logger)
	return store, pool.Close, nil
}

// provideGenkit initializes Genkit with the Gemini plugin.
// GEMINI_API_KEY is read by the plugin from the environment.
func provideGenkit(ctx context.Context) (*genkit.Genkit, error) {
	g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
	if g == nil {
		return nil, errors.New("initializing genkit with gemini provider")
	}
	return g, nil
}

// provideEmbedder looks up the embedder registered by the Gemini plugin.
func provideEmbedder(g *genkit.Genkit, cfg *config.Config) ai.Embedder {
	return googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel)
}

// provideDBPool creates a PostgreSQL connection pool and runs migrations.
// Every new connection registers the pgvector types used by the knowledge
// store.
func provideDBPool(ctx context.Context, cfg *config.Config, logger log.Logger) (*pgxpool.Pool, error) {
	if err := db.Migrate(cfg.PostgresURL(), logger); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 1 * time.Minute
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvector.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return pool, nil
}

// provideRedis creates the Redis client backing the conversation store.
func provideRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}

	return rdb, nil
}
