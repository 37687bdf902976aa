// Package app provides application initialization and dependency wiring.
//
// Setup composes the storage layers, the Gemini-backed guardrail and
// generator, and the chat orchestrator from configuration. App owns the
// resources and releases them in Close.
package app

import (
	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/askgov/askgov/internal/answer"
	"github.com/askgov/askgov/internal/chat"
	"github.com/askgov/askgov/internal/config"
	"github.com/askgov/askgov/internal/conversation"
	"github.com/askgov/askgov/internal/guardrail"
	"github.com/askgov/askgov/internal/knowledge"
	"github.com/askgov/askgov/internal/log"
	"github.com/askgov/askgov/internal/notify"
)

// App is the core application container.
type App struct {
	Config *config.Config
	Logger log.Logger

	Genkit   *genkit.Genkit
	Embedder ai.Embedder

	DBPool *pgxpool.Pool
	Redis  *redis.Client

	Knowledge     *knowledge.Store
	Conversations conversation.Store
	Guardrail     *guardrail.Policy
	Generator     *answer.Gemini
	Registry      *notify.Registry
	Orchestrator  *chat.Orchestrator
}

// Close releases all resources. Safe to call on a partially initialized App.
func (a *App) Close() error {
	if a.Logger != nil {
		a.Logger.Info("shutting down application")
	}

	var firstErr error
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if a.DBPool != nil {
		a.DBPool.Close()
	}
	return firstErr
}
