package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/askgov/askgov/internal/app"
	"github.com/askgov/askgov/internal/config"
	"github.com/askgov/askgov/internal/knowledge"
	"github.com/askgov/askgov/internal/log"
)

// ingestEntry is one passage in the ingest file.
type ingestEntry struct {
	ID       string            `json:"id,omitempty"`
	Content  string            `json:"content"`
	Source   string            `json:"source"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// runIngest loads knowledge base passages from a JSON file:
//
//	askgov ingest passages.json
//
// The file holds an array of {id?, content, source, metadata?} objects.
// Entries without an ID get one minted; existing IDs are upserted.
func runIngest(logger log.Logger) error {
	if len(os.Args) < 3 {
		return fmt.Errorf("usage: askgov ingest <file.json>")
	}
	path := os.Args[2]

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err = cfg.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	var entries []ingestEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	if len(entries) == 0 {
		return fmt.Errorf("%s contains no passages", path)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, cleanup, err := app.SetupKnowledge(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing knowledge store: %w", err)
	}
	defer cleanup()

	for i, e := range entries {
		if e.Content == "" || e.Source == "" {
			return fmt.Errorf("entry %d: content and source are required", i)
		}
		id := e.ID
		if id == "" {
			id = uuid.NewString()
		}
		doc := knowledge.Document{
			ID:       id,
			Content:  e.Content,
			Source:   e.Source,
			Metadata: e.Metadata,
		}
		if err := store.Add(ctx, doc); err != nil {
			return fmt.Errorf("ingesting entry %d (%s): %w", i, e.Source, err)
		}
		logger.Debug("passage ingested", "id", id, "source", e.Source)
	}

	count, err := store.Count(ctx)
	if err != nil {
		return fmt.Errorf("counting passages: %w", err)
	}

	logger.Info("ingest complete", "ingested", len(entries), "total", count)
	fmt.Printf("Ingested %d passages (%d total in knowledge base)\n", len(entries), count)
	return nil
}
