// Package knowledge manages the curated passage corpus and its semantic
// retrieval via PostgreSQL + pgvector.
package knowledge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/firebase/genkit/go/ai"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pgvector/pgvector-go"

	"github.com/askgov/askgov/internal/log"
)

// Store manages knowledge passages with vector search.
// It generates embeddings with the configured embedder and delegates
// persistence to a Querier.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	queries  Querier
	embedder ai.Embedder
	logger   log.Logger
}

// New creates a new Store.
// A nil logger disables store logging.
func New(querier Querier, embedder ai.Embedder, logger log.Logger) *Store {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Store{
		queries:  querier,
		embedder: embedder,
		logger:   logger,
	}
}

// Add indexes a document in the knowledge store.
// The content is embedded with the configured embedder; an existing
// document with the same ID is replaced.
func (s *Store) Add(ctx context.Context, doc Document) error {
	embedding, err := s.embed(ctx, doc.Content)
	if err != nil {
		return fmt.Errorf("embedding document %q: %w", doc.ID, err)
	}

	metadataJSON, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("marshaling metadata for %q: %w", doc.ID, err)
	}

	err = s.queries.UpsertPassage(ctx, UpsertPassageParams{
		ID:        doc.ID,
		Content:   doc.Content,
		Source:    doc.Source,
		Embedding: embedding,
		Metadata:  metadataJSON,
		CreatedAt: pgtype.Timestamptz{Time: doc.CreatedAt, Valid: !doc.CreatedAt.IsZero()},
	})
	if err != nil {
		return fmt.Errorf("upserting document %q: %w", doc.ID, err)
	}

	s.logger.Debug("indexed document", "id", doc.ID, "source", doc.Source, "content_length", len(doc.Content))
	return nil
}

// Search returns the passages most similar to the query, ordered by
// descending similarity. The default result limit is DefaultTopK.
func (s *Store) Search(ctx context.Context, query string, opts ...SearchOption) ([]Passage, error) {
	cfg := buildSearchConfig(opts)

	queryCtx, cancel := context.WithTimeout(ctx, cfg.timeout)
	defer cancel()

	embedding, err := s.embed(queryCtx, query)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("embedding generation timeout: %w", err)
		}
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	rows, err := s.queries.SearchPassages(queryCtx, SearchPassagesParams{
		QueryEmbedding: embedding,
		Source:         cfg.source,
		ResultLimit:    int32(cfg.topK),
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("search query timeout: %w", err)
		}
		return nil, fmt.Errorf("search failed: %w", err)
	}

	passages := make([]Passage, 0, len(rows))
	for _, row := range rows {
		passages = append(passages, Passage{
			ID:      row.ID,
			Content: row.Content,
			Source:  row.Source,
			Score:   row.Similarity,
		})
	}
	return passages, nil
}

// Count returns the number of indexed passages.
func (s *Store) Count(ctx context.Context) (int, error) {
	count, err := s.queries.CountPassages(ctx)
	if err != nil {
		return 0, fmt.Errorf("count failed: %w", err)
	}
	if count > math.MaxInt {
		return 0, fmt.Errorf("passage count %d exceeds platform int capacity", count)
	}
	return int(count), nil
}

// Delete removes a passage from the knowledge store.
func (s *Store) Delete(ctx context.Context, docID string) error {
	if err := s.queries.DeletePassage(ctx, docID); err != nil {
		return fmt.Errorf("deleting document %q: %w", docID, err)
	}
	s.logger.Debug("deleted document", "id", docID)
	return nil
}

// embed generates a single embedding vector for the given text.
func (s *Store) embed(ctx context.Context, text string) (pgvector.Vector, error) {
	resp, err := s.embedder.Embed(ctx, &ai.EmbedRequest{
		Input: []*ai.Document{
			{Content: []*ai.Part{ai.NewTextPart(text)}},
		},
	})
	if err != nil {
		return pgvector.Vector{}, err
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Embedding) == 0 {
		return pgvector.Vector{}, errors.New("empty embedding returned")
	}
	return pgvector.NewVector(resp.Embeddings[0].Embedding), nil
}
