package knowledge

import "time"

// Document represents a knowledge document to be indexed.
type Document struct {
	ID        string            // Unique identifier
	Content   string            // Passage text content
	Source    string            // Provenance (document title, URL, or file path)
	Metadata  map[string]string // Optional metadata
	CreatedAt time.Time         // Creation timestamp
}

// Passage is a single retrieval result with its provenance and
// similarity score.
type Passage struct {
	ID      string
	Content string
	Source  string
	Score   float32 // Cosine similarity (0-1)
}

// SearchOption configures search behavior using the functional options pattern.
type SearchOption func(*searchConfig)

// searchConfig holds internal search configuration.
type searchConfig struct {
	topK    int
	source  string
	timeout time.Duration
}

// DefaultTopK is the number of passages returned when WithTopK is not given.
const DefaultTopK = 5

// defaultSearchTimeout bounds vector search queries so a slow index scan
// cannot block a chat turn indefinitely.
const defaultSearchTimeout = 10 * time.Second

// WithTopK sets the maximum number of results to return.
func WithTopK(k int) SearchOption {
	return func(c *searchConfig) {
		c.topK = k
	}
}

// WithSource restricts search results to passages from one source.
func WithSource(source string) SearchOption {
	return func(c *searchConfig) {
		c.source = source
	}
}

// WithTimeout overrides the default search timeout.
func WithTimeout(d time.Duration) SearchOption {
	return func(c *searchConfig) {
		c.timeout = d
	}
}

// buildSearchConfig applies search options and returns the final configuration.
func buildSearchConfig(opts []SearchOption) *searchConfig {
	cfg := &searchConfig{
		topK:    DefaultTopK,
		timeout: defaultSearchTimeout,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
