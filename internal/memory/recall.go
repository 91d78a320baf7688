package memory

import (
	"context"
	"fmt"

	"github.com/easeaico/ensemble/internal/storage"
)

// Searcher runs vector similarity queries against stored messages.
type Searcher interface {
	SearchSimilar(ctx context.Context, sessionID string, embedding []float32, topK int, threshold float64) ([]storage.RecalledMessage, error)
}

// Recall retrieves past conversation messages semantically related to
// a query.
type Recall struct {
	embedder  Embedder
	searcher  Searcher
	topK      int
	threshold float64
}

// NewRecall creates a Recall service.
func NewRecall(embedder Embedder, searcher Searcher, topK int, threshold float64) *Recall {
	if topK <= 0 {
		topK = 5
	}
	if threshold <= 0 {
		threshold = 0.7
	}
	return &Recall{
		embedder:  embedder,
		searcher:  searcher,
		topK:      topK,
		threshold: threshold,
	}
}

// Recall returns the top-k similar messages of a session for a query.
func (r *Recall) Recall(ctx context.Context, sessionID, query string) ([]storage.RecalledMessage, error) {
	if query == "" {
		return nil, nil
	}
	if r.embedder == nil || r.searcher == nil {
		return nil, fmt.Errorf("recall not properly configured")
	}

	vec, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed recall query: %w", err)
	}

	return r.searcher.SearchSimilar(ctx, sessionID, vec, r.topK, r.threshold)
}
