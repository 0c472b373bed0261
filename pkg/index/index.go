// Package index wraps the embedded vector database that backs trial
// matching. Retrieval is delegated wholesale to chromem-go; this layer
// only fixes the collection, caps result counts, and maps results into
// domain hits.
package index

import (
	"context"
	"fmt"
	"os"

	chromem "github.com/philippgille/chromem-go"
	"github.com/trialmatch/platform/pkg/common/logger"
	"github.com/trialmatch/platform/pkg/common/models"
)

// Embedder produces the query/document vectors. Production wires the
// llm.Client; tests inject a deterministic local function.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type TrialIndex struct {
	collection *chromem.Collection
}

// NewTrialIndex opens (or creates) a persistent collection at path.
func NewTrialIndex(path, collectionName string, embedder Embedder) (*TrialIndex, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory %s: %w", path, err)
	}

	db, err := chromem.NewPersistentDB(path, false)
	if err != nil {
		return nil, fmt.Errorf("opening vector store: %w", err)
	}

	embedFunc := func(ctx context.Context, text string) ([]float32, error) {
		return embedder.Embed(ctx, text)
	}

	collection, err := db.GetOrCreateCollection(collectionName, nil, embedFunc)
	if err != nil {
		return nil, fmt.Errorf("opening collection %s: %w", collectionName, err)
	}

	logger.Log.WithFields(map[string]interface{}{
		"path":       path,
		"collection": collectionName,
		"documents":  collection.Count(),
	}).Info("Trial index opened")

	return &TrialIndex{collection: collection}, nil
}

// Add indexes one serialized trial under its id. Adding the same id
// again overwrites the previous document.
func (i *TrialIndex) Add(ctx context.Context, id, document string) error {
	err := i.collection.AddDocuments(ctx, []chromem.Document{{
		ID:      id,
		Content: document,
	}}, 1)
	if err != nil {
		return fmt.Errorf("indexing trial %s: %w", id, err)
	}
	return nil
}

// Query runs a nearest-neighbor search. k is capped at the collection
// size because chromem rejects nResults above the document count; an
// empty index yields no hits rather than an error.
func (i *TrialIndex) Query(ctx context.Context, text string, k int) ([]models.TrialHit, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}

	count := i.collection.Count()
	if count == 0 {
		return nil, nil
	}
	if k > count {
		k = count
	}

	results, err := i.collection.Query(ctx, text, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("querying trial index: %w", err)
	}

	hits := make([]models.TrialHit, len(results))
	for idx, r := range results {
		hits[idx] = models.TrialHit{
			TrialID:  r.ID,
			Document: r.Content,
			Score:    r.Similarity,
		}
	}
	return hits, nil
}

// Count reports how many trials are retrievable.
func (i *TrialIndex) Count() int {
	return i.collection.Count()
}
