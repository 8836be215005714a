package orchestrator

import (
	"context"

	"github.com/prismis/prismis/internal/metrics"
	"github.com/prismis/prismis/internal/models"
	"github.com/prismis/prismis/internal/observability"
)

// BackfillStorage is the storage slice the embedding-backfill job needs.
type BackfillStorage interface {
	UnembeddedContent(limit int) ([]models.ContentItem, error)
	AddEmbedding(contentID int64, vector []float32, model string) error
}

// BackfillJob periodically embeds content rows left behind by a tick
// whose embedding call failed.
type BackfillJob struct {
	Storage        BackfillStorage
	LLM            Coordinator
	Limit          int
	EmbeddingModel string
	Obs            *observability.Logger
}

// Run attempts to embed up to Limit unembedded items and reports
// processed/failed counts.
func (j *BackfillJob) Run(ctx context.Context) (processed, failed int, err error) {
	items, err := j.Storage.UnembeddedContent(j.Limit)
	if err != nil {
		return 0, 0, err
	}

	for _, item := range items {
		vec, embErr := j.LLM.Embed(ctx, item.Title, embeddingInput(item))
		if embErr != nil {
			failed++
			metrics.EmbeddingBackfillFailed.Inc()
			continue
		}
		if storeErr := j.Storage.AddEmbedding(item.ID, vec, j.EmbeddingModel); storeErr != nil {
			failed++
			metrics.EmbeddingBackfillFailed.Inc()
			continue
		}
		processed++
		metrics.EmbeddingBackfillProcessed.Inc()
	}

	if j.Obs != nil {
		j.Obs.Emit("backfill.complete", map[string]any{"processed": processed, "failed": failed})
	}
	return processed, failed, nil
}
