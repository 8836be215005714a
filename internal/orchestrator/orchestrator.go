// Package orchestrator drives one fetch-enrich-store tick across every
// active source, plus the archival and embedding-backfill jobs: a struct
// holding storage, fetchers, the LLM coordinator, and the notifier, with
// RunOnce as the per-tick entry point and TickStats as its
// onSyncCompleted summary.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/prismis/prismis/internal/fetch"
	"github.com/prismis/prismis/internal/llm"
	"github.com/prismis/prismis/internal/metrics"
	"github.com/prismis/prismis/internal/models"
	"github.com/prismis/prismis/internal/notify"
	"github.com/prismis/prismis/internal/observability"
)

// feedbackThresholdVotes and feedbackWindow gate the learned-preference
// context: at least 5 votes within the last 30 days.
const (
	feedbackThresholdVotes = 5
	feedbackWindow         = 30 * 24 * time.Hour
)

// Storage is the subset of *database.Handle the orchestrator depends on,
// narrowed to an interface so tests can fake it without a real SQLite
// file.
type Storage interface {
	ListSources() ([]models.Source, error)
	ExistingExternalIDs(sourceID int64) (map[string]struct{}, error)
	CreateOrUpdateContent(item models.ContentItem) (id int64, isNew bool, err error)
	AddEmbedding(contentID int64, vector []float32, model string) error
	RecordFetchError(id int64, message string) error
	RecordFetchSuccess(id int64) error
	FlaggedSince(since time.Time) ([]models.ContentItem, error)
}

// Coordinator is the subset of *llm.Coordinator the orchestrator calls.
type Coordinator interface {
	Summarize(ctx context.Context, in llm.SummarizeInput) (*llm.SummarizeResult, error)
	EvaluatePriority(ctx context.Context, in llm.EvaluateInput) (llm.EvaluateResult, error)
	Embed(ctx context.Context, title, text string) ([]float32, error)
}

// Orchestrator drives RunOnce. EmbeddingModel names the model stored
// alongside every vector, for later migration bookkeeping.
type Orchestrator struct {
	Storage        Storage
	Fetchers       *fetch.Registry
	LLM            Coordinator
	Notifier       *notify.Notifier
	Obs            *observability.Logger
	UserContext    string
	EmbeddingModel string

	// ForceRefetch disables external-id deduplication so every fetched
	// item is re-analyzed and upserted. Off in normal operation.
	ForceRefetch bool
}

// RunOnce drives one tick across every active source.
func (o *Orchestrator) RunOnce(ctx context.Context) (models.TickStats, error) {
	start := time.Now()
	stats := models.TickStats{}

	sources, err := o.Storage.ListSources()
	if err != nil {
		return stats, err
	}

	learnedPrefs := o.learnedPreferences()

	for _, source := range sources {
		if !source.Active {
			continue
		}
		o.processSource(ctx, source, learnedPrefs, &stats)
		stats.SourcesProcessed++
	}

	stats.Duration = time.Since(start)
	o.Notifier.Notify(ctx, stats.NewHighPriority)

	metrics.TickDuration.Observe(stats.Duration.Seconds())
	if o.Obs != nil {
		o.Obs.TickComplete(map[string]any{
			"sources_processed": stats.SourcesProcessed,
			"items_fetched":     stats.ItemsFetched,
			"items_new":         stats.ItemsNew,
			"items_updated":     stats.ItemsUpdated,
			"items_skipped":     stats.ItemsSkipped,
			"embeddings_failed": stats.EmbeddingsFailed,
			"errors":            len(stats.Errors),
			"duration_ms":       stats.Duration.Milliseconds(),
		})
	}
	return stats, nil
}

// learnedPreferences renders the flagged-item feedback text once the
// ≥5-votes/30-days threshold is met, otherwise returns "" so the
// evaluator prompt gets no extra context.
func (o *Orchestrator) learnedPreferences() string {
	flagged, err := o.Storage.FlaggedSince(time.Now().Add(-feedbackWindow))
	if err != nil || len(flagged) < feedbackThresholdVotes {
		return ""
	}
	text := "Recently flagged as interesting:\n"
	for _, item := range flagged {
		text += fmt.Sprintf("- %s\n", item.Title)
	}
	return text
}

func (o *Orchestrator) processSource(ctx context.Context, source models.Source, learnedPrefs string, stats *models.TickStats) {
	items, err := o.Fetchers.Fetch(ctx, source)
	if err != nil {
		_ = o.Storage.RecordFetchError(source.ID, err.Error())
		stats.Errors = append(stats.Errors, models.ItemError{SourceID: source.ID, Err: err})
		return
	}

	existing := map[string]struct{}{}
	if !o.ForceRefetch {
		existing, err = o.Storage.ExistingExternalIDs(source.ID)
		if err != nil {
			_ = o.Storage.RecordFetchError(source.ID, err.Error())
			stats.Errors = append(stats.Errors, models.ItemError{SourceID: source.ID, Err: err})
			return
		}
	}

	stats.ItemsFetched += len(items)
	for _, item := range items {
		if _, seen := existing[item.ExternalID]; seen {
			stats.ItemsSkipped++
			continue
		}
		o.processItem(ctx, source, item, learnedPrefs, stats)
	}

	_ = o.Storage.RecordFetchSuccess(source.ID)
}

func (o *Orchestrator) processItem(ctx context.Context, source models.Source, item models.ContentItem, learnedPrefs string, stats *models.TickStats) {
	item.SourceID = &source.ID
	item.SourceKind = source.Kind

	switch {
	case isLargeFileBaseline(source.Kind, item):
		// skip LLM analysis entirely; the fetcher already set priority=high.
	case isTranscriptlessVideo(source.Kind, item):
		low := models.PriorityLow
		item.Priority = &low
	default:
		summary, evalResult, err := o.analyze(ctx, source, item, learnedPrefs)
		if err != nil {
			stats.Errors = append(stats.Errors, models.ItemError{SourceID: source.ID, ExternalID: item.ExternalID, Err: err})
			stats.ItemsSkipped++
			return
		}
		if summary != nil {
			item.Summary = summary.Summary
		}
		item.Analysis = mergeAnalysis(item.Analysis, summary, evalResult)
		item.Priority = evalResult.Priority
	}

	if source.Kind == models.SourceFile {
		high := models.PriorityHigh
		item.Priority = &high
	}

	id, isNew, err := o.Storage.CreateOrUpdateContent(item)
	if err != nil {
		stats.Errors = append(stats.Errors, models.ItemError{SourceID: source.ID, ExternalID: item.ExternalID, Err: err})
		return
	}
	item.ID = id

	if isNew {
		stats.ItemsNew++
		metrics.TickItems.WithLabelValues("new").Inc()
		if item.Priority != nil && *item.Priority == models.PriorityHigh {
			stats.NewHighPriority = append(stats.NewHighPriority, item)
		}
	} else {
		stats.ItemsUpdated++
		metrics.TickItems.WithLabelValues("updated").Inc()
	}

	o.embed(ctx, id, item, stats)
}

func (o *Orchestrator) analyze(ctx context.Context, source models.Source, item models.ContentItem, learnedPrefs string) (*llm.SummarizeResult, llm.EvaluateResult, error) {
	summary, err := o.LLM.Summarize(ctx, llm.SummarizeInput{
		Content:    item.Content,
		Title:      item.Title,
		URL:        item.URL,
		SourceKind: source.Kind,
		SourceName: source.Name,
		Metrics:    item.Analysis.Metrics,
	})
	if err != nil {
		return nil, llm.EvaluateResult{}, err
	}

	evalResult, err := o.LLM.EvaluatePriority(ctx, llm.EvaluateInput{
		Content:            item.Content,
		Title:              item.Title,
		URL:                item.URL,
		UserContext:        o.UserContext,
		LearnedPreferences: learnedPrefs,
	})
	if err != nil {
		return nil, llm.EvaluateResult{}, err
	}
	return summary, evalResult, nil
}

func (o *Orchestrator) embed(ctx context.Context, contentID int64, item models.ContentItem, stats *models.TickStats) {
	vec, err := o.LLM.Embed(ctx, item.Title, embeddingInput(item))
	if err != nil {
		stats.EmbeddingsFailed++
		if o.Obs != nil {
			o.Obs.Emit("embedding.error", map[string]any{"content_id": contentID, "error": err.Error()})
		}
		return
	}
	if err := o.Storage.AddEmbedding(contentID, vec, o.EmbeddingModel); err != nil {
		stats.EmbeddingsFailed++
		if o.Obs != nil {
			o.Obs.Emit("embedding.error", map[string]any{"content_id": contentID, "error": err.Error()})
		}
	}
}
