package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/prismis/prismis/internal/fetch"
	"github.com/prismis/prismis/internal/llm"
	"github.com/prismis/prismis/internal/models"
	"github.com/prismis/prismis/internal/notify"
)

type fakeStorage struct {
	sources    []models.Source
	existing   map[int64]map[string]struct{}
	stored     []models.ContentItem
	embeddings map[int64][]float32
	fetchErrs  map[int64]string
	successes  []int64
}

func (f *fakeStorage) ListSources() ([]models.Source, error) { return f.sources, nil }

func (f *fakeStorage) ExistingExternalIDs(sourceID int64) (map[string]struct{}, error) {
	return f.existing[sourceID], nil
}

func (f *fakeStorage) CreateOrUpdateContent(item models.ContentItem) (int64, bool, error) {
	for i, existing := range f.stored {
		if existing.SourceID != nil && item.SourceID != nil && *existing.SourceID == *item.SourceID && existing.ExternalID == item.ExternalID {
			item.ID = existing.ID
			f.stored[i] = item
			return item.ID, false, nil
		}
	}
	item.ID = int64(len(f.stored) + 1)
	f.stored = append(f.stored, item)
	return item.ID, true, nil
}

func (f *fakeStorage) AddEmbedding(contentID int64, vector []float32, model string) error {
	if f.embeddings == nil {
		f.embeddings = make(map[int64][]float32)
	}
	f.embeddings[contentID] = vector
	return nil
}

func (f *fakeStorage) RecordFetchError(id int64, message string) error {
	if f.fetchErrs == nil {
		f.fetchErrs = make(map[int64]string)
	}
	f.fetchErrs[id] = message
	return nil
}

func (f *fakeStorage) RecordFetchSuccess(id int64) error {
	f.successes = append(f.successes, id)
	return nil
}

func (f *fakeStorage) FlaggedSince(since time.Time) ([]models.ContentItem, error) { return nil, nil }

type fakeFetcher struct {
	items []models.ContentItem
	err   error
}

func (f *fakeFetcher) Fetch(ctx context.Context, source models.Source) ([]models.ContentItem, error) {
	return f.items, f.err
}

type fakeCoordinator struct{}

func (fakeCoordinator) Summarize(ctx context.Context, in llm.SummarizeInput) (*llm.SummarizeResult, error) {
	return &llm.SummarizeResult{Summary: "a summary", ReadingSummary: "reading summary"}, nil
}

func (fakeCoordinator) EvaluatePriority(ctx context.Context, in llm.EvaluateInput) (llm.EvaluateResult, error) {
	high := models.PriorityHigh
	return llm.EvaluateResult{Priority: &high, MatchedInterests: []string{"golang"}}, nil
}

func (fakeCoordinator) Embed(ctx context.Context, title, text string) ([]float32, error) {
	return make([]float32, models.EmbeddingDimension), nil
}

func TestRunOnceStoresNewHighPriorityItem(t *testing.T) {
	storage := &fakeStorage{
		sources:  []models.Source{{ID: 1, Active: true, Kind: models.SourceFeed, Name: "Blog"}},
		existing: map[int64]map[string]struct{}{1: {}},
	}
	feedFetcher := &fakeFetcher{items: []models.ContentItem{{ExternalID: "a", Title: "Post", Content: "body"}}}
	reg := fetch.NewRegistry(feedFetcher, &fakeFetcher{}, &fakeFetcher{}, &fakeFetcher{}, nil)

	o := &Orchestrator{
		Storage:        storage,
		Fetchers:       reg,
		LLM:            fakeCoordinator{},
		Notifier:       notify.New("", true, nil),
		EmbeddingModel: "test-model",
	}

	stats, err := o.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
	if stats.ItemsNew != 1 {
		t.Fatalf("expected 1 new item, got %d", stats.ItemsNew)
	}
	if len(stats.NewHighPriority) != 1 {
		t.Fatalf("expected 1 new high-priority item, got %d", len(stats.NewHighPriority))
	}
	if len(storage.stored) != 1 || storage.stored[0].Summary != "a summary" {
		t.Fatalf("expected stored item with summary, got %+v", storage.stored)
	}
	if len(storage.successes) != 1 {
		t.Fatalf("expected RecordFetchSuccess called once, got %d", len(storage.successes))
	}
}

func TestRunOnceSkipsExistingExternalIDs(t *testing.T) {
	storage := &fakeStorage{
		sources:  []models.Source{{ID: 1, Active: true, Kind: models.SourceFeed}},
		existing: map[int64]map[string]struct{}{1: {"a": {}}},
	}
	feedFetcher := &fakeFetcher{items: []models.ContentItem{{ExternalID: "a", Title: "Seen"}}}
	reg := fetch.NewRegistry(feedFetcher, &fakeFetcher{}, &fakeFetcher{}, &fakeFetcher{}, nil)

	o := &Orchestrator{
		Storage:  storage,
		Fetchers: reg,
		LLM:      fakeCoordinator{},
		Notifier: notify.New("", true, nil),
	}

	stats, err := o.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
	if stats.ItemsSkipped != 1 {
		t.Fatalf("expected 1 skipped item, got %d", stats.ItemsSkipped)
	}
	if len(storage.stored) != 0 {
		t.Fatalf("expected no stored items, got %d", len(storage.stored))
	}
}

func TestRunOnceRecordsFetchError(t *testing.T) {
	storage := &fakeStorage{sources: []models.Source{{ID: 7, Active: true, Kind: models.SourceFeed}}}
	failing := &fakeFetcher{err: context.DeadlineExceeded}
	reg := fetch.NewRegistry(failing, &fakeFetcher{}, &fakeFetcher{}, &fakeFetcher{}, nil)

	o := &Orchestrator{
		Storage:  storage,
		Fetchers: reg,
		LLM:      fakeCoordinator{},
		Notifier: notify.New("", true, nil),
	}

	stats, err := o.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
	if len(stats.Errors) != 1 {
		t.Fatalf("expected 1 error, got %d", len(stats.Errors))
	}
	if storage.fetchErrs[7] == "" {
		t.Fatal("expected RecordFetchError to be called for source 7")
	}
}

func TestIsLargeFileBaseline(t *testing.T) {
	big := models.ContentItem{Content: string(make([]byte, 60000)), Analysis: models.Analysis{FirstFetch: true}}
	if !isLargeFileBaseline(models.SourceFile, big) {
		t.Fatal("expected large first-fetch file baseline to be detected")
	}
	small := models.ContentItem{Content: "short", Analysis: models.Analysis{FirstFetch: true}}
	if isLargeFileBaseline(models.SourceFile, small) {
		t.Fatal("did not expect small baseline to be flagged")
	}
	if isLargeFileBaseline(models.SourceFeed, big) {
		t.Fatal("did not expect non-file source to be flagged")
	}
}
