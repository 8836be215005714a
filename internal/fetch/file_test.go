package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prismis/prismis/internal/models"
)

func TestFileFetcherFirstFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("line one\nline two\n"))
	}))
	defer srv.Close()

	lookup := func(ctx context.Context, sourceID int64, url string) (*PreviousFileFetch, error) {
		return nil, nil
	}
	f := NewFileFetcher(lookup)

	source := models.Source{ID: 1, URL: srv.URL, Kind: models.SourceFile, Name: "Notes"}
	items, err := f.Fetch(context.Background(), source)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	item := items[0]
	if !item.Analysis.FirstFetch {
		t.Fatal("expected FirstFetch = true")
	}
	if item.Priority == nil || *item.Priority != models.PriorityHigh {
		t.Fatalf("expected priority high, got %v", item.Priority)
	}
	if item.Analysis.ContentHash == "" {
		t.Fatal("expected non-empty content hash")
	}
}

func TestFileFetcherUnchangedReturnsNoItem(t *testing.T) {
	const body = "same content\n"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	defer srv.Close()

	hash := contentHash(body)
	lookup := func(ctx context.Context, sourceID int64, url string) (*PreviousFileFetch, error) {
		return &PreviousFileFetch{ContentHash: hash, FullText: body}, nil
	}
	f := NewFileFetcher(lookup)

	source := models.Source{ID: 1, URL: srv.URL, Kind: models.SourceFile, Name: "Notes"}
	items, err := f.Fetch(context.Background(), source)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected no items for unchanged content, got %d", len(items))
	}
}

func TestFileFetcherChangedProducesDiff(t *testing.T) {
	const newBody = "line one\nline TWO changed\n"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(newBody))
	}))
	defer srv.Close()

	lookup := func(ctx context.Context, sourceID int64, url string) (*PreviousFileFetch, error) {
		return &PreviousFileFetch{ContentHash: "stale-hash", FullText: "line one\nline two\n"}, nil
	}
	f := NewFileFetcher(lookup)

	source := models.Source{ID: 1, URL: srv.URL, Kind: models.SourceFile, Name: "Notes"}
	items, err := f.Fetch(context.Background(), source)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	item := items[0]
	if item.Analysis.DiffStats == nil {
		t.Fatal("expected diff stats to be populated")
	}
	if item.Analysis.FullText != newBody {
		t.Fatalf("expected FullText to hold the new body, got %q", item.Analysis.FullText)
	}
}
