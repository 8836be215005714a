package fetch

import (
	"testing"
	"time"

	"github.com/mmcdole/gofeed"
)

func TestFeedExternalIDPrefersGUID(t *testing.T) {
	entry := &gofeed.Item{GUID: "guid-123", Link: "https://example.com/a"}
	if got := feedExternalID(entry); got != "guid-123" {
		t.Fatalf("feedExternalID() = %q, want guid-123", got)
	}
}

func TestFeedExternalIDFallsBackToLinkHash(t *testing.T) {
	entry := &gofeed.Item{Link: "https://example.com/a"}
	got := feedExternalID(entry)
	want := hashExternalID("https://example.com/a")
	if got != want {
		t.Fatalf("feedExternalID() = %q, want %q", got, want)
	}
}

func TestFeedExternalIDFallsBackToTitleHash(t *testing.T) {
	entry := &gofeed.Item{Title: "Some Title"}
	got := feedExternalID(entry)
	want := hashExternalID("Some Title")
	if got != want {
		t.Fatalf("feedExternalID() = %q, want %q", got, want)
	}
}

func TestEntryPublishedFallsBackThroughUpdatedToNow(t *testing.T) {
	fallback := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	published := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	entry := &gofeed.Item{PublishedParsed: &published}
	if got := entryPublished(entry, fallback); !got.Equal(published) {
		t.Fatalf("entryPublished() = %v, want %v", got, published)
	}

	updated := time.Date(2023, 7, 1, 0, 0, 0, 0, time.UTC)
	entry = &gofeed.Item{UpdatedParsed: &updated}
	if got := entryPublished(entry, fallback); !got.Equal(updated) {
		t.Fatalf("entryPublished() = %v, want %v", got, updated)
	}

	entry = &gofeed.Item{}
	if got := entryPublished(entry, fallback); !got.Equal(fallback) {
		t.Fatalf("entryPublished() = %v, want fallback %v", got, fallback)
	}
}

func TestExtractArticleFallsBackToContentThenDescription(t *testing.T) {
	entry := &gofeed.Item{Content: "full content"}
	if got := extractArticle(entry); got != "full content" {
		t.Fatalf("extractArticle() = %q, want full content", got)
	}

	entry = &gofeed.Item{Description: "short description"}
	if got := extractArticle(entry); got != "short description" {
		t.Fatalf("extractArticle() = %q, want short description", got)
	}
}
