package fetch

import (
	"context"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/prismis/prismis/internal/fetch/readability"
	"github.com/prismis/prismis/internal/models"
)

// FeedFetcher pulls RSS/Atom/JSON feeds via gofeed's lenient parser and
// extracts full article text via readability.
type FeedFetcher struct {
	MaxItems        int
	MaxDaysLookback int
	Parser          *gofeed.Parser
}

// NewFeedFetcher builds a FeedFetcher with its own gofeed.Parser instance.
func NewFeedFetcher(maxItems, maxDaysLookback int) *FeedFetcher {
	return &FeedFetcher{
		MaxItems:        maxItems,
		MaxDaysLookback: maxDaysLookback,
		Parser:          gofeed.NewParser(),
	}
}

func (f *FeedFetcher) Fetch(ctx context.Context, source models.Source) ([]models.ContentItem, error) {
	feed, err := f.Parser.ParseURLWithContext(source.URL, ctx)
	if err != nil {
		return nil, err
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -f.MaxDaysLookback)
	now := time.Now().UTC()

	var items []models.ContentItem
	for _, entry := range feed.Items {
		if len(items) >= f.MaxItems {
			break
		}

		published := entryPublished(entry, now)
		if published.Before(cutoff) {
			continue
		}

		content := extractArticle(entry)

		items = append(items, models.ContentItem{
			ExternalID:  feedExternalID(entry),
			Title:       entry.Title,
			URL:         entry.Link,
			Content:     content,
			PublishedAt: published,
			FetchedAt:   now,
			Analysis:    models.Analysis{Metrics: map[string]any{}},
		})
	}
	return items, nil
}

// feedExternalID prefers the entry's own GUID, falls back to a hash of the
// canonical link, and as a last resort hashes the title.
func feedExternalID(entry *gofeed.Item) string {
	if entry.GUID != "" {
		return entry.GUID
	}
	if entry.Link != "" {
		return hashExternalID(entry.Link)
	}
	return hashExternalID(entry.Title)
}

func entryPublished(entry *gofeed.Item, fallback time.Time) time.Time {
	if entry.PublishedParsed != nil {
		return entry.PublishedParsed.UTC()
	}
	if entry.UpdatedParsed != nil {
		return entry.UpdatedParsed.UTC()
	}
	return fallback
}

// extractArticle tries readability against the entry URL, falling back to
// the entry's own content/summary/description in that order on failure.
func extractArticle(entry *gofeed.Item) string {
	if entry.Link != "" {
		if text, err := readability.Extract(entry.Link); err == nil && text != "" {
			return text
		}
	}
	if entry.Content != "" {
		return entry.Content
	}
	if entry.Description != "" {
		return entry.Description
	}
	return ""
}
