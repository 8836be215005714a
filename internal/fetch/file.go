package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/prismis/prismis/internal/models"
)

// PreviousFileFetch is the slice of a prior file-source ContentItem the
// FileFetcher needs to compute a diff against the current fetch.
type PreviousFileFetch struct {
	ExternalID  string
	ContentHash string
	FullText    string
}

// PreviousFileLookup resolves the most recently stored item for a
// file-source URL. The fetch package never touches storage directly
// (internal/fetch/fetcher.go); cmd/prismisd supplies this function,
// backed by the database package, at construction time.
type PreviousFileLookup func(ctx context.Context, sourceID int64, url string) (*PreviousFileFetch, error)

// FileFetcher tracks a plain-text/markdown URL across fetches and emits a
// unified diff against the previously stored version.
type FileFetcher struct {
	Lookup     PreviousFileLookup
	httpClient *http.Client
}

// NewFileFetcher builds a FileFetcher. lookup must not be nil.
func NewFileFetcher(lookup PreviousFileLookup) *FileFetcher {
	return &FileFetcher{
		Lookup:     lookup,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (f *FileFetcher) Fetch(ctx context.Context, source models.Source) ([]models.ContentItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source.URL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("file fetch: unexpected status %d for %s", resp.StatusCode, source.URL)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !isTextContentType(ct) {
		return nil, fmt.Errorf("file fetch: non-text content type %q for %s", ct, source.URL)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	text := string(body)
	hash := contentHash(text)

	prev, err := f.Lookup(ctx, source.ID, source.URL)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	priority := models.PriorityHigh

	if prev == nil {
		return []models.ContentItem{{
			ExternalID:  fileExternalID(source.URL, hash),
			Title:       source.Name,
			URL:         source.URL,
			Content:     text,
			PublishedAt: now,
			FetchedAt:   now,
			Priority:    &priority,
			Analysis: models.Analysis{
				Metrics:     map[string]any{},
				FullText:    text,
				ContentHash: hash,
				FirstFetch:  true,
			},
		}}, nil
	}

	if prev.ContentHash == hash {
		return nil, nil
	}

	diff, stats := unifiedDiff(prev.FullText, text, source.Name)

	return []models.ContentItem{{
		ExternalID:  fileExternalID(source.URL, hash),
		Title:       source.Name,
		URL:         source.URL,
		Content:     diff,
		PublishedAt: now,
		FetchedAt:   now,
		Priority:    &priority,
		Analysis: models.Analysis{
			Metrics:     map[string]any{},
			FullText:    text,
			ContentHash: hash,
			DiffStats:   &stats,
		},
	}}, nil
}

func contentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

func fileExternalID(url, hash string) string {
	return hashExternalID(url + hash)
}

// unifiedDiff renders a unified diff between the previous and current
// full text via go-difflib, plus the added/removed/changed line counts
// stored alongside it as analysis.diff_stats.
func unifiedDiff(before, after, label string) (string, models.DiffStats) {
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(before),
		B:        difflib.SplitLines(after),
		FromFile: label + " (previous)",
		ToFile:   label + " (current)",
		Context:  3,
	}
	text, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		text = after
	}

	stats := models.DiffStats{}
	for _, line := range difflib.SplitLines(text) {
		if len(line) == 0 {
			continue
		}
		switch {
		case line[0] == '+' && !strings.HasPrefix(line, "+++"):
			stats.AddedLines++
		case line[0] == '-' && !strings.HasPrefix(line, "---"):
			stats.RemovedLines++
		}
	}
	stats.ChangedLines = stats.AddedLines + stats.RemovedLines

	return text, stats
}

// isTextContentType reports whether a response Content-Type header is safe
// to treat as plain text/markdown.
func isTextContentType(contentType string) bool {
	ct, _, _ := strings.Cut(contentType, ";")
	ct = strings.TrimSpace(ct)
	switch ct {
	case "text/plain", "text/markdown", "text/x-markdown", "application/octet-stream":
		return true
	}
	return strings.HasPrefix(ct, "text/")
}
