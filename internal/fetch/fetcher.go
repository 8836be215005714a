// Package fetch implements the four source-kind fetcher plugins (feed,
// forum, video, file). Each satisfies the same Fetcher contract -
// tagged-variant dispatch by models.SourceKind with no inheritance.
// Fetchers never touch the database; the orchestrator decides what to
// store.
package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/prismis/prismis/internal/metrics"
	"github.com/prismis/prismis/internal/models"
	"github.com/prismis/prismis/internal/observability"
)

// Fetcher is the capability every source kind implements.
type Fetcher interface {
	Fetch(ctx context.Context, source models.Source) ([]models.ContentItem, error)
}

// Registry dispatches a Source to its kind's Fetcher.
type Registry struct {
	byKind map[models.SourceKind]Fetcher
	obs    *observability.Logger
}

// NewRegistry builds a Registry from the four concrete fetchers.
func NewRegistry(feed, forum, video, file Fetcher, obs *observability.Logger) *Registry {
	return &Registry{
		byKind: map[models.SourceKind]Fetcher{
			models.SourceFeed:  feed,
			models.SourceForum: forum,
			models.SourceVideo: video,
			models.SourceFile:  file,
		},
		obs: obs,
	}
}

// Fetch dispatches to the Fetcher for source.Kind, wrapping the call with
// fetcher.complete/fetcher.error observability events.
// The fetcher's items and error are returned unchanged; the caller
// (orchestrator) records an error as a source-level fetch error.
func (r *Registry) Fetch(ctx context.Context, source models.Source) ([]models.ContentItem, error) {
	f, ok := r.byKind[source.Kind]
	if !ok {
		return nil, fmt.Errorf("fetch: no fetcher registered for kind %q", source.Kind)
	}

	start := time.Now()
	items, err := f.Fetch(ctx, source)
	duration := time.Since(start)
	metrics.ObserveFetch(string(source.Kind), start, err)

	if r.obs != nil {
		if err != nil {
			r.obs.FetcherError(source.ID, string(source.Kind), err)
		} else {
			r.obs.FetcherComplete(source.ID, string(source.Kind), len(items), duration)
		}
	}
	return items, err
}

// hashExternalID is the fallback external-id strategy shared by every
// fetcher: a stable, short hex digest of whatever identifying string is
// available (canonical URL, title, or a composite key).
func hashExternalID(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:16]
}
