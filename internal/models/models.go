// Package models defines the domain types shared across Prismis: sources,
// content items, embeddings, and the small value objects the pipeline
// passes between fetchers, the LLM coordinator, and storage.
package models

import "time"

// SourceKind identifies which fetcher plugin owns a Source.
type SourceKind string

const (
	SourceFeed  SourceKind = "feed"
	SourceForum SourceKind = "forum"
	SourceVideo SourceKind = "video"
	SourceFile  SourceKind = "file"
)

// Valid reports whether k is one of the four supported source kinds.
func (k SourceKind) Valid() bool {
	switch k {
	case SourceFeed, SourceForum, SourceVideo, SourceFile:
		return true
	}
	return false
}

// Priority is the LLM-assigned importance of a ContentItem. The zero value
// is never stored; a nil *Priority means "unprioritized" in the database.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Valid reports whether p is one of the three supported priority levels.
func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// Weight returns the priority_weight term used by the relevance formula:
// high=1.0, medium=0.5, low=0.0.
func (p Priority) Weight() float64 {
	switch p {
	case PriorityHigh:
		return 1.0
	case PriorityMedium:
		return 0.5
	default:
		return 0.0
	}
}

// Source is a subscribed feed/forum/video/file origin.
type Source struct {
	ID            int64      `json:"id"`
	URL           string     `json:"url"`
	Kind          SourceKind `json:"kind"`
	Name          string     `json:"name"`
	Active        bool       `json:"active"`
	ErrorCount    int        `json:"error_count"`
	LastError     *string    `json:"last_error,omitempty"`
	LastFetchedAt *time.Time `json:"last_fetched_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// DiffStats describes a unified-diff comparison for a file-source fetch.
type DiffStats struct {
	AddedLines   int `json:"added_lines"`
	RemovedLines int `json:"removed_lines"`
	ChangedLines int `json:"changed_lines"`
}

// Analysis is the structured JSON blob attached to a ContentItem. Fetcher
// metrics and LLM-derived fields are merged into the same blob; Metrics
// must survive every re-analysis pass untouched.
type Analysis struct {
	Metrics          map[string]any `json:"metrics,omitempty"`
	ReadingSummary   string         `json:"reading_summary,omitempty"`
	AlphaInsights    []string       `json:"alpha_insights,omitempty"`
	Patterns         []string       `json:"patterns,omitempty"`
	Entities         []string       `json:"entities,omitempty"`
	Quotes           []string       `json:"quotes,omitempty"`
	Tools            []string       `json:"tools,omitempty"`
	URLs             []string       `json:"urls,omitempty"`
	MatchedInterests []string       `json:"matched_interests,omitempty"`
	Reasoning        string         `json:"reasoning,omitempty"`
	DiffStats        *DiffStats     `json:"diff_stats,omitempty"`
	FullText         string         `json:"full_text,omitempty"`
	ContentHash      string         `json:"content_hash,omitempty"`
	FirstFetch       bool           `json:"first_fetch,omitempty"`
	Note             string         `json:"note,omitempty"`
}

// ContentItem is one enriched, stored piece of content.
type ContentItem struct {
	ID          int64      `json:"id"`
	SourceID    *int64     `json:"source_id"`
	SourceName  string     `json:"source_name"` // joined convenience field, not persisted on this struct
	SourceKind  SourceKind `json:"source_kind"`
	ExternalID  string     `json:"external_id"`
	Title       string     `json:"title"`
	URL         string     `json:"url"`
	Content     string     `json:"content,omitempty"`
	Summary     string     `json:"summary"`
	Analysis    Analysis   `json:"analysis"`
	Priority    *Priority  `json:"priority"`
	PublishedAt time.Time  `json:"published_at"`
	FetchedAt   time.Time  `json:"fetched_at"`
	Read        bool       `json:"read"`
	Favorited   bool       `json:"favorited"`
	Flagged     bool       `json:"flagged_interesting"`
	Notes       *string    `json:"notes,omitempty"`
	ArchivedAt  *time.Time `json:"archived_at,omitempty"`
}

// Unprioritized reports whether this item has no priority assigned, i.e.
// is eligible for prune (subject to favorite/flagged protection).
func (c *ContentItem) Unprioritized() bool {
	return c.Priority == nil
}

// Embedding is the fixed-dimension vector representation of a ContentItem.
type Embedding struct {
	ContentID int64
	Vector    []float32
	Model     string
	CreatedAt time.Time
}

// EmbeddingDimension is the vector width produced by the default sentence
// embedding model.
const EmbeddingDimension = 384

// SearchResult pairs a ContentItem with its computed relevance score.
type SearchResult struct {
	Item      ContentItem `json:"item"`
	Relevance float64     `json:"relevance_score"`
}

// ArchivalWindows holds the per-priority aging thresholds (in days) used by
// Storage.ArchiveOldContent. A nil pointer means "never archive this tier".
type ArchivalWindows struct {
	HighRead     *int `json:"high_read"`
	MediumUnread *int `json:"medium_unread"`
	MediumRead   *int `json:"medium_read"`
	LowUnread    *int `json:"low_unread"`
	LowRead      *int `json:"low_read"`
}

// ArchivalCounts reports the total and archived content counts, with the
// configured archival windows, for the GET /api/archive/status endpoint.
type ArchivalCounts struct {
	TotalContent    int64           `json:"total_content"`
	ArchivedContent int64           `json:"archived_content"`
	Windows         ArchivalWindows `json:"windows"`
}

// TickStats summarizes one orchestrator tick across all sources.
type TickStats struct {
	SourcesProcessed int
	ItemsFetched     int
	ItemsNew         int
	ItemsUpdated     int
	ItemsSkipped     int
	EmbeddingsFailed int
	Errors           []ItemError
	NewHighPriority  []ContentItem
	Duration         time.Duration
}

// ItemError records a per-item failure that did not abort the tick.
type ItemError struct {
	SourceID   int64
	ExternalID string
	Err        error
}
