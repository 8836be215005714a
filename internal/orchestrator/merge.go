package orchestrator

import (
	"github.com/prismis/prismis/internal/fetch"
	"github.com/prismis/prismis/internal/llm"
	"github.com/prismis/prismis/internal/models"
)

// fileBaselineSkipThreshold is the byte size above which a file source's
// first-fetch baseline skips LLM analysis entirely.
const fileBaselineSkipThreshold = 50000

// isLargeFileBaseline reports whether item is a first-fetch file-source
// baseline too large to run through the LLM.
func isLargeFileBaseline(kind models.SourceKind, item models.ContentItem) bool {
	return kind == models.SourceFile && item.Analysis.FirstFetch && len(item.Content) > fileBaselineSkipThreshold
}

// isTranscriptlessVideo reports whether item is a video-source item whose
// auto-captions could not be fetched: these are stored as low-priority
// items without running the (empty) transcript through the LLM.
func isTranscriptlessVideo(kind models.SourceKind, item models.ContentItem) bool {
	return kind == models.SourceVideo && item.Analysis.Note == fetch.NoTranscriptAvailable
}

// mergeAnalysis overlays LLM output onto the fetcher-produced analysis
// blob, preserving every fetcher-captured field (metrics, diff stats,
// full text, content hash, first-fetch flag) untouched: start from the
// fetcher analysis, overlay LLM fields.
func mergeAnalysis(base models.Analysis, summary *llm.SummarizeResult, eval llm.EvaluateResult) models.Analysis {
	merged := base
	if summary != nil {
		merged.ReadingSummary = summary.ReadingSummary
		merged.AlphaInsights = summary.AlphaInsights
		merged.Patterns = summary.Patterns
		merged.Entities = summary.Entities
		merged.Quotes = summary.Quotes
		merged.Tools = summary.Tools
		merged.URLs = summary.URLs
	}
	merged.MatchedInterests = eval.MatchedInterests
	merged.Reasoning = eval.Reasoning
	return merged
}

// embeddingInput returns the summary when present, otherwise the raw
// content.
func embeddingInput(item models.ContentItem) string {
	if item.Summary != "" {
		return item.Summary
	}
	return item.Content
}
