package llm

import "github.com/prismis/prismis/internal/models"

// SummarizeInput is everything the summarize-with-analysis prompt needs.
type SummarizeInput struct {
	Content    string
	Title      string
	URL        string
	SourceKind models.SourceKind
	SourceName string
	Metrics    map[string]any
}

// SummarizeResult is the JSON object the summarize prompt asks for. A
// nil *SummarizeResult (returned alongside a nil error) means a required
// field was missing and the caller should skip storing LLM data.
type SummarizeResult struct {
	Summary        string   `json:"summary"`
	ReadingSummary string   `json:"reading_summary"`
	AlphaInsights  []string `json:"alpha_insights"`
	Patterns       []string `json:"patterns"`
	Entities       []string `json:"entities"`
	Quotes         []string `json:"quotes"`
	Tools          []string `json:"tools"`
	URLs           []string `json:"urls"`
}

// EvaluateInput is what the priority evaluator needs.
type EvaluateInput struct {
	Content            string
	Title              string
	URL                string
	UserContext        string
	LearnedPreferences string // optional, appended when feedback threshold is met
}

// EvaluateResult is the (client-revalidated) priority evaluation.
type EvaluateResult struct {
	Priority         *models.Priority
	MatchedInterests []string
	Reasoning        string
}
