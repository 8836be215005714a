package llm

import (
	"fmt"
	"strings"

	"github.com/prismis/prismis/internal/models"
)

// promptVariant selects which summarize prompt template applies, keyed on
// content characteristics.
type promptVariant string

const (
	variantBrief    promptVariant = "brief"
	variantDetailed promptVariant = "detailed"
	variantDiff     promptVariant = "diff"
	variantStandard promptVariant = "standard"
)

const (
	briefWordThreshold    = 300
	detailedWordThreshold = 5000
)

// selectVariant implements: brief for forum items under 300 words,
// detailed for video transcripts over 5000 words, diff for file sources,
// standard otherwise.
func selectVariant(in SummarizeInput) promptVariant {
	if in.SourceKind == models.SourceFile {
		return variantDiff
	}
	words := len(strings.Fields(in.Content))
	if in.SourceKind == models.SourceForum && words < briefWordThreshold {
		return variantBrief
	}
	if in.SourceKind == models.SourceVideo && words > detailedWordThreshold {
		return variantDetailed
	}
	return variantStandard
}

// summarizeSystemPrompt builds the system prompt for the selected variant.
// Every variant asks for the same JSON shape; only the guidance text and
// expected reading_summary proportion differ.
func summarizeSystemPrompt(variant promptVariant) string {
	base := `You are a research assistant that produces a structured JSON analysis of one piece of content. Respond with a single JSON object with exactly these fields: summary (string, <= 400 characters), reading_summary (markdown string), alpha_insights (array of strings), patterns (array of strings), entities (array of strings), quotes (array of strings), tools (array of strings), urls (array of strings). Do not wrap the JSON in markdown fences.`

	switch variant {
	case variantBrief:
		return base + " This is a short forum post; keep reading_summary to a few sentences."
	case variantDetailed:
		return base + " This is a long video transcript; reading_summary should be thorough, organized by topic."
	case variantDiff:
		return base + " The content is a unified diff of a tracked document. Only analyze the changed (+/-) lines, not unchanged context lines."
	default:
		return base + " reading_summary should be at least 10-15% of the source length in markdown form."
	}
}

func summarizeUserPrompt(in SummarizeInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\nURL: %s\nSource: %s (%s)\n", in.Title, in.URL, in.SourceName, in.SourceKind)
	if len(in.Metrics) > 0 {
		fmt.Fprintf(&b, "Metrics: %v\n", in.Metrics)
	}
	b.WriteString("\nContent:\n")
	b.WriteString(in.Content)
	return b.String()
}

const evaluateSystemPrompt = `You are a priority triage assistant. Given a piece of content and the user's stated interests (organized under "## High Priority Topics", "## Medium Priority Topics", "## Low Priority Topics", and "## Not Interested"), respond with a single JSON object: {"priority": "high"|"medium"|"low"|null, "matched_interests": [string], "reasoning": string}. If nothing in the content matches any interest, priority must be null and matched_interests must be empty. If the content matches anything under "Not Interested", priority must be null. Do not wrap the JSON in markdown fences.`

func evaluateUserPrompt(in EvaluateInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\nURL: %s\n\nUser interests:\n%s\n", in.Title, in.URL, in.UserContext)
	if in.LearnedPreferences != "" {
		fmt.Fprintf(&b, "\nLearned preferences from past feedback:\n%s\n", in.LearnedPreferences)
	}
	b.WriteString("\nContent:\n")
	b.WriteString(in.Content)
	return b.String()
}

// embedMaxChars bounds the combined (title+text) input handed to the
// embedding model.
const embedMaxChars = 8000

func embedInput(title, text string) string {
	combined := text
	if title != "" {
		combined = title + "\n\n" + text
	}
	if len(combined) > embedMaxChars {
		combined = combined[:embedMaxChars]
	}
	return combined
}
