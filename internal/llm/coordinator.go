package llm

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/prismis/prismis/internal/apperr"
	"github.com/prismis/prismis/internal/metrics"
	"github.com/prismis/prismis/internal/models"
	"github.com/prismis/prismis/internal/observability"
)

// llmOutcome classifies an LLM call's result for metrics.LLMCalls: a
// genuine call failure reaching here is
// either a breaker rejection, a quota error, a transient error (retry
// already exhausted), or success.
func llmOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case apperr.Is(err, apperr.KindQuota) || err == apperr.ErrBreakerOpen:
		return "rejected"
	case apperr.Is(err, apperr.KindTransient):
		return "transient"
	default:
		return "error"
	}
}

// Coordinator is the single entry point the orchestrator and the REST
// search handler use for LLM work: summarize, evaluate, embed. Every call
// is wrapped in the retry loop and the quota circuit breaker.
type Coordinator struct {
	chat  Provider // summarize + evaluate
	embed Provider // embedding backend; may be the same Provider as chat
	obs   *observability.Logger
}

// NewCoordinator builds a Coordinator. When chat does not support
// embeddings (Anthropic), pass a separate embed Provider (openai/ollama).
func NewCoordinator(chat, embed Provider, obs *observability.Logger) *Coordinator {
	if embed == nil {
		embed = chat
	}
	return &Coordinator{chat: chat, embed: embed, obs: obs}
}

// Summarize runs the summarize-with-analysis call, wrapped in retry and
// the breaker. A nil result with a nil error means a required field was
// missing from the model's JSON - the caller skips storing LLM data.
func (c *Coordinator) Summarize(ctx context.Context, in SummarizeInput) (*SummarizeResult, error) {
	variant := selectVariant(in)
	system := summarizeSystemPrompt(variant)
	user := summarizeUserPrompt(in)

	raw, err := withRetry(ctx, c.obs, "summarize", defaultMaxRetries, func() (any, error) {
		return guardQuota(c.obs, func() (any, error) {
			return c.chat.Complete(ctx, system, user)
		})
	})
	metrics.LLMCalls.WithLabelValues("summarize", llmOutcome(err)).Inc()
	if err != nil {
		return nil, err
	}
	text, _ := raw.(string)

	var result SummarizeResult
	if jsonErr := json.Unmarshal([]byte(extractJSON(text)), &result); jsonErr != nil {
		return nil, nil
	}
	if result.Summary == "" || result.ReadingSummary == "" {
		return nil, nil
	}
	if len(result.Summary) > 400 {
		result.Summary = result.Summary[:400]
	}
	return &result, nil
}

// rawEvaluateResult mirrors the JSON the model returns before client-side
// revalidation is applied.
type rawEvaluateResult struct {
	Priority         *string  `json:"priority"`
	MatchedInterests []string `json:"matched_interests"`
	Reasoning        string   `json:"reasoning"`
}

// EvaluatePriority runs the priority-evaluation call and revalidates the
// result client-side: empty matches
// force priority=null; an invalid priority string alongside non-empty
// matches is coerced to medium; parse errors yield priority=null with
// empty matches rather than propagating the error (so one bad item never
// aborts a tick).
func (c *Coordinator) EvaluatePriority(ctx context.Context, in EvaluateInput) (EvaluateResult, error) {
	raw, err := withRetry(ctx, c.obs, "evaluate", defaultMaxRetries, func() (any, error) {
		return guardQuota(c.obs, func() (any, error) {
			return c.chat.Complete(ctx, evaluateSystemPrompt, evaluateUserPrompt(in))
		})
	})
	metrics.LLMCalls.WithLabelValues("evaluate", llmOutcome(err)).Inc()
	if err != nil {
		return EvaluateResult{}, err
	}
	text, _ := raw.(string)

	var parsed rawEvaluateResult
	if jsonErr := json.Unmarshal([]byte(extractJSON(text)), &parsed); jsonErr != nil {
		return EvaluateResult{MatchedInterests: nil}, nil
	}
	return revalidate(parsed), nil
}

func revalidate(parsed rawEvaluateResult) EvaluateResult {
	if len(parsed.MatchedInterests) == 0 {
		return EvaluateResult{Priority: nil, MatchedInterests: nil, Reasoning: parsed.Reasoning}
	}
	if parsed.Priority == nil {
		return EvaluateResult{Priority: nil, MatchedInterests: parsed.MatchedInterests, Reasoning: parsed.Reasoning}
	}
	p := models.Priority(*parsed.Priority)
	if !p.Valid() {
		medium := models.PriorityMedium
		return EvaluateResult{Priority: &medium, MatchedInterests: parsed.MatchedInterests, Reasoning: parsed.Reasoning}
	}
	return EvaluateResult{Priority: &p, MatchedInterests: parsed.MatchedInterests, Reasoning: parsed.Reasoning}
}

// Embed produces a fixed-dimension embedding for (title, text), truncating
// the combined input to a model-safe bound.
func (c *Coordinator) Embed(ctx context.Context, title, text string) ([]float32, error) {
	input := embedInput(title, text)
	raw, err := withRetry(ctx, c.obs, "embed", defaultMaxRetries, func() (any, error) {
		return guardQuota(c.obs, func() (any, error) {
			return c.embed.Embed(ctx, input)
		})
	})
	metrics.LLMCalls.WithLabelValues("embed", llmOutcome(err)).Inc()
	if err != nil {
		return nil, err
	}
	vec, _ := raw.([]float32)
	return vec, nil
}

// extractJSON strips markdown code fences some models wrap JSON in, even
// though the prompt asks them not to.
func extractJSON(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}
