// Package llm is Prismis's provider-agnostic LLM coordination layer:
// summarization+analysis, priority evaluation, and embedding, each wrapped
// in a retry-with-backoff and a process-wide circuit breaker. The
// per-provider HTTP clients are hand-rolled against plain net/http +
// encoding/json:
// build request struct, marshal, POST with a context timeout, decode
// response struct, typed error on non-2xx.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/prismis/prismis/internal/apperr"
)

// maxErrorBodySize bounds how much of a non-2xx response body is read for
// the error message.
const maxErrorBodySize = 64 * 1024

// Provider is the minimal call surface every backend (anthropic, openai,
// ollama) must implement. Prompt construction and JSON-schema coercion
// live above this in coordinator.go; Provider only knows how to complete
// a prompt and produce an embedding.
type Provider interface {
	// Complete sends a single-turn prompt and returns the raw text response.
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	// Embed returns a fixed-dimension vector for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)
	// HealthCheck issues a minimal call to confirm the provider+model are
	// reachable and authorized. Used once at startup.
	HealthCheck(ctx context.Context) error
}

// NewProvider constructs the Provider named by provider, pointed at model,
// authenticated with apiKey, and (for ollama) based at apiBase.
func NewProvider(provider, model, apiKey, apiBase string) (Provider, error) {
	client := &http.Client{Timeout: 60 * time.Second}
	switch provider {
	case "anthropic":
		return &anthropicProvider{client: client, model: model, apiKey: apiKey}, nil
	case "openai":
		base := apiBase
		if base == "" {
			base = "https://api.openai.com/v1"
		}
		return &openAIProvider{client: client, model: model, apiKey: apiKey, base: base}, nil
	case "ollama":
		if apiBase == "" {
			return nil, apperr.New(apperr.KindConfig, "ollama provider requires api_base")
		}
		return &ollamaProvider{client: client, model: model, base: apiBase}, nil
	default:
		return nil, apperr.New(apperr.KindConfig, fmt.Sprintf("unsupported llm provider %q", provider))
	}
}

// doJSON posts body as JSON to url with the given headers, decodes the
// response into out, and classifies non-2xx responses the way the
// retry/breaker layer expects: transient-looking status codes and bodies
// are wrapped apperr.KindTransient, quota-looking ones apperr.KindQuota,
// everything else apperr.KindValidation (non-retryable).
func doJSON(ctx context.Context, client *http.Client, method, url string, headers map[string]string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return apperr.Wrap(apperr.KindValidation, "marshal request", err)
		}
		reader = strings.NewReader(string(buf))
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return apperr.Wrap(apperr.KindValidation, "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return apperr.Wrap(apperr.KindTransient, "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errBody := readBodyForError(resp.Body)
		return classifyHTTPError(resp.StatusCode, string(errBody))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperr.Wrap(apperr.KindTransient, "decode response", err)
	}
	return nil
}

func readBodyForError(r io.Reader) []byte {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return []byte("(failed to read response body)")
	}
	return body
}

// quotaPatterns are the substrings (case-insensitive) that identify a
// quota/billing failure.
var quotaPatterns = []string{"quota", "insufficient_quota", "rate limit", "429", "too many requests", "billing"}

// transientPatterns identify retryable transient failures.
var transientPatterns = []string{"timeout", "503", "502", "504", "500", "rate limit", "429", "too many requests"}

func classifyHTTPError(status int, body string) error {
	lower := strings.ToLower(body)
	msg := fmt.Sprintf("http %d: %s", status, truncate(body, 500))

	for _, p := range quotaPatterns {
		if strings.Contains(lower, p) || (status == 429 && p == "429") {
			return apperr.New(apperr.KindQuota, msg)
		}
	}
	for _, p := range transientPatterns {
		if strings.Contains(lower, p) || (status >= 500 && status < 600) {
			return apperr.New(apperr.KindTransient, msg)
		}
	}
	return apperr.New(apperr.KindValidation, msg)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// IsQuotaError reports whether err (or its message) looks like a
// quota/billing failure, used by the circuit breaker's ReadyToTrip input
// classification as a defense-in-depth check alongside classifyHTTPError.
func IsQuotaError(err error) bool {
	if apperr.Is(err, apperr.KindQuota) {
		return true
	}
	lower := strings.ToLower(err.Error())
	for _, p := range quotaPatterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// IsTransientError reports whether err is retryable. Quota errors are
// never transient here: they belong to the circuit breaker, not the retry
// loop, even though their messages share the rate-limit vocabulary.
func IsTransientError(err error) bool {
	if apperr.Is(err, apperr.KindQuota) {
		return false
	}
	if apperr.Is(err, apperr.KindTransient) {
		return true
	}
	lower := strings.ToLower(err.Error())
	for _, p := range transientPatterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}
