package llm

import (
	"context"
	"net/http"

	"github.com/prismis/prismis/internal/apperr"
)

// anthropicProvider calls the Messages API. Anthropic offers no embedding
// endpoint, so Embed always errors. NewCoordinator accepts a separate
// embed Provider; when none is passed, embedding calls go to this
// provider and fail.
type anthropicProvider struct {
	client *http.Client
	model  string
	apiKey string
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
}

func (p *anthropicProvider) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	req := anthropicRequest{
		Model:     p.model,
		MaxTokens: 4096,
		System:    systemPrompt,
		Messages:  []anthropicMessage{{Role: "user", Content: userPrompt}},
	}
	headers := map[string]string{
		"x-api-key":         p.apiKey,
		"anthropic-version": "2023-06-01",
	}
	var resp anthropicResponse
	if err := doJSON(ctx, p.client, http.MethodPost, "https://api.anthropic.com/v1/messages", headers, req, &resp); err != nil {
		return "", err
	}
	if len(resp.Content) == 0 {
		return "", apperr.New(apperr.KindValidation, "anthropic: empty content")
	}
	return resp.Content[0].Text, nil
}

func (p *anthropicProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, apperr.New(apperr.KindConfig, "anthropic provider does not support embeddings; configure an openai or ollama embedding backend")
}

func (p *anthropicProvider) HealthCheck(ctx context.Context) error {
	_, err := p.Complete(ctx, "", "ping")
	return err
}
