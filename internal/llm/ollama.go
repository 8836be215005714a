package llm

import (
	"context"
	"net/http"

	"github.com/prismis/prismis/internal/apperr"
)

// ollamaProvider talks to a locally or LAN-hosted Ollama server. api_base
// is required for this provider since there is no well-known default
// endpoint.
type ollamaProvider struct {
	client *http.Client
	model  string
	base   string
}

type ollamaGenerateRequest struct {
	Model  string `json:"model"`
	System string `json:"system,omitempty"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type ollamaGenerateResponse struct {
	Response string `json:"response"`
}

type ollamaEmbedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type ollamaEmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

func (p *ollamaProvider) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	req := ollamaGenerateRequest{Model: p.model, System: systemPrompt, Prompt: userPrompt, Stream: false}
	var resp ollamaGenerateResponse
	if err := doJSON(ctx, p.client, http.MethodPost, p.base+"/api/generate", nil, req, &resp); err != nil {
		return "", err
	}
	return resp.Response, nil
}

func (p *ollamaProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	req := ollamaEmbedRequest{Model: p.model, Input: text}
	var resp ollamaEmbedResponse
	if err := doJSON(ctx, p.client, http.MethodPost, p.base+"/api/embed", nil, req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Embeddings) == 0 {
		return nil, apperr.New(apperr.KindValidation, "ollama: empty embeddings")
	}
	return resp.Embeddings[0], nil
}

func (p *ollamaProvider) HealthCheck(ctx context.Context) error {
	_, err := p.Complete(ctx, "", "ping")
	return err
}
