package llm

import (
	"context"
	"net/http"

	"github.com/prismis/prismis/internal/apperr"
)

type openAIProvider struct {
	client *http.Client
	model  string
	apiKey string
	base   string
}

type openAIChatRequest struct {
	Model    string              `json:"model"`
	Messages []openAIChatMessage `json:"messages"`
}

type openAIChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message openAIChatMessage `json:"message"`
	} `json:"choices"`
}

type openAIEmbeddingRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type openAIEmbeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

func (p *openAIProvider) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	req := openAIChatRequest{
		Model: p.model,
		Messages: []openAIChatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
	}
	headers := map[string]string{"Authorization": "Bearer " + p.apiKey}
	var resp openAIChatResponse
	if err := doJSON(ctx, p.client, http.MethodPost, p.base+"/chat/completions", headers, req, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", apperr.New(apperr.KindValidation, "openai: empty choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func (p *openAIProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	req := openAIEmbeddingRequest{Model: "text-embedding-3-small", Input: text}
	headers := map[string]string{"Authorization": "Bearer " + p.apiKey}
	var resp openAIEmbeddingResponse
	if err := doJSON(ctx, p.client, http.MethodPost, p.base+"/embeddings", headers, req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, apperr.New(apperr.KindValidation, "openai: empty embedding data")
	}
	return resp.Data[0].Embedding, nil
}

func (p *openAIProvider) HealthCheck(ctx context.Context) error {
	_, err := p.Complete(ctx, "", "ping")
	return err
}
