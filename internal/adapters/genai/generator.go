package genai

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// Generator produces tour narration, intent extraction, and Q&A text
// through the Gemini API.
type Generator struct {
	client *genai.Client
	model  string
}

// NewGenerator creates a Gemini-backed text generator.
func NewGenerator(ctx context.Context, apiKey, model string) (*Generator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("genai: API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("genai: create client: %w", err)
	}
	return &Generator{client: client, model: model}, nil
}

// GenerateText runs a single-turn generation and returns the trimmed text.
func (g *Generator) GenerateText(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model,
		genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("genai: generate: %w", err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("genai: empty response")
	}
	return text, nil
}
