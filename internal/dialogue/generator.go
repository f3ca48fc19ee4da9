// Package dialogue talks to the language model that guides reflection. Every
// call degrades to a fixed line when the model is slow, unavailable or over
// budget, so callers never see an error.
package dialogue

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"echo-moon/internal/journal"
)

type Mode string

const (
	ModeReview  Mode = "review"
	ModeCard    Mode = "card"
	ModeChat    Mode = "chat"
	ModeTitles  Mode = "titles"
	ModeSeeds   Mode = "seeds"
	ModeInsight Mode = "insight"
)

// Request is one model call. Prompt already embeds Turns and Input; they are
// carried separately for generators that keep their own history.
type Request struct {
	Mode   Mode
	System string
	Prompt string
	Turns  []journal.Message
	Input  string
}

type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

var errEmptyResponse = errors.New("empty model response")

// GeminiGenerator sends requests to the Gemini API.
type GeminiGenerator struct {
	client *genai.Client
	model  string
}

func NewGeminiGenerator(ctx context.Context, apiKey, model string) (*GeminiGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GenAI API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GeminiGenerator{client: client, model: model}, nil
}

func (g *GeminiGenerator) Generate(ctx context.Context, req Request) (string, error) {
	var config *genai.GenerateContentConfig
	if req.System != "" {
		config = &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(req.System, genai.RoleUser),
		}
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(req.Prompt), config)
	if err != nil {
		return "", fmt.Errorf("generate %s: %w", req.Mode, err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", errEmptyResponse
	}
	return text, nil
}
