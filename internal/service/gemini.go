package service

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"intake/internal/config"
	apperrors "intake/internal/errors"
	"intake/internal/logging"
	"intake/internal/model"
)

// contentGenerator is the slice of *genai.Models the extractor needs
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiExtractor extracts listing data with Google Gemini
type GeminiExtractor struct {
	models contentGenerator
	model  string
}

// NewGeminiExtractor creates a Gemini API client from config
func NewGeminiExtractor(ctx context.Context, cfg *config.GeminiConfig) (*GeminiExtractor, error) {
	if cfg.APIKey == "" {
		return nil, apperrors.NewValidationError("GEMINI_API_KEY", "", "API key required for Gemini")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	logging.Info().Str("model", cfg.Model).Msg("🔧 Gemini extraction provider ready")
	return &GeminiExtractor{models: client.Models, model: cfg.Model}, nil
}

// Name implements Extractor
func (g *GeminiExtractor) Name() string { return config.ProviderGemini }

// Extract implements Extractor
func (g *GeminiExtractor) Extract(ctx context.Context, message string, kind model.FormKind) (string, error) {
	temperature := float32(0.1)
	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(message), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(extractionPrompt(kind), genai.RoleUser),
		ResponseMIMEType:  "application/json",
		Temperature:       &temperature,
	})
	if err != nil {
		return "", apperrors.NewNetworkError("gemini", g.model, 0, err)
	}
	text := resp.Text()
	if text == "" {
		return "", apperrors.NewNetworkError("gemini", g.model, 0, fmt.Errorf("empty response"))
	}
	return text, nil
}
