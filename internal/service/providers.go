package service

import (
	"context"
	"encoding/json"
	"strings"

	"intake/internal/config"
	apperrors "intake/internal/errors"
)

// StreamChunkParser is the interface for provider-specific chunk parsing
type StreamChunkParser interface {
	ParseChunk(data []byte) (*StreamChunk, error)
}

// OpenAIStreamChunkParser parses standard OpenAI-format streaming chunks
type OpenAIStreamChunkParser struct{}

// ParseChunk converts a standard OpenAI chunk to a StreamChunk
func (p *OpenAIStreamChunkParser) ParseChunk(data []byte) (*StreamChunk, error) {
	var raw struct {
		Choices []struct {
			Delta struct {
				Role    string `json:"role,omitempty"`
				Content string `json:"content,omitempty"`
			} `json:"delta"`
			FinishReason string `json:"finish_reason,omitempty"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	chunk := &StreamChunk{}
	if len(raw.Choices) > 0 {
		chunk.Role = raw.Choices[0].Delta.Role
		chunk.Content = raw.Choices[0].Delta.Content
		chunk.Done = raw.Choices[0].FinishReason != ""
	}
	return chunk, nil
}

// NVIDIAStreamChunkParser parses NVIDIA chunks, which carry reasoning_content
type NVIDIAStreamChunkParser struct{}

// ParseChunk converts an NVIDIA/DeepSeek chunk to a StreamChunk
func (p *NVIDIAStreamChunkParser) ParseChunk(data []byte) (*StreamChunk, error) {
	var raw struct {
		Choices []struct {
			Delta struct {
				Role             string  `json:"role,omitempty"`
				Content          string  `json:"content,omitempty"`
				ReasoningContent *string `json:"reasoning_content,omitempty"`
			} `json:"delta"`
			FinishReason string `json:"finish_reason,omitempty"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	chunk := &StreamChunk{}
	if len(raw.Choices) > 0 {
		delta := raw.Choices[0].Delta
		chunk.Role = delta.Role
		chunk.Content = delta.Content
		if delta.ReasoningContent != nil {
			chunk.ThinkingContent = *delta.ReasoningContent
		}
		chunk.Done = raw.Choices[0].FinishReason != ""
	}
	return chunk, nil
}

// IsOpenAIProvider checks if the base URL is the official OpenAI API
func IsOpenAIProvider(baseURL string) bool {
	return strings.Contains(baseURL, "api.openai.com")
}

// IsNVIDIAProvider checks if the base URL is the NVIDIA API
func IsNVIDIAProvider(baseURL string) bool {
	return strings.Contains(baseURL, "integrate.api.nvidia.com")
}

// chunkParserFor picks the stream parser matching the API base URL
func chunkParserFor(baseURL string) StreamChunkParser {
	if IsNVIDIAProvider(baseURL) {
		return &NVIDIAStreamChunkParser{}
	}
	return &OpenAIStreamChunkParser{}
}

// NewExtractor builds the extraction provider selected by cfg.Extraction.Provider
func NewExtractor(ctx context.Context, cfg *config.Config) (Extractor, error) {
	switch cfg.Extraction.Provider {
	case config.ProviderOpenAI:
		return NewOpenAIClient(&cfg.OpenAI), nil
	case config.ProviderGemini:
		g, err := NewGeminiExtractor(ctx, &cfg.Gemini)
		if err != nil {
			return nil, err
		}
		return g, nil
	case config.ProviderBackend:
		return NewBackendExtractor(&cfg.Extraction, nil), nil
	}
	return nil, apperrors.NewValidationError("EXTRACTION_PROVIDER", cfg.Extraction.Provider, "must be backend, openai or gemini")
}
