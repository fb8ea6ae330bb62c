package service

import (
	"context"

	"intake/internal/model"
)

// Extractor turns a free-text message into a raw JSON extraction.
// The returned text is not guaranteed to be valid JSON.
type Extractor interface {
	Extract(ctx context.Context, message string, kind model.FormKind) (string, error)

	// Name identifies the provider in logs and audit rows
	Name() string
}

// StreamingExtractor is an Extractor that can report partial output
type StreamingExtractor interface {
	Extractor

	// ExtractStream calls callback with (thinking, content) deltas and
	// returns the full content once the stream ends
	ExtractStream(ctx context.Context, message string, kind model.FormKind, callback func(thinking, content string) error) (string, error)
}

// Embedder produces vector embeddings for texts
type Embedder interface {
	CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
	IsEnabled() bool
}

// StreamChunk represents a generic streaming response chunk
type StreamChunk struct {
	Content string

	// Thinking/reasoning content (provider-specific, e.g. DeepSeek on NVIDIA)
	ThinkingContent string

	Role string
	Done bool
}

var (
	_ StreamingExtractor = (*OpenAIClient)(nil)
	_ Embedder           = (*OpenAIClient)(nil)
	_ Extractor          = (*GeminiExtractor)(nil)
	_ Extractor          = (*BackendExtractor)(nil)
)
