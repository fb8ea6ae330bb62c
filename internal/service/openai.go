package service

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"intake/internal/config"
	apperrors "intake/internal/errors"
	"intake/internal/logging"
	"intake/internal/model"
	"intake/internal/utils"
)

const embeddingBatchSize = 64

// OpenAIClient handles OpenAI-compatible API interactions
type OpenAIClient struct {
	config      *config.OpenAIConfig
	httpClient  *http.Client
	chunkParser StreamChunkParser
}

// NewOpenAIClient creates a client, picking the stream format from the base URL
func NewOpenAIClient(cfg *config.OpenAIConfig) *OpenAIClient {
	parser := chunkParserFor(cfg.APIBase)
	switch {
	case IsNVIDIAProvider(cfg.APIBase):
		logging.Info().Str("base", cfg.APIBase).Msg("🔧 Detected NVIDIA API provider (supports reasoning)")
	case IsOpenAIProvider(cfg.APIBase):
		logging.Info().Msg("🔧 Detected OpenAI API provider")
	default:
		logging.Info().Str("base", cfg.APIBase).Msg("🔧 Using standard OpenAI format")
	}

	return &OpenAIClient{
		config:      cfg,
		chunkParser: parser,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
	}
}

// Name implements Extractor
func (c *OpenAIClient) Name() string { return config.ProviderOpenAI }

// IsEnabled returns whether the client is configured and ready
func (c *OpenAIClient) IsEnabled() bool {
	return c != nil && c.config.Enabled
}

// ChatCompletionRequest represents a chat completion request
type ChatCompletionRequest struct {
	Model          string          `json:"model"`
	Messages       []ChatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature,omitempty"`
	TopP           float64         `json:"top_p,omitempty"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
	Stream         bool            `json:"stream,omitempty"`
	ExtraBody      map[string]any  `json:"extra_body,omitempty"`
}

// ChatMessage represents a single message in the conversation
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ResponseFormat specifies the format of the response
type ResponseFormat struct {
	Type string `json:"type"` // "json_object" or "text"
}

// ChatCompletionResponse represents the API response
type ChatCompletionResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index        int         `json:"index"`
		Message      ChatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// StreamCallback is called for each chunk in streaming mode
type StreamCallback func(chunk *StreamChunk) error

// EmbeddingRequest represents an embedding request
type EmbeddingRequest struct {
	Model          string         `json:"model"`
	Input          []string       `json:"input"`
	Dimensions     int            `json:"dimensions,omitempty"`
	EncodingFormat string         `json:"encoding_format,omitempty"`
	ExtraBody      map[string]any `json:"extra_body,omitempty"`
}

// EmbeddingResponse represents the embedding API response
type EmbeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Model string `json:"model"`
	Usage struct {
		PromptTokens int `json:"prompt_tokens"`
		TotalTokens  int `json:"total_tokens"`
	} `json:"usage"`
}

func (c *OpenAIClient) applyDefaults(req *ChatCompletionRequest) {
	if req.Model == "" {
		req.Model = c.config.ChatModel
	}
	if req.Temperature == 0 && c.config.ChatTemperature > 0 {
		req.Temperature = c.config.ChatTemperature
	}
	if req.TopP == 0 && c.config.ChatTopP > 0 {
		req.TopP = c.config.ChatTopP
	}
	if req.MaxTokens == 0 && c.config.ChatMaxTokens > 0 {
		req.MaxTokens = c.config.ChatMaxTokens
	}
	if req.ExtraBody == nil && c.config.ChatExtraBody != "" {
		var extra map[string]any
		if err := json.Unmarshal([]byte(c.config.ChatExtraBody), &extra); err != nil {
			logging.Warn().Err(err).Msg("Failed to parse OPENAI_CHAT_EXTRA_BODY")
		} else {
			req.ExtraBody = extra
		}
	}
}

func (c *OpenAIClient) newRequest(ctx context.Context, path string, body any) (*http.Request, error) {
	reqBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	url := strings.TrimRight(c.config.APIBase, "/") + path
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	return httpReq, nil
}

func (c *OpenAIClient) errDisabled(path string) error {
	return apperrors.NewNetworkError("openai", path, 0, fmt.Errorf("OpenAI API is not enabled (missing API key)"))
}

// ChatCompletion performs a chat completion request
func (c *OpenAIClient) ChatCompletion(ctx context.Context, req ChatCompletionRequest) (*ChatCompletionResponse, error) {
	const path = "/chat/completions"
	if !c.IsEnabled() {
		return nil, c.errDisabled(path)
	}
	c.applyDefaults(&req)

	httpReq, err := c.newRequest(ctx, path, req)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, apperrors.NewNetworkError("openai", path, 0, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.NewNetworkError("openai", path, resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.NewNetworkError("openai", path, resp.StatusCode, fmt.Errorf("%s", truncate(string(body), 300)))
	}

	var result ChatCompletionResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return &result, nil
}

// ChatCompletionStream performs a streaming chat completion request
func (c *OpenAIClient) ChatCompletionStream(ctx context.Context, req ChatCompletionRequest, callback StreamCallback) error {
	const path = "/chat/completions"
	if !c.IsEnabled() {
		return c.errDisabled(path)
	}
	c.applyDefaults(&req)
	req.Stream = true

	httpReq, err := c.newRequest(ctx, path, req)
	if err != nil {
		return err
	}
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return apperrors.NewNetworkError("openai", path, 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return apperrors.NewNetworkError("openai", path, resp.StatusCode, fmt.Errorf("%s", truncate(string(body), 300)))
	}

	reader := bufio.NewReader(resp.Body)
	for {
		line, err := reader.ReadBytes('\n')
		if err != nil && err != io.EOF {
			return apperrors.NewNetworkError("openai", path, resp.StatusCode, fmt.Errorf("failed to read stream: %w", err))
		}

		trimmed := bytes.TrimSpace(line)
		if data, ok := bytes.CutPrefix(trimmed, []byte("data:")); ok {
			data = bytes.TrimSpace(data)
			if bytes.Equal(data, []byte("[DONE]")) {
				return nil
			}
			chunk, perr := c.chunkParser.ParseChunk(data)
			if perr != nil {
				logging.FromContext(ctx).Warn().Err(perr).Msg("Failed to parse stream chunk")
			} else if cerr := callback(chunk); cerr != nil {
				return fmt.Errorf("callback error: %w", cerr)
			}
		}

		if err == io.EOF {
			return nil
		}
	}
}

// CreateEmbeddings creates embeddings for the given texts
func (c *OpenAIClient) CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	if !c.IsEnabled() {
		return nil, c.errDisabled("/embeddings")
	}
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	all := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += embeddingBatchSize {
		end := min(i+embeddingBatchSize, len(texts))
		batch, err := c.createEmbeddingBatch(ctx, texts[i:end])
		if err != nil {
			return nil, fmt.Errorf("failed to create embeddings for batch %d: %w", i/embeddingBatchSize, err)
		}
		all = append(all, batch...)
	}
	return all, nil
}

func (c *OpenAIClient) createEmbeddingBatch(ctx context.Context, texts []string) ([][]float32, error) {
	const path = "/embeddings"
	req := EmbeddingRequest{
		Model:          c.config.EmbeddingModel,
		Input:          texts,
		Dimensions:     c.config.EmbeddingDimensions,
		EncodingFormat: "float",
	}
	if c.config.EmbeddingExtraBody != "" {
		var extra map[string]any
		if err := json.Unmarshal([]byte(c.config.EmbeddingExtraBody), &extra); err != nil {
			logging.Warn().Err(err).Msg("Failed to parse OPENAI_EMBEDDING_EXTRA_BODY")
		} else {
			req.ExtraBody = extra
		}
	}

	httpReq, err := c.newRequest(ctx, path, req)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, apperrors.NewNetworkError("openai", path, 0, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.NewNetworkError("openai", path, resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.NewNetworkError("openai", path, resp.StatusCode, fmt.Errorf("%s", truncate(string(body), 300)))
	}

	var result EmbeddingResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	embeddings := make([][]float32, len(texts))
	for _, item := range result.Data {
		if item.Index >= 0 && item.Index < len(embeddings) {
			embeddings[item.Index] = item.Embedding
		}
	}
	logging.FromContext(ctx).Debug().
		Int("count", len(embeddings)).
		Str("model", result.Model).
		Int("tokens", result.Usage.TotalTokens).
		Msg("Created embeddings")
	return embeddings, nil
}

func (c *OpenAIClient) extractionRequest(message string, kind model.FormKind) ChatCompletionRequest {
	return ChatCompletionRequest{
		Messages: []ChatMessage{
			{Role: "system", Content: extractionPrompt(kind)},
			{Role: "user", Content: message},
		},
		ResponseFormat: &ResponseFormat{Type: "json_object"},
	}
}

// Extract implements Extractor
func (c *OpenAIClient) Extract(ctx context.Context, message string, kind model.FormKind) (string, error) {
	resp, err := c.ChatCompletion(ctx, c.extractionRequest(message, kind))
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", apperrors.NewNetworkError("openai", "/chat/completions", http.StatusOK, fmt.Errorf("no choices in response"))
	}
	return resp.Choices[0].Message.Content, nil
}

// ExtractStream implements StreamingExtractor
func (c *OpenAIClient) ExtractStream(ctx context.Context, message string, kind model.FormKind, callback func(thinking, content string) error) (string, error) {
	log := logging.FromContext(ctx)

	var content, thinking strings.Builder
	chunks := 0
	err := c.ChatCompletionStream(ctx, c.extractionRequest(message, kind), func(chunk *StreamChunk) error {
		chunks++
		if chunk.ThinkingContent != "" {
			thinking.WriteString(chunk.ThinkingContent)
			if err := callback(chunk.ThinkingContent, ""); err != nil {
				return err
			}
		}
		if chunk.Content != "" {
			content.WriteString(chunk.Content)
			if err := callback("", chunk.Content); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	log.Debug().
		Int("chunks", chunks).
		Int("thinking_chars", thinking.Len()).
		Int("content_chars", content.Len()).
		Msg("Extraction stream completed")
	return content.String(), nil
}

func truncate(s string, n int) string {
	return utils.Truncate(s, n)
}
