package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"time"

	"intake/internal/config"
	apperrors "intake/internal/errors"
	"intake/internal/logging"
	"intake/internal/model"
)

// BackendExtractor calls the brokerage's own text-completion endpoint
type BackendExtractor struct {
	url        string
	model      string
	maxRetries int
	retryBase  time.Duration
	httpClient HTTPClient

	// sleep waits between attempts; replaced in tests
	sleep func(ctx context.Context, d time.Duration) error
}

type backendExtractRequest struct {
	Model   string `json:"model"`
	Message string `json:"message"`
	Format  string `json:"format"`
}

// NewBackendExtractor creates the extractor from config
func NewBackendExtractor(cfg *config.ExtractionConfig, httpClient HTTPClient) *BackendExtractor {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 5
	}
	base := cfg.RetryBase
	if base <= 0 {
		base = time.Second
	}
	return &BackendExtractor{
		url:        cfg.URL,
		model:      cfg.Model,
		maxRetries: maxRetries,
		retryBase:  base,
		httpClient: httpClient,
		sleep:      sleepContext,
	}
}

// Name implements Extractor
func (b *BackendExtractor) Name() string { return config.ProviderBackend }

// Extract implements Extractor. Transport errors and non-2xx responses are
// retried with exponential backoff plus jitter.
func (b *BackendExtractor) Extract(ctx context.Context, message string, kind model.FormKind) (string, error) {
	modelName := b.model
	if modelName == "" {
		modelName = kind.Identity()
	}
	payload, err := json.Marshal(backendExtractRequest{Model: modelName, Message: message, Format: "json"})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	log := logging.FromContext(ctx)
	var lastErr error
	for attempt := 0; attempt < b.maxRetries; attempt++ {
		if attempt > 0 {
			delay := b.backoff(attempt - 1)
			log.Warn().Err(lastErr).Int("attempt", attempt+1).Dur("delay", delay).Msg("⚠️  extraction failed, retrying")
			if err := b.sleep(ctx, delay); err != nil {
				return "", err
			}
		}

		text, err := b.attempt(ctx, payload)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
	}
	return "", lastErr
}

func (b *BackendExtractor) attempt(ctx context.Context, payload []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return "", apperrors.NewNetworkError("extraction", b.url, 0, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", apperrors.NewNetworkError("extraction", b.url, resp.StatusCode, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		netErr := apperrors.NewNetworkError("extraction", b.url, resp.StatusCode, nil)
		netErr.Message = truncate(string(body), 200)
		return "", netErr
	}
	return string(body), nil
}

// backoff is 2^i * base plus up to one base of jitter
func (b *BackendExtractor) backoff(i int) time.Duration {
	jitter := time.Duration(rand.Int64N(int64(b.retryBase)))
	return b.retryBase*time.Duration(1<<i) + jitter
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
