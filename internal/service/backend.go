package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"intake/internal/config"
	apperrors "intake/internal/errors"
	"intake/internal/logging"
	"intake/internal/model"
)

const backendService = "backend"

// HTTPClient matches net/http.Client Do signature for testability.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// BackendClient talks to the brokerage REST API
type BackendClient struct {
	baseURL    string
	token      string
	httpClient HTTPClient
}

// NewBackendClient creates a client for the brokerage API. A nil httpClient
// gets a default one with the configured timeout.
func NewBackendClient(cfg *config.BackendConfig, httpClient HTTPClient) *BackendClient {
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &BackendClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      cfg.APIToken,
		httpClient: httpClient,
	}
}

// Get fetches path (with optional query) and decodes the envelope data into dest
func (c *BackendClient) Get(ctx context.Context, path string, query url.Values, dest any) error {
	if len(query) > 0 {
		path = path + "?" + query.Encode()
	}
	return c.Do(ctx, http.MethodGet, path, nil, dest)
}

// Post sends body as JSON and decodes the envelope data into dest
func (c *BackendClient) Post(ctx context.Context, path string, body, dest any) error {
	return c.Do(ctx, http.MethodPost, path, body, dest)
}

// Delete calls path with DELETE and an optional JSON body
func (c *BackendClient) Delete(ctx context.Context, path string, body any) error {
	return c.Do(ctx, http.MethodDelete, path, body, nil)
}

// GetRaw fetches path and decodes the whole body into dest without requiring
// the status envelope. Some endpoints (property types) return bare lists.
func (c *BackendClient) GetRaw(ctx context.Context, path string, query url.Values, dest any) error {
	if len(query) > 0 {
		path = path + "?" + query.Encode()
	}
	raw, err := c.send(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return apperrors.NewMalformedResponseError(truncate(string(raw), 200), err)
	}
	return nil
}

// Do performs one call against the API. Non-2xx responses and envelopes with
// status false are returned as *errors.NetworkError. dest may be nil.
func (c *BackendClient) Do(ctx context.Context, method, path string, body, dest any) error {
	raw, err := c.send(ctx, method, path, body)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}

	var envelope model.APIResponse[json.RawMessage]
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return apperrors.NewMalformedResponseError(truncate(string(raw), 200), err)
	}
	if !envelope.Status {
		netErr := apperrors.NewNetworkError(backendService, path, http.StatusOK, nil)
		netErr.Message = envelope.Message
		if netErr.Message == "" {
			netErr.Message = "request rejected"
		}
		return netErr
	}
	if dest == nil || len(envelope.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(envelope.Data, dest); err != nil {
		return apperrors.NewMalformedResponseError(truncate(string(envelope.Data), 200), err)
	}
	return nil
}

// send performs the request and returns the body of a 2xx response
func (c *BackendClient) send(ctx context.Context, method, path string, body any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.NewNetworkError(backendService, path, 0, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.NewNetworkError(backendService, path, resp.StatusCode, fmt.Errorf("failed to read response: %w", err))
	}

	logging.FromContext(ctx).Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("took", time.Since(start)).
		Msg("backend call")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		netErr := apperrors.NewNetworkError(backendService, path, resp.StatusCode, nil)
		netErr.Message = envelopeMessage(raw)
		return nil, netErr
	}

	return raw, nil
}

// envelopeMessage pulls "message" out of an error body, falling back to the raw text
func envelopeMessage(raw []byte) string {
	var env struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &env); err == nil && env.Message != "" {
		return env.Message
	}
	return truncate(strings.TrimSpace(string(raw)), 200)
}
