package service

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intake/internal/config"
	apperrors "intake/internal/errors"
	"intake/internal/model"
)

type roundTripperFunc func(req *http.Request) (*http.Response, error)

func (f roundTripperFunc) Do(req *http.Request) (*http.Response, error) { return f(req) }

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(bytes.NewBufferString(body)),
	}
}

func newTestBackend(rt roundTripperFunc) *BackendClient {
	return NewBackendClient(&config.BackendConfig{BaseURL: "http://api.test/api/", APIToken: "secret"}, rt)
}

func TestBackendClientGet(t *testing.T) {
	var gotReq *http.Request
	client := newTestBackend(func(req *http.Request) (*http.Response, error) {
		gotReq = req
		return jsonResponse(http.StatusOK, `{"status":true,"data":[{"id":1,"name":"Villa"}]}`), nil
	})

	var types []model.PropertyType
	err := client.Get(context.Background(), "/property-types", url.Values{"limit": {"5"}}, &types)
	require.NoError(t, err)

	assert.Equal(t, []model.PropertyType{{ID: 1, Name: "Villa"}}, types)
	assert.Equal(t, "http://api.test/api/property-types?limit=5", gotReq.URL.String())
	assert.Equal(t, "Bearer secret", gotReq.Header.Get("Authorization"))
}

func TestBackendClientErrors(t *testing.T) {
	tests := []struct {
		name      string
		resp      *http.Response
		transport error
		check     func(t *testing.T, err error)
	}{
		{
			name: "status false",
			resp: jsonResponse(http.StatusOK, `{"status":false,"message":"invalid token"}`),
			check: func(t *testing.T, err error) {
				var netErr *apperrors.NetworkError
				require.ErrorAs(t, err, &netErr)
				assert.Equal(t, "invalid token", netErr.Message)
			},
		},
		{
			name: "not found",
			resp: jsonResponse(http.StatusNotFound, `{"message":"no such message"}`),
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, apperrors.ErrNotFound)
				assert.ErrorIs(t, err, apperrors.ErrNetworkFailure)
			},
		},
		{
			name:      "transport",
			transport: assert.AnError,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, apperrors.ErrNetworkFailure)
				assert.ErrorIs(t, err, assert.AnError)
			},
		},
		{
			name: "not json",
			resp: jsonResponse(http.StatusOK, `<html>oops</html>`),
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, apperrors.ErrMalformedResponse)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestBackend(func(req *http.Request) (*http.Response, error) {
				if tt.transport != nil {
					return nil, tt.transport
				}
				return tt.resp, nil
			})
			var out any
			err := client.Get(context.Background(), "/x", nil, &out)
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestBackendClientPostBody(t *testing.T) {
	var body map[string]any
	client := newTestBackend(func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, http.MethodPost, req.Method)
		assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(req.Body).Decode(&body))
		return jsonResponse(http.StatusOK, `{"status":true}`), nil
	})

	require.NoError(t, client.Post(context.Background(), "/messages/1/reply", map[string]string{"reply": "hi"}, nil))
	assert.Equal(t, "hi", body["reply"])
}

func newTestExtractor(rt roundTripperFunc, retries int) (*BackendExtractor, *[]time.Duration) {
	ext := NewBackendExtractor(&config.ExtractionConfig{URL: "http://ai.test/generate", MaxRetries: retries, RetryBase: time.Second}, rt)
	var delays []time.Duration
	ext.sleep = func(ctx context.Context, d time.Duration) error {
		delays = append(delays, d)
		return ctx.Err()
	}
	return ext, &delays
}

func TestBackendExtractorRetries(t *testing.T) {
	var calls atomic.Int32
	ext, delays := newTestExtractor(func(req *http.Request) (*http.Response, error) {
		n := calls.Add(1)
		if n < 3 {
			return jsonResponse(http.StatusBadGateway, "upstream"), nil
		}
		var body backendExtractRequest
		require.NoError(t, json.NewDecoder(req.Body).Decode(&body))
		assert.Equal(t, "request", body.Model)
		assert.Equal(t, "json", body.Format)
		return jsonResponse(http.StatusOK, `{"data":{"type":"buy"}}`), nil
	}, 5)

	text, err := ext.Extract(context.Background(), "looking to buy", model.KindRequest)
	require.NoError(t, err)
	assert.Equal(t, `{"data":{"type":"buy"}}`, text)
	assert.Equal(t, int32(3), calls.Load())

	require.Len(t, *delays, 2)
	assert.GreaterOrEqual(t, (*delays)[0], time.Second)
	assert.Less(t, (*delays)[0], 2*time.Second)
	assert.GreaterOrEqual(t, (*delays)[1], 2*time.Second)
	assert.Less(t, (*delays)[1], 3*time.Second)
}

func TestBackendExtractorGivesUp(t *testing.T) {
	var calls atomic.Int32
	ext, _ := newTestExtractor(func(req *http.Request) (*http.Response, error) {
		calls.Add(1)
		return nil, assert.AnError
	}, 3)

	_, err := ext.Extract(context.Background(), "msg", model.KindInventory)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNetworkFailure)
	assert.Equal(t, int32(3), calls.Load())
}

func TestBackendExtractorCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ext, _ := newTestExtractor(func(req *http.Request) (*http.Response, error) {
		cancel()
		return jsonResponse(http.StatusInternalServerError, ""), nil
	}, 5)

	_, err := ext.Extract(ctx, "msg", model.KindInventory)
	assert.ErrorIs(t, err, context.Canceled)
}
