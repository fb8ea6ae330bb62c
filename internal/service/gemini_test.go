package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"intake/internal/config"
	apperrors "intake/internal/errors"
	"intake/internal/model"
)

type fakeGenerator struct {
	text   string
	err    error
	model  string
	config *genai.GenerateContentConfig
}

func (f *fakeGenerator) GenerateContent(_ context.Context, m string, _ []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.model = m
	f.config = cfg
	if f.err != nil {
		return nil, f.err
	}
	resp := &genai.GenerateContentResponse{}
	if f.text != "" {
		resp.Candidates = []*genai.Candidate{{Content: genai.NewContentFromText(f.text, genai.RoleModel)}}
	}
	return resp, nil
}

func TestGeminiExtract(t *testing.T) {
	gen := &fakeGenerator{text: `{"data":{"type":"sale"}}`}
	g := &GeminiExtractor{models: gen, model: "gemini-2.0-flash"}

	text, err := g.Extract(context.Background(), "Villa for sale", model.KindInventory)
	require.NoError(t, err)
	assert.Equal(t, `{"data":{"type":"sale"}}`, text)
	assert.Equal(t, "gemini-2.0-flash", gen.model)
	require.NotNil(t, gen.config)
	assert.Equal(t, "application/json", gen.config.ResponseMIMEType)
	assert.NotNil(t, gen.config.SystemInstruction)
	assert.Equal(t, config.ProviderGemini, g.Name())
}

func TestGeminiExtractErrors(t *testing.T) {
	g := &GeminiExtractor{models: &fakeGenerator{err: errors.New("quota")}, model: "m"}
	_, err := g.Extract(context.Background(), "hi", model.KindRequest)
	assert.ErrorIs(t, err, apperrors.ErrNetworkFailure)

	g = &GeminiExtractor{models: &fakeGenerator{}, model: "m"}
	_, err = g.Extract(context.Background(), "hi", model.KindRequest)
	assert.ErrorIs(t, err, apperrors.ErrNetworkFailure)

	_, err = NewGeminiExtractor(context.Background(), &config.GeminiConfig{})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}
