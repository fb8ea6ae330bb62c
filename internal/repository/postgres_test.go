package repository

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "intake/internal/errors"
	"intake/internal/model"
)

// newTestRepository connects to TEST_DATABASE_URL, skipping when it is unset
func newTestRepository(t *testing.T) *PostgresRepository {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	repo, err := NewPostgresRepository(dsn, 2, 1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	require.NoError(t, repo.EnsureSchema(context.Background()))
	return repo
}

func TestExtractionRoundTrip(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	near := &model.ExtractionLog{Kind: "inventory", Provider: "backend", Message: "Villa for sale in New Cairo", Response: `{"data":{}}`}
	far := &model.ExtractionLog{Kind: "request", Provider: "backend", Message: "Need a studio in Maadi", Response: `{"data":{}}`}
	nearID, err := repo.LogExtraction(ctx, near, []float32{1, 0, 0})
	require.NoError(t, err)
	_, err = repo.LogExtraction(ctx, far, []float32{0, 1, 0})
	require.NoError(t, err)

	similar, err := repo.FindSimilar(ctx, []float32{0.9, 0.1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, similar, 1)
	assert.Equal(t, nearID, similar[0].ID)
	require.NotNil(t, similar[0].Distance)

	require.NoError(t, repo.RecordAction(ctx, nearID, model.ActionConfirmed))
	got, err := repo.GetExtraction(ctx, nearID)
	require.NoError(t, err)
	require.NotNil(t, got.Action)
	assert.Equal(t, "confirmed", *got.Action)

	err = repo.RecordAction(ctx, -1, model.ActionConfirmed)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestBackfillEmbeddings(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	entry := &model.ExtractionLog{Kind: "inventory", Provider: "gemini", Message: "Flat for rent", Response: "{}"}
	id, err := repo.LogExtraction(ctx, entry, nil)
	require.NoError(t, err)

	missing, err := repo.ExtractionsMissingEmbedding(ctx, 1000)
	require.NoError(t, err)
	var found bool
	for _, m := range missing {
		found = found || m.ID == id
	}
	assert.True(t, found)

	success, errs := repo.BatchUpdateEmbeddings(ctx, []model.EmbeddingItem{{ExtractionID: id, Embedding: []float32{0, 0, 1}}})
	assert.Equal(t, 1, success)
	assert.Empty(t, errs)
}

func TestAuditLogs(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.LogReconciliation(ctx, &model.ReconciliationLog{
		SessionID:      "s-1",
		Kind:           "Inventory",
		Raw:            "{}",
		UnfilledFields: model.UnfilledFields{"price": true},
		UnfilledCount:  1,
	}))

	require.NoError(t, repo.LogSubmission(ctx, &model.SubmissionLog{
		SessionID: "s-1",
		Kind:      "Inventory",
		Payload:   model.JSONB{V: map[string]any{"type": "sell"}},
		Succeeded: true,
	}))

	recent, err := repo.RecentSubmissions(ctx, 5)
	require.NoError(t, err)
	require.NotEmpty(t, recent)
	assert.Equal(t, "Inventory", recent[0].Kind)
}
