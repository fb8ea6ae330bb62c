package service

import (
	"context"
	"strings"
	"time"

	apperrors "intake/internal/errors"
	"intake/internal/logging"
	"intake/internal/model"
	"intake/internal/repository"
	"intake/internal/utils"
)

// Status lines shown after an extraction
const (
	StatusGenerating     = "Generating structured data..."
	StatusGenerated      = "Data generated successfully. Please review and Confirm."
	StatusGenerateFailed = "AI failed to generate a valid JSON response."
	StatusEmptyMessage   = "Please paste a WhatsApp message to generate data."
)

// ErrAuditUnavailable is returned when the database (or, for similarity, embeddings) is not configured
var ErrAuditUnavailable = apperrors.New("audit database or embeddings not configured")

// AuditStore persists extractions, reconciliations and submissions
type AuditStore interface {
	LogExtraction(ctx context.Context, entry *model.ExtractionLog, embedding []float32) (int64, error)
	GetExtraction(ctx context.Context, id int64) (*model.ExtractionLog, error)
	FindSimilar(ctx context.Context, embedding []float32, limit int) ([]model.ExtractionLog, error)
	ExtractionsMissingEmbedding(ctx context.Context, limit int) ([]model.ExtractionLog, error)
	BatchUpdateEmbeddings(ctx context.Context, items []model.EmbeddingItem) (int, []string)
	RecordAction(ctx context.Context, extractionID int64, action model.ExtractionAction) error
	LogReconciliation(ctx context.Context, entry *model.ReconciliationLog) error
	LogSubmission(ctx context.Context, entry *model.SubmissionLog) error
}

var _ AuditStore = (*repository.PostgresRepository)(nil)

// EventCallback is called for streaming extraction events
type EventCallback func(event string, data any) error

// GenerateStatus is the status line for a failed Generate
func GenerateStatus(err error) string {
	if apperrors.IsMalformedResponse(err) {
		return StatusGenerateFailed
	}
	return apperrors.StatusMessage(err)
}

// ExtractionService runs AI extraction and keeps its audit trail
type ExtractionService struct {
	extractor Extractor
	embedder  Embedder
	store     AuditStore
}

// NewExtractionService creates the service. embedder and store may be nil.
func NewExtractionService(extractor Extractor, embedder Embedder, store AuditStore) *ExtractionService {
	return &ExtractionService{extractor: extractor, embedder: embedder, store: store}
}

// Provider names the configured extraction provider
func (s *ExtractionService) Provider() string {
	return s.extractor.Name()
}

// Generate extracts structured data from a message. The raw text is returned
// only when it parses as a JSON object.
func (s *ExtractionService) Generate(ctx context.Context, message string, kind model.FormKind) (*model.ExtractResponse, error) {
	if strings.TrimSpace(message) == "" {
		return nil, apperrors.NewValidationError("message", "", StatusEmptyMessage)
	}

	start := time.Now()
	text, err := s.extractor.Extract(ctx, message, kind)
	if err != nil {
		logging.FromContext(ctx).Error().Err(err).Str("provider", s.extractor.Name()).Msg("❌ Extraction failed")
		return nil, err
	}
	return s.finish(ctx, message, kind, text, start)
}

// GenerateStream is Generate with progress events. Providers that cannot
// stream produce a single content event.
func (s *ExtractionService) GenerateStream(ctx context.Context, message string, kind model.FormKind, callback EventCallback) (*model.ExtractResponse, error) {
	if strings.TrimSpace(message) == "" {
		return nil, apperrors.NewValidationError("message", "", StatusEmptyMessage)
	}

	if err := callback("generating", map[string]any{"status": StatusGenerating}); err != nil {
		return nil, err
	}

	start := time.Now()
	var (
		text string
		err  error
	)
	if streamer, ok := s.extractor.(StreamingExtractor); ok {
		text, err = streamer.ExtractStream(ctx, message, kind, func(thinking, content string) error {
			if thinking != "" {
				return callback("thinking", map[string]any{"content": thinking})
			}
			if content != "" {
				return callback("content", map[string]any{"content": content})
			}
			return nil
		})
	} else {
		text, err = s.extractor.Extract(ctx, message, kind)
		if err == nil {
			err = callback("content", map[string]any{"content": text})
		}
	}
	if err != nil {
		logging.FromContext(ctx).Error().Err(err).Str("provider", s.extractor.Name()).Msg("❌ Extraction failed")
		return nil, err
	}
	return s.finish(ctx, message, kind, text, start)
}

func (s *ExtractionService) finish(ctx context.Context, message string, kind model.FormKind, text string, start time.Time) (*model.ExtractResponse, error) {
	log := logging.FromContext(ctx)
	if strings.TrimSpace(text) == "" {
		return nil, apperrors.NewMalformedResponseError("", apperrors.New("empty response"))
	}
	obj, err := utils.ParseAIObject(text)
	if err != nil {
		log.Warn().Err(err).Str("provider", s.extractor.Name()).Msg("⚠️  Extraction is not valid JSON")
		return nil, err
	}

	resp := &model.ExtractResponse{
		Raw:      text,
		Data:     utils.DataObject(obj),
		Provider: s.extractor.Name(),
		Status:   StatusGenerated,
	}
	resp.ID = s.logExtraction(ctx, message, kind, text)

	log.Info().
		Str("provider", resp.Provider).
		Str("kind", string(kind)).
		Int("fields", len(resp.Data)).
		Dur("took", time.Since(start)).
		Msg("✅ Extraction complete")
	return resp, nil
}

// logExtraction stores the extraction with an embedding when available.
// Failures are logged; the extraction itself already succeeded.
func (s *ExtractionService) logExtraction(ctx context.Context, message string, kind model.FormKind, text string) int64 {
	if s.store == nil {
		return 0
	}
	log := logging.FromContext(ctx)

	var embedding []float32
	if s.embedder != nil && s.embedder.IsEnabled() {
		vectors, err := s.embedder.CreateEmbeddings(ctx, []string{message})
		if err != nil {
			log.Warn().Err(err).Msg("⚠️  Embedding failed, storing extraction without it")
		} else if len(vectors) == 1 {
			embedding = vectors[0]
		}
	}

	entry := &model.ExtractionLog{
		Kind:     kind.Identity(),
		Provider: s.extractor.Name(),
		Message:  message,
		Response: text,
	}
	id, err := s.store.LogExtraction(ctx, entry, embedding)
	if err != nil {
		log.Warn().Err(err).Msg("⚠️  Failed to log extraction")
		return 0
	}
	return id
}

// Similar returns earlier extractions whose message is closest to message
func (s *ExtractionService) Similar(ctx context.Context, message string, limit int) ([]model.ExtractionLog, error) {
	if strings.TrimSpace(message) == "" {
		return nil, apperrors.NewValidationError("message", "", "message is required")
	}
	if s.store == nil || s.embedder == nil || !s.embedder.IsEnabled() {
		return nil, ErrAuditUnavailable
	}
	if limit <= 0 || limit > 50 {
		limit = 5
	}
	vectors, err := s.embedder.CreateEmbeddings(ctx, []string{message})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, apperrors.NewMalformedResponseError("", apperrors.New("embedding count mismatch"))
	}
	return s.store.FindSimilar(ctx, vectors[0], limit)
}

// RecordFeedback stores what staff did with an extraction
func (s *ExtractionService) RecordFeedback(ctx context.Context, extractionID int64, action model.ExtractionAction) error {
	if !action.Valid() {
		return apperrors.NewValidationError("action", action, "Invalid action. Must be one of: confirmed, submitted, discarded")
	}
	if s.store == nil {
		return ErrAuditUnavailable
	}
	return s.store.RecordAction(ctx, extractionID, action)
}

// Get returns one stored extraction
func (s *ExtractionService) Get(ctx context.Context, id int64) (*model.ExtractionLog, error) {
	if s.store == nil {
		return nil, ErrAuditUnavailable
	}
	return s.store.GetExtraction(ctx, id)
}

// BackfillEmbeddings embeds up to limit stored extractions that have none
func (s *ExtractionService) BackfillEmbeddings(ctx context.Context, limit int) (*model.EmbeddingBackfillResponse, error) {
	if s.store == nil || s.embedder == nil || !s.embedder.IsEnabled() {
		return nil, ErrAuditUnavailable
	}
	if limit <= 0 {
		limit = 100
	}
	pending, err := s.store.ExtractionsMissingEmbedding(ctx, limit)
	if err != nil {
		return nil, err
	}
	if len(pending) == 0 {
		return &model.EmbeddingBackfillResponse{}, nil
	}

	texts := make([]string, len(pending))
	for i, p := range pending {
		texts[i] = p.Message
	}
	vectors, err := s.embedder.CreateEmbeddings(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(pending) {
		return nil, apperrors.NewMalformedResponseError("", apperrors.New("embedding count mismatch"))
	}

	items := make([]model.EmbeddingItem, len(pending))
	for i, p := range pending {
		items[i] = model.EmbeddingItem{ExtractionID: p.ID, Embedding: vectors[i]}
	}
	success, errs := s.store.BatchUpdateEmbeddings(ctx, items)
	logging.FromContext(ctx).Info().Int("success", success).Int("failed", len(items)-success).Msg("📦 Embedding backfill done")
	return &model.EmbeddingBackfillResponse{
		Success: success,
		Failed:  len(items) - success,
		Errors:  errs,
	}, nil
}
