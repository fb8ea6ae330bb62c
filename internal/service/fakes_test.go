package service

import (
	"context"
	"sync"

	apperrors "intake/internal/errors"
	"intake/internal/model"
)

// fakeExtractor returns canned text and records the messages it saw
type fakeExtractor struct {
	mu       sync.Mutex
	text     string
	err      error
	messages []string

	// block, when set, holds Extract until it is closed or ctx ends
	block chan struct{}
}

func (f *fakeExtractor) Name() string { return "fake" }

func (f *fakeExtractor) Extract(ctx context.Context, message string, kind model.FormKind) (string, error) {
	f.mu.Lock()
	f.messages = append(f.messages, message)
	block := f.block
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.text, f.err
}

// fakeStreamer adds streaming to fakeExtractor
type fakeStreamer struct {
	fakeExtractor
	chunks []StreamChunk
}

func (f *fakeStreamer) ExtractStream(ctx context.Context, message string, kind model.FormKind, callback func(thinking, content string) error) (string, error) {
	var full string
	for _, c := range f.chunks {
		if err := callback(c.ThinkingContent, c.Content); err != nil {
			return "", err
		}
		full += c.Content
	}
	return full, nil
}

// fakeEmbedder maps every text to a fixed vector
type fakeEmbedder struct {
	enabled bool
	err     error
	calls   int
}

func (f *fakeEmbedder) IsEnabled() bool { return f.enabled }

func (f *fakeEmbedder) CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(len(texts[i])), 1}
	}
	return out, nil
}

// memoryStore is an in-memory AuditStore
type memoryStore struct {
	mu              sync.Mutex
	extractions     []model.ExtractionLog
	embeddings      map[int64][]float32
	actions         map[int64]model.ExtractionAction
	reconciliations []model.ReconciliationLog
	submissions     []model.SubmissionLog
	logErr          error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		embeddings: map[int64][]float32{},
		actions:    map[int64]model.ExtractionAction{},
	}
}

func (m *memoryStore) LogExtraction(ctx context.Context, entry *model.ExtractionLog, embedding []float32) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.logErr != nil {
		return 0, m.logErr
	}
	entry.ID = int64(len(m.extractions) + 1)
	m.extractions = append(m.extractions, *entry)
	if embedding != nil {
		m.embeddings[entry.ID] = embedding
	}
	return entry.ID, nil
}

func (m *memoryStore) GetExtraction(ctx context.Context, id int64) (*model.ExtractionLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.extractions {
		if e.ID == id {
			return &e, nil
		}
	}
	return nil, apperrors.NewNotFoundError("extraction", "x")
}

func (m *memoryStore) FindSimilar(ctx context.Context, embedding []float32, limit int) ([]model.ExtractionLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.ExtractionLog
	for _, e := range m.extractions {
		if _, ok := m.embeddings[e.ID]; ok && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memoryStore) ExtractionsMissingEmbedding(ctx context.Context, limit int) ([]model.ExtractionLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.ExtractionLog
	for _, e := range m.extractions {
		if _, ok := m.embeddings[e.ID]; !ok && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memoryStore) BatchUpdateEmbeddings(ctx context.Context, items []model.EmbeddingItem) (int, []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, it := range items {
		m.embeddings[it.ExtractionID] = it.Embedding
	}
	return len(items), nil
}

func (m *memoryStore) RecordAction(ctx context.Context, extractionID int64, action model.ExtractionAction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if extractionID <= 0 || int(extractionID) > len(m.extractions) {
		return apperrors.NewNotFoundError("extraction", "x")
	}
	m.actions[extractionID] = action
	return nil
}

func (m *memoryStore) LogReconciliation(ctx context.Context, entry *model.ReconciliationLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reconciliations = append(m.reconciliations, *entry)
	return nil
}

func (m *memoryStore) LogSubmission(ctx context.Context, entry *model.SubmissionLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.submissions = append(m.submissions, *entry)
	return nil
}

func (m *memoryStore) action(id int64) model.ExtractionAction {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.actions[id]
}
