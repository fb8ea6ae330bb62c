package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "intake/internal/errors"
	"intake/internal/model"
)

// staticCatalogs serves testCatalogs for every kind
type staticCatalogs struct{ loads int }

func (s *staticCatalogs) Load(ctx context.Context, kind model.FormKind) model.DropdownOptions {
	s.loads++
	opts := model.DefaultDropdownOptions()
	opts.Catalogs = *testCatalogs()
	return opts
}

// recordingPoster captures submissions
type recordingPoster struct {
	mu     sync.Mutex
	err    error
	paths  []string
	bodies []any
}

func (p *recordingPoster) Post(ctx context.Context, path string, body, dest any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paths = append(p.paths, path)
	p.bodies = append(p.bodies, body)
	if p.err != nil {
		return p.err
	}
	if m, ok := dest.(*map[string]any); ok {
		*m = map[string]any{"id": 123}
	}
	return nil
}

// blockingEngine waits for release or cancellation before delegating
type blockingEngine struct {
	inner   Engine
	started chan struct{}
	release chan struct{}
}

func (b *blockingEngine) Reconcile(ctx context.Context, raw string, kind model.FormKind, catalogs *model.Catalogs, current model.FormState) (*model.ReconciliationResult, error) {
	close(b.started)
	select {
	case <-b.release:
	case <-ctx.Done():
	}
	// a cancelled engine may still hand back a result; the store must discard it
	return b.inner.Reconcile(context.Background(), raw, kind, catalogs, current)
}

const rentExtraction = `{"data":{
	"type":"rent","price":15000,"currency":"egp","location":"Zamalek",
	"listed_by":"Jane Smith","property_type":"Apartment","bedrooms":2,
	"furnish_type":"furnished","start_date":"2025-01-01","end_date":"2025-12-31"
}}`

type sessionFixture struct {
	store  *SessionStore
	ext    *fakeExtractor
	audit  *memoryStore
	poster *recordingPoster
}

func newSessionFixture(engine Engine) *sessionFixture {
	ext := &fakeExtractor{text: rentExtraction}
	audit := newMemoryStore()
	poster := &recordingPoster{}
	if engine == nil {
		engine = newTestReconciler(nil)
	}
	store := NewSessionStore(NewExtractionService(ext, nil, audit), engine, &staticCatalogs{}, poster, audit)
	return &sessionFixture{store: store, ext: ext, audit: audit, poster: poster}
}

func TestSessionGenerateConfirmSubmit(t *testing.T) {
	fx := newSessionFixture(nil)
	ctx := context.Background()

	session, err := fx.store.Open(ctx, model.KindInventory, "Apartment for rent in Zamalek 15k")
	require.NoError(t, err)
	assert.NotEmpty(t, session.ID)
	assert.Equal(t, model.TypeForRent, session.Form.Inventory.Type)

	session, err = fx.store.Generate(ctx, session.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, StatusGenerated, session.Status)
	assert.Equal(t, rentExtraction, session.AIResponseRaw)
	assert.Equal(t, int64(1), session.ExtractionID)

	session, err = fx.store.Confirm(ctx, session.ID, "")
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, session.Status)
	inv := session.Form.Inventory
	require.NotNil(t, inv.Location)
	assert.Equal(t, 40, inv.Location.ID)
	assert.Equal(t, float64(15000), inv.Price)
	assert.Equal(t, "EGP", inv.Currency)
	assert.Equal(t, "Apartment for rent in Zamalek 15k", inv.WhatsappMessage)
	assert.False(t, session.UnfilledFields["price"])
	assert.True(t, session.UnfilledFields["tag"])

	require.Len(t, fx.audit.reconciliations, 1)
	assert.Equal(t, session.ID, fx.audit.reconciliations[0].SessionID)
	assert.Equal(t, model.ActionConfirmed, fx.audit.action(1))

	result, err := fx.store.Submit(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, "Inventory listing saved successfully!", result.Status)
	assert.Equal(t, []string{"/inventories/add"}, fx.poster.paths)
	assert.Equal(t, "for_rent", result.Payload.Type)
	assert.Equal(t, 40, result.Payload.LocationID)
	assert.Equal(t, 7, result.Payload.PropertyTypeID)
	assert.Equal(t, 0, result.Payload.FurnishTypeID)
	require.NotNil(t, result.Payload.Budget.Duration)
	assert.Equal(t, "01-01-2025", result.Payload.Budget.Duration.StartDate)
	assert.Equal(t, "monthly", result.Payload.Budget.Transaction)
	assert.Equal(t, 123, result.Backend["id"])

	assert.Equal(t, model.ActionSubmitted, fx.audit.action(1))
	require.Len(t, fx.audit.submissions, 1)
	assert.True(t, fx.audit.submissions[0].Succeeded)

	// success resets the form
	after, err := fx.store.Get(session.ID)
	require.NoError(t, err)
	assert.Nil(t, after.Form.Inventory.Location)
	assert.Empty(t, after.AIResponseRaw)
	assert.Equal(t, "Inventory listing saved successfully!", after.Status)
}

func TestSessionConfirmMalformed(t *testing.T) {
	fx := newSessionFixture(nil)
	ctx := context.Background()

	session, err := fx.store.Open(ctx, model.KindRequest, "")
	require.NoError(t, err)
	before := session.Form

	_, err = fx.store.Confirm(ctx, session.ID, "not json at all")
	assert.ErrorIs(t, err, apperrors.ErrMalformedResponse)

	got, err := fx.store.Get(session.ID)
	require.NoError(t, err)
	assert.Equal(t, "Error: Invalid JSON response from AI. Cannot confirm.", got.Status)
	assert.Equal(t, before, got.Form)
	assert.Empty(t, fx.audit.reconciliations)
}

func TestSessionConfirmWithoutResponse(t *testing.T) {
	fx := newSessionFixture(nil)
	session, err := fx.store.Open(context.Background(), model.KindInventory, "")
	require.NoError(t, err)

	_, err = fx.store.Confirm(context.Background(), session.ID, "")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestSessionGenerateEmptyMessage(t *testing.T) {
	fx := newSessionFixture(nil)
	ctx := context.Background()
	session, err := fx.store.Open(ctx, model.KindInventory, "")
	require.NoError(t, err)

	_, err = fx.store.Generate(ctx, session.ID, nil)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	got, err := fx.store.Get(session.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusEmptyMessage, got.Status)
	assert.Empty(t, fx.ext.messages)
}

func TestSessionResetDiscardsInFlightConfirm(t *testing.T) {
	engine := &blockingEngine{inner: newTestReconciler(nil), started: make(chan struct{}), release: make(chan struct{})}
	fx := newSessionFixture(engine)
	ctx := context.Background()

	session, err := fx.store.Open(ctx, model.KindInventory, "msg")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := fx.store.Confirm(ctx, session.ID, rentExtraction)
		done <- err
	}()

	<-engine.started
	_, err = fx.store.Reset(session.ID)
	require.NoError(t, err)

	select {
	case err := <-done:
		assert.ErrorIs(t, err, apperrors.ErrStaleResult)
	case <-time.After(2 * time.Second):
		t.Fatal("confirm did not return after reset")
	}

	got, err := fx.store.Get(session.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Form.Inventory.Location)
	assert.Empty(t, got.Status)
}

func TestSessionCloseDiscardsInFlightConfirm(t *testing.T) {
	engine := &blockingEngine{inner: newTestReconciler(nil), started: make(chan struct{}), release: make(chan struct{})}
	fx := newSessionFixture(engine)
	ctx := context.Background()

	session, err := fx.store.Open(ctx, model.KindInventory, "msg")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := fx.store.Confirm(ctx, session.ID, rentExtraction)
		done <- err
	}()

	<-engine.started
	require.NoError(t, fx.store.Close(ctx, session.ID))

	select {
	case err := <-done:
		assert.ErrorIs(t, err, apperrors.ErrSessionClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("confirm did not return after close")
	}
	_, err = fx.store.Get(session.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Zero(t, fx.store.Len())
}

func TestSessionEditWinsOverInFlightConfirm(t *testing.T) {
	engine := &blockingEngine{inner: newTestReconciler(nil), started: make(chan struct{}), release: make(chan struct{})}
	fx := newSessionFixture(engine)
	ctx := context.Background()

	session, err := fx.store.Open(ctx, model.KindInventory, "msg")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := fx.store.Confirm(ctx, session.ID, rentExtraction)
		done <- err
	}()

	<-engine.started
	_, err = fx.store.Update(session.ID, model.FieldUpdate{Field: "bedrooms", Value: 4})
	require.NoError(t, err)
	close(engine.release)

	select {
	case err := <-done:
		assert.ErrorIs(t, err, apperrors.ErrStaleResult)
	case <-time.After(2 * time.Second):
		t.Fatal("confirm did not return after edit")
	}

	got, err := fx.store.Get(session.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, got.Form.Inventory.Bedrooms)
	assert.Nil(t, got.Form.Inventory.Location)
	assert.NotEqual(t, StatusConfirmed, got.Status)
}

func TestSessionCloseRecordsDiscard(t *testing.T) {
	fx := newSessionFixture(nil)
	ctx := context.Background()

	session, err := fx.store.Open(ctx, model.KindInventory, "Villa")
	require.NoError(t, err)
	_, err = fx.store.Generate(ctx, session.ID, nil)
	require.NoError(t, err)

	require.NoError(t, fx.store.Close(ctx, session.ID))
	assert.Equal(t, model.ActionDiscarded, fx.audit.action(1))
	assert.ErrorIs(t, fx.store.Close(ctx, session.ID), apperrors.ErrNotFound)
}

func TestSessionUpdate(t *testing.T) {
	fx := newSessionFixture(nil)
	ctx := context.Background()

	session, err := fx.store.Open(ctx, model.KindInventory, "")
	require.NoError(t, err)
	session, err = fx.store.Confirm(ctx, session.ID, `{"type":"sale"}`)
	require.NoError(t, err)
	require.True(t, session.UnfilledFields["price"])

	session, err = fx.store.Update(session.ID, model.FieldUpdate{Field: "price", Value: 2500000})
	require.NoError(t, err)
	assert.Equal(t, float64(2500000), session.Form.Inventory.Price)
	assert.False(t, session.UnfilledFields["price"])

	session, err = fx.store.Update(session.ID, model.FieldUpdate{Field: "type", Value: model.TypeForRent})
	require.NoError(t, err)
	assert.Equal(t, model.TransactionMonthly, session.Form.Inventory.Transaction)

	_, err = fx.store.Update(session.ID, model.FieldUpdate{Field: "nope", Value: 1})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestSessionSwitchKindKeepsResponse(t *testing.T) {
	fx := newSessionFixture(nil)
	ctx := context.Background()

	session, err := fx.store.Open(ctx, model.KindInventory, "Looking to rent in Zamalek")
	require.NoError(t, err)
	_, err = fx.store.Generate(ctx, session.ID, nil)
	require.NoError(t, err)

	session, err = fx.store.SwitchKind(ctx, session.ID, model.KindRequest)
	require.NoError(t, err)
	assert.Equal(t, model.KindRequest, session.Kind)
	require.NotNil(t, session.Form.Request)
	assert.Nil(t, session.Form.Inventory)
	assert.Equal(t, rentExtraction, session.AIResponseRaw)

	session, err = fx.store.Confirm(ctx, session.ID, "")
	require.NoError(t, err)
	require.Len(t, session.Form.Request.Locations, 1)
	assert.Equal(t, "Zamalek", session.Form.Request.Locations[0].Name)

	_, err = fx.store.SwitchKind(ctx, session.ID, "Other")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestSessionSubmitValidationAndFailure(t *testing.T) {
	fx := newSessionFixture(nil)
	ctx := context.Background()

	session, err := fx.store.Open(ctx, model.KindRequest, "")
	require.NoError(t, err)

	_, err = fx.store.Submit(ctx, session.ID)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	assert.Empty(t, fx.poster.paths)
	got, _ := fx.store.Get(session.ID)
	assert.Equal(t, "Location is required.", got.Status)

	_, err = fx.store.Confirm(ctx, session.ID, rentExtraction)
	require.NoError(t, err)

	fx.poster.err = apperrors.NewNetworkError("backend", "/requests/add", 500, nil)
	_, err = fx.store.Submit(ctx, session.ID)
	assert.ErrorIs(t, err, apperrors.ErrNetworkFailure)
	assert.Equal(t, []string{"/requests/add"}, fx.poster.paths)

	got, _ = fx.store.Get(session.ID)
	assert.Equal(t, StatusSaveFailed, got.Status)
	assert.NotEmpty(t, got.Form.Request.Locations)
	require.Len(t, fx.audit.submissions, 1)
	assert.False(t, fx.audit.submissions[0].Succeeded)
}

func TestSessionExpire(t *testing.T) {
	fx := newSessionFixture(nil)
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	fx.store.now = func() time.Time { return now }

	_, err := fx.store.Open(ctx, model.KindInventory, "")
	require.NoError(t, err)
	now = now.Add(2 * time.Hour)
	fresh, err := fx.store.Open(ctx, model.KindRequest, "")
	require.NoError(t, err)

	assert.Equal(t, 1, fx.store.Expire(ctx, time.Hour))
	assert.Equal(t, 1, fx.store.Len())
	_, err = fx.store.Get(fresh.ID)
	assert.NoError(t, err)
}

func TestSessionUnknownID(t *testing.T) {
	fx := newSessionFixture(nil)
	_, err := fx.store.Get("missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	_, err = fx.store.Confirm(context.Background(), "missing", "{}")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
