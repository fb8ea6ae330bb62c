package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "intake/internal/errors"
	"intake/internal/logging"
	"intake/internal/model"
)

// StatusConfirmed is shown once an extraction has been applied to the form
const StatusConfirmed = "Form fields updated successfully from AI data. Please review and save."

// Generator produces a raw extraction for a message
type Generator interface {
	Generate(ctx context.Context, message string, kind model.FormKind) (*model.ExtractResponse, error)
}

// Engine reconciles a raw extraction into a form
type Engine interface {
	Reconcile(ctx context.Context, raw string, kind model.FormKind, catalogs *model.Catalogs, current model.FormState) (*model.ReconciliationResult, error)
}

// CatalogLoader returns the dropdown data for a form kind
type CatalogLoader interface {
	Load(ctx context.Context, kind model.FormKind) model.DropdownOptions
}

// Poster sends a JSON body to the brokerage API
type Poster interface {
	Post(ctx context.Context, path string, body, dest any) error
}

var (
	_ Generator     = (*ExtractionService)(nil)
	_ Engine        = (*Reconciler)(nil)
	_ CatalogLoader = (*CatalogService)(nil)
	_ Poster        = (*BackendClient)(nil)
)

type sessionEntry struct {
	session model.Session

	// generation increases whenever the session is edited, reset, switched,
	// closed or starts a new operation; a result is applied only if it still
	// matches.
	generation uint64
	cancel     context.CancelFunc

	// actioned is set once the current extraction was confirmed or submitted
	actioned bool
}

func (e *sessionEntry) stop() {
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
}

// SessionStore keeps editing sessions in memory. At most one generate,
// confirm, switch or submit runs per session; starting another cancels it.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*sessionEntry

	generator Generator
	engine    Engine
	catalogs  CatalogLoader
	poster    Poster
	audit     AuditStore

	now func() time.Time
}

// NewSessionStore creates a store. audit may be nil.
func NewSessionStore(generator Generator, engine Engine, catalogs CatalogLoader, poster Poster, audit AuditStore) *SessionStore {
	return &SessionStore{
		sessions:  make(map[string]*sessionEntry),
		generator: generator,
		engine:    engine,
		catalogs:  catalogs,
		poster:    poster,
		audit:     audit,
		now:       time.Now,
	}
}

// Open starts a session for kind with the catalogs loaded
func (s *SessionStore) Open(ctx context.Context, kind model.FormKind, message string) (*model.Session, error) {
	if kind != model.KindInventory && kind != model.KindRequest {
		return nil, apperrors.NewValidationError("kind", kind, "kind must be Inventory or Request")
	}
	opts := s.catalogs.Load(ctx, kind)

	now := s.now()
	session := model.Session{
		ID:             uuid.NewString(),
		Kind:           kind,
		Form:           model.InitialFormState(kind),
		Options:        opts,
		WhatsappInput:  message,
		UnfilledFields: model.UnfilledFields{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	s.mu.Lock()
	s.sessions[session.ID] = &sessionEntry{session: session}
	s.mu.Unlock()

	logging.FromContext(ctx).Info().Str("session", session.ID).Str("kind", string(kind)).Msg("📍 Session opened")
	return cloneSession(session), nil
}

// Get returns a snapshot of a session
func (s *SessionStore) Get(id string) (*model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("session", id)
	}
	return cloneSession(e.session), nil
}

// Len reports the number of open sessions
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Generate runs extraction on the session's message, or on message when given
func (s *SessionStore) Generate(ctx context.Context, id string, message *string) (*model.Session, error) {
	snap, gen, opCtx, cancel, err := s.begin(ctx, id)
	if err != nil {
		return nil, err
	}
	defer cancel()

	text := snap.WhatsappInput
	if message != nil {
		text = *message
	}

	resp, genErr := s.generator.Generate(opCtx, text, snap.Kind)
	session, err := s.commit(id, gen, func(e *sessionEntry) {
		e.session.WhatsappInput = text
		if genErr != nil {
			e.session.Status = GenerateStatus(genErr)
			return
		}
		e.session.AIResponseRaw = resp.Raw
		e.session.ExtractionID = resp.ID
		e.session.Status = resp.Status
		e.actioned = false
	})
	if err != nil {
		return nil, err
	}
	if genErr != nil {
		return nil, genErr
	}
	return session, nil
}

// Confirm applies an extraction to the session form. raw overrides the stored
// AI response when non-empty. A session reset, switched or closed while the
// engine runs gets ErrStaleResult or ErrSessionClosed and is left untouched.
func (s *SessionStore) Confirm(ctx context.Context, id string, raw string) (*model.Session, error) {
	snap, gen, opCtx, cancel, err := s.begin(ctx, id)
	if err != nil {
		return nil, err
	}
	defer cancel()

	if raw == "" {
		raw = snap.AIResponseRaw
	}
	if raw == "" {
		verr := apperrors.NewValidationError("raw", "", "No AI response to confirm. Generate data first.")
		if _, err := s.commit(id, gen, func(e *sessionEntry) { e.session.Status = verr.Message }); err != nil {
			return nil, err
		}
		return nil, verr
	}

	result, engErr := s.engine.Reconcile(opCtx, raw, snap.Kind, &snap.Options.Catalogs, snap.Form)
	session, err := s.commit(id, gen, func(e *sessionEntry) {
		e.session.AIResponseRaw = raw
		if engErr != nil {
			e.session.Status = apperrors.StatusMessage(engErr)
			return
		}
		form := result.Form
		if msg := form.WhatsappMessage(); msg != "" {
			e.session.WhatsappInput = msg
		} else {
			form.SetWhatsappMessage(e.session.WhatsappInput)
		}
		e.session.Form = form
		e.session.UnfilledFields = result.UnfilledFields
		e.session.Options.ApplyPatch(result.CatalogPatch)
		e.session.Status = StatusConfirmed
		e.actioned = true
	})
	if err != nil {
		logging.FromContext(ctx).Warn().Err(err).Str("session", id).Msg("⚠️  Discarding reconciliation result")
		return nil, err
	}
	if engErr != nil {
		return nil, engErr
	}

	s.recordReconciliation(ctx, session, raw, result)
	return session, nil
}

// Update applies one field edit. Editing a field clears its unfilled flag.
// The edit wins over any operation still in flight: its result goes stale.
func (s *SessionStore) Update(id string, upd model.FieldUpdate) (*model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("session", id)
	}
	next, err := model.ApplyUpdate(e.session.Form, upd)
	if err != nil {
		return nil, err
	}
	e.session.Form = next
	e.generation++
	if _, flagged := e.session.UnfilledFields[upd.Field]; flagged {
		e.session.UnfilledFields[upd.Field] = false
	}
	if upd.Field == "whatsapp_message" {
		e.session.WhatsappInput = next.WhatsappMessage()
	}
	e.session.UpdatedAt = s.now()
	return cloneSession(e.session), nil
}

// SwitchKind moves the session to the other form kind with a fresh form and
// that kind's catalogs. The message and AI response are kept so the same
// extraction can be confirmed as the other kind.
func (s *SessionStore) SwitchKind(ctx context.Context, id string, kind model.FormKind) (*model.Session, error) {
	if kind != model.KindInventory && kind != model.KindRequest {
		return nil, apperrors.NewValidationError("kind", kind, "kind must be Inventory or Request")
	}
	_, gen, opCtx, cancel, err := s.begin(ctx, id)
	if err != nil {
		return nil, err
	}
	defer cancel()

	opts := s.catalogs.Load(opCtx, kind)
	return s.commit(id, gen, func(e *sessionEntry) {
		e.session.Kind = kind
		e.session.Form = model.InitialFormState(kind)
		e.session.Options = opts
		e.session.UnfilledFields = model.UnfilledFields{}
		e.session.Status = ""
	})
}

// Reset cancels any running operation and returns the session to its baseline
func (s *SessionStore) Reset(id string) (*model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("session", id)
	}
	e.stop()
	e.generation++
	resetSession(e)
	e.session.WhatsappInput = ""
	e.session.UpdatedAt = s.now()
	return cloneSession(e.session), nil
}

// Close cancels any running operation and forgets the session. An extraction
// that was never confirmed or submitted is recorded as discarded.
func (s *SessionStore) Close(ctx context.Context, id string) error {
	s.mu.Lock()
	e, ok := s.sessions[id]
	if ok {
		e.stop()
		e.generation++
		delete(s.sessions, id)
	}
	s.mu.Unlock()
	if !ok {
		return apperrors.NewNotFoundError("session", id)
	}

	if e.session.ExtractionID > 0 && !e.actioned {
		s.recordAction(ctx, e.session.ExtractionID, model.ActionDiscarded)
	}
	logging.FromContext(ctx).Info().Str("session", id).Msg("📍 Session closed")
	return nil
}

// Submit saves the session form to the backend. On success the form is reset.
func (s *SessionStore) Submit(ctx context.Context, id string) (*model.SubmitResult, error) {
	snap, gen, opCtx, cancel, err := s.begin(ctx, id)
	if err != nil {
		return nil, err
	}
	defer cancel()

	payload, err := BuildSubmission(snap.Form, snap.Options)
	if err != nil {
		if _, cerr := s.commit(id, gen, func(e *sessionEntry) { e.session.Status = apperrors.StatusMessage(err) }); cerr != nil {
			return nil, cerr
		}
		return nil, err
	}

	var backendResp map[string]any
	postErr := s.poster.Post(opCtx, submitPath(snap.Kind), payload, &backendResp)
	s.recordSubmission(ctx, snap, payload, postErr)

	if _, err := s.commit(id, gen, func(e *sessionEntry) {
		if postErr != nil {
			e.session.Status = StatusSaveFailed
			return
		}
		resetSession(e)
		e.session.Status = SavedStatus(snap.Kind)
	}); err != nil {
		return nil, err
	}
	if postErr != nil {
		logging.FromContext(ctx).Error().Err(postErr).Str("session", id).Msg("❌ Error saving data")
		return nil, postErr
	}

	if snap.ExtractionID > 0 {
		s.recordAction(ctx, snap.ExtractionID, model.ActionSubmitted)
	}
	logging.FromContext(ctx).Info().Str("session", id).Str("kind", string(snap.Kind)).Msg("✅ Listing saved")
	return &model.SubmitResult{
		Kind:    snap.Kind,
		Status:  SavedStatus(snap.Kind),
		Payload: payload,
		Backend: backendResp,
	}, nil
}

// Expire closes sessions idle for longer than maxIdle and returns how many
func (s *SessionStore) Expire(ctx context.Context, maxIdle time.Duration) int {
	cutoff := s.now().Add(-maxIdle)
	var expired []string
	s.mu.Lock()
	for id, e := range s.sessions {
		if e.session.UpdatedAt.Before(cutoff) {
			expired = append(expired, id)
		}
	}
	s.mu.Unlock()

	n := 0
	for _, id := range expired {
		if s.Close(ctx, id) == nil {
			n++
		}
	}
	return n
}

// begin starts a guarded operation: whatever is in flight is cancelled and
// the returned generation is the one the result must still match.
func (s *SessionStore) begin(ctx context.Context, id string) (model.Session, uint64, context.Context, context.CancelFunc, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[id]
	if !ok {
		return model.Session{}, 0, nil, nil, apperrors.NewNotFoundError("session", id)
	}
	e.stop()
	e.generation++
	opCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	return *cloneSession(e.session), e.generation, opCtx, cancel, nil
}

// commit applies fn if the session is still open at generation gen
func (s *SessionStore) commit(id string, gen uint64, fn func(e *sessionEntry)) (*model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, apperrors.ErrSessionClosed)
	}
	if e.generation != gen {
		return nil, fmt.Errorf("session %s: %w", id, apperrors.ErrStaleResult)
	}
	fn(e)
	e.cancel = nil
	e.session.UpdatedAt = s.now()
	return cloneSession(e.session), nil
}

func resetSession(e *sessionEntry) {
	e.session.Form = model.InitialFormState(e.session.Kind)
	e.session.UnfilledFields = model.UnfilledFields{}
	e.session.AIResponseRaw = ""
	e.session.ExtractionID = 0
	e.session.Status = ""
	e.actioned = false
}

func (s *SessionStore) recordReconciliation(ctx context.Context, session *model.Session, raw string, result *model.ReconciliationResult) {
	if s.audit == nil {
		return
	}
	entry := &model.ReconciliationLog{
		SessionID:      session.ID,
		Kind:           string(session.Kind),
		Raw:            raw,
		UnfilledFields: result.UnfilledFields,
		UnfilledCount:  result.UnfilledFields.Count(),
	}
	if err := s.audit.LogReconciliation(ctx, entry); err != nil {
		logging.FromContext(ctx).Warn().Err(err).Msg("⚠️  Failed to log reconciliation")
	}
	if session.ExtractionID > 0 {
		s.recordAction(ctx, session.ExtractionID, model.ActionConfirmed)
	}
}

func (s *SessionStore) recordSubmission(ctx context.Context, snap model.Session, payload model.Submission, postErr error) {
	if s.audit == nil {
		return
	}
	entry := &model.SubmissionLog{
		SessionID: snap.ID,
		Kind:      string(snap.Kind),
		Payload:   model.JSONB{V: payload},
		Succeeded: postErr == nil,
	}
	if postErr != nil {
		entry.Error = postErr.Error()
	}
	if err := s.audit.LogSubmission(ctx, entry); err != nil {
		logging.FromContext(ctx).Warn().Err(err).Msg("⚠️  Failed to log submission")
	}
}

func (s *SessionStore) recordAction(ctx context.Context, extractionID int64, action model.ExtractionAction) {
	if s.audit == nil {
		return
	}
	if err := s.audit.RecordAction(ctx, extractionID, action); err != nil {
		logging.FromContext(ctx).Warn().Err(err).Int64("extraction_id", extractionID).Str("action", string(action)).Msg("⚠️  Failed to record action")
	}
}

func cloneSession(s model.Session) *model.Session {
	cp := s
	cp.Form = s.Form.Clone()
	cp.UnfilledFields = make(model.UnfilledFields, len(s.UnfilledFields))
	for k, v := range s.UnfilledFields {
		cp.UnfilledFields[k] = v
	}
	return &cp
}
