package model

import "time"

// CatalogPatch carries catalog changes derived from an extraction
type CatalogPatch struct {
	RequestOptions []Option `json:"request_options"`
}

// UnfilledFields maps a form field name to true when the AI left it unfilled
type UnfilledFields map[string]bool

// Count returns how many fields are flagged
func (u UnfilledFields) Count() int {
	n := 0
	for _, v := range u {
		if v {
			n++
		}
	}
	return n
}

// ReconciliationResult is the output of one reconciliation
type ReconciliationResult struct {
	Form           FormState      `json:"form"`
	UnfilledFields UnfilledFields `json:"unfilled_fields"`
	CatalogPatch   *CatalogPatch  `json:"catalog_patch,omitempty"`
}

// ExtractRequest asks a provider to extract structured data from a message
type ExtractRequest struct {
	Message string `json:"message" binding:"required"`
	Kind    string `json:"kind"`
}

// ExtractResponse is the raw extraction text plus its parsed form
type ExtractResponse struct {
	ID       int64          `json:"id,omitempty"`
	Raw      string         `json:"raw"`
	Data     map[string]any `json:"data,omitempty"`
	Provider string         `json:"provider"`
	Status   string         `json:"status"`
}

// ReconcileRequest is a stateless engine call
type ReconcileRequest struct {
	Raw      string     `json:"raw" binding:"required"`
	Kind     string     `json:"kind"`
	Catalogs *Catalogs  `json:"catalogs,omitempty"`
	Current  *FormState `json:"current,omitempty"`
	Offline  bool       `json:"offline,omitempty"`
}

// ExtractionLog is a stored extraction, optionally with an embedding of the message
type ExtractionLog struct {
	ID        int64     `json:"id" db:"id"`
	Kind      string    `json:"kind" db:"kind"`
	Provider  string    `json:"provider" db:"provider"`
	Message   string    `json:"message" db:"message"`
	Response  string    `json:"response" db:"response"`
	Action    *string   `json:"action,omitempty" db:"action"`
	Distance  *float64  `json:"distance,omitempty" db:"distance"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// ExtractionAction is the outcome staff recorded for an extraction
type ExtractionAction string

const (
	ActionConfirmed ExtractionAction = "confirmed"
	ActionSubmitted ExtractionAction = "submitted"
	ActionDiscarded ExtractionAction = "discarded"
)

// Valid reports whether the action is one of the known outcomes
func (a ExtractionAction) Valid() bool {
	switch a {
	case ActionConfirmed, ActionSubmitted, ActionDiscarded:
		return true
	}
	return false
}

// FeedbackRequest records what happened to an extraction
type FeedbackRequest struct {
	Action ExtractionAction `json:"action" binding:"required"`
}

// ReconciliationLog is one stored engine run
type ReconciliationLog struct {
	ID             int64          `json:"id" db:"id"`
	SessionID      string         `json:"session_id,omitempty" db:"session_id"`
	Kind           string         `json:"kind" db:"kind"`
	Raw            string         `json:"raw" db:"raw"`
	UnfilledFields UnfilledFields `json:"unfilled_fields" db:"unfilled_fields"`
	UnfilledCount  int            `json:"unfilled_count" db:"unfilled_count"`
	CreatedAt      time.Time      `json:"created_at" db:"created_at"`
}

// EmbeddingItem is an embedding to store for an extraction
type EmbeddingItem struct {
	ExtractionID int64     `json:"extraction_id"`
	Embedding    []float32 `json:"embedding"`
}

// EmbeddingBackfillResponse reports a backfill run
type EmbeddingBackfillResponse struct {
	Success int      `json:"success"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors,omitempty"`
}
