package model

import "time"

// Session is one staff member's editing state: the message being worked on,
// the AI output, and the form it was reconciled into.
type Session struct {
	ID             string          `json:"id"`
	Kind           FormKind        `json:"kind"`
	Form           FormState       `json:"form"`
	Options        DropdownOptions `json:"dropdown_options"`
	WhatsappInput  string          `json:"whatsapp_input"`
	AIResponseRaw  string          `json:"ai_response_raw"`
	ExtractionID   int64           `json:"extraction_id,omitempty"`
	UnfilledFields UnfilledFields  `json:"unfilled_fields"`
	Status         string          `json:"status"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// OpenSessionRequest starts a session
type OpenSessionRequest struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// GenerateRequest optionally replaces the session's message before extraction
type GenerateRequest struct {
	Message *string `json:"message,omitempty"`
}

// ConfirmRequest optionally supplies the raw AI text to confirm
type ConfirmRequest struct {
	Raw string `json:"raw,omitempty"`
}

// SwitchKindRequest changes the form kind of a session
type SwitchKindRequest struct {
	Kind string `json:"kind" binding:"required"`
}
