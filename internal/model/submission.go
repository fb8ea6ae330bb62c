package model

import "time"

// Duration is the rent period block of a budget
type Duration struct {
	Period    int    `json:"period"`
	Type      string `json:"type"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// Budget is the price block of a submission
type Budget struct {
	Transaction string    `json:"transaction"`
	Price       float64   `json:"price"`
	Currency    string    `json:"currency"`
	Duration    *Duration `json:"duration,omitempty"`
}

// Submission is the payload the backend expects for /inventories/add and /requests/add.
// Id fields are a single id for inventories and an id list for requests.
type Submission struct {
	Type            string   `json:"type"` // for_rent | sell | rent | buy
	DealType        string   `json:"deal_type"`
	PropertyTypeID  any      `json:"property_type_id"`
	LocationID      any      `json:"location_id"`
	NoBedroom       int      `json:"no_bedroom"`
	NoBathroom      int      `json:"no_bathroom"`
	NoMasterBedroom int      `json:"no_master_bedroom"`
	BUA             float64  `json:"bua"`
	UserID          *int     `json:"user_id"`
	AgentAssignedID *int     `json:"agent_assigned_id"`
	Urgent          bool     `json:"urgent"`
	Direct          bool     `json:"direct"`
	Privacy         string   `json:"privacy"`
	TagID           any      `json:"tag_id"`
	FurnishTypeID   int      `json:"furnish_type_id"`
	ReferenceID     string   `json:"reference_id,omitempty"`
	Options         []string `json:"options,omitempty"`
	Message         string   `json:"message,omitempty"`
	Budget          Budget   `json:"budget"`
}

// SubmitResult is returned after a successful save
type SubmitResult struct {
	Kind    FormKind       `json:"kind"`
	Status  string         `json:"status"`
	Payload Submission     `json:"payload"`
	Backend map[string]any `json:"backend,omitempty"`
}

// SubmissionLog is one stored save attempt
type SubmissionLog struct {
	ID        int64     `json:"id" db:"id"`
	SessionID string    `json:"session_id,omitempty" db:"session_id"`
	Kind      string    `json:"kind" db:"kind"`
	Payload   JSONB     `json:"payload" db:"payload"`
	Succeeded bool      `json:"succeeded" db:"succeeded"`
	Error     string    `json:"error,omitempty" db:"error"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
