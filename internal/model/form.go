package model

import (
	"fmt"
	"strings"
	"time"
)

// FormKind selects which record type is being edited
type FormKind string

const (
	KindInventory FormKind = "Inventory"
	KindRequest   FormKind = "Request"
)

// ParseFormKind accepts "inventory"/"request" in any case
func ParseFormKind(s string) (FormKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "inventory":
		return KindInventory, nil
	case "request":
		return KindRequest, nil
	default:
		return "", fmt.Errorf("unknown form kind %q", s)
	}
}

// Identity is the lowercase name used by the backend (tags identity, extraction model)
func (k FormKind) Identity() string {
	return strings.ToLower(string(k))
}

// Form type values
const (
	TypeForRent = "For Rent"
	TypeForSale = "For Sale"
	TypeRent    = "Rent"
	TypeBuy     = "Buy"
)

// Deal type vocabulary
const (
	DealSideBySide = "Side-by-Side"
	DealFiftyFifty = "50:50"
)

// Transaction defaults by type
const (
	TransactionMonthly = "Monthly"
	TransactionCash    = "Cash"
)

// TimestampLayout matches the en-US short date-time shown on forms
const TimestampLayout = "01/02/2006, 03:04 PM"

// InventoryForm is a property listing being edited
type InventoryForm struct {
	Type            string        `json:"type"`
	PropertyType    *PropertyType `json:"property_type"`
	FurnishType     string        `json:"furnish_type"`
	Price           float64       `json:"price"`
	Currency        string        `json:"currency"`
	Transaction     string        `json:"transaction"`
	Duration        int           `json:"duration"`
	DurationType    string        `json:"duration_type"`
	StartDate       string        `json:"start_date"`
	EndDate         string        `json:"end_date"`
	Bedrooms        int           `json:"bedrooms"`
	Bathrooms       int           `json:"bathrooms"`
	NoMasterBedroom int           `json:"no_master_bedroom"`
	Location        *Location     `json:"location"`
	ListedBy        *User         `json:"listed_by"`
	Tag             *Tag          `json:"tag"`
	DealType        string        `json:"deal_type"`
	ReferenceID     string        `json:"reference_id"`
	WhatsappMessage string        `json:"whatsapp_message"`
	IsUrgent        bool          `json:"is_urgent"`
	IsDirect        bool          `json:"is_direct"`
	BUA             float64       `json:"bua"`
	OptionsRequired []Option      `json:"options_required"`
	Timestamp       string        `json:"timestamp"`
	ImageURLs       []string      `json:"image_urls"`
	ClientName      string        `json:"client_name"`
	ClientPhone     string        `json:"client_phone"`
	ClientEmail     string        `json:"client_email"`
	Source          string        `json:"source"`
	Privacy         string        `json:"privacy"`
}

// RequestForm is a client demand being edited
type RequestForm struct {
	Type                  string     `json:"type"`
	Status                string     `json:"status"`
	Privacy               string     `json:"privacy"`
	Price                 float64    `json:"price"`
	Currency              string     `json:"currency"`
	Transaction           string     `json:"transaction"`
	Duration              int        `json:"duration"`
	DurationType          string     `json:"duration_type"`
	StartDate             string     `json:"start_date"`
	EndDate               string     `json:"end_date"`
	Bedrooms              int        `json:"bedrooms"`
	Bathrooms             int        `json:"bathrooms"`
	NoMasterBedroom       int        `json:"no_master_bedroom"`
	FurnishType           string     `json:"furnish_type"`
	DealType              string     `json:"deal_type"`
	ReferenceID           string     `json:"reference_id"`
	Locations             []Location `json:"locations"`
	PropertyTypesRequired []int      `json:"property_types_required"`
	OptionsRequired       []Option   `json:"options_required"`
	ClientUser            *User      `json:"client_user"`
	AssignedAgent         string     `json:"assigned_agent"`
	Owner                 string     `json:"owner"`
	Tags                  []Tag      `json:"tag"`
	IsUrgent              bool       `json:"is_urgent"`
	IsDirect              bool       `json:"is_direct"`
	BUA                   float64    `json:"bua"`
	WhatsappMessage       string     `json:"whatsapp_message"`
	ClientName            string     `json:"client_name"`
	ClientPhone           string     `json:"client_phone"`
	ClientEmail           string     `json:"client_email"`
	Source                string     `json:"source"`
}

// FormState holds exactly one of the two form variants, selected by Kind
type FormState struct {
	Kind      FormKind       `json:"kind"`
	Inventory *InventoryForm `json:"inventory,omitempty"`
	Request   *RequestForm   `json:"request,omitempty"`
}

// NewInventoryForm returns the inventory baseline
func NewInventoryForm(now time.Time) *InventoryForm {
	return &InventoryForm{
		Type:            TypeForRent,
		Currency:        "EGP",
		Transaction:     TransactionMonthly,
		Duration:        12,
		DurationType:    "Months",
		Bedrooms:        1,
		Bathrooms:       1,
		NoMasterBedroom: 1,
		DealType:        DealSideBySide,
		BUA:             1,
		OptionsRequired: []Option{},
		Timestamp:       now.Format(TimestampLayout),
		ImageURLs:       []string{},
		Source:          "ADMIN",
		Privacy:         "Public",
	}
}

// NewRequestForm returns the request baseline
func NewRequestForm() *RequestForm {
	return &RequestForm{
		Type:                  TypeRent,
		Status:                "Pending",
		Privacy:               "Public",
		Currency:              "EGP",
		Transaction:           TransactionMonthly,
		Duration:              12,
		DurationType:          "Months",
		Bedrooms:              1,
		Bathrooms:             1,
		NoMasterBedroom:       1,
		DealType:              DealSideBySide,
		Locations:             []Location{},
		PropertyTypesRequired: []int{},
		OptionsRequired:       []Option{},
		AssignedAgent:         "None",
		Owner:                 "None",
		Tags:                  []Tag{},
		BUA:                   1,
		Source:                "ADMIN",
	}
}

// InitialFormState is the default baseline for every field of the given kind
func InitialFormState(kind FormKind) FormState {
	if kind == KindRequest {
		return FormState{Kind: KindRequest, Request: NewRequestForm()}
	}
	return FormState{Kind: KindInventory, Inventory: NewInventoryForm(time.Now())}
}

// Clone returns a deep copy so callers can mutate without touching the original
func (f FormState) Clone() FormState {
	out := FormState{Kind: f.Kind}
	if f.Inventory != nil {
		inv := *f.Inventory
		inv.OptionsRequired = append([]Option{}, f.Inventory.OptionsRequired...)
		inv.ImageURLs = append([]string{}, f.Inventory.ImageURLs...)
		if f.Inventory.PropertyType != nil {
			pt := *f.Inventory.PropertyType
			inv.PropertyType = &pt
		}
		if f.Inventory.Location != nil {
			loc := *f.Inventory.Location
			inv.Location = &loc
		}
		if f.Inventory.Tag != nil {
			tag := *f.Inventory.Tag
			inv.Tag = &tag
		}
		if f.Inventory.ListedBy != nil {
			u := *f.Inventory.ListedBy
			inv.ListedBy = &u
		}
		out.Inventory = &inv
	}
	if f.Request != nil {
		req := *f.Request
		req.Locations = append([]Location{}, f.Request.Locations...)
		req.PropertyTypesRequired = append([]int{}, f.Request.PropertyTypesRequired...)
		req.OptionsRequired = append([]Option{}, f.Request.OptionsRequired...)
		req.Tags = append([]Tag{}, f.Request.Tags...)
		if f.Request.ClientUser != nil {
			u := *f.Request.ClientUser
			req.ClientUser = &u
		}
		out.Request = &req
	}
	return out
}

// Valid reports whether the variant matching Kind is present
func (f FormState) Valid() bool {
	switch f.Kind {
	case KindInventory:
		return f.Inventory != nil
	case KindRequest:
		return f.Request != nil
	}
	return false
}

// WhatsappMessage returns the message text of whichever variant is active
func (f FormState) WhatsappMessage() string {
	if f.Kind == KindRequest && f.Request != nil {
		return f.Request.WhatsappMessage
	}
	if f.Inventory != nil {
		return f.Inventory.WhatsappMessage
	}
	return ""
}

// SetWhatsappMessage sets the message text of whichever variant is active
func (f FormState) SetWhatsappMessage(msg string) {
	switch {
	case f.Kind == KindRequest && f.Request != nil:
		f.Request.WhatsappMessage = msg
	case f.Inventory != nil:
		f.Inventory.WhatsappMessage = msg
	}
}
