package model

import "strconv"

// PropertyType represents a property type from the reference catalog
type PropertyType struct {
	ID   int    `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
	Icon string `json:"icon,omitempty" yaml:"icon,omitempty"`
}

// TagType is the typed label attached to a tag
type TagType struct {
	Value   string `json:"value" yaml:"value"`
	Display string `json:"display" yaml:"display"`
}

// Tag represents a listing tag
type Tag struct {
	ID   int     `json:"id" yaml:"id"`
	Name string  `json:"name" yaml:"name"`
	Type TagType `json:"type" yaml:"type"`
	Icon string  `json:"icon,omitempty" yaml:"icon,omitempty"`
}

// Tag group names returned by the tags endpoint
const (
	TagGroupRent = "Rent"
	TagGroupSell = "Sell"
	TagGroupBuy  = "Buy"
)

// TagGroup groups tags by transaction kind (Rent, Sell, Buy)
type TagGroup struct {
	Name string `json:"name" yaml:"name"`
	Tags []Tag  `json:"tags" yaml:"tags"`
}

// Location represents a place resolved from the catalog or the autocomplete API
type Location struct {
	ID   int    `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// User represents a brokerage user (agent or client)
type User struct {
	ID          int     `json:"id" yaml:"id"`
	Name        string  `json:"name" yaml:"name"`
	Email       *string `json:"email,omitempty" yaml:"email,omitempty"`
	Phone       string  `json:"phone,omitempty" yaml:"phone,omitempty"`
	Username    *string `json:"username,omitempty" yaml:"username,omitempty"`
	IsCorporate int     `json:"is_corporate,omitempty" yaml:"is_corporate,omitempty"`
	IsAdmin     bool    `json:"is_admin,omitempty" yaml:"is_admin,omitempty"`
	Whatsapp    *string `json:"whatsapp,omitempty" yaml:"whatsapp,omitempty"`
	CreatedAt   string  `json:"created_at,omitempty" yaml:"created_at,omitempty"`
	UpdatedAt   string  `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
}

// CatalogID implements Named
func (p PropertyType) CatalogID() int { return p.ID }

// CatalogName implements Named
func (p PropertyType) CatalogName() string { return p.Name }

// CatalogID implements Named
func (t Tag) CatalogID() int { return t.ID }

// CatalogName implements Named
func (t Tag) CatalogName() string { return t.Name }

// CatalogID implements Named
func (l Location) CatalogID() int { return l.ID }

// CatalogName implements Named
func (l Location) CatalogName() string { return l.Name }

// CatalogID implements Named
func (u User) CatalogID() int { return u.ID }

// CatalogName implements Named
func (u User) CatalogName() string { return u.Name }

// Named is implemented by every catalog entry that can be matched by name or id
type Named interface {
	CatalogID() int
	CatalogName() string
}

// Catalogs holds the reference lists used to resolve extracted names to ids.
// Any list may be empty while it is still loading.
type Catalogs struct {
	PropertyTypes []PropertyType `json:"property_types" yaml:"property_types"`
	Tags          []TagGroup     `json:"tags" yaml:"tags"`
	Locations     []Location     `json:"locations" yaml:"locations"`
	Users         []User         `json:"users" yaml:"users"`
}

// TagsFor returns the tags of the named group, or nil when the group is absent
func (c *Catalogs) TagsFor(group string) []Tag {
	if c == nil {
		return nil
	}
	for _, g := range c.Tags {
		if g.Name == group {
			return g.Tags
		}
	}
	return nil
}

// DropdownOptions is everything a form renders its selects against: the
// fetched catalogs plus fixed vocabularies.
type DropdownOptions struct {
	Catalogs `yaml:",inline"`

	Types                   []string `json:"types" yaml:"types"`
	FurnishTypes            []string `json:"furnish_types" yaml:"furnish_types"`
	Currencies              []string `json:"currencies" yaml:"currencies"`
	DurationTypes           []string `json:"duration_types" yaml:"duration_types"`
	DealTypes               []string `json:"deal_types" yaml:"deal_types"`
	ForRentTransactionTypes []string `json:"for_rent_transaction_types" yaml:"for_rent_transaction_types"`
	ForSaleTransactionTypes []string `json:"for_sale_transaction_types" yaml:"for_sale_transaction_types"`
	RequestStatuses         []string `json:"request_statuses" yaml:"request_statuses"`
	RequestPrivacy          []string `json:"request_privacy" yaml:"request_privacy"`
	AssignmentUsers         []string `json:"assignment_users" yaml:"assignment_users"`
	RequestOptions          []Option `json:"request_options" yaml:"request_options"`

	// Error is set when live catalogs could not be fetched and the fixed
	// fallback data is being served instead.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

// DefaultDropdownOptions returns the fixed vocabularies with empty catalogs
func DefaultDropdownOptions() DropdownOptions {
	return DropdownOptions{
		Catalogs: Catalogs{
			PropertyTypes: []PropertyType{},
			Tags:          []TagGroup{},
			Locations:     []Location{},
			Users:         []User{},
		},
		Types:                   []string{TypeForRent, TypeForSale},
		FurnishTypes:            []string{"Furnished", "Unfurnished"},
		Currencies:              []string{"EGP", "USD"},
		DurationTypes:           []string{"Months", "Years"},
		DealTypes:               []string{DealSideBySide, DealFiftyFifty},
		ForRentTransactionTypes: []string{"Monthly", "Yearly"},
		ForSaleTransactionTypes: []string{"Cash", "Installment"},
		RequestStatuses:         []string{"Pending", "Active", "Closed"},
		RequestPrivacy:          []string{"Public", "Private"},
		AssignmentUsers:         []string{"None", "Agent A", "Agent B", "Owner C"},
		RequestOptions:          []Option{},
	}
}

// FallbackUsers is served when the users endpoint is unreachable
func FallbackUsers() []User {
	names := []string{"User 1 (Admin)", "User 2 (Agent)", "User 3 (Associate)", "John Doe", "Jane Smith", "The Listing Team"}
	users := make([]User, len(names))
	for i, name := range names {
		users[i] = User{ID: i, Name: name}
	}
	return users
}

// ApplyPatch overwrites the option vocabulary with the one carried by a
// reconciliation result.
func (d *DropdownOptions) ApplyPatch(patch *CatalogPatch) {
	if patch == nil || patch.RequestOptions == nil {
		return
	}
	d.RequestOptions = append([]Option(nil), patch.RequestOptions...)
}

// FurnishTypeIndex returns the index of the furnish type in the vocabulary, or -1
func (d *DropdownOptions) FurnishTypeIndex(furnishType string) int {
	for i, f := range d.FurnishTypes {
		if f == furnishType {
			return i
		}
	}
	return -1
}

// idString formats a catalog id the way option values carry it
func idString(id int) string {
	return strconv.Itoa(id)
}
