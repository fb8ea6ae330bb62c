package service

import (
	"strings"
	"time"

	apperrors "intake/internal/errors"
	"intake/internal/model"
)

// Backend endpoints a finished form is saved to
const (
	inventoryAddPath = "/inventories/add"
	requestAddPath   = "/requests/add"
)

// Save outcome status lines
const (
	StatusSaveFailed = "Failed to save listing. Please try again."
)

// submissionDateLayout is what the backend expects for rent periods
const submissionDateLayout = "02-01-2006"

// dates arrive from date pickers, the AI, or already in backend form
var inputDateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04",
	submissionDateLayout,
	"02/01/2006",
}

// SavedStatus is the status line after a successful save
func SavedStatus(kind model.FormKind) string {
	return string(kind) + " listing saved successfully!"
}

// submitPath returns the endpoint for a kind
func submitPath(kind model.FormKind) string {
	if kind == model.KindRequest {
		return requestAddPath
	}
	return inventoryAddPath
}

// BuildSubmission maps a form onto the backend's add payload. Location and
// price are required.
func BuildSubmission(form model.FormState, opts model.DropdownOptions) (model.Submission, error) {
	switch form.Kind {
	case model.KindInventory:
		if form.Inventory == nil {
			break
		}
		return buildInventorySubmission(form.Inventory, opts)
	case model.KindRequest:
		if form.Request == nil {
			break
		}
		return buildRequestSubmission(form.Request, opts)
	}
	return model.Submission{}, apperrors.NewValidationError("kind", form.Kind, "form state has no active variant")
}

func buildInventorySubmission(f *model.InventoryForm, opts model.DropdownOptions) (model.Submission, error) {
	if f.Location == nil {
		return model.Submission{}, apperrors.NewValidationError("location", nil, "Location is required.")
	}
	if f.Price <= 0 {
		return model.Submission{}, apperrors.NewValidationError("price", f.Price, "Price is required.")
	}

	sub := model.Submission{
		Type:            "sell",
		DealType:        f.DealType,
		LocationID:      f.Location.ID,
		NoBedroom:       f.Bedrooms,
		NoBathroom:      f.Bathrooms,
		NoMasterBedroom: f.NoMasterBedroom,
		BUA:             f.BUA,
		Urgent:          f.IsUrgent,
		Direct:          f.IsDirect,
		Privacy:         "public",
		FurnishTypeID:   opts.FurnishTypeIndex(f.FurnishType),
		ReferenceID:     f.ReferenceID,
		Options:         optionValues(f.OptionsRequired),
		Message:         f.WhatsappMessage,
		Budget: model.Budget{
			Transaction: strings.ToLower(f.Transaction),
			Price:       f.Price,
			Currency:    f.Currency,
		},
	}
	if f.Type == model.TypeForRent {
		sub.Type = "for_rent"
		sub.Budget.Duration = rentDuration(f.Duration, f.DurationType, f.StartDate, f.EndDate)
	}
	if f.PropertyType != nil {
		sub.PropertyTypeID = f.PropertyType.ID
	}
	if f.ListedBy != nil {
		id := f.ListedBy.ID
		sub.UserID = &id
		sub.AgentAssignedID = &id
	}
	if f.Tag != nil {
		sub.TagID = f.Tag.ID
	}
	return sub, nil
}

func buildRequestSubmission(f *model.RequestForm, opts model.DropdownOptions) (model.Submission, error) {
	if len(f.Locations) == 0 {
		return model.Submission{}, apperrors.NewValidationError("locations", nil, "Location is required.")
	}
	if f.Price <= 0 {
		return model.Submission{}, apperrors.NewValidationError("price", f.Price, "Price is required.")
	}

	locationIDs := make([]int, len(f.Locations))
	for i, loc := range f.Locations {
		locationIDs[i] = loc.ID
	}
	tagIDs := make([]int, len(f.Tags))
	for i, tag := range f.Tags {
		tagIDs[i] = tag.ID
	}

	sub := model.Submission{
		Type:            "buy",
		DealType:        f.DealType,
		PropertyTypeID:  append([]int{}, f.PropertyTypesRequired...),
		LocationID:      locationIDs,
		NoBedroom:       f.Bedrooms,
		NoBathroom:      f.Bathrooms,
		NoMasterBedroom: f.NoMasterBedroom,
		BUA:             f.BUA,
		Urgent:          f.IsUrgent,
		Direct:          f.IsDirect,
		Privacy:         f.Privacy,
		TagID:           tagIDs,
		FurnishTypeID:   opts.FurnishTypeIndex(f.FurnishType),
		ReferenceID:     f.ReferenceID,
		Options:         optionValues(f.OptionsRequired),
		Message:         f.WhatsappMessage,
		Budget: model.Budget{
			Transaction: strings.ToLower(f.Transaction),
			Price:       f.Price,
			Currency:    f.Currency,
		},
	}
	if f.Type == model.TypeRent {
		sub.Type = "rent"
		sub.Budget.Duration = rentDuration(f.Duration, f.DurationType, f.StartDate, f.EndDate)
	}
	if f.ClientUser != nil {
		id := f.ClientUser.ID
		sub.UserID = &id
		sub.AgentAssignedID = &id
	}
	return sub, nil
}

func rentDuration(period int, durationType, start, end string) *model.Duration {
	return &model.Duration{
		Period:    period,
		Type:      durationType,
		StartDate: SubmissionDate(start),
		EndDate:   SubmissionDate(end),
	}
}

// SubmissionDate converts a form date to DD-MM-YYYY. Blank stays blank and
// anything unrecognised passes through unchanged.
func SubmissionDate(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	for _, layout := range inputDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(submissionDateLayout)
		}
	}
	return s
}

func optionValues(opts []model.Option) []string {
	if len(opts) == 0 {
		return nil
	}
	out := make([]string, len(opts))
	for i, o := range opts {
		out[i] = o.Value
	}
	return out
}
