package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "intake/internal/errors"
	"intake/internal/model"
)

func TestBuildRequestSubmission(t *testing.T) {
	form := model.InitialFormState(model.KindRequest)
	req := form.Request
	req.Type = model.TypeBuy
	req.Transaction = model.TransactionCash
	req.Price = 3000000
	req.Locations = []model.Location{{ID: 12, Name: "Maadi"}, {ID: 40, Name: "Zamalek"}}
	req.PropertyTypesRequired = []int{3, 7}
	req.Tags = []model.Tag{{ID: 8, Name: "Urgent Buyer"}}
	req.ClientUser = &model.User{ID: 2, Name: "Jane Smith"}
	req.FurnishType = "Unfurnished"
	req.Privacy = "Private"

	sub, err := BuildSubmission(form, model.DefaultDropdownOptions())
	require.NoError(t, err)

	assert.Equal(t, "buy", sub.Type)
	assert.Equal(t, []int{12, 40}, sub.LocationID)
	assert.Equal(t, []int{3, 7}, sub.PropertyTypeID)
	assert.Equal(t, []int{8}, sub.TagID)
	require.NotNil(t, sub.UserID)
	assert.Equal(t, 2, *sub.UserID)
	assert.Equal(t, 2, *sub.AgentAssignedID)
	assert.Equal(t, 1, sub.FurnishTypeID)
	assert.Equal(t, "Private", sub.Privacy)
	assert.Equal(t, "cash", sub.Budget.Transaction)
	assert.Nil(t, sub.Budget.Duration, "duration is only sent for rentals")
}

func TestBuildInventorySubmission(t *testing.T) {
	form := model.InitialFormState(model.KindInventory)
	inv := form.Inventory
	inv.Type = model.TypeForSale
	inv.Transaction = "Installment"
	inv.Price = 5000000
	inv.Location = &model.Location{ID: 40, Name: "Zamalek"}
	inv.Tag = &model.Tag{ID: 6, Name: "Sea View"}
	inv.FurnishType = "Semi"
	inv.OptionsRequired = []model.Option{{Value: "garden", Label: "Garden"}}

	sub, err := BuildSubmission(form, model.DefaultDropdownOptions())
	require.NoError(t, err)

	assert.Equal(t, "sell", sub.Type)
	assert.Equal(t, "public", sub.Privacy)
	assert.Equal(t, 6, sub.TagID)
	assert.Nil(t, sub.PropertyTypeID)
	assert.Nil(t, sub.UserID)
	assert.Equal(t, -1, sub.FurnishTypeID)
	assert.Equal(t, []string{"garden"}, sub.Options)
	assert.Equal(t, "installment", sub.Budget.Transaction)
	assert.Nil(t, sub.Budget.Duration)
}

func TestBuildSubmissionRequiresLocationAndPrice(t *testing.T) {
	tests := []struct {
		name  string
		form  func() model.FormState
		field string
	}{
		{
			name:  "inventory without location",
			form:  func() model.FormState { f := model.InitialFormState(model.KindInventory); f.Inventory.Price = 10; return f },
			field: "location",
		},
		{
			name: "inventory without price",
			form: func() model.FormState {
				f := model.InitialFormState(model.KindInventory)
				f.Inventory.Location = &model.Location{ID: 1}
				return f
			},
			field: "price",
		},
		{
			name:  "request without locations",
			form:  func() model.FormState { f := model.InitialFormState(model.KindRequest); f.Request.Price = 10; return f },
			field: "locations",
		},
		{
			name:  "no active variant",
			form:  func() model.FormState { return model.FormState{Kind: model.KindRequest} },
			field: "kind",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildSubmission(tt.form(), model.DefaultDropdownOptions())
			require.ErrorIs(t, err, apperrors.ErrInvalidInput)
			var ve *apperrors.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestSubmissionDate(t *testing.T) {
	tests := map[string]string{
		"":                     "",
		"2025-03-09":           "09-03-2025",
		"2025-03-09T10:00:00Z": "09-03-2025",
		"09-03-2025":           "09-03-2025",
		"next month":           "next month",
	}
	for in, want := range tests {
		assert.Equal(t, want, SubmissionDate(in), in)
	}
}
