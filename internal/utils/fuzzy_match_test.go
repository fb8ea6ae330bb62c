package utils

import (
	"testing"

	"intake/internal/model"

	"github.com/stretchr/testify/assert"
)

func TestFindByNameOrID(t *testing.T) {
	catalog := []model.PropertyType{
		{ID: 7, Name: "Apartment"},
		{ID: 3, Name: "Villa"},
		{ID: 9, Name: "3"},
	}

	tests := []struct {
		name   string
		raw    any
		wantID int
		found  bool
	}{
		{"lowercase name", "apartment", 7, true},
		{"padded uppercase", "APARTMENT ", 7, true},
		{"numeric string id", "7", 7, true},
		{"numeric id", float64(7), 7, true},
		{"object with name", map[string]any{"id": float64(1), "name": "villa"}, 3, true},
		{"object with id only", map[string]any{"id": float64(3)}, 3, true},
		{"name wins over id", "3", 9, true},
		{"absent", "Penthouse", 0, false},
		{"blank", "  ", 0, false},
		{"nil", nil, 0, false},
		{"fractional id", 7.5, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FindByNameOrID(catalog, tt.raw)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.wantID, got.ID)
		})
	}

	_, ok := FindByNameOrID([]model.Tag{}, "Hot")
	assert.False(t, ok, "empty catalog yields no match")
}

func TestCapitalizeFirst(t *testing.T) {
	assert.Equal(t, "Monthly", CapitalizeFirst("monthly"))
	assert.Equal(t, "Semi furnished", CapitalizeFirst("semi furnished"))
	assert.Equal(t, "Égypte", CapitalizeFirst("égypte"))
	assert.Equal(t, "", CapitalizeFirst(""))
}

func TestIsFilled(t *testing.T) {
	tests := []struct {
		name string
		v    any
		want bool
	}{
		{"nil", nil, false},
		{"blank", "  ", false},
		{"zero", float64(0), false},
		{"empty array", []any{}, false},
		{"empty object", map[string]any{}, false},
		{"false bool", false, true},
		{"text", "Maadi", true},
		{"number", float64(4), true},
		{"array", []any{"a"}, true},
		{"object", map[string]any{"name": "x"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsFilled(tt.v))
		})
	}

	assert.True(t, IsFilledCount(float64(0)))
	assert.True(t, IsFilledCount("2"))
	assert.False(t, IsFilledCount(float64(-1)))
	assert.False(t, IsFilledCount("many"))
}

func TestCoercions(t *testing.T) {
	f, ok := AsFloat("2,000,000")
	assert.True(t, ok)
	assert.Equal(t, float64(2000000), f)

	n, ok := AsInt(float64(4))
	assert.True(t, ok)
	assert.Equal(t, 4, n)

	_, ok = AsInt("four")
	assert.False(t, ok)

	s, ok := AsString(float64(1234))
	assert.True(t, ok)
	assert.Equal(t, "1234", s)

	b, ok := AsBool("Yes")
	assert.True(t, ok)
	assert.True(t, b)

	_, ok = AsBool("maybe")
	assert.False(t, ok)

	assert.Nil(t, AsSlice(nil))
	assert.Equal(t, []any{"Studio"}, AsSlice("Studio"))
	assert.Equal(t, []any{"a", "b"}, AsSlice([]any{"a", "b"}))
}
