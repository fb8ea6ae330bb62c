package model

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"

	apperrors "intake/internal/errors"
)

// UpdateOp is the kind of change a FieldUpdate applies
type UpdateOp string

const (
	OpSet    UpdateOp = "set"
	OpAdd    UpdateOp = "add"
	OpRemove UpdateOp = "remove"
)

// FieldUpdate is a single typed edit to a form field
type FieldUpdate struct {
	Field string   `json:"field" binding:"required"`
	Value any      `json:"value"`
	Op    UpdateOp `json:"op,omitempty"`
}

// ApplyUpdate returns a copy of state with the update applied.
// Changing "type" also resets "transaction" to the default for the new type.
func ApplyUpdate(state FormState, upd FieldUpdate) (FormState, error) {
	if !state.Valid() {
		return state, apperrors.NewValidationError("kind", state.Kind, "form state has no active variant")
	}
	next := state.Clone()

	op := upd.Op
	if op == "" {
		op = OpSet
	}

	if upd.Field == "type" {
		changed, err := applyTypeChange(next, upd.Value)
		if err != nil {
			return state, err
		}
		return changed, nil
	}

	if op == OpAdd || op == OpRemove {
		if err := applyListToggle(&next, upd.Field, upd.Value, op == OpAdd); err != nil {
			return state, err
		}
		return next, nil
	}
	if op != OpSet {
		return state, apperrors.NewValidationError("op", upd.Op, "op must be set, add or remove")
	}

	var target any = next.Inventory
	if next.Kind == KindRequest {
		target = next.Request
	}
	if err := setJSONField(target, upd.Field, upd.Value); err != nil {
		return state, err
	}
	return next, nil
}

func applyTypeChange(next FormState, value any) (FormState, error) {
	s, _ := value.(string)
	switch next.Kind {
	case KindInventory:
		switch s {
		case TypeForRent:
			next.Inventory.Transaction = TransactionMonthly
		case TypeForSale:
			next.Inventory.Transaction = TransactionCash
		default:
			return next, apperrors.NewValidationError("type", value, "type must be For Rent or For Sale")
		}
		next.Inventory.Type = s
	case KindRequest:
		switch s {
		case TypeRent:
			next.Request.Transaction = TransactionMonthly
		case TypeBuy:
			next.Request.Transaction = TransactionCash
		default:
			return next, apperrors.NewValidationError("type", value, "type must be Rent or Buy")
		}
		next.Request.Type = s
	}
	return next, nil
}

func applyListToggle(next *FormState, field string, value any, add bool) error {
	switch field {
	case "options_required":
		opt, ok := NormalizeOption(value)
		if !ok {
			return apperrors.NewValidationError(field, value, "option value is empty")
		}
		var options *[]Option
		if next.Kind == KindRequest {
			options = &next.Request.OptionsRequired
		} else {
			options = &next.Inventory.OptionsRequired
		}
		idx := slices.IndexFunc(*options, func(o Option) bool { return o.Value == opt.Value })
		if add && idx < 0 {
			*options = append(*options, opt)
		}
		if !add && idx >= 0 {
			*options = slices.Delete(*options, idx, idx+1)
		}
		return nil
	case "property_types_required":
		if next.Kind != KindRequest {
			return apperrors.NewValidationError(field, value, "field only exists on request forms")
		}
		id, err := toID(value)
		if err != nil {
			return apperrors.NewValidationError(field, value, err.Error())
		}
		ids := &next.Request.PropertyTypesRequired
		idx := slices.Index(*ids, id)
		if add && idx < 0 {
			*ids = append(*ids, id)
		}
		if !add && idx >= 0 {
			*ids = slices.Delete(*ids, idx, idx+1)
		}
		return nil
	}
	return apperrors.NewValidationError(field, value, "field is not a list")
}

// setJSONField assigns value to the struct field whose json tag is name,
// letting encoding/json do the type checking.
func setJSONField(target any, name string, value any) error {
	raw, err := json.Marshal(target)
	if err != nil {
		return fmt.Errorf("failed to encode form: %w", err)
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return fmt.Errorf("failed to decode form: %w", err)
	}
	if _, ok := fields[name]; !ok {
		return apperrors.NewValidationError(name, value, "unknown field")
	}

	encoded, err := json.Marshal(value)
	if err != nil {
		return apperrors.NewValidationError(name, value, err.Error())
	}
	patch := map[string]json.RawMessage{name: encoded}
	patchBytes, _ := json.Marshal(patch)
	if err := json.Unmarshal(patchBytes, target); err != nil {
		return apperrors.NewValidationError(name, value, "value has the wrong type")
	}
	return nil
}

func toID(v any) (int, error) {
	switch t := v.(type) {
	case int:
		return t, nil
	case float64:
		return int(t), nil
	case string:
		return strconv.Atoi(t)
	case map[string]any:
		return toID(t["id"])
	}
	return 0, fmt.Errorf("value %v is not an id", v)
}
