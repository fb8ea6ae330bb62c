package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// OptionSource records which raw shape an option was normalized from
type OptionSource string

const (
	StringOption OptionSource = "string" // "Garden"
	ObjectOption OptionSource = "object" // {"id": 3, "name": "Garden"}
	PairOption   OptionSource = "pair"   // {"value": "garden", "label": "Garden"}
)

// Option is the canonical shape of a selectable option
type Option struct {
	Value  string       `json:"value" yaml:"value"`
	Label  string       `json:"label" yaml:"label"`
	Source OptionSource `json:"source" yaml:"source"`
}

// titleCase builds a new caser per call; a cases.Caser is not safe for concurrent use
func titleCase(s string) string {
	return cases.Title(language.English).String(s)
}

// NormalizeOption converts a string, {id,name} or {value,label} into an Option.
// Blank or unrecognized inputs return false.
func NormalizeOption(raw any) (Option, bool) {
	switch v := raw.(type) {
	case Option:
		return v, v.Value != ""
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return Option{}, false
		}
		return Option{Value: s, Label: titleCase(s), Source: StringOption}, true
	case float64:
		s := strconv.FormatFloat(v, 'f', -1, 64)
		return Option{Value: s, Label: s, Source: StringOption}, true
	case int:
		return Option{Value: idString(v), Label: idString(v), Source: StringOption}, true
	case map[string]any:
		if value, ok := v["value"]; ok {
			val := scalarString(value)
			if val == "" {
				return Option{}, false
			}
			label := scalarString(v["label"])
			if label == "" {
				label = titleCase(val)
			}
			return Option{Value: val, Label: label, Source: PairOption}, true
		}
		name := strings.TrimSpace(scalarString(v["name"]))
		id := scalarString(v["id"])
		if name == "" && id == "" {
			return Option{}, false
		}
		if id == "" {
			id = name
		}
		if name == "" {
			name = id
		}
		return Option{Value: id, Label: name, Source: ObjectOption}, true
	}
	return Option{}, false
}

// NormalizeOptions accepts a scalar or an array and returns the valid options in order
func NormalizeOptions(raw any) []Option {
	items, ok := raw.([]any)
	if !ok {
		items = []any{raw}
	}
	out := make([]Option, 0, len(items))
	for _, item := range items {
		if opt, ok := NormalizeOption(item); ok {
			out = append(out, opt)
		}
	}
	return out
}

// UnmarshalJSON lets clients send options in any of the three raw shapes
func (o *Option) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if m, ok := raw.(map[string]any); ok {
		if src, ok := m["source"].(string); ok && src != "" {
			o.Value = scalarString(m["value"])
			o.Label = scalarString(m["label"])
			o.Source = OptionSource(src)
			return nil
		}
	}
	opt, ok := NormalizeOption(raw)
	if !ok {
		return fmt.Errorf("invalid option: %s", string(data))
	}
	*o = opt
	return nil
}

func scalarString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case bool:
		return strconv.FormatBool(t)
	}
	return fmt.Sprint(v)
}
