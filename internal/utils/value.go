package utils

import (
	"math"
	"strconv"
	"strings"
)

// IsFilled reports whether an extracted JSON value carries usable data:
// not null, not blank, not zero, not an empty array or object.
func IsFilled(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(t) != ""
	case float64:
		return t != 0 && !math.IsNaN(t)
	case int:
		return t != 0
	case bool:
		return true
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	}
	return true
}

// IsFilledCount is IsFilled for count fields, where an explicit 0 is a real value
func IsFilledCount(v any) bool {
	if n, ok := AsFloat(v); ok {
		return n >= 0
	}
	return false
}

// AsString converts a scalar to a trimmed string
func AsString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(t)
		return s, s != ""
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), true
	case bool:
		return strconv.FormatBool(t), true
	}
	return "", false
}

// AsFloat converts a number or numeric string ("2,000,000" included) to float64
func AsFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, !math.IsNaN(t)
	case int:
		return float64(t), true
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(t), ",", "")
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	}
	return 0, false
}

// AsInt converts a number or numeric string to int, truncating fractions
func AsInt(v any) (int, bool) {
	f, ok := AsFloat(v)
	if !ok {
		return 0, false
	}
	return int(f), true
}

// AsBool accepts JSON booleans and the strings/numbers models emit for them
func AsBool(v any) (bool, bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case float64:
		return t != 0, true
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "yes", "y", "1":
			return true, true
		case "false", "no", "n", "0":
			return false, true
		}
	}
	return false, false
}

// AsSlice wraps a scalar in a one-element slice; nil yields nil
func AsSlice(v any) []any {
	switch t := v.(type) {
	case nil:
		return nil
	case []any:
		return t
	}
	return []any{v}
}
