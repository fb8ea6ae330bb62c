package utils

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"intake/internal/model"
)

// NormalizeName lowercases and trims a catalog name for comparison
func NormalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// MatchName reports whether query names the same entry as name,
// ignoring case and surrounding whitespace
func MatchName(query, name string) bool {
	q := NormalizeName(query)
	return q != "" && q == NormalizeName(name)
}

// ParseID returns the id carried by an id-like value: an integer number,
// a numeric string, or an object with an "id" key
func ParseID(v any) (int, bool) {
	switch t := v.(type) {
	case float64:
		if t != float64(int(t)) {
			return 0, false
		}
		return int(t), true
	case int:
		return t, true
	case string:
		id, err := strconv.Atoi(strings.TrimSpace(t))
		return id, err == nil
	case map[string]any:
		return ParseID(t["id"])
	}
	return 0, false
}

// FindByNameOrID resolves a raw extracted value against a catalog.
// Names win over ids, so a property type literally named "7" matches by name
// before id 7 is tried.
func FindByNameOrID[T model.Named](items []T, raw any) (T, bool) {
	var zero T
	if len(items) == 0 || raw == nil {
		return zero, false
	}

	var name string
	switch t := raw.(type) {
	case string:
		name = t
	case map[string]any:
		name, _ = t["name"].(string)
	}
	if name != "" {
		for _, item := range items {
			if MatchName(name, item.CatalogName()) {
				return item, true
			}
		}
	}

	if id, ok := ParseID(raw); ok {
		for _, item := range items {
			if item.CatalogID() == id {
				return item, true
			}
		}
	}
	return zero, false
}

// CapitalizeFirst uppercases the first letter and leaves the rest unchanged
func CapitalizeFirst(s string) string {
	if s == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:]
}
