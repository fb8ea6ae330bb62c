package utils

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	apperrors "intake/internal/errors"
)

var (
	fencedJSONRe    = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.+?)\\s*```")
	trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)
	unquotedKeyRe   = regexp.MustCompile(`([{,]\s*)([A-Za-z_][\w]*)(\s*:)`)
	controlCharRe   = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F]`)
)

// ParseAIJSON decodes JSON out of model output. It accepts:
//   - plain JSON
//   - JSON inside a markdown fence
//   - JSON surrounded by prose
//   - near-JSON with trailing commas, bare keys or single quotes
//
// Failures return a *errors.MalformedResponseError.
func ParseAIJSON(input string, target any) error {
	input = strings.TrimSpace(strings.TrimPrefix(input, "\ufeff"))
	if input == "" {
		return apperrors.NewMalformedResponseError("", fmt.Errorf("empty input"))
	}

	candidates := []string{input}
	if fenced := extractFromMarkdown(input); fenced != "" {
		candidates = append(candidates, fenced)
	}
	candidates = append(candidates, extractJSONFromText(input)...)

	var firstErr error
	for _, c := range candidates {
		err := json.Unmarshal([]byte(c), target)
		if err == nil {
			return nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	for _, c := range candidates {
		if err := json.Unmarshal([]byte(repairJSON(c)), target); err == nil {
			return nil
		}
	}

	return apperrors.NewMalformedResponseError(Truncate(input, 100), firstErr)
}

// ParseAIObject decodes model output that must be a JSON object
func ParseAIObject(input string) (map[string]any, error) {
	var obj map[string]any
	if err := ParseAIJSON(input, &obj); err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, apperrors.NewMalformedResponseError(Truncate(input, 100), fmt.Errorf("response is not a JSON object"))
	}
	return obj, nil
}

// DataObject returns the nested "data" object when present, else the object itself
func DataObject(obj map[string]any) map[string]any {
	if data, ok := obj["data"].(map[string]any); ok {
		return data
	}
	return obj
}

// extractFromMarkdown returns the body of the first fenced block that looks like JSON
func extractFromMarkdown(input string) string {
	for _, m := range fencedJSONRe.FindAllStringSubmatch(input, -1) {
		body := strings.TrimSpace(m[1])
		if strings.HasPrefix(body, "{") || strings.HasPrefix(body, "[") {
			return body
		}
	}
	return ""
}

// extractJSONFromText returns every balanced object in input, in order of
// their opening brace, followed by every balanced array. Prose before the
// payload may itself contain brackets, so no single start offset is trusted.
func extractJSONFromText(input string) []string {
	var out []string
	for _, pair := range [][2]byte{{'{', '}'}, {'[', ']'}} {
		for i := 0; i < len(input); i++ {
			if input[i] != pair[0] {
				continue
			}
			if s := extractBalanced(input[i:], pair[0], pair[1]); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

// extractBalanced returns the prefix of input up to the bracket that closes
// its first open bracket, skipping brackets inside strings.
func extractBalanced(input string, open, close byte) string {
	depth := 0
	inString := false
	escape := false
	start := -1

	for i := 0; i < len(input); i++ {
		ch := input[i]
		switch {
		case escape:
			escape = false
		case ch == '\\':
			escape = inString
		case ch == '"':
			inString = !inString
		case inString:
		case ch == open:
			if depth == 0 {
				start = i
			}
			depth++
		case ch == close && depth > 0:
			depth--
			if depth == 0 {
				return input[start : i+1]
			}
		}
	}
	return ""
}

// repairJSON fixes the mistakes models make most often
func repairJSON(input string) string {
	s := strings.TrimSpace(input)
	s = trailingCommaRe.ReplaceAllString(s, "$1")
	s = unquotedKeyRe.ReplaceAllString(s, `$1"$2"$3`)
	s = fixSingleQuotes(s)
	return controlCharRe.ReplaceAllString(s, "")
}

// fixSingleQuotes turns 'quoted' tokens into "quoted" ones outside of
// double-quoted strings. Apostrophes inside words are left alone.
func fixSingleQuotes(input string) string {
	var b strings.Builder
	b.Grow(len(input))
	inDouble := false
	inSingle := false
	escape := false

	for i := 0; i < len(input); i++ {
		ch := input[i]
		if escape {
			b.WriteByte(ch)
			escape = false
			continue
		}
		switch {
		case ch == '\\':
			escape = true
		case ch == '"' && !inSingle:
			inDouble = !inDouble
		case ch == '\'' && !inDouble:
			if inSingle || startsToken(input, i) {
				inSingle = !inSingle
				b.WriteByte('"')
				continue
			}
		case ch == '"' && inSingle:
			b.WriteString(`\"`)
			continue
		}
		b.WriteByte(ch)
	}
	return b.String()
}

func startsToken(s string, i int) bool {
	for j := i - 1; j >= 0; j-- {
		switch s[j] {
		case ' ', '\t', '\n', '\r':
			continue
		case ':', ',', '[', '{':
			return true
		default:
			return false
		}
	}
	return true
}

// Truncate keeps at most maxLen bytes of s without splitting a rune
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
