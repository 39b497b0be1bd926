package quizgen

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// repairRule rewrites raw model output given the last strict-parse error.
// Rules are pure and applied in order, each on the output of the previous one.
type repairRule struct {
	name  string
	apply func(raw string, parseErr error) string
}

var repairRules = []repairRule{
	{"extract json body", extractJSONBody},
	{"close unterminated string", closeUnterminatedString},
	{"strip trailing commas", stripTrailingCommas},
	{"close open brackets", closeOpenBrackets},
}

var (
	codeFencePattern     = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.*?)\\s*```")
	trailingCommaPattern = regexp.MustCompile(`,\s*([\]}])`)
)

// Parse decodes model output into a generic JSON value. Input that is already
// valid JSON is decoded as-is; otherwise repair rules run in sequence with a
// strict re-parse after each one.
func Parse(raw string) (any, error) {
	v, err := strictParse(raw)
	if err == nil {
		return v, nil
	}

	repaired := raw
	for _, rule := range repairRules {
		repaired = rule.apply(repaired, err)
		v, err = strictParse(repaired)
		if err == nil {
			return v, nil
		}
	}
	return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
}

func strictParse(s string) (any, error) {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, err
	}
	return v, nil
}

// UnwrapQuestions returns the "questions" array of an object such as
// {"questions": [...]}, and any other value unchanged.
func UnwrapQuestions(v any) any {
	obj, ok := v.(map[string]any)
	if !ok {
		return v
	}
	if qs, ok := obj["questions"].([]any); ok {
		return qs
	}
	return v
}

// extractJSONBody drops markdown fences and any prose around the first
// array or object in the text.
func extractJSONBody(raw string, _ error) string {
	s := strings.TrimSpace(raw)
	if m := codeFencePattern.FindStringSubmatch(s); len(m) > 1 {
		s = m[1]
	}
	start := strings.IndexAny(s, "[{")
	if start < 0 {
		return s
	}
	s = s[start:]

	if end := matchingCloser(s); end > 0 {
		return s[:end+1]
	}
	return s
}

// matchingCloser returns the index of the bracket closing s[0], or -1 when
// it is never closed. Brackets inside string literals are ignored.
func matchingCloser(s string) int {
	depth := 0
	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '[', '{':
			depth++
		case ']', '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// closeUnterminatedString inserts a closing quote at the failure position when
// the parser stopped inside a string literal, typically because the output was
// cut off by the token limit.
func closeUnterminatedString(raw string, parseErr error) string {
	pos := len(raw)
	var syntaxErr *json.SyntaxError
	if errors.As(parseErr, &syntaxErr) && int(syntaxErr.Offset) <= len(raw) {
		pos = int(syntaxErr.Offset)
		if strings.Contains(syntaxErr.Error(), "in string literal") && pos > 0 {
			pos--
		}
	}
	// Re-check against the text itself; the error may predate earlier rules.
	if !insideString(raw[:pos]) {
		pos = len(raw)
		if !insideString(raw) {
			return raw
		}
	}

	before := raw[:pos]
	if !strings.Contains(before, `"`) {
		return raw
	}
	if pos < len(raw) && raw[pos] == '"' {
		return raw
	}
	if strings.HasSuffix(before, `\`) && !strings.HasSuffix(before, `\\`) {
		before = before[:len(before)-1]
	}
	return before + `"` + raw[pos:]
}

func stripTrailingCommas(raw string, _ error) string {
	return trailingCommaPattern.ReplaceAllString(raw, "$1")
}

// closeOpenBrackets appends the closers for any arrays or objects left open.
func closeOpenBrackets(raw string, _ error) string {
	var stack []byte
	inString, escaped := false, false
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '[':
			stack = append(stack, ']')
		case '{':
			stack = append(stack, '}')
		case ']', '}':
			if len(stack) > 0 && stack[len(stack)-1] == c {
				stack = stack[:len(stack)-1]
			}
		}
	}
	if inString || len(stack) == 0 {
		return raw
	}

	var b strings.Builder
	b.WriteString(strings.TrimRight(strings.TrimSpace(raw), ","))
	for i := len(stack) - 1; i >= 0; i-- {
		b.WriteByte(stack[i])
	}
	return b.String()
}

func insideString(s string) bool {
	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		}
	}
	return inString
}
