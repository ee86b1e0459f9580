package processing

import (
	"regexp"
	"strings"
)

var fence = regexp.MustCompile("```(?:json|JSON)?[ \t]*\r?\n?")

// ExtractJSON isolates the JSON object embedded in a model reply.
// Code fences are removed, then the region from the first '{' to the '}'
// that closes it is returned. When no such region balances, the widest
// '{'...'}' span is returned and left for the decoder to reject.
func ExtractJSON(raw string) (string, error) {
	text := strings.TrimSpace(fence.ReplaceAllString(raw, ""))

	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end < start {
		return "", &ExtractionError{Err: ErrNoJSONFound}
	}

	if e := closingBrace(text, start); e >= 0 {
		return text[start : e+1], nil
	}
	return text[start : end+1], nil
}

// closingBrace returns the index of the '}' that closes the '{' at start,
// skipping braces inside string literals, or -1 when it never closes.
func closingBrace(s string, start int) int {
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(s); i++ {
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
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
