package utils

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var (
	fencedJSON     = regexp.MustCompile("(?s)```(?:json)?\\s*(.+?)\\s*```")
	trailingComma  = regexp.MustCompile(`,\s*([}\]])`)
	bareKey        = regexp.MustCompile(`([{,]\s*)([A-Za-z_]\w*)(\s*:)`)
	controlChars   = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F]`)
	maxErrorSample = 100
)

// ParseAIJSON decodes a JSON object out of model output that may be wrapped
// in a markdown fence, surrounded by prose, or carry trailing commas and bare keys.
// Candidates are tried from the least to the most invasive rewrite.
func ParseAIJSON(input string, target interface{}) error {
	input = strings.TrimSpace(strings.TrimPrefix(input, "\ufeff"))
	if input == "" {
		return fmt.Errorf("empty input")
	}

	candidates := []string{input}
	if fenced := extractFromMarkdown(input); fenced != "" {
		candidates = append(candidates, fenced)
	}
	if object := extractBalanced(input, '{', '}'); object != "" {
		candidates = append(candidates, object, repairJSON(object))
	}
	candidates = append(candidates, repairJSON(input))

	for _, candidate := range candidates {
		if err := json.Unmarshal([]byte(candidate), target); err == nil {
			return nil
		}
	}

	return fmt.Errorf("failed to parse JSON from input: %s", truncate(input, maxErrorSample))
}

// extractFromMarkdown returns the body of the first ``` or ```json fence
// when it looks like JSON
func extractFromMarkdown(input string) string {
	m := fencedJSON.FindStringSubmatch(input)
	if len(m) < 2 {
		return ""
	}
	body := strings.TrimSpace(m[1])
	if strings.HasPrefix(body, "{") || strings.HasPrefix(body, "[") {
		return body
	}
	return ""
}

// extractBalanced returns the first balanced open...close span, ignoring
// delimiters inside string literals
func extractBalanced(input string, open, close rune) string {
	start := strings.IndexRune(input, open)
	if start < 0 {
		return ""
	}

	depth := 0
	inString, escaped := false, false
	for i, ch := range input[start:] {
		switch {
		case escaped:
			escaped = false
		case ch == '\\' && inString:
			escaped = true
		case ch == '"':
			inString = !inString
		case inString:
		case ch == open:
			depth++
		case ch == close:
			depth--
			if depth == 0 {
				return input[start : start+i+1]
			}
		}
	}
	return ""
}

// repairJSON drops trailing commas and quotes bare keys outside string
// literals, then strips control characters everywhere
func repairJSON(s string) string {
	s = outsideStrings(s, func(seg string) string {
		seg = trailingComma.ReplaceAllString(seg, "$1")
		return bareKey.ReplaceAllString(seg, `$1"$2"$3`)
	})
	return controlChars.ReplaceAllString(s, "")
}

// outsideStrings applies fn to every span of s that is not inside a double
// quoted literal. Literals, quotes included, are copied through unchanged.
func outsideStrings(s string, fn func(string) string) string {
	var b strings.Builder
	b.Grow(len(s))

	start := 0
	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		switch ch := s[i]; {
		case escaped:
			escaped = false
		case ch == '\\' && inString:
			escaped = true
		case ch == '"' && inString:
			b.WriteString(s[start : i+1])
			start = i + 1
			inString = false
		case ch == '"':
			b.WriteString(fn(s[start:i]))
			start = i
			inString = true
		}
	}
	if inString {
		b.WriteString(s[start:])
	} else {
		b.WriteString(fn(s[start:]))
	}
	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
