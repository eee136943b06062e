package chat

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	introPattern    = regexp.MustCompile(`(?i)\b(?:my\s+name\s+is|i\s+am|i'm)\s+([A-Za-z][A-Za-z\-']{1,30}(?:\s+[A-Za-z][A-Za-z\-']{1,30})?)\b`)
	nameJunk        = regexp.MustCompile(`[^A-Za-z\-\s']`)
	greetingPattern = regexp.MustCompile(`^(?:hi|hey|hello|hy|hii+|good\s*(?:morning|afternoon|evening))\b[!. ]*$`)
)

// ExtractName pulls a display name out of a short introduction such as
// "my name is jane doe" or a bare "Jane". It returns "" when nothing usable
// is left.
func ExtractName(text string) string {
	raw := strings.TrimSpace(text)
	if raw == "" {
		return ""
	}
	candidate := raw
	if m := introPattern.FindStringSubmatch(raw); m != nil {
		candidate = m[1]
	}
	candidate = nameJunk.ReplaceAllString(candidate, "")
	parts := strings.Fields(candidate)
	if len(parts) > 2 {
		parts = parts[:2]
	}
	for i, p := range parts {
		parts[i] = capitalize(p)
	}
	name := strings.Join(parts, " ")
	if len(name) < 2 {
		return ""
	}
	return name
}

func capitalize(word string) string {
	runes := []rune(strings.ToLower(word))
	if len(runes) == 0 {
		return ""
	}
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

// IsGreeting reports whether text is only a greeting (or empty).
func IsGreeting(text string) bool {
	t := strings.ToLower(strings.TrimSpace(text))
	if t == "" {
		return true
	}
	return greetingPattern.MatchString(t)
}
