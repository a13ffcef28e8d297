package service

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var fencedBlock = regexp.MustCompile("```(?:json)?\\s*([\\s\\S]*?)\\s*```")

// CleanJSONOutput returns the contents of the first fenced code block, or the
// whole trimmed string when there is none.
func CleanJSONOutput(s string) string {
	s = strings.TrimSpace(sanitizeUTF8(s))
	if m := fencedBlock.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	return s
}

// sanitizeUTF8 drops invalid UTF-8 sequences so model output can be stored safely.
func sanitizeUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}

	var result strings.Builder
	result.Grow(len(s))

	for len(s) > 0 {
		r, size := utf8.DecodeRuneInString(s)
		if r == utf8.RuneError && size == 1 {
			s = s[1:]
			continue
		}
		result.WriteRune(r)
		s = s[size:]
	}

	return result.String()
}
