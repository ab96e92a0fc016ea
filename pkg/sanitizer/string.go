package sanitizer

import (
	"strings"
	"unicode"
)

type Strategy func(string) string

type Pipeline []Strategy

func (p Pipeline) Apply(s string) string {
	for _, fn := range p {
		s = fn(s)
	}
	return s
}

// TrimAndNormalize trims and collapses every whitespace run to one space.
func TrimAndNormalize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	var result strings.Builder
	lastWasSpace := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !lastWasSpace {
				result.WriteRune(' ')
				lastWasSpace = true
			}
			continue
		}
		result.WriteRune(r)
		lastWasSpace = false
	}
	return result.String()
}

func dropControl(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}

func normalizeNewlines(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}

func NormalizeName(name string) string {
	return TrimAndNormalize(name)
}

func NormalizeCity(city string) string {
	return TrimAndNormalize(city)
}

// NormalizeText cleans multi-line free text such as booking notes and chat
// messages. Leading and trailing whitespace is removed; inner line breaks are
// kept.
func NormalizeText(text string) string {
	return Pipeline{normalizeNewlines, dropControl, strings.TrimSpace}.Apply(text)
}

// NormalizeEnum returns the canonical spelling from allowed that matches value
// case-insensitively, or "" when nothing matches.
func NormalizeEnum(value string, allowed []string) string {
	value = TrimAndNormalize(value)
	for _, candidate := range allowed {
		if strings.EqualFold(candidate, value) {
			return candidate
		}
	}
	return ""
}
