package detector

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/nao1215/patternscan/internal/model"
)

// maxQuoteLength bounds quoted evidence in descriptions.
const maxQuoteLength = 120

// containsAny reports whether s contains any of the substrings.
// s and substrings are expected to be lower case.
func containsAny(s string, substrings []string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// firstContained returns the first substring contained in s.
func firstContained(s string, substrings []string) (string, bool) {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return sub, true
		}
	}
	return "", false
}

// firstTerm returns the first term found in s. Single-word terms must match
// a whole word, so "now" does not match "know" and "limited" does not match
// "unlimited". Multi-word terms match as substrings.
func firstTerm(s string, terms []string) (string, bool) {
	var words map[string]bool
	for _, term := range terms {
		if strings.Contains(term, " ") {
			if strings.Contains(s, term) {
				return term, true
			}
			continue
		}
		if words == nil {
			words = make(map[string]bool)
			for _, w := range strings.FieldsFunc(s, isWordSeparator) {
				words[w] = true
			}
		}
		if words[term] {
			return term, true
		}
	}
	return "", false
}

func isWordSeparator(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

// firstMatch returns the first match of any pattern in s.
func firstMatch(s string, patterns []*regexp.Regexp) (string, bool) {
	for _, p := range patterns {
		if m := p.FindString(s); m != "" {
			return m, true
		}
	}
	return "", false
}

// quote shortens evidence for display.
func quote(s string) string {
	return model.TruncateUTF8(strings.Join(strings.Fields(s), " "), maxQuoteLength)
}

// lowerBody returns the lower-cased body text.
func lowerBody(s *model.PageSnapshot) string {
	return strings.ToLower(s.BodyText)
}
