package moderation

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// normalizeText folds text for matching: NFKD decomposition with combining
// marks discarded (so "dämn" matches "damn"), lowercased, whitespace
// collapsed. Transformers carry state, so the chain is built per call.
func normalizeText(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	folded = strings.ToLower(folded)
	return strings.Join(strings.Fields(folded), " ")
}

// ScanText scans a single text field against the configured word list.
// Matching uses word-boundary semantics: anything that is not a letter
// is a boundary, so a listed term matches only as a whole run of
// letters. "ass" does not match inside "assistant", while "damn1"
// still matches "damn". Each match yields its own issue. Pure function
// of (text, rules); no side effects.
func ScanText(field, text string, rules *Rules) ScanResult {
	normalized := normalizeText(text)
	if normalized == "" {
		return ScanResult{OK: true}
	}

	tokens := strings.FieldsFunc(normalized, func(r rune) bool {
		return !unicode.IsLetter(r)
	})

	var issues []ScanIssue
	for _, tok := range tokens {
		if rules.hasWord(tok) {
			issues = append(issues, ScanIssue{
				Field:    field,
				Category: IssueProfanity,
				Detail:   tok,
				Blocking: true,
			})
		}
	}

	return ScanResult{OK: len(issues) == 0, Issues: issues}
}
