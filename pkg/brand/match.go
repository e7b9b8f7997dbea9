// Package brand matches free-text brand names from calendar meetings
// against the brand column of historical meeting records.
package brand

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// DefaultMinLength is the shortest brand name allowed to match by containment.
const DefaultMinLength = 3

// Tier indicates which comparison produced a match.
type Tier int

const (
	TierNone Tier = iota
	TierExact
	TierWholeWord
)

// String returns the tier name used in logs and output.
func (t Tier) String() string {
	switch t {
	case TierExact:
		return "exact"
	case TierWholeWord:
		return "whole_word"
	default:
		return "none"
	}
}

// MarshalText encodes the tier by name.
func (t Tier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText decodes a tier name written by MarshalText.
func (t *Tier) UnmarshalText(text []byte) error {
	switch string(text) {
	case "exact":
		*t = TierExact
	case "whole_word":
		*t = TierWholeWord
	case "none", "":
		*t = TierNone
	default:
		return fmt.Errorf("unknown brand match tier %q", text)
	}
	return nil
}

// Matcher compares brand names with a tiered exact → whole-word strategy.
// Typos are not forgiven; there is no edit-distance tier.
type Matcher struct {
	// MinLength is the normalized length (in runes) below which only exact
	// matches count.
	MinLength int
}

// NewMatcher creates a Matcher. A non-positive minLength selects DefaultMinLength.
func NewMatcher(minLength int) *Matcher {
	if minLength <= 0 {
		minLength = DefaultMinLength
	}
	return &Matcher{MinLength: minLength}
}

// Normalize canonicalizes a brand name for comparison. NFKC folds
// compatibility characters such as the non-breaking spaces common in
// spreadsheet exports into plain spaces; the result is lower-cased with
// whitespace trimmed and collapsed.
func Normalize(name string) string {
	folded := norm.NFKC.String(name)
	return strings.Join(strings.Fields(strings.ToLower(folded)), " ")
}

// Match reports whether target and candidate name the same brand.
func (m *Matcher) Match(target, candidate string) bool {
	return m.Compare(target, candidate) != TierNone
}

// Compare returns the tier at which target and candidate match.
//   - "Giva" vs "giva"                 → exact
//   - "Chitale" vs "Chitale Bandhu"    → whole word
//   - "advan" vs "advances corp"       → none
//   - "Go" vs "Go Colors"              → none (below MinLength)
func (m *Matcher) Compare(target, candidate string) Tier {
	t := Normalize(target)
	c := Normalize(candidate)
	if t == "" || c == "" {
		return TierNone
	}

	if t == c {
		return TierExact
	}

	minLength := m.MinLength
	if minLength <= 0 {
		minLength = DefaultMinLength
	}
	if utf8.RuneCountInString(t) < minLength || utf8.RuneCountInString(c) < minLength {
		return TierNone
	}

	shorter, longer := t, c
	if len(shorter) > len(longer) {
		shorter, longer = longer, shorter
	}
	if containsWholeWords(longer, shorter) {
		return TierWholeWord
	}
	return TierNone
}

// containsWholeWords reports whether needle occurs in haystack with a
// non-letter (or the string edge) on both sides of the occurrence.
func containsWholeWords(haystack, needle string) bool {
	for offset := 0; offset <= len(haystack)-len(needle); {
		i := strings.Index(haystack[offset:], needle)
		if i < 0 {
			return false
		}
		start := offset + i
		end := start + len(needle)
		if boundaryBefore(haystack, start) && boundaryAfter(haystack, end) {
			return true
		}
		_, size := utf8.DecodeRuneInString(haystack[start:])
		offset = start + size
	}
	return false
}

func boundaryBefore(s string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return !unicode.IsLetter(r)
}

func boundaryAfter(s string, i int) bool {
	if i >= len(s) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(s[i:])
	return !unicode.IsLetter(r)
}
