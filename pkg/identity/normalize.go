// Package identity resolves people across the surface forms they arrive in:
// calendar display names, email addresses and free-text spreadsheet cells.
//
// Nothing here has a stable person identifier to work with. Identity is
// inferred from normalized name tokens, and every comparison fails closed:
// a name that normalizes to nothing never matches anything.
package identity

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
)

// TokenSet is the normalized form of a name: a set of lowercase,
// letters-only tokens.
type TokenSet map[string]struct{}

// NewTokenSet builds a TokenSet from already-normalized tokens.
func NewTokenSet(tokens ...string) TokenSet {
	s := make(TokenSet, len(tokens))
	for _, t := range tokens {
		if t != "" {
			s[t] = struct{}{}
		}
	}
	return s
}

// Len returns the number of tokens.
func (s TokenSet) Len() int { return len(s) }

// Has reports whether token is in the set.
func (s TokenSet) Has(token string) bool {
	_, ok := s[token]
	return ok
}

// Sorted returns the tokens in lexical order.
func (s TokenSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for t := range s {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// String renders the set as its sorted tokens joined by single spaces.
// Normalize(s.String()) yields s again.
func (s TokenSet) String() string {
	return strings.Join(s.Sorted(), " ")
}

// Equal reports whether both sets hold exactly the same tokens.
func (s TokenSet) Equal(o TokenSet) bool {
	if len(s) != len(o) {
		return false
	}
	return s.SubsetOf(o)
}

// SubsetOf reports whether every token of s is in o.
func (s TokenSet) SubsetOf(o TokenSet) bool {
	for t := range s {
		if !o.Has(t) {
			return false
		}
	}
	return true
}

// Normalize turns any name-bearing string into its token set.
//   - "Shubham.Dakhane"     → {shubham, dakhane}
//   - "first_last"          → {first, last}
//   - "O'Brien, Pat"        → {obrien, pat}
//   - "user123"             → {user}
//   - ""                    → {}
//
// Short tokens such as "al" are kept; length filtering belongs to matching.
func Normalize(raw string) TokenSet {
	lowered := strings.ToLower(raw)
	lowered = strings.NewReplacer(".", " ", "_", " ").Replace(lowered)

	var b strings.Builder
	b.Grow(len(lowered))
	for _, r := range lowered {
		switch {
		case unicode.IsLetter(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}

	return NewTokenSet(strings.Fields(b.String())...)
}

// cellDelimiters splits a cell listing several people. "and" and "with"
// only count as delimiters when they stand as whole words.
var cellDelimiters = regexp.MustCompile(`(?i)\s*[,;/&\n]\s*|\s+\band\b\s+|\s+\bwith\b\s+`)

// parenthetical matches role annotations like "(Brand Representative)".
var parenthetical = regexp.MustCompile(`\s*\([^)]*\)`)

// SplitCell splits a free-text spreadsheet cell into the raw names it lists.
// "n/a" and blank cells list nobody. Fragments containing any of the given
// role descriptors (compared case-insensitively) are dropped.
func SplitCell(cell string, descriptors []string) []string {
	trimmed := strings.TrimSpace(cell)
	if trimmed == "" || strings.EqualFold(trimmed, "n/a") {
		return nil
	}

	cleaned := parenthetical.ReplaceAllString(trimmed, "")
	cleaned = strings.ReplaceAll(cleaned, "*", "")
	cleaned = strings.TrimSpace(cleaned)

	var names []string
	for _, part := range cellDelimiters.Split(cleaned, -1) {
		part = strings.TrimSpace(part)
		if part == "" || hasDescriptor(part, descriptors) {
			continue
		}
		names = append(names, part)
	}
	return names
}

func hasDescriptor(fragment string, descriptors []string) bool {
	lower := strings.ToLower(fragment)
	for _, d := range descriptors {
		d = strings.ToLower(strings.TrimSpace(d))
		if d != "" && strings.Contains(lower, d) {
			return true
		}
	}
	return false
}

// LocalPart returns the portion of an email address before the '@'.
// Strings without '@' are returned unchanged.
func LocalPart(email string) string {
	if i := strings.LastIndex(email, "@"); i >= 0 {
		return email[:i]
	}
	return email
}

// NameFromEmail converts an email local-part into a spaced name so that
// "shubham.dakhane@x.com" becomes "shubham dakhane" rather than one token.
func NameFromEmail(email string) string {
	local := LocalPart(strings.TrimSpace(email))
	local = strings.NewReplacer(".", " ", "_", " ", "-", " ", "+", " ").Replace(local)
	return strings.Join(strings.Fields(local), " ")
}
