package identity

// MinTokenLength is the shortest token that can carry a match on its own.
// Single letters (initials) never do.
const MinTokenLength = 2

// MatchKind indicates how two names were judged to be the same person.
type MatchKind string

const (
	MatchNone        MatchKind = ""
	MatchExact       MatchKind = "exact"
	MatchSubset      MatchKind = "subset"
	MatchSharedToken MatchKind = "shared_token"
)

// Pair is one greedy match between a name on side A and a name on side B.
type Pair struct {
	A    Name      `json:"a"`
	B    Name      `json:"b"`
	Kind MatchKind `json:"kind"`
}

// significant reports whether s contains at least one token long enough to
// identify someone.
func significant(s TokenSet) bool {
	for t := range s {
		if len([]rune(t)) >= MinTokenLength {
			return true
		}
	}
	return false
}

// SamePerson decides whether two token sets denote the same individual.
//   - {shubham, dakhane} vs {shubham, dakhane}              → exact
//   - {shubham, dakhane} vs {shubham, chandrakant, dakhane} → subset
//   - {an, roy} vs {anup, roy}                              → shared token "roy"
//   - {a} vs {a}                                            → no match
//
// Sets without a token of at least MinTokenLength runes never match,
// including empty sets compared with each other.
func SamePerson(a, b TokenSet) (MatchKind, bool) {
	if !significant(a) || !significant(b) {
		return MatchNone, false
	}

	if a.Equal(b) {
		return MatchExact, true
	}

	if a.SubsetOf(b) || b.SubsetOf(a) {
		return MatchSubset, true
	}

	for t := range a {
		if len([]rune(t)) >= MinTokenLength && b.Has(t) {
			return MatchSharedToken, true
		}
	}

	return MatchNone, false
}

// Pairs greedily matches names on side A to names on side B. Each A name
// takes the first unused compatible B name; a B name is never reused. The
// result follows the order of a.
//
// Greedy assignment can under-count against a maximum bipartite matching
// when two A names both fit only the same B name. Callers only need to know
// whether any pair exists, so that approximation is accepted.
func Pairs(a, b []Name) []Pair {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}

	used := make([]bool, len(b))
	var pairs []Pair
	for _, na := range a {
		for j, nb := range b {
			if used[j] {
				continue
			}
			if kind, ok := SamePerson(na.Tokens, nb.Tokens); ok {
				used[j] = true
				pairs = append(pairs, Pair{A: na, B: nb, Kind: kind})
				break
			}
		}
	}
	return pairs
}

// Overlap reports whether the two name lists share at least one person.
func Overlap(a, b []Name) bool {
	return len(Pairs(a, b)) > 0
}

// Common returns the raw names from side A that matched someone on side B.
func Common(a, b []Name) []string {
	pairs := Pairs(a, b)
	if len(pairs) == 0 {
		return nil
	}
	out := make([]string, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, p.A.Raw)
	}
	return out
}
