package identity

import (
	"strings"
)

// Participant is one surface observation of a person. Calendar attendees
// carry an email and usually a display name; spreadsheet cells carry only
// the cell text fragment.
type Participant struct {
	DisplayName string `json:"display_name,omitempty" yaml:"display_name,omitempty"`
	Email       string `json:"email,omitempty" yaml:"email,omitempty"`
	CellText    string `json:"cell_text,omitempty" yaml:"cell_text,omitempty"`
}

// Name is a participant reduced to its normalized tokens, keeping the raw
// form it was derived from for reporting.
type Name struct {
	Raw    string   `json:"raw"`
	Tokens TokenSet `json:"-"`
}

// Group is the attendee partition of one meeting.
type Group struct {
	Internal []Name `json:"internal"`
	External []Name `json:"external"`
}

// InternalRaw returns the raw internal names in order.
func (g Group) InternalRaw() []string {
	return rawNames(g.Internal)
}

// ExternalRaw returns the raw external names in order.
func (g Group) ExternalRaw() []string {
	return rawNames(g.External)
}

func rawNames(names []Name) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		out = append(out, n.Raw)
	}
	return out
}

// ExclusionSet holds lower-cased identifiers of pseudo and service
// accounts (scheduling bots, shared inboxes).
type ExclusionSet map[string]struct{}

// NewExclusionSet builds an ExclusionSet. Each entry is stored lower-cased;
// email entries also exclude their local-part.
func NewExclusionSet(ids ...string) ExclusionSet {
	s := make(ExclusionSet, len(ids)*2)
	for _, id := range ids {
		id = strings.ToLower(strings.TrimSpace(id))
		if id == "" {
			continue
		}
		s[id] = struct{}{}
		if strings.Contains(id, "@") {
			if local := LocalPart(id); local != "" {
				s[local] = struct{}{}
			}
		}
	}
	return s
}

// Contains reports whether the raw identifier is excluded.
func (s ExclusionSet) Contains(raw string) bool {
	_, ok := s[strings.ToLower(strings.TrimSpace(raw))]
	return ok
}

// DomainPredicate returns a predicate reporting whether an email belongs to
// one of the organization's mail domains (or a subdomain of one).
func DomainPredicate(domains ...string) func(email string) bool {
	normalized := make([]string, 0, len(domains))
	for _, d := range domains {
		d = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(d, "@")))
		if d != "" {
			normalized = append(normalized, d)
		}
	}
	return func(email string) bool {
		domain := EmailDomain(email)
		if domain == "" {
			return false
		}
		for _, d := range normalized {
			if domain == d || strings.HasSuffix(domain, "."+d) {
				return true
			}
		}
		return false
	}
}

// EmailDomain extracts the lower-cased domain from an email address.
func EmailDomain(email string) string {
	parts := strings.Split(strings.TrimSpace(email), "@")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return ""
	}
	return strings.ToLower(parts[1])
}

// Builder turns participant lists into attendee groups.
type Builder struct {
	// IsInternal reports whether an email belongs to the organization.
	IsInternal func(email string) bool

	// Exclusions are removed before normalization.
	Exclusions ExclusionSet

	// Descriptors are role phrases dropped when splitting spreadsheet cells.
	Descriptors []string
}

// NewBuilder creates a Builder for the given organization domains,
// exclusions and role descriptors.
func NewBuilder(domains []string, exclusions ExclusionSet, descriptors []string) *Builder {
	return &Builder{
		IsInternal:  DomainPredicate(domains...),
		Exclusions:  exclusions,
		Descriptors: descriptors,
	}
}

// Build partitions participants into internal and external names.
// Participants without an email are treated as external unless the caller
// partitions them itself via BuildFromCells.
func (b *Builder) Build(participants []Participant) Group {
	var g Group
	for _, p := range participants {
		name, ok := b.resolve(p)
		if !ok {
			continue
		}
		if p.Email != "" && b.IsInternal != nil && b.IsInternal(p.Email) {
			g.Internal = append(g.Internal, name)
		} else {
			g.External = append(g.External, name)
		}
	}
	return g
}

// BuildFromCells builds a group from the free-text attendee cells of a
// historical record.
func (b *Builder) BuildFromCells(internalCell, externalCell string) Group {
	return Group{
		Internal: b.namesFromCell(internalCell),
		External: b.namesFromCell(externalCell),
	}
}

// namesFromCell builds the names listed in a single free-text cell.
func (b *Builder) namesFromCell(cell string) []Name {
	var names []Name
	for _, fragment := range SplitCell(cell, b.Descriptors) {
		name, ok := b.resolve(Participant{CellText: fragment})
		if ok {
			names = append(names, name)
		}
	}
	return names
}

// resolve applies the exclusion list to the raw identifiers of p and then
// normalizes its best name source. The second return is false for excluded
// participants.
func (b *Builder) resolve(p Participant) (Name, bool) {
	if b.Excludes(p) {
		return Name{}, false
	}

	raw := nameSource(p)
	return Name{Raw: raw, Tokens: Normalize(raw)}, true
}

// Excludes reports whether p is on the exclusion list by email, email
// local-part, display name or cell text.
func (b *Builder) Excludes(p Participant) bool {
	if len(b.Exclusions) == 0 {
		return false
	}
	for _, id := range []string{p.Email, LocalPart(p.Email), p.DisplayName, p.CellText} {
		if id != "" && b.Exclusions.Contains(id) {
			return true
		}
	}
	return false
}

// nameSource picks the string a participant's name is normalized from.
// The display name wins unless it is missing or just repeats the email, in
// which case the email local-part is split on its separators.
func nameSource(p Participant) string {
	display := strings.TrimSpace(p.DisplayName)
	email := strings.TrimSpace(p.Email)

	switch {
	case display != "" && !strings.EqualFold(display, email):
		return display
	case email != "":
		return NameFromEmail(email)
	default:
		return strings.TrimSpace(p.CellText)
	}
}
