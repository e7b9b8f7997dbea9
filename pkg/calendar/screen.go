package calendar

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/otherjamesbrown/prepbrief/pkg/identity"
)

// SkipReason explains why an event gets no brief.
type SkipReason string

const (
	SkipAlreadyTagged       SkipReason = "already_tagged"
	SkipAgentNotInvited     SkipReason = "agent_not_invited"
	SkipNoExternalAttendees SkipReason = "no_external_attendees"
	SkipNoInternalAttendees SkipReason = "no_internal_attendees"
	SkipAmbiguousBrand      SkipReason = "ambiguous_brand"
)

// Decision is the outcome of screening an event: either Skip or Proceed.
type Decision interface {
	decision()
}

// Skip means the event is not prepared.
type Skip struct {
	Reason SkipReason `json:"reason" yaml:"reason"`
	Detail string     `json:"detail,omitempty" yaml:"detail,omitempty"`
}

// Proceed carries a meeting that is ready for history resolution.
type Proceed struct {
	Meeting ScreenedMeeting `json:"meeting" yaml:"meeting"`
}

func (Skip) decision()    {}
func (Proceed) decision() {}

// BrandSource records where a screened meeting's brand came from.
type BrandSource string

const (
	BrandFromPolicy BrandSource = "override"
	BrandFromEvent  BrandSource = "event"
	BrandFromDomain BrandSource = "email_domain"
)

// ScreenedMeeting is an event that passed screening.
type ScreenedMeeting struct {
	EventID     string         `json:"event_id" yaml:"event_id"`
	Title       string         `json:"title" yaml:"title"`
	Start       time.Time      `json:"start" yaml:"start"`
	Brand       string         `json:"brand" yaml:"brand"`
	BrandSource BrandSource    `json:"brand_source" yaml:"brand_source"`
	Attendees   identity.Group `json:"attendees" yaml:"attendees"`
}

// DefaultPublicDomains are mail providers whose domains say nothing about
// the brand.
var DefaultPublicDomains = []string{"gmail.com", "outlook.com", "yahoo.com", "hotmail.com", "aol.com", "icloud.com"}

// Policy configures screening.
type Policy struct {
	// AgentEmail must be among the attendees. Empty disables the check.
	AgentEmail string

	// People partitions and normalizes attendees.
	People *identity.Builder

	// PublicDomains are ignored when deriving a brand from email domains.
	PublicDomains []string

	// Brand overrides every other brand source.
	Brand string
}

// Screen decides whether ev should be prepared.
func Screen(ev Event, p Policy) Decision {
	if IsTagged(ev.Description) {
		return Skip{Reason: SkipAlreadyTagged}
	}

	if p.AgentEmail != "" && !invited(ev, p.AgentEmail) {
		return Skip{Reason: SkipAgentNotInvited, Detail: p.AgentEmail}
	}

	people := p.People
	if people == nil {
		people = &identity.Builder{}
	}
	group := people.Build(ev.Participants())

	if len(group.External) == 0 {
		return Skip{Reason: SkipNoExternalAttendees}
	}
	if len(group.Internal) == 0 {
		return Skip{Reason: SkipNoInternalAttendees}
	}

	meeting := ScreenedMeeting{
		EventID:   ev.ID,
		Title:     ev.Title,
		Start:     ev.Start,
		Attendees: group,
	}

	switch {
	case strings.TrimSpace(p.Brand) != "":
		meeting.Brand, meeting.BrandSource = strings.TrimSpace(p.Brand), BrandFromPolicy
	case strings.TrimSpace(ev.Brand) != "":
		meeting.Brand, meeting.BrandSource = strings.TrimSpace(ev.Brand), BrandFromEvent
	default:
		labels := domainBrands(ev, people, p.publicDomains())
		if len(labels) != 1 {
			detail := "no brand-specific email domain"
			if len(labels) > 1 {
				detail = fmt.Sprintf("several candidate brands: %s", strings.Join(labels, ", "))
			}
			return Skip{Reason: SkipAmbiguousBrand, Detail: detail}
		}
		meeting.Brand, meeting.BrandSource = labels[0], BrandFromDomain
	}

	return Proceed{Meeting: meeting}
}

func (p Policy) publicDomains() []string {
	if p.PublicDomains == nil {
		return DefaultPublicDomains
	}
	return p.PublicDomains
}

func invited(ev Event, agent string) bool {
	for _, a := range ev.Attendees {
		if strings.EqualFold(strings.TrimSpace(a.Email), strings.TrimSpace(agent)) {
			return true
		}
	}
	return false
}

// domainBrands returns the distinct brand labels implied by the email
// domains of external attendees and the organizer, sorted. Excluded
// accounts contribute no label.
func domainBrands(ev Event, people *identity.Builder, public []string) []string {
	participants := append(ev.Participants(), identity.Participant{Email: ev.OrganizerEmail})

	seen := make(map[string]struct{})
	for _, p := range participants {
		email := p.Email
		if email == "" || (people.IsInternal != nil && people.IsInternal(email)) || people.Excludes(p) {
			continue
		}
		domain := identity.EmailDomain(email)
		if domain == "" || isPublic(domain, public) {
			continue
		}
		label := strings.Split(domain, ".")[0]
		if len(label) < 2 || allDigits(label) {
			continue
		}
		seen[capitalize(label)] = struct{}{}
	}

	out := make([]string, 0, len(seen))
	for l := range seen {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

func isPublic(domain string, public []string) bool {
	for _, d := range public {
		if domain == d || strings.HasSuffix(domain, "."+d) {
			return true
		}
	}
	return false
}

func allDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func capitalize(s string) string {
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
