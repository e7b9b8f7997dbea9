package continuity

import (
	"sort"
	"time"

	"github.com/otherjamesbrown/prepbrief/pkg/brand"
	"github.com/otherjamesbrown/prepbrief/pkg/identity"
	"github.com/otherjamesbrown/prepbrief/pkg/logging"
)

// DefaultWindow is the number of most recent brand meetings analysed.
const DefaultWindow = 3

// State is the classifier's progress through one resolution.
type State string

const (
	StateScanning    State = "scanning"
	StateNoHistory   State = "no_history"
	StateClassifying State = "classifying"
	StateResolved    State = "resolved"
)

// SkipReason explains why a brand-matching row was left out.
type SkipReason string

const (
	SkipUnparsableDate SkipReason = "unparsable_date"
	SkipNotBefore      SkipReason = "not_before_meeting"
)

// Skip records a brand-matching row excluded from classification.
type Skip struct {
	Row    int        `json:"row" yaml:"row"`
	Reason SkipReason `json:"reason" yaml:"reason"`
	Value  string     `json:"value,omitempty" yaml:"value,omitempty"`
}

// ContinuityEntry is a historical meeting of the same thread.
type ContinuityEntry struct {
	Record         Record     `json:"record" yaml:"record"`
	Date           time.Time  `json:"date" yaml:"date"`
	BrandTier      brand.Tier `json:"brand_tier" yaml:"brand_tier"`
	CommonInternal []string   `json:"common_internal" yaml:"common_internal"`
	CommonExternal []string   `json:"common_external,omitempty" yaml:"common_external,omitempty"`
}

// AlertSummary is all that is known outside the classifier about a meeting
// held with the same brand by a different team. It has no field for the
// meeting's notes.
type AlertSummary struct {
	Date         time.Time `json:"date" yaml:"date"`
	InternalTeam []string  `json:"internal_team" yaml:"internal_team"`
}

// Result is the outcome of classifying a brand's history for one meeting.
type Result struct {
	Brand            string            `json:"brand" yaml:"brand"`
	State            State             `json:"state" yaml:"state"`
	IsDirectFollowUp bool              `json:"is_direct_follow_up" yaml:"is_direct_follow_up"`
	HasOtherThreads  bool              `json:"has_other_threads" yaml:"has_other_threads"`
	Continuity       []ContinuityEntry `json:"continuity,omitempty" yaml:"continuity,omitempty"`
	Alerts           []AlertSummary    `json:"alerts,omitempty" yaml:"alerts,omitempty"`
	Skipped          []Skip            `json:"skipped,omitempty" yaml:"skipped,omitempty"`

	// Considered is the number of dated brand meetings before the window cap.
	Considered int `json:"considered" yaml:"considered"`
}

// Classifier splits a brand's history into the current team's thread and
// other teams' threads.
type Classifier struct {
	Brands      *brand.Matcher
	People      *identity.Builder
	Window      int
	DateFormats []string
	Logger      logging.Logger
}

// NewClassifier creates a Classifier. A non-positive window selects
// DefaultWindow and empty formats select DefaultDateFormats.
func NewClassifier(brands *brand.Matcher, people *identity.Builder, window int, formats []string, logger logging.Logger) *Classifier {
	return &Classifier{
		Brands:      brands,
		People:      people,
		Window:      window,
		DateFormats: formats,
		Logger:      logger,
	}
}

type candidate struct {
	record Record
	date   time.Time
	tier   brand.Tier
}

// Classify resolves the history of target for meeting. It never fails:
// malformed rows are skipped and logged, and an empty or unusable history
// resolves to StateNoHistory.
func (c *Classifier) Classify(target string, meeting Meeting, records []Record) Result {
	log := c.logger().With(logging.F("brand", target))
	res := Result{Brand: target, State: StateScanning}

	candidates := c.scan(target, meeting, records, &res, log)
	res.Considered = len(candidates)
	if len(candidates) == 0 {
		res.State = StateNoHistory
		log.Debug("No prior meetings for brand", logging.F("rows", len(records)))
		return res
	}

	res.State = StateClassifying
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].date.After(candidates[j].date)
	})
	if window := c.window(); len(candidates) > window {
		candidates = candidates[:window]
	}

	people := c.people()
	for _, cand := range candidates {
		hist := people.BuildFromCells(cand.record.InternalAttendees, cand.record.ExternalAttendees)

		common := identity.Common(meeting.Attendees.Internal, hist.Internal)
		if len(common) == 0 {
			res.Alerts = append(res.Alerts, AlertSummary{
				Date:         cand.date,
				InternalTeam: hist.InternalRaw(),
			})
			continue
		}

		res.Continuity = append(res.Continuity, ContinuityEntry{
			Record:         cand.record,
			Date:           cand.date,
			BrandTier:      cand.tier,
			CommonInternal: common,
			CommonExternal: identity.Common(meeting.Attendees.External, hist.External),
		})
	}

	res.IsDirectFollowUp = len(res.Continuity) > 0
	res.HasOtherThreads = len(res.Alerts) > 0
	res.State = StateResolved

	log.Info("Resolved brand history",
		logging.F("considered", res.Considered),
		logging.F("continuity", len(res.Continuity)),
		logging.F("other_threads", len(res.Alerts)),
		logging.F("skipped", len(res.Skipped)))
	return res
}

// scan selects the brand-matching records dated strictly before the
// meeting. Rows for other brands are dropped before their dates or
// attendees are looked at.
func (c *Classifier) scan(target string, meeting Meeting, records []Record, res *Result, log logging.Logger) []candidate {
	brands := c.brands()
	formats := c.DateFormats

	var out []candidate
	for _, r := range records {
		tier := brands.Compare(target, r.BrandName)
		if tier == brand.TierNone {
			continue
		}

		date, err := ParseDate(r.MeetingDate, formats)
		if err != nil {
			res.Skipped = append(res.Skipped, Skip{Row: r.Row, Reason: SkipUnparsableDate, Value: r.MeetingDate})
			log.Warn("Skipping history row with unparsable date",
				logging.F("row", r.Row),
				logging.F("meeting_date", r.MeetingDate))
			continue
		}
		if !beforeDay(date, meeting.Date) {
			res.Skipped = append(res.Skipped, Skip{Row: r.Row, Reason: SkipNotBefore, Value: r.MeetingDate})
			log.Debug("Skipping history row not before meeting",
				logging.F("row", r.Row),
				logging.F("meeting_date", r.MeetingDate))
			continue
		}

		out = append(out, candidate{record: r, date: date, tier: tier})
	}
	return out
}

func (c *Classifier) window() int {
	if c.Window <= 0 {
		return DefaultWindow
	}
	return c.Window
}

func (c *Classifier) brands() *brand.Matcher {
	if c.Brands == nil {
		return brand.NewMatcher(0)
	}
	return c.Brands
}

func (c *Classifier) people() *identity.Builder {
	if c.People == nil {
		return &identity.Builder{}
	}
	return c.People
}

func (c *Classifier) logger() logging.Logger {
	if c.Logger == nil {
		return logging.NewNopLogger()
	}
	return c.Logger
}
