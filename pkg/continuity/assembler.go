package continuity

import (
	"fmt"
	"strings"
)

// DateLayout is how meeting dates are rendered in narratives.
const DateLayout = "2006-01-02"

// Context is what a brief generator may use about a meeting's history.
// Narrative carries same-thread detail only; other threads appear solely
// as Alerts.
type Context struct {
	Brand            string         `json:"brand" yaml:"brand"`
	IsDirectFollowUp bool           `json:"is_direct_follow_up" yaml:"is_direct_follow_up"`
	HasOtherThreads  bool           `json:"has_other_threads" yaml:"has_other_threads"`
	Narrative        string         `json:"narrative" yaml:"narrative"`
	Alerts           []AlertSummary `json:"alerts,omitempty" yaml:"alerts,omitempty"`
}

// FirstTime reports whether the narrative treats the meeting as a
// first-time interaction for the current team.
func (c Context) FirstTime() bool {
	return !c.IsDirectFollowUp
}

// Assemble builds the brief context for brandName from a classification.
func Assemble(brandName string, r Result) Context {
	ctx := Context{
		Brand:            brandName,
		IsDirectFollowUp: r.IsDirectFollowUp,
		HasOtherThreads:  r.HasOtherThreads,
		Alerts:           r.Alerts,
	}

	var b strings.Builder
	if len(r.Continuity) == 0 {
		writeFirstTime(&b, brandName, r.HasOtherThreads)
	} else {
		writeContinuity(&b, brandName, r.Continuity)
	}

	if n := len(r.Alerts); n > 0 {
		b.WriteString("\n")
		verb := "were"
		if n == 1 {
			verb = "was"
		}
		fmt.Fprintf(&b, "NOTE: %s with %s %s held by a different internal team. ",
			plural(n, "other meeting", "other meetings"), brandName, verb)
		b.WriteString("Their details are not available to this brief.\n")
	}

	ctx.Narrative = strings.TrimRight(b.String(), "\n")
	return ctx
}

func writeFirstTime(b *strings.Builder, brandName string, otherTeams bool) {
	if otherTeams {
		fmt.Fprintf(b, "No previous meetings between this team and %s were found. ", brandName)
		b.WriteString("Treat this as a first-time interaction for this team.\n")
		return
	}
	fmt.Fprintf(b, "No previous meetings with %s were found. ", brandName)
	b.WriteString("Treat this as a first-time interaction.\n")
}

func writeContinuity(b *strings.Builder, brandName string, entries []ContinuityEntry) {
	latest := entries[0]
	fmt.Fprintf(b, "DIRECT FOLLOW-UP: this meeting continues the conversation with %s from %s",
		brandName, latest.Date.Format(DateLayout))
	if len(latest.CommonInternal) > 0 {
		fmt.Fprintf(b, " (returning: %s)", strings.Join(latest.CommonInternal, ", "))
	}
	b.WriteString(".\n")

	for _, e := range entries {
		b.WriteString("\n")
		fmt.Fprintf(b, "## Previous meeting on %s\n", e.Date.Format(DateLayout))
		writeField(b, "Internal attendees", e.Record.InternalAttendees)
		writeField(b, "Client attendees", e.Record.ExternalAttendees)
		writeField(b, "Key discussion points", e.Record.Discussion)
		writeField(b, "Key questions", e.Record.Questions)
		writeField(b, "Brand traits", e.Record.BrandTraits)
		writeField(b, "Customer needs", e.Record.CustomerNeeds)
		writeField(b, "Client pain points", e.Record.PainPoints)
		writeField(b, "Action items", e.Record.ActionItems)
	}
}

func writeField(b *strings.Builder, label, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	fmt.Fprintf(b, "%s: %s\n", label, value)
}

func plural(n int, one, many string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, one)
	}
	return fmt.Sprintf("%d %s", n, many)
}
