// Package brief drafts the pre-meeting brief handed to a sales rep. The
// drafter sees only what continuity.Context exposes: same-thread detail in
// the narrative and, for other teams' threads, a date and a team list.
package brief

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/otherjamesbrown/prepbrief/pkg/continuity"
)

// Brief is the structured output of a drafter.
type Brief struct {
	Headline      string   `json:"headline" yaml:"headline" jsonschema:"description=One sentence describing the purpose of the meeting"`
	Objectives    []string `json:"objectives" yaml:"objectives" jsonschema:"description=What the sales team should aim to achieve"`
	TalkingPoints []string `json:"talking_points" yaml:"talking_points" jsonschema:"description=Points to raise or questions to ask"`
	FollowUps     []string `json:"follow_ups" yaml:"follow_ups" jsonschema:"description=Open action items carried over from earlier meetings of this thread"`
	Risks         []string `json:"risks" yaml:"risks" jsonschema:"description=Sensitivities or likely objections"`
}

// Request is everything a drafter is allowed to see about a meeting.
type Request struct {
	Brand        string             `json:"brand" yaml:"brand"`
	Title        string             `json:"title" yaml:"title"`
	Start        time.Time          `json:"start" yaml:"start"`
	InternalTeam []string           `json:"internal_team" yaml:"internal_team"`
	ExternalTeam []string           `json:"external_team" yaml:"external_team"`
	Context      continuity.Context `json:"context" yaml:"context"`
}

// Drafter turns a Request into a Brief.
type Drafter interface {
	Draft(ctx context.Context, req Request) (Brief, error)
}

// Prompt renders the user message for req. Other teams' meetings are
// reduced to their dates and internal attendees.
func Prompt(req Request) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Brand: %s\n", req.Brand)
	if req.Title != "" {
		fmt.Fprintf(&b, "Meeting: %s\n", req.Title)
	}
	if !req.Start.IsZero() {
		fmt.Fprintf(&b, "Starts: %s\n", req.Start.Format(time.RFC1123))
	}
	fmt.Fprintf(&b, "Our attendees: %s\n", listOrNone(req.InternalTeam))
	fmt.Fprintf(&b, "Client attendees: %s\n", listOrNone(req.ExternalTeam))

	if req.Context.IsDirectFollowUp {
		b.WriteString("Relationship: direct follow-up\n")
	} else {
		b.WriteString("Relationship: first meeting for this team\n")
	}

	b.WriteString("\nHistory:\n")
	b.WriteString(req.Context.Narrative)
	b.WriteString("\n")

	if len(req.Context.Alerts) > 0 {
		b.WriteString("\nSeparate threads with this brand (do not speculate about their content):\n")
		for _, a := range req.Context.Alerts {
			fmt.Fprintf(&b, "- %s, held by %s\n",
				a.Date.Format(continuity.DateLayout), listOrNone(a.InternalTeam))
		}
	}
	return b.String()
}

func listOrNone(names []string) string {
	if len(names) == 0 {
		return "none listed"
	}
	return strings.Join(names, ", ")
}
