// Package continuity decides whether an upcoming meeting continues an
// existing relationship thread with a brand, and assembles the context
// that may be surfaced into its brief.
//
// A historical record whose internal attendees overlap the upcoming
// meeting's team is part of the same thread and is surfaced in full.
// Records for the same brand without that overlap belong to another team;
// only their date and internal team ever leave the classifier.
package continuity

import (
	"time"

	"github.com/otherjamesbrown/prepbrief/pkg/identity"
)

// Record is one row of the historical meeting store. Records are read as
// an immutable snapshot and never modified.
type Record struct {
	// Row is the 1-based row number in the source, with the header on row 1.
	Row int `json:"row" yaml:"row"`

	BrandName         string `json:"brand_name" yaml:"brand_name"`
	MeetingDate       string `json:"meeting_date" yaml:"meeting_date"`
	Discussion        string `json:"discussion,omitempty" yaml:"discussion,omitempty"`
	ActionItems       string `json:"action_items,omitempty" yaml:"action_items,omitempty"`
	PainPoints        string `json:"pain_points,omitempty" yaml:"pain_points,omitempty"`
	Questions         string `json:"questions,omitempty" yaml:"questions,omitempty"`
	InternalAttendees string `json:"internal_attendees,omitempty" yaml:"internal_attendees,omitempty"`
	ExternalAttendees string `json:"external_attendees,omitempty" yaml:"external_attendees,omitempty"`
	BrandTraits       string `json:"brand_traits,omitempty" yaml:"brand_traits,omitempty"`
	CustomerNeeds     string `json:"customer_needs,omitempty" yaml:"customer_needs,omitempty"`
}

// Meeting is the upcoming meeting being prepared.
type Meeting struct {
	Date      time.Time
	Attendees identity.Group
}
