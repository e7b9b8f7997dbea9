// Package calendar supplies upcoming meetings and decides which of them
// get a brief.
package calendar

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	pberrors "github.com/otherjamesbrown/prepbrief/pkg/errors"
	"github.com/otherjamesbrown/prepbrief/pkg/identity"
)

// ProcessedTag marks an event description once a brief has been prepared.
const ProcessedTag = "[PREPBRIEF_PROCESSED_V1]"

// IsTagged reports whether description carries ProcessedTag.
func IsTagged(description string) bool {
	return strings.Contains(description, ProcessedTag)
}

// Attendee is one invitee of an event.
type Attendee struct {
	Email          string `json:"email"`
	DisplayName    string `json:"display_name,omitempty"`
	Self           bool   `json:"self,omitempty"`
	Organizer      bool   `json:"organizer,omitempty"`
	ResponseStatus string `json:"response_status,omitempty"`
}

// Event is a calendar meeting as far as brief preparation needs it.
type Event struct {
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	Description    string     `json:"description,omitempty"`
	Start          time.Time  `json:"start"`
	OrganizerEmail string     `json:"organizer_email,omitempty"`
	Attendees      []Attendee `json:"attendees"`

	// Brand is an optional brand name supplied with the event.
	Brand string `json:"brand,omitempty"`
}

// Participants converts the attendees for identity resolution.
func (e Event) Participants() []identity.Participant {
	out := make([]identity.Participant, 0, len(e.Attendees))
	for _, a := range e.Attendees {
		out = append(out, identity.Participant{DisplayName: a.DisplayName, Email: a.Email})
	}
	return out
}

// Validate checks the fields every event must carry.
func (e Event) Validate() error {
	if strings.TrimSpace(e.ID) == "" {
		return fmt.Errorf("%w: event id is required", pberrors.ErrValidation)
	}
	if e.Start.IsZero() {
		return fmt.Errorf("%w: event %s has no start time", pberrors.ErrValidation, e.ID)
	}
	return nil
}

// LoadEventFile reads events from a JSON file holding one event object or
// an array of them.
func LoadEventFile(path string) ([]Event, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read event file: %w", err)
	}
	return ParseEvents(data)
}

// ParseEvents decodes one event object or an array of them.
func ParseEvents(data []byte) ([]Event, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty event document", pberrors.ErrValidation)
	}

	var events []Event
	if data[0] == '[' {
		if err := json.Unmarshal(data, &events); err != nil {
			return nil, fmt.Errorf("%w: decode events: %v", pberrors.ErrValidation, err)
		}
	} else {
		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, fmt.Errorf("%w: decode event: %v", pberrors.ErrValidation, err)
		}
		events = []Event{ev}
	}

	for _, ev := range events {
		if err := ev.Validate(); err != nil {
			return nil, err
		}
	}
	return events, nil
}
