package calendar

import (
	"context"
	"fmt"
	"strings"
	"time"

	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// DefaultLookahead is how far ahead GoogleSource lists events.
const DefaultLookahead = 24 * time.Hour

// ReminderMinutes is the lead time of the email reminder Remind adds.
const ReminderMinutes = 60

// NewGoogleService creates a Calendar API client from a service account or
// authorized-user credentials file.
func NewGoogleService(ctx context.Context, credentialsFile string) (*gcal.Service, error) {
	if credentialsFile == "" {
		return nil, fmt.Errorf("calendar credentials file is required")
	}
	svc, err := gcal.NewService(ctx, option.WithCredentialsFile(credentialsFile), option.WithScopes(gcal.CalendarEventsScope))
	if err != nil {
		return nil, fmt.Errorf("create calendar service: %w", err)
	}
	return svc, nil
}

// GoogleSource lists upcoming meetings from a Google calendar.
type GoogleSource struct {
	Service    *gcal.Service
	CalendarID string
	Lookahead  time.Duration
}

// NewGoogleSource creates a GoogleSource. An empty calendarID selects the
// primary calendar.
func NewGoogleSource(svc *gcal.Service, calendarID string, lookahead time.Duration) *GoogleSource {
	if calendarID == "" {
		calendarID = "primary"
	}
	if lookahead <= 0 {
		lookahead = DefaultLookahead
	}
	return &GoogleSource{Service: svc, CalendarID: calendarID, Lookahead: lookahead}
}

// Upcoming returns the timed, non-cancelled events starting between now
// and now+Lookahead, with recurring events expanded.
func (s *GoogleSource) Upcoming(ctx context.Context, now time.Time) ([]Event, error) {
	call := s.Service.Events.List(s.CalendarID).
		TimeMin(now.Format(time.RFC3339)).
		TimeMax(now.Add(s.Lookahead).Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime")

	var events []Event
	err := call.Pages(ctx, func(page *gcal.Events) error {
		for _, item := range page.Items {
			if item.Status == "cancelled" {
				continue
			}
			ev, ok := FromGoogleEvent(item)
			if ok {
				events = append(events, ev)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list events for %s: %w", s.CalendarID, err)
	}
	return events, nil
}

// Tag appends ProcessedTag to the event's description.
func (s *GoogleSource) Tag(ctx context.Context, ev Event) error {
	if IsTagged(ev.Description) {
		return nil
	}
	desc := strings.TrimSpace(ev.Description + "\n" + ProcessedTag)
	_, err := s.Service.Events.Patch(s.CalendarID, ev.ID, &gcal.Event{Description: desc}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("tag event %s: %w", ev.ID, err)
	}
	return nil
}

// Remind adds an email reminder ReminderMinutes before the event unless
// one is already set. Existing overrides are kept.
func (s *GoogleSource) Remind(ctx context.Context, ev Event) error {
	item, err := s.Service.Events.Get(s.CalendarID, ev.ID).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("get event %s: %w", ev.ID, err)
	}
	reminders, changed := withEmailReminder(item.Reminders, ReminderMinutes)
	if !changed {
		return nil
	}
	_, err = s.Service.Events.Patch(s.CalendarID, ev.ID, &gcal.Event{Reminders: reminders}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("set reminder on event %s: %w", ev.ID, err)
	}
	return nil
}

// withEmailReminder returns r plus an email override at minutes, and
// whether that differs from r.
func withEmailReminder(r *gcal.EventReminders, minutes int64) (*gcal.EventReminders, bool) {
	out := &gcal.EventReminders{ForceSendFields: []string{"UseDefault"}}
	if r != nil {
		for _, o := range r.Overrides {
			if o != nil && o.Method == "email" && o.Minutes == minutes {
				return r, false
			}
		}
		out.Overrides = append(out.Overrides, r.Overrides...)
	}
	out.Overrides = append(out.Overrides, &gcal.EventReminder{Method: "email", Minutes: minutes})
	return out, true
}

// FromGoogleEvent converts an API event. All-day events and events
// without a parsable start are reported as not ok.
func FromGoogleEvent(item *gcal.Event) (Event, bool) {
	if item == nil || item.Id == "" || item.Start == nil || item.Start.DateTime == "" {
		return Event{}, false
	}
	start, err := time.Parse(time.RFC3339, item.Start.DateTime)
	if err != nil {
		return Event{}, false
	}

	ev := Event{
		ID:          item.Id,
		Title:       item.Summary,
		Description: item.Description,
		Start:       start,
	}
	if item.Organizer != nil {
		ev.OrganizerEmail = item.Organizer.Email
	}
	for _, a := range item.Attendees {
		if a == nil || a.Resource {
			continue
		}
		ev.Attendees = append(ev.Attendees, Attendee{
			Email:          a.Email,
			DisplayName:    a.DisplayName,
			Self:           a.Self,
			Organizer:      a.Organizer,
			ResponseStatus: a.ResponseStatus,
		})
	}
	return ev, true
}
