package continuity

import (
	"fmt"
	"strings"
	"time"

	pberrors "github.com/otherjamesbrown/prepbrief/pkg/errors"
)

// DefaultDateFormats are the meeting date layouts accepted from the
// history store, tried in order. Month-first wins for ambiguous dates such
// as 03/04/2024. Single-digit months and days are accepted as well as
// zero-padded ones.
var DefaultDateFormats = []string{
	"1/2/2006",
	"2006-1-2",
	"2/1/2006",
	"2-1-2006",
	"1/2/06",
}

// ParseDate parses a free-text meeting date. Only the first
// whitespace-separated field is considered, so trailing times or notes
// ("2024-05-01 10:30", "05/01/2024 (rescheduled)") are ignored.
func ParseDate(raw string, formats []string) (time.Time, error) {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return time.Time{}, fmt.Errorf("%w: empty meeting date", pberrors.ErrValidation)
	}
	if len(formats) == 0 {
		formats = DefaultDateFormats
	}

	value := fields[0]
	for _, layout := range formats {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unrecognised meeting date %q", pberrors.ErrValidation, raw)
}

// day truncates t to midnight UTC of its own calendar day.
func day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// beforeDay reports whether record falls on a calendar day strictly before
// the meeting's.
func beforeDay(record, meeting time.Time) bool {
	return day(record).Before(day(meeting))
}
