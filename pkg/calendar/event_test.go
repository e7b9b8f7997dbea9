package calendar

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pberrors "github.com/otherjamesbrown/prepbrief/pkg/errors"
)

const singleEvent = `{
  "id": "evt-1",
  "title": "Acme x NoBrokerHood",
  "start": "2024-06-10T15:00:00+05:30",
  "organizer_email": "meera@acme.com",
  "attendees": [
    {"email": "brand.vmeet@nobroker.in"},
    {"email": "shubham.dakhane@nobroker.in", "display_name": "Shubham Dakhane"},
    {"email": "meera@acme.com", "display_name": "Meera Iyer", "organizer": true}
  ]
}`

func TestParseEvents_Single(t *testing.T) {
	events, err := ParseEvents([]byte(singleEvent))
	require.NoError(t, err)
	require.Len(t, events, 1)

	ev := events[0]
	assert.Equal(t, "evt-1", ev.ID)
	assert.Equal(t, time.Date(2024, 6, 10, 9, 30, 0, 0, time.UTC), ev.Start.UTC())
	assert.Len(t, ev.Attendees, 3)
	assert.True(t, ev.Attendees[2].Organizer)

	participants := ev.Participants()
	assert.Equal(t, "Shubham Dakhane", participants[1].DisplayName)
	assert.Equal(t, "shubham.dakhane@nobroker.in", participants[1].Email)
}

func TestParseEvents_Array(t *testing.T) {
	events, err := ParseEvents([]byte("[" + singleEvent + "," + singleEvent + "]"))
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestParseEvents_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"empty", "  "},
		{"not json", "meeting tomorrow"},
		{"missing id", `{"title": "x", "start": "2024-06-10T15:00:00Z"}`},
		{"missing start", `{"id": "evt-2"}`},
		{"bad element", `[{"id": "evt-3"}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseEvents([]byte(tt.data))
			require.Error(t, err)
			assert.True(t, pberrors.IsValidation(err))
		})
	}
}

func TestLoadEventFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "event.json")
	require.NoError(t, os.WriteFile(path, []byte(singleEvent), 0600))

	events, err := LoadEventFile(path)
	require.NoError(t, err)
	assert.Len(t, events, 1)

	_, err = LoadEventFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestIsTagged(t *testing.T) {
	assert.True(t, IsTagged("Agenda\n"+ProcessedTag))
	assert.False(t, IsTagged("Agenda"))
	assert.False(t, IsTagged(""))
}
