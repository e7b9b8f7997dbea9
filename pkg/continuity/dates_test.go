package continuity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pberrors "github.com/otherjamesbrown/prepbrief/pkg/errors"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		raw  string
		want time.Time
	}{
		{"05/01/2024", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)},
		{"2024-05-01", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)},
		{"2024-05-01 10:30:00", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)},
		{"25/12/2023", time.Date(2023, 12, 25, 0, 0, 0, 0, time.UTC)},
		{"25-12-2023", time.Date(2023, 12, 25, 0, 0, 0, 0, time.UTC)},
		{"05/01/24", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)},
		{"  03/04/2024 (moved)", time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)},
		{"5/1/2024", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)},
		{"12/5/2023", time.Date(2023, 12, 5, 0, 0, 0, 0, time.UTC)},
		{"2024-5-1", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)},
		{"5/1/24", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)},
		{"25/1/2024", time.Date(2024, 1, 25, 0, 0, 0, 0, time.UTC)},
		{"7-3-2024", time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseDate(tt.raw, nil)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}
}

func TestParseDate_Invalid(t *testing.T) {
	for _, raw := range []string{"", "   ", "next tuesday", "2024/13/45", "TBD"} {
		t.Run(raw, func(t *testing.T) {
			_, err := ParseDate(raw, nil)
			require.Error(t, err)
			assert.True(t, pberrors.IsValidation(err))
		})
	}
}

func TestParseDate_CustomFormats(t *testing.T) {
	got, err := ParseDate("1 May 2024", []string{"2 Jan 2006"})
	require.Error(t, err, "only the first field is parsed")

	got, err = ParseDate("01.05.2024", []string{"02.01.2006"})
	require.NoError(t, err)
	assert.Equal(t, time.May, got.Month())
}

func TestBeforeDay(t *testing.T) {
	meeting := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)

	assert.True(t, beforeDay(time.Date(2024, 5, 9, 0, 0, 0, 0, time.UTC), meeting))
	assert.False(t, beforeDay(time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC), meeting), "same day is not history")
	assert.False(t, beforeDay(time.Date(2024, 5, 11, 0, 0, 0, 0, time.UTC), meeting))
}
