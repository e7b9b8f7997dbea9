package continuity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otherjamesbrown/prepbrief/pkg/brand"
	"github.com/otherjamesbrown/prepbrief/pkg/identity"
)

func testPeople() *identity.Builder {
	return identity.NewBuilder(
		[]string{"nobroker.in"},
		identity.NewExclusionSet("brand.vmeet@nobroker.in", "pia.brand"),
		[]string{"nbh sales", "brand representative"},
	)
}

func testClassifier() *Classifier {
	return NewClassifier(brand.NewMatcher(0), testPeople(), 0, nil, nil)
}

func testMeeting(t *testing.T) Meeting {
	t.Helper()
	return Meeting{
		Date: time.Date(2024, 6, 10, 15, 0, 0, 0, time.UTC),
		Attendees: testPeople().Build([]identity.Participant{
			{DisplayName: "Shubham Dakhane", Email: "shubham.dakhane@nobroker.in"},
			{Email: "brand.vmeet@nobroker.in"},
			{DisplayName: "Meera Iyer", Email: "meera@acme.com"},
		}),
	}
}

func TestClassify_NoHistory(t *testing.T) {
	res := testClassifier().Classify("Acme", testMeeting(t), nil)

	assert.Equal(t, StateNoHistory, res.State)
	assert.False(t, res.IsDirectFollowUp)
	assert.False(t, res.HasOtherThreads)
	assert.Empty(t, res.Continuity)
	assert.Empty(t, res.Alerts)
}

func TestClassify_OtherBrandsIgnored(t *testing.T) {
	records := []Record{
		{Row: 2, BrandName: "Globex", MeetingDate: "not a date", InternalAttendees: "Shubham Dakhane"},
		{Row: 3, BrandName: "Acmeville", MeetingDate: "2024-05-01", InternalAttendees: "Shubham Dakhane"},
	}

	res := testClassifier().Classify("Acme", testMeeting(t), records)

	assert.Equal(t, StateNoHistory, res.State)
	assert.Empty(t, res.Skipped, "rows for other brands are dropped before date parsing")
}

func TestClassify_DirectFollowUp(t *testing.T) {
	records := []Record{
		{
			Row:               2,
			BrandName:         "Acme Corp",
			MeetingDate:       "05/01/2024",
			Discussion:        "Pricing for the pilot",
			InternalAttendees: "Shubham Chandrakant Dakhane, pia.brand",
			ExternalAttendees: "Meera Iyer (Brand Representative)",
		},
	}

	res := testClassifier().Classify("Acme", testMeeting(t), records)

	assert.Equal(t, StateResolved, res.State)
	assert.True(t, res.IsDirectFollowUp)
	assert.False(t, res.HasOtherThreads)
	require.Len(t, res.Continuity, 1)

	entry := res.Continuity[0]
	assert.Equal(t, 2, entry.Record.Row)
	assert.Equal(t, brand.TierWholeWord, entry.BrandTier)
	assert.Equal(t, []string{"Shubham Dakhane"}, entry.CommonInternal)
	assert.Equal(t, []string{"Meera Iyer"}, entry.CommonExternal)
}

func TestClassify_UnpaddedDateIsFollowUp(t *testing.T) {
	records := []Record{
		{Row: 2, BrandName: "Acme", MeetingDate: "5/1/2024", InternalAttendees: "Shubham Dakhane"},
	}

	res := testClassifier().Classify("Acme", testMeeting(t), records)

	assert.Equal(t, StateResolved, res.State)
	assert.True(t, res.IsDirectFollowUp)
	assert.Empty(t, res.Skipped)
	require.Len(t, res.Continuity, 1)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), res.Continuity[0].Date)
}

func TestClassify_DateOrderingGuard(t *testing.T) {
	records := []Record{
		{Row: 2, BrandName: "Acme", MeetingDate: "2024-06-10", InternalAttendees: "Shubham Dakhane"},
		{Row: 3, BrandName: "Acme", MeetingDate: "2024-07-01", InternalAttendees: "Ravi Kumar"},
		{Row: 4, BrandName: "Acme", MeetingDate: "someday", InternalAttendees: "Shubham Dakhane"},
		{Row: 5, BrandName: "Acme", MeetingDate: "2024-06-09", InternalAttendees: "Ravi Kumar"},
	}

	res := testClassifier().Classify("Acme", testMeeting(t), records)

	assert.Equal(t, StateResolved, res.State)
	assert.Empty(t, res.Continuity, "same-day and future rows never count as history")
	require.Len(t, res.Alerts, 1)
	assert.Equal(t, time.Date(2024, 6, 9, 0, 0, 0, 0, time.UTC), res.Alerts[0].Date)

	assert.Equal(t, []Skip{
		{Row: 2, Reason: SkipNotBefore, Value: "2024-06-10"},
		{Row: 3, Reason: SkipNotBefore, Value: "2024-07-01"},
		{Row: 4, Reason: SkipUnparsableDate, Value: "someday"},
	}, res.Skipped)
}

func TestClassify_OnlyFutureRowsIsNoHistory(t *testing.T) {
	records := []Record{
		{Row: 2, BrandName: "Acme", MeetingDate: "2024-06-11", InternalAttendees: "Shubham Dakhane"},
	}

	res := testClassifier().Classify("Acme", testMeeting(t), records)

	assert.Equal(t, StateNoHistory, res.State)
	assert.False(t, res.IsDirectFollowUp)
	assert.Len(t, res.Skipped, 1)
}

func TestClassify_Hybrid(t *testing.T) {
	records := []Record{
		{Row: 2, BrandName: "Acme", MeetingDate: "2024-05-01", Discussion: "our thread", InternalAttendees: "Shubham Dakhane"},
		{Row: 3, BrandName: "acme", MeetingDate: "2024-05-20", Discussion: "their thread", InternalAttendees: "Ravi Kumar & Priya Shah"},
	}

	res := testClassifier().Classify("Acme", testMeeting(t), records)

	assert.True(t, res.IsDirectFollowUp)
	assert.True(t, res.HasOtherThreads)
	require.Len(t, res.Continuity, 1)
	require.Len(t, res.Alerts, 1)
	assert.Equal(t, "our thread", res.Continuity[0].Record.Discussion)
	assert.Equal(t, []string{"Ravi Kumar", "Priya Shah"}, res.Alerts[0].InternalTeam)
}

func TestClassify_WindowKeepsMostRecent(t *testing.T) {
	records := []Record{
		{Row: 2, BrandName: "Acme", MeetingDate: "2024-01-01", InternalAttendees: "Shubham Dakhane"},
		{Row: 3, BrandName: "Acme", MeetingDate: "2024-04-01", InternalAttendees: "Ravi Kumar"},
		{Row: 4, BrandName: "Acme", MeetingDate: "2024-03-01", InternalAttendees: "Ravi Kumar"},
		{Row: 5, BrandName: "Acme", MeetingDate: "2024-05-01", InternalAttendees: "Ravi Kumar"},
	}

	res := testClassifier().Classify("Acme", testMeeting(t), records)

	assert.Equal(t, 4, res.Considered)
	assert.False(t, res.IsDirectFollowUp, "the only overlapping meeting is outside the window")
	require.Len(t, res.Alerts, 3)
	assert.Equal(t, time.May, res.Alerts[0].Date.Month())
	assert.Equal(t, time.April, res.Alerts[1].Date.Month())
	assert.Equal(t, time.March, res.Alerts[2].Date.Month())
}

func TestClassify_CustomWindow(t *testing.T) {
	c := testClassifier()
	c.Window = 5

	records := []Record{
		{Row: 2, BrandName: "Acme", MeetingDate: "2024-01-01", InternalAttendees: "Shubham Dakhane"},
		{Row: 3, BrandName: "Acme", MeetingDate: "2024-04-01", InternalAttendees: "Ravi Kumar"},
		{Row: 4, BrandName: "Acme", MeetingDate: "2024-03-01", InternalAttendees: "Ravi Kumar"},
		{Row: 5, BrandName: "Acme", MeetingDate: "2024-05-01", InternalAttendees: "Ravi Kumar"},
	}

	res := c.Classify("Acme", testMeeting(t), records)
	assert.True(t, res.IsDirectFollowUp)
	assert.True(t, res.HasOtherThreads)
}

func TestClassify_ExcludedAccountsNeverOverlap(t *testing.T) {
	meeting := Meeting{
		Date: time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC),
		Attendees: testPeople().Build([]identity.Participant{
			{DisplayName: "Brand Vmeet", Email: "brand.vmeet@nobroker.in"},
		}),
	}
	records := []Record{
		{Row: 2, BrandName: "Acme", MeetingDate: "2024-05-01", InternalAttendees: "brand.vmeet, pia.brand"},
	}

	res := testClassifier().Classify("Acme", meeting, records)

	assert.False(t, res.IsDirectFollowUp)
	assert.True(t, res.HasOtherThreads)
	require.Len(t, res.Alerts, 1)
	assert.Empty(t, res.Alerts[0].InternalTeam)
}

func TestClassify_DoesNotMutateRecords(t *testing.T) {
	records := []Record{
		{Row: 3, BrandName: "Acme", MeetingDate: "2024-03-01", InternalAttendees: "Ravi Kumar"},
		{Row: 2, BrandName: "Acme", MeetingDate: "2024-05-01", InternalAttendees: "Shubham Dakhane"},
	}
	snapshot := append([]Record(nil), records...)

	testClassifier().Classify("Acme", testMeeting(t), records)

	assert.Equal(t, snapshot, records)
}

func TestClassifier_ZeroValue(t *testing.T) {
	var c Classifier
	res := c.Classify("Acme", Meeting{Date: time.Now()}, []Record{
		{Row: 2, BrandName: "Acme", MeetingDate: "2020-01-01", InternalAttendees: "Ravi Kumar"},
	})

	assert.Equal(t, StateResolved, res.State)
	assert.True(t, res.HasOtherThreads)
}
