package interaction

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func mustDay(t *testing.T, s string) Day {
	t.Helper()
	d, err := ParseDay(s)
	require.NoError(t, err)
	return d
}

func TestDay_RoundTrip(t *testing.T) {
	d := mustDay(t, "2024-03-10")
	assert.Equal(t, "2024-03-10", d.String())
	assert.Equal(t, "2024-03-11", d.AddDays(1).String())
	assert.Equal(t, 9, d.Since(mustDay(t, "2024-03-01")))
	assert.Equal(t, d, DayOf(at("2024-03-10T23:59:59Z"), time.UTC))
}

func TestDayOf_UsesLocation(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*3600)
	instant := at("2024-03-10T20:00:00Z")

	assert.Equal(t, "2024-03-10", DayOf(instant, time.UTC).String())
	assert.Equal(t, "2024-03-11", DayOf(instant, tokyo).String())
}

func TestAggregate_SplitsAcrossMidnight(t *testing.T) {
	sessions := []Session{
		{FriendID: "usr_a", Enter: at("2024-03-10T22:00:00Z"), Exit: at("2024-03-11T01:00:00Z")},
	}

	res := Aggregate(sessions, Options{})
	stats := res.Friends["usr_a"]
	require.NotNil(t, stats)

	assert.InDelta(t, 2.0, stats.DailyHours[mustDay(t, "2024-03-10")], 1e-9)
	assert.InDelta(t, 1.0, stats.DailyHours[mustDay(t, "2024-03-11")], 1e-9)
	assert.InDelta(t, 3.0, stats.TotalHours, 1e-9)
	assert.Equal(t, 1, stats.MeetCount, "a split session is still one meeting")
	assert.Equal(t, 1, stats.DailyMeets[mustDay(t, "2024-03-10")])
	assert.Equal(t, 0, stats.DailyMeets[mustDay(t, "2024-03-11")])
	assert.Equal(t, 2, stats.ActiveDays)
	assert.Equal(t, 2, res.TotalDays)
}

func TestAggregate_MultiDaySession(t *testing.T) {
	sessions := []Session{
		{FriendID: "usr_a", Enter: at("2024-03-10T12:00:00Z"), Exit: at("2024-03-12T06:00:00Z")},
	}

	stats := Aggregate(sessions, Options{}).Friends["usr_a"]

	assert.InDelta(t, 12.0, stats.DailyHours[mustDay(t, "2024-03-10")], 1e-9)
	assert.InDelta(t, 24.0, stats.DailyHours[mustDay(t, "2024-03-11")], 1e-9)
	assert.InDelta(t, 6.0, stats.DailyHours[mustDay(t, "2024-03-12")], 1e-9)
	assert.Len(t, stats.Days(), 3)
}

func TestAggregate_MalformedSessionsAreCountedNotFatal(t *testing.T) {
	sessions := []Session{
		{FriendID: "usr_a", Enter: at("2024-03-10T10:00:00Z"), Exit: at("2024-03-10T09:00:00Z")},
		{FriendID: "usr_a", Enter: at("2024-03-10T10:00:00Z"), Exit: at("2024-03-10T11:30:00Z")},
		{FriendID: "usr_b", Enter: at("2024-03-10T10:00:00Z"), Exit: at("2024-03-10T12:00:00Z")},
	}

	res := Aggregate(sessions, Options{})

	assert.Equal(t, 1, res.Malformed)
	require.Len(t, res.Errors, 1)
	assert.True(t, errors.Is(res.Errors[0], ErrMalformedSession))
	assert.InDelta(t, 1.5, res.Friends["usr_a"].TotalHours, 1e-9)
	assert.Equal(t, 1, res.Friends["usr_a"].MeetCount)
	assert.InDelta(t, 2.0, res.Friends["usr_b"].TotalHours, 1e-9)
}

func TestAggregate_ZeroLengthSessionIsMeetOnly(t *testing.T) {
	sessions := []Session{
		{FriendID: "usr_a", Enter: at("2024-03-10T10:00:00Z"), Exit: at("2024-03-10T10:00:00Z")},
	}

	stats := Aggregate(sessions, Options{}).Friends["usr_a"]

	assert.Equal(t, 1, stats.MeetCount)
	assert.Equal(t, 0, stats.InteractionCount)
	assert.Zero(t, stats.TotalHours)
	assert.False(t, stats.HasInteractions())
}

func TestAggregate_RestrictsToKnownFriends(t *testing.T) {
	sessions := []Session{
		{FriendID: "usr_a", Enter: at("2024-03-10T10:00:00Z"), Exit: at("2024-03-10T11:00:00Z")},
		{FriendID: "usr_stranger", Enter: at("2024-03-10T10:00:00Z"), Exit: at("2024-03-10T11:00:00Z")},
		{FriendID: "usr_self", Enter: at("2024-03-10T10:00:00Z"), Exit: at("2024-03-10T11:00:00Z")},
	}

	res := Aggregate(sessions, Options{
		Friends: []string{"usr_a", "usr_quiet", "usr_self"},
		Exclude: []string{"usr_self"},
	})

	assert.Equal(t, []string{"usr_a", "usr_quiet"}, res.IDs())
	assert.Equal(t, 2, res.Ignored)
	assert.Zero(t, res.Friends["usr_quiet"].TotalHours)
	assert.Equal(t, 1, res.Friends["usr_quiet"].TotalDays)
}

func TestAggregate_ObservationSpanUsesReference(t *testing.T) {
	sessions := []Session{
		{FriendID: "usr_a", Enter: at("2024-03-01T10:00:00Z"), Exit: at("2024-03-01T11:00:00Z")},
	}

	res := Aggregate(sessions, Options{Reference: at("2024-03-10T00:00:00Z")})

	assert.Equal(t, 10, res.TotalDays)
	assert.Equal(t, 10, res.Friends["usr_a"].TotalDays)
}

func TestDistinctDays(t *testing.T) {
	sessions := []Session{
		{Enter: at("2024-03-10T22:00:00Z"), Exit: at("2024-03-11T01:00:00Z")},
		{Enter: at("2024-03-11T10:00:00Z"), Exit: at("2024-03-11T11:00:00Z")},
		{Enter: at("2024-03-15T10:00:00Z"), Exit: at("2024-03-15T09:00:00Z")},
	}

	assert.Equal(t, 2, DistinctDays(sessions, time.UTC))
}

func TestHoursWithin(t *testing.T) {
	sessions := []Session{
		{Enter: at("2024-03-01T10:00:00Z"), Exit: at("2024-03-01T12:00:00Z")},
		{Enter: at("2024-03-09T23:00:00Z"), Exit: at("2024-03-10T02:00:00Z")},
	}

	got := HoursWithin(sessions, at("2024-03-10T00:00:00Z"), at("2024-03-20T00:00:00Z"))
	assert.InDelta(t, 2.0, got, 1e-9)
}
