package meeting

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skillswap/internal/domain/shared/errs"
)

var testNow = time.Date(2026, 5, 4, 18, 0, 0, 0, time.UTC)

func scheduled(t *testing.T) *Meeting {
	t.Helper()
	at := testNow.Add(24 * time.Hour)
	m, err := Schedule(ScheduleParams{
		ID:          "m-1",
		ChatID:      "chat-1",
		OrganizerID: "bob",
		Type:        TypeScheduled,
		Title:       " Lesson 1 ",
		ScheduledAt: &at,
		Room:        Room{ID: "room-1", URL: "https://meet.example/room-1"},
		Now:         testNow,
	})
	require.NoError(t, err)
	return m
}

func TestScheduleDefaults(t *testing.T) {
	m := scheduled(t)
	assert.Equal(t, StatusScheduled, m.Status)
	assert.Equal(t, "Lesson 1", m.Title)
	assert.Equal(t, DefaultDurationMinutes, m.DurationMinutes)
	assert.Equal(t, "room-1", m.RoomID)
	assert.Nil(t, m.StartedAt)
	evs := m.PendingEvents()
	require.Len(t, evs, 1)
	assert.Equal(t, "meeting.scheduled", evs[0].EventName())
}

func TestInstantMeetingStartsOngoing(t *testing.T) {
	m, err := Schedule(ScheduleParams{ID: "m-2", ChatID: "chat-1", OrganizerID: "alice", Type: TypeInstant, Title: "Quick call", Now: testNow})
	require.NoError(t, err)
	assert.Equal(t, StatusOngoing, m.Status)
	require.NotNil(t, m.StartedAt)
	assert.Equal(t, testNow, *m.StartedAt)
	assert.ErrorIs(t, m.Start("alice", testNow), errs.ErrInvalidState)
}

func TestScheduleValidation(t *testing.T) {
	_, err := Schedule(ScheduleParams{Type: TypeScheduled, Title: "x", Now: testNow})
	assert.ErrorIs(t, err, ErrScheduleRequired)

	_, err = Schedule(ScheduleParams{Type: TypeInstant, Title: "  ", Now: testNow})
	assert.ErrorIs(t, err, ErrTitleRequired)

	_, err = Schedule(ScheduleParams{Type: TypeInstant, Title: "x", DurationMinutes: MaxDurationMinutes + 1, Now: testNow})
	assert.ErrorIs(t, err, errs.ErrValidation)

	_, err = Schedule(ScheduleParams{Type: "webinar", Title: "x", Now: testNow})
	assert.ErrorIs(t, err, ErrInvalidType)
}

func TestLifecycle(t *testing.T) {
	m := scheduled(t)

	assert.ErrorIs(t, m.Start("alice", testNow), ErrNotOrganizer)
	assert.Equal(t, StatusScheduled, m.Status)
	assert.ErrorIs(t, m.End("bob", testNow), errs.ErrInvalidState)

	require.NoError(t, m.Start("bob", testNow))
	assert.Equal(t, StatusOngoing, m.Status)

	assert.ErrorIs(t, m.End("alice", testNow), errs.ErrForbidden)
	require.NoError(t, m.End("bob", testNow.Add(time.Hour)))
	assert.Equal(t, StatusCompleted, m.Status)
	require.NotNil(t, m.EndedAt)

	assert.ErrorIs(t, m.Cancel("bob", testNow), errs.ErrInvalidState)
}

func TestCancelFromScheduledOrOngoing(t *testing.T) {
	m := scheduled(t)
	require.NoError(t, m.Cancel("bob", testNow))
	assert.Equal(t, StatusCancelled, m.Status)

	m = scheduled(t)
	require.NoError(t, m.Start("bob", testNow))
	assert.ErrorIs(t, m.Cancel("alice", testNow), ErrNotOrganizer)
	require.NoError(t, m.Cancel("bob", testNow))
	assert.Equal(t, StatusCancelled, m.Status)
}

func TestParseTypeAndAnnouncement(t *testing.T) {
	typ, err := ParseType("")
	require.NoError(t, err)
	assert.Equal(t, TypeInstant, typ)
	typ, err = ParseType("SCHEDULED")
	require.NoError(t, err)
	assert.Equal(t, TypeScheduled, typ)

	assert.Equal(t, "bob started the meeting: Lesson 1", StartAnnouncement("bob", "Lesson 1"))
}

func TestUpcoming(t *testing.T) {
	m := scheduled(t)
	assert.True(t, m.Upcoming(testNow))
	assert.False(t, m.Upcoming(testNow.Add(48*time.Hour)))

	require.NoError(t, m.Start("bob", testNow))
	assert.False(t, m.Upcoming(testNow))
}
