package swap

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skillswap/internal/domain/listings"
	"skillswap/internal/domain/shared/errs"
)

var testNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func listing(id, owner, name string) *listings.Listing {
	return &listings.Listing{ID: listings.ListingID(id), OwnerID: owner, Name: name, Direction: listings.Offered, Active: true}
}

func pendingSwap(t *testing.T) *Swap {
	t.Helper()
	s, err := Propose(ProposeParams{
		ID:        "swap-1",
		Requester: "alice",
		Receiver:  "bob",
		Offered:   listing("l-guitar", "alice", "Guitar"),
		Requested: listing("l-spanish", "bob", "Spanish"),
		Message:   "  weekly lessons?  ",
		Now:       testNow,
	})
	require.NoError(t, err)
	return s
}

func TestProposeCreatesPendingSwapWithSnapshots(t *testing.T) {
	s := pendingSwap(t)

	assert.Equal(t, StatusPending, s.Status)
	assert.Equal(t, "Guitar", s.OfferedSkill)
	assert.Equal(t, "Spanish", s.RequestedSkill)
	assert.Equal(t, "weekly lessons?", s.Message)
	assert.Nil(t, s.RespondedAt)

	evs := s.PendingEvents()
	require.Len(t, evs, 1)
	assert.Equal(t, "swap.proposed", evs[0].EventName())
	assert.Equal(t, "swap-1", evs[0].AggregateID())
}

func TestProposeValidation(t *testing.T) {
	guitar := listing("l-guitar", "alice", "Guitar")
	spanish := listing("l-spanish", "bob", "Spanish")
	inactive := listing("l-old", "bob", "Chess")
	inactive.Active = false

	cases := []struct {
		name      string
		requester string
		receiver  string
		offered   *listings.Listing
		requested *listings.Listing
		want      error
	}{
		{"self swap", "alice", "alice", guitar, listing("l-2", "alice", "Piano"), ErrSelfSwap},
		{"offered not owned", "alice", "bob", spanish, spanish, ErrOfferedNotOwned},
		{"requested not owned", "alice", "bob", guitar, guitar, ErrRequestedNotOwned},
		{"inactive listing", "alice", "bob", guitar, inactive, ErrListingInactive},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Propose(ProposeParams{ID: "x", Requester: tc.requester, Receiver: tc.receiver, Offered: tc.offered, Requested: tc.requested, Now: testNow})
			require.ErrorIs(t, err, tc.want)
			assert.ErrorIs(t, err, errs.ErrValidation)
		})
	}
}

func TestAcceptOnlyByReceiverFromPending(t *testing.T) {
	s := pendingSwap(t)
	s.ClearEvents()

	_, err := s.Accept("alice", testNow)
	require.ErrorIs(t, err, errs.ErrForbidden)

	changed, err := s.Accept("bob", testNow.Add(time.Minute))
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, StatusAccepted, s.Status)
	require.NotNil(t, s.RespondedAt)
	assert.Equal(t, testNow.Add(time.Minute), *s.RespondedAt)

	changed, err = s.Accept("bob", testNow.Add(2*time.Minute))
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Len(t, s.PendingEvents(), 1)
}

func TestTerminalStatesRejectTransitions(t *testing.T) {
	rejected := pendingSwap(t)
	require.NoError(t, rejected.Reject("bob", testNow))

	_, err := rejected.Accept("bob", testNow)
	assert.ErrorIs(t, err, errs.ErrInvalidState)
	assert.ErrorIs(t, rejected.Reject("bob", testNow), errs.ErrInvalidState)
	assert.ErrorIs(t, rejected.Cancel("alice", testNow), errs.ErrInvalidState)
	assert.ErrorIs(t, rejected.Complete(testNow), errs.ErrInvalidState)

	cancelled := pendingSwap(t)
	require.NoError(t, cancelled.Cancel("alice", testNow))
	assert.Equal(t, StatusCancelled, cancelled.Status)
	assert.True(t, cancelled.Status.Terminal())
}

func TestRoleChecksComeBeforeStateChecks(t *testing.T) {
	s := pendingSwap(t)
	_, err := s.Accept("bob", testNow)
	require.NoError(t, err)

	assert.ErrorIs(t, s.Cancel("bob", testNow), ErrNotRequester)
	assert.ErrorIs(t, s.Reject("alice", testNow), ErrNotReceiver)
	assert.ErrorIs(t, s.Cancel("alice", testNow), errs.ErrInvalidState)
}

func TestCompleteFromAcceptedOnly(t *testing.T) {
	s := pendingSwap(t)
	assert.ErrorIs(t, s.Complete(testNow), errs.ErrInvalidState)

	_, err := s.Accept("bob", testNow)
	require.NoError(t, err)
	require.NoError(t, s.Complete(testNow.Add(time.Hour)))
	assert.Equal(t, StatusCompleted, s.Status)
	require.NotNil(t, s.CompletedAt)
	assert.True(t, s.Status.Terminal())
}

func TestParticipantsHelpers(t *testing.T) {
	s := pendingSwap(t)
	assert.True(t, s.Involves("alice"))
	assert.True(t, s.Involves("bob"))
	assert.False(t, s.Involves("carol"))
	assert.False(t, s.Involves(""))
	assert.Equal(t, "bob", s.Counterpart("alice"))
	assert.Equal(t, "alice", s.Counterpart("bob"))
}

func TestParseStatus(t *testing.T) {
	st, err := ParseStatus(" Accepted ")
	require.NoError(t, err)
	assert.Equal(t, StatusAccepted, st)

	st, err = ParseStatus("")
	require.NoError(t, err)
	assert.Equal(t, Status(""), st)

	_, err = ParseStatus("done")
	assert.ErrorIs(t, err, errs.ErrValidation)
}
