package rating

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skillswap/internal/domain/shared/errs"
	"skillswap/internal/domain/swap"
)

var testNow = time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

func completedSwap() *swap.Swap {
	return &swap.Swap{ID: "swap-1", RequesterID: "alice", ReceiverID: "bob", Status: swap.StatusCompleted}
}

func TestNewRatesTheCounterpart(t *testing.T) {
	r, err := New(NewParams{ID: "r-1", Swap: completedSwap(), RaterID: "bob", Score: 4, Comment: "  patient teacher ", Now: testNow})
	require.NoError(t, err)
	assert.Equal(t, "alice", r.RateeID)
	assert.Equal(t, "patient teacher", r.Comment)

	evs := r.PendingEvents()
	require.Len(t, evs, 1)
	assert.Equal(t, "rating.submitted", evs[0].EventName())

	r, err = New(NewParams{ID: "r-2", Swap: completedSwap(), RaterID: "alice", Score: 5, Now: testNow})
	require.NoError(t, err)
	assert.Equal(t, "bob", r.RateeID)
}

func TestNewRejects(t *testing.T) {
	accepted := completedSwap()
	accepted.Status = swap.StatusAccepted

	cases := []struct {
		name   string
		params NewParams
		want   error
	}{
		{"stranger", NewParams{Swap: completedSwap(), RaterID: "carol", Score: 3}, errs.ErrForbidden},
		{"not completed", NewParams{Swap: accepted, RaterID: "alice", Score: 3}, errs.ErrInvalidState},
		{"score zero", NewParams{Swap: completedSwap(), RaterID: "alice", Score: 0}, ErrScoreOutOfRange},
		{"score six", NewParams{Swap: completedSwap(), RaterID: "alice", Score: 6}, ErrScoreOutOfRange},
		{"long comment", NewParams{Swap: completedSwap(), RaterID: "alice", Score: 3, Comment: strings.Repeat("x", 1001)}, ErrCommentTooLong},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.params)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestSummarize(t *testing.T) {
	assert.Equal(t, Summary{}, Summarize(nil))
	s := Summarize([]int{5, 4, 4})
	assert.Equal(t, 3, s.Count)
	assert.InDelta(t, 4.333, s.Average, 0.001)
	assert.Equal(t, 4.3, Round1(s.Average))
}
