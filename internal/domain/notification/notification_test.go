package notification

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skillswap/internal/domain/shared/errs"
)

func TestMarkReadOnlyByRecipient(t *testing.T) {
	now := time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC)
	n, err := New(CreateParams{ID: "n-1", RecipientID: "alice", Kind: KindSwapAccepted, Title: "Swap Request Accepted", Now: now})
	require.NoError(t, err)
	assert.False(t, n.Read)

	_, err = n.MarkRead("bob", now)
	assert.ErrorIs(t, err, errs.ErrNotFound)
	assert.False(t, n.Read)

	changed, err := n.MarkRead("alice", now.Add(time.Minute))
	require.NoError(t, err)
	assert.True(t, changed)
	require.NotNil(t, n.ReadAt)

	changed, err = n.MarkRead("alice", now.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, now.Add(time.Minute), *n.ReadAt)
}

func TestNewRequiresRecipientAndKind(t *testing.T) {
	_, err := New(CreateParams{Kind: KindSwapRejected})
	assert.ErrorIs(t, err, ErrRecipientRequired)
	_, err = New(CreateParams{RecipientID: "alice"})
	assert.ErrorIs(t, err, ErrKindRequired)
}
