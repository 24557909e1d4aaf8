package mongo

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"skillswap/internal/domain/shared/errs"
	domainswap "skillswap/internal/domain/swap"
)

func TestMapWriteErrorClassifiesTransactionConflicts(t *testing.T) {
	transient := mongo.CommandError{Code: 251, Labels: []string{"TransientTransactionError"}}
	assert.ErrorIs(t, mapWriteError(transient), errs.ErrConflict)

	writeConflict := mongo.CommandError{Code: 112, Name: "WriteConflict"}
	assert.ErrorIs(t, mapWriteError(writeConflict), ErrConcurrentUpdate)

	other := errors.New("network down")
	assert.Equal(t, other, mapWriteError(other))
	assert.NoError(t, mapWriteError(nil))
}

func TestSwapDocumentKeepsVersionAndTimes(t *testing.T) {
	responded := time.Date(2026, 2, 3, 10, 0, 0, 0, time.UTC)
	swap := &domainswap.Swap{
		ID:               "s-1",
		RequesterID:      "alice",
		ReceiverID:       "bob",
		OfferedListingID: "l-guitar",
		OfferedSkill:     "Guitar",
		RequestedSkill:   "Spanish",
		Status:           domainswap.StatusAccepted,
		CreatedAt:        responded.Add(-time.Hour),
		UpdatedAt:        responded,
		RespondedAt:      &responded,
		Version:          4,
	}
	raw, err := bson.Marshal(newSwapDocument(swap))
	require.NoError(t, err)
	var doc swapDocument
	require.NoError(t, bson.Unmarshal(raw, &doc))

	got := doc.toAggregate()
	assert.Equal(t, swap.ID, got.ID)
	assert.Equal(t, int64(4), got.Version)
	assert.Equal(t, domainswap.StatusAccepted, got.Status)
	require.NotNil(t, got.RespondedAt)
	assert.True(t, responded.Equal(*got.RespondedAt))
	assert.Nil(t, got.CompletedAt)
}

func TestNameKeyIsCaseAndSpaceInsensitive(t *testing.T) {
	assert.Equal(t, nameKey(" Guitar "), nameKey("guitar"))
}
