package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skillswap/internal/app/middleware"
	appoutbox "skillswap/internal/app/outbox"
	"skillswap/internal/app/uow"
	domainchat "skillswap/internal/domain/chat"
	domainlistings "skillswap/internal/domain/listings"
	domainmeeting "skillswap/internal/domain/meeting"
	domainrating "skillswap/internal/domain/rating"
	"skillswap/internal/domain/shared/errs"
	domainswap "skillswap/internal/domain/swap"
	domainuser "skillswap/internal/domain/user"
	infraoutbox "skillswap/internal/infra/outbox"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), filepath.Join(t.TempDir(), "skillswap.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// inUnit runs fn in a write unit and commits when fn succeeds.
func inUnit(t *testing.T, store *Store, fn func(ctx context.Context, unit uow.UnitOfWork) error) error {
	t.Helper()
	ctx := context.Background()
	unit, err := store.Begin(ctx, uow.TxOptions{})
	require.NoError(t, err)
	defer unit.Rollback(ctx)
	if err := fn(ctx, unit); err != nil {
		return err
	}
	return unit.Commit(ctx)
}

func seedSwap(t *testing.T, store *Store) *domainswap.Swap {
	t.Helper()
	now := time.Now()
	var s *domainswap.Swap
	require.NoError(t, inUnit(t, store, func(ctx context.Context, unit uow.UnitOfWork) error {
		offered, err := domainlistings.NewListing(domainlistings.CreateParams{ID: "l-guitar", OwnerID: "alice", Name: "Guitar", Direction: domainlistings.Offered, Now: now})
		require.NoError(t, err)
		requested, err := domainlistings.NewListing(domainlistings.CreateParams{ID: "l-spanish", OwnerID: "bob", Name: "Spanish", Direction: domainlistings.Offered, Now: now})
		require.NoError(t, err)
		require.NoError(t, unit.Listings().Save(ctx, offered))
		require.NoError(t, unit.Listings().Save(ctx, requested))
		s, err = domainswap.Propose(domainswap.ProposeParams{
			ID: "s-1", Requester: "alice", Receiver: "bob", Offered: offered, Requested: requested, Now: now,
		})
		require.NoError(t, err)
		return unit.Swaps().Save(ctx, s)
	}))
	return s
}

func TestUserRoundTripAndUsernameUniqueness(t *testing.T) {
	store := openTestStore(t)
	now := time.Now()
	alice, err := domainuser.NewUser(domainuser.CreateParams{ID: "u-1", Username: "Alice", Email: "a@example.test", PasswordHash: "hash", CreatedAt: now})
	require.NoError(t, err)
	require.NoError(t, inUnit(t, store, func(ctx context.Context, unit uow.UnitOfWork) error {
		return unit.Users().Save(ctx, alice)
	}))

	other, err := domainuser.NewUser(domainuser.CreateParams{ID: "u-2", Username: "alice", Email: "b@example.test", PasswordHash: "hash", CreatedAt: now})
	require.NoError(t, err)
	err = inUnit(t, store, func(ctx context.Context, unit uow.UnitOfWork) error {
		return unit.Users().Save(ctx, other)
	})
	assert.ErrorIs(t, err, domainuser.ErrUsernameTaken)

	require.NoError(t, inUnit(t, store, func(ctx context.Context, unit uow.UnitOfWork) error {
		got, err := unit.Users().ByUsername(ctx, "ALICE")
		require.NoError(t, err)
		assert.Equal(t, domainuser.ID("u-1"), got.ID)
		assert.Equal(t, []domainuser.Role{domainuser.RoleMember}, got.Roles)
		assert.True(t, got.Available())
		assert.WithinDuration(t, now, got.CreatedAt, time.Microsecond)
		return nil
	}))
}

func TestSwapSaveIsVersionedAndKeyed(t *testing.T) {
	store := openTestStore(t)
	s := seedSwap(t, store)
	assert.Equal(t, int64(1), s.Version)

	err := inUnit(t, store, func(ctx context.Context, unit uow.UnitOfWork) error {
		dup := *s
		dup.ID = "s-2"
		dup.Version = 0
		return unit.Swaps().Save(ctx, &dup)
	})
	assert.ErrorIs(t, err, domainswap.ErrDuplicate)

	var stale *domainswap.Swap
	require.NoError(t, inUnit(t, store, func(ctx context.Context, unit uow.UnitOfWork) error {
		var err error
		stale, err = unit.Swaps().ByID(ctx, s.ID)
		return err
	}))
	require.NoError(t, inUnit(t, store, func(ctx context.Context, unit uow.UnitOfWork) error {
		fresh, err := unit.Swaps().ByID(ctx, s.ID)
		require.NoError(t, err)
		_, err = fresh.Accept("bob", time.Now())
		require.NoError(t, err)
		return unit.Swaps().Save(ctx, fresh)
	}))
	err = inUnit(t, store, func(ctx context.Context, unit uow.UnitOfWork) error {
		require.NoError(t, stale.Reject("bob", time.Now()))
		return unit.Swaps().Save(ctx, stale)
	})
	assert.ErrorIs(t, err, errs.ErrConflict)

	require.NoError(t, inUnit(t, store, func(ctx context.Context, unit uow.UnitOfWork) error {
		got, err := unit.Swaps().FindByKey(ctx, s.Key())
		require.NoError(t, err)
		assert.Equal(t, domainswap.StatusAccepted, got.Status)
		assert.Equal(t, int64(2), got.Version)
		assert.NotNil(t, got.RespondedAt)
		list, err := unit.Swaps().ListByParticipant(ctx, domainswap.ListParams{UserID: "bob", Role: domainswap.RoleReceiver})
		require.NoError(t, err)
		assert.Len(t, list, 1)
		list, err = unit.Swaps().ListByParticipant(ctx, domainswap.ListParams{UserID: "bob", Role: domainswap.RoleRequester})
		require.NoError(t, err)
		assert.Empty(t, list)
		return nil
	}))
}

func TestChatGetOrCreateAndCascade(t *testing.T) {
	store := openTestStore(t)
	s := seedSwap(t, store)
	now := time.Now()

	var first *domainchat.Chat
	require.NoError(t, inUnit(t, store, func(ctx context.Context, unit uow.UnitOfWork) error {
		c, created, err := unit.Chats().GetOrCreate(ctx, &domainchat.Chat{ID: "c-1", SwapID: s.ID, CreatedAt: now})
		require.NoError(t, err)
		assert.True(t, created)
		first = c
		again, created, err := unit.Chats().GetOrCreate(ctx, &domainchat.Chat{ID: "c-2", SwapID: s.ID, CreatedAt: now})
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, first.ID, again.ID)

		for i, content := range []string{"one", "two", "three"} {
			msg := &domainchat.Message{ID: domainchat.MessageID(content), ChatID: c.ID, SenderID: "alice", Kind: domainchat.KindUser, Content: content, CreatedAt: now.Add(time.Duration(i) * time.Millisecond)}
			require.NoError(t, unit.Messages().Append(ctx, msg))
			assert.Positive(t, msg.Seq)
		}
		m, err := domainmeeting.Schedule(domainmeeting.ScheduleParams{ID: "m-1", ChatID: c.ID, OrganizerID: "alice", Type: domainmeeting.TypeInstant, Title: "Call", Now: now})
		require.NoError(t, err)
		return unit.Meetings().Save(ctx, m)
	}))

	require.NoError(t, inUnit(t, store, func(ctx context.Context, unit uow.UnitOfWork) error {
		msgs, err := unit.Messages().List(ctx, first.ID, domainchat.ListParams{})
		require.NoError(t, err)
		require.Len(t, msgs, 3)
		assert.Equal(t, "one", msgs[0].Content)
		assert.Equal(t, "three", msgs[2].Content)

		after, err := unit.Messages().List(ctx, first.ID, domainchat.ListParams{AfterSeq: msgs[0].Seq, Limit: 1})
		require.NoError(t, err)
		require.Len(t, after, 1)
		assert.Equal(t, "two", after[0].Content)

		latest, err := unit.Messages().Latest(ctx, first.ID)
		require.NoError(t, err)
		assert.Equal(t, "three", latest.Content)
		return nil
	}))

	require.NoError(t, inUnit(t, store, func(ctx context.Context, unit uow.UnitOfWork) error {
		return unit.Swaps().Delete(ctx, s.ID)
	}))
	require.NoError(t, inUnit(t, store, func(ctx context.Context, unit uow.UnitOfWork) error {
		_, err := unit.Chats().ByID(ctx, first.ID)
		assert.ErrorIs(t, err, domainchat.ErrNotFound)
		_, err = unit.Meetings().ByID(ctx, "m-1")
		assert.ErrorIs(t, err, domainmeeting.ErrNotFound)
		n, err := unit.Messages().Count(ctx, first.ID)
		require.NoError(t, err)
		assert.Zero(t, n)
		_, err = unit.Listings().ByID(ctx, "l-guitar")
		assert.NoError(t, err, "listings outlive swaps")
		return nil
	}))
}

func TestListingDeleteLeavesSwap(t *testing.T) {
	store := openTestStore(t)
	s := seedSwap(t, store)
	require.NoError(t, inUnit(t, store, func(ctx context.Context, unit uow.UnitOfWork) error {
		return unit.Listings().Delete(ctx, s.OfferedListingID)
	}))
	require.NoError(t, inUnit(t, store, func(ctx context.Context, unit uow.UnitOfWork) error {
		got, err := unit.Swaps().ByID(ctx, s.ID)
		require.NoError(t, err)
		assert.Equal(t, "Guitar", got.OfferedSkill)
		found, err := unit.Listings().Search(ctx, domainlistings.SearchParams{NameLike: "span"})
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, "Spanish", found[0].Name)
		return nil
	}))
}

func TestRollbackDiscardsOutbox(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	unit, err := store.Begin(ctx, uow.TxOptions{})
	require.NoError(t, err)
	require.NoError(t, unit.Outbox().Add(ctx, appoutbox.EventRecord{ID: "e-0", Name: "swap.proposed", Payload: []byte(`{}`)}))
	require.NoError(t, unit.Rollback(ctx))
	require.NoError(t, unit.Rollback(ctx))

	p, err := store.Claim(ctx, "w")
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestOutboxClaimLifecycle(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, inUnit(t, store, func(ctx context.Context, unit uow.UnitOfWork) error {
		return unit.Outbox().Add(ctx, appoutbox.EventRecord{
			ID: "e-1", Name: "swap.accepted", Aggregate: "s-1", Payload: []byte(`{"swap_id":"s-1"}`),
			OccurredAt: time.Now(), Headers: map[string]string{"trace": "x"},
		})
	}))

	p, err := store.Claim(ctx, "worker-1")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "swap.accepted", p.Name)
	assert.Equal(t, "swap", p.AggregateType())
	assert.Equal(t, "x", p.Headers["trace"])

	again, err := store.Claim(ctx, "worker-2")
	require.NoError(t, err)
	assert.Nil(t, again, "claimed records are leased")

	require.NoError(t, store.MarkFailed(ctx, p.ID, time.Now().Add(-time.Second), "broker down"))
	retry, err := store.Claim(ctx, "worker-2")
	require.NoError(t, err)
	require.NotNil(t, retry)
	assert.Equal(t, 1, retry.Attempts)

	require.NoError(t, store.MarkSent(ctx, retry.ID))
	done, err := store.Claim(ctx, "worker-2")
	require.NoError(t, err)
	assert.Nil(t, done)
}

func TestIdempotencyAndInbox(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	idem := store.Idempotency()

	_, ok, err := idem.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, idem.Save(ctx, middleware.IdempotencyRecord{Key: "k", Payload: []byte(`1`), OccurredAt: time.Now()}))
	require.NoError(t, idem.Save(ctx, middleware.IdempotencyRecord{Key: "k", Payload: []byte(`2`), OccurredAt: time.Now()}))
	rec, ok, err := idem.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte(`1`), rec.Payload)

	inbox := store.Inbox("swap-commands")
	seen, err := inbox.Seen(ctx, "evt-1")
	require.NoError(t, err)
	assert.False(t, seen)
	seen, err = inbox.Seen(ctx, "evt-1")
	require.NoError(t, err)
	assert.True(t, seen)
	seen, err = store.Inbox("other").Seen(ctx, "evt-1")
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, inbox.Forget(ctx, "evt-1"))
	seen, err = inbox.Seen(ctx, "evt-1")
	require.NoError(t, err)
	assert.False(t, seen)
}

var _ infraoutbox.ClaimStore = (*Store)(nil)

type stubResult struct {
	rows int64
	err  error
}

func (r stubResult) LastInsertId() (int64, error) { return 0, nil }
func (r stubResult) RowsAffected() (int64, error) { return r.rows, r.err }

func TestInsertedOneSurfacesDriverError(t *testing.T) {
	created, err := insertedOne(stubResult{rows: 1})
	require.NoError(t, err)
	assert.True(t, created)

	created, err = insertedOne(stubResult{})
	require.NoError(t, err)
	assert.False(t, created)

	boom := errors.New("rows affected unsupported")
	_, err = insertedOne(stubResult{err: boom})
	assert.ErrorIs(t, err, boom)
}

func TestRatingsSummaryAndTotals(t *testing.T) {
	store := openTestStore(t)
	s := seedSwap(t, store)
	now := time.Now()

	require.NoError(t, inUnit(t, store, func(ctx context.Context, unit uow.UnitOfWork) error {
		fresh, err := unit.Swaps().ByID(ctx, s.ID)
		require.NoError(t, err)
		_, err = fresh.Accept("bob", now)
		require.NoError(t, err)
		require.NoError(t, fresh.Complete(now))
		if err := unit.Swaps().Save(ctx, fresh); err != nil {
			return err
		}
		for i, rater := range []string{"alice", "bob"} {
			r, err := domainrating.New(domainrating.NewParams{
				ID: domainrating.RatingID("r-" + rater), Swap: fresh, RaterID: rater, Score: 5 - i, Now: now.Add(time.Duration(i) * time.Second),
			})
			require.NoError(t, err)
			if err := unit.Ratings().Save(ctx, r); err != nil {
				return err
			}
		}
		return nil
	}))

	err := inUnit(t, store, func(ctx context.Context, unit uow.UnitOfWork) error {
		return unit.Ratings().Save(ctx, &domainrating.Rating{ID: "r-again", SwapID: s.ID, RaterID: "alice", RateeID: "bob", Score: 1, CreatedAt: now})
	})
	assert.ErrorIs(t, err, domainrating.ErrAlreadyRated)

	require.NoError(t, inUnit(t, store, func(ctx context.Context, unit uow.UnitOfWork) error {
		list, err := unit.Ratings().ListForUser(ctx, "bob")
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, domainrating.RatingID("r-bob"), list[0].ID, "newest first")

		summary, err := unit.Ratings().SummaryFor(ctx, "bob")
		require.NoError(t, err)
		assert.Equal(t, domainrating.Summary{Count: 1, Average: 5}, summary)

		totals, err := unit.Totals().Totals(ctx, now)
		require.NoError(t, err)
		assert.Equal(t, 2, totals.Listings)
		assert.Equal(t, 1, totals.Swaps)
		assert.Equal(t, 1, totals.CompletedSwaps)
		assert.Zero(t, totals.PendingSwaps)
		assert.Equal(t, 2, totals.Ratings)
		assert.InDelta(t, 4.5, totals.AverageRating, 0.001)
		return nil
	}))

	require.NoError(t, inUnit(t, store, func(ctx context.Context, unit uow.UnitOfWork) error {
		return unit.Swaps().Delete(ctx, s.ID)
	}))
	require.NoError(t, inUnit(t, store, func(ctx context.Context, unit uow.UnitOfWork) error {
		list, err := unit.Ratings().ListForUser(ctx, "alice")
		require.NoError(t, err)
		assert.Empty(t, list, "ratings go with their swap")
		return nil
	}))
}
