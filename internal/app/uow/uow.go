package uow

import (
	"context"
	"errors"
	"time"

	"skillswap/internal/app/outbox"
	domainchat "skillswap/internal/domain/chat"
	domainlistings "skillswap/internal/domain/listings"
	domainmeeting "skillswap/internal/domain/meeting"
	domainnotification "skillswap/internal/domain/notification"
	domainrating "skillswap/internal/domain/rating"
	domainswap "skillswap/internal/domain/swap"
	domainuser "skillswap/internal/domain/user"
)

// UnitOfWork coordinates repositories inside a transaction boundary. Outbox
// records written through it commit or roll back with the domain rows.
type UnitOfWork interface {
	Users() domainuser.Repository
	Listings() domainlistings.Repository
	Swaps() domainswap.Repository
	Chats() domainchat.Repository
	Messages() domainchat.MessageRepository
	Meetings() domainmeeting.Repository
	Notifications() domainnotification.Repository
	Ratings() domainrating.Repository
	Totals() TotalsReader
	Outbox() outbox.Outbox

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Totals are platform-wide counts for the operator dashboard. Users counts
// active accounts only.
type Totals struct {
	Users            int
	BannedUsers      int
	Listings         int
	Swaps            int
	PendingSwaps     int
	CompletedSwaps   int
	Meetings         int
	UpcomingMeetings int
	Ratings          int
	AverageRating    float64
}

type TotalsReader interface {
	Totals(ctx context.Context, now time.Time) (Totals, error)
}

// UoWFactory starts unit of work instances.
type UoWFactory interface {
	Begin(ctx context.Context, opts TxOptions) (UnitOfWork, error)
}

// TxOptions configure transaction boundaries.
type TxOptions struct {
	ReadOnly bool
}

// ErrNoFactory is returned when no unit is in scope and none can be opened.
var ErrNoFactory = errors.New("uow: no unit in context and no factory")

type unitKey struct{}

// Current returns the unit opened by an enclosing Begin, if any.
func Current(ctx context.Context) (UnitOfWork, bool) {
	unit, ok := ctx.Value(unitKey{}).(UnitOfWork)
	return unit, ok
}

// Begin opens a unit and returns a context carrying it, plus a rollback func
// that is safe to call after a successful Commit.
func Begin(ctx context.Context, factory UoWFactory, opts TxOptions) (UnitOfWork, context.Context, func(), error) {
	if factory == nil {
		return nil, ctx, nil, ErrNoFactory
	}
	unit, err := factory.Begin(ctx, opts)
	if err != nil {
		return nil, ctx, nil, err
	}
	if sessioned, ok := unit.(interface {
		InjectContext(context.Context) context.Context
	}); ok {
		ctx = sessioned.InjectContext(ctx)
	}
	ctx = context.WithValue(ctx, unitKey{}, unit)
	return unit, ctx, func() { _ = unit.Rollback(ctx) }, nil
}
