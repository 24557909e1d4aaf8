package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"

	appoutbox "skillswap/internal/app/outbox"
	"skillswap/internal/app/uow"
	domainchat "skillswap/internal/domain/chat"
	domainlistings "skillswap/internal/domain/listings"
	domainmeeting "skillswap/internal/domain/meeting"
	domainnotification "skillswap/internal/domain/notification"
	domainrating "skillswap/internal/domain/rating"
	"skillswap/internal/domain/shared/errs"
	domainswap "skillswap/internal/domain/swap"
	domainuser "skillswap/internal/domain/user"
)

// ErrConcurrentUpdate marks lost versioned writes and transaction write
// conflicts; the command pipeline retries on it.
var ErrConcurrentUpdate = fmt.Errorf("%w: mongo: concurrent update detected", errs.ErrConflict)

var ErrUnitOfWorkNotConfigured = errors.New("mongo: unit of work factory missing database")

// Factory wires Mongo transactions into the generic UnitOfWork interface.
// Outbox is the session-aware outbox collection; it may be nil when the
// relay is disabled.
type Factory struct {
	DB     *mongo.Database
	Outbox appoutbox.Outbox
}

// Begin starts a MongoDB session/transaction.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.DB == nil {
		return nil, ErrUnitOfWorkNotConfigured
	}
	session, err := f.DB.Client().StartSession()
	if err != nil {
		return nil, err
	}
	txnOpts := options.Transaction().SetReadConcern(readconcern.Snapshot()).SetWriteConcern(f.DB.WriteConcern())
	if opts.ReadOnly {
		txnOpts = txnOpts.SetReadConcern(readconcern.Majority())
	}
	if err := session.StartTransaction(txnOpts); err != nil {
		session.EndSession(ctx)
		return nil, err
	}
	return &Unit{db: f.DB, session: session, outbox: f.Outbox}, nil
}

type Unit struct {
	db      *mongo.Database
	session mongo.Session
	outbox  appoutbox.Outbox
	done    bool
}

func (u *Unit) Users() domainuser.Repository {
	return userRepo{u.db.Collection(colUsers)}
}

func (u *Unit) Listings() domainlistings.Repository {
	return listingRepo{u.db.Collection(colListings)}
}

func (u *Unit) Swaps() domainswap.Repository {
	return swapRepo{db: u.db}
}

func (u *Unit) Chats() domainchat.Repository {
	return chatRepo{db: u.db}
}

func (u *Unit) Messages() domainchat.MessageRepository {
	return messageRepo{db: u.db}
}

func (u *Unit) Meetings() domainmeeting.Repository {
	return meetingRepo{u.db.Collection(colMeetings)}
}

func (u *Unit) Notifications() domainnotification.Repository {
	return notificationRepo{u.db.Collection(colNotifications)}
}

func (u *Unit) Ratings() domainrating.Repository {
	return ratingRepo{u.db.Collection(colRatings)}
}

func (u *Unit) Totals() uow.TotalsReader {
	return totalsReader{db: u.db}
}

func (u *Unit) Outbox() appoutbox.Outbox {
	if u.outbox == nil {
		return discardOutbox{}
	}
	return u.outbox
}

func (u *Unit) Commit(ctx context.Context) error {
	if u.done {
		return errors.New("mongo: unit of work already finished")
	}
	u.done = true
	defer u.session.EndSession(ctx)
	if err := u.session.CommitTransaction(ctx); err != nil {
		return mapWriteError(err)
	}
	return nil
}

// Rollback aborts the transaction unless Commit already ended it.
func (u *Unit) Rollback(ctx context.Context) error {
	if u.done {
		return nil
	}
	u.done = true
	defer u.session.EndSession(ctx)
	return u.session.AbortTransaction(ctx)
}

// InjectContext ensures Mongo session is available in context for downstream repos.
func (u *Unit) InjectContext(ctx context.Context) context.Context {
	return mongo.NewSessionContext(ctx, u.session)
}

type discardOutbox struct{}

func (discardOutbox) Add(context.Context, appoutbox.EventRecord) error { return nil }

// mapWriteError folds transaction write conflicts into ErrConcurrentUpdate.
func mapWriteError(err error) error {
	if err == nil {
		return nil
	}
	var labeled mongo.LabeledError
	if errors.As(err, &labeled) && (labeled.HasErrorLabel("TransientTransactionError") || labeled.HasErrorLabel("UnknownTransactionCommitResult")) {
		return fmt.Errorf("%w: %v", ErrConcurrentUpdate, err)
	}
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) && cmdErr.Code == 112 {
		return fmt.Errorf("%w: %v", ErrConcurrentUpdate, err)
	}
	return err
}

var _ uow.UoWFactory = Factory{}
var _ uow.UnitOfWork = (*Unit)(nil)
