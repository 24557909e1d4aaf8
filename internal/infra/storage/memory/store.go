package memory

import (
	"context"
	"errors"
	"sync"

	appoutbox "skillswap/internal/app/outbox"
	"skillswap/internal/app/uow"
	domainchat "skillswap/internal/domain/chat"
	domainlistings "skillswap/internal/domain/listings"
	domainmeeting "skillswap/internal/domain/meeting"
	domainnotification "skillswap/internal/domain/notification"
	domainrating "skillswap/internal/domain/rating"
	domainswap "skillswap/internal/domain/swap"
	domainuser "skillswap/internal/domain/user"
)

var ErrUnitClosed = errors.New("memory: unit of work already finished")

// Store is a process-local database. Write units hold the store lock for
// their whole lifetime and work on a copy that replaces the live state on
// Commit, so writers are serialized and rollbacks are free.
type Store struct {
	mu    sync.RWMutex
	state *state
}

func NewStore() *Store {
	return &Store{state: newState()}
}

type outboxRow struct {
	record      appoutbox.EventRecord
	state       string
	attempts    int
	nextAttempt int64
	claimedAt   int64
	lastError   string
}

type state struct {
	users         map[domainuser.ID]*domainuser.User
	usernames     map[string]domainuser.ID
	listings      map[domainlistings.ListingID]*domainlistings.Listing
	swaps         map[domainswap.SwapID]*domainswap.Swap
	swapKeys      map[domainswap.Key]domainswap.SwapID
	chats         map[domainchat.ChatID]*domainchat.Chat
	chatBySwap    map[domainswap.SwapID]domainchat.ChatID
	messages      map[domainchat.ChatID][]*domainchat.Message
	seq           int64
	meetings      map[domainmeeting.MeetingID]*domainmeeting.Meeting
	notifications map[domainnotification.NotificationID]*domainnotification.Notification
	ratings       map[domainrating.RatingID]*domainrating.Rating
	outbox        []*outboxRow
}

func newState() *state {
	return &state{
		users:         make(map[domainuser.ID]*domainuser.User),
		usernames:     make(map[string]domainuser.ID),
		listings:      make(map[domainlistings.ListingID]*domainlistings.Listing),
		swaps:         make(map[domainswap.SwapID]*domainswap.Swap),
		swapKeys:      make(map[domainswap.Key]domainswap.SwapID),
		chats:         make(map[domainchat.ChatID]*domainchat.Chat),
		chatBySwap:    make(map[domainswap.SwapID]domainchat.ChatID),
		messages:      make(map[domainchat.ChatID][]*domainchat.Message),
		meetings:      make(map[domainmeeting.MeetingID]*domainmeeting.Meeting),
		notifications: make(map[domainnotification.NotificationID]*domainnotification.Notification),
		ratings:       make(map[domainrating.RatingID]*domainrating.Rating),
	}
}

// clone copies the maps. Stored entities are never mutated in place, so the
// pointers can be shared between the copies.
func (s *state) clone() *state {
	out := newState()
	for k, v := range s.users {
		out.users[k] = v
	}
	for k, v := range s.usernames {
		out.usernames[k] = v
	}
	for k, v := range s.listings {
		out.listings[k] = v
	}
	for k, v := range s.swaps {
		out.swaps[k] = v
	}
	for k, v := range s.swapKeys {
		out.swapKeys[k] = v
	}
	for k, v := range s.chats {
		out.chats[k] = v
	}
	for k, v := range s.chatBySwap {
		out.chatBySwap[k] = v
	}
	for k, v := range s.messages {
		out.messages[k] = append([]*domainchat.Message(nil), v...)
	}
	out.seq = s.seq
	for k, v := range s.meetings {
		out.meetings[k] = v
	}
	for k, v := range s.notifications {
		out.notifications[k] = v
	}
	for k, v := range s.ratings {
		out.ratings[k] = v
	}
	out.outbox = make([]*outboxRow, len(s.outbox))
	for i, row := range s.outbox {
		cp := *row
		out.outbox[i] = &cp
	}
	return out
}

// Begin starts a unit. Read-only units share the live state under a read lock.
func (s *Store) Begin(_ context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if opts.ReadOnly {
		s.mu.RLock()
		return &Unit{store: s, st: s.state, readOnly: true}, nil
	}
	s.mu.Lock()
	return &Unit{store: s, st: s.state.clone()}, nil
}

// Unit implements uow.UnitOfWork over a Store.
type Unit struct {
	store    *Store
	st       *state
	readOnly bool
	done     bool
}

func (u *Unit) Users() domainuser.Repository { return userRepo{u} }

func (u *Unit) Listings() domainlistings.Repository { return listingRepo{u} }

func (u *Unit) Swaps() domainswap.Repository { return swapRepo{u} }

func (u *Unit) Chats() domainchat.Repository { return chatRepo{u} }

func (u *Unit) Messages() domainchat.MessageRepository { return messageRepo{u} }

func (u *Unit) Meetings() domainmeeting.Repository { return meetingRepo{u} }

func (u *Unit) Notifications() domainnotification.Repository { return notificationRepo{u} }

func (u *Unit) Ratings() domainrating.Repository { return ratingRepo{u} }

func (u *Unit) Totals() uow.TotalsReader { return totalsReader{u} }

func (u *Unit) Outbox() appoutbox.Outbox { return outboxWriter{u} }

func (u *Unit) Commit(context.Context) error {
	if u.done {
		return ErrUnitClosed
	}
	u.done = true
	if u.readOnly {
		u.store.mu.RUnlock()
		return nil
	}
	u.store.state = u.st
	u.store.mu.Unlock()
	return nil
}

// Rollback is safe to call after Commit.
func (u *Unit) Rollback(context.Context) error {
	if u.done {
		return nil
	}
	u.done = true
	if u.readOnly {
		u.store.mu.RUnlock()
		return nil
	}
	u.store.mu.Unlock()
	return nil
}

var errReadOnly = errors.New("memory: write in read-only unit")

func (u *Unit) writable() error {
	if u.done {
		return ErrUnitClosed
	}
	if u.readOnly {
		return errReadOnly
	}
	return nil
}

var _ uow.UoWFactory = (*Store)(nil)
var _ uow.UnitOfWork = (*Unit)(nil)
