package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

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

type userRepo struct{ u *Unit }

func (r userRepo) ByID(_ context.Context, id domainuser.ID) (*domainuser.User, error) {
	if user, ok := r.u.st.users[id]; ok {
		return cloneUser(user), nil
	}
	return nil, domainuser.ErrNotFound
}

func (r userRepo) ByUsername(_ context.Context, username string) (*domainuser.User, error) {
	id, ok := r.u.st.usernames[domainuser.NormalizeUsername(username)]
	if !ok {
		return nil, domainuser.ErrNotFound
	}
	return r.ByID(context.Background(), id)
}

func (r userRepo) Save(_ context.Context, user *domainuser.User) error {
	if err := r.u.writable(); err != nil {
		return err
	}
	if strings.TrimSpace(string(user.ID)) == "" {
		return domainuser.ErrIDRequired
	}
	key := domainuser.NormalizeUsername(user.Username)
	if owner, ok := r.u.st.usernames[key]; ok && owner != user.ID {
		return domainuser.ErrUsernameTaken
	}
	if prev, ok := r.u.st.users[user.ID]; ok {
		delete(r.u.st.usernames, domainuser.NormalizeUsername(prev.Username))
	}
	r.u.st.users[user.ID] = cloneUser(user)
	r.u.st.usernames[key] = user.ID
	return nil
}

func cloneUser(u *domainuser.User) *domainuser.User {
	cp := *u
	cp.Roles = append([]domainuser.Role(nil), u.Roles...)
	return &cp
}

type listingRepo struct{ u *Unit }

func (r listingRepo) ByID(_ context.Context, id domainlistings.ListingID) (*domainlistings.Listing, error) {
	if l, ok := r.u.st.listings[id]; ok {
		return cloneListing(l), nil
	}
	return nil, domainlistings.ErrNotFound
}

func (r listingRepo) FindByOwnerName(_ context.Context, ownerID, name string, direction domainlistings.Direction) (*domainlistings.Listing, error) {
	for _, l := range r.u.st.listings {
		if l.OwnerID == ownerID && l.Direction == direction && domainlistings.SameName(l.Name, name) {
			return cloneListing(l), nil
		}
	}
	return nil, domainlistings.ErrNotFound
}

func (r listingRepo) Search(ctx context.Context, params domainlistings.SearchParams) ([]*domainlistings.Listing, error) {
	opts := params.Normalized()
	out := make([]*domainlistings.Listing, 0)
	for _, l := range r.u.st.listings {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		if opts.OnlyActive && !l.Active {
			continue
		}
		if opts.OwnerID != "" && l.OwnerID != opts.OwnerID {
			continue
		}
		if opts.Direction != "" && l.Direction != opts.Direction {
			continue
		}
		if opts.NameLike != "" && !strings.Contains(strings.ToLower(l.Name), opts.NameLike) {
			continue
		}
		out = append(out, cloneListing(l))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (r listingRepo) Save(_ context.Context, l *domainlistings.Listing) error {
	if err := r.u.writable(); err != nil {
		return err
	}
	for _, other := range r.u.st.listings {
		if other.ID != l.ID && other.OwnerID == l.OwnerID && other.Direction == l.Direction && domainlistings.SameName(other.Name, l.Name) {
			return domainlistings.ErrDuplicate
		}
	}
	r.u.st.listings[l.ID] = cloneListing(l)
	return nil
}

func (r listingRepo) Delete(_ context.Context, id domainlistings.ListingID) error {
	if err := r.u.writable(); err != nil {
		return err
	}
	if _, ok := r.u.st.listings[id]; !ok {
		return domainlistings.ErrNotFound
	}
	delete(r.u.st.listings, id)
	return nil
}

func cloneListing(l *domainlistings.Listing) *domainlistings.Listing {
	cp := *l
	cp.ClearEvents()
	return &cp
}

type swapRepo struct{ u *Unit }

func (r swapRepo) ByID(_ context.Context, id domainswap.SwapID) (*domainswap.Swap, error) {
	if s, ok := r.u.st.swaps[id]; ok {
		return cloneSwap(s), nil
	}
	return nil, domainswap.ErrNotFound
}

func (r swapRepo) FindByKey(_ context.Context, key domainswap.Key) (*domainswap.Swap, error) {
	id, ok := r.u.st.swapKeys[key]
	if !ok {
		return nil, domainswap.ErrNotFound
	}
	return cloneSwap(r.u.st.swaps[id]), nil
}

func (r swapRepo) ListByParticipant(_ context.Context, params domainswap.ListParams) ([]*domainswap.Swap, error) {
	out := make([]*domainswap.Swap, 0)
	for _, s := range r.u.st.swaps {
		switch params.Role {
		case domainswap.RoleRequester:
			if s.RequesterID != params.UserID {
				continue
			}
		case domainswap.RoleReceiver:
			if s.ReceiverID != params.UserID {
				continue
			}
		default:
			if !s.Involves(params.UserID) {
				continue
			}
		}
		if params.Status != "" && s.Status != params.Status {
			continue
		}
		out = append(out, cloneSwap(s))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (r swapRepo) Save(_ context.Context, s *domainswap.Swap) error {
	if err := r.u.writable(); err != nil {
		return err
	}
	current, exists := r.u.st.swaps[s.ID]
	switch {
	case !exists && s.Version != 0:
		return errConflict("swap", string(s.ID))
	case !exists:
		if _, dup := r.u.st.swapKeys[s.Key()]; dup {
			return domainswap.ErrDuplicate
		}
	case current.Version != s.Version:
		return errConflict("swap", string(s.ID))
	}
	s.Version++
	r.u.st.swaps[s.ID] = cloneSwap(s)
	r.u.st.swapKeys[s.Key()] = s.ID
	return nil
}

// Delete cascades to the chat, its messages, meetings and ratings.
func (r swapRepo) Delete(_ context.Context, id domainswap.SwapID) error {
	if err := r.u.writable(); err != nil {
		return err
	}
	s, ok := r.u.st.swaps[id]
	if !ok {
		return domainswap.ErrNotFound
	}
	if chatID, ok := r.u.st.chatBySwap[id]; ok {
		for mid, m := range r.u.st.meetings {
			if m.ChatID == chatID {
				delete(r.u.st.meetings, mid)
			}
		}
		delete(r.u.st.messages, chatID)
		delete(r.u.st.chats, chatID)
		delete(r.u.st.chatBySwap, id)
	}
	for rid, rt := range r.u.st.ratings {
		if rt.SwapID == id {
			delete(r.u.st.ratings, rid)
		}
	}
	delete(r.u.st.swapKeys, s.Key())
	delete(r.u.st.swaps, id)
	return nil
}

func cloneSwap(s *domainswap.Swap) *domainswap.Swap {
	cp := *s
	cp.ClearEvents()
	return &cp
}

type chatRepo struct{ u *Unit }

func (r chatRepo) ByID(_ context.Context, id domainchat.ChatID) (*domainchat.Chat, error) {
	if c, ok := r.u.st.chats[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, domainchat.ErrNotFound
}

func (r chatRepo) BySwap(_ context.Context, swapID domainswap.SwapID) (*domainchat.Chat, error) {
	id, ok := r.u.st.chatBySwap[swapID]
	if !ok {
		return nil, domainchat.ErrNotFound
	}
	cp := *r.u.st.chats[id]
	return &cp, nil
}

func (r chatRepo) GetOrCreate(ctx context.Context, candidate *domainchat.Chat) (*domainchat.Chat, bool, error) {
	if existing, err := r.BySwap(ctx, candidate.SwapID); err == nil {
		return existing, false, nil
	}
	if err := r.u.writable(); err != nil {
		return nil, false, err
	}
	cp := *candidate
	r.u.st.chats[cp.ID] = &cp
	r.u.st.chatBySwap[cp.SwapID] = cp.ID
	out := cp
	return &out, true, nil
}

func (r chatRepo) ListAccepted(_ context.Context, userID string) ([]*domainchat.Chat, error) {
	out := make([]*domainchat.Chat, 0)
	for _, c := range r.u.st.chats {
		s, ok := r.u.st.swaps[c.SwapID]
		if !ok || s.Status != domainswap.StatusAccepted || !domainchat.CanAccess(s, userID) {
			continue
		}
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

type messageRepo struct{ u *Unit }

func (r messageRepo) Append(_ context.Context, msg *domainchat.Message) error {
	if err := r.u.writable(); err != nil {
		return err
	}
	if _, ok := r.u.st.chats[msg.ChatID]; !ok {
		return domainchat.ErrNotFound
	}
	r.u.st.seq++
	msg.Seq = r.u.st.seq
	cp := *msg
	r.u.st.messages[msg.ChatID] = append(r.u.st.messages[msg.ChatID], &cp)
	return nil
}

// List returns messages after params.AfterSeq ordered by (CreatedAt, Seq).
func (r messageRepo) List(_ context.Context, chatID domainchat.ChatID, params domainchat.ListParams) ([]*domainchat.Message, error) {
	params = params.Normalized()
	all := r.u.st.messages[chatID]
	out := make([]*domainchat.Message, 0, min(len(all), params.Limit))
	for _, m := range sortedMessages(all) {
		if m.Seq <= params.AfterSeq {
			continue
		}
		cp := *m
		out = append(out, &cp)
		if len(out) == params.Limit {
			break
		}
	}
	return out, nil
}

func (r messageRepo) Latest(_ context.Context, chatID domainchat.ChatID) (*domainchat.Message, error) {
	all := sortedMessages(r.u.st.messages[chatID])
	if len(all) == 0 {
		return nil, domainchat.ErrNoMessages
	}
	cp := *all[len(all)-1]
	return &cp, nil
}

func (r messageRepo) Count(_ context.Context, chatID domainchat.ChatID) (int, error) {
	return len(r.u.st.messages[chatID]), nil
}

func sortedMessages(in []*domainchat.Message) []*domainchat.Message {
	out := append([]*domainchat.Message(nil), in...)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].Seq < out[j].Seq
	})
	return out
}

type meetingRepo struct{ u *Unit }

func (r meetingRepo) ByID(_ context.Context, id domainmeeting.MeetingID) (*domainmeeting.Meeting, error) {
	if m, ok := r.u.st.meetings[id]; ok {
		return cloneMeeting(m), nil
	}
	return nil, domainmeeting.ErrNotFound
}

func (r meetingRepo) ListByChat(_ context.Context, chatID domainchat.ChatID) ([]*domainmeeting.Meeting, error) {
	out := make([]*domainmeeting.Meeting, 0)
	for _, m := range r.u.st.meetings {
		if m.ChatID == chatID {
			out = append(out, cloneMeeting(m))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (r meetingRepo) Save(_ context.Context, m *domainmeeting.Meeting) error {
	if err := r.u.writable(); err != nil {
		return err
	}
	current, exists := r.u.st.meetings[m.ID]
	switch {
	case !exists && m.Version != 0:
		return errConflict("meeting", string(m.ID))
	case exists && current.Version != m.Version:
		return errConflict("meeting", string(m.ID))
	}
	m.Version++
	r.u.st.meetings[m.ID] = cloneMeeting(m)
	return nil
}

func cloneMeeting(m *domainmeeting.Meeting) *domainmeeting.Meeting {
	cp := *m
	cp.ClearEvents()
	return &cp
}

type notificationRepo struct{ u *Unit }

func (r notificationRepo) ByID(_ context.Context, id domainnotification.NotificationID) (*domainnotification.Notification, error) {
	if n, ok := r.u.st.notifications[id]; ok {
		cp := *n
		return &cp, nil
	}
	return nil, domainnotification.ErrNotFound
}

func (r notificationRepo) ListByRecipient(_ context.Context, recipientID string, unreadOnly bool) ([]*domainnotification.Notification, error) {
	out := make([]*domainnotification.Notification, 0)
	for _, n := range r.u.st.notifications {
		if n.RecipientID != recipientID || (unreadOnly && n.Read) {
			continue
		}
		cp := *n
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (r notificationRepo) Save(_ context.Context, n *domainnotification.Notification) error {
	if err := r.u.writable(); err != nil {
		return err
	}
	cp := *n
	r.u.st.notifications[n.ID] = &cp
	return nil
}

func (r notificationRepo) MarkAllRead(_ context.Context, recipientID string, at time.Time) (int, error) {
	if err := r.u.writable(); err != nil {
		return 0, err
	}
	at = at.UTC()
	changed := 0
	for id, n := range r.u.st.notifications {
		if n.RecipientID != recipientID || n.Read {
			continue
		}
		cp := *n
		cp.Read = true
		cp.ReadAt = &at
		r.u.st.notifications[id] = &cp
		changed++
	}
	return changed, nil
}

// ErrConcurrentUpdate is returned when a versioned save loses a race.
var ErrConcurrentUpdate = fmt.Errorf("%w: memory", errs.ErrConflict)

type ratingRepo struct{ u *Unit }

func (r ratingRepo) Save(_ context.Context, rt *domainrating.Rating) error {
	if err := r.u.writable(); err != nil {
		return err
	}
	for _, existing := range r.u.st.ratings {
		if existing.SwapID == rt.SwapID && existing.RaterID == rt.RaterID {
			return domainrating.ErrAlreadyRated
		}
	}
	r.u.st.ratings[rt.ID] = cloneRating(rt)
	return nil
}

func (r ratingRepo) ListForUser(_ context.Context, userID string) ([]*domainrating.Rating, error) {
	out := make([]*domainrating.Rating, 0)
	for _, rt := range r.u.st.ratings {
		if rt.RaterID == userID || rt.RateeID == userID {
			out = append(out, cloneRating(rt))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (r ratingRepo) SummaryFor(_ context.Context, rateeID string) (domainrating.Summary, error) {
	var scores []int
	for _, rt := range r.u.st.ratings {
		if rt.RateeID == rateeID {
			scores = append(scores, rt.Score)
		}
	}
	return domainrating.Summarize(scores), nil
}

func cloneRating(rt *domainrating.Rating) *domainrating.Rating {
	cp := *rt
	cp.ClearEvents()
	return &cp
}

type totalsReader struct{ u *Unit }

func (r totalsReader) Totals(_ context.Context, now time.Time) (uow.Totals, error) {
	st := r.u.st
	var t uow.Totals
	for _, user := range st.users {
		if user.Available() {
			t.Users++
		}
		if user.Banned {
			t.BannedUsers++
		}
	}
	t.Listings = len(st.listings)
	t.Swaps = len(st.swaps)
	for _, s := range st.swaps {
		switch s.Status {
		case domainswap.StatusPending:
			t.PendingSwaps++
		case domainswap.StatusCompleted:
			t.CompletedSwaps++
		}
	}
	t.Meetings = len(st.meetings)
	for _, m := range st.meetings {
		if m.Upcoming(now) {
			t.UpcomingMeetings++
		}
	}
	scores := make([]int, 0, len(st.ratings))
	for _, rt := range st.ratings {
		scores = append(scores, rt.Score)
	}
	summary := domainrating.Summarize(scores)
	t.Ratings, t.AverageRating = summary.Count, summary.Average
	return t, nil
}

func errConflict(kind, id string) error {
	return fmt.Errorf("%w: %s %s changed since it was read", ErrConcurrentUpdate, kind, id)
}
