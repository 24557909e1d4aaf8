package bootstrap_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skillswap/internal/app/bootstrap"
	"skillswap/internal/app/commands"
	"skillswap/internal/app/dto"
	chatapp "skillswap/internal/app/handlers/chats"
	listingapp "skillswap/internal/app/handlers/listings"
	meetingapp "skillswap/internal/app/handlers/meetings"
	notificationapp "skillswap/internal/app/handlers/notifications"
	swapapp "skillswap/internal/app/handlers/swaps"
	"skillswap/internal/app/middleware"
	"skillswap/internal/app/policies"
	"skillswap/internal/app/queries"
	"skillswap/internal/app/services/auth"
	"skillswap/internal/app/uow"
	"skillswap/internal/domain/shared/errs"
	"skillswap/internal/infra/db/sqlite"
	"skillswap/internal/infra/notify"
	"skillswap/internal/infra/obs"
	"skillswap/internal/infra/security"
	"skillswap/internal/infra/storage/memory"
)

type harness struct {
	t     *testing.T
	store *memory.Store
	buses bootstrap.Buses
	auth  *auth.Service
}

func newHarness(t *testing.T, notifier policies.Notifier) *harness {
	t.Helper()
	store := memory.NewStore()
	h := harnessOver(t, store, memory.NewIdempotencyStore(), notifier)
	h.store = store
	return h
}

// harnessOver wires the buses over any store; store stays nil unless the
// caller sets it.
func harnessOver(t *testing.T, factory uow.UoWFactory, idem middleware.IdempotencyStore, notifier policies.Notifier) *harness {
	t.Helper()
	if notifier == nil {
		notifier = &notify.Sink{UoWFactory: factory}
	}
	buses := bootstrap.Build(bootstrap.Deps{
		UoWFactory:  factory,
		Idempotency: idem,
		Notifier:    notifier,
		Rooms: meetingapp.TokenRooms{
			BaseURL: "https://meet.example.test",
			Tokens:  security.RandomTokens{Size: 9},
		},
	})
	return &harness{
		t:     t,
		buses: buses,
		auth: &auth.Service{
			UoWFactory: factory,
			Passwords:  security.BcryptHasher{Cost: 4},
			Tokens:     security.NewJWTIssuer([]byte("test-secret")),
		},
	}
}

func (h *harness) register(username string) string {
	h.t.Helper()
	res, err := h.auth.Register(context.Background(), auth.RegisterParams{
		Username: username,
		Email:    username + "@example.test",
		Password: "password123",
	})
	require.NoError(h.t, err)
	return string(res.User.ID)
}

func (h *harness) listing(owner, name, direction string) string {
	h.t.Helper()
	out, err := commands.Dispatch[listingapp.CreateListingCommand, *dto.Listing](context.Background(), h.buses.Commands,
		listingapp.CreateListingCommand{OwnerID: owner, Name: name, Direction: direction})
	require.NoError(h.t, err)
	return out.ID
}

func (h *harness) propose(requester, offered, requested string) (*dto.Swap, error) {
	return commands.Dispatch[swapapp.ProposeSwapCommand, *dto.Swap](context.Background(), h.buses.Commands,
		swapapp.ProposeSwapCommand{RequesterID: requester, OfferedListingID: offered, RequestedListingID: requested, Message: "Trade?"})
}

func (h *harness) accept(swapID, actor string) (*swapapp.AcceptSwapResult, error) {
	return commands.Dispatch[swapapp.AcceptSwapCommand, *swapapp.AcceptSwapResult](context.Background(), h.buses.Commands,
		swapapp.AcceptSwapCommand{SwapID: swapID, Actor: actor})
}

func (h *harness) post(chatID, sender, content string) (*dto.ChatMessage, error) {
	return commands.Dispatch[chatapp.PostMessageCommand, *dto.ChatMessage](context.Background(), h.buses.Commands,
		chatapp.PostMessageCommand{ChatID: chatID, Sender: sender, Content: content})
}

func (h *harness) messages(chatID, actor string) (dto.ChatMessageList, error) {
	return queries.Ask[chatapp.ListMessagesQuery, dto.ChatMessageList](context.Background(), h.buses.Queries,
		chatapp.ListMessagesQuery{ChatID: chatID, Actor: actor})
}

func (h *harness) chats(actor string) dto.ConversationList {
	h.t.Helper()
	out, err := queries.Ask[chatapp.ListMyChatsQuery, dto.ConversationList](context.Background(), h.buses.Queries,
		chatapp.ListMyChatsQuery{Actor: actor})
	require.NoError(h.t, err)
	return out
}

func (h *harness) notifications(actor string) dto.NotificationCollection {
	h.t.Helper()
	out, err := queries.Ask[notificationapp.ListNotificationsQuery, dto.NotificationCollection](context.Background(), h.buses.Queries,
		notificationapp.ListNotificationsQuery{Actor: actor})
	require.NoError(h.t, err)
	return out
}

func countKind(list dto.NotificationCollection, kind string) int {
	n := 0
	for _, item := range list.Items {
		if item.Kind == kind {
			n++
		}
	}
	return n
}

// pair sets up alice (Guitar) and bob (Spanish) with a pending swap.
func pair(t *testing.T, h *harness) (alice, bob string, s *dto.Swap) {
	t.Helper()
	alice = h.register("alice")
	bob = h.register("bob")
	guitar := h.listing(alice, "Guitar", "offered")
	spanish := h.listing(bob, "Spanish", "offered")
	s, err := h.propose(alice, guitar, spanish)
	require.NoError(t, err)
	return alice, bob, s
}

func TestGuitarForSpanishScenario(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	alice, bob, s := pair(t, h)
	carol := h.register("carol")

	assert.Equal(t, "pending", s.Status)
	assert.Equal(t, bob, s.ReceiverID)
	assert.Equal(t, "Guitar", s.OfferedSkill)
	assert.Equal(t, "Spanish", s.RequestedSkill)

	_, err := h.propose(alice, s.OfferedListingID, s.RequestedListingID)
	assert.ErrorIs(t, err, errs.ErrValidation)

	accepted, err := h.accept(s.ID, bob)
	require.NoError(t, err)
	assert.True(t, accepted.ChatCreated)
	assert.Equal(t, "accepted", accepted.Swap.Status)
	chatID := accepted.ChatID

	assert.Len(t, h.chats(alice).Items, 1)
	assert.Len(t, h.chats(bob).Items, 1)
	assert.Empty(t, h.chats(carol).Items)

	aliceNotes := h.notifications(alice)
	require.Equal(t, 1, countKind(aliceNotes, "swap_accepted"))
	assert.Equal(t, "bob accepted your swap request", aliceNotes.Items[0].Body)

	_, err = h.post(chatID, alice, "Hola!")
	require.NoError(t, err)
	_, err = h.post(chatID, bob, "Hi, ready for guitar?")
	require.NoError(t, err)
	_, err = h.post(chatID, carol, "let me in")
	assert.ErrorIs(t, err, errs.ErrForbidden)
	_, err = h.post(chatID, alice, "   ")
	assert.ErrorIs(t, err, errs.ErrValidation)

	list, err := h.messages(chatID, bob)
	require.NoError(t, err)
	require.Len(t, list.Items, 2)
	assert.Equal(t, "Hola!", list.Items[0].Content)
	assert.Equal(t, "Hi, ready for guitar?", list.Items[1].Content)
	assert.Less(t, list.Items[0].Seq, list.Items[1].Seq)

	_, err = h.messages(chatID, carol)
	assert.ErrorIs(t, err, errs.ErrNotFound)

	at := time.Now().Add(24 * time.Hour)
	meeting, err := commands.Dispatch[meetingapp.CreateMeetingCommand, *dto.Meeting](ctx, h.buses.Commands, meetingapp.CreateMeetingCommand{
		ChatID:      chatID,
		Organizer:   bob,
		Type:        "scheduled",
		Title:       "Lesson 1",
		ScheduledAt: &at,
	})
	require.NoError(t, err)
	assert.Equal(t, "scheduled", meeting.Status)
	assert.Equal(t, 30, meeting.DurationMinutes)
	assert.Equal(t, "https://meet.example.test/"+meeting.RoomID, meeting.URL)
	assert.Equal(t, 1, countKind(h.notifications(alice), "meeting_scheduled"))

	action := meetingapp.MeetingActionCommand{MeetingID: meeting.ID, Actor: alice}
	_, err = commands.Dispatch[meetingapp.StartMeetingCommand, *dto.Meeting](ctx, h.buses.Commands, meetingapp.StartMeetingCommand{MeetingActionCommand: action})
	assert.ErrorIs(t, err, errs.ErrForbidden)
	list, err = h.messages(chatID, bob)
	require.NoError(t, err)
	assert.Len(t, list.Items, 2)

	action.Actor = bob
	started, err := commands.Dispatch[meetingapp.StartMeetingCommand, *dto.Meeting](ctx, h.buses.Commands, meetingapp.StartMeetingCommand{MeetingActionCommand: action})
	require.NoError(t, err)
	assert.Equal(t, "ongoing", started.Status)

	list, err = h.messages(chatID, alice)
	require.NoError(t, err)
	require.Len(t, list.Items, 3)
	assert.Equal(t, "system", list.Items[2].Kind)
	assert.Equal(t, "bob started the meeting: Lesson 1", list.Items[2].Content)
	assert.Equal(t, 1, countKind(h.notifications(alice), "meeting_started"))

	join, err := queries.Ask[meetingapp.JoinMeetingQuery, dto.MeetingJoin](ctx, h.buses.Queries, meetingapp.JoinMeetingQuery{MeetingID: meeting.ID, Actor: alice})
	require.NoError(t, err)
	assert.Equal(t, meeting.URL, join.URL)
	assert.Equal(t, "ongoing", join.Status)
	_, err = queries.Ask[meetingapp.JoinMeetingQuery, dto.MeetingJoin](ctx, h.buses.Queries, meetingapp.JoinMeetingQuery{MeetingID: meeting.ID, Actor: carol})
	assert.ErrorIs(t, err, errs.ErrForbidden)

	ended, err := commands.Dispatch[meetingapp.EndMeetingCommand, *dto.Meeting](ctx, h.buses.Commands, meetingapp.EndMeetingCommand{MeetingActionCommand: action})
	require.NoError(t, err)
	assert.Equal(t, "completed", ended.Status)

	preview := h.chats(alice).Items[0]
	require.NotNil(t, preview.LastMessage)
	assert.Equal(t, "bob started the meeting: Lesson 1", preview.LastMessage.Content)
	assert.Equal(t, 3, preview.MessageCount)
	assert.Equal(t, "bob", preview.CounterpartName)
}

func TestConcurrentAcceptOpensOneChat(t *testing.T) {
	store, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "skillswap.db"), obs.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	cases := map[string]*harness{
		"memory": newHarness(t, nil),
		"sqlite": harnessOver(t, store, store.Idempotency(), nil),
	}
	for name, h := range cases {
		t.Run(name, func(t *testing.T) {
			h.t = t
			assertOneChatUnderRace(t, h)
		})
	}
}

func assertOneChatUnderRace(t *testing.T, h *harness) {
	alice, bob, s := pair(t, h)

	const n = 8
	var wg sync.WaitGroup
	results := make([]*swapapp.AcceptSwapResult, n)
	errsOut := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errsOut[i] = h.accept(s.ID, bob)
		}(i)
	}
	wg.Wait()

	created := 0
	for i := 0; i < n; i++ {
		require.NoError(t, errsOut[i])
		assert.Equal(t, results[0].ChatID, results[i].ChatID)
		if results[i].ChatCreated {
			created++
		}
	}
	assert.Equal(t, 1, created)
	assert.Len(t, h.chats(bob).Items, 1)
	assert.Equal(t, 1, countKind(h.notifications(alice), "swap_accepted"))
}

func TestRespondRules(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	alice, bob, s := pair(t, h)

	_, err := h.accept(s.ID, alice)
	assert.ErrorIs(t, err, errs.ErrForbidden)

	_, err = commands.Dispatch[swapapp.CancelSwapCommand, *dto.Swap](ctx, h.buses.Commands, swapapp.CancelSwapCommand{SwapID: s.ID, Actor: bob})
	assert.ErrorIs(t, err, errs.ErrForbidden)

	rejected, err := commands.Dispatch[swapapp.RejectSwapCommand, *dto.Swap](ctx, h.buses.Commands, swapapp.RejectSwapCommand{SwapID: s.ID, Actor: bob})
	require.NoError(t, err)
	assert.Equal(t, "rejected", rejected.Status)
	assert.Equal(t, 1, countKind(h.notifications(alice), "swap_rejected"))

	_, err = h.accept(s.ID, bob)
	assert.ErrorIs(t, err, errs.ErrInvalidState)
	_, err = commands.Dispatch[swapapp.CancelSwapCommand, *dto.Swap](ctx, h.buses.Commands, swapapp.CancelSwapCommand{SwapID: s.ID, Actor: alice})
	assert.ErrorIs(t, err, errs.ErrInvalidState)

	_, err = h.propose(alice, s.OfferedListingID, s.RequestedListingID)
	assert.ErrorIs(t, err, errs.ErrValidation, "a rejected swap still blocks an identical proposal")

	assert.Empty(t, h.chats(alice).Items)
}

func TestCancelByRequesterSendsNoNotification(t *testing.T) {
	h := newHarness(t, nil)
	alice, bob, s := pair(t, h)

	cancelled, err := commands.Dispatch[swapapp.CancelSwapCommand, *dto.Swap](context.Background(), h.buses.Commands,
		swapapp.CancelSwapCommand{SwapID: s.ID, Actor: alice})
	require.NoError(t, err)
	assert.Equal(t, "cancelled", cancelled.Status)
	assert.Empty(t, h.notifications(bob).Items)
	assert.Empty(t, h.notifications(alice).Items)
}

func TestNotificationFailureDoesNotFailAccept(t *testing.T) {
	var calls int
	var mu sync.Mutex
	failing := policies.NotifierFunc(func(context.Context, policies.Notice) error {
		mu.Lock()
		calls++
		mu.Unlock()
		return errors.New("smtp down")
	})
	h := newHarness(t, failing)
	_, bob, s := pair(t, h)

	res, err := h.accept(s.ID, bob)
	require.NoError(t, err)
	assert.Equal(t, "accepted", res.Swap.Status)
	assert.NotEmpty(t, res.ChatID)
	assert.Equal(t, 1, calls)
}

func TestListingDeletionKeepsSwapsAndChats(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	alice, bob, s := pair(t, h)
	accepted, err := h.accept(s.ID, bob)
	require.NoError(t, err)
	_, err = h.post(accepted.ChatID, alice, "before delete")
	require.NoError(t, err)

	_, err = commands.Dispatch[listingapp.DeleteListingCommand, struct{}](ctx, h.buses.Commands,
		listingapp.DeleteListingCommand{ListingID: s.OfferedListingID, OwnerID: bob})
	assert.ErrorIs(t, err, errs.ErrForbidden)

	_, err = commands.Dispatch[listingapp.DeleteListingCommand, struct{}](ctx, h.buses.Commands,
		listingapp.DeleteListingCommand{ListingID: s.OfferedListingID, OwnerID: alice})
	require.NoError(t, err)

	got, err := queries.Ask[swapapp.GetSwapQuery, dto.Swap](ctx, h.buses.Queries, swapapp.GetSwapQuery{SwapID: s.ID, Actor: alice})
	require.NoError(t, err)
	assert.Equal(t, "accepted", got.Status)
	assert.Equal(t, "Guitar", got.OfferedSkill)
	assert.Equal(t, s.OfferedListingID, got.OfferedListingID)

	chats := h.chats(alice)
	require.Len(t, chats.Items, 1)
	_, err = h.post(accepted.ChatID, bob, "after delete")
	require.NoError(t, err)

	catalog, err := queries.Ask[listingapp.SearchListingsQuery, dto.ListingCollection](ctx, h.buses.Queries, listingapp.SearchListingsQuery{OwnerID: alice})
	require.NoError(t, err)
	assert.Empty(t, catalog.Items)
}

func TestProposeValidation(t *testing.T) {
	h := newHarness(t, nil)
	alice := h.register("alice")
	bob := h.register("bob")
	guitar := h.listing(alice, "Guitar", "offered")
	spanish := h.listing(bob, "Spanish", "offered")
	piano := h.listing(alice, "Piano", "requested")

	_, err := h.propose(alice, guitar, piano)
	assert.ErrorIs(t, err, errs.ErrValidation, "self swap")
	_, err = h.propose(alice, spanish, spanish)
	assert.ErrorIs(t, err, errs.ErrValidation, "offered listing owned by someone else")
	_, err = h.propose(alice, guitar, "missing")
	assert.ErrorIs(t, err, errs.ErrNotFound)
	_, err = h.propose("", guitar, spanish)
	assert.ErrorIs(t, err, errs.ErrUnauthenticated)

	_, err = commands.Dispatch[listingapp.CreateListingCommand, *dto.Listing](context.Background(), h.buses.Commands,
		listingapp.CreateListingCommand{OwnerID: alice, Name: "guitar ", Direction: "offered"})
	assert.ErrorIs(t, err, errs.ErrValidation, "duplicate skill name in the same direction")
}

func TestProposeIdempotencyKeyReplaysResult(t *testing.T) {
	h := newHarness(t, nil)
	alice := h.register("alice")
	bob := h.register("bob")
	guitar := h.listing(alice, "Guitar", "offered")
	spanish := h.listing(bob, "Spanish", "offered")

	cmd := swapapp.ProposeSwapCommand{RequesterID: alice, OfferedListingID: guitar, RequestedListingID: spanish, IdempotencyKeyV: "req-1"}
	first, err := commands.Dispatch[swapapp.ProposeSwapCommand, *dto.Swap](context.Background(), h.buses.Commands, cmd)
	require.NoError(t, err)
	second, err := commands.Dispatch[swapapp.ProposeSwapCommand, *dto.Swap](context.Background(), h.buses.Commands, cmd)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestCompleteNotifiesBothAndPurgeCascades(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	alice, bob, s := pair(t, h)
	accepted, err := h.accept(s.ID, bob)
	require.NoError(t, err)

	done, err := commands.Dispatch[swapapp.CompleteSwapCommand, *dto.Swap](ctx, h.buses.Commands, swapapp.CompleteSwapCommand{SwapID: s.ID, Source: "test"})
	require.NoError(t, err)
	assert.Equal(t, "completed", done.Status)
	assert.Equal(t, 1, countKind(h.notifications(alice), "swap_completed"))
	assert.Equal(t, 1, countKind(h.notifications(bob), "swap_completed"))
	assert.Empty(t, h.chats(alice).Items, "only accepted swaps list their chat")

	_, err = commands.Dispatch[swapapp.CompleteSwapCommand, *dto.Swap](ctx, h.buses.Commands, swapapp.CompleteSwapCommand{SwapID: s.ID})
	assert.ErrorIs(t, err, errs.ErrInvalidState)

	_, err = commands.Dispatch[swapapp.PurgeSwapCommand, struct{}](ctx, h.buses.Commands, swapapp.PurgeSwapCommand{SwapID: s.ID, Actor: "admin"})
	require.NoError(t, err)
	_, err = queries.Ask[swapapp.GetSwapQuery, dto.Swap](ctx, h.buses.Queries, swapapp.GetSwapQuery{SwapID: s.ID, Actor: alice})
	assert.ErrorIs(t, err, errs.ErrNotFound)
	_, err = queries.Ask[chatapp.GetChatQuery, dto.Conversation](ctx, h.buses.Queries, chatapp.GetChatQuery{ChatID: accepted.ChatID, Actor: alice})
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestInstantMeetingAnnouncesStart(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	alice, bob, s := pair(t, h)
	accepted, err := h.accept(s.ID, bob)
	require.NoError(t, err)

	m, err := commands.Dispatch[meetingapp.CreateMeetingCommand, *dto.Meeting](ctx, h.buses.Commands, meetingapp.CreateMeetingCommand{
		ChatID: accepted.ChatID, Organizer: alice, Type: "instant", Title: "Quick call",
	})
	require.NoError(t, err)
	assert.Equal(t, "ongoing", m.Status)

	list, err := h.messages(accepted.ChatID, bob)
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	assert.Equal(t, "alice started the meeting: Quick call", list.Items[0].Content)

	meetings, err := queries.Ask[meetingapp.ListMeetingsQuery, dto.MeetingCollection](ctx, h.buses.Queries, meetingapp.ListMeetingsQuery{ChatID: accepted.ChatID, Actor: bob})
	require.NoError(t, err)
	assert.Len(t, meetings.Items, 1)

	_, err = commands.Dispatch[meetingapp.CancelMeetingCommand, *dto.Meeting](ctx, h.buses.Commands,
		meetingapp.CancelMeetingCommand{MeetingActionCommand: meetingapp.MeetingActionCommand{MeetingID: m.ID, Actor: bob}})
	assert.ErrorIs(t, err, errs.ErrForbidden)
	cancelled, err := commands.Dispatch[meetingapp.CancelMeetingCommand, *dto.Meeting](ctx, h.buses.Commands,
		meetingapp.CancelMeetingCommand{MeetingActionCommand: meetingapp.MeetingActionCommand{MeetingID: m.ID, Actor: alice}})
	require.NoError(t, err)
	assert.Equal(t, "cancelled", cancelled.Status)
	assert.Equal(t, 1, countKind(h.notifications(bob), "meeting_cancelled"))
}

func TestMeetingsNeedAcceptedSwap(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	alice, bob, s := pair(t, h)
	accepted, err := h.accept(s.ID, bob)
	require.NoError(t, err)
	_, err = commands.Dispatch[swapapp.CompleteSwapCommand, *dto.Swap](ctx, h.buses.Commands, swapapp.CompleteSwapCommand{SwapID: s.ID})
	require.NoError(t, err)

	_, err = commands.Dispatch[meetingapp.CreateMeetingCommand, *dto.Meeting](ctx, h.buses.Commands, meetingapp.CreateMeetingCommand{
		ChatID: accepted.ChatID, Organizer: alice, Title: "Too late",
	})
	assert.ErrorIs(t, err, errs.ErrInvalidState)
	_, err = h.post(accepted.ChatID, alice, "still there?")
	assert.ErrorIs(t, err, errs.ErrInvalidState)
}

func TestNotificationsMarkRead(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	alice, bob, s := pair(t, h)
	_, err := h.accept(s.ID, bob)
	require.NoError(t, err)

	notes := h.notifications(alice)
	require.Len(t, notes.Items, 1)
	assert.Equal(t, 1, notes.Unread)
	id := notes.Items[0].ID

	_, err = commands.Dispatch[notificationapp.MarkReadCommand, *dto.Notification](ctx, h.buses.Commands, notificationapp.MarkReadCommand{NotificationID: id, Actor: bob})
	assert.ErrorIs(t, err, errs.ErrNotFound)

	read, err := commands.Dispatch[notificationapp.MarkReadCommand, *dto.Notification](ctx, h.buses.Commands, notificationapp.MarkReadCommand{NotificationID: id, Actor: alice})
	require.NoError(t, err)
	assert.True(t, read.Read)

	res, err := commands.Dispatch[notificationapp.MarkAllReadCommand, notificationapp.MarkAllReadResult](ctx, h.buses.Commands, notificationapp.MarkAllReadCommand{Actor: alice})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Updated)
	assert.Equal(t, 0, h.notifications(alice).Unread)
}

func TestOutboxReceivesCommittedEvents(t *testing.T) {
	h := newHarness(t, nil)
	_, bob, s := pair(t, h)
	_, err := h.accept(s.ID, bob)
	require.NoError(t, err)

	records, states := h.store.OutboxRecords()
	names := make([]string, 0, len(records))
	for _, r := range records {
		names = append(names, r.Name)
	}
	for _, want := range []string{"listing.created", "swap.proposed", "swap.accepted", "chat.opened", "notification.created"} {
		assert.Contains(t, names, want)
	}
	for _, st := range states {
		assert.Equal(t, "NEW", st)
	}

	_, err = h.accept(s.ID, "nobody")
	require.Error(t, err)
	after, _ := h.store.OutboxRecords()
	assert.Len(t, after, len(records), fmt.Sprintf("failed commands must not leave events, got %d", len(after)))
}
