package meetings

import (
	"context"
	"fmt"
	"strings"

	"skillswap/internal/app/commands"
	"skillswap/internal/app/dto"
	"skillswap/internal/app/handlers/support"
	"skillswap/internal/app/outbox"
	"skillswap/internal/app/policies"
	"skillswap/internal/app/uow"
	domainchat "skillswap/internal/domain/chat"
	domainmeeting "skillswap/internal/domain/meeting"
	domainnotification "skillswap/internal/domain/notification"
	"skillswap/internal/domain/shared/errs"
	domainswap "skillswap/internal/domain/swap"
)

const (
	startMeetingKey  = "meetings.start"
	endMeetingKey    = "meetings.end"
	cancelMeetingKey = "meetings.cancel"
)

// MeetingActionCommand addresses one meeting on behalf of Actor.
type MeetingActionCommand struct {
	MeetingID string
	Actor     string
}

func (c MeetingActionCommand) ActorID() string { return c.Actor }

func (c MeetingActionCommand) Validate() error {
	if strings.TrimSpace(c.MeetingID) == "" {
		return fmt.Errorf("%w: meeting: id is required", errs.ErrValidation)
	}
	return nil
}

type StartMeetingCommand struct{ MeetingActionCommand }

func (StartMeetingCommand) Key() string { return startMeetingKey }

type EndMeetingCommand struct{ MeetingActionCommand }

func (EndMeetingCommand) Key() string { return endMeetingKey }

type CancelMeetingCommand struct{ MeetingActionCommand }

func (CancelMeetingCommand) Key() string { return cancelMeetingKey }

// participantMeeting loads the meeting and rejects anyone outside its chat.
// Swap status is not consulted.
func participantMeeting(ctx context.Context, unit uow.UnitOfWork, id, actor string) (*domainmeeting.Meeting, *domainswap.Swap, error) {
	m, err := unit.Meetings().ByID(ctx, domainmeeting.MeetingID(id))
	if err != nil {
		return nil, nil, err
	}
	_, s, err := support.ChatAccess(ctx, unit, m.ChatID)
	if err != nil {
		return nil, nil, err
	}
	if !domainchat.CanAccess(s, actor) {
		return nil, nil, domainmeeting.ErrNotParticipant
	}
	return m, s, nil
}

type StartMeetingHandler struct {
	UoWFactory uow.UoWFactory
	Encoder    outbox.EventEncoder
	Clock      support.Clock
}

// Handle starts a scheduled meeting and announces it in the chat in the
// same unit of work.
func (h *StartMeetingHandler) Handle(ctx context.Context, cmd StartMeetingCommand) (*dto.Meeting, error) {
	unit, ctx, err := support.BeginWriteUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	defer unit.Release()

	m, s, err := participantMeeting(ctx, unit, cmd.MeetingID, cmd.Actor)
	if err != nil {
		return nil, err
	}
	now := h.Clock.Now()
	if err := m.Start(cmd.Actor, now); err != nil {
		return nil, err
	}
	if err := unit.Meetings().Save(ctx, m); err != nil {
		return nil, err
	}
	organizer, err := support.Username(ctx, unit.Users(), m.OrganizerID)
	if err != nil {
		return nil, err
	}
	if err := announceStart(ctx, unit, m, organizer, now); err != nil {
		return nil, err
	}
	if err := support.RecordEvents(ctx, unit, h.Encoder, m); err != nil {
		return nil, err
	}
	policies.Defer(ctx, policies.Notice{
		RecipientID: s.Counterpart(m.OrganizerID),
		Kind:        domainnotification.KindMeetingStarted,
		Title:       "Meeting Started",
		Body:        domainmeeting.StartAnnouncement(organizer, m.Title),
		RefID:       string(m.ID),
	})
	if err := unit.Commit(ctx); err != nil {
		return nil, err
	}
	out := dto.MapMeeting(m)
	return &out, nil
}

type EndMeetingHandler struct {
	UoWFactory uow.UoWFactory
	Encoder    outbox.EventEncoder
	Clock      support.Clock
}

func (h *EndMeetingHandler) Handle(ctx context.Context, cmd EndMeetingCommand) (*dto.Meeting, error) {
	unit, ctx, err := support.BeginWriteUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	defer unit.Release()

	m, _, err := participantMeeting(ctx, unit, cmd.MeetingID, cmd.Actor)
	if err != nil {
		return nil, err
	}
	if err := m.End(cmd.Actor, h.Clock.Now()); err != nil {
		return nil, err
	}
	if err := unit.Meetings().Save(ctx, m); err != nil {
		return nil, err
	}
	if err := support.RecordEvents(ctx, unit, h.Encoder, m); err != nil {
		return nil, err
	}
	if err := unit.Commit(ctx); err != nil {
		return nil, err
	}
	out := dto.MapMeeting(m)
	return &out, nil
}

type CancelMeetingHandler struct {
	UoWFactory uow.UoWFactory
	Encoder    outbox.EventEncoder
	Clock      support.Clock
}

func (h *CancelMeetingHandler) Handle(ctx context.Context, cmd CancelMeetingCommand) (*dto.Meeting, error) {
	unit, ctx, err := support.BeginWriteUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	defer unit.Release()

	m, s, err := participantMeeting(ctx, unit, cmd.MeetingID, cmd.Actor)
	if err != nil {
		return nil, err
	}
	if err := m.Cancel(cmd.Actor, h.Clock.Now()); err != nil {
		return nil, err
	}
	if err := unit.Meetings().Save(ctx, m); err != nil {
		return nil, err
	}
	if err := support.RecordEvents(ctx, unit, h.Encoder, m); err != nil {
		return nil, err
	}
	organizer, err := support.Username(ctx, unit.Users(), m.OrganizerID)
	if err != nil {
		return nil, err
	}
	policies.Defer(ctx, policies.Notice{
		RecipientID: s.Counterpart(m.OrganizerID),
		Kind:        domainnotification.KindMeetingCancelled,
		Title:       "Meeting Cancelled",
		Body:        fmt.Sprintf("%s cancelled the meeting: %s", organizer, m.Title),
		RefID:       string(m.ID),
	})
	if err := unit.Commit(ctx); err != nil {
		return nil, err
	}
	out := dto.MapMeeting(m)
	return &out, nil
}

var _ commands.Handler[StartMeetingCommand, *dto.Meeting] = (*StartMeetingHandler)(nil)
var _ commands.Handler[EndMeetingCommand, *dto.Meeting] = (*EndMeetingHandler)(nil)
var _ commands.Handler[CancelMeetingCommand, *dto.Meeting] = (*CancelMeetingHandler)(nil)
