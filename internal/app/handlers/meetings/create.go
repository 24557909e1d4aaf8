package meetings

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

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

const createMeetingKey = "meetings.create"

type CreateMeetingCommand struct {
	ChatID          string
	Organizer       string
	Type            string
	Title           string
	Description     string
	ScheduledAt     *time.Time
	DurationMinutes int
}

func (c CreateMeetingCommand) Key() string     { return createMeetingKey }
func (c CreateMeetingCommand) ActorID() string { return c.Organizer }

func (c CreateMeetingCommand) Validate() error {
	if strings.TrimSpace(c.ChatID) == "" {
		return fmt.Errorf("%w: meeting: chat id is required", errs.ErrValidation)
	}
	_, err := domainmeeting.ParseType(c.Type)
	return err
}

type CreateMeetingHandler struct {
	UoWFactory uow.UoWFactory
	Rooms      RoomAllocator
	Encoder    outbox.EventEncoder
	Clock      support.Clock
	Logger     *slog.Logger
}

func (h *CreateMeetingHandler) Handle(ctx context.Context, cmd CreateMeetingCommand) (*dto.Meeting, error) {
	kind, err := domainmeeting.ParseType(cmd.Type)
	if err != nil {
		return nil, err
	}
	unit, ctx, err := support.BeginWriteUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	defer unit.Release()

	c, s, err := support.WritableChat(ctx, unit, domainchat.ChatID(cmd.ChatID), cmd.Organizer)
	if err != nil {
		return nil, err
	}
	if s.Status != domainswap.StatusAccepted {
		return nil, domainchat.ErrSwapNotActive
	}
	room, err := h.Rooms.Allocate(ctx)
	if err != nil {
		return nil, err
	}
	now := h.Clock.Now()
	m, err := domainmeeting.Schedule(domainmeeting.ScheduleParams{
		ID:              domainmeeting.MeetingID(support.NewID()),
		ChatID:          c.ID,
		OrganizerID:     cmd.Organizer,
		Type:            kind,
		Title:           cmd.Title,
		Description:     cmd.Description,
		ScheduledAt:     cmd.ScheduledAt,
		DurationMinutes: cmd.DurationMinutes,
		Room:            room,
		Now:             now,
	})
	if err != nil {
		return nil, err
	}
	if err := unit.Meetings().Save(ctx, m); err != nil {
		return nil, err
	}
	organizer, err := support.Username(ctx, unit.Users(), cmd.Organizer)
	if err != nil {
		return nil, err
	}
	notice := policies.Notice{
		RecipientID: s.Counterpart(cmd.Organizer),
		RefID:       string(m.ID),
	}
	if m.Status == domainmeeting.StatusOngoing {
		if err := announceStart(ctx, unit, m, organizer, now); err != nil {
			return nil, err
		}
		notice.Kind = domainnotification.KindMeetingStarted
		notice.Title = "Meeting Started"
		notice.Body = domainmeeting.StartAnnouncement(organizer, m.Title)
	} else {
		notice.Kind = domainnotification.KindMeetingScheduled
		notice.Title = "Meeting Scheduled"
		notice.Body = fmt.Sprintf("%s scheduled %q for %s", organizer, m.Title, m.ScheduledAt.Format(time.RFC1123))
	}
	if err := support.RecordEvents(ctx, unit, h.Encoder, m); err != nil {
		return nil, err
	}
	policies.Defer(ctx, notice)
	if err := unit.Commit(ctx); err != nil {
		return nil, err
	}
	if h.Logger != nil {
		h.Logger.Info("meeting created", "meeting_id", m.ID, "chat_id", c.ID, "type", m.Type)
	}
	out := dto.MapMeeting(m)
	return &out, nil
}

// announceStart posts the system line that tells the chat a meeting began.
func announceStart(ctx context.Context, unit uow.UnitOfWork, m *domainmeeting.Meeting, organizer string, now time.Time) error {
	msg := domainchat.NewSystemMessage(
		domainchat.MessageID(support.NewMessageID()),
		m.ChatID,
		m.OrganizerID,
		domainmeeting.StartAnnouncement(organizer, m.Title),
		now,
	)
	return unit.Messages().Append(ctx, msg)
}

var _ commands.Handler[CreateMeetingCommand, *dto.Meeting] = (*CreateMeetingHandler)(nil)
