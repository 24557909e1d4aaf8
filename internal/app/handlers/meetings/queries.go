package meetings

import (
	"context"

	"skillswap/internal/app/dto"
	"skillswap/internal/app/handlers/support"
	"skillswap/internal/app/queries"
	"skillswap/internal/app/uow"
	domainchat "skillswap/internal/domain/chat"
)

const (
	joinMeetingKey  = "meetings.join"
	listMeetingsKey = "meetings.list"
)

type JoinMeetingQuery struct {
	MeetingID string
	Actor     string
}

func (q JoinMeetingQuery) Key() string     { return joinMeetingKey }
func (q JoinMeetingQuery) ActorID() string { return q.Actor }

// JoinMeetingHandler returns room details to any chat participant whatever
// the meeting status.
type JoinMeetingHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *JoinMeetingHandler) Handle(ctx context.Context, q JoinMeetingQuery) (dto.MeetingJoin, error) {
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.MeetingJoin{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	m, _, err := participantMeeting(ctx, unit, q.MeetingID, q.Actor)
	if err != nil {
		return dto.MeetingJoin{}, err
	}
	return dto.MeetingJoin{
		MeetingID: string(m.ID),
		URL:       m.URL,
		RoomID:    m.RoomID,
		Status:    string(m.Status),
	}, nil
}

type ListMeetingsQuery struct {
	ChatID string
	Actor  string
}

func (q ListMeetingsQuery) Key() string     { return listMeetingsKey }
func (q ListMeetingsQuery) ActorID() string { return q.Actor }

type ListMeetingsHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *ListMeetingsHandler) Handle(ctx context.Context, q ListMeetingsQuery) (dto.MeetingCollection, error) {
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.MeetingCollection{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	c, _, err := support.ReadableChat(ctx, unit, domainchat.ChatID(q.ChatID), q.Actor)
	if err != nil {
		return dto.MeetingCollection{}, err
	}
	list, err := unit.Meetings().ListByChat(ctx, c.ID)
	if err != nil {
		return dto.MeetingCollection{}, err
	}
	out := dto.MeetingCollection{Items: make([]dto.Meeting, 0, len(list))}
	for _, m := range list {
		out.Items = append(out.Items, dto.MapMeeting(m))
	}
	return out, nil
}

var _ queries.Handler[JoinMeetingQuery, dto.MeetingJoin] = (*JoinMeetingHandler)(nil)
var _ queries.Handler[ListMeetingsQuery, dto.MeetingCollection] = (*ListMeetingsHandler)(nil)
