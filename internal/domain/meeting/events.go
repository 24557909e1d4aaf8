package meeting

import (
	"time"

	"skillswap/internal/domain/chat"
)

type MeetingScheduled struct {
	MeetingID   MeetingID
	ChatID      chat.ChatID
	OrganizerID string
	ScheduledAt time.Time
	At          time.Time
}

func (e MeetingScheduled) EventName() string     { return "meeting.scheduled" }
func (e MeetingScheduled) AggregateID() string   { return string(e.MeetingID) }
func (e MeetingScheduled) OccurredAt() time.Time { return e.At }

type MeetingStarted struct {
	MeetingID   MeetingID
	ChatID      chat.ChatID
	OrganizerID string
	At          time.Time
}

func (e MeetingStarted) EventName() string     { return "meeting.started" }
func (e MeetingStarted) AggregateID() string   { return string(e.MeetingID) }
func (e MeetingStarted) OccurredAt() time.Time { return e.At }

type MeetingEnded struct {
	MeetingID MeetingID
	ChatID    chat.ChatID
	At        time.Time
}

func (e MeetingEnded) EventName() string     { return "meeting.ended" }
func (e MeetingEnded) AggregateID() string   { return string(e.MeetingID) }
func (e MeetingEnded) OccurredAt() time.Time { return e.At }

type MeetingCancelled struct {
	MeetingID MeetingID
	ChatID    chat.ChatID
	At        time.Time
}

func (e MeetingCancelled) EventName() string     { return "meeting.cancelled" }
func (e MeetingCancelled) AggregateID() string   { return string(e.MeetingID) }
func (e MeetingCancelled) OccurredAt() time.Time { return e.At }
