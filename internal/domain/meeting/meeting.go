package meeting

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"skillswap/internal/domain/chat"
	"skillswap/internal/domain/shared/errs"
	"skillswap/internal/domain/shared/events"
)

var (
	ErrTitleRequired      = fmt.Errorf("%w: meeting: title is required", errs.ErrValidation)
	ErrTitleTooLong       = fmt.Errorf("%w: meeting: title must be at most 200 characters", errs.ErrValidation)
	ErrInvalidType        = fmt.Errorf("%w: meeting: type must be instant or scheduled", errs.ErrValidation)
	ErrScheduleRequired   = fmt.Errorf("%w: meeting: scheduled meetings need a start time", errs.ErrValidation)
	ErrDurationOutOfRange = fmt.Errorf("%w: meeting: duration must be between 1 and %d minutes", errs.ErrValidation, MaxDurationMinutes)
	ErrNotOrganizer       = fmt.Errorf("%w: meeting: only the organizer may do this", errs.ErrForbidden)
	ErrNotParticipant     = fmt.Errorf("%w: meeting: not a participant", errs.ErrForbidden)
	ErrInvalidState       = fmt.Errorf("%w: meeting", errs.ErrInvalidState)
	ErrNotFound           = fmt.Errorf("%w: meeting", errs.ErrNotFound)
)

const (
	DefaultDurationMinutes = 30
	MaxDurationMinutes     = 480
)

type MeetingID string

type Type string

const (
	TypeInstant   Type = "instant"
	TypeScheduled Type = "scheduled"
)

func ParseType(raw string) (Type, error) {
	switch Type(strings.ToLower(strings.TrimSpace(raw))) {
	case "", TypeInstant:
		return TypeInstant, nil
	case TypeScheduled:
		return TypeScheduled, nil
	}
	return "", ErrInvalidType
}

type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusOngoing   Status = "ongoing"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Meeting lives inside a chat and has a lifecycle independent of the swap.
type Meeting struct {
	ID              MeetingID
	ChatID          chat.ChatID
	OrganizerID     string
	Type            Type
	Title           string
	Description     string
	ScheduledAt     *time.Time
	DurationMinutes int
	URL             string
	RoomID          string
	Status          Status
	CreatedAt       time.Time
	UpdatedAt       time.Time
	StartedAt       *time.Time
	EndedAt         *time.Time
	Version         int64
	events.EventRecorder
}

type Repository interface {
	ByID(ctx context.Context, id MeetingID) (*Meeting, error)
	ListByChat(ctx context.Context, chatID chat.ChatID) ([]*Meeting, error)
	// Save inserts new meetings and compare-and-sets existing ones on Version.
	Save(ctx context.Context, m *Meeting) error
}

// Room carries the connection metadata handed to participants.
type Room struct {
	ID  string
	URL string
}

type ScheduleParams struct {
	ID              MeetingID
	ChatID          chat.ChatID
	OrganizerID     string
	Type            Type
	Title           string
	Description     string
	ScheduledAt     *time.Time
	DurationMinutes int
	Room            Room
	Now             time.Time
}

// Schedule creates a meeting. Scheduled meetings wait in StatusScheduled;
// instant meetings start right away.
func Schedule(params ScheduleParams) (*Meeting, error) {
	title := strings.TrimSpace(params.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}
	if utf8.RuneCountInString(title) > 200 {
		return nil, ErrTitleTooLong
	}
	if params.Type != TypeInstant && params.Type != TypeScheduled {
		return nil, ErrInvalidType
	}
	duration := params.DurationMinutes
	if duration == 0 {
		duration = DefaultDurationMinutes
	}
	if duration < 1 || duration > MaxDurationMinutes {
		return nil, ErrDurationOutOfRange
	}
	now := params.Now.UTC()
	m := &Meeting{
		ID:              params.ID,
		ChatID:          params.ChatID,
		OrganizerID:     params.OrganizerID,
		Type:            params.Type,
		Title:           title,
		Description:     strings.TrimSpace(params.Description),
		DurationMinutes: duration,
		URL:             params.Room.URL,
		RoomID:          params.Room.ID,
		Status:          StatusScheduled,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	switch params.Type {
	case TypeScheduled:
		if params.ScheduledAt == nil || params.ScheduledAt.IsZero() {
			return nil, ErrScheduleRequired
		}
		at := params.ScheduledAt.UTC()
		m.ScheduledAt = &at
		m.Record(MeetingScheduled{MeetingID: m.ID, ChatID: m.ChatID, OrganizerID: m.OrganizerID, ScheduledAt: at, At: now})
	case TypeInstant:
		m.ScheduledAt = &now
		m.Status = StatusOngoing
		m.StartedAt = &now
		m.Record(MeetingStarted{MeetingID: m.ID, ChatID: m.ChatID, OrganizerID: m.OrganizerID, At: now})
	}
	return m, nil
}

// Start moves a scheduled meeting to ongoing.
func (m *Meeting) Start(actor string, now time.Time) error {
	if actor != m.OrganizerID {
		return ErrNotOrganizer
	}
	if m.Status != StatusScheduled {
		return m.invalid("start")
	}
	at := now.UTC()
	m.Status = StatusOngoing
	m.StartedAt = &at
	m.UpdatedAt = at
	m.Record(MeetingStarted{MeetingID: m.ID, ChatID: m.ChatID, OrganizerID: m.OrganizerID, At: at})
	return nil
}

func (m *Meeting) End(actor string, now time.Time) error {
	if actor != m.OrganizerID {
		return ErrNotOrganizer
	}
	if m.Status != StatusOngoing {
		return m.invalid("end")
	}
	at := now.UTC()
	m.Status = StatusCompleted
	m.EndedAt = &at
	m.UpdatedAt = at
	m.Record(MeetingEnded{MeetingID: m.ID, ChatID: m.ChatID, At: at})
	return nil
}

func (m *Meeting) Cancel(actor string, now time.Time) error {
	if actor != m.OrganizerID {
		return ErrNotOrganizer
	}
	if m.Status != StatusScheduled && m.Status != StatusOngoing {
		return m.invalid("cancel")
	}
	at := now.UTC()
	m.Status = StatusCancelled
	m.EndedAt = &at
	m.UpdatedAt = at
	m.Record(MeetingCancelled{MeetingID: m.ID, ChatID: m.ChatID, At: at})
	return nil
}

// StartAnnouncement is the chat line posted when a meeting starts.
func StartAnnouncement(organizerName, title string) string {
	return fmt.Sprintf("%s started the meeting: %s", organizerName, title)
}

// Upcoming reports a scheduled meeting whose start is not in the past.
func (m *Meeting) Upcoming(now time.Time) bool {
	return m.Status == StatusScheduled && m.ScheduledAt != nil && !m.ScheduledAt.Before(now)
}

func (m *Meeting) invalid(action string) error {
	return fmt.Errorf("%w: cannot %s a %s meeting", ErrInvalidState, action, m.Status)
}
