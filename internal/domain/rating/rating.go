package rating

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"skillswap/internal/domain/shared/errs"
	"skillswap/internal/domain/shared/events"
	"skillswap/internal/domain/swap"
)

const (
	MinScore         = 1
	MaxScore         = 5
	maxCommentLength = 1000
)

var (
	ErrScoreOutOfRange  = fmt.Errorf("%w: rating: score must be between %d and %d", errs.ErrValidation, MinScore, MaxScore)
	ErrCommentTooLong   = fmt.Errorf("%w: rating: comment must be at most %d characters", errs.ErrValidation, maxCommentLength)
	ErrAlreadyRated     = fmt.Errorf("%w: rating: swap already rated by this user", errs.ErrValidation)
	ErrNotParticipant   = fmt.Errorf("%w: rating: only swap participants may rate", errs.ErrForbidden)
	ErrSwapNotCompleted = fmt.Errorf("%w: rating: only completed swaps can be rated", errs.ErrInvalidState)
)

type RatingID string

// Rating is one participant's score for the counterpart of a completed swap.
type Rating struct {
	ID        RatingID
	SwapID    swap.SwapID
	RaterID   string
	RateeID   string
	Score     int
	Comment   string
	CreatedAt time.Time
	events.EventRecorder
}

// Summary aggregates the ratings a user received.
type Summary struct {
	Count   int
	Average float64
}

type Repository interface {
	// Save inserts a rating. A second rating of the same swap by the same
	// rater fails with ErrAlreadyRated.
	Save(ctx context.Context, r *Rating) error
	// ListForUser returns ratings the user gave or received, newest first.
	ListForUser(ctx context.Context, userID string) ([]*Rating, error)
	SummaryFor(ctx context.Context, rateeID string) (Summary, error)
}

type NewParams struct {
	ID      RatingID
	Swap    *swap.Swap
	RaterID string
	Score   int
	Comment string
	Now     time.Time
}

func New(p NewParams) (*Rating, error) {
	s := p.Swap
	if !s.Involves(p.RaterID) {
		return nil, ErrNotParticipant
	}
	if s.Status != swap.StatusCompleted {
		return nil, ErrSwapNotCompleted
	}
	if p.Score < MinScore || p.Score > MaxScore {
		return nil, ErrScoreOutOfRange
	}
	comment := strings.TrimSpace(p.Comment)
	if utf8.RuneCountInString(comment) > maxCommentLength {
		return nil, ErrCommentTooLong
	}
	r := &Rating{
		ID:        p.ID,
		SwapID:    s.ID,
		RaterID:   p.RaterID,
		RateeID:   s.Counterpart(p.RaterID),
		Score:     p.Score,
		Comment:   comment,
		CreatedAt: p.Now.UTC(),
	}
	r.Record(RatingSubmittedEvent{
		RatingID: r.ID,
		SwapID:   r.SwapID,
		RaterID:  r.RaterID,
		RateeID:  r.RateeID,
		Score:    r.Score,
		At:       r.CreatedAt,
	})
	return r, nil
}

// Summarize averages scores; an empty slice yields the zero Summary.
func Summarize(scores []int) Summary {
	if len(scores) == 0 {
		return Summary{}
	}
	total := 0
	for _, s := range scores {
		total += s
	}
	return Summary{Count: len(scores), Average: float64(total) / float64(len(scores))}
}

// Round1 rounds to one decimal place for display.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

type RatingSubmittedEvent struct {
	RatingID RatingID
	SwapID   swap.SwapID
	RaterID  string
	RateeID  string
	Score    int
	At       time.Time
}

func (e RatingSubmittedEvent) EventName() string     { return "rating.submitted" }
func (e RatingSubmittedEvent) AggregateID() string   { return string(e.RatingID) }
func (e RatingSubmittedEvent) OccurredAt() time.Time { return e.At }
