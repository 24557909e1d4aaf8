package ratings

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"skillswap/internal/app/commands"
	"skillswap/internal/app/dto"
	"skillswap/internal/app/handlers/support"
	"skillswap/internal/app/outbox"
	"skillswap/internal/app/policies"
	"skillswap/internal/app/queries"
	"skillswap/internal/app/uow"
	domainnotification "skillswap/internal/domain/notification"
	domainrating "skillswap/internal/domain/rating"
	"skillswap/internal/domain/shared/errs"
	domainswap "skillswap/internal/domain/swap"
	domainuser "skillswap/internal/domain/user"
)

const (
	rateSwapKey    = "ratings.rate_swap"
	listRatingsKey = "ratings.list"
)

type RateSwapCommand struct {
	SwapID  string
	Actor   string
	Score   int
	Comment string
}

func (c RateSwapCommand) Key() string     { return rateSwapKey }
func (c RateSwapCommand) ActorID() string { return c.Actor }

func (c RateSwapCommand) Validate() error {
	if strings.TrimSpace(c.SwapID) == "" {
		return fmt.Errorf("%w: rating: swap id is required", errs.ErrValidation)
	}
	return nil
}

// RateSwapHandler lets a participant of a completed swap score the
// counterpart once.
type RateSwapHandler struct {
	UoWFactory uow.UoWFactory
	Encoder    outbox.EventEncoder
	Clock      support.Clock
	Logger     *slog.Logger
}

func (h *RateSwapHandler) Handle(ctx context.Context, cmd RateSwapCommand) (*dto.Rating, error) {
	unit, ctx, err := support.BeginWriteUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	defer unit.Release()

	s, err := unit.Swaps().ByID(ctx, domainswap.SwapID(cmd.SwapID))
	if err != nil {
		return nil, err
	}
	// Strangers learn nothing about the swap.
	if !s.Involves(cmd.Actor) {
		return nil, domainswap.ErrNotFound
	}
	r, err := domainrating.New(domainrating.NewParams{
		ID:      domainrating.RatingID(support.NewID()),
		Swap:    s,
		RaterID: cmd.Actor,
		Score:   cmd.Score,
		Comment: cmd.Comment,
		Now:     h.Clock.Now(),
	})
	if err != nil {
		return nil, err
	}
	if err := unit.Ratings().Save(ctx, r); err != nil {
		return nil, err
	}
	if err := support.RecordEvents(ctx, unit, h.Encoder, r); err != nil {
		return nil, err
	}
	name, err := support.Username(ctx, unit.Users(), cmd.Actor)
	if err != nil {
		return nil, err
	}
	policies.Defer(ctx, policies.Notice{
		RecipientID: r.RateeID,
		Kind:        domainnotification.KindRatingReceived,
		Title:       "New Rating",
		Body:        fmt.Sprintf("%s rated your swap %d/%d", name, r.Score, domainrating.MaxScore),
		RefID:       string(r.SwapID),
	})
	if err := unit.Commit(ctx); err != nil {
		return nil, err
	}
	if h.Logger != nil {
		h.Logger.Info("swap rated", "swap_id", s.ID, "rating_id", r.ID, "score", r.Score)
	}
	out := dto.MapRating(r)
	return &out, nil
}

// ListRatingsQuery lists UserID's ratings. The owner sees the ratings they
// gave as well; everyone else sees received ones only. Private profiles are
// hidden from other users.
type ListRatingsQuery struct {
	Actor  string
	UserID string
}

func (q ListRatingsQuery) Key() string     { return listRatingsKey }
func (q ListRatingsQuery) ActorID() string { return q.Actor }

type ListRatingsHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *ListRatingsHandler) Handle(ctx context.Context, q ListRatingsQuery) (dto.RatingCollection, error) {
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.RatingCollection{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	subject := strings.TrimSpace(q.UserID)
	if subject == "" || subject == "me" {
		subject = q.Actor
	}
	self := subject == q.Actor
	if !self {
		u, err := unit.Users().ByID(ctx, domainuser.ID(subject))
		if err != nil {
			return dto.RatingCollection{}, err
		}
		if !u.Public || !u.Available() {
			return dto.RatingCollection{}, domainuser.ErrNotFound
		}
	}
	list, err := unit.Ratings().ListForUser(ctx, subject)
	if err != nil {
		return dto.RatingCollection{}, err
	}
	summary, err := unit.Ratings().SummaryFor(ctx, subject)
	if err != nil {
		return dto.RatingCollection{}, err
	}
	out := dto.RatingCollection{
		Items:    make([]dto.Rating, 0, len(list)),
		Received: summary.Count,
		Average:  domainrating.Round1(summary.Average),
	}
	for _, r := range list {
		if self || r.RateeID == subject {
			out.Items = append(out.Items, dto.MapRating(r))
		}
	}
	return out, nil
}

var _ commands.Handler[RateSwapCommand, *dto.Rating] = (*RateSwapHandler)(nil)
var _ queries.Handler[ListRatingsQuery, dto.RatingCollection] = (*ListRatingsHandler)(nil)
