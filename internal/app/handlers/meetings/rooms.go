package meetings

import (
	"context"
	"strings"

	domainmeeting "skillswap/internal/domain/meeting"
)

// RoomAllocator hands out a fresh room for a new meeting.
type RoomAllocator interface {
	Allocate(ctx context.Context) (domainmeeting.Room, error)
}

type TokenGenerator interface {
	NewToken() (string, error)
}

// TokenRooms names rooms with random tokens under BaseURL.
type TokenRooms struct {
	BaseURL string
	Tokens  TokenGenerator
}

func (r TokenRooms) Allocate(context.Context) (domainmeeting.Room, error) {
	id, err := r.Tokens.NewToken()
	if err != nil {
		return domainmeeting.Room{}, err
	}
	return domainmeeting.Room{
		ID:  id,
		URL: strings.TrimRight(r.BaseURL, "/") + "/" + id,
	}, nil
}
