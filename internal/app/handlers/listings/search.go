package listings

import (
	"context"
	"errors"

	"skillswap/internal/app/dto"
	"skillswap/internal/app/handlers/support"
	"skillswap/internal/app/queries"
	"skillswap/internal/app/uow"
	domainlistings "skillswap/internal/domain/listings"
	domainuser "skillswap/internal/domain/user"
)

const searchListingsKey = "listings.search"

// SearchListingsQuery describes catalog filters. Empty fields do not filter.
type SearchListingsQuery struct {
	OwnerID   string
	Direction string
	Name      string
	Limit     int
}

func (q SearchListingsQuery) Key() string { return searchListingsKey }

func (q SearchListingsQuery) Validate() error {
	if q.Direction == "" {
		return nil
	}
	_, err := domainlistings.ParseDirection(q.Direction)
	return err
}

// SearchListingsHandler returns active listings whose owners are public,
// active and not banned.
type SearchListingsHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *SearchListingsHandler) Handle(ctx context.Context, q SearchListingsQuery) (dto.ListingCollection, error) {
	params := domainlistings.SearchParams{
		OwnerID:    q.OwnerID,
		NameLike:   q.Name,
		OnlyActive: true,
		Limit:      q.Limit,
	}
	if q.Direction != "" {
		direction, err := domainlistings.ParseDirection(q.Direction)
		if err != nil {
			return dto.ListingCollection{}, err
		}
		params.Direction = direction
	}
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.ListingCollection{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}

	found, err := unit.Listings().Search(ctx, params.Normalized())
	if err != nil {
		return dto.ListingCollection{}, err
	}
	owners := make(map[string]*domainuser.User)
	out := dto.ListingCollection{Items: make([]dto.Listing, 0, len(found))}
	for _, l := range found {
		owner, ok := owners[l.OwnerID]
		if !ok {
			owner, err = unit.Users().ByID(ctx, domainuser.ID(l.OwnerID))
			if err != nil && !errors.Is(err, domainuser.ErrNotFound) {
				return dto.ListingCollection{}, err
			}
			owners[l.OwnerID] = owner
		}
		if owner == nil || !owner.Available() || !owner.Public {
			continue
		}
		out.Items = append(out.Items, dto.MapListing(l, owner.Username))
	}
	return out, nil
}

var _ queries.Handler[SearchListingsQuery, dto.ListingCollection] = (*SearchListingsHandler)(nil)
