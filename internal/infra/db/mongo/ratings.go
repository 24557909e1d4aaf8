package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"skillswap/internal/app/uow"
	domainmeeting "skillswap/internal/domain/meeting"
	domainrating "skillswap/internal/domain/rating"
	domainswap "skillswap/internal/domain/swap"
)

type ratingRepo struct{ col *mongo.Collection }

type ratingDocument struct {
	ID        string    `bson:"_id"`
	SwapID    string    `bson:"swap_id"`
	RaterID   string    `bson:"rater_id"`
	RateeID   string    `bson:"ratee_id"`
	Score     int       `bson:"score"`
	Comment   string    `bson:"comment,omitempty"`
	CreatedAt time.Time `bson:"created_at"`
}

func (d ratingDocument) toAggregate() *domainrating.Rating {
	return &domainrating.Rating{
		ID:        domainrating.RatingID(d.ID),
		SwapID:    domainswap.SwapID(d.SwapID),
		RaterID:   d.RaterID,
		RateeID:   d.RateeID,
		Score:     d.Score,
		Comment:   d.Comment,
		CreatedAt: d.CreatedAt.UTC(),
	}
}

// Save relies on the unique (swap_id, rater_id) index.
func (r ratingRepo) Save(ctx context.Context, rt *domainrating.Rating) error {
	_, err := r.col.InsertOne(ctx, ratingDocument{
		ID:        string(rt.ID),
		SwapID:    string(rt.SwapID),
		RaterID:   rt.RaterID,
		RateeID:   rt.RateeID,
		Score:     rt.Score,
		Comment:   rt.Comment,
		CreatedAt: rt.CreatedAt,
	})
	if mongo.IsDuplicateKeyError(err) {
		return domainrating.ErrAlreadyRated
	}
	return mapWriteError(err)
}

func (r ratingRepo) ListForUser(ctx context.Context, userID string) ([]*domainrating.Rating, error) {
	filter := bson.M{"$or": bson.A{bson.M{"rater_id": userID}, bson.M{"ratee_id": userID}}}
	cur, err := r.col.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}))
	if err != nil {
		return nil, err
	}
	var docs []ratingDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]*domainrating.Rating, 0, len(docs))
	for _, doc := range docs {
		out = append(out, doc.toAggregate())
	}
	return out, nil
}

func (r ratingRepo) SummaryFor(ctx context.Context, rateeID string) (domainrating.Summary, error) {
	return summarize(ctx, r.col, bson.M{"ratee_id": rateeID})
}

func summarize(ctx context.Context, col *mongo.Collection, match bson.M) (domainrating.Summary, error) {
	cur, err := col.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.M{"_id": nil, "count": bson.M{"$sum": 1}, "avg": bson.M{"$avg": "$score"}}}},
	})
	if err != nil {
		return domainrating.Summary{}, err
	}
	var rows []struct {
		Count int     `bson:"count"`
		Avg   float64 `bson:"avg"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return domainrating.Summary{}, err
	}
	if len(rows) == 0 {
		return domainrating.Summary{}, nil
	}
	return domainrating.Summary{Count: rows[0].Count, Average: rows[0].Avg}, nil
}

type totalsReader struct{ db *mongo.Database }

func (r totalsReader) Totals(ctx context.Context, now time.Time) (uow.Totals, error) {
	var t uow.Totals
	counts := []struct {
		dst    *int
		col    string
		filter bson.M
	}{
		{&t.Users, colUsers, bson.M{"active": true, "banned": false}},
		{&t.BannedUsers, colUsers, bson.M{"banned": true}},
		{&t.Listings, colListings, bson.M{}},
		{&t.Swaps, colSwaps, bson.M{}},
		{&t.PendingSwaps, colSwaps, bson.M{"status": string(domainswap.StatusPending)}},
		{&t.CompletedSwaps, colSwaps, bson.M{"status": string(domainswap.StatusCompleted)}},
		{&t.Meetings, colMeetings, bson.M{}},
		{&t.UpcomingMeetings, colMeetings, bson.M{
			"status":       string(domainmeeting.StatusScheduled),
			"scheduled_at": bson.M{"$gte": now.UTC()},
		}},
	}
	for _, c := range counts {
		n, err := r.db.Collection(c.col).CountDocuments(ctx, c.filter)
		if err != nil {
			return uow.Totals{}, err
		}
		*c.dst = int(n)
	}
	summary, err := summarize(ctx, r.db.Collection(colRatings), bson.M{})
	if err != nil {
		return uow.Totals{}, err
	}
	t.Ratings, t.AverageRating = summary.Count, summary.Average
	return t, nil
}

var _ domainrating.Repository = ratingRepo{}
var _ uow.TotalsReader = totalsReader{}
