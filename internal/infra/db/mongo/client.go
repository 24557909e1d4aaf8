package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	colUsers         = "agg_user"
	colListings      = "agg_listing"
	colSwaps         = "agg_swap"
	colChats         = "agg_chat"
	colMessages      = "chat_messages"
	colMeetings      = "agg_meeting"
	colNotifications = "notifications"
	colRatings       = "ratings"
	colCounters      = "counters"

	swapKeyIndex = "uniq_swap_key"
)

type Client struct {
	DB *mongo.Database
}

func New(uri, database string) (*Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	opts := options.Client().ApplyURI(uri).SetRetryWrites(true)
	m, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &Client{DB: m.Database(database)}, nil
}

func (c *Client) Ping(ctx context.Context) error {
	return c.DB.Client().Ping(ctx, nil)
}

func (c *Client) Close(ctx context.Context) error {
	return c.DB.Client().Disconnect(ctx)
}

// EnsureIndexes creates the unique indexes the repositories rely on.
// Collections are created up front because transactions cannot create them
// on older servers.
func (c *Client) EnsureIndexes(ctx context.Context) error {
	existing, err := c.DB.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return err
	}
	have := make(map[string]bool, len(existing))
	for _, name := range existing {
		have[name] = true
	}
	for _, name := range []string{colUsers, colListings, colSwaps, colChats, colMessages, colMeetings, colNotifications, colRatings, colCounters} {
		if have[name] {
			continue
		}
		if err := c.DB.CreateCollection(ctx, name); err != nil && !isNamespaceExists(err) {
			return err
		}
	}

	indexes := map[string][]mongo.IndexModel{
		colUsers: {
			{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		colListings: {
			{Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "direction", Value: 1}, {Key: "name_key", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "created_at", Value: -1}}},
		},
		colSwaps: {
			{Keys: bson.D{
				{Key: "requester_id", Value: 1},
				{Key: "receiver_id", Value: 1},
				{Key: "offered_listing_id", Value: 1},
				{Key: "requested_listing_id", Value: 1},
			}, Options: options.Index().SetUnique(true).SetName(swapKeyIndex)},
			{Keys: bson.D{{Key: "receiver_id", Value: 1}, {Key: "status", Value: 1}}},
		},
		colChats: {
			{Keys: bson.D{{Key: "swap_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		colMessages: {
			{Keys: bson.D{{Key: "chat_id", Value: 1}, {Key: "created_at", Value: 1}, {Key: "seq", Value: 1}}},
		},
		colMeetings: {
			{Keys: bson.D{{Key: "chat_id", Value: 1}}},
		},
		colNotifications: {
			{Keys: bson.D{{Key: "recipient_id", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		colRatings: {
			{Keys: bson.D{{Key: "swap_id", Value: 1}, {Key: "rater_id", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "ratee_id", Value: 1}}},
		},
	}
	for col, models := range indexes {
		if _, err := c.DB.Collection(col).Indexes().CreateMany(ctx, models); err != nil {
			return err
		}
	}
	return nil
}

func isNamespaceExists(err error) bool {
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.Code == 48
	}
	return false
}
