package inbox

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const collection = "inbox"

// DefaultRetention bounds how long consumed message ids are remembered.
const DefaultRetention = 7 * 24 * time.Hour

// Store deduplicates messages for a single consumer in MongoDB.
type Store struct {
	col      *mongo.Collection
	consumer string
	now      func() time.Time
}

// NewStore ensures the unique and TTL indexes. A retention of zero uses
// DefaultRetention.
func NewStore(ctx context.Context, db *mongo.Database, consumer string, retention time.Duration) (*Store, error) {
	if db == nil {
		return nil, errors.New("inbox: nil database")
	}
	if consumer == "" {
		return nil, errors.New("inbox: consumer is required")
	}
	if retention <= 0 {
		retention = DefaultRetention
	}
	col := db.Collection(collection)
	_, err := col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "consumer", Value: 1}, {Key: "event_id", Value: 1}},
			Options: options.Index().SetName("uniq_consumer_event").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "received_at", Value: 1}},
			Options: options.Index().SetName("ttl_received_at").SetExpireAfterSeconds(int32(retention / time.Second)),
		},
	})
	if err != nil {
		return nil, err
	}
	return &Store{col: col, consumer: consumer, now: time.Now}, nil
}

// Seen records eventID and reports whether this consumer already handled it.
func (s *Store) Seen(ctx context.Context, eventID string) (bool, error) {
	doc := bson.M{
		"_id":         s.consumer + ":" + eventID,
		"consumer":    s.consumer,
		"event_id":    eventID,
		"received_at": s.now().UTC(),
	}
	_, err := s.col.InsertOne(ctx, doc)
	if err == nil {
		return false, nil
	}
	if mongo.IsDuplicateKeyError(err) {
		return true, nil
	}
	return false, err
}

// Forget drops the record for eventID so a redelivery is handled again.
func (s *Store) Forget(ctx context.Context, eventID string) error {
	_, err := s.col.DeleteOne(ctx, bson.M{"_id": s.consumer + ":" + eventID})
	return err
}
