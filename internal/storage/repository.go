package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"crypto-bob-alerts/internal/sample"
)

var (
	// ErrNotConfigured indicates the storage client was not initialised.
	ErrNotConfigured = errors.New("storage: client not configured")
)

// SampleStore defines operations for price sample persistence. The write
// path is owned exclusively by the acquisition cycle; the analyzer only reads.
type SampleStore interface {
	InsertSample(ctx context.Context, s sample.PriceSample) error
	ListSamplesSince(ctx context.Context, since time.Time, limit int) ([]sample.PriceSample, error)
	ListRecentSamples(ctx context.Context, limit int) ([]sample.PriceSample, error)
	CountSamples(ctx context.Context) (int64, error)
}

// sampleDoc is the stored document shape. Prices travel as strings so the
// decimal values survive the round trip exactly.
type sampleDoc struct {
	Timestamp time.Time `bson:"timestamp"`
	BTCUSD    string    `bson:"btc_usd"`
	USDTBOB   string    `bson:"usdt_bob"`
	BTCBOB    string    `bson:"btc_bob"`
	CreatedAt time.Time `bson:"created_at"`
}

// Store persists samples to a mongo collection.
type Store struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// NewStore wires a mongo client into a Store.
func NewStore(client *mongo.Client, database, collection string) *Store {
	return &Store{
		client:     client,
		collection: client.Database(database).Collection(collection),
	}
}

// Close releases the underlying client resources.
func (s *Store) Close(ctx context.Context) {
	if s == nil || s.client == nil {
		return
	}
	_ = s.client.Disconnect(ctx)
}

func (s *Store) getCollection() (*mongo.Collection, error) {
	if s == nil || s.collection == nil {
		return nil, ErrNotConfigured
	}
	return s.collection, nil
}

// InsertSample appends one sample document.
func (s *Store) InsertSample(ctx context.Context, ps sample.PriceSample) error {
	coll, err := s.getCollection()
	if err != nil {
		return err
	}

	doc := sampleDoc{
		Timestamp: ps.Timestamp.UTC(),
		BTCUSD:    ps.BTCUSD.String(),
		USDTBOB:   ps.USDTBOB.String(),
		BTCBOB:    ps.BTCBOB.String(),
		CreatedAt: time.Now().UTC(),
	}

	if _, err := coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert sample: %w", err)
	}
	return nil
}

// ListSamplesSince returns samples no older than since, oldest first,
// up to limit entries.
func (s *Store) ListSamplesSince(ctx context.Context, since time.Time, limit int) ([]sample.PriceSample, error) {
	coll, err := s.getCollection()
	if err != nil {
		return nil, err
	}

	filter := bson.M{"timestamp": bson.M{"$gte": since.UTC()}}
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}})
	if limit > 0 {
		opts = opts.SetLimit(int64(limit))
	}

	cursor, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("list samples since: %w", err)
	}
	return decodeSamples(ctx, cursor)
}

// ListRecentSamples returns the most recent samples, newest first.
func (s *Store) ListRecentSamples(ctx context.Context, limit int) ([]sample.PriceSample, error) {
	coll, err := s.getCollection()
	if err != nil {
		return nil, err
	}

	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}})
	if limit > 0 {
		opts = opts.SetLimit(int64(limit))
	}

	cursor, err := coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list recent samples: %w", err)
	}
	return decodeSamples(ctx, cursor)
}

// CountSamples counts stored samples.
func (s *Store) CountSamples(ctx context.Context) (int64, error) {
	coll, err := s.getCollection()
	if err != nil {
		return 0, err
	}

	count, err := coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("count samples: %w", err)
	}
	return count, nil
}

func decodeSamples(ctx context.Context, cursor *mongo.Cursor) ([]sample.PriceSample, error) {
	defer cursor.Close(ctx)

	samples := make([]sample.PriceSample, 0)
	for cursor.Next(ctx) {
		var doc sampleDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode sample: %w", err)
		}

		ps, err := docToSample(doc)
		if err != nil {
			return nil, err
		}
		samples = append(samples, ps)
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return samples, nil
}

func docToSample(doc sampleDoc) (sample.PriceSample, error) {
	btcUSD, err := decimal.NewFromString(doc.BTCUSD)
	if err != nil {
		return sample.PriceSample{}, fmt.Errorf("parse btc_usd: %w", err)
	}
	usdtBOB, err := decimal.NewFromString(doc.USDTBOB)
	if err != nil {
		return sample.PriceSample{}, fmt.Errorf("parse usdt_bob: %w", err)
	}
	btcBOB, err := decimal.NewFromString(doc.BTCBOB)
	if err != nil {
		return sample.PriceSample{}, fmt.Errorf("parse btc_bob: %w", err)
	}

	return sample.PriceSample{
		Timestamp: doc.Timestamp,
		BTCUSD:    btcUSD,
		USDTBOB:   usdtBOB,
		BTCBOB:    btcBOB,
	}, nil
}

var _ SampleStore = (*Store)(nil)
