// Package mongocache implements the persisted scrape cache: one
// document per eventId_type key, aged against a fixed freshness
// window.
package mongocache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/regattahq/raceboard/internal/race"
)

// CollectionName is where cache documents live.
const CollectionName = "raceDataCache"

type cacheDoc struct {
	Key       string    `bson:"_id"`
	Payload   []byte    `bson:"payload"`
	ScrapedAt time.Time `bson:"scrapedAt"`
}

// Cache is the cross-instance scrape cache. scrapedAt is stamped by
// the Mongo server on write, so instances with skewed clocks agree on
// an entry's age; the per-call TTL on Set is ignored so every
// instance ages entries identically.
type Cache struct {
	collection *mongo.Collection
	clock      race.Clock
	maxAge     time.Duration
}

// New builds a Cache over the given database.
func New(db *mongo.Database, clock race.Clock, maxAge time.Duration) *Cache {
	return &Cache{
		collection: db.Collection(CollectionName),
		clock:      clock,
		maxAge:     maxAge,
	}
}

// Get returns the cached payload when fresher than the max age. A
// stale document is actively deleted before reporting a miss.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var doc cacheDoc
	err := c.collection.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache lookup %q: %w", key, err)
	}
	if c.clock.Now().Sub(doc.ScrapedAt) > c.maxAge {
		if _, err := c.collection.DeleteOne(ctx, bson.M{"_id": key}); err != nil {
			return nil, false, fmt.Errorf("delete stale cache %q: %w", key, err)
		}
		return nil, false, nil
	}
	return doc.Payload, true, nil
}

// Set upserts the cache document. The scrape time comes from the
// server, not the process clock.
func (c *Cache) Set(ctx context.Context, key string, payload []byte, _ time.Duration) error {
	opts := options.Update().SetUpsert(true)
	if _, err := c.collection.UpdateOne(ctx, bson.M{"_id": key}, setUpdate(payload), opts); err != nil {
		return fmt.Errorf("cache write %q: %w", key, err)
	}
	return nil
}

// setUpdate builds the cache upsert document with a server-generated
// scrapedAt.
func setUpdate(payload []byte) bson.M {
	return bson.M{
		"$set":         bson.M{"payload": payload},
		"$currentDate": bson.M{"scrapedAt": true},
	}
}

// Key builds the composite eventId_type cache key.
func Key(eventID, scrapeType string) string {
	return eventID + "_" + scrapeType
}
